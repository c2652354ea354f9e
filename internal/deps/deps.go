// Package deps reports whether external programs apod shells out to are
// installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement names an external program and why it is needed.
type Requirement struct {
	Name     string
	Command  string
	Purpose  string
	Optional bool
}

// Status reports the availability of a requirement.
type Status struct {
	Requirement
	Available bool
	Path      string
	Detail    string
}

// LookPathFunc resolves a command to an executable path.
type LookPathFunc func(file string) (string, error)

// Check evaluates each requirement using exec.LookPath.
func Check(requirements []Requirement) []Status {
	return CheckWith(exec.LookPath, requirements)
}

// CheckWith evaluates each requirement using lookPath.
func CheckWith(lookPath LookPathFunc, requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		status := Status{Requirement: req}
		switch path, err := lookPath(req.Command); {
		case req.Command == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", req.Command)
		default:
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the statuses of required entries that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
