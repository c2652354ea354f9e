package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrRemote               = errors.New("remote error")
	ErrUnsupportedMediaKind = errors.New("unsupported media kind")
	ErrDownload             = errors.New("download error")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation error")
	ErrConfiguration        = errors.New("configuration error")
	ErrWallpaper            = errors.New("wallpaper error")
)

// Kind names an error class for reporting.
type Kind string

const (
	KindRemote               Kind = "remote"
	KindUnsupportedMediaKind Kind = "unsupported_media_kind"
	KindDownload             Kind = "download"
	KindStorageUnavailable   Kind = "storage_unavailable"
	KindNotFound             Kind = "not_found"
	KindValidation           Kind = "validation"
	KindConfiguration        Kind = "configuration"
	KindWallpaper            Kind = "wallpaper"
	KindUnknown              Kind = "unknown"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrStorageUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify reports the kind of the first marker found in err's chain.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedMediaKind):
		return KindUnsupportedMediaKind
	case errors.Is(err, ErrRemote):
		return KindRemote
	case errors.Is(err, ErrDownload):
		return KindDownload
	case errors.Is(err, ErrStorageUnavailable):
		return KindStorageUnavailable
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrWallpaper):
		return KindWallpaper
	default:
		return KindUnknown
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
