package apodapi

import (
	"fmt"
	"strings"
	"time"

	"apod/internal/services"
)

// DateLayout is the ISO 8601 calendar date format used by the API.
const DateLayout = "2006-01-02"

// FirstDate is the date of the first published APOD.
var FirstDate = time.Date(1995, time.June, 16, 0, 0, 0, 0, time.UTC)

// ParseDate parses a YYYY-MM-DD value and checks it against the published
// range. An empty value selects today.
func ParseDate(value string, today time.Time) (time.Time, error) {
	todayDate := calendarDate(today)
	value = strings.TrimSpace(value)
	if value == "" {
		return todayDate, nil
	}
	parsed, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, services.Wrap(services.ErrValidation, "apodapi", "parse date", fmt.Sprintf("invalid date format %q (want YYYY-MM-DD)", value), nil)
	}
	if err := ValidateDate(parsed, today); err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}

// ValidateDate rejects dates before the first APOD or after today.
func ValidateDate(date, today time.Time) error {
	date = calendarDate(date)
	if date.Before(FirstDate) {
		return services.Wrap(services.ErrValidation, "apodapi", "validate date",
			fmt.Sprintf("date too far in past; first APOD was on %s", FirstDate.Format(DateLayout)), nil)
	}
	if date.After(calendarDate(today)) {
		return services.Wrap(services.ErrValidation, "apodapi", "validate date", "APOD date cannot be in the future", nil)
	}
	return nil
}

// calendarDate drops the clock and zone, keeping the wall-clock date.
func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
