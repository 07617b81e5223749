package model

import (
	"errors"
	"fmt"
)

// Error classes returned by the calendar core. Callers test them with
// errors.Is; the message after the colon carries the detail.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	// ErrNoCalendar is the state variant of ErrNotFound: an operation needed
	// the current calendar but none is selected.
	ErrNoCalendar = fmt.Errorf("%w: no calendar is currently selected", ErrNotFound)
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
