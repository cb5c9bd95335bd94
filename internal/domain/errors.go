package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingData matches any *MissingDataError.
	ErrMissingData = errors.New("missing data")
	// ErrMalformedValue matches any *MalformedValueError.
	ErrMalformedValue = errors.New("malformed value")
)

// MissingDataError reports a required group or field that was absent.
// Field is "main", "wind", or a dotted path such as "main.temp".
type MissingDataError struct {
	Field string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing data: %s", e.Field)
}

func (e *MissingDataError) Is(target error) bool {
	return target == ErrMissingData
}

// MalformedValueError reports a present value that could not be coerced.
type MalformedValueError struct {
	Field string
	Raw   string
	Err   error
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("malformed value for %s (%s): %v", e.Field, e.Raw, e.Err)
}

func (e *MalformedValueError) Unwrap() error {
	return e.Err
}

func (e *MalformedValueError) Is(target error) bool {
	return target == ErrMalformedValue
}
