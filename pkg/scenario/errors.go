package scenario

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStep       = errors.New("invalid step")
	ErrUnknownOp         = errors.New("unknown op")
	ErrUnsupportedFormat = errors.New("unsupported scenario format")
	ErrExpectation       = errors.New("expectation failed")
)

// ExpectationError describes one failed expectation. Step is 1-based; zero
// means the expectation applies to the whole run.
type ExpectationError struct {
	Step    int
	Message string
}

func (e *ExpectationError) Error() string {
	if e.Step == 0 {
		return fmt.Sprintf("expectation failed: %s", e.Message)
	}
	return fmt.Sprintf("step %d: expectation failed: %s", e.Step, e.Message)
}

func (e *ExpectationError) Unwrap() error {
	return ErrExpectation
}
