package protocol

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrCommandError is returned when the device pulls the CMDERR bit low, rejecting a command.
var ErrCommandError = errors.New("device reported a command error")

// ShortResponseError indicates a response buffer shorter than the frame it answers.
type ShortResponseError struct {
	Expected int
	Actual   int
}

func (e *ShortResponseError) Error() string {
	return fmt.Sprintf("short response: expected %d bytes, got %d", e.Expected, e.Actual)
}
