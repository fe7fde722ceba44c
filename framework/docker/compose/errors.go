package compose

import (
	"fmt"
	"strings"
)

// ExitError is returned when a compose command exits abnormally.
// Stderr holds everything the command wrote to its standard error.
type ExitError struct {
	Args   []string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", strings.Join(e.Args, " "), e.Code)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}
