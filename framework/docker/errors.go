package docker

import "fmt"

// ProbeError is returned when the container runtime cannot be queried.
type ProbeError struct {
	Image string
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probing containers for image %q: %v", e.Image, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}
