package lifecycle

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotIdle is returned by Run when the orchestrator has already been run.
	ErrNotIdle = errors.New("orchestrator has already been run")

	errNotHealthy = errors.New("node is not healthy yet")
)

// PortConflictError is returned when the node group could not bind its ports.
type PortConflictError struct {
	Stderr string
}

func (e *PortConflictError) Error() string {
	return "node port is already in use, stop the process holding it and retry"
}

// CompilerPortConflictError is returned when the compiler group could not bind its port.
type CompilerPortConflictError struct {
	Stderr string
}

func (e *CompilerPortConflictError) Error() string {
	return "compiler port is already in use, stop the process holding it and retry"
}

// NodeStartTimeoutError is returned when the node did not become healthy within the poll bound.
type NodeStartTimeoutError struct {
	Attempts uint
	Interval time.Duration
}

func (e *NodeStartTimeoutError) Error() string {
	return fmt.Sprintf("node did not become healthy after %d attempts (%s apart)", e.Attempts, e.Interval)
}

// CompilerStartError is returned when the compiler group exits abnormally for any reason other
// than a port conflict.
type CompilerStartError struct {
	Err error
}

func (e *CompilerStartError) Error() string {
	return fmt.Sprintf("failed to start compiler: %v", e.Err)
}

func (e *CompilerStartError) Unwrap() error {
	return e.Err
}
