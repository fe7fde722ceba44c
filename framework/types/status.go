package types

import (
	"github.com/docker/go-connections/nat"
)

// ContainerStatus describes what the container runtime reports for an image at probe time.
// It is derived fresh on every probe and must never be cached.
type ContainerStatus struct {
	ImageName string
	Present   bool
	Healthy   bool

	// diagnostic details of the matched container, empty when not present.
	ID     string
	Name   string
	Status string
	Ports  nat.PortMap
}

// RunOptions selects the path taken by a single orchestrator invocation.
type RunOptions struct {
	// Stop selects the teardown path.
	Stop bool
	// Only starts the node alone, skipping the compiler and wallet funding.
	Only bool
}

// Stream identifies which pipe of a spawned process a line came from.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// OutputLine is a single line of output produced by a spawned process.
type OutputLine struct {
	Stream Stream
	Text   string
}

// SpawnResult is the terminal status of a spawned process.
type SpawnResult struct {
	ExitOccurred bool
	ExitCode     int
	StdoutLines  []string
	Stderr       string
}
