package types

import "context"

// ProcessGroup is a running container-group command.
//
// Callers either range over Output until it is closed or call Wait, which drains whatever
// has not been read yet. Output never blocks the producer for longer than the consumer
// takes to drain its bounded buffer.
type ProcessGroup interface {
	// Output returns the lines produced by the process as they arrive.
	Output() <-chan OutputLine
	// Wait blocks until the process has exited and returns its captured result.
	Wait(ctx context.Context) (SpawnResult, error)
}
