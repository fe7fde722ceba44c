package wallet

import "fmt"

// HeightTimeoutError is returned when the chain does not reach the minimum height in time.
type HeightTimeoutError struct {
	Height   uint64
	Attempts uint
	Err      error
}

func (e *HeightTimeoutError) Error() string {
	return fmt.Sprintf("chain did not reach height %d after %d attempts: %v", e.Height, e.Attempts, e.Err)
}

func (e *HeightTimeoutError) Unwrap() error {
	return e.Err
}

// FundingError is returned when a wallet could not be funded. No wallet after it is funded.
type FundingError struct {
	Label string
	Err   error
}

func (e *FundingError) Error() string {
	return fmt.Sprintf("failed to fund wallet %s: %v", e.Label, e.Err)
}

func (e *FundingError) Unwrap() error {
	return e.Err
}
