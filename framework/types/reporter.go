package types

import "math/big"

// Reporter renders user-facing progress of a devnode invocation.
type Reporter interface {
	Step(msg string)
	Success(msg string)
	// Progress marks one unsuccessful health poll.
	Progress()
	Output(line OutputLine)
	Wallet(label string, kp KeyPair, balance *big.Int)
	Error(err error)
}
