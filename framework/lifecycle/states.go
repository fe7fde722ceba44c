package lifecycle

// State is a step of the orchestrator state machine.
type State int

const (
	Idle State = iota
	Probing
	Stopping
	Starting
	PollingHealth
	CompilerStarting
	FundingWallets
	Done
	Failed
)

var stateNames = map[State]string{
	Idle:             "idle",
	Probing:          "probing",
	Stopping:         "stopping",
	Starting:         "starting",
	PollingHealth:    "polling-health",
	CompilerStarting: "compiler-starting",
	FundingWallets:   "funding-wallets",
	Done:             "done",
	Failed:           "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen from s.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
