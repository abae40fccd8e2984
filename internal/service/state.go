package service

// State is the lifecycle of a session.
type State int

const (
	Idle State = iota
	DocumentLoading
	DocumentReady
	Querying
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DocumentLoading:
		return "loading"
	case DocumentReady:
		return "ready"
	case Querying:
		return "querying"
	}
	return "unknown"
}
