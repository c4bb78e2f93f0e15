package collector

// State names the loop's current phase. The cycle is strictly sequential:
// Idle → Authenticating → Collecting → Persisting → Sleeping → Idle, with
// failed cycles jumping straight to Sleeping.
type State int

const (
	StateIdle State = iota
	StateAuthenticating
	StateCollecting
	StatePersisting
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticating:
		return "authenticating"
	case StateCollecting:
		return "collecting"
	case StatePersisting:
		return "persisting"
	case StateSleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}
