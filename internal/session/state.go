package session

// State is the agent's position in the join/negotiation lifecycle.
type State int

const (
	// StateIdle: session created, nothing announced yet.
	StateIdle State = iota

	// StateAwaitingApproval: guest has asked to join and waits on the
	// host's decision. Hosts never pass through this state.
	StateAwaitingApproval

	// StateJoined: a live room member with no peer link yet.
	StateJoined

	// StateNegotiating: an offer is in flight in one direction or the
	// other.
	StateNegotiating

	// StateLinked: the peer transport reported a completed link.
	StateLinked

	// StateClosed: torn down, by rejection, disconnect or hang-up.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingApproval:
		return "awaiting-approval"
	case StateJoined:
		return "joined"
	case StateNegotiating:
		return "negotiating"
	case StateLinked:
		return "linked"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Role distinguishes the room's approval authority from its guests.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)
