package workflows

// Gate names the rule that rejected a transition.
type Gate string

const (
	GateGraph    Gate = "graph"
	GateRole     Gate = "role"
	GateTerminal Gate = "terminal"
)

// LegalNextStatuses intersects the status graph with the role gate. It is the
// single decision primitive consulted before any user-driven status mutation.
func LegalNextStatuses(current Status, role string) []Status {
	allowed := AllowedTargets(role)
	legal := []Status{}
	for _, next := range NextStatuses(current) {
		if containsStatus(allowed, next) {
			legal = append(legal, next)
		}
	}
	return legal
}

// CheckTransition explains why current -> target is not legal for role.
// It returns nil when the transition is legal.
func CheckTransition(current, target Status, role string) *TransitionError {
	if IsTerminal(current) {
		return &TransitionError{Current: current, Attempted: target, Gate: GateTerminal}
	}
	if !CanTransition(current, target) {
		return &TransitionError{Current: current, Attempted: target, Gate: GateGraph}
	}
	if !containsStatus(AllowedTargets(role), target) {
		return &TransitionError{Current: current, Attempted: target, Gate: GateRole, Role: role}
	}
	return nil
}

// CheckSystemTransition applies the graph but not the role gate. It is used
// for transitions the system performs on its own behalf.
func CheckSystemTransition(current, target Status) *TransitionError {
	if IsTerminal(current) {
		return &TransitionError{Current: current, Attempted: target, Gate: GateTerminal}
	}
	if !CanTransition(current, target) {
		return &TransitionError{Current: current, Attempted: target, Gate: GateGraph}
	}
	return nil
}

func containsStatus(list []Status, s Status) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}
