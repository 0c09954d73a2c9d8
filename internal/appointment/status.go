package appointment

// The status machine is deliberately small: pending is the only entry
// state, cancelled is terminal, and confirmed can only move to cancelled.
var statusEdges = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
	StatusCancelled: {},
}

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	_, ok := statusEdges[s]
	return ok
}

// CanTransition reports whether the status machine allows from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range statusEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidFlow reports whether f is a settable flow value. The empty value is
// not settable; it only exists as the initial state.
func ValidFlow(f FlowStatus) bool {
	switch f {
	case FlowCheckedIn, FlowVitals, FlowConsulting, FlowComplete:
		return true
	}
	return false
}
