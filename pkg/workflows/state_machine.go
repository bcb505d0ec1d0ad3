package workflows

import "fmt"

// Status is the primary workflow position of a case.
type Status string

const (
	StatusDraft                Status = "draft"
	StatusAssigned             Status = "assigned"
	StatusInCounseling         Status = "in_counseling"
	StatusCoverLetterGenerated Status = "cover_letter_generated"
	StatusSubmittedToWelfare   Status = "submitted_to_welfare"
	StatusWelfareApproved      Status = "welfare_approved"
	StatusWelfareRejected      Status = "welfare_rejected"
	StatusExecutiveApproved    Status = "executive_approved"
	StatusExecutiveRejected    Status = "executive_rejected"
	StatusFinanceDisbursement  Status = "finance_disbursement"
)

// AllStatuses lists the enumeration in lifecycle order. Results that return
// sets of statuses are ordered the same way.
var AllStatuses = []Status{
	StatusDraft,
	StatusAssigned,
	StatusInCounseling,
	StatusCoverLetterGenerated,
	StatusSubmittedToWelfare,
	StatusWelfareApproved,
	StatusWelfareRejected,
	StatusExecutiveApproved,
	StatusExecutiveRejected,
	StatusFinanceDisbursement,
}

// Valid reports whether s is a member of the status enumeration.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus converts a raw string to a Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown case status %q", raw)
	}
	return s, nil
}

// StateMachine enforces case status transitions.
//
//	draft -> assigned -> in_counseling -> cover_letter_generated -> submitted_to_welfare
//	                          ^                                        |        ^
//	                          |                                        v        |
//	                    welfare_rejected <-------------------- welfare_approved |
//	                                                                   |        |
//	                                                 executive_approved / executive_rejected
//	                                                         |
//	                                               finance_disbursement (terminal)
type StateMachine struct {
	allowedTransitions map[Status][]Status
}

// NewStateMachine creates a new state machine with allowed transitions
func NewStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[Status][]Status{
			StatusDraft:                {StatusAssigned},
			StatusAssigned:             {StatusInCounseling},
			StatusInCounseling:         {StatusCoverLetterGenerated},
			StatusCoverLetterGenerated: {StatusSubmittedToWelfare},
			StatusSubmittedToWelfare:   {StatusWelfareApproved, StatusWelfareRejected},
			StatusWelfareRejected:      {StatusInCounseling}, // rework
			StatusWelfareApproved:      {StatusExecutiveApproved, StatusExecutiveRejected},
			StatusExecutiveRejected:    {StatusSubmittedToWelfare}, // back to welfare review
			StatusExecutiveApproved:    {StatusFinanceDisbursement},
			StatusFinanceDisbursement:  {},
		},
	}
}

// CanTransition checks if a status transition is allowed by the graph alone
func (sm *StateMachine) CanTransition(from, to Status) bool {
	for _, allowedTo := range sm.allowedTransitions[from] {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from the given status in one
// step. Unknown and terminal statuses yield an empty slice.
func (sm *StateMachine) NextStatuses(from Status) []Status {
	allowed := sm.allowedTransitions[from]
	out := make([]Status, len(allowed))
	copy(out, allowed)
	return out
}

// IsTerminal reports whether a known status has no outgoing edges.
func (sm *StateMachine) IsTerminal(s Status) bool {
	allowed, exists := sm.allowedTransitions[s]
	return exists && len(allowed) == 0
}

var defaultMachine = NewStateMachine()

// NextStatuses queries the process-wide status graph.
func NextStatuses(from Status) []Status {
	return defaultMachine.NextStatuses(from)
}

// CanTransition queries the process-wide status graph.
func CanTransition(from, to Status) bool {
	return defaultMachine.CanTransition(from, to)
}

// IsTerminal queries the process-wide status graph.
func IsTerminal(s Status) bool {
	return defaultMachine.IsTerminal(s)
}
