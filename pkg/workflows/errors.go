package workflows

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced case or form does not exist.
	ErrNotFound = errors.New("not found")
	// ErrFormLocked is returned when a completed counseling form is edited
	// outside the rework path.
	ErrFormLocked = errors.New("counseling form already submitted")
	// ErrInvalidStatus is returned for status values outside the enumeration.
	ErrInvalidStatus = errors.New("invalid case status")
	// ErrInvalidRequest is returned for malformed operation input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrConflict is returned when the record was already processed.
	ErrConflict = errors.New("conflict")
)

// ForbiddenError reports that the actor lacks the baseline permission for an action.
type ForbiddenError struct {
	Role     string
	Resource string
	Action   string
	Reason   string
}

func (e *ForbiddenError) Error() string {
	if e.Reason != "" {
		return "forbidden: " + e.Reason
	}
	return fmt.Sprintf("forbidden: role %q lacks %s:%s", e.Role, e.Resource, e.Action)
}

// TransitionError reports a workflow-legality rejection: the actor may act on
// the case, but the target status is not reachable for them.
type TransitionError struct {
	Current   Status
	Attempted Status
	Gate      Gate
	Role      string
}

func (e *TransitionError) Error() string {
	switch e.Gate {
	case GateTerminal:
		return fmt.Sprintf("case is in final status %s; no further transitions", e.Current)
	case GateRole:
		return fmt.Sprintf("role %q may not move a case from %s to %s", e.Role, e.Current, e.Attempted)
	default:
		return fmt.Sprintf("transition from %s to %s is not allowed", e.Current, e.Attempted)
	}
}

// IncompleteSectionsError lists the counseling form sections still missing.
type IncompleteSectionsError struct {
	Missing []string
}

func (e *IncompleteSectionsError) Error() string {
	return "counseling form incomplete, missing sections: " + strings.Join(e.Missing, ", ")
}

// TransactionError wraps a failed atomic commit. Nothing was persisted, so the
// whole operation may be retried.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: transaction failed: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// IsValidationError reports whether err was raised before any write.
func IsValidationError(err error) bool {
	var forbidden *ForbiddenError
	var transition *TransitionError
	var incomplete *IncompleteSectionsError
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrFormLocked) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrConflict) ||
		errors.As(err, &forbidden) ||
		errors.As(err, &transition) ||
		errors.As(err, &incomplete)
}
