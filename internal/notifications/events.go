package notifications

import (
	"time"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// Event types carried on every channel.
const (
	EventStatusChanged = "case.status_changed"
	EventFormCompleted = "case.counseling_form_completed"
)

// StatusChangeEvent describes one committed case status change.
type StatusChangeEvent struct {
	CaseID     uint             `json:"case_id"`
	CaseNumber string           `json:"case_number"`
	FromStatus workflows.Status `json:"from_status"`
	ToStatus   workflows.Status `json:"to_status"`
	ActorID    *uint            `json:"actor_id,omitempty"`
	ActorName  string           `json:"actor_name"`
	Comment    string           `json:"comment,omitempty"`
	Recipients []uint           `json:"recipients,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// FormCompletedEvent is raised after a counseling form is submitted for welfare review.
type FormCompletedEvent struct {
	CaseID     uint      `json:"case_id"`
	CaseNumber string    `json:"case_number"`
	FormID     uint      `json:"form_id"`
	Recipients []uint    `json:"recipients,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Envelope is the serialized form published to push channels.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}
