package cases

import (
	"fmt"
	"time"

	"gorm.io/datatypes"

	"baaseteen/case-portal/case-portal-backend/internal/auth"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// Workflow history action tags.
const (
	ActionStatusChange    = "status_change"
	ActionAssignment      = "assignment"
	ActionAutoProgression = "auto_progression"
	ActionFormCompleted   = "form_completed"
	ActionCoverLetter     = "cover_letter"
)

// SystemActorName is recorded when a transition has no human actor.
const SystemActorName = "System"

// EligibilityEligible is the only identification outcome that opens a case.
const EligibilityEligible = "eligible"

// Case is a welfare assistance application moving through the workflow.
type Case struct {
	ID                     uint                                      `json:"id" gorm:"primaryKey"`
	CaseNumber             string                                    `json:"case_number" gorm:"size:64;uniqueIndex;not null"`
	CaseType               string                                    `json:"case_type" gorm:"size:50;not null"`
	ApplicantName          string                                    `json:"applicant_name" gorm:"size:255"`
	Status                 workflows.Status                          `json:"status" gorm:"type:varchar(50);not null;default:draft;index"`
	CurrentWorkflowStageID *uint                                     `json:"current_workflow_stage_id,omitempty" gorm:"index"`
	WorkflowHistory        datatypes.JSONSlice[WorkflowHistoryEntry] `json:"workflow_history" gorm:"type:jsonb"`
	AssignedCounselorID    *uint                                     `json:"assigned_counselor_id,omitempty" gorm:"index"`
	AssignedManagerID      *uint                                     `json:"assigned_manager_id,omitempty" gorm:"index"`
	IdentificationID       *uint                                     `json:"identification_id,omitempty" gorm:"uniqueIndex"`
	CreatedBy              *uint                                     `json:"created_by,omitempty"`
	CreatedAt              time.Time                                 `json:"created_at"`
	UpdatedAt              time.Time                                 `json:"updated_at"`
}

func (Case) TableName() string {
	return "cases"
}

// WorkflowHistoryEntry records the case entering a workflow stage.
type WorkflowHistoryEntry struct {
	StageID       uint      `json:"stage_id"`
	StageName     string    `json:"stage_name"`
	EnteredAt     time.Time `json:"entered_at"`
	EnteredBy     *uint     `json:"entered_by"`
	EnteredByName string    `json:"entered_by_name"`
	Action        string    `json:"action"`
}

// StatusHistory is the immutable audit ledger of status changes.
type StatusHistory struct {
	ID         uint             `json:"id" gorm:"primaryKey"`
	CaseID     uint             `json:"case_id" gorm:"not null;index"`
	FromStatus workflows.Status `json:"from_status" gorm:"type:varchar(50);not null"`
	ToStatus   workflows.Status `json:"to_status" gorm:"type:varchar(50);not null"`
	ChangedBy  *uint            `json:"changed_by,omitempty"`
	Comment    string           `json:"comment" gorm:"type:text"`
	CreatedAt  time.Time        `json:"created_at"`
}

func (StatusHistory) TableName() string {
	return "case_status_history"
}

// CaseComment is a free-text note on a case.
type CaseComment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CaseID    uint      `json:"case_id" gorm:"not null;index"`
	UserID    *uint     `json:"user_id,omitempty"`
	Comment   string    `json:"comment" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (CaseComment) TableName() string {
	return "case_comments"
}

// Identification is an intake record screened before a case exists.
type Identification struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	ApplicantName     string    `json:"applicant_name" gorm:"size:255;not null"`
	CaseType          string    `json:"case_type" gorm:"size:50;not null"`
	EligibilityStatus string    `json:"eligibility_status" gorm:"size:30;not null;default:pending"`
	ReviewedBy        *uint     `json:"reviewed_by,omitempty"`
	CaseID            *uint     `json:"case_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (Identification) TableName() string {
	return "case_identifications"
}

// Assignment names the personnel to put on a case. Nil fields are left unchanged.
type Assignment struct {
	CounselorID *uint `json:"counselor_id"`
	ManagerID   *uint `json:"manager_id"`
}

// Actor is the authenticated user performing an operation. A nil *Actor is the system.
type Actor struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// ActorFrom converts an authenticated principal.
func ActorFrom(p auth.Principal) Actor {
	return Actor{ID: p.UserID, Name: p.Name, Role: p.Role}
}

func actorID(a *Actor) *uint {
	if a == nil {
		return nil
	}
	id := a.ID
	return &id
}

// actorName labels an actor in workflow history. Only a nil actor is the
// system; an unnamed user is labelled by id.
func actorName(a *Actor) string {
	if a == nil {
		return SystemActorName
	}
	if a.Name == "" {
		return fmt.Sprintf("user #%d", a.ID)
	}
	return a.Name
}

// FormatCaseNumber renders the permanent case number for a stored case.
func FormatCaseNumber(caseType string, id uint) string {
	return fmt.Sprintf("%s-%05d", caseType, id)
}

// Recipients returns the personnel assigned to the case.
func (c *Case) Recipients() []uint {
	var ids []uint
	if c.AssignedCounselorID != nil {
		ids = append(ids, *c.AssignedCounselorID)
	}
	if c.AssignedManagerID != nil && (c.AssignedCounselorID == nil || *c.AssignedManagerID != *c.AssignedCounselorID) {
		ids = append(ids, *c.AssignedManagerID)
	}
	return ids
}

// IsAssignee reports whether the user is the case's counselor or manager.
func (c *Case) IsAssignee(userID uint) bool {
	return (c.AssignedCounselorID != nil && *c.AssignedCounselorID == userID) ||
		(c.AssignedManagerID != nil && *c.AssignedManagerID == userID)
}
