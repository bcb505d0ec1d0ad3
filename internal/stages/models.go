package stages

import (
	"time"

	"github.com/lib/pq"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// Stage keys looked up by the workflow engines.
const (
	KeyIntake            = "intake"
	KeyAssignment        = "assignment"
	KeyCounselor         = "counselor"
	KeyWelfareReview     = "welfare_review"
	KeyExecutiveApproval = "executive_approval"
	KeyFinance           = "finance"
)

// WorkflowStage is a configurable named phase. The first associated status is
// the canonical status of the stage.
type WorkflowStage struct {
	ID                 uint           `json:"id" gorm:"primaryKey"`
	StageKey           string         `json:"stage_key" gorm:"size:100;not null;index"`
	Name               string         `json:"name" gorm:"size:255;not null"`
	SortOrder          int            `json:"sort_order" gorm:"not null;default:0"`
	IsActive           bool           `json:"is_active" gorm:"not null;default:true"`
	CaseType           *string        `json:"case_type,omitempty" gorm:"size:50;index"`
	AssociatedStatuses pq.StringArray `json:"associated_statuses" gorm:"type:text[]"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (WorkflowStage) TableName() string {
	return "workflow_stages"
}

// CanonicalStatus returns associated_statuses[0], if it is a known status.
func (s *WorkflowStage) CanonicalStatus() (workflows.Status, bool) {
	if len(s.AssociatedStatuses) == 0 {
		return "", false
	}
	status := workflows.Status(s.AssociatedStatuses[0])
	return status, status.Valid()
}

// Owns reports whether the stage lists the status among its associated statuses.
func (s *WorkflowStage) Owns(status workflows.Status) bool {
	for _, associated := range s.AssociatedStatuses {
		if workflows.Status(associated) == status {
			return true
		}
	}
	return false
}

func (s *WorkflowStage) appliesTo(caseType string) bool {
	return s.CaseType == nil || *s.CaseType == caseType
}

func (s *WorkflowStage) isScoped() bool {
	return s.CaseType != nil
}

// DefaultStages is the case-type agnostic stage set installed by the seed command.
func DefaultStages() []WorkflowStage {
	return []WorkflowStage{
		{StageKey: KeyIntake, Name: "Case Identification", SortOrder: 1, IsActive: true,
			AssociatedStatuses: pq.StringArray{string(workflows.StatusDraft)}},
		{StageKey: KeyAssignment, Name: "Counselor Assignment", SortOrder: 2, IsActive: true,
			AssociatedStatuses: pq.StringArray{string(workflows.StatusAssigned)}},
		{StageKey: KeyCounselor, Name: "Counseling", SortOrder: 3, IsActive: true,
			AssociatedStatuses: pq.StringArray{
				string(workflows.StatusInCounseling),
				string(workflows.StatusCoverLetterGenerated),
			}},
		{StageKey: KeyWelfareReview, Name: "Welfare Review", SortOrder: 4, IsActive: true,
			AssociatedStatuses: pq.StringArray{
				string(workflows.StatusSubmittedToWelfare),
				string(workflows.StatusWelfareApproved),
				string(workflows.StatusWelfareRejected),
			}},
		{StageKey: KeyExecutiveApproval, Name: "Executive Approval", SortOrder: 5, IsActive: true,
			AssociatedStatuses: pq.StringArray{
				string(workflows.StatusExecutiveApproved),
				string(workflows.StatusExecutiveRejected),
			}},
		{StageKey: KeyFinance, Name: "Finance Disbursement", SortOrder: 6, IsActive: true,
			AssociatedStatuses: pq.StringArray{string(workflows.StatusFinanceDisbursement)}},
	}
}
