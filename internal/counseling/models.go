package counseling

import (
	"time"

	"gorm.io/datatypes"
)

// Section names in the order they appear on the form.
const (
	SectionPersonalDetails     = "personal_details"
	SectionFamilyDetails       = "family_details"
	SectionAssessment          = "assessment"
	SectionFinancialAssistance = "financial_assistance"
	SectionEconomicGrowth      = "economic_growth"
	SectionDeclaration         = "declaration"
	SectionAttachments         = "attachments"
)

// SectionNames lists every section a complete form carries.
var SectionNames = []string{
	SectionPersonalDetails,
	SectionFamilyDetails,
	SectionAssessment,
	SectionFinancialAssistance,
	SectionEconomicGrowth,
	SectionDeclaration,
	SectionAttachments,
}

// ValidSection reports whether name is one of the seven sections.
func ValidSection(name string) bool {
	for _, s := range SectionNames {
		if s == name {
			return true
		}
	}
	return false
}

// Form is the multi-part counseling form of a case. Each section reference
// is set once the section has been saved.
type Form struct {
	ID                    uint       `json:"id" gorm:"primaryKey"`
	CaseID                uint       `json:"case_id" gorm:"not null;uniqueIndex"`
	PersonalDetailsID     *uint      `json:"personal_details_id"`
	FamilyDetailsID       *uint      `json:"family_details_id"`
	AssessmentID          *uint      `json:"assessment_id"`
	FinancialAssistanceID *uint      `json:"financial_assistance_id"`
	EconomicGrowthID      *uint      `json:"economic_growth_id"`
	DeclarationID         *uint      `json:"declaration_id"`
	AttachmentsID         *uint      `json:"attachments_id"`
	IsComplete            bool       `json:"is_complete" gorm:"not null;default:false"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	CompletedBy           *uint      `json:"completed_by,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (Form) TableName() string {
	return "counseling_forms"
}

func (f *Form) ref(name string) **uint {
	switch name {
	case SectionPersonalDetails:
		return &f.PersonalDetailsID
	case SectionFamilyDetails:
		return &f.FamilyDetailsID
	case SectionAssessment:
		return &f.AssessmentID
	case SectionFinancialAssistance:
		return &f.FinancialAssistanceID
	case SectionEconomicGrowth:
		return &f.EconomicGrowthID
	case SectionDeclaration:
		return &f.DeclarationID
	case SectionAttachments:
		return &f.AttachmentsID
	}
	return nil
}

// HasSection reports whether the named section has been saved.
func (f *Form) HasSection(name string) bool {
	ref := f.ref(name)
	return ref != nil && *ref != nil
}

// SetSection points the form at a saved section.
func (f *Form) SetSection(name string, sectionID uint) {
	if ref := f.ref(name); ref != nil {
		id := sectionID
		*ref = &id
	}
}

// MissingSections lists unsaved sections in form order.
func (f *Form) MissingSections() []string {
	var missing []string
	for _, name := range SectionNames {
		if !f.HasSection(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// SectionCount returns how many sections have been saved.
func (f *Form) SectionCount() int {
	return len(SectionNames) - len(f.MissingSections())
}

// Section holds the payload of one form section.
type Section struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	FormID    uint           `json:"form_id" gorm:"not null;uniqueIndex:idx_form_section"`
	Name      string         `json:"name" gorm:"size:50;not null;uniqueIndex:idx_form_section"`
	Data      datatypes.JSON `json:"data" gorm:"type:jsonb"`
	UpdatedBy *uint          `json:"updated_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Section) TableName() string {
	return "counseling_sections"
}
