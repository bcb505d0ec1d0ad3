package documents

import (
	"time"

	"github.com/google/uuid"
)

const pdfContentType = "application/pdf"

// CoverLetter is a generated letter forwarding a case to welfare review.
// Content holds the PDF when no object store is configured.
type CoverLetter struct {
	ID          uuid.UUID `json:"id" db:"id" gorm:"type:uuid;primaryKey"`
	CaseID      uint      `json:"case_id" db:"case_id" gorm:"not null;index"`
	CaseNumber  string    `json:"case_number" db:"case_number" gorm:"size:64;not null"`
	FileName    string    `json:"file_name" db:"file_name" gorm:"size:255;not null"`
	FileSize    int64     `json:"file_size" db:"file_size" gorm:"not null"`
	S3Bucket    *string   `json:"s3_bucket,omitempty" db:"s3_bucket" gorm:"size:255"`
	S3Key       *string   `json:"s3_key,omitempty" db:"s3_key" gorm:"size:512"`
	Content     []byte    `json:"-" db:"content" gorm:"type:bytea"`
	Recipient   string    `json:"recipient" db:"recipient" gorm:"size:255"`
	GeneratedBy uint      `json:"generated_by" db:"generated_by" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at" db:"created_at" gorm:"not null"`
}

func (CoverLetter) TableName() string {
	return "cover_letters"
}

// Stored reports whether the letter body lives in the object store.
func (l *CoverLetter) Stored() bool {
	return l.S3Bucket != nil && l.S3Key != nil
}

// GenerateRequest is the body of POST /cases/:id/cover-letter
type GenerateRequest struct {
	Recipient string `json:"recipient"`
	Notes     string `json:"notes"`
}
