package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

type Repository interface {
	CreateCoverLetter(ctx context.Context, letter *CoverLetter) error
	GetCoverLetter(ctx context.Context, id uuid.UUID) (*CoverLetter, error)
	ListCoverLetters(ctx context.Context, caseID uint) ([]CoverLetter, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const coverLetterColumns = `id, case_id, case_number, file_name, file_size, s3_bucket, s3_key,
	content, recipient, generated_by, created_at`

func (r *postgresRepository) CreateCoverLetter(ctx context.Context, letter *CoverLetter) error {
	query := `
		INSERT INTO cover_letters (` + coverLetterColumns + `) VALUES (
			:id, :case_id, :case_number, :file_name, :file_size, :s3_bucket, :s3_key,
			:content, :recipient, :generated_by, :created_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, letter); err != nil {
		return fmt.Errorf("failed to insert cover letter: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetCoverLetter(ctx context.Context, id uuid.UUID) (*CoverLetter, error) {
	var letter CoverLetter
	err := r.db.GetContext(ctx, &letter, "SELECT "+coverLetterColumns+" FROM cover_letters WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("cover letter %s: %w", id, workflows.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cover letter: %w", err)
	}
	return &letter, nil
}

// ListCoverLetters returns letter metadata for a case, newest first. Content
// is not loaded.
func (r *postgresRepository) ListCoverLetters(ctx context.Context, caseID uint) ([]CoverLetter, error) {
	letters := []CoverLetter{}
	query := `
		SELECT id, case_id, case_number, file_name, file_size, s3_bucket, s3_key,
			recipient, generated_by, created_at
		FROM cover_letters
		WHERE case_id = $1
		ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &letters, query, caseID); err != nil {
		return nil, fmt.Errorf("failed to list cover letters: %w", err)
	}
	return letters, nil
}
