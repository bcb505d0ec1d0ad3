package documents

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/config"
	"baaseteen/case-portal/case-portal-backend/internal/permissions"
	"baaseteen/case-portal/case-portal-backend/pkg/pdf"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

const defaultRecipient = "The Welfare Review Committee"

// Service generates cover letters and hands the case on to welfare review.
type Service struct {
	repo      Repository
	engine    *cases.Engine
	oracle    permissions.Oracle
	generator pdf.Generator
	storage   *StorageProvider
	cfg       config.DocumentsConfig
	logger    *zap.Logger
}

func NewService(
	repo Repository,
	engine *cases.Engine,
	oracle permissions.Oracle,
	generator pdf.Generator,
	storage *StorageProvider,
	cfg config.DocumentsConfig,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		oracle:    oracle,
		generator: generator,
		storage:   storage,
		cfg:       cfg,
		logger:    logger,
	}
}

// GenerateCoverLetter renders and stores the letter of a case in
// cover_letter_generated, then moves the case to submitted_to_welfare.
func (s *Service) GenerateCoverLetter(ctx context.Context, caseID uint, req GenerateRequest, actor cases.Actor) (*CoverLetter, *cases.Case, error) {
	if err := permissions.Require(ctx, s.oracle, actor.Role, permissions.ResourceCoverLetters, permissions.ActionGenerate); err != nil {
		return nil, nil, err
	}
	c, err := s.engine.GetCase(ctx, caseID, actor)
	if err != nil {
		return nil, nil, err
	}
	if c.Status != workflows.StatusCoverLetterGenerated {
		return nil, nil, &workflows.TransitionError{
			Current:   c.Status,
			Attempted: workflows.StatusSubmittedToWelfare,
			Gate:      workflows.GateGraph,
			Role:      actor.Role,
		}
	}

	now := s.engine.Now()
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		recipient = defaultRecipient
	}
	body, err := s.generator.RenderLetter(ctx, s.letterFor(c, recipient, req.Notes, actor))
	if err != nil {
		return nil, nil, err
	}

	id := uuid.New()
	letter := &CoverLetter{
		ID:          id,
		CaseID:      c.ID,
		CaseNumber:  c.CaseNumber,
		FileName:    fmt.Sprintf("%s-cover-letter-%s.pdf", c.CaseNumber, id.String()[:8]),
		Recipient:   recipient,
		GeneratedBy: actor.ID,
		CreatedAt:   now,
	}
	if err := s.storage.Put(ctx, letter, body); err != nil {
		return nil, nil, fmt.Errorf("failed to store cover letter: %w", err)
	}
	if err := s.repo.CreateCoverLetter(ctx, letter); err != nil {
		return nil, nil, err
	}

	updated, err := s.engine.TransitionWithAction(ctx, caseID, workflows.StatusSubmittedToWelfare, actor,
		"Cover letter generated", cases.ActionCoverLetter)
	if err != nil {
		s.logger.Warn("Cover letter stored but case not submitted",
			zap.Uint("case_id", caseID),
			zap.String("letter_id", letter.ID.String()),
			zap.Error(err),
		)
		return letter, nil, err
	}

	s.logger.Info("Cover letter generated",
		zap.Uint("case_id", caseID),
		zap.String("letter_id", letter.ID.String()),
		zap.Int64("size", letter.FileSize),
		zap.Bool("s3", letter.Stored()),
	)
	return letter, updated, nil
}

func (s *Service) letterFor(c *cases.Case, recipient, notes string, actor cases.Actor) pdf.Letter {
	paragraphs := []string{
		fmt.Sprintf("We forward case %s concerning %s for your review under the %s assistance programme.",
			c.CaseNumber, c.ApplicantName, c.CaseType),
		"The applicant has been counseled and the counseling form has been completed and verified by the assigned personnel.",
	}
	if notes = strings.TrimSpace(notes); notes != "" {
		paragraphs = append(paragraphs, notes)
	}
	signatory := actor.Name
	if s.cfg.SignatoryRef != "" {
		signatory = fmt.Sprintf("%s (%s)", actor.Name, s.cfg.SignatoryRef)
	}
	return pdf.Letter{
		Letterhead: s.cfg.Letterhead,
		Reference:  c.CaseNumber,
		Date:       s.engine.Now(),
		Recipient:  []string{recipient},
		Subject:    fmt.Sprintf("Welfare assistance request for %s", c.ApplicantName),
		Paragraphs: paragraphs,
		Signatory:  signatory,
	}
}

// ListCoverLetters returns letter metadata for a case.
func (s *Service) ListCoverLetters(ctx context.Context, caseID uint, actor cases.Actor) ([]CoverLetter, error) {
	if _, err := s.engine.GetCase(ctx, caseID, actor); err != nil {
		return nil, err
	}
	return s.repo.ListCoverLetters(ctx, caseID)
}

// Download returns a letter and its PDF body.
func (s *Service) Download(ctx context.Context, id uuid.UUID, actor cases.Actor) (*CoverLetter, []byte, error) {
	if err := permissions.Require(ctx, s.oracle, actor.Role, permissions.ResourceCases, permissions.ActionRead); err != nil {
		return nil, nil, err
	}
	letter, err := s.repo.GetCoverLetter(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	body, err := s.storage.Get(ctx, letter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read cover letter: %w", err)
	}
	return letter, body, nil
}
