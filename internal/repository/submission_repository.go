package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/repository/base"
)

type SubmissionRepository struct {
	*base.Repository
}

func NewSubmissionRepository(b *base.Repository) *SubmissionRepository {
	return &SubmissionRepository{Repository: b}
}

const submissionColumns = `id, tenant_id, assignment_id, student_id, answers, file_url, score, feedback,
	submitted_at, graded_at, graded_by, updated_at`

func scanSubmission(row rowScanner) (*model.Submission, error) {
	var s model.Submission
	err := row.Scan(
		&s.ID, &s.TenantID, &s.AssignmentID, &s.StudentID, &s.Answers, &s.FileURL, &s.Score, &s.Feedback,
		&s.SubmittedAt, &s.GradedAt, &s.GradedBy, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert stores a submission keyed by (assignment, student). On resubmission
// only supplied content is replaced and submitted_at is kept; graded rows are
// never touched.
func (r *SubmissionRepository) Upsert(ctx context.Context, s *model.Submission) error {
	query := `
		INSERT INTO submissions AS cur (id, tenant_id, assignment_id, student_id, answers, file_url, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (assignment_id, student_id) DO UPDATE
		SET answers = CASE WHEN $8 THEN EXCLUDED.answers ELSE cur.answers END,
			file_url = COALESCE(EXCLUDED.file_url, cur.file_url),
			updated_at = now()
		WHERE cur.graded_at IS NULL
		RETURNING ` + submissionColumns

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	replaceAnswers := s.Answers != nil
	stored, err := scanSubmission(r.QueryRow(ctx, query,
		s.ID, s.TenantID, s.AssignmentID, s.StudentID, nonNil(s.Answers), s.FileURL, s.SubmittedAt, replaceAnswers,
	))
	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("upsert submission: %w", apperr.Conflict("submission already graded"))
		}
		return base.ClassifyWrite(err, "upsert submission")
	}
	*s = *stored

	r.Logger().Info("Submission stored",
		zap.String("submission_id", s.ID.String()),
		zap.String("assignment_id", s.AssignmentID.String()),
		zap.String("student_id", s.StudentID.String()))
	return nil
}

// Grade sets score, feedback, grader and graded_at in one statement
func (r *SubmissionRepository) Grade(ctx context.Context, id uuid.UUID, score float64, feedback *string, gradedBy uuid.UUID, at time.Time) (*model.Submission, error) {
	query := `
		UPDATE submissions
		SET score = $2, feedback = $3, graded_by = $4, graded_at = $5, updated_at = now()
		WHERE id = $1
		RETURNING ` + submissionColumns

	s, err := scanSubmission(r.QueryRow(ctx, query, id, score, feedback, gradedBy, at))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, base.ClassifyWrite(err, "grade submission")
	}
	return s, nil
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	s, err := scanSubmission(r.QueryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission by id: %w", err)
	}
	return s, nil
}

func (r *SubmissionRepository) GetByAssignmentStudent(ctx context.Context, assignmentID, studentID uuid.UUID) (*model.Submission, error) {
	s, err := scanSubmission(r.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE assignment_id = $1 AND student_id = $2`,
		assignmentID, studentID,
	))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return s, nil
}

func (r *SubmissionRepository) DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) (int64, error) {
	n, err := r.ExecAffected(ctx, `DELETE FROM submissions WHERE assignment_id = $1`, assignmentID)
	if err != nil {
		return 0, fmt.Errorf("delete submissions: %w", err)
	}
	return n, nil
}
