package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/repository/base"
)

type ExamRepository struct {
	*base.Repository
}

func NewExamRepository(b *base.Repository) *ExamRepository {
	return &ExamRepository{Repository: b}
}

func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	query := `
		INSERT INTO exams (id, tenant_id, subject_id, title, description, duration, total_points, is_randomized, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := r.QueryRow(ctx, query,
		e.ID, e.TenantID, e.SubjectID, e.Title, e.Description, e.Duration, e.TotalPoints, e.IsRandomized, e.CreatedBy,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return base.ClassifyWrite(err, "create exam")
	}

	r.Logger().Info("Exam created",
		zap.String("exam_id", e.ID.String()),
		zap.String("tenant_id", e.TenantID.String()))
	return nil
}

func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	query := `
		SELECT id, tenant_id, subject_id, title, description, duration, total_points, is_randomized,
			created_by, created_at, updated_at
		FROM exams
		WHERE id = $1
	`
	var e model.Exam
	err := r.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.TenantID, &e.SubjectID, &e.Title, &e.Description, &e.Duration, &e.TotalPoints,
		&e.IsRandomized, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get exam by id: %w", err)
	}
	return &e, nil
}

func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	query := `
		UPDATE exams
		SET title = $2, description = $3, duration = $4, total_points = $5, is_randomized = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.QueryRow(ctx, query, e.ID, e.Title, e.Description, e.Duration, e.TotalPoints, e.IsRandomized).
		Scan(&e.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("update exam: %w", apperr.NotFound("exam"))
		}
		return base.ClassifyWrite(err, "update exam")
	}
	return nil
}

func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.ExecAffected(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return false, base.ClassifyDelete(err, "delete exam")
	}
	return n > 0, nil
}

// LockForUpdate serializes link writers of one exam
func (r *ExamRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (bool, error) {
	var locked uuid.UUID
	err := r.QueryRow(ctx, `SELECT id FROM exams WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if base.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("lock exam: %w", err)
	}
	return true, nil
}

type ExamQuestionRepository struct {
	*base.Repository
}

func NewExamQuestionRepository(b *base.Repository) *ExamQuestionRepository {
	return &ExamQuestionRepository{Repository: b}
}

// Insert links one question; a repeated (exam, question) pair is a conflict
func (r *ExamQuestionRepository) Insert(ctx context.Context, link *model.ExamQuestion) error {
	query := `
		INSERT INTO exam_questions (exam_id, question_id, tenant_id, points, sort_order)
		VALUES ($1, $2, $3, $4, COALESCE(NULLIF($5, 0),
			(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM exam_questions WHERE exam_id = $1)))
		RETURNING sort_order, created_at
	`
	err := r.QueryRow(ctx, query, link.ExamID, link.QuestionID, link.TenantID, link.Points, link.Order).
		Scan(&link.Order, &link.CreatedAt)
	if err != nil {
		return base.ClassifyWrite(err, "link exam question")
	}
	return nil
}

func (r *ExamQuestionRepository) Delete(ctx context.Context, examID, questionID uuid.UUID) (bool, error) {
	n, err := r.ExecAffected(ctx,
		`DELETE FROM exam_questions WHERE exam_id = $1 AND question_id = $2`, examID, questionID)
	if err != nil {
		return false, fmt.Errorf("unlink exam question: %w", err)
	}
	return n > 0, nil
}

func (r *ExamQuestionRepository) DeleteByExam(ctx context.Context, examID uuid.UUID) (int64, error) {
	n, err := r.ExecAffected(ctx, `DELETE FROM exam_questions WHERE exam_id = $1`, examID)
	if err != nil {
		return 0, fmt.Errorf("unlink exam questions: %w", err)
	}
	return n, nil
}

func (r *ExamQuestionRepository) ListDetails(ctx context.Context, examID uuid.UUID) ([]model.ExamQuestionDetail, error) {
	query := `
		SELECT q.id, q.tenant_id, q.subject_id, q.topic, q.difficulty, q.type, q.content, q.answers,
			q.image_url, q.tags, q.is_public, q.created_by, q.created_at, q.updated_at,
			eq.points, eq.sort_order
		FROM exam_questions eq
		JOIN questions q ON q.id = eq.question_id
		WHERE eq.exam_id = $1
		ORDER BY eq.sort_order, q.id
	`
	rows, err := r.Query(ctx, query, examID)
	if err != nil {
		return nil, fmt.Errorf("list exam questions: %w", err)
	}
	defer rows.Close()

	details := []model.ExamQuestionDetail{}
	for rows.Next() {
		var d model.ExamQuestionDetail
		q := &d.Question
		err := rows.Scan(
			&q.ID, &q.TenantID, &q.SubjectID, &q.Topic, &q.Difficulty, &q.Type, &q.Content, &q.Answers,
			&q.ImageURL, &q.Tags, &q.IsPublic, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
			&d.Points, &d.Order,
		)
		if err != nil {
			return nil, fmt.Errorf("scan exam question: %w", err)
		}
		details = append(details, d)
	}
	return details, rows.Err()
}
