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

type QuestionRepository struct {
	*base.Repository
}

func NewQuestionRepository(b *base.Repository) *QuestionRepository {
	return &QuestionRepository{Repository: b}
}

const questionColumns = `id, tenant_id, subject_id, topic, difficulty, type, content, answers,
	image_url, tags, is_public, created_by, created_at, updated_at`

func scanQuestion(row rowScanner) (*model.Question, error) {
	var q model.Question
	err := row.Scan(
		&q.ID, &q.TenantID, &q.SubjectID, &q.Topic, &q.Difficulty, &q.Type, &q.Content, &q.Answers,
		&q.ImageURL, &q.Tags, &q.IsPublic, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	query := `
		INSERT INTO questions (id, tenant_id, subject_id, topic, difficulty, type, content, answers,
			image_url, tags, is_public, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	q.Answers, q.Tags = nonNil(q.Answers), nonNil(q.Tags)
	err := r.QueryRow(ctx, query,
		q.ID, q.TenantID, q.SubjectID, q.Topic, q.Difficulty, q.Type, q.Content, q.Answers,
		q.ImageURL, q.Tags, q.IsPublic, q.CreatedBy,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return base.ClassifyWrite(err, "create question")
	}

	r.Logger().Info("Question created",
		zap.String("question_id", q.ID.String()),
		zap.String("difficulty", string(q.Difficulty)))
	return nil
}

func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q, err := scanQuestion(r.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get question by id: %w", err)
	}
	return q, nil
}

func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	query := `
		UPDATE questions
		SET subject_id = $2, topic = $3, difficulty = $4, type = $5, content = $6, answers = $7,
			image_url = $8, tags = $9, is_public = $10, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	q.Answers, q.Tags = nonNil(q.Answers), nonNil(q.Tags)
	err := r.QueryRow(ctx, query,
		q.ID, q.SubjectID, q.Topic, q.Difficulty, q.Type, q.Content, q.Answers, q.ImageURL, q.Tags, q.IsPublic,
	).Scan(&q.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("update question: %w", apperr.NotFound("question"))
		}
		return base.ClassifyWrite(err, "update question")
	}
	return nil
}

// Delete removes a question. A question still linked into an exam is a conflict.
func (r *QuestionRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.ExecAffected(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return false, base.ClassifyDelete(err, "delete question")
	}
	return n > 0, nil
}

// SampleIDs draws up to n ids uniformly at random from one difficulty bucket
func (r *QuestionRepository) SampleIDs(ctx context.Context, tenantID, subjectID uuid.UUID, d model.Difficulty, n int) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM questions
		WHERE tenant_id = $1 AND subject_id = $2 AND difficulty = $3
		ORDER BY random()
		LIMIT $4
	`
	rows, err := r.Query(ctx, query, tenantID, subjectID, d, n)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0, n)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sampled question: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *QuestionRepository) CountUsable(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (int, error) {
	var n int
	err := r.QueryRow(ctx,
		`SELECT count(*) FROM questions WHERE tenant_id = $1 AND id = ANY($2)`, tenantID, ids,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count usable questions: %w", err)
	}
	return n, nil
}

func (r *QuestionRepository) CountExamRefs(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	if err := r.QueryRow(ctx, `SELECT count(*) FROM exam_questions WHERE question_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count exam references: %w", err)
	}
	return n, nil
}
