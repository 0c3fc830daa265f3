package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/query"
)

// Getters return (nil, nil) when the row does not exist. Writes report
// constraint violations as apperr.ErrConflict or apperr.ErrValidation.

type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TenantRepository interface {
	Create(ctx context.Context, t *model.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	SetAdmin(ctx context.Context, tenantID, adminID uuid.UUID) error
	// LockForUpdate holds the tenant row until the surrounding transaction
	// ends. It reports false when the tenant does not exist.
	LockForUpdate(ctx context.Context, id uuid.UUID) (bool, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.User, error)
	CountByRole(ctx context.Context, tenantID uuid.UUID, role model.Role, status model.UserStatus) (int, error)
}

type SubjectRepository interface {
	Create(ctx context.Context, s *model.Subject) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Subject, error)
}

type ClassRepository interface {
	Create(ctx context.Context, c *model.Class) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Class, error)
}

type ClassUserRepository interface {
	Add(ctx context.Context, m *model.ClassUser) error
	Remove(ctx context.Context, classID, userID uuid.UUID) (bool, error)
	Get(ctx context.Context, classID, userID uuid.UUID) (*model.ClassUser, error)
	ListByRole(ctx context.Context, classID uuid.UUID, role model.ClassRole) ([]*model.ClassUser, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, q *model.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// SampleIDs draws up to n random question ids without replacement.
	SampleIDs(ctx context.Context, tenantID, subjectID uuid.UUID, d model.Difficulty, n int) ([]uuid.UUID, error)
	// CountUsable counts distinct ids that exist in the tenant.
	CountUsable(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (int, error)
	CountExamRefs(ctx context.Context, id uuid.UUID) (int, error)
}

type ExamRepository interface {
	Create(ctx context.Context, e *model.Exam) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	Update(ctx context.Context, e *model.Exam) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	// LockForUpdate holds the exam row until the surrounding transaction ends.
	LockForUpdate(ctx context.Context, id uuid.UUID) (bool, error)
}

type ExamQuestionRepository interface {
	// Insert appends the link after the exam's highest order when
	// link.Order is 0, and writes the assigned order back.
	Insert(ctx context.Context, link *model.ExamQuestion) error
	Delete(ctx context.Context, examID, questionID uuid.UUID) (bool, error)
	DeleteByExam(ctx context.Context, examID uuid.UUID) (int64, error)
	ListDetails(ctx context.Context, examID uuid.UUID) ([]model.ExamQuestionDetail, error)
}

type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error)
	Update(ctx context.Context, a *model.Assignment) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type SubmissionRepository interface {
	// Upsert inserts the submission or overwrites the supplied content of an
	// ungraded one. SubmittedAt is kept from the first insert. A graded row
	// is left untouched and reported as apperr.ErrConflict.
	Upsert(ctx context.Context, s *model.Submission) error
	Grade(ctx context.Context, id uuid.UUID, score float64, feedback *string, gradedBy uuid.UUID, at time.Time) (*model.Submission, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error)
	GetByAssignmentStudent(ctx context.Context, assignmentID, studentID uuid.UUID) (*model.Submission, error)
	DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) (int64, error)
}

// Store bundles one storage backend.
type Store struct {
	Tx            Transactor
	Tenants       TenantRepository
	Users         UserRepository
	Subjects      SubjectRepository
	Classes       ClassRepository
	ClassUsers    ClassUserRepository
	Questions     QuestionRepository
	Exams         ExamRepository
	ExamQuestions ExamQuestionRepository
	Assignments   AssignmentRepository
	Submissions   SubmissionRepository
	Lists         query.Backend
}
