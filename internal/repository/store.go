package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/repository/base"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

// NewStore wires every Postgres repository over one pool.
func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *service.Store {
	b := base.NewRepository(pool, logger)
	return &service.Store{
		Tx:            b,
		Tenants:       NewTenantRepository(b),
		Users:         NewUserRepository(b),
		Subjects:      NewSubjectRepository(b),
		Classes:       NewClassRepository(b),
		ClassUsers:    NewClassUserRepository(b),
		Questions:     NewQuestionRepository(b),
		Exams:         NewExamRepository(b),
		ExamQuestions: NewExamQuestionRepository(b),
		Assignments:   NewAssignmentRepository(b),
		Submissions:   NewSubmissionRepository(b),
		Lists:         NewListBackend(b),
	}
}
