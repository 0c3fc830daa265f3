package memory

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/query"
)

type fixture struct {
	db      *DB
	tenant  *model.Tenant
	teacher *model.User
	subject *model.Subject
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := NewDB()
	s := db.Store()

	tenant := &model.Tenant{Name: "North High", Plan: model.PlanSmall, Status: model.TenantStatusApproved}
	require.NoError(t, s.Tenants.Create(ctx, tenant))
	teacher := &model.User{TenantID: &tenant.ID, Email: "t@north.edu", FullName: "Teacher", Role: model.RoleTeacher, Status: model.UserStatusActive}
	require.NoError(t, s.Users.Create(ctx, teacher))
	subject := &model.Subject{TenantID: tenant.ID, Name: "Biology"}
	require.NoError(t, s.Subjects.Create(ctx, subject))

	return &fixture{db: db, tenant: tenant, teacher: teacher, subject: subject}
}

func (f *fixture) question(t *testing.T, d model.Difficulty) *model.Question {
	t.Helper()
	q := &model.Question{
		TenantID:   f.tenant.ID,
		SubjectID:  f.subject.ID,
		Difficulty: d,
		Type:       model.QuestionEssay,
		Content:    "Explain " + string(d),
		CreatedBy:  f.teacher.ID,
	}
	require.NoError(t, f.db.Store().Questions.Create(context.Background(), q))
	return q
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	f := newFixture(t)
	s := f.db.Store()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Tx.WithinTx(ctx, func(txCtx context.Context) error {
		sub := &model.Subject{TenantID: f.tenant.ID, Name: "Chemistry"}
		require.NoError(t, s.Subjects.Create(txCtx, sub))

		staged, err := s.Subjects.GetByID(txCtx, sub.ID)
		require.NoError(t, err)
		assert.NotNil(t, staged)

		// readers outside the transaction do not see the staged row
		outside, err := s.Subjects.GetByID(ctx, sub.ID)
		require.NoError(t, err)
		assert.Nil(t, outside)
		assert.Equal(t, 1, f.db.Len("subjects"))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, f.db.Len("subjects"))
}

func TestWithinTxPublishesOnCommit(t *testing.T) {
	f := newFixture(t)
	s := f.db.Store()
	ctx := context.Background()

	sub := &model.Subject{TenantID: f.tenant.ID, Name: "Chemistry"}
	require.NoError(t, s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.Subjects.Create(ctx, sub)
	}))

	got, err := s.Subjects.GetByID(ctx, sub.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Chemistry", got.Name)
	assert.Equal(t, 2, f.db.Len("subjects"))
}

func TestWithinTxRollsBackOnPanic(t *testing.T) {
	f := newFixture(t)
	s := f.db.Store()

	assert.Panics(t, func() {
		_ = s.Tx.WithinTx(context.Background(), func(ctx context.Context) error {
			_ = s.Subjects.Create(ctx, &model.Subject{TenantID: f.tenant.ID, Name: "Chemistry"})
			panic("boom")
		})
	})
	assert.Equal(t, 1, f.db.Len("subjects"))
}

func TestWithinTxNestedJoinsOuter(t *testing.T) {
	f := newFixture(t)
	s := f.db.Store()
	ctx := context.Background()

	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
			return s.Subjects.Create(ctx, &model.Subject{TenantID: f.tenant.ID, Name: "Chemistry"})
		}); err != nil {
			return err
		}
		return errors.New("outer fails")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, f.db.Len("subjects"))
}

func TestConstraints(t *testing.T) {
	f := newFixture(t)
	s := f.db.Store()
	ctx := context.Background()

	dup := &model.User{TenantID: &f.tenant.ID, Email: f.teacher.Email, FullName: "Copy", Role: model.RoleTeacher}
	assert.ErrorIs(t, s.Users.Create(ctx, dup), apperr.ErrConflict)

	orphan := &model.Subject{TenantID: uuid.New(), Name: "Nowhere"}
	assert.ErrorIs(t, s.Subjects.Create(ctx, orphan), apperr.ErrValidation)

	q := f.question(t, model.DifficultyEasy)
	exam := &model.Exam{TenantID: f.tenant.ID, SubjectID: f.subject.ID, Title: "Quiz", Duration: 10, TotalPoints: 10, CreatedBy: f.teacher.ID}
	require.NoError(t, s.Exams.Create(ctx, exam))
	link := &model.ExamQuestion{ExamID: exam.ID, QuestionID: q.ID, TenantID: f.tenant.ID, Points: 5, Order: 1}
	require.NoError(t, s.ExamQuestions.Insert(ctx, link))
	assert.ErrorIs(t, s.ExamQuestions.Insert(ctx, &model.ExamQuestion{ExamID: exam.ID, QuestionID: q.ID, Points: 5}), apperr.ErrConflict)
	assert.ErrorIs(t, s.ExamQuestions.Insert(ctx, &model.ExamQuestion{ExamID: exam.ID, QuestionID: f.question(t, model.DifficultyHard).ID, Points: 0}), apperr.ErrValidation)

	_, err := s.Questions.Delete(ctx, q.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = s.Exams.Delete(ctx, exam.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestSubmissionUpsert(t *testing.T) {
	f := newFixture(t)
	s := f.db.Store()
	ctx := context.Background()

	class := &model.Class{TenantID: f.tenant.ID, Name: "10A", CreatedBy: f.teacher.ID}
	require.NoError(t, s.Classes.Create(ctx, class))
	a := &model.Assignment{TenantID: f.tenant.ID, ClassID: class.ID, Title: "HW", CreatedBy: f.teacher.ID}
	require.NoError(t, s.Assignments.Create(ctx, a))
	student := uuid.New()

	file := "https://files/a.pdf"
	first := &model.Submission{TenantID: f.tenant.ID, AssignmentID: a.ID, StudentID: student, FileURL: &file}
	require.NoError(t, s.Submissions.Upsert(ctx, first))

	second := &model.Submission{TenantID: f.tenant.ID, AssignmentID: a.ID, StudentID: student,
		Answers: []model.SubmissionAnswer{{Answer: "42"}}}
	require.NoError(t, s.Submissions.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.db.Len("submissions"))
	require.NotNil(t, second.FileURL)
	assert.Equal(t, file, *second.FileURL)
	assert.Len(t, second.Answers, 1)

	_, err := s.Submissions.Grade(ctx, first.ID, 8, nil, f.teacher.ID, f.db.now())
	require.NoError(t, err)
	assert.ErrorIs(t, s.Submissions.Upsert(ctx, &model.Submission{AssignmentID: a.ID, StudentID: student}), apperr.ErrConflict)
}

func TestSampleIDsWithoutReplacement(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.question(t, model.DifficultyMedium)
	}
	f.question(t, model.DifficultyHard)

	ids, err := f.db.Store().Questions.SampleIDs(context.Background(), f.tenant.ID, f.subject.ID, model.DifficultyMedium, 3)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		assert.False(t, seen[id])
		seen[id] = true
	}

	ids, err = f.db.Store().Questions.SampleIDs(context.Background(), f.tenant.ID, f.subject.ID, model.DifficultyHard, 3)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestListBackendThroughPipeline(t *testing.T) {
	f := newFixture(t)
	for _, d := range []model.Difficulty{model.DifficultyEasy, model.DifficultyEasy, model.DifficultyHard} {
		f.question(t, d)
	}
	p := query.NewPipeline(f.db.Store().Lists, zap.NewNop())

	res, err := p.Run(context.Background(), query.Spec{
		Entity: query.Questions,
		Scope:  query.TenantScope(f.tenant.ID),
		Params: url.Values{"difficulty": {"easy"}, "fields": {"content,created_by"}},
		Populate: []query.Populate{
			{Field: "created_by", Entity: query.Users, Fields: []string{"full_name"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Data, 2)
	assert.Equal(t, int64(2), res.Pagination.Total)

	row := res.Data[0]
	assert.Len(t, row, 3)
	creator, ok := row["created_by"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Teacher", creator["full_name"])
	assert.Equal(t, f.teacher.ID.String(), creator["id"])
}

func TestListBackendHidesPasswordHash(t *testing.T) {
	f := newFixture(t)
	p := query.NewPipeline(f.db.Store().Lists, zap.NewNop())

	res, err := p.Run(context.Background(), query.Spec{Entity: query.Users, Scope: query.TenantScope(f.tenant.ID)})
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.NotContains(t, res.Data[0], "password_hash")
	assert.Equal(t, "t@north.edu", res.Data[0]["email"])
}

func TestListBackendPageBeyondRange(t *testing.T) {
	f := newFixture(t)
	f.question(t, model.DifficultyEasy)
	p := query.NewPipeline(f.db.Store().Lists, zap.NewNop())

	res, err := p.Run(context.Background(), query.Spec{
		Entity: query.Questions,
		Scope:  query.TenantScope(f.tenant.ID),
		Params: url.Values{"page": {"92233720368547760"}, "limit": {"100"}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.Equal(t, int64(1), res.Pagination.Total)

	rows, err := f.db.Store().Lists.Find(context.Background(), query.Find{
		Entity: query.Questions,
		Sort:   []query.SortKey{{Field: "id"}},
		Fields: []string{"id"},
		Offset: -5,
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListBackendDefaultSearch(t *testing.T) {
	f := newFixture(t)
	p := query.NewPipeline(f.db.Store().Lists, zap.NewNop())
	ctx := context.Background()

	// the default set does not include email
	res, err := p.Run(ctx, query.Spec{
		Entity: query.Users,
		Scope:  query.TenantScope(f.tenant.ID),
		Params: url.Values{"search": {"north"}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Data)

	res, err = p.Run(ctx, query.Spec{
		Entity: query.Submissions,
		Scope:  query.TenantScope(f.tenant.ID),
		Params: url.Values{"search": {"anything"}},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.Equal(t, int64(0), res.Pagination.Total)
}
