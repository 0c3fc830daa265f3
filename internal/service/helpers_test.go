package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/qh20812/Edu-Core-Server/internal/model"
	"github.com/qh20812/Edu-Core-Server/internal/notify"
	"github.com/qh20812/Edu-Core-Server/internal/repository/memory"
	"github.com/qh20812/Edu-Core-Server/internal/service"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Dispatch(_ context.Context, ev notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) ofType(t notify.EventType) []notify.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// school is a registered tenant with an admin, a teacher, a student, a
// subject and a class holding the teacher and the student.
type school struct {
	db   *memory.DB
	now  time.Time
	sent *recorder

	tenants     *service.TenantService
	users       *service.UserService
	subjects    *service.SubjectService
	classes     *service.ClassService
	questions   *service.QuestionService
	exams       *service.ExamService
	assignments *service.AssignmentService
	submissions *service.SubmissionService

	tenant  *model.Tenant
	admin   model.Actor
	teacher model.Actor
	student model.Actor
	subject *model.Subject
	class   *model.Class
}

func newServices(t *testing.T) *school {
	t.Helper()
	s := &school{
		db:   memory.NewDB(),
		now:  time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		sent: &recorder{},
	}
	d := service.Deps{
		Store:    s.db.Store(),
		Notifier: s.sent,
		Now:      func() time.Time { return s.now },
	}
	s.tenants = service.NewTenantService(d)
	s.users = service.NewUserService(d, s.tenants)
	s.subjects = service.NewSubjectService(d)
	s.classes = service.NewClassService(d)
	s.questions = service.NewQuestionService(d)
	s.exams = service.NewExamService(d)
	s.assignments = service.NewAssignmentService(d, s.exams)
	s.submissions = service.NewSubmissionService(d)
	return s
}

func newSchool(t *testing.T) *school {
	t.Helper()
	s := newServices(t)
	ctx := context.Background()

	reg, err := s.tenants.RegisterWithAdmin(ctx, service.RegisterInput{
		SchoolName: "Lincoln High",
		AdminEmail: "admin@lincoln.edu",
		AdminName:  "Alice Admin",
		Password:   "correct horse",
	})
	require.NoError(t, err)
	s.tenant = reg.Tenant
	s.admin = reg.Admin.Actor()

	s.teacher = s.addUser(t, "teacher@lincoln.edu", model.RoleTeacher)
	s.student = s.addUser(t, "student@lincoln.edu", model.RoleStudent)

	s.subject, err = s.subjects.CreateSubject(ctx, s.admin, "Mathematics", "")
	require.NoError(t, err)
	s.class, err = s.classes.CreateWithTeacher(ctx, s.admin, service.ClassInput{Name: "10A", TeacherID: s.teacher.ID})
	require.NoError(t, err)
	_, err = s.classes.AddMembers(ctx, s.admin, s.class.ID, []service.MemberInput{{UserID: s.student.ID, Role: model.ClassRoleStudent}})
	require.NoError(t, err)
	return s
}

func (s *school) addUser(t *testing.T, email string, role model.Role) model.Actor {
	t.Helper()
	u, err := s.users.CreateUser(context.Background(), s.admin, service.UserInput{
		Email:    email,
		Password: "password123",
		FullName: email,
		Role:     role,
	})
	require.NoError(t, err)
	return u.Actor()
}

func (s *school) question(t *testing.T, by model.Actor, d model.Difficulty) *model.Question {
	t.Helper()
	q, err := s.questions.CreateQuestion(context.Background(), by, service.QuestionInput{
		SubjectID:  s.subject.ID,
		Topic:      "algebra",
		Difficulty: d,
		Type:       model.QuestionMultipleChoice,
		Content:    "2 + 2 = ?",
		Answers:    []model.Answer{{Text: "4", IsCorrect: true}, {Text: "5"}},
	})
	require.NoError(t, err)
	return q
}

func (s *school) header(title string) service.ExamHeader {
	return service.ExamHeader{SubjectID: s.subject.ID, Title: title, Duration: 45, TotalPoints: 100}
}

func (s *school) exam(t *testing.T, qs ...*model.Question) *model.ExamDetails {
	t.Helper()
	refs := make([]model.QuestionRef, 0, len(qs))
	for _, q := range qs {
		refs = append(refs, model.QuestionRef{QuestionID: q.ID, Points: 10})
	}
	e, err := s.exams.CreateExamAtomic(context.Background(), s.teacher, service.CreateExamInput{
		ExamHeader: s.header("Unit test"),
		Questions:  refs,
	})
	require.NoError(t, err)
	return e
}

func (s *school) assignment(t *testing.T, examID *uuid.UUID) *model.Assignment {
	t.Helper()
	a, err := s.assignments.CreateAssignment(context.Background(), s.teacher, service.AssignmentInput{
		ClassID: s.class.ID,
		ExamID:  examID,
		Title:   "Homework 1",
		DueDate: s.now.Add(48 * time.Hour),
	})
	require.NoError(t, err)
	return a
}

// otherSchool registers a second tenant and returns its admin.
func (s *school) otherSchool(t *testing.T) model.Actor {
	t.Helper()
	reg, err := s.tenants.RegisterWithAdmin(context.Background(), service.RegisterInput{
		SchoolName: "Rival High",
		AdminEmail: "admin@rival.edu",
		AdminName:  "Rita",
		Password:   "password123",
	})
	require.NoError(t, err)
	return reg.Admin.Actor()
}
