package memory

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
	"github.com/qh20812/Edu-Core-Server/internal/model"
)

func conflict(what, constraint string) error {
	return fmt.Errorf("%s: %w", what, apperr.Conflict(constraint))
}

func missingRef(what, constraint string) error {
	return fmt.Errorf("%s: %w", what, apperr.Validationf("referenced row does not exist (%s)", constraint))
}

func stillReferenced(what, constraint string) error {
	return fmt.Errorf("%s: %w", what, apperr.Conflict("still referenced by "+constraint))
}

type tenantRepo struct{ db *DB }

func (r tenantRepo) Create(ctx context.Context, t *model.Tenant) error {
	return r.db.write(ctx, func(tb *tables) error {
		ensureID(&t.ID)
		if _, ok := tb.tenants[t.ID]; ok {
			return conflict("create tenant", "tenants_pkey")
		}
		if t.SchoolCode != nil {
			for _, o := range tb.tenants {
				if o.SchoolCode != nil && *o.SchoolCode == *t.SchoolCode {
					return conflict("create tenant", "tenants_school_code_key")
				}
			}
		}
		t.CreatedAt = r.db.now()
		t.UpdatedAt = t.CreatedAt
		tb.tenants[t.ID] = ptr(t)
		return nil
	})
}

func (r tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (t *model.Tenant, _ error) {
	r.db.read(ctx, func(tb *tables) { t = ptr(tb.tenants[id]) })
	return t, nil
}

// LockForUpdate only checks existence: transactions are already serialized.
func (r tenantRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (found bool, _ error) {
	r.db.read(ctx, func(tb *tables) { _, found = tb.tenants[id] })
	return found, nil
}

func (r tenantRepo) SetAdmin(ctx context.Context, tenantID, adminID uuid.UUID) error {
	return r.db.write(ctx, func(tb *tables) error {
		t, ok := tb.tenants[tenantID]
		if !ok {
			return fmt.Errorf("set tenant admin: %w", apperr.NotFound("tenant"))
		}
		if _, ok := tb.users[adminID]; !ok {
			return missingRef("set tenant admin", "tenants_admin_fk")
		}
		cp := *t
		cp.AdminID = &adminID
		cp.UpdatedAt = r.db.now()
		tb.tenants[tenantID] = &cp
		return nil
	})
}

type userRepo struct{ db *DB }

func (r userRepo) Create(ctx context.Context, u *model.User) error {
	return r.db.write(ctx, func(tb *tables) error {
		ensureID(&u.ID)
		for _, o := range tb.users {
			if o.Email == u.Email {
				return conflict("create user", "users_email_key")
			}
		}
		if u.TenantID != nil {
			if _, ok := tb.tenants[*u.TenantID]; !ok {
				return missingRef("create user", "users_tenant_id_fkey")
			}
		}
		u.CreatedAt = r.db.now()
		u.UpdatedAt = u.CreatedAt
		tb.users[u.ID] = ptr(u)
		return nil
	})
}

func (r userRepo) GetByID(ctx context.Context, id uuid.UUID) (u *model.User, _ error) {
	r.db.read(ctx, func(tb *tables) { u = ptr(tb.users[id]) })
	return u, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (u *model.User, _ error) {
	r.db.read(ctx, func(tb *tables) {
		for _, o := range tb.users {
			if o.Email == email {
				u = ptr(o)
				return
			}
		}
	})
	return u, nil
}

func (r userRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) (users []*model.User, _ error) {
	r.db.read(ctx, func(tb *tables) {
		for _, id := range ids {
			if u, ok := tb.users[id]; ok {
				users = append(users, ptr(u))
			}
		}
	})
	return users, nil
}

func (r userRepo) CountByRole(ctx context.Context, tenantID uuid.UUID, role model.Role, status model.UserStatus) (n int, _ error) {
	r.db.read(ctx, func(tb *tables) {
		for _, u := range tb.users {
			if u.TenantID != nil && *u.TenantID == tenantID && u.Role == role && u.Status == status {
				n++
			}
		}
	})
	return n, nil
}

type subjectRepo struct{ db *DB }

func (r subjectRepo) Create(ctx context.Context, s *model.Subject) error {
	return r.db.write(ctx, func(tb *tables) error {
		ensureID(&s.ID)
		if _, ok := tb.tenants[s.TenantID]; !ok {
			return missingRef("create subject", "subjects_tenant_id_fkey")
		}
		s.CreatedAt = r.db.now()
		s.UpdatedAt = s.CreatedAt
		tb.subjects[s.ID] = ptr(s)
		return nil
	})
}

func (r subjectRepo) GetByID(ctx context.Context, id uuid.UUID) (s *model.Subject, _ error) {
	r.db.read(ctx, func(tb *tables) { s = ptr(tb.subjects[id]) })
	return s, nil
}

type classRepo struct{ db *DB }

func (r classRepo) Create(ctx context.Context, c *model.Class) error {
	return r.db.write(ctx, func(tb *tables) error {
		ensureID(&c.ID)
		if _, ok := tb.tenants[c.TenantID]; !ok {
			return missingRef("create class", "classes_tenant_id_fkey")
		}
		if _, ok := tb.users[c.CreatedBy]; !ok {
			return missingRef("create class", "classes_created_by_fkey")
		}
		c.CreatedAt = r.db.now()
		c.UpdatedAt = c.CreatedAt
		tb.classes[c.ID] = ptr(c)
		return nil
	})
}

func (r classRepo) GetByID(ctx context.Context, id uuid.UUID) (c *model.Class, _ error) {
	r.db.read(ctx, func(tb *tables) { c = ptr(tb.classes[id]) })
	return c, nil
}

type classUserRepo struct{ db *DB }

func (r classUserRepo) Add(ctx context.Context, m *model.ClassUser) error {
	return r.db.write(ctx, func(tb *tables) error {
		key := pair{m.ClassID, m.UserID}
		if _, ok := tb.classUsers[key]; ok {
			return conflict("add class member", "class_users_pkey")
		}
		if _, ok := tb.classes[m.ClassID]; !ok {
			return missingRef("add class member", "class_users_class_id_fkey")
		}
		if _, ok := tb.users[m.UserID]; !ok {
			return missingRef("add class member", "class_users_user_id_fkey")
		}
		m.CreatedAt = r.db.now()
		tb.classUsers[key] = ptr(m)
		return nil
	})
}

func (r classUserRepo) Remove(ctx context.Context, classID, userID uuid.UUID) (removed bool, _ error) {
	err := r.db.write(ctx, func(tb *tables) error {
		key := pair{classID, userID}
		_, removed = tb.classUsers[key]
		delete(tb.classUsers, key)
		return nil
	})
	return removed, err
}

func (r classUserRepo) Get(ctx context.Context, classID, userID uuid.UUID) (m *model.ClassUser, _ error) {
	r.db.read(ctx, func(tb *tables) { m = ptr(tb.classUsers[pair{classID, userID}]) })
	return m, nil
}

func (r classUserRepo) ListByRole(ctx context.Context, classID uuid.UUID, role model.ClassRole) (out []*model.ClassUser, _ error) {
	r.db.read(ctx, func(tb *tables) {
		for _, m := range tb.classUsers {
			if m.ClassID == classID && m.RoleInClass == role {
				out = append(out, ptr(m))
			}
		}
	})
	slices.SortFunc(out, func(a, b *model.ClassUser) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

type questionRepo struct{ db *DB }

func (r questionRepo) Create(ctx context.Context, q *model.Question) error {
	return r.db.write(ctx, func(tb *tables) error {
		ensureID(&q.ID)
		if _, ok := tb.subjects[q.SubjectID]; !ok {
			return missingRef("create question", "questions_subject_id_fkey")
		}
		q.CreatedAt = r.db.now()
		q.UpdatedAt = q.CreatedAt
		tb.questions[q.ID] = ptr(q)
		return nil
	})
}

func (r questionRepo) GetByID(ctx context.Context, id uuid.UUID) (q *model.Question, _ error) {
	r.db.read(ctx, func(tb *tables) { q = ptr(tb.questions[id]) })
	return q, nil
}

func (r questionRepo) Update(ctx context.Context, q *model.Question) error {
	return r.db.write(ctx, func(tb *tables) error {
		if _, ok := tb.questions[q.ID]; !ok {
			return fmt.Errorf("update question: %w", apperr.NotFound("question"))
		}
		if _, ok := tb.subjects[q.SubjectID]; !ok {
			return missingRef("update question", "questions_subject_id_fkey")
		}
		q.UpdatedAt = r.db.now()
		tb.questions[q.ID] = ptr(q)
		return nil
	})
}

func (r questionRepo) Delete(ctx context.Context, id uuid.UUID) (deleted bool, _ error) {
	err := r.db.write(ctx, func(tb *tables) error {
		if _, ok := tb.questions[id]; !ok {
			return nil
		}
		for key := range tb.examQuestions {
			if key[1] == id {
				return stillReferenced("delete question", "exam_questions_question_id_fkey")
			}
		}
		delete(tb.questions, id)
		deleted = true
		return nil
	})
	return deleted, err
}

func (r questionRepo) SampleIDs(ctx context.Context, tenantID, subjectID uuid.UUID, d model.Difficulty, n int) ([]uuid.UUID, error) {
	var bucket []uuid.UUID
	r.db.read(ctx, func(tb *tables) {
		for _, q := range tb.questions {
			if q.TenantID == tenantID && q.SubjectID == subjectID && q.Difficulty == d {
				bucket = append(bucket, q.ID)
			}
		}
	})
	rand.Shuffle(len(bucket), func(i, j int) { bucket[i], bucket[j] = bucket[j], bucket[i] })
	if len(bucket) > n {
		bucket = bucket[:n]
	}
	return bucket, nil
}

func (r questionRepo) CountUsable(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (n int, _ error) {
	seen := make(map[uuid.UUID]bool, len(ids))
	r.db.read(ctx, func(tb *tables) {
		for _, id := range ids {
			if q, ok := tb.questions[id]; ok && q.TenantID == tenantID && !seen[id] {
				seen[id] = true
				n++
			}
		}
	})
	return n, nil
}

func (r questionRepo) CountExamRefs(ctx context.Context, id uuid.UUID) (n int, _ error) {
	r.db.read(ctx, func(tb *tables) {
		for key := range tb.examQuestions {
			if key[1] == id {
				n++
			}
		}
	})
	return n, nil
}

type examRepo struct{ db *DB }

func (r examRepo) Create(ctx context.Context, e *model.Exam) error {
	return r.db.write(ctx, func(tb *tables) error {
		ensureID(&e.ID)
		if _, ok := tb.subjects[e.SubjectID]; !ok {
			return missingRef("create exam", "exams_subject_id_fkey")
		}
		e.CreatedAt = r.db.now()
		e.UpdatedAt = e.CreatedAt
		tb.exams[e.ID] = ptr(e)
		return nil
	})
}

func (r examRepo) GetByID(ctx context.Context, id uuid.UUID) (e *model.Exam, _ error) {
	r.db.read(ctx, func(tb *tables) { e = ptr(tb.exams[id]) })
	return e, nil
}

func (r examRepo) Update(ctx context.Context, e *model.Exam) error {
	return r.db.write(ctx, func(tb *tables) error {
		if _, ok := tb.exams[e.ID]; !ok {
			return fmt.Errorf("update exam: %w", apperr.NotFound("exam"))
		}
		e.UpdatedAt = r.db.now()
		tb.exams[e.ID] = ptr(e)
		return nil
	})
}

func (r examRepo) Delete(ctx context.Context, id uuid.UUID) (deleted bool, _ error) {
	err := r.db.write(ctx, func(tb *tables) error {
		if _, ok := tb.exams[id]; !ok {
			return nil
		}
		for key := range tb.examQuestions {
			if key[0] == id {
				return stillReferenced("delete exam", "exam_questions_exam_id_fkey")
			}
		}
		for aid, a := range tb.assignments {
			if a.ExamID != nil && *a.ExamID == id {
				cp := *a
				cp.ExamID = nil
				tb.assignments[aid] = &cp
			}
		}
		delete(tb.exams, id)
		deleted = true
		return nil
	})
	return deleted, err
}

// LockForUpdate only checks existence: transactions are already serialized.
func (r examRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (found bool, _ error) {
	r.db.read(ctx, func(tb *tables) { _, found = tb.exams[id] })
	return found, nil
}

type examQuestionRepo struct{ db *DB }

func (r examQuestionRepo) Insert(ctx context.Context, link *model.ExamQuestion) error {
	return r.db.write(ctx, func(tb *tables) error {
		key := pair{link.ExamID, link.QuestionID}
		if _, ok := tb.examQuestions[key]; ok {
			return conflict("link exam question", "exam_questions_pkey")
		}
		if _, ok := tb.exams[link.ExamID]; !ok {
			return missingRef("link exam question", "exam_questions_exam_id_fkey")
		}
		if _, ok := tb.questions[link.QuestionID]; !ok {
			return missingRef("link exam question", "exam_questions_question_id_fkey")
		}
		if link.Points <= 0 {
			return fmt.Errorf("link exam question: %w", apperr.Validation("points must be positive"))
		}
		if link.Order == 0 {
			for k, l := range tb.examQuestions {
				if k[0] == link.ExamID && l.Order > link.Order {
					link.Order = l.Order
				}
			}
			link.Order++
		}
		link.CreatedAt = r.db.now()
		tb.examQuestions[key] = ptr(link)
		return nil
	})
}

func (r examQuestionRepo) Delete(ctx context.Context, examID, questionID uuid.UUID) (removed bool, _ error) {
	err := r.db.write(ctx, func(tb *tables) error {
		key := pair{examID, questionID}
		_, removed = tb.examQuestions[key]
		delete(tb.examQuestions, key)
		return nil
	})
	return removed, err
}

func (r examQuestionRepo) DeleteByExam(ctx context.Context, examID uuid.UUID) (n int64, _ error) {
	err := r.db.write(ctx, func(tb *tables) error {
		for key := range tb.examQuestions {
			if key[0] == examID {
				delete(tb.examQuestions, key)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r examQuestionRepo) ListDetails(ctx context.Context, examID uuid.UUID) ([]model.ExamQuestionDetail, error) {
	out := []model.ExamQuestionDetail{}
	r.db.read(ctx, func(tb *tables) {
		for key, l := range tb.examQuestions {
			if key[0] != examID {
				continue
			}
			if q, ok := tb.questions[key[1]]; ok {
				out = append(out, model.ExamQuestionDetail{Question: *q, Points: l.Points, Order: l.Order})
			}
		}
	})
	slices.SortFunc(out, func(a, b model.ExamQuestionDetail) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	return out, nil
}

type assignmentRepo struct{ db *DB }

func (r assignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	return r.db.write(ctx, func(tb *tables) error {
		ensureID(&a.ID)
		if _, ok := tb.classes[a.ClassID]; !ok {
			return missingRef("create assignment", "assignments_class_id_fkey")
		}
		if a.ExamID != nil {
			if _, ok := tb.exams[*a.ExamID]; !ok {
				return missingRef("create assignment", "assignments_exam_id_fkey")
			}
		}
		a.CreatedAt = r.db.now()
		a.UpdatedAt = a.CreatedAt
		tb.assignments[a.ID] = ptr(a)
		return nil
	})
}

func (r assignmentRepo) GetByID(ctx context.Context, id uuid.UUID) (a *model.Assignment, _ error) {
	r.db.read(ctx, func(tb *tables) { a = ptr(tb.assignments[id]) })
	return a, nil
}

func (r assignmentRepo) Update(ctx context.Context, a *model.Assignment) error {
	return r.db.write(ctx, func(tb *tables) error {
		if _, ok := tb.assignments[a.ID]; !ok {
			return fmt.Errorf("update assignment: %w", apperr.NotFound("assignment"))
		}
		if a.ExamID != nil {
			if _, ok := tb.exams[*a.ExamID]; !ok {
				return missingRef("update assignment", "assignments_exam_id_fkey")
			}
		}
		a.UpdatedAt = r.db.now()
		tb.assignments[a.ID] = ptr(a)
		return nil
	})
}

func (r assignmentRepo) Delete(ctx context.Context, id uuid.UUID) (deleted bool, _ error) {
	err := r.db.write(ctx, func(tb *tables) error {
		if _, ok := tb.assignments[id]; !ok {
			return nil
		}
		for _, s := range tb.submissions {
			if s.AssignmentID == id {
				return stillReferenced("delete assignment", "submissions_assignment_id_fkey")
			}
		}
		delete(tb.assignments, id)
		deleted = true
		return nil
	})
	return deleted, err
}

type submissionRepo struct{ db *DB }

func (r submissionRepo) Upsert(ctx context.Context, s *model.Submission) error {
	return r.db.write(ctx, func(tb *tables) error {
		if _, ok := tb.assignments[s.AssignmentID]; !ok {
			return missingRef("upsert submission", "submissions_assignment_id_fkey")
		}
		for id, cur := range tb.submissions {
			if cur.AssignmentID != s.AssignmentID || cur.StudentID != s.StudentID {
				continue
			}
			if cur.IsGraded() {
				return fmt.Errorf("upsert submission: %w", apperr.Conflict("submission already graded"))
			}
			cp := *cur
			if s.Answers != nil {
				cp.Answers = s.Answers
			}
			if s.FileURL != nil {
				cp.FileURL = ptr(s.FileURL)
			}
			cp.UpdatedAt = r.db.now()
			tb.submissions[id] = &cp
			*s = cp
			return nil
		}
		ensureID(&s.ID)
		if s.Answers == nil {
			s.Answers = []model.SubmissionAnswer{}
		}
		s.UpdatedAt = r.db.now()
		tb.submissions[s.ID] = ptr(s)
		return nil
	})
}

func (r submissionRepo) Grade(ctx context.Context, id uuid.UUID, score float64, feedback *string, gradedBy uuid.UUID, at time.Time) (out *model.Submission, _ error) {
	err := r.db.write(ctx, func(tb *tables) error {
		cur, ok := tb.submissions[id]
		if !ok {
			return nil
		}
		cp := *cur
		cp.Score = &score
		cp.Feedback = ptr(feedback)
		cp.GradedBy = &gradedBy
		cp.GradedAt = &at
		cp.UpdatedAt = r.db.now()
		tb.submissions[id] = &cp
		out = ptr(&cp)
		return nil
	})
	return out, err
}

func (r submissionRepo) GetByID(ctx context.Context, id uuid.UUID) (s *model.Submission, _ error) {
	r.db.read(ctx, func(tb *tables) { s = ptr(tb.submissions[id]) })
	return s, nil
}

func (r submissionRepo) GetByAssignmentStudent(ctx context.Context, assignmentID, studentID uuid.UUID) (s *model.Submission, _ error) {
	r.db.read(ctx, func(tb *tables) {
		for _, cur := range tb.submissions {
			if cur.AssignmentID == assignmentID && cur.StudentID == studentID {
				s = ptr(cur)
				return
			}
		}
	})
	return s, nil
}

func (r submissionRepo) DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) (n int64, _ error) {
	err := r.db.write(ctx, func(tb *tables) error {
		for id, s := range tb.submissions {
			if s.AssignmentID == assignmentID {
				delete(tb.submissions, id)
				n++
			}
		}
		return nil
	})
	return n, err
}
