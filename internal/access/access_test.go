package access

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/qh20812/Edu-Core-Server/internal/model"
)

func TestCanView(t *testing.T) {
	tenant := uuid.New()
	otherTenant := uuid.New()
	owner := model.Actor{ID: uuid.New(), Role: model.RoleTeacher, TenantID: tenant}
	teacher := model.Actor{ID: uuid.New(), Role: model.RoleTeacher, TenantID: tenant}
	student := model.Actor{ID: uuid.New(), Role: model.RoleStudent, TenantID: tenant}
	schoolAdmin := model.Actor{ID: uuid.New(), Role: model.RoleSchoolAdmin, TenantID: tenant}
	foreignAdmin := model.Actor{ID: uuid.New(), Role: model.RoleSchoolAdmin, TenantID: otherTenant}
	sysAdmin := model.Actor{ID: uuid.New(), Role: model.RoleSysAdmin}

	privateQ := Resource{Kind: KindQuestion, TenantID: tenant, CreatedBy: owner.ID}
	publicQ := Resource{Kind: KindQuestion, TenantID: tenant, CreatedBy: owner.ID, IsPublic: true}
	exam := Resource{Kind: KindExam, TenantID: tenant, CreatedBy: owner.ID}
	assignment := Resource{Kind: KindAssignment, TenantID: tenant, CreatedBy: owner.ID}
	foreignPublicQ := Resource{Kind: KindQuestion, TenantID: otherTenant, CreatedBy: uuid.New(), IsPublic: true}
	foreignExam := Resource{Kind: KindExam, TenantID: otherTenant, CreatedBy: uuid.New()}

	tests := []struct {
		name  string
		actor model.Actor
		res   Resource
		want  bool
	}{
		{"sys admin sees anything", sysAdmin, foreignExam, true},
		{"school admin sees own tenant", schoolAdmin, privateQ, true},
		{"school admin blocked across tenants", foreignAdmin, privateQ, false},
		{"creator sees private question", owner, privateQ, true},
		{"other teacher blocked from private question", teacher, privateQ, false},
		{"other teacher sees public question", teacher, publicQ, true},
		{"student sees public question", student, publicQ, true},
		{"student blocked from private question", student, privateQ, false},
		{"teacher sees any tenant exam", teacher, exam, true},
		{"student blocked from exam", student, exam, false},
		{"teacher blocked from foreign exam", teacher, foreignExam, false},
		{"public does not cross tenants", teacher, foreignPublicQ, false},
		{"teacher rule is exam only", teacher, assignment, false},
		{"creator sees own assignment", owner, assignment, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanView(tt.actor, tt.res))
		})
	}
}

func TestCanMutate(t *testing.T) {
	tenant := uuid.New()
	owner := model.Actor{ID: uuid.New(), Role: model.RoleTeacher, TenantID: tenant}
	res := Resource{Kind: KindExam, TenantID: tenant, CreatedBy: owner.ID}

	assert.True(t, CanMutate(owner, res))
	assert.True(t, CanMutate(model.Actor{ID: uuid.New(), Role: model.RoleSchoolAdmin, TenantID: tenant}, res))
	assert.True(t, CanMutate(model.Actor{ID: uuid.New(), Role: model.RoleSysAdmin}, res))
	// viewing an exam does not grant editing it
	assert.False(t, CanMutate(model.Actor{ID: uuid.New(), Role: model.RoleTeacher, TenantID: tenant}, res))
	assert.False(t, CanMutate(model.Actor{ID: uuid.New(), Role: model.RoleSchoolAdmin, TenantID: uuid.New()}, res))

	public := Resource{Kind: KindQuestion, TenantID: tenant, CreatedBy: owner.ID, IsPublic: true}
	assert.False(t, CanMutate(model.Actor{ID: uuid.New(), Role: model.RoleStudent, TenantID: tenant}, public))

	// the owner moving to another tenant loses access
	moved := owner
	moved.TenantID = uuid.New()
	assert.False(t, CanMutate(moved, res))
}

func TestCanGrade(t *testing.T) {
	tenant := uuid.New()
	creator := model.Actor{ID: uuid.New(), Role: model.RoleTeacher, TenantID: tenant}
	res := Resource{Kind: KindAssignment, TenantID: tenant, CreatedBy: creator.ID}
	colleague := model.Actor{ID: uuid.New(), Role: model.RoleTeacher, TenantID: tenant}

	assert.True(t, CanGrade(creator, res, false))
	assert.True(t, CanGrade(colleague, res, true))
	assert.False(t, CanGrade(colleague, res, false))
	assert.False(t, CanGrade(model.Actor{ID: uuid.New(), Role: model.RoleTeacher, TenantID: uuid.New()}, res, true))
}

func TestResourceConstructors(t *testing.T) {
	student := uuid.New()
	sub := Submission(&model.Submission{TenantID: uuid.New(), StudentID: student})
	assert.Equal(t, KindSubmission, sub.Kind)
	assert.Equal(t, student, sub.CreatedBy)

	q := Question(&model.Question{IsPublic: true})
	assert.True(t, q.IsPublic)
	assert.Equal(t, KindQuestion, q.Kind)
}
