package query

import "slices"

type ColumnType int

const (
	TypeText ColumnType = iota
	TypeUUID
	TypeInt
	TypeFloat
	TypeBool
	TypeTime
	TypeTextArray
	TypeJSON // returned, never filtered
)

// Entity describes a listable collection: its table, the columns callers may
// name, and the defaults applied when a request leaves them out.
type Entity struct {
	Name    string
	Table   string
	Columns map[string]ColumnType
	// TenantColumn is empty for collections that are not tenant-scoped.
	TenantColumn  string
	DefaultSearch []string
	DefaultSort   []SortKey
	Hidden        []string
	// Order is the stable column order used for default projection.
	Order []string
}

func (e *Entity) Has(field string) bool {
	_, ok := e.Columns[field]
	return ok
}

// Exposed reports whether callers may name the field.
func (e *Entity) Exposed(field string) bool {
	return e.Has(field) && !slices.Contains(e.Hidden, field)
}

func (e *Entity) Type(field string) ColumnType {
	return e.Columns[field]
}

// Visible lists the default projection: every column not hidden.
func (e *Entity) Visible() []string {
	out := make([]string, 0, len(e.Order))
	for _, c := range e.Order {
		if !slices.Contains(e.Hidden, c) {
			out = append(out, c)
		}
	}
	return out
}

var newestFirst = []SortKey{{Field: "created_at", Desc: true}}

// searchable is the free-text search set used when searchFields is absent.
// Each entity searches the members it has as text columns.
var searchable = []string{"content", "title", "name", "topic"}

func entity(name, table, tenantCol string, cols []column) *Entity {
	e := &Entity{
		Name:         name,
		Table:        table,
		TenantColumn: tenantCol,
		Columns:      make(map[string]ColumnType, len(cols)),
		DefaultSort:  newestFirst,
	}
	for _, c := range cols {
		e.Columns[c.name] = c.typ
		e.Order = append(e.Order, c.name)
	}
	for _, f := range searchable {
		if t, ok := e.Columns[f]; ok && t == TypeText {
			e.DefaultSearch = append(e.DefaultSearch, f)
		}
	}
	return e
}

type column struct {
	name string
	typ  ColumnType
}

var (
	Tenants = entity("tenant", "tenants", "", []column{
		{"id", TypeUUID}, {"name", TypeText}, {"school_code", TypeText}, {"status", TypeText},
		{"plan", TypeText}, {"max_students", TypeInt}, {"subscription_status", TypeText},
		{"trial_end_date", TypeTime}, {"created_at", TypeTime}, {"updated_at", TypeTime},
	})

	Users = func() *Entity {
		e := entity("user", "users", "tenant_id", []column{
			{"id", TypeUUID}, {"tenant_id", TypeUUID}, {"email", TypeText}, {"password_hash", TypeText},
			{"full_name", TypeText}, {"phone", TypeText}, {"role", TypeText}, {"status", TypeText},
			{"created_at", TypeTime}, {"updated_at", TypeTime},
		})
		e.Hidden = []string{"password_hash"}
		return e
	}()

	Subjects = entity("subject", "subjects", "tenant_id", []column{
		{"id", TypeUUID}, {"tenant_id", TypeUUID}, {"name", TypeText}, {"description", TypeText},
		{"created_at", TypeTime}, {"updated_at", TypeTime},
	})

	Classes = entity("class", "classes", "tenant_id", []column{
		{"id", TypeUUID}, {"tenant_id", TypeUUID}, {"name", TypeText}, {"grade", TypeText},
		{"subject_id", TypeUUID}, {"created_by", TypeUUID}, {"created_at", TypeTime}, {"updated_at", TypeTime},
	})

	Questions = entity("question", "questions", "tenant_id", []column{
		{"id", TypeUUID}, {"tenant_id", TypeUUID}, {"subject_id", TypeUUID}, {"topic", TypeText},
		{"difficulty", TypeText}, {"type", TypeText}, {"content", TypeText}, {"answers", TypeJSON},
		{"image_url", TypeText}, {"tags", TypeTextArray}, {"is_public", TypeBool}, {"created_by", TypeUUID},
		{"created_at", TypeTime}, {"updated_at", TypeTime},
	})

	Exams = entity("exam", "exams", "tenant_id", []column{
		{"id", TypeUUID}, {"tenant_id", TypeUUID}, {"subject_id", TypeUUID}, {"title", TypeText},
		{"description", TypeText}, {"duration", TypeInt}, {"total_points", TypeFloat},
		{"is_randomized", TypeBool}, {"created_by", TypeUUID}, {"created_at", TypeTime}, {"updated_at", TypeTime},
	})

	Assignments = entity("assignment", "assignments", "tenant_id", []column{
		{"id", TypeUUID}, {"tenant_id", TypeUUID}, {"class_id", TypeUUID}, {"exam_id", TypeUUID},
		{"title", TypeText}, {"description", TypeText}, {"due_date", TypeTime}, {"created_by", TypeUUID},
		{"created_at", TypeTime}, {"updated_at", TypeTime},
	})

	Submissions = func() *Entity {
		e := entity("submission", "submissions", "tenant_id", []column{
			{"id", TypeUUID}, {"tenant_id", TypeUUID}, {"assignment_id", TypeUUID}, {"student_id", TypeUUID},
			{"answers", TypeJSON}, {"file_url", TypeText}, {"score", TypeFloat}, {"feedback", TypeText},
			{"submitted_at", TypeTime}, {"graded_at", TypeTime}, {"graded_by", TypeUUID}, {"updated_at", TypeTime},
		})
		e.DefaultSort = []SortKey{{Field: "submitted_at", Desc: true}}
		return e
	}()
)

// Entities indexes every listable collection by table name.
var Entities = map[string]*Entity{
	Tenants.Table:     Tenants,
	Users.Table:       Users,
	Subjects.Table:    Subjects,
	Classes.Table:     Classes,
	Questions.Table:   Questions,
	Exams.Table:       Exams,
	Assignments.Table: Assignments,
	Submissions.Table: Submissions,
}
