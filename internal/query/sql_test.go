package query

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
)

func TestCompileSQL(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name     string
		expr     Expr
		wantSQL  string
		wantArgs []any
	}{
		{"nil", nil, "TRUE", nil},
		{"eq", Eq("topic", "Final"), `"t"."topic" = $1`, []any{"Final"}},
		{"is null", Eq("image_url", nil), `"t"."image_url" IS NULL`, nil},
		{"ne includes null", Cond{Field: "topic", Op: OpNe, Value: "x"}, `("t"."topic" IS NULL OR "t"."topic" <> $1)`, []any{"x"}},
		{"in", In("difficulty", "easy", "hard"), `"t"."difficulty" IN ($1, $2)`, []any{"easy", "hard"}},
		{"nin", Cond{Field: "difficulty", Op: OpNin, Value: []any{"easy"}}, `NOT ("t"."difficulty" IN ($1))`, []any{"easy"}},
		{"empty in", In("difficulty"), "FALSE", nil},
		{"array contains", Eq("tags", "algebra"), `$1 = ANY("t"."tags")`, []any{"algebra"}},
		{"array overlap", In("tags", "a", "b"), `"t"."tags" && ARRAY[$1, $2]::text[]`, []any{"a", "b"}},
		{"contains escapes", Cond{Field: "content", Op: OpContains, Value: "50%_off"}, `"t"."content" ILIKE $1`, []any{`%50\%\_off%`}},
		{
			"and or",
			AllOf(Eq("tenant_id", id), AnyOf(Eq("is_public", true), Eq("created_by", id))),
			`("t"."tenant_id" = $1 AND ("t"."is_public" = $2 OR "t"."created_by" = $3))`,
			[]any{id, true, id},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := CompileSQL(Questions, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestCompileSQLRejectsUnknownField(t *testing.T) {
	_, _, err := CompileSQL(Questions, Eq("1=1; DROP TABLE questions; --", "x"))
	assert.ErrorIs(t, err, apperr.ErrMalformedQuery)
}

func TestSelectSQL(t *testing.T) {
	tenant := uuid.New()
	sql, args, err := SelectSQL(Find{
		Entity: Exams,
		Where:  Eq("tenant_id", tenant),
		Sort:   []SortKey{{Field: "title"}, {Field: "id", Desc: true}},
		Fields: []string{"id", "title", "subject_id"},
		Offset: 40,
		Limit:  20,
		Populate: []Populate{
			{Field: "subject_id", Entity: Subjects, Fields: []string{"name", "id"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "t"."id"::text AS "id", "t"."title" AS "title", `+
			`(SELECT json_build_object('id', "p"."id", 'name', "p"."name") FROM "subjects" p WHERE p.id = "t"."subject_id") AS "subject_id" `+
			`FROM "exams" t WHERE "t"."tenant_id" = $1 ORDER BY "t"."title" ASC, "t"."id" DESC LIMIT $2 OFFSET $3`,
		sql)
	assert.Equal(t, []any{tenant, 20, 40}, args)
}

func TestSelectSQLRejectsHiddenPopulate(t *testing.T) {
	_, _, err := SelectSQL(Find{
		Entity:   Exams,
		Fields:   []string{"id", "created_by"},
		Limit:    10,
		Populate: []Populate{{Field: "created_by", Entity: Users, Fields: []string{"password_hash"}}},
	})
	assert.ErrorIs(t, err, apperr.ErrMalformedQuery)
}

func TestCountSQL(t *testing.T) {
	sql, args, err := CountSQL(Assignments, Eq("class_id", "c1"))
	require.NoError(t, err)
	assert.Equal(t, `SELECT count(*) FROM "assignments" t WHERE "t"."class_id" = $1`, sql)
	assert.Equal(t, []any{"c1"}, args)
}
