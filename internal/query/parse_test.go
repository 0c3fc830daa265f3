package query

import (
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qh20812/Edu-Core-Server/internal/apperr"
)

func TestParseDefaults(t *testing.T) {
	req, err := Parse(Questions, url.Values{})
	require.NoError(t, err)

	assert.Nil(t, req.Filter)
	assert.Equal(t, DefaultPage, req.Page)
	assert.Equal(t, DefaultLimit, req.Limit)
	assert.Equal(t, 0, req.Offset())
	assert.Equal(t, []SortKey{{Field: "created_at", Desc: true}, {Field: "id"}}, req.Sort)
	assert.Equal(t, Questions.Visible(), req.Fields)
}

func TestParsePaging(t *testing.T) {
	tests := []struct {
		name      string
		page      string
		limit     string
		wantPage  int
		wantLimit int
	}{
		{"explicit", "3", "10", 3, 10},
		{"limit capped", "1", "1000", 1, MaxLimit},
		{"garbage falls back", "abc", "-5", DefaultPage, DefaultLimit},
		{"zero falls back", "0", "0", DefaultPage, DefaultLimit},
		{"huge page clamped", "92233720368547760", "100", math.MaxInt / 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Parse(Exams, url.Values{"page": {tt.page}, "limit": {tt.limit}})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, req.Page)
			assert.Equal(t, tt.wantLimit, req.Limit)
			assert.Equal(t, (tt.wantPage-1)*tt.wantLimit, req.Offset())
			assert.GreaterOrEqual(t, req.Offset(), 0)
		})
	}
}

func TestParseFilters(t *testing.T) {
	subject := uuid.New()
	params := url.Values{
		"difficulty":     {"easy,medium"},
		"subject_id":     {subject.String()},
		"is_public":      {"true"},
		"created_at[gte]": {"2024-01-01"},
	}

	req, err := Parse(Questions, params)
	require.NoError(t, err)

	and, ok := req.Filter.(And)
	require.True(t, ok)
	// keys are processed in sorted order
	assert.Equal(t, And{
		Cond{Field: "created_at", Op: OpGte, Value: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		Cond{Field: "difficulty", Op: OpIn, Value: []any{"easy", "medium"}},
		Cond{Field: "is_public", Op: OpEq, Value: true},
		Cond{Field: "subject_id", Op: OpEq, Value: subject},
	}, and)
}

func TestParseNumericOperators(t *testing.T) {
	req, err := Parse(Exams, url.Values{"duration[lt]": {"60"}, "total_points[ne]": {"10.5"}})
	require.NoError(t, err)
	assert.Equal(t, And{
		Cond{Field: "duration", Op: OpLt, Value: int64(60)},
		Cond{Field: "total_points", Op: OpNe, Value: 10.5},
	}, req.Filter)
}

func TestParseSearch(t *testing.T) {
	req, err := Parse(Questions, url.Values{"search": {"photo"}})
	require.NoError(t, err)
	assert.Equal(t, Or{
		Cond{Field: "content", Op: OpContains, Value: "photo"},
		Cond{Field: "topic", Op: OpContains, Value: "photo"},
	}, req.Filter)

	req, err = Parse(Questions, url.Values{"search": {"photo"}, "searchFields": {"topic"}})
	require.NoError(t, err)
	assert.Equal(t, Cond{Field: "topic", Op: OpContains, Value: "photo"}, req.Filter)
}

func TestParseSearchDefaultSet(t *testing.T) {
	tests := []struct {
		name   string
		entity *Entity
		want   Expr
	}{
		{"exam title", Exams, Cond{Field: "title", Op: OpContains, Value: "north"}},
		{"subject name", Subjects, Cond{Field: "name", Op: OpContains, Value: "north"}},
		{"user has none of the set", Users, In("id")},
		{"submission has none of the set", Submissions, In("id")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Parse(tt.entity, url.Values{"search": {"north"}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.Filter)
		})
	}

	// explicit fields still reach columns outside the default set
	req, err := Parse(Users, url.Values{"search": {"north"}, "searchFields": {"email"}})
	require.NoError(t, err)
	assert.Equal(t, Cond{Field: "email", Op: OpContains, Value: "north"}, req.Filter)
}

func TestParseSortAndFields(t *testing.T) {
	req, err := Parse(Exams, url.Values{"sort": {"-duration,title"}, "fields": {"title,duration"}})
	require.NoError(t, err)
	assert.Equal(t, []SortKey{{Field: "duration", Desc: true}, {Field: "title"}, {Field: "id"}}, req.Sort)
	assert.Equal(t, []string{"id", "title", "duration"}, req.Fields)

	req, err = Parse(Submissions, url.Values{}, SortKey{Field: "score", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []SortKey{{Field: "score", Desc: true}, {Field: "id"}}, req.Sort)
}

func TestParseHidesPasswordHash(t *testing.T) {
	req, err := Parse(Users, url.Values{})
	require.NoError(t, err)
	assert.NotContains(t, req.Fields, "password_hash")

	for _, params := range []url.Values{
		{"password_hash": {"x"}},
		{"fields": {"password_hash"}},
		{"sort": {"password_hash"}},
		{"search": {"x"}, "searchFields": {"password_hash"}},
	} {
		_, err := Parse(Users, params)
		assert.ErrorIs(t, err, apperr.ErrMalformedQuery, "%v", params)
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
	}{
		{"unknown field", url.Values{"nope": {"1"}}},
		{"unknown operator", url.Values{"duration[between]": {"1"}}},
		{"broken key", url.Values{"duration[gt": {"1"}}},
		{"bad int", url.Values{"duration": {"long"}}},
		{"bad uuid", url.Values{"subject_id": {"123"}}},
		{"bad bool", url.Values{"is_randomized": {"sometimes"}}},
		{"bad time", url.Values{"created_at[gt]": {"yesterday"}}},
		{"unknown sort", url.Values{"sort": {"-nope"}}},
		{"unknown projection", url.Values{"fields": {"title,nope"}}},
		{"search non text", url.Values{"search": {"x"}, "searchFields": {"duration"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(Exams, tt.params)
			assert.ErrorIs(t, err, apperr.ErrMalformedQuery)
		})
	}
}

func TestParseRejectsJSONColumns(t *testing.T) {
	_, err := Parse(Questions, url.Values{"answers": {"x"}})
	assert.ErrorIs(t, err, apperr.ErrMalformedQuery)

	_, err = Parse(Questions, url.Values{"sort": {"tags"}})
	assert.ErrorIs(t, err, apperr.ErrMalformedQuery)
}
