package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qh20812/Edu-Core-Server/internal/model"
)

func TestIssueParseRoundTrip(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	actor := model.Actor{ID: uuid.New(), Role: model.RoleTeacher, TenantID: uuid.New()}

	token, exp, err := iss.Issue(actor)
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	got, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestParseSysAdminHasNoTenant(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	actor := model.Actor{ID: uuid.New(), Role: model.RoleSysAdmin}

	token, _, err := iss.Issue(actor)
	require.NoError(t, err)

	got, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, got.TenantID)
}

func TestParseRejects(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	actor := model.Actor{ID: uuid.New(), Role: model.RoleStudent, TenantID: uuid.New()}

	t.Run("wrong secret", func(t *testing.T) {
		token, _, err := NewIssuer("other", time.Hour).Issue(actor)
		require.NoError(t, err)
		_, err = iss.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		old := NewIssuer("secret", time.Minute)
		old.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, err := old.Issue(actor)
		require.NoError(t, err)
		_, err = iss.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("unknown role", func(t *testing.T) {
		claims := Claims{
			Role:             "janitor",
			RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
		require.NoError(t, err)
		_, err = iss.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := iss.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
