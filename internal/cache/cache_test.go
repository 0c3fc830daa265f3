package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	m.Set(ctx, "exam:1", []byte("a"), time.Minute)
	v, ok := m.Get(ctx, "exam:1")
	require.True(t, ok)
	assert.Equal(t, []byte("a"), v)

	now = now.Add(2 * time.Minute)
	_, ok = m.Get(ctx, "exam:1")
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 0, m.Len())
}

func TestMemoryInvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Set(ctx, "assignment:1", []byte("1"), time.Hour)
	m.Set(ctx, "assignment:2", []byte("2"), time.Hour)
	m.Set(ctx, "exam:1", []byte("3"), time.Hour)

	m.Invalidate(ctx, "assignment:")
	_, ok := m.Get(ctx, "assignment:1")
	assert.False(t, ok)
	_, ok = m.Get(ctx, "exam:1")
	assert.True(t, ok)
	assert.Equal(t, 1, m.Len())
}

func TestFetchReadThrough(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	loads := 0
	load := func(context.Context) (*item, error) {
		loads++
		return &item{Name: "x", Count: loads}, nil
	}

	first, err := Fetch(ctx, m, Key("item", "1"), time.Hour, load)
	require.NoError(t, err)
	second, err := Fetch(ctx, m, Key("item", "1"), time.Hour, load)
	require.NoError(t, err)

	assert.Equal(t, 1, loads)
	assert.Equal(t, first, second)

	m.Invalidate(ctx, "item:")
	third, err := Fetch(ctx, m, Key("item", "1"), time.Hour, load)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Count)
}

func TestFetchDoesNotCacheMissesOrErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	v, err := Fetch(ctx, m, "item:none", time.Hour, func(context.Context) (*item, error) { return nil, nil })
	require.NoError(t, err)
	assert.Nil(t, v)

	boom := errors.New("db down")
	_, err = Fetch(ctx, m, "item:err", time.Hour, func(context.Context) (*item, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, m.Len())
}

func TestFetchRecoversFromCorruptEntry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Set(ctx, "item:1", []byte("{not json"), time.Hour)

	v, err := Fetch(ctx, m, "item:1", time.Hour, func(context.Context) (*item, error) {
		return &item{Name: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", v.Name)
}

func TestNewFallsBackToMemory(t *testing.T) {
	c := New(context.Background(), "", zap.NewNop())
	_, ok := c.(*Memory)
	assert.True(t, ok)

	c = New(context.Background(), "not a url", zap.NewNop())
	_, ok = c.(*Memory)
	assert.True(t, ok)
}
