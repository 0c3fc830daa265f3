// Package service holds the business operations. Every operation takes the
// authenticated actor and decides access before it writes.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qh20812/Edu-Core-Server/internal/cache"
	"github.com/qh20812/Edu-Core-Server/internal/notify"
	"github.com/qh20812/Edu-Core-Server/internal/query"
)

const defaultCacheTTL = 30 * time.Minute

// Deps are shared by every service. Zero-value optional fields fall back to
// a memory cache, a no-op notifier and time.Now.
type Deps struct {
	Store    *Store
	Cache    cache.Cache
	Notifier notify.Dispatcher
	Logger   *zap.Logger
	Now      func() time.Time
	CacheTTL time.Duration
}

func (d Deps) withDefaults() Deps {
	if d.Cache == nil {
		d.Cache = cache.NewMemory()
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = defaultCacheTTL
	}
	return d
}

// base carries Deps plus the helpers all services share.
type base struct {
	Deps
	lists *query.Pipeline
}

func newBase(d Deps, component string) base {
	d = d.withDefaults()
	d.Logger = d.Logger.With(zap.String("component", component))
	return base{Deps: d, lists: query.NewPipeline(d.Store.Lists, d.Logger)}
}

// invalidate drops cache prefixes after a successful write.
func (b base) invalidate(ctx context.Context, prefixes ...string) {
	for _, p := range prefixes {
		b.Cache.Invalidate(ctx, p)
	}
}

// emit hands an event to the notifier. Failures are logged only.
func (b base) emit(ctx context.Context, ev notify.Event) {
	if len(ev.Recipients) == 0 {
		return
	}
	if ev.At.IsZero() {
		ev.At = b.Now()
	}
	if err := b.Notifier.Dispatch(ctx, ev); err != nil {
		b.Logger.Warn("Failed to dispatch notification",
			zap.String("type", string(ev.Type)),
			zap.Error(err))
	}
}

const (
	tenantKey     = "tenant"
	examKey       = "exam"
	questionKey   = "question"
	assignmentKey = "assignment"
)
