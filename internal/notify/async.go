package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const deliveryTimeout = 10 * time.Second

// Async hands events to a bounded queue drained by a fixed set of workers.
// Dispatch never blocks: when the queue is full the event is dropped.
type Async struct {
	next   Dispatcher
	jobs   chan Event
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsync(next Dispatcher, workers, buffer int, logger *zap.Logger) *Async {
	a := &Async{
		next:   next,
		jobs:   make(chan Event, buffer),
		logger: logger,
	}
	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.worker()
	}
	return a
}

func (a *Async) worker() {
	defer a.wg.Done()
	for ev := range a.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if err := a.next.Dispatch(ctx, ev); err != nil {
			a.logger.Warn("Notification delivery failed",
				zap.String("type", string(ev.Type)),
				zap.String("entity_id", ev.EntityID.String()),
				zap.Error(err))
		}
		cancel()
	}
}

func (a *Async) Dispatch(_ context.Context, ev Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.logger.Warn("Notification dropped after shutdown", zap.String("type", string(ev.Type)))
		return nil
	}
	select {
	case a.jobs <- ev:
	default:
		a.logger.Warn("Notification queue full, event dropped", zap.String("type", string(ev.Type)))
	}
	return nil
}

// Close stops accepting events and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.jobs)
	a.mu.Unlock()
	a.wg.Wait()
}
