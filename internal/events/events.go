// Package events delivers domain events of committed token operations.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/baharkarakas/donation-token/internal/models"
	"github.com/baharkarakas/donation-token/internal/repository"
	"github.com/baharkarakas/donation-token/internal/worker"
)

// Sink receives events after the operation that produced them committed.
type Sink interface {
	Publish(ctx context.Context, e models.Event)
}

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, e models.Event) {
	for _, s := range m {
		s.Publish(ctx, e)
	}
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *Recorder) Publish(_ context.Context, e models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// All returns a copy of the recorded events.
func (r *Recorder) All() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

// Last returns the most recent event, if any.
func (r *Recorder) Last() (models.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return models.Event{}, false
	}
	return r.events[len(r.events)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

// Log writes every event to a slog logger.
type Log struct{ L *slog.Logger }

func (s Log) Publish(ctx context.Context, e models.Event) {
	attrs := []any{"id", e.ID, "kind", e.Kind, "ledger", e.Ledger}
	for _, kv := range []struct {
		k string
		v models.Address
	}{{"admin", e.Admin}, {"from", e.From}, {"to", e.To}, {"spender", e.Spender}, {"account", e.Account}} {
		if kv.v != "" {
			attrs = append(attrs, kv.k, kv.v)
		}
	}
	if e.Amount != nil {
		attrs = append(attrs, "amount", e.Amount.String())
	}
	if e.ExpirationLedger != 0 {
		attrs = append(attrs, "expiration_ledger", e.ExpirationLedger)
	}
	s.L.InfoContext(ctx, "token event", attrs...)
}

// Store persists events through the events repository.
type Store struct {
	Repo repository.Events
	Log  *slog.Logger
}

func (s Store) Publish(ctx context.Context, e models.Event) {
	if err := s.Repo.Create(ctx, e); err != nil {
		log := s.Log
		if log == nil {
			log = slog.Default()
		}
		log.ErrorContext(ctx, "event store", "id", e.ID, "kind", e.Kind, "err", err)
	}
}

// Async hands events to a worker pool so slow sinks do not hold the ledger
// lock. Delivery uses a background context: the request may be gone by then.
type Async struct {
	Pool *worker.Pool
	Next Sink
}

func (a Async) Publish(_ context.Context, e models.Event) {
	a.Pool.Submit(func() { a.Next.Publish(context.Background(), e) })
}
