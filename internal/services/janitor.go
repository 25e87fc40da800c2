// Package services holds background jobs that run next to the ledger.
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/donation-token/internal/ledger"
)

// Sweeper drops whatever has expired as of ledger seq.
type Sweeper interface {
	Sweep(ctx context.Context, seq uint32) (int64, error)
}

type SweepFunc func(ctx context.Context, seq uint32) (int64, error)

func (f SweepFunc) Sweep(ctx context.Context, seq uint32) (int64, error) { return f(ctx, seq) }

// JanitorService periodically evicts entries whose lifetime ended. Reads
// already treat such entries as absent; sweeping only reclaims space.
type JanitorService struct {
	clock    ledger.Clock
	sweepers map[string]Sweeper
	log      *slog.Logger
}

func NewJanitorService(clock ledger.Clock, log *slog.Logger) *JanitorService {
	if log == nil {
		log = slog.Default()
	}
	return &JanitorService{clock: clock, sweepers: map[string]Sweeper{}, log: log}
}

// Add registers a sweeper under a name used in logs.
func (j *JanitorService) Add(name string, s Sweeper) *JanitorService {
	j.sweepers[name] = s
	return j
}

// RunOnce sweeps everything once. A failing sweeper is logged and does not
// stop the others.
func (j *JanitorService) RunOnce(ctx context.Context) int64 {
	seq := j.clock.Sequence()
	var total int64
	for name, s := range j.sweepers {
		n, err := s.Sweep(ctx, seq)
		if err != nil {
			j.log.WarnContext(ctx, "sweep failed", "sweeper", name, "ledger", seq, "err", err)
			continue
		}
		if n > 0 {
			j.log.DebugContext(ctx, "swept", "sweeper", name, "ledger", seq, "removed", n)
		}
		total += n
	}
	return total
}

// Run sweeps every interval until ctx is done.
func (j *JanitorService) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			j.RunOnce(ctx)
		}
	}
}
