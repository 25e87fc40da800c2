package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/donation-token/internal/models"
	"github.com/baharkarakas/donation-token/internal/worker"
)

func TestRecorderAndMulti(t *testing.T) {
	var a, b Recorder
	m := Multi{&a, &b}

	_, ok := a.Last()
	assert.False(t, ok)

	m.Publish(context.Background(), models.Event{Kind: models.EventMint})
	m.Publish(context.Background(), models.Event{Kind: models.EventBurn})

	require.Len(t, a.All(), 2)
	require.Len(t, b.All(), 2)
	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, models.EventBurn, last.Kind)

	a.Reset()
	assert.Empty(t, a.All())
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	s := Log{L: slog.New(slog.NewTextHandler(&buf, nil))}
	s.Publish(context.Background(), models.Event{
		Kind:   models.EventTransfer,
		From:   "GA",
		To:     "GB",
		Amount: big.NewInt(500),
	})

	out := buf.String()
	assert.Contains(t, out, "kind=transfer")
	assert.Contains(t, out, "from=GA")
	assert.Contains(t, out, "amount=500")
	assert.NotContains(t, out, "spender=")
}

type fakeRepo struct {
	created []models.Event
	err     error
}

func (f *fakeRepo) Create(_ context.Context, e models.Event) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, e)
	return nil
}

func (f *fakeRepo) List(context.Context, models.Address, int, int) ([]models.Event, error) {
	return f.created, nil
}

func TestStoreSink(t *testing.T) {
	repo := &fakeRepo{}
	var buf bytes.Buffer
	s := Store{Repo: repo, Log: slog.New(slog.NewTextHandler(&buf, nil))}

	s.Publish(context.Background(), models.Event{ID: "1", Kind: models.EventMint})
	require.Len(t, repo.created, 1)

	repo.err = errors.New("db down")
	s.Publish(context.Background(), models.Event{ID: "2", Kind: models.EventMint})
	assert.Contains(t, buf.String(), "db down")
}

func TestAsyncSink(t *testing.T) {
	pool := worker.NewPool(2, 4)
	var rec Recorder
	s := Async{Pool: pool, Next: &rec}

	for i := 0; i < 10; i++ {
		s.Publish(context.Background(), models.Event{Kind: models.EventApprove})
	}
	pool.Stop()
	assert.Len(t, rec.All(), 10)
}
