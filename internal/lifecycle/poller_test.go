package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/inbox-calendar/internal/lifecycle"
	"github.com/nhle/inbox-calendar/internal/model"
	"github.com/nhle/inbox-calendar/internal/store"
)

// blockingMailbox parks ListUnread until released, holding a cycle
// open so shutdown ordering can be observed.
type blockingMailbox struct {
	entered chan struct{}
	release chan struct{}
}

func (m *blockingMailbox) ListUnread(ctx context.Context) ([]model.Message, error) {
	close(m.entered)
	select {
	case <-m.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return nil, nil
}

func (m *blockingMailbox) MarkRead(context.Context, string) error { return nil }

func (m *blockingMailbox) AddLabel(context.Context, string, string) error { return nil }

func TestPollerStopWaitsForFirstCycle(t *testing.T) {
	mb := &blockingMailbox{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	st := store.NewMemoryStore()
	coord := lifecycle.New(st, mb, &fakeCalendar{}, testScorer(), lifecycle.Options{})

	// A long interval keeps the cron schedule out of the picture;
	// only the immediate first cycle runs.
	p := lifecycle.NewPoller(coord, time.Hour)
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-mb.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle never started")
	}

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a cycle was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(mb.release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop never returned after the cycle finished")
	}
}
