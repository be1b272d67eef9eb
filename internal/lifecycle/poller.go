package lifecycle

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// cycleTimeout bounds a single polling cycle, adapter I/O included.
const cycleTimeout = 2 * time.Minute

// Poller runs the coordinator's polling cycle on a fixed interval.
// Overlap protection lives in the coordinator itself, so a slow cycle
// simply causes the next tick to be skipped.
type Poller struct {
	cron     *cron.Cron
	coord    *Coordinator
	interval time.Duration

	// wg tracks the immediate first cycle, which runs outside the
	// cron schedule.
	wg sync.WaitGroup
}

// NewPoller creates a poller running a cycle every interval.
func NewPoller(coord *Coordinator, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Poller{
		cron:     cron.New(),
		coord:    coord,
		interval: interval,
	}
}

// Start schedules the recurring cycle and runs an immediate first
// one in the background.
func (p *Poller) Start() error {
	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := p.cron.AddFunc(spec, p.runOnce); err != nil {
		return fmt.Errorf("scheduling polling cycle: %w", err)
	}

	p.cron.Start()
	log.Printf("mailbox poller started (every %s)", p.interval)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runOnce()
	}()
	return nil
}

// Stop halts the schedule and waits for any running cycle, the
// immediate first one included, to finish.
func (p *Poller) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
	p.wg.Wait()
	log.Println("mailbox poller stopped")
}

// runOnce executes a single bounded cycle and logs the outcome.
func (p *Poller) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	stats, err := p.coord.RunCycle(ctx)
	switch {
	case err != nil:
		log.Printf("polling cycle failed: %v", err)
	case stats.Skipped:
		log.Println("polling cycle skipped: previous cycle still running")
	default:
		log.Printf(
			"polling cycle done: fetched=%d known=%d detected=%d rejected=%d",
			stats.Fetched, stats.AlreadyKnown, stats.Detected, stats.Rejected,
		)
	}
}
