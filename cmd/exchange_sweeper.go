package main

import (
	"context"
	"time"

	"finderguard/internal/timeutil"
)

const (
	exchangeSweepBatch   = 100
	exchangeSweepTimeout = 30 * time.Second
)

// startExchangeSweeper rearms the deadlines of running exchanges after a
// restart and, when the durable queue is configured, periodically expires
// exchanges whose in-process timer was lost.
func (app *application) startExchangeSweeper(ctx context.Context) {
	resumeCtx, cancel := context.WithTimeout(ctx, exchangeSweepTimeout)
	if err := app.machine.Resume(resumeCtx); err != nil {
		app.errorLog.Printf("exchange sweeper: resume: %v", err)
	}
	cancel()

	if app.deadline == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(app.cfg.SweepInterval())
		defer ticker.Stop()

		run := func() {
			runCtx, cancel := context.WithTimeout(ctx, exchangeSweepTimeout)
			defer cancel()

			n, err := sweepDueExchanges(runCtx, app.deadline, app.clock, app.machine.HandleDeadline)
			if err != nil {
				app.errorLog.Printf("exchange sweeper: failed to read due deadlines: %v", err)
				return
			}
			if n > 0 {
				app.infoLog.Printf("exchange sweeper: handled %d due exchanges", n)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()
}

type dueDeadlines interface {
	Due(ctx context.Context, now time.Time, limit int64) ([]string, error)
}

// sweepDueExchanges hands every deadline that is due by clock to handle.
func sweepDueExchanges(ctx context.Context, queue dueDeadlines, clock timeutil.Clock, handle func(matchID string)) (int, error) {
	due, err := queue.Due(ctx, clock.Now(), exchangeSweepBatch)
	if err != nil {
		return 0, err
	}
	for _, matchID := range due {
		handle(matchID)
	}
	return len(due), nil
}
