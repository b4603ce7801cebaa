// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/matt-FFFFFF/prefbatch/internal/ctxlog"
	"github.com/matt-FFFFFF/prefbatch/internal/progress"
)

// Pool dispatches jobs with bounded concurrency. Width slots run at once;
// each running job occupies one slot for its entire process lifetime,
// whatever its advisory CPU share says.
type Pool struct {
	Width    int
	Runner   Runner
	Reporter progress.Reporter
}

// Run dispatches all jobs in order and blocks until every one of them has
// completed, successfully or not. Results are returned in dispatch order.
// Launch failures are recorded in the corresponding JobResult and surfaced
// at the barrier; they do not abort sibling jobs.
func (p *Pool) Run(ctx context.Context, jobs []Job) []JobResult {
	logger := ctxlog.Logger(ctx)

	width := max(1, p.Width)

	reporter := p.Reporter
	if reporter == nil {
		reporter = progress.NewNullReporter()
	}

	logger.Debug("dispatching jobs", "count", len(jobs), "width", width)

	results := make([]JobResult, len(jobs))
	sem := make(chan struct{}, width)
	wg := &sync.WaitGroup{}

	for i, job := range jobs {
		reporter.Report(progress.Event{
			Sample:    job.Sample,
			Type:      progress.EventDispatched,
			Message:   "job queued",
			Timestamp: time.Now(),
		})

		// Acquiring the slot here, not in the goroutine, keeps process start
		// order identical to batch-table order.
		sem <- struct{}{}

		wg.Add(1)

		go func(i int, job Job) {
			defer wg.Done()
			defer func() { <-sem }()

			reporter.Report(progress.Event{
				Sample:    job.Sample,
				Type:      progress.EventStarted,
				Message:   "job started",
				Timestamp: time.Now(),
			})

			res := p.Runner.Run(ctx, job)
			results[i] = res

			event := progress.Event{
				Sample:    job.Sample,
				Type:      progress.EventCompleted,
				Message:   "job completed",
				Timestamp: time.Now(),
				Data: progress.EventData{
					ExitCode: res.ExitCode,
					Error:    res.Err,
				},
			}
			if res.Err != nil || res.ExitCode != 0 {
				event.Type = progress.EventFailed
				event.Message = "job failed"
			}

			reporter.Report(event)
		}(i, job)
	}

	// The join barrier: nothing downstream sees any result until every job
	// has returned.
	wg.Wait()

	logger.Debug("all jobs completed", "count", len(jobs))

	return results
}
