// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matt-FFFFFF/prefbatch/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeRunner records concurrency and start order without spawning processes.
type fakeRunner struct {
	delay      time.Duration
	running    atomic.Int32
	maxRunning atomic.Int32
	mu         sync.Mutex
	startOrder []string
	results    map[string]JobResult
}

func (f *fakeRunner) Run(_ context.Context, job Job) JobResult {
	n := f.running.Add(1)
	defer f.running.Add(-1)

	for {
		m := f.maxRunning.Load()
		if n <= m || f.maxRunning.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.startOrder = append(f.startOrder, job.Sample)
	f.mu.Unlock()

	time.Sleep(f.delay)

	if res, ok := f.results[job.Sample]; ok {
		res.Sample = job.Sample

		return res
	}

	return JobResult{Sample: job.Sample}
}

func makeJobs(names ...string) []Job {
	jobs := make([]Job, len(names))
	for i, n := range names {
		jobs[i] = Job{Sample: n}
	}

	return jobs
}

func TestPoolRun_AllComplete(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &fakeRunner{delay: 5 * time.Millisecond}
	pool := &Pool{Width: 2, Runner: runner}

	results := pool.Run(context.Background(), makeJobs("s1", "s2", "s3"))

	require.Len(t, results, 3)
	for i, name := range []string{"s1", "s2", "s3"} {
		assert.Equal(t, name, results[i].Sample, "results must follow dispatch order")
		assert.NoError(t, results[i].Err)
	}
}

func TestPoolRun_BoundedConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &fakeRunner{delay: 20 * time.Millisecond}
	pool := &Pool{Width: 2, Runner: runner}

	pool.Run(context.Background(), makeJobs("s1", "s2", "s3", "s4", "s5"))

	assert.LessOrEqual(t, runner.maxRunning.Load(), int32(2))
}

func TestPoolRun_DispatchOrderFollowsBatchOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Width 1 serializes execution, so start order must be table order.
	runner := &fakeRunner{}
	pool := &Pool{Width: 1, Runner: runner}

	pool.Run(context.Background(), makeJobs("s1", "s2", "s3"))

	assert.Equal(t, []string{"s1", "s2", "s3"}, runner.startOrder)
}

func TestPoolRun_LaunchFailureDoesNotAbortSiblings(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &fakeRunner{
		delay: 5 * time.Millisecond,
		results: map[string]JobResult{
			"s2": {Err: ErrCouldNotStartProcess, ExitCode: -1},
		},
	}
	pool := &Pool{Width: 4, Runner: runner}

	results := pool.Run(context.Background(), makeJobs("s1", "s2", "s3"))

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrCouldNotStartProcess)
	assert.NoError(t, results[2].Err)
}

func TestPoolRun_ReportsLifecycleEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	reporter := progress.NewChannelReporter(context.Background(), 32)
	runner := &fakeRunner{
		results: map[string]JobResult{
			"s2": {ExitCode: 1},
		},
	}
	pool := &Pool{Width: 2, Runner: runner, Reporter: reporter}

	pool.Run(context.Background(), makeJobs("s1", "s2"))
	reporter.Close()

	counts := map[progress.EventType]int{}
	samples := map[string]struct{}{}

	for ev := range reporter.Events() {
		counts[ev.Type]++
		samples[ev.Sample] = struct{}{}
	}

	assert.Equal(t, 2, counts[progress.EventDispatched])
	assert.Equal(t, 2, counts[progress.EventStarted])
	assert.Equal(t, 1, counts[progress.EventCompleted])
	assert.Equal(t, 1, counts[progress.EventFailed])
	assert.Contains(t, samples, "s1")
	assert.Contains(t, samples, "s2")
}

func TestPoolRun_ZeroWidthClampedToOne(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &fakeRunner{}
	pool := &Pool{Width: 0, Runner: runner}

	results := pool.Run(context.Background(), makeJobs("s1"))
	require.Len(t, results, 1)
}
