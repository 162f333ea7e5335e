package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResult struct {
	err error
}

func (r *stubResult) GetError() error {
	return r.err
}

// stubJob sleeps for delay (or until cancelled) and reports err
type stubJob struct {
	delay   time.Duration
	err     error
	running *int32
	peak    *int32
}

func (j *stubJob) Execute(ctx context.Context) Result {
	if j.running != nil {
		n := atomic.AddInt32(j.running, 1)
		defer atomic.AddInt32(j.running, -1)
		for {
			p := atomic.LoadInt32(j.peak)
			if n <= p || atomic.CompareAndSwapInt32(j.peak, p, n) {
				break
			}
		}
	}

	if j.delay > 0 {
		select {
		case <-time.After(j.delay):
		case <-ctx.Done():
			return &stubResult{err: ctx.Err()}
		}
	}
	return &stubResult{err: j.err}
}

// drain submits jobs from a goroutine and collects every result
func drain(p *Pool, jobs []Job) []Result {
	go func() {
		for _, j := range jobs {
			p.Submit(j)
		}
		p.Close()
	}()

	var results []Result
	for r := range p.Results() {
		results = append(results, r)
	}
	return results
}

func TestNewPool_WorkerFloor(t *testing.T) {
	assert.Equal(t, 3, NewPool(context.Background(), 3).workers)
	assert.Equal(t, 1, NewPool(context.Background(), 0).workers)
	assert.Equal(t, 1, NewPool(context.Background(), -4).workers)
}

func TestPool_RunsEveryJob(t *testing.T) {
	p := NewPool(context.Background(), 2)
	p.Start()

	jobs := make([]Job, 25)
	for i := range jobs {
		jobs[i] = &stubJob{}
	}

	results := drain(p, jobs)
	assert.Len(t, results, len(jobs))
}

func TestPool_BoundedConcurrency(t *testing.T) {
	const workers = 4
	p := NewPool(context.Background(), workers)
	p.Start()

	var running, peak int32
	jobs := make([]Job, 30)
	for i := range jobs {
		jobs[i] = &stubJob{delay: 5 * time.Millisecond, running: &running, peak: &peak}
	}

	results := drain(p, jobs)
	require.Len(t, results, len(jobs))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(workers))
	assert.Equal(t, int32(0), atomic.LoadInt32(&running))
}

func TestPool_ErrorsAreResults(t *testing.T) {
	p := NewPool(context.Background(), 2)
	p.Start()

	boom := errors.New("render failed")
	results := drain(p, []Job{&stubJob{err: boom}, &stubJob{}, &stubJob{}})

	failed := 0
	for _, r := range results {
		if r.GetError() != nil {
			assert.ErrorIs(t, r.GetError(), boom)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestPool_Wait(t *testing.T) {
	p := NewPool(context.Background(), 2)
	p.Start()

	p.Submit(&stubJob{})
	p.Submit(&stubJob{err: errors.New("x")})
	assert.Len(t, p.Wait(), 2)
}

func TestPool_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(ctx, 1)
	p.Start()

	done := make(chan []Result)
	go func() {
		done <- drain(p, []Job{&stubJob{delay: time.Minute}, &stubJob{delay: time.Minute}})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case results := <-done:
		assert.LessOrEqual(t, len(results), 2)
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not drain after parent cancellation")
	}
}

func TestPool_Shutdown(t *testing.T) {
	p := NewPool(context.Background(), 2)
	p.Start()
	p.Submit(&stubJob{delay: time.Minute})

	stopped := make(chan struct{})
	go func() {
		p.Shutdown()
		for range p.Results() {
		}
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not stop the workers")
	}

	// submitting to a stopped pool neither blocks nor panics
	submitted := make(chan error, 1)
	go func() {
		submitted <- p.Submit(&stubJob{})
	}()
	select {
	case err := <-submitted:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Submit after Shutdown blocked")
	}
}
