package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenebridge/blenderforge/internal/registry"
	"github.com/scenebridge/blenderforge/internal/wire"
)

func echoRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(registry.Command{
		Type: "echo",
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return params, nil
		},
	}))
	return reg
}

func TestHeadlessStepDrainsQueue(t *testing.T) {
	reg := echoRegistry(t)
	d := NewHeadless(reg)
	d.Start()
	defer d.Stop()

	go func() {
		time.Sleep(10 * time.Millisecond)
		assert.NoError(t, d.Step())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := d.Submit(ctx, wire.Request{Type: "echo", Params: map[string]interface{}{"n": float64(1)}})
	require.NoError(t, err)
	assert.Equal(t, wire.StatusSuccess, resp.Status)
}

func TestGUIModeDrainsOnTick(t *testing.T) {
	reg := echoRegistry(t)
	d := NewGUI(reg, 10*time.Millisecond)
	d.Start()
	defer d.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := d.Submit(ctx, wire.Request{Type: "echo"})
	require.NoError(t, err)
	assert.Equal(t, wire.StatusSuccess, resp.Status)
}

func TestStepWrongModeErrors(t *testing.T) {
	reg := echoRegistry(t)
	d := NewGUI(reg, 10*time.Millisecond)
	assert.ErrorIs(t, d.Step(), ErrWrongMode)
}

func TestFIFOOrdering(t *testing.T) {
	reg := registry.New()

	var mu sync.Mutex
	var order []int

	require.NoError(t, reg.Register(registry.Command{
		Type: "record",
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			n := int(params["n"].(float64))
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			return nil, nil
		},
	}))

	d := NewHeadless(reg)

	// Enqueue directly (this test file lives in package dispatch) so the
	// jobs' relative enqueue order is deterministic, then let a single
	// drain pass process them all — exercising exactly the FIFO invariant
	// spec.md §8 names, without the inherent raciness of timestamping
	// concurrent goroutines' enqueue calls.
	const n = 50
	jobs := make([]*Job, n)
	for i := 0; i < n; i++ {
		jobs[i] = newJob(wire.Request{Type: "record", Params: map[string]interface{}{"n": float64(i)}})
	}
	d.mu.Lock()
	d.queue = append(d.queue, jobs...)
	d.mu.Unlock()

	d.Start()
	defer d.Stop()
	require.NoError(t, d.Step())

	for _, job := range jobs {
		select {
		case <-job.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("job never completed")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, i, order[i])
	}
}

func TestSingleThreadedExecution(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(registry.Command{
		Type: "noop",
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return nil, nil
		},
	}))

	d := NewHeadless(reg)

	type interval struct {
		thread     int
		begin, end time.Time
	}
	var mu sync.Mutex
	var intervals []interval
	d.Observer = func(threadID int, begin, end time.Time) {
		mu.Lock()
		intervals = append(intervals, interval{threadID, begin, end})
		mu.Unlock()
	}

	d.Start()
	defer d.Stop()

	const n = 30
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, err := d.Submit(ctx, wire.Request{Type: "noop"})
			assert.NoError(t, err)
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, d.Step())
		mu.Lock()
		done := len(intervals) == n
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, intervals, n)

	threads := map[int]bool{}
	for _, iv := range intervals {
		threads[iv.thread] = true
	}
	assert.Len(t, threads, 1, "expected exactly one OS thread id across all handler invocations")

	for i := 0; i < len(intervals); i++ {
		for j := i + 1; j < len(intervals); j++ {
			a, b := intervals[i], intervals[j]
			overlap := a.begin.Before(b.end) && b.begin.Before(a.end)
			assert.False(t, overlap, "handler executions %d and %d overlapped", i, j)
		}
	}
}

func TestUnknownCommandBecomesErrorResponse(t *testing.T) {
	reg := registry.New()
	d := NewHeadless(reg)
	d.Start()
	defer d.Stop()

	go func() { assert.NoError(t, d.Step()) }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := d.Submit(ctx, wire.Request{Type: "nope"})
	require.NoError(t, err)
	assert.Equal(t, wire.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "nope")
}

func TestHandlerPanicBecomesErrorResponse(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.Register(registry.Command{
		Type: "boom",
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			panic(fmt.Errorf("kaboom"))
		},
	}))

	d := NewHeadless(reg)
	d.Start()
	defer d.Stop()

	go func() { assert.NoError(t, d.Step()) }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := d.Submit(ctx, wire.Request{Type: "boom"})
	require.NoError(t, err)
	assert.Equal(t, wire.StatusError, resp.Status)
	assert.Contains(t, resp.Message, "kaboom")
}

func TestSubmitTimeoutStillRunsJobButDropsReply(t *testing.T) {
	reg := registry.New()
	ran := make(chan struct{}, 1)
	require.NoError(t, reg.Register(registry.Command{
		Type: "slow",
		Handler: func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			ran <- struct{}{}
			return nil, nil
		},
	}))

	d := NewHeadless(reg)
	d.Start()
	defer d.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := d.Submit(ctx, wire.Request{Type: "slow"})
	require.Error(t, err)
	var werr *wire.Error
	require.ErrorAs(t, err, &werr)
	assert.Equal(t, wire.KindTimeout, werr.Kind)

	// The job was abandoned by Submit, but the dispatcher still runs it once
	// stepped — it was never removed from the queue.
	require.NoError(t, d.Step())
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("handler never ran after timeout")
	}
}
