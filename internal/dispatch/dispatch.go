// Package dispatch implements the main-thread dispatcher (spec.md C3): it
// serializes handler execution from the command registry onto a single
// "main thread" using one of two strategies, chosen by the constructor
// (NewGUI or NewHeadless) and fixed for the dispatcher's lifetime.
//
// Both strategies share one run loop goroutine pinned to its OS thread via
// runtime.LockOSThread — the Go expression of "a message-passing actor that
// owns a channel of jobs and is the sole consumer on its thread" (spec.md §9).
// The pending queue (a plain mutex-guarded FIFO slice) is the only thing
// shared between connection workers and the run loop.
//
// Re-entrancy is not detected: a handler (for example an execute_code
// program) that sends a command back to the same server and waits for its
// reply blocks the run loop, and the nested job is never drained. Avoiding
// that is left to the client.
package dispatch

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/scenebridge/blenderforge/internal/registry"
	"github.com/scenebridge/blenderforge/internal/wire"
)

// Mode selects which of the two execution strategies a Dispatcher uses.
// It is sampled once at server start (spec.md §4.3 "Mode detection") and
// never changes for the dispatcher's lifetime.
type Mode int

const (
	// ModeGUI is Strategy A: a host app timer callback drains the queue
	// every tick.
	ModeGUI Mode = iota
	// ModeHeadless is Strategy B: an externally driven Step() call drains
	// the queue.
	ModeHeadless
)

func (m Mode) String() string {
	if m == ModeGUI {
		return "gui"
	}
	return "headless"
}

// DefaultTick is the recommended app-timer interval for GUI mode (spec.md
// §4.3: "≤ 50 ms recommended").
const DefaultTick = 50 * time.Millisecond

// ErrWrongMode is returned by Step when called on a GUI-mode dispatcher.
var ErrWrongMode = fmt.Errorf("dispatch: operation not valid for this dispatcher's mode")

// HandlerObserver is an optional test hook invoked around every handler
// execution, used to verify the single-threaded and FIFO invariants
// (spec.md §8).
type HandlerObserver func(threadID int, begin, end time.Time)

// Dispatcher owns the pending queue and the single run-loop goroutine that
// drains it.
type Dispatcher struct {
	registry *registry.Registry
	mode     Mode
	tick     time.Duration

	mu      sync.Mutex
	queue   []*Job
	started bool
	stopCh  chan struct{}
	stepCh  chan struct{}
	wg      sync.WaitGroup

	// Observer, if set before Start, is called synchronously around every
	// handler invocation from the run-loop goroutine.
	Observer HandlerObserver
}

// NewGUI builds a Strategy-A dispatcher that drains the queue every tick
// (DefaultTick if tick <= 0).
func NewGUI(reg *registry.Registry, tick time.Duration) *Dispatcher {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Dispatcher{registry: reg, mode: ModeGUI, tick: tick, stopCh: make(chan struct{})}
}

// NewHeadless builds a Strategy-B dispatcher that drains the queue only when
// Step is called.
func NewHeadless(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		mode:     ModeHeadless,
		stopCh:   make(chan struct{}),
		// Buffered by one: a Step() call that arrives while the run loop is
		// mid-drain coalesces with the next drain instead of blocking the
		// keep-alive driver's caller.
		stepCh: make(chan struct{}, 1),
	}
}

// Mode reports which strategy this dispatcher uses.
func (d *Dispatcher) Mode() Mode { return d.mode }

// Start spawns the run-loop goroutine. A second Start while already started
// is a no-op. The dispatcher is started by its owner (cmd/blenderforged, or
// a test), not by internal/server.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	d.wg.Add(1)
	go d.runLoop()
}

// Stop signals the run loop to exit and waits for it to do so. Jobs still
// in the queue are left unexecuted and their Done channels are never
// closed; callers must have already drained or abandoned in-flight
// requests before calling Stop (internal/server does this during its own
// Draining transition).
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.started = false
	d.mu.Unlock()

	close(d.stopCh)
	d.wg.Wait()
}

// Step requests one drain of the pending queue. Only valid in ModeHeadless;
// this is the entry point the keep-alive driver (spec.md §4.3, §6 external
// collaborator) calls repeatedly from the host application's main thread.
func (d *Dispatcher) Step() error {
	if d.mode != ModeHeadless {
		return ErrWrongMode
	}
	select {
	case d.stepCh <- struct{}{}:
	default:
		// A drain is already pending; coalesce.
	}
	return nil
}

func (d *Dispatcher) runLoop() {
	defer d.wg.Done()

	// Pin this goroutine to its OS thread for its entire lifetime: every
	// handler this dispatcher ever runs executes on exactly one thread,
	// satisfying spec.md §8's single-threaded-execution property.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if d.mode == ModeGUI {
		ticker := time.NewTicker(d.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.drainAll()
			case <-d.stopCh:
				return
			}
		}
	}

	for {
		select {
		case <-d.stepCh:
			d.drainAll()
		case <-d.stopCh:
			return
		}
	}
}

// drainAll runs every job currently queued, strictly in FIFO order, one at a
// time, never preempted (spec.md §4.3 "Ordering & fairness").
func (d *Dispatcher) drainAll() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		job := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.runJob(job)
	}
}

// runJob invokes the registered handler for job.Request and delivers the
// result. A handler panic is caught here — the dispatcher is the
// uncaught-error boundary (spec.md §4.3 "Error mapping") — and converted to
// a HandlerError response so it can never crash the server.
func (d *Dispatcher) runJob(job *Job) {
	job.started = time.Now()
	job.threadID = currentThreadID()

	result, err := d.invoke(job)

	job.ended = time.Now()
	if d.Observer != nil {
		d.Observer(job.threadID, job.started, job.ended)
	}

	if err != nil {
		job.reply = errorResponse(job.Request.Type, err)
	} else {
		job.reply = wire.Success(result)
	}
	close(job.done)
}

func (d *Dispatcher) invoke(job *Job) (result map[string]interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = wire.NewError(wire.KindHandlerError, "handler panic: %v", r)
		}
	}()
	return d.registry.Dispatch(context.Background(), job.Request)
}

func errorResponse(source string, err error) wire.Response {
	var werr *wire.Error
	if ok := asWireError(err, &werr); ok {
		src := werr.Source
		if src == "" {
			src = source
		}
		return wire.Failure(src, werr.Error())
	}
	return wire.Failure(source, err.Error())
}

func asWireError(err error, target **wire.Error) bool {
	for err != nil {
		if we, ok := err.(*wire.Error); ok {
			*target = we
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Submit enqueues req as a Job and blocks until the dispatcher has run it or
// ctx is done, whichever comes first (spec.md §4.3 step 1). On a context
// timeout the job is left in the queue — the dispatcher still executes it,
// but the reply is discarded (spec.md §4.3 "Cancellation"); Submit returns a
// KindTimeout error in that case.
func (d *Dispatcher) Submit(ctx context.Context, req wire.Request) (wire.Response, error) {
	job := newJob(req)

	d.mu.Lock()
	d.queue = append(d.queue, job)
	d.mu.Unlock()

	select {
	case <-job.Done():
		return job.Reply(), nil
	case <-ctx.Done():
		return wire.Response{}, wire.NewError(wire.KindTimeout, "request %s timed out waiting for the main thread", job.ID)
	}
}
