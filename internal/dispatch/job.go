package dispatch

import (
	"time"

	"github.com/google/uuid"

	"github.com/scenebridge/blenderforge/internal/wire"
)

// Job is a single handler invocation packaged with its parameters and a
// completion signal (spec.md §3 "Scheduled job"). It is created by a
// connection worker, owned by the worker while awaiting completion, and
// consumed by the dispatcher when it runs the handler.
type Job struct {
	ID          string
	Request     wire.Request
	SubmittedAt time.Time

	done     chan struct{}
	reply    wire.Response
	started  time.Time
	ended    time.Time
	threadID int
}

func newJob(req wire.Request) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Request:     req,
		SubmittedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// Done returns the channel that closes once the dispatcher has run this
// job. A job still queued when the dispatcher stops never has it closed.
func (j *Job) Done() <-chan struct{} { return j.done }

// Reply returns the job's response. Only valid after Done() has closed.
func (j *Job) Reply() wire.Response { return j.reply }
