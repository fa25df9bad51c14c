package journal

import (
	"context"
	"log/slog"
	"time"
)

// DefaultQueueSize is the Recorder queue capacity.
const DefaultQueueSize = 256

type opKind int

const (
	opBegin opKind = iota
	opMilestone
	opEnd
)

type op struct {
	kind    opKind
	id      string
	at      time.Time
	meters  float64
	summary Summary
}

// Recorder queues journal writes for a background goroutine so the caller never
// waits on disk. When the queue is full, writes are dropped with a warning.
type Recorder struct {
	store  *Store
	ops    chan op
	logger *slog.Logger
}

// NewRecorder creates a recorder over store. Call Run to start writing.
func NewRecorder(store *Store, queueSize int, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Recorder{
		store:  store,
		ops:    make(chan op, queueSize),
		logger: logger,
	}
}

// BeginSession queues a new session and returns its id.
func (r *Recorder) BeginSession(at time.Time) string {
	id := NewSessionID()
	r.submit(op{kind: opBegin, id: id, at: at})
	return id
}

// Milestone queues a milestone for session id.
func (r *Recorder) Milestone(id string, meters float64, at time.Time) {
	r.submit(op{kind: opMilestone, id: id, at: at, meters: meters})
}

// EndSession queues the close of session id.
func (r *Recorder) EndSession(id string, at time.Time, sum Summary) {
	r.submit(op{kind: opEnd, id: id, at: at, summary: sum})
}

func (r *Recorder) submit(o op) {
	select {
	case r.ops <- o:
	default:
		r.logger.Warn("journal queue full, dropping write", "session", o.id)
	}
}

// Run applies queued writes until ctx is canceled, then drains what is left.
func (r *Recorder) Run(ctx context.Context) {
	for {
		select {
		case o := <-r.ops:
			r.apply(o)
		case <-ctx.Done():
			for {
				select {
				case o := <-r.ops:
					r.apply(o)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) apply(o op) {
	var err error
	switch o.kind {
	case opBegin:
		err = r.store.BeginSession(o.id, o.at)
	case opMilestone:
		err = r.store.RecordMilestone(o.id, o.meters, o.at)
	case opEnd:
		err = r.store.EndSession(o.id, o.at, o.summary)
	}
	if err != nil {
		r.logger.Warn("journal write failed", "session", o.id, "error", err)
	}
}
