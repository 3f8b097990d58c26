package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shffl/internal/models"
	"github.com/desertthunder/shffl/internal/shared"
)

const (
	// QueueErrorMessage is the one message shown for any failed job.
	QueueErrorMessage = "Failed to queue tracks. Please try again."

	DefaultCompletionHold = 500 * time.Millisecond
)

// QueueState is the job progress state machine.
type QueueState int

const (
	QueueIdle QueueState = iota
	QueueStreaming
	QueueCompleting
	QueueErrored
)

func (s QueueState) String() string {
	switch s {
	case QueueIdle:
		return "idle"
	case QueueStreaming:
		return "streaming"
	case QueueCompleting:
		return "completing"
	case QueueErrored:
		return "errored"
	default:
		return ""
	}
}

// QueueSnapshot is the observable job state. Progress is nil when nothing is shown.
type QueueSnapshot struct {
	State    QueueState
	JobID    string
	Progress *models.Progress
	Error    string
}

// Stream is a server-push channel for one job.
type Stream interface {
	OnFrame(fn func([]byte))
	OnError(fn func(error))
	Open(ctx context.Context) error
	Close()
}

// StreamOpener creates the unopened stream for a job.
type StreamOpener func(jobID string) Stream

// Queue tracks the progress of shuffle jobs, one at a time.
type Queue struct {
	open   StreamOpener
	hold   time.Duration
	logger *log.Logger

	mu         sync.Mutex
	state      QueueState
	jobID      string
	progress   *models.Progress
	errMsg     string
	stream     Stream
	holdTimer  *time.Timer
	stopCtx    func() bool
	generation uint64

	observers shared.Observers[QueueSnapshot]
}

// NewQueue creates an idle queue. A non-positive hold falls back to [DefaultCompletionHold].
func NewQueue(open StreamOpener, hold time.Duration, logger *log.Logger) *Queue {
	if hold <= 0 {
		hold = DefaultCompletionHold
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Queue{
		open:   open,
		hold:   hold,
		logger: shared.WithLogger(logger, "component", "queue"),
	}
}

// Snapshot returns the current state.
func (q *Queue) Snapshot() QueueSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Subscribe registers fn for every state change.
func (q *Queue) Subscribe(fn func(QueueSnapshot)) (unsubscribe func()) {
	return q.observers.Subscribe(fn)
}

// Start opens the progress stream for jobID. A stream still open from an earlier job is closed first and its
// late frames are ignored. Cancelling ctx tears the stream down without surfacing an error.
func (q *Queue) Start(ctx context.Context, jobID string) {
	stream := q.open(jobID)

	q.mu.Lock()
	prev := q.teardownLocked()
	q.generation++
	gen := q.generation

	q.state = QueueStreaming
	q.jobID = jobID
	q.errMsg = ""
	q.progress = &models.Progress{}
	q.stream = stream
	q.stopCtx = context.AfterFunc(ctx, func() { q.abandon(gen) })
	snap := q.snapshotLocked()
	q.observers.Publish(snap)
	q.mu.Unlock()

	if prev != nil {
		q.logger.Debug("closing previous job stream")
		prev.Close()
	}
	q.logger.Info("queueing playlist", "job", jobID)
	q.observers.Flush()

	stream.OnFrame(func(data []byte) { q.handleFrame(gen, data) })
	stream.OnError(func(err error) { q.handleError(gen, err) })
	if err := stream.Open(ctx); err != nil {
		q.handleError(gen, err)
	}
}

// Dismiss clears an error and returns to idle. It does nothing in any other state.
func (q *Queue) Dismiss() {
	q.mu.Lock()
	if q.state != QueueErrored {
		q.mu.Unlock()
		return
	}
	q.state = QueueIdle
	q.errMsg = ""
	snap := q.snapshotLocked()
	q.observers.Publish(snap)
	q.mu.Unlock()

	q.observers.Flush()
}

// Close releases the stream and the hold timer and returns to idle.
func (q *Queue) Close() {
	q.mu.Lock()
	stream := q.teardownLocked()
	q.generation++
	changed := q.state != QueueIdle || q.progress != nil
	q.state = QueueIdle
	q.progress = nil
	q.errMsg = ""
	if changed {
		q.observers.Publish(q.snapshotLocked())
	}
	q.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	q.observers.Flush()
}

// Wait blocks until no job is streaming or completing and returns the final snapshot. An errored job is
// reported as [shared.ErrStreamFailed].
func (q *Queue) Wait(ctx context.Context) (QueueSnapshot, error) {
	settled := make(chan QueueSnapshot, 1)
	unsubscribe := q.Subscribe(func(s QueueSnapshot) {
		if s.State == QueueIdle || s.State == QueueErrored {
			select {
			case settled <- s:
			default:
			}
		}
	})
	defer unsubscribe()

	if s := q.Snapshot(); s.State == QueueIdle || s.State == QueueErrored {
		return s, queueResult(s)
	}

	select {
	case <-ctx.Done():
		return q.Snapshot(), fmt.Errorf("%w: %v", shared.ErrTimeout, ctx.Err())
	case s := <-settled:
		return s, queueResult(s)
	}
}

func queueResult(s QueueSnapshot) error {
	if s.State == QueueErrored {
		return fmt.Errorf("%w: %s", shared.ErrStreamFailed, s.Error)
	}
	return nil
}

func (q *Queue) handleFrame(gen uint64, data []byte) {
	frame, err := models.DecodeProgressFrame(data)
	if err != nil {
		q.logger.Warn("dropping malformed progress frame", "error", err)
		return
	}

	q.mu.Lock()
	if gen != q.generation || q.state != QueueStreaming {
		q.mu.Unlock()
		return
	}

	if !frame.Complete {
		p := frame.Progress()
		q.progress = &p
		snap := q.snapshotLocked()
		q.observers.Publish(snap)
		q.mu.Unlock()
		q.observers.Flush()
		return
	}

	stream := q.stream
	q.stream = nil
	q.state = QueueCompleting
	q.holdTimer = time.AfterFunc(q.hold, func() { q.finish(gen) })
	snap := q.snapshotLocked()
	q.observers.Publish(snap)
	q.mu.Unlock()

	stream.Close()
	q.logger.Info("playlist queued", "job", snap.JobID)
	q.observers.Flush()
}

func (q *Queue) handleError(gen uint64, err error) {
	q.mu.Lock()
	if gen != q.generation || q.state != QueueStreaming {
		q.mu.Unlock()
		return
	}
	stream := q.teardownLocked()
	q.state = QueueErrored
	q.progress = nil
	q.errMsg = QueueErrorMessage
	snap := q.snapshotLocked()
	q.observers.Publish(snap)
	q.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	q.logger.Error("queue stream failed", "job", snap.JobID, "error", err)
	q.observers.Flush()
}

// finish clears the display after the completion hold.
func (q *Queue) finish(gen uint64) {
	q.mu.Lock()
	if gen != q.generation || q.state != QueueCompleting {
		q.mu.Unlock()
		return
	}
	q.teardownLocked()
	q.state = QueueIdle
	q.progress = nil
	snap := q.snapshotLocked()
	q.observers.Publish(snap)
	q.mu.Unlock()

	q.observers.Flush()
}

// abandon runs when the Start context ends.
func (q *Queue) abandon(gen uint64) {
	q.mu.Lock()
	if gen != q.generation || (q.state != QueueStreaming && q.state != QueueCompleting) {
		q.mu.Unlock()
		return
	}
	stream := q.teardownLocked()
	q.generation++
	q.state = QueueIdle
	q.progress = nil
	snap := q.snapshotLocked()
	q.observers.Publish(snap)
	q.mu.Unlock()

	if stream != nil {
		stream.Close()
	}
	q.logger.Debug("job abandoned", "job", snap.JobID)
	q.observers.Flush()
}

// teardownLocked detaches the stream and stops timers. The caller closes the returned stream after unlocking.
func (q *Queue) teardownLocked() Stream {
	stream := q.stream
	q.stream = nil
	if q.holdTimer != nil {
		q.holdTimer.Stop()
		q.holdTimer = nil
	}
	if q.stopCtx != nil {
		q.stopCtx()
		q.stopCtx = nil
	}
	return stream
}

func (q *Queue) snapshotLocked() QueueSnapshot {
	s := QueueSnapshot{State: q.state, JobID: q.jobID, Error: q.errMsg}
	if q.progress != nil {
		p := *q.progress
		s.Progress = &p
	}
	return s
}
