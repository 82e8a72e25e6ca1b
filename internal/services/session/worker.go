package session

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/mcoot/drawguess/internal/model"
)

const jobBufferSize = 64

// errJobPanicked wraps a panic recovered on a room worker
var errJobPanicked = errors.New("room job panicked")

// worker serializes every mutation of one room on a single goroutine
type worker struct {
	roomID model.RoomID
	logger *slog.Logger

	jobs chan func()
	quit chan struct{}
	done chan struct{}

	// stopped is only touched on the worker goroutine
	stopped bool
}

func newWorker(roomID model.RoomID, logger *slog.Logger) *worker {
	return &worker{
		roomID: roomID,
		logger: logger.With(slog.String("room_id", string(roomID))),
		jobs:   make(chan func(), jobBufferSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// run processes jobs until the room is torn down from within a job or the worker is told to quit
func (w *worker) run() {
	defer close(w.done)
	for {
		select {
		case job := <-w.jobs:
			job()
			if w.stopped {
				return
			}
		case <-w.quit:
			return
		}
	}
}

// enqueue hands a job to the worker. It returns false if the worker has exited.
func (w *worker) enqueue(job func()) bool {
	select {
	case w.jobs <- job:
		return true
	case <-w.done:
		return false
	}
}

// protect runs fn, turning a panic into an error so one bad action cannot kill the room
func (w *worker) protect(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			w.logger.Error("panic in room job",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())),
			)
			if recErr, ok := rec.(error); ok {
				err = fmt.Errorf("%w: %w", errJobPanicked, recErr)
			} else {
				err = fmt.Errorf("%w: %v", errJobPanicked, rec)
			}
		}
	}()
	return fn()
}
