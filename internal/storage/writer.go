package storage

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/drawguess/internal/model"
)

// DefaultWriterBuffer is the number of pending writes an AsyncWriter holds before dropping saves
const DefaultWriterBuffer = 256

// writeOp is one queued persistence call
type writeOp struct {
	name    string
	roomID  model.RoomID
	apply   func(ctx context.Context, store Store) error
	barrier chan struct{} // set for Flush markers only

	// Deletes wait for queue space instead of being dropped
	mustApply bool
}

// AsyncWriter applies writes to a Store on a single goroutine, in submission order.
// A failed write is logged. When the queue is full saves are dropped, while deletes wait for space.
type AsyncWriter struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration

	ops  chan writeOp
	done chan struct{}

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewAsyncWriter starts the writer goroutine
func NewAsyncWriter(store Store, buffer int, logger *slog.Logger) *AsyncWriter {
	if buffer <= 0 {
		buffer = DefaultWriterBuffer
	}
	w := &AsyncWriter{
		store:   store,
		logger:  logger.With(slog.String("component", "persistence")),
		timeout: 5 * time.Second,
		ops:     make(chan writeOp, buffer),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// SaveRoom queues a snapshot write for the room
func (w *AsyncWriter) SaveRoom(id model.RoomID, data []byte) {
	w.enqueue(writeOp{name: "save_room", roomID: id, apply: func(ctx context.Context, s Store) error {
		return s.SaveRoom(ctx, id, data)
	}})
}

// DeleteRoom queues removal of the room snapshot
func (w *AsyncWriter) DeleteRoom(id model.RoomID) {
	w.enqueue(writeOp{name: "delete_room", roomID: id, mustApply: true, apply: func(ctx context.Context, s Store) error {
		return s.DeleteRoom(ctx, id)
	}})
}

// SaveTimer queues a timer expiry write
func (w *AsyncWriter) SaveTimer(id model.RoomID, expiry time.Time) {
	w.enqueue(writeOp{name: "save_timer", roomID: id, apply: func(ctx context.Context, s Store) error {
		return s.SaveTimer(ctx, id, expiry)
	}})
}

// DeleteTimer queues removal of the timer expiry
func (w *AsyncWriter) DeleteTimer(id model.RoomID) {
	w.enqueue(writeOp{name: "delete_timer", roomID: id, mustApply: true, apply: func(ctx context.Context, s Store) error {
		return s.DeleteTimer(ctx, id)
	}})
}

// Flush blocks until every write queued before the call has been applied
func (w *AsyncWriter) Flush(ctx context.Context) error {
	barrier := make(chan struct{})

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return nil
	}
	select {
	case w.ops <- writeOp{barrier: barrier}:
	case <-ctx.Done():
		w.mu.RUnlock()
		return ctx.Err()
	}
	w.mu.RUnlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains pending writes and stops the writer. The store itself is not closed.
func (w *AsyncWriter) Close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.ops)
		w.mu.Unlock()
		<-w.done
	})
}

func (w *AsyncWriter) enqueue(op writeOp) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.logger.Warn("write after close dropped",
			slog.String("op", op.name),
			slog.String("room_id", string(op.roomID)),
		)
		return
	}

	if op.mustApply {
		// The writer goroutine drains without taking the lock, so this cannot deadlock with Close
		w.ops <- op
		return
	}

	select {
	case w.ops <- op:
	default:
		w.logger.Warn("write queue full, dropping write",
			slog.String("op", op.name),
			slog.String("room_id", string(op.roomID)),
		)
	}
}

func (w *AsyncWriter) run() {
	defer close(w.done)
	for op := range w.ops {
		if op.barrier != nil {
			close(op.barrier)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := op.apply(ctx, w.store)
		cancel()
		if err != nil {
			w.logger.Error("persistence write failed",
				slog.String("op", op.name),
				slog.String("room_id", string(op.roomID)),
				slog.String("error", err.Error()),
			)
		}
	}
}
