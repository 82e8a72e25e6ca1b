package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/drawguess/internal/model"
	"github.com/mcoot/drawguess/internal/services/game"
	"github.com/mcoot/drawguess/internal/services/room"
	"github.com/mcoot/drawguess/internal/services/timer"
	"github.com/mcoot/drawguess/internal/storage"
)

// ErrClosed is returned once the engine has been shut down
var ErrClosed = errors.New("session engine is shut down")

// Publisher fans room-wide events out to the room's connections.
// Publish is called from room workers and must not block.
type Publisher interface {
	Publish(roomID model.RoomID, event model.Event)
	CloseRoom(roomID model.RoomID)
}

// Engine routes every action for a room through that room's worker.
// Rooms never wait on each other: the only shared structures are the registry and the worker map,
// both held only briefly.
type Engine struct {
	registry  *room.Registry
	machine   *game.Machine
	timers    *timer.Scheduler
	publisher Publisher
	logger    *slog.Logger

	mu      sync.Mutex
	workers map[model.RoomID]*worker
	closed  bool
}

// New creates an engine. publisher may be nil when nothing listens for events.
func New(
	registry *room.Registry,
	machine *game.Machine,
	timers *timer.Scheduler,
	publisher Publisher,
	logger *slog.Logger,
) *Engine {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Engine{
		registry:  registry,
		machine:   machine,
		timers:    timers,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "session")),
		workers:   make(map[model.RoomID]*worker),
	}
}

// CreateRoom creates a room hosted by the caller's connection and starts its worker
func (e *Engine) CreateRoom(ctx context.Context, host model.PlayerData, conn model.ConnID, settings model.Settings) (*model.Room, error) {
	if e.isClosed() {
		return nil, ErrClosed
	}
	created, err := e.registry.CreateRoom(host, conn, settings)
	if err != nil {
		return nil, err
	}
	if !e.spawn(created.ID) {
		e.registry.Delete(created.ID)
		return nil, ErrClosed
	}
	return created, nil
}

// JoinRoom adds a player to a lobby. It returns the room and the new player's ID.
func (e *Engine) JoinRoom(ctx context.Context, roomID model.RoomID, data model.PlayerData, conn model.ConnID) (*model.Room, model.PlayerID, error) {
	var joined *model.Room
	err := e.exec(ctx, roomID, func(w *worker) error {
		r, err := e.registry.JoinRoom(roomID, data, conn)
		if err != nil {
			return err
		}
		joined = r
		e.publish(r, model.EventPlayerJoined)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return joined, joined.Players[len(joined.Players)-1].ID, nil
}

// Rejoin binds an existing player to a new connection and returns the room for replay
func (e *Engine) Rejoin(ctx context.Context, roomID model.RoomID, playerID model.PlayerID, conn model.ConnID) (*model.Room, error) {
	var rebound *model.Room
	err := e.exec(ctx, roomID, func(w *worker) error {
		r, err := e.registry.Rebind(roomID, playerID, conn)
		if err != nil {
			return err
		}
		rebound = r
		return nil
	})
	return rebound, err
}

// ChangeSettings applies a host's settings update while the room is in its lobby
func (e *Engine) ChangeSettings(ctx context.Context, roomID model.RoomID, requesterID model.PlayerID, patch model.SettingsPatch) (*model.Room, error) {
	var updated *model.Room
	err := e.exec(ctx, roomID, func(w *worker) error {
		current, err := e.registry.Lookup(roomID)
		if err != nil {
			return err
		}
		if requesterID != current.HostID {
			return model.ErrNotHost
		}
		if current.InGame() {
			return model.ErrGameAlreadyInProgress
		}
		r, err := e.registry.ChangeSettings(roomID, patch)
		if err != nil {
			return err
		}
		updated = r
		e.publish(r, model.EventSettingsChanged)
		return nil
	})
	return updated, err
}

// StartGame starts a game on behalf of the host
func (e *Engine) StartGame(ctx context.Context, roomID model.RoomID, requesterID model.PlayerID) (*model.Room, error) {
	return e.mutate(ctx, roomID, func(w *worker, r *model.Room) error {
		if err := e.machine.StartGame(r, requesterID); err != nil {
			return err
		}
		if err := e.commit(r); err != nil {
			return err
		}
		e.publish(r, model.EventGameStarted)
		return nil
	})
}

// SelectWord records the drawer's word and arms the turn timer
func (e *Engine) SelectWord(ctx context.Context, roomID model.RoomID, playerID model.PlayerID, word string) (*model.Room, error) {
	return e.mutate(ctx, roomID, func(w *worker, r *model.Room) error {
		if err := e.machine.SelectWord(r, playerID, word); err != nil {
			return err
		}
		if err := e.commit(r); err != nil {
			return err
		}
		e.timers.Arm(roomID, turnExpiry(r), e.onTimer)
		e.publish(r, model.EventWordSelected)
		return nil
	})
}

// Draw applies a drawing action from the current drawer
func (e *Engine) Draw(ctx context.Context, roomID model.RoomID, playerID model.PlayerID, action model.DrawAction, point *model.DrawPoint) (*model.Room, error) {
	return e.mutate(ctx, roomID, func(w *worker, r *model.Room) error {
		if err := e.machine.Draw(r, playerID, action, point); err != nil {
			return err
		}
		if err := e.commit(r); err != nil {
			return err
		}
		e.publish(r, model.EventUpdatedDrawingData)
		return nil
	})
}

// Guess submits a guess. A guess that completes the turn rotates it, or ends the game on the last turn.
func (e *Engine) Guess(ctx context.Context, roomID model.RoomID, playerID model.PlayerID, text string) (game.GuessResult, error) {
	var result game.GuessResult
	_, err := e.mutate(ctx, roomID, func(w *worker, r *model.Room) error {
		res, err := e.machine.SubmitGuess(r, playerID, text)
		if err != nil {
			return err
		}
		result = res
		if res.GameEnded {
			e.publish(r, model.EventGuessMade)
			e.complete(w, r)
			return nil
		}
		if err := e.commit(r); err != nil {
			return err
		}
		e.publish(r, model.EventGuessMade)
		if res.TurnEnded {
			e.timers.Disarm(roomID)
			e.publish(r, model.EventRoundStarted)
		}
		return nil
	})
	return result, err
}

// Leave removes a player from their room, tearing the room down when it can no longer continue
func (e *Engine) Leave(ctx context.Context, roomID model.RoomID, playerID model.PlayerID) (game.LeaveResult, error) {
	var result game.LeaveResult
	_, err := e.mutate(ctx, roomID, func(w *worker, r *model.Room) error {
		res, err := e.machine.RemovePlayer(r, playerID)
		if err != nil {
			return err
		}
		result = res

		if res.Reason != "" {
			e.publish(r, model.EventPlayerLeft)
			e.publishEnded(r, res.Reason)
			e.teardown(w)
			return nil
		}
		if res.GameEnded {
			e.publish(r, model.EventPlayerLeft)
			e.complete(w, r)
			return nil
		}
		if err := e.commit(r); err != nil {
			return err
		}
		e.publish(r, model.EventPlayerLeft)
		if res.TurnEnded {
			e.timers.Disarm(roomID)
			e.publish(r, model.EventRoundStarted)
		}
		return nil
	})
	return result, err
}

// LeaveByConn resolves a closed connection to its player and removes them
func (e *Engine) LeaveByConn(ctx context.Context, conn model.ConnID) (game.LeaveResult, error) {
	roomID, playerID, ok := e.registry.MemberByConn(conn)
	if !ok {
		return game.LeaveResult{}, model.ErrPlayerNotFound
	}
	return e.Leave(ctx, roomID, playerID)
}

// Snapshot returns a copy of the room's committed state
func (e *Engine) Snapshot(roomID model.RoomID) (*model.Room, error) {
	return e.registry.Lookup(roomID)
}

// Rooms returns copies of every live room
func (e *Engine) Rooms() []*model.Room {
	return e.registry.List()
}

// MemberByConn resolves a connection to the room and player it is bound to
func (e *Engine) MemberByConn(conn model.ConnID) (model.RoomID, model.PlayerID, bool) {
	return e.registry.MemberByConn(conn)
}

// Hydrate restores rooms and drawing timers from the store after a restart.
// Timers whose room did not survive, or is no longer drawing, are deleted.
func (e *Engine) Hydrate(ctx context.Context, store storage.Store) (int, error) {
	rooms, err := e.registry.Hydrate(ctx, store)
	if err != nil {
		return 0, err
	}
	expiries, err := store.ScanTimers(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, r := range rooms {
		if !e.spawn(r.ID) {
			return restored, ErrClosed
		}
		gs := r.GameState
		if gs == nil || gs.RoomState != model.RoomStateDrawing {
			continue
		}
		expiry, ok := expiries[r.ID]
		if !ok {
			expiry = turnExpiry(r)
		}
		delete(expiries, r.ID)
		e.timers.Arm(r.ID, expiry, e.onTimer)
		restored++
	}

	for id := range expiries {
		if err := store.DeleteTimer(ctx, id); err != nil {
			e.logger.Warn("failed to delete orphaned timer",
				slog.String("room_id", string(id)),
				slog.String("error", err.Error()),
			)
		}
	}

	e.logger.Info("sessions restored",
		slog.Int("rooms", len(rooms)),
		slog.Int("timers", restored),
		slog.Int("orphaned_timers", len(expiries)),
	)
	return len(rooms), nil
}

// Shutdown stops every room worker and pending timer. Rooms stay in the registry and their
// persisted snapshots and timer expiries are left for the next Hydrate.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	workers := make([]*worker, 0, len(e.workers))
	for id, w := range e.workers {
		close(w.quit)
		workers = append(workers, w)
		delete(e.workers, id)
	}
	e.mu.Unlock()

	e.timers.Stop()

	for _, w := range workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	e.logger.Info("session engine stopped", slog.Int("rooms", len(workers)))
	return nil
}

// onTimer runs on the clock's goroutine and forwards the expiry to the room's worker
func (e *Engine) onTimer(roomID model.RoomID, gen uint64) {
	w := e.worker(roomID)
	if w == nil {
		return
	}
	w.enqueue(func() {
		err := w.protect(func() error {
			return e.expire(w, gen)
		})
		if err != nil {
			w.logger.Error("turn timeout failed", slog.String("error", err.Error()))
		}
	})
}

func (e *Engine) expire(w *worker, gen uint64) error {
	if !e.timers.IsCurrent(w.roomID, gen) {
		w.logger.Debug("stale timer ignored", slog.Uint64("generation", gen))
		return nil
	}
	e.timers.Release(w.roomID, gen)

	r, err := e.registry.Lookup(w.roomID)
	if err != nil {
		return err
	}
	if r.GameState == nil || r.GameState.RoomState != model.RoomStateDrawing {
		return nil
	}

	ended, err := e.machine.EndTurnOnTimeout(r)
	if err != nil {
		return err
	}
	w.logger.Info("turn timed out", slog.Int("round", r.GameState.CurrentRound))
	if ended {
		e.complete(w, r)
		return nil
	}
	if err := e.commit(r); err != nil {
		return err
	}
	e.publish(r, model.EventRoundStarted)
	return nil
}

// complete announces a finished game and tears the room down
func (e *Engine) complete(w *worker, r *model.Room) {
	e.publishEnded(r, model.ReasonCompleted)
	e.teardown(w)
}

// teardown deletes the room with its snapshot and timer and stops the worker after the current job.
// Must run on the room's worker.
func (e *Engine) teardown(w *worker) {
	e.registry.Delete(w.roomID)
	e.timers.Disarm(w.roomID)
	e.publisher.CloseRoom(w.roomID)

	e.mu.Lock()
	if e.workers[w.roomID] == w {
		delete(e.workers, w.roomID)
	}
	e.mu.Unlock()
	w.stopped = true

	w.logger.Info("room torn down")
}

// mutate runs fn on the room's worker against a private copy of the room.
// fn commits the copy itself once every step succeeded, so a failure leaves the last committed state.
func (e *Engine) mutate(ctx context.Context, roomID model.RoomID, fn func(w *worker, r *model.Room) error) (*model.Room, error) {
	var out *model.Room
	err := e.exec(ctx, roomID, func(w *worker) error {
		r, err := e.registry.Lookup(roomID)
		if err != nil {
			return err
		}
		if err := fn(w, r); err != nil {
			return err
		}
		out = r.Clone()
		return nil
	})
	return out, err
}

// exec runs fn on the room's worker and waits for its result
func (e *Engine) exec(ctx context.Context, roomID model.RoomID, fn func(w *worker) error) error {
	if e.isClosed() {
		return ErrClosed
	}
	w := e.worker(roomID)
	if w == nil {
		return model.ErrRoomNotFound
	}

	errc := make(chan error, 1)
	job := func() {
		errc <- w.protect(func() error { return fn(w) })
	}

	select {
	case w.jobs <- job:
	case <-w.done:
		return model.ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-w.done:
		select {
		case err := <-errc:
			return err
		default:
			return model.ErrRoomNotFound
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) commit(r *model.Room) error {
	return e.registry.Store(r)
}

func (e *Engine) publish(r *model.Room, eventType model.EventType) {
	e.publisher.Publish(r.ID, model.Event{Type: eventType, Room: r.Clone()})
}

func (e *Engine) publishEnded(r *model.Room, reason model.GameEndedReason) {
	e.publisher.Publish(r.ID, model.Event{Type: model.EventGameEnded, Room: r.Clone(), Reason: reason})
}

func (e *Engine) spawn(roomID model.RoomID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	if _, ok := e.workers[roomID]; ok {
		return true
	}
	w := newWorker(roomID, e.logger)
	e.workers[roomID] = w
	go w.run()
	return true
}

func (e *Engine) worker(roomID model.RoomID) *worker {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.workers[roomID]
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// turnExpiry is the instant the current drawing phase runs out
func turnExpiry(r *model.Room) time.Time {
	gs := r.GameState
	if gs == nil || gs.TimerStartedAt == nil {
		return time.Time{}
	}
	return gs.TimerStartedAt.Add(time.Duration(r.Settings.DrawTime) * time.Second)
}

type nopPublisher struct{}

func (nopPublisher) Publish(model.RoomID, model.Event) {}
func (nopPublisher) CloseRoom(model.RoomID)            {}
