// File: internal/engine/engine.go
// Package engine serializes conversation turns. Utterances may arrive from
// any goroutine, but exactly one turn is processed at a time, in order.
package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/sitevoice/internal/observability"
)

var (
	// ErrQueueFull is returned by Submit when the buffer has no free slot.
	ErrQueueFull = errors.New("turn queue is full")
	// ErrQueueStopped is returned by Submit once the consumer has exited.
	ErrQueueStopped = errors.New("turn queue is stopped")
)

// TurnHandler processes one utterance and reports whether the session
// continues. Returning false ends the consumer.
type TurnHandler func(ctx context.Context, utterance string) bool

type turn struct {
	id        string
	utterance string
}

// TurnQueue is a buffered, single-consumer queue of utterances.
type TurnQueue struct {
	logger  *zap.Logger
	handler TurnHandler
	turns   chan turn

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
}

// NewTurnQueue creates a queue holding up to size pending utterances.
func NewTurnQueue(logger *zap.Logger, size int, handler TurnHandler) *TurnQueue {
	if size < 1 {
		size = 1
	}
	return &TurnQueue{
		logger:  logger.Named("turn_queue"),
		handler: handler,
		turns:   make(chan turn, size),
		done:    make(chan struct{}),
	}
}

// Start launches the consumer. Calling it more than once has no effect.
func (q *TurnQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.started = true
	go q.consume(ctx)
}

// Submit enqueues an utterance without blocking and returns its turn id.
func (q *TurnQueue) Submit(utterance string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || q.finished() {
		return "", ErrQueueStopped
	}

	t := turn{id: uuid.New().String(), utterance: utterance}
	select {
	case q.turns <- t:
		observability.QueueDepth.Set(float64(len(q.turns)))
		q.logger.Debug("Turn queued.", zap.String("turn_id", t.id), zap.Int("depth", len(q.turns)))
		return t.id, nil
	default:
		q.logger.Warn("Turn queue full, dropping utterance.", zap.Int("capacity", cap(q.turns)))
		return "", ErrQueueFull
	}
}

// Done is closed when the consumer exits, either because a turn ended the
// session or because its context was cancelled.
func (q *TurnQueue) Done() <-chan struct{} {
	return q.done
}

// Stop refuses further submissions, lets the consumer drain what is already
// queued and waits for it to exit.
func (q *TurnQueue) Stop() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.turns)
	}
	started := q.started
	q.mu.Unlock()

	if !started {
		return
	}
	q.logger.Info("Stopping turn queue... waiting for pending turns.")
	<-q.done
	q.logger.Info("Turn queue stopped.")
}

func (q *TurnQueue) finished() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

func (q *TurnQueue) consume(ctx context.Context) {
	defer close(q.done)
	defer observability.QueueDepth.Set(0)

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("Context cancelled, turn consumer shutting down.", zap.Error(ctx.Err()))
			return
		case t, ok := <-q.turns:
			if !ok {
				q.logger.Debug("Turn queue closed and drained.")
				return
			}
			observability.QueueDepth.Set(float64(len(q.turns)))

			logger := q.logger.With(zap.String("turn_id", t.id))
			logger.Debug("Processing turn.")
			if !q.handler(ctx, t.utterance) {
				logger.Info("Session ended by turn.")
				return
			}
		}
	}
}
