// Package worker drains the job queue.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"attendboard/internal/queue"
)

// Handler processes one message.
type Handler interface {
	Handle(ctx context.Context, msg queue.Message) error
}

// Worker consumes queue messages and hands them to a handler one at a time.
type Worker struct {
	queue   queue.Queue
	handler Handler
	log     *zap.Logger
	pause   time.Duration
}

// New creates a worker. pause is slept between messages.
func New(q queue.Queue, h Handler, log *zap.Logger, pause time.Duration) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{queue: q, handler: h, log: log, pause: pause}
}

// Run blocks until ctx is done. A failing message is logged and skipped.
func (w *Worker) Run(ctx context.Context) error {
	messages, err := w.queue.Consume(ctx)
	if err != nil {
		return fmt.Errorf("queue consume init failed: %w", err)
	}

	w.log.Info("worker started, waiting for messages")
	for msg := range messages {
		w.log.Debug("processing message", zap.String("type", msg.Type), zap.String("id", msg.ID))
		if err := w.handler.Handle(ctx, msg); err != nil {
			w.log.Warn("message failed", zap.String("type", msg.Type), zap.String("id", msg.ID), zap.Error(err))
		} else {
			w.log.Info("message processed", zap.String("type", msg.Type), zap.String("id", msg.ID))
		}
		if w.pause > 0 {
			select {
			case <-time.After(w.pause):
			case <-ctx.Done():
			}
		}
	}
	w.log.Info("worker stopped")
	return nil
}
