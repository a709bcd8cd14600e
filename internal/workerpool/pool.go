package workerpool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mlbattle/internal/logger"
	"mlbattle/internal/models"
	"mlbattle/internal/repositories"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PersistWorker drains the event stream and writes each event into MySQL.
// Upserts are keyed by id, so redelivered messages are harmless.
type PersistWorker struct {
	id       string
	quit     chan bool
	rdb      *redis.Client
	stream   string
	group    string
	subsRepo repositories.SubmissionRepository
}

func NewPersistWorker(id string, rdb *redis.Client, stream, group string,
	subsRepo repositories.SubmissionRepository) *PersistWorker {
	return &PersistWorker{
		id:       id,
		quit:     make(chan bool),
		rdb:      rdb,
		stream:   stream,
		group:    group,
		subsRepo: subsRepo,
	}
}

// Start begins processing events from the stream
func (w *PersistWorker) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-w.quit:
				return
			default:
				entries, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
					Group:    w.group,
					Consumer: w.id,
					Streams:  []string{w.stream, ">"},
					Count:    1,
					Block:    5 * time.Second,
				}).Result()

				if err != nil {
					if err != redis.Nil {
						logger.Log.Error("Redis operation failed",
							zap.String("worker_id", w.id),
							zap.Error(err))
					}
					continue
				}

				for _, stream := range entries {
					for _, msg := range stream.Messages {
						w.processEvent(ctx, msg)
					}
				}
			}
		}
	}()
}

func (w *PersistWorker) Stop() {
	logger.Log.Info("Closing worker",
		zap.String("worker_id", w.id))
	w.quit <- true
	close(w.quit)
}

func (w *PersistWorker) processEvent(ctx context.Context, msg redis.XMessage) {
	eventType, ok := msg.Values["event_type"].(string)
	if !ok {
		logger.Log.Error("Invalid event type in message",
			zap.String("worker_id", w.id),
			zap.Any("values", msg.Values))
		w.ack(ctx, msg.ID)
		return
	}

	payload, ok := msg.Values["payload"].(string)
	if !ok {
		logger.Log.Error("Missing event payload in message",
			zap.String("worker_id", w.id),
			zap.String("event_type", eventType))
		w.ack(ctx, msg.ID)
		return
	}

	var err error
	switch eventType {
	case eventSubmission:
		var sub models.Submission
		if err = json.Unmarshal([]byte(payload), &sub); err == nil {
			err = w.subsRepo.UpsertSubmission(ctx, sub)
		}
	case eventProblem:
		var problem models.Problem
		if err = json.Unmarshal([]byte(payload), &problem); err == nil {
			err = w.subsRepo.UpsertProblem(ctx, problem)
		}
	default:
		logger.Log.Warn("Unknown event type",
			zap.String("worker_id", w.id),
			zap.String("event_type", eventType))
	}

	if err != nil {
		// Leave the message unacked so another delivery retries the write.
		logger.Log.Error("Failed to persist event",
			zap.String("worker_id", w.id),
			zap.String("event_type", eventType),
			zap.Error(err))
		return
	}

	w.ack(ctx, msg.ID)
}

func (w *PersistWorker) ack(ctx context.Context, msgID string) {
	if err := w.rdb.XAck(ctx, w.stream, w.group, msgID).Err(); err != nil {
		logger.Log.Error("Failed to acknowledge event",
			zap.String("worker_id", w.id),
			zap.Error(err))
	}
}

type PersistWorkerPool struct {
	workers    []*PersistWorker
	numWorkers int
	rdb        *redis.Client
	stream     string
	group      string
	subsRepo   repositories.SubmissionRepository
}

func NewPersistWorkerPool(numWorkers int, rdb *redis.Client, stream, group string,
	subsRepo repositories.SubmissionRepository) *PersistWorkerPool {
	return &PersistWorkerPool{
		workers:    make([]*PersistWorker, numWorkers),
		numWorkers: numWorkers,
		rdb:        rdb,
		stream:     stream,
		group:      group,
		subsRepo:   subsRepo,
	}
}

func (p *PersistWorkerPool) Start(ctx context.Context) error {
	// Create consumer group if it doesn't exist
	_, err := p.rdb.XGroupCreateMkStream(ctx, p.stream, p.group, "$").Result()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for i := 0; i < p.numWorkers; i++ {
		worker := NewPersistWorker(
			fmt.Sprintf("PersistWorker-%d", i+1),
			p.rdb,
			p.stream,
			p.group,
			p.subsRepo,
		)

		worker.Start(ctx)
		p.workers[i] = worker

		logger.Log.Info("Starting persistence worker",
			zap.String("worker_id", worker.id))
	}

	logger.Log.Info("Persistence worker pool started",
		zap.Int("num_workers", p.numWorkers))

	return nil
}

// Stop terminates all workers in the pool
func (p *PersistWorkerPool) Stop() {
	for _, worker := range p.workers {
		worker.Stop()
	}
}
