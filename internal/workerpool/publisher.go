package workerpool

import (
	"context"
	"encoding/json"

	"mlbattle/internal/logger"
	"mlbattle/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	eventSubmission = "submission"
	eventProblem    = "problem"
)

// StreamPublisher pushes accepted submissions and lifecycle transitions onto
// a redis stream for the persistence workers. It implements lifecycle.Sink.
// Publish failures are logged and dropped: the in-memory core stays
// authoritative and delivery is only at-least-once anyway.
type StreamPublisher struct {
	rdb    *redis.Client
	stream string
}

func NewStreamPublisher(rdb *redis.Client, stream string) *StreamPublisher {
	return &StreamPublisher{rdb: rdb, stream: stream}
}

func (p *StreamPublisher) SubmissionAccepted(sub models.Submission) {
	p.publish(eventSubmission, sub.ID, sub)
}

func (p *StreamPublisher) ProblemChanged(problem models.Problem) {
	p.publish(eventProblem, problem.ID, problem)
}

func (p *StreamPublisher) publish(eventType, id string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Error("Failed to encode event payload",
			zap.String("event_type", eventType),
			zap.String("id", id),
			zap.Error(err))
		return
	}

	err = p.rdb.XAdd(context.Background(), &redis.XAddArgs{
		Stream: p.stream,
		ID:     "*",
		Values: map[string]interface{}{
			"event_type": eventType,
			"payload":    string(data),
		},
	}).Err()

	if err != nil {
		logger.Log.Error("Failed to publish event to stream",
			zap.String("event_type", eventType),
			zap.String("id", id),
			zap.Error(err))
	}
}
