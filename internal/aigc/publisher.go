package aigc

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
)

// taskEnvelope is the queue message body for one generation task.
type taskEnvelope struct {
	TaskID string `json:"task_id"`
}

// PubSubPublisher enqueues generation tasks on the configured topic.
type PubSubPublisher struct {
	publisher *pubsub.Publisher
}

// NewPubSubPublisher wraps a Pub/Sub publisher handle.
func NewPubSubPublisher(publisher *pubsub.Publisher) (*PubSubPublisher, error) {
	if publisher == nil {
		return nil, fmt.Errorf("pubsub publisher required")
	}
	return &PubSubPublisher{publisher: publisher}, nil
}

// PublishTask blocks until the broker acknowledges the message.
func (p *PubSubPublisher) PublishTask(ctx context.Context, taskID uuid.UUID) error {
	data, err := json.Marshal(taskEnvelope{TaskID: taskID.String()})
	if err != nil {
		return fmt.Errorf("marshal task envelope: %w", err)
	}
	result := p.publisher.Publish(ctx, &pubsub.Message{Data: data})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish task %s: %w", taskID, err)
	}
	return nil
}
