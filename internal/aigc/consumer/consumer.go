package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/musebox/musebox-backend/internal/aigc"
	pkgerrors "github.com/musebox/musebox-backend/pkg/errors"
	"github.com/musebox/musebox-backend/pkg/logger"
)

type taskRunner interface {
	Run(ctx context.Context, taskID uuid.UUID) error
}

// Consumer pulls generation task messages and hands them to the orchestrator.
type Consumer struct {
	runner       taskRunner
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer constructs a consumer that watches the provided subscription.
func NewConsumer(runner taskRunner, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if runner == nil {
		return nil, errors.New("task runner is required")
	}
	if subscription == nil {
		return nil, errors.New("generation subscription is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		runner:       runner,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run processes messages until the context is canceled or the subscription errors.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

type taskEnvelope struct {
	TaskID string `json:"task_id"`
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	fields := map[string]any{"message_id": msg.ID}
	logCtx := c.logg.WithFields(ctx, fields)

	var envelope taskEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to unmarshal task envelope", err)
		return processResult{ack: true}
	}
	if strings.TrimSpace(envelope.TaskID) == "" {
		c.logg.Error(logCtx, "task envelope missing task id", errors.New("empty task_id"))
		return processResult{ack: true}
	}

	taskID, err := uuid.Parse(envelope.TaskID)
	if err != nil {
		c.logg.Error(logCtx, "task envelope has malformed task id", err)
		return processResult{ack: true}
	}

	fields["task_id"] = taskID.String()
	logCtx = c.logg.WithFields(ctx, fields)

	if err := c.runner.Run(logCtx, taskID); err != nil {
		return c.handleRunError(logCtx, err)
	}

	c.logg.Info(logCtx, "generation task processed")
	return processResult{ack: true}
}

// handleRunError nacks only transient infrastructure failures. The runner has
// already exhausted its own retries for provider errors, and the task row
// records the terminal failure, so redelivery would add nothing.
func (c *Consumer) handleRunError(ctx context.Context, err error) processResult {
	c.logg.Error(ctx, "generation task run failed", err)
	if isTransientInfraError(err) {
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

func isTransientInfraError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeDependency {
		return true
	}
	return false
}

var _ taskRunner = (*aigc.Orchestrator)(nil)
