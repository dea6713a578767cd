package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrPermanent marks a job failure that retrying cannot fix. Such messages go
// straight to the dead letter list.
var ErrPermanent = errors.New("permanent job failure")

// Permanent wraps err so the queue skips retries.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Publisher enqueues work for a registered job type.
type Publisher interface {
	PublishMessage(ctx context.Context, msgType string, payload any) error
}

// QueueConfig contains the configuration for the queue
type QueueConfig struct {
	Workers    int           // number of workers
	RetryLimit int           // retries before the message goes to the dead letter list
	RetryDelay time.Duration // delay before a failed message is retried
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// ParsePayload decodes a job payload into T.
func ParsePayload[T any](payload json.RawMessage) (*T, error) {
	var result T
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, Permanent(fmt.Errorf("unmarshal payload into %T: %w", result, err))
	}
	return &result, nil
}
