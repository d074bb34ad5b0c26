// Package telemetry publishes sync events to NATS JetStream.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/camdenhq/rapport/internal/model"
)

const streamName = "RAPPORT_EVENTS"

// Publisher wraps NATS JetStream for publishing sync events.
type Publisher struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the event stream exists.
func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	p := &Publisher{nc: nc, js: js}
	if err := p.ensureStream(); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) ensureStream() error {
	if info, err := p.js.StreamInfo(streamName); err == nil && info != nil {
		return nil
	}

	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:       streamName,
		Subjects:   []string{"user.*.>"},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		Duplicates: 10 * time.Minute,
		MaxAge:     30 * 24 * time.Hour,
	})
	if err != nil {
		if err == nats.ErrStreamNameAlreadyInUse {
			return nil
		}
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// SyncCompleted publishes a sync.completed event for the user. Publish
// failures are logged, not propagated; telemetry never fails a sync.
func (p *Publisher) SyncCompleted(ctx context.Context, userID string, report *model.SyncReport) {
	payload, err := json.Marshal(map[string]any{
		"event_id": uuid.NewString(),
		"ts":       time.Now().Unix(),
		"user_id":  userID,
		"report":   report,
	})
	if err != nil {
		log.Printf("telemetry: marshal sync.completed: %v", err)
		return
	}

	subject := fmt.Sprintf("user.%s.sync.completed", userID)
	if _, err := p.js.Publish(subject, payload, nats.MsgId(uuid.NewString())); err != nil {
		log.Printf("telemetry: publish %s: %v", subject, err)
	}
}

// Close closes the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// Noop is the sink used when NATS is not configured.
type Noop struct{}

func (Noop) SyncCompleted(ctx context.Context, userID string, report *model.SyncReport) {}
