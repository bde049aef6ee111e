package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"fair-casino-backend/internal/models"
)

// RoundEvent is the envelope published for every settled round.
type RoundEvent struct {
	Type      string              `json:"type"`
	Data      *models.RoundRecord `json:"data"`
	Timestamp int64               `json:"timestamp"`
}

// NATSPublisher emits settled rounds to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(natsURL, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(natsURL, nats.Name("fair-casino-backend"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{
		conn:    conn,
		subject: subject,
	}, nil
}

func (p *NATSPublisher) PublishRound(_ context.Context, round *models.RoundRecord) error {
	data, err := json.Marshal(RoundEvent{
		Type:      EventRoundSettled,
		Data:      round,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}
