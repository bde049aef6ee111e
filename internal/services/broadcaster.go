package services

import (
	"context"
	"errors"

	"fair-casino-backend/internal/models"
)

const EventRoundSettled = "ROUND_SETTLED"

// RoundPublisher is notified after a round has been committed. Delivery is
// best effort; a failed publish never affects the round.
type RoundPublisher interface {
	PublishRound(ctx context.Context, round *models.RoundRecord) error
}

// MultiPublisher fans a round out to several publishers.
type MultiPublisher []RoundPublisher

func (m MultiPublisher) PublishRound(ctx context.Context, round *models.RoundRecord) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.PublishRound(ctx, round); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopPublisher struct{}

func (noopPublisher) PublishRound(context.Context, *models.RoundRecord) error { return nil }
