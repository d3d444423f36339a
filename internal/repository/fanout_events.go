package repository

import (
	"context"
	"errors"

	"WorthWatch/internal/domain/models"
	domrepo "WorthWatch/internal/domain/repository"
)

// FanoutPublisher delivers each event to every member publisher. All members
// are attempted; errors are joined rather than short-circuiting, so one dead
// sink does not silence the others.
type FanoutPublisher struct {
	members []domrepo.EventPublisher
}

func NewFanoutPublisher(members ...domrepo.EventPublisher) *FanoutPublisher {
	kept := make([]domrepo.EventPublisher, 0, len(members))
	for _, m := range members {
		if m != nil {
			kept = append(kept, m)
		}
	}
	return &FanoutPublisher{members: kept}
}

func (p *FanoutPublisher) Publish(ctx context.Context, e *models.Event) error {
	var errs []error
	for _, m := range p.members {
		if err := m.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *FanoutPublisher) Close() error {
	var errs []error
	for _, m := range p.members {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ domrepo.EventPublisher = (*FanoutPublisher)(nil)
