package service

import (
	"context"

	"laurel/internal/badges/models"
)

// Notifier observes badge lifecycle transitions. The will-be hooks fire
// before persistence, the was hooks after; hosts hang activity feeds and
// integrations off them. Hooks run synchronously on the calling goroutine
// and must not block.
type Notifier interface {
	AwardWillBeIssued(ctx context.Context, badge *models.Badge, award *models.Award)
	AwardWasIssued(ctx context.Context, badge *models.Badge, award *models.Award)
	AwardWasRevoked(ctx context.Context, badge *models.Badge, award *models.Award)
	NominationWasCreated(ctx context.Context, badge *models.Badge, nomination *models.Nomination)
	NominationWillBeApproved(ctx context.Context, badge *models.Badge, nomination *models.Nomination)
	NominationWasApproved(ctx context.Context, badge *models.Badge, nomination *models.Nomination)
	NominationWillBeAccepted(ctx context.Context, badge *models.Badge, nomination *models.Nomination)
	NominationWasAccepted(ctx context.Context, badge *models.Badge, nomination *models.Nomination)
	NominationWasRejected(ctx context.Context, badge *models.Badge, nomination *models.Nomination)
	DeferredAwardWasClaimed(ctx context.Context, badge *models.Badge, deferred *models.DeferredAward, claimant *models.User)
}

// NoopNotifier is the default observer.
type NoopNotifier struct{}

func (NoopNotifier) AwardWillBeIssued(context.Context, *models.Badge, *models.Award)             {}
func (NoopNotifier) AwardWasIssued(context.Context, *models.Badge, *models.Award)                {}
func (NoopNotifier) AwardWasRevoked(context.Context, *models.Badge, *models.Award)               {}
func (NoopNotifier) NominationWasCreated(context.Context, *models.Badge, *models.Nomination)     {}
func (NoopNotifier) NominationWillBeApproved(context.Context, *models.Badge, *models.Nomination) {}
func (NoopNotifier) NominationWasApproved(context.Context, *models.Badge, *models.Nomination)    {}
func (NoopNotifier) NominationWillBeAccepted(context.Context, *models.Badge, *models.Nomination) {}
func (NoopNotifier) NominationWasAccepted(context.Context, *models.Badge, *models.Nomination)    {}
func (NoopNotifier) NominationWasRejected(context.Context, *models.Badge, *models.Nomination)    {}
func (NoopNotifier) DeferredAwardWasClaimed(context.Context, *models.Badge, *models.DeferredAward, *models.User) {
}
