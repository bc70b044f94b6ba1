package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"laurel/internal/badges/metrics"
	"laurel/internal/badges/models"
	"laurel/pkg/platform/audit"
	"laurel/pkg/platform/sentinel"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// AwardOption tunes a single award call.
type AwardOption func(*awardOpts)

type awardOpts struct {
	strict      bool
	description string
}

// StrictUnique makes awarding a unique badge to an existing holder fail with
// models.ErrAlreadyAwarded instead of quietly returning the existing award.
func StrictUnique() AwardOption {
	return func(o *awardOpts) { o.strict = true }
}

// WithDescription attaches a description to the award.
func WithDescription(description string) AwardOption {
	return func(o *awardOpts) { o.description = description }
}

// AwardTo issues a badge to a user on the actor's authority. For unique
// badges the default is lenient: a repeat award returns the holder's
// existing award.
func (s *Service) AwardTo(ctx context.Context, actor *models.User, badgeID, recipientID uuid.UUID, opts ...AwardOption) (*models.Award, error) {
	var o awardOpts
	for _, opt := range opts {
		opt(&o)
	}

	badge, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		return nil, mapStoreErr(err, "load badge")
	}
	if !badge.AllowsAwardTo(actor) {
		return nil, models.ErrNotAllowed
	}

	award, created, err := s.issueAward(ctx, badge, recipientID, actor, o.description, "", metrics.OriginDirect)
	if err != nil {
		return nil, err
	}
	if !created && o.strict {
		return nil, fmt.Errorf("badge %q: %w", badge.Slug, models.ErrAlreadyAwarded)
	}
	return award, nil
}

// issueAward is the single write path every award goes through: direct
// awards, progress completions, nomination awards, claim redemptions and the
// cascade. The storage layer is the authoritative uniqueness guard; on a
// lost race the existing award is returned with created=false.
func (s *Service) issueAward(ctx context.Context, badge *models.Badge, recipientID uuid.UUID, creator *models.User, description, claimCode, origin string) (*models.Award, bool, error) {
	start := time.Now()
	defer s.metrics.ObserveAward(start)

	now := s.now()
	award := &models.Award{
		ID:          uuid.New(),
		BadgeID:     badge.ID,
		UserID:      recipientID,
		Description: description,
		ClaimCode:   claimCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if creator != nil {
		creatorID := creator.ID
		award.CreatorID = &creatorID
	}

	s.notifier.AwardWillBeIssued(ctx, badge, award)

	// The insert and the progress reset land in one transaction: an award
	// must never commit with a stale progress row behind it.
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.awards.Create(ctx, award, badge.Unique); err != nil {
			return fmt.Errorf("create award: %w", err)
		}
		// A completed badge resets the pair's progress so a later read
		// starts from zero.
		if err := s.progress.DeleteByBadgeAndUser(ctx, badge.ID, recipientID); err != nil {
			return fmt.Errorf("reset progress: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.metrics.IncrementAwardRejected()
			existing, getErr := s.awards.GetByBadgeAndUser(ctx, badge.ID, recipientID)
			if getErr != nil {
				return nil, false, mapStoreErr(getErr, "load existing award")
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	s.notifier.AwardWasIssued(ctx, badge, award)
	s.metrics.IncrementAwardCreated(origin)
	s.audit(audit.ActionAwardCreated, badge.ID, creator, &recipientID, origin)
	s.logger.InfoContext(ctx, "badge awarded", "badge", badge.Slug, "user_id", recipientID, "origin", origin)

	if s.mailer != nil {
		if recipient, err := s.users.GetByID(ctx, recipientID); err == nil {
			if err := s.mailer.SendAwardNotice(ctx, recipient, badge); err != nil {
				s.logger.WarnContext(ctx, "award notice failed", "error", err, "badge", badge.Slug)
			}
		}
	}

	if err := s.cascadeFrom(ctx, badge, recipientID); err != nil {
		return nil, false, err
	}
	return award, true, nil
}

// cascadeFrom awards every metabadge whose prerequisites the user has now
// completed. Dependent badges are independent of one another, so the fan-out
// runs concurrently; recursion through issueAward covers chains of
// metabadges.
func (s *Service) cascadeFrom(ctx context.Context, badge *models.Badge, userID uuid.UUID) error {
	dependents, err := s.badges.ListByPrerequisite(ctx, badge.ID)
	if err != nil {
		return fmt.Errorf("list dependent badges: %w", err)
	}
	if len(dependents) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, dep := range dependents {
		dep := dep
		g.Go(func() error {
			if awarded, err := s.IsAwardedTo(gctx, dep.ID, userID); err != nil || awarded {
				return err
			}
			complete, err := s.PrerequisitesMet(gctx, dep, userID)
			if err != nil || !complete {
				return err
			}
			// System-issued: nil creator.
			_, created, err := s.issueAward(gctx, dep, userID, nil, "", "", metrics.OriginCascade)
			if err != nil {
				return err
			}
			if created {
				s.metrics.IncrementAwardCascaded()
				s.audit(audit.ActionAwardCascaded, dep.ID, nil, &userID, badge.Slug)
			}
			return nil
		})
	}
	return g.Wait()
}

// PrerequisitesMet reports whether the user holds an award for every
// prerequisite of the badge.
func (s *Service) PrerequisitesMet(ctx context.Context, badge *models.Badge, userID uuid.UUID) (bool, error) {
	if len(badge.Prerequisites) == 0 {
		return false, nil
	}
	for _, prereqID := range badge.Prerequisites {
		awarded, err := s.IsAwardedTo(ctx, prereqID, userID)
		if err != nil {
			return false, err
		}
		if !awarded {
			return false, nil
		}
	}
	return true, nil
}

// IsAwardedTo reports whether the user holds at least one award for the
// badge.
func (s *Service) IsAwardedTo(ctx context.Context, badgeID, userID uuid.UUID) (bool, error) {
	_, err := s.awards.GetByBadgeAndUser(ctx, badgeID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check award: %w", err)
	}
	return true, nil
}

// GetAward loads a single award.
func (s *Service) GetAward(ctx context.Context, awardID uuid.UUID) (*models.Award, error) {
	a, err := s.awards.GetByID(ctx, awardID)
	if err != nil {
		return nil, mapStoreErr(err, "load award")
	}
	return a, nil
}

// ListAwardsForUser returns the user's trophy case.
func (s *Service) ListAwardsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Award, error) {
	return s.awards.ListByUser(ctx, userID)
}

// ListAwardsForBadge returns a badge's awards, excluding those their holders
// have hidden from public view.
func (s *Service) ListAwardsForBadge(ctx context.Context, badgeID uuid.UUID) ([]*models.Award, error) {
	awards, err := s.awards.ListByBadge(ctx, badgeID)
	if err != nil {
		return nil, err
	}
	visible := awards[:0]
	for _, a := range awards {
		if !a.Hidden {
			visible = append(visible, a)
		}
	}
	return visible, nil
}

// SetAwardHidden toggles an award's visibility in public badge listings. The
// holder's own trophy case always shows everything.
func (s *Service) SetAwardHidden(ctx context.Context, actor *models.User, awardID uuid.UUID, hidden bool) (*models.Award, error) {
	award, err := s.awards.GetByID(ctx, awardID)
	if err != nil {
		return nil, mapStoreErr(err, "load award")
	}
	if !award.AllowsHideBy(actor) {
		return nil, models.ErrNotAllowed
	}
	if award.Hidden == hidden {
		return award, nil
	}
	award.Hidden = hidden
	award.UpdatedAt = s.now()
	if err := s.awards.Update(ctx, award); err != nil {
		return nil, mapStoreErr(err, "update award")
	}
	return award, nil
}

// DeleteAward revokes an award. Staff, superusers, the recipient and the
// badge creator may. Nominations that produced the award go with it.
func (s *Service) DeleteAward(ctx context.Context, actor *models.User, awardID uuid.UUID) error {
	award, err := s.awards.GetByID(ctx, awardID)
	if err != nil {
		return mapStoreErr(err, "load award")
	}
	badge, err := s.badges.GetByID(ctx, award.BadgeID)
	if err != nil {
		return mapStoreErr(err, "load badge")
	}
	if !award.AllowsDeleteBy(badge, actor) {
		return models.ErrNotAllowed
	}

	nominations, err := s.nominations.ListByBadge(ctx, badge.ID)
	if err != nil {
		return fmt.Errorf("list nominations: %w", err)
	}
	for _, n := range nominations {
		if n.AwardID != nil && *n.AwardID == awardID {
			if err := s.nominations.Delete(ctx, n.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				return fmt.Errorf("delete nomination: %w", err)
			}
		}
	}

	if err := s.awards.Delete(ctx, awardID); err != nil {
		return mapStoreErr(err, "delete award")
	}
	s.notifier.AwardWasRevoked(ctx, badge, award)
	s.audit(audit.ActionAwardDeleted, badge.ID, actor, &award.UserID, "")
	return nil
}
