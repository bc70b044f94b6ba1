package service

import (
	"context"
	"fmt"

	"laurel/internal/badges/metrics"
	"laurel/internal/badges/models"
	"laurel/pkg/platform/audit"

	"github.com/google/uuid"
)

// Nominate proposes a user for a badge. For unique badges a nomination of
// an existing holder always fails; there is no lenient path here, a
// nomination for a held badge is meaningless.
func (s *Service) Nominate(ctx context.Context, actor *models.User, badgeID, nomineeID uuid.UUID) (*models.Nomination, error) {
	badge, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		return nil, mapStoreErr(err, "load badge")
	}
	if !badge.AllowsNominateFor(actor) {
		return nil, models.ErrNotAllowed
	}
	if badge.Unique {
		awarded, err := s.IsAwardedTo(ctx, badgeID, nomineeID)
		if err != nil {
			return nil, err
		}
		if awarded {
			return nil, fmt.Errorf("badge %q: %w", badge.Slug, models.ErrAlreadyAwarded)
		}
	}

	now := s.now()
	n := &models.Nomination{
		ID:        uuid.New(),
		BadgeID:   badgeID,
		NomineeID: nomineeID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if actor != nil {
		creatorID := actor.ID
		n.CreatorID = &creatorID
	}
	if err := s.nominations.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create nomination: %w", err)
	}

	s.notifier.NominationWasCreated(ctx, badge, n)
	s.metrics.IncrementNominationCreated()
	s.audit(audit.ActionNominationCreated, badgeID, actor, &nomineeID, "")

	if s.mailer != nil {
		if nominee, err := s.users.GetByID(ctx, nomineeID); err == nil {
			if err := s.mailer.SendNominationNotice(ctx, nominee, badge); err != nil {
				s.logger.WarnContext(ctx, "nomination notice failed", "error", err, "badge", badge.Slug)
			}
		}
	}

	// Badges with auto-approval skip the creator's confirmation step; the
	// badge creator is recorded as approver, falling back to the nominator
	// for ownerless badges.
	if badge.NominationsAutoApproved {
		approverID := n.CreatorID
		if badge.CreatorID != nil {
			approverID = badge.CreatorID
		}
		n.ApproverID = approverID
		n.UpdatedAt = s.now()
		if err := s.saveNomination(ctx, badge, n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// ApproveNomination confirms the badge side of a nomination. Approval and
// acceptance commute: whichever lands second creates the award.
func (s *Service) ApproveNomination(ctx context.Context, actor *models.User, nominationID uuid.UUID) (*models.Nomination, error) {
	n, badge, err := s.loadNomination(ctx, nominationID)
	if err != nil {
		return nil, err
	}
	if !n.AllowsApproveBy(badge, actor) {
		return nil, models.ErrNotAllowed
	}

	s.notifier.NominationWillBeApproved(ctx, badge, n)
	if actor != nil {
		approverID := actor.ID
		n.ApproverID = &approverID
	} else if badge.CreatorID != nil {
		n.ApproverID = badge.CreatorID
	} else {
		n.ApproverID = &n.NomineeID
	}
	n.UpdatedAt = s.now()
	if err := s.saveNomination(ctx, badge, n); err != nil {
		return nil, err
	}
	s.notifier.NominationWasApproved(ctx, badge, n)
	s.audit(audit.ActionNominationApproved, badge.ID, actor, &n.NomineeID, "")
	return n, nil
}

// AcceptNomination confirms the nominee's side.
func (s *Service) AcceptNomination(ctx context.Context, actor *models.User, nominationID uuid.UUID) (*models.Nomination, error) {
	n, badge, err := s.loadNomination(ctx, nominationID)
	if err != nil {
		return nil, err
	}
	if !n.AllowsAccept(actor) {
		return nil, models.ErrNotAllowed
	}

	s.notifier.NominationWillBeAccepted(ctx, badge, n)
	n.Accepted = true
	n.UpdatedAt = s.now()
	if err := s.saveNomination(ctx, badge, n); err != nil {
		return nil, err
	}
	s.notifier.NominationWasAccepted(ctx, badge, n)
	s.audit(audit.ActionNominationAccepted, badge.ID, actor, &n.NomineeID, "")
	return n, nil
}

// RejectNomination terminates a nomination with a reason. Rejection is
// final; an approved nomination can no longer be rejected.
func (s *Service) RejectNomination(ctx context.Context, actor *models.User, nominationID uuid.UUID, reason string) (*models.Nomination, error) {
	n, badge, err := s.loadNomination(ctx, nominationID)
	if err != nil {
		return nil, err
	}
	if !n.AllowsRejectBy(badge, actor) {
		return nil, models.ErrNotAllowed
	}

	rejectedBy := n.NomineeID
	if actor != nil {
		rejectedBy = actor.ID
	}
	n.RejectedByID = &rejectedBy
	n.RejectedReason = reason
	n.UpdatedAt = s.now()
	if err := s.nominations.Update(ctx, n); err != nil {
		return nil, mapStoreErr(err, "update nomination")
	}
	s.notifier.NominationWasRejected(ctx, badge, n)
	s.audit(audit.ActionNominationRejected, badge.ID, actor, &n.NomineeID, reason)
	return n, nil
}

// GetNomination loads a single nomination.
func (s *Service) GetNomination(ctx context.Context, nominationID uuid.UUID) (*models.Nomination, error) {
	n, _, err := s.loadNomination(ctx, nominationID)
	return n, err
}

// ListNominationsForBadge returns a badge's nominations.
func (s *Service) ListNominationsForBadge(ctx context.Context, badgeID uuid.UUID) ([]*models.Nomination, error) {
	return s.nominations.ListByBadge(ctx, badgeID)
}

// ListNominationsForNominee returns a user's incoming nominations.
func (s *Service) ListNominationsForNominee(ctx context.Context, nomineeID uuid.UUID) ([]*models.Nomination, error) {
	return s.nominations.ListByNominee(ctx, nomineeID)
}

func (s *Service) loadNomination(ctx context.Context, nominationID uuid.UUID) (*models.Nomination, *models.Badge, error) {
	n, err := s.nominations.GetByID(ctx, nominationID)
	if err != nil {
		return nil, nil, mapStoreErr(err, "load nomination")
	}
	badge, err := s.badges.GetByID(ctx, n.BadgeID)
	if err != nil {
		return nil, nil, mapStoreErr(err, "load badge")
	}
	return n, badge, nil
}

// saveNomination persists the nomination and, once both confirmations hold,
// converts it into an award exactly once. The award's creator is the
// approver; AwardID guards idempotence across repeated saves.
func (s *Service) saveNomination(ctx context.Context, badge *models.Badge, n *models.Nomination) error {
	if n.ReadyToAward() {
		var approver *models.User
		if n.ApproverID != nil {
			if u, err := s.users.GetByID(ctx, *n.ApproverID); err == nil {
				approver = u
			}
		}
		award, _, err := s.issueAward(ctx, badge, n.NomineeID, approver, "", "", metrics.OriginNomination)
		if err != nil {
			return err
		}
		awardID := award.ID
		n.AwardID = &awardID
	}
	if err := s.nominations.Update(ctx, n); err != nil {
		return mapStoreErr(err, "update nomination")
	}
	return nil
}
