package service

import (
	"context"
	"errors"
	"fmt"

	"laurel/internal/badges/metrics"
	"laurel/internal/badges/models"
	"laurel/pkg/claimcode"
	"laurel/pkg/platform/audit"
	"laurel/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// AwardToEmail awards a badge by email address. A registered address gets a
// direct award; an unknown one gets a deferred award and a claim invitation.
// For unique badges at most one invitation per (badge, email) is created;
// a repeat call returns the pending invitation.
func (s *Service) AwardToEmail(ctx context.Context, actor *models.User, badgeID uuid.UUID, address, description string) (*models.Award, *models.DeferredAward, error) {
	badge, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		return nil, nil, mapStoreErr(err, "load badge")
	}
	if !badge.AllowsAwardTo(actor) {
		return nil, nil, models.ErrNotAllowed
	}

	if recipient, err := s.users.GetByEmail(ctx, address); err == nil {
		award, _, err := s.issueAward(ctx, badge, recipient.ID, actor, description, "", metrics.OriginDirect)
		if err != nil {
			return nil, nil, err
		}
		return award, nil, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil, fmt.Errorf("look up recipient: %w", err)
	}

	// The address has no account yet; invite them once.
	alreadyInvited, err := s.deferred.ListByEmail(ctx, address)
	if err != nil {
		return nil, nil, fmt.Errorf("list pending invitations: %w", err)
	}

	code, err := claimcode.New()
	if err != nil {
		return nil, nil, fmt.Errorf("generate claim code: %w", err)
	}
	now := s.now()
	d := &models.DeferredAward{
		ID:          uuid.New(),
		BadgeID:     badgeID,
		Description: description,
		Email:       address,
		ClaimCode:   code,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if actor != nil {
		creatorID := actor.ID
		d.CreatorID = &creatorID
	}
	if err := s.deferred.Create(ctx, d, badge.Unique); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			for _, existing := range alreadyInvited {
				if existing.BadgeID == badgeID {
					return nil, existing, nil
				}
			}
			return nil, nil, fmt.Errorf("badge %q: %w", badge.Slug, models.ErrAlreadyAwarded)
		}
		return nil, nil, fmt.Errorf("create deferred award: %w", err)
	}
	s.audit(audit.ActionDeferredCreated, badgeID, actor, nil, address)

	// One invitation per address: a recipient with other codes pending has
	// already been told how claiming works.
	if s.mailer != nil && len(alreadyInvited) == 0 {
		if err := s.mailer.SendClaimInvitation(ctx, address, badge, d.ClaimCode); err != nil {
			s.logger.WarnContext(ctx, "claim invitation failed", "error", err, "badge", badge.Slug)
		}
	}
	return nil, d, nil
}

// GenerateClaimGroup mints a batch of unaddressed single-use claim codes
// under one random group handle, for printing or bulk distribution.
func (s *Service) GenerateClaimGroup(ctx context.Context, actor *models.User, badgeID uuid.UUID, count int, reusable bool) ([]*models.DeferredAward, error) {
	if count <= 0 {
		return nil, fmt.Errorf("claim group size must be positive")
	}
	badge, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		return nil, mapStoreErr(err, "load badge")
	}
	if !badge.AllowsManageDeferredBy(actor) {
		return nil, models.ErrNotAllowed
	}

	group, err := claimcode.New()
	if err != nil {
		return nil, fmt.Errorf("generate claim group handle: %w", err)
	}
	out := make([]*models.DeferredAward, 0, count)
	for i := 0; i < count; i++ {
		code, err := claimcode.New()
		if err != nil {
			return nil, fmt.Errorf("generate claim code: %w", err)
		}
		now := s.now()
		d := &models.DeferredAward{
			ID:         uuid.New(),
			BadgeID:    badgeID,
			Reusable:   reusable,
			ClaimCode:  code,
			ClaimGroup: group,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if actor != nil {
			creatorID := actor.ID
			d.CreatorID = &creatorID
		}
		if err := s.deferred.Create(ctx, d, false); err != nil {
			return nil, fmt.Errorf("create deferred award: %w", err)
		}
		out = append(out, d)
	}
	s.audit(audit.ActionDeferredCreated, badgeID, actor, nil, fmt.Sprintf("group %s (%d codes)", group, count))
	return out, nil
}

// GetByClaimCode resolves a code for preview before claiming. Lookups count
// against the actor's throttle budget; codes are short enough to guess.
func (s *Service) GetByClaimCode(ctx context.Context, actor *models.User, code string) (*models.DeferredAward, error) {
	if err := s.allowClaimAttempt(ctx, actor); err != nil {
		return nil, err
	}
	d, err := s.deferred.GetByClaimCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementClaimAttempt(metrics.OutcomeNotFound)
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("look up claim code: %w", err)
	}
	return d, nil
}

// ClaimByCode redeems a claim code for the actor. A non-reusable code is
// consumed by the attempt even when the redemption itself lands nowhere, so
// a code cannot be retried into a different outcome. A claimant who already
// holds the badge gets a nil award back, not an error.
func (s *Service) ClaimByCode(ctx context.Context, actor *models.User, code string) (*models.Award, error) {
	if actor == nil {
		return nil, models.ErrNotAllowed
	}
	if err := s.allowClaimAttempt(ctx, actor); err != nil {
		return nil, err
	}

	d, err := s.deferred.GetByClaimCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementClaimAttempt(metrics.OutcomeNotFound)
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("look up claim code: %w", err)
	}
	return s.claim(ctx, d, actor)
}

// ClaimPendingByEmail redeems every deferred award addressed to the user's
// email. Hosts call this when an account is created or an email verified;
// each claim is best-effort, one held badge must not block the rest.
func (s *Service) ClaimPendingByEmail(ctx context.Context, user *models.User) ([]*models.Award, error) {
	if user == nil {
		return nil, models.ErrNotAllowed
	}
	pending, err := s.deferred.ListByEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("list pending claims: %w", err)
	}
	var out []*models.Award
	for _, d := range pending {
		award, err := s.claim(ctx, d, user)
		if err != nil {
			return out, err
		}
		if award == nil {
			continue
		}
		out = append(out, award)
	}
	return out, nil
}

// claim converts one deferred award into a real award for the claimant. The
// deferred creator stays on record as the award's creator; the code travels
// onto the award for traceability. A non-reusable row self-destructs no
// matter how the redemption went.
func (s *Service) claim(ctx context.Context, d *models.DeferredAward, claimant *models.User) (*models.Award, error) {
	badge, err := s.badges.GetByID(ctx, d.BadgeID)
	if err != nil {
		return nil, mapStoreErr(err, "load badge")
	}
	if !d.AllowsClaimBy(claimant) {
		return nil, models.ErrNotAllowed
	}

	if !d.Reusable {
		defer func() {
			if err := s.deferred.Delete(ctx, d.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
				s.logger.WarnContext(ctx, "consume claim code failed", "error", err, "claim_code", d.ClaimCode)
			}
		}()
	}

	var creator *models.User
	if d.CreatorID != nil {
		if u, err := s.users.GetByID(ctx, *d.CreatorID); err == nil {
			creator = u
		}
	}
	award, created, err := s.issueAward(ctx, badge, claimant.ID, creator, d.Description, d.ClaimCode, metrics.OriginClaim)
	if err != nil {
		return nil, err
	}
	if !created {
		// The claimant already holds the badge. The code is spent, the
		// redemption itself is a no-op.
		s.metrics.IncrementClaimAttempt(metrics.OutcomeRejected)
		return nil, nil
	}

	s.notifier.DeferredAwardWasClaimed(ctx, badge, d, claimant)
	s.metrics.IncrementClaimAttempt(metrics.OutcomeClaimed)
	s.audit(audit.ActionDeferredClaimed, badge.ID, claimant, &claimant.ID, d.ClaimCode)
	return award, nil
}

// GrantTo re-addresses a deferred award to another email. A reusable code
// spawns an addressed sibling with a fresh code; a single-use one moves in
// place, also under a fresh code so the old invitation dies.
func (s *Service) GrantTo(ctx context.Context, actor *models.User, deferredID uuid.UUID, address string) (*models.DeferredAward, error) {
	d, err := s.deferred.GetByID(ctx, deferredID)
	if err != nil {
		return nil, mapStoreErr(err, "load deferred award")
	}
	badge, err := s.badges.GetByID(ctx, d.BadgeID)
	if err != nil {
		return nil, mapStoreErr(err, "load badge")
	}
	if !d.AllowsGrantBy(badge, actor) {
		return nil, models.ErrGrantNotAllowed
	}

	code, err := claimcode.New()
	if err != nil {
		return nil, fmt.Errorf("generate claim code: %w", err)
	}
	now := s.now()

	target := d
	if d.Reusable {
		target = &models.DeferredAward{
			ID:          uuid.New(),
			BadgeID:     d.BadgeID,
			Description: d.Description,
			CreatorID:   d.CreatorID,
			CreatedAt:   now,
		}
	}
	target.Email = address
	target.ClaimCode = code
	target.UpdatedAt = now

	if d.Reusable {
		err = s.deferred.Create(ctx, target, badge.Unique)
	} else {
		err = s.deferred.Update(ctx, target)
	}
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, fmt.Errorf("badge %q: %w", badge.Slug, models.ErrAlreadyAwarded)
		}
		return nil, fmt.Errorf("grant deferred award: %w", err)
	}

	s.audit(audit.ActionDeferredGranted, badge.ID, actor, nil, address)
	if s.mailer != nil {
		if err := s.mailer.SendClaimInvitation(ctx, address, badge, target.ClaimCode); err != nil {
			s.logger.WarnContext(ctx, "claim invitation failed", "error", err, "badge", badge.Slug)
		}
	}
	return target, nil
}

// ListClaimGroups summarizes a badge's generated code batches.
func (s *Service) ListClaimGroups(ctx context.Context, actor *models.User, badgeID uuid.UUID) ([]models.ClaimGroupSummary, error) {
	badge, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		return nil, mapStoreErr(err, "load badge")
	}
	if !badge.AllowsManageDeferredBy(actor) {
		return nil, models.ErrNotAllowed
	}
	return s.deferred.ListClaimGroups(ctx, badgeID)
}

// DeleteClaimGroup retires an entire batch of codes.
func (s *Service) DeleteClaimGroup(ctx context.Context, actor *models.User, badgeID uuid.UUID, claimGroup string) (int, error) {
	badge, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		return 0, mapStoreErr(err, "load badge")
	}
	if !badge.AllowsManageDeferredBy(actor) {
		return 0, models.ErrNotAllowed
	}
	removed, err := s.deferred.DeleteClaimGroup(ctx, badgeID, claimGroup)
	if err != nil {
		return 0, fmt.Errorf("delete claim group: %w", err)
	}
	s.audit(audit.ActionDeferredDeleted, badgeID, actor, nil, fmt.Sprintf("group %s retired (%d codes)", claimGroup, removed))
	return removed, nil
}

// ListDeferredForBadge returns a badge's pending deferred awards.
func (s *Service) ListDeferredForBadge(ctx context.Context, actor *models.User, badgeID uuid.UUID) ([]*models.DeferredAward, error) {
	badge, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		return nil, mapStoreErr(err, "load badge")
	}
	if !badge.AllowsManageDeferredBy(actor) {
		return nil, models.ErrNotAllowed
	}
	return s.deferred.ListByBadge(ctx, badgeID)
}

func (s *Service) allowClaimAttempt(ctx context.Context, actor *models.User) error {
	if s.throttle == nil || actor == nil {
		return nil
	}
	ok, err := s.throttle.Allow(ctx, actor.ID)
	if err != nil {
		// A broken limiter must not take claiming down with it.
		s.logger.WarnContext(ctx, "claim throttle unavailable", "error", err)
		return nil
	}
	if !ok {
		s.metrics.IncrementClaimAttempt(metrics.OutcomeThrottled)
		return models.ErrClaimThrottled
	}
	return nil
}
