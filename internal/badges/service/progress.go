package service

import (
	"context"
	"errors"
	"fmt"

	"laurel/internal/badges/metrics"
	"laurel/internal/badges/models"
	"laurel/pkg/platform/audit"
	"laurel/pkg/platform/sentinel"

	"github.com/google/uuid"
)

// ProgressOption tunes a progress save.
type ProgressOption func(*progressOpts)

type progressOpts struct {
	strict bool
	notes  map[string]any
}

// StrictCompletion makes a progress save fail with models.ErrAlreadyAwarded
// when the user already holds a unique badge. The default is quiet: progress
// against a held badge is a no-op and persists nothing.
func StrictCompletion() ProgressOption {
	return func(o *progressOpts) { o.strict = true }
}

// WithNotes merges caller bookkeeping into the progress row.
func WithNotes(notes map[string]any) ProgressOption {
	return func(o *progressOpts) { o.notes = notes }
}

// ProgressFor returns the pair's progress row, lazily constructing an
// unsaved zero-state row when none exists yet. Nothing is persisted until
// the first save.
func (s *Service) ProgressFor(ctx context.Context, badgeID, userID uuid.UUID) (*models.Progress, error) {
	if _, err := s.badges.GetByID(ctx, badgeID); err != nil {
		return nil, mapStoreErr(err, "load badge")
	}
	p, err := s.progress.GetByBadgeAndUser(ctx, badgeID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.NewProgress(badgeID, userID, s.now()), nil
		}
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return p, nil
}

// UpdatePercent sets the pair's completion percent. With a non-nil total the
// percent is computed as current/total*100, so callers can track word counts
// or step counts directly. Reaching 100 triggers a system award.
func (s *Service) UpdatePercent(ctx context.Context, badgeID, userID uuid.UUID, current float64, total *float64, opts ...ProgressOption) (*models.Progress, error) {
	percent := current
	if total != nil {
		if *total == 0 {
			return nil, fmt.Errorf("progress total cannot be zero")
		}
		percent = current / *total * 100
	}
	return s.saveProgress(ctx, badgeID, userID, func(p *models.Progress) {
		p.Percent = percent
	}, opts...)
}

// IncrementBy adds to the pair's free-form counter.
func (s *Service) IncrementBy(ctx context.Context, badgeID, userID uuid.UUID, amount float64, opts ...ProgressOption) (*models.Progress, error) {
	return s.saveProgress(ctx, badgeID, userID, func(p *models.Progress) {
		p.Counter += amount
	}, opts...)
}

// DecrementBy subtracts from the pair's counter, clamping at zero.
func (s *Service) DecrementBy(ctx context.Context, badgeID, userID uuid.UUID, amount float64, opts ...ProgressOption) (*models.Progress, error) {
	return s.saveProgress(ctx, badgeID, userID, func(p *models.Progress) {
		p.Counter -= amount
		if p.Counter < 0 {
			p.Counter = 0
		}
	}, opts...)
}

func (s *Service) saveProgress(ctx context.Context, badgeID, userID uuid.UUID, mutate func(*models.Progress), opts ...ProgressOption) (*models.Progress, error) {
	var o progressOpts
	for _, opt := range opts {
		opt(&o)
	}

	badge, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		return nil, mapStoreErr(err, "load badge")
	}

	p, err := s.ProgressFor(ctx, badgeID, userID)
	if err != nil {
		return nil, err
	}
	mutate(p)
	for k, v := range o.notes {
		p.Notes[k] = v
	}
	p.UpdatedAt = s.now()

	// Progress against an already-held unique badge never persists. Quiet
	// saves hand back the mutated, unsaved row.
	if badge.Unique {
		awarded, err := s.IsAwardedTo(ctx, badgeID, userID)
		if err != nil {
			return nil, err
		}
		if awarded {
			if o.strict {
				return nil, fmt.Errorf("badge %q: %w", badge.Slug, models.ErrAlreadyAwarded)
			}
			return p, nil
		}
	}

	if err := s.progress.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("save progress: %w", err)
	}
	p.Saved = true
	s.metrics.IncrementProgressUpdate()

	if !p.Complete() {
		return p, nil
	}

	// Crossing the threshold converts progress into a system award and
	// resets the row.
	award, created, err := s.issueAward(ctx, badge, userID, nil, "", "", metrics.OriginProgress)
	if err != nil {
		return nil, err
	}
	if !created {
		if o.strict {
			return nil, fmt.Errorf("badge %q: %w", badge.Slug, models.ErrAlreadyAwarded)
		}
		return p, nil
	}
	s.audit(audit.ActionProgressCompleted, badge.ID, nil, &userID, "")
	s.logger.InfoContext(ctx, "progress completed", "badge", badge.Slug, "user_id", userID, "award_id", award.ID)

	fresh := models.NewProgress(badgeID, userID, s.now())
	return fresh, nil
}
