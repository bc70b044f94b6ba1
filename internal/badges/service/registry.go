package service

import (
	"context"
	"errors"
	"fmt"

	"laurel/internal/badges/models"
	"laurel/pkg/platform/audit"
	"laurel/pkg/platform/sentinel"
	pstrings "laurel/pkg/platform/strings"

	"github.com/google/uuid"
)

// BadgeParams carries the caller-editable fields of a badge.
type BadgeParams struct {
	Title                   string
	Slug                    string
	Description             string
	Unique                  bool
	NominationsAccepted     bool
	NominationsAutoApproved bool
	Prerequisites           []uuid.UUID
}

// CreateBadge registers a new badge owned by the actor. A nil actor creates
// a site-issued badge with no owner.
func (s *Service) CreateBadge(ctx context.Context, actor *models.User, params BadgeParams) (*models.Badge, error) {
	b, err := models.NewBadge(uuid.New(), params.Title, params.Slug, actor, s.now())
	if err != nil {
		return nil, err
	}
	b.Description = params.Description
	b.Unique = params.Unique
	b.NominationsAccepted = params.NominationsAccepted
	b.NominationsAutoApproved = params.NominationsAutoApproved
	b.Prerequisites = params.Prerequisites

	if err := s.validatePrerequisites(ctx, b); err != nil {
		return nil, err
	}
	if err := s.badges.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create badge %q: %w", b.Slug, err)
	}

	s.logger.InfoContext(ctx, "badge created", "badge", b.Slug)
	s.audit(audit.ActionBadgeCreated, b.ID, actor, nil, b.Slug)
	return b, nil
}

// EditBadge updates a badge. Only staff, superusers and the creator may.
func (s *Service) EditBadge(ctx context.Context, actor *models.User, badgeID uuid.UUID, params BadgeParams) (*models.Badge, error) {
	b, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		return nil, mapStoreErr(err, "load badge")
	}
	if !b.AllowsEditBy(actor) {
		return nil, models.ErrNotAllowed
	}

	if params.Title != "" {
		b.Title = params.Title
	}
	if params.Slug != "" {
		b.Slug = params.Slug
	}
	b.Description = params.Description
	b.Unique = params.Unique
	b.NominationsAccepted = params.NominationsAccepted
	b.NominationsAutoApproved = params.NominationsAutoApproved
	b.Prerequisites = params.Prerequisites
	b.UpdatedAt = s.now()

	if err := s.validatePrerequisites(ctx, b); err != nil {
		return nil, err
	}
	if err := s.badges.Update(ctx, b); err != nil {
		return nil, mapStoreErr(err, "update badge")
	}

	s.audit(audit.ActionBadgeEdited, b.ID, actor, nil, b.Slug)
	return b, nil
}

// DeleteBadge removes a badge and everything hanging off it: awards,
// progress rows, nominations, deferred codes and prerequisite edges in other
// badges.
func (s *Service) DeleteBadge(ctx context.Context, actor *models.User, badgeID uuid.UUID) error {
	b, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		return mapStoreErr(err, "load badge")
	}
	if !b.AllowsDeleteBy(actor) {
		return models.ErrNotAllowed
	}

	awards, err := s.awards.ListByBadge(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("list awards for deletion: %w", err)
	}
	for _, a := range awards {
		if err := s.awards.Delete(ctx, a.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("delete award: %w", err)
		}
		if err := s.progress.DeleteByBadgeAndUser(ctx, badgeID, a.UserID); err != nil {
			return fmt.Errorf("delete progress: %w", err)
		}
	}
	nominations, err := s.nominations.ListByBadge(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("list nominations for deletion: %w", err)
	}
	for _, n := range nominations {
		if err := s.nominations.Delete(ctx, n.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("delete nomination: %w", err)
		}
	}
	pending, err := s.deferred.ListByBadge(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("list deferred awards for deletion: %w", err)
	}
	for _, d := range pending {
		if err := s.deferred.Delete(ctx, d.ID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("delete deferred award: %w", err)
		}
	}

	// Unlink the badge from any metabadge that required it.
	dependents, err := s.badges.ListByPrerequisite(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("list dependent badges: %w", err)
	}
	for _, dep := range dependents {
		kept := dep.Prerequisites[:0]
		for _, p := range dep.Prerequisites {
			if p != badgeID {
				kept = append(kept, p)
			}
		}
		dep.Prerequisites = kept
		dep.UpdatedAt = s.now()
		if err := s.badges.Update(ctx, dep); err != nil {
			return fmt.Errorf("unlink prerequisite: %w", err)
		}
	}

	if err := s.badges.Delete(ctx, badgeID); err != nil {
		return mapStoreErr(err, "delete badge")
	}
	s.logger.InfoContext(ctx, "badge deleted", "badge", b.Slug, "awards_removed", len(awards))
	s.audit(audit.ActionBadgeDeleted, badgeID, actor, nil, b.Slug)
	return nil
}

func (s *Service) GetBadge(ctx context.Context, badgeID uuid.UUID) (*models.Badge, error) {
	b, err := s.badges.GetByID(ctx, badgeID)
	if err != nil {
		return nil, mapStoreErr(err, "load badge")
	}
	return b, nil
}

func (s *Service) GetBadgeBySlug(ctx context.Context, slug string) (*models.Badge, error) {
	b, err := s.badges.GetBySlug(ctx, slug)
	if err != nil {
		return nil, mapStoreErr(err, "load badge by slug")
	}
	return b, nil
}

func (s *Service) ListBadges(ctx context.Context) ([]*models.Badge, error) {
	return s.badges.List(ctx)
}

// BadgeSeed describes one badge in a declarative bootstrap set.
// Prerequisites reference other badges by slug, so seeds can link badges
// created in the same pass.
type BadgeSeed struct {
	Title                   string
	Slug                    string
	Description             string
	Unique                  bool
	NominationsAccepted     bool
	NominationsAutoApproved bool
	Prerequisites           []string
}

// SyncBadges upserts a declarative badge set, matching existing badges by
// title. With overwrite set, existing badges are updated to the seed;
// otherwise they are left untouched, prerequisite links included.
// Prerequisite slugs are resolved after every badge in the set exists.
func (s *Service) SyncBadges(ctx context.Context, actor *models.User, seeds []BadgeSeed, overwrite bool) ([]*models.Badge, error) {
	out := make([]*models.Badge, 0, len(seeds))
	preexisting := make([]bool, len(seeds))
	for i, seed := range seeds {
		existing, err := s.badges.GetByTitle(ctx, seed.Title)
		switch {
		case err == nil:
			preexisting[i] = true
			if overwrite {
				existing, err = s.EditBadge(ctx, actor, existing.ID, BadgeParams{
					Title:                   seed.Title,
					Slug:                    seed.Slug,
					Description:             seed.Description,
					Unique:                  seed.Unique,
					NominationsAccepted:     seed.NominationsAccepted,
					NominationsAutoApproved: seed.NominationsAutoApproved,
					Prerequisites:           existing.Prerequisites,
				})
				if err != nil {
					return nil, err
				}
			}
			out = append(out, existing)
		case errors.Is(err, sentinel.ErrNotFound):
			created, err := s.CreateBadge(ctx, actor, BadgeParams{
				Title:                   seed.Title,
				Slug:                    seed.Slug,
				Description:             seed.Description,
				Unique:                  seed.Unique,
				NominationsAccepted:     seed.NominationsAccepted,
				NominationsAutoApproved: seed.NominationsAutoApproved,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, created)
		default:
			return nil, fmt.Errorf("look up badge %q: %w", seed.Title, err)
		}
	}

	// Second pass: resolve prerequisite slugs now that all seeds exist.
	// Badges that predate the sync keep their links unless overwriting.
	for i, seed := range seeds {
		if preexisting[i] && !overwrite {
			continue
		}
		prereqSlugs := pstrings.DedupeAndTrim(seed.Prerequisites)
		if len(prereqSlugs) == 0 {
			continue
		}
		b := out[i]
		b.Prerequisites = b.Prerequisites[:0]
		for _, slug := range prereqSlugs {
			prereq, err := s.badges.GetBySlug(ctx, slug)
			if err != nil {
				return nil, fmt.Errorf("resolve prerequisite %q: %w", slug, mapStoreErr(err, "load badge"))
			}
			b.Prerequisites = append(b.Prerequisites, prereq.ID)
		}
		b.UpdatedAt = s.now()
		if err := s.validatePrerequisites(ctx, b); err != nil {
			return nil, err
		}
		if err := s.badges.Update(ctx, b); err != nil {
			return nil, mapStoreErr(err, "link prerequisites")
		}
	}
	return out, nil
}

// validatePrerequisites checks that every prerequisite exists, that a badge
// never requires itself, and that the prerequisite graph stays acyclic.
func (s *Service) validatePrerequisites(ctx context.Context, b *models.Badge) error {
	for _, prereqID := range b.Prerequisites {
		if prereqID == b.ID {
			return fmt.Errorf("badge %q cannot be its own prerequisite", b.Slug)
		}
		if _, err := s.badges.GetByID(ctx, prereqID); err != nil {
			return fmt.Errorf("prerequisite %s: %w", prereqID, mapStoreErr(err, "load badge"))
		}
	}
	// Walk up from each prerequisite; reaching b again means a cycle.
	seen := map[uuid.UUID]bool{b.ID: true}
	stack := append([]uuid.UUID(nil), b.Prerequisites...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			if id == b.ID {
				return fmt.Errorf("badge %q prerequisites form a cycle", b.Slug)
			}
			continue
		}
		seen[id] = true
		prereq, err := s.badges.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return fmt.Errorf("walk prerequisites: %w", err)
		}
		stack = append(stack, prereq.Prerequisites...)
	}
	return nil
}

// mapStoreErr converts storage sentinels to domain errors, wrapping anything
// unexpected with context.
func mapStoreErr(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return models.ErrNotFound
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
