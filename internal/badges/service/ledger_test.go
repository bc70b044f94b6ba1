package service

import (
	"context"
	"sync"

	"laurel/internal/badges/models"
	"laurel/internal/platform/logger"

	"github.com/google/uuid"
)

func (s *ServiceSuite) TestAwardPermissions() {
	ctx := context.Background()
	creator := s.createUser("creator")
	staff := s.createStaff("staff")
	stranger := s.createUser("stranger")
	recipient := s.createUser("recipient")

	badge := s.createBadge(creator, BadgeParams{Title: "Test Badge", Unique: true})

	s.Run("stranger may not award", func() {
		_, err := s.service.AwardTo(ctx, stranger, badge.ID, recipient.ID)
		s.ErrorIs(err, models.ErrNotAllowed)
	})

	s.Run("creator may award", func() {
		a, err := s.service.AwardTo(ctx, creator, badge.ID, recipient.ID)
		s.NoError(err)
		s.Equal(recipient.ID, a.UserID)
		s.Require().NotNil(a.CreatorID)
		s.Equal(creator.ID, *a.CreatorID)
	})

	s.Run("staff may award", func() {
		other := s.createUser("other")
		_, err := s.service.AwardTo(ctx, staff, badge.ID, other.ID)
		s.NoError(err)
	})

	s.Run("system may always award", func() {
		another := s.createUser("another")
		a, err := s.service.AwardTo(ctx, nil, badge.ID, another.ID)
		s.NoError(err)
		s.Nil(a.CreatorID, "system awards carry no creator")
	})
}

func (s *ServiceSuite) TestUniqueBadgeAwardedOnce() {
	ctx := context.Background()
	creator := s.createUser("creator")
	recipient := s.createUser("recipient")
	badge := s.createBadge(creator, BadgeParams{Title: "Unique Badge", Unique: true})

	first, err := s.service.AwardTo(ctx, creator, badge.ID, recipient.ID)
	s.Require().NoError(err)

	s.Run("lenient repeat returns the existing award", func() {
		again, err := s.service.AwardTo(ctx, creator, badge.ID, recipient.ID)
		s.NoError(err)
		s.Equal(first.ID, again.ID)

		awards, err := s.service.ListAwardsForBadge(ctx, badge.ID)
		s.Require().NoError(err)
		s.Len(awards, 1)
	})

	s.Run("strict repeat fails", func() {
		_, err := s.service.AwardTo(ctx, creator, badge.ID, recipient.ID, StrictUnique())
		s.ErrorIs(err, models.ErrAlreadyAwarded)
	})

	s.Run("non-unique badge accumulates awards", func() {
		multi := s.createBadge(creator, BadgeParams{Title: "Multi Badge", Unique: false})
		_, err := s.service.AwardTo(ctx, creator, multi.ID, recipient.ID)
		s.Require().NoError(err)
		_, err = s.service.AwardTo(ctx, creator, multi.ID, recipient.ID)
		s.Require().NoError(err)

		awards, err := s.service.ListAwardsForBadge(ctx, multi.ID)
		s.Require().NoError(err)
		s.Len(awards, 2)
	})
}

func (s *ServiceSuite) TestAwardHooksAndMail() {
	ctx := context.Background()
	creator := s.createUser("creator")
	recipient := s.createUser("recipient")
	badge := s.createBadge(creator, BadgeParams{Title: "Hooked Badge", Unique: true})

	_, err := s.service.AwardTo(ctx, creator, badge.ID, recipient.ID)
	s.Require().NoError(err)

	s.Equal(1, s.notifier.count("award_will_be_issued"))
	s.Equal(1, s.notifier.count("award_was_issued"))
	s.Equal([]string{recipient.Email}, s.mailer.notices)

	s.Run("lenient repeat fires no was hook", func() {
		_, err := s.service.AwardTo(ctx, creator, badge.ID, recipient.ID)
		s.Require().NoError(err)
		s.Equal(1, s.notifier.count("award_was_issued"))
	})
}

func (s *ServiceSuite) TestPrerequisiteCascade() {
	ctx := context.Background()
	staff := s.createStaff("admin")
	user := s.createUser("badger")

	// The classic metabadge shape: earn both legs and the metabadge follows.
	left := s.createBadge(staff, BadgeParams{Title: "Left Leg", Unique: true})
	right := s.createBadge(staff, BadgeParams{Title: "Right Leg", Unique: true})
	meta := s.createBadge(staff, BadgeParams{Title: "Master Badger", Unique: true})
	_, err := s.service.EditBadge(ctx, staff, meta.ID, BadgeParams{
		Title: meta.Title, Unique: true,
		Prerequisites: []uuid.UUID{left.ID, right.ID},
	})
	s.Require().NoError(err)

	s.Run("first leg alone does not cascade", func() {
		_, err := s.service.AwardTo(ctx, staff, left.ID, user.ID)
		s.Require().NoError(err)

		awarded, err := s.service.IsAwardedTo(ctx, meta.ID, user.ID)
		s.Require().NoError(err)
		s.False(awarded)
	})

	s.Run("second leg completes the metabadge", func() {
		_, err := s.service.AwardTo(ctx, staff, right.ID, user.ID)
		s.Require().NoError(err)

		awarded, err := s.service.IsAwardedTo(ctx, meta.ID, user.ID)
		s.Require().NoError(err)
		s.True(awarded)

		metaAward, err := s.awards.GetByBadgeAndUser(ctx, meta.ID, user.ID)
		s.Require().NoError(err)
		s.Nil(metaAward.CreatorID, "cascade awards are system-issued")
	})

	s.Run("cascade chains through stacked metabadges", func() {
		grand := s.createBadge(staff, BadgeParams{Title: "Grand Master"})
		_, err := s.service.EditBadge(ctx, staff, grand.ID, BadgeParams{
			Title:         grand.Title,
			Prerequisites: []uuid.UUID{meta.ID},
		})
		s.Require().NoError(err)

		fresh := s.createUser("fresh")
		_, err = s.service.AwardTo(ctx, staff, left.ID, fresh.ID)
		s.Require().NoError(err)
		_, err = s.service.AwardTo(ctx, staff, right.ID, fresh.ID)
		s.Require().NoError(err)

		awarded, err := s.service.IsAwardedTo(ctx, grand.ID, fresh.ID)
		s.Require().NoError(err)
		s.True(awarded, "completing the metabadge completes its dependent too")
	})
}

func (s *ServiceSuite) TestAwardHiding() {
	ctx := context.Background()
	creator := s.createUser("creator")
	holder := s.createUser("holder")
	stranger := s.createUser("stranger")
	badge := s.createBadge(creator, BadgeParams{Title: "Discreet", Unique: true})

	award, err := s.service.AwardTo(ctx, creator, badge.ID, holder.ID)
	s.Require().NoError(err)

	s.Run("only the holder decides", func() {
		_, err := s.service.SetAwardHidden(ctx, stranger, award.ID, true)
		s.ErrorIs(err, models.ErrNotAllowed)

		_, err = s.service.SetAwardHidden(ctx, creator, award.ID, true)
		s.ErrorIs(err, models.ErrNotAllowed, "not even the badge creator")
	})

	s.Run("hiding drops the award from the badge's public listing", func() {
		hidden, err := s.service.SetAwardHidden(ctx, holder, award.ID, true)
		s.Require().NoError(err)
		s.True(hidden.Hidden)

		public, err := s.service.ListAwardsForBadge(ctx, badge.ID)
		s.Require().NoError(err)
		s.Empty(public)

		mine, err := s.service.ListAwardsForUser(ctx, holder.ID)
		s.Require().NoError(err)
		s.Len(mine, 1, "the trophy case still shows it")
	})

	s.Run("unhiding restores it", func() {
		_, err := s.service.SetAwardHidden(ctx, holder, award.ID, false)
		s.Require().NoError(err)

		public, err := s.service.ListAwardsForBadge(ctx, badge.ID)
		s.Require().NoError(err)
		s.Len(public, 1)
	})
}

// recordingTxRunner counts transaction scopes while running the function
// directly, the way the in-memory stack does.
type recordingTxRunner struct {
	mu     sync.Mutex
	scopes int
}

func (r *recordingTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	r.scopes++
	r.mu.Unlock()
	return fn(ctx)
}

func (r *recordingTxRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scopes
}

func (s *ServiceSuite) TestAwardWritePathUsesTheTxRunner() {
	ctx := context.Background()
	runner := &recordingTxRunner{}
	svc := New(
		s.badges, s.awards, s.progress, s.nominations, s.deferred, s.users,
		WithLogger(logger.Discard()),
		WithTxRunner(runner),
	)

	creator := s.createUser("creator")
	recipient := s.createUser("recipient")
	badge, err := svc.CreateBadge(ctx, creator, BadgeParams{Title: "Scoped Badge", Unique: true})
	s.Require().NoError(err)

	s.Run("a direct award runs in one scope", func() {
		_, err := svc.AwardTo(ctx, creator, badge.ID, recipient.ID)
		s.Require().NoError(err)
		s.Equal(1, runner.count())
	})

	s.Run("a progress completion runs in one scope", func() {
		other := s.createUser("other")
		_, err := svc.UpdatePercent(ctx, badge.ID, other.ID, 100, nil)
		s.Require().NoError(err)
		s.Equal(2, runner.count())

		awarded, err := svc.IsAwardedTo(ctx, badge.ID, other.ID)
		s.Require().NoError(err)
		s.True(awarded)
	})

	s.Run("a lenient repeat rolls back its scope and returns the holder's award", func() {
		again, err := svc.AwardTo(ctx, creator, badge.ID, recipient.ID)
		s.Require().NoError(err)
		s.Equal(recipient.ID, again.UserID)
		s.Equal(3, runner.count(), "the losing insert still ran scoped")
	})
}

func (s *ServiceSuite) TestDeleteAward() {
	ctx := context.Background()
	creator := s.createUser("creator")
	recipient := s.createUser("recipient")
	stranger := s.createUser("stranger")
	badge := s.createBadge(creator, BadgeParams{Title: "Revocable", Unique: true})

	award, err := s.service.AwardTo(ctx, creator, badge.ID, recipient.ID)
	s.Require().NoError(err)

	s.Run("stranger may not revoke", func() {
		s.ErrorIs(s.service.DeleteAward(ctx, stranger, award.ID), models.ErrNotAllowed)
	})

	s.Run("recipient may revoke their own award", func() {
		s.NoError(s.service.DeleteAward(ctx, recipient, award.ID))
		s.Equal(1, s.notifier.count("award_was_revoked"))

		awarded, err := s.service.IsAwardedTo(ctx, badge.ID, recipient.ID)
		s.Require().NoError(err)
		s.False(awarded)
	})

	s.Run("revoking twice reports not found", func() {
		s.ErrorIs(s.service.DeleteAward(ctx, recipient, award.ID), models.ErrNotFound)
	})
}
