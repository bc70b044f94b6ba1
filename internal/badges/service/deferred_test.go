package service

import (
	"context"
	"strings"

	"laurel/internal/badges/models"
	"laurel/pkg/claimcode"
	"laurel/pkg/platform/sentinel"

	"github.com/google/uuid"
	"go.uber.org/mock/gomock"
)

func (s *ServiceSuite) TestAwardToEmailKnownAddress() {
	ctx := context.Background()
	creator := s.createUser("creator")
	recipient := s.createUser("recipient")
	badge := s.createBadge(creator, BadgeParams{Title: "Mailed Badge", Unique: true})

	award, deferred, err := s.service.AwardToEmail(ctx, creator, badge.ID, recipient.Email, "well done")
	s.Require().NoError(err)
	s.Nil(deferred, "a registered address is awarded directly")
	s.Require().NotNil(award)
	s.Equal(recipient.ID, award.UserID)
	s.Empty(s.mailer.invitations, "no invitation for an existing account")
}

func (s *ServiceSuite) TestAwardToEmailUnknownAddress() {
	ctx := context.Background()
	creator := s.createUser("creator")
	badge := s.createBadge(creator, BadgeParams{Title: "Invited Badge", Unique: true})
	const address = "newcomer@example.com"

	award, deferred, err := s.service.AwardToEmail(ctx, creator, badge.ID, address, "join us")
	s.Require().NoError(err)
	s.Nil(award)
	s.Require().NotNil(deferred)
	s.Equal(address, deferred.Email)
	s.True(claimcode.Valid(deferred.ClaimCode))
	s.Equal(1, s.mailer.invitationCount(address))

	s.Run("repeat invitation for a unique badge returns the pending one", func() {
		_, again, err := s.service.AwardToEmail(ctx, creator, badge.ID, address, "join us")
		s.Require().NoError(err)
		s.Equal(deferred.ID, again.ID)
	})

	s.Run("a second badge invites without a second email", func() {
		other := s.createBadge(creator, BadgeParams{Title: "Other Badge", Unique: true})
		_, d2, err := s.service.AwardToEmail(ctx, creator, other.ID, address, "")
		s.Require().NoError(err)
		s.NotNil(d2)
		s.Equal(1, s.mailer.invitationCount(address), "one invitation per address is enough")
	})

	s.Run("registration claims everything pending", func() {
		newcomer := &models.User{ID: uuid.New(), Username: "newcomer", Email: address}
		s.Require().NoError(s.users.Create(ctx, newcomer))

		awards, err := s.service.ClaimPendingByEmail(ctx, newcomer)
		s.Require().NoError(err)
		s.Len(awards, 2, "both badges land on registration")

		pending, err := s.deferred.ListByEmail(ctx, address)
		s.Require().NoError(err)
		s.Empty(pending, "claimed codes are consumed")
	})
}

func (s *ServiceSuite) TestClaimByCode() {
	ctx := context.Background()
	creator := s.createUser("creator")
	claimant := s.createUser("claimant")
	badge := s.createBadge(creator, BadgeParams{Title: "Claimable", Unique: true})

	_, d, err := s.service.AwardToEmail(ctx, creator, badge.ID, "someone@example.com", "")
	s.Require().NoError(err)

	s.Run("any account may redeem, even under another email", func() {
		award, err := s.service.ClaimByCode(ctx, claimant, strings.ToUpper(d.ClaimCode))
		s.Require().NoError(err)
		s.Equal(claimant.ID, award.UserID)
		s.Equal(d.ClaimCode, award.ClaimCode, "the code travels onto the award")
		s.Require().NotNil(award.CreatorID)
		s.Equal(creator.ID, *award.CreatorID, "the inviter stays on record")
		s.Equal(1, s.notifier.count("deferred_award_was_claimed"))
	})

	s.Run("a single-use code is consumed", func() {
		other := s.createUser("other")
		_, err := s.service.ClaimByCode(ctx, other, d.ClaimCode)
		s.ErrorIs(err, models.ErrNotFound)
	})

	s.Run("anonymous claiming is refused", func() {
		_, err := s.service.ClaimByCode(ctx, nil, "whatever")
		s.ErrorIs(err, models.ErrNotAllowed)
	})
}

func (s *ServiceSuite) TestClaimByHolderIsANoOpThatConsumesTheCode() {
	ctx := context.Background()
	creator := s.createUser("creator")
	holder := s.createUser("holder")
	badge := s.createBadge(creator, BadgeParams{Title: "Held Already", Unique: true})

	_, err := s.service.AwardTo(ctx, creator, badge.ID, holder.ID)
	s.Require().NoError(err)

	_, d, err := s.service.AwardToEmail(ctx, creator, badge.ID, "elsewhere@example.com", "")
	s.Require().NoError(err)

	award, err := s.service.ClaimByCode(ctx, holder, d.ClaimCode)
	s.Require().NoError(err, "redeeming into a held badge is a quiet no-op")
	s.Nil(award, "no new award comes back")

	// The no-op redemption still burned the code.
	_, err = s.deferred.GetByClaimCode(ctx, d.ClaimCode)
	s.ErrorIs(err, sentinel.ErrNotFound)

	awards, err := s.service.ListAwardsForUser(ctx, holder.ID)
	s.Require().NoError(err)
	s.Len(awards, 1, "the original award is untouched")
}

func (s *ServiceSuite) TestReusableClaimGroup() {
	ctx := context.Background()
	creator := s.createUser("creator")
	badge := s.createBadge(creator, BadgeParams{Title: "Workshop Badge", Unique: true})

	codes, err := s.service.GenerateClaimGroup(ctx, creator, badge.ID, 5, true)
	s.Require().NoError(err)
	s.Require().Len(codes, 5)
	group := codes[0].ClaimGroup
	for _, d := range codes {
		s.Equal(group, d.ClaimGroup, "one batch, one group handle")
		s.True(claimcode.Valid(d.ClaimCode))
	}

	s.Run("a reusable code survives claiming", func() {
		a := s.createUser("attendee-a")
		b := s.createUser("attendee-b")
		_, err := s.service.ClaimByCode(ctx, a, codes[0].ClaimCode)
		s.Require().NoError(err)
		_, err = s.service.ClaimByCode(ctx, b, codes[0].ClaimCode)
		s.Require().NoError(err)
	})

	s.Run("listing and retiring the batch", func() {
		groups, err := s.service.ListClaimGroups(ctx, creator, badge.ID)
		s.Require().NoError(err)
		s.Require().Len(groups, 1)
		s.Equal(5, groups[0].Count)

		removed, err := s.service.DeleteClaimGroup(ctx, creator, badge.ID, group)
		s.Require().NoError(err)
		s.Equal(5, removed)

		stranger := s.createUser("stranger")
		_, err = s.service.ListClaimGroups(ctx, stranger, badge.ID)
		s.ErrorIs(err, models.ErrNotAllowed)
	})
}

func (s *ServiceSuite) TestGrantTo() {
	ctx := context.Background()
	creator := s.createUser("creator")
	stranger := s.createUser("stranger")
	badge := s.createBadge(creator, BadgeParams{Title: "Regiftable", Unique: true})

	s.Run("single-use invitation moves in place", func() {
		_, d, err := s.service.AwardToEmail(ctx, creator, badge.ID, "first@example.com", "")
		s.Require().NoError(err)

		_, err = s.service.GrantTo(ctx, stranger, d.ID, "second@example.com")
		s.ErrorIs(err, models.ErrGrantNotAllowed)

		granted, err := s.service.GrantTo(ctx, creator, d.ID, "second@example.com")
		s.Require().NoError(err)
		s.Equal(d.ID, granted.ID, "non-reusable grants re-address the same row")
		s.Equal("second@example.com", granted.Email)
		s.NotEqual(d.ClaimCode, granted.ClaimCode, "the old code dies with the move")
	})

	s.Run("reusable code spawns an addressed sibling", func() {
		codes, err := s.service.GenerateClaimGroup(ctx, creator, badge.ID, 1, true)
		s.Require().NoError(err)

		granted, err := s.service.GrantTo(ctx, creator, codes[0].ID, "third@example.com")
		s.Require().NoError(err)
		s.NotEqual(codes[0].ID, granted.ID)

		// The original stays claimable.
		_, err = s.deferred.GetByClaimCode(ctx, codes[0].ClaimCode)
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestClaimThrottle() {
	ctx := context.Background()
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()

	limiter := NewMockLimiter(ctrl)
	s.service = New(
		s.badges, s.awards, s.progress, s.nominations, s.deferred, s.users,
		WithNotifier(s.notifier),
		WithClaimThrottle(limiter),
	)

	creator := s.createUser("creator")
	claimant := s.createUser("claimant")
	badge := s.createBadge(creator, BadgeParams{Title: "Throttled", Unique: true})
	_, d, err := s.service.AwardToEmail(ctx, creator, badge.ID, "guess@example.com", "")
	s.Require().NoError(err)

	s.Run("an exhausted budget blocks the lookup", func() {
		limiter.EXPECT().Allow(gomock.Any(), claimant.ID).Return(false, nil)
		_, err := s.service.ClaimByCode(ctx, claimant, d.ClaimCode)
		s.ErrorIs(err, models.ErrClaimThrottled)
	})

	s.Run("an allowed attempt proceeds", func() {
		limiter.EXPECT().Allow(gomock.Any(), claimant.ID).Return(true, nil)
		award, err := s.service.ClaimByCode(ctx, claimant, d.ClaimCode)
		s.Require().NoError(err)
		s.Equal(claimant.ID, award.UserID)
	})
}
