package service

import (
	"context"

	"laurel/internal/badges/models"
)

func (s *ServiceSuite) TestNominationGate() {
	ctx := context.Background()
	creator := s.createUser("creator")
	fan := s.createUser("fan")
	nominee := s.createUser("nominee")

	closed := s.createBadge(creator, BadgeParams{Title: "Closed Badge", Unique: true})
	open := s.createBadge(creator, BadgeParams{Title: "Open Badge", Unique: true, NominationsAccepted: true})

	s.Run("closed badge rejects outside nominations", func() {
		_, err := s.service.Nominate(ctx, fan, closed.ID, nominee.ID)
		s.ErrorIs(err, models.ErrNotAllowed)
	})

	s.Run("closed badge still accepts the creator", func() {
		_, err := s.service.Nominate(ctx, creator, closed.ID, nominee.ID)
		s.NoError(err)
	})

	s.Run("open badge accepts anyone", func() {
		before := s.notifier.count("nomination_was_created")
		n, err := s.service.Nominate(ctx, fan, open.ID, nominee.ID)
		s.Require().NoError(err)
		s.Equal(nominee.ID, n.NomineeID)
		s.Require().NotNil(n.CreatorID)
		s.Equal(fan.ID, *n.CreatorID)
		s.Equal(before+1, s.notifier.count("nomination_was_created"))
	})

	s.Run("nominating a holder of a unique badge fails outright", func() {
		_, err := s.service.AwardTo(ctx, creator, open.ID, nominee.ID)
		s.Require().NoError(err)

		_, err = s.service.Nominate(ctx, fan, open.ID, nominee.ID)
		s.ErrorIs(err, models.ErrAlreadyAwarded)
	})
}

func (s *ServiceSuite) TestNominationApproveThenAccept() {
	ctx := context.Background()
	creator := s.createUser("creator")
	fan := s.createUser("fan")
	nominee := s.createUser("nominee")
	badge := s.createBadge(creator, BadgeParams{Title: "Two Step", Unique: true, NominationsAccepted: true})

	n, err := s.service.Nominate(ctx, fan, badge.ID, nominee.ID)
	s.Require().NoError(err)

	s.Run("fan may not approve", func() {
		_, err := s.service.ApproveNomination(ctx, fan, n.ID)
		s.ErrorIs(err, models.ErrNotAllowed)
	})

	s.Run("approval alone awards nothing", func() {
		approved, err := s.service.ApproveNomination(ctx, creator, n.ID)
		s.Require().NoError(err)
		s.True(approved.IsApproved())
		s.False(approved.IsAwarded())

		awarded, err := s.service.IsAwardedTo(ctx, badge.ID, nominee.ID)
		s.Require().NoError(err)
		s.False(awarded)
	})

	s.Run("only the nominee may accept", func() {
		_, err := s.service.AcceptNomination(ctx, fan, n.ID)
		s.ErrorIs(err, models.ErrNotAllowed)
	})

	s.Run("acceptance lands second and creates the award", func() {
		accepted, err := s.service.AcceptNomination(ctx, nominee, n.ID)
		s.Require().NoError(err)
		s.True(accepted.IsAwarded())

		award, err := s.service.GetAward(ctx, *accepted.AwardID)
		s.Require().NoError(err)
		s.Equal(nominee.ID, award.UserID)
		s.Require().NotNil(award.CreatorID)
		s.Equal(creator.ID, *award.CreatorID, "the approver is the award's creator")
	})

	s.Run("repeat accept is foreclosed", func() {
		_, err := s.service.AcceptNomination(ctx, nominee, n.ID)
		s.ErrorIs(err, models.ErrNotAllowed)
	})
}

func (s *ServiceSuite) TestNominationAcceptThenApprove() {
	ctx := context.Background()
	creator := s.createUser("creator")
	fan := s.createUser("fan")
	nominee := s.createUser("nominee")
	badge := s.createBadge(creator, BadgeParams{Title: "Order Free", Unique: true, NominationsAccepted: true})

	n, err := s.service.Nominate(ctx, fan, badge.ID, nominee.ID)
	s.Require().NoError(err)

	accepted, err := s.service.AcceptNomination(ctx, nominee, n.ID)
	s.Require().NoError(err)
	s.False(accepted.IsAwarded(), "acceptance alone awards nothing")

	approved, err := s.service.ApproveNomination(ctx, creator, n.ID)
	s.Require().NoError(err)
	s.True(approved.IsAwarded(), "the second confirmation creates the award")

	awards, err := s.service.ListAwardsForBadge(ctx, badge.ID)
	s.Require().NoError(err)
	s.Len(awards, 1, "order does not change the outcome")
}

func (s *ServiceSuite) TestNominationAutoApprove() {
	ctx := context.Background()
	creator := s.createUser("creator")
	fan := s.createUser("fan")
	nominee := s.createUser("nominee")
	badge := s.createBadge(creator, BadgeParams{
		Title: "Auto Approved", Unique: true,
		NominationsAccepted: true, NominationsAutoApproved: true,
	})

	n, err := s.service.Nominate(ctx, fan, badge.ID, nominee.ID)
	s.Require().NoError(err)
	s.True(n.IsApproved(), "auto-approval lands at creation")
	s.Require().NotNil(n.ApproverID)
	s.Equal(creator.ID, *n.ApproverID)

	accepted, err := s.service.AcceptNomination(ctx, nominee, n.ID)
	s.Require().NoError(err)
	s.True(accepted.IsAwarded(), "a single acceptance completes it")
}

func (s *ServiceSuite) TestNominationRejection() {
	ctx := context.Background()
	creator := s.createUser("creator")
	fan := s.createUser("fan")
	nominee := s.createUser("nominee")
	badge := s.createBadge(creator, BadgeParams{Title: "Rejectable", Unique: true, NominationsAccepted: true})

	s.Run("nominee may decline with a reason", func() {
		n, err := s.service.Nominate(ctx, fan, badge.ID, nominee.ID)
		s.Require().NoError(err)

		rejected, err := s.service.RejectNomination(ctx, nominee, n.ID, "not interested")
		s.Require().NoError(err)
		s.True(rejected.IsRejected())
		s.Equal("not interested", rejected.RejectedReason)
		s.Equal(1, s.notifier.count("nomination_was_rejected"))

		_, err = s.service.ApproveNomination(ctx, creator, n.ID)
		s.ErrorIs(err, models.ErrNotAllowed, "rejection is terminal")
	})

	s.Run("approval forecloses rejection", func() {
		n, err := s.service.Nominate(ctx, fan, badge.ID, nominee.ID)
		s.Require().NoError(err)
		_, err = s.service.ApproveNomination(ctx, creator, n.ID)
		s.Require().NoError(err)

		_, err = s.service.RejectNomination(ctx, nominee, n.ID, "too late")
		s.ErrorIs(err, models.ErrNotAllowed)
	})
}

func (s *ServiceSuite) TestAwardDeletionRemovesItsNomination() {
	ctx := context.Background()
	creator := s.createUser("creator")
	nominee := s.createUser("nominee")
	badge := s.createBadge(creator, BadgeParams{Title: "Linked", Unique: true, NominationsAccepted: true})

	n, err := s.service.Nominate(ctx, creator, badge.ID, nominee.ID)
	s.Require().NoError(err)
	_, err = s.service.ApproveNomination(ctx, creator, n.ID)
	s.Require().NoError(err)
	done, err := s.service.AcceptNomination(ctx, nominee, n.ID)
	s.Require().NoError(err)
	s.Require().NotNil(done.AwardID)

	s.Require().NoError(s.service.DeleteAward(ctx, creator, *done.AwardID))

	_, err = s.service.GetNomination(ctx, n.ID)
	s.ErrorIs(err, models.ErrNotFound, "the nomination goes with its award")
}
