package service

import (
	"context"

	"laurel/internal/badges/models"
	"laurel/pkg/platform/sentinel"

	"github.com/google/uuid"
)

func (s *ServiceSuite) TestBadgeCRUD() {
	ctx := context.Background()
	creator := s.createUser("creator")
	stranger := s.createUser("stranger")

	b := s.createBadge(creator, BadgeParams{Title: "Editable Badge", Description: "v1"})

	s.Run("duplicate title is a conflict", func() {
		_, err := s.service.CreateBadge(ctx, creator, BadgeParams{Title: "Editable Badge"})
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("stranger may not edit", func() {
		_, err := s.service.EditBadge(ctx, stranger, b.ID, BadgeParams{Description: "vandalized"})
		s.ErrorIs(err, models.ErrNotAllowed)
	})

	s.Run("creator edits stick", func() {
		edited, err := s.service.EditBadge(ctx, creator, b.ID, BadgeParams{Description: "v2", Unique: true})
		s.Require().NoError(err)
		s.Equal("v2", edited.Description)
		s.True(edited.Unique)

		got, err := s.service.GetBadgeBySlug(ctx, "editable-badge")
		s.Require().NoError(err)
		s.Equal("v2", got.Description)
	})

	s.Run("self-prerequisite is rejected", func() {
		_, err := s.service.EditBadge(ctx, creator, b.ID, BadgeParams{
			Prerequisites: []uuid.UUID{b.ID},
		})
		s.Error(err)
	})

	s.Run("prerequisite cycles are rejected at edit time", func() {
		other := s.createBadge(creator, BadgeParams{Title: "Cycle Partner"})
		_, err := s.service.EditBadge(ctx, creator, b.ID, BadgeParams{
			Prerequisites: []uuid.UUID{other.ID},
		})
		s.Require().NoError(err)

		_, err = s.service.EditBadge(ctx, creator, other.ID, BadgeParams{
			Prerequisites: []uuid.UUID{b.ID},
		})
		s.Error(err, "closing the loop must fail")
	})
}

func (s *ServiceSuite) TestDeleteBadgeCascades() {
	ctx := context.Background()
	creator := s.createUser("creator")
	holder := s.createUser("holder")

	b := s.createBadge(creator, BadgeParams{Title: "Doomed", Unique: true, NominationsAccepted: true})
	meta := s.createBadge(creator, BadgeParams{Title: "Depends On Doomed"})
	_, err := s.service.EditBadge(ctx, creator, meta.ID, BadgeParams{
		Title:         meta.Title,
		Prerequisites: []uuid.UUID{b.ID},
	})
	s.Require().NoError(err)

	_, err = s.service.AwardTo(ctx, creator, b.ID, holder.ID)
	s.Require().NoError(err)
	nominee := s.createUser("nominee")
	_, err = s.service.Nominate(ctx, creator, b.ID, nominee.ID)
	s.Require().NoError(err)
	_, _, err = s.service.AwardToEmail(ctx, creator, b.ID, "pending@example.com", "")
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeleteBadge(ctx, creator, b.ID))

	_, err = s.service.GetBadge(ctx, b.ID)
	s.ErrorIs(err, models.ErrNotFound)

	// Awarding the doomed badge cascaded its dependent metabadge; that award
	// is the holder's own and survives the prerequisite's deletion.
	awards, err := s.service.ListAwardsForUser(ctx, holder.ID)
	s.Require().NoError(err)
	s.Require().Len(awards, 1, "only the cascaded metabadge award remains")
	s.Equal(meta.ID, awards[0].BadgeID)

	direct, err := s.service.ListAwardsForBadge(ctx, b.ID)
	s.Require().NoError(err)
	s.Empty(direct, "the badge's own awards die with it")

	pending, err := s.deferred.ListByEmail(ctx, "pending@example.com")
	s.Require().NoError(err)
	s.Empty(pending, "deferred codes die with the badge")

	fresh, err := s.service.GetBadge(ctx, meta.ID)
	s.Require().NoError(err)
	s.Empty(fresh.Prerequisites, "dependents drop the dead prerequisite")
}

func (s *ServiceSuite) TestSyncBadges() {
	ctx := context.Background()
	staff := s.createStaff("admin")

	seeds := []BadgeSeed{
		{Title: "First Post", Unique: true},
		{Title: "250 Words", Unique: true, Description: "original"},
		{Title: "Master Badger", Unique: true, Prerequisites: []string{"first-post", "250-words"}},
	}

	s.Run("initial sync creates and links everything", func() {
		badges, err := s.service.SyncBadges(ctx, staff, seeds, false)
		s.Require().NoError(err)
		s.Require().Len(badges, 3)

		master, err := s.service.GetBadgeBySlug(ctx, "master-badger")
		s.Require().NoError(err)
		s.Len(master.Prerequisites, 2)
	})

	s.Run("re-sync without overwrite keeps local edits", func() {
		words, err := s.service.GetBadgeBySlug(ctx, "250-words")
		s.Require().NoError(err)
		_, err = s.service.EditBadge(ctx, staff, words.ID, BadgeParams{
			Title: words.Title, Unique: true, Description: "edited locally",
		})
		s.Require().NoError(err)

		_, err = s.service.SyncBadges(ctx, staff, seeds, false)
		s.Require().NoError(err)

		words, err = s.service.GetBadgeBySlug(ctx, "250-words")
		s.Require().NoError(err)
		s.Equal("edited locally", words.Description)
	})

	s.Run("re-sync without overwrite keeps local prerequisite edits", func() {
		master, err := s.service.GetBadgeBySlug(ctx, "master-badger")
		s.Require().NoError(err)
		first, err := s.service.GetBadgeBySlug(ctx, "first-post")
		s.Require().NoError(err)
		_, err = s.service.EditBadge(ctx, staff, master.ID, BadgeParams{
			Title: master.Title, Unique: true,
			Prerequisites: []uuid.UUID{first.ID},
		})
		s.Require().NoError(err)

		_, err = s.service.SyncBadges(ctx, staff, seeds, false)
		s.Require().NoError(err)

		master, err = s.service.GetBadgeBySlug(ctx, "master-badger")
		s.Require().NoError(err)
		s.Len(master.Prerequisites, 1, "links survive a non-overwriting sync")
	})

	s.Run("re-sync with overwrite restores the seed", func() {
		_, err := s.service.SyncBadges(ctx, staff, seeds, true)
		s.Require().NoError(err)

		words, err := s.service.GetBadgeBySlug(ctx, "250-words")
		s.Require().NoError(err)
		s.Equal("original", words.Description)

		master, err := s.service.GetBadgeBySlug(ctx, "master-badger")
		s.Require().NoError(err)
		s.Len(master.Prerequisites, 2, "overwrite relinks the seed's prerequisites")
	})

	s.Run("the system may overwrite on re-sync", func() {
		_, err := s.service.SyncBadges(ctx, nil, seeds, true)
		s.Require().NoError(err)
	})
}
