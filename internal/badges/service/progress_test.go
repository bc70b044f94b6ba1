package service

import (
	"context"
	"strings"

	"laurel/internal/badges/models"
	"laurel/pkg/platform/sentinel"

	"github.com/google/uuid"
)

func (s *ServiceSuite) TestProgressLazyRow() {
	ctx := context.Background()
	creator := s.createUser("creator")
	user := s.createUser("user")
	badge := s.createBadge(creator, BadgeParams{Title: "Stepwise", Unique: true})

	p, err := s.service.ProgressFor(ctx, badge.ID, user.ID)
	s.Require().NoError(err)
	s.False(p.Saved, "reading progress persists nothing")
	s.Zero(p.Percent)

	// Reading again still finds no stored row.
	_, err = s.progress.GetByBadgeAndUser(ctx, badge.ID, user.ID)
	s.ErrorIs(err, sentinel.ErrNotFound, "lazy row must not be stored")
}

func (s *ServiceSuite) TestProgressPercentAwards() {
	ctx := context.Background()
	creator := s.createUser("creator")
	user := s.createUser("user")
	badge := s.createBadge(creator, BadgeParams{Title: "Halfway There", Unique: true})

	s.Run("partial percent persists without awarding", func() {
		p, err := s.service.UpdatePercent(ctx, badge.ID, user.ID, 50, nil)
		s.Require().NoError(err)
		s.Equal(float64(50), p.Percent)

		awarded, err := s.service.IsAwardedTo(ctx, badge.ID, user.ID)
		s.Require().NoError(err)
		s.False(awarded)
	})

	s.Run("reaching 100 awards and resets", func() {
		p, err := s.service.UpdatePercent(ctx, badge.ID, user.ID, 100, nil)
		s.Require().NoError(err)
		s.Zero(p.Percent, "completion hands back a fresh zero row")

		awarded, err := s.service.IsAwardedTo(ctx, badge.ID, user.ID)
		s.Require().NoError(err)
		s.True(awarded)

		stored, err := s.service.ProgressFor(ctx, badge.ID, user.ID)
		s.Require().NoError(err)
		s.False(stored.Saved)
		s.Zero(stored.Percent)
	})

	s.Run("quiet default for a held badge", func() {
		_, err := s.service.UpdatePercent(ctx, badge.ID, user.ID, 100, nil)
		s.NoError(err, "crossing the threshold again is a no-op by default")
	})

	s.Run("strict completion surfaces the repeat", func() {
		_, err := s.service.UpdatePercent(ctx, badge.ID, user.ID, 100, nil, StrictCompletion())
		s.ErrorIs(err, models.ErrAlreadyAwarded)
	})

	s.Run("strict partial progress surfaces a held badge too", func() {
		_, err := s.service.UpdatePercent(ctx, badge.ID, user.ID, 50, nil, StrictCompletion())
		s.ErrorIs(err, models.ErrAlreadyAwarded)

		_, err = s.service.IncrementBy(ctx, badge.ID, user.ID, 1, StrictCompletion())
		s.ErrorIs(err, models.ErrAlreadyAwarded)
	})

	s.Run("quiet partial progress persists nothing for a held badge", func() {
		p, err := s.service.UpdatePercent(ctx, badge.ID, user.ID, 50, nil)
		s.Require().NoError(err)
		s.False(p.Saved, "the row comes back unsaved")

		_, err = s.progress.GetByBadgeAndUser(ctx, badge.ID, user.ID)
		s.ErrorIs(err, sentinel.ErrNotFound, "no progress row lands for a holder")
	})
}

func (s *ServiceSuite) TestProgressRatioAndCounter() {
	ctx := context.Background()
	creator := s.createUser("creator")
	user := s.createUser("user")
	badge := s.createBadge(creator, BadgeParams{Title: "Ratio Badge", Unique: true})

	s.Run("current over total computes percent", func() {
		total := 4.0
		p, err := s.service.UpdatePercent(ctx, badge.ID, user.ID, 1, &total)
		s.Require().NoError(err)
		s.Equal(float64(25), p.Percent)
	})

	s.Run("zero total is rejected", func() {
		total := 0.0
		_, err := s.service.UpdatePercent(ctx, badge.ID, user.ID, 1, &total)
		s.Error(err)
	})

	s.Run("counter moves independently of percent", func() {
		p, err := s.service.IncrementBy(ctx, badge.ID, user.ID, 3)
		s.Require().NoError(err)
		s.Equal(float64(3), p.Counter)
		s.Equal(float64(25), p.Percent)

		p, err = s.service.DecrementBy(ctx, badge.ID, user.ID, 5)
		s.Require().NoError(err)
		s.Zero(p.Counter, "counter clamps at zero")
	})
}

// TestGuestbookScenario walks the host-application shape the engine was
// built for: a guestbook awards "250 words" once a visitor's accumulated
// entries cross the threshold, and a metabadge rides on top of it.
func (s *ServiceSuite) TestGuestbookScenario() {
	ctx := context.Background()
	staff := s.createStaff("admin")
	visitor := s.createUser("visitor")

	const wordTarget = 250.0

	wordBadge := s.createBadge(staff, BadgeParams{
		Title:       "250 Words",
		Description: "Wrote 250 words in the guestbook",
		Unique:      true,
	})
	firstPost := s.createBadge(staff, BadgeParams{
		Title:  "First Post",
		Unique: true,
	})
	master := s.createBadge(staff, BadgeParams{Title: "Master Badger", Unique: true})
	_, err := s.service.EditBadge(ctx, staff, master.ID, BadgeParams{
		Title: master.Title, Unique: true,
		Prerequisites: []uuid.UUID{wordBadge.ID, firstPost.ID},
	})
	s.Require().NoError(err)

	postEntry := func(text string) {
		words := float64(len(strings.Fields(text)))
		p, err := s.service.IncrementBy(ctx, wordBadge.ID, visitor.ID, words,
			WithNotes(map[string]any{"last_entry_words": words}))
		s.Require().NoError(err)
		if p.Counter >= wordTarget {
			_, err = s.service.UpdatePercent(ctx, wordBadge.ID, visitor.ID, p.Counter, ptr(wordTarget))
			s.Require().NoError(err)
		}
	}

	// First entry: short, awards First Post directly but not the word badge.
	postEntry(strings.Repeat("word ", 50))
	_, err = s.service.AwardTo(ctx, nil, firstPost.ID, visitor.ID)
	s.Require().NoError(err)

	awarded, err := s.service.IsAwardedTo(ctx, wordBadge.ID, visitor.ID)
	s.Require().NoError(err)
	s.False(awarded, "50 words is not enough")

	// Keep writing until the counter crosses 250.
	postEntry(strings.Repeat("word ", 120))
	postEntry(strings.Repeat("word ", 90))

	awarded, err = s.service.IsAwardedTo(ctx, wordBadge.ID, visitor.ID)
	s.Require().NoError(err)
	s.True(awarded, "260 accumulated words crosses the threshold")

	awarded, err = s.service.IsAwardedTo(ctx, master.ID, visitor.ID)
	s.Require().NoError(err)
	s.True(awarded, "word badge plus first post completes the metabadge")

	// The completed pair reads as fresh progress again.
	p, err := s.service.ProgressFor(ctx, wordBadge.ID, visitor.ID)
	s.Require().NoError(err)
	s.Zero(p.Counter)
}

func ptr(f float64) *float64 { return &f }
