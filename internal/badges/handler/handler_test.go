package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"laurel/internal/badges/models"
	"laurel/internal/badges/service"
	awardstore "laurel/internal/badges/store/award"
	badgestore "laurel/internal/badges/store/badge"
	deferredstore "laurel/internal/badges/store/deferred"
	nominationstore "laurel/internal/badges/store/nomination"
	progressstore "laurel/internal/badges/store/progress"
	userstore "laurel/internal/badges/store/user"
	"laurel/internal/platform/middleware"
	"laurel/pkg/testutil"
)

const signingKey = "handler-test-signing-key"

type HandlerSuite struct {
	suite.Suite

	users   *userstore.InMemoryStore
	service *service.Service
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.DiscardHandler)
	s.users = userstore.NewInMemory()
	s.service = service.New(
		badgestore.NewInMemory(),
		awardstore.NewInMemory(),
		progressstore.NewInMemory(),
		nominationstore.NewInMemory(),
		deferredstore.NewInMemory(),
		s.users,
		service.WithLogger(logger),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequireAuth(middleware.NewHMACValidator(signingKey), logger))
	New(s.service, logger).Register(r)
	s.router = r
}

func (s *HandlerSuite) newUser(username string) *models.User {
	return &models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
	}
}

func (s *HandlerSuite) newStaff(username string) *models.User {
	u := s.newUser(username)
	u.Staff = true
	return u
}

func (s *HandlerSuite) token(u *models.User) string {
	claims := jwt.MapClaims{
		"sub":      u.ID.String(),
		"username": u.Username,
		"email":    u.Email,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	if u.Staff {
		claims["staff"] = true
	}
	if u.Superuser {
		claims["superuser"] = true
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	s.Require().NoError(err)
	return signed
}

// do runs a request against the router as the given user.
func (s *HandlerSuite) do(user *models.User, method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if user != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(user))
	}
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) createBadge(creator *models.User, body map[string]any) *BadgeResponse {
	rec := s.do(creator, http.MethodPost, "/badges", body)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	return testutil.UnmarshalResponse[BadgeResponse](s.T(), rec)
}

func (s *HandlerSuite) TestAuthenticationRequired() {
	rec := s.do(nil, http.MethodGet, "/badges", nil)
	testutil.AssertStatusAndError(s.T(), rec, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestBadgeLifecycle() {
	creator := s.newUser("creator")
	stranger := s.newUser("stranger")

	badge := s.createBadge(creator, map[string]any{
		"title":       "Bug Squasher",
		"description": "Closed a bug",
		"unique":      true,
	})
	s.Equal("bug-squasher", badge.Slug)
	s.True(badge.Permissions.EditBy, "the creator may edit their badge")

	s.Run("missing title is a validation error", func() {
		rec := s.do(creator, http.MethodPost, "/badges", map[string]any{"description": "no title"})
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "validation_error")
	})

	s.Run("duplicate title is a conflict", func() {
		rec := s.do(creator, http.MethodPost, "/badges", map[string]any{"title": "Bug Squasher"})
		testutil.AssertStatus(s.T(), rec, http.StatusConflict)
	})

	s.Run("fetch by slug carries the caller's permissions", func() {
		rec := s.do(stranger, http.MethodGet, "/badges/bug-squasher", nil)
		testutil.AssertStatusOK(s.T(), rec)
		got := testutil.UnmarshalResponse[BadgeResponse](s.T(), rec)
		s.Equal(badge.ID, got.ID)
		s.False(got.Permissions.EditBy)
		s.False(got.Permissions.AwardTo)
	})

	s.Run("stranger may not edit", func() {
		rec := s.do(stranger, http.MethodPut, "/badges/bug-squasher", map[string]any{
			"title": "Bug Squasher", "description": "vandalized",
		})
		testutil.AssertStatusAndError(s.T(), rec, http.StatusForbidden, "forbidden")
	})

	s.Run("listing includes the badge", func() {
		rec := s.do(stranger, http.MethodGet, "/badges", nil)
		testutil.AssertStatusOK(s.T(), rec)
		badges := testutil.UnmarshalResponse[[]models.Badge](s.T(), rec)
		s.Len(*badges, 1)
	})

	s.Run("creator deletes it", func() {
		rec := s.do(creator, http.MethodDelete, "/badges/bug-squasher", nil)
		testutil.AssertStatus(s.T(), rec, http.StatusNoContent)

		rec = s.do(creator, http.MethodGet, "/badges/bug-squasher", nil)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusNotFound, "not_found")
	})
}

func (s *HandlerSuite) TestAwardByUserID() {
	creator := s.newUser("creator")
	recipient := s.newUser("recipient")
	s.createBadge(creator, map[string]any{"title": "Direct Award", "unique": true})

	s.Run("naming both recipient forms is rejected", func() {
		rec := s.do(creator, http.MethodPost, "/badges/direct-award/awards", map[string]any{
			"user_id": recipient.ID, "email": recipient.Email,
		})
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "validation_error")
	})

	rec := s.do(creator, http.MethodPost, "/badges/direct-award/awards", map[string]any{
		"user_id": recipient.ID, "description": "earned it",
	})
	testutil.AssertStatus(s.T(), rec, http.StatusCreated)
	resp := testutil.UnmarshalResponse[AwardResponse](s.T(), rec)
	s.Require().NotNil(resp.Award)
	s.Nil(resp.Deferred)
	s.Equal(recipient.ID, resp.Award.UserID)

	s.Run("stranger may not award", func() {
		stranger := s.newUser("stranger")
		rec := s.do(stranger, http.MethodPost, "/badges/direct-award/awards", map[string]any{
			"user_id": stranger.ID,
		})
		testutil.AssertStatusAndError(s.T(), rec, http.StatusForbidden, "forbidden")
	})

	s.Run("the recipient sees it under /me/awards", func() {
		rec := s.do(recipient, http.MethodGet, "/me/awards", nil)
		testutil.AssertStatusOK(s.T(), rec)
		awards := testutil.UnmarshalResponse[[]models.Award](s.T(), rec)
		s.Require().Len(*awards, 1)

		rec = s.do(recipient, http.MethodDelete, fmt.Sprintf("/awards/%s", (*awards)[0].ID), nil)
		testutil.AssertStatus(s.T(), rec, http.StatusNoContent)
	})
}

func (s *HandlerSuite) TestAwardHiddenEndpoint() {
	creator := s.newUser("creator")
	holder := s.newUser("holder")
	s.createBadge(creator, map[string]any{"title": "Quiet Win", "unique": true})

	rec := s.do(creator, http.MethodPost, "/badges/quiet-win/awards", map[string]any{"user_id": holder.ID})
	testutil.AssertStatus(s.T(), rec, http.StatusCreated)
	resp := testutil.UnmarshalResponse[AwardResponse](s.T(), rec)
	s.Require().NotNil(resp.Award)

	s.Run("a stranger may not hide it", func() {
		stranger := s.newUser("stranger")
		rec := s.do(stranger, http.MethodPut, fmt.Sprintf("/awards/%s/hidden", resp.Award.ID), map[string]any{
			"hidden": true,
		})
		testutil.AssertStatusAndError(s.T(), rec, http.StatusForbidden, "forbidden")
	})

	s.Run("the holder hides it from the public listing", func() {
		rec := s.do(holder, http.MethodPut, fmt.Sprintf("/awards/%s/hidden", resp.Award.ID), map[string]any{
			"hidden": true,
		})
		testutil.AssertStatusOK(s.T(), rec)
		updated := testutil.UnmarshalResponse[models.Award](s.T(), rec)
		s.True(updated.Hidden)

		rec = s.do(holder, http.MethodGet, "/badges/quiet-win/awards", nil)
		testutil.AssertStatusOK(s.T(), rec)
		public := testutil.UnmarshalResponse[[]models.Award](s.T(), rec)
		s.Empty(*public, "hidden awards leave the badge's listing")

		rec = s.do(holder, http.MethodGet, "/me/awards", nil)
		testutil.AssertStatusOK(s.T(), rec)
		mine := testutil.UnmarshalResponse[[]models.Award](s.T(), rec)
		s.Len(*mine, 1, "the trophy case still shows it")
	})
}

func (s *HandlerSuite) TestAwardByEmailAndClaim() {
	creator := s.newUser("creator")
	s.createBadge(creator, map[string]any{"title": "Invited", "unique": true})

	rec := s.do(creator, http.MethodPost, "/badges/invited/awards", map[string]any{
		"email": "newcomer@example.com",
	})
	testutil.AssertStatus(s.T(), rec, http.StatusCreated)
	resp := testutil.UnmarshalResponse[AwardResponse](s.T(), rec)
	s.Nil(resp.Award)
	s.Require().NotNil(resp.Deferred, "an unknown address turns into a deferred award")
	code := resp.Deferred.ClaimCode
	s.NotEmpty(code)

	claimant := s.newUser("claimant")

	s.Run("preview describes the badge without claiming", func() {
		rec := s.do(claimant, http.MethodGet, "/claims/"+code, nil)
		testutil.AssertStatusOK(s.T(), rec)
		preview := testutil.UnmarshalResponse[ClaimPreviewResponse](s.T(), rec)
		s.Equal("Invited", preview.Badge.Title)
		s.False(preview.Reusable)
	})

	s.Run("redeeming lands the award", func() {
		rec := s.do(claimant, http.MethodPost, "/claims/"+code, nil)
		testutil.AssertStatus(s.T(), rec, http.StatusCreated)
		award := testutil.UnmarshalResponse[models.Award](s.T(), rec)
		s.Equal(claimant.ID, award.UserID)
		s.Equal(code, award.ClaimCode)
	})

	s.Run("a consumed code is gone", func() {
		rec := s.do(claimant, http.MethodGet, "/claims/"+code, nil)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusNotFound, "not_found")
	})

	s.Run("a holder redeeming a second code gets no award", func() {
		rec := s.do(creator, http.MethodPost, "/badges/invited/awards", map[string]any{
			"email": "elsewhere@example.com",
		})
		testutil.AssertStatus(s.T(), rec, http.StatusCreated)
		resp := testutil.UnmarshalResponse[AwardResponse](s.T(), rec)
		s.Require().NotNil(resp.Deferred)

		rec = s.do(claimant, http.MethodPost, "/claims/"+resp.Deferred.ClaimCode, nil)
		testutil.AssertStatus(s.T(), rec, http.StatusNoContent)

		rec = s.do(claimant, http.MethodGet, "/me/awards", nil)
		testutil.AssertStatusOK(s.T(), rec)
		awards := testutil.UnmarshalResponse[[]models.Award](s.T(), rec)
		s.Len(*awards, 1, "the held award stands alone")
	})
}

func (s *HandlerSuite) TestPendingClaimsSweep() {
	creator := s.newUser("creator")
	s.createBadge(creator, map[string]any{"title": "Waiting One", "unique": true})
	s.createBadge(creator, map[string]any{"title": "Waiting Two", "unique": true})

	const address = "late-signup@example.com"
	for _, slug := range []string{"waiting-one", "waiting-two"} {
		rec := s.do(creator, http.MethodPost, "/badges/"+slug+"/awards", map[string]any{"email": address})
		testutil.AssertStatus(s.T(), rec, http.StatusCreated)
	}

	newcomer := &models.User{ID: uuid.New(), Username: "late-signup", Email: address}
	rec := s.do(newcomer, http.MethodPost, "/claims/pending", nil)
	testutil.AssertStatusOK(s.T(), rec)
	swept := testutil.UnmarshalResponse[ClaimedPendingResponse](s.T(), rec)
	s.Len(swept.Awards, 2, "both invitations land on first sweep")

	rec = s.do(newcomer, http.MethodPost, "/claims/pending", nil)
	testutil.AssertStatusOK(s.T(), rec)
	swept = testutil.UnmarshalResponse[ClaimedPendingResponse](s.T(), rec)
	s.Empty(swept.Awards, "a second sweep finds nothing")
}

func (s *HandlerSuite) TestProgressEndpoints() {
	creator := s.newUser("creator")
	walker := s.newUser("walker")
	s.createBadge(creator, map[string]any{"title": "Long Walk", "unique": true})

	s.Run("fresh progress reads as zero", func() {
		rec := s.do(walker, http.MethodGet, "/badges/long-walk/progress", nil)
		testutil.AssertStatusOK(s.T(), rec)
		p := testutil.UnmarshalResponse[models.Progress](s.T(), rec)
		s.Zero(p.Percent)
	})

	s.Run("two movements at once is a validation error", func() {
		rec := s.do(walker, http.MethodPost, "/badges/long-walk/progress", map[string]any{
			"percent": 10, "increment": 5,
		})
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "validation_error")
	})

	s.Run("counter and percent movements persist", func() {
		rec := s.do(walker, http.MethodPost, "/badges/long-walk/progress", map[string]any{
			"increment": 3, "notes": map[string]any{"leg": "first"},
		})
		testutil.AssertStatusOK(s.T(), rec)
		p := testutil.UnmarshalResponse[models.Progress](s.T(), rec)
		s.Equal(float64(3), p.Counter)

		rec = s.do(walker, http.MethodPost, "/badges/long-walk/progress", map[string]any{
			"percent": 1, "total": 2,
		})
		testutil.AssertStatusOK(s.T(), rec)
		p = testutil.UnmarshalResponse[models.Progress](s.T(), rec)
		s.Equal(float64(50), p.Percent)
	})

	s.Run("completion awards the badge", func() {
		rec := s.do(walker, http.MethodPost, "/badges/long-walk/progress", map[string]any{
			"percent": 100,
		})
		testutil.AssertStatusOK(s.T(), rec)

		rec = s.do(walker, http.MethodGet, "/me/awards", nil)
		testutil.AssertStatusOK(s.T(), rec)
		awards := testutil.UnmarshalResponse[[]models.Award](s.T(), rec)
		s.Len(*awards, 1)
	})
}

func (s *HandlerSuite) TestNominationFlow() {
	creator := s.newUser("creator")
	fan := s.newUser("fan")
	nominee := s.newUser("nominee")
	s.createBadge(creator, map[string]any{
		"title": "Peer Praise", "unique": true, "nominations_accepted": true,
	})

	rec := s.do(fan, http.MethodPost, "/badges/peer-praise/nominations", map[string]any{
		"nominee_id": nominee.ID,
	})
	testutil.AssertStatus(s.T(), rec, http.StatusCreated)
	n := testutil.UnmarshalResponse[NominationResponse](s.T(), rec)
	s.False(n.Permissions.ApproveBy, "the nominating fan cannot approve")

	s.Run("fan approval is forbidden", func() {
		rec := s.do(fan, http.MethodPost, fmt.Sprintf("/nominations/%s/approve", n.ID), nil)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusForbidden, "forbidden")
	})

	s.Run("creator approves, nominee accepts, award exists", func() {
		rec := s.do(creator, http.MethodPost, fmt.Sprintf("/nominations/%s/approve", n.ID), nil)
		testutil.AssertStatusOK(s.T(), rec)

		rec = s.do(nominee, http.MethodPost, fmt.Sprintf("/nominations/%s/accept", n.ID), nil)
		testutil.AssertStatusOK(s.T(), rec)
		done := testutil.UnmarshalResponse[NominationResponse](s.T(), rec)
		s.Require().NotNil(done.AwardID)

		rec = s.do(nominee, http.MethodGet, "/me/awards", nil)
		testutil.AssertStatusOK(s.T(), rec)
		awards := testutil.UnmarshalResponse[[]models.Award](s.T(), rec)
		s.Len(*awards, 1)
	})

	s.Run("rejection after the award is forbidden", func() {
		rec := s.do(nominee, http.MethodPost, fmt.Sprintf("/nominations/%s/reject", n.ID), map[string]any{
			"reason": "changed my mind",
		})
		testutil.AssertStatusAndError(s.T(), rec, http.StatusForbidden, "forbidden")
	})
}

func (s *HandlerSuite) TestClaimGroups() {
	creator := s.newUser("creator")
	stranger := s.newUser("stranger")
	s.createBadge(creator, map[string]any{"title": "Workshop", "unique": true})

	s.Run("zero count is a validation error", func() {
		rec := s.do(creator, http.MethodPost, "/badges/workshop/claim-groups", map[string]any{"count": 0})
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "validation_error")
	})

	rec := s.do(creator, http.MethodPost, "/badges/workshop/claim-groups", map[string]any{
		"count": 3, "reusable": true,
	})
	testutil.AssertStatus(s.T(), rec, http.StatusCreated)
	group := testutil.UnmarshalResponse[ClaimGroupResponse](s.T(), rec)
	s.Len(group.Codes, 3)
	s.NotEmpty(group.ClaimGroup)

	s.Run("stranger may not list the batch", func() {
		rec := s.do(stranger, http.MethodGet, "/badges/workshop/claim-groups", nil)
		testutil.AssertStatusAndError(s.T(), rec, http.StatusForbidden, "forbidden")
	})

	s.Run("retiring reports the removed count", func() {
		rec := s.do(creator, http.MethodDelete, "/badges/workshop/claim-groups/"+group.ClaimGroup, nil)
		testutil.AssertStatusOK(s.T(), rec)
		retired := testutil.UnmarshalResponse[RetiredGroupResponse](s.T(), rec)
		s.Equal(3, retired.Removed)
	})
}

func (s *HandlerSuite) TestGrantEndpoint() {
	creator := s.newUser("creator")
	s.createBadge(creator, map[string]any{"title": "Regift", "unique": true})

	rec := s.do(creator, http.MethodPost, "/badges/regift/awards", map[string]any{
		"email": "first@example.com",
	})
	testutil.AssertStatus(s.T(), rec, http.StatusCreated)
	resp := testutil.UnmarshalResponse[AwardResponse](s.T(), rec)
	s.Require().NotNil(resp.Deferred)

	s.Run("a bare word is not an address", func() {
		rec := s.do(creator, http.MethodPost, fmt.Sprintf("/deferred/%s/grant", resp.Deferred.ID), map[string]any{
			"email": "not-an-address",
		})
		testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "validation_error")
	})

	s.Run("granting re-addresses under a fresh code", func() {
		rec := s.do(creator, http.MethodPost, fmt.Sprintf("/deferred/%s/grant", resp.Deferred.ID), map[string]any{
			"email": "second@example.com",
		})
		testutil.AssertStatusOK(s.T(), rec)
		granted := testutil.UnmarshalResponse[models.DeferredAward](s.T(), rec)
		s.Equal("second@example.com", granted.Email)
		s.NotEqual(resp.Deferred.ClaimCode, granted.ClaimCode)
	})
}
