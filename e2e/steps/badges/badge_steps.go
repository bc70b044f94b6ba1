package badges

import (
	"github.com/cucumber/godog"
)

// TestContext is the slice of the suite context these steps need.
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	DELETE(path string) error
	UserID(username string) (string, error)
}

// RegisterSteps registers badge registry and award steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &badgeSteps{tc: tc}

	ctx.Step(`^I create a badge titled "([^"]*)"$`, steps.createBadge)
	ctx.Step(`^I create a unique badge titled "([^"]*)"$`, steps.createUniqueBadge)
	ctx.Step(`^I award "([^"]*)" to user "([^"]*)"$`, steps.awardToUser)
	ctx.Step(`^I award "([^"]*)" to email "([^"]*)"$`, steps.awardToEmail)
	ctx.Step(`^I fetch the badge "([^"]*)"$`, steps.fetchBadge)
	ctx.Step(`^I delete the badge "([^"]*)"$`, steps.deleteBadge)
	ctx.Step(`^I list my awards$`, steps.listMyAwards)
}

type badgeSteps struct {
	tc TestContext
}

func (s *badgeSteps) createBadge(title string) error {
	return s.tc.POST("/badges", map[string]any{"title": title})
}

func (s *badgeSteps) createUniqueBadge(title string) error {
	return s.tc.POST("/badges", map[string]any{"title": title, "unique": true})
}

func (s *badgeSteps) awardToUser(slug, username string) error {
	userID, err := s.tc.UserID(username)
	if err != nil {
		return err
	}
	return s.tc.POST("/badges/"+slug+"/awards", map[string]any{"user_id": userID})
}

func (s *badgeSteps) awardToEmail(slug, email string) error {
	return s.tc.POST("/badges/"+slug+"/awards", map[string]any{"email": email})
}

func (s *badgeSteps) fetchBadge(slug string) error {
	return s.tc.GET("/badges/" + slug)
}

func (s *badgeSteps) deleteBadge(slug string) error {
	return s.tc.DELETE("/badges/" + slug)
}

func (s *badgeSteps) listMyAwards() error {
	return s.tc.GET("/me/awards")
}
