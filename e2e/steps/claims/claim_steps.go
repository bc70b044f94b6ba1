package claims

import (
	"github.com/cucumber/godog"
)

// TestContext is the slice of the suite context these steps need.
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	SaveClaimCode() error
	SavedClaimCode() (string, error)
}

// RegisterSteps registers deferred award and claim code steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &claimSteps{tc: tc}

	ctx.Step(`^I save the claim code$`, steps.saveClaimCode)
	ctx.Step(`^I preview the saved claim code$`, steps.previewSavedCode)
	ctx.Step(`^I redeem the saved claim code$`, steps.redeemSavedCode)
	ctx.Step(`^I redeem the claim code "([^"]*)"$`, steps.redeemCode)
	ctx.Step(`^I sweep my pending claims$`, steps.sweepPending)
}

type claimSteps struct {
	tc TestContext
}

func (s *claimSteps) saveClaimCode() error {
	return s.tc.SaveClaimCode()
}

func (s *claimSteps) previewSavedCode() error {
	code, err := s.tc.SavedClaimCode()
	if err != nil {
		return err
	}
	return s.tc.GET("/claims/" + code)
}

func (s *claimSteps) redeemSavedCode() error {
	code, err := s.tc.SavedClaimCode()
	if err != nil {
		return err
	}
	return s.tc.POST("/claims/"+code, nil)
}

func (s *claimSteps) redeemCode(code string) error {
	return s.tc.POST("/claims/"+code, nil)
}

func (s *claimSteps) sweepPending() error {
	return s.tc.POST("/claims/pending", nil)
}
