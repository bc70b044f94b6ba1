package common

import (
	"fmt"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the suite context these steps need.
type TestContext interface {
	SignInAs(username string, staff bool) error
	Prime(username string) error
	LastStatus() int
	GetResponseField(path string) (any, error)
}

// RegisterSteps registers sign-in and response assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I am signed in as "([^"]*)"$`, steps.signInAs)
	ctx.Step(`^I am signed in as staff "([^"]*)"$`, steps.signInAsStaff)
	ctx.Step(`^"([^"]*)" has signed in$`, steps.hasSignedIn)

	ctx.Step(`^the response status is (\d+)$`, steps.responseStatusIs)
	ctx.Step(`^the response field "([^"]*)" is "([^"]*)"$`, steps.responseFieldIs)
	ctx.Step(`^the response field "([^"]*)" is present$`, steps.responseFieldIsPresent)
	ctx.Step(`^the response field "([^"]*)" is absent$`, steps.responseFieldIsAbsent)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) signInAs(username string) error {
	return s.tc.SignInAs(username, false)
}

func (s *commonSteps) signInAsStaff(username string) error {
	return s.tc.SignInAs(username, true)
}

func (s *commonSteps) hasSignedIn(username string) error {
	return s.tc.Prime(username)
}

func (s *commonSteps) responseStatusIs(expected int) error {
	if got := s.tc.LastStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d", expected, got)
	}
	return nil
}

func (s *commonSteps) responseFieldIs(path, expected string) error {
	value, err := s.tc.GetResponseField(path)
	if err != nil {
		return err
	}
	if got := fmt.Sprintf("%v", value); got != expected {
		return fmt.Errorf("expected field %q to be %q, got %q", path, expected, got)
	}
	return nil
}

func (s *commonSteps) responseFieldIsPresent(path string) error {
	value, err := s.tc.GetResponseField(path)
	if err != nil {
		return err
	}
	if value == nil || value == "" {
		return fmt.Errorf("field %q is empty", path)
	}
	return nil
}

func (s *commonSteps) responseFieldIsAbsent(path string) error {
	value, err := s.tc.GetResponseField(path)
	if err != nil || value == nil {
		return nil
	}
	return fmt.Errorf("expected field %q to be absent, got %v", path, value)
}
