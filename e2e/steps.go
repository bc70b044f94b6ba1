package e2e

import (
	"github.com/cucumber/godog"

	"laurel/e2e/steps/badges"
	"laurel/e2e/steps/claims"
	"laurel/e2e/steps/common"
)

// RegisterSteps wires all step definitions against one shared test context.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	badges.RegisterSteps(ctx, tc)
	claims.RegisterSteps(ctx, tc)
}
