package e2e

import (
	"github.com/cucumber/godog"

	"rankgate/e2e/steps/chat"
	"rankgate/e2e/steps/common"
	"rankgate/e2e/steps/forum"
)

// RegisterSteps registers the step definitions of every feature area.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	forum.RegisterSteps(ctx, tc)
	chat.RegisterSteps(ctx, tc)
}
