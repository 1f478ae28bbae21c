package workflow

import (
	"go.temporal.io/sdk/testsuite"

	"github.com/edvin/agency/internal/activity"
)

// registerActivities registers the activity structs so OnActivity can mock
// them by name.
func registerActivities(env *testsuite.TestWorkflowEnvironment) {
	env.RegisterActivity(&activity.CoreDB{})
	env.RegisterActivity(&activity.Vault{})
}
