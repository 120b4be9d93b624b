package workflow

import "github.com/epochlabs/ledgerx/app/worker/activity"

// Context carries workflow dependencies. Activities are registered from the
// embedded activity context; workflows themselves only reference them by
// method so the worker can wire both from one place.
type Context struct {
	ActivityContext *activity.Context
}
