package billing

import (
	"github.com/dariovega/vidora-backend/pkg/enums"
)

// Subscription lifecycle edges as the processor reports them. Transitions are
// never inferred locally; a terminal row stays terminal and is retained for
// history.
var lifecycleEdges = map[enums.SubscriptionStatus][]enums.SubscriptionStatus{
	enums.SubscriptionStatusTrialing: {
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusPaused,
		enums.SubscriptionStatusCanceled,
		enums.SubscriptionStatusExpired,
	},
	enums.SubscriptionStatusActive: {
		enums.SubscriptionStatusPaused,
		enums.SubscriptionStatusCanceled,
		enums.SubscriptionStatusExpired,
	},
	enums.SubscriptionStatusPaused: {
		enums.SubscriptionStatusActive,
		enums.SubscriptionStatusCanceled,
		enums.SubscriptionStatusExpired,
	},
	enums.SubscriptionStatusCanceled: {},
	enums.SubscriptionStatusExpired:  {},
}

// CanTransition reports whether the processor-driven lifecycle allows moving
// from one status to another. A same-status transition is always allowed so
// redelivered events stay no-ops instead of errors.
func CanTransition(from, to enums.SubscriptionStatus) bool {
	if from == to {
		return true
	}
	for _, next := range lifecycleEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}
