package billing

import (
	"testing"

	"github.com/dariovega/vidora-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to enums.SubscriptionStatus
		want     bool
	}{
		{enums.SubscriptionStatusTrialing, enums.SubscriptionStatusActive, true},
		{enums.SubscriptionStatusTrialing, enums.SubscriptionStatusExpired, true},
		{enums.SubscriptionStatusActive, enums.SubscriptionStatusPaused, true},
		{enums.SubscriptionStatusActive, enums.SubscriptionStatusCanceled, true},
		{enums.SubscriptionStatusPaused, enums.SubscriptionStatusActive, true},
		{enums.SubscriptionStatusActive, enums.SubscriptionStatusTrialing, false},
		{enums.SubscriptionStatusCanceled, enums.SubscriptionStatusActive, false},
		{enums.SubscriptionStatusExpired, enums.SubscriptionStatusActive, false},
		// Redelivery of the same status is always a no-op, never an error.
		{enums.SubscriptionStatusCanceled, enums.SubscriptionStatusCanceled, true},
		{enums.SubscriptionStatusActive, enums.SubscriptionStatusActive, true},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}
