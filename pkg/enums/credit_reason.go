package enums

import "fmt"

// CreditReason labels why a ledger entry exists. Grant reasons participate in
// the dedup unique index together with the entry's dedup key.
type CreditReason string

const (
	CreditReasonSubscriptionCreated CreditReason = "subscription_created"
	CreditReasonSubscriptionRenewal CreditReason = "subscription_renewal"
	CreditReasonTrialCredits        CreditReason = "trial_credits"
	CreditReasonFlexPurchase        CreditReason = "flex_purchase"
	CreditReasonRefund              CreditReason = "refund"
	CreditReasonVideoGeneration     CreditReason = "video_generation"
	CreditReasonAdminAdjustment     CreditReason = "admin_adjustment"
)

var validCreditReasons = []CreditReason{
	CreditReasonSubscriptionCreated,
	CreditReasonSubscriptionRenewal,
	CreditReasonTrialCredits,
	CreditReasonFlexPurchase,
	CreditReasonRefund,
	CreditReasonVideoGeneration,
	CreditReasonAdminAdjustment,
}

// String implements fmt.Stringer.
func (r CreditReason) String() string {
	return string(r)
}

// IsValid reports whether the value is known.
func (r CreditReason) IsValid() bool {
	for _, candidate := range validCreditReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseCreditReason converts raw input into a CreditReason.
func ParseCreditReason(value string) (CreditReason, error) {
	for _, candidate := range validCreditReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit reason %q", value)
}
