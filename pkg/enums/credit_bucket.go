package enums

import "fmt"

// CreditBucket separates pooled subscription credits (reset each billing
// period) from flex credits bought outright (additive, never reset).
type CreditBucket string

const (
	CreditBucketSubscription CreditBucket = "subscription"
	CreditBucketFlex         CreditBucket = "flex"
)

var validCreditBuckets = []CreditBucket{
	CreditBucketSubscription,
	CreditBucketFlex,
}

// String implements fmt.Stringer.
func (b CreditBucket) String() string {
	return string(b)
}

// IsValid reports whether the value is known.
func (b CreditBucket) IsValid() bool {
	for _, candidate := range validCreditBuckets {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseCreditBucket converts raw input into a CreditBucket.
func ParseCreditBucket(value string) (CreditBucket, error) {
	for _, candidate := range validCreditBuckets {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit bucket %q", value)
}
