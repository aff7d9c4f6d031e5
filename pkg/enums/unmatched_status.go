package enums

import "fmt"

// UnmatchedEmailStatus tracks the manual reconciliation state of a parked
// webhook event.
type UnmatchedEmailStatus string

const (
	UnmatchedEmailStatusPending  UnmatchedEmailStatus = "pending"
	UnmatchedEmailStatusResolved UnmatchedEmailStatus = "resolved"
	UnmatchedEmailStatusIgnored  UnmatchedEmailStatus = "ignored"
)

var validUnmatchedEmailStatuses = []UnmatchedEmailStatus{
	UnmatchedEmailStatusPending,
	UnmatchedEmailStatusResolved,
	UnmatchedEmailStatusIgnored,
}

// String implements fmt.Stringer.
func (s UnmatchedEmailStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s UnmatchedEmailStatus) IsValid() bool {
	for _, candidate := range validUnmatchedEmailStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseUnmatchedEmailStatus converts raw input into an UnmatchedEmailStatus.
func ParseUnmatchedEmailStatus(value string) (UnmatchedEmailStatus, error) {
	for _, candidate := range validUnmatchedEmailStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unmatched email status %q", value)
}
