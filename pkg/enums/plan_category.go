package enums

import "fmt"

// PlanCategory distinguishes recurring subscription plans from one-time
// credit packs in the plan catalog.
type PlanCategory string

const (
	PlanCategorySubscription PlanCategory = "subscription"
	PlanCategoryOneTime      PlanCategory = "one_time"
)

var validPlanCategories = []PlanCategory{
	PlanCategorySubscription,
	PlanCategoryOneTime,
}

// String implements fmt.Stringer.
func (c PlanCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is known.
func (c PlanCategory) IsValid() bool {
	for _, candidate := range validPlanCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParsePlanCategory converts raw input into a PlanCategory.
func ParsePlanCategory(value string) (PlanCategory, error) {
	for _, candidate := range validPlanCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid plan category %q", value)
}
