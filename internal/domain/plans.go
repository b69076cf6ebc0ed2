package domain

import (
	"fmt"
	"strings"
)

// BaseCurrency is the currency every charge is created in.
const BaseCurrency = "USD"

// Plan represents a fixed-duration guidance tier.
type Plan struct {
	Days      int    `json:"days"`
	PriceUSD  int64  `json:"priceUsd"`            // whole US dollars
	Popular   bool   `json:"popular"`             // Show "Most Popular" badge
	ProductID string `json:"productId,omitempty"` // external catalogue id, optional
}

// Destination is a park region the concierge covers.
type Destination struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AvailablePlans returns all available plans ordered by duration.
func AvailablePlans() []Plan {
	return []Plan{
		{Days: 1, PriceUSD: 199},
		{Days: 2, PriceUSD: 397},
		{Days: 3, PriceUSD: 589, Popular: true},
		{Days: 4, PriceUSD: 749},
	}
}

// GetPlan returns the plan for a given duration.
func GetPlan(days int) (Plan, error) {
	for _, p := range AvailablePlans() {
		if p.Days == days {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: %d days", ErrInvalidPlan, days)
}

// PopularPlan returns the plan highlighted as most popular, or the first plan.
func PopularPlan() Plan {
	plans := AvailablePlans()
	for _, p := range plans {
		if p.Popular {
			return p
		}
	}
	return plans[0]
}

// AvailableDestinations returns the destinations shown on the site.
func AvailableDestinations() []Destination {
	return []Destination{
		{ID: "orlando", Name: "Orlando"},
		{ID: "california", Name: "California"},
		{ID: "paris", Name: "Paris"},
	}
}

// DestinationName maps a destination id to its display name. Unknown ids are
// title-cased so a plan name can still be composed.
func DestinationName(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, d := range AvailableDestinations() {
		if d.ID == id {
			return d.Name
		}
	}
	if id == "" {
		return ""
	}
	return strings.ToUpper(id[:1]) + id[1:]
}

// PlanName composes the label used on receipts and in payment metadata,
// e.g. "Orlando - 3 Days".
func PlanName(destination string, days int) string {
	unit := "Days"
	if days == 1 {
		unit = "Day"
	}
	name := DestinationName(destination)
	if name == "" {
		return fmt.Sprintf("%d %s", days, unit)
	}
	return fmt.Sprintf("%s - %d %s", name, days, unit)
}

// PlanCard is one entry of GET /api/plans, priced for a display currency.
type PlanCard struct {
	Days          int    `json:"days"`
	Name          string `json:"name"`
	PriceUSD      int64  `json:"priceUsd"`
	Display       string `json:"display"`
	DisplayPerDay string `json:"displayPerDay"`
	Popular       bool   `json:"popular"`
	Selected      bool   `json:"selected"`
	ProductID     string `json:"productId,omitempty"`
}
