// Package selection models the plan/passenger picker as an immutable value.
// Every update returns a new State; nothing is shared between requests.
package selection

import (
	"strings"

	"github.com/vpoguide/backend/internal/domain"
	"github.com/vpoguide/backend/internal/pricing"
)

// Phase is the coarse state of the plan picker.
type Phase int

const (
	NoPlanSelected Phase = iota
	PlanSelected
)

func (p Phase) String() string {
	if p == PlanSelected {
		return "plan_selected"
	}
	return "no_plan_selected"
}

// State is the checkout selection. The zero value is not valid; use New.
type State struct {
	Destination string
	Days        int // 0 while no plan is selected
	Explicit    bool
	Adults      int
	Children    int
	Currency    string
	Language    string
}

// New returns the initial selection: one adult, USD, English, no plan.
func New() State {
	return State{Adults: 1, Currency: domain.BaseCurrency, Language: "en"}
}

// Phase reports whether a plan has been selected.
func (s State) Phase() Phase {
	if s.Days == 0 {
		return NoPlanSelected
	}
	return PlanSelected
}

// SelectDestination resets the plan choice and re-renders the plan list.
func (s State) SelectDestination(dest string) State {
	s.Destination = strings.ToLower(strings.TrimSpace(dest))
	s.Days = 0
	s.Explicit = false
	return s.RenderPlans()
}

// WithDestination sets the destination without touching the plan choice.
// Used to rebuild a selection from a submitted checkout form.
func (s State) WithDestination(dest string) State {
	s.Destination = strings.ToLower(strings.TrimSpace(dest))
	return s
}

// RenderPlans auto-selects the most popular plan unless the user already
// picked one.
func (s State) RenderPlans() State {
	if s.Explicit && s.Days != 0 {
		return s
	}
	s.Days = domain.PopularPlan().Days
	s.Explicit = false
	return s
}

// SelectPlan records an explicit plan choice.
func (s State) SelectPlan(days int) (State, error) {
	if _, err := domain.GetPlan(days); err != nil {
		return s, err
	}
	s.Days = days
	s.Explicit = true
	return s, nil
}

// ChangeCurrency switches the display currency and re-renders the plans.
func (s State) ChangeCurrency(code string) (State, error) {
	c, err := pricing.LookupCurrency(code)
	if err != nil {
		return s, err
	}
	s.Currency = c.Code
	if s.Phase() == PlanSelected || s.Destination != "" {
		s = s.RenderPlans()
	}
	return s, nil
}

// ChangeLanguage switches the UI language. Unknown languages are kept as-is;
// translation lookups fall back to English.
func (s State) ChangeLanguage(lang string) State {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang != "" {
		s.Language = lang
	}
	return s
}

func (s State) IncrementAdults() State {
	s.Adults++
	return s.normalize()
}

// DecrementAdults removes an adult. The last adult can only be removed while
// children are present.
func (s State) DecrementAdults() State {
	if s.Adults > 1 || (s.Adults == 1 && s.Children > 0) {
		s.Adults--
	}
	return s.normalize()
}

func (s State) IncrementChildren() State {
	s.Children++
	return s.normalize()
}

func (s State) DecrementChildren() State {
	if s.Children > 0 {
		s.Children--
	}
	return s.normalize()
}

// WithPassengers sets both counters at once, clamping negatives and applying
// the same floor rules as the step buttons.
func (s State) WithPassengers(adults, children int) State {
	if adults < 0 {
		adults = 0
	}
	if children < 0 {
		children = 0
	}
	s.Adults = adults
	s.Children = children
	return s.normalize()
}

// Passengers returns adults plus children.
func (s State) Passengers() int {
	return s.Adults + s.Children
}

// Groups returns the number of billing groups for the current party.
func (s State) Groups() int {
	return pricing.GroupCount(s.Adults, s.Children)
}

// Quote prices the current selection. ok is false while no plan is selected.
func (s State) Quote() (q pricing.Quote, ok bool, err error) {
	if s.Phase() == NoPlanSelected {
		return pricing.Quote{}, false, nil
	}
	q, err = pricing.NewQuote(s.Days, s.Adults, s.Children, s.Currency)
	if err != nil {
		return pricing.Quote{}, false, err
	}
	return q, true, nil
}

// PlanName returns e.g. "Paris - 1 Day", or "" while no plan is selected.
func (s State) PlanName() string {
	if s.Phase() == NoPlanSelected {
		return ""
	}
	return domain.PlanName(s.Destination, s.Days)
}

func (s State) normalize() State {
	if s.Adults+s.Children == 0 {
		s.Adults = 1
	}
	return s
}
