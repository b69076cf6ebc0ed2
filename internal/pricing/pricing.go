// Package pricing computes authoritative quotes in the base currency and
// renders them in a display currency.
package pricing

import (
	"fmt"
	"strings"

	"github.com/vpoguide/backend/internal/domain"
)

// GroupSize is the number of passengers covered by one plan purchase.
const GroupSize = 10

// Currency describes a display currency. Rates are approximate and only ever
// used for presentation.
type Currency struct {
	Code   string  `json:"code"`
	Symbol string  `json:"symbol"`
	Rate   float64 `json:"rate"`
}

var currencies = map[string]Currency{
	"USD": {Code: "USD", Symbol: "$", Rate: 1},
	"BRL": {Code: "BRL", Symbol: "R$", Rate: 5.5},
	"EUR": {Code: "EUR", Symbol: "€", Rate: 0.85},
}

// Quote is the computed price for a plan and passenger count.
type Quote struct {
	Days            int    `json:"days"`
	Passengers      int    `json:"passengers"`
	Groups          int    `json:"groups"`
	AmountUSD       int64  `json:"amountUsd"`
	DisplayCurrency string `json:"displayCurrency"`
	Display         string `json:"display"`
	DisplayPerDay   string `json:"displayPerDay"`
}

// LookupCurrency returns the display currency for a code (case-insensitive).
func LookupCurrency(code string) (Currency, error) {
	c, ok := currencies[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Currency{}, fmt.Errorf("%w: %q", domain.ErrUnknownCurrency, code)
	}
	return c, nil
}

// Currencies lists the supported display currencies.
func Currencies() []Currency {
	return []Currency{currencies["USD"], currencies["BRL"], currencies["EUR"]}
}

// GroupCount returns the number of groups needed for the passengers. An empty
// party still counts as one group.
func GroupCount(adults, children int) int {
	total := adults + children
	if total <= 0 {
		return 1
	}
	return (total + GroupSize - 1) / GroupSize
}

// QuoteBase returns the authoritative price in whole US dollars.
func QuoteBase(days, adults, children int) (int64, error) {
	plan, err := domain.GetPlan(days)
	if err != nil {
		return 0, err
	}
	return plan.PriceUSD * int64(GroupCount(adults, children)), nil
}

// Convert scales a base amount into the display currency.
func Convert(amountBase int64, currency string) (float64, error) {
	c, err := LookupCurrency(currency)
	if err != nil {
		return 0, err
	}
	return float64(amountBase) * c.Rate, nil
}

// FormatForDisplay renders amountBase in the target currency with two
// fractional digits and the currency symbol, e.g. "€1001.30". It must not be
// used to decide how much is charged.
func FormatForDisplay(amountBase int64, currency string) (string, error) {
	c, err := LookupCurrency(currency)
	if err != nil {
		return "", err
	}
	return formatAmount(c, float64(amountBase)*c.Rate), nil
}

// NewQuote bundles the base price with its display rendering.
func NewQuote(days, adults, children int, currency string) (Quote, error) {
	c, err := LookupCurrency(currency)
	if err != nil {
		return Quote{}, err
	}
	amount, err := QuoteBase(days, adults, children)
	if err != nil {
		return Quote{}, err
	}
	perDay := float64(amount) / float64(days)
	return Quote{
		Days:            days,
		Passengers:      adults + children,
		Groups:          GroupCount(adults, children),
		AmountUSD:       amount,
		DisplayCurrency: c.Code,
		Display:         formatAmount(c, float64(amount)*c.Rate),
		DisplayPerDay:   formatAmount(c, perDay*c.Rate),
	}, nil
}

// Cents converts whole base-currency units into the minor units the payment
// provider expects.
func Cents(amountBase int64) int64 {
	return amountBase * 100
}

func formatAmount(c Currency, v float64) string {
	return fmt.Sprintf("%s%.2f", c.Symbol, v)
}
