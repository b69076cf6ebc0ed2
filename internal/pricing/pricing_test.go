package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vpoguide/backend/internal/domain"
)

func TestGroupCount(t *testing.T) {
	tests := []struct {
		name     string
		adults   int
		children int
		want     int
	}{
		{"empty party", 0, 0, 1},
		{"single adult", 1, 0, 1},
		{"ten mixed", 4, 6, 1},
		{"eleven", 11, 0, 2},
		{"twenty", 10, 10, 2},
		{"twenty one", 20, 1, 3},
		{"children only", 0, 3, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GroupCount(tt.adults, tt.children))
		})
	}
}

func TestQuoteBase_SingleGroupEqualsBasePrice(t *testing.T) {
	for _, plan := range domain.AvailablePlans() {
		for pax := 1; pax <= 10; pax++ {
			got, err := QuoteBase(plan.Days, pax, 0)
			require.NoError(t, err)
			assert.Equal(t, plan.PriceUSD, got, "days=%d pax=%d", plan.Days, pax)
		}
	}
}

func TestQuoteBase_InvalidPlan(t *testing.T) {
	for _, days := range []int{0, 5, -1} {
		_, err := QuoteBase(days, 1, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidPlan)
	}
}

func TestFormatForDisplay(t *testing.T) {
	tests := []struct {
		amount   int64
		currency string
		want     string
	}{
		{199, "USD", "$199.00"},
		{199, "BRL", "R$1094.50"},
		{1178, "EUR", "€1001.30"},
		{749, "eur", "€636.65"},
	}

	for _, tt := range tests {
		t.Run(tt.currency, func(t *testing.T) {
			got, err := FormatForDisplay(tt.amount, tt.currency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatForDisplay_UnknownCurrency(t *testing.T) {
	_, err := FormatForDisplay(100, "GBP")
	assert.ErrorIs(t, err, domain.ErrUnknownCurrency)
}

func TestNewQuote_TwelveAdultsThreeDaysInEuro(t *testing.T) {
	q, err := NewQuote(3, 12, 0, "EUR")
	require.NoError(t, err)

	assert.Equal(t, 2, q.Groups)
	assert.Equal(t, int64(1178), q.AmountUSD)
	assert.Equal(t, "€1001.30", q.Display)
	assert.Equal(t, "EUR", q.DisplayCurrency)
	assert.Equal(t, int64(117800), Cents(q.AmountUSD))
}

func TestNewQuote_AmountIndependentOfDisplayCurrency(t *testing.T) {
	var amounts []int64
	for _, c := range Currencies() {
		q, err := NewQuote(2, 15, 3, c.Code)
		require.NoError(t, err)
		amounts = append(amounts, q.AmountUSD)
	}
	for _, a := range amounts {
		assert.Equal(t, int64(397*2), a)
	}
}
