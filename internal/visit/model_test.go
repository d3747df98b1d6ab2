package visit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceTreatments_RoundsPerLineThenTotal(t *testing.T) {
	lines := []TreatmentInput{
		{Name: "Cryotherapy", Quantity: 2, UnitPrice: decimal.NewFromFloat(10.005)},
		{Name: "Dressing", Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
	}

	treatments, total := PriceTreatments(lines)

	require.Len(t, treatments, 2)
	assert.Equal(t, "20.01", treatments[0].TotalPrice.StringFixed(2))
	assert.Equal(t, "5.00", treatments[1].TotalPrice.StringFixed(2))
	assert.Equal(t, "25.01", total.StringFixed(2))
}

func TestPriceTreatments_DefaultsQuantityToOne(t *testing.T) {
	lines := []TreatmentInput{
		{Name: "Consult", Quantity: 0, UnitPrice: decimal.NewFromInt(40)},
		{Name: "Bandage", Quantity: -3, UnitPrice: decimal.NewFromInt(2)},
	}

	treatments, total := PriceTreatments(lines)

	require.Len(t, treatments, 2)
	assert.Equal(t, int64(1), treatments[0].Quantity)
	assert.Equal(t, int64(1), treatments[1].Quantity)
	assert.Equal(t, "42.00", total.StringFixed(2))
}

func TestPriceTreatments_Empty(t *testing.T) {
	treatments, total := PriceTreatments(nil)

	assert.Empty(t, treatments)
	assert.True(t, total.IsZero())
}
