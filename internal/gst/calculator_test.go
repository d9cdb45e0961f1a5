package gst

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gstbill/internal/apperr"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestCalculate_IntraState(t *testing.T) {
	breakup, err := Calculate(d("300"), d("18"), "Delhi", "Delhi")
	require.NoError(t, err)

	assert.True(t, breakup.CGST.Equal(d("27")), "CGST = %s", breakup.CGST)
	assert.True(t, breakup.SGST.Equal(d("27")), "SGST = %s", breakup.SGST)
	assert.True(t, breakup.IGST.IsZero(), "IGST = %s", breakup.IGST)
	assert.True(t, breakup.Total.Equal(d("54")), "Total = %s", breakup.Total)
}

func TestCalculate_InterState(t *testing.T) {
	breakup, err := Calculate(d("300"), d("18"), "Delhi", "Maharashtra")
	require.NoError(t, err)

	assert.True(t, breakup.CGST.IsZero())
	assert.True(t, breakup.SGST.IsZero())
	assert.True(t, breakup.IGST.Equal(d("54")), "IGST = %s", breakup.IGST)
	assert.True(t, breakup.Total.Equal(d("54")))
}

func TestCalculate_ComponentsSumToTotal(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		rate   string
		from   string
		to     string
	}{
		{"intra odd tax", "100.01", "18", "Karnataka", "Karnataka"},
		{"intra small amount", "0.01", "5", "Delhi", "Delhi"},
		{"inter fractional rate", "999.99", "12.5", "Delhi", "Gujarat"},
		{"zero rate", "500", "0", "Delhi", "Delhi"},
		{"full rate", "250", "100", "Delhi", "Punjab"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			breakup, err := Calculate(d(tc.amount), d(tc.rate), tc.from, tc.to)
			require.NoError(t, err)

			sum := breakup.CGST.Add(breakup.SGST).Add(breakup.IGST)
			assert.True(t, sum.Equal(breakup.Total),
				"CGST %s + SGST %s + IGST %s != Total %s",
				breakup.CGST, breakup.SGST, breakup.IGST, breakup.Total)
		})
	}
}

func TestCalculate_ZeroAmount(t *testing.T) {
	breakup, err := Calculate(decimal.Zero, d("18"), "Delhi", "Delhi")
	require.NoError(t, err)

	assert.True(t, breakup.CGST.IsZero())
	assert.True(t, breakup.SGST.IsZero())
	assert.True(t, breakup.IGST.IsZero())
	assert.True(t, breakup.Total.IsZero())
}

func TestCalculate_StateComparisonIsCaseSensitive(t *testing.T) {
	breakup, err := Calculate(d("100"), d("18"), "Delhi", "delhi")
	require.NoError(t, err)

	// Differently-cased states are treated as distinct jurisdictions.
	assert.True(t, breakup.IGST.Equal(d("18")))
	assert.True(t, breakup.CGST.IsZero())
}

func TestCalculate_InvalidInput(t *testing.T) {
	_, err := Calculate(d("-1"), d("18"), "Delhi", "Delhi")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	_, err = Calculate(d("100"), d("-5"), "Delhi", "Delhi")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))

	_, err = Calculate(d("100"), d("101"), "Delhi", "Delhi")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestCalculate_NoPrematureRounding(t *testing.T) {
	// 10.01 at 18% = 1.8018; the calculator must return the exact value and
	// leave rounding to the caller.
	breakup, err := Calculate(d("10.01"), d("18"), "Delhi", "Gujarat")
	require.NoError(t, err)
	assert.True(t, breakup.IGST.Equal(d("1.8018")), "IGST = %s", breakup.IGST)
}
