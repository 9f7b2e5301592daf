package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWeightedAverageCost(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name     string
		onHand   int64
		current  decimal.Decimal
		incoming int64
		cost     decimal.Decimal
		want     string
	}{
		{"sin existencias toma el costo de entrada", 0, d("0"), 10, d("1500"), "1500"},
		{"promedia", 10, d("1000"), 10, d("2000"), "1500"},
		{"pondera por cantidad", 30, d("1000"), 10, d("2000"), "1250"},
		{"redondea a cuatro decimales", 2, d("1"), 1, d("2"), "1.3333"},
		{"existencias negativas no cuentan", -5, d("900"), 5, d("1000"), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedAverageCost(tt.onHand, tt.current, tt.incoming, tt.cost)
			assert.True(t, d(tt.want).Equal(got), "esperado %s, obtenido %s", tt.want, got)
		})
	}
}

func TestParseQuantity(t *testing.T) {
	d := decimal.RequireFromString
	n, ok := ParseQuantity(d("3"))
	assert.True(t, ok)
	assert.Equal(t, int64(3), n)

	n, ok = ParseQuantity(d("5.000"))
	assert.True(t, ok)
	assert.Equal(t, int64(5), n)

	for _, bad := range []string{"0", "-2", "1.5", "99999999999"} {
		_, ok := ParseQuantity(d(bad))
		assert.False(t, ok, bad)
	}
}
