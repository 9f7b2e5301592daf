package inventory

import (
	"math"

	"github.com/shopspring/decimal"
)

var maxQuantity = decimal.NewFromInt(math.MaxInt32)

// ParseQuantity convierte una cantidad recibida a unidades enteras.
// ok es false si no es un entero positivo o excede el máximo admitido.
func ParseQuantity(q decimal.Decimal) (n int64, ok bool) {
	if !q.IsPositive() || !q.Equal(q.Truncate(0)) || q.GreaterThan(maxQuantity) {
		return 0, false
	}
	return q.IntPart(), true
}
