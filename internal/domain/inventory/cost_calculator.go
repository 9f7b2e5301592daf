package inventory

import "github.com/shopspring/decimal"

// WeightedAverageCost costo promedio ponderado tras una ENTRADA:
// ((existencias * costoActual) + (entrada * costoEntrada)) / (existencias + entrada).
// Se redondea a 4 decimales; sin existencias resultantes el costo es cero.
func WeightedAverageCost(onHand int64, currentCost decimal.Decimal, incoming int64, incomingCost decimal.Decimal) decimal.Decimal {
	total := onHand + incoming
	if total <= 0 {
		return decimal.Zero
	}
	if onHand <= 0 {
		return incomingCost.Round(4)
	}
	num := decimal.NewFromInt(onHand).Mul(currentCost).Add(decimal.NewFromInt(incoming).Mul(incomingCost))
	return num.Div(decimal.NewFromInt(total)).Round(4)
}
