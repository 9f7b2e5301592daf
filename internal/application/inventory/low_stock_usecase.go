package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/comercio-api/internal/application/dto"
	"github.com/jhoicas/comercio-api/internal/domain"
	"github.com/jhoicas/comercio-api/internal/domain/repository"
)

// LowStockUseCase reporte de productos bajo su stock mínimo, con la cantidad sugerida
// para volver a un nivel ideal (1.5 veces el mínimo).
type LowStockUseCase struct {
	stock repository.StockRepository
}

// NewLowStockUseCase construye el caso de uso.
func NewLowStockUseCase(stock repository.StockRepository) *LowStockUseCase {
	return &LowStockUseCase{stock: stock}
}

// List devuelve los productos bajo el mínimo. areaID vacío considera todas las áreas del tenant.
// El orden prioriza el mayor déficit relativo y luego el absoluto.
func (uc *LowStockUseCase) List(ctx context.Context, tenantID, areaID string) ([]dto.LowStockResponse, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant requerido", domain.ErrUnauthorized)
	}
	items, err := uc.stock.ListBelowMinimum(ctx, tenantID, areaID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.LowStockResponse, 0, len(items))
	for _, it := range items {
		ideal := (it.MinStock*3 + 1) / 2
		suggested := ideal - it.Quantity
		if suggested < 0 {
			suggested = 0
		}
		out = append(out, dto.LowStockResponse{
			ProductID:         it.ProductID,
			ProductName:       it.ProductName,
			SKU:               it.SKU,
			AreaID:            it.AreaID,
			Quantity:          it.Quantity,
			MinStock:          it.MinStock,
			SuggestedOrderQty: suggested,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		// déficit relativo a/b comparado sin divisiones: (min-q)/min
		ra := (a.MinStock - a.Quantity) * b.MinStock
		rb := (b.MinStock - b.Quantity) * a.MinStock
		if ra != rb {
			return ra > rb
		}
		return a.MinStock-a.Quantity > b.MinStock-b.Quantity
	})
	for i := range out {
		out[i].Priority = i + 1
	}
	return out, nil
}
