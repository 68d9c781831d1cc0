package services

import (
	"context"

	"petalpaint/internal/models"
	"petalpaint/internal/repositories"

	"go.uber.org/zap"
)

// inventory applies order lifecycle stock movements.
type inventory struct {
	products repositories.ProductRepository
	log      *zap.Logger
}

// take decrements stock for every line, all or nothing. Each decrement is a
// conditional update, so stock never goes negative.
func (inv inventory) take(ctx context.Context, items []models.OrderItem) error {
	for i, item := range items {
		if err := inv.products.AdjustStock(ctx, item.ProductID, -item.Quantity); err != nil {
			inv.restore(ctx, items[:i])
			return err
		}
	}
	return nil
}

// restore gives stock back for every line. Failures are logged, not returned,
// because the caller has already committed the order state change.
func (inv inventory) restore(ctx context.Context, items []models.OrderItem) {
	for _, item := range items {
		if err := inv.products.AdjustStock(ctx, item.ProductID, item.Quantity); err != nil {
			inv.log.Error("Failed to restore stock, manual reconciliation required",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err),
			)
		}
	}
}
