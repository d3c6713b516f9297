package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/storefront"
	"go.uber.org/zap"
)

// StorefrontOrderConfirmedHandler reserves stock when a storefront order
// is accepted. The reservation holds the goods until the order is
// fulfilled or cancelled.
type StorefrontOrderConfirmedHandler struct {
	stocks *StockService
	logger *zap.Logger
}

// NewStorefrontOrderConfirmedHandler creates a new handler for order confirmations
func NewStorefrontOrderConfirmedHandler(stocks *StockService, logger *zap.Logger) *StorefrontOrderConfirmedHandler {
	return &StorefrontOrderConfirmedHandler{
		stocks: stocks,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *StorefrontOrderConfirmedHandler) EventTypes() []string {
	return []string{"StorefrontOrderConfirmed"}
}

// Handle reserves stock for each line of the confirmed order. A line that
// cannot be reserved rolls back the reservations already made so the
// order can be reconfirmed once stock arrives.
func (h *StorefrontOrderConfirmedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	confirmed, ok := event.(*storefront.StorefrontOrderConfirmedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", "StorefrontOrderConfirmed"),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected StorefrontOrderConfirmed, got %s", event.EventType())
	}

	h.logger.Info("reserving stock for confirmed storefront order",
		zap.String("order_id", confirmed.OrderID.String()),
		zap.String("number", confirmed.Number),
		zap.Int("lines", len(confirmed.Lines)),
	)

	reserved := make([]storefront.OrderLineInfo, 0, len(confirmed.Lines))
	for _, line := range confirmed.Lines {
		_, err := h.stocks.Reserve(ctx, ReserveStockRequest{
			LocationID: &confirmed.LocationID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
		})
		if err != nil {
			h.logger.Error("failed to reserve stock for order line",
				zap.String("number", confirmed.Number),
				zap.String("product_id", line.ProductID.String()),
				zap.String("quantity", line.Quantity.String()),
				zap.Error(err),
			)
			h.rollbackReservations(ctx, confirmed.Number, confirmed.LocationID, reserved)
			return fmt.Errorf("reserve stock for order %s: %w", confirmed.Number, err)
		}
		reserved = append(reserved, line)
	}

	return nil
}

// rollbackReservations releases already-reserved lines after a mid-order
// failure
func (h *StorefrontOrderConfirmedHandler) rollbackReservations(ctx context.Context, number string, locationID uuid.UUID, reserved []storefront.OrderLineInfo) {
	for _, line := range reserved {
		_, err := h.stocks.Release(ctx, ReleaseStockRequest{
			LocationID: &locationID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
		})
		if err != nil {
			h.logger.Error("failed to release reservation during rollback",
				zap.String("number", number),
				zap.String("product_id", line.ProductID.String()),
				zap.Error(err),
			)
		}
	}
}

// Ensure StorefrontOrderConfirmedHandler implements shared.EventHandler
var _ shared.EventHandler = (*StorefrontOrderConfirmedHandler)(nil)

// StorefrontOrderFulfilledHandler deducts reserved stock when a storefront
// order is handed over. Each line becomes a sale movement referencing the
// order number.
type StorefrontOrderFulfilledHandler struct {
	stocks *StockService
	logger *zap.Logger
}

// NewStorefrontOrderFulfilledHandler creates a new handler for order fulfillments
func NewStorefrontOrderFulfilledHandler(stocks *StockService, logger *zap.Logger) *StorefrontOrderFulfilledHandler {
	return &StorefrontOrderFulfilledHandler{
		stocks: stocks,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *StorefrontOrderFulfilledHandler) EventTypes() []string {
	return []string{"StorefrontOrderFulfilled"}
}

// Handle consumes the reservation for each line of the fulfilled order.
// A redelivered event must not deduct twice: any ledger row carrying the
// order number means this fulfillment was already processed.
func (h *StorefrontOrderFulfilledHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fulfilled, ok := event.(*storefront.StorefrontOrderFulfilledEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", "StorefrontOrderFulfilled"),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected StorefrontOrderFulfilled, got %s", event.EventType())
	}

	existing, err := h.stocks.MovementsByReference(ctx, fulfilled.Number)
	if err != nil {
		return fmt.Errorf("check existing movements for order %s: %w", fulfilled.Number, err)
	}
	if len(existing) > 0 {
		h.logger.Warn("order already has stock movements, skipping",
			zap.String("number", fulfilled.Number),
			zap.Int("movements", len(existing)),
		)
		return nil
	}

	h.logger.Info("deducting reserved stock for fulfilled storefront order",
		zap.String("order_id", fulfilled.OrderID.String()),
		zap.String("number", fulfilled.Number),
		zap.Int("lines", len(fulfilled.Lines)),
	)

	for _, line := range fulfilled.Lines {
		_, err := h.stocks.DeductReserved(ctx, DeductStockRequest{
			LocationID: &fulfilled.LocationID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			Reference:  fulfilled.Number,
		})
		if err != nil {
			h.logger.Error("failed to deduct reserved stock for order line",
				zap.String("number", fulfilled.Number),
				zap.String("product_id", line.ProductID.String()),
				zap.Error(err),
			)
			return fmt.Errorf("deduct reserved stock for order %s: %w", fulfilled.Number, err)
		}
	}

	return nil
}

// Ensure StorefrontOrderFulfilledHandler implements shared.EventHandler
var _ shared.EventHandler = (*StorefrontOrderFulfilledHandler)(nil)

// StorefrontOrderCancelledHandler releases the stock reservation when a
// confirmed storefront order is cancelled. Orders cancelled before
// confirmation never reserved stock, so those are ignored.
type StorefrontOrderCancelledHandler struct {
	stocks *StockService
	logger *zap.Logger
}

// NewStorefrontOrderCancelledHandler creates a new handler for order cancellations
func NewStorefrontOrderCancelledHandler(stocks *StockService, logger *zap.Logger) *StorefrontOrderCancelledHandler {
	return &StorefrontOrderCancelledHandler{
		stocks: stocks,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *StorefrontOrderCancelledHandler) EventTypes() []string {
	return []string{"StorefrontOrderCancelled"}
}

// Handle releases the reservation held by a cancelled confirmed order
func (h *StorefrontOrderCancelledHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	cancelled, ok := event.(*storefront.StorefrontOrderCancelledEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", "StorefrontOrderCancelled"),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected StorefrontOrderCancelled, got %s", event.EventType())
	}

	if !cancelled.WasConfirmed {
		return nil
	}

	h.logger.Info("releasing reservation for cancelled storefront order",
		zap.String("order_id", cancelled.OrderID.String()),
		zap.String("number", cancelled.Number),
		zap.String("reason", cancelled.Reason),
		zap.Int("lines", len(cancelled.Lines)),
	)

	for _, line := range cancelled.Lines {
		_, err := h.stocks.Release(ctx, ReleaseStockRequest{
			LocationID: &cancelled.LocationID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
		})
		if err != nil {
			h.logger.Error("failed to release reservation for cancelled order line",
				zap.String("number", cancelled.Number),
				zap.String("product_id", line.ProductID.String()),
				zap.Error(err),
			)
			return fmt.Errorf("release reservation for order %s: %w", cancelled.Number, err)
		}
	}

	return nil
}

// Ensure StorefrontOrderCancelledHandler implements shared.EventHandler
var _ shared.EventHandler = (*StorefrontOrderCancelledHandler)(nil)
