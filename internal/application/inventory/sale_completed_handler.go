package inventory

import (
	"context"
	"fmt"

	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/pos"
	"github.com/retail/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// SaleCompletedHandler deducts stock when a sale completes at the till.
// Each sale line becomes a sale movement referencing the sale number.
type SaleCompletedHandler struct {
	stocks *StockService
	logger *zap.Logger
}

// NewSaleCompletedHandler creates a new handler for sale completed events
func NewSaleCompletedHandler(stocks *StockService, logger *zap.Logger) *SaleCompletedHandler {
	return &SaleCompletedHandler{
		stocks: stocks,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *SaleCompletedHandler) EventTypes() []string {
	return []string{pos.EventTypeSaleCompleted}
}

// Handle deducts stock for each line of the completed sale. If a line
// cannot be deducted, the lines already deducted are returned to stock so
// the ledger nets to zero, and the error surfaces in the logs for the
// merchant to resolve with a stock adjustment.
func (h *SaleCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*pos.SaleCompletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", pos.EventTypeSaleCompleted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			pos.EventTypeSaleCompleted, event.EventType())
	}

	h.logger.Info("deducting stock for completed sale",
		zap.String("sale_id", completed.SaleID.String()),
		zap.String("number", completed.Number),
		zap.Int("lines", len(completed.Lines)),
	)

	// Redelivered events must not deduct twice. Any ledger row carrying
	// the sale number means this sale was already processed.
	existing, err := h.stocks.MovementsByReference(ctx, completed.Number)
	if err != nil {
		return fmt.Errorf("check existing movements for sale %s: %w", completed.Number, err)
	}
	if len(existing) > 0 {
		h.logger.Warn("sale already has stock movements, skipping",
			zap.String("number", completed.Number),
			zap.Int("movements", len(existing)),
		)
		return nil
	}

	deducted := make([]pos.SaleLineInfo, 0, len(completed.Lines))
	for _, line := range completed.Lines {
		_, err := h.stocks.DeductForSale(ctx, DeductStockRequest{
			LocationID: &completed.LocationID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			Reference:  completed.Number,
		})
		if err != nil {
			h.logger.Error("failed to deduct stock for sale line",
				zap.String("number", completed.Number),
				zap.String("product_id", line.ProductID.String()),
				zap.String("quantity", line.Quantity.String()),
				zap.Error(err),
			)
			h.compensate(ctx, completed, deducted)
			return fmt.Errorf("deduct stock for sale %s: %w", completed.Number, err)
		}
		deducted = append(deducted, line)
	}

	h.logger.Info("stock deducted for completed sale",
		zap.String("number", completed.Number),
		zap.Int("lines", len(deducted)),
	)

	return nil
}

// compensate returns already-deducted lines to stock after a mid-sale
// failure
func (h *SaleCompletedHandler) compensate(ctx context.Context, completed *pos.SaleCompletedEvent, deducted []pos.SaleLineInfo) {
	for _, line := range deducted {
		_, err := h.stocks.ReturnFromSale(ctx, ReturnStockRequest{
			LocationID: &completed.LocationID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			Reference:  completed.Number,
		})
		if err != nil {
			h.logger.Error("failed to compensate deducted sale line",
				zap.String("number", completed.Number),
				zap.String("product_id", line.ProductID.String()),
				zap.Error(err),
			)
		}
	}
}

// Ensure SaleCompletedHandler implements shared.EventHandler
var _ shared.EventHandler = (*SaleCompletedHandler)(nil)

// SaleVoidedHandler restores stock when a completed sale is voided. Sales
// voided while still open never deducted stock, so those are ignored.
type SaleVoidedHandler struct {
	stocks *StockService
	logger *zap.Logger
}

// NewSaleVoidedHandler creates a new handler for sale voided events
func NewSaleVoidedHandler(stocks *StockService, logger *zap.Logger) *SaleVoidedHandler {
	return &SaleVoidedHandler{
		stocks: stocks,
		logger: logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *SaleVoidedHandler) EventTypes() []string {
	return []string{pos.EventTypeSaleVoided}
}

// Handle returns the voided sale's lines to stock
func (h *SaleVoidedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	voided, ok := event.(*pos.SaleVoidedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", pos.EventTypeSaleVoided),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			pos.EventTypeSaleVoided, event.EventType())
	}

	if !voided.WasCompleted {
		return nil
	}

	// A redelivered void must not restore twice. A return row carrying the
	// sale number means the restoration already ran.
	existing, err := h.stocks.MovementsByReference(ctx, voided.Number)
	if err != nil {
		return fmt.Errorf("check existing movements for sale %s: %w", voided.Number, err)
	}
	for _, movement := range existing {
		if movement.Type == string(inventory.MovementTypeReturn) {
			h.logger.Warn("voided sale already restored, skipping",
				zap.String("number", voided.Number),
			)
			return nil
		}
	}

	h.logger.Info("restoring stock for voided sale",
		zap.String("sale_id", voided.SaleID.String()),
		zap.String("number", voided.Number),
		zap.String("reason", voided.Reason),
		zap.Int("lines", len(voided.Lines)),
	)

	for _, line := range voided.Lines {
		_, err := h.stocks.ReturnFromSale(ctx, ReturnStockRequest{
			LocationID: &voided.LocationID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
			Reference:  voided.Number,
		})
		if err != nil {
			h.logger.Error("failed to restore stock for voided sale line",
				zap.String("number", voided.Number),
				zap.String("product_id", line.ProductID.String()),
				zap.Error(err),
			)
			return fmt.Errorf("restore stock for sale %s: %w", voided.Number, err)
		}
	}

	return nil
}

// Ensure SaleVoidedHandler implements shared.EventHandler
var _ shared.EventHandler = (*SaleVoidedHandler)(nil)
