package crm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/retail/backend/internal/domain/pos"
	"github.com/retail/backend/internal/domain/shared"
)

// SaleCompletedHandler updates customer visit statistics and accrues loyalty
// points when a sale completes. Walk-in sales carry no customer reference and
// are skipped. Redelivered events are dropped by the idempotency wrapper
// before they reach this handler.
type SaleCompletedHandler struct {
	customers *CustomerService
	logger    *zap.Logger
}

// NewSaleCompletedHandler creates a new SaleCompletedHandler
func NewSaleCompletedHandler(customers *CustomerService, logger *zap.Logger) *SaleCompletedHandler {
	return &SaleCompletedHandler{
		customers: customers,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler processes
func (h *SaleCompletedHandler) EventTypes() []string {
	return []string{pos.EventTypeSaleCompleted}
}

// Handle records the visit and accrues loyalty points for the sale's customer
func (h *SaleCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*pos.SaleCompletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", pos.EventTypeSaleCompleted),
			zap.String("got", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s", pos.EventTypeSaleCompleted, event.EventType())
	}

	if completed.CustomerID == nil {
		return nil
	}

	h.logger.Info("recording customer visit for completed sale",
		zap.String("sale_number", completed.Number),
		zap.String("customer_id", completed.CustomerID.String()),
		zap.String("grand_total", completed.GrandTotal.String()),
	)

	if _, err := h.customers.RecordSaleVisit(ctx, *completed.CustomerID, completed.GrandTotal, completed.OccurredAt(), completed.Number); err != nil {
		h.logger.Error("failed to record customer visit",
			zap.String("sale_number", completed.Number),
			zap.String("customer_id", completed.CustomerID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to record customer visit for sale %s: %w", completed.Number, err)
	}

	return nil
}

var _ shared.EventHandler = (*SaleCompletedHandler)(nil)
