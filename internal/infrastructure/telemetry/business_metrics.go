// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the retail backend.
// It tracks completed sales, storefront orders, channel message delivery,
// and stock health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	saleCompletedTotal     *Counter
	saleAmountTotal        *Counter
	orderPlacedTotal       *Counter
	messageDispatchedTotal *Counter

	// Gauge metrics (point-in-time values)
	stockReservedQuantity *Gauge
	stockLowCount         *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	stockProvider StockMetricsProvider
}

// StockMetricsProvider provides stock data for periodic metrics collection.
// This interface allows the telemetry layer to query stock state without
// depending on the inventory domain directly.
type StockMetricsProvider interface {
	// GetReservedQuantityByLocation returns total reserved quantity per location for a tenant
	GetReservedQuantityByLocation(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]int64, error)

	// GetLowStockCount returns count of products at or below their reorder point for a tenant
	GetLowStockCount(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	StockProvider   StockMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:         cfg.Meter,
		logger:        logger,
		stopChan:      make(chan struct{}),
		stockProvider: cfg.StockProvider,
	}

	// Initialize counter metrics
	var err error

	// Sale metrics
	bm.saleCompletedTotal, err = NewCounter(
		cfg.Meter,
		"retail_sale_completed_total",
		"Total number of completed sales",
		"{sales}",
	)
	if err != nil {
		return nil, err
	}

	bm.saleAmountTotal, err = NewCounter(
		cfg.Meter,
		"retail_sale_amount_total",
		"Total sale amount in the smallest currency unit",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	// Storefront order metrics
	bm.orderPlacedTotal, err = NewCounter(
		cfg.Meter,
		"retail_order_placed_total",
		"Total number of storefront orders placed",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	// Channel message metrics
	bm.messageDispatchedTotal, err = NewCounter(
		cfg.Meter,
		"retail_message_dispatched_total",
		"Total number of outbound channel message deliveries",
		"{messages}",
	)
	if err != nil {
		return nil, err
	}

	// Stock gauge metrics
	bm.stockReservedQuantity, err = NewGauge(
		cfg.Meter,
		"retail_stock_reserved_quantity",
		"Current stock quantity reserved for placed orders",
		"{units}",
	)
	if err != nil {
		return nil, err
	}

	bm.stockLowCount, err = NewGauge(
		cfg.Meter,
		"retail_stock_low_count",
		"Number of products at or below their reorder point",
		"{products}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Sale Metrics
// =============================================================================

// RecordSaleCompleted records a completed sale.
// This should be called from the application layer when a sale is completed.
func (bm *BusinessMetrics) RecordSaleCompleted(ctx context.Context, tenantID uuid.UUID, paymentMethod string) {
	bm.saleCompletedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrPaymentMethod.String(paymentMethod),
	)
}

// RecordSaleAmount records the sale amount.
// Amount should be in the smallest currency unit (cents).
func (bm *BusinessMetrics) RecordSaleAmount(ctx context.Context, tenantID uuid.UUID, paymentMethod string, amountCents int64) {
	bm.saleAmountTotal.Add(ctx, amountCents,
		AttrTenantID.String(tenantID.String()),
		AttrPaymentMethod.String(paymentMethod),
	)
}

// RecordSale is a convenience method that records both sale count and amount.
func (bm *BusinessMetrics) RecordSale(ctx context.Context, tenantID uuid.UUID, paymentMethod string, total decimal.Decimal) {
	bm.RecordSaleCompleted(ctx, tenantID, paymentMethod)

	// Convert to cents (multiply by 100)
	amountCents := total.Mul(decimal.NewFromInt(100)).IntPart()
	bm.RecordSaleAmount(ctx, tenantID, paymentMethod, amountCents)
}

// =============================================================================
// Storefront Order Metrics
// =============================================================================

// RecordOrderPlaced records a storefront order placement.
// Channel is the sales channel the order arrived through.
func (bm *BusinessMetrics) RecordOrderPlaced(ctx context.Context, tenantID uuid.UUID, channel string) {
	bm.orderPlacedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrChannel.String(channel),
	)
}

// =============================================================================
// Channel Message Metrics
// =============================================================================

// DeliveryStatus represents the outcome of a message delivery for metrics labeling.
type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// RecordMessageDispatched records an outbound channel message delivery attempt.
// This should be called when the dispatcher finishes a delivery.
func (bm *BusinessMetrics) RecordMessageDispatched(ctx context.Context, tenantID uuid.UUID, channel string, status DeliveryStatus) {
	bm.messageDispatchedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrChannel.String(channel),
		AttrDeliveryStatus.String(string(status)),
	)
}

// =============================================================================
// Stock Metrics
// =============================================================================

// RecordReservedQuantity records the current reserved stock quantity for a location.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordReservedQuantity(ctx context.Context, tenantID, locationID uuid.UUID, quantity int64) {
	bm.stockReservedQuantity.Record(ctx, quantity,
		AttrTenantID.String(tenantID.String()),
		AttrLocationID.String(locationID.String()),
	)
}

// RecordLowStockCount records the number of products at or below their reorder point.
// This is a gauge metric that should be updated periodically.
func (bm *BusinessMetrics) RecordLowStockCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	bm.stockLowCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects stock metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go bm.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectStockMetrics(ctx, tenantProvider)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectStockMetrics(ctx, tenantProvider)
		}
	}
}

// collectStockMetrics collects stock gauge metrics for all tenants.
func (bm *BusinessMetrics) collectStockMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if bm.stockProvider == nil {
		bm.logger.Debug("No stock provider configured, skipping stock metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		bm.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		bm.collectTenantStockMetrics(ctx, tenantID)
	}
}

// collectTenantStockMetrics collects stock metrics for a single tenant.
func (bm *BusinessMetrics) collectTenantStockMetrics(ctx context.Context, tenantID uuid.UUID) {
	// Collect reserved quantity by location
	reservedByLocation, err := bm.stockProvider.GetReservedQuantityByLocation(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get reserved quantity for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		for locationID, quantity := range reservedByLocation {
			bm.RecordReservedQuantity(ctx, tenantID, locationID, quantity)
		}
	}

	// Collect low stock count
	lowStockCount, err := bm.stockProvider.GetLowStockCount(ctx, tenantID)
	if err != nil {
		bm.logger.Warn("Failed to get low stock count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		bm.RecordLowStockCount(ctx, tenantID, lowStockCount)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// =============================================================================
// Attribute Key Constants
// =============================================================================

// Business metrics attribute keys not already defined in metrics.go
var (
	AttrDeliveryStatus = attribute.Key("delivery_status")
)
