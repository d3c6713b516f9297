package tenantdb

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/retail/backend/internal/domain/tenancy"
	"github.com/retail/backend/internal/infrastructure/telemetry"
)

// Metric attribute keys.
var (
	attrPlacement = attribute.Key("placement")
	attrResult    = attribute.Key("result")
)

// Metrics records routing and move telemetry. All methods are nil-safe so
// components can run without a meter wired in.
type Metrics struct {
	resolutions      *telemetry.Counter
	directoryLookups *telemetry.Counter
	openPools        *telemetry.Gauge
	moveDuration     *telemetry.Histogram
	moveRows         *telemetry.Counter
	sweptRows        *telemetry.Counter
}

// NewMetrics creates the tenantdb instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	resolutions, err := telemetry.NewCounter(
		meter,
		"tenantdb_resolutions_total",
		"Number of tenant resolutions by placement",
		"{resolution}",
	)
	if err != nil {
		return nil, err
	}

	directoryLookups, err := telemetry.NewCounter(
		meter,
		"tenantdb_directory_lookups_total",
		"Directory cache lookups by result",
		"{lookup}",
	)
	if err != nil {
		return nil, err
	}

	openPools, err := telemetry.NewGauge(
		meter,
		"tenantdb_dedicated_pools_open",
		"Number of open dedicated tenant pools",
		"{pool}",
	)
	if err != nil {
		return nil, err
	}

	moveDuration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "tenantdb_move_duration_seconds",
		Description: "Duration of tenant moves to dedicated databases",
		Unit:        "s",
		Boundaries:  []float64{0.5, 1, 5, 15, 60, 300, 900},
	})
	if err != nil {
		return nil, err
	}

	moveRows, err := telemetry.NewCounter(
		meter,
		"tenantdb_move_rows_total",
		"Rows copied to dedicated databases by the mover",
		"{row}",
	)
	if err != nil {
		return nil, err
	}

	sweptRows, err := telemetry.NewCounter(
		meter,
		"tenantdb_janitor_swept_rows_total",
		"Shared pool rows reclaimed by the janitor after moves",
		"{row}",
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		resolutions:      resolutions,
		directoryLookups: directoryLookups,
		openPools:        openPools,
		moveDuration:     moveDuration,
		moveRows:         moveRows,
		sweptRows:        sweptRows,
	}, nil
}

// RecordResolution counts a successful resolution to a placement.
func (m *Metrics) RecordResolution(ctx context.Context, placement tenancy.Placement) {
	if m == nil {
		return
	}
	m.resolutions.Inc(ctx, attrPlacement.String(string(placement)))
}

// RecordDirectoryLookup counts a directory cache hit or miss.
func (m *Metrics) RecordDirectoryLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.directoryLookups.Inc(ctx, attrResult.String(result))
}

// RecordOpenPools records the current number of open dedicated pools.
func (m *Metrics) RecordOpenPools(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.openPools.Record(ctx, int64(n))
}

// RecordMove records a completed tenant move.
func (m *Metrics) RecordMove(ctx context.Context, d time.Duration, rows int64) {
	if m == nil {
		return
	}
	m.moveDuration.RecordDuration(ctx, d)
	m.moveRows.Add(ctx, rows)
}

// RecordSweep records rows reclaimed by a janitor sweep.
func (m *Metrics) RecordSweep(ctx context.Context, rows int64) {
	if m == nil || rows == 0 {
		return
	}
	m.sweptRows.Add(ctx, rows)
}
