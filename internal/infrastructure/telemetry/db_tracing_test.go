package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestModel is a simple model for testing database operations
type TestModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100"`
	CreatedAt time.Time
}

// setupTestDB creates a new SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&TestModel{})
	require.NoError(t, err)

	return db
}

// setupTracerWithExporter creates a tracer provider with a span recorder for testing
func setupTracerWithExporter(t *testing.T) (*trace.TracerProvider, *tracetest.SpanRecorder) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(spanRecorder))
	return tp, spanRecorder
}

func TestDefaultDBTracingConfig(t *testing.T) {
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.Enabled)
	assert.False(t, cfg.LogFullSQL)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThresh)
}

func TestNewDBTracingPlugin(t *testing.T) {
	logger := zap.NewNop()
	cfg := DefaultDBTracingConfig()
	cfg.Enabled = true

	plugin := NewDBTracingPlugin(cfg, logger)

	assert.NotNil(t, plugin)
	assert.Equal(t, cfg, plugin.config)
}

func TestDBTracingPlugin_RegisterOtelGorm_Disabled(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DefaultDBTracingConfig()
	cfg.Enabled = false

	plugin := NewDBTracingPlugin(cfg, logger)
	err := plugin.RegisterOtelGorm(db, "shared")

	assert.NoError(t, err)
}

func TestDBTracingPlugin_RegisterOtelGorm_Enabled(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:         true,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
	}

	plugin := NewDBTracingPlugin(cfg, logger)
	err := plugin.RegisterOtelGorm(db, "shared")

	assert.NoError(t, err)
}

func TestDBTracingPlugin_RegisterOtelGorm_WithFullSQL(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:         true,
		LogFullSQL:      true,
		SlowQueryThresh: 200 * time.Millisecond,
	}

	plugin := NewDBTracingPlugin(cfg, logger)
	err := plugin.RegisterOtelGorm(db, "shared")

	assert.NoError(t, err)
}

func TestDBTracingPlugin_RegisterOtelGorm_DoubleRegistration(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:         true,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
	}

	plugin := NewDBTracingPlugin(cfg, logger)

	// First registration should succeed
	err := plugin.RegisterOtelGorm(db, "shared")
	assert.NoError(t, err)

	// Second registration should fail (duplicate plugin/callback names)
	err = plugin.RegisterOtelGorm(db, "shared")
	assert.Error(t, err)
}

func TestDBTracingPlugin_RegisterOtelGorm_PerPool(t *testing.T) {
	// One plugin instance serves every pool the process opens
	sharedDB := setupTestDB(t)
	dedicatedDB := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:         true,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
	}

	plugin := NewDBTracingPlugin(cfg, logger)

	err := plugin.RegisterOtelGorm(sharedDB, "retail_shared")
	assert.NoError(t, err)

	err = plugin.RegisterOtelGorm(dedicatedDB, "retail_tenant_acme")
	assert.NoError(t, err)
}

func TestSlowQueryCallback_RowsAffected(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "rows-affected-test")

	db = db.WithContext(ctx)
	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
	}, zap.NewNop())

	// Create multiple records
	models := []TestModel{{Name: "test1"}, {Name: "test2"}, {Name: "test3"}}
	result := db.Create(&models)
	require.NoError(t, result.Error)

	plugin.slowQueryCallback(result.Statement.DB)
	span.End()

	spans := spanRecorder.Ended()
	require.NotEmpty(t, spans)

	// Check for rows affected attribute
	testSpan := spans[0]
	foundRows := false
	for _, attr := range testSpan.Attributes() {
		if attr.Key == "db.rows_affected" {
			foundRows = true
			assert.Equal(t, int64(3), attr.Value.AsInt64())
			break
		}
	}
	assert.True(t, foundRows, "db.rows_affected attribute should be present")
}

func TestSlowQueryCallback_TableAttribute(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "table-test")

	db = db.WithContext(ctx)
	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
	}, zap.NewNop())

	// Create test data - this should set the table name
	result := db.Create(&TestModel{Name: "test"})
	require.NoError(t, result.Error)

	plugin.slowQueryCallback(result.Statement.DB)
	span.End()

	spans := spanRecorder.Ended()
	require.NotEmpty(t, spans)

	// Check for table attribute
	testSpan := spans[0]
	foundTable := false
	for _, attr := range testSpan.Attributes() {
		if attr.Key == "db.sql.table" {
			foundTable = true
			assert.Equal(t, "test_models", attr.Value.AsString())
			break
		}
	}
	_ = foundTable // Table attribute may not always be set depending on GORM version
}

func TestSlowQueryCallback_SlowQueryEvent(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "slow-query-event-test")

	// Stamp a start time far enough back to exceed the threshold
	ctx = context.WithValue(ctx, queryStartTimeKey, time.Now().Add(-300*time.Millisecond))
	db = db.WithContext(ctx)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
	}, zap.NewNop())

	plugin.slowQueryCallback(db)
	span.End()

	spans := spanRecorder.Ended()
	require.NotEmpty(t, spans)

	// Check for slow_query_warning event
	testSpan := spans[0]
	foundEvent := false
	for _, event := range testSpan.Events() {
		if event.Name == "slow_query_warning" {
			foundEvent = true
			for _, attr := range event.Attributes {
				if attr.Key == "duration_ms" {
					assert.GreaterOrEqual(t, attr.Value.AsInt64(), int64(200))
				}
				if attr.Key == "threshold_ms" {
					assert.Equal(t, int64(200), attr.Value.AsInt64())
				}
			}
		}
	}
	assert.True(t, foundEvent, "slow_query_warning event should be present")
}

func TestSlowQueryCallback_FastQueryNoEvent(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "fast-query-test")

	ctx = context.WithValue(ctx, queryStartTimeKey, time.Now())
	db = db.WithContext(ctx)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Hour,
	}, zap.NewNop())

	plugin.slowQueryCallback(db)
	span.End()

	spans := spanRecorder.Ended()
	require.NotEmpty(t, spans)

	for _, event := range spans[0].Events() {
		assert.NotEqual(t, "slow_query_warning", event.Name)
	}
}

func TestSlowQueryCallback_RecordNotFoundNotAnError(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "error-test")

	db = db.WithContext(ctx)

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
	}, zap.NewNop())

	// Try to find a non-existent record (this should set db.Error = ErrRecordNotFound)
	var result TestModel
	tx := db.First(&result, 99999)

	// ErrRecordNotFound should NOT be marked as error
	plugin.slowQueryCallback(tx)
	span.End()

	spans := spanRecorder.Ended()
	require.NotEmpty(t, spans)

	// Check that ErrRecordNotFound is not marked as error
	testSpan := spans[0]
	assert.NotEqual(t, codes.Error, testSpan.Status().Code)
}

func TestSlowQueryCallback_NonRecordingSpan(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:         true,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
	}

	plugin := NewDBTracingPlugin(cfg, logger)

	// Create a context without a span
	ctx := context.Background()
	db = db.WithContext(ctx)

	// This should not panic even without a recording span
	plugin.slowQueryCallback(db)
}

func TestSlowQueryCallback_NilContext(t *testing.T) {
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:         true,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
	}

	plugin := NewDBTracingPlugin(cfg, logger)

	// Create a DB without context
	db := setupTestDB(t)

	// This should not panic with nil context
	plugin.slowQueryCallback(db)
}

func TestDBTracingPlugin_IntegrationWithOtelGorm(t *testing.T) {
	db := setupTestDB(t)
	tp, spanRecorder := setupTracerWithExporter(t)
	defer func() { _ = tp.Shutdown(context.Background()) }()
	logger := zap.NewNop()

	cfg := DBTracingConfig{
		Enabled:         true,
		LogFullSQL:      true,
		SlowQueryThresh: 200 * time.Millisecond,
	}

	plugin := NewDBTracingPlugin(cfg, logger)
	err := plugin.RegisterOtelGorm(db, "retail_shared")
	require.NoError(t, err)

	// Create a traced context
	tracer := tp.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "integration-test")

	// Perform database operations
	db = db.WithContext(ctx)
	result := db.Create(&TestModel{Name: "integration-test"})
	require.NoError(t, result.Error)

	var found TestModel
	result = db.First(&found, "name = ?", "integration-test")
	require.NoError(t, result.Error)
	assert.Equal(t, "integration-test", found.Name)

	span.End()

	// Check that spans were recorded
	spans := spanRecorder.Ended()
	assert.NotEmpty(t, spans)
}

func TestDBTracingConfig_SecurityDefaults(t *testing.T) {
	// Verify that the default config keeps SQL text and parameters out of spans
	cfg := DefaultDBTracingConfig()

	assert.False(t, cfg.LogFullSQL, "LogFullSQL should be disabled by default for security")
}

// BenchmarkSlowQueryCallback benchmarks the callback performance
func BenchmarkSlowQueryCallback(b *testing.B) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		b.Fatal(err)
	}

	err = db.AutoMigrate(&TestModel{})
	if err != nil {
		b.Fatal(err)
	}

	plugin := NewDBTracingPlugin(DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: 200 * time.Millisecond,
	}, zap.NewNop())
	ctx := context.Background()
	db = db.WithContext(ctx)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		plugin.slowQueryCallback(db)
	}
}

// TestVerifySpanAttributes verifies that expected span attributes are set
func TestVerifySpanAttributes(t *testing.T) {
	tests := []struct {
		name          string
		attrs         []attribute.KeyValue
		expectedKey   attribute.Key
		expectedValue interface{}
	}{
		{
			name: "db.rows_affected",
			attrs: []attribute.KeyValue{
				attribute.Int64("db.rows_affected", 5),
			},
			expectedKey:   "db.rows_affected",
			expectedValue: int64(5),
		},
		{
			name: "db.sql.table",
			attrs: []attribute.KeyValue{
				attribute.String("db.sql.table", "test_models"),
			},
			expectedKey:   "db.sql.table",
			expectedValue: "test_models",
		},
		{
			name: "db.slow_query",
			attrs: []attribute.KeyValue{
				attribute.Bool("db.slow_query", true),
			},
			expectedKey:   "db.slow_query",
			expectedValue: true,
		},
		{
			name: "db.query_duration_ms",
			attrs: []attribute.KeyValue{
				attribute.Int64("db.query_duration_ms", 250),
			},
			expectedKey:   "db.query_duration_ms",
			expectedValue: int64(250),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			found := false
			for _, attr := range tc.attrs {
				if attr.Key == tc.expectedKey {
					found = true
					switch v := tc.expectedValue.(type) {
					case int64:
						assert.Equal(t, v, attr.Value.AsInt64())
					case string:
						assert.Equal(t, v, attr.Value.AsString())
					case bool:
						assert.Equal(t, v, attr.Value.AsBool())
					}
				}
			}
			assert.True(t, found, "Expected attribute %s not found", tc.expectedKey)
		})
	}
}
