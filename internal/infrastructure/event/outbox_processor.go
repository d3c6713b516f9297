package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/retail/backend/internal/domain/shared"
)

// OutboxPool is one database whose outbox_events table the processor drains.
type OutboxPool struct {
	// Name identifies the pool in logs: "shared" or a dedicated database name.
	Name string
	DB   *gorm.DB
}

// PoolLister returns the databases to drain on each tick. The worker builds
// it from the tenants directory and the dedicated connection cache, so a
// tenant that finishes its move starts being drained on the next tick
// without a restart.
type PoolLister func(ctx context.Context) ([]OutboxPool, error)

// StaticPools returns a PoolLister over a fixed set of pools. Single-database
// deployments and tests use it.
func StaticPools(pools ...OutboxPool) PoolLister {
	return func(context.Context) ([]OutboxPool, error) {
		return pools, nil
	}
}

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  1 * time.Hour,
	}
}

// OutboxProcessor drains outbox entries from every tenant database in the
// background: the shared pool plus each dedicated database the lister
// reports. Entries are claimed with SKIP LOCKED, deserialized, and published
// to the event bus; failures back off per entry and eventually dead-letter.
type OutboxProcessor struct {
	pools      PoolLister
	eventBus   shared.EventBus
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	// repoFor builds the repository for one pool. Tests substitute mocks here.
	repoFor func(db *gorm.DB) shared.OutboxRepository

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	pools PoolLister,
	eventBus shared.EventBus,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		pools:      pools,
		eventBus:   eventBus,
		serializer: serializer,
		config:     config,
		logger:     logger,
		repoFor: func(db *gorm.DB) shared.OutboxRepository {
			return NewGormOutboxRepository(db)
		},
	}
}

// Start starts the background processing
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.processLoop(ctx)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)

	return nil
}

// Stop gracefully stops the processor
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.processTick(ctx)
		}
	}
}

// processTick drains one batch from every pool. A pool that errors is logged
// and skipped; the others still get their turn.
func (p *OutboxProcessor) processTick(ctx context.Context) {
	pools, err := p.pools(ctx)
	if err != nil {
		p.logger.Error("failed to list outbox pools", zap.Error(err))
		return
	}

	for _, pool := range pools {
		if ctx.Err() != nil {
			return
		}
		p.processBatch(ctx, pool)
	}
}

// processBatch processes pending and retryable entries from one pool
func (p *OutboxProcessor) processBatch(ctx context.Context, pool OutboxPool) {
	repo := p.repoFor(pool.DB)

	pending, err := repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find pending entries",
			zap.String("pool", pool.Name),
			zap.Error(err),
		)
		return
	}

	if len(pending) > 0 {
		p.processEntries(ctx, repo, pool.Name, pending)
	}

	retryable, err := repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find retryable entries",
			zap.String("pool", pool.Name),
			zap.Error(err),
		)
		return
	}

	if len(retryable) > 0 {
		p.processEntries(ctx, repo, pool.Name, retryable)
	}
}

func (p *OutboxProcessor) processEntries(ctx context.Context, repo shared.OutboxRepository, poolName string, entries []*shared.OutboxEntry) {
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	// Claim atomically; another worker may already hold some of them.
	claimed, err := repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to mark entries as processing",
			zap.String("pool", poolName),
			zap.Error(err),
		)
		return
	}

	for _, entry := range claimed {
		p.processEntry(ctx, repo, poolName, entry)
	}
}

// processEntry deserializes one entry and publishes it to the event bus
func (p *OutboxProcessor) processEntry(ctx context.Context, repo shared.OutboxRepository, poolName string, entry *shared.OutboxEntry) {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		p.failEntry(ctx, repo, poolName, entry, err)
		return
	}

	if err := p.eventBus.Publish(ctx, event); err != nil {
		p.failEntry(ctx, repo, poolName, entry, err)
		return
	}

	entry.MarkSent()
	if err := repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to mark entry as sent",
			zap.String("pool", poolName),
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
	} else {
		p.logger.Debug("event processed successfully",
			zap.String("pool", poolName),
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
		)
	}
}

func (p *OutboxProcessor) failEntry(ctx context.Context, repo shared.OutboxRepository, poolName string, entry *shared.OutboxEntry, cause error) {
	p.logger.Error("failed to deliver event",
		zap.String("pool", poolName),
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.Error(cause),
	)

	entry.MarkFailed(cause.Error())
	if entry.IsDead() {
		p.logger.Warn("event moved to dead letter queue",
			zap.String("pool", poolName),
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("aggregate_type", entry.AggregateType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("retry_count", entry.RetryCount),
			zap.String("last_error", entry.LastError),
		)
	}
	if err := repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to update entry",
			zap.String("pool", poolName),
			zap.Error(err),
		)
	}
}

func (p *OutboxProcessor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cleanup(ctx)
		}
	}
}

// cleanup removes delivered entries past the retention window from every pool
func (p *OutboxProcessor) cleanup(ctx context.Context) {
	pools, err := p.pools(ctx)
	if err != nil {
		p.logger.Error("failed to list outbox pools", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-p.config.CleanupRetention)
	for _, pool := range pools {
		repo := p.repoFor(pool.DB)
		deleted, err := repo.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			p.logger.Error("failed to cleanup old entries",
				zap.String("pool", pool.Name),
				zap.Error(err),
			)
			continue
		}

		if deleted > 0 {
			p.logger.Info("cleaned up old outbox entries",
				zap.String("pool", pool.Name),
				zap.Int64("deleted", deleted),
				zap.Time("cutoff", cutoff),
			)
		}
	}
}
