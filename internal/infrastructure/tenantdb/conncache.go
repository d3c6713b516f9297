package tenantdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DialFunc opens a pool to the named tenant database. The wiring layer
// builds it from the control-plane DSN, the per-tenant pool sizing, and the
// GORM logger and tracing plugins, so the cache itself stays free of
// connection details.
type DialFunc func(dbName string) (*gorm.DB, error)

// ConnCache holds one open pool per dedicated tenant for the lifetime of the
// process. Pools are dialed lazily on the first request that routes to a
// dedicated database; concurrent first requests for the same tenant share a
// single dial. Failed dials are not cached, so the next request retries.
type ConnCache struct {
	dial   DialFunc
	logger *zap.Logger

	mu    sync.Mutex
	conns map[uuid.UUID]*pooledConn
}

type pooledConn struct {
	dbName string
	ready  chan struct{}
	db     *gorm.DB
	err    error
}

func (pc *pooledConn) wait(ctx context.Context) (*gorm.DB, error) {
	select {
	case <-pc.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if pc.err != nil {
		return nil, pc.err
	}
	return pc.db, nil
}

// ConnCacheOption configures a ConnCache.
type ConnCacheOption func(*ConnCache)

// WithConnCacheLogger sets the logger.
func WithConnCacheLogger(logger *zap.Logger) ConnCacheOption {
	return func(c *ConnCache) {
		c.logger = logger
	}
}

// NewConnCache creates a connection cache that opens tenant pools with dial.
func NewConnCache(dial DialFunc, opts ...ConnCacheOption) *ConnCache {
	c := &ConnCache{
		dial:   dial,
		logger: zap.NewNop(),
		conns:  make(map[uuid.UUID]*pooledConn),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the pool for the tenant, dialing it on first use. Waiters
// blocked on an in-flight dial honor context cancellation; the dial itself
// runs to completion so the pool is usable for the next caller.
func (c *ConnCache) Get(ctx context.Context, tenantID uuid.UUID, dbName string) (*gorm.DB, error) {
	c.mu.Lock()
	if pc, ok := c.conns[tenantID]; ok {
		c.mu.Unlock()
		return pc.wait(ctx)
	}
	pc := &pooledConn{dbName: dbName, ready: make(chan struct{})}
	c.conns[tenantID] = pc
	c.mu.Unlock()

	pc.db, pc.err = c.dial(dbName)
	close(pc.ready)

	if pc.err != nil {
		c.mu.Lock()
		delete(c.conns, tenantID)
		c.mu.Unlock()
		c.logger.Error("failed to open tenant database pool",
			zap.String("tenant_id", tenantID.String()),
			zap.String("database", dbName),
			zap.Error(pc.err),
		)
		return nil, fmt.Errorf("dial tenant database %s: %w", dbName, pc.err)
	}

	c.logger.Info("opened tenant database pool",
		zap.String("tenant_id", tenantID.String()),
		zap.String("database", dbName),
	)
	return pc.db, nil
}

// Close removes and closes the tenant's pool if one is open.
func (c *ConnCache) Close(tenantID uuid.UUID) error {
	c.mu.Lock()
	pc, ok := c.conns[tenantID]
	if ok {
		delete(c.conns, tenantID)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}
	<-pc.ready
	if pc.db == nil {
		return nil
	}
	return closeDB(pc.db)
}

// CloseAll closes every open pool. Called on shutdown.
func (c *ConnCache) CloseAll() error {
	c.mu.Lock()
	conns := c.conns
	c.conns = make(map[uuid.UUID]*pooledConn)
	c.mu.Unlock()

	var errs []error
	for tenantID, pc := range conns {
		<-pc.ready
		if pc.db == nil {
			continue
		}
		if err := closeDB(pc.db); err != nil {
			errs = append(errs, fmt.Errorf("close pool for tenant %s: %w", tenantID, err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of cached pools, counting in-flight dials.
func (c *ConnCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

// PoolInfo describes one open dedicated pool.
type PoolInfo struct {
	TenantID     uuid.UUID
	DatabaseName string
	Stats        sql.DBStats
}

// Stats returns a snapshot of every open pool. Pools still dialing are
// skipped.
func (c *ConnCache) Stats() []PoolInfo {
	c.mu.Lock()
	conns := make(map[uuid.UUID]*pooledConn, len(c.conns))
	for id, pc := range c.conns {
		conns[id] = pc
	}
	c.mu.Unlock()

	infos := make([]PoolInfo, 0, len(conns))
	for tenantID, pc := range conns {
		select {
		case <-pc.ready:
		default:
			continue
		}
		if pc.db == nil {
			continue
		}
		sqlDB, err := pc.db.DB()
		if err != nil {
			continue
		}
		infos = append(infos, PoolInfo{
			TenantID:     tenantID,
			DatabaseName: pc.dbName,
			Stats:        sqlDB.Stats(),
		})
	}
	return infos
}

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
