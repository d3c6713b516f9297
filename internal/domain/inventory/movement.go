package inventory

import (
	"time"

	"github.com/retail/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a stock movement
type MovementType string

const (
	MovementTypeReceive    MovementType = "receive"    // Goods received from a supplier
	MovementTypeSale       MovementType = "sale"       // Deducted by a completed sale or fulfilled order
	MovementTypeAdjustment MovementType = "adjustment" // Manual correction after a count
	MovementTypeReturn     MovementType = "return"     // Customer return back into stock
	MovementTypeTransfer   MovementType = "transfer"   // Moved between locations
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeReceive, MovementTypeSale, MovementTypeAdjustment,
		MovementTypeReturn, MovementTypeTransfer:
		return true
	}
	return false
}

// StockMovement is one row in the append-only stock ledger. Every change
// to a stock level's on-hand quantity writes exactly one movement carrying
// the signed delta and the before/after balances, so the ledger replays to
// the current quantity.
type StockMovement struct {
	shared.BaseEntity
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_stock_movements_tenant_time,priority:1"`
	StockLevelID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LocationID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Type         MovementType    `gorm:"type:varchar(20);not null;index"`
	Delta        decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Signed change to on-hand
	Before       decimal.Decimal `gorm:"type:decimal(18,4);not null"` // On-hand before the change
	After        decimal.Decimal `gorm:"type:decimal(18,4);not null"` // On-hand after the change
	Reference    string          `gorm:"type:varchar(100);index"`     // Source document number (sale, order, ...)
	Reason       string          `gorm:"type:varchar(255)"`           // Required for adjustments
	RecordedBy   *uuid.UUID      `gorm:"type:uuid"`                   // User who triggered the change
	OccurredAt   time.Time       `gorm:"type:timestamptz;not null;index:idx_stock_movements_tenant_time,priority:2"`
}

// TableName returns the table name for GORM
func (StockMovement) TableName() string {
	return "stock_movements"
}

// WithRecordedBy attaches the acting user to the movement
func (m *StockMovement) WithRecordedBy(userID uuid.UUID) *StockMovement {
	m.RecordedBy = &userID
	return m
}

// IsInbound returns true if the movement increased on-hand
func (m *StockMovement) IsInbound() bool {
	return m.Delta.IsPositive()
}

// IsOutbound returns true if the movement decreased on-hand
func (m *StockMovement) IsOutbound() bool {
	return m.Delta.IsNegative()
}
