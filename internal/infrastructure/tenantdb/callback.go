package tenantdb

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/retail/backend/internal/infrastructure/logger"
)

// TenantCallback provides GORM callback hooks that add the tenant row filter
// to every statement on the shared pool. It is the second line of defense
// behind SharedDB: repositories go through SharedDB handles, and the
// callbacks catch anything that reaches the pool another way.
//
// The callbacks are registered only on the shared pool. Dedicated tenant
// databases hold a single tenant and are routed without row filters, and the
// control-plane handle must stay unfiltered because the tenants table has no
// tenant_id column.
type TenantCallback struct {
	column   string
	required bool
}

// NewTenantCallback creates a tenant callback handler.
func NewTenantCallback(column string, required bool) *TenantCallback {
	if column == "" {
		column = "tenant_id"
	}
	return &TenantCallback{
		column:   column,
		required: required,
	}
}

// RegisterCallbacks registers the tenant hooks with GORM.
func (tc *TenantCallback) RegisterCallbacks(db *gorm.DB) {
	_ = db.Callback().Query().Before("gorm:query").Register("tenant:before_query", tc.beforeQuery)
	_ = db.Callback().Update().Before("gorm:update").Register("tenant:before_update", tc.beforeUpdate)
	_ = db.Callback().Delete().Before("gorm:delete").Register("tenant:before_delete", tc.beforeDelete)
	_ = db.Callback().Row().Before("gorm:row").Register("tenant:before_row", tc.beforeQuery)

	// Create is not hooked: tenant_id is a column on the aggregate and is
	// set explicitly when the entity is constructed.
}

func (tc *TenantCallback) beforeQuery(db *gorm.DB) {
	tc.addTenantFilter(db)
}

func (tc *TenantCallback) beforeUpdate(db *gorm.DB) {
	tc.addTenantFilter(db)
}

func (tc *TenantCallback) beforeDelete(db *gorm.DB) {
	tc.addTenantFilter(db)
}

// addTenantFilter adds the tenant condition to the statement unless it is
// unscoped or already carries one.
func (tc *TenantCallback) addTenantFilter(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}

	if db.Statement.Unscoped {
		return
	}

	if tc.hasTenantCondition(db) {
		return
	}

	tenantID := logger.GetTenantID(db.Statement.Context)
	if tenantID == "" {
		if tc.required {
			_ = db.AddError(ErrTenantIDRequired)
		}
		return
	}

	if _, err := uuid.Parse(tenantID); err != nil {
		_ = db.AddError(ErrInvalidTenantID)
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tc.column},
				Value:  tenantID,
			},
		},
	})
}

// hasTenantCondition checks whether a tenant condition is already present,
// either as a structured clause or inside raw SQL.
func (tc *TenantCallback) hasTenantCondition(db *gorm.DB) bool {
	if whereClause, ok := db.Statement.Clauses["WHERE"]; ok {
		if where, ok := whereClause.Expression.(clause.Where); ok {
			for _, expr := range where.Exprs {
				if tc.exprContainsTenant(expr) {
					return true
				}
			}
		}
	}

	if sql := db.Statement.SQL.String(); sql != "" && strings.Contains(sql, tc.column) {
		return true
	}

	return false
}

func (tc *TenantCallback) exprContainsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == tc.column
		}
	case clause.IN:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == tc.column
		}
	case clause.Expr:
		// String conditions such as Where("tenant_id = ?", id) arrive as
		// raw expressions; SharedDB scopes produce exactly this shape.
		return strings.Contains(e.SQL, tc.column)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if tc.exprContainsTenant(cond) {
				return true
			}
		}
	case clause.OrConditions:
		for _, cond := range e.Exprs {
			if tc.exprContainsTenant(cond) {
				return true
			}
		}
	}
	return false
}

// EnableAutoTenantFilter registers the tenant callbacks on a GORM DB.
// Call this once on the shared pool during wiring.
func EnableAutoTenantFilter(db *gorm.DB, required bool) {
	tc := NewTenantCallback("tenant_id", required)
	tc.RegisterCallbacks(db)
}

// DisableAutoTenantFilter removes the tenant callbacks. Intended for tests;
// production pools keep the hooks for their lifetime.
func DisableAutoTenantFilter(db *gorm.DB) {
	_ = db.Callback().Query().Remove("tenant:before_query")
	_ = db.Callback().Update().Remove("tenant:before_update")
	_ = db.Callback().Delete().Remove("tenant:before_delete")
	_ = db.Callback().Row().Remove("tenant:before_row")
}
