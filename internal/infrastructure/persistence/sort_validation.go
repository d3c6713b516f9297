package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// CommonSortFields contains fields common to most entities
var CommonSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
}

// TenantSortFields contains allowed sort fields for tenants
var TenantSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"code":       true,
	"name":       true,
	"subdomain":  true,
	"status":     true,
	"plan":       true,
	"placement":  true,
	"expires_at": true,
}

// UserSortFields contains allowed sort fields for staff users
var UserSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"email":         true,
	"name":          true,
	"role":          true,
	"status":        true,
	"last_login_at": true,
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"sku":           true,
	"name":          true,
	"barcode":       true,
	"category_id":   true,
	"unit":          true,
	"cost_price":    true,
	"selling_price": true,
	"status":        true,
	"sort_order":    true,
}

// CategorySortFields contains allowed sort fields for categories
var CategorySortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"sort_order": true,
	"status":     true,
}

// CustomerSortFields contains allowed sort fields for customers
var CustomerSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"name":           true,
	"phone":          true,
	"email":          true,
	"status":         true,
	"loyalty_points": true,
	"credit_balance": true,
	"visit_count":    true,
	"last_visit_at":  true,
	"lifetime_spend": true,
}

// LocationSortFields contains allowed sort fields for stock locations
var LocationSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"type":       true,
	"status":     true,
	"is_default": true,
	"sort_order": true,
}

// StockLevelSortFields contains allowed sort fields for stock levels
var StockLevelSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"location_id":   true,
	"product_id":    true,
	"on_hand":       true,
	"reserved":      true,
	"reorder_point": true,
}

// StockMovementSortFields contains allowed sort fields for stock movements
var StockMovementSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"occurred_at": true,
	"type":        true,
	"product_id":  true,
	"location_id": true,
	"reference":   true,
}

// SaleSortFields contains allowed sort fields for sales
var SaleSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"number":       true,
	"cashier_id":   true,
	"customer_id":  true,
	"location_id":  true,
	"status":       true,
	"grand_total":  true,
	"amount_paid":  true,
	"completed_at": true,
	"voided_at":    true,
}

// InvoiceSortFields contains allowed sort fields for invoices
var InvoiceSortFields = map[string]bool{
	"id":            true,
	"created_at":    true,
	"updated_at":    true,
	"number":        true,
	"customer_id":   true,
	"customer_name": true,
	"status":        true,
	"grand_total":   true,
	"amount_paid":   true,
	"due_date":      true,
	"issued_at":     true,
	"paid_at":       true,
}

// ShiftSortFields contains allowed sort fields for shifts
var ShiftSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"name":         true,
	"start_minute": true,
	"end_minute":   true,
	"status":       true,
}

// AttendanceSortFields contains allowed sort fields for attendance records
var AttendanceSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"user_id":        true,
	"shift_id":       true,
	"work_date":      true,
	"clock_in_at":    true,
	"clock_out_at":   true,
	"status":         true,
	"worked_minutes": true,
}

// StorefrontSortFields contains allowed sort fields for storefronts
var StorefrontSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"slug":         true,
	"name":         true,
	"published":    true,
	"published_at": true,
}

// ProductListingSortFields contains allowed sort fields for product listings
var ProductListingSortFields = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"product_id": true,
	"position":   true,
	"visible":    true,
}

// StorefrontOrderSortFields contains allowed sort fields for storefront orders
var StorefrontOrderSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"number":         true,
	"storefront_id":  true,
	"customer_phone": true,
	"status":         true,
	"grand_total":    true,
	"confirmed_at":   true,
	"fulfilled_at":   true,
	"cancelled_at":   true,
}

// MessageTemplateSortFields contains allowed sort fields for message templates
var MessageTemplateSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"platform":        true,
	"name":            true,
	"language":        true,
	"category":        true,
	"approval_status": true,
}

// OutboundMessageSortFields contains allowed sort fields for outbound messages
var OutboundMessageSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"platform":        true,
	"recipient":       true,
	"status":          true,
	"attempt_count":   true,
	"next_attempt_at": true,
	"sent_at":         true,
}
