package persistence

import (
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/channel"
	"github.com/retail/backend/internal/domain/crm"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/invoicing"
	"github.com/retail/backend/internal/domain/pos"
	"github.com/retail/backend/internal/domain/storefront"
	"github.com/retail/backend/internal/domain/workforce"
	"github.com/retail/backend/internal/infrastructure/persistence/models"
	"github.com/retail/backend/internal/infrastructure/tenantdb"
)

// MovePlan lists every tenant-scoped table in parent-before-child order.
// The mover carries a tenant's rows between databases following this list,
// so referenced rows always land before the rows that point at them. A
// table added to the schema but missing here is silently left behind by an
// upgrade; keep the two in step.
func MovePlan() []tenantdb.TableCopy {
	return []tenantdb.TableCopy{
		{Table: "users", NewSlice: func() any { return &[]identity.User{} }},
		{Table: "categories", NewSlice: func() any { return &[]catalog.Category{} }},
		{Table: "products", NewSlice: func() any { return &[]catalog.Product{} }},
		{Table: "customers", NewSlice: func() any { return &[]crm.Customer{} }},
		{Table: "locations", NewSlice: func() any { return &[]inventory.Location{} }},
		{Table: "stock_levels", NewSlice: func() any { return &[]inventory.StockLevel{} }},
		{Table: "stock_movements", NewSlice: func() any { return &[]inventory.StockMovement{} }},
		{Table: "sales", NewSlice: func() any { return &[]pos.Sale{} }},
		{Table: "sale_lines", NewSlice: func() any { return &[]pos.SaleLine{} }},
		{Table: "sale_payments", NewSlice: func() any { return &[]pos.SalePayment{} }},
		{Table: "invoices", NewSlice: func() any { return &[]invoicing.Invoice{} }},
		{Table: "invoice_lines", NewSlice: func() any { return &[]invoicing.InvoiceLine{} }},
		{Table: "shifts", NewSlice: func() any { return &[]workforce.Shift{} }},
		{Table: "attendance_records", NewSlice: func() any { return &[]workforce.AttendanceRecord{} }},
		{Table: "storefronts", NewSlice: func() any { return &[]storefront.Storefront{} }},
		{Table: "product_listings", NewSlice: func() any { return &[]storefront.ProductListing{} }},
		{Table: "storefront_orders", NewSlice: func() any { return &[]storefront.StorefrontOrder{} }},
		{Table: "storefront_order_lines", NewSlice: func() any { return &[]storefront.StorefrontOrderLine{} }},
		{Table: "channel_connections", NewSlice: func() any { return &[]channel.ChannelConnection{} }},
		{Table: "message_templates", NewSlice: func() any { return &[]channel.MessageTemplate{} }},
		{Table: "outbound_messages", NewSlice: func() any { return &[]channel.OutboundMessage{} }},
		{Table: "outbox_events", NewSlice: func() any { return &[]models.OutboxEntryModel{} }},
		{Table: "number_sequences", OrderBy: "key", KeyColumns: []string{"tenant_id", "key"}, NewSlice: func() any { return &[]numberSequenceRow{} }},
	}
}
