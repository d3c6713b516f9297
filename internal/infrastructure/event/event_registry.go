package event

import (
	"github.com/retail/backend/internal/domain/catalog"
	"github.com/retail/backend/internal/domain/channel"
	"github.com/retail/backend/internal/domain/crm"
	"github.com/retail/backend/internal/domain/identity"
	"github.com/retail/backend/internal/domain/inventory"
	"github.com/retail/backend/internal/domain/invoicing"
	"github.com/retail/backend/internal/domain/pos"
	"github.com/retail/backend/internal/domain/storefront"
	"github.com/retail/backend/internal/domain/tenancy"
	"github.com/retail/backend/internal/domain/workforce"
)

// RegisterAllEvents registers every domain event type with the serializer.
// The outbox processor cannot deliver an event whose type is missing here,
// so each new event lands in this list in the same change that adds it.
func RegisterAllEvents(serializer *EventSerializer) {
	// Tenancy lifecycle and placement moves
	serializer.Register(tenancy.EventTypeTenantCreated, &tenancy.TenantCreatedEvent{})
	serializer.Register(tenancy.EventTypeTenantStatusChanged, &tenancy.TenantStatusChangedEvent{})
	serializer.Register(tenancy.EventTypeTenantPlanChanged, &tenancy.TenantPlanChangedEvent{})
	serializer.Register(tenancy.EventTypeTenantSubdomainChanged, &tenancy.TenantSubdomainChangedEvent{})
	serializer.Register(tenancy.EventTypeTenantLicenseAssigned, &tenancy.TenantLicenseAssignedEvent{})
	serializer.Register(tenancy.EventTypeTenantMigrationStarted, &tenancy.TenantMigrationStartedEvent{})
	serializer.Register(tenancy.EventTypeTenantMigrationCompleted, &tenancy.TenantMigrationCompletedEvent{})
	serializer.Register(tenancy.EventTypeTenantMigrationAborted, &tenancy.TenantMigrationAbortedEvent{})

	// Identity
	serializer.Register(identity.EventTypeUserRegistered, &identity.UserRegisteredEvent{})
	serializer.Register(identity.EventTypeUserPasswordChanged, &identity.UserPasswordChangedEvent{})
	serializer.Register(identity.EventTypeUserRoleChanged, &identity.UserRoleChangedEvent{})
	serializer.Register(identity.EventTypeUserDeactivated, &identity.UserDeactivatedEvent{})

	// Catalog
	serializer.Register(catalog.EventTypeCategoryCreated, &catalog.CategoryCreatedEvent{})
	serializer.Register(catalog.EventTypeCategoryUpdated, &catalog.CategoryUpdatedEvent{})
	serializer.Register(catalog.EventTypeCategoryStatusChanged, &catalog.CategoryStatusChangedEvent{})
	serializer.Register(catalog.EventTypeCategoryDeleted, &catalog.CategoryDeletedEvent{})
	serializer.Register(catalog.EventTypeProductCreated, &catalog.ProductCreatedEvent{})
	serializer.Register(catalog.EventTypeProductUpdated, &catalog.ProductUpdatedEvent{})
	serializer.Register(catalog.EventTypeProductStatusChanged, &catalog.ProductStatusChangedEvent{})
	serializer.Register(catalog.EventTypeProductPriceChanged, &catalog.ProductPriceChangedEvent{})
	serializer.Register(catalog.EventTypeProductDeleted, &catalog.ProductDeletedEvent{})

	// Inventory
	serializer.Register(inventory.EventTypeLocationCreated, &inventory.LocationCreatedEvent{})
	serializer.Register(inventory.EventTypeStockReceived, &inventory.StockReceivedEvent{})
	serializer.Register(inventory.EventTypeStockDeducted, &inventory.StockDeductedEvent{})
	serializer.Register(inventory.EventTypeStockAdjusted, &inventory.StockAdjustedEvent{})
	serializer.Register(inventory.EventTypeLowStock, &inventory.LowStockEvent{})

	// Point of sale
	serializer.Register(pos.EventTypeSaleOpened, &pos.SaleOpenedEvent{})
	serializer.Register(pos.EventTypeSaleCompleted, &pos.SaleCompletedEvent{})
	serializer.Register(pos.EventTypeSaleVoided, &pos.SaleVoidedEvent{})

	// Invoicing
	serializer.Register("InvoiceCreated", &invoicing.InvoiceCreatedEvent{})
	serializer.Register("InvoiceIssued", &invoicing.InvoiceIssuedEvent{})
	serializer.Register("InvoicePaymentRecorded", &invoicing.InvoicePaymentRecordedEvent{})
	serializer.Register("InvoicePaid", &invoicing.InvoicePaidEvent{})
	serializer.Register("InvoiceOverdue", &invoicing.InvoiceOverdueEvent{})
	serializer.Register("InvoiceVoided", &invoicing.InvoiceVoidedEvent{})

	// CRM
	serializer.Register(crm.EventTypeCustomerCreated, &crm.CustomerCreatedEvent{})
	serializer.Register(crm.EventTypeCustomerUpdated, &crm.CustomerUpdatedEvent{})
	serializer.Register(crm.EventTypeCustomerStatusChanged, &crm.CustomerStatusChangedEvent{})
	serializer.Register(crm.EventTypeCustomerOptInChanged, &crm.CustomerOptInChangedEvent{})
	serializer.Register(crm.EventTypeCustomerLoyaltyChanged, &crm.CustomerLoyaltyChangedEvent{})
	serializer.Register(crm.EventTypeCustomerCreditChanged, &crm.CustomerCreditChangedEvent{})
	serializer.Register(crm.EventTypeCustomersMerged, &crm.CustomersMergedEvent{})

	// Workforce
	serializer.Register("ShiftCreated", &workforce.ShiftCreatedEvent{})
	serializer.Register("ShiftUpdated", &workforce.ShiftUpdatedEvent{})
	serializer.Register("StaffClockedIn", &workforce.StaffClockedInEvent{})
	serializer.Register("StaffClockedOut", &workforce.StaffClockedOutEvent{})
	serializer.Register("AttendanceAutoClosed", &workforce.AttendanceAutoClosedEvent{})
	serializer.Register("StaffMarkedAbsent", &workforce.StaffMarkedAbsentEvent{})

	// Storefront
	serializer.Register("StorefrontCreated", &storefront.StorefrontCreatedEvent{})
	serializer.Register("StorefrontUpdated", &storefront.StorefrontUpdatedEvent{})
	serializer.Register("StorefrontPublished", &storefront.StorefrontPublishedEvent{})
	serializer.Register("StorefrontUnpublished", &storefront.StorefrontUnpublishedEvent{})
	serializer.Register("StorefrontOrderPlaced", &storefront.StorefrontOrderPlacedEvent{})
	serializer.Register("StorefrontOrderConfirmed", &storefront.StorefrontOrderConfirmedEvent{})
	serializer.Register("StorefrontOrderFulfilled", &storefront.StorefrontOrderFulfilledEvent{})
	serializer.Register("StorefrontOrderCancelled", &storefront.StorefrontOrderCancelledEvent{})

	// Messaging channels
	serializer.Register("ChannelConnected", &channel.ChannelConnectedEvent{})
	serializer.Register("ChannelStatusChanged", &channel.ChannelStatusChangedEvent{})
}
