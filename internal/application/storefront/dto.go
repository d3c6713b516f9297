package storefront

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/retail/backend/internal/domain/storefront"
)

// CreateStorefrontRequest represents a request to open an online shop.
// The slug is claimed globally; two tenants can never share one.
type CreateStorefrontRequest struct {
	Slug        string `json:"slug"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// UpdateStorefrontRequest represents a request to change shop details
type UpdateStorefrontRequest struct {
	DisplayName string                    `json:"display_name"`
	Description string                    `json:"description,omitempty"`
	Currency    string                    `json:"currency,omitempty"`
	Theme       *storefront.ThemeSettings `json:"theme,omitempty"`
	LocationID  *uuid.UUID                `json:"location_id,omitempty"`
}

// ListProductRequest represents a request to publish a product on a shop
type ListProductRequest struct {
	ProductID     uuid.UUID        `json:"product_id"`
	PriceOverride *decimal.Decimal `json:"price_override,omitempty"`
	Position      *int             `json:"position,omitempty"`
}

// OrderContactRequest is the shopper's contact details at checkout
type OrderContactRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// OrderLineRequest is one checkout line; prices come from the listing,
// never from the shopper
type OrderLineRequest struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// PlaceOrderRequest represents a storefront checkout
type PlaceOrderRequest struct {
	StorefrontID uuid.UUID           `json:"storefront_id"`
	Contact      OrderContactRequest `json:"contact"`
	Lines        []OrderLineRequest  `json:"lines"`
	DeliveryNote string              `json:"delivery_note,omitempty"`
}

// CancelOrderRequest represents a request to cancel an order
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// StorefrontResponse represents a storefront in API responses
type StorefrontResponse struct {
	ID          uuid.UUID                `json:"id"`
	TenantID    uuid.UUID                `json:"tenant_id"`
	Slug        string                   `json:"slug"`
	DisplayName string                   `json:"display_name"`
	Description string                   `json:"description,omitempty"`
	Currency    string                   `json:"currency"`
	Theme       storefront.ThemeSettings `json:"theme"`
	LocationID  *uuid.UUID               `json:"location_id,omitempty"`
	Published   bool                     `json:"published"`
	PublishedAt *time.Time               `json:"published_at,omitempty"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
	Version     int                      `json:"version"`
}

// ListingResponse represents a product listing in API responses
type ListingResponse struct {
	ID            uuid.UUID        `json:"id"`
	StorefrontID  uuid.UUID        `json:"storefront_id"`
	ProductID     uuid.UUID        `json:"product_id"`
	PriceOverride *decimal.Decimal `json:"price_override,omitempty"`
	Position      int              `json:"position"`
	Visible       bool             `json:"visible"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// CatalogItemResponse is one product as shown on the public shop page,
// the listing joined with its catalog snapshot
type CatalogItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Unit      string          `json:"unit,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Position  int             `json:"position"`
}

// OrderLineResponse represents an order line in API responses
type OrderLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Unit        string          `json:"unit,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// OrderResponse represents a storefront order in API responses
type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	TenantID      uuid.UUID           `json:"tenant_id"`
	Number        string              `json:"number"`
	StorefrontID  uuid.UUID           `json:"storefront_id"`
	LocationID    uuid.UUID           `json:"location_id"`
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone"`
	CustomerEmail string              `json:"customer_email,omitempty"`
	DeliveryNote  string              `json:"delivery_note,omitempty"`
	Lines         []OrderLineResponse `json:"lines"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	DeliveryFee   decimal.Decimal     `json:"delivery_fee"`
	GrandTotal    decimal.Decimal     `json:"grand_total"`
	Status        string              `json:"status"`
	ConfirmedAt   *time.Time          `json:"confirmed_at,omitempty"`
	FulfilledAt   *time.Time          `json:"fulfilled_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	CancelReason  string              `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Version       int                 `json:"version"`
}

// OrderListFilter represents filtering options for order lists
type OrderListFilter struct {
	StorefrontID *uuid.UUID `json:"storefront_id,omitempty"`
	Status       string     `json:"status,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Page         int        `json:"page,omitempty"`
	PageSize     int        `json:"page_size,omitempty"`
	OrderBy      string     `json:"order_by,omitempty"`
	OrderDir     string     `json:"order_dir,omitempty"`
}

// ToStorefrontResponse converts a domain storefront to a response DTO
func ToStorefrontResponse(sf *storefront.Storefront) StorefrontResponse {
	return StorefrontResponse{
		ID:          sf.ID,
		TenantID:    sf.TenantID,
		Slug:        sf.Slug,
		DisplayName: sf.DisplayName,
		Description: sf.Description,
		Currency:    sf.Currency,
		Theme:       sf.Theme,
		LocationID:  sf.LocationID,
		Published:   sf.Published,
		PublishedAt: sf.PublishedAt,
		CreatedAt:   sf.CreatedAt,
		UpdatedAt:   sf.UpdatedAt,
		Version:     sf.Version,
	}
}

// ToStorefrontResponses converts domain storefronts to response DTOs
func ToStorefrontResponses(storefronts []storefront.Storefront) []StorefrontResponse {
	responses := make([]StorefrontResponse, len(storefronts))
	for i := range storefronts {
		responses[i] = ToStorefrontResponse(&storefronts[i])
	}
	return responses
}

// ToListingResponse converts a domain listing to a response DTO
func ToListingResponse(listing *storefront.ProductListing) ListingResponse {
	return ListingResponse{
		ID:            listing.ID,
		StorefrontID:  listing.StorefrontID,
		ProductID:     listing.ProductID,
		PriceOverride: listing.PriceOverride,
		Position:      listing.Position,
		Visible:       listing.Visible,
		CreatedAt:     listing.CreatedAt,
		UpdatedAt:     listing.UpdatedAt,
	}
}

// ToListingResponses converts domain listings to response DTOs
func ToListingResponses(listings []storefront.ProductListing) []ListingResponse {
	responses := make([]ListingResponse, len(listings))
	for i := range listings {
		responses[i] = ToListingResponse(&listings[i])
	}
	return responses
}

// ToOrderResponse converts a domain order to a response DTO
func ToOrderResponse(order *storefront.StorefrontOrder) OrderResponse {
	lines := make([]OrderLineResponse, len(order.Lines))
	for i, line := range order.Lines {
		lines[i] = OrderLineResponse{
			ID:          line.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			SKU:         line.SKU,
			Unit:        line.Unit,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Total:       line.Total,
		}
	}

	return OrderResponse{
		ID:            order.ID,
		TenantID:      order.TenantID,
		Number:        order.Number,
		StorefrontID:  order.StorefrontID,
		LocationID:    order.LocationID,
		CustomerID:    order.CustomerID,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		CustomerEmail: order.CustomerEmail,
		DeliveryNote:  order.DeliveryNote,
		Lines:         lines,
		Subtotal:      order.Subtotal,
		DeliveryFee:   order.DeliveryFee,
		GrandTotal:    order.GrandTotal,
		Status:        order.Status.String(),
		ConfirmedAt:   order.ConfirmedAt,
		FulfilledAt:   order.FulfilledAt,
		CancelledAt:   order.CancelledAt,
		CancelReason:  order.CancelReason,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
		Version:       order.Version,
	}
}

// ToOrderResponses converts domain orders to response DTOs
func ToOrderResponses(orders []storefront.StorefrontOrder) []OrderResponse {
	responses := make([]OrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToOrderResponse(&orders[i])
	}
	return responses
}
