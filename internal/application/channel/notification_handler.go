package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retail/backend/internal/domain/channel"
	"github.com/retail/backend/internal/domain/crm"
	"github.com/retail/backend/internal/domain/invoicing"
	"github.com/retail/backend/internal/domain/pos"
	"github.com/retail/backend/internal/domain/shared"
	"github.com/retail/backend/internal/domain/storefront"
)

// Template names notification handlers queue against. Tenants register
// and get approval for these under the same names; a tenant without an
// approved template simply receives no automatic messages.
const (
	ReceiptTemplateName     = "sale_receipt"
	InvoiceTemplateName     = "invoice_notice"
	OrderUpdateTemplateName = "order_update"

	notificationLanguage = "en"
)

// notifier holds the lookups all notification handlers share. A message
// only goes out when the customer opted in, a WhatsApp connection is
// live and the template is approved; anything missing means skip, not
// fail, because the triggering document already committed.
type notifier struct {
	customerRepo   crm.CustomerRepository
	connectionRepo channel.ConnectionRepository
	templateRepo   channel.TemplateRepository
	messageRepo    channel.OutboundMessageRepository
	logger         *zap.Logger
}

func (n *notifier) queue(ctx context.Context, customer *crm.Customer, templateName string, params []string, sourceType string, sourceID uuid.UUID) error {
	if !customer.CanReceiveMessages() {
		return nil
	}

	conn, err := n.connectionRepo.FindByPlatform(ctx, channel.PlatformWhatsApp)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find whatsapp connection: %w", err)
	}
	if !conn.CanSend() {
		return nil
	}

	tpl, err := n.templateRepo.FindByKey(ctx, channel.PlatformWhatsApp, templateName, notificationLanguage)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			n.logger.Debug("notification template not registered, skipping",
				zap.String("template", templateName),
			)
			return nil
		}
		return fmt.Errorf("find template %s: %w", templateName, err)
	}

	msg, err := channel.NewTemplateMessage(conn, tpl, customer.Phone, params)
	if err != nil {
		// Unapproved template or a placeholder count that does not match
		// what this handler sends. Both are tenant configuration faults;
		// retrying the event cannot fix them.
		n.logger.Warn("cannot queue notification message, skipping",
			zap.String("template", templateName),
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err),
		)
		return nil
	}
	msg.WithSource(sourceType, sourceID)

	if err := n.messageRepo.Save(ctx, msg); err != nil {
		return fmt.Errorf("save outbound message: %w", err)
	}

	n.logger.Info("notification message queued",
		zap.String("message_id", msg.ID.String()),
		zap.String("template", templateName),
		zap.String("recipient", msg.Recipient),
	)

	return nil
}

// SaleReceiptHandler queues a WhatsApp receipt when a sale with a known,
// opted-in customer completes at the till
type SaleReceiptHandler struct {
	notifier
}

// NewSaleReceiptHandler creates a new handler for sale completed events
func NewSaleReceiptHandler(
	customerRepo crm.CustomerRepository,
	connectionRepo channel.ConnectionRepository,
	templateRepo channel.TemplateRepository,
	messageRepo channel.OutboundMessageRepository,
	logger *zap.Logger,
) *SaleReceiptHandler {
	return &SaleReceiptHandler{notifier{
		customerRepo:   customerRepo,
		connectionRepo: connectionRepo,
		templateRepo:   templateRepo,
		messageRepo:    messageRepo,
		logger:         logger,
	}}
}

// EventTypes returns the event types this handler is interested in
func (h *SaleReceiptHandler) EventTypes() []string {
	return []string{pos.EventTypeSaleCompleted}
}

// Handle queues a receipt message for the sale's customer. Walk-in sales
// carry no customer and are skipped.
func (h *SaleReceiptHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*pos.SaleCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			pos.EventTypeSaleCompleted, event.EventType())
	}
	if completed.CustomerID == nil {
		return nil
	}

	customer, err := h.customerRepo.FindByID(ctx, *completed.CustomerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find customer for sale %s: %w", completed.Number, err)
	}

	params := []string{completed.Number, completed.GrandTotal.StringFixed(2)}
	return h.queue(ctx, customer, ReceiptTemplateName, params, "sale", completed.SaleID)
}

// Ensure SaleReceiptHandler implements shared.EventHandler
var _ shared.EventHandler = (*SaleReceiptHandler)(nil)

// InvoiceNoticeHandler queues a WhatsApp notice when an invoice is issued
// to an opted-in customer
type InvoiceNoticeHandler struct {
	notifier
}

// NewInvoiceNoticeHandler creates a new handler for invoice issued events
func NewInvoiceNoticeHandler(
	customerRepo crm.CustomerRepository,
	connectionRepo channel.ConnectionRepository,
	templateRepo channel.TemplateRepository,
	messageRepo channel.OutboundMessageRepository,
	logger *zap.Logger,
) *InvoiceNoticeHandler {
	return &InvoiceNoticeHandler{notifier{
		customerRepo:   customerRepo,
		connectionRepo: connectionRepo,
		templateRepo:   templateRepo,
		messageRepo:    messageRepo,
		logger:         logger,
	}}
}

// EventTypes returns the event types this handler is interested in
func (h *InvoiceNoticeHandler) EventTypes() []string {
	return []string{"InvoiceIssued"}
}

// Handle queues an invoice notice for the invoice's customer
func (h *InvoiceNoticeHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	issued, ok := event.(*invoicing.InvoiceIssuedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected InvoiceIssued, got %s", event.EventType())
	}

	customer, err := h.customerRepo.FindByID(ctx, issued.CustomerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find customer for invoice %s: %w", issued.Number, err)
	}

	dueDate := "on receipt"
	if issued.DueDate != nil {
		dueDate = issued.DueDate.Format("2006-01-02")
	}
	params := []string{issued.Number, issued.GrandTotal.StringFixed(2), dueDate}
	return h.queue(ctx, customer, InvoiceTemplateName, params, "invoice", issued.InvoiceID)
}

// Ensure InvoiceNoticeHandler implements shared.EventHandler
var _ shared.EventHandler = (*InvoiceNoticeHandler)(nil)

// OrderUpdateHandler queues a WhatsApp update when a storefront order is
// placed. The shopper's phone links the order to a customer record; only
// shoppers the merchant knows and who opted in are messaged.
type OrderUpdateHandler struct {
	notifier
}

// NewOrderUpdateHandler creates a new handler for storefront order events
func NewOrderUpdateHandler(
	customerRepo crm.CustomerRepository,
	connectionRepo channel.ConnectionRepository,
	templateRepo channel.TemplateRepository,
	messageRepo channel.OutboundMessageRepository,
	logger *zap.Logger,
) *OrderUpdateHandler {
	return &OrderUpdateHandler{notifier{
		customerRepo:   customerRepo,
		connectionRepo: connectionRepo,
		templateRepo:   templateRepo,
		messageRepo:    messageRepo,
		logger:         logger,
	}}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderUpdateHandler) EventTypes() []string {
	return []string{"StorefrontOrderPlaced"}
}

// Handle queues an order confirmation for the shopper behind the order
func (h *OrderUpdateHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	placed, ok := event.(*storefront.StorefrontOrderPlacedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected StorefrontOrderPlaced, got %s", event.EventType())
	}

	phone, err := crm.NormalizePhone(placed.CustomerPhone)
	if err != nil {
		return nil
	}
	customer, err := h.customerRepo.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find customer for order %s: %w", placed.Number, err)
	}

	params := []string{placed.Number, placed.GrandTotal.StringFixed(2)}
	return h.queue(ctx, customer, OrderUpdateTemplateName, params, "storefront_order", placed.OrderID)
}

// Ensure OrderUpdateHandler implements shared.EventHandler
var _ shared.EventHandler = (*OrderUpdateHandler)(nil)
