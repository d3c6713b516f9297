package invoicing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retail/backend/internal/domain/shared/valueobject"
)

func money(t *testing.T, amount string) valueobject.Money {
	t.Helper()
	return valueobject.MustMoney(amount, valueobject.NGN)
}

func draftInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv, err := NewInvoice(uuid.New(), "INV-202608-0001", uuid.New(), "Chinedu Okafor")
	require.NoError(t, err)
	return inv
}

func issuedInvoice(t *testing.T) *Invoice {
	t.Helper()
	inv := draftInvoice(t)
	require.NoError(t, inv.AddLine(nil, "Wholesale rice 50kg", decimal.NewFromInt(2), money(t, "42000"), decimal.NewFromFloat(7.5)))
	require.NoError(t, inv.Issue())
	return inv
}

func TestNewInvoice(t *testing.T) {
	t.Run("valid invoice starts as draft", func(t *testing.T) {
		tenantID := uuid.New()
		customerID := uuid.New()

		inv, err := NewInvoice(tenantID, "INV-202608-0001", customerID, "Chinedu Okafor")
		require.NoError(t, err)

		assert.Equal(t, tenantID, inv.TenantID)
		assert.Equal(t, "INV-202608-0001", inv.Number)
		assert.Equal(t, customerID, inv.CustomerID)
		assert.Equal(t, InvoiceStatusDraft, inv.Status)
		assert.True(t, inv.GrandTotal.IsZero())
		assert.True(t, inv.Outstanding().IsZero())
		assert.Empty(t, inv.Lines)
		assert.Len(t, inv.GetDomainEvents(), 1)
	})

	t.Run("empty number rejected", func(t *testing.T) {
		_, err := NewInvoice(uuid.New(), "", uuid.New(), "Chinedu Okafor")
		assert.Error(t, err)
	})

	t.Run("missing customer rejected", func(t *testing.T) {
		_, err := NewInvoice(uuid.New(), "INV-202608-0001", uuid.Nil, "Chinedu Okafor")
		assert.Error(t, err)

		_, err = NewInvoice(uuid.New(), "INV-202608-0001", uuid.New(), "   ")
		assert.Error(t, err)
	})
}

func TestInvoiceLines(t *testing.T) {
	t.Run("line totals include tax", func(t *testing.T) {
		inv := draftInvoice(t)

		err := inv.AddLine(nil, "Wholesale rice 50kg", decimal.NewFromInt(2), money(t, "1500"), decimal.NewFromFloat(7.5))
		require.NoError(t, err)

		require.Len(t, inv.Lines, 1)
		assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(3000)), "subtotal = %s", inv.Subtotal)
		assert.True(t, inv.TaxTotal.Equal(decimal.NewFromInt(225)), "tax = %s", inv.TaxTotal)
		assert.True(t, inv.GrandTotal.Equal(decimal.NewFromInt(3225)), "grand = %s", inv.GrandTotal)
		assert.True(t, inv.Outstanding().Equal(decimal.NewFromInt(3225)))
	})

	t.Run("invalid lines rejected", func(t *testing.T) {
		inv := draftInvoice(t)

		assert.Error(t, inv.AddLine(nil, "", decimal.NewFromInt(1), money(t, "100"), decimal.Zero))
		assert.Error(t, inv.AddLine(nil, "Rice", decimal.Zero, money(t, "100"), decimal.Zero))
		assert.Error(t, inv.AddLine(nil, "Rice", decimal.NewFromInt(-1), money(t, "100"), decimal.Zero))
		assert.Error(t, inv.AddLine(nil, "Rice", decimal.NewFromInt(1), money(t, "100"), decimal.NewFromInt(101)))
		assert.Empty(t, inv.Lines)
	})

	t.Run("removing a line recalculates totals", func(t *testing.T) {
		inv := draftInvoice(t)
		require.NoError(t, inv.AddLine(nil, "Rice", decimal.NewFromInt(1), money(t, "1000"), decimal.Zero))
		require.NoError(t, inv.AddLine(nil, "Beans", decimal.NewFromInt(1), money(t, "500"), decimal.Zero))

		require.NoError(t, inv.RemoveLine(inv.Lines[1].ID))

		require.Len(t, inv.Lines, 1)
		assert.True(t, inv.GrandTotal.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("removing unknown line fails", func(t *testing.T) {
		inv := draftInvoice(t)
		assert.Error(t, inv.RemoveLine(uuid.New()))
	})

	t.Run("lines frozen after issue", func(t *testing.T) {
		inv := issuedInvoice(t)

		err := inv.AddLine(nil, "Extra", decimal.NewFromInt(1), money(t, "100"), decimal.Zero)
		assert.Error(t, err)
		assert.Error(t, inv.RemoveLine(inv.Lines[0].ID))
	})
}

func TestInvoiceIssue(t *testing.T) {
	t.Run("issue opens the invoice for payment", func(t *testing.T) {
		inv := draftInvoice(t)
		require.NoError(t, inv.AddLine(nil, "Rice", decimal.NewFromInt(1), money(t, "1000"), decimal.Zero))

		inv.ClearDomainEvents()
		require.NoError(t, inv.Issue())

		assert.Equal(t, InvoiceStatusIssued, inv.Status)
		require.NotNil(t, inv.IssuedAt)

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		issued, ok := events[0].(*InvoiceIssuedEvent)
		require.True(t, ok)
		assert.True(t, issued.GrandTotal.Equal(decimal.NewFromInt(1000)))
	})

	t.Run("empty invoice cannot be issued", func(t *testing.T) {
		inv := draftInvoice(t)
		assert.Error(t, inv.Issue())
	})

	t.Run("issuing twice fails", func(t *testing.T) {
		inv := issuedInvoice(t)
		assert.Error(t, inv.Issue())
	})
}

func TestInvoiceRecordPayment(t *testing.T) {
	t.Run("partial payment moves invoice to partially paid", func(t *testing.T) {
		inv := issuedInvoice(t) // grand total 90300 = 84000 + 7.5% tax

		inv.ClearDomainEvents()
		err := inv.RecordPayment(PaymentMethodTransfer, money(t, "50000"), "TRF-8841", nil)
		require.NoError(t, err)

		assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)
		assert.True(t, inv.AmountPaid.Equal(decimal.NewFromInt(50000)))
		assert.True(t, inv.Outstanding().Equal(decimal.NewFromInt(40300)), "outstanding = %s", inv.Outstanding())
		require.Len(t, inv.Payments, 1)
		assert.Equal(t, PaymentMethodTransfer, inv.Payments[0].Method)

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		recorded, ok := events[0].(*InvoicePaymentRecordedEvent)
		require.True(t, ok)
		assert.True(t, recorded.Outstanding.Equal(decimal.NewFromInt(40300)))
	})

	t.Run("final payment settles the invoice", func(t *testing.T) {
		inv := issuedInvoice(t)
		require.NoError(t, inv.RecordPayment(PaymentMethodTransfer, money(t, "50000"), "TRF-8841", nil))

		inv.ClearDomainEvents()
		require.NoError(t, inv.RecordPayment(PaymentMethodCash, money(t, "40300"), "", nil))

		assert.Equal(t, InvoiceStatusPaid, inv.Status)
		assert.True(t, inv.Outstanding().IsZero())
		require.NotNil(t, inv.PaidAt)
		require.Len(t, inv.Payments, 2)

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		_, ok := events[0].(*InvoicePaidEvent)
		require.True(t, ok)
	})

	t.Run("overpayment rejected", func(t *testing.T) {
		inv := issuedInvoice(t)

		err := inv.RecordPayment(PaymentMethodCash, money(t, "90300.01"), "", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds outstanding")
		assert.Equal(t, InvoiceStatusIssued, inv.Status)
		assert.True(t, inv.AmountPaid.IsZero())
	})

	t.Run("payment requires an open invoice", func(t *testing.T) {
		draft := draftInvoice(t)
		assert.Error(t, draft.RecordPayment(PaymentMethodCash, money(t, "100"), "", nil))

		paid := issuedInvoice(t)
		require.NoError(t, paid.RecordPayment(PaymentMethodCash, money(t, "90300"), "", nil))
		assert.Error(t, paid.RecordPayment(PaymentMethodCash, money(t, "1"), "", nil))
	})

	t.Run("payment amount must be positive", func(t *testing.T) {
		inv := issuedInvoice(t)
		assert.Error(t, inv.RecordPayment(PaymentMethodCash, money(t, "0"), "", nil))
	})

	t.Run("unknown payment method rejected", func(t *testing.T) {
		inv := issuedInvoice(t)
		assert.Error(t, inv.RecordPayment(PaymentMethod("cheque"), money(t, "100"), "", nil))
	})
}

func TestInvoiceOverdue(t *testing.T) {
	pastDue := func(t *testing.T) *Invoice {
		t.Helper()
		inv := issuedInvoice(t)
		due := time.Now().Add(-48 * time.Hour)
		inv.DueDate = &due
		return inv
	}

	t.Run("sweep marks unpaid invoice overdue", func(t *testing.T) {
		inv := pastDue(t)

		inv.ClearDomainEvents()
		require.NoError(t, inv.MarkOverdue(time.Now()))

		assert.Equal(t, InvoiceStatusOverdue, inv.Status)
		require.NotNil(t, inv.OverdueAt)

		events := inv.GetDomainEvents()
		require.Len(t, events, 1)
		overdue, ok := events[0].(*InvoiceOverdueEvent)
		require.True(t, ok)
		assert.True(t, overdue.Outstanding.Equal(inv.GrandTotal))
	})

	t.Run("invoice before due date is left alone", func(t *testing.T) {
		inv := issuedInvoice(t)
		due := time.Now().Add(72 * time.Hour)
		require.NoError(t, inv.SetDueDate(&due))

		assert.Error(t, inv.MarkOverdue(time.Now()))
		assert.Equal(t, InvoiceStatusIssued, inv.Status)
	})

	t.Run("invoice without due date never goes overdue", func(t *testing.T) {
		inv := issuedInvoice(t)
		assert.Error(t, inv.MarkOverdue(time.Now()))
	})

	t.Run("partial payment leaves overdue invoice overdue", func(t *testing.T) {
		inv := pastDue(t)
		require.NoError(t, inv.MarkOverdue(time.Now()))

		require.NoError(t, inv.RecordPayment(PaymentMethodCash, money(t, "10000"), "", nil))
		assert.Equal(t, InvoiceStatusOverdue, inv.Status)

		require.NoError(t, inv.RecordPayment(PaymentMethodCash, money(t, "80300"), "", nil))
		assert.Equal(t, InvoiceStatusPaid, inv.Status)
	})
}

func TestInvoiceVoid(t *testing.T) {
	t.Run("draft can be voided", func(t *testing.T) {
		inv := draftInvoice(t)

		require.NoError(t, inv.Void("duplicate entry"))

		assert.Equal(t, InvoiceStatusVoid, inv.Status)
		require.NotNil(t, inv.VoidedAt)
		assert.Equal(t, "duplicate entry", inv.VoidReason)
	})

	t.Run("issued invoice without payment can be voided", func(t *testing.T) {
		inv := issuedInvoice(t)
		require.NoError(t, inv.Void("customer cancelled order"))
		assert.Equal(t, InvoiceStatusVoid, inv.Status)
	})

	t.Run("void rejected once payment recorded", func(t *testing.T) {
		inv := issuedInvoice(t)
		require.NoError(t, inv.RecordPayment(PaymentMethodCash, money(t, "100"), "", nil))

		err := inv.Void("late cancellation")
		require.Error(t, err)
		assert.Equal(t, InvoiceStatusPartiallyPaid, inv.Status)
	})

	t.Run("void requires a reason", func(t *testing.T) {
		inv := draftInvoice(t)
		assert.Error(t, inv.Void("  "))
	})

	t.Run("voiding twice fails", func(t *testing.T) {
		inv := draftInvoice(t)
		require.NoError(t, inv.Void("duplicate entry"))
		assert.Error(t, inv.Void("duplicate entry"))
	})
}

func TestInvoiceStatusTransitions(t *testing.T) {
	cases := []struct {
		from    InvoiceStatus
		to      InvoiceStatus
		allowed bool
	}{
		{InvoiceStatusDraft, InvoiceStatusIssued, true},
		{InvoiceStatusDraft, InvoiceStatusVoid, true},
		{InvoiceStatusDraft, InvoiceStatusPaid, false},
		{InvoiceStatusIssued, InvoiceStatusPartiallyPaid, true},
		{InvoiceStatusIssued, InvoiceStatusPaid, true},
		{InvoiceStatusIssued, InvoiceStatusOverdue, true},
		{InvoiceStatusIssued, InvoiceStatusVoid, true},
		{InvoiceStatusPartiallyPaid, InvoiceStatusPaid, true},
		{InvoiceStatusPartiallyPaid, InvoiceStatusOverdue, true},
		{InvoiceStatusPartiallyPaid, InvoiceStatusVoid, false},
		{InvoiceStatusOverdue, InvoiceStatusPaid, true},
		{InvoiceStatusOverdue, InvoiceStatusVoid, true},
		{InvoiceStatusPaid, InvoiceStatusVoid, false},
		{InvoiceStatusVoid, InvoiceStatusIssued, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestPaymentRecordsStorage(t *testing.T) {
	t.Run("round trips through driver value", func(t *testing.T) {
		records := PaymentRecords{
			*NewPaymentRecord(PaymentMethodCash, money(t, "2500"), ""),
			*NewPaymentRecord(PaymentMethodTransfer, money(t, "7500"), "TRF-115"),
		}

		value, err := records.Value()
		require.NoError(t, err)

		var restored PaymentRecords
		require.NoError(t, restored.Scan(value))

		require.Len(t, restored, 2)
		assert.Equal(t, records[0].ID, restored[0].ID)
		assert.True(t, restored[1].Amount.Equal(decimal.NewFromInt(7500)))
		assert.Equal(t, "TRF-115", restored[1].Reference)
	})

	t.Run("nil scans to empty slice", func(t *testing.T) {
		var records PaymentRecords
		require.NoError(t, records.Scan(nil))
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})
}
