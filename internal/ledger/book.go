package ledger

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/roach88/tallykeep/internal/model"
)

var (
	ErrInvoiceNotFound = errors.New("ledger: invoice not found")
	ErrPaymentNotFound = errors.New("ledger: payment not found")
	ErrEmptyPayment    = errors.New("ledger: payment amount and tds are both zero")
)

// paymentValidate validates PaymentInput. Decimals are compared as float64.
var paymentValidate *validator.Validate

func init() {
	paymentValidate = validator.New()
	paymentValidate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
}

func decimalValue(v reflect.Value) interface{} {
	if d, ok := v.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

// PaymentInput is a payment as entered by the user.
type PaymentInput struct {
	InvoiceID string          `validate:"required"`
	Amount    decimal.Decimal `validate:"gte=0"`
	TDSAmount decimal.Decimal `validate:"gte=0"`
	Date      string          `validate:"required,datetime=2006-01-02"`
	Method    string          `validate:"max=64"`
	Notes     string          `validate:"max=1000"`
}

// Validate checks the input's field constraints.
func (in PaymentInput) Validate() error {
	if err := paymentValidate.Struct(in); err != nil {
		return fmt.Errorf("invalid payment: %w", err)
	}
	if in.Amount.IsZero() && in.TDSAmount.IsZero() {
		return ErrEmptyPayment
	}
	return nil
}

// Book records and removes payments on a working set, keeping each owning
// invoice reconciled after every change.
type Book struct {
	// Now stamps createdAt. Defaults to time.Now.
	Now func() time.Time
	// NewID generates payment ids. Defaults to model.NewID.
	NewID func() string
}

// RecordPayment validates in, appends a new payment to ws and applies it
// to the owning invoice.
func (b Book) RecordPayment(ws *model.WorkingSet, in PaymentInput) (model.Payment, error) {
	if err := in.Validate(); err != nil {
		return model.Payment{}, err
	}

	idx := invoiceIndex(ws.Invoices, in.InvoiceID)
	if idx < 0 {
		return model.Payment{}, fmt.Errorf("%w: %s", ErrInvoiceNotFound, in.InvoiceID)
	}

	p := model.Payment{
		ID:        b.newID(),
		InvoiceID: in.InvoiceID,
		Amount:    in.Amount,
		TDSAmount: in.TDSAmount,
		Date:      in.Date,
		Method:    in.Method,
		Notes:     in.Notes,
		CreatedAt: b.now().UnixMilli(),
	}

	ws.Payments = append(ws.Payments, p)
	ws.Invoices[idx] = Apply(ws.Invoices[idx], p)
	return p, nil
}

// RemovePayment deletes the payment with id from ws and reverses its
// contribution to the owning invoice. A payment whose invoice no longer
// exists is still removed.
func (b Book) RemovePayment(ws *model.WorkingSet, id string) (model.Payment, error) {
	pi := -1
	for i, p := range ws.Payments {
		if p.ID == id {
			pi = i
			break
		}
	}
	if pi < 0 {
		return model.Payment{}, fmt.Errorf("%w: %s", ErrPaymentNotFound, id)
	}

	p := ws.Payments[pi]
	ws.Payments = append(ws.Payments[:pi:pi], ws.Payments[pi+1:]...)

	if idx := invoiceIndex(ws.Invoices, p.InvoiceID); idx >= 0 {
		ws.Invoices[idx] = Reverse(ws.Invoices[idx], p)
	}
	return p, nil
}

func (b Book) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b Book) newID() string {
	if b.NewID != nil {
		return b.NewID()
	}
	return model.NewID()
}

func invoiceIndex(invoices []model.Invoice, id string) int {
	for i, inv := range invoices {
		if inv.ID == id {
			return i
		}
	}
	return -1
}
