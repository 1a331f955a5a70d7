package billing

import (
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/pkg/money"
)

// Bill is the invoice aggregate. The monetary fields are a function of the
// current items and payments: subtotal/tax/discount are re-summed from items
// on every item mutation, paid/balance/payment_status on every payment.
type Bill struct {
	ID               uuid.UUID    `db:"id" json:"id"`
	BillNumber       string       `db:"bill_number" json:"bill_number"`
	PatientID        uuid.UUID    `db:"patient_id" json:"patient_id"`
	AdmissionID      *uuid.UUID   `db:"admission_id" json:"admission_id,omitempty"`
	OPDVisitID       *uuid.UUID   `db:"opd_visit_id" json:"opd_visit_id,omitempty"`
	BillDate         time.Time    `db:"bill_date" json:"bill_date"`
	DueDate          *time.Time   `db:"due_date" json:"due_date,omitempty"`
	Subtotal         money.Cents  `db:"subtotal" json:"subtotal"`
	DiscountAmount   money.Cents  `db:"discount_amount" json:"discount_amount"`
	DiscountReason   *string      `db:"discount_reason" json:"discount_reason,omitempty"`
	TaxAmount        money.Cents  `db:"tax_amount" json:"tax_amount"`
	TotalAmount      money.Cents  `db:"total_amount" json:"total_amount"`
	PaidAmount       money.Cents  `db:"paid_amount" json:"paid_amount"`
	BalanceDue       money.Cents  `db:"balance_due" json:"balance_due"`
	PaymentStatus    string       `db:"payment_status" json:"payment_status"`
	Status           string       `db:"status" json:"status"`
	InsuranceClaimID *uuid.UUID   `db:"insurance_claim_id" json:"insurance_claim_id,omitempty"`
	InsuranceAmount  money.Cents  `db:"insurance_amount" json:"insurance_amount"`
	Notes            *string      `db:"notes" json:"notes,omitempty"`
	CreatedBy        *string      `db:"created_by" json:"created_by,omitempty"`
	CreatedAt        time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time    `db:"updated_at" json:"updated_at"`

	PatientName string `db:"-" json:"patient_name,omitempty"`
	PatientCode string `db:"-" json:"patient_code,omitempty"`

	// Populated on the detail read only.
	Items    []*BillItem `db:"-" json:"items,omitempty"`
	Payments []*Payment  `db:"-" json:"payments,omitempty"`
}

// Workflow statuses.
const (
	BillDraft     = "Draft"
	BillFinal     = "Final"
	BillCancelled = "Cancelled"
	BillVoid      = "Void"
)

// Payment statuses. Overdue and Refunded are accepted in filters but never
// derived; derivation only produces the first three.
const (
	PaymentPending = "Pending"
	PaymentPartial = "Partial"
	PaymentPaid    = "Paid"
)

var validBillStatuses = map[string]bool{
	BillDraft: true, BillFinal: true, BillCancelled: true, BillVoid: true,
}

var validPaymentStatuses = map[string]bool{
	PaymentPending: true, PaymentPartial: true, PaymentPaid: true,
	"Overdue": true, "Refunded": true,
}

// DerivePaymentStatus is the single source of the payment_status value.
// The column is never accepted as input; every write path recomputes it
// from the current (paid, total) pair.
func DerivePaymentStatus(paid, total money.Cents) string {
	switch {
	case total > 0 && paid >= total:
		return PaymentPaid
	case paid > 0:
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// BillItem is an append-only line entry. Total is the caller-supplied line
// total; the ledger sums it as-is rather than recomputing quantity×unit_price.
type BillItem struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	BillID      uuid.UUID   `db:"bill_id" json:"bill_id"`
	Description string      `db:"description" json:"description"`
	Quantity    int         `db:"quantity" json:"quantity"`
	UnitPrice   money.Cents `db:"unit_price" json:"unit_price"`
	Discount    money.Cents `db:"discount" json:"discount"`
	Tax         money.Cents `db:"tax" json:"tax"`
	Total       money.Cents `db:"total" json:"total"`
	ServiceDate *time.Time  `db:"service_date" json:"service_date,omitempty"`
	Notes       *string     `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// Payment is an append-only ledger entry.
type Payment struct {
	ID                   uuid.UUID   `db:"id" json:"id"`
	PaymentCode          string      `db:"payment_code" json:"payment_code"`
	BillID               uuid.UUID   `db:"bill_id" json:"bill_id"`
	PatientID            uuid.UUID   `db:"patient_id" json:"patient_id"`
	Amount               money.Cents `db:"amount" json:"amount"`
	PaymentDate          time.Time   `db:"payment_date" json:"payment_date"`
	PaymentMethod        string      `db:"payment_method" json:"payment_method"`
	TransactionReference *string     `db:"transaction_reference" json:"transaction_reference,omitempty"`
	ReceiptNumber        *string     `db:"receipt_number" json:"receipt_number,omitempty"`
	Notes                *string     `db:"notes" json:"notes,omitempty"`
	CreatedBy            *string     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt            time.Time   `db:"created_at" json:"created_at"`
}

var validPaymentMethods = map[string]bool{
	"Cash": true, "Card": true, "UPI": true, "Cheque": true,
	"Bank Transfer": true, "Insurance": true,
}

// ItemSums is the aggregate re-derived from a bill's current items.
type ItemSums struct {
	Subtotal money.Cents
	Tax      money.Cents
	Discount money.Cents
}
