package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperror"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/pkg/money"
)

// Service is the billing ledger. Aggregate fields on a bill are only ever
// written here, re-derived under the bill row lock: subtotal/tax/discount by
// summing the current items, paid/balance/payment_status from the payment
// stream. Money stays in integer cents throughout.
type Service struct {
	bills    BillRepository
	items    ItemRepository
	payments PaymentRepository
	tx       db.TxRunner
}

func NewService(bills BillRepository, items ItemRepository, payments PaymentRepository, tx db.TxRunner) *Service {
	return &Service{bills: bills, items: items, payments: payments, tx: tx}
}

// CreateBill opens a Draft bill with zeroed monetary fields.
func (s *Service) CreateBill(ctx context.Context, b *Bill) error {
	if b.PatientID == uuid.Nil {
		return apperror.InvalidArgument("patient_id is required")
	}
	b.Subtotal, b.DiscountAmount, b.TaxAmount = 0, 0, 0
	b.TotalAmount, b.PaidAmount, b.BalanceDue = 0, 0, 0
	b.PaymentStatus = PaymentPending
	b.Status = BillDraft
	if b.BillDate.IsZero() {
		b.BillDate = time.Now()
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		number, err := s.bills.NextNumber(ctx)
		if err != nil {
			return err
		}
		b.BillNumber = number
		return s.bills.Create(ctx, b)
	})
}

// GetBill returns the bill with its full item and payment lists.
func (s *Service) GetBill(ctx context.Context, id uuid.UUID) (*Bill, error) {
	b, err := s.bills.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Items, err = s.items.ListByBill(ctx, id); err != nil {
		return nil, err
	}
	if b.Payments, err = s.payments.ListByBill(ctx, id); err != nil {
		return nil, err
	}
	return b, nil
}

// AddItem appends a line item and re-aggregates the parent bill from the
// complete current item set. Sum-based, so re-running after any item change
// yields the same aggregates.
func (s *Service) AddItem(ctx context.Context, item *BillItem) (*Bill, error) {
	if item.Description == "" {
		return nil, apperror.InvalidArgument("description is required")
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}
	if item.Total < 0 {
		return nil, apperror.InvalidArgument("item total must not be negative")
	}

	var out *Bill
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.bills.LockByID(ctx, item.BillID)
		if err != nil {
			return err
		}
		if b.Status == BillCancelled || b.Status == BillVoid {
			return apperror.InvalidState("bill %s is %s", b.BillNumber, b.Status)
		}

		if err := s.items.Create(ctx, item); err != nil {
			return err
		}

		sums, err := s.items.SumByBill(ctx, item.BillID)
		if err != nil {
			return err
		}
		b.Subtotal = sums.Subtotal
		b.TaxAmount = sums.Tax
		b.DiscountAmount = sums.Discount
		b.TotalAmount = b.Subtotal + b.TaxAmount - b.DiscountAmount
		b.BalanceDue = b.TotalAmount - b.PaidAmount
		b.PaymentStatus = DerivePaymentStatus(b.PaidAmount, b.TotalAmount)
		if err := s.bills.UpdateAggregates(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

// RecordPayment appends a ledger entry and rolls the bill's paid amount,
// balance, and derived payment status forward, all in one transaction.
func (s *Service) RecordPayment(ctx context.Context, p *Payment) (*Bill, error) {
	if p.Amount <= 0 {
		return nil, apperror.InvalidArgument("payment amount must be positive")
	}
	if !validPaymentMethods[p.PaymentMethod] {
		return nil, apperror.InvalidArgument("invalid payment_method: %s", p.PaymentMethod)
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now()
	}

	var out *Bill
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.bills.LockByID(ctx, p.BillID)
		if err != nil {
			return err
		}
		if b.Status == BillCancelled || b.Status == BillVoid {
			return apperror.InvalidState("bill %s is %s", b.BillNumber, b.Status)
		}
		if p.PatientID == uuid.Nil {
			p.PatientID = b.PatientID
		}

		code, err := s.payments.NextCode(ctx)
		if err != nil {
			return err
		}
		p.PaymentCode = code
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}

		b.PaidAmount += p.Amount
		b.BalanceDue = b.TotalAmount - b.PaidAmount
		b.PaymentStatus = DerivePaymentStatus(b.PaidAmount, b.TotalAmount)
		if err := s.bills.UpdateAggregates(ctx, b); err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

// PostInsurancePayment is the claim-approval entry point: a payment with
// method Insurance referencing the claim number, applied like any other
// ledger entry. Runs inside the caller's transaction.
func (s *Service) PostInsurancePayment(ctx context.Context, billID uuid.UUID, amount money.Cents, claimNumber string, createdBy *string) (*Bill, error) {
	return s.RecordPayment(ctx, &Payment{
		BillID:               billID,
		Amount:               amount,
		PaymentMethod:        "Insurance",
		TransactionReference: &claimNumber,
		CreatedBy:            createdBy,
	})
}

// Finalize moves a Draft bill to Final.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) (*Bill, error) {
	var out *Bill
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.bills.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != BillDraft {
			return apperror.InvalidState("bill %s is %s, not Draft", b.BillNumber, b.Status)
		}
		if err := s.bills.UpdateStatus(ctx, id, BillFinal); err != nil {
			return err
		}
		b.Status = BillFinal
		out = b
		return nil
	})
	return out, err
}

// Cancel closes a bill that has no recorded payments.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Bill, error) {
	var out *Bill
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.bills.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == BillCancelled || b.Status == BillVoid {
			return apperror.InvalidState("bill %s is already %s", b.BillNumber, b.Status)
		}
		n, err := s.payments.CountByBill(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.ReferentialConflict("bill %s has %d recorded payments", b.BillNumber, n)
		}
		if err := s.bills.UpdateStatus(ctx, id, BillCancelled); err != nil {
			return err
		}
		b.Status = BillCancelled
		out = b
		return nil
	})
	return out, err
}

func (s *Service) ListBills(ctx context.Context, patientID *uuid.UUID, paymentStatus, status string, limit, offset int) ([]*Bill, int, error) {
	if paymentStatus != "" && !validPaymentStatuses[paymentStatus] {
		return nil, 0, apperror.InvalidArgument("invalid payment_status: %s", paymentStatus)
	}
	if status != "" && !validBillStatuses[status] {
		return nil, 0, apperror.InvalidArgument("invalid status: %s", status)
	}
	return s.bills.List(ctx, patientID, paymentStatus, status, limit, offset)
}

func (s *Service) ListPayments(ctx context.Context, billID, patientID *uuid.UUID, method string, limit, offset int) ([]*Payment, int, error) {
	return s.payments.List(ctx, billID, patientID, method, limit, offset)
}

// StampClaim cross-references a claim on the bill. Not a ledger effect; the
// ledger moves only when the claim is approved.
func (s *Service) StampClaim(ctx context.Context, billID, claimID uuid.UUID, amount money.Cents) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.bills.LockByID(ctx, billID); err != nil {
			return err
		}
		return s.bills.StampClaim(ctx, billID, claimID, amount)
	})
}
