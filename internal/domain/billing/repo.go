package billing

import (
	"context"

	"github.com/google/uuid"

	"github.com/hms/hms/pkg/money"
)

type BillRepository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	// LockByID serializes item, payment, and claim mutations on one bill.
	LockByID(ctx context.Context, id uuid.UUID) (*Bill, error)
	UpdateAggregates(ctx context.Context, b *Bill) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	StampClaim(ctx context.Context, id uuid.UUID, claimID uuid.UUID, amount money.Cents) error
	List(ctx context.Context, patientID *uuid.UUID, paymentStatus, status string, limit, offset int) ([]*Bill, int, error)
	NextNumber(ctx context.Context) (string, error)
}

type ItemRepository interface {
	Create(ctx context.Context, item *BillItem) error
	ListByBill(ctx context.Context, billID uuid.UUID) ([]*BillItem, error)
	// SumByBill re-derives the bill aggregates from the current item set.
	SumByBill(ctx context.Context, billID uuid.UUID) (ItemSums, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	ListByBill(ctx context.Context, billID uuid.UUID) ([]*Payment, error)
	List(ctx context.Context, billID, patientID *uuid.UUID, method string, limit, offset int) ([]*Payment, int, error)
	CountByBill(ctx context.Context, billID uuid.UUID) (int, error)
	NextCode(ctx context.Context) (string, error)
}
