package ward

import (
	"context"

	"github.com/google/uuid"
)

type WardRepository interface {
	Create(ctx context.Context, w *Ward) error
	GetByID(ctx context.Context, id uuid.UUID) (*Ward, error)
	// LockByID takes a row lock on the ward so concurrent bed mutations on the
	// same ward serialize. Only meaningful inside a transaction.
	LockByID(ctx context.Context, id uuid.UUID) (*Ward, error)
	Update(ctx context.Context, w *Ward) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, wardType string, limit, offset int) ([]*Ward, int, error)
	AdjustCounters(ctx context.Context, id uuid.UUID, deltaTotal, deltaAvailable int) error
	SetCounters(ctx context.Context, id uuid.UUID, total, available int) error
}

type BedRepository interface {
	Create(ctx context.Context, b *Bed) error
	GetByID(ctx context.Context, id uuid.UUID) (*Bed, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByWard(ctx context.Context, wardID uuid.UUID) ([]*Bed, error)
	ListAvailable(ctx context.Context, wardID *uuid.UUID) ([]*Bed, error)
	List(ctx context.Context, status string, limit, offset int) ([]*Bed, int, error)
	CountByWardAndStatus(ctx context.Context, wardID uuid.UUID, status string) (int, error)
	CountByWard(ctx context.Context, wardID uuid.UUID) (int, error)
	HasActiveAdmission(ctx context.Context, bedID uuid.UUID) (bool, error)
}
