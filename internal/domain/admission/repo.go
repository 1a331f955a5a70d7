package admission

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Admission) error
	GetByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	// LockByID serializes lifecycle mutations on one admission.
	LockByID(ctx context.Context, id uuid.UUID) (*Admission, error)
	UpdateBed(ctx context.Context, id uuid.UUID, bedID *uuid.UUID) error
	Discharge(ctx context.Context, a *Admission) error
	List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Admission, int, error)
	ListActive(ctx context.Context) ([]*Admission, error)
	NextCode(ctx context.Context) (string, error)
}
