package insurance

import (
	"context"

	"github.com/google/uuid"
)

type ProviderRepository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	Update(ctx context.Context, p *Provider) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Provider, int, error)
	HasClaims(ctx context.Context, id uuid.UUID) (bool, error)
}

type ClaimRepository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	// LockByID reads the bare claim row FOR UPDATE to serialize resolution.
	LockByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, adminNotes *string) error
	List(ctx context.Context, patientID, providerID *uuid.UUID, status string, limit, offset int) ([]*Claim, int, error)
	NextNumber(ctx context.Context) (string, error)
}
