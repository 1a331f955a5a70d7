package insurance

import (
	"context"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/billing"
	"github.com/hms/hms/internal/platform/apperror"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/pkg/money"
)

// BillingLedger is the slice of the billing service claims depend on.
type BillingLedger interface {
	GetBill(ctx context.Context, id uuid.UUID) (*billing.Bill, error)
	StampClaim(ctx context.Context, billID, claimID uuid.UUID, amount money.Cents) error
	PostInsurancePayment(ctx context.Context, billID uuid.UUID, amount money.Cents, claimNumber string, createdBy *string) (*billing.Bill, error)
}

type Service struct {
	providers ProviderRepository
	claims    ClaimRepository
	ledger    BillingLedger
	tx        db.TxRunner
}

func NewService(providers ProviderRepository, claims ClaimRepository, ledger BillingLedger, tx db.TxRunner) *Service {
	return &Service{providers: providers, claims: claims, ledger: ledger, tx: tx}
}

// -- Providers --

func (s *Service) CreateProvider(ctx context.Context, p *Provider) error {
	if p.Name == "" {
		return apperror.InvalidArgument("provider name is required")
	}
	p.IsActive = true
	return s.providers.Create(ctx, p)
}

func (s *Service) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return s.providers.GetByID(ctx, id)
}

func (s *Service) UpdateProvider(ctx context.Context, p *Provider) error {
	cur, err := s.providers.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if p.Name == "" {
		p.Name = cur.Name
	}
	return s.providers.Update(ctx, p)
}

func (s *Service) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	if _, err := s.providers.GetByID(ctx, id); err != nil {
		return err
	}
	has, err := s.providers.HasClaims(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return apperror.ReferentialConflict("provider has claims and cannot be deleted")
	}
	return s.providers.Delete(ctx, id)
}

func (s *Service) ListProviders(ctx context.Context, activeOnly bool, limit, offset int) ([]*Provider, int, error) {
	return s.providers.List(ctx, activeOnly, limit, offset)
}

// -- Claims --

// CreateClaim files a Pending claim against an existing bill and stamps the
// bill with the claim cross-reference. The stamp is traceability only; the
// ledger is untouched until approval.
func (s *Service) CreateClaim(ctx context.Context, c *Claim) error {
	if c.Amount <= 0 {
		return apperror.InvalidArgument("claim amount must be positive")
	}
	if _, err := s.providers.GetByID(ctx, c.InsuranceProviderID); err != nil {
		return err
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		bill, err := s.ledger.GetBill(ctx, c.BillID)
		if err != nil {
			return err
		}
		if c.PatientID == uuid.Nil {
			c.PatientID = bill.PatientID
		}
		c.Status = ClaimPending

		number, err := s.claims.NextNumber(ctx)
		if err != nil {
			return err
		}
		c.ClaimNumber = number

		if err := s.claims.Create(ctx, c); err != nil {
			return err
		}
		return s.ledger.StampClaim(ctx, c.BillID, c.ID, c.Amount)
	})
}

func (s *Service) GetClaim(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.claims.GetByID(ctx, id)
}

func (s *Service) ListClaims(ctx context.Context, patientID, providerID *uuid.UUID, status string, limit, offset int) ([]*Claim, int, error) {
	if status != "" && !validClaimStatuses[status] {
		return nil, 0, apperror.InvalidArgument("invalid status filter: %s", status)
	}
	return s.claims.List(ctx, patientID, providerID, status, limit, offset)
}

// UpdateClaimStatus resolves a Pending claim. Approval posts an Insurance
// payment equal to the claim amount on the linked bill; the status write and
// the ledger write commit or roll back together.
func (s *Service) UpdateClaimStatus(ctx context.Context, id uuid.UUID, req *StatusUpdateRequest, resolvedBy *string) (*Claim, error) {
	if !validClaimStatuses[req.Status] {
		return nil, apperror.InvalidArgument("invalid status: %s", req.Status)
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		c, err := s.claims.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != ClaimPending {
			return apperror.InvalidState("claim %s is already %s", c.ClaimNumber, c.Status)
		}
		if err := s.claims.UpdateStatus(ctx, id, req.Status, req.AdminNotes); err != nil {
			return err
		}
		if req.Status == ClaimApproved {
			if _, err := s.ledger.PostInsurancePayment(ctx, c.BillID, c.Amount, c.ClaimNumber, resolvedBy); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.claims.GetByID(ctx, id)
}
