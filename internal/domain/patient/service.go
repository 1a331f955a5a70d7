package patient

import (
	"context"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperror"
	"github.com/hms/hms/internal/platform/db"
)

type Service struct {
	patients Repository
	tx       db.TxRunner
}

func NewService(patients Repository, tx db.TxRunner) *Service {
	return &Service{patients: patients, tx: tx}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return apperror.InvalidArgument("name is required")
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		code, err := s.patients.NextCode(ctx)
		if err != nil {
			return err
		}
		p.PatientCode = code
		return s.patients.Create(ctx, p)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Patient, error) {
	return s.patients.GetByCode(ctx, code)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return apperror.InvalidArgument("name is required")
	}
	cur, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.PatientCode = cur.PatientCode
	return s.patients.Update(ctx, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.patients.GetByID(ctx, id); err != nil {
			return err
		}
		referenced, err := s.patients.HasReferences(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return apperror.ReferentialConflict("patient has admissions or bills")
		}
		return s.patients.Delete(ctx, id)
	})
}

func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, search, limit, offset)
}
