package icu

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperror"
	"github.com/hms/hms/internal/platform/db"
)

type Service struct {
	patients PatientRepository
	beds     BedRepository
	tx       db.TxRunner
}

func NewService(patients PatientRepository, beds BedRepository, tx db.TxRunner) *Service {
	return &Service{patients: patients, beds: beds, tx: tx}
}

// -- Bed roster --

func (s *Service) CreateBed(ctx context.Context, b *ICUBed) error {
	if b.BedNumber == "" {
		return apperror.InvalidArgument("bed_number is required")
	}
	if b.Status == "" {
		b.Status = BedAvailable
	}
	if b.BedType == "" {
		b.BedType = "ICU"
	}
	return s.beds.Create(ctx, b)
}

func (s *Service) ListBeds(ctx context.Context, status string) ([]*ICUBed, error) {
	return s.beds.List(ctx, status)
}

// -- Admission lifecycle --

func (s *Service) Admit(ctx context.Context, p *Patient) error {
	if p.PatientID == uuid.Nil {
		return apperror.InvalidArgument("patient_id is required")
	}
	if p.AdmittingDiagnosis == "" {
		return apperror.InvalidArgument("admitting_diagnosis is required")
	}
	if p.ConditionStatus == "" {
		p.ConditionStatus = "Stable"
	}
	p.Status = StatusActive
	if p.AdmissionDate.IsZero() {
		p.AdmissionDate = time.Now()
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		code, err := s.patients.NextCode(ctx)
		if err != nil {
			return err
		}
		p.AdmissionCode = code

		if p.BedID != nil {
			b, err := s.beds.LockByID(ctx, *p.BedID)
			if err != nil {
				return err
			}
			if b.Status != BedAvailable {
				return apperror.InvalidState("ICU bed %s is %s", b.BedNumber, b.Status)
			}
			if err := s.beds.UpdateStatus(ctx, *p.BedID, BedOccupied); err != nil {
				return err
			}
		}
		return s.patients.Create(ctx, p)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, status, limit, offset)
}

// UpdateVitals appends one history row and overwrites the denormalized
// snapshot, both in one transaction. Vitals rows are never updated or
// deleted afterward.
func (s *Service) UpdateVitals(ctx context.Context, icuPatientID uuid.UUID, v Vitals, recordedBy string) (*VitalsLogEntry, error) {
	if v.Empty() {
		return nil, apperror.InvalidArgument("vitals reading carries no measurements")
	}

	var out *VitalsLogEntry
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.LockByID(ctx, icuPatientID)
		if err != nil {
			return err
		}
		if p.Status != StatusActive {
			return apperror.InvalidState("ICU stay %s is %s", p.AdmissionCode, p.Status)
		}

		e := &VitalsLogEntry{
			ICUPatientID: icuPatientID,
			RecordedAt:   time.Now(),
			Vitals:       v,
		}
		if recordedBy != "" {
			e.RecordedBy = &recordedBy
		}
		if err := s.patients.AppendVitalsLog(ctx, e); err != nil {
			return err
		}
		if err := s.patients.UpdateVitals(ctx, icuPatientID, &v); err != nil {
			return err
		}
		out = e
		return nil
	})
	return out, err
}

func (s *Service) VitalsHistory(ctx context.Context, icuPatientID uuid.UUID, limit, offset int) ([]*VitalsLogEntry, int, error) {
	if _, err := s.patients.GetByID(ctx, icuPatientID); err != nil {
		return nil, 0, err
	}
	return s.patients.VitalsHistory(ctx, icuPatientID, limit, offset)
}

// Discharge terminates the stay and frees the ICU bed. Terminal stays
// reject a second discharge.
func (s *Service) Discharge(ctx context.Context, icuPatientID uuid.UUID, req DischargeRequest) (*Patient, error) {
	var out *Patient
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.LockByID(ctx, icuPatientID)
		if err != nil {
			return err
		}
		if p.Status != StatusActive {
			return apperror.InvalidState("ICU stay %s is already %s", p.AdmissionCode, p.Status)
		}

		if p.BedID != nil {
			if _, err := s.beds.LockByID(ctx, *p.BedID); err != nil {
				return err
			}
			if err := s.beds.UpdateStatus(ctx, *p.BedID, BedAvailable); err != nil {
				return err
			}
		}

		now := time.Now()
		p.Status = StatusDischarged
		p.DischargeDate = &now
		if req.Disposition != "" {
			p.DischargeDisposition = &req.Disposition
		}
		if err := s.patients.Discharge(ctx, p); err != nil {
			return err
		}

		out, err = s.patients.GetByID(ctx, icuPatientID)
		return err
	})
	return out, err
}
