package admission

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/ward"
	"github.com/hms/hms/internal/platform/apperror"
	"github.com/hms/hms/internal/platform/db"
)

// Service drives the inpatient lifecycle. Every bed it touches goes through
// the ward service so bed status and ward counters stay consistent; compound
// mutations share one transaction via the context.
type Service struct {
	admissions Repository
	beds       *ward.Service
	tx         db.TxRunner
}

func NewService(admissions Repository, beds *ward.Service, tx db.TxRunner) *Service {
	return &Service{admissions: admissions, beds: beds, tx: tx}
}

// Admit creates an Active admission and, when a bed is requested, occupies
// it in the same transaction.
func (s *Service) Admit(ctx context.Context, a *Admission) error {
	if a.PatientID == uuid.Nil {
		return apperror.InvalidArgument("patient_id is required")
	}
	if a.AdmittingDiagnosis == "" {
		a.AdmittingDiagnosis = "Pending evaluation"
	}
	if a.AdmissionType == "" {
		a.AdmissionType = "Regular"
	}
	a.Status = StatusActive
	if a.AdmissionDate.IsZero() {
		a.AdmissionDate = time.Now()
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		code, err := s.admissions.NextCode(ctx)
		if err != nil {
			return err
		}
		a.AdmissionCode = code

		if a.BedID != nil {
			if _, err := s.beds.OccupyAvailable(ctx, *a.BedID); err != nil {
				return err
			}
		}
		return s.admissions.Create(ctx, a)
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return s.admissions.GetByID(ctx, id)
}

// BedTransfer releases the old bed, occupies the new one, and rebinds the
// admission, atomically.
func (s *Service) BedTransfer(ctx context.Context, admissionID, newBedID uuid.UUID) (*Admission, error) {
	var out *Admission
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		a, err := s.admissions.LockByID(ctx, admissionID)
		if err != nil {
			return err
		}
		if a.Status != StatusActive {
			return apperror.InvalidState("admission %s is %s, not Active", a.AdmissionCode, a.Status)
		}
		if a.BedID != nil && *a.BedID == newBedID {
			return apperror.InvalidArgument("admission already occupies this bed")
		}

		// Occupy first: the availability guard runs under the ward lock, and
		// a rejected target leaves the old binding untouched.
		if _, err := s.beds.OccupyAvailable(ctx, newBedID); err != nil {
			return err
		}
		if a.BedID != nil {
			if _, err := s.beds.Release(ctx, *a.BedID); err != nil {
				return err
			}
		}
		if err := s.admissions.UpdateBed(ctx, admissionID, &newBedID); err != nil {
			return err
		}

		out, err = s.admissions.GetByID(ctx, admissionID)
		return err
	})
	return out, err
}

// Discharge terminates the admission and frees its bed. A second discharge
// is rejected rather than silently releasing the bed twice.
func (s *Service) Discharge(ctx context.Context, admissionID uuid.UUID, req DischargeRequest) (*Admission, error) {
	status := StatusDischarged
	switch req.DischargeType {
	case "", "Normal", "LAMA", "Referred", "Absconded":
	case "Deceased":
		status = "Deceased"
	default:
		return nil, apperror.InvalidArgument("invalid discharge_type: %s", req.DischargeType)
	}
	if req.DischargeType == "" {
		req.DischargeType = "Normal"
	}

	var out *Admission
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		a, err := s.admissions.LockByID(ctx, admissionID)
		if err != nil {
			return err
		}
		if a.Status != StatusActive {
			return apperror.InvalidState("admission %s is already %s", a.AdmissionCode, a.Status)
		}

		if a.BedID != nil {
			if _, err := s.beds.Release(ctx, *a.BedID); err != nil {
				return err
			}
		}

		now := time.Now()
		a.Status = status
		a.DischargeType = &req.DischargeType
		a.DischargeSummary = req.DischargeSummary
		a.ActualDischargeDate = &now
		if err := s.admissions.Discharge(ctx, a); err != nil {
			return err
		}

		out, err = s.admissions.GetByID(ctx, admissionID)
		return err
	})
	return out, err
}

func (s *Service) GetActive(ctx context.Context) ([]*Admission, error) {
	return s.admissions.ListActive(ctx)
}

func (s *Service) GetAvailableBeds(ctx context.Context, wardID *uuid.UUID) ([]*ward.Bed, error) {
	return s.beds.GetAvailable(ctx, wardID)
}

func (s *Service) List(ctx context.Context, status string, patientID *uuid.UUID, limit, offset int) ([]*Admission, int, error) {
	if status != "" && !validStatuses[status] {
		return nil, 0, apperror.InvalidArgument("invalid status: %s", status)
	}
	return s.admissions.List(ctx, status, patientID, limit, offset)
}
