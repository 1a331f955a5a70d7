package ward

import (
	"context"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/apperror"
	"github.com/hms/hms/internal/platform/db"
)

// Service owns every bed-status transition. Call sites never touch the ward
// counters directly; each compound mutation locks the ward row and adjusts
// the counters in the same transaction as the bed write.
type Service struct {
	wards WardRepository
	beds  BedRepository
	tx    db.TxRunner
}

func NewService(wards WardRepository, beds BedRepository, tx db.TxRunner) *Service {
	return &Service{wards: wards, beds: beds, tx: tx}
}

// -- Ward CRUD --

func (s *Service) CreateWard(ctx context.Context, w *Ward) error {
	if w.Name == "" {
		return apperror.InvalidArgument("name is required")
	}
	if !validWardTypes[w.Type] {
		return apperror.InvalidArgument("invalid ward type: %s", w.Type)
	}
	w.TotalBeds = 0
	w.AvailableBeds = 0
	return s.wards.Create(ctx, w)
}

func (s *Service) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	return s.wards.GetByID(ctx, id)
}

func (s *Service) UpdateWard(ctx context.Context, w *Ward) error {
	if w.Type != "" && !validWardTypes[w.Type] {
		return apperror.InvalidArgument("invalid ward type: %s", w.Type)
	}
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cur, err := s.wards.LockByID(ctx, w.ID)
		if err != nil {
			return err
		}
		if w.Name == "" {
			w.Name = cur.Name
		}
		if w.Type == "" {
			w.Type = cur.Type
		}
		return s.wards.Update(ctx, w)
	})
}

func (s *Service) DeleteWard(ctx context.Context, id uuid.UUID) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.wards.LockByID(ctx, id); err != nil {
			return err
		}
		n, err := s.beds.CountByWard(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return apperror.ReferentialConflict("ward still has %d beds", n)
		}
		return s.wards.Delete(ctx, id)
	})
}

func (s *Service) ListWards(ctx context.Context, wardType string, limit, offset int) ([]*Ward, int, error) {
	return s.wards.List(ctx, wardType, limit, offset)
}

func (s *Service) GetWardBeds(ctx context.Context, wardID uuid.UUID) ([]*Bed, error) {
	if _, err := s.wards.GetByID(ctx, wardID); err != nil {
		return nil, err
	}
	return s.beds.ListByWard(ctx, wardID)
}

// -- Bed registry --

// CreateBed inserts a bed under its ward and bumps the ward counters:
// total always, available only when the bed starts Available.
func (s *Service) CreateBed(ctx context.Context, b *Bed) error {
	if b.BedNumber == "" {
		return apperror.InvalidArgument("bed_number is required")
	}
	if b.WardID == uuid.Nil {
		return apperror.InvalidArgument("ward_id is required")
	}
	if b.Status == "" {
		b.Status = BedAvailable
	}
	if !validBedStatuses[b.Status] {
		return apperror.InvalidArgument("invalid bed status: %s", b.Status)
	}
	if b.BedType == "" {
		b.BedType = "Standard"
	}

	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.wards.LockByID(ctx, b.WardID); err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NotFound("ward %s not found", b.WardID)
			}
			return err
		}
		if err := s.beds.Create(ctx, b); err != nil {
			return err
		}
		deltaAvail := 0
		if b.Status == BedAvailable {
			deltaAvail = 1
		}
		return s.wards.AdjustCounters(ctx, b.WardID, 1, deltaAvail)
	})
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	return s.beds.GetByID(ctx, id)
}

// UpdateBedStatus transitions a bed and keeps the ward's available counter
// consistent. The delta is computed from the stored status read under the
// ward lock, never from caller-supplied state.
func (s *Service) UpdateBedStatus(ctx context.Context, bedID uuid.UUID, newStatus string) (*Bed, error) {
	if !validBedStatuses[newStatus] {
		return nil, apperror.InvalidArgument("invalid bed status: %s", newStatus)
	}

	var out *Bed
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.beds.GetByID(ctx, bedID)
		if err != nil {
			return err
		}
		if _, err := s.wards.LockByID(ctx, b.WardID); err != nil {
			return err
		}
		// Re-read under the lock: the first read raced any concurrent writer.
		b, err = s.beds.GetByID(ctx, bedID)
		if err != nil {
			return err
		}
		if b.Status == newStatus {
			out = b
			return nil
		}
		if err := s.beds.UpdateStatus(ctx, bedID, newStatus); err != nil {
			return err
		}
		delta := availableDelta(b.Status, newStatus)
		if delta != 0 {
			if err := s.wards.AdjustCounters(ctx, b.WardID, 0, delta); err != nil {
				return err
			}
		}
		b.Status = newStatus
		out = b
		return nil
	})
	return out, err
}

// DeleteBed removes a bed and decrements the ward counters symmetrically.
// Beds backing an active admission cannot be removed.
func (s *Service) DeleteBed(ctx context.Context, bedID uuid.UUID) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.beds.GetByID(ctx, bedID)
		if err != nil {
			return err
		}
		if _, err := s.wards.LockByID(ctx, b.WardID); err != nil {
			return err
		}
		b, err = s.beds.GetByID(ctx, bedID)
		if err != nil {
			return err
		}
		occupied, err := s.beds.HasActiveAdmission(ctx, bedID)
		if err != nil {
			return err
		}
		if occupied || b.Status == BedOccupied {
			return apperror.ReferentialConflict("bed %s is occupied", b.BedNumber)
		}
		if err := s.beds.Delete(ctx, bedID); err != nil {
			return err
		}
		deltaAvail := 0
		if b.Status == BedAvailable {
			deltaAvail = -1
		}
		return s.wards.AdjustCounters(ctx, b.WardID, -1, deltaAvail)
	})
}

func (s *Service) GetAvailable(ctx context.Context, wardID *uuid.UUID) ([]*Bed, error) {
	return s.beds.ListAvailable(ctx, wardID)
}

func (s *Service) ListBeds(ctx context.Context, status string, limit, offset int) ([]*Bed, int, error) {
	if status != "" && !validBedStatuses[status] {
		return nil, 0, apperror.InvalidArgument("invalid bed status: %s", status)
	}
	return s.beds.List(ctx, status, limit, offset)
}

// RecountWard repairs the ward counters from the bed table, the operational
// escape hatch for counter drift caused by out-of-band bed mutations.
func (s *Service) RecountWard(ctx context.Context, wardID uuid.UUID) (*Ward, error) {
	var out *Ward
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		w, err := s.wards.LockByID(ctx, wardID)
		if err != nil {
			return err
		}
		total, err := s.beds.CountByWard(ctx, wardID)
		if err != nil {
			return err
		}
		available, err := s.beds.CountByWardAndStatus(ctx, wardID, BedAvailable)
		if err != nil {
			return err
		}
		if err := s.wards.SetCounters(ctx, wardID, total, available); err != nil {
			return err
		}
		w.TotalBeds = total
		w.AvailableBeds = available
		out = w
		return nil
	})
	return out, err
}

// Occupy and Release are the transitions the admission lifecycle delegates
// to, so bed state and ward counters have a single mutation point.

func (s *Service) Occupy(ctx context.Context, bedID uuid.UUID) (*Bed, error) {
	return s.UpdateBedStatus(ctx, bedID, BedOccupied)
}

// OccupyAvailable flips an Available bed to Occupied, rejecting the
// transition when the bed is anything else at the time the ward lock is
// held. Admission paths must use this rather than Occupy: a pre-lock
// availability read can be stale, and Occupy treats Occupied→Occupied as a
// no-op, which would let two concurrent admissions share one bed.
func (s *Service) OccupyAvailable(ctx context.Context, bedID uuid.UUID) (*Bed, error) {
	var out *Bed
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.beds.GetByID(ctx, bedID)
		if err != nil {
			return err
		}
		if _, err := s.wards.LockByID(ctx, b.WardID); err != nil {
			return err
		}
		b, err = s.beds.GetByID(ctx, bedID)
		if err != nil {
			return err
		}
		if b.Status != BedAvailable {
			return apperror.InvalidState("bed %s is %s", b.BedNumber, b.Status)
		}
		if err := s.beds.UpdateStatus(ctx, bedID, BedOccupied); err != nil {
			return err
		}
		if err := s.wards.AdjustCounters(ctx, b.WardID, 0, -1); err != nil {
			return err
		}
		b.Status = BedOccupied
		out = b
		return nil
	})
	return out, err
}

func (s *Service) Release(ctx context.Context, bedID uuid.UUID) (*Bed, error) {
	return s.UpdateBedStatus(ctx, bedID, BedAvailable)
}

func availableDelta(oldStatus, newStatus string) int {
	switch {
	case oldStatus != BedAvailable && newStatus == BedAvailable:
		return 1
	case oldStatus == BedAvailable && newStatus != BedAvailable:
		return -1
	default:
		return 0
	}
}
