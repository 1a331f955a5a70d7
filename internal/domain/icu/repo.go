package icu

import (
	"context"

	"github.com/google/uuid"
)

type BedRepository interface {
	Create(ctx context.Context, b *ICUBed) error
	GetByID(ctx context.Context, id uuid.UUID) (*ICUBed, error)
	// LockByID serializes occupancy flips on one ICU bed.
	LockByID(ctx context.Context, id uuid.UUID) (*ICUBed, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	List(ctx context.Context, status string) ([]*ICUBed, error)
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	LockByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	UpdateVitals(ctx context.Context, id uuid.UUID, v *Vitals) error
	Discharge(ctx context.Context, p *Patient) error
	List(ctx context.Context, status string, limit, offset int) ([]*Patient, int, error)
	NextCode(ctx context.Context) (string, error)

	AppendVitalsLog(ctx context.Context, e *VitalsLogEntry) error
	VitalsHistory(ctx context.Context, icuPatientID uuid.UUID, limit, offset int) ([]*VitalsLogEntry, int, error)
}
