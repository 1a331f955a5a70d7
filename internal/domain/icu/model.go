package icu

import (
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/pkg/money"
)

// ICUBed is its own roster, separate from ward beds and without ward
// counters. Occupancy is a per-bed status flip.
type ICUBed struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	BedNumber string       `db:"bed_number" json:"bed_number"`
	BedType   string       `db:"bed_type" json:"bed_type"`
	DailyRate *money.Cents `db:"daily_rate" json:"daily_rate,omitempty"`
	Status    string       `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

const (
	BedAvailable = "Available"
	BedOccupied  = "Occupied"
)

// Patient is an ICU stay. CurrentVitals is the denormalized latest reading;
// the full history lives in the vitals log.
type Patient struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	AdmissionCode        string     `db:"admission_code" json:"admission_code"`
	PatientID            uuid.UUID  `db:"patient_id" json:"patient_id"`
	BedID                *uuid.UUID `db:"bed_id" json:"bed_id,omitempty"`
	AttendingDoctorID    *uuid.UUID `db:"attending_doctor_id" json:"attending_doctor_id,omitempty"`
	AdmissionDate        time.Time  `db:"admission_date" json:"admission_date"`
	AdmittingDiagnosis   string     `db:"admitting_diagnosis" json:"admitting_diagnosis"`
	ConditionStatus      string     `db:"condition_status" json:"condition_status"`
	VentilatorSupport    bool       `db:"ventilator_support" json:"ventilator_support"`
	CurrentVitals        *Vitals    `db:"current_vitals" json:"current_vitals,omitempty"`
	Status               string     `db:"status" json:"status"`
	DischargeDate        *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	DischargeDisposition *string    `db:"discharge_disposition" json:"discharge_disposition,omitempty"`
	Notes                *string    `db:"notes" json:"notes,omitempty"`
	CreatedBy            *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`

	PatientName string `db:"-" json:"patient_name,omitempty"`
	PatientCode string `db:"-" json:"patient_code,omitempty"`
	BedNumber   string `db:"-" json:"bed_number,omitempty"`
}

const (
	StatusActive     = "Active"
	StatusDischarged = "Discharged"
)

// Vitals is one reading. Serialized to JSONB for the snapshot column and
// flattened into the log table.
type Vitals struct {
	BPSystolic      *int     `json:"bp_systolic,omitempty"`
	BPDiastolic     *int     `json:"bp_diastolic,omitempty"`
	HeartRate       *int     `json:"heart_rate,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
	RespiratoryRate *int     `json:"respiratory_rate,omitempty"`
	SpO2            *int     `json:"spo2,omitempty"`
	CVP             *int     `json:"cvp,omitempty"`
	UrineOutput     *int     `json:"urine_output,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

// Empty reports whether the reading carries no measurements.
func (v Vitals) Empty() bool {
	return v.BPSystolic == nil && v.BPDiastolic == nil && v.HeartRate == nil &&
		v.Temperature == nil && v.RespiratoryRate == nil && v.SpO2 == nil &&
		v.CVP == nil && v.UrineOutput == nil
}

// VitalsLogEntry is one append-only history row.
type VitalsLogEntry struct {
	ID           uuid.UUID `db:"id" json:"id"`
	ICUPatientID uuid.UUID `db:"icu_patient_id" json:"icu_patient_id"`
	RecordedAt   time.Time `db:"recorded_at" json:"recorded_at"`
	RecordedBy   *string   `db:"recorded_by" json:"recorded_by,omitempty"`
	Vitals
}

type DischargeRequest struct {
	Disposition string `json:"disposition"`
}
