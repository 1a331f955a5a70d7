package admission

import (
	"time"

	"github.com/google/uuid"
)

// Admission is an inpatient stay. Bound to zero-or-one bed while Active;
// terminal states are final.
type Admission struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	AdmissionCode         string     `db:"admission_code" json:"admission_code"`
	PatientID             uuid.UUID  `db:"patient_id" json:"patient_id"`
	BedID                 *uuid.UUID `db:"bed_id" json:"bed_id,omitempty"`
	AdmittingDoctorID     *uuid.UUID `db:"admitting_doctor_id" json:"admitting_doctor_id,omitempty"`
	AttendingDoctorID     *uuid.UUID `db:"attending_doctor_id" json:"attending_doctor_id,omitempty"`
	AdmissionDate         time.Time  `db:"admission_date" json:"admission_date"`
	AdmissionType         string     `db:"admission_type" json:"admission_type"`
	AdmittingDiagnosis    string     `db:"admitting_diagnosis" json:"admitting_diagnosis"`
	ChiefComplaints       *string    `db:"chief_complaints" json:"chief_complaints,omitempty"`
	TreatmentPlan         *string    `db:"treatment_plan" json:"treatment_plan,omitempty"`
	DietType              *string    `db:"diet_type" json:"diet_type,omitempty"`
	SpecialInstructions   *string    `db:"special_instructions" json:"special_instructions,omitempty"`
	ExpectedDischargeDate *time.Time `db:"expected_discharge_date" json:"expected_discharge_date,omitempty"`
	Status                string     `db:"status" json:"status"`
	DischargeType         *string    `db:"discharge_type" json:"discharge_type,omitempty"`
	DischargeSummary      *string    `db:"discharge_summary" json:"discharge_summary,omitempty"`
	ActualDischargeDate   *time.Time `db:"actual_discharge_date" json:"actual_discharge_date,omitempty"`
	CreatedBy             *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`

	// Display fields joined on reads.
	PatientName string `db:"-" json:"patient_name,omitempty"`
	PatientCode string `db:"-" json:"patient_code,omitempty"`
	BedNumber   string `db:"-" json:"bed_number,omitempty"`
	WardName    string `db:"-" json:"ward_name,omitempty"`
	DoctorName  string `db:"-" json:"doctor_name,omitempty"`
}

const (
	StatusActive     = "Active"
	StatusDischarged = "Discharged"
)

var validStatuses = map[string]bool{
	"Active": true, "Discharged": true, "Transferred": true, "Deceased": true,
}

// DischargeRequest carries the discharge operation's inputs.
type DischargeRequest struct {
	DischargeType    string  `json:"discharge_type"`
	DischargeSummary *string `json:"discharge_summary,omitempty"`
}

// TransferRequest rebinds an active admission to a new bed.
type TransferRequest struct {
	NewBedID uuid.UUID `json:"new_bed_id"`
}
