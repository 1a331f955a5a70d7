package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient is the FK target of admissions, bills, and claims. PatientCode is
// the human-readable identifier (PAT-001) generated at create time.
type Patient struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientCode string     `db:"patient_code" json:"patient_code"`
	Name        string     `db:"name" json:"name"`
	Gender      *string    `db:"gender" json:"gender,omitempty"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	BloodGroup  *string    `db:"blood_group" json:"blood_group,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty"`
	Address     *string    `db:"address" json:"address,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
