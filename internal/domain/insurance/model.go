package insurance

import (
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/pkg/money"
)

// Provider is an insurance company claims are filed against.
type Provider struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	ContactPerson *string   `db:"contact_person" json:"contact_person,omitempty"`
	Phone         *string   `db:"phone" json:"phone,omitempty"`
	Email         *string   `db:"email" json:"email,omitempty"`
	Address       *string   `db:"address" json:"address,omitempty"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Claim statuses. A claim resolves exactly once: Pending is the only state
// that accepts a transition.
const (
	ClaimPending  = "Pending"
	ClaimApproved = "Approved"
	ClaimRejected = "Rejected"
)

var validClaimStatuses = map[string]bool{
	ClaimPending: true, ClaimApproved: true, ClaimRejected: true,
}

// Claim is a reimbursement request against a bill. Approval is a ledger
// event, not just a status flip: it posts an Insurance payment on the bill.
type Claim struct {
	ID                  uuid.UUID   `db:"id" json:"id"`
	ClaimNumber         string      `db:"claim_number" json:"claim_number"`
	BillID              uuid.UUID   `db:"bill_id" json:"bill_id"`
	PatientID           uuid.UUID   `db:"patient_id" json:"patient_id"`
	InsuranceProviderID uuid.UUID   `db:"insurance_provider_id" json:"insurance_provider_id"`
	Amount              money.Cents `db:"amount" json:"amount"`
	Status              string      `db:"status" json:"status"`
	Documents           []string    `db:"documents" json:"documents,omitempty"`
	Notes               *string     `db:"notes" json:"notes,omitempty"`
	AdminNotes          *string     `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedBy           *string     `db:"created_by" json:"created_by,omitempty"`
	CreatedAt           time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at" json:"updated_at"`

	PatientName  string `db:"-" json:"patient_name,omitempty"`
	PatientCode  string `db:"-" json:"patient_code,omitempty"`
	ProviderName string `db:"-" json:"provider_name,omitempty"`
	BillNumber   string `db:"-" json:"bill_number,omitempty"`
}

// StatusUpdateRequest resolves a Pending claim.
type StatusUpdateRequest struct {
	Status     string  `json:"status"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}
