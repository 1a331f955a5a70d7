package ward

import (
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/pkg/money"
)

// Ward is a physical hospital unit. total_beds and available_beds are
// maintained counters: every bed mutation in this package adjusts them inside
// the same transaction, and RecountWard repairs them from COUNT(*).
type Ward struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Type          string    `db:"type" json:"type"`
	Floor         *int      `db:"floor" json:"floor,omitempty"`
	TotalBeds     int       `db:"total_beds" json:"total_beds"`
	AvailableBeds int       `db:"available_beds" json:"available_beds"`
	NurseStation  *string   `db:"nurse_station" json:"nurse_station,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Bed belongs to exactly one Ward.
type Bed struct {
	ID        uuid.UUID    `db:"id" json:"id"`
	BedNumber string       `db:"bed_number" json:"bed_number"`
	WardID    uuid.UUID    `db:"ward_id" json:"ward_id"`
	BedType   string       `db:"bed_type" json:"bed_type"`
	DailyRate *money.Cents `db:"daily_rate" json:"daily_rate,omitempty"`
	Status    string       `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`

	// Display fields joined on reads, not stored on the bed row.
	WardName string `db:"-" json:"ward_name,omitempty"`
}

const (
	BedAvailable   = "Available"
	BedOccupied    = "Occupied"
	BedMaintenance = "Maintenance"
	BedReserved    = "Reserved"
)

var validBedStatuses = map[string]bool{
	BedAvailable: true, BedOccupied: true, BedMaintenance: true, BedReserved: true,
}

var validWardTypes = map[string]bool{
	"General": true, "ICU": true, "Pediatric": true, "Maternity": true,
	"Surgical": true, "Emergency": true, "Psychiatric": true,
}
