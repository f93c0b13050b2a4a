package store

import (
	"errors"
	"time"

	"github.com/noah-isme/backend-dairy/internal/pricing"
)

var (
	// ErrVendorNotFound is returned when a vendor id does not exist.
	ErrVendorNotFound = errors.New("store: vendor not found")
	// ErrAdminNotFound is returned when no admin matches the username.
	ErrAdminNotFound = errors.New("store: admin not found")
	// ErrUnavailable marks failures at the storage boundary.
	ErrUnavailable = errors.New("store: unavailable")
)

// Vendor is a milk supplier. Rows are seeded and never changed by the service.
type Vendor struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Phone    string `json:"phone"`
}

// Shipment is an evaluated, priced and persisted milk delivery.
type Shipment struct {
	ID            int64          `json:"id"`
	VendorID      int64          `json:"vendor_id"`
	PH            float64        `json:"ph"`
	Temperature   float64        `json:"temperature"`
	Weight        float64        `json:"weight"`
	Status        pricing.Status `json:"status"`
	QualityScore  int            `json:"quality_score"`
	Probability   float64        `json:"probability"`
	SpoilageHours int            `json:"spoilage_hours"`
	PricePerLiter float64        `json:"price_per_liter"`
	TotalAmount   float64        `json:"total_amount"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Admin is an operator allowed to read dashboards and submit shipments.
type Admin struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
