package pricing

// Status is the accept/warn/reject decision attached to a shipment.
type Status string

const (
	StatusAccept  Status = "Accept"
	StatusWarning Status = "Warning"
	StatusReject  Status = "Reject"
)

// Valid reports whether s is one of the known decisions.
func (s Status) Valid() bool {
	switch s {
	case StatusAccept, StatusWarning, StatusReject:
		return true
	default:
		return false
	}
}

// Tier describes the lower score bound, decision and unit price of one pricing band.
type Tier struct {
	MinScore  float64
	Status    Status
	UnitPrice float64
}

// Tiers are ordered high to low; the first tier whose MinScore is <= score wins.
var Tiers = []Tier{
	{MinScore: 80, Status: StatusAccept, UnitPrice: 50},
	{MinScore: 50, Status: StatusWarning, UnitPrice: 35},
}

var rejectTier = Tier{Status: StatusReject, UnitPrice: 0}

// Quote is the priced outcome for a shipment.
type Quote struct {
	Status    Status  `json:"status"`
	UnitPrice float64 `json:"price_per_liter"`
	Total     float64 `json:"total_amount"`
}

// Resolve prices weight units of milk with the given quality score.
// Weight is not validated here; callers reject non-positive quantities.
func Resolve(score, weight float64) Quote {
	tier := tierFor(score)
	return Quote{
		Status:    tier.Status,
		UnitPrice: tier.UnitPrice,
		Total:     tier.UnitPrice * weight,
	}
}

func tierFor(score float64) Tier {
	for _, t := range Tiers {
		if score >= t.MinScore {
			return t
		}
	}
	return rejectTier
}

// SpoilageHours estimates how long a shipment stays sellable for each decision.
func SpoilageHours(status Status) int {
	switch status {
	case StatusAccept:
		return 6
	case StatusWarning:
		return 3
	default:
		return 1
	}
}
