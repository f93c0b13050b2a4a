package shipment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/pricing"
	"github.com/noah-isme/backend-dairy/internal/quality"
	"github.com/noah-isme/backend-dairy/internal/store"
)

// Store is the part of the record store the pipeline writes through.
type Store interface {
	FindVendor(ctx context.Context, id int64) (store.Vendor, error)
	AppendShipment(ctx context.Context, sh store.Shipment) (store.Shipment, error)
}

// Notifier is told about every shipment after it has been stored.
type Notifier interface {
	ShipmentRecorded(ctx context.Context, sh store.Shipment) error
}

// Reading is one delivery's sensor values.
type Reading struct {
	VendorID    int64
	PH          float64
	Temperature float64
	Weight      float64
}

// Decision is the scoring and pricing outcome for a reading.
type Decision struct {
	QualityScore  int            `json:"quality_score"`
	Status        pricing.Status `json:"status"`
	Probability   float64        `json:"probability"`
	SpoilageHours int            `json:"spoilage_hours"`
	PricePerLiter float64        `json:"price_per_liter"`
	TotalAmount   float64        `json:"total_amount"`
}

// Service runs the decision pipeline: score, price, persist, notify.
type Service struct {
	Store     Store
	Evaluator quality.Evaluator
	Notifiers []Notifier
	Logger    zerolog.Logger
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) evaluator() quality.Evaluator {
	if s.Evaluator != nil {
		return s.Evaluator
	}
	return quality.ThresholdEvaluator{}
}

// Analyze scores and prices a reading without touching the store.
func (s *Service) Analyze(in Reading) Decision {
	score := s.evaluator().Score(in.PH, in.Temperature)
	quote := pricing.Resolve(float64(score), in.Weight)
	return Decision{
		QualityScore:  score,
		Status:        quote.Status,
		Probability:   float64(score) / quality.MaxScore,
		SpoilageHours: pricing.SpoilageHours(quote.Status),
		PricePerLiter: quote.UnitPrice,
		TotalAmount:   quote.Total,
	}
}

// Submit evaluates a reading for a known vendor and appends the result. An
// unknown vendor fails before anything is written. Notifier failures are
// logged and never undo the stored shipment.
func (s *Service) Submit(ctx context.Context, in Reading) (store.Shipment, error) {
	if s == nil || s.Store == nil {
		return store.Shipment{}, errors.New("shipment service not configured")
	}
	if _, err := s.Store.FindVendor(ctx, in.VendorID); err != nil {
		return store.Shipment{}, mapStoreError(err)
	}

	d := s.Analyze(in)
	saved, err := s.Store.AppendShipment(ctx, store.Shipment{
		VendorID:      in.VendorID,
		PH:            in.PH,
		Temperature:   in.Temperature,
		Weight:        in.Weight,
		Status:        d.Status,
		QualityScore:  d.QualityScore,
		Probability:   d.Probability,
		SpoilageHours: d.SpoilageHours,
		PricePerLiter: d.PricePerLiter,
		TotalAmount:   d.TotalAmount,
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		return store.Shipment{}, mapStoreError(err)
	}

	obs.ShipmentsEvaluatedTotal.WithLabelValues(string(saved.Status)).Inc()
	obs.ShipmentLitresTotal.WithLabelValues(string(saved.Status)).Add(max(saved.Weight, 0))
	s.logger(ctx).Info().
		Int64("shipment_id", saved.ID).
		Int64("vendor_id", saved.VendorID).
		Str("status", string(saved.Status)).
		Int("score", saved.QualityScore).
		Float64("total_amount", saved.TotalAmount).
		Msg("shipment evaluated")

	if err := s.notify(ctx, saved); err != nil {
		s.logger(ctx).Warn().Err(err).Int64("shipment_id", saved.ID).Msg("shipment notifiers failed")
	}
	return saved, nil
}

func (s *Service) notify(ctx context.Context, sh store.Shipment) error {
	var joined error
	for _, n := range s.Notifiers {
		if n == nil {
			continue
		}
		if err := n.ShipmentRecorded(ctx, sh); err != nil {
			joined = errors.Join(joined, fmt.Errorf("shipment notifier: %w", err))
		}
	}
	return joined
}

func (s *Service) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.Logger
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrVendorNotFound):
		return common.NewAppError("VENDOR_NOT_FOUND", "vendor not found", http.StatusNotFound, err)
	case errors.Is(err, store.ErrUnavailable):
		return common.NewAppError("STORE_UNAVAILABLE", "record store unavailable", http.StatusServiceUnavailable, err)
	default:
		return err
	}
}
