package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/store"
)

// Store is the read side of the record store used by dashboards.
type Store interface {
	FindVendor(ctx context.Context, id int64) (store.Vendor, error)
	ListVendors(ctx context.Context) ([]store.Vendor, error)
	AllShipments(ctx context.Context) ([]store.Shipment, error)
	ShipmentsForVendor(ctx context.Context, vendorID int64) ([]store.Shipment, error)
}

// ErrNotConfigured is returned by a Service without a store.
var ErrNotConfigured = errors.New("dashboard service not configured")

const generationKey = "dash:gen"

// Service computes dashboard views with an optional Redis read-through cache.
// Cache keys embed a generation number; Invalidate bumps it so a read that
// follows a recorded shipment never sees an older view.
type Service struct {
	Store  Store
	R      *redis.Client
	TTL    time.Duration
	Logger zerolog.Logger
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

func (s *Service) cacheEnabled() bool {
	return s.R != nil && s.TTL > 0
}

// GlobalSummary aggregates every recorded shipment.
func (s *Service) GlobalSummary(ctx context.Context) (Summary, error) {
	return cached(ctx, s, "summary", nil, func(ctx context.Context) (Summary, error) {
		records, err := s.Store.AllShipments(ctx)
		if err != nil {
			return Summary{}, err
		}
		return Summarize(records), nil
	})
}

// VendorSummary aggregates one vendor's shipments. An unknown vendor is a 404
// even when shipments reference its id.
func (s *Service) VendorSummary(ctx context.Context, vendorID int64) (VendorSummary, error) {
	return cached(ctx, s, "vendor", []any{vendorID}, func(ctx context.Context) (VendorSummary, error) {
		vendor, err := s.Store.FindVendor(ctx, vendorID)
		if err != nil {
			if errors.Is(err, store.ErrVendorNotFound) {
				return VendorSummary{}, common.NewAppError("VENDOR_NOT_FOUND", "vendor not found", http.StatusNotFound, err)
			}
			return VendorSummary{}, err
		}
		records, err := s.Store.ShipmentsForVendor(ctx, vendorID)
		if err != nil {
			return VendorSummary{}, err
		}
		return VendorSummary{Vendor: vendor, Summary: Summarize(records)}, nil
	})
}

// VendorRanking orders vendors with at least one shipment by revenue.
func (s *Service) VendorRanking(ctx context.Context) ([]RankEntry, error) {
	return cached(ctx, s, "ranking", nil, func(ctx context.Context) ([]RankEntry, error) {
		vendors, err := s.Store.ListVendors(ctx)
		if err != nil {
			return nil, err
		}
		records, err := s.Store.AllShipments(ctx)
		if err != nil {
			return nil, err
		}
		return Rank(vendors, records), nil
	})
}

// DailyTrend returns per day totals, oldest first.
func (s *Service) DailyTrend(ctx context.Context) ([]TrendPoint, error) {
	return cached(ctx, s, "trend", nil, func(ctx context.Context) ([]TrendPoint, error) {
		records, err := s.Store.AllShipments(ctx)
		if err != nil {
			return nil, err
		}
		return Trend(records), nil
	})
}

// ListVendors returns the vendor directory. It is not cached.
func (s *Service) ListVendors(ctx context.Context) ([]store.Vendor, error) {
	if s == nil || s.Store == nil {
		return nil, ErrNotConfigured
	}
	return s.Store.ListVendors(ctx)
}

// Invalidate retires every cached view.
func (s *Service) Invalidate(ctx context.Context) error {
	if s == nil || !s.cacheEnabled() {
		return nil
	}
	if err := s.R.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("dashboard: bump cache generation: %w", err)
	}
	return nil
}

// ShipmentRecorded invalidates the cache after a shipment is stored.
func (s *Service) ShipmentRecorded(ctx context.Context, _ store.Shipment) error {
	return s.Invalidate(ctx)
}

// Warm computes the global views so the next dashboard load is served from cache.
func (s *Service) Warm(ctx context.Context) error {
	if !s.cacheEnabled() {
		return nil
	}
	if _, err := s.GlobalSummary(ctx); err != nil {
		return fmt.Errorf("warm summary: %w", err)
	}
	if _, err := s.VendorRanking(ctx); err != nil {
		return fmt.Errorf("warm ranking: %w", err)
	}
	if _, err := s.DailyTrend(ctx); err != nil {
		return fmt.Errorf("warm trend: %w", err)
	}
	return nil
}

func (s *Service) generation(ctx context.Context) (int64, bool) {
	gen, err := s.R.Get(ctx, generationKey).Int64()
	switch {
	case err == nil:
		return gen, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		s.Logger.Warn().Err(err).Msg("dashboard cache generation unavailable")
		return 0, false
	}
}

// cached serves view from Redis when possible and otherwise loads it from the
// store. Cache failures degrade to a direct load; load errors are returned as is.
func cached[T any](ctx context.Context, s *Service, view string, args []any, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if s == nil || s.Store == nil {
		return zero, ErrNotConfigured
	}
	if !s.cacheEnabled() {
		return load(ctx)
	}
	gen, ok := s.generation(ctx)
	if !ok {
		return load(ctx)
	}
	key := cacheKey(append([]any{"dash", gen, view}, args...)...)

	if data, err := s.R.Get(ctx, key).Bytes(); err == nil {
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			obs.DashboardCacheTotal.WithLabelValues(view, "hit").Inc()
			return value, nil
		}
	}
	obs.DashboardCacheTotal.WithLabelValues(view, "miss").Inc()

	value, err := load(ctx)
	if err != nil {
		return zero, err
	}
	if data, err := json.Marshal(value); err == nil {
		if err := s.R.Set(ctx, key, data, s.TTL).Err(); err != nil {
			s.Logger.Warn().Err(err).Str("view", view).Msg("dashboard cache write failed")
		}
	}
	return value, nil
}
