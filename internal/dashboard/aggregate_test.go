package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dairy/internal/pricing"
	"github.com/noah-isme/backend-dairy/internal/store"
)

var day1 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func shipment(vendorID int64, status pricing.Status, probability, weight, total float64, at time.Time) store.Shipment {
	return store.Shipment{
		VendorID:    vendorID,
		Status:      status,
		Probability: probability,
		Weight:      weight,
		TotalAmount: total,
		CreatedAt:   at,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	require.Equal(t, Summary{}, Summarize(nil))
}

func TestSummarize(t *testing.T) {
	records := []store.Shipment{
		shipment(1, pricing.StatusAccept, 1.0, 10, 500, day1),
		shipment(1, pricing.StatusWarning, 0.7, 10, 350, day1),
		shipment(2, pricing.StatusReject, 0.5, 4, 0, day1),
	}
	got := Summarize(records)
	require.Equal(t, 3, got.Count)
	require.InDelta(t, 24, got.TotalWeight, 1e-9)
	require.InDelta(t, 850, got.TotalRevenue, 1e-9)
	require.Equal(t, 73.33, got.AvgQualityPct)
	require.Equal(t, 33.33, got.SpoilagePct)
}

func TestRankOmitsIdleVendorsAndOrdersByRevenue(t *testing.T) {
	vendors := []store.Vendor{
		{ID: 1, Name: "Vendor A"},
		{ID: 2, Name: "Vendor B"},
		{ID: 3, Name: "Vendor C"},
		{ID: 4, Name: "Vendor D"},
	}
	records := []store.Shipment{
		shipment(1, pricing.StatusWarning, 0.7, 10, 350, day1),
		shipment(2, pricing.StatusAccept, 1.0, 20, 1000, day1),
		shipment(4, pricing.StatusWarning, 0.7, 10, 350, day1),
		shipment(99, pricing.StatusAccept, 1.0, 50, 2500, day1),
	}
	got := Rank(vendors, records)
	require.Equal(t, []RankEntry{
		{VendorID: 2, VendorName: "Vendor B", TotalWeight: 20, TotalRevenue: 1000},
		{VendorID: 1, VendorName: "Vendor A", TotalWeight: 10, TotalRevenue: 350},
		{VendorID: 4, VendorName: "Vendor D", TotalWeight: 10, TotalRevenue: 350},
	}, got)
}

func TestRankEmpty(t *testing.T) {
	got := Rank([]store.Vendor{{ID: 1, Name: "Vendor A"}}, nil)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestTrendBucketsByUTCDate(t *testing.T) {
	records := []store.Shipment{
		shipment(1, pricing.StatusAccept, 1.0, 10, 500, day1.Add(26*time.Hour)),
		shipment(1, pricing.StatusAccept, 1.0, 5, 250, day1.Add(8*time.Hour)),
		shipment(2, pricing.StatusWarning, 0.7, 10, 350, day1.Add(20*time.Hour)),
		// 23:30 in UTC-05:00 is already the next UTC day
		shipment(2, pricing.StatusReject, 0.5, 2, 0, time.Date(2024, 3, 1, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))),
	}
	got := Trend(records)
	require.Equal(t, []TrendPoint{
		{Date: "2024-03-01", TotalWeight: 15, TotalRevenue: 600},
		{Date: "2024-03-02", TotalWeight: 12, TotalRevenue: 500},
	}, got)
}

func TestTrendEmpty(t *testing.T) {
	require.Empty(t, Trend(nil))
}
