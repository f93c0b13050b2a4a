package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/noah-isme/backend-dairy/internal/pricing"
	"github.com/noah-isme/backend-dairy/internal/store"
)

// TrendDateLayout is the bucket label used by Trend.
const TrendDateLayout = "2006-01-02"

// Summary aggregates a set of shipments. Every field is zero for an empty set.
type Summary struct {
	Count         int     `json:"count"`
	TotalWeight   float64 `json:"total_weight"`
	TotalRevenue  float64 `json:"total_revenue"`
	AvgQualityPct float64 `json:"avg_quality_pct"`
	SpoilagePct   float64 `json:"spoilage_pct"`
}

// VendorSummary is a Summary scoped to one vendor.
type VendorSummary struct {
	store.Vendor
	Summary
}

// RankEntry is one vendor's totals in the revenue ranking.
type RankEntry struct {
	VendorID     int64   `json:"vendor_id"`
	VendorName   string  `json:"vendor_name"`
	TotalWeight  float64 `json:"total_weight"`
	TotalRevenue float64 `json:"total_revenue"`
}

// TrendPoint is the totals for one UTC calendar day.
type TrendPoint struct {
	Date         string  `json:"date"`
	TotalWeight  float64 `json:"total_weight"`
	TotalRevenue float64 `json:"total_revenue"`
}

// Summarize sums weight and revenue, averages probability as a percentage and
// reports the share of rejected shipments. Percentages are rounded to 2 decimals.
func Summarize(records []store.Shipment) Summary {
	if len(records) == 0 {
		return Summary{}
	}
	var (
		sum          Summary
		probability  float64
		rejectedRows int
	)
	for _, rec := range records {
		sum.TotalWeight += rec.Weight
		sum.TotalRevenue += rec.TotalAmount
		probability += rec.Probability
		if rec.Status == pricing.StatusReject {
			rejectedRows++
		}
	}
	n := float64(len(records))
	sum.Count = len(records)
	sum.AvgQualityPct = round2(probability / n * 100)
	sum.SpoilagePct = round2(float64(rejectedRows) / n * 100)
	return sum
}

// Rank totals records per vendor and orders vendors by revenue, highest first.
// Vendors without records are omitted; records whose vendor is not in vendors
// are ignored. Equal revenue is ordered by vendor id ascending.
func Rank(vendors []store.Vendor, records []store.Shipment) []RankEntry {
	byID := make(map[int64]*RankEntry, len(vendors))
	for _, v := range vendors {
		byID[v.ID] = &RankEntry{VendorID: v.ID, VendorName: v.Name}
	}
	seen := make(map[int64]bool, len(vendors))
	for _, rec := range records {
		entry, ok := byID[rec.VendorID]
		if !ok {
			continue
		}
		entry.TotalWeight += rec.Weight
		entry.TotalRevenue += rec.TotalAmount
		seen[rec.VendorID] = true
	}

	out := make([]RankEntry, 0, len(seen))
	for id := range seen {
		out = append(out, *byID[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalRevenue != out[j].TotalRevenue {
			return out[i].TotalRevenue > out[j].TotalRevenue
		}
		return out[i].VendorID < out[j].VendorID
	})
	return out
}

// Trend buckets records by the UTC date of CreatedAt, oldest day first.
func Trend(records []store.Shipment) []TrendPoint {
	buckets := map[string]*TrendPoint{}
	for _, rec := range records {
		day := dayOf(rec.CreatedAt)
		point, ok := buckets[day]
		if !ok {
			point = &TrendPoint{Date: day}
			buckets[day] = point
		}
		point.TotalWeight += rec.Weight
		point.TotalRevenue += rec.TotalAmount
	}
	out := make([]TrendPoint, 0, len(buckets))
	for _, p := range buckets {
		out = append(out, *p)
	}
	// the layout sorts lexically in date order
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func dayOf(t time.Time) string { return t.UTC().Format(TrendDateLayout) }
