package shipment_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-dairy/internal/common"
	"github.com/noah-isme/backend-dairy/internal/obs"
	"github.com/noah-isme/backend-dairy/internal/pricing"
	"github.com/noah-isme/backend-dairy/internal/shipment"
	"github.com/noah-isme/backend-dairy/internal/store"
	"github.com/noah-isme/backend-dairy/internal/store/storetest"
)

var (
	vendorA = store.Vendor{ID: 1, Name: "Vendor A", Location: "Chennai", Phone: "9876543210"}
	fixedAt = time.Date(2024, 3, 1, 6, 30, 0, 0, time.FixedZone("IST", 19800))
)

type recordingNotifier struct {
	seen []store.Shipment
	err  error
}

func (n *recordingNotifier) ShipmentRecorded(_ context.Context, sh store.Shipment) error {
	n.seen = append(n.seen, sh)
	return n.err
}

type fixedEvaluator int

func (f fixedEvaluator) Score(float64, float64) int { return int(f) }

func newService(mem *storetest.Memory, notifiers ...shipment.Notifier) *shipment.Service {
	return &shipment.Service{
		Store:     mem,
		Notifiers: notifiers,
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return fixedAt },
	}
}

func TestSubmitPersistsDecision(t *testing.T) {
	mem := storetest.NewMemory(vendorA)
	notifier := &recordingNotifier{}
	svc := newService(mem, notifier)

	before := testutil.ToFloat64(obs.ShipmentsEvaluatedTotal.WithLabelValues("Warning"))
	saved, err := svc.Submit(context.Background(), shipment.Reading{VendorID: 1, PH: 7.0, Temperature: 5, Weight: 12.5})
	require.NoError(t, err)

	require.NotZero(t, saved.ID)
	require.Equal(t, 70, saved.QualityScore)
	require.Equal(t, pricing.StatusWarning, saved.Status)
	require.Equal(t, 0.7, saved.Probability)
	require.Equal(t, 3, saved.SpoilageHours)
	require.Equal(t, 35.0, saved.PricePerLiter)
	require.Equal(t, saved.PricePerLiter*saved.Weight, saved.TotalAmount)
	require.Equal(t, fixedAt.UTC(), saved.CreatedAt)
	require.Equal(t, 1, mem.Count())
	require.Equal(t, []store.Shipment{saved}, notifier.seen)
	require.Equal(t, before+1, testutil.ToFloat64(obs.ShipmentsEvaluatedTotal.WithLabelValues("Warning")))
}

func TestSubmitLogsDecision(t *testing.T) {
	var buf bytes.Buffer
	svc := newService(storetest.NewMemory(vendorA))
	svc.Logger = zerolog.New(&buf)

	saved, err := svc.Submit(context.Background(), shipment.Reading{VendorID: 1, PH: 7.0, Temperature: 5, Weight: 12.5})
	require.NoError(t, err)

	var entry map[string]any
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		if line["message"] == "shipment evaluated" {
			entry = line
		}
	}
	require.NotNil(t, entry, "decision line missing from %q", buf.String())
	require.Equal(t, "info", entry["level"])
	require.EqualValues(t, saved.ID, entry["shipment_id"])
	require.EqualValues(t, 1, entry["vendor_id"])
	require.Equal(t, "Warning", entry["status"])
	require.EqualValues(t, 70, entry["score"])
	require.Equal(t, saved.TotalAmount, entry["total_amount"])
}

func TestSubmitSpoilageTiers(t *testing.T) {
	cases := []struct {
		ph, temp float64
		status   pricing.Status
		hours    int
	}{
		{6.6, 5, pricing.StatusAccept, 6},
		{7.0, 15, pricing.StatusWarning, 3},
	}
	for _, tc := range cases {
		svc := newService(storetest.NewMemory(vendorA))
		saved, err := svc.Submit(context.Background(), shipment.Reading{VendorID: 1, PH: tc.ph, Temperature: tc.temp, Weight: 1})
		require.NoError(t, err)
		require.Equal(t, tc.status, saved.Status)
		require.Equal(t, tc.hours, saved.SpoilageHours)
	}

	svc := newService(storetest.NewMemory(vendorA))
	svc.Evaluator = fixedEvaluator(30)
	saved, err := svc.Submit(context.Background(), shipment.Reading{VendorID: 1, PH: 6.6, Temperature: 5, Weight: 10})
	require.NoError(t, err)
	require.Equal(t, pricing.StatusReject, saved.Status)
	require.Equal(t, 1, saved.SpoilageHours)
	require.Equal(t, 0.0, saved.TotalAmount)
	require.Equal(t, 0.3, saved.Probability)
}

func TestSubmitUnknownVendorWritesNothing(t *testing.T) {
	mem := storetest.NewMemory(vendorA)
	notifier := &recordingNotifier{}
	svc := newService(mem, notifier)

	_, err := svc.Submit(context.Background(), shipment.Reading{VendorID: 99, PH: 6.6, Temperature: 5, Weight: 10})
	require.ErrorIs(t, err, store.ErrVendorNotFound)
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
	require.Zero(t, mem.Count())
	require.Empty(t, notifier.seen)
}

func TestSubmitStoreUnavailable(t *testing.T) {
	mem := storetest.NewMemory(vendorA)
	mem.Err = fmt.Errorf("store: find vendor: %w", store.ErrUnavailable)
	svc := newService(mem)

	_, err := svc.Submit(context.Background(), shipment.Reading{VendorID: 1, PH: 6.6, Temperature: 5, Weight: 10})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "STORE_UNAVAILABLE", appErr.Code)
	require.Equal(t, http.StatusServiceUnavailable, appErr.HTTPStatus)
}

func TestSubmitNotifierFailureKeepsShipment(t *testing.T) {
	mem := storetest.NewMemory(vendorA)
	failing := &recordingNotifier{err: errors.New("redis down")}
	after := &recordingNotifier{}
	svc := newService(mem, failing, nil, after)

	saved, err := svc.Submit(context.Background(), shipment.Reading{VendorID: 1, PH: 6.6, Temperature: 5, Weight: 10})
	require.NoError(t, err)
	require.Equal(t, 500.0, saved.TotalAmount)
	require.Equal(t, 1, mem.Count())
	require.Len(t, after.seen, 1, "later notifiers still run")
}

func TestAnalyzeDoesNotTouchStore(t *testing.T) {
	svc := &shipment.Service{}
	d := svc.Analyze(shipment.Reading{PH: 4.0, Temperature: 20, Weight: 10})
	require.Equal(t, 50, d.QualityScore)
	require.Equal(t, pricing.StatusWarning, d.Status)
	require.Equal(t, 350.0, d.TotalAmount)
	require.Equal(t, 0.5, d.Probability)
}
