// Package storetest provides an in-memory record store for handler and
// service tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/backend-dairy/internal/store"
)

// Memory mirrors the Postgres store contract in memory. Setting Err makes every
// call fail with it.
type Memory struct {
	mu        sync.Mutex
	vendors   map[int64]store.Vendor
	shipments []store.Shipment
	admins    map[string]store.Admin
	nextID    int64
	reads     int

	Err error
}

// NewMemory returns a store holding vendors.
func NewMemory(vendors ...store.Vendor) *Memory {
	m := &Memory{vendors: map[int64]store.Vendor{}, admins: map[string]store.Admin{}}
	for _, v := range vendors {
		m.vendors[v.ID] = v
	}
	return m
}

// AddAdmin registers an admin account.
func (m *Memory) AddAdmin(a store.Admin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[a.Username] = a
}

// Seed appends shipments as-is, assigning ids.
func (m *Memory) Seed(shipments ...store.Shipment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sh := range shipments {
		m.nextID++
		sh.ID = m.nextID
		m.shipments = append(m.shipments, sh)
	}
}

// Count returns the number of stored shipments.
func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shipments)
}

// Reads returns how many shipment reads were served.
func (m *Memory) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *Memory) FindVendor(_ context.Context, id int64) (store.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return store.Vendor{}, m.Err
	}
	v, ok := m.vendors[id]
	if !ok {
		return store.Vendor{}, store.ErrVendorNotFound
	}
	return v, nil
}

func (m *Memory) ListVendors(context.Context) ([]store.Vendor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]store.Vendor, 0, len(m.vendors))
	for _, v := range m.vendors {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) AppendShipment(_ context.Context, sh store.Shipment) (store.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return store.Shipment{}, m.Err
	}
	if _, ok := m.vendors[sh.VendorID]; !ok {
		return store.Shipment{}, store.ErrVendorNotFound
	}
	if sh.CreatedAt.IsZero() {
		sh.CreatedAt = time.Now().UTC()
	}
	m.nextID++
	sh.ID = m.nextID
	m.shipments = append(m.shipments, sh)
	return sh, nil
}

func (m *Memory) AllShipments(context.Context) ([]store.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.reads++
	return append([]store.Shipment(nil), m.shipments...), nil
}

func (m *Memory) ShipmentsForVendor(_ context.Context, vendorID int64) ([]store.Shipment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.reads++
	var out []store.Shipment
	for _, sh := range m.shipments {
		if sh.VendorID == vendorID {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (m *Memory) FindAdmin(_ context.Context, username string) (store.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return store.Admin{}, m.Err
	}
	a, ok := m.admins[username]
	if !ok {
		return store.Admin{}, store.ErrAdminNotFound
	}
	return a, nil
}
