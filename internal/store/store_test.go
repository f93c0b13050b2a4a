package store

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"
)

func TestMigrationURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/dairy?sslmode=disable": "pgx5://u:p@localhost:5432/dairy?sslmode=disable",
		"postgresql://u:p@localhost:5432/dairy":               "pgx5://u:p@localhost:5432/dairy",
		" postgres://db/dairy ":                               "pgx5://db/dairy",
		"pgx5://already/converted":                            "pgx5://already/converted",
	}
	for in, want := range cases {
		if got := MigrationURL(in); got != want {
			t.Fatalf("MigrationURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	var up, down int
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			up++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			down++
		}
	}
	if up == 0 || up != down {
		t.Fatalf("expected paired migrations, got %d up / %d down", up, down)
	}
}

func TestNilStoreIsUnavailable(t *testing.T) {
	var s *Store
	ctx := context.Background()
	if _, err := s.FindVendor(ctx, 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := s.AllShipments(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := s.AppendShipment(ctx, Shipment{VendorID: 1}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := s.Ping(ctx, time.Millisecond); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestUnavailableWrapsBoth(t *testing.T) {
	cause := errors.New("conn reset")
	err := unavailable("insert shipment", cause)
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("expected both sentinels in %v", err)
	}
}
