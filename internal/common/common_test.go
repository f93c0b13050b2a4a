package common

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestParseID(t *testing.T) {
	if id, ok := ParseID(" 42 "); !ok || id != 42 {
		t.Fatalf("expected 42, got %d %v", id, ok)
	}
	for _, bad := range []string{"", "0", "-3", "abc", "1.5"} {
		if _, ok := ParseID(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestRemoteHost(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	if got := RemoteHost(req); got != "10.0.0.7" {
		t.Fatalf("unexpected host %q", got)
	}
	req.RemoteAddr = "10.0.0.8"
	if got := RemoteHost(req); got != "10.0.0.8" {
		t.Fatalf("unexpected host %q", got)
	}
}

func TestAdminContext(t *testing.T) {
	if _, ok := Admin(context.Background()); ok {
		t.Fatal("expected no admin")
	}
	ctx := WithAdmin(context.Background(), "admin")
	if name, ok := Admin(ctx); !ok || name != "admin" {
		t.Fatalf("unexpected admin %q", name)
	}
}
