package common

import (
	"net"
	"net/http"
	"strings"
)

// RemoteHost returns the client host of the request. It expects chi's RealIP
// middleware to have already folded X-Forwarded-For into RemoteAddr.
func RemoteHost(r *http.Request) string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
