package utils

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP resolves the visitor's address behind the reverse proxy the
// widget is normally served through. X-Forwarded-For may carry a proxy
// chain; the left-most entry is the originating client.
func RealClientIP(r *http.Request) string {
	if chain := r.Header.Get("X-Forwarded-For"); chain != "" {
		first, _, _ := strings.Cut(chain, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
