package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/casegate/casegate-backend/pkg/ctxutil"
)

func TestOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		trustProxy bool
		remote     string
		forwarded  string
		want       string
	}{
		{"remote host", false, "192.0.2.10:5555", "", "192.0.2.10"},
		{"forwarded ignored without trust", false, "192.0.2.10:5555", "198.51.100.7", "192.0.2.10"},
		{"first forwarded hop", true, "10.0.0.1:80", "198.51.100.7, 10.0.0.1", "198.51.100.7"},
		{"garbage forwarded falls back", true, "10.0.0.1:80", "not-an-ip", "10.0.0.1"},
		{"ipv6 remote", false, "[2001:db8::1]:443", "", "2001:db8::1"},
		{"remote without port", false, "pipe", "", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got string
			handler := Origin(tt.trustProxy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ctxutil.OriginFromCtx(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("origin = %q, want %q", got, tt.want)
			}
		})
	}
}
