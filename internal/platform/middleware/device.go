package middleware

import (
	"net/http"

	"custodia/pkg/requestcontext"
)

const deviceIDHeader = "X-Device-ID"

// Fingerprinter turns the raw device identifier and User-Agent into a stable
// fingerprint. Implemented by the device package; injected here so the
// middleware layer stays free of hashing details.
type Fingerprinter interface {
	ComputeFingerprint(deviceID, userAgent string) string
}

// Device extracts the client device identity and stores both the raw device
// ID and the computed fingerprint in context. The binding guard downstream
// decides whether the fingerprint is acceptable.
func Device(fp Fingerprinter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID := r.Header.Get(deviceIDHeader)
			ctx := requestcontext.WithDeviceID(r.Context(), deviceID)
			ctx = requestcontext.WithDeviceFingerprint(ctx, fp.ComputeFingerprint(deviceID, r.UserAgent()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
