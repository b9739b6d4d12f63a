// Package device enforces the one-identity-one-device rule for couriers.
// An identity binds to the first fingerprint it presents; any later mismatch
// is rejected and audited.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

// Fingerprinter derives stable device fingerprints from what the client
// presents. Browser minor versions churn constantly, so only the major
// version participates; otherwise every auto-update would look like a new
// device.
type Fingerprinter struct{}

func NewFingerprinter() *Fingerprinter {
	return &Fingerprinter{}
}

// ComputeFingerprint hashes the device identifier together with normalized
// user-agent attributes. Returns a 64-char hex SHA-256 digest, or "" when
// the client presented nothing to fingerprint.
func (f *Fingerprinter) ComputeFingerprint(deviceID, userAgent string) string {
	if deviceID == "" && userAgent == "" {
		return ""
	}

	ua := useragent.New(userAgent)
	browser, version := ua.Browser()
	major := version
	if idx := strings.IndexByte(version, '.'); idx > 0 {
		major = version[:idx]
	}

	material := strings.Join([]string{deviceID, browser, major, ua.OS(), ua.Platform()}, "|")
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}
