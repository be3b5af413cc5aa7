// Package signature provides HMAC-SHA256 signing for generic webhook payloads.
//
// The signed content is "{timestamp}.{payload}", so the signature covers
// exactly the bytes sent on the wire plus the timestamp carried in the
// companion header. A fresh timestamp is generated for every delivery
// attempt, including resends, so a resend after a secret rotation carries a
// different signature than the original.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Header names carried on signed deliveries.
const (
	SignatureHeader = "X-Feedbacks-Signature"
	TimestampHeader = "X-Feedbacks-Timestamp"
)

// Sign generates the HMAC-SHA256 signature for the given payload.
// The content to sign is "{timestamp}.{payload}".
// Returns a versioned signature in the format "v1=<hex>".
func Sign(payload []byte, secret string, timestamp int64) string {
	content := fmt.Sprintf("%d.%s", timestamp, payload)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(content))
	return "v1=" + hex.EncodeToString(mac.Sum(nil))
}
