package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// signatureTolerance bounds how stale a webhook timestamp may be.
const signatureTolerance = 5 * time.Minute

// verifySignature checks a "t=<unix>,v1=<hex>" signature header: the
// HMAC-SHA256 of "<timestamp>.<body>" under the shared secret. The
// whole header is rejected before any payload parsing happens.
func verifySignature(secret, header string, body []byte, now time.Time) error {
	var tsPart, sigPart string
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "t="):
			tsPart = strings.TrimPrefix(part, "t=")
		case strings.HasPrefix(part, "v1="):
			sigPart = strings.TrimPrefix(part, "v1=")
		}
	}
	if tsPart == "" || sigPart == "" {
		return fmt.Errorf("malformed signature header")
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed signature timestamp")
	}
	issued := time.Unix(ts, 0)
	if now.Sub(issued) > signatureTolerance || issued.Sub(now) > signatureTolerance {
		return fmt.Errorf("signature timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(tsPart))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sigPart)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}
