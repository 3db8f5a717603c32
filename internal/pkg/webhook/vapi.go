package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/voxdesk/VoxDesk/app/models"
)

// VapiVerifier checks the x-vapi-signature header: HMAC-SHA256 over the raw
// request body with the shared webhook secret. The header arrives either as a
// bare lowercase hex digest or prefixed "sha256=<hex>"; both forms verify
// identically.
type VapiVerifier struct {
	secret string
}

func NewVapiVerifier(secret string) *VapiVerifier {
	return &VapiVerifier{secret: strings.TrimSpace(secret)}
}

func (v *VapiVerifier) Provider() string { return models.ProviderVapi }

func (v *VapiVerifier) Configured() bool { return v.secret != "" }

func (v *VapiVerifier) Verify(r *Request) bool {
	if r == nil || len(r.Body) == 0 || v.secret == "" {
		return false
	}
	sig := strings.TrimSpace(r.Signature)
	sig = strings.TrimPrefix(sig, "sha256=")
	if sig == "" {
		return false
	}

	provided, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(r.Body)
	return hmac.Equal(mac.Sum(nil), provided)
}
