package webhook

import (
	"crypto/subtle"
	"strings"

	"github.com/voxdesk/VoxDesk/app/models"
)

// FlutterwaveVerifier checks the verif-hash header Flutterwave sends with
// every webhook. The scheme is a shared-secret comparison: the header must
// match the secret hash configured in the Flutterwave dashboard. Compared in
// constant time so the check cannot leak secret bytes through timing.
type FlutterwaveVerifier struct {
	secretHash string
}

func NewFlutterwaveVerifier(secretHash string) *FlutterwaveVerifier {
	return &FlutterwaveVerifier{secretHash: strings.TrimSpace(secretHash)}
}

func (v *FlutterwaveVerifier) Provider() string { return models.ProviderFlutterwave }

func (v *FlutterwaveVerifier) Configured() bool { return v.secretHash != "" }

func (v *FlutterwaveVerifier) Verify(r *Request) bool {
	if r == nil || len(r.Body) == 0 {
		return false
	}
	sig := strings.TrimSpace(r.Signature)
	if sig == "" || v.secretHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sig), []byte(v.secretHash)) == 1
}
