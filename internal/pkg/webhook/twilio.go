package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"sort"
	"strings"

	"github.com/voxdesk/VoxDesk/app/models"
)

// TwilioVerifier checks the X-Twilio-Signature header. Twilio signs the full
// webhook URL concatenated with every form parameter (keys sorted, key
// immediately followed by value) using HMAC-SHA1 with the account auth token,
// base64-encoded.
type TwilioVerifier struct {
	authToken string
}

func NewTwilioVerifier(authToken string) *TwilioVerifier {
	return &TwilioVerifier{authToken: strings.TrimSpace(authToken)}
}

func (v *TwilioVerifier) Provider() string { return models.ProviderTwilio }

func (v *TwilioVerifier) Configured() bool { return v.authToken != "" }

func (v *TwilioVerifier) Verify(r *Request) bool {
	if r == nil || len(r.Body) == 0 || v.authToken == "" {
		return false
	}
	sig := strings.TrimSpace(r.Signature)
	if sig == "" || strings.TrimSpace(r.URL) == "" {
		return false
	}

	expected := computeTwilioSignature(r.URL, r.Form, v.authToken)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(sig)) == 1
}

func computeTwilioSignature(fullURL string, form map[string][]string, authToken string) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, val := range form[k] {
			b.WriteString(k)
			b.WriteString(val)
		}
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
