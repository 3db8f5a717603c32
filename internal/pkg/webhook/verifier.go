package webhook

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/voxdesk/VoxDesk/app/models"
	"github.com/voxdesk/VoxDesk/internal/pkg/env"
)

// Request carries the raw material a provider signature is computed over.
// Body must be the unparsed request bytes; re-serializing a parsed payload
// can change byte content and invalidate the signature.
type Request struct {
	Body      []byte
	Signature string
	// URL and Form are only consulted by the carrier scheme, which signs the
	// full webhook URL plus the form-encoded parameters instead of the body.
	URL  string
	Form url.Values
}

// Verifier proves a raw request originated from the claimed provider before
// any parsing or side effects happen. Implementations never panic; malformed
// or missing input yields false.
type Verifier interface {
	Provider() string
	Configured() bool
	Verify(r *Request) bool
}

// ErrMissingSecret is returned at startup when a provider secret is not
// configured. Verification is never silently skipped in production.
var ErrMissingSecret = errors.New("webhook secret is not configured")

// VerifierSet holds one verifier per provider and applies the configured
// bypass policy for non-production environments.
type VerifierSet struct {
	verifiers       map[string]Verifier
	allowUnverified bool
}

func NewVerifierSet(verifiers ...Verifier) *VerifierSet {
	set := &VerifierSet{verifiers: make(map[string]Verifier, len(verifiers))}
	for _, v := range verifiers {
		set.verifiers[v.Provider()] = v
	}
	return set
}

// SetFromEnv builds the full provider verifier set from environment
// configuration. A missing secret is a hard startup failure; the only bypass
// is the explicit ALLOW_UNVERIFIED_WEBHOOKS=true flag, and only in dev.
func SetFromEnv() (*VerifierSet, error) {
	allowUnverified := env.IsDev() && env.GetEnv("ALLOW_UNVERIFIED_WEBHOOKS", "false") == "true"

	secrets := map[string]string{
		models.ProviderFlutterwave: strings.TrimSpace(env.GetEnv("FLW_SECRET_HASH", "")),
		models.ProviderVapi:        strings.TrimSpace(env.GetEnv("VAPI_WEBHOOK_SECRET", "")),
		models.ProviderTwilio:      strings.TrimSpace(env.GetEnv("TWILIO_AUTH_TOKEN", "")),
	}
	var missing []string
	for provider, secret := range secrets {
		if secret == "" {
			missing = append(missing, provider)
		}
	}
	if len(missing) > 0 && !allowUnverified {
		return nil, fmt.Errorf("%w for provider(s): %s", ErrMissingSecret, strings.Join(missing, ", "))
	}

	set := NewVerifierSet(
		NewFlutterwaveVerifier(secrets[models.ProviderFlutterwave]),
		NewVapiVerifier(secrets[models.ProviderVapi]),
		NewTwilioVerifier(secrets[models.ProviderTwilio]),
	)
	set.allowUnverified = allowUnverified
	return set, nil
}

// Verify dispatches to the provider's verifier. With the dev bypass active an
// unconfigured provider is accepted, loudly.
func (s *VerifierSet) Verify(provider string, r *Request) bool {
	v, ok := s.verifiers[provider]
	if !ok {
		return false
	}
	if s.allowUnverified && !v.Configured() {
		log.Printf("WARNING: accepting unverified %s webhook (ALLOW_UNVERIFIED_WEBHOOKS)", provider)
		return true
	}
	return v.Verify(r)
}

// Configured reports whether a provider has a usable secret.
func (s *VerifierSet) Configured(provider string) bool {
	v, ok := s.verifiers[provider]
	return ok && v.Configured()
}
