// Package verify manages verification challenges: persistence and lifecycle
// of per-target TOTP parameters, and the recent-verification gate that
// protects sensitive account actions. The code math itself is delegated to
// the otp library; nothing here implements it.
package verify

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"notably/internal/auth"
	"notably/internal/models"
	"notably/internal/store"
)

// Verification types. One row exists per (target, type).
const (
	TypeTwoFactor      = "2fa"
	TypeTwoFactorSetup = "2fa-setup"
	TypeResetPassword  = "reset-password"
)

const (
	// RecentWindow is how long a completed challenge keeps gating actions
	// unlocked.
	RecentWindow = 2 * time.Hour

	// setupTTL bounds how long an unconfirmed 2FA setup or a reset code
	// stays valid.
	setupTTL = 10 * time.Minute

	twoFactorPeriod = 30
	resetPeriod     = 300
	digitCharSet    = "0123456789"
)

// ErrInvalidCode covers expired challenges and wrong codes alike.
var ErrInvalidCode = errors.New("invalid code")

// Manager owns verification rows and the verified cookie.
type Manager struct {
	store   *store.Store
	cookies *auth.CookieCodec
	issuer  string
}

func New(st *store.Store, cookies *auth.CookieCodec, issuer string) *Manager {
	return &Manager{store: st, cookies: cookies, issuer: issuer}
}

// StartTwoFactorSetup creates (or replaces) the pending 2FA challenge for
// the target and returns the otpauth URL to enroll an authenticator app.
func (m *Manager) StartTwoFactorSetup(ctx context.Context, target string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: target,
		Period:      twoFactorPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}

	expires := time.Now().Add(setupTTL)
	v := &models.Verification{
		Type:      TypeTwoFactorSetup,
		Target:    target,
		Secret:    key.Secret(),
		Algorithm: "SHA1",
		Digits:    6,
		Period:    twoFactorPeriod,
		CharSet:   digitCharSet,
		ExpiresAt: &expires,
	}
	if err := m.store.UpsertVerification(ctx, v); err != nil {
		return "", err
	}
	return key.URL(), nil
}

// ConfirmTwoFactorSetup exchanges a valid setup code for the durable 2FA
// row. The pending row is consumed; the durable row never expires.
func (m *Manager) ConfirmTwoFactorSetup(ctx context.Context, target, code string) error {
	v, err := m.validate(ctx, target, TypeTwoFactorSetup, code)
	if err != nil {
		return err
	}

	durable := &models.Verification{
		Type:      TypeTwoFactor,
		Target:    target,
		Secret:    v.Secret,
		Algorithm: v.Algorithm,
		Digits:    v.Digits,
		Period:    v.Period,
		CharSet:   v.CharSet,
	}
	if err := m.store.UpsertVerification(ctx, durable); err != nil {
		return err
	}
	return m.store.DeleteVerification(ctx, target, TypeTwoFactorSetup)
}

// ValidateTwoFactor checks a login challenge code against the durable row.
func (m *Manager) ValidateTwoFactor(ctx context.Context, target, code string) error {
	_, err := m.validate(ctx, target, TypeTwoFactor, code)
	return err
}

// DisableTwoFactor deletes the durable row for the target.
func (m *Manager) DisableTwoFactor(ctx context.Context, target string) error {
	return m.store.DeleteVerification(ctx, target, TypeTwoFactor)
}

// TwoFactorEnabled reports whether a durable 2FA row exists for the target.
func (m *Manager) TwoFactorEnabled(ctx context.Context, target string) (bool, error) {
	_, err := m.store.FindVerification(ctx, target, TypeTwoFactor)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateResetCode creates (or replaces) a short-lived password-reset
// challenge and returns the current code for delivery out of band.
func (m *Manager) CreateResetCode(ctx context.Context, target string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.issuer,
		AccountName: target,
		Period:      resetPeriod,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}

	expires := time.Now().Add(setupTTL)
	v := &models.Verification{
		Type:      TypeResetPassword,
		Target:    target,
		Secret:    key.Secret(),
		Algorithm: "SHA1",
		Digits:    6,
		Period:    resetPeriod,
		CharSet:   digitCharSet,
		ExpiresAt: &expires,
	}
	if err := m.store.UpsertVerification(ctx, v); err != nil {
		return "", err
	}

	return totp.GenerateCodeCustom(v.Secret, time.Now().UTC(), validateOpts(v))
}

// ConsumeResetCode validates a reset code and deletes the row, making the
// code single-use.
func (m *Manager) ConsumeResetCode(ctx context.Context, target, code string) error {
	if _, err := m.validate(ctx, target, TypeResetPassword, code); err != nil {
		return err
	}
	return m.store.DeleteVerification(ctx, target, TypeResetPassword)
}

// MarkVerified records a completed challenge in the verified cookie, using
// the same session/cookie mechanism as authentication rather than a
// separate timer service.
func (m *Manager) MarkVerified(w http.ResponseWriter, target string) error {
	return m.cookies.Set(w, auth.VerifiedCookie, target, RecentWindow)
}

// RecentlyVerified reports whether the caller completed a challenge for the
// target within the recent window.
func (m *Manager) RecentlyVerified(r *http.Request, target string) bool {
	got, err := m.cookies.Read(r, auth.VerifiedCookie)
	return err == nil && got == target
}

func (m *Manager) validate(ctx context.Context, target, typ, code string) (*models.Verification, error) {
	v, err := m.store.FindVerification(ctx, target, typ)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if v.ExpiresAt != nil && time.Now().After(*v.ExpiresAt) {
		return nil, ErrInvalidCode
	}

	ok, err := totp.ValidateCustom(code, v.Secret, time.Now().UTC(), validateOpts(v))
	if err != nil || !ok {
		return nil, ErrInvalidCode
	}
	return v, nil
}

func validateOpts(v *models.Verification) totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(v.Period),
		Skew:      1,
		Digits:    otp.Digits(v.Digits),
		Algorithm: algorithm(v.Algorithm),
	}
}

func algorithm(name string) otp.Algorithm {
	switch name {
	case "SHA256":
		return otp.AlgorithmSHA256
	case "SHA512":
		return otp.AlgorithmSHA512
	default:
		return otp.AlgorithmSHA1
	}
}
