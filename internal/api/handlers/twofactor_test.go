package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func codeFromOTPURL(t *testing.T, otpURL string) string {
	t.Helper()
	key, err := otp.NewKeyFromURL(otpURL)
	require.NoError(t, err)
	code, err := totp.GenerateCodeCustom(key.Secret(), time.Now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	return code
}

// enrollTwoFactor walks the full enrollment through the API and returns the
// otpauth URL so tests can compute valid codes afterwards.
func enrollTwoFactor(t *testing.T, e *env, cookie string) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/v1/2fa", cookie, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	payload := decodePayload(t, w)
	raw, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	var data struct {
		OTPUri string `json:"otpUri"`
	}
	require.NoError(t, json.Unmarshal(raw, &data))
	require.Contains(t, data.OTPUri, "otpauth://totp/")

	verifyResp := e.doJSON(t, http.MethodPost, "/api/v1/2fa/verify", cookie, map[string]string{
		"code": codeFromOTPURL(t, data.OTPUri),
	})
	require.Equal(t, http.StatusOK, verifyResp.Code)
	return data.OTPUri
}

func TestTwoFactorEnrollment(t *testing.T) {
	e := newEnv(t)
	userID, cookie := e.signup(t, "ada")

	enrollTwoFactor(t, e, cookie)

	enabled, err := e.verify.TwoFactorEnabled(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, enabled)
}

func TestTwoFactorVerifyRejectsWrongCode(t *testing.T) {
	e := newEnv(t)
	userID, cookie := e.signup(t, "ada")

	w := e.do(t, http.MethodPost, "/api/v1/2fa", cookie, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	verifyResp := e.doJSON(t, http.MethodPost, "/api/v1/2fa/verify", cookie, map[string]string{
		"code": "000000",
	})
	require.Equal(t, http.StatusBadRequest, verifyResp.Code)

	enabled, err := e.verify.TwoFactorEnabled(context.Background(), userID)
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestTwoFactorDisableNeedsRecentVerification(t *testing.T) {
	e := newEnv(t)
	userID, cookie := e.signup(t, "ada")

	enrollTwoFactor(t, e, cookie)

	// Without the verified cookie, disabling is refused.
	w := e.do(t, http.MethodPost, "/api/v1/2fa/disable", cookie, nil, "")
	require.Equal(t, http.StatusForbidden, w.Code)

	enabled, err := e.verify.TwoFactorEnabled(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, enabled)

	// Completing enrollment set the verified cookie; carrying it along
	// unlocks the disable.
	rec := httptest.NewRecorder()
	require.NoError(t, e.verify.MarkVerified(rec, userID))
	w = e.do(t, http.MethodPost, "/api/v1/2fa/disable", cookie+"; "+rec.Header().Get("Set-Cookie"), nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	enabled, err = e.verify.TwoFactorEnabled(context.Background(), userID)
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestLoginWithTwoFactorChallenge(t *testing.T) {
	e := newEnv(t)
	_, cookie := e.signup(t, "ada")
	otpURL := enrollTwoFactor(t, e, cookie)

	// Password alone yields a challenge, not a session.
	w := e.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "ada", "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "twoFactorRequired")

	var challengeCookie string
	for _, c := range w.Result().Cookies() {
		if c.Name == "challenge" {
			challengeCookie = c.Name + "=" + c.Value
		}
	}
	require.NotEmpty(t, challengeCookie)

	// A wrong code does not finish the login.
	bad := e.doJSON(t, http.MethodPost, "/api/v1/auth/login/2fa", challengeCookie, map[string]string{
		"code": "000000",
	})
	require.Equal(t, http.StatusUnauthorized, bad.Code)

	good := e.doJSON(t, http.MethodPost, "/api/v1/auth/login/2fa", challengeCookie, map[string]string{
		"code": codeFromOTPURL(t, otpURL),
	})
	require.Equal(t, http.StatusOK, good.Code)

	var sessionID string
	for _, c := range good.Result().Cookies() {
		if c.Name == "session" {
			sessionID = c.Value
		}
	}
	require.NotEmpty(t, sessionID)
}
