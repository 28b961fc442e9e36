package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Cookie names used across the auth, verification, and recovery flows.
const (
	SessionCookie   = "session"
	ChallengeCookie = "challenge"
	ResetCookie     = "reset"
	VerifiedCookie  = "verified"
)

// CookieCodec signs single-value cookies with HS256. The value travels as
// the token subject; nothing sensitive ever leaves the server in a cookie.
type CookieCodec struct {
	secret []byte
	secure bool
}

func NewCookieCodec(secret string, secure bool) *CookieCodec {
	return &CookieCodec{secret: []byte(secret), secure: secure}
}

// Set writes a signed cookie holding value, expiring after ttl.
func (c *CookieCodec) Set(w http.ResponseWriter, name, value string, ttl time.Duration) error {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   value,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return fmt.Errorf("sign cookie: %w", err)
	}

	sameSite := http.SameSiteLaxMode
	if c.secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: sameSite,
	})
	return nil
}

// Read returns the value carried by a signed cookie. http.ErrNoCookie is
// passed through so callers can distinguish "absent" from "invalid".
func (c *CookieCodec) Read(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", err
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return c.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Subject, nil
}

// Clear deletes the cookie client-side.
func (c *CookieCodec) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
