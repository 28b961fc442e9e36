// Package auth implements the authenticator: credential verification,
// session lifecycle, the signed session cookie, and the role/permission
// checks built on top of it.
package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"notably/internal/models"
	"notably/internal/store"
)

// SessionExpiration is how long a session lives from the moment it is
// created.
const SessionExpiration = 30 * 24 * time.Hour

// ErrInvalidCredentials covers unknown user and wrong password alike, so a
// caller can never tell which one happened.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserRef selects a user by username or by id for password verification.
type UserRef struct {
	column string
	value  string
}

func ByUsername(username string) UserRef { return UserRef{"username", username} }
func ByID(id string) UserRef             { return UserRef{"id", id} }

// Authenticator resolves identities from session cookies and drives the
// login, signup, and logout flows. External providers plug in by name; the
// authenticator is a pass-through toward them.
type Authenticator struct {
	store     *store.Store
	cookies   *CookieCodec
	providers map[string]Provider
}

// Provider is the capability an external identity provider implements:
// begin authentication, then turn a callback code into a normalized
// identity.
type Provider interface {
	AuthURL(state string) string
	HandleCallback(ctx context.Context, code string) (*ProviderUser, error)
}

// ProviderUser is the normalized identity returned by a provider callback.
type ProviderUser struct {
	ID       string
	Email    string
	Username string
	Name     string
	ImageURL string
}

func New(st *store.Store, cookies *CookieCodec) *Authenticator {
	return &Authenticator{
		store:     st,
		cookies:   cookies,
		providers: make(map[string]Provider),
	}
}

func (a *Authenticator) RegisterProvider(name string, p Provider) {
	a.providers[name] = p
}

func (a *Authenticator) Provider(name string) (Provider, bool) {
	p, ok := a.providers[name]
	return p, ok
}

// Cookies exposes the codec so handlers can manage the auxiliary cookies
// (challenge, reset, verified) with the same signing key.
func (a *Authenticator) Cookies() *CookieCodec { return a.cookies }

// GetUserID resolves the caller's identity from the session cookie.
// An absent cookie means anonymous. A cookie referencing a session that no
// longer exists (or has expired) is cleared and the caller is sent to the
// site root; handled reports that a response was written.
func (a *Authenticator) GetUserID(w http.ResponseWriter, r *http.Request) (userID string, handled bool) {
	sessionID, err := a.cookies.Read(r, SessionCookie)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", false
		}
		// Forged or garbled cookie: same treatment as a stale one.
		a.cookies.Clear(w, SessionCookie)
		http.Redirect(w, r, "/", http.StatusFound)
		return "", true
	}

	session, err := a.store.FindSessionWithUser(r.Context(), sessionID)
	if err != nil || time.Now().After(session.ExpirationDate) {
		a.cookies.Clear(w, SessionCookie)
		http.Redirect(w, r, "/", http.StatusFound)
		return "", true
	}
	return session.UserID, false
}

// RequireOptions tweaks how an anonymous caller is sent to login.
type RequireOptions struct {
	// RedirectTo overrides the return-path hint appended to the login URL.
	// Nil keeps the default (the request's path and query); a pointer to the
	// empty string suppresses the hint entirely.
	RedirectTo *string
}

// RequireUserID is GetUserID plus a login redirect for anonymous callers,
// carrying the original path and query as the return hint unless the options
// override or suppress it. It never yields an id for an unauthenticated
// request.
func (a *Authenticator) RequireUserID(w http.ResponseWriter, r *http.Request, opts ...RequireOptions) (string, bool) {
	userID, handled := a.GetUserID(w, r)
	if handled {
		return "", false
	}
	if userID == "" {
		redirectTo := r.URL.Path
		if r.URL.RawQuery != "" {
			redirectTo += "?" + r.URL.RawQuery
		}
		if len(opts) > 0 && opts[0].RedirectTo != nil {
			redirectTo = *opts[0].RedirectTo
		}
		loginURL := "/login"
		if redirectTo != "" {
			params := url.Values{"redirectTo": {redirectTo}}
			loginURL += "?" + params.Encode()
		}
		http.Redirect(w, r, loginURL, http.StatusFound)
		return "", false
	}
	return userID, true
}

// RequireAnonymous sends authenticated callers back to the site root.
// It reports whether the request may proceed.
func (a *Authenticator) RequireAnonymous(w http.ResponseWriter, r *http.Request) bool {
	userID, handled := a.GetUserID(w, r)
	if handled {
		return false
	}
	if userID != "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return false
	}
	return true
}

// Login verifies the password and starts a session expiring 30 days out.
func (a *Authenticator) Login(ctx context.Context, username, password string) (*models.Session, error) {
	userID, err := a.VerifyUserPassword(ctx, ByUsername(username), password)
	if err != nil {
		return nil, err
	}
	return a.StartSession(ctx, userID)
}

// StartSession creates a fresh session row for the user.
func (a *Authenticator) StartSession(ctx context.Context, userID string) (*models.Session, error) {
	return a.store.CreateSession(ctx, userID, time.Now().Add(SessionExpiration))
}

// SignupParams carries everything needed to create a local account.
type SignupParams struct {
	Email    string
	Username string
	Password string
	Name     string
}

// Signup creates the user, its password, and a session, in that order.
func (a *Authenticator) Signup(ctx context.Context, params SignupParams) (*models.Session, error) {
	hash, err := HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:    params.Email,
		Username: params.Username,
	}
	if params.Name != "" {
		user.Name = &params.Name
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	if err := a.store.CreatePassword(ctx, &models.Password{Hash: hash, UserID: user.ID}); err != nil {
		return nil, err
	}
	return a.StartSession(ctx, user.ID)
}

// SignupWithConnection creates an OAuth-originated account: a connection row
// takes the place of a password row.
func (a *Authenticator) SignupWithConnection(ctx context.Context, params SignupParams, providerName, providerID string) (*models.Session, error) {
	user := &models.User{
		Email:    params.Email,
		Username: params.Username,
	}
	if params.Name != "" {
		user.Name = &params.Name
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	connection := &models.Connection{
		ProviderName: providerName,
		ProviderID:   providerID,
		UserID:       user.ID,
	}
	if err := a.store.CreateConnection(ctx, connection); err != nil {
		return nil, err
	}
	return a.StartSession(ctx, user.ID)
}

// Logout deletes the session row best-effort (an orphaned row is harmless;
// failing the logout is not), always destroys the cookie, and always
// redirects. It never returns control to a caller expecting to write a
// response.
func (a *Authenticator) Logout(w http.ResponseWriter, r *http.Request, redirectTo string) {
	if redirectTo == "" {
		redirectTo = "/"
	}
	if sessionID, err := a.cookies.Read(r, SessionCookie); err == nil {
		if err := a.store.DeleteSession(r.Context(), sessionID); err != nil {
			log.Printf("logout: session delete failed: %v", err)
		}
	}
	a.cookies.Clear(w, SessionCookie)
	http.Redirect(w, r, redirectTo, http.StatusFound)
}

// IssueSessionCookie binds the session to the client.
func (a *Authenticator) IssueSessionCookie(w http.ResponseWriter, session *models.Session) error {
	return a.cookies.Set(w, SessionCookie, session.ID, time.Until(session.ExpirationDate))
}

// VerifyUserPassword compares the password against the stored hash for the
// referenced user and returns the user id on match. A missing user, a user
// without a password, and a wrong password are indistinguishable.
func (a *Authenticator) VerifyUserPassword(ctx context.Context, where UserRef, password string) (string, error) {
	user, err := a.store.FindUserWithPassword(ctx, where.column, where.value)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}
	if user.Password == nil {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password.Hash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	return user.ID, nil
}

// ResetUserPassword re-hashes and swaps the stored password for the user.
func (a *Authenticator) ResetUserPassword(ctx context.Context, username, password string) error {
	user, err := a.store.FindUserByUsername(ctx, strings.ToLower(username))
	if err != nil {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return a.store.UpdatePasswordHash(ctx, user.ID, hash)
}

// HashPassword produces a bcrypt hash at cost 10.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
