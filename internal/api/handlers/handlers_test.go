package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/cors"
	"github.com/stretchr/testify/require"

	"notably/internal/api"
	"notably/internal/api/handlers"
	"notably/internal/auth"
	"notably/internal/models"
	"notably/internal/store"
	"notably/internal/storetest"
	"notably/internal/utils"
	"notably/internal/verify"
)

// env is the full wired application over an in-memory database, exercised
// through the real router.
type env struct {
	router  http.Handler
	store   *store.Store
	auth    *auth.Authenticator
	verify  *verify.Manager
	cookies *auth.CookieCodec
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := storetest.Open(t)
	cookies := auth.NewCookieCodec("test-secret", false)
	a := auth.New(st, cookies)
	vm := verify.New(st, cookies, "TestIssuer")
	h := handlers.New(st, a, vm)
	router := api.NewRouter(h, a, cors.Options{AllowedOrigins: []string{"*"}})
	return &env{router: router, store: st, auth: a, verify: vm, cookies: cookies}
}

// signup creates a user through the store and returns a session cookie for
// it.
func (e *env) signup(t *testing.T, username string) (userID, cookie string) {
	t.Helper()
	session, err := e.auth.Signup(context.Background(), auth.SignupParams{
		Email:    username + "@example.com",
		Username: username,
		Password: "hunter22",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	require.NoError(t, e.auth.IssueSessionCookie(w, session))
	return session.UserID, w.Header().Get("Set-Cookie")
}

func (e *env) do(t *testing.T, method, path, cookie string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	r := httptest.NewRequest(method, path, body)
	if cookie != "" {
		r.Header.Set("Cookie", cookie)
	}
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func (e *env) doJSON(t *testing.T, method, path, cookie string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(body).Encode(payload))
	return e.do(t, method, path, cookie, body, "application/json")
}

func decodePayload(t *testing.T, w *httptest.ResponseRecorder) utils.Payload {
	t.Helper()
	var payload utils.Payload
	require.NoError(t, json.NewDecoder(w.Body).Decode(&payload))
	return payload
}

func noteForm(t *testing.T, fields map[string]string, images map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	form := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, form.WriteField(key, value))
	}
	for name, blob := range images {
		part, err := form.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write(blob)
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())
	return body, form.FormDataContentType()
}

// grantNotePermissions gives the user the scoped note permissions an
// ordinary account would hold after seeding.
func grantNotePermissions(t *testing.T, st *store.Store, userID, access string) {
	t.Helper()
	ctx := context.Background()

	role := &models.Role{Name: access + "-note-role-" + userID}
	require.NoError(t, st.CreateRole(ctx, role))
	for _, action := range []string{"create", "read", "update", "delete"} {
		p := &models.Permission{Action: action, Entity: "note", Access: access}
		require.NoError(t, st.CreatePermission(ctx, p))
		require.NoError(t, st.GrantPermission(ctx, role.ID, p.ID))
	}
	require.NoError(t, st.AssignRole(ctx, userID, role.ID))
}

func TestSignUpCreatesSessionCookie(t *testing.T) {
	e := newEnv(t)

	w := e.doJSON(t, http.MethodPost, "/api/v1/auth/sign-up", "", map[string]string{
		"email":    "ada@example.com",
		"username": "ada",
		"password": "hunter22",
		"name":     "Ada",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	require.Equal(t, auth.SessionCookie, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	// The cookie works against a protected route.
	me := e.do(t, http.MethodGet, "/api/v1/me", w.Header().Get("Set-Cookie"), nil, "")
	require.Equal(t, http.StatusOK, me.Code)
}

func TestSignUpRejectsDuplicateUsername(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "ada")

	w := e.doJSON(t, http.MethodPost, "/api/v1/auth/sign-up", "", map[string]string{
		"email":    "other@example.com",
		"username": "ADA",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	payload := decodePayload(t, w)
	require.Contains(t, payload.Errors, "username")
}

func TestLoginWrongPasswordAndUnknownUserMatch(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "ada")

	wrong := e.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "ada", "password": "nope",
	})
	unknown := e.doJSON(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "ghost", "password": "nope",
	})

	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, decodePayload(t, wrong).Message, decodePayload(t, unknown).Message)
}

func TestLogoutClearsCookieEvenWithoutSessionRow(t *testing.T) {
	e := newEnv(t)
	userID, cookie := e.signup(t, "ada")

	// The session row vanishes out-of-band; logout still succeeds.
	require.NoError(t, e.store.DeleteSessionsForUser(context.Background(), userID))

	w := e.do(t, http.MethodPost, "/api/v1/auth/logout", cookie, nil, "")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/", w.Header().Get("Location"))

	cleared := w.Result().Cookies()
	require.NotEmpty(t, cleared)
	require.Equal(t, auth.SessionCookie, cleared[0].Name)
	require.Less(t, cleared[0].MaxAge, 0)
}

func TestProtectedRouteRedirectsAnonymous(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/me", "", nil, "")
	require.Equal(t, http.StatusFound, w.Code)
	require.True(t, strings.HasPrefix(w.Header().Get("Location"), "/login?redirectTo="))
}

func TestSearchUsersEmptySubmissionRedirects(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/v1/users?search=", "", nil, "")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/api/v1/users", w.Header().Get("Location"))
}

func TestGetUserProfile(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "ada")

	w := e.do(t, http.MethodGet, "/api/v1/users/ada", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	missing := e.do(t, http.MethodGet, "/api/v1/users/ghost", "", nil, "")
	require.Equal(t, http.StatusNotFound, missing.Code)
}

func TestCreateNoteWithImage(t *testing.T) {
	e := newEnv(t)
	userID, cookie := e.signup(t, "ada")

	body, contentType := noteForm(t,
		map[string]string{"title": "Koalas", "content": "They sleep a lot."},
		map[string][]byte{"koala.png": {0x89, 0x50, 0x4e, 0x47}},
	)
	w := e.do(t, http.MethodPost, "/api/v1/notes", cookie, body, contentType)
	require.Equal(t, http.StatusCreated, w.Code)

	payload := decodePayload(t, w)
	raw, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	var data struct {
		Note models.Note `json:"note"`
	}
	require.NoError(t, json.Unmarshal(raw, &data))
	require.Equal(t, userID, data.Note.OwnerID)
	require.Len(t, data.Note.Images, 1)

	// The stored blob comes back through the image route.
	img := e.do(t, http.MethodGet, "/api/v1/note-images/"+data.Note.Images[0].ID, "", nil, "")
	require.Equal(t, http.StatusOK, img.Code)
	require.Equal(t, []byte{0x89, 0x50, 0x4e, 0x47}, img.Body.Bytes())
}

func TestImageFetchHeaders(t *testing.T) {
	e := newEnv(t)
	userID, _ := e.signup(t, "ada")
	ctx := context.Background()

	note := &models.Note{Title: "t", Content: "c", OwnerID: userID}
	require.NoError(t, e.store.CreateNote(ctx, note))
	blob := []byte{1, 2, 3, 4, 5}
	image := &models.NoteImage{NoteID: note.ID, ContentType: "image/jpeg", Blob: blob}
	require.NoError(t, e.store.CreateNoteImage(ctx, image))

	w := e.do(t, http.MethodGet, "/api/v1/note-images/"+image.ID, "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, blob, w.Body.Bytes())
	require.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	require.Equal(t, "5", w.Header().Get("Content-Length"))
	require.Equal(t, "inline", w.Header().Get("Content-Disposition"))
	require.Equal(t, "public, max-age=31536000, immutable", w.Header().Get("Cache-Control"))

	avatar := &models.UserImage{UserID: userID, ContentType: "image/jpeg", Blob: blob}
	require.NoError(t, e.store.ReplaceUserImage(ctx, avatar))
	w = e.do(t, http.MethodGet, "/api/v1/user-images/"+avatar.ID, "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	require.Equal(t, "5", w.Header().Get("Content-Length"))
	require.Equal(t, "inline", w.Header().Get("Content-Disposition"))
	require.Equal(t, "public, max-age=31536000, immutable", w.Header().Get("Cache-Control"))
}

func TestCreateNoteValidatesFields(t *testing.T) {
	e := newEnv(t)
	_, cookie := e.signup(t, "ada")

	body, contentType := noteForm(t, map[string]string{"title": "", "content": ""}, nil)
	w := e.do(t, http.MethodPost, "/api/v1/notes", cookie, body, contentType)
	require.Equal(t, http.StatusBadRequest, w.Code)

	payload := decodePayload(t, w)
	require.Contains(t, payload.Errors, "title")
	require.Contains(t, payload.Errors, "content")
}

func TestUpdateNoteReplacesImages(t *testing.T) {
	e := newEnv(t)
	userID, cookie := e.signup(t, "ada")
	ctx := context.Background()

	note := &models.Note{Title: "t", Content: "c", OwnerID: userID}
	require.NoError(t, e.store.CreateNote(ctx, note))
	kept := &models.NoteImage{NoteID: note.ID, ContentType: "image/png", Blob: []byte{1}}
	dropped := &models.NoteImage{NoteID: note.ID, ContentType: "image/png", Blob: []byte{2}}
	require.NoError(t, e.store.CreateNoteImage(ctx, kept))
	require.NoError(t, e.store.CreateNoteImage(ctx, dropped))

	body, contentType := noteForm(t,
		map[string]string{"title": "t2", "content": "c2", "keepImageIds": kept.ID},
		map[string][]byte{"new.png": {3}},
	)
	w := e.do(t, http.MethodPut, "/api/v1/notes/"+note.ID, cookie, body, contentType)
	require.Equal(t, http.StatusOK, w.Code)

	updated, err := e.store.FindNoteByID(ctx, note.ID)
	require.NoError(t, err)
	require.Equal(t, "t2", updated.Title)
	require.Len(t, updated.Images, 2)

	_, err = e.store.FindNoteImage(ctx, kept.ID)
	require.NoError(t, err)
	_, err = e.store.FindNoteImage(ctx, dropped.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateNoteOnlyOwner(t *testing.T) {
	e := newEnv(t)
	ownerID, _ := e.signup(t, "ada")
	_, otherCookie := e.signup(t, "bob")

	note := &models.Note{Title: "t", Content: "c", OwnerID: ownerID}
	require.NoError(t, e.store.CreateNote(context.Background(), note))

	body, contentType := noteForm(t, map[string]string{"title": "x", "content": "y"}, nil)
	w := e.do(t, http.MethodPut, "/api/v1/notes/"+note.ID, otherCookie, body, contentType)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteNotePermissions(t *testing.T) {
	e := newEnv(t)
	ownerID, ownerCookie := e.signup(t, "ada")
	adminID, adminCookie := e.signup(t, "root")
	_, strangerCookie := e.signup(t, "bob")
	ctx := context.Background()

	grantNotePermissions(t, e.store, ownerID, "own")
	grantNotePermissions(t, e.store, adminID, "any")

	first := &models.Note{Title: "t", Content: "c", OwnerID: ownerID}
	second := &models.Note{Title: "t", Content: "c", OwnerID: ownerID}
	require.NoError(t, e.store.CreateNote(ctx, first))
	require.NoError(t, e.store.CreateNote(ctx, second))

	// A stranger holds no grant at all.
	w := e.do(t, http.MethodDelete, "/api/v1/notes/"+first.ID, strangerCookie, nil, "")
	require.Equal(t, http.StatusForbidden, w.Code)

	// The owner's own-scope grant covers their note.
	w = e.do(t, http.MethodDelete, "/api/v1/notes/"+first.ID, ownerCookie, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	// The any-scope grant covers someone else's note.
	w = e.do(t, http.MethodDelete, "/api/v1/notes/"+second.ID, adminCookie, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	_, err := e.store.FindNoteByID(ctx, second.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestExportBundle(t *testing.T) {
	e := newEnv(t)
	userID, cookie := e.signup(t, "ada")
	ctx := context.Background()

	note := &models.Note{Title: "t", Content: "c", OwnerID: userID}
	require.NoError(t, e.store.CreateNote(ctx, note))
	image := &models.NoteImage{NoteID: note.ID, ContentType: "image/png", Blob: []byte{1, 2}}
	require.NoError(t, e.store.CreateNoteImage(ctx, image))

	w := e.do(t, http.MethodGet, "/api/v1/export", cookie, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	require.Contains(t, body, "/api/v1/note-images/"+image.ID)
	// Blobs never appear in the export, only their URLs.
	require.NotContains(t, body, "\"blob\"")
}
