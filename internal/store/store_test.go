package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notably/internal/models"
	"notably/internal/store"
	"notably/internal/storetest"
)

func newUser(t *testing.T, st *store.Store, username string) *models.User {
	t.Helper()
	user := &models.User{
		Email:    username + "@example.com",
		Username: username,
	}
	require.NoError(t, st.CreateUser(context.Background(), user))
	return user
}

func TestCreateUserLowercasesIdentifiers(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()

	user := &models.User{Email: "Ada@Example.COM", Username: "AdaL"}
	require.NoError(t, st.CreateUser(ctx, user))

	found, err := st.FindUserByUsername(ctx, "adal")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", found.Email)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()

	newUser(t, st, "ada")
	err := st.CreateUser(ctx, &models.User{Email: "other@example.com", Username: "ada"})
	assert.Error(t, err)
}

func TestDeleteUserCascades(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()

	user := newUser(t, st, "ada")
	require.NoError(t, st.CreatePassword(ctx, &models.Password{Hash: "x", UserID: user.ID}))
	session, err := st.CreateSession(ctx, user.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	note := &models.Note{Title: "t", Content: "c", OwnerID: user.ID}
	require.NoError(t, st.CreateNote(ctx, note))
	require.NoError(t, st.CreateNoteImage(ctx, &models.NoteImage{
		NoteID:      note.ID,
		ContentType: "image/png",
		Blob:        []byte{1, 2, 3},
	}))

	require.NoError(t, st.DeleteUser(ctx, user.ID))

	_, err = st.FindSessionWithUser(ctx, session.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.FindNoteByID(ctx, note.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.FindUserWithPassword(ctx, "id", user.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteNoteCascadesImages(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()

	user := newUser(t, st, "ada")
	note := &models.Note{Title: "t", Content: "c", OwnerID: user.ID}
	require.NoError(t, st.CreateNote(ctx, note))

	image := &models.NoteImage{NoteID: note.ID, ContentType: "image/png", Blob: []byte{1}}
	require.NoError(t, st.CreateNoteImage(ctx, image))

	require.NoError(t, st.DeleteNote(ctx, note.ID))
	_, err := st.FindNoteImage(ctx, image.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteNoteImagesExcept(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()

	user := newUser(t, st, "ada")
	note := &models.Note{Title: "t", Content: "c", OwnerID: user.ID}
	require.NoError(t, st.CreateNote(ctx, note))

	keep := &models.NoteImage{NoteID: note.ID, ContentType: "image/png", Blob: []byte{1}}
	drop := &models.NoteImage{NoteID: note.ID, ContentType: "image/png", Blob: []byte{2}}
	require.NoError(t, st.CreateNoteImage(ctx, keep))
	require.NoError(t, st.CreateNoteImage(ctx, drop))

	require.NoError(t, st.DeleteNoteImagesExcept(ctx, note.ID, []string{keep.ID}))

	_, err := st.FindNoteImage(ctx, keep.ID)
	assert.NoError(t, err)
	_, err = st.FindNoteImage(ctx, drop.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Empty keep list removes everything.
	require.NoError(t, st.DeleteNoteImagesExcept(ctx, note.ID, nil))
	_, err = st.FindNoteImage(ctx, keep.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDuplicatePermissionTripleRejected(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()

	p := &models.Permission{Action: "read", Entity: "note", Access: "own"}
	require.NoError(t, st.CreatePermission(ctx, p))
	err := st.CreatePermission(ctx, &models.Permission{Action: "read", Entity: "note", Access: "own"})
	assert.Error(t, err)

	// Same action and entity at a different scope is a distinct permission.
	err = st.CreatePermission(ctx, &models.Permission{Action: "read", Entity: "note", Access: "any"})
	assert.NoError(t, err)
}

func TestDuplicateConnectionRejected(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()

	ada := newUser(t, st, "ada")
	bob := newUser(t, st, "bob")

	require.NoError(t, st.CreateConnection(ctx, &models.Connection{
		ProviderName: "google", ProviderID: "g-1", UserID: ada.ID,
	}))
	err := st.CreateConnection(ctx, &models.Connection{
		ProviderName: "google", ProviderID: "g-1", UserID: bob.ID,
	})
	assert.Error(t, err)
}

func TestSearchUsers(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()

	ada := newUser(t, st, "ada")
	bob := newUser(t, st, "bob")

	// Bob's note is newer, so bob sorts first in the unfiltered listing.
	require.NoError(t, st.CreateNote(ctx, &models.Note{
		Title: "old", Content: "c", OwnerID: ada.ID,
		UpdatedAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, st.CreateNote(ctx, &models.Note{
		Title: "new", Content: "c", OwnerID: bob.ID,
	}))

	results, err := st.SearchUsers(ctx, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "bob", results[0].Username)

	results, err = st.SearchUsers(ctx, "AD")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ada", results[0].Username)

	results, err = st.SearchUsers(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchUsersNoteLessUsersSortLast(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()

	newUser(t, st, "idle")
	active := newUser(t, st, "active")
	require.NoError(t, st.CreateNote(ctx, &models.Note{
		Title: "t", Content: "c", OwnerID: active.ID,
	}))

	results, err := st.SearchUsers(ctx, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "active", results[0].Username)
	assert.Equal(t, "idle", results[1].Username)
}

func TestFindPermissionMatch(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()

	user := newUser(t, st, "ada")
	role := &models.Role{Name: "user"}
	require.NoError(t, st.CreateRole(ctx, role))
	own := &models.Permission{Action: "delete", Entity: "note", Access: "own"}
	require.NoError(t, st.CreatePermission(ctx, own))
	require.NoError(t, st.GrantPermission(ctx, role.ID, own.ID))
	require.NoError(t, st.AssignRole(ctx, user.ID, role.ID))

	matched, err := st.FindPermissionMatch(ctx, user.ID, "delete", "note", []string{"own"})
	require.NoError(t, err)
	assert.True(t, matched)

	// Any listed scope suffices.
	matched, err = st.FindPermissionMatch(ctx, user.ID, "delete", "note", []string{"own", "any"})
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = st.FindPermissionMatch(ctx, user.ID, "delete", "note", []string{"any"})
	require.NoError(t, err)
	assert.False(t, matched)

	// No scope filter matches at whatever scope is granted.
	matched, err = st.FindPermissionMatch(ctx, user.ID, "delete", "note", nil)
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = st.FindPermissionMatch(ctx, user.ID, "delete", "user", nil)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestFindRoleMatch(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()

	user := newUser(t, st, "ada")
	role := &models.Role{Name: "admin"}
	require.NoError(t, st.CreateRole(ctx, role))

	matched, err := st.FindRoleMatch(ctx, user.ID, "admin")
	require.NoError(t, err)
	assert.False(t, matched)

	require.NoError(t, st.AssignRole(ctx, user.ID, role.ID))
	matched, err = st.FindRoleMatch(ctx, user.ID, "admin")
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestUpsertVerificationReplaces(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()

	first := &models.Verification{Type: "2fa", Target: "u1", Secret: "one", Algorithm: "SHA1", Digits: 6, Period: 30, CharSet: "0123456789"}
	require.NoError(t, st.UpsertVerification(ctx, first))

	second := &models.Verification{Type: "2fa", Target: "u1", Secret: "two", Algorithm: "SHA1", Digits: 6, Period: 30, CharSet: "0123456789"}
	require.NoError(t, st.UpsertVerification(ctx, second))

	found, err := st.FindVerification(ctx, "u1", "2fa")
	require.NoError(t, err)
	assert.Equal(t, "two", found.Secret)
}
