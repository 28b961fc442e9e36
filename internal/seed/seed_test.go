package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notably/internal/auth"
	"notably/internal/seed"
	"notably/internal/storetest"
)

func TestRun(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	require.NoError(t, seed.Run(ctx, st))

	// The full scenario: five generated users plus kody.
	results, err := st.SearchUsers(ctx, "")
	require.NoError(t, err)
	assert.Len(t, results, 6)

	kody, err := st.FindUserByUsername(ctx, "kody")
	require.NoError(t, err)
	assert.Equal(t, "kody@kcd.dev", kody.Email)

	// Kody's password is the username, like every seeded account.
	a := auth.New(st, auth.NewCookieCodec("test-secret", false))
	userID, err := a.VerifyUserPassword(ctx, auth.ByUsername("kody"), "kody")
	require.NoError(t, err)
	assert.Equal(t, kody.ID, userID)

	// Kody carries both roles; generated users only the user role.
	isAdmin, err := st.FindRoleMatch(ctx, kody.ID, "admin")
	require.NoError(t, err)
	assert.True(t, isAdmin)
	isUser, err := st.FindRoleMatch(ctx, kody.ID, "user")
	require.NoError(t, err)
	assert.True(t, isUser)

	for _, r := range results {
		if r.Username == "kody" {
			continue
		}
		isAdmin, err := st.FindRoleMatch(ctx, r.ID, "admin")
		require.NoError(t, err)
		assert.False(t, isAdmin, "user %s should not be admin", r.Username)
	}

	// The fixed demo note exists under its well-known id.
	note, err := st.FindNoteByID(ctx, "d27a197e")
	require.NoError(t, err)
	assert.Equal(t, "Basic Koala Facts", note.Title)
	assert.Equal(t, kody.ID, note.OwnerID)

	// The role matrix grants scoped permissions: an ordinary user may
	// delete their own notes but not anyone else's.
	ordinary := results[0]
	if ordinary.Username == "kody" {
		ordinary = results[1]
	}
	matched, err := st.FindPermissionMatch(ctx, ordinary.ID, "delete", "note", []string{"own"})
	require.NoError(t, err)
	assert.True(t, matched)
	matched, err = st.FindPermissionMatch(ctx, ordinary.ID, "delete", "note", []string{"any"})
	require.NoError(t, err)
	assert.False(t, matched)

	matched, err = st.FindPermissionMatch(ctx, kody.ID, "delete", "note", []string{"any"})
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestRunGeneratesNotesForEveryUser(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	require.NoError(t, seed.Run(ctx, st))

	results, err := st.SearchUsers(ctx, "")
	require.NoError(t, err)
	for _, r := range results {
		profile, err := st.FindUserProfile(ctx, r.Username)
		require.NoError(t, err)
		assert.NotEmpty(t, profile.Notes, "user %s should have at least one note", r.Username)
	}
}
