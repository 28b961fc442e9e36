// Package seed populates a fresh database with a small working data set:
// the role and permission matrix, a handful of generated users with notes,
// and the fixed kody account used for manual poking.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"golang.org/x/sync/errgroup"

	"notably/internal/auth"
	"notably/internal/models"
	"notably/internal/store"
)

const (
	fakeUserCount   = 5
	kodyEmail       = "kody@kcd.dev"
	kodyUsername    = "kody"
	kodyNoteID      = "d27a197e"
	kodyNoteTitle   = "Basic Koala Facts"
	kodyNoteContent = "Koalas are found in the eucalyptus forests of eastern Australia. They have grey fur with a cream-coloured chest, and strong, clawed feet, perfect for living in the branches of trees!"
)

var (
	entities = []string{"user", "note"}
	actions  = []string{"create", "read", "update", "delete"}
	accesses = []string{"own", "any"}
)

// Run fills a migrated, empty database. Users are seeded concurrently; the
// role and permission matrix is laid down first since every user hangs off
// it.
func Run(ctx context.Context, st *store.Store) error {
	userRole, adminRole, err := seedRBAC(ctx, st)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < fakeUserCount; i++ {
		g.Go(func() error {
			// Fakers are not safe for concurrent use; one per goroutine.
			return seedFakeUser(ctx, st, gofakeit.New(0), userRole)
		})
	}
	g.Go(func() error {
		return seedKody(ctx, st, userRole, adminRole)
	})
	return g.Wait()
}

// seedRBAC creates the full permission matrix (every action on every entity
// at both scopes) and the two roles: user carries the "own" scope, admin the
// "any" scope.
func seedRBAC(ctx context.Context, st *store.Store) (userRole, adminRole *models.Role, err error) {
	byAccess := map[string][]string{}
	for _, entity := range entities {
		for _, action := range actions {
			for _, access := range accesses {
				p := &models.Permission{Action: action, Entity: entity, Access: access}
				if err := st.CreatePermission(ctx, p); err != nil {
					return nil, nil, fmt.Errorf("seed permission %s:%s:%s: %w", action, entity, access, err)
				}
				byAccess[access] = append(byAccess[access], p.ID)
			}
		}
	}

	userRole = &models.Role{Name: "user", Description: "A regular user"}
	if err := st.CreateRole(ctx, userRole); err != nil {
		return nil, nil, fmt.Errorf("seed user role: %w", err)
	}
	adminRole = &models.Role{Name: "admin", Description: "An administrator"}
	if err := st.CreateRole(ctx, adminRole); err != nil {
		return nil, nil, fmt.Errorf("seed admin role: %w", err)
	}

	for _, id := range byAccess["own"] {
		if err := st.GrantPermission(ctx, userRole.ID, id); err != nil {
			return nil, nil, err
		}
	}
	for _, id := range byAccess["any"] {
		if err := st.GrantPermission(ctx, adminRole.ID, id); err != nil {
			return nil, nil, err
		}
	}
	return userRole, adminRole, nil
}

// seedFakeUser creates one generated user with the user role and one to
// three notes. The password is the username, which keeps seeded accounts
// trivially usable in manual testing.
func seedFakeUser(ctx context.Context, st *store.Store, faker *gofakeit.Faker, userRole *models.Role) error {
	first := faker.FirstName()
	last := faker.LastName()
	username := strings.ToLower(first + "_" + last + "_" + faker.DigitN(3))
	name := first + " " + last

	user := &models.User{
		Email:    username + "@example.com",
		Username: username,
		Name:     &name,
	}
	if err := st.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("seed user %s: %w", username, err)
	}

	hash, err := auth.HashPassword(user.Username)
	if err != nil {
		return err
	}
	if err := st.CreatePassword(ctx, &models.Password{Hash: hash, UserID: user.ID}); err != nil {
		return err
	}
	if err := st.AssignRole(ctx, user.ID, userRole.ID); err != nil {
		return err
	}

	noteCount := faker.Number(1, 3)
	for i := 0; i < noteCount; i++ {
		note := &models.Note{
			Title:   faker.Sentence(3),
			Content: faker.Paragraph(1, 3, 10, " "),
			OwnerID: user.ID,
		}
		if err := st.CreateNote(ctx, note); err != nil {
			return err
		}
	}
	return nil
}

func seedKody(ctx context.Context, st *store.Store, userRole, adminRole *models.Role) error {
	name := "Kody"
	kody := &models.User{
		Email:    kodyEmail,
		Username: kodyUsername,
		Name:     &name,
	}
	if err := st.CreateUser(ctx, kody); err != nil {
		return fmt.Errorf("seed kody: %w", err)
	}

	hash, err := auth.HashPassword(kodyUsername)
	if err != nil {
		return err
	}
	if err := st.CreatePassword(ctx, &models.Password{Hash: hash, UserID: kody.ID}); err != nil {
		return err
	}
	if err := st.AssignRole(ctx, kody.ID, userRole.ID); err != nil {
		return err
	}
	if err := st.AssignRole(ctx, kody.ID, adminRole.ID); err != nil {
		return err
	}

	return st.CreateNote(ctx, &models.Note{
		ID:      kodyNoteID,
		Title:   kodyNoteTitle,
		Content: kodyNoteContent,
		OwnerID: kody.ID,
	})
}
