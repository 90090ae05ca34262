package database

import (
	"context"
	"fileshare/internal/models"
	"strings"
	"testing"

	"github.com/jaevor/go-nanoid"
	"github.com/stretchr/testify/require"
)

var testKey = func() func() string {
	gen, err := nanoid.Standard(21)
	if err != nil {
		panic(err)
	}
	return gen
}()

func createTestUser(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := testStore.CreateUser(context.Background(), CreateUserParams{
		Username:     username,
		Email:        username + "@example.com",
		Slug:         strings.ToLower(username),
		PasswordHash: "$2a$10$not.a.real.hash",
	})
	require.NoError(t, err)
	return user
}

func createTestFile(t *testing.T, ownerID int64, name string) *models.File {
	t.Helper()
	file, err := testStore.CreateFile(context.Background(), CreateFileParams{
		OwnerID:    ownerID,
		StorageKey: testKey(),
		Name:       name,
		SizeBytes:  1234,
	})
	require.NoError(t, err)
	return file
}
