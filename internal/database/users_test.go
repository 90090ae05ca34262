package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateAndGetUser(t *testing.T) {
	ctx := context.Background()
	avatar := "avatar_key_0000000001"

	user, err := testStore.CreateUser(ctx, CreateUserParams{
		Username:     "Get_User",
		Email:        "Get.User@Example.com",
		Slug:         "get-user",
		PasswordHash: "hash",
		Bio:          "hello",
		AvatarKey:    &avatar,
	})
	require.NoError(t, err)
	require.NotZero(t, user.ID)
	require.False(t, user.IsDisabled)
	require.NotZero(t, user.CreatedAt)

	byID, err := testStore.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, "Get_User", byID.Username)
	require.Equal(t, "hello", byID.Bio)
	require.Equal(t, avatar, *byID.AvatarKey)

	byName, err := testStore.GetUserByUsername(ctx, "Get_User")
	require.NoError(t, err)
	require.Equal(t, user.ID, byName.ID)

	byEmail, err := testStore.GetUserByEmail(ctx, "get.user@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail, "email lookup must ignore case")
	require.Equal(t, user.ID, byEmail.ID)

	missing, err := testStore.GetUserByUsername(ctx, "nonexistent")
	require.NoError(t, err)
	require.Nil(t, missing)

	missing, err = testStore.GetUserByID(ctx, -1)
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestCreateUser_Uniqueness(t *testing.T) {
	ctx := context.Background()
	createTestUser(t, "unique_user")

	_, err := testStore.CreateUser(ctx, CreateUserParams{
		Username: "unique_user", Email: "other@example.com", Slug: "x", PasswordHash: "h",
	})
	require.ErrorIs(t, err, ErrUsernameTaken)

	_, err = testStore.CreateUser(ctx, CreateUserParams{
		Username: "unique_user_2", Email: "UNIQUE_USER@example.com", Slug: "x", PasswordHash: "h",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestUpdateUserProfile(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t, "profile_user")
	createTestUser(t, "profile_taken")

	bio := "new bio"
	updated, err := testStore.UpdateUserProfile(ctx, user.ID, UpdateUserParams{Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, "new bio", updated.Bio)
	require.Equal(t, "profile_user", updated.Username, "untouched fields keep their value")
	require.Equal(t, user.Email, updated.Email)

	taken := "profile_taken"
	_, err = testStore.UpdateUserProfile(ctx, user.ID, UpdateUserParams{Username: &taken})
	require.ErrorIs(t, err, ErrUsernameTaken)

	_, err = testStore.UpdateUserProfile(ctx, -1, UpdateUserParams{Bio: &bio})
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSearchUsersByUsername(t *testing.T) {
	ctx := context.Background()
	createTestUser(t, "Search_Alpha")
	createTestUser(t, "search_beta")
	createTestUser(t, "searchXgamma")

	users, err := testStore.SearchUsersByUsername(ctx, "SEARCH", 10)
	require.NoError(t, err)
	require.Len(t, users, 3)
	require.Equal(t, "Search_Alpha", users[0].Username)

	users, err = testStore.SearchUsersByUsername(ctx, "search_", 10)
	require.NoError(t, err)
	require.Len(t, users, 2, "underscore must match literally, not as a wildcard")

	users, err = testStore.SearchUsersByUsername(ctx, "search", 1)
	require.NoError(t, err)
	require.Len(t, users, 1)

	users, err = testStore.SearchUsersByUsername(ctx, "no-such-user-anywhere", 10)
	require.NoError(t, err)
	require.Empty(t, users)
}

func TestEscapeLike(t *testing.T) {
	require.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
}
