package database

import (
	"context"
	"errors"
	"fileshare/internal/sharing"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func shareInTx(ctx context.Context, req sharing.Request) (*sharing.Grant, error) {
	var grant *sharing.Grant
	err := testStore.ExecTx(ctx, func(q *Queries) error {
		var err error
		grant, err = sharing.ShareFile(ctx, q, req)
		return err
	})
	return grant, err
}

func TestAddAllowedUser(t *testing.T) {
	ctx := context.Background()
	owner := createTestUser(t, "add_allowed_owner")
	reader := createTestUser(t, "add_allowed_reader")
	file := createTestFile(t, owner.ID, "a.txt")

	inserted, err := testStore.AddAllowedUser(ctx, file.ID, reader.ID)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = testStore.AddAllowedUser(ctx, file.ID, reader.ID)
	require.NoError(t, err)
	require.False(t, inserted, "second insert of the same pair is a no-op")

	allowed, err := testStore.IsAllowedUser(ctx, file.ID, reader.ID)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = testStore.IsAllowedUser(ctx, file.ID, owner.ID)
	require.NoError(t, err)
	require.False(t, allowed)

	_, err = testStore.AddAllowedUser(ctx, file.ID, -1)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestLockOwnedFile(t *testing.T) {
	ctx := context.Background()
	owner := createTestUser(t, "lock_owner")
	other := createTestUser(t, "lock_other")
	file := createTestFile(t, owner.ID, "locked.txt")

	got, err := testStore.LockOwnedFile(ctx, file.ID, owner.ID)
	require.NoError(t, err)
	require.Equal(t, file.ID, got.ID)

	got, err = testStore.LockOwnedFile(ctx, file.ID, other.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestShareFile_Scenario(t *testing.T) {
	ctx := context.Background()
	a := createTestUser(t, "scenario_a")
	b := createTestUser(t, "scenario_b")
	c := createTestUser(t, "scenario_c")
	file := createTestFile(t, a.ID, "file1.txt")

	grant, err := shareInTx(ctx, sharing.Request{RequesterID: a.ID, FileID: file.ID, RecipientID: b.ID})
	require.NoError(t, err)
	require.Equal(t, b.ID, grant.Recipient.ID)

	allowed, err := testStore.ListAllowedUsers(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID}, allowed)

	_, err = shareInTx(ctx, sharing.Request{RequesterID: a.ID, FileID: file.ID, RecipientID: b.ID})
	require.ErrorIs(t, err, sharing.ErrAlreadyShared)

	_, err = shareInTx(ctx, sharing.Request{RequesterID: a.ID, FileID: file.ID, RecipientID: a.ID})
	require.ErrorIs(t, err, sharing.ErrSelfShare)

	_, err = shareInTx(ctx, sharing.Request{RequesterID: c.ID, FileID: file.ID, RecipientID: b.ID})
	require.ErrorIs(t, err, sharing.ErrNotFoundOrForbidden)

	allowed, err = testStore.ListAllowedUsers(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID}, allowed, "failed shares must not change the set")
}

func TestShareFile_ConcurrentIdenticalRequests(t *testing.T) {
	ctx := context.Background()
	owner := createTestUser(t, "race_owner")
	recipient := createTestUser(t, "race_recipient")
	file := createTestFile(t, owner.ID, "race.txt")

	const workers = 8
	var succeeded, alreadyShared atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := shareInTx(gctx, sharing.Request{RequesterID: owner.ID, FileID: file.ID, RecipientID: recipient.ID})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, sharing.ErrAlreadyShared):
				alreadyShared.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.EqualValues(t, 1, succeeded.Load())
	require.EqualValues(t, workers-1, alreadyShared.Load())

	allowed, err := testStore.ListAllowedUsers(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{recipient.ID}, allowed)
}

func TestListOutgoingShares(t *testing.T) {
	ctx := context.Background()
	owner := createTestUser(t, "outgoing_owner")
	r1 := createTestUser(t, "outgoing_r1")
	r2 := createTestUser(t, "outgoing_r2")
	doc := createTestFile(t, owner.ID, "Doc")
	img := createTestFile(t, owner.ID, "Image")

	_, err := testStore.AddAllowedUser(ctx, doc.ID, r1.ID)
	require.NoError(t, err)
	_, err = testStore.AddAllowedUser(ctx, img.ID, r2.ID)
	require.NoError(t, err)

	shares, err := testStore.ListOutgoingShares(ctx, owner.ID, 100, 0)
	require.NoError(t, err)
	require.Len(t, shares, 2)

	byFile := make(map[int64]OutgoingShare)
	for _, s := range shares {
		byFile[s.FileID] = s
	}
	require.Equal(t, "Doc", byFile[doc.ID].FileName)
	require.Equal(t, "outgoing_r1", byFile[doc.ID].RecipientUsername)
	require.Equal(t, owner.ID, byFile[doc.ID].OwnerID)
	require.Equal(t, "Image", byFile[img.ID].FileName)
	require.Equal(t, "outgoing_r2", byFile[img.ID].RecipientUsername)

	none, err := testStore.ListOutgoingShares(ctx, r1.ID, 100, 0)
	require.NoError(t, err)
	require.Empty(t, none)
}
