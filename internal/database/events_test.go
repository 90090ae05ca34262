package database

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogAndGetEvents(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t, "events_user")

	err := testStore.LogEvent(ctx, user.ID, EventFileSharedWithYou, map[string]int64{"file_id": 1})
	require.NoError(t, err)
	err = testStore.LogEvent(ctx, user.ID, EventSharedFileDeleted, map[string]int64{"file_id": 1})
	require.NoError(t, err)

	events, err := testStore.GetEventsSince(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, EventFileSharedWithYou, events[0].EventType)
	require.Less(t, events[0].ID, events[1].ID)

	var msg struct {
		EventType string           `json:"event_type"`
		Payload   map[string]int64 `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(events[0].Payload, &msg))
	require.Equal(t, EventFileSharedWithYou, msg.EventType)
	require.EqualValues(t, 1, msg.Payload["file_id"])

	later, err := testStore.GetEventsSince(ctx, user.ID, events[0].ID)
	require.NoError(t, err)
	require.Len(t, later, 1)
	require.Equal(t, EventSharedFileDeleted, later[0].EventType)

	other := createTestUser(t, "events_other")
	none, err := testStore.GetEventsSince(ctx, other.ID, 0)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestExecTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t, "tx_user")

	err := testStore.ExecTx(ctx, func(q *Queries) error {
		if err := q.LogEvent(ctx, user.ID, "tx_rollback", nil); err != nil {
			return err
		}
		return ErrFileNotFound
	})
	require.ErrorIs(t, err, ErrFileNotFound)

	events, err := testStore.GetEventsSince(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Empty(t, events)
}
