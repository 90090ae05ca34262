package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fileshare/internal/database"

	gorillaws "github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func shareURL(fileID int64) string {
	return fmt.Sprintf("/user/files/share/%d/", fileID)
}

func shareWith(t *testing.T, fileID int64, recipientID int64, token string) *httptest.ResponseRecorder {
	t.Helper()
	return doRequest(t, http.MethodPost, shareURL(fileID), jsonBody(t, ShareRequest{Recipient: &recipientID}), token)
}

func TestShareFileHandler_Scenario(t *testing.T) {
	a := createTestUser(t, "share_a")
	b := createTestUser(t, "share_b")
	c := createTestUser(t, "share_c")
	file := uploadTestFile(t, a, "file1.txt", "one")
	tokenA := tokenFor(t, a)

	rr := shareWith(t, file.ID, b.ID, tokenA)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "File shared with share_b successfully.", decodeResponse[MessageResponse](t, rr).Message)

	rr = shareWith(t, file.ID, b.ID, tokenA)
	requireError(t, rr, http.StatusBadRequest, "This file has already been shared with the recipient.")

	rr = shareWith(t, file.ID, a.ID, tokenA)
	requireError(t, rr, http.StatusBadRequest, "You cannot share a file with yourself.")

	rr = shareWith(t, file.ID, b.ID, tokenFor(t, c))
	requireError(t, rr, http.StatusNotFound, "File not found or you do not have permission to share it.")

	allowed, err := testServer.store.ListAllowedUsers(context.Background(), file.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID}, allowed)
}

func TestShareFileHandler_Validation(t *testing.T) {
	owner := createTestUser(t, "sharev_owner")
	file := uploadTestFile(t, owner, "v.txt", "v")
	token := tokenFor(t, owner)

	t.Run("unknown recipient", func(t *testing.T) {
		rr := shareWith(t, file.ID, 999999999, token)
		requireError(t, rr, http.StatusBadRequest, "Invalid recipient.")
	})

	t.Run("missing recipient", func(t *testing.T) {
		rr := doRequest(t, http.MethodPost, shareURL(file.ID), bytes.NewReader([]byte(`{}`)), token)
		requireError(t, rr, http.StatusBadRequest, "recipient")
	})

	t.Run("malformed body", func(t *testing.T) {
		rr := doRequest(t, http.MethodPost, shareURL(file.ID), strings.NewReader(`{"recipient": "abc"`), token)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown file", func(t *testing.T) {
		other := createTestUser(t, "sharev_other")
		rr := shareWith(t, 999999999, other.ID, token)
		require.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("non numeric file id", func(t *testing.T) {
		rr := doRequest(t, http.MethodPost, "/user/files/share/abc/", jsonBody(t, map[string]int64{"recipient": owner.ID}), token)
		require.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rr := shareWith(t, file.ID, owner.ID, "")
		require.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestShareFileHandler_CountsRejectedBodies(t *testing.T) {
	owner := createTestUser(t, "sharem_owner")
	file := uploadTestFile(t, owner, "m.txt", "m")
	token := tokenFor(t, owner)

	counter := shareAttemptsTotal.WithLabelValues(shareOutcomeBadRequest)
	before := testutil.ToFloat64(counter)

	rr := doRequest(t, http.MethodPost, shareURL(file.ID), strings.NewReader(`{"recipient": `), token)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	rr = doRequest(t, http.MethodPost, shareURL(file.ID), strings.NewReader(`{}`), token)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	require.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestShareFileHandler_ConcurrentRequests(t *testing.T) {
	owner := createTestUser(t, "sharec_owner")
	recipient := createTestUser(t, "sharec_recipient")
	file := uploadTestFile(t, owner, "race.txt", "race")
	token := tokenFor(t, owner)

	const workers = 8
	codes := make([]int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(ShareRequest{Recipient: &recipient.ID})
			req := httptest.NewRequest(http.MethodPost, shareURL(file.ID), bytes.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			testRouter.ServeHTTP(rr, req)
			codes[i] = rr.Code
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusBadRequest:
			rejected++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, workers-1, rejected)

	events, err := testServer.store.GetEventsSince(context.Background(), recipient.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1, "only the successful share is journaled")
}

func TestShareFileHandler_NotifiesRecipient(t *testing.T) {
	owner := createTestUser(t, "sharews_owner")
	recipient := createTestUser(t, "sharews_recipient")
	file := uploadTestFile(t, owner, "live.txt", "live")

	srv := httptest.NewServer(testRouter)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + tokenFor(t, recipient)
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return testServer.wsHub.ClientCount(recipient.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	rr := shareWith(t, file.ID, recipient.ID, tokenFor(t, owner))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event struct {
		EventType string            `json:"event_type"`
		Payload   fileSharedPayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg, &event))
	require.Equal(t, database.EventFileSharedWithYou, event.EventType)
	require.Equal(t, file.ID, event.Payload.FileID)
	require.Equal(t, "live.txt", event.Payload.FileName)
	require.Equal(t, owner.ID, event.Payload.OwnerID)
	require.Equal(t, "sharews_owner", event.Payload.OwnerUsername)

	rr = doRequest(t, http.MethodGet, "/events/", nil, tokenFor(t, recipient))
	require.Equal(t, http.StatusOK, rr.Code)
	events := decodeResponse[[]database.Event](t, rr)
	require.Len(t, events, 1)
	require.Equal(t, database.EventFileSharedWithYou, events[0].EventType)
}

func TestWebsocket_RejectsMissingToken(t *testing.T) {
	srv := httptest.NewServer(testRouter)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListOutgoingSharesHandler(t *testing.T) {
	owner := createTestUser(t, "outgoing_owner")
	r1 := createTestUser(t, "outgoing_r1")
	r2 := createTestUser(t, "outgoing_r2")
	file := uploadTestFile(t, owner, "out.txt", "o")
	token := tokenFor(t, owner)

	require.Equal(t, http.StatusOK, shareWith(t, file.ID, r1.ID, token).Code)
	require.Equal(t, http.StatusOK, shareWith(t, file.ID, r2.ID, token).Code)

	rr := doRequest(t, http.MethodGet, "/user/files/outgoing/", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	shares := decodeResponse[[]database.OutgoingShare](t, rr)
	require.Len(t, shares, 2)

	recipients := []string{shares[0].RecipientUsername, shares[1].RecipientUsername}
	require.ElementsMatch(t, []string{"outgoing_r1", "outgoing_r2"}, recipients)
	for _, s := range shares {
		require.Equal(t, file.ID, s.FileID)
		require.Equal(t, "out.txt", s.FileName)
	}
}
