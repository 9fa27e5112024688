package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skillswap/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketStore_Redis(t *testing.T) {
	mr, rdb := testutil.NewTestRedis(t)
	store := newTicketStore(rdb)
	ctx := context.Background()

	t.Run("single use", func(t *testing.T) {
		ticket, err := store.Issue(ctx, 7)
		require.NoError(t, err)

		key := ticketKey(ticket)
		assert.True(t, mr.Exists(key))
		assert.Equal(t, wsTicketTTL, mr.TTL(key))

		userID, err := store.Consume(ctx, ticket)
		require.NoError(t, err)
		assert.Equal(t, uint(7), userID)

		// Verify ticket is GONE from Redis (atomic GetDel)
		assert.False(t, mr.Exists(key))

		_, err = store.Consume(ctx, ticket)
		assert.ErrorIs(t, err, errInvalidTicket)
	})

	t.Run("expires", func(t *testing.T) {
		ticket, err := store.Issue(ctx, 7)
		require.NoError(t, err)
		mr.FastForward(wsTicketTTL + time.Second)

		_, err = store.Consume(ctx, ticket)
		assert.ErrorIs(t, err, errInvalidTicket)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := store.Consume(ctx, "nope")
		assert.ErrorIs(t, err, errInvalidTicket)
	})
}

func TestTicketStore_Local(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	store := newTicketStore(nil)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	ticket, err := store.Issue(ctx, 3)
	require.NoError(t, err)
	userID, err := store.Consume(ctx, ticket)
	require.NoError(t, err)
	assert.Equal(t, uint(3), userID)
	_, err = store.Consume(ctx, ticket)
	assert.ErrorIs(t, err, errInvalidTicket)

	stale, err := store.Issue(ctx, 3)
	require.NoError(t, err)
	now = now.Add(wsTicketTTL + time.Second)
	_, err = store.Consume(ctx, stale)
	assert.ErrorIs(t, err, errInvalidTicket)

	// Issuing sweeps expired entries.
	_, _ = store.Issue(ctx, 4)
	now = now.Add(wsTicketTTL + time.Second)
	_, _ = store.Issue(ctx, 5)
	assert.Len(t, store.local, 1)
}

func TestIssueWSTicket(t *testing.T) {
	mr, rdb := testutil.NewTestRedis(t)
	ts := newTestServer(t, rdb, nil)
	ts.register(t, "alice", nil)
	token := ts.login(t, "alice")

	status, _ := ts.call(t, http.MethodPost, "/ws/ticket", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := ts.call(t, http.MethodPost, "/ws/ticket", nil, token)
	require.Equal(t, http.StatusOK, status)
	ticket := body["ticket"].(string)
	assert.Equal(t, float64(30), body["expires_in"])
	assert.Equal(t, "1", mustGet(t, mr.Get, ticketKey(ticket)))

	t.Run("plain request does not consume ticket", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ws/notifications?ticket="+ticket, nil)
		status, _ := ts.do(t, req, "")
		assert.Equal(t, http.StatusUpgradeRequired, status)
		assert.True(t, mr.Exists(ticketKey(ticket)))
	})
}

func mustGet(t *testing.T, get func(string) (string, error), key string) string {
	t.Helper()
	v, err := get(key)
	require.NoError(t, err)
	return v
}
