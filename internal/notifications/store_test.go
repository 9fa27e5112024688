package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storesUnderTest(t *testing.T) map[string]Store {
	_, rdb := testutil.NewTestRedis(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(rdb),
	}
}

func note(userID uint, id string, at time.Time) *models.Notification {
	return &models.Notification{
		ID:        id,
		UserID:    userID,
		Type:      models.NotificationNewSwapRequest,
		Message:   "msg " + id,
		CreatedAt: at,
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Add(ctx, note(1, "a", base)))
			require.NoError(t, store.Add(ctx, note(1, "b", base.Add(time.Minute))))
			require.NoError(t, store.Add(ctx, note(2, "c", base)))

			feed, err := store.List(ctx, 1)
			require.NoError(t, err)
			require.Len(t, feed, 2)
			assert.Equal(t, "b", feed[0].ID)
			assert.Equal(t, "a", feed[1].ID)

			empty, err := store.List(ctx, 99)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestStore_MarkRead(t *testing.T) {
	now := time.Now()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Add(ctx, note(1, "a", now)))
			require.NoError(t, store.Add(ctx, note(1, "b", now.Add(time.Second))))

			require.NoError(t, store.MarkRead(ctx, 1, "a"))
			require.NoError(t, store.MarkRead(ctx, 1, "a"), "idempotent")

			err := store.MarkRead(ctx, 2, "a")
			assert.True(t, models.IsCode(err, models.CodeNotFound), "other user's id")

			feed, err := store.List(ctx, 1)
			require.NoError(t, err)
			unread := Unread(feed)
			require.Len(t, unread, 1)
			assert.Equal(t, "b", unread[0].ID)

			require.NoError(t, store.MarkAllRead(ctx, 1))
			feed, err = store.List(ctx, 1)
			require.NoError(t, err)
			assert.Empty(t, Unread(feed))
		})
	}
}

func TestStore_EvictsOldest(t *testing.T) {
	base := time.Now()
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < MaxPerUser+5; i++ {
				require.NoError(t, store.Add(ctx, note(7, fmt.Sprintf("n%03d", i), base.Add(time.Duration(i)*time.Second))))
			}
			feed, err := store.List(ctx, 7)
			require.NoError(t, err)
			require.Len(t, feed, MaxPerUser)
			assert.Equal(t, fmt.Sprintf("n%03d", MaxPerUser+4), feed[0].ID)
			assert.Equal(t, "n005", feed[len(feed)-1].ID)
		})
	}
}

func TestRedisStore_KeysExpire(t *testing.T) {
	mr, rdb := testutil.NewTestRedis(t)
	store := NewRedisStore(rdb)
	require.NoError(t, store.Add(context.Background(), note(3, "x", time.Now())))

	assert.Equal(t, FeedTTL, mr.TTL(feedKey(3)))
	assert.Equal(t, FeedTTL, mr.TTL(indexKey(3)))

	mr.FastForward(FeedTTL + time.Second)
	feed, err := store.List(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, feed)
}
