// Package notifications provides the per-user notification feed and its
// real-time delivery over WebSockets.
package notifications

import (
	"context"
	"sort"
	"sync"

	"skillswap/internal/models"
)

// MaxPerUser bounds how many notifications are retained for one user; the
// oldest are evicted first.
const MaxPerUser = 100

// Store holds notification feeds.
type Store interface {
	Add(ctx context.Context, n *models.Notification) error
	// List returns the user's notifications, newest first.
	List(ctx context.Context, userID uint) ([]models.Notification, error)
	// MarkRead is idempotent. It returns a NotFound error when id does not
	// belong to userID.
	MarkRead(ctx context.Context, userID uint, id string) error
	MarkAllRead(ctx context.Context, userID uint) error
}

// MemoryStore is a process-local Store used when Redis is unavailable.
type MemoryStore struct {
	mu    sync.Mutex
	feeds map[uint][]models.Notification
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{feeds: make(map[uint][]models.Notification)}
}

func (s *MemoryStore) Add(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed := append(s.feeds[n.UserID], *n)
	if len(feed) > MaxPerUser {
		feed = append([]models.Notification(nil), feed[len(feed)-MaxPerUser:]...)
	}
	s.feeds[n.UserID] = feed
	return nil
}

func (s *MemoryStore) List(_ context.Context, userID uint) ([]models.Notification, error) {
	s.mu.Lock()
	feed := s.feeds[userID]
	out := make([]models.Notification, len(feed))
	for i := range feed {
		out[len(feed)-1-i] = feed[i]
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, userID uint, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed := s.feeds[userID]
	for i := range feed {
		if feed[i].ID == id {
			feed[i].IsRead = true
			return nil
		}
	}
	return models.NewNotFoundError("Notification", id)
}

func (s *MemoryStore) MarkAllRead(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.feeds[userID] {
		s.feeds[userID][i].IsRead = true
	}
	return nil
}

// Unread filters feed down to unread entries, keeping order.
func Unread(feed []models.Notification) []models.Notification {
	out := make([]models.Notification, 0, len(feed))
	for _, n := range feed {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out
}
