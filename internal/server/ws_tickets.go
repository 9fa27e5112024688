package server

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"skillswap/internal/middleware"
	"skillswap/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const wsTicketTTL = 30 * time.Second

var errInvalidTicket = errors.New("invalid or expired websocket ticket")

type localTicket struct {
	userID    uint
	expiresAt time.Time
}

// ticketStore issues single-use WebSocket tickets. Tickets live in Redis
// when it is configured and in process memory otherwise.
type ticketStore struct {
	rdb *redis.Client
	now func() time.Time

	mu    sync.Mutex
	local map[string]localTicket
}

func newTicketStore(rdb *redis.Client) *ticketStore {
	return &ticketStore{
		rdb:   rdb,
		now:   time.Now,
		local: make(map[string]localTicket),
	}
}

func ticketKey(ticket string) string {
	return fmt.Sprintf("ws_ticket:%s", ticket)
}

// Issue creates a ticket for userID valid for wsTicketTTL.
func (t *ticketStore) Issue(ctx context.Context, userID uint) (string, error) {
	ticket := uuid.NewString()
	if t.rdb != nil {
		if err := t.rdb.Set(ctx, ticketKey(ticket), userID, wsTicketTTL).Err(); err != nil {
			return "", err
		}
		return ticket, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for k, v := range t.local {
		if now.After(v.expiresAt) {
			delete(t.local, k)
		}
	}
	t.local[ticket] = localTicket{userID: userID, expiresAt: now.Add(wsTicketTTL)}
	return ticket, nil
}

// Consume redeems ticket and returns its user. A ticket can be redeemed once.
func (t *ticketStore) Consume(ctx context.Context, ticket string) (uint, error) {
	if t.rdb != nil {
		// GETDEL so two concurrent upgrades cannot share a ticket.
		raw, err := t.rdb.GetDel(ctx, ticketKey(ticket)).Result()
		if errors.Is(err, redis.Nil) {
			return 0, errInvalidTicket
		}
		if err != nil {
			return 0, err
		}
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || userID == 0 {
			return 0, errInvalidTicket
		}
		return uint(userID), nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.local[ticket]
	if !ok {
		return 0, errInvalidTicket
	}
	delete(t.local, ticket)
	if t.now().After(entry.expiresAt) {
		return 0, errInvalidTicket
	}
	return entry.userID, nil
}

// IssueWSTicket handles POST /ws/ticket
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID, _ := middleware.UserID(c)
	ticket, err := s.tickets.Issue(c.UserContext(), userID)
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}
