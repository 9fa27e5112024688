package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WSTicketRequired authenticates a WebSocket upgrade with a single-use
// ticket from POST /ws/ticket. The ticket is only consumed for genuine
// upgrade requests.
func (s *Server) WSTicketRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired,
				models.NewValidationError("WebSocket upgrade required"))
		}

		ticket := c.Query("ticket")
		if ticket == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("WebSocket ticket required"))
		}

		userID, err := s.tickets.Consume(c.UserContext(), ticket)
		if errors.Is(err, errInvalidTicket) {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
		}
		if err != nil {
			return fail(c, models.NewInternalError(err))
		}

		c.Locals(middleware.LocalUserID, userID)
		c.SetUserContext(context.WithValue(c.UserContext(), middleware.UserIDKey, userID))
		return c.Next()
	}
}

// NotificationsWebSocket handles GET /ws/notifications. Unread entries are
// replayed on connect, oldest first; later ones arrive as they are pushed.
func (s *Server) NotificationsWebSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals(middleware.LocalUserID).(uint)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("notification socket rejected",
				slog.Uint64("user_id", uint64(userID)), slog.String("error", err.Error()))
			_ = conn.WriteJSON(fiber.Map{"error": err.Error()})
			_ = conn.Close()
			return
		}

		s.replayUnread(client)

		go client.WritePump()
		client.ReadPump()
	})
}

func (s *Server) replayUnread(client *notifications.Client) {
	ctx, cancel := context.WithTimeout(s.shutdownCtx, 5*time.Second)
	defer cancel()

	unread, err := s.notificationService.Unread(ctx, client.UserID)
	if err != nil {
		middleware.Logger.Error("failed to load unread notifications",
			slog.Uint64("user_id", uint64(client.UserID)), slog.String("error", err.Error()))
		return
	}
	for i := len(unread) - 1; i >= 0; i-- {
		msg, err := notifications.Encode(unread[i])
		if err != nil {
			continue
		}
		if !client.TrySend([]byte(msg)) {
			return
		}
	}
}
