package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const maxSwapSkillNameLen = 100

// SwapService runs the swap request lifecycle.
type SwapService struct {
	swapRepo      repository.SwapRepository
	userRepo      repository.UserRepository
	notifications *NotificationService
}

// CreateSwapInput is the body of a new swap request.
type CreateSwapInput struct {
	ToUserID           uint   `json:"toUserId" form:"toUserId"`
	OfferedSkillName   string `json:"offeredSkillName" form:"offeredSkillName"`
	RequestedSkillName string `json:"requestedSkillName" form:"requestedSkillName"`
}

// NewSwapService returns a SwapService. notifications may be nil.
func NewSwapService(swapRepo repository.SwapRepository, userRepo repository.UserRepository, notifications *NotificationService) *SwapService {
	return &SwapService{swapRepo: swapRepo, userRepo: userRepo, notifications: notifications}
}

// Create opens a pending swap request from fromID and notifies the recipient.
func (s *SwapService) Create(ctx context.Context, fromID uint, in CreateSwapInput) (swap *models.SwapRequest, err error) {
	ctx, end := observability.StartSpan(ctx, "swap.Create", attribute.Int("user.id", int(fromID)))
	defer func() { end(err) }()

	in.OfferedSkillName = strings.TrimSpace(in.OfferedSkillName)
	in.RequestedSkillName = strings.TrimSpace(in.RequestedSkillName)

	var errs validation.Errors
	if in.ToUserID == 0 {
		errs.Add("toUserId", "recipient is required")
	}
	checkSwapSkillName(&errs, "offeredSkillName", in.OfferedSkillName)
	checkSwapSkillName(&errs, "requestedSkillName", in.RequestedSkillName)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	if in.ToUserID == fromID {
		return nil, models.NewValidationError("Cannot send a swap request to yourself")
	}

	from, err := s.userRepo.GetByID(ctx, fromID)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.GetByID(ctx, in.ToUserID); err != nil {
		return nil, err
	}

	swap = &models.SwapRequest{
		FromUserID:         fromID,
		ToUserID:           in.ToUserID,
		OfferedSkillName:   in.OfferedSkillName,
		RequestedSkillName: in.RequestedSkillName,
		Status:             models.SwapStatusPending,
	}
	if err := s.swapRepo.Create(ctx, swap); err != nil {
		return nil, err
	}

	s.notify(ctx, swap.ToUserID, models.NotificationNewSwapRequest,
		fmt.Sprintf("%s sent you a new swap request for %s.", from.Name, swap.RequestedSkillName), swap.ID)
	return swap, nil
}

func checkSwapSkillName(errs *validation.Errors, field, name string) {
	n := utf8.RuneCountInString(name)
	if n == 0 {
		errs.Add(field, "skill name is required")
	} else if n > maxSwapSkillNameLen {
		errs.Add(field, "skill name must not exceed 100 characters")
	}
}

// SetStatus moves a pending request to a terminal state on behalf of actorID.
// Only the recipient may accept or reject; only the requester may cancel.
func (s *SwapService) SetStatus(ctx context.Context, swapID, actorID uint, status string) (swap *models.SwapRequest, err error) {
	ctx, end := observability.StartSpan(ctx, "swap.SetStatus",
		attribute.Int("swap.id", int(swapID)), attribute.String("swap.status", status))
	defer func() { end(err) }()

	target, ok := models.ParseSwapStatus(strings.ToLower(strings.TrimSpace(status)))
	if !ok {
		var errs validation.Errors
		errs.Add("status", "status must be one of pending, accepted, rejected, cancelled")
		return nil, errs.Err()
	}

	swap, err = s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if !swap.Involves(actorID) {
		return nil, models.NewForbiddenError("You are not a party to this swap request")
	}
	if target == models.SwapStatusPending || swap.Status.Terminal() {
		return nil, models.NewInvalidTransitionError(string(swap.Status), string(target))
	}
	switch target {
	case models.SwapStatusAccepted, models.SwapStatusRejected:
		if actorID != swap.ToUserID {
			return nil, models.NewForbiddenError("Only the recipient can accept or reject a swap request")
		}
	case models.SwapStatusCancelled:
		if actorID != swap.FromUserID {
			return nil, models.NewForbiddenError("Only the requester can cancel a swap request")
		}
	}

	moved, err := s.swapRepo.TransitionFromPending(ctx, swapID, target)
	if err != nil {
		return nil, err
	}
	if !moved {
		// Lost a race with another transition.
		current, err := s.swapRepo.GetByID(ctx, swapID)
		if err != nil {
			return nil, err
		}
		return nil, models.NewInvalidTransitionError(string(current.Status), string(target))
	}
	observability.SwapTransitionsTotal.WithLabelValues(string(target)).Inc()

	swap, err = s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}

	actorName := "the other user"
	if actor, err := s.userRepo.GetByID(ctx, actorID); err == nil {
		actorName = actor.Name
	}
	s.notify(ctx, swap.CounterpartyOf(actorID), models.NotificationTypeForStatus(target),
		statusMessage(swap, target, actorName), swap.ID)
	return swap, nil
}

// statusMessage words the notice for the counterparty. A cancel reaches the
// recipient, who never sent the request.
func statusMessage(swap *models.SwapRequest, target models.SwapStatus, actorName string) string {
	if target == models.SwapStatusCancelled {
		return fmt.Sprintf("%s cancelled their swap request for %s.", actorName, swap.RequestedSkillName)
	}
	return fmt.Sprintf("Your swap request for %s has been %s by %s.", swap.OfferedSkillName, target, actorName)
}

// Delete removes a pending request. Only its requester may do so.
func (s *SwapService) Delete(ctx context.Context, swapID, actorID uint) error {
	swap, err := s.swapRepo.GetByID(ctx, swapID)
	if err != nil {
		return err
	}
	if swap.FromUserID != actorID {
		return models.NewForbiddenError("Only the requester can delete a swap request")
	}
	if swap.Status != models.SwapStatusPending {
		return models.NewForbiddenError("Only pending swap requests can be deleted")
	}
	deleted, err := s.swapRepo.DeletePending(ctx, swapID)
	if err != nil {
		return err
	}
	if !deleted {
		return models.NewForbiddenError("Only pending swap requests can be deleted")
	}
	return nil
}

// ListForUser returns every request involving userID, newest first, with
// both party names resolved.
func (s *SwapService) ListForUser(ctx context.Context, userID uint) ([]models.SwapRequestView, error) {
	swaps, err := s.swapRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(swaps)*2)
	for _, sw := range swaps {
		ids = append(ids, sw.FromUserID, sw.ToUserID)
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	nameOf := func(id uint) string {
		if u, ok := users[id]; ok {
			return u.Name
		}
		return ""
	}

	views := make([]models.SwapRequestView, 0, len(swaps))
	for _, sw := range swaps {
		v := models.SwapRequestView{
			SwapRequest:  sw,
			FromUserName: nameOf(sw.FromUserID),
			ToUserName:   nameOf(sw.ToUserID),
			Direction:    "received",
		}
		if sw.FromUserID == userID {
			v.Direction = "sent"
		}
		v.CounterpartyName = nameOf(sw.CounterpartyOf(userID))
		views = append(views, v)
	}
	return views, nil
}

func (s *SwapService) notify(ctx context.Context, userID uint, typ models.NotificationType, message string, swapID uint) {
	if s.notifications == nil {
		return
	}
	if _, err := s.notifications.Push(ctx, userID, typ, message, swapID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to record notification", "user_id", userID, "type", typ, "error", err)
	}
}
