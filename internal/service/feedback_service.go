package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"skillswap/internal/models"
	"skillswap/internal/repository"
	"skillswap/internal/validation"
)

// FeedbackService records post-swap ratings.
type FeedbackService struct {
	feedbackRepo repository.FeedbackRepository
	swapRepo     repository.SwapRepository
}

// FeedbackInput is the body of a feedback submission. ToUserID defaults to
// the other party of the swap.
type FeedbackInput struct {
	SwapID   uint   `json:"swapId" form:"swapId"`
	ToUserID uint   `json:"toUserId" form:"toUserId"`
	Rating   int    `json:"rating" form:"rating"`
	Comment  string `json:"comment" form:"comment"`
}

// NewFeedbackService returns a FeedbackService.
func NewFeedbackService(feedbackRepo repository.FeedbackRepository, swapRepo repository.SwapRepository) *FeedbackService {
	return &FeedbackService{feedbackRepo: feedbackRepo, swapRepo: swapRepo}
}

// Submit stores fromID's feedback on an accepted swap.
func (s *FeedbackService) Submit(ctx context.Context, fromID uint, in FeedbackInput) (*models.Feedback, error) {
	in.Comment = strings.TrimSpace(in.Comment)

	var errs validation.Errors
	if in.SwapID == 0 {
		errs.Add("swapId", "swap is required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		errs.Add("rating", "rating must be between 1 and 5")
	}
	if utf8.RuneCountInString(in.Comment) > models.MaxFeedbackComment {
		errs.Add("comment", "comment must not exceed 300 characters")
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	swap, err := s.swapRepo.GetByID(ctx, in.SwapID)
	if err != nil {
		return nil, err
	}
	if !swap.Involves(fromID) {
		return nil, models.NewForbiddenError("You are not a party to this swap request")
	}
	counterparty := swap.CounterpartyOf(fromID)
	if in.ToUserID == 0 {
		in.ToUserID = counterparty
	}
	if in.ToUserID != counterparty {
		return nil, models.NewForbiddenError("Feedback must be addressed to the other party of the swap")
	}
	if swap.Status != models.SwapStatusAccepted {
		return nil, models.NewInvalidStateError("Feedback can only be left for accepted swaps")
	}

	fb := &models.Feedback{
		SwapID:     swap.ID,
		FromUserID: fromID,
		ToUserID:   in.ToUserID,
		Rating:     in.Rating,
		Comment:    in.Comment,
	}
	if err := s.feedbackRepo.Create(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

// ListForUser returns feedback given or received by userID.
func (s *FeedbackService) ListForUser(ctx context.Context, userID uint) ([]models.FeedbackView, error) {
	items, err := s.feedbackRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]models.FeedbackView, 0, len(items))
	for _, fb := range items {
		dir := "received"
		if fb.FromUserID == userID {
			dir = "given"
		}
		views = append(views, models.FeedbackView{Feedback: fb, Direction: dir})
	}
	return views, nil
}
