package repository

import (
	"context"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// FeedbackRepository defines persistence operations for feedback.
type FeedbackRepository interface {
	Create(ctx context.Context, fb *models.Feedback) error
	ListForUser(ctx context.Context, userID uint) ([]models.Feedback, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository returns a new FeedbackRepository implementation.
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, fb *models.Feedback) error {
	if err := r.db.WithContext(ctx).Create(fb).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicateError("swapId", "Feedback already submitted for this swap")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// ListForUser returns feedback given or received by userID, newest first.
func (r *feedbackRepository) ListForUser(ctx context.Context, userID uint) ([]models.Feedback, error) {
	items := []models.Feedback{}
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}
