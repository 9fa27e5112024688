package repository

import (
	"context"
	"errors"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// SwapRepository defines persistence operations for swap requests.
type SwapRepository interface {
	Create(ctx context.Context, swap *models.SwapRequest) error
	GetByID(ctx context.Context, id uint) (*models.SwapRequest, error)
	ListForUser(ctx context.Context, userID uint) ([]models.SwapRequest, error)
	TransitionFromPending(ctx context.Context, id uint, to models.SwapStatus) (bool, error)
	DeletePending(ctx context.Context, id uint) (bool, error)
}

type swapRepository struct {
	db *gorm.DB
}

// NewSwapRepository returns a new SwapRepository implementation.
func NewSwapRepository(db *gorm.DB) SwapRepository {
	return &swapRepository{db: db}
}

func (r *swapRepository) Create(ctx context.Context, swap *models.SwapRequest) error {
	if err := r.db.WithContext(ctx).Create(swap).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *swapRepository) GetByID(ctx context.Context, id uint) (*models.SwapRequest, error) {
	var swap models.SwapRequest
	if err := r.db.WithContext(ctx).First(&swap, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Swap request", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &swap, nil
}

// ListForUser returns swaps where userID is either party, newest first.
func (r *swapRepository) ListForUser(ctx context.Context, userID uint) ([]models.SwapRequest, error) {
	swaps := []models.SwapRequest{}
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? OR to_user_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&swaps).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return swaps, nil
}

// TransitionFromPending moves a pending swap to status. It reports false when
// the swap was no longer pending, so concurrent transitions cannot both win.
func (r *swapRepository) TransitionFromPending(ctx context.Context, id uint, to models.SwapStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.SwapRequest{}).
		Where("id = ? AND status = ?", id, models.SwapStatusPending).
		Update("status", to)
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

// DeletePending removes the swap only while it is still pending.
func (r *swapRepository) DeletePending(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.SwapStatusPending).
		Delete(&models.SwapRequest{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected == 1, nil
}
