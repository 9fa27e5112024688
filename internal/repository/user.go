package repository

import (
	"context"
	"errors"
	"strings"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User, offered, wanted []models.SkillRef) error
	Update(ctx context.Context, user *models.User, offered, wanted []models.SkillRef) error
	DeleteByUsername(ctx context.Context, username string) (bool, error)
	ListPublic(ctx context.Context, location string) ([]models.User, error)
	ListAfter(ctx context.Context, afterID uint, limit int) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	out := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// Create inserts the user and any new skills referenced by offered and wanted
// in one transaction, so a failed insert leaves no orphan catalog entries.
func (r *userRepository) Create(ctx context.Context, user *models.User, offered, wanted []models.SkillRef) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bindSkills(tx, user, offered, wanted); err != nil {
			return err
		}
		return tx.Create(user).Error
	})
	return mapUserWriteError(err)
}

// Update saves the profile and creates any new skills it references.
func (r *userRepository) Update(ctx context.Context, user *models.User, offered, wanted []models.SkillRef) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bindSkills(tx, user, offered, wanted); err != nil {
			return err
		}
		return tx.Save(user).Error
	})
	return mapUserWriteError(err)
}

func (r *userRepository) DeleteByUsername(ctx context.Context, username string) (bool, error) {
	res := r.db.WithContext(ctx).Where("username = ?", username).Delete(&models.User{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ListPublic returns public users in id order, optionally narrowed to
// locations containing location case-insensitively.
func (r *userRepository) ListPublic(ctx context.Context, location string) ([]models.User, error) {
	users := []models.User{}
	q := r.db.WithContext(ctx).Where("is_public = ?", true).Order("id ASC")
	if location = strings.TrimSpace(location); location != "" {
		q = q.Where(`LOWER(location) LIKE ? ESCAPE '\'`, containsPattern(location))
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

// ListAfter returns up to limit users with ids greater than afterID, public
// or not, in id order.
func (r *userRepository) ListAfter(ctx context.Context, afterID uint, limit int) ([]models.User, error) {
	users := []models.User{}
	if err := r.db.WithContext(ctx).Where("id > ?", afterID).Order("id ASC").Limit(limit).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func bindSkills(tx *gorm.DB, user *models.User, offered, wanted []models.SkillRef) error {
	resolve := func(refs []models.SkillRef) ([]uint, error) {
		ids := make([]uint, 0, len(refs))
		for _, ref := range refs {
			if ref.New != nil && ref.New.ID == 0 {
				if err := tx.Create(ref.New).Error; err != nil {
					return nil, err
				}
			}
			ids = append(ids, ref.ResolvedID())
		}
		return ids, nil
	}
	offeredIDs, err := resolve(offered)
	if err != nil {
		return err
	}
	wantedIDs, err := resolve(wanted)
	if err != nil {
		return err
	}
	user.SkillsOfferedIDs = offeredIDs
	user.SkillsWantedIDs = wantedIDs
	return nil
}

func mapUserWriteError(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueConstraintError(err) {
		switch violatedColumn(err, "username", "email") {
		case "username":
			return models.NewDuplicateError("username", "Username already taken")
		case "email":
			return models.NewDuplicateError("email", "Email already registered")
		default:
			return models.NewDuplicateError("", "User already exists")
		}
	}
	return models.NewInternalError(err)
}
