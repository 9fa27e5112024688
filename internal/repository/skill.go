package repository

import (
	"context"

	"skillswap/internal/models"

	"gorm.io/gorm"
)

// SkillRepository defines persistence operations for the skill catalog.
type SkillRepository interface {
	Create(ctx context.Context, skill *models.Skill) error
	FindByNameSubstring(ctx context.Context, query string) ([]models.Skill, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Skill, error)
}

type skillRepository struct {
	db *gorm.DB
}

// NewSkillRepository returns a new SkillRepository implementation.
func NewSkillRepository(db *gorm.DB) SkillRepository {
	return &skillRepository{db: db}
}

func (r *skillRepository) Create(ctx context.Context, skill *models.Skill) error {
	if err := r.db.WithContext(ctx).Create(skill).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// FindByNameSubstring matches case-insensitively in insertion order. An empty
// query returns the whole catalog.
func (r *skillRepository) FindByNameSubstring(ctx context.Context, query string) ([]models.Skill, error) {
	skills := []models.Skill{}
	q := r.db.WithContext(ctx).Order("id ASC")
	if query != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, containsPattern(query))
	}
	if err := q.Find(&skills).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return skills, nil
}

// GetByIDs returns the skills for ids in the order of ids. Unknown ids are
// dropped.
func (r *skillRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Skill, error) {
	if len(ids) == 0 {
		return []models.Skill{}, nil
	}
	var found []models.Skill
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	byID := make(map[uint]models.Skill, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}
	out := make([]models.Skill, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}
