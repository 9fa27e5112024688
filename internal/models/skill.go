// Package models contains data structures for the application's domain models.
package models

import "time"

// Skill is a catalog entry referenced by users through their offered and
// wanted id lists. Skills are never deduplicated by name.
type Skill struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(50);not null;index" json:"name"`
	Category  string    `gorm:"type:varchar(50)" json:"category,omitempty"`
	Level     string    `gorm:"type:varchar(50)" json:"level,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for GORM
func (Skill) TableName() string {
	return "skills"
}

// SkillRef points at an existing skill by ID or carries a new skill to be
// created when the owning profile is saved.
type SkillRef struct {
	ID  uint
	New *Skill
}

// ResolvedID returns the id of the referenced skill; zero until a new skill
// has been created.
func (r SkillRef) ResolvedID() uint {
	if r.New != nil {
		return r.New.ID
	}
	return r.ID
}
