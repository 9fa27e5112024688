package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Weekday is a lowercase English day name used for availability.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays lists valid availability values in calendar order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday normalizes s and reports whether it names a weekday.
func ParseWeekday(s string) (Weekday, bool) {
	w := Weekday(strings.ToLower(strings.TrimSpace(s)))
	for _, d := range Weekdays {
		if d == w {
			return w, true
		}
	}
	return "", false
}

// MaxSkillsPerList bounds both the offered and the wanted list.
const MaxSkillsPerList = 10

// User represents a member profile. Skill lists hold skill ids in the order
// the user supplied them; SkillsOffered and SkillsWanted are populated on read.
type User struct {
	ID               uint                         `gorm:"primaryKey" json:"id"`
	Username         string                       `gorm:"type:varchar(20);uniqueIndex;not null" json:"username"`
	Email            string                       `gorm:"type:varchar(254);uniqueIndex;not null" json:"email"`
	Password         string                       `gorm:"not null" json:"-"`
	Name             string                       `gorm:"type:varchar(40);not null" json:"name"`
	Location         string                       `gorm:"type:varchar(100)" json:"location,omitempty"`
	ProfilePhotoURL  string                       `gorm:"column:profile_photo_url" json:"profilePhotoUrl,omitempty"`
	IsPublic         bool                         `gorm:"not null;index" json:"isPublic"`
	Availability     datatypes.JSONSlice[Weekday] `gorm:"not null" json:"availability"`
	SkillsOfferedIDs datatypes.JSONSlice[uint]    `gorm:"column:skills_offered;not null" json:"-"`
	SkillsWantedIDs  datatypes.JSONSlice[uint]    `gorm:"column:skills_wanted;not null" json:"-"`
	CreatedAt        time.Time                    `json:"createdAt"`
	UpdatedAt        time.Time                    `json:"updatedAt"`

	SkillsOffered []Skill `gorm:"-" json:"skillsOffered"`
	SkillsWanted  []Skill `gorm:"-" json:"skillsWanted"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// HasAvailability reports whether the user is available on every day in days.
func (u *User) HasAvailability(days []Weekday) bool {
	for _, d := range days {
		found := false
		for _, a := range u.Availability {
			if a == d {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SkillIDs returns the union of offered and wanted ids, offered first.
func (u *User) SkillIDs() []uint {
	out := make([]uint, 0, len(u.SkillsOfferedIDs)+len(u.SkillsWantedIDs))
	seen := make(map[uint]struct{}, cap(out))
	for _, list := range [][]uint{u.SkillsOfferedIDs, u.SkillsWantedIDs} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Identity is the snapshot carried inside an access token.
type Identity struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	Name     string `json:"name"`
	TokenID  string `json:"-"`
	// ExpiresAt is when the token backing this identity stops being valid.
	ExpiresAt time.Time `json:"-"`
}

// BrowseFilter narrows the public user directory. Empty fields do not filter.
type BrowseFilter struct {
	Skill        string
	Location     string
	Availability []Weekday
}
