package seed

import (
	"context"
	"fmt"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is set on every seeded account.
const DefaultPassword = "Passw0rd!"

// Options configure a seeding run.
type Options struct {
	RandomUsers int
	Password    string
	BcryptCost  int
	Clean       bool
	RandSeed    int64
}

// Result counts what a run wrote.
type Result struct {
	Users   int
	Skipped int
	Swaps   int
}

// Seeder writes the demo catalog and random profiles through the repositories.
type Seeder struct {
	db      *gorm.DB
	users   repository.UserRepository
	swaps   repository.SwapRepository
	catalog *Catalog
	opts    Options
}

// NewSeeder returns a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) (*Seeder, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Seeder{
		db:      db,
		users:   repository.NewUserRepository(db),
		swaps:   repository.NewSwapRepository(db),
		catalog: catalog,
		opts:    opts,
	}, nil
}

// Run seeds catalog users, their swaps and opts.RandomUsers random profiles.
// Catalog users that already exist are left untouched.
func (s *Seeder) Run(ctx context.Context) (Result, error) {
	var res Result
	if s.opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return res, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.opts.Password), s.opts.BcryptCost)
	if err != nil {
		return res, fmt.Errorf("hash seed password: %w", err)
	}

	created := make(map[string]uint, len(s.catalog.Users))
	for _, cu := range s.catalog.Users {
		existing, err := s.users.GetByUsername(ctx, cu.Username)
		if err != nil {
			return res, err
		}
		if existing != nil {
			res.Skipped++
			continue
		}
		user, offered, wanted := s.catalogUser(cu, string(hash))
		if err := s.users.Create(ctx, user, offered, wanted); err != nil {
			return res, fmt.Errorf("seed user %s: %w", cu.Username, err)
		}
		created[cu.Username] = user.ID
		res.Users++
	}

	for _, cs := range s.catalog.Swaps {
		from, okFrom := created[cs.From]
		to, okTo := created[cs.To]
		if !okFrom || !okTo {
			continue
		}
		status, _ := models.ParseSwapStatus(cs.Status)
		swap := &models.SwapRequest{
			FromUserID:         from,
			ToUserID:           to,
			OfferedSkillName:   cs.Offered,
			RequestedSkillName: cs.Requested,
			Status:             status,
		}
		if err := s.swaps.Create(ctx, swap); err != nil {
			return res, fmt.Errorf("seed swap %s->%s: %w", cs.From, cs.To, err)
		}
		res.Swaps++
	}

	factory := NewFactory(s.catalog, s.opts.RandSeed)
	for i := 0; i < s.opts.RandomUsers; i++ {
		user, offered, wanted := factory.BuildUser(string(hash))
		if err := s.users.Create(ctx, user, offered, wanted); err != nil {
			if models.IsCode(err, models.CodeDuplicate) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("seed random user: %w", err)
		}
		res.Users++
	}

	middleware.Logger.Info("seed complete", "users", res.Users, "skipped", res.Skipped, "swaps", res.Swaps)
	return res, nil
}

func (s *Seeder) catalogUser(cu CatalogUser, hash string) (*models.User, []models.SkillRef, []models.SkillRef) {
	days := make([]models.Weekday, 0, len(cu.Availability))
	for _, d := range cu.Availability {
		if w, ok := models.ParseWeekday(d); ok {
			days = append(days, w)
		}
	}
	user := &models.User{
		Username:        cu.Username,
		Email:           cu.Email,
		Password:        hash,
		Name:            cu.Name,
		Location:        cu.Location,
		ProfilePhotoURL: cu.Photo,
		IsPublic:        cu.Public,
		Availability:    days,
	}
	return user, s.refs(cu.Offered), s.refs(cu.Wanted)
}

func (s *Seeder) refs(keys []string) []models.SkillRef {
	skills := make([]CatalogSkill, 0, len(keys))
	for _, k := range keys {
		if sk, ok := s.catalog.Skill(k); ok {
			skills = append(skills, sk)
		}
	}
	return refsFor(skills)
}

// ResetUser deletes username so the next run can recreate it.
func (s *Seeder) ResetUser(ctx context.Context, username string) (bool, error) {
	return s.users.DeleteByUsername(ctx, username)
}

// ClearAll removes every persisted row.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if db.Dialector.Name() == "postgres" {
		return db.Exec(`TRUNCATE TABLE feedback, swap_requests, users, skills RESTART IDENTITY CASCADE;`).Error
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&models.Feedback{}, &models.SwapRequest{}, &models.User{}, &models.Skill{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
