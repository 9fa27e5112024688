package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"skillswap/internal/featureflags"
	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxLocationLen = 100
	maxPhotoURLLen = 2048
)

// UserSearcher mirrors profiles into a search index and queries it.
type UserSearcher interface {
	IndexUser(ctx context.Context, user *models.User) error
	SearchUserIDs(ctx context.Context, filter models.BrowseFilter) ([]uint, error)
}

// UserService manages registration and profiles.
type UserService struct {
	userRepo   repository.UserRepository
	skillRepo  repository.SkillRepository
	searcher   UserSearcher
	flags      *featureflags.Manager
	bcryptCost int
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Username        string       `json:"username" form:"username"`
	Email           string       `json:"email" form:"email"`
	Password        string       `json:"password" form:"password"`
	Name            string       `json:"name" form:"name"`
	Location        string       `json:"location" form:"location"`
	ProfilePhotoURL string       `json:"profilePhotoUrl" form:"profilePhotoUrl"`
	IsPublic        *bool        `json:"isPublic" form:"isPublic"`
	Availability    []string     `json:"availability" form:"availability"`
	SkillsOffered   []SkillInput `json:"skillsOffered" form:"-"`
	SkillsWanted    []SkillInput `json:"skillsWanted" form:"-"`
}

// UpdateProfileInput carries only the fields the caller supplied.
type UpdateProfileInput struct {
	UserID          uint          `json:"-"`
	Name            *string       `json:"name"`
	Email           *string       `json:"email"`
	Password        *string       `json:"password"`
	Location        *string       `json:"location"`
	ProfilePhotoURL *string       `json:"profilePhotoUrl"`
	IsPublic        *bool         `json:"isPublic"`
	Availability    *[]string     `json:"availability"`
	SkillsOffered   *[]SkillInput `json:"skillsOffered"`
	SkillsWanted    *[]SkillInput `json:"skillsWanted"`
}

// NewUserService returns a UserService. searcher and flags may be nil.
func NewUserService(
	userRepo repository.UserRepository,
	skillRepo repository.SkillRepository,
	searcher UserSearcher,
	flags *featureflags.Manager,
	bcryptCost int,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		skillRepo:  skillRepo,
		searcher:   searcher,
		flags:      flags,
		bcryptCost: bcryptCost,
	}
}

// Register validates and stores a new account with its skills.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	ctx, end := observability.StartSpan(ctx, "user.Register")
	defer func() { end(err) }()

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	in.ProfilePhotoURL = strings.TrimSpace(in.ProfilePhotoURL)

	var errs validation.Errors
	errs.Check("username", validation.ValidateUsername(in.Username))
	errs.Check("email", validation.ValidateEmail(in.Email))
	errs.Check("password", validation.ValidatePassword(in.Password))
	errs.Check("name", validation.ValidateName(in.Name, s.flags.Enabled(featureflags.StrictNameAlnum, 0)))
	checkProfileText(&errs, in.Location, in.ProfilePhotoURL)
	availability, availErr := validation.ValidateAvailability(in.Availability)
	errs.Check("availability", availErr)
	if len(in.SkillsOffered) == 0 {
		errs.Add("skillsOffered", "at least one offered skill is required")
	}
	offered := checkSkillList(&errs, "skillsOffered", in.SkillsOffered)
	wanted := checkSkillList(&errs, "skillsWanted", in.SkillsWanted)
	if err := errs.Err(); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewDuplicateError("username", "Username already taken")
	}
	existing, err = s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewDuplicateError("email", "Email already registered")
	}

	hash, err := hashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}
	user = &models.User{
		Username:        in.Username,
		Email:           in.Email,
		Password:        hash,
		Name:            in.Name,
		Location:        in.Location,
		ProfilePhotoURL: in.ProfilePhotoURL,
		IsPublic:        isPublic,
		Availability:    availability,
	}
	offeredRefs, wantedRefs := newSkillRefs(offered), newSkillRefs(wanted)
	if err := s.userRepo.Create(ctx, user, offeredRefs, wantedRefs); err != nil {
		return nil, err
	}
	user.SkillsOffered = refsToSkills(offeredRefs)
	user.SkillsWanted = refsToSkills(wantedRefs)

	observability.RegistrationsTotal.Inc()
	s.index(ctx, user)
	return user, nil
}

func refsToSkills(refs []models.SkillRef) []models.Skill {
	out := make([]models.Skill, 0, len(refs))
	for _, r := range refs {
		if r.New != nil {
			out = append(out, *r.New)
		}
	}
	return out
}

func checkProfileText(errs *validation.Errors, location, photoURL string) {
	if utf8.RuneCountInString(location) > maxLocationLen {
		errs.Add("location", "location must not exceed 100 characters")
	}
	if len(photoURL) > maxPhotoURLLen {
		errs.Add("profilePhotoUrl", "profile photo URL is too long")
	}
}

// GetUser returns the user with both skill lists populated.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.attachSkills(ctx, []*models.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// GetProfile returns username's profile as seen by viewerID (0 for anonymous).
// Private profiles are only visible to their owner.
func (s *UserService) GetProfile(ctx context.Context, username string, viewerID uint) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	if !user.IsPublic && user.ID != viewerID {
		return nil, models.NewForbiddenError("This profile is private")
	}
	if err := s.attachSkills(ctx, []*models.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile applies the supplied fields. Skill names the user already
// lists keep their ids; other names become new catalog entries.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (user *models.User, err error) {
	ctx, end := observability.StartSpan(ctx, "user.UpdateProfile", attribute.Int("user.id", int(in.UserID)))
	defer func() { end(err) }()

	user, err = s.GetUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	var errs validation.Errors
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		errs.Check("name", validation.ValidateName(name, s.flags.Enabled(featureflags.StrictNameAlnum, user.ID)))
		user.Name = name
	}
	var newEmail string
	if in.Email != nil {
		newEmail = strings.TrimSpace(*in.Email)
		errs.Check("email", validation.ValidateEmail(newEmail))
	}
	if in.Password != nil {
		errs.Check("password", validation.ValidatePassword(*in.Password))
	}
	if in.Location != nil {
		user.Location = strings.TrimSpace(*in.Location)
	}
	if in.ProfilePhotoURL != nil {
		user.ProfilePhotoURL = strings.TrimSpace(*in.ProfilePhotoURL)
	}
	checkProfileText(&errs, user.Location, user.ProfilePhotoURL)
	if in.IsPublic != nil {
		user.IsPublic = *in.IsPublic
	}
	if in.Availability != nil {
		days, availErr := validation.ValidateAvailability(*in.Availability)
		errs.Check("availability", availErr)
		user.Availability = days
	}

	current := append(append([]models.Skill{}, user.SkillsOffered...), user.SkillsWanted...)
	offeredRefs := keepRefs(user.SkillsOffered)
	wantedRefs := keepRefs(user.SkillsWanted)
	if in.SkillsOffered != nil {
		if len(*in.SkillsOffered) == 0 {
			errs.Add("skillsOffered", "at least one offered skill is required")
		}
		offeredRefs = resolveSkillRefs(checkSkillList(&errs, "skillsOffered", *in.SkillsOffered), current)
	}
	if in.SkillsWanted != nil {
		wantedRefs = resolveSkillRefs(checkSkillList(&errs, "skillsWanted", *in.SkillsWanted), current)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	if in.Email != nil && !strings.EqualFold(newEmail, user.Email) {
		other, err := s.userRepo.GetByEmail(ctx, newEmail)
		if err != nil {
			return nil, err
		}
		if other != nil && other.ID != user.ID {
			return nil, models.NewDuplicateError("email", "Email already registered")
		}
	}
	if in.Email != nil {
		user.Email = newEmail
	}
	if in.Password != nil {
		hash, err := hashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.Password = hash
	}

	if err := s.userRepo.Update(ctx, user, offeredRefs, wantedRefs); err != nil {
		return nil, err
	}
	if err := s.attachSkills(ctx, []*models.User{user}); err != nil {
		return nil, err
	}
	s.index(ctx, user)
	return user, nil
}

func keepRefs(skills []models.Skill) []models.SkillRef {
	refs := make([]models.SkillRef, 0, len(skills))
	for _, s := range skills {
		refs = append(refs, models.SkillRef{ID: s.ID})
	}
	return refs
}

// attachSkills populates SkillsOffered and SkillsWanted with one catalog query.
func (s *UserService) attachSkills(ctx context.Context, users []*models.User) error {
	return attachSkills(ctx, s.skillRepo, users)
}

func attachSkills(ctx context.Context, skills repository.SkillRepository, users []*models.User) error {
	var ids []uint
	for _, u := range users {
		ids = append(ids, u.SkillIDs()...)
	}
	found, err := skills.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[uint]models.Skill, len(found))
	for _, sk := range found {
		byID[sk.ID] = sk
	}
	pick := func(list []uint) []models.Skill {
		out := make([]models.Skill, 0, len(list))
		for _, id := range list {
			if sk, ok := byID[id]; ok {
				out = append(out, sk)
			}
		}
		return out
	}
	for _, u := range users {
		u.SkillsOffered = pick(u.SkillsOfferedIDs)
		u.SkillsWanted = pick(u.SkillsWantedIDs)
	}
	return nil
}

// index mirrors user into the search index. Failures are logged; the
// relational store stays authoritative.
func (s *UserService) index(ctx context.Context, user *models.User) {
	if s.searcher == nil {
		return
	}
	if err := s.searcher.IndexUser(ctx, user); err != nil {
		observability.SearchIndexErrors.Inc()
		middleware.Logger.WarnContext(ctx, "search index update failed", "user_id", user.ID, "error", err)
	}
}
