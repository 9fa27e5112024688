package service

import (
	"context"
	"sort"
	"strings"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// SearchService answers browse queries over public profiles.
type SearchService struct {
	userRepo  repository.UserRepository
	skillRepo repository.SkillRepository
	searcher  UserSearcher
}

// BrowseInput is the raw browse query.
type BrowseInput struct {
	Skill        string
	Location     string
	Availability []string
}

// NewSearchService returns a SearchService. When searcher is nil every query
// is answered from the relational store.
func NewSearchService(userRepo repository.UserRepository, skillRepo repository.SkillRepository, searcher UserSearcher) *SearchService {
	return &SearchService{userRepo: userRepo, skillRepo: skillRepo, searcher: searcher}
}

// Browse returns public users matching every supplied filter, in id order,
// with skills populated.
func (s *SearchService) Browse(ctx context.Context, in BrowseInput) (users []models.User, err error) {
	ctx, end := observability.StartSpan(ctx, "search.Browse",
		attribute.String("browse.skill", in.Skill),
		attribute.String("browse.location", in.Location))
	defer func() { end(err) }()

	days, err := validation.ValidateAvailability(in.Availability)
	if err != nil {
		var errs validation.Errors
		errs.Check("availability", err)
		return nil, errs.Err()
	}
	filter := models.BrowseFilter{
		Skill:        strings.TrimSpace(in.Skill),
		Location:     strings.TrimSpace(in.Location),
		Availability: days,
	}

	var skillIDs map[uint]struct{}
	if filter.Skill != "" {
		matching, err := s.skillRepo.FindByNameSubstring(ctx, filter.Skill)
		if err != nil {
			return nil, err
		}
		if len(matching) == 0 {
			return []models.User{}, nil
		}
		skillIDs = make(map[uint]struct{}, len(matching))
		for _, sk := range matching {
			skillIDs[sk.ID] = struct{}{}
		}
	}

	candidates, err := s.candidates(ctx, filter)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.User, 0, len(candidates))
	for i := range candidates {
		if matches(&candidates[i], filter, skillIDs) {
			matched = append(matched, &candidates[i])
		}
	}
	if err := attachSkills(ctx, s.skillRepo, matched); err != nil {
		return nil, err
	}
	users = make([]models.User, 0, len(matched))
	for _, u := range matched {
		users = append(users, *u)
	}
	return users, nil
}

// candidates narrows the directory through the search index when one is
// configured, falling back to the relational filter on index errors.
func (s *SearchService) candidates(ctx context.Context, filter models.BrowseFilter) ([]models.User, error) {
	if s.searcher != nil {
		ids, err := s.searcher.SearchUserIDs(ctx, filter)
		if err == nil {
			byID, err := s.userRepo.GetByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			out := make([]models.User, 0, len(byID))
			for _, u := range byID {
				out = append(out, u)
			}
			sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
			return out, nil
		}
		middleware.Logger.WarnContext(ctx, "search index query failed, using database", "error", err)
	}
	return s.userRepo.ListPublic(ctx, filter.Location)
}

// matches re-checks every predicate against the authoritative row, so a stale
// index entry cannot expose a private or non-matching profile.
func matches(u *models.User, filter models.BrowseFilter, skillIDs map[uint]struct{}) bool {
	if !u.IsPublic {
		return false
	}
	if filter.Location != "" && !strings.Contains(strings.ToLower(u.Location), strings.ToLower(filter.Location)) {
		return false
	}
	if skillIDs != nil {
		found := false
		for _, id := range u.SkillIDs() {
			if _, ok := skillIDs[id]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return u.HasAvailability(filter.Availability)
}

// Skills lists catalog entries whose name contains q.
func (s *SearchService) Skills(ctx context.Context, q string) ([]models.Skill, error) {
	return s.skillRepo.FindByNameSubstring(ctx, strings.TrimSpace(q))
}
