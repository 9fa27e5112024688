package service

import (
	"context"
	"errors"
	"testing"

	"skillswap/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type browseFixture struct {
	repos            testRepos
	svc              *SearchService
	alice, bob, hide *models.User
}

func newBrowseFixture(t *testing.T, searcher UserSearcher) browseFixture {
	t.Helper()
	repos := newTestRepos(t)
	users := repos.userService(nil)

	a := registerInput("alice", "Guitar")
	a.SkillsWanted = []SkillInput{{Name: "Excel"}}
	a.Location = "Berlin, Germany"
	a.Availability = []string{"monday", "wednesday", "friday"}

	b := registerInput("bobby", "Excel")
	b.SkillsWanted = []SkillInput{{Name: "Guitar"}}
	b.Location = "Munich"
	b.Availability = []string{"monday"}

	h := registerInput("hidden", "Excel")
	h.Location = "Berlin"
	private := false
	h.IsPublic = &private

	return browseFixture{
		repos: repos,
		svc:   NewSearchService(repos.users, repos.skills, searcher),
		alice: mustRegister(t, users, a),
		bob:   mustRegister(t, users, b),
		hide:  mustRegister(t, users, h),
	}
}

func usernames(users []models.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func TestSearchService_Browse(t *testing.T) {
	f := newBrowseFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   BrowseInput
		want []string
	}{
		{"no filters lists public users in id order", BrowseInput{}, []string{"alice", "bobby"}},
		{"skill matches offered or wanted", BrowseInput{Skill: "excel"}, []string{"alice", "bobby"}},
		{"skill substring", BrowseInput{Skill: "uit"}, []string{"alice", "bobby"}},
		{"unknown skill", BrowseInput{Skill: "Cooking"}, []string{}},
		{"location substring", BrowseInput{Location: "BERLIN"}, []string{"alice"}},
		{"availability superset", BrowseInput{Availability: []string{"monday", "friday"}}, []string{"alice"}},
		{"availability shared day", BrowseInput{Availability: []string{"monday"}}, []string{"alice", "bobby"}},
		{"combined", BrowseInput{Skill: "Excel", Location: "munich"}, []string{"bobby"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := f.svc.Browse(ctx, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, usernames(users))
			for _, u := range users {
				assert.True(t, u.IsPublic)
				assert.NotEmpty(t, u.SkillsOffered, "skills are populated")
			}
		})
	}
}

func TestSearchService_BrowseRejectsBadAvailability(t *testing.T) {
	f := newBrowseFixture(t, nil)
	_, err := f.svc.Browse(context.Background(), BrowseInput{Availability: []string{"funday"}})
	appErr := appErrorOf(t, err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	assert.Equal(t, "availability", appErr.Fields[0].Field)
}

func TestSearchService_IndexResultsAreRechecked(t *testing.T) {
	searcher := &searcherStub{}
	f := newBrowseFixture(t, searcher)
	// A stale index still lists the private user and an id that no longer
	// exists, out of order.
	searcher.searchFn = func(context.Context, models.BrowseFilter) ([]uint, error) {
		return []uint{f.bob.ID, f.hide.ID, 999, f.alice.ID}, nil
	}

	users, err := f.svc.Browse(context.Background(), BrowseInput{Skill: "Excel"})
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bobby"}, usernames(users), "results come back in id order")
}

func TestSearchService_IndexErrorFallsBackToDatabase(t *testing.T) {
	searcher := &searcherStub{searchFn: func(context.Context, models.BrowseFilter) ([]uint, error) {
		return nil, errors.New("index unavailable")
	}}
	f := newBrowseFixture(t, searcher)

	users, err := f.svc.Browse(context.Background(), BrowseInput{Location: "munich"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bobby"}, usernames(users))
}

func TestSearchService_Skills(t *testing.T) {
	f := newBrowseFixture(t, nil)
	skills, err := f.svc.Skills(context.Background(), " excel ")
	require.NoError(t, err)
	assert.Len(t, skills, 3, "every registration created its own Excel entry")
}
