package seed

import (
	"fmt"
	"strings"
	"unicode"

	"skillswap/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds random demo profiles from catalog skills.
type Factory struct {
	faker   *gofakeit.Faker
	catalog *Catalog
}

// NewFactory returns a Factory. A zero randSeed picks a random seed.
func NewFactory(catalog *Catalog, randSeed int64) *Factory {
	return &Factory{faker: gofakeit.New(randSeed), catalog: catalog}
}

// BuildUser returns an unsaved profile and fresh skill references for it.
// password must already be hashed.
func (f *Factory) BuildUser(password string) (*models.User, []models.SkillRef, []models.SkillRef) {
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := alnum(first+last, 14) + fmt.Sprintf("%d", f.faker.Number(100, 999))

	user := &models.User{
		Username:        username,
		Email:           strings.ToLower(username) + "@" + f.faker.DomainName(),
		Password:        password,
		Name:            truncate(first+" "+last, 40),
		Location:        truncate(f.faker.City()+", "+f.faker.Country(), 100),
		ProfilePhotoURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
		IsPublic:        f.faker.Number(1, 10) > 2,
		Availability:    f.availability(),
	}

	offered := f.pickSkills(f.faker.Number(1, 3), nil)
	wanted := f.pickSkills(f.faker.Number(0, 2), offered)
	return user, refsFor(offered), refsFor(wanted)
}

func (f *Factory) availability() []models.Weekday {
	days := make([]models.Weekday, 0, len(models.Weekdays))
	for _, d := range models.Weekdays {
		if f.faker.Bool() {
			days = append(days, d)
		}
	}
	return days
}

// pickSkills draws n distinct catalog skills, skipping any already in exclude.
func (f *Factory) pickSkills(n int, exclude []CatalogSkill) []CatalogSkill {
	taken := make(map[string]struct{}, len(exclude)+n)
	for _, s := range exclude {
		taken[s.Key] = struct{}{}
	}
	out := make([]CatalogSkill, 0, n)
	for _, i := range f.faker.Rand.Perm(len(f.catalog.Skills)) {
		if len(out) == n {
			break
		}
		s := f.catalog.Skills[i]
		if _, dup := taken[s.Key]; dup {
			continue
		}
		taken[s.Key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// refsFor creates a new skill row per entry. Catalog templates are copied,
// never shared between users.
func refsFor(skills []CatalogSkill) []models.SkillRef {
	refs := make([]models.SkillRef, 0, len(skills))
	for _, s := range skills {
		refs = append(refs, models.SkillRef{New: &models.Skill{Name: s.Name, Category: s.Category, Level: s.Level}})
	}
	return refs
}

func alnum(s string, max int) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(unicode.ToLower(r))
		}
		if b.Len() == max {
			break
		}
	}
	if b.Len() < 3 {
		b.WriteString("user")
	}
	return b.String()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
