package service

import (
	"encoding/json"
	"strings"

	"skillswap/internal/models"
	"skillswap/internal/validation"
)

// SkillInput is one entry of a skillsOffered/skillsWanted list. It decodes
// from either a bare name string or a {name, category, level} object.
type SkillInput struct {
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Level    string `json:"level,omitempty"`
}

func (in *SkillInput) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*in = SkillInput{Name: name}
		return nil
	}
	type plain SkillInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*in = SkillInput(p)
	return nil
}

func (in SkillInput) normalized() SkillInput {
	return SkillInput{
		Name:     strings.TrimSpace(in.Name),
		Category: strings.TrimSpace(in.Category),
		Level:    strings.TrimSpace(in.Level),
	}
}

// checkSkillList validates a list and drops repeated names (compared
// case-insensitively), keeping the first occurrence.
func checkSkillList(errs *validation.Errors, field string, list []SkillInput) []SkillInput {
	if len(list) > models.MaxSkillsPerList {
		errs.Add(field, "at most 10 skills are allowed")
		return nil
	}
	out := make([]SkillInput, 0, len(list))
	seen := make(map[string]struct{}, len(list))
	for _, raw := range list {
		in := raw.normalized()
		if err := validation.ValidateSkill(in.Name, in.Category, in.Level); err != nil {
			errs.Check(field, err)
			return nil
		}
		key := strings.ToLower(in.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, in)
	}
	return out
}

// newSkillRefs turns every input into a new catalog entry.
func newSkillRefs(list []SkillInput) []models.SkillRef {
	refs := make([]models.SkillRef, 0, len(list))
	for _, in := range list {
		refs = append(refs, models.SkillRef{New: &models.Skill{Name: in.Name, Category: in.Category, Level: in.Level}})
	}
	return refs
}

// resolveSkillRefs reuses the id of a skill the user already lists under the
// same name when the submitted category and level agree with it; a blank
// field agrees with anything. Everything else becomes a new catalog entry.
func resolveSkillRefs(list []SkillInput, current []models.Skill) []models.SkillRef {
	byName := make(map[string][]models.Skill, len(current))
	for _, s := range current {
		key := strings.ToLower(s.Name)
		byName[key] = append(byName[key], s)
	}
	refs := make([]models.SkillRef, 0, len(list))
	seen := make(map[uint]struct{}, len(list))
	for _, in := range list {
		if id, ok := reusableSkill(in, byName[strings.ToLower(in.Name)], seen); ok {
			seen[id] = struct{}{}
			refs = append(refs, models.SkillRef{ID: id})
			continue
		}
		refs = append(refs, models.SkillRef{New: &models.Skill{Name: in.Name, Category: in.Category, Level: in.Level}})
	}
	return refs
}

func reusableSkill(in SkillInput, candidates []models.Skill, taken map[uint]struct{}) (uint, bool) {
	agrees := func(submitted, stored string) bool {
		return submitted == "" || strings.EqualFold(submitted, stored)
	}
	for _, s := range candidates {
		if _, dup := taken[s.ID]; dup {
			continue
		}
		if agrees(in.Category, s.Category) && agrees(in.Level, s.Level) {
			return s.ID, true
		}
	}
	return 0, false
}
