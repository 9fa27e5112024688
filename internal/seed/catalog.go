// Package seed loads demo data for development databases.
package seed

import (
	_ "embed"
	"fmt"

	"skillswap/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yml
var catalogYAML []byte

// Catalog is the embedded demo dataset.
type Catalog struct {
	Skills []CatalogSkill `yaml:"skills"`
	Users  []CatalogUser  `yaml:"users"`
	Swaps  []CatalogSwap  `yaml:"swaps"`
}

// CatalogSkill is a skill template referenced from users by key.
type CatalogSkill struct {
	Key      string `yaml:"key"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Level    string `yaml:"level"`
}

// CatalogUser is a fixed demo profile.
type CatalogUser struct {
	Username     string   `yaml:"username"`
	Email        string   `yaml:"email"`
	Name         string   `yaml:"name"`
	Location     string   `yaml:"location"`
	Photo        string   `yaml:"photo"`
	Public       bool     `yaml:"public"`
	Availability []string `yaml:"availability"`
	Offered      []string `yaml:"offered"`
	Wanted       []string `yaml:"wanted"`
}

// CatalogSwap is a demo swap request between two catalog users.
type CatalogSwap struct {
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Offered   string `yaml:"offered"`
	Requested string `yaml:"requested"`
	Status    string `yaml:"status"`
}

// LoadCatalog parses the embedded catalog and checks its cross references.
func LoadCatalog() (*Catalog, error) {
	return parseCatalog(catalogYAML)
}

func parseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse seed catalog: %w", err)
	}

	keys := make(map[string]struct{}, len(c.Skills))
	for _, s := range c.Skills {
		keys[s.Key] = struct{}{}
	}
	usernames := make(map[string]struct{}, len(c.Users))
	for _, u := range c.Users {
		usernames[u.Username] = struct{}{}
		for _, k := range append(append([]string{}, u.Offered...), u.Wanted...) {
			if _, ok := keys[k]; !ok {
				return nil, fmt.Errorf("seed user %s references unknown skill %q", u.Username, k)
			}
		}
	}
	for _, s := range c.Swaps {
		if _, ok := usernames[s.From]; !ok {
			return nil, fmt.Errorf("seed swap references unknown user %q", s.From)
		}
		if _, ok := usernames[s.To]; !ok {
			return nil, fmt.Errorf("seed swap references unknown user %q", s.To)
		}
		if _, ok := models.ParseSwapStatus(s.Status); !ok {
			return nil, fmt.Errorf("seed swap has invalid status %q", s.Status)
		}
	}
	return &c, nil
}

// Skill returns the template for key.
func (c *Catalog) Skill(key string) (CatalogSkill, bool) {
	for _, s := range c.Skills {
		if s.Key == key {
			return s, true
		}
	}
	return CatalogSkill{}, false
}
