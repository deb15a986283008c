// Package directory holds the static specialist roster patients can be
// routed to. The table is injected at construction so tests and deployments
// can substitute their own roster.
package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Category is a specialist category tag (e.g. "Cardiologist").
type Category string

// CategoryUnclear is the sentinel used when symptoms could not be mapped to
// any known category.
const CategoryUnclear Category = "unclear"

const (
	CategoryCardiologist        Category = "Cardiologist"
	CategoryOrthopedist         Category = "Orthopedist"
	CategoryGeneralPractitioner Category = "General Practitioner"
)

// Specialist is a bookable practitioner.
type Specialist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	CalendarID string   `json:"calendar_id"`
	Experience string   `json:"experience,omitempty"`
	Expertise  string   `json:"expertise,omitempty"`
}

// Directory maps categories to specialists. Immutable after construction.
type Directory struct {
	byCategory map[Category][]Specialist
	byID       map[string]Specialist
	categories []Category
	aliases    map[string]Category
	fallback   Category
}

// categoryAliases folds the spellings the AI model tends to return onto
// canonical categories.
var categoryAliases = map[string]Category{
	"cardiologist":         CategoryCardiologist,
	"cardiology":           CategoryCardiologist,
	"orthopedist":          CategoryOrthopedist,
	"orthopedic":           CategoryOrthopedist,
	"orthopedics":          CategoryOrthopedist,
	"general practitioner": CategoryGeneralPractitioner,
	"general physician":    CategoryGeneralPractitioner,
	"general practice":     CategoryGeneralPractitioner,
	"gp":                   CategoryGeneralPractitioner,
}

// New builds a directory from the given roster. The fallback category is
// used by callers when a recognized category has no specialists.
func New(roster []Specialist, fallback Category) (*Directory, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("directory: roster is empty")
	}

	d := &Directory{
		byCategory: make(map[Category][]Specialist),
		byID:       make(map[string]Specialist),
		aliases:    categoryAliases,
		fallback:   fallback,
	}
	for _, s := range roster {
		if s.ID == "" || s.Name == "" || s.Category == "" {
			return nil, fmt.Errorf("directory: specialist %q missing id, name, or category", s.Name)
		}
		if _, dup := d.byID[s.ID]; dup {
			return nil, fmt.Errorf("directory: duplicate specialist id %q", s.ID)
		}
		d.byID[s.ID] = s
		d.byCategory[s.Category] = append(d.byCategory[s.Category], s)
	}

	for c := range d.byCategory {
		d.categories = append(d.categories, c)
	}
	sort.Slice(d.categories, func(i, j int) bool { return d.categories[i] < d.categories[j] })

	if _, ok := d.byCategory[fallback]; !ok {
		return nil, fmt.Errorf("directory: fallback category %q has no specialists", fallback)
	}
	return d, nil
}

// Default returns the built-in roster used when no directory file is
// configured.
func Default() *Directory {
	d, err := New([]Specialist{
		{ID: "card-1", Name: "Dr. Asha Rao", Category: CategoryCardiologist, CalendarID: "asha.rao@clinicflow.example", Experience: "15 years", Expertise: "Heart Disease, Cardiac Surgery"},
		{ID: "card-2", Name: "Dr. Nikhil Menon", Category: CategoryCardiologist, CalendarID: "nikhil.menon@clinicflow.example", Experience: "12 years", Expertise: "Preventive Cardiology"},
		{ID: "orth-1", Name: "Dr. Priya Shah", Category: CategoryOrthopedist, CalendarID: "priya.shah@clinicflow.example", Experience: "10 years", Expertise: "Sports Medicine, Joint Replacement"},
		{ID: "gp-1", Name: "Dr. Vikram Joshi", Category: CategoryGeneralPractitioner, CalendarID: "vikram.joshi@clinicflow.example", Experience: "20 years", Expertise: "Family Medicine"},
	}, CategoryGeneralPractitioner)
	if err != nil {
		panic(err)
	}
	return d
}

// LoadFile builds a directory from a JSON roster file.
func LoadFile(path string, fallback Category) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read roster file: %w", err)
	}
	var roster []Specialist
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("directory: parse roster file: %w", err)
	}
	return New(roster, fallback)
}

// Lookup returns the specialists for a category. The returned slice is a
// copy; an unrecognized category yields an empty slice.
func (d *Directory) Lookup(category Category) []Specialist {
	src := d.byCategory[category]
	out := make([]Specialist, len(src))
	copy(out, src)
	return out
}

// ByID returns the specialist with the given id.
func (d *Directory) ByID(id string) (Specialist, bool) {
	s, ok := d.byID[id]
	return s, ok
}

// Categories returns the recognized categories in stable order.
func (d *Directory) Categories() []Category {
	out := make([]Category, len(d.categories))
	copy(out, d.categories)
	return out
}

// Fallback is the category used when a classified category has no
// specialists.
func (d *Directory) Fallback() Category {
	return d.fallback
}

// Normalize folds a free-text category name onto a recognized category.
// Matching is exact first, then alias, then a case-insensitive category
// name inside the text, then a word-prefix fragment of at least four
// characters.
func (d *Directory) Normalize(raw string) (Category, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CategoryUnclear, false
	}
	lower := strings.ToLower(raw)

	for _, c := range d.categories {
		if strings.ToLower(string(c)) == lower {
			return c, true
		}
	}
	if c, ok := d.aliases[lower]; ok {
		if _, known := d.byCategory[c]; known {
			return c, true
		}
	}
	for _, c := range d.categories {
		if strings.Contains(lower, strings.ToLower(string(c))) {
			return c, true
		}
	}
	// A fragment counts only when it starts a word of the category name,
	// so incidental short turns like "it" or "on" stay unmatched.
	if len(lower) >= 4 {
		for _, c := range d.categories {
			for _, word := range strings.Fields(strings.ToLower(string(c))) {
				if strings.HasPrefix(word, lower) {
					return c, true
				}
			}
		}
	}
	for alias, c := range d.aliases {
		if len(alias) > 2 && strings.Contains(lower, alias) {
			if _, known := d.byCategory[c]; known {
				return c, true
			}
		}
	}
	return CategoryUnclear, false
}
