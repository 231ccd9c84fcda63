package scenes

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cyclopcam/scenereel/pkg/nuscenes"
)

var ErrInvalidCriterion = errors.New("Invalid scene selection criterion")

// Category is a keyword family that can be matched against scene descriptions
type Category string

const (
	CategoryTruck        Category = "truck"
	CategoryOvertake     Category = "overtake"
	CategoryTrailer      Category = "trailer"
	CategoryConstruction Category = "construction"
)

// Keyword that each category looks for in a scene description
var categoryKeywords = map[Category]string{
	CategoryTruck:        "truck",
	CategoryOvertake:     "overtake",
	CategoryTrailer:      "trailer",
	CategoryConstruction: "construction vehicle",
}

// Categories lists the supported categories, in a stable order
var Categories = []Category{CategoryTruck, CategoryOvertake, CategoryTrailer, CategoryConstruction}

// ParseCategory validates a category name from the command line
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if _, ok := categoryKeywords[c]; !ok {
		return "", fmt.Errorf("%w: unknown keyword category '%v' (expected one of %v)", ErrInvalidCriterion, s, Categories)
	}
	return c, nil
}

// MatchMode controls how a category keyword is compared to a description
type MatchMode int

const (
	// MatchLegacyCase accepts only the all-lowercase keyword, or the keyword with its
	// first letter capitalized. This reproduces the scene lists of earlier runs exactly.
	MatchLegacyCase MatchMode = iota
	// MatchFold is a case-insensitive substring match
	MatchFold
)

// Criterion selects scenes. Exactly one of Names or Category must be set,
// unless All is true, in which case both must be empty.
type Criterion struct {
	All      bool
	Names    []string
	Category Category
	Match    MatchMode
}

func (c Criterion) String() string {
	switch {
	case c.All:
		return "all scenes"
	case len(c.Names) != 0:
		return fmt.Sprintf("scenes %v", strings.Join(c.Names, ","))
	default:
		return fmt.Sprintf("keyword category '%v'", c.Category)
	}
}

// Select returns the scenes that satisfy the criterion, in catalog order
func Select(all []nuscenes.Scene, c Criterion) ([]nuscenes.Scene, error) {
	hasNames := len(c.Names) != 0
	hasCategory := c.Category != ""
	if c.All {
		if hasNames || hasCategory {
			return nil, fmt.Errorf("%w: 'all' cannot be combined with names or a category", ErrInvalidCriterion)
		}
		return append([]nuscenes.Scene(nil), all...), nil
	}
	if hasNames == hasCategory {
		return nil, fmt.Errorf("%w: exactly one of a name list or a keyword category is required", ErrInvalidCriterion)
	}

	result := []nuscenes.Scene{}
	if hasNames {
		wanted := map[string]bool{}
		for _, n := range c.Names {
			wanted[n] = true
		}
		for _, s := range all {
			if wanted[s.Name] {
				result = append(result, s)
			}
		}
		return result, nil
	}

	keyword, ok := categoryKeywords[c.Category]
	if !ok {
		return nil, fmt.Errorf("%w: unknown keyword category '%v'", ErrInvalidCriterion, c.Category)
	}
	for _, s := range all {
		if DescriptionMatches(s.Description, keyword, c.Match) {
			result = append(result, s)
		}
	}
	return result, nil
}

// DescriptionMatches reports whether keyword appears in description
func DescriptionMatches(description, keyword string, mode MatchMode) bool {
	if mode == MatchFold {
		return strings.Contains(strings.ToLower(description), strings.ToLower(keyword))
	}
	return strings.Contains(description, keyword) || strings.Contains(description, capitalize(keyword))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
