package category

import (
	"fmt"
	"math"
	"slices"

	"github.com/okian/fairway/internal/domain/model"
)

// Resolver looks categories up in an injected table. It holds no mutable
// state and is safe for concurrent use.
type Resolver struct {
	table Table
}

// NewResolver validates t and returns a resolver over a private copy of it.
func NewResolver(t Table) (*Resolver, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	cats := slices.Clone(t.Categories)
	for i := range cats {
		cats[i].Rank = i
	}
	return &Resolver{table: Table{Version: t.Version, Categories: cats}}, nil
}

// Version returns the table version the resolver was built from.
func (r *Resolver) Version() string { return r.table.Version }

// Categories returns the ladder, lowest skill first.
func (r *Resolver) Categories() []Category { return slices.Clone(r.table.Categories) }

// Lookup finds a category by code.
func (r *Resolver) Lookup(code string) (Category, error) {
	for _, c := range r.table.Categories {
		if c.Code == code {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %s", ErrUnknownCode, code)
}

// Resolve picks the category for bg. Handicap wins when present; otherwise
// the average score decides. Values beyond the ladder clamp to its ends.
func (r *Resolver) Resolve(bg *model.Background) (Category, error) {
	if bg == nil {
		return Category{}, model.NewValidationError("background", "section missing")
	}
	switch {
	case bg.Handicap != nil && !math.IsNaN(*bg.Handicap):
		return r.find(*bg.Handicap, func(c Category) Band { return c.Handicap }), nil
	case bg.AverageScore != nil && !math.IsNaN(*bg.AverageScore):
		return r.find(*bg.AverageScore, func(c Category) Band { return c.AverageScore }), nil
	default:
		return Category{}, model.NewValidationError("background.handicap", "handicap or average score required")
	}
}

// find scans the ladder. Bands descend with rank, so a value above the
// first rung's band clamps to the lowest rung and one below the last clamps
// to the elite rung.
func (r *Resolver) find(v float64, band func(Category) Band) Category {
	cats := r.table.Categories
	if v >= band(cats[0]).Max {
		return cats[0]
	}
	for _, c := range cats {
		if band(c).Contains(v) {
			return c
		}
	}
	return cats[len(cats)-1]
}
