// Package category maps extracted category names onto the stored
// category tree, falling back to the "Other" bucket when nothing matches.
package category

import (
	"log/slog"

	"github.com/jobgram/jobgram/internal/model"
)

// Lookup is the slice of the store the resolver needs.
type Lookup interface {
	CategoryByName(name string) (*model.Category, error)
	CategoryByPath(path string) (*model.Category, error)
}

// Other is the fallback bucket for names that match no stored category.
// Miscategorized jobs are preferable to dropped jobs, so resolution
// never fails: it degrades to this.
var Other = model.CategoryResolution{
	CategoryID:     "other",
	CategoryPath:   "Other",
	MainCategory:   "Other",
	MainCategoryID: "other",
	Hierarchy:      []string{"Other"},
}

// Resolver turns a category name into its full hierarchy snapshot.
type Resolver struct {
	lookup Lookup
	logger *slog.Logger
}

// NewResolver creates a resolver backed by the given category lookup.
func NewResolver(lookup Lookup, logger *slog.Logger) *Resolver {
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve maps name to its hierarchy. A level-0 match is its own main
// category; a level-1 match pulls its parent by path. Misses and parent
// lookup failures both return Other.
func (r *Resolver) Resolve(name string) model.CategoryResolution {
	cat, err := r.lookup.CategoryByName(name)
	if err != nil {
		r.logger.Warn("category lookup failed, using Other", "category", name, "error", err)
		return Other
	}
	if cat == nil {
		r.logger.Debug("category not found, using Other", "category", name)
		return Other
	}

	if cat.Level == 0 {
		return model.CategoryResolution{
			CategoryID:     cat.ID,
			CategoryPath:   cat.Path,
			MainCategory:   cat.Name,
			MainCategoryID: cat.ID,
			Hierarchy:      []string{cat.Name},
		}
	}

	parent, err := r.lookup.CategoryByPath(cat.ParentPath)
	if err != nil || parent == nil {
		r.logger.Warn("parent category lookup failed, using Other",
			"category", name, "parent_path", cat.ParentPath, "error", err)
		return Other
	}

	return model.CategoryResolution{
		CategoryID:     cat.ID,
		CategoryPath:   cat.Path,
		MainCategory:   parent.Name,
		MainCategoryID: parent.ID,
		Hierarchy:      []string{parent.Name, cat.Name},
	}
}
