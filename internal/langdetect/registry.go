package langdetect

import "strings"

// Registry holds the recipe table and answers lookups by id or extension.
type Registry struct {
	recipes []Recipe
	byID    map[string]Recipe
	byExt   map[string]Recipe
}

// NewRegistry builds a Registry from recipes, indexing by id and by
// each recipe's declared extensions.
func NewRegistry(recipes []Recipe) *Registry {
	r := &Registry{
		recipes: recipes,
		byID:    make(map[string]Recipe, len(recipes)),
		byExt:   make(map[string]Recipe, len(recipes)*2),
	}
	for _, rec := range recipes {
		r.byID[rec.ID] = rec
		for _, ext := range rec.Extensions {
			r.byExt[strings.ToLower(ext)] = rec
		}
	}
	return r
}

// ByID looks up a recipe by its stable language id.
func (r *Registry) ByID(id string) (Recipe, bool) {
	rec, ok := r.byID[id]
	return rec, ok
}

// ByExtension looks up a recipe by file extension (including the dot,
// e.g. ".go").
func (r *Registry) ByExtension(ext string) (Recipe, bool) {
	rec, ok := r.byExt[strings.ToLower(ext)]
	return rec, ok
}

// All returns every registered recipe.
func (r *Registry) All() []Recipe {
	return r.recipes
}
