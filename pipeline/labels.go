package pipeline

import "strings"

// Category is the closed set of text categories the pipeline routes on.
// Model classifications are free-form prose; ParseCategory maps them onto
// this set once, and every routing decision afterwards compares exact
// Category values.
type Category string

const (
	CategoryResearch Category = "research"
	CategoryBlog     Category = "blog"
	CategoryNews     Category = "news"
	CategoryOther    Category = "other"
)

// Categories returns all categories in priority order.
func Categories() []Category {
	return []Category{CategoryResearch, CategoryBlog, CategoryNews, CategoryOther}
}

// String returns the category label.
func (c Category) String() string {
	return string(c)
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryResearch, CategoryBlog, CategoryNews, CategoryOther:
		return true
	}
	return false
}

// categoryKeywords is ordered longest keyword first so that a classification
// mentioning several categories resolves the same way every run.
var categoryKeywords = []struct {
	keyword  string
	category Category
}{
	{"research", CategoryResearch},
	{"blog", CategoryBlog},
	{"news", CategoryNews},
}

// ParseCategory normalizes a raw model classification to a Category. The
// match is case-insensitive and tolerates surrounding prose ("This is a News
// article."). Anything unrecognized maps to CategoryOther.
func ParseCategory(raw string) Category {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	for _, ck := range categoryKeywords {
		if strings.Contains(lowered, ck.keyword) {
			return ck.category
		}
	}
	return CategoryOther
}
