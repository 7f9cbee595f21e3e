// Package feedback defines the closed set of error categories and the static
// word tables the scoring rules are built from.
package feedback

// Category names why a word or phrase was missed or mistaken.
type Category string

// Categories in their fixed enumeration order. The order is used to break ties
// when ranking weaknesses, so it must not change.
const (
	WeakForm      Category = "weak_form"
	Linking       Category = "linking"
	Elision       Category = "elision"
	Contraction   Category = "contraction"
	SimilarWords  Category = "similar_words"
	Spelling      Category = "spelling"
	SpeedChunking Category = "speed_chunking"
	Missed        Category = "missed"
)

var allCategories = []Category{
	WeakForm,
	Linking,
	Elision,
	Contraction,
	SimilarWords,
	Spelling,
	SpeedChunking,
	Missed,
}

var categoryOrder = func() map[Category]int {
	m := make(map[Category]int, len(allCategories))
	for i, c := range allCategories {
		m[c] = i
	}
	return m
}()

var categoryLabels = map[Category]string{
	WeakForm:      "Weak forms",
	Linking:       "Linking",
	Elision:       "Elision",
	Contraction:   "Contractions",
	SimilarWords:  "Similar words",
	Spelling:      "Spelling",
	SpeedChunking: "Speed & chunking",
	Missed:        "Missed words",
}

// All returns every category in enumeration order.
func All() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	_, ok := categoryOrder[c]
	return ok
}

// Order returns the enumeration position of c, or -1 for unknown values.
func (c Category) Order() int {
	if i, ok := categoryOrder[c]; ok {
		return i
	}
	return -1
}

// Label returns a short display name.
func (c Category) Label() string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

// Parse converts a stored category name back into a Category.
func Parse(s string) (Category, bool) {
	c := Category(s)
	return c, c.Valid()
}

// Auditory reports whether the category describes something heard rather than
// written. Spelling slips are orthographic and never narrated as fast speech.
func (c Category) Auditory() bool {
	return c != Spelling
}
