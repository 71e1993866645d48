package disc

import "strings"

// Category is one of the fixed genre buckets the database partitions records
// into. CategoryInvalid marks a disc whose category is not known yet.
type Category int

const (
	CategoryData Category = iota
	CategoryFolk
	CategoryJazz
	CategoryMisc
	CategoryRock
	CategoryCountry
	CategoryBlues
	CategoryNewAge
	CategoryReggae
	CategoryClassical
	CategorySoundtrack
	CategoryInvalid
)

var categoryNames = [...]string{
	CategoryData:       "data",
	CategoryFolk:       "folk",
	CategoryJazz:       "jazz",
	CategoryMisc:       "misc",
	CategoryRock:       "rock",
	CategoryCountry:    "country",
	CategoryBlues:      "blues",
	CategoryNewAge:     "newage",
	CategoryReggae:     "reggae",
	CategoryClassical:  "classical",
	CategorySoundtrack: "soundtrack",
	CategoryInvalid:    "invalid",
}

// String returns the wire name of the category.
func (c Category) String() string {
	if c < CategoryData || c > CategoryInvalid {
		return categoryNames[CategoryInvalid]
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the eleven real categories.
func (c Category) Valid() bool {
	return c >= CategoryData && c < CategoryInvalid
}

// ParseCategory maps a wire name to its category. Unknown names yield
// CategoryInvalid.
func ParseCategory(name string) Category {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range categoryNames[:CategoryInvalid] {
		if candidate == name {
			return Category(i)
		}
	}
	return CategoryInvalid
}

// Categories lists the valid categories in protocol order.
func Categories() []Category {
	out := make([]Category, 0, int(CategoryInvalid))
	for c := CategoryData; c < CategoryInvalid; c++ {
		out = append(out, c)
	}
	return out
}
