package models

import "strings"

type Category string

const (
	CategoryFood          Category = "FOOD"
	CategoryGroceries     Category = "GROCERIES"
	CategoryTransport     Category = "TRANSPORT"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryHealth        Category = "HEALTH"
	CategoryUtilities     Category = "UTILITIES"
	CategoryRent          Category = "RENT"
	CategoryOther         Category = "OTHER"
)

// Categories is the closed set a classifier may assign, in prompt order.
var Categories = []Category{
	CategoryFood,
	CategoryGroceries,
	CategoryTransport,
	CategoryEntertainment,
	CategoryHealth,
	CategoryUtilities,
	CategoryRent,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory maps a free-form label onto the enumeration; unknown labels become OTHER.
func ParseCategory(label string) Category {
	c := Category(strings.ToUpper(strings.TrimSpace(label)))
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// CategoryNames returns the enumeration as plain strings.
func CategoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}
