package domain

import "strings"

// Diet is the strictest dietary class implied by a set of restrictions.
type Diet int

const (
	DietDefault Diet = iota
	DietVegetarian
	DietVegan
)

// DietFor reduces free-form restrictions to a Diet; vegan wins over vegetarian.
func DietFor(restrictions []string) Diet {
	diet := DietDefault
	for _, r := range restrictions {
		switch strings.ToLower(strings.TrimSpace(r)) {
		case "vegan":
			return DietVegan
		case "vegetarian":
			diet = DietVegetarian
		}
	}
	return diet
}

func (d Diet) MeatFree() bool { return d != DietDefault }

func (d Diet) String() string {
	switch d {
	case DietVegan:
		return "vegan"
	case DietVegetarian:
		return "vegetarian"
	}
	return "default"
}
