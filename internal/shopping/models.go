package shopping

import (
	"strings"
	"time"

	"shared-menu/internal/dish"
)

// Category is one of the fixed shopping list sections.
type Category string

const (
	Seasoning Category = "seasoning"
	Spice     Category = "spice"
	Meat      Category = "meat"
	Vegetable Category = "vegetable"
	Other     Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{Seasoning, Spice, Meat, Vegetable, Other}

// ParseCategory maps free text onto a known category. Anything unknown is Other.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return Other
}

// Label is the display name of a category.
func (c Category) Label() string {
	if c == "" {
		return ""
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

type Group struct {
	Category    Category          `json:"category"`
	Ingredients []dish.Ingredient `json:"ingredients"`
}

// Content is the categorized body of a shopping list.
type Content struct {
	Groups []Group `json:"groups"`
}

// Normalize merges groups of the same category, trims names, drops nameless
// ingredients and empty groups, and orders groups by Categories.
func (c Content) Normalize() Content {
	merged := make(map[Category][]dish.Ingredient, len(Categories))
	for _, g := range c.Groups {
		cat := ParseCategory(string(g.Category))
		for _, ing := range g.Ingredients {
			ing.Name = strings.TrimSpace(ing.Name)
			ing.Quantity = strings.TrimSpace(ing.Quantity)
			if ing.Name == "" {
				continue
			}
			merged[cat] = append(merged[cat], ing)
		}
	}

	out := Content{Groups: []Group{}}
	for _, cat := range Categories {
		if ings := merged[cat]; len(ings) > 0 {
			out.Groups = append(out.Groups, Group{Category: cat, Ingredients: ings})
		}
	}
	return out
}

// IsEmpty reports whether no group lists an ingredient.
func (c Content) IsEmpty() bool {
	for _, g := range c.Groups {
		if len(g.Ingredients) > 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy, used as the editable working copy.
func (c Content) Clone() Content {
	out := Content{Groups: make([]Group, len(c.Groups))}
	for i, g := range c.Groups {
		out.Groups[i] = Group{
			Category:    g.Category,
			Ingredients: append([]dish.Ingredient(nil), g.Ingredients...),
		}
	}
	return out
}

// ItemCount is the number of ingredients over all groups.
func (c Content) ItemCount() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Ingredients)
	}
	return n
}

// ShoppingList is the stored list of one wish-set.
type ShoppingList struct {
	ID        string    `json:"id"`
	DishIDs   []string  `json:"dish_ids"`
	Content   Content   `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}
