package dish

import (
	"fmt"
	"strings"
	"time"

	"shared-menu/internal/apperrors"

	"github.com/go-playground/validator/v10"
)

// Side is one of the two participants sharing the menu.
type Side string

const (
	Male   Side = "male"
	Female Side = "female"
)

// ParseSide validates a side coming from a request.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case Male:
		return Male, nil
	case Female:
		return Female, nil
	}
	return "", apperrors.Validation(fmt.Sprintf("unknown side %q, expected male or female", s), nil)
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == Male {
		return Female
	}
	return Male
}

// Cooking time bounds, in minutes.
const (
	DefaultCookingTime = 30
	MinCookingTime     = 5
	MaxCookingTime     = 180
	CookingTimeStep    = 5
)

type Ingredient struct {
	Name     string `json:"name" validate:"required,max=100"`
	Quantity string `json:"quantity" validate:"required,max=50"`
}

type Dish struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Description        string       `json:"description,omitempty"`
	ImageURL           string       `json:"image_url,omitempty"`
	CreatedBy          Side         `json:"created_by"`
	CookingTimeMinutes int          `json:"cooking_time_minutes"`
	Ingredients        []Ingredient `json:"ingredients"`
	Wished             bool         `json:"wished"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// HasIngredients reports whether at least one ingredient is listed.
func (d Dish) HasIngredients() bool {
	return len(d.Ingredients) > 0
}

// Input carries the editable fields of a dish. Updates replace every field.
type Input struct {
	Name               string       `json:"name" validate:"required,max=100"`
	Description        string       `json:"description" validate:"max=1000"`
	ImageURL           string       `json:"image_url" validate:"omitempty,url"`
	CookingTimeMinutes int          `json:"cooking_time_minutes" validate:"cooking_time"`
	Ingredients        []Ingredient `json:"ingredients" validate:"dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("cooking_time", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n >= MinCookingTime && n <= MaxCookingTime && n%CookingTimeStep == 0
	})
	return v
}

// Normalize trims text fields and applies the default cooking time.
// Ingredient rows left completely blank are dropped.
func (in *Input) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.CookingTimeMinutes == 0 {
		in.CookingTimeMinutes = DefaultCookingTime
	}

	ingredients := make([]Ingredient, 0, len(in.Ingredients))
	for _, ing := range in.Ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		ing.Quantity = strings.TrimSpace(ing.Quantity)
		if ing.Name == "" && ing.Quantity == "" {
			continue
		}
		ingredients = append(ingredients, ing)
	}
	in.Ingredients = ingredients
}

// Validate normalizes in and checks it. The error is a VALIDATION_ERROR
// wrapping validator.ValidationErrors.
func (in *Input) Validate() error {
	in.Normalize()
	if err := validate.Struct(in); err != nil {
		return apperrors.Validation("invalid dish", err)
	}
	return nil
}
