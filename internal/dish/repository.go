package dish

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dishdb "shared-menu/internal/dish/dish_db"

	"shared-menu/internal/apperrors"
	"shared-menu/internal/database"
	"shared-menu/internal/events"
	"shared-menu/internal/logger"

	"github.com/google/uuid"
)

// Columns written by Update, reported in change notifications.
var editableColumns = []string{"name", "description", "image_url", "cooking_time_minutes", "ingredients"}

// Repository is a database-backed repository for dishes. Every write is
// published on the dishes table.
type Repository struct {
	queries   *dishdb.Queries
	db        *sql.DB
	publisher events.Publisher
	now       func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB, publisher events.Publisher) *Repository {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Repository{
		queries:   dishdb.New(d),
		db:        d,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new dish owned by side.
func (r *Repository) Create(ctx context.Context, side Side, in Input) (*Dish, error) {
	if _, err := ParseSide(string(side)); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ingredients, err := encodeIngredients(in.Ingredients)
	if err != nil {
		return nil, err
	}

	now := r.now()
	params := dishdb.InsertDishParams{
		ID:                 uuid.NewString(),
		Name:               in.Name,
		Description:        nullString(in.Description),
		ImageUrl:           nullString(in.ImageURL),
		CreatedBy:          string(side),
		CookingTimeMinutes: int64(in.CookingTimeMinutes),
		Ingredients:        ingredients,
		Wished:             false,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := r.queries.InsertDish(ctx, params); err != nil {
		return nil, fmt.Errorf("failed to insert dish: %w", err)
	}

	d, err := fromRow(dishdb.Dish(params))
	if err != nil {
		return nil, err
	}
	r.publish(ctx, events.Insert, d)
	return d, nil
}

// Update replaces every editable field. Only the owning side may edit.
func (r *Repository) Update(ctx context.Context, actor Side, id string, in Input) (*Dish, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.CreatedBy != actor {
		return nil, apperrors.Forbidden("only the side that added a dish can edit it")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ingredients, err := encodeIngredients(in.Ingredients)
	if err != nil {
		return nil, err
	}

	now := r.now()
	n, err := r.queries.UpdateDish(ctx, dishdb.UpdateDishParams{
		Name:               in.Name,
		Description:        nullString(in.Description),
		ImageUrl:           nullString(in.ImageURL),
		CookingTimeMinutes: int64(in.CookingTimeMinutes),
		Ingredients:        ingredients,
		UpdatedAt:          now,
		ID:                 id,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update dish: %w", err)
	}
	if n == 0 {
		return nil, apperrors.NotFound("dish", nil)
	}

	current.Name = in.Name
	current.Description = in.Description
	current.ImageURL = in.ImageURL
	current.CookingTimeMinutes = in.CookingTimeMinutes
	current.Ingredients = in.Ingredients
	current.UpdatedAt = now
	r.publish(ctx, events.Update, current, editableColumns...)
	return current, nil
}

// SetWished marks a dish as wished or not. A side wishes for the other
// side's dishes only.
func (r *Repository) SetWished(ctx context.Context, actor Side, id string, wished bool) (*Dish, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.setWished(ctx, actor, current, wished)
}

// ToggleWish flips the wished flag.
func (r *Repository) ToggleWish(ctx context.Context, actor Side, id string) (*Dish, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.setWished(ctx, actor, current, !current.Wished)
}

func (r *Repository) setWished(ctx context.Context, actor Side, current *Dish, wished bool) (*Dish, error) {
	if current.CreatedBy == actor {
		return nil, apperrors.Forbidden("a side cannot wish for its own dish")
	}
	if current.Wished == wished {
		return current, nil
	}

	now := r.now()
	n, err := r.queries.SetDishWished(ctx, dishdb.SetDishWishedParams{
		Wished:    wished,
		UpdatedAt: now,
		ID:        current.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set wished: %w", err)
	}
	if n == 0 {
		return nil, apperrors.NotFound("dish", nil)
	}

	current.Wished = wished
	current.UpdatedAt = now
	r.publish(ctx, events.Update, current, "wished")
	return current, nil
}

// Get retrieves a dish by its ID, failing with NOT_FOUND when it is missing.
func (r *Repository) Get(ctx context.Context, id string) (*Dish, error) {
	d, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperrors.NotFound("dish", nil)
	}
	return d, nil
}

// Find retrieves a dish by its ID. A missing dish is (nil, nil).
func (r *Repository) Find(ctx context.Context, id string) (*Dish, error) {
	row, err := r.queries.GetDish(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get dish by ID: %w", err)
	}
	return fromRow(row)
}

// ListBySide returns the dishes a side added, wished first, newest first.
func (r *Repository) ListBySide(ctx context.Context, side Side) ([]Dish, error) {
	rows, err := r.queries.ListDishesBySide(ctx, string(side))
	if err != nil {
		return nil, fmt.Errorf("failed to list dishes by side: %w", err)
	}
	return fromRows(rows)
}

// ListWished returns every wished dish, newest first.
func (r *Repository) ListWished(ctx context.Context) ([]Dish, error) {
	rows, err := r.queries.ListWishedDishes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wished dishes: %w", err)
	}
	return fromRows(rows)
}

// publish never fails the write; subscribers refetch on the next change.
func (r *Repository) publish(ctx context.Context, typ events.ChangeType, d *Dish, columns ...string) {
	c, err := events.NewChange(database.TableDishes, typ, d.ID, d, columns...)
	if err == nil {
		err = r.publisher.Publish(ctx, c)
	}
	if err != nil {
		logger.Warn("failed to publish %s of dish %s: %v", typ, d.ID, err)
	}
}

func fromRows(rows []dishdb.Dish) ([]Dish, error) {
	dishes := make([]Dish, 0, len(rows))
	for _, row := range rows {
		d, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		dishes = append(dishes, *d)
	}
	return dishes, nil
}

func fromRow(row dishdb.Dish) (*Dish, error) {
	var ingredients []Ingredient
	if row.Ingredients != "" {
		if err := json.Unmarshal([]byte(row.Ingredients), &ingredients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ingredients of dish %s: %w", row.ID, err)
		}
	}
	if ingredients == nil {
		ingredients = []Ingredient{}
	}
	return &Dish{
		ID:                 row.ID,
		Name:               row.Name,
		Description:        row.Description.String,
		ImageURL:           row.ImageUrl.String,
		CreatedBy:          Side(row.CreatedBy),
		CookingTimeMinutes: int(row.CookingTimeMinutes),
		Ingredients:        ingredients,
		Wished:             row.Wished,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}, nil
}

func encodeIngredients(ingredients []Ingredient) (string, error) {
	if ingredients == nil {
		ingredients = []Ingredient{}
	}
	b, err := json.Marshal(ingredients)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
