package shopping

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	shoppingdb "shared-menu/internal/shopping/shopping_db"

	"shared-menu/internal/database"
	"shared-menu/internal/events"
	"shared-menu/internal/logger"
)

// Repository handles persistence of shopping lists.
type Repository struct {
	queries   *shoppingdb.Queries
	db        *sql.DB
	publisher events.Publisher
	now       func() time.Time
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB, publisher events.Publisher) *Repository {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Repository{
		queries:   shoppingdb.New(d),
		db:        d,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get retrieves a shopping list by id. A missing list is (nil, nil).
func (r *Repository) Get(ctx context.Context, id string) (*ShoppingList, error) {
	row, err := r.queries.GetShoppingList(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get shopping list by ID: %w", err)
	}

	list := &ShoppingList{ID: row.ID, UpdatedAt: row.UpdatedAt}
	if err := json.Unmarshal([]byte(row.DishIds), &list.DishIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list dish ids: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Content), &list.Content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shopping list content: %w", err)
	}
	return list, nil
}

// Upsert inserts the list or replaces the stored one with the same id.
// UpdatedAt is set on list.
func (r *Repository) Upsert(ctx context.Context, list *ShoppingList) error {
	dishIDs, err := json.Marshal(list.DishIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal shopping list dish ids: %w", err)
	}
	content, err := json.Marshal(list.Content)
	if err != nil {
		return fmt.Errorf("failed to marshal shopping list content: %w", err)
	}

	list.UpdatedAt = r.now()
	if err := r.queries.UpsertShoppingList(ctx, shoppingdb.UpsertShoppingListParams{
		ID:        list.ID,
		DishIds:   string(dishIDs),
		Content:   string(content),
		UpdatedAt: list.UpdatedAt,
	}); err != nil {
		return fmt.Errorf("failed to upsert shopping list: %w", err)
	}

	c, err := events.NewChange(database.TableShoppingLists, events.Upsert, list.ID, list)
	if err == nil {
		err = r.publisher.Publish(ctx, c)
	}
	if err != nil {
		logger.Warn("failed to publish upsert of shopping list %s: %v", list.ID, err)
	}
	return nil
}
