package dish

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shared-menu/internal/apperrors"
	"shared-menu/internal/database"
	"shared-menu/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) (*Repository, *events.LocalBroker) {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "dishes.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	broker := events.NewLocalBroker()
	t.Cleanup(func() { _ = broker.Close() })

	repo := NewRepository(db.SQL, broker)
	base := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return repo, broker
}

func TestRepositoryCreate(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	t.Run("Defaults", func(t *testing.T) {
		d, err := repo.Create(ctx, Male, Input{
			Name: "  Mapo Tofu ",
			Ingredients: []Ingredient{
				{Name: "tofu", Quantity: "1 block"},
				{Name: " ", Quantity: ""},
			},
		})
		require.NoError(t, err)

		assert.NotEmpty(t, d.ID)
		assert.Equal(t, "Mapo Tofu", d.Name)
		assert.Equal(t, Male, d.CreatedBy)
		assert.Equal(t, DefaultCookingTime, d.CookingTimeMinutes)
		assert.False(t, d.Wished)
		assert.Equal(t, []Ingredient{{Name: "tofu", Quantity: "1 block"}}, d.Ingredients)

		stored, err := repo.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.Name, stored.Name)
		assert.Equal(t, d.Ingredients, stored.Ingredients)
		assert.True(t, d.CreatedAt.Equal(stored.CreatedAt))
	})

	t.Run("NoIngredientsStoresEmptyList", func(t *testing.T) {
		d, err := repo.Create(ctx, Female, Input{Name: "Toast", CookingTimeMinutes: 5})
		require.NoError(t, err)

		stored, err := repo.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Ingredients)
		assert.NotNil(t, stored.Ingredients)
		assert.False(t, stored.HasIngredients())
	})

	invalid := map[string]Input{
		"EmptyName":           {Name: "   "},
		"CookingTimeOffStep":  {Name: "Soup", CookingTimeMinutes: 7},
		"CookingTimeTooLong":  {Name: "Soup", CookingTimeMinutes: 185},
		"CookingTimeTooShort": {Name: "Soup", CookingTimeMinutes: -5},
		"BadImageURL":         {Name: "Soup", ImageURL: "not a url"},
		"IngredientNoAmount":  {Name: "Soup", Ingredients: []Ingredient{{Name: "salt"}}},
	}
	for name, in := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := repo.Create(ctx, Male, in)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.CodeValidation), "got %v", err)
		})
	}

	t.Run("UnknownSide", func(t *testing.T) {
		_, err := repo.Create(ctx, Side("nobody"), Input{Name: "Soup"})
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	})
}

func TestRepositoryUpdate(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	d, err := repo.Create(ctx, Female, Input{Name: "Curry", CookingTimeMinutes: 45})
	require.NoError(t, err)

	t.Run("OwnerReplacesAllFields", func(t *testing.T) {
		updated, err := repo.Update(ctx, Female, d.ID, Input{
			Name:               "Green Curry",
			Description:        "extra basil",
			ImageURL:           "https://example.com/curry.jpg",
			CookingTimeMinutes: 60,
			Ingredients:        []Ingredient{{Name: "coconut milk", Quantity: "400ml"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "Green Curry", updated.Name)

		stored, err := repo.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Equal(t, "extra basil", stored.Description)
		assert.Equal(t, "https://example.com/curry.jpg", stored.ImageURL)
		assert.Equal(t, 60, stored.CookingTimeMinutes)
		assert.Len(t, stored.Ingredients, 1)
		assert.True(t, stored.UpdatedAt.After(stored.CreatedAt))

		// Full replacement clears optional fields that are left out.
		_, err = repo.Update(ctx, Female, d.ID, Input{Name: "Curry"})
		require.NoError(t, err)
		stored, err = repo.Get(ctx, d.ID)
		require.NoError(t, err)
		assert.Empty(t, stored.Description)
		assert.Empty(t, stored.ImageURL)
		assert.Equal(t, DefaultCookingTime, stored.CookingTimeMinutes)
		assert.Empty(t, stored.Ingredients)
	})

	t.Run("OtherSideForbidden", func(t *testing.T) {
		_, err := repo.Update(ctx, Male, d.ID, Input{Name: "Hijacked"})
		assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
	})

	t.Run("UnknownDish", func(t *testing.T) {
		_, err := repo.Update(ctx, Female, "missing", Input{Name: "x"})
		assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	})
}

func TestRepositoryWishes(t *testing.T) {
	ctx := context.Background()
	repo, broker := newTestRepository(t)

	var mu sync.Mutex
	var changes []events.Change
	_, err := broker.Subscribe(ctx, "test", database.TableDishes, func(c events.Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})
	require.NoError(t, err)

	first, err := repo.Create(ctx, Male, Input{Name: "Dumplings"})
	require.NoError(t, err)
	second, err := repo.Create(ctx, Male, Input{Name: "Noodles"})
	require.NoError(t, err)
	third, err := repo.Create(ctx, Male, Input{Name: "Fried Rice"})
	require.NoError(t, err)

	t.Run("OwnerCannotWish", func(t *testing.T) {
		_, err := repo.SetWished(ctx, Male, first.ID, true)
		assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
	})

	t.Run("OtherSideWishes", func(t *testing.T) {
		d, err := repo.SetWished(ctx, Female, second.ID, true)
		require.NoError(t, err)
		assert.True(t, d.Wished)

		wished, err := repo.ListWished(ctx)
		require.NoError(t, err)
		require.Len(t, wished, 1)
		assert.Equal(t, second.ID, wished[0].ID)
	})

	t.Run("ListBySideOrdersWishedFirst", func(t *testing.T) {
		list, err := repo.ListBySide(ctx, Male)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{second.ID, third.ID, first.ID}, []string{list[0].ID, list[1].ID, list[2].ID})

		other, err := repo.ListBySide(ctx, Female)
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("Toggle", func(t *testing.T) {
		d, err := repo.ToggleWish(ctx, Female, second.ID)
		require.NoError(t, err)
		assert.False(t, d.Wished)

		d, err = repo.ToggleWish(ctx, Female, third.ID)
		require.NoError(t, err)
		assert.True(t, d.Wished)

		wished, err := repo.ListWished(ctx)
		require.NoError(t, err)
		require.Len(t, wished, 1)
		assert.Equal(t, third.ID, wished[0].ID)
	})

	t.Run("PublishesChanges", func(t *testing.T) {
		// 3 inserts and 3 wish updates.
		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(changes) == 6
		}, time.Second, 5*time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, events.Insert, changes[0].Type)
		assert.Equal(t, first.ID, changes[0].RecordID)
		last := changes[5]
		assert.Equal(t, events.Update, last.Type)
		assert.Equal(t, []string{"wished"}, last.Columns)
		assert.Equal(t, third.ID, last.RecordID)
	})

	t.Run("FindMissing", func(t *testing.T) {
		d, err := repo.Find(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, d)

		_, err = repo.Get(ctx, "missing")
		assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	})
}

func TestParseSide(t *testing.T) {
	s, err := ParseSide(" Female ")
	require.NoError(t, err)
	assert.Equal(t, Female, s)
	assert.Equal(t, Male, s.Other())
	assert.Equal(t, Female, Male.Other())

	_, err = ParseSide("both")
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}
