package wish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shared-menu/internal/database"
	"shared-menu/internal/dish"
	"shared-menu/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves a fixed wished set and counts store round trips.
type fakeSource struct {
	mu        sync.Mutex
	wished    []dish.Dish
	all       map[string]dish.Dish
	listCalls int
	findCalls int
	listErr   error
}

func newFakeSource(dishes ...dish.Dish) *fakeSource {
	s := &fakeSource{all: make(map[string]dish.Dish)}
	for _, d := range dishes {
		s.all[d.ID] = d
		if d.Wished {
			s.wished = append(s.wished, d)
		}
	}
	return s
}

func (s *fakeSource) ListWished(ctx context.Context) ([]dish.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]dish.Dish(nil), s.wished...), nil
}

func (s *fakeSource) Find(ctx context.Context, id string) (*dish.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	d, ok := s.all[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *fakeSource) setWished(dishes ...dish.Dish) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wished = dishes
}

func (s *fakeSource) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls, s.findCalls
}

func TestAggregator(t *testing.T) {
	ctx := context.Background()
	soup := dish.Dish{ID: "1", Name: "Soup", CookingTimeMinutes: 20, Wished: true}
	pie := dish.Dish{ID: "2", Name: "Pie", CookingTimeMinutes: 45}

	t.Run("OpenFetchesWishedSet", func(t *testing.T) {
		src := newFakeSource(soup, pie)
		broker := events.NewLocalBroker()
		defer broker.Close()

		agg := NewAggregator(src, broker, "panel:test", nil)
		require.NoError(t, agg.Open(ctx))
		defer agg.Close()

		assert.Equal(t, []string{"1"}, IDs(agg.Dishes()))
		assert.Equal(t, 20, TotalCookingMinutes(agg.Dishes()))
	})

	t.Run("ChangeTriggersRefetch", func(t *testing.T) {
		src := newFakeSource(soup, pie)
		broker := events.NewLocalBroker()
		defer broker.Close()

		var mu sync.Mutex
		var snapshots [][]dish.Dish
		agg := NewAggregator(src, broker, "panel:test", func(d []dish.Dish) {
			mu.Lock()
			snapshots = append(snapshots, d)
			mu.Unlock()
		})
		require.NoError(t, agg.Open(ctx))
		defer agg.Close()

		wishedPie := pie
		wishedPie.Wished = true
		src.setWished(wishedPie, soup)
		require.NoError(t, broker.Publish(ctx, events.Change{Table: database.TableDishes, Type: events.Update, RecordID: "2"}))

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(snapshots) == 1
		}, time.Second, 5*time.Millisecond)

		assert.Equal(t, []string{"2", "1"}, IDs(agg.Dishes()))
		assert.Equal(t, 65, TotalCookingMinutes(agg.Dishes()))
		list, _ := src.calls()
		assert.Equal(t, 2, list)
	})

	t.Run("ApplyWishFetchesOneDish", func(t *testing.T) {
		src := newFakeSource(soup, pie)
		agg := NewAggregator(src, events.NewLocalBroker(), "panel:test", nil)
		require.NoError(t, agg.Open(ctx))
		defer agg.Close()

		require.NoError(t, agg.Apply(ctx, "2", true))
		assert.Equal(t, []string{"1", "2"}, IDs(agg.Dishes()))

		list, find := src.calls()
		assert.Equal(t, 1, list)
		assert.Equal(t, 1, find)
	})

	t.Run("ApplyUnwishRemovesLocally", func(t *testing.T) {
		src := newFakeSource(soup, pie)
		agg := NewAggregator(src, events.NewLocalBroker(), "panel:test", nil)
		require.NoError(t, agg.Open(ctx))
		defer agg.Close()

		require.NoError(t, agg.Apply(ctx, "1", false))
		assert.Empty(t, agg.Dishes())

		list, find := src.calls()
		assert.Equal(t, 1, list)
		assert.Equal(t, 0, find)
	})

	t.Run("CloseIsIdempotentAndStopsUpdates", func(t *testing.T) {
		src := newFakeSource(soup, pie)
		broker := events.NewLocalBroker()
		defer broker.Close()

		agg := NewAggregator(src, broker, "panel:test", nil)
		require.NoError(t, agg.Open(ctx))
		agg.Close()
		agg.Close()

		require.NoError(t, broker.Publish(ctx, events.Change{Table: database.TableDishes}))
		time.Sleep(20 * time.Millisecond)

		list, _ := src.calls()
		assert.Equal(t, 1, list)
	})

	t.Run("OpenFails", func(t *testing.T) {
		src := newFakeSource()
		src.listErr = errors.New("store down")

		agg := NewAggregator(src, events.NewLocalBroker(), "panel:test", nil)
		assert.Error(t, agg.Open(ctx))
		agg.Close()
	})
}
