// Package wish keeps the live set of wished dishes for one view.
package wish

import (
	"context"
	"fmt"
	"sync"

	"shared-menu/internal/database"
	"shared-menu/internal/dish"
	"shared-menu/internal/events"
	"shared-menu/internal/logger"
)

// Source loads dishes. dish.Repository satisfies it.
type Source interface {
	ListWished(ctx context.Context) ([]dish.Dish, error)
	Find(ctx context.Context, id string) (*dish.Dish, error)
}

// Aggregator owns the wished set of a view from Open until Close.
// Any change on the dishes table triggers a full refetch.
type Aggregator struct {
	source     Source
	subscriber events.Subscriber
	channel    string
	onChange   func([]dish.Dish)

	mu     sync.Mutex
	dishes []dish.Dish
	sub    events.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// NewAggregator creates an aggregator subscribing on channel. onChange, when
// set, receives a snapshot after every refetch.
func NewAggregator(source Source, subscriber events.Subscriber, channel string, onChange func([]dish.Dish)) *Aggregator {
	return &Aggregator{
		source:     source,
		subscriber: subscriber,
		channel:    channel,
		onChange:   onChange,
	}
}

// Open fetches the wished set and subscribes to changes.
func (a *Aggregator) Open(ctx context.Context) error {
	dishes, err := a.source.ListWished(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch wished dishes: %w", err)
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return fmt.Errorf("aggregator closed")
	}
	a.dishes = dishes
	// Refetches outlive the request that opened the view; Close cancels them.
	a.ctx, a.cancel = context.WithCancel(context.WithoutCancel(ctx))
	a.mu.Unlock()

	sub, err := a.subscriber.Subscribe(ctx, a.channel, database.TableDishes, a.handle)
	if err != nil {
		a.Close()
		return fmt.Errorf("failed to subscribe to dish changes: %w", err)
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		_ = sub.Close()
		return fmt.Errorf("aggregator closed")
	}
	a.sub = sub
	a.mu.Unlock()
	return nil
}

func (a *Aggregator) handle(c events.Change) {
	a.mu.Lock()
	ctx := a.ctx
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return
	}
	if err := a.Refresh(ctx); err != nil {
		logger.Warn("%s: failed to refetch wished dishes after %s of %s: %v", a.channel, c.Type, c.RecordID, err)
	}
}

// Refresh replaces the wished set with the current store contents.
func (a *Aggregator) Refresh(ctx context.Context) error {
	dishes, err := a.source.ListWished(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.dishes = dishes
	snapshot := cloneDishes(a.dishes)
	a.mu.Unlock()

	a.notify(snapshot)
	return nil
}

// Apply updates the local set right after this view toggled a dish.
// A freshly wished dish is fetched and appended; an unwished one is removed
// without a round trip.
func (a *Aggregator) Apply(ctx context.Context, dishID string, wished bool) error {
	if !wished {
		a.mu.Lock()
		a.dishes = removeDish(a.dishes, dishID)
		snapshot := cloneDishes(a.dishes)
		a.mu.Unlock()
		a.notify(snapshot)
		return nil
	}

	d, err := a.source.Find(ctx, dishID)
	if err != nil {
		return fmt.Errorf("failed to fetch wished dish: %w", err)
	}
	if d == nil {
		return nil
	}

	a.mu.Lock()
	a.dishes = append(removeDish(a.dishes, dishID), *d)
	snapshot := cloneDishes(a.dishes)
	a.mu.Unlock()
	a.notify(snapshot)
	return nil
}

// Dishes returns a snapshot of the wished set.
func (a *Aggregator) Dishes() []dish.Dish {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneDishes(a.dishes)
}

// Close unsubscribes. It is safe to call more than once.
func (a *Aggregator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	sub := a.sub
	a.sub = nil
	if a.cancel != nil {
		a.cancel()
	}
	a.mu.Unlock()

	if sub != nil {
		if err := sub.Close(); err != nil {
			logger.Warn("%s: failed to close subscription: %v", a.channel, err)
		}
	}
}

func (a *Aggregator) notify(snapshot []dish.Dish) {
	if a.onChange != nil {
		a.onChange(snapshot)
	}
}

// TotalCookingMinutes sums the cooking times of dishes.
func TotalCookingMinutes(dishes []dish.Dish) int {
	total := 0
	for _, d := range dishes {
		total += d.CookingTimeMinutes
	}
	return total
}

// IDs returns the ids of dishes in order.
func IDs(dishes []dish.Dish) []string {
	ids := make([]string, len(dishes))
	for i, d := range dishes {
		ids[i] = d.ID
	}
	return ids
}

func removeDish(dishes []dish.Dish, id string) []dish.Dish {
	out := dishes[:0:0]
	for _, d := range dishes {
		if d.ID != id {
			out = append(out, d)
		}
	}
	return out
}

func cloneDishes(dishes []dish.Dish) []dish.Dish {
	out := make([]dish.Dish, len(dishes))
	copy(out, dishes)
	return out
}
