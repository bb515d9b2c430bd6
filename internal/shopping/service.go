package shopping

import (
	"context"
	"sort"
	"time"

	"shared-menu/internal/apperrors"
	"shared-menu/internal/dish"
	"shared-menu/internal/llm"
	"shared-menu/internal/logger"
	"shared-menu/internal/shared"

	"golang.org/x/sync/singleflight"
)

// Service resolves the shopping list of a wish-set, generating it once
// per distinct set of dishes.
type Service struct {
	repo    *Repository
	textGen llm.TextGenerator
	usage   shared.UsageRecorder
	group   singleflight.Group
}

func NewService(repo *Repository, textGen llm.TextGenerator, usage shared.UsageRecorder) *Service {
	if usage == nil {
		usage = shared.DiscardUsage{}
	}
	return &Service{repo: repo, textGen: textGen, usage: usage}
}

// generationTimeout bounds a shared generation. It runs detached from the
// caller that started it, so a cancelled caller does not fail the others.
const generationTimeout = 2 * time.Minute

type ensureResult struct {
	list      *ShoppingList
	generated bool
}

// Lookup returns the stored list of the wish-set, or nil when none exists.
func (s *Service) Lookup(ctx context.Context, dishes []dish.Dish) (*ShoppingList, error) {
	list, err := s.repo.Get(ctx, ListID(dishIDs(dishes)))
	if err != nil {
		return nil, apperrors.Internal("failed to load the shopping list", err)
	}
	return list, nil
}

// Ensure returns the stored list of the wish-set, generating and saving
// it when missing. Concurrent calls for the same set share one generation.
func (s *Service) Ensure(ctx context.Context, dishes []dish.Dish) (*ShoppingList, bool, error) {
	ids := dishIDs(dishes)
	id := ListID(ids)

	v, err := s.shared(ctx, id, func(ctx context.Context) (interface{}, error) {
		list, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, apperrors.Internal("failed to load the shopping list", err)
		}
		if list != nil {
			return ensureResult{list: list}, nil
		}

		list, err = s.generate(ctx, id, ids, dishes)
		if err != nil {
			return nil, err
		}
		return ensureResult{list: list, generated: true}, nil
	})
	if err != nil {
		return nil, false, err
	}

	res := v.(ensureResult)
	return res.list, res.generated, nil
}

// Regenerate discards the stored content and generates it again.
func (s *Service) Regenerate(ctx context.Context, dishes []dish.Dish) (*ShoppingList, error) {
	ids := dishIDs(dishes)
	id := ListID(ids)

	v, err := s.shared(ctx, "regenerate:"+id, func(ctx context.Context) (interface{}, error) {
		return s.generate(ctx, id, ids, dishes)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ShoppingList), nil
}

// shared runs fn once per key among concurrent callers. fn gets a context
// that keeps the caller's values but not its cancellation; each caller stops
// waiting when its own ctx is done while the work carries on for the rest.
func (s *Service) shared(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), generationTimeout)
		defer cancel()
		return fn(workCtx)
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Save writes content under the id of the current wish-set, replacing
// whatever is stored there.
func (s *Service) Save(ctx context.Context, dishes []dish.Dish, content Content) (*ShoppingList, error) {
	if len(dishes) == 0 {
		return nil, apperrors.Validation("there are no wished dishes to save a shopping list for", nil)
	}

	ids := dishIDs(dishes)
	list := &ShoppingList{
		ID:      ListID(ids),
		DishIDs: ids,
		Content: content.Normalize(),
	}
	if err := s.repo.Upsert(ctx, list); err != nil {
		return nil, apperrors.Internal("failed to save the shopping list", err)
	}
	return list, nil
}

func (s *Service) generate(ctx context.Context, id string, ids []string, dishes []dish.Dish) (*ShoppingList, error) {
	withIngredients := make([]dish.Dish, 0, len(dishes))
	for _, d := range dishes {
		if d.HasIngredients() {
			withIngredients = append(withIngredients, d)
		}
	}
	if len(withIngredients) == 0 {
		return nil, apperrors.NoIngredients()
	}

	content, meta, err := Categorize(ctx, s.textGen, withIngredients)
	if recErr := s.usage.RecordMeta(meta); recErr != nil {
		logger.Warn("failed to record %s usage: %v", meta.AgentName, recErr)
	}
	if err != nil {
		logger.Error("shopping list %s generation failed: %v", id, err)
		return nil, apperrors.GenerationFailed(err)
	}

	list := &ShoppingList{ID: id, DishIDs: ids, Content: content}
	if err := s.repo.Upsert(ctx, list); err != nil {
		return nil, apperrors.Internal("failed to save the shopping list", err)
	}
	logger.Info("generated shopping list %s for %d dishes (%d items)", id, len(ids), content.ItemCount())
	return list, nil
}

// dishIDs returns the sorted ids of dishes.
func dishIDs(dishes []dish.Dish) []string {
	ids := make([]string, len(dishes))
	for i, d := range dishes {
		ids[i] = d.ID
	}
	sort.Strings(ids)
	return ids
}
