package shopping

import (
	"context"
	"reflect"
	"sync"

	"shared-menu/internal/apperrors"
	"shared-menu/internal/dish"
)

// Session is the shopping list state of one view: the wish-set it follows,
// the stored list of that set and an editable working copy. Edits stay in
// the working copy until Save.
type Session struct {
	service *Service

	mu       sync.Mutex
	dishes   []dish.Dish
	id       string
	list     *ShoppingList
	editable *Content
	// edited is set while the working copy holds unsaved edits.
	edited bool
}

// State is a snapshot of a Session.
type State struct {
	ID       string        `json:"shopping_list_id"`
	List     *ShoppingList `json:"shopping_list"`
	Editable *Content      `json:"editable"`
}

func NewSession(service *Service) *Session {
	return &Session{service: service, id: ListID(nil)}
}

// Reconcile follows a new wish-set. When the id changes the session
// reattaches the stored list of the new set, or resets to empty when there
// is none. An unchanged id keeps the working copy.
func (s *Session) Reconcile(ctx context.Context, dishes []dish.Dish) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ListID(dishIDs(dishes))
	s.dishes = append([]dish.Dish(nil), dishes...)
	if id == s.id && s.list != nil {
		return nil
	}

	s.id = id
	list, err := s.service.Lookup(ctx, dishes)
	if err != nil {
		s.reset()
		return err
	}
	s.attach(list)
	return nil
}

// Reload adopts the stored list when listID is the current id. Used when
// another view saved the same list. discarded reports that unsaved edits
// differing from the stored content were replaced.
func (s *Session) Reload(ctx context.Context, listID string) (reloaded, discarded bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if listID != s.id {
		return false, false, nil
	}
	list, err := s.service.Lookup(ctx, s.dishes)
	if err != nil {
		return false, false, err
	}
	if list == nil {
		return false, false, nil
	}
	discarded = s.edited && s.editable != nil && !reflect.DeepEqual(*s.editable, list.Content)
	s.attach(list)
	return true, discarded, nil
}

// Generate looks up or generates the list of the current wish-set.
func (s *Session) Generate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, _, err := s.service.Ensure(ctx, s.dishes)
	if err != nil {
		return err
	}
	s.attach(list)
	return nil
}

// Regenerate replaces the list of the current wish-set with a new one.
func (s *Session) Regenerate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.service.Regenerate(ctx, s.dishes)
	if err != nil {
		return err
	}
	s.attach(list)
	return nil
}

// Edit replaces the working copy.
func (s *Session) Edit(content Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.list == nil {
		return apperrors.Validation("generate a shopping list before editing it", nil)
	}
	c := content.Normalize()
	s.editable = &c
	s.edited = true
	return nil
}

// Save stores the working copy under the current wish-set id.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editable == nil {
		return apperrors.Validation("there is no shopping list to save", nil)
	}
	list, err := s.service.Save(ctx, s.dishes, *s.editable)
	if err != nil {
		return err
	}
	s.id = list.ID
	s.attach(list)
	return nil
}

// State returns a snapshot.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{ID: s.id}
	if s.list != nil {
		l := *s.list
		l.Content = s.list.Content.Clone()
		st.List = &l
	}
	if s.editable != nil {
		c := s.editable.Clone()
		st.Editable = &c
	}
	return st
}

func (s *Session) attach(list *ShoppingList) {
	if list == nil {
		s.reset()
		return
	}
	s.list = list
	c := list.Content.Clone()
	s.editable = &c
	s.edited = false
}

func (s *Session) reset() {
	s.list = nil
	s.editable = nil
	s.edited = false
}
