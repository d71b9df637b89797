package items

import (
	"context"
	"log/slog"
	"sync"

	"stumart/internal/api"
	"stumart/internal/domain"
)

// ItemsAPI is the slice of the REST client the store needs.
type ItemsAPI interface {
	ListItems(ctx context.Context, q api.ItemQuery) (api.ItemPage, error)
	ToggleFavorite(ctx context.Context, itemID int) (bool, error)
	ToggleReport(ctx context.Context, itemID int, reason string) (bool, error)
}

// screenState is one screen's independent slice of the catalog: its own
// items, pagination cursor, category filter and search query.
type screenState struct {
	items       []domain.Item
	page        int
	hasMore     bool
	loading     bool
	loadingMore bool
	category    *int
	query       string
}

// Store caches item listings per screen (home, favorites, myItems,
// reported). Screens load independently, but a mutation through any of them
// fans out to every cached copy of that item, so two screens rendering the
// same listing never disagree on favorite/report state.
type Store struct {
	api    ItemsAPI
	logger *slog.Logger

	mu       sync.RWMutex
	screens  map[domain.ScreenID]*screenState
	onChange func()
}

func NewStore(itemsAPI ItemsAPI, logger *slog.Logger) *Store {
	screens := make(map[domain.ScreenID]*screenState, len(domain.Screens))
	for _, id := range domain.Screens {
		screens[id] = &screenState{hasMore: true}
	}
	return &Store{
		api:     itemsAPI,
		logger:  logger,
		screens: screens,
	}
}

func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Items returns a snapshot of one screen's collection.
func (s *Store) Items(screen domain.ScreenID) []domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.screens[screen]
	out := make([]domain.Item, len(st.items))
	copy(out, st.items)
	return out
}

func (s *Store) Loading(screen domain.ScreenID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screens[screen].loading
}

func (s *Store) LoadingMore(screen domain.ScreenID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screens[screen].loadingMore
}

func (s *Store) HasMore(screen domain.ScreenID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screens[screen].hasMore
}

func (s *Store) Query(screen domain.ScreenID) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screens[screen].query
}

func (s *Store) CategoryFilter(screen domain.ScreenID) *int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screens[screen].category
}

// Load fetches page one for a screen and replaces its collection. Failures
// log and keep whatever was already cached.
func (s *Store) Load(ctx context.Context, screen domain.ScreenID) {
	s.mu.Lock()
	st := s.screens[screen]
	st.loading = true
	query := api.ItemQuery{Screen: screen, Page: 1, Category: st.category, Search: st.query}
	s.mu.Unlock()
	s.notify()

	page, err := s.api.ListItems(ctx, query)

	s.mu.Lock()
	st.loading = false
	if err == nil {
		st.items = page.Items
		st.page = 1
		st.hasMore = page.HasMore
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.logger.Error("items: load failed", "screen", screen, "err", err)
	}
}

// LoadMore appends the next page. A call while a load is already in flight
// for the screen, or after the last page, does nothing.
func (s *Store) LoadMore(ctx context.Context, screen domain.ScreenID) {
	s.mu.Lock()
	st := s.screens[screen]
	if st.loadingMore || !st.hasMore {
		s.mu.Unlock()
		return
	}
	st.loadingMore = true
	query := api.ItemQuery{Screen: screen, Page: st.page + 1, Category: st.category, Search: st.query}
	s.mu.Unlock()
	s.notify()

	page, err := s.api.ListItems(ctx, query)

	s.mu.Lock()
	st.loadingMore = false
	if err == nil {
		st.items = append(st.items, page.Items...)
		st.page = query.Page
		st.hasMore = page.HasMore
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.logger.Error("items: load more failed", "screen", screen, "page", query.Page, "err", err)
	}
}

// Refresh is pull-to-refresh: re-fetch page one, replace.
func (s *Store) Refresh(ctx context.Context, screen domain.ScreenID) {
	s.Load(ctx, screen)
}

// SetCategory filters a screen by category (nil means "All") and reloads it.
func (s *Store) SetCategory(ctx context.Context, screen domain.ScreenID, category *int) {
	s.mu.Lock()
	s.screens[screen].category = category
	s.mu.Unlock()
	s.Load(ctx, screen)
}

// Search sets a screen's query and reloads it; other screens' queries are
// untouched.
func (s *Store) Search(ctx context.Context, screen domain.ScreenID, query string) {
	s.mu.Lock()
	s.screens[screen].query = query
	s.mu.Unlock()
	s.Load(ctx, screen)
}

func (s *Store) ClearSearch(ctx context.Context, screen domain.ScreenID) {
	s.Search(ctx, screen, "")
}

// ToggleFavorite flips the favorite flag server-side, then updates the
// cached copy of the item in every screen's collection, not just the screen
// the user toggled from.
func (s *Store) ToggleFavorite(ctx context.Context, itemID int) error {
	favorited, err := s.api.ToggleFavorite(ctx, itemID)
	if err != nil {
		s.logger.Error("items: toggle favorite failed", "item", itemID, "err", err)
		return err
	}

	s.mu.Lock()
	for _, st := range s.screens {
		for i := range st.items {
			if st.items[i].ID == itemID {
				st.items[i].IsFavorited = favorited
			}
		}
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// ToggleReport reports or unreports an item and fans the flag out the same
// way. Unreporting also drops the item from the reported screen; reporting
// leaves that screen to its next load.
func (s *Store) ToggleReport(ctx context.Context, itemID int, reason string) error {
	reported, err := s.api.ToggleReport(ctx, itemID, reason)
	if err != nil {
		s.logger.Error("items: toggle report failed", "item", itemID, "err", err)
		return err
	}

	s.mu.Lock()
	for screen, st := range s.screens {
		if screen == domain.ScreenReported && !reported {
			kept := st.items[:0]
			for _, item := range st.items {
				if item.ID != itemID {
					kept = append(kept, item)
				}
			}
			st.items = kept
			continue
		}
		for i := range st.items {
			if st.items[i].ID == itemID {
				st.items[i].IsReported = reported
			}
		}
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// Apply replaces the cached copy of an edited item wherever it appears.
func (s *Store) Apply(updated domain.Item) {
	s.mu.Lock()
	for _, st := range s.screens {
		for i := range st.items {
			if st.items[i].ID == updated.ID {
				st.items[i] = updated
			}
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Latest returns the freshest cached copy of an item, checking home, then
// favorites, then myItems, and falling back to whatever stale copy the
// caller already holds. Rendering through Latest keeps an item consistent
// even when two screens hold snapshots of different age.
func (s *Store) Latest(itemID int, fallback domain.Item) domain.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, screen := range []domain.ScreenID{domain.ScreenHome, domain.ScreenFavorites, domain.ScreenMyItems} {
		for _, item := range s.screens[screen].items {
			if item.ID == itemID {
				return item
			}
		}
	}
	return fallback
}

func (s *Store) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
