// Package feed keeps the paginated community feed consistent across
// overlapping refresh, load-more, and focus-triggered reload requests.
package feed

import (
	"context"
	"log/slog"
	"sync"

	"bookworm/internal/api"
	"bookworm/internal/domain"
)

// Fetcher is the slice of the API client the synchronizer needs.
type Fetcher interface {
	FetchBooks(ctx context.Context, page, limit int) (api.BookPage, error)
	DeleteBook(ctx context.Context, id string) error
}

// State is a consistent copy of the feed. Items are unique by ID and keep
// the server-provided order.
type State struct {
	Items        []domain.Book
	CurrentPage  int
	HasMore      bool
	IsLoading    bool
	IsRefreshing bool
}

type Synchronizer struct {
	api      Fetcher
	pageSize int
	log      *slog.Logger

	mu           sync.Mutex
	items        []domain.Book
	currentPage  int
	hasMore      bool
	isLoading    bool
	isRefreshing bool

	subMu     sync.Mutex
	subs      map[int]func(State)
	nextSubID int
}

func NewSynchronizer(fetcher Fetcher, pageSize int, log *slog.Logger) *Synchronizer {
	return &Synchronizer{
		api:      fetcher,
		pageSize: pageSize,
		hasMore:  true,
		log:      log,
		subs:     make(map[int]func(State)),
	}
}

func (s *Synchronizer) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		Items:        append([]domain.Book(nil), s.items...),
		CurrentPage:  s.currentPage,
		HasMore:      s.hasMore,
		IsLoading:    s.isLoading,
		IsRefreshing: s.isRefreshing,
	}
}

// Subscribe registers fn to run after every state change. The returned
// func removes the subscription.
func (s *Synchronizer) Subscribe(fn func(State)) func() {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Synchronizer) notify() {
	state := s.Snapshot()

	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

// LoadPage fetches one page and applies it: a refresh (or page 1)
// replaces the feed wholesale, any other page merges in. Failures leave
// the feed untouched; the returned error is for logging only.
func (s *Synchronizer) LoadPage(ctx context.Context, page int, refresh bool) error {
	s.mu.Lock()
	if refresh {
		s.isRefreshing = true
	} else {
		s.isLoading = true
	}
	s.mu.Unlock()
	s.notify()

	return s.fetch(ctx, page, refresh)
}

// LoadMore requests the next page unless one is already in flight or the
// server reported no further pages. Callers must not bypass this guard.
func (s *Synchronizer) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if !s.hasMore || s.isLoading || s.isRefreshing {
		s.mu.Unlock()

		return nil
	}
	page := s.currentPage + 1
	s.isLoading = true
	s.mu.Unlock()
	s.notify()

	return s.fetch(ctx, page, false)
}

// Refresh resets the feed to the current head, page 1.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	return s.LoadPage(ctx, 1, true)
}

// OnScreenFocused is the silent reload the presentation layer raises when
// the feed regains focus, so a freshly created item shows up without an
// explicit pull-to-refresh.
func (s *Synchronizer) OnScreenFocused(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.log.ErrorContext(ctx, "Focus refresh failed",
			"error", err)
	}
}

// Delete removes the book on the server first and only then drops the
// local copy; the server stays the authority.
func (s *Synchronizer) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteBook(ctx, id); err != nil {
		s.log.ErrorContext(ctx, "Failed to delete book",
			"error", err,
			"bookID", id)

		return err
	}

	s.mu.Lock()
	kept := s.items[:0]
	for _, b := range s.items {
		if b.ID != id {
			kept = append(kept, b)
		}
	}
	s.items = kept
	s.mu.Unlock()
	s.notify()

	return nil
}

// fetch assumes the matching in-flight flag is already set and clears it
// on every exit path.
func (s *Synchronizer) fetch(ctx context.Context, page int, refresh bool) error {
	defer func() {
		s.mu.Lock()
		if refresh {
			s.isRefreshing = false
		} else {
			s.isLoading = false
		}
		s.mu.Unlock()
		s.notify()
	}()

	resp, err := s.api.FetchBooks(ctx, page, s.pageSize)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to fetch feed page",
			"error", err,
			"page", page,
			"refresh", refresh)

		return err
	}

	// Merge against the state as it is now, not a pre-fetch snapshot: a
	// refresh may have landed while this page was in flight.
	s.mu.Lock()
	if refresh || page == 1 {
		s.items = append([]domain.Book(nil), resp.Books...)
	} else {
		s.items = mergeBooks(s.items, resp.Books)
	}
	s.currentPage = page
	s.hasMore = page < resp.TotalPages
	s.mu.Unlock()

	return nil
}

// mergeBooks unions the two lists keeping the first-seen copy of each ID
// in its first-seen position; later duplicates are dropped entirely.
func mergeBooks(existing []domain.Book, incoming []domain.Book) []domain.Book {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]domain.Book, 0, len(existing)+len(incoming))

	for _, b := range existing {
		if _, ok := seen[b.ID]; ok {
			continue
		}

		seen[b.ID] = struct{}{}
		merged = append(merged, b)
	}

	for _, b := range incoming {
		if _, ok := seen[b.ID]; ok {
			continue
		}

		seen[b.ID] = struct{}{}
		merged = append(merged, b)
	}

	return merged
}
