package feed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"bookworm/internal/api"
	"bookworm/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu         sync.Mutex
	pages      map[int]api.BookPage
	fetchErr   error
	deleteErr  error
	fetchCalls int
	deleted    []string
}

func (f *stubFetcher) FetchBooks(_ context.Context, page, _ int) (api.BookPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetchCalls++
	if f.fetchErr != nil {
		return api.BookPage{}, f.fetchErr
	}

	return f.pages[page], nil
}

func (f *stubFetcher) DeleteBook(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)

	return nil
}

func (f *stubFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.fetchCalls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func book(id string) domain.Book {
	return domain.Book{ID: id}
}

func ids(books []domain.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.ID)
	}

	return out
}

func TestLoadMoreMergesAndDeduplicates(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]api.BookPage{
		1: {Books: []domain.Book{book("1"), book("2")}, TotalPages: 2},
		2: {Books: []domain.Book{book("2"), book("3")}, TotalPages: 2},
	}}
	s := NewSynchronizer(fetcher, 3, testLogger())
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx))
	require.NoError(t, s.LoadMore(ctx))

	state := s.Snapshot()
	assert.Equal(t, []string{"1", "2", "3"}, ids(state.Items))
	assert.Equal(t, 2, state.CurrentPage)
	assert.False(t, state.HasMore)
}

func TestRefreshReplacesWholesale(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]api.BookPage{
		1: {Books: []domain.Book{book("1"), book("2")}, TotalPages: 2},
		2: {Books: []domain.Book{book("3")}, TotalPages: 2},
	}}
	s := NewSynchronizer(fetcher, 3, testLogger())
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx))
	require.NoError(t, s.LoadMore(ctx))
	require.Equal(t, []string{"1", "2", "3"}, ids(s.Snapshot().Items))

	// The head moved on: page 1 now holds a new item and more pages exist.
	fetcher.mu.Lock()
	fetcher.pages[1] = api.BookPage{Books: []domain.Book{book("5")}, TotalPages: 3}
	fetcher.mu.Unlock()

	require.NoError(t, s.Refresh(ctx))

	state := s.Snapshot()
	assert.Equal(t, []string{"5"}, ids(state.Items))
	assert.Equal(t, 1, state.CurrentPage)
	assert.True(t, state.HasMore)
}

func TestLoadMoreGuardWhileLoading(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]api.BookPage{}}
	s := NewSynchronizer(fetcher, 3, testLogger())

	s.mu.Lock()
	s.isLoading = true
	s.items = []domain.Book{book("1")}
	s.currentPage = 1
	s.mu.Unlock()

	require.NoError(t, s.LoadMore(context.Background()))

	assert.Equal(t, 0, fetcher.calls())

	state := s.Snapshot()
	assert.Equal(t, []string{"1"}, ids(state.Items))
	assert.Equal(t, 1, state.CurrentPage)
	assert.True(t, state.IsLoading)
}

func TestLoadMoreGuardWhileRefreshing(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]api.BookPage{}}
	s := NewSynchronizer(fetcher, 3, testLogger())

	s.mu.Lock()
	s.isRefreshing = true
	s.mu.Unlock()

	require.NoError(t, s.LoadMore(context.Background()))
	assert.Equal(t, 0, fetcher.calls())
}

func TestLoadMoreGuardWhenExhausted(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]api.BookPage{
		1: {Books: []domain.Book{book("1")}, TotalPages: 1},
	}}
	s := NewSynchronizer(fetcher, 3, testLogger())
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx))
	require.Equal(t, 1, fetcher.calls())

	require.NoError(t, s.LoadMore(ctx))
	assert.Equal(t, 1, fetcher.calls())
}

func TestFetchFailureLeavesStateUntouched(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]api.BookPage{
		1: {Books: []domain.Book{book("1"), book("2")}, TotalPages: 3},
	}}
	s := NewSynchronizer(fetcher, 3, testLogger())
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx))
	before := s.Snapshot()

	fetcher.mu.Lock()
	fetcher.fetchErr = &api.TransportError{Err: errors.New("timeout")}
	fetcher.mu.Unlock()

	require.Error(t, s.LoadMore(ctx))

	after := s.Snapshot()
	assert.Equal(t, ids(before.Items), ids(after.Items))
	assert.Equal(t, before.CurrentPage, after.CurrentPage)
	assert.Equal(t, before.HasMore, after.HasMore)
	assert.False(t, after.IsLoading)
	assert.False(t, after.IsRefreshing)
}

func TestFlagsClearAfterFailedRefresh(t *testing.T) {
	fetcher := &stubFetcher{fetchErr: errors.New("boom")}
	s := NewSynchronizer(fetcher, 3, testLogger())

	require.Error(t, s.Refresh(context.Background()))

	state := s.Snapshot()
	assert.False(t, state.IsRefreshing)
	assert.False(t, state.IsLoading)
}

func TestStalePageStillMergesAfterRefresh(t *testing.T) {
	// A page-2 response that lands after a fast refresh must still be
	// unioned in, against the state as it is then.
	fetcher := &stubFetcher{pages: map[int]api.BookPage{
		1: {Books: []domain.Book{book("5")}, TotalPages: 2},
		2: {Books: []domain.Book{book("2"), book("3")}, TotalPages: 2},
	}}
	s := NewSynchronizer(fetcher, 3, testLogger())
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx))
	require.NoError(t, s.fetch(ctx, 2, false))

	assert.Equal(t, []string{"5", "2", "3"}, ids(s.Snapshot().Items))
}

func TestDeleteRemovesLocalCopyOnSuccess(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]api.BookPage{
		1: {Books: []domain.Book{book("1"), book("2")}, TotalPages: 1},
	}}
	s := NewSynchronizer(fetcher, 3, testLogger())
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx))
	require.NoError(t, s.Delete(ctx, "1"))

	assert.Equal(t, []string{"2"}, ids(s.Snapshot().Items))
	assert.Equal(t, []string{"1"}, fetcher.deleted)
}

func TestDeleteFailureKeepsLocalCopy(t *testing.T) {
	fetcher := &stubFetcher{
		pages: map[int]api.BookPage{
			1: {Books: []domain.Book{book("1")}, TotalPages: 1},
		},
		deleteErr: &api.ServerError{Status: 403, Message: "not yours"},
	}
	s := NewSynchronizer(fetcher, 3, testLogger())
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx))
	require.Error(t, s.Delete(ctx, "1"))

	assert.Equal(t, []string{"1"}, ids(s.Snapshot().Items))
}

func TestOnScreenFocusedReloads(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]api.BookPage{
		1: {Books: []domain.Book{book("1")}, TotalPages: 1},
	}}
	s := NewSynchronizer(fetcher, 3, testLogger())
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx))

	fetcher.mu.Lock()
	fetcher.pages[1] = api.BookPage{Books: []domain.Book{book("9"), book("1")}, TotalPages: 1}
	fetcher.mu.Unlock()

	s.OnScreenFocused(ctx)

	assert.Equal(t, []string{"9", "1"}, ids(s.Snapshot().Items))
}

func TestSubscribeSeesFinalState(t *testing.T) {
	fetcher := &stubFetcher{pages: map[int]api.BookPage{
		1: {Books: []domain.Book{book("1")}, TotalPages: 1},
	}}
	s := NewSynchronizer(fetcher, 3, testLogger())

	var last State
	unsubscribe := s.Subscribe(func(state State) {
		last = state
	})
	defer unsubscribe()

	require.NoError(t, s.Refresh(context.Background()))

	assert.Equal(t, []string{"1"}, ids(last.Items))
	assert.False(t, last.IsRefreshing)
}

func TestMergeBooksFirstSeenWins(t *testing.T) {
	existing := []domain.Book{
		{ID: "1", Title: "old one"},
		{ID: "2", Title: "old two"},
	}
	incoming := []domain.Book{
		{ID: "2", Title: "new two"},
		{ID: "3", Title: "three"},
	}

	merged := mergeBooks(existing, incoming)

	require.Equal(t, []string{"1", "2", "3"}, ids(merged))
	assert.Equal(t, "old two", merged[1].Title)
}
