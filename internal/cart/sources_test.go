package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeCatalogFetcher struct {
	mu       sync.Mutex
	products []Product
	err      error
	calls    int
	block    chan struct{}
}

func (f *fakeCatalogFetcher) FetchCatalog(ctx context.Context) ([]Product, error) {
	f.mu.Lock()
	f.calls++
	products, err, block := f.products, f.err, f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return products, nil
}

func TestCatalogSourceRefreshAppliesSnapshot(t *testing.T) {
	store := NewViewStore(time.Minute, nil)
	fetch := &fakeCatalogFetcher{products: []Product{{ID: 1, Price: decimal.New(1, 0)}}}
	src := NewCatalogSource(fetch, store, nil, nil)

	require.NoError(t, src.Refresh(context.Background(), false))
	require.Equal(t, 1, store.Catalog().Len())
}

func TestCatalogSourceHonorsFreshnessWindow(t *testing.T) {
	store := NewViewStore(time.Minute, nil)
	fetch := &fakeCatalogFetcher{products: []Product{{ID: 1, Price: decimal.New(1, 0)}}}
	src := NewCatalogSource(fetch, store, nil, nil)

	require.NoError(t, src.Refresh(context.Background(), false))
	require.NoError(t, src.Refresh(context.Background(), false))
	require.Equal(t, 1, fetch.calls, "fresh snapshot must be served without a refetch")

	require.NoError(t, src.Refresh(context.Background(), true))
	require.Equal(t, 2, fetch.calls, "force bypasses the window")
}

func TestCatalogSourceWrapsFetchFailure(t *testing.T) {
	store := NewViewStore(time.Minute, nil)
	store.ApplyCatalog(store.BeginCatalog(), catalogFixture())

	fetch := &fakeCatalogFetcher{err: errors.New("timeout")}
	src := NewCatalogSource(fetch, store, nil, nil)

	err := src.Refresh(context.Background(), true)
	require.ErrorIs(t, err, ErrCatalogFetch)
	require.Equal(t, 2, store.Catalog().Len(), "failed refresh must keep the last-known-good snapshot")
}

type fakeCartFetcher struct {
	rec Record
	err error
}

func (f *fakeCartFetcher) FetchCart(ctx context.Context, userID int) (Record, error) {
	if f.err != nil {
		return Record{}, f.err
	}
	rec := f.rec.Clone()
	rec.UserID = userID
	return rec, nil
}

func TestCartSourceRefreshAppliesRecord(t *testing.T) {
	store := NewViewStore(time.Minute, nil)
	fetch := &fakeCartFetcher{rec: Record{Lines: []Line{{ProductID: 1, Quantity: 2}}}}
	src := NewCartSource(fetch, store, nil)

	require.NoError(t, src.Refresh(context.Background(), 42))

	rec, ok := store.Record()
	require.True(t, ok)
	require.Equal(t, 42, rec.UserID)
	require.Len(t, rec.Lines, 1)
}

func TestCartSourceWrapsFetchFailure(t *testing.T) {
	store := NewViewStore(time.Minute, nil)
	fetch := &fakeCartFetcher{err: errors.New("connection reset")}
	src := NewCartSource(fetch, store, nil)

	err := src.Refresh(context.Background(), 42)
	require.ErrorIs(t, err, ErrCartFetch)
	_, ok := store.Record()
	require.False(t, ok)
}

func TestCatalogSourceDiscardsSupersededResponse(t *testing.T) {
	store := NewViewStore(time.Minute, nil)

	block := make(chan struct{})
	slow := &fakeCatalogFetcher{
		products: []Product{{ID: 1, Title: "stale", Price: decimal.New(1, 0)}},
		block:    block,
	}
	src := NewCatalogSource(slow, store, nil, nil)

	done := make(chan error, 1)
	go func() { done <- src.Refresh(context.Background(), true) }()

	// wait for the slow refresh to claim its generation
	require.Eventually(t, func() bool {
		slow.mu.Lock()
		defer slow.mu.Unlock()
		return slow.calls == 1
	}, time.Second, time.Millisecond)

	// a newer refresh completes first
	fresh := NewCatalog([]Product{{ID: 1, Title: "fresh", Price: decimal.New(1, 0)}})
	require.True(t, store.ApplyCatalog(store.BeginCatalog(), fresh))

	close(block)
	require.ErrorIs(t, <-done, ErrStaleResponse)

	p, _ := store.Catalog().Lookup(1)
	require.Equal(t, "fresh", p.Title)
}

type recordingIndexer struct {
	mu      sync.Mutex
	batches [][]Product
	err     error
}

func (r *recordingIndexer) IndexCatalog(_ context.Context, products []Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, products)
	return r.err
}

func TestCatalogSourceFeedsIndexer(t *testing.T) {
	store := NewViewStore(time.Minute, nil)
	fetch := &fakeCatalogFetcher{products: []Product{{ID: 1, Price: decimal.New(1, 0)}}}
	idx := &recordingIndexer{}
	src := NewCatalogSource(fetch, store, idx, nil)

	require.NoError(t, src.Refresh(context.Background(), false))
	require.Len(t, idx.batches, 1)

	// an indexer failure must not fail the refresh
	idx.err = errors.New("es down")
	require.NoError(t, src.Refresh(context.Background(), true))
}
