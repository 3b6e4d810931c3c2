package cart

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeStore keeps the record in memory and bumps the revision per write,
// like the real store does. failRead/failWrite simulate network errors.
type fakeStore struct {
	mu        sync.Mutex
	record    Record
	revision  int
	failRead  error
	failWrite error
	writes    int
	delay     time.Duration
}

func (f *fakeStore) FetchCart(ctx context.Context, userID int) (Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead != nil {
		return Record{}, f.failRead
	}
	rec := f.record.Clone()
	rec.UserID = userID
	return rec, nil
}

func (f *fakeStore) WriteCart(ctx context.Context, userID int, rec Record) (Record, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != nil {
		return Record{}, f.failWrite
	}
	f.revision++
	f.writes++
	rec.Revision = strconv.Itoa(f.revision)
	f.record = rec.Clone()
	return rec, nil
}

func newTestEngine(store *fakeStore) (*UpsertEngine, *ViewStore) {
	view := NewViewStore(time.Minute, nil)
	engine := NewUpsertEngine(store, view, nil, nil)
	return engine, view
}

func TestAddToCartAppendsNewLine(t *testing.T) {
	store := &fakeStore{}
	engine, _ := newTestEngine(store)

	rec, err := engine.AddToCart(context.Background(), 1, 7, 1)
	require.NoError(t, err)
	require.Len(t, rec.Lines, 1)
	require.Equal(t, Line{ProductID: 7, Quantity: 1}, rec.Lines[0])
}

func TestAddToCartIncrementsExistingLine(t *testing.T) {
	store := &fakeStore{record: Record{Lines: []Line{{ProductID: 7, Quantity: 3}}}}
	engine, _ := newTestEngine(store)

	rec, err := engine.AddToCart(context.Background(), 1, 7, 1)
	require.NoError(t, err)
	require.Len(t, rec.Lines, 1, "must never create a duplicate line for the same product")
	require.Equal(t, 4, rec.Lines[0].Quantity)
}

func TestAddToCartSequentialCalls(t *testing.T) {
	store := &fakeStore{}
	engine, _ := newTestEngine(store)

	_, err := engine.AddToCart(context.Background(), 1, 7, 1)
	require.NoError(t, err)
	rec, err := engine.AddToCart(context.Background(), 1, 7, 1)
	require.NoError(t, err)

	require.Len(t, rec.Lines, 1)
	require.Equal(t, 2, rec.Lines[0].Quantity)
}

func TestAddToCartAppendsAtEnd(t *testing.T) {
	store := &fakeStore{record: Record{Lines: []Line{{ProductID: 1, Quantity: 1}}}}
	engine, _ := newTestEngine(store)

	rec, err := engine.AddToCart(context.Background(), 1, 2, 5)
	require.NoError(t, err)
	require.Equal(t, []Line{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 5}}, rec.Lines)
}

func TestAddToCartNormalizesIncrement(t *testing.T) {
	store := &fakeStore{}
	engine, _ := newTestEngine(store)

	rec, err := engine.AddToCart(context.Background(), 1, 7, 0)
	require.NoError(t, err)
	require.Equal(t, 1, rec.Lines[0].Quantity)
}

func TestAddToCartReadFailure(t *testing.T) {
	cause := errors.New("connection refused")
	store := &fakeStore{failRead: cause}
	engine, _ := newTestEngine(store)

	_, err := engine.AddToCart(context.Background(), 1, 7, 1)

	var merr *MutationError
	require.ErrorAs(t, err, &merr)
	require.Equal(t, OpRead, merr.Op)
	require.ErrorIs(t, err, cause)
	require.Zero(t, store.writes, "no write may happen after a failed read")
}

func TestAddToCartWriteFailureKeepsCachedRecord(t *testing.T) {
	store := &fakeStore{record: Record{Lines: []Line{{ProductID: 7, Quantity: 3}}}}
	engine, view := newTestEngine(store)

	cached := Record{UserID: 1, Lines: []Line{{ProductID: 7, Quantity: 3}}, Revision: "1"}
	view.SetCart(cached)

	store.failWrite = errors.New("network down")
	_, err := engine.AddToCart(context.Background(), 1, 7, 1)

	var merr *MutationError
	require.ErrorAs(t, err, &merr)
	require.Equal(t, OpWrite, merr.Op)

	got, ok := view.Record()
	require.True(t, ok)
	require.Equal(t, cached, got, "cached record must stay untouched after a failed write")
}

func TestAddToCartUpdatesViewStore(t *testing.T) {
	store := &fakeStore{}
	engine, view := newTestEngine(store)

	confirmed, err := engine.AddToCart(context.Background(), 1, 7, 2)
	require.NoError(t, err)

	got, ok := view.Record()
	require.True(t, ok)
	require.Equal(t, confirmed, got, "view store must hold the server-confirmed record")
	require.Equal(t, "1", got.Revision)
}

func TestAddToCartSerializesConcurrentCalls(t *testing.T) {
	store := &fakeStore{delay: 5 * time.Millisecond}
	engine, _ := newTestEngine(store)

	const calls = 10
	var wg sync.WaitGroup
	wg.Add(calls)
	for i := 0; i < calls; i++ {
		go func() {
			defer wg.Done()
			_, err := engine.AddToCart(context.Background(), 1, 7, 1)
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := store.FetchCart(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, final.Lines, 1)
	require.Equal(t, calls, final.Lines[0].Quantity, "lost update: concurrent cycles interleaved")
	require.Equal(t, calls, store.writes)
}

type recordingNotifier struct {
	mu       sync.Mutex
	mutated  []Record
	failures []error
}

func (n *recordingNotifier) CartMutated(_ context.Context, rec Record) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mutated = append(n.mutated, rec)
}

func (n *recordingNotifier) CartMutationFailed(_ context.Context, _, _ int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, err)
}

func TestAddToCartSignalsNotifier(t *testing.T) {
	store := &fakeStore{}
	view := NewViewStore(time.Minute, nil)
	notifier := &recordingNotifier{}
	engine := NewUpsertEngine(store, view, notifier, nil)

	_, err := engine.AddToCart(context.Background(), 1, 7, 1)
	require.NoError(t, err)
	require.Len(t, notifier.mutated, 1)

	store.failWrite = errors.New("boom")
	_, err = engine.AddToCart(context.Background(), 1, 7, 1)
	require.Error(t, err)
	require.Len(t, notifier.failures, 1)
	require.ErrorIs(t, notifier.failures[0], store.failWrite)
}
