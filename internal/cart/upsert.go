package cart

import (
	"context"
	"log/slog"
	"sync"
)

// Store is the remote cart store contract. FetchCart returns an empty
// record, not an error, for a user with no persisted cart.
type Store interface {
	FetchCart(ctx context.Context, userID int) (Record, error)
	WriteCart(ctx context.Context, userID int, rec Record) (Record, error)
}

// Notifier is signalled after each mutation attempt. Implementations must
// not block the mutation path on delivery guarantees.
type Notifier interface {
	CartMutated(ctx context.Context, rec Record)
	CartMutationFailed(ctx context.Context, userID, productID int, err error)
}

// NopNotifier backs configurations without an event sink.
type NopNotifier struct{}

func (NopNotifier) CartMutated(context.Context, Record) {}
func (NopNotifier) CartMutationFailed(context.Context, int, int, error) {}

// UpsertEngine performs add-to-cart as a read-modify-write cycle against a
// store with no transactional write. Calls for the same user are serialized
// on a per-user lock; without it two overlapping cycles could both read the
// pre-increment record and the second write would erase the first.
type UpsertEngine struct {
	store  Store
	view   *ViewStore
	notify Notifier
	logger *slog.Logger

	mu    sync.Mutex
	users map[int]*sync.Mutex
}

func NewUpsertEngine(store Store, view *ViewStore, notify Notifier, logger *slog.Logger) *UpsertEngine {
	if notify == nil {
		notify = NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UpsertEngine{
		store:  store,
		view:   view,
		notify: notify,
		logger: logger,
		users:  make(map[int]*sync.Mutex),
	}
}

func (e *UpsertEngine) userLock(userID int) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	lk, ok := e.users[userID]
	if !ok {
		lk = &sync.Mutex{}
		e.users[userID] = lk
	}
	return lk
}

// AddToCart fetches the current record, bumps the existing line for the
// product or appends a new one, and writes the whole record back. The
// server-confirmed record is returned and installed in the view store so
// out-of-band server-side changes flow back into the view. A failed step is
// not retried: the write has no idempotency key, so a blind retry could
// re-apply on top of state it never saw.
func (e *UpsertEngine) AddToCart(ctx context.Context, userID, productID, incrementBy int) (Record, error) {
	if incrementBy < 1 {
		incrementBy = 1
	}

	lk := e.userLock(userID)
	lk.Lock()
	defer lk.Unlock()

	l := e.logger.With("user_id", userID, "product_id", productID)

	current, err := e.store.FetchCart(ctx, userID)
	if err != nil {
		merr := &MutationError{Op: OpRead, Err: err}
		l.Error("add_to_cart_failed", "op", string(OpRead), "error", err)
		e.notify.CartMutationFailed(ctx, userID, productID, merr)
		return Record{}, merr
	}
	current.UserID = userID

	merged := upsertLine(current, productID, incrementBy)

	confirmed, err := e.store.WriteCart(ctx, userID, merged)
	if err != nil {
		merr := &MutationError{Op: OpWrite, Err: err}
		l.Error("add_to_cart_failed", "op", string(OpWrite), "error", err)
		e.notify.CartMutationFailed(ctx, userID, productID, merr)
		return Record{}, merr
	}

	e.view.SetCart(confirmed)
	e.notify.CartMutated(ctx, confirmed)
	l.Info("add_to_cart_success", "quantity", lineQuantity(confirmed, productID), "revision", confirmed.Revision)
	return confirmed, nil
}

// upsertLine merges an increment into a record copy. At most one line per
// product id ever exists; a hit updates in place, a miss appends.
func upsertLine(rec Record, productID, incrementBy int) Record {
	out := rec.Clone()
	for i, ln := range out.Lines {
		if ln.ProductID == productID {
			out.Lines[i].Quantity = ln.Quantity + incrementBy
			return out
		}
	}
	out.Lines = append(out.Lines, Line{ProductID: productID, Quantity: incrementBy})
	return out
}

func lineQuantity(rec Record, productID int) int {
	for _, ln := range rec.Lines {
		if ln.ProductID == productID {
			return ln.Quantity
		}
	}
	return 0
}
