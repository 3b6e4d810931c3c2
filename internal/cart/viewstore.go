package cart

import (
	"log/slog"
	"sync"
	"time"
)

// Listener receives the recomputed view after either input changes.
type Listener func(View)

// ViewStore holds the latest catalog snapshot, cart record and the view
// derived from them. The view is recomputed whole under the lock whenever
// an input is applied, so readers never observe a torn merge. Generation
// counters per input discard responses that arrive after a newer request
// was issued for the same resource.
type ViewStore struct {
	mu sync.Mutex

	catalog   *Catalog
	catalogAt time.Time
	record    Record
	hasRecord bool
	view      View

	catalogGen     uint64
	catalogApplied uint64
	cartGen        uint64
	cartApplied    uint64

	listeners map[int]Listener
	nextSub   int

	catalogTTL time.Duration
	logger     *slog.Logger
}

func NewViewStore(catalogTTL time.Duration, logger *slog.Logger) *ViewStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ViewStore{
		listeners:  make(map[int]Listener),
		catalogTTL: catalogTTL,
		logger:     logger,
	}
}

// CurrentView returns the last computed view. Empty until both inputs have
// resolved at least once; a later fetch failure never clears it.
func (s *ViewStore) CurrentView() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Catalog returns the current snapshot, nil if not yet loaded.
func (s *ViewStore) Catalog() *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Record returns a copy of the cached cart record and whether one has been
// observed this session.
func (s *ViewStore) Record() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone(), s.hasRecord
}

// CatalogFresh reports whether the snapshot is inside its freshness window
// and a refetch can be skipped.
func (s *ViewStore) CatalogFresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog != nil && time.Since(s.catalogAt) < s.catalogTTL
}

// Subscribe registers a view-change listener and returns its cancel func.
// Listeners run outside the store lock, on the goroutine that applied the
// change.
func (s *ViewStore) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// BeginCatalog claims a generation for a catalog round trip. The matching
// ApplyCatalog is a no-op if a newer generation was claimed meanwhile.
func (s *ViewStore) BeginCatalog() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogGen++
	return s.catalogGen
}

func (s *ViewStore) ApplyCatalog(gen uint64, c *Catalog) bool {
	s.mu.Lock()
	if gen < s.catalogGen || gen <= s.catalogApplied {
		s.mu.Unlock()
		return false
	}
	s.catalogApplied = gen
	s.catalog = c
	s.catalogAt = time.Now()
	notify := s.recompute()
	s.mu.Unlock()

	notify()
	return true
}

func (s *ViewStore) BeginCart() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartGen++
	return s.cartGen
}

func (s *ViewStore) ApplyCart(gen uint64, rec Record) bool {
	s.mu.Lock()
	if gen < s.cartGen || gen <= s.cartApplied {
		s.mu.Unlock()
		return false
	}
	s.finishApplyCart(gen, rec)
	return true
}

// SetCart installs a server-confirmed record from the mutation path. It
// claims its own generation so an older in-flight fetch cannot overwrite
// the confirmed state when it lands.
func (s *ViewStore) SetCart(rec Record) {
	s.mu.Lock()
	s.cartGen++
	s.finishApplyCart(s.cartGen, rec)
}

// finishApplyCart finishes an apply and releases the lock before fanning
// out to listeners.
func (s *ViewStore) finishApplyCart(gen uint64, rec Record) {
	s.cartApplied = gen
	s.record = rec.Clone()
	s.hasRecord = true
	notify := s.recompute()
	s.mu.Unlock()

	notify()
}

// Reset clears all state at session end. Generation counters keep counting
// so responses from the previous session cannot resurface.
func (s *ViewStore) Reset() {
	s.mu.Lock()
	s.catalog = nil
	s.catalogAt = time.Time{}
	s.record = Record{}
	s.hasRecord = false
	s.view = View{}
	notify := s.recompute()
	s.mu.Unlock()

	notify()
}

// recompute rebuilds the view from the current inputs. Must be called with
// the lock held; the returned func notifies listeners and must run after
// the lock is released.
func (s *ViewStore) recompute() func() {
	if s.catalog != nil && s.hasRecord {
		view, dropped := Reconcile(s.catalog, s.record)
		for _, id := range dropped {
			s.logger.Warn("cart line dropped from view", "product_id", id, "user_id", s.record.UserID)
		}
		s.view = view
	} else {
		s.view = View{}
	}

	view := s.view
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(view)
		}
	}
}
