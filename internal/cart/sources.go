package cart

import (
	"context"
	"fmt"
	"log/slog"
)

// CatalogFetcher is the upstream product read.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) ([]Product, error)
}

// Indexer receives each applied catalog snapshot, e.g. for search indexing.
type Indexer interface {
	IndexCatalog(ctx context.Context, products []Product) error
}

// CatalogSource drives catalog refreshes into the view store. A generation
// is claimed before the round trip and the response is applied only if no
// newer refresh started meanwhile, so a slow response cannot clobber a
// fresher snapshot. A failed or cancelled fetch leaves the store untouched.
type CatalogSource struct {
	fetch   CatalogFetcher
	store   *ViewStore
	indexer Indexer
	logger  *slog.Logger
}

func NewCatalogSource(fetch CatalogFetcher, store *ViewStore, indexer Indexer, logger *slog.Logger) *CatalogSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogSource{fetch: fetch, store: store, indexer: indexer, logger: logger}
}

// Refresh fetches the catalog unless the current snapshot is still inside
// its freshness window. force bypasses the window.
func (s *CatalogSource) Refresh(ctx context.Context, force bool) error {
	if !force && s.store.CatalogFresh() {
		return nil
	}

	gen := s.store.BeginCatalog()
	products, err := s.fetch.FetchCatalog(ctx)
	if err != nil {
		s.logger.Error("catalog_refresh_failed", "error", err)
		return fmt.Errorf("%w: %w", ErrCatalogFetch, err)
	}

	if !s.store.ApplyCatalog(gen, NewCatalog(products)) {
		s.logger.Info("catalog_response_discarded", "generation", gen)
		return ErrStaleResponse
	}
	s.logger.Info("catalog_refreshed", "products", len(products))

	if s.indexer != nil {
		if err := s.indexer.IndexCatalog(ctx, products); err != nil {
			// Search lags behind the snapshot until the next refresh; the
			// view itself is already up to date.
			s.logger.Warn("catalog_index_failed", "error", err)
		}
	}
	return nil
}

// CartFetcher is the upstream cart read. A user without a persisted cart
// yields an empty record, not an error.
type CartFetcher interface {
	FetchCart(ctx context.Context, userID int) (Record, error)
}

// CartSource drives cart refreshes into the view store with the same
// generation guard as CatalogSource.
type CartSource struct {
	fetch  CartFetcher
	store  *ViewStore
	logger *slog.Logger
}

func NewCartSource(fetch CartFetcher, store *ViewStore, logger *slog.Logger) *CartSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartSource{fetch: fetch, store: store, logger: logger}
}

func (s *CartSource) Refresh(ctx context.Context, userID int) error {
	gen := s.store.BeginCart()
	rec, err := s.fetch.FetchCart(ctx, userID)
	if err != nil {
		s.logger.Error("cart_refresh_failed", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %w", ErrCartFetch, err)
	}
	rec.UserID = userID

	if !s.store.ApplyCart(gen, rec) {
		s.logger.Info("cart_response_discarded", "user_id", userID, "generation", gen)
		return ErrStaleResponse
	}
	s.logger.Info("cart_refreshed", "user_id", userID, "lines", len(rec.Lines))
	return nil
}
