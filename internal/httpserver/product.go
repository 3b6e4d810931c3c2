package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/avelichko/storefront/internal/cart"
	"github.com/avelichko/storefront/internal/logging"
	"github.com/avelichko/storefront/internal/search"
	"github.com/avelichko/storefront/internal/util"
)

type ProductHandler struct {
	View       *cart.ViewStore
	CatalogSrc *cart.CatalogSource
}

// snapshot returns the current catalog, fetching it first if the freshness
// window has lapsed or nothing is loaded yet.
func (h *ProductHandler) snapshot(c echo.Context) (*cart.Catalog, error) {
	ctx := c.Request().Context()
	if err := h.CatalogSrc.Refresh(ctx, false); err != nil && !errors.Is(err, cart.ErrStaleResponse) {
		logging.FromContext(ctx).Warn("catalog_refresh_failed", "error", err)
	}

	// Still nil when the fetch failed, or when it was superseded by a
	// concurrent refresh that has not applied its snapshot yet.
	catalog := h.View.Catalog()
	if catalog == nil {
		return nil, echo.NewHTTPError(http.StatusBadGateway, "catalog unavailable")
	}
	return catalog, nil
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	catalog, err := h.snapshot(c)
	if err != nil {
		return err
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), 0)
	from, limit := util.Calculate(page, size)

	total := catalog.Len()
	if from > total {
		from = total
	}
	end := from + limit
	if end > total {
		end = total
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": catalog.Products[from:end],
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": util.TotalPages(total, limit),
			"has_prev":    page > 1,
			"has_next":    end < total,
		},
	})
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not integer")
	}

	catalog, herr := h.snapshot(c)
	if herr != nil {
		return herr
	}

	p, ok := catalog.Lookup(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	return c.JSON(http.StatusOK, p)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

type SearchHandler struct {
	Search *search.Service
}

func (h *SearchHandler) Handler(c echo.Context) error {
	if h.Search == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search not configured")
	}

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	from, size := util.Calculate(page, size)

	total, products, err := h.Search.Search(c.Request().Context(), q, from, size)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
}
