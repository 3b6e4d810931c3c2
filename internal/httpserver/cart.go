package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avelichko/storefront/internal/cart"
	"github.com/avelichko/storefront/internal/logging"
)

type CartHandler struct {
	View       *cart.ViewStore
	Engine     *cart.UpsertEngine
	CatalogSrc *cart.CatalogSource
	CartSrc    *cart.CartSource
	Session    *Session
}

// GetCart returns the current enriched view. Best effort: empty lines until
// both inputs have resolved.
func (h *CartHandler) GetCart(c echo.Context) error {
	if _, ok := h.Session.Current(); !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no active session")
	}
	return c.JSON(http.StatusOK, h.View.CurrentView())
}

// AddToCart runs the upsert cycle and returns the server-confirmed record.
func (h *CartHandler) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	userID, ok := h.Session.Current()
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no active session")
	}

	var req struct {
		ProductID int `json:"product_id"`
		Quantity  int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id required")
	}

	confirmed, err := h.Engine.AddToCart(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		var merr *cart.MutationError
		if errors.As(err, &merr) {
			l.Error("add_to_cart_failed", "op", string(merr.Op), "error", err)
			return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("cart %s failed", merr.Op))
		}
		l.Error("add_to_cart_failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, confirmed)
}

// RefreshCart refetches the cart (and the catalog if its window lapsed) on
// explicit user action. The store keeps its last-known-good state when the
// upstream is down, so the view in the error reply is still servable.
func (h *CartHandler) RefreshCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.refresh")

	userID, ok := h.Session.Current()
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no active session")
	}

	if err := h.CatalogSrc.Refresh(ctx, false); err != nil && !errors.Is(err, cart.ErrStaleResponse) {
		l.Warn("catalog_refresh_failed", "error", err)
	}
	if err := h.CartSrc.Refresh(ctx, userID); err != nil && !errors.Is(err, cart.ErrStaleResponse) {
		l.Error("cart_refresh_failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "cart refresh failed")
	}

	return c.JSON(http.StatusOK, h.View.CurrentView())
}

// Events streams view changes as server-sent events until the client goes
// away. A slow consumer only ever misses intermediate states; the final
// view always gets through because the channel keeps one slot.
func (h *CartHandler) Events(c echo.Context) error {
	if _, ok := h.Session.Current(); !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "no active session")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	updates := make(chan cart.View, 1)
	unsubscribe := h.View.Subscribe(func(v cart.View) {
		// evict an unread older view first so the slot always holds the
		// newest one
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- v:
		default:
		}
	})
	defer unsubscribe()

	send := func(v cart.View) error {
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(resp, "data: %s\n\n", data); err != nil {
			return err
		}
		resp.Flush()
		return nil
	}

	if err := send(h.View.CurrentView()); err != nil {
		return nil
	}

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case v := <-updates:
			if err := send(v); err != nil {
				return nil
			}
		}
	}
}
