package httpserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelichko/storefront/internal/cart"
	"github.com/avelichko/storefront/internal/logging"
	"github.com/avelichko/storefront/internal/storeapi"
)

// Session tracks the single signed-in user and owns a context that cancels
// every session-scoped fetch when the session ends.
type Session struct {
	mu     sync.Mutex
	userID int
	active bool
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession() *Session {
	return &Session{}
}

// Start begins a session for userID, ending any previous one first. The
// returned context is cancelled by End.
func (s *Session) Start(userID int) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.userID = userID
	s.active = true
	return s.ctx
}

func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.active = false
	s.userID = 0
}

func (s *Session) Current() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.active
}

type SessionHandler struct {
	Client     *storeapi.Client
	View       *cart.ViewStore
	CatalogSrc *cart.CatalogSource
	CartSrc    *cart.CartSource
	Session    *Session
}

const initialLoadTimeout = 15 * time.Second

// Login authenticates against the store, starts the session and kicks off
// the catalog and cart fetches concurrently. The login response does not
// wait for them; the view fills in as they resolve.
func (h *SessionHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "session.login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password required")
	}

	resp, err := h.Client.Login(ctx, req.Username, req.Password)
	if err != nil {
		l.Warn("login_failed", "error", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "login failed")
	}

	sessionCtx := h.Session.Start(resp.UserID)

	go func() {
		loadCtx, cancel := context.WithTimeout(sessionCtx, initialLoadTimeout)
		defer cancel()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := h.CatalogSrc.Refresh(loadCtx, false); err != nil {
				l.Warn("initial_catalog_load_failed", "error", err)
			}
		}()
		go func() {
			defer wg.Done()
			if err := h.CartSrc.Refresh(loadCtx, resp.UserID); err != nil {
				l.Warn("initial_cart_load_failed", "error", err)
			}
		}()
		wg.Wait()
	}()

	l.Info("session_started", "user_id", resp.UserID)
	return c.JSON(http.StatusOK, map[string]any{"user_id": resp.UserID})
}

// Logout tears the session down: in-flight fetches are cancelled and the
// view store is cleared.
func (h *SessionHandler) Logout(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "session.logout")

	h.Session.End()
	h.View.Reset()
	h.Client.SetToken("")

	l.Info("session_ended")
	return c.NoContent(http.StatusNoContent)
}
