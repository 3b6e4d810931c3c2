package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avelichko/storefront/internal/cart"
)

// Client talks to the remote store over plain HTTP/JSON. It performs no
// retries; failures surface to the caller, which decides what to do.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func NewClient(storeURL string) *Client {
	return &Client{
		baseURL: storeURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// TokenExpiresWithin reports whether the held token lapses inside d. The
// token is parsed without signature verification; only the store itself can
// verify it, the client just needs the expiry.
func (c *Client) TokenExpiresWithin(d time.Duration) bool {
	tok := c.Token()
	if tok == "" {
		return true
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) < d
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// FetchCatalog reads the full product set. Idempotent; callers cache it for
// the configured freshness window.
func (c *Client) FetchCatalog(ctx context.Context) ([]cart.Product, error) {
	var products []cart.Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, &products); err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	return products, nil
}

// FetchCart reads the persisted cart. A 404 means the user has no cart yet
// and maps to an empty record.
func (c *Client) FetchCart(ctx context.Context, userID int) (cart.Record, error) {
	var rec cart.Record
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/carts/%d", userID), nil, &rec)
	if errors.Is(err, ErrNotFound) {
		return cart.Record{UserID: userID}, nil
	}
	if err != nil {
		return cart.Record{}, fmt.Errorf("fetch cart: %w", err)
	}
	return rec, nil
}

// WriteCart replaces the persisted record wholesale and returns the
// server-confirmed state, including the bumped revision.
func (c *Client) WriteCart(ctx context.Context, userID int, rec cart.Record) (cart.Record, error) {
	var confirmed cart.Record
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/carts/%d", userID), rec, &confirmed); err != nil {
		return cart.Record{}, fmt.Errorf("write cart: %w", err)
	}
	return confirmed, nil
}

// Register creates an account on the store. It does not log in; call Login
// afterwards to obtain a token.
func (c *Client) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, nil); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	UserID      int    `json:"user_id"`
}

// Login authenticates against the store and installs the returned bearer
// token for subsequent requests.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return LoginResponse{}, fmt.Errorf("login: %w", err)
	}
	c.SetToken(resp.AccessToken)
	return resp, nil
}
