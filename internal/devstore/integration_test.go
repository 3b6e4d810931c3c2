package devstore_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/avelichko/storefront/internal/cart"
	"github.com/avelichko/storefront/internal/devstore"
	"github.com/avelichko/storefront/internal/storeapi"
)

// startStore runs the dev store on an ephemeral port and registers a user,
// returning a client already logged in as that user.
func startStore(t *testing.T) (*storeapi.Client, int) {
	t.Helper()
	ctx := context.Background()

	db, err := devstore.Open(ctx, filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	require.NoError(t, devstore.Seed(db))

	e := echo.New()
	devstore.Register(e, &devstore.Deps{DB: db, JWTSecret: []byte("integration-secret")})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	client := storeapi.NewClient(srv.URL)

	env := struct {
		username, password string
	}{"carol", "hunter2"}
	require.NoError(t, client.Register(ctx, env.username, env.password))

	resp, err := client.Login(ctx, env.username, env.password)
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	return client, resp.UserID
}

func TestAddToCartAgainstLiveStore(t *testing.T) {
	ctx := context.Background()
	client, userID := startStore(t)

	view := cart.NewViewStore(time.Minute, nil)
	engine := cart.NewUpsertEngine(client, view, nil, nil)

	confirmed, err := engine.AddToCart(ctx, userID, 1, 1)
	require.NoError(t, err)
	require.Equal(t, []cart.Line{{ProductID: 1, Quantity: 1}}, confirmed.Lines)
	require.Equal(t, "1", confirmed.Revision)

	confirmed, err = engine.AddToCart(ctx, userID, 1, 1)
	require.NoError(t, err)
	require.Equal(t, []cart.Line{{ProductID: 1, Quantity: 2}}, confirmed.Lines,
		"second add must merge into the existing line")
	require.Equal(t, "2", confirmed.Revision)

	confirmed, err = engine.AddToCart(ctx, userID, 3, 2)
	require.NoError(t, err)
	require.Len(t, confirmed.Lines, 2)
	require.Equal(t, cart.Line{ProductID: 3, Quantity: 2}, confirmed.Lines[1])
}

func TestViewReconcilesAgainstLiveStore(t *testing.T) {
	ctx := context.Background()
	client, userID := startStore(t)

	view := cart.NewViewStore(time.Minute, nil)
	engine := cart.NewUpsertEngine(client, view, nil, nil)
	catalogSrc := cart.NewCatalogSource(client, view, nil, nil)

	require.NoError(t, catalogSrc.Refresh(ctx, false))

	_, err := engine.AddToCart(ctx, userID, 1, 2)
	require.NoError(t, err)
	_, err = engine.AddToCart(ctx, userID, 3, 1)
	require.NoError(t, err)

	v := view.CurrentView()
	require.Len(t, v.Lines, 2)
	require.Equal(t, "Backpack, fits 15 inch laptops", v.Lines[0].Title)
	require.Equal(t, 2, v.Lines[0].Quantity)

	// 2 * 109.95 + 1 * 55.99
	require.True(t, v.Total.Equal(decimal.RequireFromString("275.89")),
		"total was %s", v.Total)
}

func TestCartSurvivesNewClientSession(t *testing.T) {
	ctx := context.Background()
	client, userID := startStore(t)

	view := cart.NewViewStore(time.Minute, nil)
	engine := cart.NewUpsertEngine(client, view, nil, nil)
	_, err := engine.AddToCart(ctx, userID, 2, 1)
	require.NoError(t, err)

	// A later session fetches the same persisted record.
	rec, err := client.FetchCart(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, []cart.Line{{ProductID: 2, Quantity: 1}}, rec.Lines)
	require.Equal(t, "1", rec.Revision)
}
