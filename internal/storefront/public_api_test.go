package storefront_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"MiniCart/internal/cart"
	"MiniCart/internal/catalog"
	"MiniCart/internal/order"
	"MiniCart/internal/storefront"
)

type fixture struct {
	ts    *httptest.Server
	store catalog.Store
	ctl   *cart.Controller
}

func newFixture(t *testing.T, deps storefront.HTTPDeps) fixture {
	t.Helper()

	store := catalog.NewMemStore()
	ctl := cart.New(store, order.NewStore(), zap.NewNop(), nil)

	_, err := ctl.Seed(context.Background(), []catalog.SeedEntry{
		{Name: "A", Category: "Cat A", PriceCents: 500, Image: catalog.Image{Desktop: "/a-d.jpg", Mobile: "/a-m.jpg", Thumbnail: "/a-t.jpg"}},
		{Name: "B", Category: "Cat B", PriceCents: 350, Image: catalog.Image{Desktop: "/b-d.jpg"}},
	})
	require.NoError(t, err)

	s := &storefront.Server{
		Cart:    ctl,
		Catalog: &catalog.Server{Store: store, Log: zap.NewNop()},
		Store:   store,
	}

	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Service == "" {
		deps.Service = "storefront"
	}

	h, err := storefront.NewHandler(s, deps)
	require.NoError(t, err)

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	return fixture{ts: ts, store: store, ctl: ctl}
}

func noRedirect() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func do(t *testing.T, c *http.Client, method, url string, headers map[string]string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

var fragment = map[string]string{"X-Fragment": "1"}

func TestPage_RendersGridAndEmptyCart(t *testing.T) {
	f := newFixture(t, storefront.HTTPDeps{})

	resp, body := do(t, http.DefaultClient, http.MethodGet, f.ts.URL+"/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	assert.Contains(t, body, `<div id="app">`)
	assert.Contains(t, body, `action="/cart/1/add"`)
	assert.Contains(t, body, `action="/cart/2/add"`)
	assert.Contains(t, body, `$5.00`)
	assert.Contains(t, body, `$3.50`)
	assert.Contains(t, body, `srcset="/a-m.jpg"`)
	assert.Contains(t, body, "Your cart is empty.")
	assert.Contains(t, body, `<span id="item-count">(0)</span>`)
	assert.NotContains(t, body, "Confirm Order")
	assert.NotContains(t, body, "order-popup-content")
}

func TestAction_FragmentFlow(t *testing.T) {
	f := newFixture(t, storefront.HTTPDeps{})
	c := http.DefaultClient

	resp, body := do(t, c, http.MethodPost, f.ts.URL+"/cart/1/add", fragment)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "<html")
	assert.Contains(t, body, `action="/cart/1/increment"`)
	assert.Contains(t, body, `action="/cart/1/decrement"`)
	assert.Contains(t, body, `action="/cart/1/remove"`)

	_, body = do(t, c, http.MethodPost, f.ts.URL+"/cart/1/increment", fragment)
	assert.Contains(t, body, `<span class="item-count">2</span>`)
	assert.Contains(t, body, `<span id="item-count">(2)</span>`)
	assert.Contains(t, body, `<span class="cart-total-amount">$10.00</span>`)
	assert.Contains(t, body, "Confirm Order")

	_, body = do(t, c, http.MethodPost, f.ts.URL+"/cart/1/decrement", fragment)
	assert.Contains(t, body, `<span class="item-count">1</span>`)

	_, body = do(t, c, http.MethodPost, f.ts.URL+"/cart/1/decrement", fragment)
	assert.Contains(t, body, `action="/cart/1/add"`)
	assert.Contains(t, body, "Your cart is empty.")

	p, _, err := f.store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, p.ItemsSelected)
}

func TestAction_PlainFormRedirects(t *testing.T) {
	f := newFixture(t, storefront.HTTPDeps{})

	resp, _ := do(t, noRedirect(), http.MethodPost, f.ts.URL+"/cart/2/add", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	p, _, err := f.store.Get(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, p.ItemsSelected)
}

func TestAction_BadInput(t *testing.T) {
	f := newFixture(t, storefront.HTTPDeps{})

	resp, _ := do(t, http.DefaultClient, http.MethodPost, f.ts.URL+"/cart/1/explode", fragment)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = do(t, http.DefaultClient, http.MethodPost, f.ts.URL+"/cart/abc/add", fragment)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// unknown product: nothing written, view re-rendered
	resp, body := do(t, http.DefaultClient, http.MethodPost, f.ts.URL+"/cart/99/add", fragment)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Your cart is empty.")
}

func TestConfirmAndStartNewOrder(t *testing.T) {
	f := newFixture(t, storefront.HTTPDeps{})
	c := http.DefaultClient

	do(t, c, http.MethodPost, f.ts.URL+"/cart/2/add", fragment)
	do(t, c, http.MethodPost, f.ts.URL+"/cart/2/increment", fragment)

	resp, body := do(t, c, http.MethodPost, f.ts.URL+"/orders/confirm", fragment)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Order Confirmed")
	assert.Contains(t, body, `<span class="order-popup-item-qty">2x</span>`)
	assert.Contains(t, body, `Order Total <span>$7.00</span>`)

	// the overlay survives a full reload until the order is closed
	_, page := do(t, c, http.MethodGet, f.ts.URL+"/", nil)
	assert.Contains(t, page, `id="order-popup"`)

	var pv cart.PageView
	_, raw := do(t, c, http.MethodGet, f.ts.URL+"/api/page", nil)
	require.NoError(t, json.Unmarshal([]byte(raw), &pv))
	require.NotNil(t, pv.Order)

	resp, body = do(t, c, http.MethodPost, f.ts.URL+"/orders/"+pv.Order.ID+"/new", fragment)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, `id="order-popup"`)
	assert.Contains(t, body, "Your cart is empty.")
}

func TestConfirmTwice_NewOrderClosesOverlay(t *testing.T) {
	f := newFixture(t, storefront.HTTPDeps{})
	c := http.DefaultClient

	do(t, c, http.MethodPost, f.ts.URL+"/cart/1/add", fragment)

	resp, _ := do(t, c, http.MethodPost, f.ts.URL+"/api/orders", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, raw := do(t, c, http.MethodPost, f.ts.URL+"/api/orders", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ov cart.OrderView
	require.NoError(t, json.Unmarshal([]byte(raw), &ov))

	_, body := do(t, c, http.MethodPost, f.ts.URL+"/orders/"+ov.ID+"/new", fragment)
	assert.NotContains(t, body, `id="order-popup"`)

	_, page := do(t, c, http.MethodGet, f.ts.URL+"/", nil)
	assert.NotContains(t, page, `id="order-popup"`)
}

func TestConfirm_EmptyOrderOverlay(t *testing.T) {
	f := newFixture(t, storefront.HTTPDeps{})

	_, body := do(t, http.DefaultClient, http.MethodPost, f.ts.URL+"/orders/confirm", fragment)
	assert.Contains(t, body, "No items in order.")
	assert.Contains(t, body, `Order Total <span>$0.00</span>`)
}

func TestAPI_CartFlow(t *testing.T) {
	f := newFixture(t, storefront.HTTPDeps{})
	c := http.DefaultClient

	resp, raw := do(t, c, http.MethodGet, f.ts.URL+"/api/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &products))
	require.Len(t, products, 2)
	assert.Equal(t, "5.00", products[0]["price"])

	resp, _ = do(t, c, http.MethodGet, f.ts.URL+"/api/products/9", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw = do(t, c, http.MethodPost, f.ts.URL+"/api/cart/1/add", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, raw)
	resp, raw = do(t, c, http.MethodPost, f.ts.URL+"/api/cart/1/increment", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, raw)

	var out struct {
		Product cart.ProductView `json:"product"`
		Cart    cart.View        `json:"cart"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	assert.Equal(t, 2, out.Product.ItemsSelected)
	assert.True(t, out.Product.InCart)
	assert.Equal(t, "10.00", out.Cart.Total)

	resp, _ = do(t, c, http.MethodPost, f.ts.URL+"/api/cart/42/add", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw = do(t, c, http.MethodPost, f.ts.URL+"/api/orders", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var ov cart.OrderView
	require.NoError(t, json.Unmarshal([]byte(raw), &ov))
	assert.Equal(t, "10.00", ov.Total)
	assert.True(t, strings.HasPrefix(ov.ID, "o_"))

	resp, _ = do(t, c, http.MethodPost, f.ts.URL+"/api/orders/"+ov.ID+"/reset", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, c, http.MethodPost, f.ts.URL+"/api/orders/"+ov.ID+"/reset", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, raw = do(t, c, http.MethodGet, f.ts.URL+"/api/cart", nil)
	var v cart.View
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	assert.Empty(t, v.Lines)
	assert.Equal(t, "0.00", v.Total)
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t, storefront.HTTPDeps{})

	resp, _ := do(t, http.DefaultClient, http.MethodGet, f.ts.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = do(t, http.DefaultClient, http.MethodGet, f.ts.URL+"/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.DefaultClient, http.MethodGet, f.ts.URL+"/static/style.css", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, ".order-popup")
}

func TestImages_IconsAndPhotoDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image-waffle-thumbnail.jpg"), []byte("jpeg"), 0o600))

	f := newFixture(t, storefront.HTTPDeps{ImagesDir: dir})

	// every icon the templates reference is bundled
	for _, icon := range []string{
		"icon-add-to-cart.svg",
		"icon-increment-quantity.svg",
		"icon-decrement-quantity.svg",
		"icon-remove-item.svg",
		"icon-carbon-neutral.svg",
		"icon-order-confirmed.svg",
		"illustration-empty-cart.svg",
	} {
		resp, body := do(t, http.DefaultClient, http.MethodGet, f.ts.URL+"/images/"+icon, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, icon)
		assert.Contains(t, body, "<svg", icon)
	}

	resp, body := do(t, http.DefaultClient, http.MethodGet, f.ts.URL+"/images/image-waffle-thumbnail.jpg", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "jpeg", body)

	resp, _ = do(t, http.DefaultClient, http.MethodGet, f.ts.URL+"/images/image-missing.jpg", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImages_BundledIconsWithoutPhotoDir(t *testing.T) {
	f := newFixture(t, storefront.HTTPDeps{})

	resp, _ := do(t, http.DefaultClient, http.MethodGet, f.ts.URL+"/images/icon-remove-item.svg", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, storefront.HTTPDeps{
		Registry:       reg,
		MetricsEnabled: true,
		MetricsToken:   "tok",
	})

	do(t, http.DefaultClient, http.MethodGet, f.ts.URL+"/", nil)

	resp, _ := do(t, http.DefaultClient, http.MethodGet, f.ts.URL+"/metrics", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := do(t, http.DefaultClient, http.MethodGet, f.ts.URL+"/metrics", map[string]string{
		"Authorization": "Bearer tok",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "http_requests_total")
}

func TestCartRateLimit(t *testing.T) {
	f := newFixture(t, storefront.HTTPDeps{CartRateLimit: 2})

	for i := 0; i < 2; i++ {
		resp, _ := do(t, http.DefaultClient, http.MethodPost, f.ts.URL+"/cart/1/increment", fragment)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, _ := do(t, http.DefaultClient, http.MethodPost, f.ts.URL+"/cart/1/increment", fragment)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// reads are never limited
	resp, _ = do(t, http.DefaultClient, http.MethodGet, f.ts.URL+"/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
