package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuseats/ordering/internal/cart/application"
)

type memSlot struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memSlot) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memSlot) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func newTestHandler() http.Handler {
	log := slog.New(slog.DiscardHandler)
	carts := application.NewManager(log, &memSlot{data: make(map[string][]byte)})
	return NewHandler(log, carts).Routes()
}

func do(h http.Handler, method, path, session, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartView {
	t.Helper()
	var view cartView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func TestCartRequiresSessionHeader(t *testing.T) {
	h := newTestHandler()
	rec := do(h, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartAddAndTotals(t *testing.T) {
	h := newTestHandler()

	rec := do(h, http.MethodPost, "/items", "s1",
		`{"product_id": "a", "name": "Burger", "price": "10.00", "quantity": 2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(h, http.MethodPost, "/items", "s1",
		`{"product_id": "b", "name": "Fries", "price": "5.00", "quantity": 1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	view := decodeCart(t, rec)
	assert.Equal(t, 3, view.ItemCount)
	assert.True(t, view.Subtotal.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, view.Tax.Equal(decimal.RequireFromString("2.00")))
	assert.True(t, view.Total.Equal(decimal.RequireFromString("27.00")))
}

func TestCartAddSameProductMerges(t *testing.T) {
	h := newTestHandler()

	body := `{"product_id": "a", "name": "Burger", "price": "10.00", "quantity": 2}`
	do(h, http.MethodPost, "/items", "s1", body)
	rec := do(h, http.MethodPost, "/items", "s1", body)

	view := decodeCart(t, rec)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 4, view.Items[0].Quantity)
}

func TestCartRejectsInvalidItem(t *testing.T) {
	h := newTestHandler()

	rec := do(h, http.MethodPost, "/items", "s1", `{"name": "Burger", "price": "10.00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/items", "s1", `{"product_id": "a", "name": "Burger", "price": "0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartUpdateQuantityZeroRemoves(t *testing.T) {
	h := newTestHandler()
	do(h, http.MethodPost, "/items", "s1", `{"product_id": "a", "name": "Burger", "price": "10.00"}`)

	rec := do(h, http.MethodPatch, "/items/a", "s1", `{"quantity": 0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)
}

func TestCartClear(t *testing.T) {
	h := newTestHandler()
	do(h, http.MethodPost, "/items", "s1", `{"product_id": "a", "name": "Burger", "price": "10.00"}`)
	do(h, http.MethodPost, "/items", "s1", `{"product_id": "b", "name": "Fries", "price": "5.00"}`)

	rec := do(h, http.MethodDelete, "/", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeCart(t, rec)
	assert.Empty(t, view.Items)
	assert.Equal(t, 0, view.ItemCount)
}

func TestCartSessionsIsolated(t *testing.T) {
	h := newTestHandler()
	do(h, http.MethodPost, "/items", "s1", `{"product_id": "a", "name": "Burger", "price": "10.00"}`)

	rec := do(h, http.MethodGet, "/", "s2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeCart(t, rec).Items)
}
