package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalogStore struct {
	items      []models.Item
	categories []models.Category
}

func (s *stubCatalogStore) ListItems(_ context.Context, search, category string, page, pageSize int) (*store.OffsetPage, error) {
	return &store.OffsetPage{
		Items:      s.items,
		Total:      int64(len(s.items)),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: 1,
	}, nil
}

func (s *stubCatalogStore) GetItemBySlug(_ context.Context, slug string) (*models.Item, error) {
	for i := range s.items {
		if s.items[i].Slug == slug {
			return &s.items[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *stubCatalogStore) GetItemImages(_ context.Context, _ int64) ([]models.ItemImage, error) {
	return nil, nil
}

func (s *stubCatalogStore) ListCategories(_ context.Context) ([]models.Category, error) {
	return s.categories, nil
}

func newTestRouter(t *testing.T, catalogStore service.CatalogStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := NewHandler(
		service.NewCatalogService(catalogStore, 10),
		nil, nil, nil,
		"secret-token",
	)
	router := gin.New()
	h.SetupRoutes(router)
	return router
}

func doRequest(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListItemsRoute(t *testing.T) {
	router := newTestRouter(t, &stubCatalogStore{
		items: []models.Item{
			{ID: 1, Title: "Blue Mug", Slug: "blue-mug-1", Price: decimal.RequireFromString("10.00")},
		},
	})

	rec := doRequest(router, http.MethodGet, "/api/v1/items?search=mug&page=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var page store.OffsetPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Blue Mug", page.Items[0].Title)
	assert.Equal(t, int64(1), page.Total)
}

func TestGetItemNotFound(t *testing.T) {
	router := newTestRouter(t, &stubCatalogStore{})

	rec := doRequest(router, http.MethodGet, "/api/v1/items/no-such-slug", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["notice"])
	assert.Equal(t, "/", body["redirect"])
}

func TestAuthedRoutesRequireUserHeader(t *testing.T) {
	router := newTestRouter(t, &stubCatalogStore{})

	for _, path := range []string{"/api/v1/cart", "/api/v1/checkout", "/api/v1/orders"} {
		rec := doRequest(router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "/login", body["redirect"], path)
	}

	rec := doRequest(router, http.MethodGet, "/api/v1/cart",
		map[string]string{"X-User-ID": "not-a-number"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t, &stubCatalogStore{})

	rec := doRequest(router, http.MethodGet, "/admin/orders", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(router, http.MethodGet, "/admin/orders",
		map[string]string{"X-Admin-Token": "wrong"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound},
		{"no active order", service.ErrNoActiveOrder, http.StatusNotFound},
		{"not in cart", service.ErrNotInCart, http.StatusConflict},
		{"cart busy", service.ErrCartBusy, http.StatusConflict},
		{"not delivered", service.ErrNotDelivered, http.StatusConflict},
		{"wrapped not found", errors.New("boom: " + service.ErrNotFound.Error()), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)

			respondError(c, tt.err, "/fallback")
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRespondErrorValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	respondError(c, &service.ValidationError{
		Fields: map[string]string{"email": "invalid email address"},
	}, "/fallback")

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Notice string            `json:"notice"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "invalid email address", body.Fields["email"])
}
