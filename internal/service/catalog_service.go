package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CatalogStore is the persistence surface catalog browsing needs.
type CatalogStore interface {
	ListItems(ctx context.Context, search, category string, page, pageSize int) (*store.OffsetPage, error)
	GetItemBySlug(ctx context.Context, slug string) (*models.Item, error)
	GetItemImages(ctx context.Context, itemID int64) ([]models.ItemImage, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
}

// CatalogService serves item listing and detail.
type CatalogService struct {
	store    CatalogStore
	pageSize int
	logger   *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore, pageSize int) *CatalogService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &CatalogService{
		store:    store,
		pageSize: pageSize,
		logger:   util.GetLogger(),
	}
}

// ListItems returns one page of items matching the title substring and/or
// category filter, case-insensitively. A zero-match page is empty, not an
// error.
func (s *CatalogService) ListItems(ctx context.Context, search, category string, page int) (*store.OffsetPage, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.ListItems")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CatalogListLatency.Observe(time.Since(start).Seconds())
	}()

	if page < 1 {
		page = 1
	}
	return s.store.ListItems(ctx, search, category, page, s.pageSize)
}

// ItemDetail is an item with its images.
type ItemDetail struct {
	Item   models.Item        `json:"item"`
	Images []models.ItemImage `json:"images"`
}

// GetItem returns the item behind a slug with its images.
func (s *CatalogService) GetItem(ctx context.Context, slug string) (*ItemDetail, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.GetItem")
	defer span.End()

	item, err := s.store.GetItemBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("item %q: %w", slug, ErrNotFound)
		}
		return nil, err
	}

	images, err := s.store.GetItemImages(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return &ItemDetail{Item: *item, Images: images}, nil
}

// ListCategories returns all categories.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.store.ListCategories(ctx)
}
