package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateItem inserts a new catalog item and fills in its generated fields.
func (s *Store) CreateItem(ctx context.Context, item *models.Item) error {
	query := `
		INSERT INTO items (title, price, discount_price, category_id, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, item, query,
		item.Title, item.Price, item.DiscountPrice, item.CategoryID, item.Description)
}

// UpdateItem updates an item's editable fields, slug included.
func (s *Store) UpdateItem(ctx context.Context, item *models.Item) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET title = $1, price = $2, discount_price = $3, category_id = $4,
			slug = $5, description = $6
		WHERE id = $7`,
		item.Title, item.Price, item.DiscountPrice, item.CategoryID,
		item.Slug, item.Description, item.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", item.ID, ErrNotFound)
	}
	return nil
}

// GetItemBySlug retrieves an item by slug
func (s *Store) GetItemBySlug(ctx context.Context, slug string) (*models.Item, error) {
	var item models.Item
	err := s.db.GetContext(ctx, &item, "SELECT * FROM items WHERE slug = $1", slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItemsByIDs retrieves multiple items keyed by id
func (s *Store) GetItemsByIDs(ctx context.Context, ids []int64) (map[int64]*models.Item, error) {
	out := make(map[int64]*models.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In("SELECT * FROM items WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.Item
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	for i := range items {
		out[items[i].ID] = &items[i]
	}
	return out, nil
}

// ListItems returns one page of items whose title, or whose category name,
// contains the respective filter (case-insensitive). An empty filter is
// ignored; with both empty every item matches.
func (s *Store) ListItems(ctx context.Context, search, category string, page, pageSize int) (*OffsetPage, error) {
	where := `
		FROM items i
		LEFT JOIN categories c ON c.id = i.category_id
		WHERE ($1 = '' AND $2 = '')
		   OR ($1 <> '' AND i.title ILIKE '%' || $1 || '%')
		   OR ($2 <> '' AND c.name ILIKE '%' || $2 || '%')`

	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) "+where, search, category); err != nil {
		return nil, err
	}

	items := []models.Item{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT i.* "+where+" ORDER BY i.id LIMIT $3 OFFSET $4",
		search, category, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &OffsetPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// ListCategories retrieves all categories
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY name")
	return categories, err
}

// CreateCategory inserts a category, returning the existing row on a name conflict.
func (s *Store) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, `
		INSERT INTO categories (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`, name)
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// AddItemImage attaches an image to an item
func (s *Store) AddItemImage(ctx context.Context, image *models.ItemImage) error {
	return s.db.GetContext(ctx, &image.ID, `
		INSERT INTO item_images (item_id, url) VALUES ($1, $2) RETURNING id`,
		image.ItemID, image.URL)
}

// GetItemImages retrieves all images for an item
func (s *Store) GetItemImages(ctx context.Context, itemID int64) ([]models.ItemImage, error) {
	var images []models.ItemImage
	err := s.db.SelectContext(ctx, &images,
		"SELECT * FROM item_images WHERE item_id = $1 ORDER BY id", itemID)
	return images, err
}

// CountItemImages counts images attached to an item
func (s *Store) CountItemImages(ctx context.Context, itemID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM item_images WHERE item_id = $1", itemID)
	return count, err
}
