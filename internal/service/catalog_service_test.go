package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListItemsPagination(t *testing.T) {
	fs := newFakeStore()
	for i := 0; i < 25; i++ {
		fs.addItem(fmt.Sprintf("Widget %02d", i), "1.00", "")
	}
	svc := NewCatalogService(fs, 10)
	ctx := context.Background()

	page, err := svc.ListItems(ctx, "", "", 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.TotalPages)

	page, err = svc.ListItems(ctx, "", "", 3)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)

	// Out-of-range pages clamp to page 1; an overshoot page is just empty.
	page, err = svc.ListItems(ctx, "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, 10)
}

func TestListItemsSearchIsCaseInsensitive(t *testing.T) {
	fs := newFakeStore()
	fs.addItem("Blue Mug", "10.00", "")
	fs.addItem("Red Bowl", "8.00", "")
	svc := NewCatalogService(fs, 10)

	page, err := svc.ListItems(context.Background(), "blue", "", 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Blue Mug", page.Items[0].Title)
}

func TestListItemsZeroMatchesIsEmptyPage(t *testing.T) {
	fs := newFakeStore()
	fs.addItem("Blue Mug", "10.00", "")
	svc := NewCatalogService(fs, 10)

	page, err := svc.ListItems(context.Background(), "zzzz-no-such-thing", "", 1)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), page.Total)
}

func TestGetItemDetail(t *testing.T) {
	fs := newFakeStore()
	item := fs.addItem("Blue Mug", "10.00", "")
	svc := NewCatalogService(fs, 10)
	ctx := context.Background()

	detail, err := svc.GetItem(ctx, item.Slug)
	require.NoError(t, err)
	assert.Equal(t, item.ID, detail.Item.ID)
	assert.Empty(t, detail.Images)

	_, err = svc.GetItem(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListCategories(t *testing.T) {
	fs := newFakeStore()
	fs.addCategory("Kitchen")
	fs.addCategory("Garden")
	svc := NewCatalogService(fs, 10)

	categories, err := svc.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 2)
}
