package store

import "storefront/internal/models"

// OffsetPage is one page of an offset-paginated listing.
type OffsetPage struct {
	Items      []models.Item `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}
