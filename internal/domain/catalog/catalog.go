package catalog

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage bounds Page so Offset stays far below the int range.
	MaxPage = 1_000_000
)

// Product is a catalog item joined with its seller.
type Product struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Description  *string         `json:"description"`
	Category     *string         `json:"category"`
	Type         *string         `json:"type"`
	Active       bool            `json:"active"`
	Price        decimal.Decimal `json:"price"`
	RestaurantID *uuid.UUID      `json:"restaurant_id"`
	MarketID     *uuid.UUID      `json:"market_id"`
	ProviderID   *uuid.UUID      `json:"provider_id"`
	Restaurant   json.RawMessage `json:"restaurant"`
	Market       json.RawMessage `json:"market"`
	Provider     json.RawMessage `json:"provider"`
}

// Filter narrows a search. Nil or empty fields are not applied.
type Filter struct {
	Query        string
	Type         string
	Category     string
	RestaurantID *uuid.UUID
	MarketID     *uuid.UUID
	ProviderID   *uuid.UUID
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Page         int
	PageSize     int
}

// Normalize clamps paging: page below 1 becomes 1 and page above MaxPage
// becomes MaxPage. A non-positive page size becomes defaultSize, and a size
// above maxSize is capped.
func (f *Filter) Normalize(defaultSize, maxSize int) {
	if defaultSize < 1 {
		defaultSize = DefaultPageSize
	}
	if maxSize < defaultSize {
		maxSize = defaultSize
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.PageSize < 1 {
		f.PageSize = defaultSize
	}
	if f.PageSize > maxSize {
		f.PageSize = maxSize
	}
}

// Offset is the number of rows skipped before the current page.
func (f *Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Pagination describes where a page sits in the full result set.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
}

// NewPagination computes totalPages as the ceiling of totalItems/pageSize.
func NewPagination(page, pageSize int, totalItems int64) Pagination {
	var pages int64
	if pageSize > 0 {
		size := int64(pageSize)
		pages = (totalItems + size - 1) / size
	}
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: pages,
	}
}

// Page is one slice of search results.
type Page struct {
	Items      []Product
	Pagination Pagination
}

// Repository defines the interface for catalog reads
type Repository interface {
	// Search returns the active products matching filter for the filter's page,
	// together with the total number of matches
	Search(ctx context.Context, filter Filter) ([]Product, int64, error)
}
