package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tudogo/functions/internal/domain/catalog"
	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/infrastructure/observability"
)

// CatalogService answers product searches across restaurants, markets and
// service providers.
type CatalogService struct {
	products        catalog.Repository
	defaultPageSize int
	maxPageSize     int
	metrics         *observability.Metrics
	logger          zerolog.Logger
}

func NewCatalogService(products catalog.Repository, defaultPageSize, maxPageSize int, metrics *observability.Metrics, logger zerolog.Logger) *CatalogService {
	if defaultPageSize < 1 {
		defaultPageSize = catalog.DefaultPageSize
	}
	if maxPageSize < 1 {
		maxPageSize = catalog.MaxPageSize
	}
	return &CatalogService{
		products:        products,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
		metrics:         metrics,
		logger:          logger,
	}
}

// Search normalizes paging and returns one page of active products.
func (s *CatalogService) Search(ctx context.Context, f catalog.Filter) (*SearchResponse, error) {
	start := time.Now()
	f.Normalize(s.defaultPageSize, s.maxPageSize)

	ctx, span := observability.StartSpan(ctx, "CatalogService.Search",
		attribute.Int("catalog.page", f.Page),
		attribute.Int("catalog.page_size", f.PageSize))
	defer span.End()

	items, total, err := s.products.Search(ctx, f)
	if err != nil {
		s.metrics.Search("failed", time.Since(start).Seconds())
		span.RecordError(err)
		return nil, domainErrors.NewStoreError("Error searching products", err)
	}
	if items == nil {
		items = []catalog.Product{}
	}

	s.metrics.Search("ok", time.Since(start).Seconds())
	s.logger.Debug().
		Str("query", f.Query).
		Int("page", f.Page).
		Int64("total", total).
		Msg("catalog search")

	return &SearchResponse{
		Items:      items,
		Pagination: catalog.NewPagination(f.Page, f.PageSize, total),
	}, nil
}
