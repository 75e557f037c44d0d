package controller

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tudogo/functions/internal/domain/catalog"
	domainErrors "github.com/tudogo/functions/internal/domain/errors"
	"github.com/tudogo/functions/internal/service"
)

// CatalogController serves the public product search.
type CatalogController struct {
	catalogService *service.CatalogService
}

func NewCatalogController(catalogService *service.CatalogService) *CatalogController {
	return &CatalogController{catalogService: catalogService}
}

// Search handles GET and POST /api/v1/catalog/search
func (h *CatalogController) Search(w http.ResponseWriter, r *http.Request) {
	var (
		req SearchRequest
		err error
	)
	if r.Method == http.MethodPost {
		err = decodeSearchBody(r, &req)
	} else {
		req, err = searchRequestFromQuery(r.URL.Query())
	}
	if err != nil {
		writeError(w, err)
		return
	}

	filter, err := req.toFilter()
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := h.catalogService.Search(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{Data: page.Items, Pagination: page.Pagination})
}

// decodeSearchBody treats an empty POST body as a search without filters.
func decodeSearchBody(r *http.Request, req *SearchRequest) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return decodeAndValidate(r, req)
}

// searchRequestFromQuery reads the filters from a query string. Unparseable
// page numbers fall back to the defaults.
func searchRequestFromQuery(q url.Values) (SearchRequest, error) {
	req := SearchRequest{
		Query:        q.Get("query"),
		Type:         q.Get("type"),
		Category:     q.Get("category"),
		RestaurantID: q.Get("restaurantId"),
		MarketID:     q.Get("marketId"),
		ProviderID:   q.Get("providerId"),
	}
	req.Page, _ = strconv.Atoi(q.Get("page"))
	req.PageSize, _ = strconv.Atoi(q.Get("pageSize"))

	var err error
	if req.MinPrice, err = parsePrice("minPrice", q.Get("minPrice")); err != nil {
		return req, err
	}
	if req.MaxPrice, err = parsePrice("maxPrice", q.Get("maxPrice")); err != nil {
		return req, err
	}
	return req, nil
}

func parsePrice(field, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domainErrors.NewValidationError(field, field+" must be a number")
	}
	return &d, nil
}

func (req SearchRequest) toFilter() (catalog.Filter, error) {
	f := catalog.Filter{
		Query:    req.Query,
		Type:     req.Type,
		Category: req.Category,
		MinPrice: req.MinPrice,
		MaxPrice: req.MaxPrice,
		Page:     req.Page,
		PageSize: req.PageSize,
	}

	ids := []struct {
		field string
		raw   string
		dst   **uuid.UUID
	}{
		{"restaurantId", req.RestaurantID, &f.RestaurantID},
		{"marketId", req.MarketID, &f.MarketID},
		{"providerId", req.ProviderID, &f.ProviderID},
	}
	for _, id := range ids {
		if id.raw == "" {
			continue
		}
		parsed := parseUUID(id.raw)
		if parsed == nil {
			return f, domainErrors.NewValidationError(id.field, id.field+" must be a UUID")
		}
		*id.dst = parsed
	}
	return f, nil
}
