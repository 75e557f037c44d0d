package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tudogo/functions/internal/domain/catalog"
)

// CatalogRepository implements catalog.Repository using PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Search runs the filtered page query and a matching count.
func (r *CatalogRepository) Search(ctx context.Context, f catalog.Filter) ([]catalog.Product, int64, error) {
	q := buildSearchQuery(f)

	var total int64
	if err := r.db(ctx).QueryRow(ctx, q.count, q.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, q.page, q.pageArgs()...)
	if err != nil {
		return nil, 0, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	products := make([]catalog.Product, 0, f.PageSize)
	for rows.Next() {
		var (
			p                          catalog.Product
			price                      string
			restaurant, market, provid []byte
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Category, &p.Type, &p.Active, &price,
			&p.RestaurantID, &p.MarketID, &p.ProviderID,
			&restaurant, &market, &provid,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		if p.Price, err = parseNumeric(price); err != nil {
			return nil, 0, fmt.Errorf("parse product price: %w", err)
		}
		p.Restaurant = nullableJSON(restaurant)
		p.Market = nullableJSON(market)
		p.Provider = nullableJSON(provid)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}
	return products, total, nil
}

type searchQuery struct {
	page   string
	count  string
	args   []any
	limit  int
	offset int
}

func (q searchQuery) pageArgs() []any {
	args := make([]any, 0, len(q.args)+2)
	args = append(args, q.args...)
	return append(args, q.limit, q.offset)
}

const productSelect = `SELECT p.id, p.name, p.description, p.category, p.type, p.active, p.price::text,
       p.restaurant_id, p.market_id, p.provider_id,
       CASE WHEN r.id IS NULL THEN NULL ELSE to_jsonb(r) END,
       CASE WHEN m.id IS NULL THEN NULL ELSE to_jsonb(m) END,
       CASE WHEN sp.id IS NULL THEN NULL ELSE to_jsonb(sp) END
  FROM products p
  LEFT JOIN restaurants r ON r.id = p.restaurant_id
  LEFT JOIN markets m ON m.id = p.market_id
  LEFT JOIN service_providers sp ON sp.id = p.provider_id`

// buildSearchQuery turns a normalized filter into parameterized SQL. User
// input only ever reaches the database as bind arguments.
func buildSearchQuery(f catalog.Filter) searchQuery {
	where := []string{"p.active = TRUE"}
	var args []any

	add := func(format string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(format, len(args)))
	}

	if f.Query != "" {
		args = append(args, "%"+escapeLike(f.Query)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(`(p.name ILIKE $%d ESCAPE '\' OR p.description ILIKE $%d ESCAPE '\')`, n, n))
	}
	if f.Type != "" {
		add("p.type = $%d", f.Type)
	}
	if f.Category != "" {
		add("p.category = $%d", f.Category)
	}
	if f.RestaurantID != nil {
		add("p.restaurant_id = $%d", *f.RestaurantID)
	}
	if f.MarketID != nil {
		add("p.market_id = $%d", *f.MarketID)
	}
	if f.ProviderID != nil {
		add("p.provider_id = $%d", *f.ProviderID)
	}
	if f.MinPrice != nil {
		add("p.price >= $%d::numeric", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		add("p.price <= $%d::numeric", f.MaxPrice.String())
	}

	clause := " WHERE " + strings.Join(where, " AND ")
	n := len(args)

	return searchQuery{
		page:   productSelect + clause + fmt.Sprintf(" ORDER BY p.name ASC, p.id ASC LIMIT $%d OFFSET $%d", n+1, n+2),
		count:  "SELECT COUNT(*) FROM products p" + clause,
		args:   args,
		limit:  f.PageSize,
		offset: f.Offset(),
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user text match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullableJSON(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
