package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/maisonlune/boutique-api/internal/money"
)

type queryProvider interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (Product, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
	ListProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]Product, error)
	CountProducts(ctx context.Context) (int, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateProductPrice(ctx context.Context, id uuid.UUID, price money.Money) (Product, error)
}

// Service orchestrates catalog queries and read-through caching. Browsing
// reads go through the cache; pricing reads used by cart and checkout always
// hit storage so quotes reflect live prices.
type Service struct {
	queries queryProvider
	cache   *Cache
	logger  zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Cache   *Cache
	Logger  zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache, logger: cfg.Logger}, nil
}

func productKey(id uuid.UUID) string { return "catalog:product:" + id.String() }
func productSlugKey(s string) string { return "catalog:product:slug:" + s }
func categoriesKey() string          { return "catalog:categories" }
func productPageKey(l, o int) string { return fmt.Sprintf("catalog:products:%d:%d", l, o) }

// GetProduct returns one product, served from cache when possible.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	var p Product
	if hit, err := s.cache.GetJSON(ctx, productKey(id), &p); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache read failed")
	} else if hit {
		return p, nil
	}
	p, err := s.queries.GetProductByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := s.cache.SetJSON(ctx, productKey(id), p); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return p, nil
}

// GetProductBySlug returns one product by slug, served from cache when possible.
func (s *Service) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	var p Product
	if hit, err := s.cache.GetJSON(ctx, productSlugKey(slug), &p); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache read failed")
	} else if hit {
		return p, nil
	}
	p, err := s.queries.GetProductBySlug(ctx, slug)
	if err != nil {
		return Product{}, err
	}
	if err := s.cache.SetJSON(ctx, productSlugKey(slug), p); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return p, nil
}

// ListProducts returns one page of active products plus the total count.
func (s *Service) ListProducts(ctx context.Context, limit, offset int) ([]Product, int, error) {
	type page struct {
		Items []Product `json:"items"`
		Total int       `json:"total"`
	}
	var cached page
	if hit, err := s.cache.GetJSON(ctx, productPageKey(limit, offset), &cached); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache read failed")
	} else if hit {
		return cached.Items, cached.Total, nil
	}
	items, err := s.queries.ListProducts(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.queries.CountProducts(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := s.cache.SetJSON(ctx, productPageKey(limit, offset), page{Items: items, Total: total}); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return items, total, nil
}

// ListCategories returns all categories, served from cache when possible.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var cats []Category
	if hit, err := s.cache.GetJSON(ctx, categoriesKey(), &cats); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache read failed")
	} else if hit {
		return cats, nil
	}
	cats, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetJSON(ctx, categoriesKey(), cats); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return cats, nil
}

// UpdatePrice sets a product's price and drops its cached entries so the next
// browsing read sees the new figure. List pages age out with their TTL.
func (s *Service) UpdatePrice(ctx context.Context, id uuid.UUID, price money.Money) (Product, error) {
	p, err := s.queries.UpdateProductPrice(ctx, id, price)
	if err != nil {
		return Product{}, err
	}
	if err := s.cache.Invalidate(ctx, productKey(p.ID), productSlugKey(p.Slug)); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
	return p, nil
}

// PriceProducts bypasses the cache and loads current products keyed by id.
// Cart and checkout price against this so stale cache entries never leak into
// a quote.
func (s *Service) PriceProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	products, err := s.queries.ListProductsByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
