package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeQueries struct {
	products   map[uuid.UUID]Product
	categories []Category
	getCalls   int
	listCalls  int
	byIDsCalls int
}

func (f *fakeQueries) GetProductByID(_ context.Context, id uuid.UUID) (Product, error) {
	f.getCalls++
	return f.products[id], nil
}

func (f *fakeQueries) GetProductBySlug(_ context.Context, slug string) (Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Product{}, nil
}

func (f *fakeQueries) ListProductsByIDs(_ context.Context, ids []uuid.UUID) ([]Product, error) {
	f.byIDsCalls++
	var out []Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeQueries) ListProducts(_ context.Context, limit, offset int) ([]Product, error) {
	f.listCalls++
	var out []Product
	for _, p := range f.products {
		out = append(out, p)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeQueries) CountProducts(_ context.Context) (int, error) {
	return len(f.products), nil
}

func (f *fakeQueries) ListCategories(_ context.Context) ([]Category, error) {
	return f.categories, nil
}

func (f *fakeQueries) UpdateProductPrice(_ context.Context, id uuid.UUID, price decimal.Decimal) (Product, error) {
	p := f.products[id]
	p.Price = price
	f.products[id] = p
	return p, nil
}

func newTestService(t *testing.T, queries *fakeQueries) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, err := NewService(ServiceConfig{
		Queries: queries,
		Cache:   NewCache(client, time.Minute),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)
	return svc
}

func TestGetProductReadThroughCache(t *testing.T) {
	p := Product{ID: uuid.New(), Name: "Silk Scarf", Slug: "silk-scarf", Price: decimal.NewFromInt(420), IsActive: true}
	queries := &fakeQueries{products: map[uuid.UUID]Product{p.ID: p}}
	svc := newTestService(t, queries)

	got, err := svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Name, got.Name)
	require.Equal(t, 1, queries.getCalls)

	// second read is served from redis
	got, err = svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Name, got.Name)
	require.True(t, got.Price.Equal(p.Price))
	require.Equal(t, 1, queries.getCalls)
}

func TestPriceProductsBypassesCache(t *testing.T) {
	p := Product{ID: uuid.New(), Name: "Cashmere Coat", Slug: "cashmere-coat", Price: decimal.NewFromInt(1800), IsActive: true}
	queries := &fakeQueries{products: map[uuid.UUID]Product{p.ID: p}}
	svc := newTestService(t, queries)

	for i := 0; i < 2; i++ {
		priced, err := svc.PriceProducts(context.Background(), []uuid.UUID{p.ID, p.ID})
		require.NoError(t, err)
		require.Len(t, priced, 1)
		require.True(t, priced[p.ID].Price.Equal(p.Price))
	}
	require.Equal(t, 2, queries.byIDsCalls)
}

func TestUpdatePriceInvalidatesCache(t *testing.T) {
	p := Product{ID: uuid.New(), Name: "Velvet Clutch", Slug: "velvet-clutch", Price: decimal.NewFromInt(650), IsActive: true}
	queries := &fakeQueries{products: map[uuid.UUID]Product{p.ID: p}}
	svc := newTestService(t, queries)

	_, err := svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, 1, queries.getCalls)

	updated, err := svc.UpdatePrice(context.Background(), p.ID, decimal.NewFromInt(700))
	require.NoError(t, err)
	require.True(t, updated.Price.Equal(decimal.NewFromInt(700)))

	// the cached entry was dropped, so the read goes back to storage
	got, err := svc.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	require.Equal(t, 2, queries.getCalls)
	require.True(t, got.Price.Equal(decimal.NewFromInt(700)))
}

func TestListProductsCachesPage(t *testing.T) {
	p := Product{ID: uuid.New(), Name: "Leather Tote", Slug: "leather-tote", Price: decimal.NewFromInt(950), IsActive: true}
	queries := &fakeQueries{products: map[uuid.UUID]Product{p.ID: p}}
	svc := newTestService(t, queries)

	items, total, err := svc.ListProducts(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, total)

	_, _, err = svc.ListProducts(context.Background(), 20, 0)
	require.NoError(t, err)
	require.Equal(t, 1, queries.listCalls)
}
