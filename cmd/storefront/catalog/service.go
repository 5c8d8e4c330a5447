package catalog

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/SanteonNL/storefront/cmd/storefront/cache"
	"github.com/SanteonNL/storefront/cmd/storefront/filter"
	"github.com/SanteonNL/storefront/cmd/storefront/query"
	"github.com/SanteonNL/storefront/models/shop"
	"github.com/rs/zerolog"
)

const (
	productCachePrefix = "products"
	DefaultProductTTL  = 300 * time.Second
)

// ProductPage is one page of the product listing.
type ProductPage struct {
	Products   []shop.Product   `json:"products"`
	Pagination query.Pagination `json:"pagination"`
}

type Service struct {
	repo       *Repository
	cache      cache.Store
	productTTL time.Duration
	onCache    func(hit bool)
	log        zerolog.Logger

	// generation is bumped by every invalidation; listings loaded across a
	// bump are not cached.
	generation atomic.Uint64
}

type Option func(*Service)

// WithCache caches product listings in store for ttl.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = store
		s.productTTL = ttl
	}
}

// WithCacheObserver is called after every cached listing lookup.
func WithCacheObserver(fn func(hit bool)) Option {
	return func(s *Service) {
		s.onCache = fn
	}
}

func NewService(repo *Repository, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		productTTL: DefaultProductTTL,
		log:        log.With().Str("component", "catalog").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Repository() *Repository {
	return s.repo
}

func (s *Service) ListCategories(ctx context.Context) ([]shop.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*shop.Category, error) {
	return s.repo.GetCategory(ctx, id)
}

// ProductQuery builds the listing query for r: active products narrowed by
// the product filters.
func ProductQuery(r *filter.Request) *query.Query {
	q := query.New("products").Where("is_active", true)
	filter.Apply(filter.ProductSpec, r, q)
	if !q.HasOrder() {
		q.OrderBy("id", query.Asc)
	}
	return q
}

// ListProducts returns one page of active products matching r.
func (s *Service) ListProducts(ctx context.Context, r *filter.Request, page, perPage int) (ProductPage, error) {
	if perPage <= 0 {
		perPage = query.DefaultPerPage
	}
	if page < 1 {
		page = 1
	}

	key := cache.Key(productCachePrefix, r.Encode(), strconv.Itoa(page), strconv.Itoa(perPage))
	generation := s.generation.Load()
	fresh := func() bool { return s.generation.Load() == generation }
	result, hit, err := cache.RememberIf(ctx, s.cache, key, s.productTTL, func(ctx context.Context) (ProductPage, error) {
		products, total, err := s.repo.ListProducts(ctx, ProductQuery(r), page, perPage)
		if err != nil {
			return ProductPage{}, err
		}
		return ProductPage{
			Products:   products,
			Pagination: query.Paginate(page, perPage, total),
		}, nil
	}, fresh)
	if err != nil {
		return ProductPage{}, err
	}

	if s.cache != nil {
		if s.onCache != nil {
			s.onCache(hit)
		}
		s.log.Debug().Str("key", key).Bool("hit", hit).Msg("Product listing")
	}
	return result, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*shop.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, p *shop.Product) error {
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return err
	}
	s.InvalidateProducts(ctx)
	return s.attachCategory(ctx, p)
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, patch ProductPatch) (*shop.Product, error) {
	product, err := s.repo.UpdateProduct(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.InvalidateProducts(ctx)
	if err := s.attachCategory(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// InvalidateProducts drops every cached product listing. Listings being
// loaded concurrently in this process are not cached afterwards. Other
// processes sharing a redis store can still write back a listing they
// loaded before the change; productTTL bounds how long it is served.
func (s *Service) InvalidateProducts(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.generation.Add(1)
	if err := s.cache.DeletePrefix(ctx, productCachePrefix+":"); err != nil {
		s.log.Warn().Err(err).Msg("Failed to invalidate product cache")
	}
}

func (s *Service) attachCategory(ctx context.Context, p *shop.Product) error {
	products := []shop.Product{*p}
	if err := s.repo.loadCategories(ctx, products); err != nil {
		return err
	}
	*p = products[0]
	return nil
}
