package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.opentelemetry.io/otel/attribute"

	"julianmorley.ca/con-plar/storefront/pkg/chat"
	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
)

const productNotFound = "product not found"

// CacheStatus reports how a product read was served. It is empty when no
// cache is configured.
type CacheStatus string

const (
	CacheHit  CacheStatus = "HIT"
	CacheMiss CacheStatus = "MISS"
)

// Product events published on chat.TopicProducts.
const (
	ProductCreated = "created"
	ProductUpdated = "updated"
	ProductDeleted = "deleted"
)

// ListParams are the raw listing query values.
type ListParams struct {
	Category string
	Stock    string
	Sort     string
	Page     string
	Limit    string

	// RawQuery is the untouched query string; its pairs are carried into
	// the prev/next links in their original order.
	RawQuery string
	// Path is the route the links point at, e.g. /api/products.
	Path         string
	DefaultLimit int
}

type ProductService struct {
	store   CatalogStore
	cache   ProductCache
	events  Publisher
	baseURL string
	cached  bool
	log     *logrus.Entry
}

type ProductOption func(*ProductService)

// WithCache puts a read-through cache in front of single product reads.
func WithCache(cache ProductCache) ProductOption {
	return func(s *ProductService) {
		if cache != nil {
			s.cache = cache
			s.cached = true
		}
	}
}

func WithEvents(p Publisher) ProductOption {
	return func(s *ProductService) {
		if p != nil {
			s.events = p
		}
	}
}

func NewProductService(store CatalogStore, baseURL string, opts ...ProductOption) *ProductService {
	s := &ProductService{
		store:   store,
		cache:   noopCache{},
		events:  noopPublisher{},
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     logrus.WithField("component", "products"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ProductService) ListProducts(ctx context.Context, params ListParams) Result[*models.ProductPage] {
	ctx, span := tracer.Start(ctx, "ProductService.ListProducts")
	defer span.End()

	defaultLimit := params.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = models.DefaultLimit
	}
	page, limit := models.ParsePageParams(params.Page, params.Limit, defaultLimit)
	query := models.ProductQuery{
		Filter: models.NewProductFilter(params.Category, params.Stock),
		Sort:   models.ParseSort(params.Sort),
		Page:   page,
		Limit:  limit,
	}
	span.SetAttributes(attribute.Int("page", page), attribute.Int("limit", limit))

	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	// Pages outside [1, totalPages] never reach List.
	total, err := s.store.Count(ctx, query.Filter)
	if err != nil {
		f := classify(err, productNotFound)
		record(span, f)
		return FailWith[*models.ProductPage](f)
	}
	var products []models.Product
	if models.NewPageInfo(total, page, limit).IsValid {
		products, total, err = s.store.List(ctx, query)
		if err != nil {
			f := classify(err, productNotFound)
			record(span, f)
			return FailWith[*models.ProductPage](f)
		}
	}

	info := models.NewPageInfo(total, page, limit)
	if !info.IsValid || products == nil {
		products = []models.Product{}
	}
	out := &models.ProductPage{
		Status:      "success",
		Payload:     products,
		PageInfo:    info,
		CurrentPage: page,
	}
	if info.HasPrevPage {
		out.PrevLink = s.pageLink(params.Path, params.RawQuery, *info.PrevPage)
	}
	if info.HasNextPage {
		out.NextLink = s.pageLink(params.Path, params.RawQuery, *info.NextPage)
	}
	return Ok(out)
}

// pageLink points at another page of the same listing. Every query pair
// except page is kept verbatim and in order.
func (s *ProductService) pageLink(path, rawQuery string, page int) string {
	if path == "" {
		path = "/api/products"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s?page=%d", s.baseURL, path, page)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if key == "page" {
			continue
		}
		b.WriteByte('&')
		b.WriteString(pair)
	}
	return b.String()
}

func (s *ProductService) GetProducts(ctx context.Context) Result[[]models.Product] {
	ctx, span := tracer.Start(ctx, "ProductService.GetProducts")
	defer span.End()

	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	products, err := s.store.FindAll(ctx)
	if err != nil {
		f := classify(err, productNotFound)
		record(span, f)
		return FailWith[[]models.Product](f)
	}
	if products == nil {
		products = []models.Product{}
	}
	return Ok(products)
}

// GetProductByID reads through the cache when one is configured.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (Result[*models.Product], CacheStatus) {
	ctx, span := tracer.Start(ctx, "ProductService.GetProductByID")
	defer span.End()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		f := &Failure{Kind: NotFound, Message: productNotFound}
		record(span, f)
		return FailWith[*models.Product](f), ""
	}

	status := CacheStatus("")
	if s.cached {
		product, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("product_id", id).Warn("cache read failed")
		}
		if ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return Ok(product), CacheHit
		}
		status = CacheMiss
	}

	storeCtx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	product, err := s.store.FindByID(storeCtx, oid)
	if err != nil {
		f := classify(err, productNotFound)
		record(span, f)
		return FailWith[*models.Product](f), status
	}
	if s.cached {
		if err := s.cache.Set(ctx, product); err != nil {
			s.log.WithError(err).WithField("product_id", id).Warn("cache write failed")
		}
	}
	return Ok(product), status
}

func (s *ProductService) AddProduct(ctx context.Context, req *models.CreateProductRequest) Result[*models.Product] {
	ctx, span := tracer.Start(ctx, "ProductService.AddProduct")
	defer span.End()

	if err := req.Validate(); err != nil {
		f := &Failure{Kind: ValidationFailed, Message: err.Error()}
		record(span, f)
		return FailWith[*models.Product](f)
	}

	product := req.ToProduct()
	storeCtx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()
	if err := s.store.Insert(storeCtx, product); err != nil {
		f := classify(err, productNotFound)
		record(span, f)
		return FailWith[*models.Product](f)
	}

	s.publish(ctx, ProductCreated, product)
	return Ok(product)
}

func (s *ProductService) UpdateProduct(ctx context.Context, id string, update *models.ProductUpdate) Result[*models.Product] {
	ctx, span := tracer.Start(ctx, "ProductService.UpdateProduct")
	defer span.End()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		f := &Failure{Kind: NotFound, Message: productNotFound}
		record(span, f)
		return FailWith[*models.Product](f)
	}
	if err := update.Validate(); err != nil {
		f := &Failure{Kind: ValidationFailed, Message: err.Error()}
		record(span, f)
		return FailWith[*models.Product](f)
	}

	storeCtx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()
	product, err := s.store.Update(storeCtx, oid, update)
	if err != nil {
		f := classify(err, productNotFound)
		record(span, f)
		return FailWith[*models.Product](f)
	}

	s.invalidate(ctx, id)
	s.publish(ctx, ProductUpdated, product)
	return Ok(product)
}

func (s *ProductService) DeleteProduct(ctx context.Context, id string) Result[bson.ObjectID] {
	ctx, span := tracer.Start(ctx, "ProductService.DeleteProduct")
	defer span.End()

	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		f := &Failure{Kind: NotFound, Message: productNotFound}
		record(span, f)
		return FailWith[bson.ObjectID](f)
	}

	storeCtx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()
	if err := s.store.Delete(storeCtx, oid); err != nil {
		f := classify(err, productNotFound)
		record(span, f)
		return FailWith[bson.ObjectID](f)
	}

	s.invalidate(ctx, id)
	s.publish(ctx, ProductDeleted, map[string]bson.ObjectID{"_id": oid})
	return Ok(oid)
}

func (s *ProductService) invalidate(ctx context.Context, id string) {
	if !s.cached {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.WithError(err).WithField("product_id", id).Warn("cache invalidation failed")
	}
}

func (s *ProductService) publish(ctx context.Context, name string, v interface{}) {
	if err := s.events.Publish(ctx, chat.TopicProducts, name, v); err != nil {
		s.log.WithError(err).WithField("event", name).Warn("product event not published")
	}
}
