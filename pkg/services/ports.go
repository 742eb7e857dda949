package services

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"julianmorley.ca/con-plar/storefront/pkg/chat"
	"julianmorley.ca/con-plar/storefront/pkg/models"
)

// CatalogStore is implemented by mongo.ProductRepository and memory.Catalog.
type CatalogStore interface {
	Insert(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Product, error)
	FindAll(ctx context.Context) ([]models.Product, error)
	Count(ctx context.Context, filter models.ProductFilter) (int64, error)
	List(ctx context.Context, q models.ProductQuery) ([]models.Product, int64, error)
	Update(ctx context.Context, id bson.ObjectID, update *models.ProductUpdate) (*models.Product, error)
	Delete(ctx context.Context, id bson.ObjectID) error
	CategorySummaries(ctx context.Context) ([]models.CategorySummary, error)
}

// CartStore is implemented by mongo.CartRepository and memory.Carts. Every
// mutation is a single atomic update and returns the stored cart.
type CartStore interface {
	Create(ctx context.Context) (*models.Cart, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Cart, error)
	FindPopulated(ctx context.Context, id bson.ObjectID) (*models.PopulatedCart, error)
	AddProduct(ctx context.Context, cartID, productID bson.ObjectID) (*models.Cart, error)
	ReplaceProducts(ctx context.Context, cartID bson.ObjectID, items []models.CartItem) (*models.Cart, error)
	SetQuantity(ctx context.Context, cartID, productID bson.ObjectID, quantity int) (*models.Cart, error)
	RemoveProduct(ctx context.Context, cartID, productID bson.ObjectID) (*models.Cart, error)
	Empty(ctx context.Context, cartID bson.ObjectID) (*models.Cart, error)
}

type MessageStore interface {
	Append(ctx context.Context, message *models.Message) error
	List(ctx context.Context) ([]models.Message, error)
}

// ProductCache is a read-through cache in front of CatalogStore.FindByID.
type ProductCache interface {
	Get(ctx context.Context, id string) (*models.Product, bool, error)
	Set(ctx context.Context, product *models.Product) error
	Invalidate(ctx context.Context, id string) error
}

type Publisher interface {
	Publish(ctx context.Context, topic, name string, v interface{}) error
}

type Broadcaster interface {
	Publisher
	Subscribe(topic, session string) *chat.Subscription
}

// Narrator writes a prose summary of the catalog figures.
type Narrator interface {
	GenerateCatalogReport(ctx context.Context, categories []models.CategorySummary) (string, error)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) (*models.Product, bool, error) { return nil, false, nil }
func (noopCache) Set(context.Context, *models.Product) error                 { return nil }
func (noopCache) Invalidate(context.Context, string) error                   { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }
