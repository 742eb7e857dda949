package mongo

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	ProductsCollection = "products"
	CartsCollection    = "carts"
	MessagesCollection = "messages"
)

// Store owns the client connection. Open it once at startup, hand the
// repositories to the services, and Close it on shutdown.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func Open(ctx context.Context, uri, database string) (*Store, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)

	clientOptions := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)
	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, errors.Wrap(err, "create mongodb client")
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongodb")
	}

	logrus.WithField("database", database).Info("connected to mongodb")
	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Database() *mongo.Database {
	return s.db
}

func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) Products() *ProductRepository {
	return NewProductRepository(s.Collection(ProductsCollection))
}

func (s *Store) Carts() *CartRepository {
	return NewCartRepository(s.Collection(CartsCollection))
}

func (s *Store) Messages() *MessageRepository {
	return NewMessageRepository(s.Collection(MessagesCollection))
}
