package mongo

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type IndexConfig struct {
	CollectionName string
	IndexModel     mongo.IndexModel
}

var requiredIndexes = []IndexConfig{
	// Product codes are unique across the catalog; inserts rely on it.
	{
		CollectionName: ProductsCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_code_unique"),
		},
	},
	{
		CollectionName: ProductsCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}},
			Options: options.Index().SetName("idx_category_price"),
		},
	},
	{
		CollectionName: ProductsCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "stock", Value: 1}},
			Options: options.Index().SetName("idx_stock"),
		},
	},
	{
		CollectionName: ProductsCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "price", Value: 1}},
			Options: options.Index().SetName("idx_price"),
		},
	},
	{
		CollectionName: MessagesCollection,
		IndexModel: mongo.IndexModel{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_created_at"),
		},
	},
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, idxConfig := range requiredIndexes {
		collection := s.Collection(idxConfig.CollectionName)

		indexName, err := collection.Indexes().CreateOne(ctx, idxConfig.IndexModel)
		if err != nil {
			return errors.Wrapf(err, "create index on %s", idxConfig.CollectionName)
		}

		logrus.WithFields(logrus.Fields{
			"index":      indexName,
			"collection": idxConfig.CollectionName,
		}).Debug("index ensured")
	}
	return nil
}
