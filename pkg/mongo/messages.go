package mongo

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"julianmorley.ca/con-plar/storefront/pkg/global"
	"julianmorley.ca/con-plar/storefront/pkg/models"
)

type MessageRepository struct {
	collection *mongo.Collection
}

func NewMessageRepository(collection *mongo.Collection) *MessageRepository {
	return &MessageRepository{collection: collection}
}

func (r *MessageRepository) Append(ctx context.Context, message *models.Message) error {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, message); err != nil {
		return errors.Wrap(err, "insert message")
	}
	return nil
}

// List returns the whole log, oldest first.
func (r *MessageRepository) List(ctx context.Context) ([]models.Message, error) {
	ctx, cancel := global.WithStoreTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find messages")
	}
	defer cursor.Close(ctx)

	messages := make([]models.Message, 0)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, errors.Wrap(err, "decode messages")
	}
	return messages, nil
}
