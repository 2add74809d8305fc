package repository

import (
    "context"
    "errors"

    "go.mongodb.org/mongo-driver/bson"
    "go.mongodb.org/mongo-driver/mongo"
    "go.mongodb.org/mongo-driver/mongo/options"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// APIKeyRepo provides data access to partner API keys.  Keys are looked
// up by their public ID; the secret half is only ever compared against
// the stored bcrypt hash, never queried.
type APIKeyRepo interface {
    Create(ctx context.Context, k *model.APIKey) error
    GetByID(ctx context.Context, id string) (*model.APIKey, error)
    ListByOrganizer(ctx context.Context, organizerID string) ([]model.APIKey, error)
}

// MongoAPIKeyRepo stores API keys in the "api_keys" collection.
type MongoAPIKeyRepo struct {
    col *mongo.Collection
}

// NewMongoAPIKeyRepo returns an APIKeyRepo bound to the "api_keys" collection.
func NewMongoAPIKeyRepo(db *mongo.Database) *MongoAPIKeyRepo {
    return &MongoAPIKeyRepo{col: db.Collection("api_keys")}
}

func (r *MongoAPIKeyRepo) Create(ctx context.Context, k *model.APIKey) error {
    _, err := r.col.InsertOne(ctx, k)
    if mongo.IsDuplicateKeyError(err) {
        return ErrDuplicateKey
    }
    return err
}

func (r *MongoAPIKeyRepo) GetByID(ctx context.Context, id string) (*model.APIKey, error) {
    var k model.APIKey
    err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&k)
    if errors.Is(err, mongo.ErrNoDocuments) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &k, nil
}

func (r *MongoAPIKeyRepo) ListByOrganizer(ctx context.Context, organizerID string) ([]model.APIKey, error) {
    opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
    cursor, err := r.col.Find(ctx, bson.M{"organizer_id": organizerID}, opts)
    if err != nil {
        return nil, err
    }
    var keys []model.APIKey
    if err := cursor.All(ctx, &keys); err != nil {
        return nil, err
    }
    return keys, nil
}
