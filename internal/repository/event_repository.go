package repository

import (
    "context"
    "errors"
    "time"

    "go.mongodb.org/mongo-driver/bson"
    "go.mongodb.org/mongo-driver/mongo"
    "go.mongodb.org/mongo-driver/mongo/options"

    "github.com/iliyamo/event-ticketing/internal/model"
)

// EventRepo provides data access to event documents.  UpdateInventory is
// the only write path for the Available counter and it is conditional on
// the version token read beforehand; everything else is plain CRUD.
type EventRepo interface {
    Create(ctx context.Context, ev *model.Event) error
    GetByID(ctx context.Context, id string) (*model.Event, error)
    // UpdateInventory persists ev.Available only when the stored version
    // still equals expectedVersion.  On success the stored version is
    // incremented and ev.Version is updated to match; on a lost race it
    // returns ErrVersionMismatch and leaves the document untouched.
    UpdateInventory(ctx context.Context, ev *model.Event, expectedVersion int64) error
    ListUpcoming(ctx context.Context, now time.Time) ([]model.Event, error)
    ListByOrganizer(ctx context.Context, organizerID string) ([]model.Event, error)
    ListIDs(ctx context.Context) ([]string, error)
}

// MongoEventRepo stores events in a MongoDB collection.  Documents carry
// a monotonically increasing "version" field used as the condition for
// inventory writes.
type MongoEventRepo struct {
    col *mongo.Collection
}

// NewMongoEventRepo returns an EventRepo bound to the "events" collection.
func NewMongoEventRepo(db *mongo.Database) *MongoEventRepo {
    return &MongoEventRepo{col: db.Collection("events")}
}

func (r *MongoEventRepo) Create(ctx context.Context, ev *model.Event) error {
    _, err := r.col.InsertOne(ctx, ev)
    if mongo.IsDuplicateKeyError(err) {
        return ErrDuplicateKey
    }
    return err
}

func (r *MongoEventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
    var ev model.Event
    err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&ev)
    if errors.Is(err, mongo.ErrNoDocuments) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &ev, nil
}

// UpdateInventory issues a single conditional update filtered on both the
// document ID and the expected version.  A matched count of zero means
// either the event vanished or another writer bumped the version first;
// the two cases are told apart with a follow-up existence check so the
// ledger can distinguish a missing event from a lost race.
func (r *MongoEventRepo) UpdateInventory(ctx context.Context, ev *model.Event, expectedVersion int64) error {
    res, err := r.col.UpdateOne(ctx,
        bson.M{"_id": ev.ID, "version": expectedVersion},
        bson.M{"$set": bson.M{"available": ev.Available, "version": expectedVersion + 1}},
    )
    if err != nil {
        return err
    }
    if res.MatchedCount == 0 {
        if _, err := r.GetByID(ctx, ev.ID); errors.Is(err, ErrNotFound) {
            return ErrNotFound
        }
        return ErrVersionMismatch
    }
    ev.Version = expectedVersion + 1
    return nil
}

func (r *MongoEventRepo) ListUpcoming(ctx context.Context, now time.Time) ([]model.Event, error) {
    opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
    cursor, err := r.col.Find(ctx, bson.M{"date": bson.M{"$gte": now}}, opts)
    if err != nil {
        return nil, err
    }
    var events []model.Event
    if err := cursor.All(ctx, &events); err != nil {
        return nil, err
    }
    return events, nil
}

func (r *MongoEventRepo) ListByOrganizer(ctx context.Context, organizerID string) ([]model.Event, error) {
    opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
    cursor, err := r.col.Find(ctx, bson.M{"created_by": organizerID}, opts)
    if err != nil {
        return nil, err
    }
    var events []model.Event
    if err := cursor.All(ctx, &events); err != nil {
        return nil, err
    }
    return events, nil
}

// ListIDs returns the IDs of all events.  Used by the expiry sweeper,
// which walks every event rather than keeping a separate index of those
// with pending tickets.
func (r *MongoEventRepo) ListIDs(ctx context.Context) ([]string, error) {
    opts := options.Find().SetProjection(bson.M{"_id": 1})
    cursor, err := r.col.Find(ctx, bson.M{}, opts)
    if err != nil {
        return nil, err
    }
    var docs []struct {
        ID string `bson:"_id"`
    }
    if err := cursor.All(ctx, &docs); err != nil {
        return nil, err
    }
    ids := make([]string, 0, len(docs))
    for _, d := range docs {
        ids = append(ids, d.ID)
    }
    return ids, nil
}
