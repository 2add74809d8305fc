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

// TicketRepo provides data access to ticket documents.  Replace is the
// conditional write used for status transitions; tickets are created
// once and never deleted, so there is no delete method.
type TicketRepo interface {
    Create(ctx context.Context, t *model.Ticket) error
    GetByID(ctx context.Context, id string) (*model.Ticket, error)
    // Replace persists the full ticket document only when the stored
    // version still equals expectedVersion, bumping the version on
    // success and updating t.Version to match.  A lost race returns
    // ErrVersionMismatch.
    Replace(ctx context.Context, t *model.Ticket, expectedVersion int64) error
    ListByEvent(ctx context.Context, eventID string) ([]model.Ticket, error)
    // ListPendingBefore returns the event's pending tickets reserved
    // strictly before the cutoff, oldest first.
    ListPendingBefore(ctx context.Context, eventID string, cutoff time.Time) ([]model.Ticket, error)
    // ListUnrestocked returns the event's cancelled or expired tickets
    // whose units have not been returned to availability yet.
    ListUnrestocked(ctx context.Context, eventID string) ([]model.Ticket, error)
    ListByPurchaser(ctx context.Context, purchaserRef string) ([]model.Ticket, error)
}

// MongoTicketRepo stores tickets in a MongoDB collection with the same
// version-token discipline as MongoEventRepo.
type MongoTicketRepo struct {
    col *mongo.Collection
}

// NewMongoTicketRepo returns a TicketRepo bound to the "tickets" collection.
func NewMongoTicketRepo(db *mongo.Database) *MongoTicketRepo {
    return &MongoTicketRepo{col: db.Collection("tickets")}
}

func (r *MongoTicketRepo) Create(ctx context.Context, t *model.Ticket) error {
    _, err := r.col.InsertOne(ctx, t)
    if mongo.IsDuplicateKeyError(err) {
        return ErrDuplicateKey
    }
    return err
}

func (r *MongoTicketRepo) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
    var t model.Ticket
    err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
    if errors.Is(err, mongo.ErrNoDocuments) {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return &t, nil
}

func (r *MongoTicketRepo) Replace(ctx context.Context, t *model.Ticket, expectedVersion int64) error {
    next := *t
    next.Version = expectedVersion + 1
    res, err := r.col.ReplaceOne(ctx, bson.M{"_id": t.ID, "version": expectedVersion}, &next)
    if err != nil {
        return err
    }
    if res.MatchedCount == 0 {
        if _, err := r.GetByID(ctx, t.ID); errors.Is(err, ErrNotFound) {
            return ErrNotFound
        }
        return ErrVersionMismatch
    }
    t.Version = next.Version
    return nil
}

func (r *MongoTicketRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Ticket, error) {
    opts := options.Find().SetSort(bson.D{{Key: "reserved_at", Value: 1}})
    cursor, err := r.col.Find(ctx, bson.M{"event_id": eventID}, opts)
    if err != nil {
        return nil, err
    }
    var tickets []model.Ticket
    if err := cursor.All(ctx, &tickets); err != nil {
        return nil, err
    }
    return tickets, nil
}

func (r *MongoTicketRepo) ListPendingBefore(ctx context.Context, eventID string, cutoff time.Time) ([]model.Ticket, error) {
    filter := bson.M{
        "event_id":    eventID,
        "status":      model.TicketPending,
        "reserved_at": bson.M{"$lt": cutoff},
    }
    opts := options.Find().SetSort(bson.D{{Key: "reserved_at", Value: 1}})
    cursor, err := r.col.Find(ctx, filter, opts)
    if err != nil {
        return nil, err
    }
    var tickets []model.Ticket
    if err := cursor.All(ctx, &tickets); err != nil {
        return nil, err
    }
    return tickets, nil
}

func (r *MongoTicketRepo) ListUnrestocked(ctx context.Context, eventID string) ([]model.Ticket, error) {
    // $ne true also matches documents written before the field existed.
    filter := bson.M{
        "event_id":  eventID,
        "status":    bson.M{"$in": []string{model.TicketCancelled, model.TicketExpired}},
        "restocked": bson.M{"$ne": true},
    }
    opts := options.Find().SetSort(bson.D{{Key: "reserved_at", Value: 1}})
    cursor, err := r.col.Find(ctx, filter, opts)
    if err != nil {
        return nil, err
    }
    var tickets []model.Ticket
    if err := cursor.All(ctx, &tickets); err != nil {
        return nil, err
    }
    return tickets, nil
}

func (r *MongoTicketRepo) ListByPurchaser(ctx context.Context, purchaserRef string) ([]model.Ticket, error) {
    opts := options.Find().SetSort(bson.D{{Key: "reserved_at", Value: -1}})
    cursor, err := r.col.Find(ctx, bson.M{"purchaser_ref": purchaserRef}, opts)
    if err != nil {
        return nil, err
    }
    var tickets []model.Ticket
    if err := cursor.All(ctx, &tickets); err != nil {
        return nil, err
    }
    return tickets, nil
}
