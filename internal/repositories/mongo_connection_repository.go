package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"skillsync/internal/models"
)

type connectionDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Sender    bson.ObjectID `bson:"sender"`
	Receiver  bson.ObjectID `bson:"receiver"`
	PairKey   string        `bson:"pairKey"`
	Status    string        `bson:"status"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func (d connectionDocument) model() models.Connection {
	return models.Connection{
		ID:         d.ID.Hex(),
		SenderID:   d.Sender.Hex(),
		ReceiverID: d.Receiver.Hex(),
		Status:     models.ConnectionStatus(d.Status),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type connectionMongoRepository struct {
	db *mongo.Database
}

// NewConnectionMongoRepository returns a ConnectionRepository backed by the
// connections collection.
func NewConnectionMongoRepository(db *mongo.Database) ConnectionRepository {
	return &connectionMongoRepository{db: db}
}

func (r *connectionMongoRepository) collection() *mongo.Collection {
	return r.db.Collection(connectionCollection)
}

func (r *connectionMongoRepository) CreateConnection(ctx context.Context, senderID, receiverID string) (models.Connection, error) {
	ids, ok := objectIDs(senderID, receiverID)
	if !ok {
		return models.Connection{}, ErrUserNotFound
	}

	now := time.Now().UTC()
	doc := connectionDocument{
		Sender:    ids[0],
		Receiver:  ids[1],
		PairKey:   models.PairKey(senderID, receiverID),
		Status:    string(models.StatusPending),
		CreatedAt: now,
		UpdatedAt: now,
	}
	result, err := r.collection().InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Connection{}, ErrDuplicateConnection
		}
		return models.Connection{}, err
	}
	objectID, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return models.Connection{}, errors.New("failed to convert inserted ID to ObjectID")
	}
	doc.ID = objectID
	return doc.model(), nil
}

func (r *connectionMongoRepository) GetConnection(ctx context.Context, id string) (models.Connection, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.Connection{}, ErrConnectionNotFound
	}
	return r.findOne(ctx, bson.M{"_id": objectID})
}

func (r *connectionMongoRepository) FindConnectionBetween(ctx context.Context, userA, userB string) (models.Connection, error) {
	filter, ok := pairFilter("sender", "receiver", userA, userB)
	if !ok {
		return models.Connection{}, ErrConnectionNotFound
	}
	return r.findOne(ctx, filter)
}

func (r *connectionMongoRepository) HasAcceptedConnection(ctx context.Context, userA, userB string) (bool, error) {
	filter, ok := pairFilter("sender", "receiver", userA, userB)
	if !ok {
		return false, nil
	}
	filter["status"] = string(models.StatusAccepted)

	count, err := r.collection().CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *connectionMongoRepository) UpdateConnectionStatus(ctx context.Context, id string, status models.ConnectionStatus) (models.Connection, error) {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return models.Connection{}, ErrConnectionNotFound
	}

	var doc connectionDocument
	err = r.collection().FindOneAndUpdate(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"status": string(status), "updatedAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Connection{}, ErrConnectionNotFound
	}
	if err != nil {
		return models.Connection{}, err
	}
	return doc.model(), nil
}

func (r *connectionMongoRepository) DeleteConnection(ctx context.Context, id string) error {
	objectID, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrConnectionNotFound
	}
	result, err := r.collection().DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

func (r *connectionMongoRepository) ListConnections(ctx context.Context, userID string, status models.ConnectionStatus) ([]models.Connection, error) {
	objectID, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return []models.Connection{}, nil
	}

	filter := bson.M{
		"$or":    bson.A{bson.M{"sender": objectID}, bson.M{"receiver": objectID}},
		"status": string(status),
	}
	cursor, err := r.collection().Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []connectionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]models.Connection, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.model())
	}
	return result, nil
}

func (r *connectionMongoRepository) findOne(ctx context.Context, filter bson.M) (models.Connection, error) {
	var doc connectionDocument
	err := r.collection().FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Connection{}, ErrConnectionNotFound
	}
	if err != nil {
		return models.Connection{}, err
	}
	return doc.model(), nil
}

// pairFilter matches documents linking a and b in either orientation.
func pairFilter(fromField, toField, a, b string) (bson.M, bool) {
	ids, ok := objectIDs(a, b)
	if !ok {
		return nil, false
	}
	return bson.M{"$or": bson.A{
		bson.M{fromField: ids[0], toField: ids[1]},
		bson.M{fromField: ids[1], toField: ids[0]},
	}}, true
}
