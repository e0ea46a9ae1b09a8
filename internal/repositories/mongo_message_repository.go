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

type messageDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Sender    bson.ObjectID `bson:"sender"`
	Receiver  bson.ObjectID `bson:"receiver"`
	Content   string        `bson:"content"`
	Read      bool          `bson:"read"`
	CreatedAt time.Time     `bson:"createdAt"`
}

func (d messageDocument) model() models.Message {
	return models.Message{
		ID:         d.ID.Hex(),
		SenderID:   d.Sender.Hex(),
		ReceiverID: d.Receiver.Hex(),
		Content:    d.Content,
		Read:       d.Read,
		CreatedAt:  d.CreatedAt,
	}
}

type messageMongoRepository struct {
	db *mongo.Database
}

// NewMessageMongoRepository returns a MessageRepository backed by the messages collection.
func NewMessageMongoRepository(db *mongo.Database) MessageRepository {
	return &messageMongoRepository{db: db}
}

func (r *messageMongoRepository) collection() *mongo.Collection {
	return r.db.Collection(messageCollection)
}

func (r *messageMongoRepository) CreateMessage(ctx context.Context, senderID, receiverID, content string) (models.Message, error) {
	ids, ok := objectIDs(senderID, receiverID)
	if !ok {
		return models.Message{}, ErrUserNotFound
	}

	doc := messageDocument{
		Sender:    ids[0],
		Receiver:  ids[1],
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	result, err := r.collection().InsertOne(ctx, doc)
	if err != nil {
		return models.Message{}, err
	}
	objectID, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return models.Message{}, errors.New("failed to convert inserted ID to ObjectID")
	}
	doc.ID = objectID
	return doc.model(), nil
}

func (r *messageMongoRepository) ListMessagesBetween(ctx context.Context, userA, userB string) ([]models.Message, error) {
	filter, ok := pairFilter("sender", "receiver", userA, userB)
	if !ok {
		return []models.Message{}, nil
	}
	return r.find(ctx, filter, 1)
}

func (r *messageMongoRepository) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	ids, ok := objectIDs(senderID, receiverID)
	if !ok {
		return 0, nil
	}
	result, err := r.collection().UpdateMany(ctx,
		bson.M{"sender": ids[0], "receiver": ids[1], "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *messageMongoRepository) ListMessagesForUser(ctx context.Context, userID string) ([]models.Message, error) {
	objectID, err := bson.ObjectIDFromHex(userID)
	if err != nil {
		return []models.Message{}, nil
	}
	return r.find(ctx, bson.M{"$or": bson.A{bson.M{"sender": objectID}, bson.M{"receiver": objectID}}}, -1)
}

// find sorts by creation time in the given direction, breaking ties by _id.
func (r *messageMongoRepository) find(ctx context.Context, filter bson.M, direction int) ([]models.Message, error) {
	cursor, err := r.collection().Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: direction}, {Key: "_id", Value: direction}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	result := make([]models.Message, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.model())
	}
	return result, nil
}
