package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"skillsync/internal/models"
)

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, senderID, receiverID, content string) (models.Message, error)
	// ListMessagesBetween returns the thread of a pair, oldest first.
	ListMessagesBetween(ctx context.Context, userA, userB string) ([]models.Message, error)
	// MarkRead flags every unread message from senderID to receiverID as read
	// in one update and reports how many changed.
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)
	// ListMessagesForUser returns every message the user sent or received, newest first.
	ListMessagesForUser(ctx context.Context, userID string) ([]models.Message, error)
}

type messageRow struct {
	ID         string    `db:"id"`
	SenderID   string    `db:"sender_id"`
	ReceiverID string    `db:"receiver_id"`
	Content    string    `db:"content"`
	Read       bool      `db:"read"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r messageRow) model() models.Message {
	return models.Message{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Content:    r.Content,
		Read:       r.Read,
		CreatedAt:  r.CreatedAt,
	}
}

func messageModels(rows []messageRow) []models.Message {
	result := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.model())
	}
	return result
}

const messageColumns = `id, sender_id, receiver_id, content, read, created_at`

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores an unread message.
func (r *MessageRepo) CreateMessage(ctx context.Context, senderID, receiverID, content string) (models.Message, error) {
	var row messageRow
	err := r.db.GetContext(ctx, &row, `INSERT INTO messages (id, sender_id, receiver_id, content)
		VALUES ($1, $2, $3, $4) RETURNING `+messageColumns,
		uuid.NewString(), senderID, receiverID, content)
	if err != nil {
		return models.Message{}, err
	}
	return row.model(), nil
}

func (r *MessageRepo) ListMessagesBetween(ctx context.Context, userA, userB string) ([]models.Message, error) {
	var rows []messageRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+messageColumns+` FROM messages
		WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
		ORDER BY created_at ASC`, userA, userB)
	if err != nil {
		return nil, err
	}
	return messageModels(rows), nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET read=TRUE
		WHERE sender_id=$1 AND receiver_id=$2 AND read=FALSE`, senderID, receiverID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *MessageRepo) ListMessagesForUser(ctx context.Context, userID string) ([]models.Message, error) {
	var rows []messageRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+messageColumns+` FROM messages
		WHERE sender_id=$1 OR receiver_id=$1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return messageModels(rows), nil
}
