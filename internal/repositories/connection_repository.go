package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"skillsync/internal/models"
)

var (
	ErrConnectionNotFound  = errors.New("connection not found")
	ErrDuplicateConnection = errors.New("connection already exists for pair")
)

// ConnectionRepository abstracts connection persistence. Implementations
// guarantee at most one record per unordered pair and report the loser of a
// racing insert as ErrDuplicateConnection.
type ConnectionRepository interface {
	CreateConnection(ctx context.Context, senderID, receiverID string) (models.Connection, error)
	GetConnection(ctx context.Context, id string) (models.Connection, error)
	FindConnectionBetween(ctx context.Context, userA, userB string) (models.Connection, error)
	HasAcceptedConnection(ctx context.Context, userA, userB string) (bool, error)
	UpdateConnectionStatus(ctx context.Context, id string, status models.ConnectionStatus) (models.Connection, error)
	DeleteConnection(ctx context.Context, id string) error
	ListConnections(ctx context.Context, userID string, status models.ConnectionStatus) ([]models.Connection, error)
}

type connectionRow struct {
	ID         string    `db:"id"`
	SenderID   string    `db:"sender_id"`
	ReceiverID string    `db:"receiver_id"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r connectionRow) model() models.Connection {
	return models.Connection{
		ID:         r.ID,
		SenderID:   r.SenderID,
		ReceiverID: r.ReceiverID,
		Status:     models.ConnectionStatus(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

const connectionColumns = `id, sender_id, receiver_id, status, created_at, updated_at`

// ConnectionRepo is a sqlx implementation of ConnectionRepository.
type ConnectionRepo struct {
	db *sqlx.DB
}

// NewConnectionRepo constructs a ConnectionRepo.
func NewConnectionRepo(db *sqlx.DB) *ConnectionRepo {
	return &ConnectionRepo{db: db}
}

// CreateConnection stores a pending request. The unique pair_key column
// rejects a second record for the same pair in either direction.
func (r *ConnectionRepo) CreateConnection(ctx context.Context, senderID, receiverID string) (models.Connection, error) {
	var row connectionRow
	err := r.db.GetContext(ctx, &row, `INSERT INTO connections (id, sender_id, receiver_id, pair_key, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+connectionColumns,
		uuid.NewString(), senderID, receiverID, models.PairKey(senderID, receiverID), string(models.StatusPending))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Connection{}, ErrDuplicateConnection
		}
		return models.Connection{}, err
	}
	return row.model(), nil
}

// GetConnection fetches a connection by id.
func (r *ConnectionRepo) GetConnection(ctx context.Context, id string) (models.Connection, error) {
	var row connectionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+connectionColumns+` FROM connections WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, ErrConnectionNotFound
	}
	if err != nil {
		return models.Connection{}, err
	}
	return row.model(), nil
}

// FindConnectionBetween returns the record for the pair in either direction.
func (r *ConnectionRepo) FindConnectionBetween(ctx context.Context, userA, userB string) (models.Connection, error) {
	var row connectionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+connectionColumns+` FROM connections
		WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
		LIMIT 1`, userA, userB)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, ErrConnectionNotFound
	}
	if err != nil {
		return models.Connection{}, err
	}
	return row.model(), nil
}

// HasAcceptedConnection reports whether the pair is connected in either direction.
func (r *ConnectionRepo) HasAcceptedConnection(ctx context.Context, userA, userB string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM connections
		WHERE status=$3 AND ((sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)))`,
		userA, userB, string(models.StatusAccepted))
	return exists, err
}

// UpdateConnectionStatus sets the status and refreshes updated_at.
func (r *ConnectionRepo) UpdateConnectionStatus(ctx context.Context, id string, status models.ConnectionStatus) (models.Connection, error) {
	var row connectionRow
	err := r.db.GetContext(ctx, &row, `UPDATE connections SET status=$2, updated_at=NOW()
		WHERE id=$1 RETURNING `+connectionColumns, id, string(status))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Connection{}, ErrConnectionNotFound
	}
	if err != nil {
		return models.Connection{}, err
	}
	return row.model(), nil
}

// DeleteConnection removes a connection in any state.
func (r *ConnectionRepo) DeleteConnection(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM connections WHERE id=$1`, id)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

// ListConnections returns the user's connections with the given status, newest first.
func (r *ConnectionRepo) ListConnections(ctx context.Context, userID string, status models.ConnectionStatus) ([]models.Connection, error) {
	var rows []connectionRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+connectionColumns+` FROM connections
		WHERE (sender_id=$1 OR receiver_id=$1) AND status=$2
		ORDER BY created_at DESC`, userID, string(status))
	if err != nil {
		return nil, err
	}
	result := make([]models.Connection, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.model())
	}
	return result, nil
}
