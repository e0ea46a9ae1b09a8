package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Store bundles the repositories of one backend with its lifecycle hooks.
type Store struct {
	Users       UserRepository
	Connections ConnectionRepository
	Messages    MessageRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// Ping checks the backend is reachable.
func (s Store) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend's connections.
func (s Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// NewPostgresStore wires the sqlx repositories to db.
func NewPostgresStore(db *sqlx.DB) Store {
	return Store{
		Users:       NewUserRepo(db),
		Connections: NewConnectionRepo(db),
		Messages:    NewMessageRepo(db),
		ping:        db.PingContext,
		close:       func(context.Context) error { return db.Close() },
	}
}

// NewMongoStore wires the Mongo repositories to the named database.
func NewMongoStore(client *mongo.Client, database string) Store {
	db := client.Database(database)
	return Store{
		Users:       NewUserMongoRepository(db),
		Connections: NewConnectionMongoRepository(db),
		Messages:    NewMessageMongoRepository(db),
		ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: client.Disconnect,
	}
}

// NewMemoryStore wires a fresh in-memory backend.
func NewMemoryStore() Store {
	m := NewMemory()
	return Store{Users: m, Connections: m, Messages: m}
}
