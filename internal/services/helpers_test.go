package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"skillsync/internal/apperr"
	"skillsync/internal/auth"
	"skillsync/internal/models"
	"skillsync/internal/repositories"
)

type fixture struct {
	store       *repositories.Memory
	users       *UserService
	connections *ConnectionService
	messages    *MessageService
	tokens      *auth.TokenManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	store := repositories.NewMemory()
	tokens := auth.NewTokenManager("test-secret", 24*time.Hour)
	connections := NewConnectionService(store, store, nil, &logger)
	return &fixture{
		store:       store,
		users:       NewUserService(store, tokens, nil, &logger),
		connections: connections,
		messages:    NewMessageService(store, store, connections, nil, &logger),
		tokens:      tokens,
	}
}

func (f *fixture) user(t *testing.T, name string) models.User {
	t.Helper()
	u, err := f.store.CreateUser(context.Background(), models.User{Name: name, Email: name + "@example.com"})
	require.NoError(t, err)
	return u
}

// connect returns an accepted connection from a to b.
func (f *fixture) connect(t *testing.T, a, b models.User) models.Connection {
	t.Helper()
	ctx := context.Background()
	conn, err := f.connections.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	conn, err = f.connections.Respond(ctx, b.ID, conn.ID, "accept")
	require.NoError(t, err)
	return conn
}

func requireKind(t *testing.T, want apperr.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, want, apperr.KindOf(err), "unexpected error %v", err)
}
