package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"skillsync/internal/apperr"
	"skillsync/internal/models"
	"skillsync/internal/observability"
	"skillsync/internal/repositories"
)

var (
	ErrConnectionExists = apperr.Conflict("Connection request already exists")
	ErrNotConnected     = apperr.Forbidden("You can only message users you are connected with")
)

// ConnectionService owns the connection request state machine.
type ConnectionService struct {
	connections repositories.ConnectionRepository
	users       repositories.UserRepository
	events      EventPublisher
	logger      *zerolog.Logger
}

func NewConnectionService(
	connections repositories.ConnectionRepository,
	users repositories.UserRepository,
	events EventPublisher,
	logger *zerolog.Logger,
) *ConnectionService {
	return &ConnectionService{
		connections: connections,
		users:       users,
		events:      eventsOrNoop(events),
		logger:      logger,
	}
}

// Request creates a pending connection from senderID to receiverID. Any
// existing record for the pair, in either direction, is a conflict.
func (s *ConnectionService) Request(ctx context.Context, senderID, receiverID string) (conn models.Connection, err error) {
	ctx, span := observability.StartSpan(ctx, "ConnectionService.Request",
		attribute.String("sender_id", senderID), attribute.String("receiver_id", receiverID))
	defer func() { endSpan(span, err) }()

	if receiverID == "" {
		return models.Connection{}, apperr.Validation("Receiver ID is required")
	}
	if senderID == receiverID {
		return models.Connection{}, apperr.Validation("Cannot send connection request to yourself")
	}

	if _, err := s.users.GetUser(ctx, receiverID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return models.Connection{}, apperr.NotFound("User not found")
		}
		return models.Connection{}, internal("Failed to send connection request", err)
	}

	_, err = s.connections.FindConnectionBetween(ctx, senderID, receiverID)
	switch {
	case err == nil:
		return models.Connection{}, ErrConnectionExists
	case !errors.Is(err, repositories.ErrConnectionNotFound):
		return models.Connection{}, internal("Failed to send connection request", err)
	}

	// The lookup above can race with a concurrent request; the store's pair
	// uniqueness decides the winner.
	conn, err = s.connections.CreateConnection(ctx, senderID, receiverID)
	if errors.Is(err, repositories.ErrDuplicateConnection) {
		return models.Connection{}, ErrConnectionExists
	}
	if err != nil {
		return models.Connection{}, internal("Failed to send connection request", err)
	}

	observability.IncConnectionTransition("request")
	s.events.Emit(ctx, observability.EventConnectionRequested, conn)
	return conn, nil
}

// Respond lets the receiver accept or reject a connection. Concurrent
// responses are last-write-wins.
func (s *ConnectionService) Respond(ctx context.Context, actorID, connectionID, action string) (conn models.Connection, err error) {
	ctx, span := observability.StartSpan(ctx, "ConnectionService.Respond",
		attribute.String("connection_id", connectionID), attribute.String("action", action))
	defer func() { endSpan(span, err) }()

	var status models.ConnectionStatus
	var event string
	switch action {
	case "accept":
		status, event = models.StatusAccepted, observability.EventConnectionAccepted
	case "reject":
		status, event = models.StatusRejected, observability.EventConnectionRejected
	default:
		return models.Connection{}, apperr.Validation("Invalid action")
	}

	conn, err = s.getConnection(ctx, connectionID, "Failed to update connection")
	if err != nil {
		return models.Connection{}, err
	}
	if conn.ReceiverID != actorID {
		return models.Connection{}, apperr.Forbidden("Unauthorized to modify this connection")
	}

	conn, err = s.connections.UpdateConnectionStatus(ctx, connectionID, status)
	if errors.Is(err, repositories.ErrConnectionNotFound) {
		return models.Connection{}, apperr.NotFound("Connection not found")
	}
	if err != nil {
		return models.Connection{}, internal("Failed to update connection", err)
	}

	observability.IncConnectionTransition(action)
	s.events.Emit(ctx, event, conn)
	return conn, nil
}

// Remove deletes a connection in any state; either party may do it.
func (s *ConnectionService) Remove(ctx context.Context, actorID, connectionID string) (err error) {
	ctx, span := observability.StartSpan(ctx, "ConnectionService.Remove",
		attribute.String("connection_id", connectionID))
	defer func() { endSpan(span, err) }()

	conn, err := s.getConnection(ctx, connectionID, "Failed to delete connection")
	if err != nil {
		return err
	}
	if !conn.Involves(actorID) {
		return apperr.Forbidden("Unauthorized to delete this connection")
	}

	err = s.connections.DeleteConnection(ctx, connectionID)
	if errors.Is(err, repositories.ErrConnectionNotFound) {
		return apperr.NotFound("Connection not found")
	}
	if err != nil {
		return internal("Failed to delete connection", err)
	}

	observability.IncConnectionTransition("remove")
	s.events.Emit(ctx, observability.EventConnectionRemoved, conn)
	return nil
}

// List returns userID's connections with the given status (accepted when
// empty), each resolved to the other party's profile.
func (s *ConnectionService) List(ctx context.Context, userID string, status models.ConnectionStatus) (views []models.ConnectionView, err error) {
	ctx, span := observability.StartSpan(ctx, "ConnectionService.List")
	defer func() { endSpan(span, err) }()

	if status == "" {
		status = models.StatusAccepted
	}
	if !status.Valid() {
		return nil, apperr.Validation("Invalid status")
	}

	conns, err := s.connections.ListConnections(ctx, userID, status)
	if err != nil {
		return nil, internal("Failed to fetch connections", err)
	}

	peerIDs := make([]string, 0, len(conns))
	for _, c := range conns {
		peerIDs = append(peerIDs, c.Peer(userID))
	}
	peers, err := s.users.GetUsersByIDs(ctx, peerIDs)
	if err != nil {
		return nil, internal("Failed to fetch connections", err)
	}

	views = make([]models.ConnectionView, 0, len(conns))
	for _, c := range conns {
		peer, ok := peers[c.Peer(userID)]
		if !ok {
			s.logger.Warn().Str("connection_id", c.ID).Msg("connection peer missing, skipping")
			continue
		}
		views = append(views, models.ConnectionView{
			ID:        c.ID,
			User:      peer,
			Status:    c.Status,
			CreatedAt: c.CreatedAt,
			IsSender:  c.SenderID == userID,
		})
	}
	return views, nil
}

// Status reports the state between userID and otherID; StatusNone with a nil
// ref when no record exists.
func (s *ConnectionService) Status(ctx context.Context, userID, otherID string) (status models.ConnectionStatus, ref *models.ConnectionRef, err error) {
	ctx, span := observability.StartSpan(ctx, "ConnectionService.Status")
	defer func() { endSpan(span, err) }()

	if otherID == "" {
		return "", nil, apperr.Validation("User ID is required")
	}

	conn, err := s.connections.FindConnectionBetween(ctx, userID, otherID)
	if errors.Is(err, repositories.ErrConnectionNotFound) {
		return models.StatusNone, nil, nil
	}
	if err != nil {
		return "", nil, internal("Failed to check connection status", err)
	}
	return conn.Status, &models.ConnectionRef{
		ID:       conn.ID,
		IsSender: conn.SenderID == userID,
		Status:   conn.Status,
	}, nil
}

// requireAccepted fails with ErrNotConnected unless the pair has an accepted connection.
func (s *ConnectionService) requireAccepted(ctx context.Context, userA, userB string) error {
	ok, err := s.connections.HasAcceptedConnection(ctx, userA, userB)
	if err != nil {
		return internal("Failed to check connection", err)
	}
	if !ok {
		return ErrNotConnected
	}
	return nil
}

func (s *ConnectionService) getConnection(ctx context.Context, id, failure string) (models.Connection, error) {
	conn, err := s.connections.GetConnection(ctx, id)
	if errors.Is(err, repositories.ErrConnectionNotFound) {
		return models.Connection{}, apperr.NotFound("Connection not found")
	}
	if err != nil {
		return models.Connection{}, internal(failure, err)
	}
	return conn, nil
}
