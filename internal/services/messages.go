package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"skillsync/internal/apperr"
	"skillsync/internal/models"
	"skillsync/internal/observability"
	"skillsync/internal/repositories"
)

// MessageService gates direct messages on accepted connections.
type MessageService struct {
	messages    repositories.MessageRepository
	users       repositories.UserRepository
	connections *ConnectionService
	events      EventPublisher
	logger      *zerolog.Logger
}

func NewMessageService(
	messages repositories.MessageRepository,
	users repositories.UserRepository,
	connections *ConnectionService,
	events EventPublisher,
	logger *zerolog.Logger,
) *MessageService {
	return &MessageService{
		messages:    messages,
		users:       users,
		connections: connections,
		events:      eventsOrNoop(events),
		logger:      logger,
	}
}

// Send stores trimmed content from senderID to receiverID.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID, content string) (view models.MessageView, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService.Send",
		attribute.String("sender_id", senderID), attribute.String("receiver_id", receiverID))
	defer func() { endSpan(span, err) }()

	if receiverID == "" || content == "" {
		return models.MessageView{}, apperr.Validation("Receiver ID and message content are required")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return models.MessageView{}, apperr.Validation("Message content cannot be empty")
	}

	if err := s.connections.requireAccepted(ctx, senderID, receiverID); err != nil {
		return models.MessageView{}, err
	}

	msg, err := s.messages.CreateMessage(ctx, senderID, receiverID, content)
	if err != nil {
		return models.MessageView{}, internal("Failed to send message", err)
	}

	views, err := s.attachParties(ctx, []models.Message{msg})
	if err != nil {
		return models.MessageView{}, err
	}

	observability.IncMessageSent()
	s.events.Emit(ctx, observability.EventMessageSent, views[0])
	return views[0], nil
}

// Conversation marks every unread message from otherID to userID as read and
// returns the thread oldest first. Calling it again changes nothing.
func (s *MessageService) Conversation(ctx context.Context, userID, otherID string) (views []models.MessageView, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService.Conversation",
		attribute.String("user_id", userID), attribute.String("other_id", otherID))
	defer func() { endSpan(span, err) }()

	if otherID == "" {
		return nil, apperr.Validation("User ID is required")
	}
	if err := s.connections.requireAccepted(ctx, userID, otherID); err != nil {
		return nil, err
	}

	marked, err := s.messages.MarkRead(ctx, otherID, userID)
	if err != nil {
		return nil, internal("Failed to fetch messages", err)
	}
	observability.AddMessagesMarkedRead(marked)
	span.SetAttributes(attribute.Int64("marked_read", marked))

	msgs, err := s.messages.ListMessagesBetween(ctx, userID, otherID)
	if err != nil {
		return nil, internal("Failed to fetch messages", err)
	}
	return s.attachParties(ctx, msgs)
}

// Conversations folds userID's messages, newest first, into one summary per
// peer. A peer's summary is unread if any message from that peer is unread.
func (s *MessageService) Conversations(ctx context.Context, userID string) (summaries []models.ConversationSummary, err error) {
	ctx, span := observability.StartSpan(ctx, "MessageService.Conversations")
	defer func() { endSpan(span, err) }()

	msgs, err := s.messages.ListMessagesForUser(ctx, userID)
	if err != nil {
		return nil, internal("Failed to fetch conversations", err)
	}

	folded := foldConversations(userID, msgs)

	peerIDs := make([]string, 0, len(folded))
	for _, c := range folded {
		peerIDs = append(peerIDs, c.User.ID)
	}
	peers, err := s.users.GetUsersByIDs(ctx, peerIDs)
	if err != nil {
		return nil, internal("Failed to fetch conversations", err)
	}
	for i := range folded {
		if peer, ok := peers[folded[i].User.ID]; ok {
			folded[i].User = peer.Summary()
		}
	}
	return folded, nil
}

// foldConversations expects msgs newest first. The first message seen per
// peer is its latest; the unread flag is a union over the whole scan.
func foldConversations(userID string, msgs []models.Message) []models.ConversationSummary {
	index := make(map[string]int)
	result := make([]models.ConversationSummary, 0)
	for _, msg := range msgs {
		peerID := msg.SenderID
		if peerID == userID {
			peerID = msg.ReceiverID
		}
		unread := msg.ReceiverID == userID && !msg.Read

		i, seen := index[peerID]
		if !seen {
			index[peerID] = len(result)
			result = append(result, models.ConversationSummary{
				User:            models.UserSummary{ID: peerID},
				LastMessage:     msg.Content,
				LastMessageDate: msg.CreatedAt,
				Unread:          unread,
			})
			continue
		}
		if unread {
			result[i].Unread = true
		}
	}
	return result
}

func (s *MessageService) attachParties(ctx context.Context, msgs []models.Message) ([]models.MessageView, error) {
	ids := make([]string, 0, 2)
	seen := make(map[string]bool)
	for _, m := range msgs {
		for _, id := range []string{m.SenderID, m.ReceiverID} {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, internal("Failed to load message participants", err)
	}

	summary := func(id string) models.UserSummary {
		if u, ok := users[id]; ok {
			return u.Summary()
		}
		return models.UserSummary{ID: id}
	}
	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, models.MessageView{
			Message:  m,
			Sender:   summary(m.SenderID),
			Receiver: summary(m.ReceiverID),
		})
	}
	return views, nil
}
