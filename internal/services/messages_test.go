package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"skillsync/internal/apperr"
	"skillsync/internal/mocks"
	"skillsync/internal/models"
)

func TestSendRequiresAcceptedConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "a"), f.user(t, "b")

	_, err := f.messages.Send(ctx, a.ID, b.ID, "hi")
	requireKind(t, apperr.KindForbidden, err)

	conn, err := f.connections.Request(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, a.ID, b.ID, "hi")
	requireKind(t, apperr.KindForbidden, err)

	_, err = f.connections.Respond(ctx, b.ID, conn.ID, "reject")
	require.NoError(t, err)
	_, err = f.messages.Send(ctx, b.ID, a.ID, "hi")
	requireKind(t, apperr.KindForbidden, err)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = f.connections.Respond(ctx, b.ID, conn.ID, "accept")
	require.NoError(t, err)
	view, err := f.messages.Send(ctx, b.ID, a.ID, "  hello there \n")
	require.NoError(t, err)
	assert.Equal(t, "hello there", view.Content)
	assert.False(t, view.Read)
	assert.Equal(t, b.Summary(), view.Sender)
	assert.Equal(t, a.Summary(), view.Receiver)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "a"), f.user(t, "b")
	f.connect(t, a, b)

	tests := []struct {
		name     string
		receiver string
		content  string
		message  string
	}{
		{"missing receiver", "", "hi", "Receiver ID and message content are required"},
		{"missing content", b.ID, "", "Receiver ID and message content are required"},
		{"blank content", b.ID, " \t\n ", "Message content cannot be empty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.messages.Send(ctx, a.ID, tc.receiver, tc.content)
			requireKind(t, apperr.KindValidation, err)
			assert.Equal(t, tc.message, apperr.MessageOf(err, ""))
		})
	}

	msgs, err := f.store.ListMessagesForUser(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestConversationMarksIncomingRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "a"), f.user(t, "b")
	f.connect(t, a, b)

	for _, text := range []string{"one", "two"} {
		_, err := f.messages.Send(ctx, a.ID, b.ID, text)
		require.NoError(t, err)
	}
	_, err := f.messages.Send(ctx, b.ID, a.ID, "three")
	require.NoError(t, err)

	first, err := f.messages.Conversation(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, []string{"one", "two", "three"}, contents(first))
	assert.True(t, first[0].Read)
	assert.True(t, first[1].Read)
	assert.False(t, first[2].Read, "b's own message stays unread until a fetches")

	second, err := f.messages.Conversation(ctx, b.ID, a.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("conversation changed on refetch (-first +second):\n%s", diff)
	}
}

func TestConversationRequiresConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "a"), f.user(t, "b")

	_, err := f.messages.Conversation(ctx, a.ID, "")
	requireKind(t, apperr.KindValidation, err)

	_, err = f.messages.Conversation(ctx, a.ID, b.ID)
	requireKind(t, apperr.KindForbidden, err)
}

func TestConversations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.user(t, "a"), f.user(t, "b"), f.user(t, "c")
	f.connect(t, a, b)
	f.connect(t, c, a)

	send := func(from, to models.User, text string) {
		t.Helper()
		_, err := f.messages.Send(ctx, from.ID, to.ID, text)
		require.NoError(t, err)
	}
	send(b, a, "from b")
	send(a, b, "reply to b")
	send(c, a, "from c")

	got, err := f.messages.Conversations(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, c.Summary(), got[0].User)
	assert.Equal(t, "from c", got[0].LastMessage)
	assert.True(t, got[0].Unread)

	assert.Equal(t, b.Summary(), got[1].User)
	assert.Equal(t, "reply to b", got[1].LastMessage)
	assert.True(t, got[1].Unread, "older unread message from b still counts")

	_, err = f.messages.Conversation(ctx, a.ID, b.ID)
	require.NoError(t, err)

	got, err = f.messages.Conversations(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Unread)
	assert.False(t, got[1].Unread)
}

func TestFoldConversations(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msgs := []models.Message{
		{SenderID: "me", ReceiverID: "x", Content: "latest x", CreatedAt: now},
		{SenderID: "y", ReceiverID: "me", Content: "latest y", Read: true, CreatedAt: now.Add(-time.Minute)},
		{SenderID: "x", ReceiverID: "me", Content: "older x", CreatedAt: now.Add(-2 * time.Minute)},
		{SenderID: "y", ReceiverID: "me", Content: "older y", Read: true, CreatedAt: now.Add(-3 * time.Minute)},
	}

	got := foldConversations("me", msgs)

	want := []models.ConversationSummary{
		{User: models.UserSummary{ID: "x"}, LastMessage: "latest x", LastMessageDate: now, Unread: true},
		{User: models.UserSummary{ID: "y"}, LastMessage: "latest y", LastMessageDate: now.Add(-time.Minute), Unread: false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("foldConversations mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, foldConversations("me", nil))
}

func TestConversationStoreFailure(t *testing.T) {
	logger := zerolog.Nop()
	users := new(mocks.UserRepositoryMock)
	conns := new(mocks.ConnectionRepositoryMock)
	msgs := new(mocks.MessageRepositoryMock)
	connections := NewConnectionService(conns, users, nil, &logger)
	svc := NewMessageService(msgs, users, connections, nil, &logger)

	conns.On("HasAcceptedConnection", mock.Anything, "a", "b").Return(true, nil).Once()
	msgs.On("MarkRead", mock.Anything, "b", "a").Return(int64(0), assert.AnError).Once()

	_, err := svc.Conversation(context.Background(), "a", "b")

	requireKind(t, apperr.KindInternal, err)
	msgs.AssertNotCalled(t, "ListMessagesBetween", mock.Anything, mock.Anything, mock.Anything)
	conns.AssertExpectations(t)
	msgs.AssertExpectations(t)
}

func TestSendFallsBackToIDSummary(t *testing.T) {
	logger := zerolog.Nop()
	users := new(mocks.UserRepositoryMock)
	conns := new(mocks.ConnectionRepositoryMock)
	msgs := new(mocks.MessageRepositoryMock)
	events := new(mocks.EventsMock)
	connections := NewConnectionService(conns, users, nil, &logger)
	svc := NewMessageService(msgs, users, connections, events, &logger)

	stored := models.Message{ID: "m1", SenderID: "a", ReceiverID: "b", Content: "hi"}
	conns.On("HasAcceptedConnection", mock.Anything, "a", "b").Return(true, nil).Once()
	msgs.On("CreateMessage", mock.Anything, "a", "b", "hi").Return(stored, nil).Once()
	users.On("GetUsersByIDs", mock.Anything, []string{"a", "b"}).
		Return(map[string]models.User{"a": {ID: "a", Name: "Ann", Email: "ann@x.io"}}, nil).Once()
	events.On("Emit", mock.Anything, "message.sent", mock.AnythingOfType("models.MessageView")).Once()

	view, err := svc.Send(context.Background(), "a", "b", "hi")

	require.NoError(t, err)
	assert.Equal(t, models.UserSummary{ID: "a", Name: "Ann", Email: "ann@x.io"}, view.Sender)
	assert.Equal(t, models.UserSummary{ID: "b"}, view.Receiver)
	events.AssertExpectations(t)
}

func contents(views []models.MessageView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Content)
	}
	return out
}
