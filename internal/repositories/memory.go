package repositories

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"skillsync/internal/models"
)

// Memory keeps users, connections and messages in process. It enforces the
// same uniqueness rules as the database backends and is safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	users       map[string]models.User
	emails      map[string]string
	connections map[string]models.Connection
	pairs       map[string]string
	messages    []models.Message
	now         func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:       make(map[string]models.User),
		emails:      make(map[string]string),
		connections: make(map[string]models.Connection),
		pairs:       make(map[string]string),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) CreateUser(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.emails[user.Email]; taken {
		return models.User{}, ErrEmailTaken
	}
	now := m.now()
	user.ID = uuid.NewString()
	user.KnownSkills = nonNil(user.KnownSkills)
	user.CareerPath = nonNil(user.CareerPath)
	user.CreatedAt = now
	user.UpdatedAt = now

	m.users[user.ID] = user
	m.emails[user.Email] = user.ID
	return cloneUser(user), nil
}

func (m *Memory) GetUser(_ context.Context, id string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[email]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return cloneUser(m.users[id]), nil
}

func (m *Memory) GetUserByVerifyToken(_ context.Context, token string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if token == "" {
		return models.User{}, ErrUserNotFound
	}
	for _, user := range m.users {
		if user.VerifyToken == token {
			return cloneUser(user), nil
		}
	}
	return models.User{}, ErrUserNotFound
}

func (m *Memory) GetUsersByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]models.User, len(ids))
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			result[id] = cloneUser(user)
		}
	}
	return result, nil
}

func (m *Memory) UpdateUser(_ context.Context, id string, params UpdateUserParams) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	oldEmail := user.Email
	params.apply(&user)
	if user.Email != oldEmail {
		if _, taken := m.emails[user.Email]; taken {
			return models.User{}, ErrEmailTaken
		}
		delete(m.emails, oldEmail)
		m.emails[user.Email] = id
	}
	user.UpdatedAt = m.now()
	m.users[id] = user
	return cloneUser(user), nil
}

func (m *Memory) SearchUsers(_ context.Context, filter models.UserSearchFilter) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.User, 0)
	for _, user := range m.users {
		if userMatches(user, filter) {
			result = append(result, cloneUser(user))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// userMatches evaluates a search filter against one user.
func userMatches(u models.User, f models.UserSearchFilter) bool {
	contains := func(field, sub string) bool {
		return strings.Contains(strings.ToLower(field), strings.ToLower(sub))
	}

	switch {
	case f.Name != nil && !contains(u.Name, *f.Name):
		return false
	case f.Email != nil && !contains(u.Email, *f.Email):
		return false
	case f.Branch != nil && u.Branch != *f.Branch:
		return false
	case f.PassingYear != nil && (u.PassingYear == nil || *u.PassingYear != *f.PassingYear):
		return false
	case len(f.KnownSkills) > 0 && !anyOf(u.KnownSkills, f.KnownSkills):
		return false
	case len(f.CareerPath) > 0 && !anyOf(u.CareerPath, f.CareerPath):
		return false
	case f.Experience != nil && u.Experience != *f.Experience:
		return false
	case f.LearningGoal != nil && !contains(u.LearningGoal, *f.LearningGoal):
		return false
	case f.Availability != nil && u.Availability != *f.Availability:
		return false
	case f.IsOnboarded != nil && u.IsOnboarded != *f.IsOnboarded:
		return false
	case f.IsVerified != nil && u.IsVerified != *f.IsVerified:
		return false
	}
	return true
}

func anyOf(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func cloneUser(u models.User) models.User {
	u.KnownSkills = append([]string{}, u.KnownSkills...)
	u.CareerPath = append([]string{}, u.CareerPath...)
	if u.PassingYear != nil {
		year := *u.PassingYear
		u.PassingYear = &year
	}
	return u
}

func (m *Memory) CreateConnection(_ context.Context, senderID, receiverID string) (models.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := models.PairKey(senderID, receiverID)
	if _, exists := m.pairs[key]; exists {
		return models.Connection{}, ErrDuplicateConnection
	}
	now := m.now()
	conn := models.Connection{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.connections[conn.ID] = conn
	m.pairs[key] = conn.ID
	return conn, nil
}

func (m *Memory) GetConnection(_ context.Context, id string) (models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.connections[id]
	if !ok {
		return models.Connection{}, ErrConnectionNotFound
	}
	return conn, nil
}

func (m *Memory) FindConnectionBetween(_ context.Context, userA, userB string) (models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.pairs[models.PairKey(userA, userB)]
	if !ok {
		return models.Connection{}, ErrConnectionNotFound
	}
	return m.connections[id], nil
}

func (m *Memory) HasAcceptedConnection(ctx context.Context, userA, userB string) (bool, error) {
	conn, err := m.FindConnectionBetween(ctx, userA, userB)
	if errors.Is(err, ErrConnectionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return conn.Status == models.StatusAccepted, nil
}

func (m *Memory) UpdateConnectionStatus(_ context.Context, id string, status models.ConnectionStatus) (models.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[id]
	if !ok {
		return models.Connection{}, ErrConnectionNotFound
	}
	conn.Status = status
	conn.UpdatedAt = m.now()
	m.connections[id] = conn
	return conn, nil
}

func (m *Memory) DeleteConnection(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[id]
	if !ok {
		return ErrConnectionNotFound
	}
	delete(m.connections, id)
	delete(m.pairs, models.PairKey(conn.SenderID, conn.ReceiverID))
	return nil
}

func (m *Memory) ListConnections(_ context.Context, userID string, status models.ConnectionStatus) ([]models.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Connection, 0)
	for _, conn := range m.connections {
		if conn.Involves(userID) && conn.Status == status {
			result = append(result, conn)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (m *Memory) CreateMessage(_ context.Context, senderID, receiverID, content string) (models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := models.Message{
		ID:         uuid.NewString(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		CreatedAt:  m.now(),
	}
	m.messages = append(m.messages, msg)
	return msg, nil
}

// ListMessagesBetween relies on m.messages being kept in insertion order.
func (m *Memory) ListMessagesBetween(_ context.Context, userA, userB string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Message, 0)
	for _, msg := range m.messages {
		if (msg.SenderID == userA && msg.ReceiverID == userB) || (msg.SenderID == userB && msg.ReceiverID == userA) {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (m *Memory) MarkRead(_ context.Context, senderID, receiverID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var changed int64
	for i := range m.messages {
		msg := &m.messages[i]
		if msg.SenderID == senderID && msg.ReceiverID == receiverID && !msg.Read {
			msg.Read = true
			changed++
		}
	}
	return changed, nil
}

func (m *Memory) ListMessagesForUser(_ context.Context, userID string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Message, 0)
	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if msg.SenderID == userID || msg.ReceiverID == userID {
			result = append(result, msg)
		}
	}
	return result, nil
}

var (
	_ UserRepository       = (*Memory)(nil)
	_ ConnectionRepository = (*Memory)(nil)
	_ MessageRepository    = (*Memory)(nil)
)
