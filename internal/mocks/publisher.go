package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// EventsMock records domain events.
type EventsMock struct {
	mock.Mock
}

func (m *EventsMock) Emit(ctx context.Context, name string, payload any) {
	m.Called(ctx, name, payload)
}

type MailerMock struct {
	mock.Mock
}

func (m *MailerMock) SendVerification(ctx context.Context, to, name, link string) error {
	args := m.Called(ctx, to, name, link)
	return args.Error(0)
}

type AvatarStoreMock struct {
	mock.Mock
}

func (m *AvatarStoreMock) PresignAvatarUpload(ctx context.Context, userID, contentType string) (string, string, time.Time, error) {
	args := m.Called(ctx, userID, contentType)
	var expires time.Time
	if val := args.Get(2); val != nil {
		expires = val.(time.Time)
	}
	return args.String(0), args.String(1), expires, args.Error(3)
}
