package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/event-roster/backend/internal/domain"
)

type fakeChannel struct {
	keys      []string
	published []amqp.Publishing
	err       error
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	if c.err != nil {
		return c.err
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

type fakeStore struct {
	users map[int64]*domain.User
}

func (s *fakeStore) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, errors.New("no such user")
	}
	return u, nil
}

func (s *fakeStore) GetEventByID(_ context.Context, id int64) (*domain.Event, error) {
	return &domain.Event{ID: id, Name: "Regional Convention"}, nil
}

func (s *fakeStore) GetPositionsByEventID(_ context.Context, eventID int64) ([]*domain.Position, error) {
	return []*domain.Position{{ID: 11, EventID: eventID, Name: "Parking 1", Department: "Parking"}}, nil
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, time.Second)

	err := p.Publish(context.Background(), domain.MailMessage{Type: domain.MailCreateUser, To: "a@example.com"})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	assert.Equal(t, QueueName, ch.keys[0])
	assert.Equal(t, "application/json", ch.published[0].ContentType)

	var msg domain.MailMessage
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &msg))
	assert.Equal(t, domain.MailCreateUser, msg.Type)
}

func TestAssignmentNotifier(t *testing.T) {
	ch := &fakeChannel{}
	store := &fakeStore{users: map[int64]*domain.User{
		1: {ID: 1, FullName: "张伟", Email: "zw@example.com"},
	}}
	n := NewAssignmentNotifier(store, NewPublisher(ch, time.Second))

	n.NotifyAssignments(context.Background(), 1, []*domain.Assignment{
		{ID: 100, EventID: 1, UserID: 1, PositionID: 11, ShiftStart: "08:00", ShiftEnd: "10:00"},
		// 用户不存在时跳过，不影响其他通知
		{ID: 101, EventID: 1, UserID: 2, PositionID: 11, ShiftStart: "10:00", ShiftEnd: "12:00"},
	})

	require.Len(t, ch.published, 1)
	var msg struct {
		Type domain.MailType                  `json:"type"`
		To   string                           `json:"to"`
		Data domain.AssignmentCreatedMailData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &msg))
	assert.Equal(t, domain.MailAssignmentCreated, msg.Type)
	assert.Equal(t, "zw@example.com", msg.To)
	assert.Equal(t, "Regional Convention", msg.Data.EventName)
	assert.Equal(t, "Parking 1", msg.Data.PositionName)
	assert.Equal(t, "08:00", msg.Data.ShiftStart)
}

func TestAssignmentNotifier_PublishFailureIsSwallowed(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	store := &fakeStore{users: map[int64]*domain.User{1: {ID: 1, Email: "zw@example.com"}}}
	n := NewAssignmentNotifier(store, NewPublisher(ch, time.Second))

	assert.NotPanics(t, func() {
		n.NotifyAssignments(context.Background(), 1, []*domain.Assignment{{ID: 100, UserID: 1, PositionID: 11}})
	})
	assert.Empty(t, ch.published)
}
