package userservice

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/showcase/internal/common"
)

func TestDBModel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	db := common.TestDB("file://../../migrations", t)
	ctx := context.Background()
	m := newUserModel(db)

	n, err := m.countUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	u := &User{Username: "alice", Email: "alice@example.com", Level: LevelEditor}
	require.NoError(t, u.Password.set(testPassword))
	require.NoError(t, m.insertUser(ctx, u))
	assert.NotZero(t, u.ID)

	dup := &User{Username: "alice", Email: "other@example.com", Level: LevelEditor}
	require.NoError(t, dup.Password.set(testPassword))
	assert.ErrorIs(t, m.insertUser(ctx, dup), ErrDuplicateUsername)

	got, err := m.getUserByUsername(ctx, "alice")
	require.NoError(t, err)
	ok, err := got.Password.compare(testPassword)
	require.NoError(t, err)
	assert.True(t, ok)

	byID, err := m.getUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, LevelEditor, byID.Level)

	users, err := m.getUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, m.deleteUser(ctx, u.ID))
	assert.ErrorIs(t, m.deleteUser(ctx, u.ID), common.ErrRecordNotFound)

	_, err = m.getUserByUsername(ctx, "alice")
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}

func TestUserServiceWithBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db := common.TestDB("file://../../migrations", t)
	broker, err := common.NewMessageBroker(common.TestRabbitMQ(t))
	require.NoError(t, err)
	t.Cleanup(func() { broker.Close() })
	require.NoError(t, common.SetupUserExchange(broker))

	msgs, err := broker.Consume(common.UserCreatedKey, common.UserExchange, common.UserCreatedQueue)
	require.NoError(t, err)

	s := NewUserService(db, broker, common.NewCache(time.Minute, time.Minute), NewTokenManager("secret", "showcase", time.Hour), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err = s.CreateUser(context.Background(), "alice", testPassword, "alice@example.com", LevelEditor)
	require.NoError(t, err)

	select {
	case msg := <-msgs:
		assert.JSONEq(t, `{"username":"alice","email":"alice@example.com","level":"editor"}`, string(msg.Body))
		msg.Ack(false)
	case <-time.After(10 * time.Second):
		t.Fatal("user.created event was not published")
	}
}
