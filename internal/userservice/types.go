package userservice

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/sushihentaime/showcase/internal/common"
)

type Level string

const (
	LevelAdmin  Level = "admin"
	LevelEditor Level = "editor"

	DefaultTokenTTL = 24 * time.Hour
)

var (
	AnonymousUser = User{}
)

type UserService struct {
	m      userRepository
	mb     common.MessageProducer
	c      *common.Cache
	tokens *TokenManager
	logger *slog.Logger
}

type DBModel struct {
	db *sql.DB
}

type userRepository interface {
	insertUser(ctx context.Context, u *User) error
	getUserByUsername(ctx context.Context, username string) (*User, error)
	getUserByID(ctx context.Context, id int) (*User, error)
	getUsers(ctx context.Context) ([]*User, error)
	deleteUser(ctx context.Context, id int) error
	countUsers(ctx context.Context) (int, error)
}

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  Password  `json:"-"`
	Level     Level     `json:"level"`
	CreatedAt time.Time `json:"created_at"`
}

type Password struct {
	hash []byte
}

// AuthToken is a signed session credential.
type AuthToken struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expires_at"`
}

type LoginResult struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	LoginTime time.Time `json:"login_time"`
}

// UserCreatedEvent is published on the user exchange after an account is created.
type UserCreatedEvent struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Level    Level  `json:"level"`
}
