package userservice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/sushihentaime/showcase/internal/common"
)

var (
	ErrAuthenticationFailure = errors.New("invalid authentication credentials")
)

// NewUserService wires the service. mb may be nil, in which case no user.created events are published.
func NewUserService(db *sql.DB, mb common.MessageProducer, c *common.Cache, tokens *TokenManager, logger *slog.Logger) *UserService {
	return &UserService{
		m:      newUserModel(db),
		mb:     mb,
		c:      c,
		tokens: tokens,
		logger: logger,
	}
}

// CreateUser creates a user account and publishes a user.created event.
func (s *UserService) CreateUser(ctx context.Context, username, password, email string, level Level) (*User, error) {
	v := common.NewValidator()
	validateUsername(v, username)
	validateEmail(v, email)
	validatePassword(v, password)
	validateLevel(v, level)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	_, err := s.m.getUserByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, ErrDuplicateUsername
	case !errors.Is(err, common.ErrRecordNotFound):
		return nil, err
	}

	u := User{
		Username: username,
		Email:    email,
		Level:    level,
	}

	err = u.Password.set(password)
	if err != nil {
		return nil, err
	}

	err = s.m.insertUser(ctx, &u)
	if err != nil {
		return nil, err
	}

	s.publishUserCreated(ctx, &u)

	return &u, nil
}

// publishUserCreated is best effort: the account already exists, so a broker failure is logged rather than returned.
func (s *UserService) publishUserCreated(ctx context.Context, u *User) {
	if s.mb == nil {
		return
	}

	data, err := json.Marshal(UserCreatedEvent{Username: u.Username, Email: u.Email, Level: u.Level})
	if err != nil {
		s.logger.Error("could not encode user.created event", slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = s.mb.Publish(ctx, data, common.UserCreatedKey, common.UserExchange)
	if err != nil {
		s.logger.Error("could not publish user.created event", slog.String("username", u.Username), slog.String("error", err.Error()))
	}
}

// LoginUser verifies the credentials and issues a session token. An unknown username and a wrong password fail identically.
func (s *UserService) LoginUser(ctx context.Context, username, password string) (*LoginResult, error) {
	v := common.NewValidator()
	validateCredentials(v, username, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.m.getUserByUsername(ctx, username)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			decoy := Password{hash: dummyHash}
			_, _ = decoy.compare(password)
			return nil, ErrAuthenticationFailure
		default:
			return nil, err
		}
	}

	ok, err := user.Password.compare(password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAuthenticationFailure
	}

	token, err := s.tokens.issue(user)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:      user,
		Token:     token.Token,
		ExpiresAt: token.Expiry,
		LoginTime: time.Now().UTC(),
	}, nil
}

// Authenticate resolves a session token to its user. Tokens of deleted users are rejected.
func (s *UserService) Authenticate(ctx context.Context, token string) (*User, error) {
	id, err := s.tokens.parse(token)
	if err != nil {
		return nil, err
	}

	key := common.CacheKeyUserByID(id)
	if cached, ok := s.c.Get(key); ok {
		return cached.(*User), nil
	}

	user, err := s.m.getUserByID(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRecordNotFound):
			return nil, ErrInvalidToken
		default:
			return nil, err
		}
	}

	s.c.Set(key, user)

	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*User, error) {
	return s.m.getUsers(ctx)
}

func (s *UserService) DeleteUser(ctx context.Context, id int) error {
	if id < 1 {
		return common.ErrRecordNotFound
	}

	err := s.m.deleteUser(ctx, id)
	if err != nil {
		return err
	}

	s.c.Delete(common.CacheKeyUserByID(id))

	return nil
}

// EnsureAdmin creates an admin account when no user exists yet. It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password, email string) (bool, error) {
	n, err := s.m.countUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	_, err = s.CreateUser(ctx, username, password, email, LevelAdmin)
	if err != nil {
		return false, err
	}

	return true, nil
}

func (u *User) IsAnonymous() bool {
	return u == &AnonymousUser
}

func (u *User) IsAdmin() bool {
	return u.Level == LevelAdmin
}
