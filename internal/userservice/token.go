package userservice

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// TokenManager issues and verifies HS256 signed session tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type sessionClaims struct {
	Username string `json:"username"`
	Level    Level  `json:"level"`
	jwt.RegisteredClaims
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

func (tm *TokenManager) issue(u *User) (*AuthToken, error) {
	if len(tm.secret) == 0 {
		return nil, errors.New("token secret not configured")
	}

	now := tm.now()
	expiry := now.Add(tm.ttl)

	claims := sessionClaims{
		Username: u.Username,
		Level:    u.Level,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(u.ID),
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return nil, fmt.Errorf("could not sign token: %w", err)
	}

	return &AuthToken{Token: signed, Expiry: expiry}, nil
}

// parse verifies signature, issuer and expiry and returns the user id the token was issued for.
func (tm *TokenManager) parse(token string) (int, error) {
	var claims sessionClaims

	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tm.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		return 0, ErrInvalidToken
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil || id < 1 {
		return 0, ErrInvalidToken
	}

	return id, nil
}
