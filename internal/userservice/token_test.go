package userservice

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager(t *testing.T) {
	u := &User{ID: 7, Username: "alice", Level: LevelEditor}
	tm := NewTokenManager("secret", "showcase", time.Hour)

	token, err := tm.issue(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.Expiry, time.Minute)

	id, err := tm.parse(token.Token)
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	testCases := []struct {
		name  string
		token func() string
	}{
		{
			name:  "garbage",
			token: func() string { return "abc.def.ghi" },
		},
		{
			name: "tampered payload",
			token: func() string {
				parts := strings.Split(token.Token, ".")
				other, err := NewTokenManager("secret", "showcase", time.Hour).issue(&User{ID: 1, Username: "admin", Level: LevelAdmin})
				require.NoError(t, err)
				return parts[0] + "." + strings.Split(other.Token, ".")[1] + "." + parts[2]
			},
		},
		{
			name: "wrong issuer",
			token: func() string {
				other, err := NewTokenManager("secret", "someone-else", time.Hour).issue(u)
				require.NoError(t, err)
				return other.Token
			},
		},
		{
			name: "expired",
			token: func() string {
				past := NewTokenManager("secret", "showcase", time.Hour)
				past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
				old, err := past.issue(u)
				require.NoError(t, err)
				return old.Token
			},
		},
		{
			name: "unsigned",
			token: func() string {
				s, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "7", "iss": "showcase", "exp": time.Now().Add(time.Hour).Unix()}).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "no expiry",
			token: func() string {
				s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "iss": "showcase"}).SignedString([]byte("secret"))
				require.NoError(t, err)
				return s
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tm.parse(tc.token())
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenManagerRequiresSecret(t *testing.T) {
	_, err := NewTokenManager("", "showcase", time.Hour).issue(&User{ID: 1})
	assert.Error(t, err)
}
