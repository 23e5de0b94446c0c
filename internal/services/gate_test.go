package services

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessGate_Authenticate(t *testing.T) {
	gate := newTestGate(t)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"exact match", "admin", "password", false},
		{"wrong password", "admin", "Password", true},
		{"wrong username", "Admin", "password", true},
		{"empty", "", "", true},
		{"password prefix", "admin", "pass", true},
		{"trailing space", "admin", "password ", true},
		{"too long", "admin", "password" + strings.Repeat("x", 80), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := gate.Authenticate(tt.username, tt.password)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnauthorized)
				assert.Empty(t, token)
				return
			}
			require.NoError(t, err)
			assert.True(t, gate.Authorize(token))
		})
	}
}

func TestAccessGate_Authorize(t *testing.T) {
	gate := newTestGate(t)
	valid := adminToken(t, gate)

	otherHash, err := HashPassword("password", bcrypt.MinCost)
	require.NoError(t, err)
	otherSecret, err := NewAccessGate("admin", otherHash, "another-secret")
	require.NoError(t, err)
	otherUser, err := NewAccessGate("root", otherHash, testSecret)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "admin", "role": "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	wrongRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin", "role": "viewer"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)

	assert.True(t, gate.Authorize(valid))
	assert.True(t, gate.Authorize(valid), "tokens do not expire or get consumed")
	assert.False(t, gate.Authorize(""))
	assert.False(t, gate.Authorize("garbage"))
	assert.False(t, gate.Authorize(valid+"x"))
	assert.False(t, otherSecret.Authorize(valid))
	assert.False(t, otherUser.Authorize(valid))
	assert.False(t, gate.Authorize(unsigned))
	assert.False(t, gate.Authorize(wrongRole))
}

func TestNewAccessGate_Invalid(t *testing.T) {
	hash, err := HashPassword("password", bcrypt.MinCost)
	require.NoError(t, err)

	_, err = NewAccessGate("", hash, "s")
	assert.Error(t, err)
	_, err = NewAccessGate("admin", []byte("not-a-hash"), "s")
	assert.Error(t, err)
	_, err = NewAccessGate("admin", hash, "")
	assert.Error(t, err)

	_, err = HashPassword(strings.Repeat("x", 73), bcrypt.MinCost)
	assert.Error(t, err)
}
