package services

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const adminRole = "admin"

// bcrypt ignores input past 72 bytes; longer passwords are rejected so the
// match stays exact.
const maxPasswordLen = 72

// Authorizer decides whether a session token may mutate report status.
type Authorizer interface {
	Authorize(token string) bool
}

// AccessGate checks the single static admin credential pair and issues
// signed session tokens. Tokens carry no expiry.
type AccessGate struct {
	username     string
	passwordHash []byte
	secret       []byte
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// HashPassword returns the bcrypt hash of password at the given cost.
func HashPassword(password string, cost int) ([]byte, error) {
	if len(password) > maxPasswordLen {
		return nil, fmt.Errorf("admin password longer than %d bytes", maxPasswordLen)
	}
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// NewAccessGate creates a gate for username whose password matches
// passwordHash. secret signs the issued tokens.
func NewAccessGate(username string, passwordHash []byte, secret string) (*AccessGate, error) {
	if username == "" {
		return nil, fmt.Errorf("admin username is empty")
	}
	if _, err := bcrypt.Cost(passwordHash); err != nil {
		return nil, fmt.Errorf("invalid admin password hash: %w", err)
	}
	if secret == "" {
		return nil, fmt.Errorf("session secret is empty")
	}
	return &AccessGate{username: username, passwordHash: passwordHash, secret: []byte(secret)}, nil
}

// Authenticate returns a session token when username and password match the
// configured pair exactly.
func (g *AccessGate) Authenticate(username, password string) (string, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.username)) == 1
	passOK := len(password) <= maxPasswordLen &&
		bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password)) == nil
	if !userOK || !passOK {
		return "", fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  g.username,
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	})

	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Authorize reports whether token is a session token this gate issued.
func (g *AccessGate) Authorize(token string) bool {
	if token == "" {
		return false
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return false
	}

	return claims.Role == adminRole && claims.Subject == g.username
}
