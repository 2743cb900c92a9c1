// Package auth verifies the storefront's signed session tokens.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/PaulBabatuyi/supportchat/internal/chat"
	"github.com/PaulBabatuyi/supportchat/internal/normalize"
)

// defaultKid names the key used when a manager is built from a single secret.
const defaultKid = "default"

// Identity is what a verified credential yields.
type Identity struct {
	SubjectID string
	Role      chat.Role
}

// IsAdmin reports whether the verified role is admin.
func (i Identity) IsAdmin() bool { return i.Role == chat.RoleAdmin }

// Claims is the JWT payload issued by the storefront: the subject is the
// user id and role is "user" or "admin".
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates JWT tokens. It holds every known key by kid
// so tokens signed before a rotation still verify.
type JWTManager struct {
	keys      map[string][]byte
	activeKid string
	duration  time.Duration
}

// NewJWTManager returns a manager backed by a single HMAC secret.
func NewJWTManager(secretKey string, duration time.Duration) *JWTManager {
	return NewJWTManagerFromKeys(map[string]string{defaultKid: secretKey}, defaultKid, duration)
}

// NewJWTManagerFromKeys returns a manager that verifies with any of keys and
// signs with activeKid. When activeKid is unknown an arbitrary key is chosen.
func NewJWTManagerFromKeys(keys map[string]string, activeKid string, duration time.Duration) *JWTManager {
	m := &JWTManager{keys: make(map[string][]byte, len(keys)), activeKid: activeKid, duration: duration}
	for kid, secret := range keys {
		m.keys[kid] = []byte(secret)
	}
	if _, ok := m.keys[m.activeKid]; !ok {
		for kid := range m.keys {
			m.activeKid = kid
			break
		}
	}
	return m
}

// GenerateToken issues a signed token for subjectID with role. The storefront
// owns issuance in production; this is used by tests and local tooling.
func (m *JWTManager) GenerateToken(subjectID string, role chat.Role) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.duration)

	claims := &Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = m.activeKid

	signed, err := token.SignedString(m.keys[m.activeKid])
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token. Every failure wraps chat.ErrAuth.
func (m *JWTManager) Verify(tokenString string) (Identity, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(tokenString, "Bearer "))
	if tokenString == "" {
		return Identity{}, fmt.Errorf("%w: empty token", chat.ErrAuth)
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, m.keyFunc, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", chat.ErrAuth, err)
	}
	if !token.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", chat.ErrAuth)
	}

	id := Identity{SubjectID: normalize.UserID(claims.Subject), Role: chat.Role(claims.Role)}
	if id.SubjectID == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", chat.ErrAuth)
	}
	if id.Role == "" {
		id.Role = chat.RoleUser
	}
	if !id.Role.Valid() {
		return Identity{}, fmt.Errorf("%w: unknown role %q", chat.ErrAuth, claims.Role)
	}
	return id, nil
}

func (m *JWTManager) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		kid = m.activeKid
	}
	key, ok := m.keys[kid]
	if !ok {
		return nil, errors.New("unknown key id")
	}
	return key, nil
}
