package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// TTL is the credential lifetime from issue to expiry.
const TTL = time.Hour

// Claims are the decoded contents of a session credential.
type Claims struct {
	Subject   string
	Name      string
	IssuedAt  int64
	ExpiresAt int64
}

// Manager issues and validates the session credential. The credential is a
// transport convenience signed with a fixed shared secret, not a security
// boundary.
type Manager struct {
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

// NewManager creates a Manager around the shared signing secret.
func NewManager(secret string) *Manager {
	if secret == "" {
		panic("session.NewManager: empty secret")
	}
	return &Manager{
		secret: []byte(secret),
		// Expiry is checked by Valid, not at parse time, so expired
		// credentials still decode.
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation()),
		now:    time.Now,
	}
}

// Issue encodes the user identity into a credential that expires in TTL.
func (m *Manager) Issue(email, name string) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"sub":  email,
		"name": name,
		"iat":  now.Unix(),
		"exp":  now.Add(TTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse decodes a credential. It returns nil for anything malformed and
// never panics; expiry is not checked here.
func (m *Manager) Parse(credential string) *Claims {
	if credential == "" {
		return nil
	}
	token, err := m.parser.Parse(credential, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}
	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil
	}
	claims := &Claims{Subject: sub}
	claims.Name, _ = mc["name"].(string)
	if v, ok := mc["iat"].(float64); ok {
		claims.IssuedAt = int64(v)
	}
	if v, ok := mc["exp"].(float64); ok {
		claims.ExpiresAt = int64(v)
	}
	return claims
}

// Valid reports whether the credential is present, parseable, and unexpired.
func (m *Manager) Valid(credential string) bool {
	claims := m.Parse(credential)
	return claims != nil && claims.ExpiresAt > m.now().Unix()
}
