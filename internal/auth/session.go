package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie carries the signed pseudo of the logged in member.
const SessionCookie = "pseudo"

// CookiesAcceptedCookie records that the visitor accepted the cookie banner.
const CookiesAcceptedCookie = "cookies_accepted"

// ErrInvalidSession is returned for tokens that are malformed, expired or badly signed.
var ErrInvalidSession = errors.New("invalid session")

// Claims defines the JWT claims structure.
type Claims struct {
	Pseudo string `json:"pseudo"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies session cookies.
type SessionManager struct {
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessionManager creates a SessionManager signing tokens with secret.
// Cookies are marked Secure when secure is true.
func NewSessionManager(secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		key:    []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

// Issue creates a signed token for pseudo.
func (m *SessionManager) Issue(pseudo string) (string, error) {
	now := m.now()
	claims := &Claims{
		Pseudo: pseudo,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   pseudo,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.key)
}

// Parse validates a token and returns the pseudo it carries.
func (m *SessionManager) Parse(tokenStr string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !token.Valid || claims.Pseudo == "" {
		return "", ErrInvalidSession
	}
	return claims.Pseudo, nil
}

// SetCookie logs pseudo in by writing the session cookie.
func (m *SessionManager) SetCookie(w http.ResponseWriter, pseudo string) error {
	token, err := m.Issue(pseudo)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  m.now().Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie logs the visitor out.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
