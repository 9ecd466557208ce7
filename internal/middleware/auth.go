// Package middleware содержит HTTP middleware панели управления счетами.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/invoices-dashboard/internal/model"
)

type contextKey string

const sessionKey contextKey = "session"

// Пути, которыми управляет Authorize.
const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

const sessionCookieName = "session"

// Session содержит данные аутентифицированного пользователя из cookie.
type Session struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Decision описывает результат проверки доступа к пути.
type Decision struct {
	Allow    bool
	Redirect string
}

// Authorize решает, можно ли открыть path с данной сессией.
// Раздел /dashboard без сессии перенаправляет на вход,
// страница входа с сессией перенаправляет в раздел.
func Authorize(sess *Session, path string) Decision {
	switch {
	case sess == nil && isProtected(path):
		return Decision{Redirect: LoginPath}
	case sess != nil && path == LoginPath:
		return Decision{Redirect: DashboardPath}
	default:
		return Decision{Allow: true}
	}
}

func isProtected(path string) bool {
	return path == DashboardPath || strings.HasPrefix(path, DashboardPath+"/")
}

// SessionManager выдаёт и проверяет сессионные cookie с подписанным JWT.
type SessionManager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewSessionManager создаёт SessionManager. При пустом secret используется случайный ключ,
// и сессии не переживают перезапуск процесса.
func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &SessionManager{
		secretKey: key,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Issue устанавливает cookie сессии для пользователя u.
func (m *SessionManager) Issue(w http.ResponseWriter, u *model.User) error {
	now := m.now()
	expires := now.Add(m.ttl)

	claims := sessionClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secretKey)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear удаляет cookie сессии.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *SessionManager) parse(raw string) (*Session, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	if !token.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, errors.New("invalid session")
	}

	return &Session{
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Middleware добавляет сессию в контекст запроса, если cookie действителен.
// Запросы без сессии пропускаются дальше, решение принимает Gate.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := m.parse(cookie.Value)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Gate применяет Authorize к каждому запросу.
func (m *SessionManager) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := SessionFromContext(r.Context())

		d := Authorize(sess, r.URL.Path)
		if !d.Allow {
			http.Redirect(w, r, d.Redirect, http.StatusFound)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SessionFromContext извлекает сессию из контекста запроса.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*Session)
	return sess, ok && sess != nil
}
