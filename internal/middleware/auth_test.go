package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/invoices-dashboard/internal/model"
)

var testUser = &model.User{ID: "u-1", Email: "user@nextmail.com"}

func TestAuthorize(t *testing.T) {
	sess := &Session{UserID: "u-1"}

	tests := []struct {
		name string
		sess *Session
		path string
		want Decision
	}{
		{"anonymous dashboard", nil, "/dashboard", Decision{Redirect: "/login"}},
		{"anonymous nested", nil, "/dashboard/invoices/42", Decision{Redirect: "/login"}},
		{"anonymous login", nil, "/login", Decision{Allow: true}},
		{"anonymous lookalike", nil, "/dashboards", Decision{Allow: true}},
		{"signed in login", sess, "/login", Decision{Redirect: "/dashboard"}},
		{"signed in dashboard", sess, "/dashboard/invoices", Decision{Allow: true}},
		{"signed in other", sess, "/", Decision{Allow: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.sess, tt.path))
		})
	}
}

func issue(t *testing.T, m *SessionManager) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	require.NoError(t, m.Issue(w, testUser))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestSessionManager_IssueSetsCookie(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	c := issue(t, m)
	assert.Equal(t, "session", c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
}

func TestSessionManager_MiddlewareAttachesSession(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)
	c := issue(t, m)

	var got *Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = SessionFromContext(r.Context())
	})

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(c)
	m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

	require.NotNil(t, got)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "user@nextmail.com", got.Email)
}

func TestSessionManager_RejectsForeignOrExpiredTokens(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	foreign := issue(t, NewSessionManager("other-secret", time.Hour))

	expiredManager := NewSessionManager("test-secret", time.Hour)
	expiredManager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired := issue(t, expiredManager)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	for name, value := range map[string]string{
		"foreign": foreign.Value,
		"expired": expired.Value,
		"none":    none,
		"garbage": "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				_, ok := SessionFromContext(r.Context())
				assert.False(t, ok)
			})

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.AddCookie(&http.Cookie{Name: "session", Value: value})
			m.Middleware(next).ServeHTTP(httptest.NewRecorder(), r)

			assert.True(t, called, "middleware must not reject requests itself")
		})
	}
}

func TestGate(t *testing.T) {
	m := NewSessionManager("", time.Hour)
	c := issue(t, m)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := m.Middleware(m.Gate(ok))

	tests := []struct {
		name     string
		path     string
		cookie   *http.Cookie
		status   int
		location string
	}{
		{"anonymous protected", "/dashboard/invoices", nil, http.StatusFound, "/login"},
		{"anonymous login", "/login", nil, http.StatusOK, ""},
		{"signed in protected", "/dashboard/invoices", c, http.StatusOK, ""},
		{"signed in login", "/login", c, http.StatusFound, "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.status)
			}
			assert.Equal(t, tt.location, res.Header.Get("Location"))
		})
	}
}

func TestSessionManager_Clear(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	w := httptest.NewRecorder()
	m.Clear(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
