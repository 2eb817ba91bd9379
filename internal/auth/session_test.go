package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionManager_IssueAndParse(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour, false)

	token, err := m.Issue("alice")
	require.NoError(t, err)

	pseudo, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", pseudo)
}

func TestSessionManager_ParseRejects(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour, false)
	other := NewSessionManager("other-secret", time.Hour, false)

	forged, err := other.Issue("alice")
	require.NoError(t, err)
	_, err = m.Parse(forged)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = m.Parse("alice")
	assert.ErrorIs(t, err, ErrInvalidSession)

	issued := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issued }
	expired, err := m.Issue("alice")
	require.NoError(t, err)
	m.now = time.Now
	_, err = m.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionManager_Cookies(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour, true)

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetCookie(rec, "alice"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.NotEqual(t, "alice", cookies[0].Value)

	rec = httptest.NewRecorder()
	m.ClearCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestMiddleware(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour, false)
	token, err := m.Issue("alice")
	require.NoError(t, err)

	var gotPseudo string
	var gotLogged, gotAccepted bool
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPseudo, gotLogged = PseudoFrom(r.Context())
		gotAccepted = CookiesAccepted(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	req.AddCookie(&http.Cookie{Name: CookiesAcceptedCookie, Value: "true"})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.True(t, gotLogged)
	assert.Equal(t, "alice", gotPseudo)
	assert.True(t, gotAccepted)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "alice"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.False(t, gotLogged)
	assert.False(t, gotAccepted)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, -1, rec.Result().Cookies()[0].MaxAge)
}

func TestRequireLogin(t *testing.T) {
	called := false
	handler := RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/edit", nil))
	assert.False(t, called)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login?errorMessage=")

	req := httptest.NewRequest(http.MethodGet, "/profile/edit", nil)
	req = req.WithContext(WithPseudo(req.Context(), "alice"))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.True(t, called)
}
