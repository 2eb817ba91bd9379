package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/isdelr/discordin/internal/api/handlers"
	"github.com/isdelr/discordin/internal/auth"
	"github.com/isdelr/discordin/internal/database/databasetest"
	"github.com/isdelr/discordin/internal/models"
	"github.com/isdelr/discordin/internal/services"
	"github.com/isdelr/discordin/internal/web"
	"github.com/isdelr/discordin/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSite struct {
	handler  http.Handler
	events   *services.EventService
	bamboos  *services.BambooService
	sessions *auth.SessionManager
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	db := databasetest.New(t)

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	events := services.NewEventService(db, hub)
	profiles := services.NewProfileService(db, events)
	users := services.NewUserService(db, profiles, events, 15)
	bamboos := services.NewBambooService(db, events)
	messages := services.NewMessageService(db, bamboos, hub)
	sessions := auth.NewSessionManager("test-secret", time.Hour, false)

	router := NewRouter(Dependencies{
		DB:             db,
		Hub:            hub,
		Sessions:       sessions,
		Renderer:       renderer,
		Users:          users,
		Profiles:       profiles,
		Events:         events,
		Bamboos:        bamboos,
		Messages:       messages,
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	return &testSite{handler: router, events: events, bamboos: bamboos, sessions: sessions}
}

func (s *testSite) do(t *testing.T, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testSite) get(t *testing.T, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	return s.do(t, httptest.NewRequest(http.MethodGet, target, nil), cookies...)
}

func (s *testSite) post(t *testing.T, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(t, req, cookies...)
}

func (s *testSite) register(t *testing.T, pseudo string) *http.Cookie {
	t.Helper()
	rec := s.post(t, "/register", url.Values{
		"pseudo":     {pseudo},
		"email":      {pseudo + "@example.com"},
		"password":   {"secret123"},
		"birth_date": {"2000-01-01"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/welcome", rec.Header().Get("Location"))
	return sessionCookie(t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

// redirectError returns the page and decoded error message of a redirect.
func redirectError(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	u, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return u.Path, u.Query().Get("errorMessage")
}

var accepted = &http.Cookie{Name: auth.CookiesAcceptedCookie, Value: "true"}

func TestRegisterAndWelcome(t *testing.T) {
	site := newTestSite(t)
	session := site.register(t, "alice")

	rec := site.get(t, "/welcome", session, accepted)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<span class="pseudo">alice</span>`)
	assert.Contains(t, rec.Body.String(), "Log out")

	rec = site.get(t, "/welcome", accepted)
	assert.Contains(t, rec.Body.String(), "Feel free to log in")
}

func TestRegisterErrors(t *testing.T) {
	site := newTestSite(t)
	site.register(t, "alice")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{
			name: "duplicate pseudo",
			form: url.Values{"pseudo": {"alice"}, "email": {"other@example.com"}, "password": {"secret123"}, "birth_date": {"2000-01-01"}},
			want: `A user named "alice" already exists. Please choose another one.`,
		},
		{
			name: "duplicate email",
			form: url.Values{"pseudo": {"bob"}, "email": {"alice@example.com"}, "password": {"secret123"}, "birth_date": {"2000-01-01"}},
			want: `An account already uses the email "alice@example.com".`,
		},
		{
			name: "too young",
			form: url.Values{"pseudo": {"kid"}, "email": {"kid@example.com"}, "password": {"secret123"}, "birth_date": {time.Now().AddDate(-10, 0, 0).Format("2006-01-02")}},
			want: "You are too young to register on DiscordIn.",
		},
		{
			name: "invalid email",
			form: url.Values{"pseudo": {"bob"}, "email": {"bob"}, "password": {"secret123"}, "birth_date": {"2000-01-01"}},
			want: "The email address format is invalid.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, msg := redirectError(t, site.post(t, "/register", tt.form))
			assert.Equal(t, "/register", page)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestLogin(t *testing.T) {
	site := newTestSite(t)
	site.register(t, "alice")

	page, msg := redirectError(t, site.post(t, "/login", url.Values{"pseudo": {"bob"}, "password": {"secret123"}}))
	assert.Equal(t, "/login", page)
	assert.Equal(t, `No user named "bob" exists.`, msg)

	_, msg = redirectError(t, site.post(t, "/login", url.Values{"pseudo": {"alice"}, "password": {"nope-nope"}}))
	assert.Equal(t, "The password entered is incorrect. Please try again.", msg)

	rec := site.post(t, "/login", url.Values{"pseudo": {"alice@example.com"}, "password": {"secret123"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/welcome", rec.Header().Get("Location"))
	assert.NotEqual(t, "alice", sessionCookie(t, rec).Value)
}

func TestLoginPageEscapesErrorMessage(t *testing.T) {
	site := newTestSite(t)

	rec := site.get(t, "/login?errorMessage="+url.QueryEscape("<b>boom</b>"), accepted)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Error: &lt;b&gt;boom&lt;/b&gt;")
}

func TestForgedSessionIsIgnored(t *testing.T) {
	site := newTestSite(t)
	site.register(t, "alice")

	rec := site.get(t, "/welcome", &http.Cookie{Name: auth.SessionCookie, Value: "alice"}, accepted)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Feel free to log in")
}

func TestLogout(t *testing.T) {
	site := newTestSite(t)
	session := site.register(t, "alice")

	rec := site.get(t, "/logout?redirectTo=/users/alice", session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/users/alice", rec.Header().Get("Location"))
	assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)

	rec = site.get(t, "/logout?redirectTo="+url.QueryEscape("https://evil.example.com"), session)
	assert.Equal(t, "/welcome", rec.Header().Get("Location"))

	rec = site.get(t, "/logout?redirectTo="+url.QueryEscape("//evil.example.com"), session)
	assert.Equal(t, "/welcome", rec.Header().Get("Location"))
}

func TestAcceptCookies(t *testing.T) {
	site := newTestSite(t)

	rec := site.get(t, "/")
	assert.Contains(t, rec.Body.String(), "cookie-container")

	rec = site.get(t, "/accept_cookies?redirection=/welcome")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/welcome", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.CookiesAcceptedCookie, cookies[0].Name)

	rec = site.get(t, "/", cookies[0])
	assert.NotContains(t, rec.Body.String(), "cookie-container")
}

func TestProfileEdit(t *testing.T) {
	site := newTestSite(t)

	page, msg := redirectError(t, site.get(t, "/profile/edit"))
	assert.Equal(t, "/login", page)
	assert.Equal(t, auth.LoginRequiredMessage, msg)

	session := site.register(t, "alice")
	rec := site.get(t, "/profile/edit", session, accepted)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="professional_email"`)

	_, msg = redirectError(t, site.post(t, "/profile/edit", url.Values{"professional_email": {"nope"}}, session))
	assert.Equal(t, "Professional email: the email address format is invalid.", msg)

	rec = site.post(t, "/profile/edit", url.Values{"name": {"Alice"}, "description": {"Curious & brave"}}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/users/alice", rec.Header().Get("Location"))

	rec = site.get(t, "/users/alice", accepted)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Curious &amp; brave")
}

func TestFriends(t *testing.T) {
	site := newTestSite(t)
	alice := site.register(t, "alice")
	site.register(t, "bob")

	rec := site.get(t, "/users/bob", alice, accepted)
	assert.Contains(t, rec.Body.String(), `action="/users/bob/friend"`)

	rec = site.post(t, "/users/bob/friend", nil, alice)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/users/bob", rec.Header().Get("Location"))

	rec = site.get(t, "/users/bob", alice, accepted)
	assert.Contains(t, rec.Body.String(), `action="/users/bob/unfriend"`)

	rec = site.get(t, "/api/v1/users/alice")
	require.Equal(t, http.StatusOK, rec.Code)
	var user models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, []string{"bob"}, user.Friends)
	assert.NotContains(t, rec.Body.String(), "alice@example.com")
	assert.NotContains(t, rec.Body.String(), "password")

	_, msg := redirectError(t, site.post(t, "/users/alice/friend", nil, alice))
	assert.Equal(t, "You cannot add yourself as a friend.", msg)

	rec = site.post(t, "/users/bob/unfriend", nil, alice)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = site.post(t, "/users/nobody/friend", nil, alice)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAccount(t *testing.T) {
	site := newTestSite(t)

	page, _ := redirectError(t, site.get(t, "/account"))
	assert.Equal(t, "/login", page)

	session := site.register(t, "alice")
	site.register(t, "bob")

	rec := site.get(t, "/account", session, accepted)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `placeholder="alice@example.com"`)

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"taken email", url.Values{"email": {"bob@example.com"}}, `An account already uses the email "bob@example.com".`},
		{"short password", url.Values{"password": {"abc"}}, "Your password must be 6 to 64 characters long."},
		{"bad birth date", url.Values{"birth_date": {"yesterday"}}, "The birth date must be formatted as YYYY-MM-DD."},
		{"too young", url.Values{"birth_date": {time.Now().AddDate(-10, 0, 0).Format("2006-01-02")}}, "You would be too young to use DiscordIn."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, msg := redirectError(t, site.post(t, "/account", tt.form, session))
			assert.Equal(t, "/account", page)
			assert.Equal(t, tt.want, msg)
		})
	}

	rec = site.post(t, "/account", url.Values{"email": {"alice@new.example.com"}, "password": {"newsecret"}}, session)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/users/alice", rec.Header().Get("Location"))

	rec = site.post(t, "/login", url.Values{"pseudo": {"alice@new.example.com"}, "password": {"newsecret"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/welcome", rec.Header().Get("Location"))
}

func TestSessionOfDeletedMember(t *testing.T) {
	site := newTestSite(t)
	site.register(t, "bob")

	token, err := site.sessions.Issue("ghost")
	require.NoError(t, err)
	ghost := &http.Cookie{Name: auth.SessionCookie, Value: token}

	requests := []struct {
		name string
		rec  func() *httptest.ResponseRecorder
	}{
		{"save profile", func() *httptest.ResponseRecorder {
			return site.post(t, "/profile/edit", url.Values{"name": {"Ghost"}}, ghost)
		}},
		{"add friend", func() *httptest.ResponseRecorder { return site.post(t, "/users/bob/friend", nil, ghost) }},
		{"account", func() *httptest.ResponseRecorder { return site.get(t, "/account", ghost) }},
		{"create bamboo", func() *httptest.ResponseRecorder {
			return site.post(t, "/bamboos", url.Values{"name": {"Haunted"}}, ghost)
		}},
	}
	for _, tt := range requests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.rec()
			page, msg := redirectError(t, rec)
			assert.Equal(t, "/login", page)
			assert.Equal(t, handlers.SessionExpiredMessage, msg)
			assert.Equal(t, -1, sessionCookie(t, rec).MaxAge)
		})
	}

	alice := site.register(t, "alice")
	assert.Equal(t, http.StatusNotFound, site.post(t, "/users/nobody/friend", nil, alice).Code)
}

// createBamboo plants a bamboo and returns its id and the id of its default branch.
func (s *testSite) createBamboo(t *testing.T, name string, owner *http.Cookie) (string, string) {
	t.Helper()
	rec := s.post(t, "/bamboos", url.Values{"name": {name}}, owner)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	id := strings.TrimPrefix(rec.Header().Get("Location"), "/bamboos/")

	branches, err := s.bamboos.ListBranches(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	return id, branches[0].ID
}

func TestBamboos(t *testing.T) {
	site := newTestSite(t)

	page, _ := redirectError(t, site.get(t, "/bamboos"))
	assert.Equal(t, "/login", page)

	alice := site.register(t, "alice")
	bob := site.register(t, "bob")

	_, msg := redirectError(t, site.post(t, "/bamboos", url.Values{"name": {"  "}}, alice))
	assert.Equal(t, "The name cannot be empty.", msg)

	id, general := site.createBamboo(t, "Gophers", alice)

	rec := site.get(t, "/bamboos", bob, accepted)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Gophers")

	rec = site.get(t, "/bamboos/"+id, bob, accepted)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/bamboos/`+id+`/join"`)

	page, msg = redirectError(t, site.get(t, "/branches/"+general, bob))
	assert.Equal(t, "/bamboos/"+id, page)
	assert.Equal(t, "Join the bamboo to take part in its branches.", msg)

	_, msg = redirectError(t, site.post(t, "/bamboos/"+id+"/branches", url.Values{"name": {"random"}}, bob))
	assert.Equal(t, "You are not allowed to do that.", msg)

	rec = site.post(t, "/bamboos/"+id+"/join", nil, bob)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/bamboos/"+id, rec.Header().Get("Location"))

	rec = site.post(t, "/branches/"+general+"/messages", url.Values{"content": {"Hello <gophers>"}}, bob)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/branches/"+general, rec.Header().Get("Location"))

	rec = site.get(t, "/branches/"+general, alice, accepted)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello &lt;gophers&gt;")

	rec = site.get(t, "/api/v1/branches/"+general+"/messages", alice)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []models.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 1)
	assert.Equal(t, "bob", messages[0].Sender)

	_, msg = redirectError(t, site.post(t, "/messages/"+messages[0].ID+"/edit", url.Values{"branch_id": {general}, "content": {"Hijacked"}}, alice))
	assert.Equal(t, "You are not allowed to do that.", msg)

	rec = site.post(t, "/messages/"+messages[0].ID+"/edit", url.Values{"branch_id": {general}, "content": {"Hello gophers"}}, bob)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/branches/"+general, rec.Header().Get("Location"))

	rec = site.post(t, "/bamboos/"+id+"/branches", url.Values{"name": {"random"}}, alice)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/branches/"))

	rec = site.post(t, "/bamboos/"+id+"/leave", nil, bob)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, http.StatusForbidden, site.get(t, "/api/v1/branches/"+general+"/messages", bob).Code)
	assert.Equal(t, http.StatusUnauthorized, site.get(t, "/api/v1/branches/"+general+"/messages").Code)

	assert.Equal(t, http.StatusNotFound, site.get(t, "/bamboos/missing", alice).Code)
	assert.Equal(t, http.StatusNotFound, site.get(t, "/branches/missing", alice).Code)
}

func TestBranchWebSocket(t *testing.T) {
	site := newTestSite(t)
	alice := site.register(t, "alice")
	bob := site.register(t, "bob")
	_, general := site.createBamboo(t, "Gophers", alice)

	assert.Equal(t, http.StatusUnauthorized, site.get(t, "/api/v1/ws/branches/"+general).Code)
	assert.Equal(t, http.StatusForbidden, site.get(t, "/api/v1/ws/branches/"+general, bob).Code)
	assert.Equal(t, http.StatusNotFound, site.get(t, "/api/v1/ws/branches/missing", alice).Code)

	server := httptest.NewServer(site.handler)
	defer server.Close()

	header := http.Header{}
	header.Set("Cookie", (&http.Cookie{Name: alice.Name, Value: alice.Value}).String())
	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/v1/ws/branches/"+general, header)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "send_message", "payload": map[string]any{"content": ""}}))
	var reply struct {
		Action  string            `json:"action"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, websocket.ActionError, reply.Action)
	assert.Equal(t, "A message cannot be empty.", reply.Payload["error"])

	require.NoError(t, conn.WriteJSON(map[string]any{"action": "send_message", "payload": map[string]any{"content": "Hello live"}}))
	var live struct {
		Action  string         `json:"action"`
		Payload models.Message `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&live))
	assert.Equal(t, websocket.ActionMessage, live.Action)
	assert.Equal(t, "Hello live", live.Payload.Content)
	assert.Equal(t, "alice", live.Payload.Sender)
}

func TestUnknownUser(t *testing.T) {
	site := newTestSite(t)

	assert.Equal(t, http.StatusNotFound, site.get(t, "/users/nobody").Code)
	assert.Equal(t, http.StatusNotFound, site.get(t, "/api/v1/users/nobody").Code)
}

func TestRecentEvents(t *testing.T) {
	site := newTestSite(t)
	site.register(t, "alice")
	site.register(t, "bob")

	rec := site.get(t, "/api/v1/events?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []models.Event
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, services.EventUserRegister, events[0].Type)
}

func TestHealth(t *testing.T) {
	site := newTestSite(t)

	rec := site.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
}

func TestStaticAssets(t *testing.T) {
	site := newTestSite(t)

	rec := site.get(t, "/static/css/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "#top-page")
}
