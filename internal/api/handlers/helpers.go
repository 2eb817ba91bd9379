package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/isdelr/discordin/internal/auth"
	"github.com/isdelr/discordin/internal/display"
	"github.com/isdelr/discordin/internal/web"
	"github.com/rs/zerolog/log"
)

const (
	internalErrorMessage = "Something went wrong on our side. Please try again later."
	// SessionExpiredMessage is shown when the session names a member that no longer exists.
	SessionExpiredMessage = "Your session has expired. Please log in again."
)

// expireSession logs out a visitor whose account is gone.
func expireSession(w http.ResponseWriter, r *http.Request, sessions *auth.SessionManager) {
	sessions.ClearCookie(w)
	redirectWithError(w, r, "/login", SessionExpiredMessage)
}

// redirectWithError sends the visitor back to page with msg shown as an error.
func redirectWithError(w http.ResponseWriter, r *http.Request, page, msg string) {
	http.Redirect(w, r, page+"?errorMessage="+url.QueryEscape(msg), http.StatusSeeOther)
}

// localPath returns target when it is a path on this site, fallback otherwise.
func localPath(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return target
}

func pageState(r *http.Request) display.State {
	pseudo, _ := auth.PseudoFrom(r.Context())
	return display.State{
		Pseudo:          pseudo,
		CookiesAccepted: auth.CookiesAccepted(r.Context()),
		Page:            r.URL.Path,
	}
}

func renderPage(w http.ResponseWriter, r *http.Request, renderer *web.Renderer, name string, page web.Page) {
	page.State = pageState(r)
	if page.ErrorMessage == "" {
		page.ErrorMessage = r.URL.Query().Get("errorMessage")
	}
	if err := renderer.Render(w, name, page); err != nil {
		log.Error().Err(err).Str("page", name).Msg("Failed to render page")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// sentence capitalizes msg and ends it with a period.
func sentence(msg string) string {
	if msg == "" {
		return msg
	}
	r, size := utf8.DecodeRuneInString(msg)
	msg = string(unicode.ToUpper(r)) + msg[size:]
	if !strings.HasSuffix(msg, ".") {
		msg += "."
	}
	return msg
}
