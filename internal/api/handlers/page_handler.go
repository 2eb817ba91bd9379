package handlers

import (
	"net/http"
	"time"

	"github.com/isdelr/discordin/internal/auth"
	"github.com/isdelr/discordin/internal/web"
)

const cookieConsentMaxAge = 365 * 24 * time.Hour

// PageHandler serves the informational pages.
type PageHandler struct {
	renderer *web.Renderer
	secure   bool
}

// NewPageHandler creates a new PageHandler.
func NewPageHandler(renderer *web.Renderer, secure bool) *PageHandler {
	return &PageHandler{renderer: renderer, secure: secure}
}

// Index renders the landing page.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, web.PageIndex, web.Page{Title: "Home"})
}

// Welcome renders the welcome page and its greeting.
func (h *PageHandler) Welcome(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, web.PageWelcome, web.Page{Title: "Welcome!"})
}

// AcceptCookies records the visitor's consent and sends them back where they were.
func (h *PageHandler) AcceptCookies(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookiesAcceptedCookie,
		Value:    "true",
		Path:     "/",
		MaxAge:   int(cookieConsentMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, localPath(r.URL.Query().Get("redirection"), "/"), http.StatusSeeOther)
}
