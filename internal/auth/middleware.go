package auth

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	pseudoKey          = contextKey("pseudo")
	cookiesAcceptedKey = contextKey("cookiesAccepted")
)

// LoginRequiredMessage is shown on the login page when a guarded page is visited anonymously.
const LoginRequiredMessage = "You must be logged in to access this page."

// Middleware reads the session and cookie consent cookies into the request
// context. An invalid session cookie is cleared and the visitor treated as anonymous.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
			pseudo, err := m.Parse(cookie.Value)
			if err != nil {
				log.Debug().Err(err).Msg("Discarding invalid session cookie")
				m.ClearCookie(w)
			} else {
				ctx = context.WithValue(ctx, pseudoKey, pseudo)
			}
		}

		if cookie, err := r.Cookie(CookiesAcceptedCookie); err == nil && cookie.Value == "true" {
			ctx = context.WithValue(ctx, cookiesAcceptedKey, true)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLogin redirects anonymous visitors to the login page.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PseudoFrom(r.Context()); !ok {
			http.Redirect(w, r, "/login?errorMessage="+url.QueryEscape(LoginRequiredMessage), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PseudoFrom returns the pseudo of the logged in member, if any.
func PseudoFrom(ctx context.Context) (string, bool) {
	pseudo, ok := ctx.Value(pseudoKey).(string)
	return pseudo, ok && pseudo != ""
}

// CookiesAccepted reports whether the visitor accepted cookies.
func CookiesAccepted(ctx context.Context) bool {
	accepted, _ := ctx.Value(cookiesAcceptedKey).(bool)
	return accepted
}

// WithPseudo returns a copy of ctx carrying pseudo as the logged in member.
func WithPseudo(ctx context.Context, pseudo string) context.Context {
	return context.WithValue(ctx, pseudoKey, pseudo)
}
