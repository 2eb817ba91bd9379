package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/discordin/internal/auth"
	"github.com/isdelr/discordin/internal/models"
	"github.com/isdelr/discordin/internal/services"
	"github.com/isdelr/discordin/internal/web"
	"github.com/rs/zerolog/log"
)

// UserHandler handles login, registration and member pages.
type UserHandler struct {
	service  services.UserServiceProvider
	sessions *auth.SessionManager
	renderer *web.Renderer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, sessions *auth.SessionManager, renderer *web.Renderer) *UserHandler {
	return &UserHandler{service: service, sessions: sessions, renderer: renderer}
}

// LoginPage renders the login form.
func (h *UserHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, web.PageLogin, web.Page{Title: "Log in"})
}

// Login checks the posted credentials and opens a session.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/login", "The form could not be read. Please try again.")
		return
	}
	pseudo := r.PostFormValue("pseudo")
	password := r.PostFormValue("password")

	user, err := h.service.Authenticate(r.Context(), pseudo, password)
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		redirectWithError(w, r, "/login", fmt.Sprintf("No user named %q exists.", pseudo))
		return
	case errors.Is(err, services.ErrInvalidPassword):
		log.Warn().Str("pseudo", pseudo).Msg("Failed authentication attempt")
		redirectWithError(w, r, "/login", "The password entered is incorrect. Please try again.")
		return
	case err != nil:
		log.Error().Err(err).Str("pseudo", pseudo).Msg("Failed to authenticate user")
		redirectWithError(w, r, "/login", internalErrorMessage)
		return
	}

	h.openSession(w, r, user.Pseudo, "/login")
}

// RegisterPage renders the registration form.
func (h *UserHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, r, h.renderer, web.PageRegister, web.Page{Title: "Register"})
}

// Register creates the account and logs the new member in.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/register", "The form could not be read. Please try again.")
		return
	}
	input := services.RegisterInput{
		Pseudo:    r.PostFormValue("pseudo"),
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		BirthDate: r.PostFormValue("birth_date"),
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			redirectWithError(w, r, "/register", sentence(verr.Message))
		case errors.Is(err, services.ErrTooYoung):
			redirectWithError(w, r, "/register", "You are too young to register on DiscordIn.")
		case errors.Is(err, services.ErrPseudoTaken):
			redirectWithError(w, r, "/register", fmt.Sprintf("A user named %q already exists. Please choose another one.", input.Pseudo))
		case errors.Is(err, services.ErrEmailTaken):
			redirectWithError(w, r, "/register", fmt.Sprintf("An account already uses the email %q.", input.Email))
		default:
			log.Error().Err(err).Str("pseudo", input.Pseudo).Msg("Failed to register user")
			redirectWithError(w, r, "/register", internalErrorMessage)
		}
		return
	}

	log.Info().Str("pseudo", user.Pseudo).Msg("User registered")
	h.openSession(w, r, user.Pseudo, "/register")
}

func (h *UserHandler) openSession(w http.ResponseWriter, r *http.Request, pseudo, formPage string) {
	if err := h.sessions.SetCookie(w, pseudo); err != nil {
		log.Error().Err(err).Str("pseudo", pseudo).Msg("Failed to open session")
		redirectWithError(w, r, formPage, internalErrorMessage)
		return
	}
	http.Redirect(w, r, "/welcome", http.StatusSeeOther)
}

// Logout closes the session and redirects to redirectTo.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	http.Redirect(w, r, localPath(r.URL.Query().Get("redirectTo"), "/welcome"), http.StatusSeeOther)
}

// Show renders the public page of a member.
func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
	pseudo := chi.URLParam(r, "pseudo")

	user, err := h.service.GetUserByPseudo(r.Context(), pseudo)
	if errors.Is(err, services.ErrUserNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("pseudo", pseudo).Msg("Failed to retrieve user")
		http.Error(w, "Failed to retrieve user", http.StatusInternalServerError)
		return
	}
	user.PasswordHash = ""

	view := web.UserView{User: user}
	if viewer, ok := auth.PseudoFrom(r.Context()); ok {
		view.IsSelf = viewer == user.Pseudo
		if !view.IsSelf {
			if me, err := h.service.GetUserByPseudo(r.Context(), viewer); err == nil {
				view.IsFriend = me.HasFriend(user.Pseudo)
			}
		}
	}

	renderPage(w, r, h.renderer, web.PageUser, web.Page{Title: user.Pseudo, Data: view})
}

// AddFriend adds the member of the page to the viewer's friends.
func (h *UserHandler) AddFriend(w http.ResponseWriter, r *http.Request) {
	h.changeFriend(w, r, h.service.AddFriend)
}

// RemoveFriend removes the member of the page from the viewer's friends.
func (h *UserHandler) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	h.changeFriend(w, r, h.service.RemoveFriend)
}

func (h *UserHandler) changeFriend(w http.ResponseWriter, r *http.Request, change func(ctx context.Context, pseudo, friend string) error) {
	viewer, _ := auth.PseudoFrom(r.Context())
	friend := chi.URLParam(r, "pseudo")
	page := "/users/" + url.PathEscape(friend)

	err := change(r.Context(), viewer, friend)
	var verr *services.ValidationError
	switch {
	case err == nil:
		http.Redirect(w, r, page, http.StatusSeeOther)
	case errors.As(err, &verr):
		redirectWithError(w, r, page, sentence(verr.Message))
	case errors.Is(err, services.ErrUserNotFound):
		if _, lookupErr := h.service.GetUserByPseudo(r.Context(), viewer); errors.Is(lookupErr, services.ErrUserNotFound) {
			expireSession(w, r, h.sessions)
			return
		}
		http.NotFound(w, r)
	default:
		log.Error().Err(err).Str("pseudo", viewer).Str("friend", friend).Msg("Failed to update friends")
		redirectWithError(w, r, page, internalErrorMessage)
	}
}

// AccountPage renders the account settings of the logged in member.
func (h *UserHandler) AccountPage(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())

	user, err := h.service.GetUserByPseudo(r.Context(), pseudo)
	if errors.Is(err, services.ErrUserNotFound) {
		expireSession(w, r, h.sessions)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("pseudo", pseudo).Msg("Failed to retrieve user")
		http.Error(w, "Failed to retrieve user", http.StatusInternalServerError)
		return
	}

	view := web.AccountView{Email: user.Email, BirthDate: user.BirthDate.Format(services.BirthDateLayout)}
	renderPage(w, r, h.renderer, web.PageAccount, web.Page{Title: "My account", Data: view})
}

// UpdateAccount changes the email, password or birth date of the logged in
// member. Empty fields are left unchanged.
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/account", "The form could not be read. Please try again.")
		return
	}

	var update models.UserUpdate
	if email := r.PostFormValue("email"); email != "" {
		update.Email = &email
	}
	if password := r.PostFormValue("password"); password != "" {
		update.Password = &password
	}
	if birthDate := r.PostFormValue("birth_date"); birthDate != "" {
		d, err := services.ParseBirthDate(birthDate)
		if err != nil {
			redirectWithError(w, r, "/account", "The birth date must be formatted as YYYY-MM-DD.")
			return
		}
		update.BirthDate = &d
	}

	_, err := h.service.UpdateUser(r.Context(), pseudo, update)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			redirectWithError(w, r, "/account", sentence(verr.Message))
		case errors.Is(err, services.ErrTooYoung):
			redirectWithError(w, r, "/account", "You would be too young to use DiscordIn.")
		case errors.Is(err, services.ErrEmailTaken):
			redirectWithError(w, r, "/account", fmt.Sprintf("An account already uses the email %q.", *update.Email))
		case errors.Is(err, services.ErrUserNotFound):
			expireSession(w, r, h.sessions)
		default:
			log.Error().Err(err).Str("pseudo", pseudo).Msg("Failed to update account")
			redirectWithError(w, r, "/account", internalErrorMessage)
		}
		return
	}

	log.Info().Str("pseudo", pseudo).Msg("Account updated")
	http.Redirect(w, r, "/users/"+url.PathEscape(pseudo), http.StatusSeeOther)
}

// Get returns the public JSON representation of a member.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	pseudo := chi.URLParam(r, "pseudo")

	user, err := h.service.GetUserByPseudo(r.Context(), pseudo)
	if errors.Is(err, services.ErrUserNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("pseudo", pseudo).Msg("Failed to retrieve user")
		http.Error(w, "Failed to retrieve user", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
