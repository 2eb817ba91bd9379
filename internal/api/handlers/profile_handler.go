package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/isdelr/discordin/internal/auth"
	"github.com/isdelr/discordin/internal/models"
	"github.com/isdelr/discordin/internal/services"
	"github.com/isdelr/discordin/internal/web"
	"github.com/rs/zerolog/log"
)

// ProfileHandler handles the profile edition form of the logged in member.
type ProfileHandler struct {
	service  services.ProfileServiceProvider
	sessions *auth.SessionManager
	renderer *web.Renderer
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(service services.ProfileServiceProvider, sessions *auth.SessionManager, renderer *web.Renderer) *ProfileHandler {
	return &ProfileHandler{service: service, sessions: sessions, renderer: renderer}
}

// Edit renders the form filled with the current profile.
func (h *ProfileHandler) Edit(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())

	profile, err := h.service.GetProfile(r.Context(), pseudo)
	if err != nil {
		log.Error().Err(err).Str("pseudo", pseudo).Msg("Failed to retrieve profile")
		http.Error(w, "Failed to retrieve profile", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		profile = &models.Profile{Pseudo: pseudo}
	}

	renderPage(w, r, h.renderer, web.PageProfileEdit, web.Page{Title: "Edit my profile", Data: profile})
}

// Save creates or updates the profile from the posted form.
func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/profile/edit", "The form could not be read. Please try again.")
		return
	}

	profile := models.Profile{
		Pseudo:            pseudo,
		Name:              r.PostFormValue("name"),
		Surname:           r.PostFormValue("surname"),
		Description:       r.PostFormValue("description"),
		Qualities:         r.PostFormValue("qualities"),
		Defects:           r.PostFormValue("defects"),
		ProfessionalEmail: r.PostFormValue("professional_email"),
		Phone:             r.PostFormValue("phone"),
		Availability:      r.PostFormValue("availability"),
	}

	_, err := h.service.SaveProfile(r.Context(), profile)
	var verr *services.ValidationError
	switch {
	case err == nil:
		http.Redirect(w, r, "/users/"+url.PathEscape(pseudo), http.StatusSeeOther)
	case errors.As(err, &verr):
		redirectWithError(w, r, "/profile/edit", sentence(verr.Field+": "+verr.Message))
	case errors.Is(err, services.ErrUserNotFound):
		expireSession(w, r, h.sessions)
	default:
		log.Error().Err(err).Str("pseudo", pseudo).Msg("Failed to save profile")
		redirectWithError(w, r, "/profile/edit", internalErrorMessage)
	}
}
