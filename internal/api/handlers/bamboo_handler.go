package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/discordin/internal/auth"
	"github.com/isdelr/discordin/internal/models"
	"github.com/isdelr/discordin/internal/services"
	"github.com/isdelr/discordin/internal/web"
	"github.com/rs/zerolog/log"
)

// branchHistory is the number of messages shown when a branch is opened.
const branchHistory = 100

// BambooHandler handles bamboos, their branches and messages.
type BambooHandler struct {
	bamboos  services.BambooServiceProvider
	messages services.MessageServiceProvider
	sessions *auth.SessionManager
	renderer *web.Renderer
}

// NewBambooHandler creates a new BambooHandler.
func NewBambooHandler(bamboos services.BambooServiceProvider, messages services.MessageServiceProvider, sessions *auth.SessionManager, renderer *web.Renderer) *BambooHandler {
	return &BambooHandler{bamboos: bamboos, messages: messages, sessions: sessions, renderer: renderer}
}

func bambooPage(id string) string {
	return "/bamboos/" + url.PathEscape(id)
}

func branchPage(id string) string {
	return "/branches/" + url.PathEscape(id)
}

// fail maps a service error to a response, sending form errors back to page.
func (h *BambooHandler) fail(w http.ResponseWriter, r *http.Request, page string, err error) {
	pseudo, _ := auth.PseudoFrom(r.Context())
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		redirectWithError(w, r, page, sentence(verr.Message))
	case errors.Is(err, services.ErrForbidden):
		redirectWithError(w, r, page, "You are not allowed to do that.")
	case errors.Is(err, services.ErrNotMember):
		redirectWithError(w, r, page, "Join the bamboo to take part in its branches.")
	case errors.Is(err, services.ErrBambooNotFound), errors.Is(err, services.ErrBranchNotFound), errors.Is(err, services.ErrMessageNotFound):
		http.NotFound(w, r)
	case errors.Is(err, services.ErrUserNotFound):
		expireSession(w, r, h.sessions)
	default:
		log.Error().Err(err).Str("pseudo", pseudo).Str("path", r.URL.Path).Msg("Failed to handle bamboo request")
		redirectWithError(w, r, page, internalErrorMessage)
	}
}

// List renders every bamboo and the creation form.
func (h *BambooHandler) List(w http.ResponseWriter, r *http.Request) {
	bamboos, err := h.bamboos.ListBamboos(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list bamboos")
		http.Error(w, "Failed to list bamboos", http.StatusInternalServerError)
		return
	}
	renderPage(w, r, h.renderer, web.PageBamboos, web.Page{Title: "Bamboos", Data: bamboos})
}

// Create plants a bamboo owned by the logged in member.
func (h *BambooHandler) Create(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/bamboos", "The form could not be read. Please try again.")
		return
	}

	bamboo, err := h.bamboos.CreateBamboo(r.Context(), pseudo, r.PostFormValue("name"))
	if err != nil {
		h.fail(w, r, "/bamboos", err)
		return
	}
	log.Info().Str("pseudo", pseudo).Str("bamboo_id", bamboo.ID).Msg("Bamboo created")
	http.Redirect(w, r, bambooPage(bamboo.ID), http.StatusSeeOther)
}

// Show renders a bamboo. Its branches are listed to members only.
func (h *BambooHandler) Show(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())
	id := chi.URLParam(r, "id")

	bamboo, err := h.bamboos.GetBamboo(r.Context(), id)
	if err != nil {
		h.fail(w, r, "/bamboos", err)
		return
	}
	view := web.BambooView{Bamboo: bamboo, IsMember: bamboo.IsMember(pseudo), IsOwner: bamboo.Owner == pseudo}
	if view.IsMember {
		if view.Branches, err = h.bamboos.ListBranches(r.Context(), id); err != nil {
			h.fail(w, r, "/bamboos", err)
			return
		}
	}
	renderPage(w, r, h.renderer, web.PageBamboo, web.Page{Title: bamboo.Name, Data: view})
}

// Join adds the logged in member to the bamboo.
func (h *BambooHandler) Join(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.bamboos.JoinBamboo(r.Context(), id, pseudo); err != nil {
		h.fail(w, r, bambooPage(id), err)
		return
	}
	http.Redirect(w, r, bambooPage(id), http.StatusSeeOther)
}

// Leave removes the logged in member from the bamboo.
func (h *BambooHandler) Leave(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.bamboos.LeaveBamboo(r.Context(), id, pseudo); err != nil {
		h.fail(w, r, bambooPage(id), err)
		return
	}
	http.Redirect(w, r, "/bamboos", http.StatusSeeOther)
}

// Rename changes the name of a bamboo owned by the logged in member.
func (h *BambooHandler) Rename(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, bambooPage(id), "The form could not be read. Please try again.")
		return
	}

	if _, err := h.bamboos.RenameBamboo(r.Context(), id, pseudo, r.PostFormValue("name")); err != nil {
		h.fail(w, r, bambooPage(id), err)
		return
	}
	http.Redirect(w, r, bambooPage(id), http.StatusSeeOther)
}

// CreateBranch adds a branch to a bamboo owned by the logged in member.
func (h *BambooHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, bambooPage(id), "The form could not be read. Please try again.")
		return
	}

	branch, err := h.bamboos.CreateBranch(r.Context(), id, pseudo, r.PostFormValue("name"))
	if err != nil {
		h.fail(w, r, bambooPage(id), err)
		return
	}
	http.Redirect(w, r, branchPage(branch.ID), http.StatusSeeOther)
}

// ShowBranch renders the latest messages of a branch to a member of its bamboo.
func (h *BambooHandler) ShowBranch(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())
	id := chi.URLParam(r, "id")

	branch, err := h.bamboos.GetBranch(r.Context(), id)
	if err != nil {
		h.fail(w, r, "/bamboos", err)
		return
	}
	bamboo, err := h.bamboos.GetBamboo(r.Context(), branch.BambooID)
	if err != nil {
		h.fail(w, r, "/bamboos", err)
		return
	}
	if !bamboo.IsMember(pseudo) {
		h.fail(w, r, bambooPage(bamboo.ID), services.ErrNotMember)
		return
	}

	view := web.BranchView{Bamboo: bamboo, Branch: branch, Pseudo: pseudo}
	if view.Branches, err = h.bamboos.ListBranches(r.Context(), bamboo.ID); err != nil {
		h.fail(w, r, bambooPage(bamboo.ID), err)
		return
	}
	if view.Messages, err = h.messages.GetMessages(r.Context(), pseudo, id, branchHistory); err != nil {
		h.fail(w, r, bambooPage(bamboo.ID), err)
		return
	}
	renderPage(w, r, h.renderer, web.PageBranch, web.Page{Title: bamboo.Name + " #" + branch.Name, Data: view})
}

// PostMessage sends the posted message in a branch.
func (h *BambooHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, branchPage(id), "The form could not be read. Please try again.")
		return
	}

	var replyTo *string
	if v := r.PostFormValue("reply_to"); v != "" {
		replyTo = &v
	}
	if _, err := h.messages.PostMessage(r.Context(), pseudo, id, r.PostFormValue("content"), replyTo); err != nil {
		h.fail(w, r, branchPage(id), err)
		return
	}
	http.Redirect(w, r, branchPage(id), http.StatusSeeOther)
}

// EditMessage replaces the content of a message sent by the logged in member.
func (h *BambooHandler) EditMessage(w http.ResponseWriter, r *http.Request) {
	pseudo, _ := auth.PseudoFrom(r.Context())
	id := chi.URLParam(r, "id")
	if err := r.ParseForm(); err != nil {
		redirectWithError(w, r, "/bamboos", "The form could not be read. Please try again.")
		return
	}
	back := "/bamboos"
	if branchID := r.PostFormValue("branch_id"); branchID != "" {
		back = branchPage(branchID)
	}

	message, err := h.messages.EditMessage(r.Context(), pseudo, id, r.PostFormValue("content"))
	if err != nil {
		h.fail(w, r, back, err)
		return
	}
	http.Redirect(w, r, branchPage(message.BranchID), http.StatusSeeOther)
}

// GetMessages returns the latest messages of a branch as JSON.
func (h *BambooHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	pseudo, ok := auth.PseudoFrom(r.Context())
	if !ok {
		http.Error(w, auth.LoginRequiredMessage, http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	limit := branchHistory
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= branchHistory {
			limit = n
		}
	}

	messages, err := h.messages.GetMessages(r.Context(), pseudo, id, limit)
	switch {
	case err == nil:
		if messages == nil {
			messages = []models.Message{}
		}
		writeJSON(w, http.StatusOK, messages)
	case errors.Is(err, services.ErrBranchNotFound):
		http.Error(w, "Branch not found", http.StatusNotFound)
	case errors.Is(err, services.ErrNotMember):
		http.Error(w, "Join the bamboo to read this branch", http.StatusForbidden)
	default:
		log.Error().Err(err).Str("branch_id", id).Msg("Failed to retrieve messages")
		http.Error(w, "Failed to retrieve messages", http.StatusInternalServerError)
	}
}
