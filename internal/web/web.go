// Package web holds the embedded pages and assets of the site.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/isdelr/discordin/internal/display"
	"github.com/isdelr/discordin/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names, each the name of a template.
const (
	PageIndex       = "index"
	PageWelcome     = "welcome"
	PageLogin       = "login"
	PageRegister    = "register"
	PageUser        = "user"
	PageProfileEdit = "profile_edit"
	PageAccount     = "account"
	PageBamboos     = "bamboos"
	PageBamboo      = "bamboo"
	PageBranch      = "branch"
)

// UserView is the data of the public profile page.
type UserView struct {
	User     models.User
	IsSelf   bool
	IsFriend bool
}

// AccountView is the data of the account settings page.
type AccountView struct {
	Email     string
	BirthDate string
}

// BambooView is the data of a bamboo page.
type BambooView struct {
	Bamboo   models.Bamboo
	Branches []models.Branch
	IsMember bool
	IsOwner  bool
}

// BranchView is the data of a branch page.
type BranchView struct {
	Bamboo   models.Bamboo
	Branch   models.Branch
	Branches []models.Branch
	Messages []models.Message
	Pseudo   string
}

// Renderer executes pages with the displays registered for them.
type Renderer struct {
	templates    *template.Template
	placeholders map[string]*display.Placeholder
}

// NewRenderer parses the embedded templates and registers the displays of every page.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	navbar := display.NewTemplateDisplay("navbar", tmpl, "navbar_logged", "navbar_not_logged")
	cookies := display.NewCookieDisplay(tmpl, "cookie_banner")
	greeting := display.NewTemplateDisplay("greeting", tmpl, "greeting_logged", "greeting_not_logged")
	profileActions := display.NewTemplateDisplay("profile_actions", tmpl, "profile_actions_logged", "profile_actions_not_logged")

	r := &Renderer{templates: tmpl, placeholders: map[string]*display.Placeholder{}}
	for _, page := range []string{PageIndex, PageLogin, PageRegister, PageProfileEdit, PageAccount, PageBamboos, PageBamboo, PageBranch} {
		r.placeholders[page] = display.NewPlaceholder(page, navbar, cookies)
	}
	r.placeholders[PageWelcome] = display.NewPlaceholder(PageWelcome, navbar, greeting, cookies)
	r.placeholders[PageUser] = display.NewPlaceholder(PageUser, navbar, profileActions, cookies)
	return r, nil
}

// Page is the value every page template executes with.
type Page struct {
	Title        string
	ErrorMessage string
	State        display.State
	Data         any

	placeholder *display.Placeholder
}

// Display renders the display registered under key for this page.
func (p *Page) Display(key string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := p.placeholder.Display(&buf, key, p.State); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// CookieBanner renders the cookie consent banner when cookies were not accepted yet.
func (p *Page) CookieBanner() (template.HTML, error) {
	var buf bytes.Buffer
	if err := p.placeholder.Banner(&buf, p.State); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Blurred reports whether the page sits behind the cookie banner.
func (p *Page) Blurred() bool {
	return !p.State.CookiesAccepted
}

// Render writes page to w. Nothing is written when rendering fails.
func (r *Renderer) Render(w http.ResponseWriter, name string, page Page) error {
	placeholder, ok := r.placeholders[name]
	if !ok {
		return fmt.Errorf("unknown page %s", name)
	}
	page.placeholder = placeholder
	page.State.Data = page.Data

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, &page); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded stylesheets and scripts.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
