package display

import (
	"html/template"
	"io"
)

// CookieKey is the key of the cookie consent banner.
const CookieKey = "accept_cookies"

// CookieDisplay renders the cookie consent banner. Both login states get the
// same banner.
type CookieDisplay struct {
	tmpl *template.Template
	name string
}

// NewCookieDisplay creates the banner display from the named template.
func NewCookieDisplay(tmpl *template.Template, name string) *CookieDisplay {
	return &CookieDisplay{tmpl: tmpl, name: name}
}

func (d *CookieDisplay) Key() string { return CookieKey }

func (d *CookieDisplay) Logged(w io.Writer, s State) error {
	return d.NotLogged(w, s)
}

func (d *CookieDisplay) NotLogged(w io.Writer, s State) error {
	return d.tmpl.ExecuteTemplate(w, d.name, s)
}
