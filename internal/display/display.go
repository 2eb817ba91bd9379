// Package display renders the dynamic fragments of a page. Each fragment is
// a Display with one rendering for logged in members and one for visitors;
// a page owns a Placeholder that looks displays up by key.
package display

import (
	"fmt"
	"html/template"
	"io"
)

// State is what a display needs to know about the current visitor.
type State struct {
	Pseudo          string
	CookiesAccepted bool
	// Page is the path the visitor is on, used to come back after a redirect.
	Page string
	// Data holds page specific values such as the profile being viewed.
	Data any
}

// LoggedIn reports whether the visitor carries a valid session.
func (s State) LoggedIn() bool {
	return s.Pseudo != ""
}

// Display is a keyed fragment with a rendering per login state.
type Display interface {
	Key() string
	Logged(w io.Writer, s State) error
	NotLogged(w io.Writer, s State) error
}

// Render writes the branch of d matching the visitor's login state.
func Render(w io.Writer, d Display, s State) error {
	if s.LoggedIn() {
		return d.Logged(w, s)
	}
	return d.NotLogged(w, s)
}

// TemplateDisplay renders two named templates of a shared set.
type TemplateDisplay struct {
	key       string
	tmpl      *template.Template
	logged    string
	notLogged string
}

// NewTemplateDisplay creates a display executing the logged template for
// members and the notLogged template for visitors.
func NewTemplateDisplay(key string, tmpl *template.Template, logged, notLogged string) *TemplateDisplay {
	return &TemplateDisplay{key: key, tmpl: tmpl, logged: logged, notLogged: notLogged}
}

func (d *TemplateDisplay) Key() string { return d.key }

func (d *TemplateDisplay) Logged(w io.Writer, s State) error {
	return d.execute(w, d.logged, s)
}

func (d *TemplateDisplay) NotLogged(w io.Writer, s State) error {
	return d.execute(w, d.notLogged, s)
}

func (d *TemplateDisplay) execute(w io.Writer, name string, s State) error {
	if err := d.tmpl.ExecuteTemplate(w, name, s); err != nil {
		return fmt.Errorf("display %s: %w", d.key, err)
	}
	return nil
}
