package display

import (
	"fmt"
	"io"
	"strings"
)

// UnknownDisplayError is returned when a page asks for a display it does not own.
type UnknownDisplayError struct {
	Key  string
	Page string
}

func (e *UnknownDisplayError) Error() string {
	return fmt.Sprintf("no display %q registered on page %s", e.Key, e.Page)
}

// Placeholder is the set of displays available on one page.
type Placeholder struct {
	page     string
	displays []Display
	banner   Display
}

// NewPlaceholder creates the placeholder of page. A CookieDisplay among
// displays becomes the page banner.
func NewPlaceholder(page string, displays ...Display) *Placeholder {
	p := &Placeholder{page: page, displays: displays}
	for _, d := range displays {
		if d.Key() == CookieKey {
			p.banner = d
			break
		}
	}
	return p
}

// Lookup returns the first display whose key equals key, ignoring case.
func (p *Placeholder) Lookup(key string) (Display, error) {
	for _, d := range p.displays {
		if strings.EqualFold(d.Key(), key) {
			return d, nil
		}
	}
	return nil, &UnknownDisplayError{Key: key, Page: p.page}
}

// Display renders the display registered under key.
func (p *Placeholder) Display(w io.Writer, key string, s State) error {
	d, err := p.Lookup(key)
	if err != nil {
		return err
	}
	return Render(w, d, s)
}

// Banner renders the cookie banner until the visitor accepts cookies.
func (p *Placeholder) Banner(w io.Writer, s State) error {
	if s.CookiesAccepted || p.banner == nil {
		return nil
	}
	if s.Page == "" {
		s.Page = p.page
	}
	return Render(w, p.banner, s)
}
