package provider

import (
	"errors"
	"slices"

	"github.com/Iron-Ham/homeclock/internal/widget"
)

// Scroller is the surface a Screen renders instances into.
type Scroller struct {
	Name string
}

// Screen is a minimal home screen. It satisfies widget.Presenter.
type Screen struct {
	scroller   *Scroller
	hidden     bool
	foreground widget.Foreground
	pages      []*Page
}

// NewScreen creates a foreground screen with a visible scroller.
func NewScreen() *Screen {
	return &Screen{
		scroller:   &Scroller{Name: "lockscreen"},
		foreground: widget.ForegroundActive,
	}
}

// CurrentScroller returns the scroller, or nil when it is hidden.
func (s *Screen) CurrentScroller() widget.Surface {
	if s.hidden {
		return nil
	}
	return s.scroller
}

// SetScrollerVisible shows or hides the scroller.
func (s *Screen) SetScrollerVisible(visible bool) {
	s.hidden = !visible
}

// ForegroundState returns the window state.
func (s *Screen) ForegroundState() widget.Foreground {
	return s.foreground
}

// SetForeground changes the window state.
func (s *Screen) SetForeground(fg widget.Foreground) {
	s.foreground = fg
}

// Embed places h into the scroller.
func (s *Screen) Embed(surface widget.Surface, h widget.Handle) (widget.Page, error) {
	if h == nil {
		return nil, errors.New("nothing to embed")
	}
	if sc, ok := surface.(*Scroller); !ok || sc != s.scroller || s.hidden {
		return nil, errors.New("surface is not the current scroller")
	}
	p := &Page{screen: s, item: h}
	s.pages = append(s.pages, p)
	return p, nil
}

// Pages returns the embedded pages in embedding order.
func (s *Screen) Pages() []*Page {
	return slices.Clone(s.pages)
}

// Page is an embedded instance. It satisfies widget.Page.
type Page struct {
	screen *Screen
	item   widget.Handle
}

// Item returns the embedded instance.
func (p *Page) Item() widget.Handle {
	return p.item
}

// Destroy removes the page and releases its instance.
func (p *Page) Destroy() {
	if p.screen == nil {
		return
	}
	p.screen.pages = slices.DeleteFunc(p.screen.pages, func(q *Page) bool { return q == p })
	p.screen = nil
	p.item.Destroy()
}
