// Package session turns reader intents into page state and progress writes.
package session

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yuanying/epubterm/internal/book"
	"github.com/yuanying/epubterm/internal/paginate"
	"github.com/yuanying/epubterm/internal/progress"
)

// Intent is a user action.
type Intent int

const (
	NextPage Intent = iota
	PrevPage
	ScrollUp
	ScrollDown
	ShowETA
	ShowMetadata
	Quit
)

func (i Intent) String() string {
	switch i {
	case NextPage:
		return "next-page"
	case PrevPage:
		return "prev-page"
	case ScrollUp:
		return "scroll-up"
	case ScrollDown:
		return "scroll-down"
	case ShowETA:
		return "show-eta"
	case ShowMetadata:
		return "show-metadata"
	case Quit:
		return "quit"
	default:
		return fmt.Sprintf("intent(%d)", int(i))
	}
}

// Overlay is a panel drawn instead of the page text.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayETA
	OverlayMetadata
)

// Options configures a Controller.
type Options struct {
	Viewport paginate.Viewport
	// WPM overrides the rate saved with the book when positive.
	WPM          int
	ProgressFile string
	Logger       *zap.Logger
}

// Result reports what a Dispatch did.
type Result struct {
	PageChanged bool
	Quit        bool
	// Warning is set when the progress file could not be written. The
	// session keeps going; the next page turn tries again.
	Warning error
}

// Controller owns the reading state of one book. It is not safe for
// concurrent use.
type Controller struct {
	book     *book.Book
	progress progress.Progress
	path     string
	wpm      int
	log      *zap.Logger

	vp      paginate.Viewport
	pages   []paginate.Page
	page    int
	scroll  int
	overlay Overlay
	closed  bool
}

// New paginates b for opts.Viewport and restores the saved page, clamped
// to the last page.
func New(b *book.Book, store progress.Progress, opts Options) *Controller {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	c := &Controller{
		book:     b,
		progress: store,
		path:     opts.ProgressFile,
		wpm:      opts.WPM,
		log:      log,
		vp:       opts.Viewport.Clamp(),
	}
	c.pages = paginate.Paginate(b, c.vp)

	if rec, ok := store.Record(b.ID); ok {
		c.page = min(rec.LastPage, len(c.pages)-1)
		if c.wpm <= 0 {
			c.wpm = rec.WPM
		}
		log.Debug("Restored position",
			zap.String("book", b.ID),
			zap.Int("saved", rec.LastPage),
			zap.Int("page", c.page))
	}
	if c.wpm <= 0 {
		c.wpm = paginate.DefaultWPM
	}
	return c
}

// Dispatch applies one intent.
func (c *Controller) Dispatch(intent Intent) Result {
	switch intent {
	case NextPage:
		return c.turn(c.page + 1)
	case PrevPage:
		return c.turn(c.page - 1)
	case ScrollDown:
		if c.scroll < len(c.current().Lines)-1 {
			c.scroll++
		}
	case ScrollUp:
		if c.scroll > 0 {
			c.scroll--
		}
	case ShowETA:
		c.toggle(OverlayETA)
	case ShowMetadata:
		c.toggle(OverlayMetadata)
	case Quit:
		return Result{Quit: true}
	}
	return Result{}
}

func (c *Controller) toggle(o Overlay) {
	if c.overlay == o {
		c.overlay = OverlayNone
		return
	}
	c.overlay = o
}

func (c *Controller) turn(page int) Result {
	if page < 0 || page >= len(c.pages) || page == c.page {
		return Result{}
	}
	c.page = page
	c.scroll = 0
	c.overlay = OverlayNone
	return Result{PageChanged: true, Warning: c.save()}
}

func (c *Controller) save() error {
	c.progress = c.progress.Set(c.book.ID, c.page, c.wpm)
	if c.path == "" {
		return nil
	}
	if err := c.progress.Save(c.path); err != nil {
		c.log.Warn("Unable to save progress", zap.String("file", c.path), zap.Error(err))
		return err
	}
	return nil
}

// Resize re-paginates for vp and keeps the first character of the current
// page visible: the new page is the one containing its text offset.
func (c *Controller) Resize(vp paginate.Viewport) {
	vp = vp.Clamp()
	if vp == c.vp {
		return
	}
	offset := c.current().StartOffset
	c.vp = vp
	c.pages = paginate.Paginate(c.book, vp)
	c.page = paginate.PageForOffset(c.pages, offset)
	c.scroll = 0
	c.log.Debug("Resized",
		zap.Int("width", vp.Width),
		zap.Int("height", vp.Height),
		zap.Int("offset", offset),
		zap.Int("page", c.page))
}

// Close saves the current page once more and releases the book. It may be
// called more than once.
func (c *Controller) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return multierr.Append(c.save(), c.book.Close())
}

func (c *Controller) current() paginate.Page {
	return c.pages[c.page]
}

// Page returns the current page index.
func (c *Controller) Page() int { return c.page }

// PageCount returns the number of pages at the current viewport.
func (c *Controller) PageCount() int { return len(c.pages) }

// Viewport returns the current text area.
func (c *Controller) Viewport() paginate.Viewport { return c.vp }

// Scroll returns the transient line offset within the current page.
func (c *Controller) Scroll() int { return c.scroll }

// Overlay returns the active overlay.
func (c *Controller) Overlay() Overlay { return c.overlay }

// WPM returns the reading rate used for estimates and saved progress.
func (c *Controller) WPM() int { return c.wpm }

// Progress returns the current progress mapping.
func (c *Controller) Progress() progress.Progress { return c.progress }
