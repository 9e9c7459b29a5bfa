package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/yuanying/epubterm/internal/paginate"
)

// Screen is what the terminal adapter draws: at most Viewport.Height body
// lines and one status line.
type Screen struct {
	Lines  []string
	Status string
}

// View renders the current state.
func (c *Controller) View() Screen {
	var body []string
	switch c.overlay {
	case OverlayETA:
		body = c.wrapPanel(c.etaPanel())
	case OverlayMetadata:
		body = c.wrapPanel(c.metadataPanel())
	default:
		for _, l := range c.current().Lines[c.scroll:] {
			body = append(body, l.Text)
		}
	}
	if len(body) > c.vp.Height {
		body = body[:c.vp.Height]
	}
	return Screen{Lines: body, Status: c.status()}
}

func (c *Controller) status() string {
	parts := make([]string, 0, 3)
	if t := c.book.Metadata.Title; t != "" {
		parts = append(parts, t)
	}
	p := c.current()
	if len(p.Lines) > 0 {
		if ch := c.book.Chapters[p.Chapter]; ch.Title != "" {
			parts = append(parts, ch.Title)
		}
	}
	percent := (c.page + 1) * 100 / len(c.pages)
	parts = append(parts, fmt.Sprintf("%d/%d (%d%%)", c.page+1, len(c.pages), percent))
	return strings.Join(parts, " | ")
}

func (c *Controller) etaPanel() []string {
	return []string{
		"Reading time at " + fmt.Sprint(c.wpm) + " wpm",
		"",
		"This page: " + formatDuration(paginate.EstimatedReadingTime(c.current(), c.wpm)),
		"Rest of chapter: " + formatDuration(paginate.ChapterRemainingTime(c.pages, c.page, c.wpm)),
		"Rest of book: " + formatDuration(paginate.RemainingTime(c.pages, c.page, c.wpm)),
	}
}

func (c *Controller) metadataPanel() []string {
	md := c.book.Metadata
	lines := []string{"Title: " + md.Title}
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}
	add("Author", strings.Join(md.Authors, ", "))
	lang := md.Language
	if md.LanguageName != "" {
		lang = md.LanguageName + " (" + md.Language + ")"
	}
	add("Language", lang)
	add("Publisher", md.Publisher)
	add("Date", md.Date)
	add("Identifier", md.Identifier)
	add("Subjects", strings.Join(md.Subjects, ", "))
	if cv := md.Cover; cv != nil {
		cover := cv.MediaType
		if cv.Width > 0 {
			cover += fmt.Sprintf(" %dx%d", cv.Width, cv.Height)
		}
		add("Cover", cover)
	}
	add("Chapters", fmt.Sprint(len(c.book.Chapters)))
	add("Words", fmt.Sprint(c.book.Words()))
	add("File", c.book.ID)
	return lines
}

func (c *Controller) wrapPanel(lines []string) []string {
	var out []string
	for _, l := range lines {
		if l == "" {
			out = append(out, "")
			continue
		}
		out = append(out, paginate.Wrap(l, c.vp.Width)...)
	}
	return out
}

// formatDuration renders d rounded to the second, with "<1s" for tiny
// non-zero values.
func formatDuration(d time.Duration) string {
	if d > 0 && d < time.Second {
		return "<1s"
	}
	return d.Round(time.Second).String()
}
