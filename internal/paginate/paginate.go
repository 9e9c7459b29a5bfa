// Package paginate slices a Book into viewport-sized pages.
//
// Offsets are rune positions in the book's text stream: every paragraph's
// text followed by a single separator rune, in spine order.
package paginate

import (
	"sort"
	"unicode/utf8"

	"github.com/yuanying/epubterm/internal/book"
	"github.com/yuanying/epubterm/internal/content"
)

// Viewport is the text area in terminal cells.
type Viewport struct {
	Width  int
	Height int
}

// Clamp returns the viewport with both dimensions at least 1.
func (v Viewport) Clamp() Viewport {
	if v.Width < 1 {
		v.Width = 1
	}
	if v.Height < 1 {
		v.Height = 1
	}
	return v
}

// Line is one wrapped line. Blank lines separate paragraphs and carry the
// position of the paragraph after them.
type Line struct {
	Text      string
	Chapter   int
	Paragraph int
	Kind      content.Kind
	Blank     bool
	Start     int // offset of the first rune
	End       int // offset past the last rune
	Words     int
}

// Page is a run of at most Viewport.Height lines.
type Page struct {
	Index          int
	Lines          []Line
	Chapter        int // chapter of the first line
	FirstParagraph int
	LastChapter    int
	LastParagraph  int
	Words          int
	StartOffset    int
	EndOffset      int
}

// Lines returns the full wrapped-line sequence of b for vp.
func Lines(b *book.Book, vp Viewport) []Line {
	vp = vp.Clamp()

	var (
		lines  []Line
		offset int
		first  = true
	)
	for ci, ch := range b.Chapters {
		for pi, p := range ch.Paragraphs {
			if !first {
				lines = append(lines, Line{
					Chapter:   ci,
					Paragraph: pi,
					Kind:      p.Kind,
					Blank:     true,
					Start:     offset - 1,
					End:       offset,
				})
			}
			first = false

			runes := []rune(p.Text)
			for _, s := range wrapRunes(runes, vp.Width) {
				l := Line{
					Text:      string(runes[s.start:s.end]),
					Chapter:   ci,
					Paragraph: pi,
					Kind:      p.Kind,
					Start:     offset + s.start,
					End:       offset + s.end,
				}
				if p.Kind != content.KindPlaceholder {
					l.Words = s.words
				}
				lines = append(lines, l)
			}
			offset += utf8.RuneCountInString(p.Text) + 1
		}
	}
	return lines
}

// Paginate splits b into pages for vp. The result depends only on its
// inputs, and the pages' lines concatenated equal Lines(b, vp). A book
// without text yields a single empty page.
func Paginate(b *book.Book, vp Viewport) []Page {
	vp = vp.Clamp()
	lines := Lines(b, vp)
	if len(lines) == 0 {
		return []Page{{}}
	}

	pages := make([]Page, 0, (len(lines)+vp.Height-1)/vp.Height)
	for start := 0; start < len(lines); start += vp.Height {
		end := min(start+vp.Height, len(lines))
		pages = append(pages, newPage(len(pages), lines[start:end:end]))
	}
	return pages
}

func newPage(index int, lines []Line) Page {
	first, last := lines[0], lines[len(lines)-1]
	p := Page{
		Index:          index,
		Lines:          lines,
		Chapter:        first.Chapter,
		FirstParagraph: first.Paragraph,
		LastChapter:    last.Chapter,
		LastParagraph:  last.Paragraph,
		StartOffset:    first.Start,
		EndOffset:      last.End,
	}
	for _, l := range lines {
		p.Words += l.Words
	}
	return p
}

// PageForOffset returns the index of the last page starting at or before
// offset. It is monotonic in offset.
func PageForOffset(pages []Page, offset int) int {
	i := sort.Search(len(pages), func(i int) bool {
		return pages[i].StartOffset > offset
	})
	if i == 0 {
		return 0
	}
	return i - 1
}
