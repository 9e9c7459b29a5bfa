package paginate

import (
	"reflect"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/yuanying/epubterm/internal/book"
	"github.com/yuanying/epubterm/internal/content"
)

const (
	lorem1 = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua."
	lorem2 = "Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat."
	lorem3 = "Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur."
)

func testBook() *book.Book {
	ch1 := content.Paragraphs(content.KindHeading, "Chapter One")
	ch1 = append(ch1, content.Paragraphs(content.KindText, lorem1, lorem2)...)
	ch2 := content.Paragraphs(content.KindHeading, "Chapter Two")
	ch2 = append(ch2, content.Paragraphs(content.KindPlaceholder, content.TableOmitted)...)
	ch2 = append(ch2, content.Paragraphs(content.KindText, "日本語のテキストも折り返されます。", "Supercalifragilisticexpialidocious is long.", lorem3)...)
	return &book.Book{Chapters: []book.Chapter{
		{Index: 0, Paragraphs: ch1},
		{Index: 1, Paragraphs: ch2},
	}}
}

var viewports = []Viewport{
	{Width: 80, Height: 24},
	{Width: 40, Height: 10},
	{Width: 17, Height: 3},
	{Width: 5, Height: 7},
	{Width: 1, Height: 1},
	{Width: 0, Height: -3},
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{"fits", "short line", 20, []string{"short line"}},
		{"words", "the quick brown fox", 10, []string{"the quick", "brown fox"}},
		{"exact width", "abcd efgh", 4, []string{"abcd", "efgh"}},
		{"hard break", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"hard break between words", "ab abcdefgh cd", 4, []string{"ab", "abcd", "efgh", "cd"}},
		{"remainder takes next word", "abcdef gh", 5, []string{"abcde", "f gh"}},
		{"wide runes", "日本語テキスト", 4, []string{"日本", "語テ", "キス", "ト"}},
		{"wide rune wider than width", "日本", 1, []string{"日", "本"}},
		{"empty", "", 10, []string{}},
		{"zero width clamps", "ab", 0, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Wrap(tt.text, tt.width); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Wrap(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestPaginate_Deterministic(t *testing.T) {
	b := testBook()
	for _, vp := range viewports {
		first := Paginate(b, vp)
		second := Paginate(b, vp)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Paginate(%+v) is not deterministic", vp)
		}
	}
}

func TestPaginate_ConcatenationReproducesLines(t *testing.T) {
	b := testBook()
	for _, vp := range viewports {
		want := Lines(b, vp)
		var got []Line
		for _, p := range Paginate(b, vp) {
			got = append(got, p.Lines...)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("viewport %+v: concatenated pages differ from Lines()", vp)
		}
	}
}

func TestPaginate_PageShape(t *testing.T) {
	b := testBook()
	for _, vp := range viewports {
		clamped := vp.Clamp()
		pages := Paginate(b, vp)
		words := 0
		for i, p := range pages {
			if p.Index != i {
				t.Errorf("viewport %+v: pages[%d].Index = %d", vp, i, p.Index)
			}
			if len(p.Lines) > clamped.Height {
				t.Errorf("viewport %+v: page %d has %d lines", vp, i, len(p.Lines))
			}
			if i < len(pages)-1 && len(p.Lines) != clamped.Height {
				t.Errorf("viewport %+v: page %d is short (%d lines)", vp, i, len(p.Lines))
			}
			for _, l := range p.Lines {
				if w := runewidth.StringWidth(l.Text); w > clamped.Width && utf8.RuneCountInString(l.Text) > 1 {
					t.Errorf("viewport %+v: line %q wider than %d", vp, l.Text, clamped.Width)
				}
			}
			if i > 0 && p.StartOffset <= pages[i-1].StartOffset {
				t.Errorf("viewport %+v: page %d offset %d not after %d", vp, i, p.StartOffset, pages[i-1].StartOffset)
			}
			words += p.Words
		}
		if want := b.Words(); words != want {
			t.Errorf("viewport %+v: page words = %d, want %d", vp, words, want)
		}
	}
}

func TestLines_ParagraphSeparators(t *testing.T) {
	b := &book.Book{Chapters: []book.Chapter{
		{Paragraphs: content.Paragraphs(content.KindText, "one two", "three")},
		{Paragraphs: content.Paragraphs(content.KindText, "four")},
	}}

	lines := Lines(b, Viewport{Width: 80, Height: 10})

	var got []string
	for _, l := range lines {
		got = append(got, l.Text)
	}
	if want := []string{"one two", "", "three", "", "four"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Lines() = %q, want %q", got, want)
	}
	if !lines[1].Blank || lines[4].Chapter != 1 {
		t.Errorf("unexpected line metadata: %+v", lines)
	}
	// "one two" = 0..7, separator 7, "three" = 8..13, separator 13, "four" = 14..18
	wantStarts := []int{0, 7, 8, 13, 14}
	for i, l := range lines {
		if l.Start != wantStarts[i] {
			t.Errorf("lines[%d].Start = %d, want %d", i, l.Start, wantStarts[i])
		}
	}
}

func TestPaginate_EmptyBook(t *testing.T) {
	pages := Paginate(&book.Book{}, Viewport{Width: 80, Height: 24})
	if len(pages) != 1 || len(pages[0].Lines) != 0 {
		t.Errorf("Paginate(empty) = %+v, want one empty page", pages)
	}
}

func TestEstimatedReadingTime(t *testing.T) {
	tests := []struct {
		words int
		wpm   int
		want  time.Duration
	}{
		{200, 100, 2 * time.Minute},
		{200, 200, time.Minute},
		{200, 50, 4 * time.Minute},
		{200, 150, 80 * time.Second},
		{200, 300, 40 * time.Second},
		{200, 7, 1714285714285},
		{119, 238, 30 * time.Second},
		{238, 0, time.Minute},
		{238, -5, time.Minute},
		{0, 100, 0},
	}
	for _, tt := range tests {
		if got := EstimatedReadingTime(Page{Words: tt.words}, tt.wpm); got != tt.want {
			t.Errorf("EstimatedReadingTime(%d words, %d wpm) = %v, want %v", tt.words, tt.wpm, got, tt.want)
		}
	}
}

func TestRemainingTime(t *testing.T) {
	pages := []Page{
		{Words: 100, Chapter: 0, Lines: []Line{{Chapter: 0, Words: 100}}},
		{Words: 100, Chapter: 0, Lines: []Line{{Chapter: 0, Words: 60}, {Chapter: 1, Words: 40}}},
		{Words: 100, Chapter: 1, Lines: []Line{{Chapter: 1, Words: 100}}},
	}
	if got := RemainingTime(pages, 0, 100); got != 3*time.Minute {
		t.Errorf("RemainingTime(0) = %v, want 3m", got)
	}
	if got := RemainingTime(pages, 2, 100); got != time.Minute {
		t.Errorf("RemainingTime(2) = %v, want 1m", got)
	}
	if got := ChapterRemainingTime(pages, 0, 100); got != 96*time.Second {
		t.Errorf("ChapterRemainingTime(0) = %v, want 1m36s", got)
	}
	if got := ChapterRemainingTime(pages, 2, 100); got != time.Minute {
		t.Errorf("ChapterRemainingTime(2) = %v, want 1m", got)
	}
	if got := ChapterRemainingTime(pages, 5, 100); got != 0 {
		t.Errorf("ChapterRemainingTime(out of range) = %v, want 0", got)
	}
}

func TestPageForOffset_ResizeIsMonotonic(t *testing.T) {
	b := testBook()
	for _, from := range viewports {
		for _, to := range viewports {
			oldPages := Paginate(b, from)
			newPages := Paginate(b, to)

			prev := 0
			for _, p := range oldPages {
				got := PageForOffset(newPages, p.StartOffset)
				if got < prev {
					t.Fatalf("%+v -> %+v: offset %d mapped to page %d before %d", from, to, p.StartOffset, got, prev)
				}
				prev = got

				target := newPages[got]
				if target.StartOffset > p.StartOffset {
					t.Errorf("%+v -> %+v: page %d starts after offset %d", from, to, got, p.StartOffset)
				}
				if got+1 < len(newPages) && newPages[got+1].StartOffset <= p.StartOffset {
					t.Errorf("%+v -> %+v: offset %d belongs to a later page than %d", from, to, p.StartOffset, got)
				}
			}
		}
	}
}

func TestPageForOffset_Bounds(t *testing.T) {
	pages := []Page{{StartOffset: 0}, {StartOffset: 10}, {StartOffset: 20}}
	tests := []struct {
		offset, want int
	}{
		{-1, 0}, {0, 0}, {9, 0}, {10, 1}, {19, 1}, {20, 2}, {1000, 2},
	}
	for _, tt := range tests {
		if got := PageForOffset(pages, tt.offset); got != tt.want {
			t.Errorf("PageForOffset(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
}
