package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/yuanying/epubterm/internal/book"
	"github.com/yuanying/epubterm/internal/content"
	"github.com/yuanying/epubterm/internal/paginate"
	"github.com/yuanying/epubterm/internal/progress"
)

const bookID = "/library/test.epub"

func testBook() *book.Book {
	var chapters []book.Chapter
	for ci, title := range []string{"Opening", "Middle", "Ending"} {
		ps := content.Paragraphs(content.KindHeading, title)
		for i := 0; i < 6; i++ {
			ps = append(ps, content.Paragraphs(content.KindText,
				"The quick brown fox jumps over the lazy dog while the reader keeps turning pages.")...)
		}
		chapters = append(chapters, book.Chapter{Index: ci, Title: title, Paragraphs: ps})
	}
	return &book.Book{
		ID: bookID,
		Metadata: book.Metadata{
			Title:        "Sample",
			Authors:      []string{"Jane Doe"},
			Language:     "en",
			LanguageName: "English",
		},
		Chapters: chapters,
	}
}

var small = paginate.Viewport{Width: 30, Height: 5}

func newController(t *testing.T, store progress.Progress, path string) *Controller {
	t.Helper()
	return New(testBook(), store, Options{
		Viewport:     small,
		ProgressFile: path,
		Logger:       zaptest.NewLogger(t),
	})
}

func TestNew_RestoresSavedPage(t *testing.T) {
	c := newController(t, progress.Progress{}.Set(bookID, 3, 150), "")
	if c.Page() != 3 {
		t.Errorf("Page() = %d, want 3", c.Page())
	}
	if c.WPM() != 150 {
		t.Errorf("WPM() = %d, want saved 150", c.WPM())
	}

	c = newController(t, progress.Progress{}.Set(bookID, 100000, 150), "")
	if c.Page() != c.PageCount()-1 {
		t.Errorf("Page() = %d, want clamped to %d", c.Page(), c.PageCount()-1)
	}

	c = New(testBook(), progress.Progress{}.Set(bookID, 1, 150), Options{Viewport: small, WPM: 400})
	if c.WPM() != 400 {
		t.Errorf("WPM() = %d, want explicit 400", c.WPM())
	}
}

func TestDispatch_PageTurnsPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.yaml")
	c := newController(t, progress.Progress{}, path)

	if res := c.Dispatch(PrevPage); res.PageChanged {
		t.Error("PrevPage on the first page changed the page")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("progress written without a page turn: %v", err)
	}

	for i := 0; i < 2; i++ {
		res := c.Dispatch(NextPage)
		if !res.PageChanged || res.Warning != nil {
			t.Fatalf("NextPage = %+v", res)
		}
	}

	loaded, err := progress.Load(path)
	if err != nil {
		t.Fatalf("progress.Load() failed: %v", err)
	}
	if page, ok := loaded.Get(bookID); !ok || page != 2 {
		t.Errorf("saved page = (%d, %v), want (2, true)", page, ok)
	}

	c.Dispatch(PrevPage)
	loaded, _ = progress.Load(path)
	if page, _ := loaded.Get(bookID); page != 1 {
		t.Errorf("saved page after PrevPage = %d, want 1", page)
	}
}

func TestDispatch_LastPageIsStable(t *testing.T) {
	c := newController(t, progress.Progress{}, "")
	for i := 0; i < c.PageCount()+5; i++ {
		c.Dispatch(NextPage)
	}
	if c.Page() != c.PageCount()-1 {
		t.Errorf("Page() = %d, want last page %d", c.Page(), c.PageCount()-1)
	}
}

func TestDispatch_ScrollIsTransient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.yaml")
	c := newController(t, progress.Progress{}, path)

	before := c.View().Lines
	c.Dispatch(ScrollDown)
	c.Dispatch(ScrollDown)
	if c.Scroll() != 2 {
		t.Fatalf("Scroll() = %d, want 2", c.Scroll())
	}
	if got := c.View().Lines; len(got) == 0 || got[0] != before[2] {
		t.Errorf("scrolled view starts with %q, want %q", got, before[2])
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("scroll wrote progress: %v", err)
	}

	for i := 0; i < 20; i++ {
		c.Dispatch(ScrollDown)
	}
	if c.Scroll() != small.Height-1 {
		t.Errorf("Scroll() = %d, want clamped to %d", c.Scroll(), small.Height-1)
	}
	for i := 0; i < 20; i++ {
		c.Dispatch(ScrollUp)
	}
	if c.Scroll() != 0 {
		t.Errorf("Scroll() = %d, want 0", c.Scroll())
	}

	c.Dispatch(ScrollDown)
	c.Dispatch(NextPage)
	if c.Scroll() != 0 {
		t.Errorf("page turn kept scroll %d", c.Scroll())
	}
}

func TestDispatch_SaveFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := newController(t, progress.Progress{}, filepath.Join(blocker, "progress.yaml"))

	res := c.Dispatch(NextPage)
	if !res.PageChanged || res.Warning == nil {
		t.Fatalf("NextPage = %+v, want page change with warning", res)
	}
	if c.Page() != 1 {
		t.Errorf("Page() = %d, want 1", c.Page())
	}
	if err := c.Close(); err == nil {
		t.Error("Close() should report the failed flush")
	}
}

func TestDispatch_Overlays(t *testing.T) {
	c := New(testBook(), progress.Progress{}, Options{Viewport: paginate.Viewport{Width: 60, Height: 20}, WPM: 100})

	c.Dispatch(ShowETA)
	if c.Overlay() != OverlayETA {
		t.Fatalf("Overlay() = %v, want ETA", c.Overlay())
	}
	text := strings.Join(c.View().Lines, "\n")
	for _, want := range []string{"100 wpm", "This page:", "Rest of chapter:", "Rest of book:"} {
		if !strings.Contains(text, want) {
			t.Errorf("ETA view missing %q:\n%s", want, text)
		}
	}

	c.Dispatch(ShowMetadata)
	text = strings.Join(c.View().Lines, "\n")
	for _, want := range []string{"Title: Sample", "Author: Jane Doe", "Language: English (en)", "Chapters: 3"} {
		if !strings.Contains(text, want) {
			t.Errorf("metadata view missing %q:\n%s", want, text)
		}
	}

	c.Dispatch(ShowMetadata)
	if c.Overlay() != OverlayNone {
		t.Errorf("second ShowMetadata left overlay %v", c.Overlay())
	}

	if res := c.Dispatch(Quit); !res.Quit {
		t.Error("Quit did not request exit")
	}
}

func TestView_Status(t *testing.T) {
	c := newController(t, progress.Progress{}, "")
	screen := c.View()
	if len(screen.Lines) == 0 || len(screen.Lines) > small.Height {
		t.Errorf("View() has %d lines, want 1..%d", len(screen.Lines), small.Height)
	}
	want := "Sample | Opening | 1/"
	if !strings.HasPrefix(screen.Status, want) {
		t.Errorf("Status = %q, want prefix %q", screen.Status, want)
	}
}

func TestResize_KeepsPosition(t *testing.T) {
	for _, target := range []paginate.Viewport{{Width: 20, Height: 3}, {Width: 80, Height: 24}, {Width: 1, Height: 1}} {
		c := newController(t, progress.Progress{}, "")
		for i := 0; i < 4; i++ {
			c.Dispatch(NextPage)
		}
		offset := c.current().StartOffset

		c.Resize(target)

		p := c.current()
		if p.StartOffset > offset {
			t.Errorf("%+v: new page starts at %d, after old offset %d", target, p.StartOffset, offset)
		}
		if next := c.Page() + 1; next < c.PageCount() && c.pages[next].StartOffset <= offset {
			t.Errorf("%+v: old offset %d belongs to a later page", target, offset)
		}
	}
}

func TestResize_Monotonic(t *testing.T) {
	old := newController(t, progress.Progress{}, "")
	target := paginate.Viewport{Width: 45, Height: 4}

	prev := -1
	for i := 0; i < old.PageCount(); i++ {
		c := newController(t, progress.Progress{}.Set(bookID, i, 200), "")
		c.Resize(target)
		if c.Page() < prev {
			t.Fatalf("page %d mapped to %d, before %d", i, c.Page(), prev)
		}
		prev = c.Page()
	}
}

func TestClose_FlushesProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.yaml")
	c := newController(t, progress.Progress{}.Set(bookID, 2, 200), path)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close() failed: %v", err)
	}
	loaded, err := progress.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if page, ok := loaded.Get(bookID); !ok || page != 2 {
		t.Errorf("flushed page = (%d, %v), want (2, true)", page, ok)
	}
}
