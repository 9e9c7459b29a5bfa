// Package book assembles parsed spine documents into an immutable Book.
package book

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/yuanying/epubterm/internal/content"
	"github.com/yuanying/epubterm/internal/epub"
)

// Book is a loaded EPUB. It is not modified after Load returns.
type Book struct {
	ID       string // absolute path of the archive
	Metadata Metadata
	Chapters []Chapter

	reader *epub.EPUBReader
}

// Metadata is the subset of package metadata shown to the reader.
type Metadata struct {
	Title        string
	Authors      []string
	Creators     []epub.Creator
	Language     string
	LanguageName string
	Identifier   string
	Publisher    string
	Date         string
	Description  string
	Subjects     []string
	Version      string
	Cover        *epub.CoverInfo
}

// Chapter is one spine document. Index is its spine position.
type Chapter struct {
	Index       int
	Href        string
	Title       string
	Linear      bool
	Paragraphs  []content.Paragraph
	Placeholder bool // content was substituted
}

// Words returns the number of words in the chapter.
func (c Chapter) Words() int {
	return content.WordCount(c.Paragraphs)
}

// Words returns the number of words in the book.
func (b *Book) Words() int {
	n := 0
	for _, ch := range b.Chapters {
		n += ch.Words()
	}
	return n
}

// Close releases the underlying archive. Safe to call on a Book built
// without an archive.
func (b *Book) Close() error {
	if b == nil || b.reader == nil {
		return nil
	}
	r := b.reader
	b.reader = nil
	return r.Close()
}

func newMetadata(m *epub.Manifest) Metadata {
	md := Metadata{
		Title:       strings.TrimSpace(m.Metadata.Title),
		Authors:     m.Metadata.Authors(),
		Creators:    m.Metadata.Creators,
		Language:    m.Metadata.Language,
		Identifier:  m.Metadata.Identifier,
		Publisher:   m.Metadata.Publisher,
		Date:        m.Metadata.Date,
		Description: m.Metadata.Description,
		Subjects:    m.Metadata.Subjects,
		Version:     m.Version,
		Cover:       m.Cover,
	}
	md.LanguageName = languageName(md.Language)
	return md
}

// languageName returns the English display name of a BCP 47 tag, or ""
// when the tag cannot be parsed.
func languageName(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return ""
	}
	return display.English.Tags().Name(tag)
}
