// Package epubtest builds small EPUB archives on disk for tests.
package epubtest

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Chapter is one spine document.
type Chapter struct {
	ID        string
	Href      string // relative to the OPF directory
	MediaType string // defaults to application/xhtml+xml
	Body      string // inner <body> markup, or the raw document when Raw is set
	Raw       bool
	Linear    string // "", "yes" or "no"
}

// Book describes the archive to generate.
type Book struct {
	Title    string
	Authors  []string
	Language string
	Chapters []Chapter

	// ReverseEntries writes the content documents into the zip in reverse
	// spine order.
	ReverseEntries bool
	// Extra entries written verbatim (path -> content).
	Extra map[string]string
	// ExtraManifest is inserted verbatim into <manifest>.
	ExtraManifest string
	// ExtraSpine is inserted verbatim into <spine> after the chapters.
	ExtraSpine string
	// NoContainer omits META-INF/container.xml.
	NoContainer bool
}

// Write creates name inside dir and returns its path.
func Write(tb testing.TB, dir, name string, b Book) string {
	tb.Helper()
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		tb.Fatalf("failed to create test epub: %v", err)
	}
	defer f.Close()

	w := zip.NewWriter(f)

	// mimetype (must be uncompressed/stored)
	mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		tb.Fatalf("failed to create mimetype: %v", err)
	}
	mw.Write([]byte("application/epub+zip"))

	put := func(name, content string) {
		fw, err := w.Create(name)
		if err != nil {
			tb.Fatalf("failed to create %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			tb.Fatalf("failed to write %s: %v", name, err)
		}
	}

	if !b.NoContainer {
		put("META-INF/container.xml", Container("OEBPS/content.opf"))
	}
	put("OEBPS/content.opf", OPF(b))

	chapters := append([]Chapter(nil), b.Chapters...)
	if b.ReverseEntries {
		for i, j := 0, len(chapters)-1; i < j; i, j = i+1, j-1 {
			chapters[i], chapters[j] = chapters[j], chapters[i]
		}
	}
	for _, ch := range chapters {
		content := ch.Body
		if !ch.Raw {
			content = XHTML(ch.ID, ch.Body)
		}
		put("OEBPS/"+ch.Href, content)
	}
	for name, content := range b.Extra {
		put(name, content)
	}

	if err := w.Close(); err != nil {
		tb.Fatalf("failed to finish zip: %v", err)
	}
	return p
}

// Container returns a container.xml pointing at opfPath.
func Container(opfPath string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="` + opfPath + `" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`
}

// OPF renders the package document for b.
func OPF(b Book) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
`)
	fmt.Fprintf(&sb, "    <dc:title>%s</dc:title>\n", b.Title)
	for _, a := range b.Authors {
		fmt.Fprintf(&sb, "    <dc:creator opf:role=\"aut\">%s</dc:creator>\n", a)
	}
	lang := b.Language
	if lang == "" {
		lang = "en"
	}
	fmt.Fprintf(&sb, "    <dc:language>%s</dc:language>\n", lang)
	sb.WriteString("    <dc:identifier id=\"bookid\">urn:uuid:test</dc:identifier>\n  </metadata>\n  <manifest>\n")
	for _, ch := range b.Chapters {
		mt := ch.MediaType
		if mt == "" {
			mt = "application/xhtml+xml"
		}
		fmt.Fprintf(&sb, "    <item id=\"%s\" href=\"%s\" media-type=\"%s\"/>\n", ch.ID, ch.Href, mt)
	}
	sb.WriteString(b.ExtraManifest)
	sb.WriteString("  </manifest>\n  <spine>\n")
	for _, ch := range b.Chapters {
		if ch.Linear != "" {
			fmt.Fprintf(&sb, "    <itemref idref=\"%s\" linear=\"%s\"/>\n", ch.ID, ch.Linear)
			continue
		}
		fmt.Fprintf(&sb, "    <itemref idref=\"%s\"/>\n", ch.ID)
	}
	sb.WriteString(b.ExtraSpine)
	sb.WriteString("  </spine>\n</package>")
	return sb.String()
}

// XHTML wraps body markup into a complete XHTML document.
func XHTML(title, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>` + title + `</title></head>
<body>` + body + `</body>
</html>`
}

// Simple returns a three chapter book with one paragraph per chapter.
func Simple() Book {
	return Book{
		Title:   "Test Book",
		Authors: []string{"Jane Doe"},
		Chapters: []Chapter{
			{ID: "ch1", Href: "text/ch1.xhtml", Body: "<h1>One</h1><p>The first chapter begins here.</p>"},
			{ID: "ch2", Href: "text/ch2.xhtml", Body: "<h1>Two</h1><p>The second chapter continues the story.</p>"},
			{ID: "ch3", Href: "text/ch3.xhtml", Body: "<h1>Three</h1><p>The third chapter ends it.</p>"},
		},
	}
}
