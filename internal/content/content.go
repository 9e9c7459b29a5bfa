// Package content turns spine documents into normalized text paragraphs.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/unicode/norm"

	"github.com/yuanying/epubterm/internal/epub"
)

// ErrUnparsableDocument is returned when a document has no recoverable structure.
var ErrUnparsableDocument = errors.New("content: unparsable document")

// Kind classifies a paragraph for rendering.
type Kind int

const (
	KindText Kind = iota
	KindHeading
	KindListItem
	KindQuote
	KindPlaceholder
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindListItem:
		return "list-item"
	case KindQuote:
		return "quote"
	case KindPlaceholder:
		return "placeholder"
	default:
		return "text"
	}
}

// Paragraph is a whitespace-collapsed, NFC-normalized run of text.
type Paragraph struct {
	Text  string
	Words int
	Kind  Kind
}

// Placeholder markers substituted for content that is not rendered as text.
const (
	TableOmitted       = "[table omitted]"
	CodeBlockOmitted   = "[code block omitted]"
	ContentUnavailable = "[content unavailable]"
)

var xmlEncodingRe = regexp.MustCompile(`^\s*<\?xml[^>]*\sencoding\s*=\s*["']([A-Za-z0-9._:-]+)["']`)

// Parse extracts paragraphs from a raw spine document. It holds no state
// and is safe for concurrent use.
func Parse(raw []byte, kind epub.DocKind) ([]Paragraph, error) {
	switch kind {
	case epub.DocNonText:
		return NonText(""), nil
	case epub.DocPlainText:
		text, err := decode(raw, "text/plain")
		if err != nil {
			return nil, err
		}
		return parsePlainText(text), nil
	}

	contentType := "text/html"
	if m := xmlEncodingRe.FindSubmatch(raw); m != nil {
		contentType += "; charset=" + string(m[1])
	} else if kind == epub.DocXHTML {
		// XML documents without a declaration are UTF-8.
		contentType += "; charset=utf-8"
	}

	text, err := decode(raw, contentType)
	if err != nil {
		return nil, err
	}
	if kind == epub.DocXHTML {
		text = expandSelfClosing(text)
	}
	return parseMarkup(text)
}

// Paragraphs builds paragraphs from already extracted strings.
func Paragraphs(kind Kind, texts ...string) []Paragraph {
	var out []Paragraph
	for _, t := range texts {
		if p, ok := newParagraph(t, kind); ok {
			out = append(out, p)
		}
	}
	return out
}

// NonText returns the placeholder used for spine items that are not text.
func NonText(mediaType string) []Paragraph {
	marker := "[non-text content]"
	if mediaType != "" {
		marker = "[non-text content: " + mediaType + "]"
	}
	return Paragraphs(KindPlaceholder, marker)
}

// Unavailable returns the placeholder used for documents that failed to load.
func Unavailable() []Paragraph {
	return Paragraphs(KindPlaceholder, ContentUnavailable)
}

// Title returns the text of the first heading, or "".
func Title(paragraphs []Paragraph) string {
	for _, p := range paragraphs {
		if p.Kind == KindHeading {
			return p.Text
		}
	}
	return ""
}

// CountWords counts whitespace separated tokens.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// WordCount sums the words of non-placeholder paragraphs.
func WordCount(paragraphs []Paragraph) int {
	n := 0
	for _, p := range paragraphs {
		n += p.Words
	}
	return n
}

func newParagraph(s string, kind Kind) (Paragraph, bool) {
	text := norm.NFC.String(collapse(s))
	if text == "" {
		return Paragraph{}, false
	}
	p := Paragraph{Text: text, Kind: kind}
	if kind != KindPlaceholder {
		p.Words = CountWords(text)
	}
	return p, true
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// decode converts raw bytes to UTF-8 using the BOM, the content type
// charset or a <meta> declaration, in that order.
func decode(raw []byte, contentType string) ([]byte, error) {
	e, name, _ := charset.DetermineEncoding(raw, contentType)
	out := raw
	if e != encoding.Nop {
		var err error
		out, err = e.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrUnparsableDocument, name, err)
		}
	}
	out = bytes.TrimPrefix(out, []byte("\uFEFF"))
	if bytes.IndexByte(out, 0) >= 0 {
		return nil, fmt.Errorf("%w: binary data", ErrUnparsableDocument)
	}
	return out, nil
}

func parsePlainText(text []byte) []Paragraph {
	var (
		out   []Paragraph
		block []string
	)
	flush := func() {
		if p, ok := newParagraph(strings.Join(block, " "), KindText); ok {
			out = append(out, p)
		}
		block = block[:0]
	}
	for _, line := range strings.Split(string(text), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		block = append(block, line)
	}
	flush()
	return out
}
