package content

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// skippedTags never contribute text.
var skippedTags = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"template": true,
	"noscript": true,
	"title":    true,
}

// blockTags close the current paragraph before and after their content.
var blockTags = map[string]Kind{
	"p":          KindText,
	"div":        KindText,
	"section":    KindText,
	"article":    KindText,
	"aside":      KindText,
	"header":     KindText,
	"footer":     KindText,
	"nav":        KindText,
	"main":       KindText,
	"figure":     KindText,
	"figcaption": KindText,
	"address":    KindText,
	"center":     KindText,
	"hr":         KindText,
	"body":       KindText,
	"ul":         KindText,
	"ol":         KindText,
	"dl":         KindText,
	"h1":         KindHeading,
	"h2":         KindHeading,
	"h3":         KindHeading,
	"h4":         KindHeading,
	"h5":         KindHeading,
	"h6":         KindHeading,
	"li":         KindListItem,
	"dt":         KindListItem,
	"dd":         KindListItem,
	"blockquote": KindQuote,
}

// voidTags may be written self-closing in HTML as well.
var voidTags = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

var selfClosingTagRe = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9:._-]*)(\s[^<>]*?)?\s*/>`)

// expandSelfClosing rewrites XML empty elements such as <title/> or
// <script src="a.js"/> into open/close pairs. The HTML parser ignores the
// trailing slash on non-void elements, which would swallow the rest of the
// document into a title or script.
func expandSelfClosing(text []byte) []byte {
	if !bytes.Contains(text, []byte("/>")) {
		return text
	}
	return selfClosingTagRe.ReplaceAllFunc(text, func(m []byte) []byte {
		sub := selfClosingTagRe.FindSubmatch(m)
		name := string(sub[1])
		if voidTags[strings.ToLower(localName(name))] {
			return m
		}
		out := make([]byte, 0, len(m)+len(name)+3)
		out = append(out, '<')
		out = append(out, sub[1]...)
		out = append(out, sub[2]...)
		out = append(out, "></"...)
		out = append(out, sub[1]...)
		return append(out, '>')
	})
}

func parseMarkup(text []byte) ([]Paragraph, error) {
	if !hasElement(text) {
		return nil, fmt.Errorf("%w: no markup elements", ErrUnparsableDocument)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsableDocument, err)
	}

	body := doc.Find("body").First()
	if body.Length() == 0 {
		body = doc.Selection
	}

	w := &walker{}
	for _, n := range body.Nodes {
		w.children(n, KindText)
	}
	w.flush(KindText)
	return w.paragraphs, nil
}

// hasElement reports whether the tokenizer sees at least one start tag.
func hasElement(text []byte) bool {
	z := html.NewTokenizer(bytes.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken:
			return true
		}
	}
}

type walker struct {
	paragraphs []Paragraph
	buf        strings.Builder
}

func (w *walker) flush(kind Kind) {
	if p, ok := newParagraph(w.buf.String(), kind); ok {
		w.paragraphs = append(w.paragraphs, p)
	}
	w.buf.Reset()
}

func (w *walker) placeholder(marker string, kind Kind) {
	w.flush(kind)
	w.paragraphs = append(w.paragraphs, Paragraphs(KindPlaceholder, marker)...)
}

func (w *walker) children(n *html.Node, kind Kind) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c, kind)
	}
}

func (w *walker) node(n *html.Node, kind Kind) {
	switch n.Type {
	case html.TextNode:
		w.buf.WriteString(n.Data)
		return
	case html.ElementNode:
	default:
		return
	}

	tag := strings.ToLower(localName(n.Data))
	if skippedTags[tag] {
		return
	}

	switch tag {
	case "br":
		w.flush(kind)
		return
	case "table":
		w.placeholder(TableOmitted, kind)
		return
	case "pre":
		w.placeholder(CodeBlockOmitted, kind)
		return
	case "img", "image":
		w.placeholder(imageMarker(attr(n, "alt")), kind)
		return
	case "svg":
		w.placeholder(imageMarker(svgTitle(n)), kind)
		return
	}

	blockKind, isBlock := blockTags[tag]
	if !isBlock {
		w.children(n, kind)
		return
	}

	// Headings, list items and quotes override the enclosing kind; generic
	// blocks inherit it so a <p> inside <blockquote> stays a quote.
	inner := kind
	if blockKind != KindText {
		inner = blockKind
	}
	w.flush(kind)
	w.children(n, inner)
	w.flush(inner)
}

// localName strips a namespace prefix such as "svg:".
func localName(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

func imageMarker(alt string) string {
	alt = collapse(alt)
	if alt == "" {
		return "[image]"
	}
	return "[image: " + alt + "]"
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func svgTitle(n *html.Node) string {
	if label := attr(n, "aria-label"); label != "" {
		return label
	}
	s := goquery.NewDocumentFromNode(n).Find("title").First()
	return s.Text()
}
