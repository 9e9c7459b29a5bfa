package epub

import (
	"path"
	"strings"
)

// DocKind tells the content parser how to treat a spine document.
type DocKind int

const (
	DocNonText DocKind = iota
	DocXHTML
	DocHTML
	DocPlainText
)

func (k DocKind) String() string {
	switch k {
	case DocXHTML:
		return "xhtml"
	case DocHTML:
		return "html"
	case DocPlainText:
		return "text"
	default:
		return "non-text"
	}
}

// IsText reports whether text extraction should be attempted.
func (k DocKind) IsText() bool {
	return k != DocNonText
}

// ClassifyDocument derives the document kind from the manifest media type,
// falling back to the file extension when the media type is missing.
func ClassifyDocument(mediaType, href string) DocKind {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch mt {
	case "application/xhtml+xml", "application/x-dtbook+xml", "application/xml", "text/xml":
		return DocXHTML
	case "text/html":
		return DocHTML
	case "text/plain":
		return DocPlainText
	case "":
		switch strings.ToLower(path.Ext(href)) {
		case ".xhtml", ".xht", ".xml":
			return DocXHTML
		case ".html", ".htm":
			return DocHTML
		case ".txt":
			return DocPlainText
		}
		return DocNonText
	}

	if strings.Contains(mt, "html") {
		return DocXHTML
	}
	return DocNonText
}

// resolvePath resolves a relative reference against a base directory
// baseDir: base directory (e.g., "text" for "text/chapter1.xhtml")
// relPath: relative path (e.g., "../images/photo.jpg")
// returns: resolved path (e.g., "images/photo.jpg")
func resolvePath(baseDir, relPath string) string {
	return joinPath(baseDir, relPath)
}
