package epub

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

const containerPath = "META-INF/container.xml"

const packageMediaType = "application/oebps-package+xml"

var (
	ErrMissingRoot      = errors.New("epub: container root pointer missing")
	ErrMalformedPackage = errors.New("epub: malformed package document")
)

// container.xml structure
type container struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// parseContainer reads container.xml and returns the package document path.
func parseContainer(r *EPUBReader) (string, error) {
	content, err := r.ReadEntry(containerPath)
	if err != nil {
		if errors.Is(err, ErrEntryMissing) {
			return "", fmt.Errorf("%w: %s not found", ErrMissingRoot, containerPath)
		}
		return "", err
	}

	var c container
	if err := decodeXML(content, &c); err != nil {
		return "", fmt.Errorf("%w: failed to parse %s: %v", ErrMissingRoot, containerPath, err)
	}

	for _, rf := range c.Rootfiles.Rootfile {
		if strings.TrimSpace(rf.FullPath) == "" {
			continue
		}
		if rf.MediaType == packageMediaType || rf.MediaType == "" {
			return normalizePath(strings.TrimSpace(rf.FullPath)), nil
		}
	}

	// If no media-type match, use the first one with a path
	for _, rf := range c.Rootfiles.Rootfile {
		if p := strings.TrimSpace(rf.FullPath); p != "" {
			return normalizePath(p), nil
		}
	}

	return "", fmt.Errorf("%w: no rootfile in %s", ErrMissingRoot, containerPath)
}
