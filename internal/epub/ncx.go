package epub

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NCX represents the parsed navigation control structure from NCX or NAV document.
type NCX struct {
	UID       string
	Depth     int
	DocTitle  string
	NavPoints []NavPoint
}

// NavPoint represents a single navigation point in the table of contents.
type NavPoint struct {
	ID          string
	PlayOrder   int
	Label       string
	ContentPath string // fragment-free, absolute path within EPUB
	Fragment    string // fragment identifier (without #)
	Children    []NavPoint
}

type ncxDocument struct {
	Head struct {
		Meta []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"head"`
	DocTitle struct {
		Text string `xml:"text"`
	} `xml:"docTitle"`
	NavMap struct {
		NavPoints []ncxNavPoint `xml:"navPoint"`
	} `xml:"navMap"`
}

type ncxNavPoint struct {
	ID        string `xml:"id,attr"`
	PlayOrder string `xml:"playOrder,attr"`
	Label     struct {
		Text string `xml:"text"`
	} `xml:"navLabel"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

// LoadNCX loads the table of contents, preferring the EPUB 2 NCX and falling
// back to the EPUB 3 navigation document. Returns nil, nil when neither exists.
func LoadNCX(r *EPUBReader, opf *OPF) (*NCX, error) {
	if opf.NCXPath != "" {
		data, err := r.ReadEntry(opf.NCXPath)
		switch {
		case err == nil:
			return parseNCX(data, path.Dir(opf.NCXPath))
		case !errors.Is(err, ErrEntryMissing):
			return nil, fmt.Errorf("failed to read NCX: %w", err)
		}
	}

	navPath, ok := findNAVPath(opf)
	if !ok {
		return nil, nil
	}
	data, err := r.ReadEntry(navPath)
	if err != nil {
		if errors.Is(err, ErrEntryMissing) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read NAV: %w", err)
	}
	return parseNAV(data, path.Dir(navPath))
}

// Titles maps content paths to the label of the first nav point that
// targets them, in play order.
func (n *NCX) Titles() map[string]string {
	titles := make(map[string]string)
	if n == nil {
		return titles
	}
	var walk func(points []NavPoint)
	walk = func(points []NavPoint) {
		for _, np := range points {
			if _, seen := titles[np.ContentPath]; !seen && np.ContentPath != "" && np.Label != "" {
				titles[np.ContentPath] = np.Label
			}
			walk(np.Children)
		}
	}
	walk(n.NavPoints)
	return titles
}

func parseNCX(content []byte, ncxDir string) (*NCX, error) {
	var doc ncxDocument
	if err := decodeXML(content, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}

	ncx := &NCX{DocTitle: strings.TrimSpace(doc.DocTitle.Text)}
	for _, m := range doc.Head.Meta {
		switch m.Name {
		case "dtb:uid":
			ncx.UID = strings.TrimSpace(m.Content)
		case "dtb:depth":
			ncx.Depth, _ = strconv.Atoi(strings.TrimSpace(m.Content))
		}
	}
	ncx.NavPoints = convertNavPoints(doc.NavMap.NavPoints, ncxDir)
	return ncx, nil
}

func convertNavPoints(points []ncxNavPoint, baseDir string) []NavPoint {
	var result []NavPoint
	for _, p := range points {
		order, _ := strconv.Atoi(strings.TrimSpace(p.PlayOrder))
		contentPath, fragment := splitFragment(strings.TrimSpace(p.Content.Src))
		np := NavPoint{
			ID:        p.ID,
			PlayOrder: order,
			Label:     strings.Join(strings.Fields(p.Label.Text), " "),
			Fragment:  fragment,
			Children:  convertNavPoints(p.Children, baseDir),
		}
		if contentPath != "" {
			np.ContentPath = resolvePath(baseDir, contentPath)
		}
		result = append(result, np)
	}
	return result
}

// findNAVPath returns the first manifest href, in document order, carrying
// the "nav" property.
func findNAVPath(opf *OPF) (string, bool) {
	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		for _, prop := range item.Properties {
			if prop == "nav" {
				return item.Href, true
			}
		}
	}
	return "", false
}

func parseNAV(content []byte, navDir string) (*NCX, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse NAV: %w", err)
	}

	nav := doc.Find("nav").FilterFunction(func(_ int, s *goquery.Selection) bool {
		typ, _ := s.Attr("epub:type")
		for _, tok := range strings.Fields(typ) {
			if tok == "toc" {
				return true
			}
		}
		return false
	}).First()
	if nav.Length() == 0 {
		nav = doc.Find("nav").First()
	}

	ncx := &NCX{}
	counter := 0
	ncx.NavPoints = parseNAVList(nav.ChildrenFiltered("ol").First(), navDir, &counter)
	return ncx, nil
}

func parseNAVList(ol *goquery.Selection, navDir string, counter *int) []NavPoint {
	var points []NavPoint
	ol.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		*counter++
		np := NavPoint{
			ID:        "nav-" + strconv.Itoa(*counter),
			PlayOrder: *counter,
		}

		label := li.ChildrenFiltered("a, span").First()
		np.Label = strings.Join(strings.Fields(label.Text()), " ")
		if href, ok := label.Attr("href"); ok {
			contentPath, fragment := splitFragment(strings.TrimSpace(href))
			if contentPath != "" {
				np.ContentPath = resolvePath(navDir, contentPath)
			}
			np.Fragment = fragment
		}

		np.Children = parseNAVList(li.ChildrenFiltered("ol").First(), navDir, counter)
		points = append(points, np)
	})
	return points
}

// splitFragment splits a source path into the path and fragment identifier.
func splitFragment(src string) (path, fragment string) {
	if src == "" {
		return "", ""
	}
	parts := strings.SplitN(src, "#", 2)
	path = parts[0]
	if len(parts) == 2 {
		fragment = parts[1]
	}
	return path, fragment
}
