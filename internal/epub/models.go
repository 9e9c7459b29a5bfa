package epub

// OPF represents the parsed Open Package Format document
type OPF struct {
	Version       string
	Metadata      Metadata
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string                // ids in document order
	Spine         []SpineItem
	Guide         []GuideReference
	NCXPath       string
}

// Metadata represents the metadata section of the OPF
type Metadata struct {
	Title       string
	Creators    []Creator
	Language    string
	Identifier  string
	Publisher   string
	Date        string
	Description string
	Subjects    []string
	Rights      string
	CoverID     string // EPUB 2.0 cover image manifest item ID (from meta name="cover")
}

// Authors returns creator names with role "aut" or no role at all.
func (m Metadata) Authors() []string {
	var names []string
	for _, c := range m.Creators {
		if c.Role == "" || c.Role == "aut" {
			names = append(names, c.Name)
		}
	}
	return names
}

// Creator represents a creator (author, editor, etc.) of the book
type Creator struct {
	Name string
	Role string // e.g., "aut" for author, "edt" for editor
	Lang string // xml:lang attribute
}

// ManifestItem represents an item in the manifest
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef  string
	Linear bool
}

// GuideReference represents an EPUB 2.0 guide entry
type GuideReference struct {
	Type  string
	Title string
	Href  string
}

// ContentRef is one spine entry resolved against the manifest. Index is the
// spine position and is the ordering authority for the whole book.
type ContentRef struct {
	Index     int
	ID        string
	Href      string
	MediaType string
	Kind      DocKind
	Linear    bool
}

// Manifest is the resolved reading order plus book metadata.
type Manifest struct {
	OPFPath     string
	Version     string
	Metadata    Metadata
	ContentRefs []ContentRef
	TOC         *NCX
	Cover       *CoverInfo
	Warnings    []string
}
