package epub

import (
	"errors"
	"fmt"
	"path"
)

// Resolve locates the package document through container.xml and produces
// the spine-ordered list of content references plus book metadata.
//
// Spine order is authoritative: ContentRefs[i].Index == i regardless of how
// entries are laid out inside the zip.
func Resolve(r *EPUBReader) (*Manifest, error) {
	opfPath, err := parseContainer(r)
	if err != nil {
		return nil, err
	}

	data, err := r.ReadEntry(opfPath)
	if err != nil {
		if errors.Is(err, ErrEntryMissing) {
			return nil, fmt.Errorf("%w: package document %s not found", ErrMissingRoot, opfPath)
		}
		return nil, fmt.Errorf("failed to read package document: %w", err)
	}

	opf, err := ParseOPF(data, path.Dir(opfPath))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPackage, err)
	}

	m := &Manifest{
		OPFPath:  opfPath,
		Version:  opf.Version,
		Metadata: opf.Metadata,
	}

	for i, spineItem := range opf.Spine {
		item, ok := opf.Manifest[spineItem.IDRef]
		if !ok {
			return nil, fmt.Errorf("%w: spine item %d references unknown id %q",
				ErrMalformedPackage, i, spineItem.IDRef)
		}
		m.ContentRefs = append(m.ContentRefs, ContentRef{
			Index:     i,
			ID:        item.ID,
			Href:      item.Href,
			MediaType: item.MediaType,
			Kind:      ClassifyDocument(item.MediaType, item.Href),
			Linear:    spineItem.Linear,
		})
	}

	toc, err := LoadNCX(r, opf)
	if err != nil {
		m.Warnings = append(m.Warnings, fmt.Sprintf("table of contents unavailable: %v", err))
	}
	m.TOC = toc

	if cover := opf.DetectCover(); cover != nil {
		if err := ProbeCover(r, cover); err != nil {
			m.Warnings = append(m.Warnings, err.Error())
		}
		m.Cover = cover
	}

	return m, nil
}
