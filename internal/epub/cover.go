package epub

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

// CoverInfo holds information about the detected cover image.
type CoverInfo struct {
	ManifestID      string
	Href            string
	MediaType       string
	DetectionMethod string // "properties", "meta", "guide", "filename"

	// Filled in by ProbeCover.
	Width  int
	Height int
}

// DetectCover detects the cover image from the OPF manifest using multiple methods.
// Methods are tried in priority order:
//  1. properties="cover-image" (EPUB 3.0)
//  2. meta name="cover" (EPUB 2.0)
//  3. guide type="cover" (matched to image manifest items)
//  4. filename pattern (basename contains "cover", case-insensitive)
//
// Returns nil if no cover image is found.
func (opf *OPF) DetectCover() *CoverInfo {
	newInfo := func(item ManifestItem, method string) *CoverInfo {
		return &CoverInfo{
			ManifestID:      item.ID,
			Href:            item.Href,
			MediaType:       item.MediaType,
			DetectionMethod: method,
		}
	}

	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		for _, prop := range item.Properties {
			if prop == "cover-image" {
				return newInfo(item, "properties")
			}
		}
	}

	if opf.Metadata.CoverID != "" {
		if item, ok := opf.Manifest[opf.Metadata.CoverID]; ok && isImageMediaType(item.MediaType) {
			return newInfo(item, "meta")
		}
	}

	for _, ref := range opf.Guide {
		if ref.Type != "cover" {
			continue
		}
		for _, id := range opf.ManifestOrder {
			item := opf.Manifest[id]
			if isImageMediaType(item.MediaType) && item.Href == ref.Href {
				return newInfo(item, "guide")
			}
		}
		// Guide points to a non-image → try filename pattern
	}

	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		if !isImageMediaType(item.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(path.Base(item.Href)), "cover") {
			return newInfo(item, "filename")
		}
	}

	return nil
}

// ProbeCover decodes the cover image to record its pixel dimensions.
// SVG covers are left unprobed.
func ProbeCover(r *EPUBReader, info *CoverInfo) error {
	if info == nil || !isRasterMediaType(info.MediaType) {
		return nil
	}
	data, err := r.ReadEntry(info.Href)
	if err != nil {
		return fmt.Errorf("failed to read cover %s: %w", info.Href, err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to decode cover %s: %w", info.Href, err)
	}
	b := img.Bounds()
	info.Width, info.Height = b.Dx(), b.Dy()
	return nil
}

func isImageMediaType(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}

// isRasterMediaType checks if a media type is a raster image (SVG excluded).
func isRasterMediaType(mediaType string) bool {
	return isImageMediaType(mediaType) && mediaType != "image/svg+xml"
}
