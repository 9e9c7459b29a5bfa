package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
)

// maxEntrySize caps the decompressed size of a single entry.
const maxEntrySize int64 = 256 * 1024 * 1024

// sniffLen is the number of leading bytes inspected to recognize the container.
const sniffLen = 262

const epubMimetype = "application/epub+zip"

var (
	ErrNotFound     = errors.New("epub: file not found")
	ErrNotAnArchive = errors.New("epub: not a zip archive")
	ErrCorrupt      = errors.New("epub: corrupt archive")
	ErrEntryMissing = errors.New("epub: entry not found in archive")
	ErrEntryTooBig  = errors.New("epub: entry exceeds size limit")
	ErrUnsafePath   = errors.New("epub: unsafe entry path")
)

// EPUBReader is a read-only view over an opened EPUB container.
//
// ReadEntry may be called from multiple goroutines: every call opens its own
// decompressor over the shared io.ReaderAt.
type EPUBReader struct {
	path      string
	file      *os.File
	zipReader *zip.Reader
	files     map[string]*zip.File
	folded    map[string]*zip.File // lower-cased name -> file
	warnings  []string
}

// Open opens an EPUB file and validates that it is a usable container.
func Open(name string) (*EPUBReader, error) {
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open EPUB: %w", err)
	}

	reader, err := newReader(name, f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return reader, nil
}

func newReader(name string, f *os.File) (*EPUBReader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat EPUB: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotAnArchive, name)
	}

	head := make([]byte, sniffLen)
	n, err := f.ReadAt(head, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read EPUB header: %w", err)
	}
	head = head[:n]
	if !filetype.Is(head, "zip") && !filetype.Is(head, "epub") {
		return nil, fmt.Errorf("%w: %s", ErrNotAnArchive, name)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	reader := &EPUBReader{
		path:      name,
		file:      f,
		zipReader: zr,
		files:     make(map[string]*zip.File, len(zr.File)),
		folded:    make(map[string]*zip.File, len(zr.File)),
	}

	// Build file map with normalized paths
	for _, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		key := normalizePath(zf.Name)
		reader.files[key] = zf
		if _, dup := reader.folded[strings.ToLower(key)]; !dup {
			reader.folded[strings.ToLower(key)] = zf
		}
	}

	if err := reader.validateMimetype(); err != nil {
		return nil, err
	}
	if err := reader.checkDRM(); err != nil {
		return nil, err
	}
	return reader, nil
}

// Close releases the underlying file handle.
func (r *EPUBReader) Close() error {
	return r.file.Close()
}

// Path returns the file system path the reader was opened from.
func (r *EPUBReader) Path() string {
	return r.path
}

// Warnings returns non-fatal container problems noticed while opening.
func (r *EPUBReader) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// ListEntries returns all entry names in natural order.
func (r *EPUBReader) ListEntries() []string {
	names := make([]string, 0, len(r.files))
	for name := range r.files {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}

// HasEntry reports whether the archive holds the named entry.
func (r *EPUBReader) HasEntry(name string) bool {
	_, err := r.lookup(name)
	return err == nil
}

// ReadEntry reads the full decompressed contents of the named entry.
// Lookup is exact first and case-insensitive second.
func (r *EPUBReader) ReadEntry(name string) ([]byte, error) {
	zf, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	if zf.UncompressedSize64 > uint64(maxEntrySize) {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooBig, name)
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %v", ErrCorrupt, name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxEntrySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrCorrupt, name, err)
	}
	if int64(len(data)) > maxEntrySize {
		return nil, fmt.Errorf("%w: %s", ErrEntryTooBig, name)
	}
	return data, nil
}

func (r *EPUBReader) lookup(name string) (*zip.File, error) {
	name = normalizePath(name)
	if !isSafePath(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	if zf, ok := r.files[name]; ok {
		return zf, nil
	}
	if zf, ok := r.folded[strings.ToLower(name)]; ok {
		return zf, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryMissing, name)
}

// validateMimetype checks the mimetype entry. Missing or compressed mimetype
// files are common in the wild and only produce warnings; wrong content means
// the zip is some other kind of document.
func (r *EPUBReader) validateMimetype() error {
	f, ok := r.files["mimetype"]
	if !ok {
		r.warnings = append(r.warnings, "mimetype entry not found")
		return nil
	}

	if f.Method != zip.Store {
		r.warnings = append(r.warnings, "mimetype entry is compressed")
	}

	content, err := r.ReadEntry("mimetype")
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}

	if got := strings.TrimSpace(string(content)); got != epubMimetype {
		return fmt.Errorf("%w: mimetype is %q", ErrNotAnArchive, got)
	}
	return nil
}

// normalizePath normalizes entry names (removes ./ prefix, converts backslashes)
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

// isSafePath rejects absolute names and names escaping the archive root.
func isSafePath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") {
		return false
	}
	cleaned := path.Clean(p)
	return cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}
