// Package progress persists the last read page of each book.
package progress

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/yuanying/epubterm/internal/paginate"
)

const fileVersion = 1

// ErrUnsupportedVersion is wrapped by CorruptError when the file was
// written by an incompatible version.
var ErrUnsupportedVersion = errors.New("progress: unsupported file version")

// now is replaced in tests.
var now = time.Now

// Record is the saved position of one book.
type Record struct {
	LastPage  int       `yaml:"last_page" validate:"gte=0"`
	WPM       int       `yaml:"wpm" validate:"gt=0"`
	UpdatedAt time.Time `yaml:"updated_at,omitempty"`
}

type document struct {
	Version int               `yaml:"version"`
	Books   map[string]Record `yaml:"books" validate:"dive,keys,required,endkeys"`
}

// Progress maps book identities to records. The zero value is empty and
// ready to use; Set never modifies the receiver.
type Progress struct {
	records map[string]Record
}

// Get returns the last page saved for id.
func (p Progress) Get(id string) (int, bool) {
	r, ok := p.records[id]
	return r.LastPage, ok
}

// Record returns the full record saved for id.
func (p Progress) Record(id string) (Record, bool) {
	r, ok := p.records[id]
	return r, ok
}

// Set returns a copy of p with id at page. Negative pages are clamped to 0
// and a non-positive wpm is replaced by the default rate.
func (p Progress) Set(id string, page, wpm int) Progress {
	if page < 0 {
		page = 0
	}
	if wpm <= 0 {
		wpm = paginate.DefaultWPM
	}
	records := make(map[string]Record, len(p.records)+1)
	for k, v := range p.records {
		records[k] = v
	}
	records[id] = Record{LastPage: page, WPM: wpm, UpdatedAt: now().UTC().Truncate(time.Second)}
	return Progress{records: records}
}

// Keys returns the stored book identities in sorted order.
func (p Progress) Keys() []string {
	keys := make([]string, 0, len(p.records))
	for k := range p.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored books.
func (p Progress) Len() int {
	return len(p.records)
}

// CorruptError reports a progress file that could not be used. Load still
// returns empty progress alongside it.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("progress: ignoring unreadable file %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// IOError reports a failed save.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("progress: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Load reads the progress file at path. A missing file yields empty
// progress and no error. An unreadable or invalid file yields empty
// progress and a *CorruptError.
func Load(path string) (Progress, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Progress{}, nil
		}
		return Progress{}, &CorruptError{Path: path, Err: err}
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Progress{}, nil
		}
		return Progress{}, &CorruptError{Path: path, Err: err}
	}
	if doc.Version != fileVersion {
		return Progress{}, &CorruptError{Path: path, Err: fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)}
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&doc); err != nil {
		return Progress{}, &CorruptError{Path: path, Err: err}
	}

	return Progress{records: doc.Books}, nil
}

// Save overwrites the file at path atomically: the new content is written
// to a temporary file in the same directory, synced, then renamed.
func (p Progress) Save(path string) error {
	books := p.records
	if books == nil {
		books = map[string]Record{}
	}
	data, err := yaml.Marshal(&document{Version: fileVersion, Books: books})
	if err != nil {
		return &IOError{Op: "encode", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return &IOError{Op: "create", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	fail := func(op string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return &IOError{Op: op, Path: path, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		return fail("write", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "close", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
