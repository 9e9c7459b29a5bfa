package book

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yuanying/epubterm/internal/content"
	"github.com/yuanying/epubterm/internal/epub"
)

// ErrEmptyDocument reports a text document that produced no paragraphs.
var ErrEmptyDocument = errors.New("book: document has no readable text")

// ParseFunc extracts paragraphs from one spine document.
type ParseFunc func(raw []byte, kind epub.DocKind) ([]content.Paragraph, error)

// Options controls Load.
type Options struct {
	// Workers bounds the number of documents parsed at once.
	// Zero means runtime.NumCPU().
	Workers int
	Logger  *zap.Logger
	// Parse replaces content.Parse.
	Parse ParseFunc
}

// Warning is a non-fatal problem found while loading.
type Warning struct {
	Source string
	Err    error
}

func (w Warning) String() string {
	if w.Source == "" {
		return w.Err.Error()
	}
	return w.Source + ": " + w.Err.Error()
}

// Result is the outcome of parsing a single spine document.
type Result struct {
	Paragraphs []content.Paragraph
	Err        error
}

// Load opens the archive at path, resolves its manifest and parses every
// spine document in parallel. Per-document failures become placeholder
// chapters and are reported as warnings; only archive and package errors
// are returned.
//
// The returned Book holds the archive open until Close.
func Load(ctx context.Context, path string, opts Options) (*Book, []Warning, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	reader, err := epub.Open(abs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open EPUB: %w", err)
	}

	manifest, err := epub.Resolve(reader)
	if err != nil {
		reader.Close()
		return nil, nil, fmt.Errorf("failed to resolve package: %w", err)
	}

	if err := ctx.Err(); err != nil {
		reader.Close()
		return nil, nil, err
	}

	var warnings []Warning
	for _, w := range reader.Warnings() {
		warnings = append(warnings, Warning{Source: filepath.Base(abs), Err: errors.New(w)})
	}
	for _, w := range manifest.Warnings {
		warnings = append(warnings, Warning{Source: manifest.OPFPath, Err: errors.New(w)})
	}

	log.Debug("Parsing spine documents",
		zap.String("book", abs),
		zap.Int("documents", len(manifest.ContentRefs)),
		zap.Int("workers", opts.workers()))

	results := parseAll(reader, manifest.ContentRefs, opts)
	chapters, parseWarnings := Assemble(manifest.ContentRefs, results)
	warnings = append(warnings, parseWarnings...)

	titles := manifest.TOC.Titles()
	for i := range chapters {
		if t := titles[chapters[i].Href]; t != "" {
			chapters[i].Title = t
		}
	}

	for _, w := range warnings {
		log.Warn("Degraded content", zap.String("source", w.Source), zap.Error(w.Err))
	}

	b := &Book{
		ID:       abs,
		Metadata: newMetadata(manifest),
		Chapters: chapters,
		reader:   reader,
	}
	log.Info("Book loaded",
		zap.String("book", abs),
		zap.String("title", b.Metadata.Title),
		zap.Int("chapters", len(chapters)),
		zap.Int("warnings", len(warnings)))
	return b, warnings, nil
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// parseAll runs one task per text document on a bounded pool. Each task
// writes only its own slot, so results are positional by spine index.
func parseAll(reader *epub.EPUBReader, refs []epub.ContentRef, opts Options) []Result {
	parse := opts.Parse
	if parse == nil {
		parse = content.Parse
	}

	results := make([]Result, len(refs))

	var g errgroup.Group
	g.SetLimit(opts.workers())
	for i, ref := range refs {
		if !ref.Kind.IsText() {
			results[i] = Result{Paragraphs: content.NonText(ref.MediaType)}
			continue
		}
		g.Go(func() error {
			raw, err := reader.ReadEntry(ref.Href)
			if err != nil {
				results[i] = Result{Err: err}
				return nil
			}
			paragraphs, err := parse(raw, ref.Kind)
			results[i] = Result{Paragraphs: paragraphs, Err: err}
			return nil
		})
	}
	// Tasks report failures through their slot, never through the group.
	_ = g.Wait()

	return results
}

// Assemble builds chapters in spine order from per-document results.
// results[i] belongs to refs[i]; a missing or failed result yields a
// "[content unavailable]" placeholder chapter and a warning.
func Assemble(refs []epub.ContentRef, results []Result) ([]Chapter, []Warning) {
	chapters := make([]Chapter, len(refs))
	var warnings []Warning

	for i, ref := range refs {
		ch := Chapter{Index: i, Href: ref.Href, Linear: ref.Linear}

		var res Result
		if i < len(results) {
			res = results[i]
		} else {
			res.Err = errors.New("document was not parsed")
		}

		switch {
		case res.Err != nil:
			ch.Paragraphs = content.Unavailable()
			ch.Placeholder = true
			warnings = append(warnings, Warning{Source: ref.Href, Err: res.Err})
		case !ref.Kind.IsText():
			ch.Paragraphs = res.Paragraphs
			ch.Placeholder = true
		default:
			ch.Paragraphs = res.Paragraphs
			ch.Title = content.Title(res.Paragraphs)
			if len(res.Paragraphs) == 0 {
				warnings = append(warnings, Warning{Source: ref.Href, Err: ErrEmptyDocument})
			}
		}
		chapters[i] = ch
	}

	return chapters, warnings
}
