// Package pagemap builds the page-offset map over a directory of chapter
// PDFs: for each file, its page count and the page at which it starts
// inside the logical concatenation of all chapters.
package pagemap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"ipofetch/models"
	"ipofetch/pkg/storage"
)

// ErrNoMetadataFile reports that the directory precondition failed: the
// mapping artifact's name is derived from the single metadata file, so
// without exactly one the build cannot proceed.
var ErrNoMetadataFile = errors.New("pagemap: directory must contain exactly one metadata JSON file")

// ErrNoPDFs reports an input directory without any chapter files.
var ErrNoPDFs = errors.New("pagemap: no PDF files in directory")

// MappingError is the fatal per-file failure. A map missing one file's
// contribution would misreport every subsequent start page, so the whole
// build fails instead of emitting a partial map.
type MappingError struct {
	Filename string
	Cause    error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("pagemap: failed to read page count of %q: %v", e.Filename, e.Cause)
}

func (e *MappingError) Unwrap() error { return e.Cause }

// PageCounter reads the number of pages of one PDF file.
type PageCounter func(path string) (int, error)

// CountPages is the default PageCounter, backed by pdfcpu.
func CountPages(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return api.PageCount(f, nil)
}

const mappingSuffix = "_mapping.json"

// Builder computes and persists page maps.
type Builder struct {
	// Counter may be replaced in tests; nil means CountPages.
	Counter PageCounter
}

// artifact is the on-disk shape of the mapping file, mirroring the
// contract downstream tooling reads.
type artifact struct {
	Basename   string                `json:"basename"`
	TotalFiles int                   `json:"total_files"`
	TotalPages int                   `json:"total_pages"`
	Files      []models.PageMapEntry `json:"files"`
}

// Build scans dir and returns the ordered page map entries plus the
// artifact path the map belongs at. Files are ordered by the lexicographic
// byte sort of their names; that order is authoritative, chapter filenames
// are produced zero-padded so it matches chapter order.
func (b *Builder) Build(dir string) ([]models.PageMapEntry, string, error) {
	pdfs, stem, err := scanDir(dir)
	if err != nil {
		return nil, "", err
	}

	counter := b.Counter
	if counter == nil {
		counter = CountPages
	}

	entries := make([]models.PageMapEntry, 0, len(pdfs))
	startPage := 1
	for _, name := range pdfs {
		count, err := counter(filepath.Join(dir, name))
		if err != nil {
			return nil, "", &MappingError{Filename: name, Cause: err}
		}
		entries = append(entries, models.PageMapEntry{
			Filename:  name,
			PageCount: count,
			StartPage: startPage,
		})
		startPage += count
	}

	return entries, filepath.Join(dir, stem+mappingSuffix), nil
}

// Write persists the map at path, unconditionally overwriting any previous
// artifact: the map always reflects the current file set, never a merge
// with a stale one. Output is deterministic for a fixed entry list.
func (b *Builder) Write(path string, entries []models.PageMapEntry) error {
	totalPages := 0
	for _, e := range entries {
		totalPages += e.PageCount
	}
	stem := strings.TrimSuffix(filepath.Base(path), mappingSuffix)

	data, err := json.MarshalIndent(artifact{
		Basename:   stem,
		TotalFiles: len(entries),
		TotalPages: totalPages,
		Files:      entries,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("pagemap: failed to marshal mapping: %w", err)
	}
	data = append(data, '\n')

	if err := storage.SaveAtomic(path, data); err != nil {
		return fmt.Errorf("pagemap: failed to write mapping artifact: %w", err)
	}
	return nil
}

// BuildAndWrite runs Build then Write and returns the artifact path.
func (b *Builder) BuildAndWrite(dir string) (string, error) {
	entries, path, err := b.Build(dir)
	if err != nil {
		return "", err
	}
	if err := b.Write(path, entries); err != nil {
		return "", err
	}
	return path, nil
}

// scanDir collects the sorted PDF names and the metadata file stem.
func scanDir(dir string) (pdfs []string, stem string, err error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", fmt.Errorf("pagemap: failed to read directory: %w", err)
	}

	var metaStems []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		switch {
		case strings.EqualFold(filepath.Ext(name), ".pdf"):
			pdfs = append(pdfs, name)
		case strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, mappingSuffix):
			metaStems = append(metaStems, strings.TrimSuffix(name, ".json"))
		}
	}

	if len(pdfs) == 0 {
		return nil, "", fmt.Errorf("%w: %s", ErrNoPDFs, dir)
	}
	if len(metaStems) != 1 {
		return nil, "", fmt.Errorf("%w: found %d in %s", ErrNoMetadataFile, len(metaStems), dir)
	}

	sort.Strings(pdfs)
	// The document basename is the metadata stem without its role suffix:
	// "acme_123_metadata.json" names document "acme_123".
	return pdfs, strings.TrimSuffix(metaStems[0], "_metadata"), nil
}
