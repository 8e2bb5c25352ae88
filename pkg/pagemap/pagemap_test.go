package pagemap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// writeDocDir lays out a downloaded document directory: the chapter PDFs
// (content is irrelevant, the counter is injected) plus one metadata file.
func writeDocDir(t *testing.T, chapters int) string {
	t.Helper()
	dir := t.TempDir()
	for i := 1; i <= chapters; i++ {
		name := fmt.Sprintf("acme_10123456_chapter_%02d_title.pdf", i)
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	meta := filepath.Join(dir, "acme_10123456_metadata.json")
	if err := os.WriteFile(meta, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

// fixedCounter returns scripted page counts keyed by filename.
func fixedCounter(counts map[string]int) PageCounter {
	return func(path string) (int, error) {
		n, ok := counts[filepath.Base(path)]
		if !ok {
			return 0, fmt.Errorf("unexpected file %s", path)
		}
		return n, nil
	}
}

func TestBuild_CumulativeStartPages(t *testing.T) {
	dir := writeDocDir(t, 3)
	b := &Builder{Counter: fixedCounter(map[string]int{
		"acme_10123456_chapter_01_title.pdf": 2,
		"acme_10123456_chapter_02_title.pdf": 10,
		"acme_10123456_chapter_03_title.pdf": 25,
	})}

	entries, path, err := b.Build(dir)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	wantStarts := []int{1, 3, 13}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		if e.StartPage != wantStarts[i] {
			t.Errorf("entry %d: StartPage = %d, want %d", i, e.StartPage, wantStarts[i])
		}
	}
	if want := filepath.Join(dir, "acme_10123456_mapping.json"); path != want {
		t.Errorf("artifact path = %q, want %q", path, want)
	}
}

func TestBuild_OrderIsLexicographic(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.pdf", "a.pdf", "c.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("%PDF"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "doc_metadata.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	b := &Builder{Counter: fixedCounter(map[string]int{"a.pdf": 1, "b.pdf": 1, "c.pdf": 1})}
	entries, _, err := b.Build(dir)
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	for i, want := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if entries[i].Filename != want {
			t.Errorf("entry %d: Filename = %q, want %q", i, entries[i].Filename, want)
		}
	}
}

func TestBuild_FailsAtomicallyOnUnreadablePDF(t *testing.T) {
	dir := writeDocDir(t, 3)
	b := &Builder{Counter: func(path string) (int, error) {
		if filepath.Base(path) == "acme_10123456_chapter_02_title.pdf" {
			return 0, errors.New("corrupt xref table")
		}
		return 5, nil
	}}

	_, err := b.BuildAndWrite(dir)
	if err == nil {
		t.Fatal("BuildAndWrite() succeeded with a corrupt PDF")
	}
	var mapErr *MappingError
	if !errors.As(err, &mapErr) {
		t.Fatalf("error %v is not a MappingError", err)
	}
	if mapErr.Filename != "acme_10123456_chapter_02_title.pdf" {
		t.Errorf("Filename = %q", mapErr.Filename)
	}

	// No partial artifact may exist.
	if _, statErr := os.Stat(filepath.Join(dir, "acme_10123456_mapping.json")); !os.IsNotExist(statErr) {
		t.Error("partial mapping artifact written despite failure")
	}
}

func TestBuildAndWrite_IdempotentOverwrite(t *testing.T) {
	dir := writeDocDir(t, 2)
	b := &Builder{Counter: fixedCounter(map[string]int{
		"acme_10123456_chapter_01_title.pdf": 4,
		"acme_10123456_chapter_02_title.pdf": 7,
	})}

	path1, err := b.BuildAndWrite(dir)
	if err != nil {
		t.Fatalf("first BuildAndWrite() failed: %v", err)
	}
	first, err := os.ReadFile(path1)
	if err != nil {
		t.Fatal(err)
	}

	path2, err := b.BuildAndWrite(dir)
	if err != nil {
		t.Fatalf("second BuildAndWrite() failed: %v", err)
	}
	second, err := os.ReadFile(path2)
	if err != nil {
		t.Fatal(err)
	}

	if path1 != path2 {
		t.Errorf("artifact paths differ: %q vs %q", path1, path2)
	}
	if string(first) != string(second) {
		t.Error("repeated builds over unchanged input produced different artifacts")
	}
}

func TestBuildAndWrite_ArtifactShape(t *testing.T) {
	dir := writeDocDir(t, 2)
	b := &Builder{Counter: fixedCounter(map[string]int{
		"acme_10123456_chapter_01_title.pdf": 4,
		"acme_10123456_chapter_02_title.pdf": 7,
	})}

	path, err := b.BuildAndWrite(dir)
	if err != nil {
		t.Fatalf("BuildAndWrite() failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var got artifact
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if got.Basename != "acme_10123456" {
		t.Errorf("basename = %q", got.Basename)
	}
	if got.TotalFiles != 2 {
		t.Errorf("total_files = %d, want 2", got.TotalFiles)
	}
	if got.TotalPages != 11 {
		t.Errorf("total_pages = %d, want 11", got.TotalPages)
	}
	if len(got.Files) != 2 || got.Files[1].StartPage != 5 {
		t.Errorf("files = %+v", got.Files)
	}
}

func TestBuild_DirectoryPreconditions(t *testing.T) {
	t.Run("no PDFs", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, "doc_metadata.json"), []byte("{}"), 0o644)

		b := &Builder{}
		_, _, err := b.Build(dir)
		if !errors.Is(err, ErrNoPDFs) {
			t.Errorf("error = %v, want ErrNoPDFs", err)
		}
	})

	t.Run("no metadata file", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF"), 0o644)

		b := &Builder{}
		_, _, err := b.Build(dir)
		if !errors.Is(err, ErrNoMetadataFile) {
			t.Errorf("error = %v, want ErrNoMetadataFile", err)
		}
	})

	t.Run("two metadata files", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF"), 0o644)
		os.WriteFile(filepath.Join(dir, "one_metadata.json"), []byte("{}"), 0o644)
		os.WriteFile(filepath.Join(dir, "two_metadata.json"), []byte("{}"), 0o644)

		b := &Builder{}
		_, _, err := b.Build(dir)
		if !errors.Is(err, ErrNoMetadataFile) {
			t.Errorf("error = %v, want ErrNoMetadataFile", err)
		}
	})

	t.Run("existing mapping artifact ignored", func(t *testing.T) {
		dir := writeDocDir(t, 1)
		os.WriteFile(filepath.Join(dir, "acme_10123456_mapping.json"), []byte("{}"), 0o644)

		b := &Builder{Counter: fixedCounter(map[string]int{"acme_10123456_chapter_01_title.pdf": 3})}
		if _, _, err := b.Build(dir); err != nil {
			t.Errorf("Build() failed with a previous mapping present: %v", err)
		}
	})
}
