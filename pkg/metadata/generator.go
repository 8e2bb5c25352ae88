// Package metadata builds and persists the per-chapter and per-document
// records for a completed fetch run. The document metadata file is written
// before the page map is generated; the map's filename is derived from it.
package metadata

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"ipofetch/internal/common"
	"ipofetch/models"
	"ipofetch/pkg/language"
	"ipofetch/pkg/storage"
)

// ChapterRecord is the persisted record for one fetched chapter.
type ChapterRecord struct {
	DocumentID    string `json:"document_id"`
	CompanyName   string `json:"company_name"`
	ChapterNumber int    `json:"chapter_number"`
	ChapterTitle  string `json:"chapter_title"`
	PDFURL        string `json:"pdf_url"`
	LocalPath     string `json:"local_path"`
	FileSize      int64  `json:"file_size"`
	DownloadTime  string `json:"download_time"`
	Language      string `json:"language"`
}

// DocumentRecord aggregates one document run.
type DocumentRecord struct {
	DocumentID    string          `json:"document_id"`
	CompanyName   string          `json:"company_name"`
	OriginalURL   string          `json:"original_url"`
	Epoch         string          `json:"epoch"`
	TotalChapters int             `json:"total_chapters"`
	DownloadDate  string          `json:"download_date"`
	Language      string          `json:"language"`
	Complete      bool            `json:"complete"`
	ToolVersion   string          `json:"tool_version"`
	Chapters      []ChapterRecord `json:"chapters"`
}

// Generator assembles records. Lang may be nil; language fields are then
// left empty.
type Generator struct {
	Lang *language.Detector
}

// BuildDocument converts a fetch result into the persisted document
// record. Only fetched chapters get chapter records; TotalChapters still
// counts every known chapter.
func (g *Generator) BuildDocument(ref models.DocumentRef, companyName string, total int, result models.DocumentFetchResult) DocumentRecord {
	now := time.Now().Format(time.RFC3339)

	var chapters []ChapterRecord
	for _, o := range result.Fetched() {
		chapters = append(chapters, ChapterRecord{
			DocumentID:    ref.DocumentID,
			CompanyName:   companyName,
			ChapterNumber: o.Chapter.Seq,
			ChapterTitle:  o.Chapter.Title,
			PDFURL:        o.Chapter.SourceURL,
			LocalPath:     o.LocalPath,
			FileSize:      o.ByteSize,
			DownloadTime:  now,
			Language:      g.tag(o.Chapter.Title),
		})
	}

	return DocumentRecord{
		DocumentID:    ref.DocumentID,
		CompanyName:   companyName,
		OriginalURL:   ref.RawURL,
		Epoch:         ref.Epoch.String(),
		TotalChapters: total,
		DownloadDate:  now,
		Language:      g.tag(companyName),
		Complete:      result.Complete,
		ToolVersion:   models.Version,
		Chapters:      chapters,
	}
}

// Save writes the document metadata JSON into dir and returns its path.
// The filename stem ({company}_{documentId}_metadata) is the contract the
// page-map builder derives its artifact name from.
func (g *Generator) Save(rec DocumentRecord, dir string) (string, error) {
	name := fmt.Sprintf("%s_%s_metadata.json",
		common.SanitizeFilename(rec.CompanyName), rec.DocumentID)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("metadata: failed to marshal document record: %w", err)
	}
	data = append(data, '\n')

	if err := storage.SaveAtomic(path, data); err != nil {
		return "", fmt.Errorf("metadata: failed to write %s: %w", name, err)
	}
	return path, nil
}

func (g *Generator) tag(text string) string {
	if g.Lang == nil {
		return ""
	}
	return g.Lang.Tag(text)
}
