package domain

import (
	"fmt"
	"time"
)

type Document struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"case_id"`
	Party       Party     `json:"party"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	PageCount   int       `json:"page_count"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// Page is the extracted text of one page; Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Extraction is the per-page text of one file. PageCount includes pages
// that had no text and are absent from Pages.
type Extraction struct {
	Pages     []Page
	PageCount int
}

// Chunk is a contiguous span of one page of one document.
// StartChar and EndChar index into ParentText.
type Chunk struct {
	ID           string `json:"chunk_id"`
	DocumentID   string `json:"doc_id"`
	CaseID       string `json:"case_id"`
	Party        Party  `json:"party"`
	Filename     string `json:"filename"`
	Page         int    `json:"page"`
	StartChar    int    `json:"start_char"`
	EndChar      int    `json:"end_char"`
	Text         string `json:"text"`
	ParentText   string `json:"parent_text,omitempty"`
	SectionTitle string `json:"section_title,omitempty"`
}

func ChunkID(documentID string, page, start, end int) string {
	return fmt.Sprintf("%s:%d:%d-%d", documentID, page, start, end)
}

// GenerationText is the text handed to the generator for this chunk.
func (c Chunk) GenerationText() string {
	if c.ParentText != "" {
		return c.ParentText
	}
	return c.Text
}
