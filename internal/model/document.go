package model

import "time"

// DocumentMetadata is the display information captured at upload time.
type DocumentMetadata struct {
	FileName   string    `json:"fileName"`
	Title      string    `json:"title"`
	UploadDate time.Time `json:"upload_date"`
}

// Document is an ingested paper: extracted text plus its embedding.
// Embedding is stored alongside the text but retrieval is by ID only.
type Document struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	Metadata  DocumentMetadata `json:"metadata"`
	Embedding []float64        `json:"embedding,omitempty"`
}

// Clone returns a deep copy so callers never share the store's slices.
func (d Document) Clone() Document {
	out := d
	if d.Embedding != nil {
		out.Embedding = make([]float64, len(d.Embedding))
		copy(out.Embedding, d.Embedding)
	}
	return out
}

// DisplayName is the name shown in paper listings.
func (d Document) DisplayName() string {
	if d.Metadata.FileName != "" {
		return d.Metadata.FileName
	}
	if d.Metadata.Title != "" {
		return d.Metadata.Title
	}
	return "Unknown"
}
