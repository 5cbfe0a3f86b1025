package model

import "time"

// Exchange is one answered question, kept for the per-document history.
type Exchange struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID string    `gorm:"size:64;not null;index" json:"document_id"`
	Question   string    `gorm:"type:text;not null" json:"question"`
	Answer     string    `gorm:"type:longtext;not null" json:"answer"`
	Model      string    `gorm:"size:128" json:"model"`
	CreatedAt  time.Time `json:"created_at"`
}
