package app

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrExtraction       = errors.New("text extraction failed")
	ErrEmbedding        = errors.New("embedding generation failed")
	ErrIngestion        = errors.New("document ingestion failed")
	ErrDocumentNotFound = errors.New("document not found")
	ErrGeneration       = errors.New("answer generation failed")
	ErrHistoryDisabled  = errors.New("exchange history is disabled")
)
