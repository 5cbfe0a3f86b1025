package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"paperchat/internal/model"
	"paperchat/internal/repository"
)

// idAttempts bounds how many fresh ids are tried when the store reports a collision.
const idAttempts = 2

// IngestionService turns an uploaded document into a stored Document:
// extraction, then embedding, then storage, strictly in that order.
type IngestionService struct {
	extractor TextExtractor
	embedder  EmbeddingGenerator
	store     DocumentStore
	cache     PaperListCache
	metrics   PipelineMetrics
	log       zerolog.Logger

	newID func() string
	now   func() time.Time
}

type IngestInput struct {
	FileName string
	Data     []byte
}

type IngestResult struct {
	DocumentID string                 `json:"documentId"`
	Metadata   model.DocumentMetadata `json:"metadata"`
	TextLength int                    `json:"textLength"`
	Dimensions int                    `json:"dimensions"`
}

// NewIngestionService wires the pipeline. cache and metrics may be nil.
func NewIngestionService(
	extractor TextExtractor,
	embedder EmbeddingGenerator,
	store DocumentStore,
	cache PaperListCache,
	metrics PipelineMetrics,
	log zerolog.Logger,
) *IngestionService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &IngestionService{
		extractor: extractor,
		embedder:  embedder,
		store:     store,
		cache:     cache,
		metrics:   metrics,
		log:       log,
		newID:     newDocumentID,
		now:       time.Now,
	}
}

// Ingest runs the whole pipeline and returns the new document id. Nothing is
// stored unless every stage succeeded. Extraction and embedding are not
// cancelled by the caller going away: once started they run to completion.
func (s *IngestionService) Ingest(ctx context.Context, input IngestInput) (result *IngestResult, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveIngest(ingestOutcome(err), time.Since(start).Seconds())
	}()

	if len(input.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	fileName := cleanFileName(input.FileName)
	log := s.log.With().Str("file_name", fileName).Int("bytes", len(input.Data)).Logger()
	work := context.WithoutCancel(ctx)

	log.Info().Msg("processing upload")
	text, err := s.extractor.Extract(work, input.Data)
	if err != nil {
		log.Error().Err(err).Msg("text extraction failed")
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	if strings.TrimSpace(text) == "" {
		log.Warn().Msg("document has no extractable text")
		return nil, fmt.Errorf("%w: document contains no extractable text", ErrExtraction)
	}

	embedStart := time.Now()
	embedding, err := s.embedder.GenerateEmbedding(work, text)
	if err != nil {
		log.Error().Err(err).Msg("embedding generation failed")
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbedding)
	}
	log.Debug().
		Int("dimensions", len(embedding)).
		Dur("embedding_ms", time.Since(embedStart)).
		Msg("embedding generated")

	doc := model.Document{
		Text: text,
		Metadata: model.DocumentMetadata{
			FileName:   fileName,
			Title:      fileName,
			UploadDate: s.now().UTC().Truncate(time.Millisecond),
		},
		Embedding: embedding,
	}
	if err := s.add(work, &doc); err != nil {
		log.Error().Err(err).Msg("store document failed")
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(work); err != nil {
			log.Warn().Err(err).Msg("invalidate paper list cache failed")
		}
	}

	log.Info().
		Str("document_id", doc.ID).
		Int("text_length", len(text)).
		Dur("elapsed_ms", time.Since(start)).
		Msg("document stored")

	return &IngestResult{
		DocumentID: doc.ID,
		Metadata:   doc.Metadata,
		TextLength: len([]rune(text)),
		Dimensions: len(embedding),
	}, nil
}

func (s *IngestionService) add(ctx context.Context, doc *model.Document) error {
	var err error
	for attempt := 1; attempt <= idAttempts; attempt++ {
		doc.ID = s.newID()
		err = s.store.Add(ctx, *doc)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateID) {
			return fmt.Errorf("store document failed: %w", err)
		}
		s.log.Warn().Str("document_id", doc.ID).Int("attempt", attempt).Msg("document id collision")
	}
	return fmt.Errorf("%w: %w", ErrIngestion, err)
}

func newDocumentID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func cleanFileName(name string) string {
	name = strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	if name == "" || name == "." || name == "/" {
		return "Untitled"
	}
	return name
}

func ingestOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrExtraction):
		return "extraction_error"
	case errors.Is(err, ErrEmbedding):
		return "embedding_error"
	case errors.Is(err, repository.ErrPersistence):
		return "persistence_error"
	default:
		return "error"
	}
}
