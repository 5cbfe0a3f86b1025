package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"paperchat/internal/ai"
	"paperchat/internal/model"
	"paperchat/internal/repository"
)

type QueryConfig struct {
	MaxContextLength int
	Timeout          time.Duration
	Options          ai.GenerateOptions
}

// QueryService answers a question about one stored document. Every call reads
// the document and calls the backend; answers are never cached.
type QueryService struct {
	store     DocumentStore
	backend   GenerationBackend
	publisher ExchangePublisher
	metrics   PipelineMetrics
	log       zerolog.Logger
	cfg       QueryConfig
}

type AnswerInput struct {
	DocumentID string
	Question   string
}

type AnswerMetadata struct {
	DocumentName string `json:"documentName"`
	Model        string `json:"model"`
}

type AnswerResult struct {
	Answer   string         `json:"answer"`
	Metadata AnswerMetadata `json:"metadata"`
}

// NewQueryService builds the query pipeline. publisher and metrics may be nil.
func NewQueryService(
	store DocumentStore,
	backend GenerationBackend,
	publisher ExchangePublisher,
	metrics PipelineMetrics,
	log zerolog.Logger,
	cfg QueryConfig,
) *QueryService {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &QueryService{
		store:     store,
		backend:   backend,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		cfg:       cfg,
	}
}

func (s *QueryService) Answer(ctx context.Context, input AnswerInput) (result *AnswerResult, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveAnswer(answerOutcome(err), time.Since(start).Seconds())
	}()

	documentID := strings.TrimSpace(input.DocumentID)
	question := strings.TrimSpace(input.Question)
	if documentID == "" || question == "" {
		return nil, fmt.Errorf("%w: question and document id are required", ErrInvalidInput)
	}

	doc, err := s.store.Get(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
		}
		return nil, fmt.Errorf("load document failed: %w", err)
	}

	prompt := BuildPrompt(doc.Text, question, s.cfg.MaxContextLength)
	log := s.log.With().Str("document_id", documentID).Logger()
	log.Debug().
		Int("context_length", len([]rune(prompt.Context))).
		Bool("truncated", prompt.Context != doc.Text).
		Msg("prompt assembled")

	genCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	answer, err := s.backend.Generate(genCtx, prompt.String(), s.cfg.Options)
	if err != nil {
		log.Error().Err(err).Dur("elapsed_ms", time.Since(start)).Msg("generation failed")
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: backend returned an empty answer", ErrGeneration)
	}

	modelName := s.backend.ModelName()
	s.publish(ctx, log, model.Exchange{
		DocumentID: documentID,
		Question:   question,
		Answer:     answer,
		Model:      modelName,
	})

	log.Info().Int("answer_length", len(answer)).Dur("elapsed_ms", time.Since(start)).Msg("answer generated")
	return &AnswerResult{
		Answer: answer,
		Metadata: AnswerMetadata{
			DocumentName: doc.DisplayName(),
			Model:        modelName,
		},
	}, nil
}

// publish hands the exchange to the history pipeline. A failure here never
// fails the answer.
func (s *QueryService) publish(ctx context.Context, log zerolog.Logger, exchange model.Exchange) {
	if s.publisher == nil {
		return
	}
	exchange.CreatedAt = time.Now()
	if err := s.publisher.Publish(context.WithoutCancel(ctx), exchange); err != nil {
		log.Warn().Err(err).Msg("publish exchange failed")
	}
}

func answerOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDocumentNotFound):
		return "not_found"
	case errors.Is(err, ErrGeneration):
		return "generation_error"
	default:
		return "error"
	}
}
