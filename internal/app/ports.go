package app

import (
	"context"

	"paperchat/internal/ai"
	"paperchat/internal/model"
)

type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
}

type DocumentStore interface {
	Add(ctx context.Context, doc model.Document) error
	Get(ctx context.Context, id string) (*model.Document, error)
	List(ctx context.Context) ([]model.Document, error)
}

type GenerationBackend interface {
	Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error)
	ModelName() string
}

// PaperListCache hands out a generation with every read. SetPapers is a no-op
// when Invalidate ran since that generation was observed.
type PaperListCache interface {
	GetPapers(ctx context.Context) (papers []PaperSummary, hit bool, generation int64, err error)
	SetPapers(ctx context.Context, papers []PaperSummary, generation int64) error
	Invalidate(ctx context.Context) error
}

type ExchangePublisher interface {
	Publish(ctx context.Context, exchange model.Exchange) error
}

type ExchangeReader interface {
	ListByDocumentID(ctx context.Context, documentID string, limit int) ([]model.Exchange, error)
}

// PipelineMetrics receives one observation per finished pipeline call.
type PipelineMetrics interface {
	ObserveIngest(outcome string, seconds float64)
	ObserveAnswer(outcome string, seconds float64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveIngest(string, float64) {}
func (noopMetrics) ObserveAnswer(string, float64) {}
