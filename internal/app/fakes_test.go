package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"paperchat/internal/ai"
	"paperchat/internal/model"
	"paperchat/internal/repository"
)

type fakeExtractor struct {
	text  string
	err   error
	calls int
	ctx   context.Context
}

func (f *fakeExtractor) Extract(ctx context.Context, _ []byte) (string, error) {
	f.calls++
	f.ctx = ctx
	return f.text, f.err
}

type fakeEmbedder struct {
	vector []float64
	err    error
	calls  int
	text   string
}

func (f *fakeEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float64, error) {
	f.calls++
	f.text = text
	return f.vector, f.err
}

// memStore mirrors the repository store contract without touching disk.
type memStore struct {
	mu     sync.Mutex
	docs   map[string]model.Document
	order  []string
	addErr error
	gets   int
}

func newMemStore(docs ...model.Document) *memStore {
	s := &memStore{docs: make(map[string]model.Document)}
	for _, d := range docs {
		s.docs[d.ID] = d
		s.order = append(s.order, d.ID)
	}
	return s
}

func (s *memStore) Add(_ context.Context, doc model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return s.addErr
	}
	if _, ok := s.docs[doc.ID]; ok {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateID, doc.ID)
	}
	s.docs[doc.ID] = doc.Clone()
	s.order = append(s.order, doc.ID)
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (*model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrNotFound, id)
	}
	cp := doc.Clone()
	return &cp, nil
}

func (s *memStore) List(_ context.Context) ([]model.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.docs[id].Clone())
	}
	return out, nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

type fakeBackend struct {
	answer  string
	err     error
	model   string
	prompts []string
	opts    ai.GenerateOptions
	block   bool
}

func (f *fakeBackend) Generate(ctx context.Context, prompt string, opts ai.GenerateOptions) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.opts = opts
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.answer, f.err
}

func (f *fakeBackend) ModelName() string {
	if f.model == "" {
		return "fake-model"
	}
	return f.model
}

type fakeCache struct {
	papers      []PaperSummary
	hit         bool
	getErr      error
	gen         int64
	sets        int
	staleSets   int
	invalidated int
	// beforeSet runs ahead of the write-back, to interleave another caller.
	beforeSet func()
}

func (f *fakeCache) GetPapers(context.Context) ([]PaperSummary, bool, int64, error) {
	return f.papers, f.hit, f.gen, f.getErr
}

func (f *fakeCache) SetPapers(_ context.Context, papers []PaperSummary, gen int64) error {
	if hook := f.beforeSet; hook != nil {
		f.beforeSet = nil
		hook()
	}
	if gen != f.gen {
		f.staleSets++
		return nil
	}
	f.sets++
	f.papers = papers
	f.hit = true
	return nil
}

func (f *fakeCache) Invalidate(context.Context) error {
	f.invalidated++
	f.gen++
	f.papers = nil
	f.hit = false
	return nil
}

type fakePublisher struct {
	published []model.Exchange
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, exchange model.Exchange) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, exchange)
	return nil
}

type fakeReader struct {
	exchanges []model.Exchange
	err       error
	limit     int
}

func (f *fakeReader) ListByDocumentID(_ context.Context, _ string, limit int) ([]model.Exchange, error) {
	f.limit = limit
	return f.exchanges, f.err
}

type fakeMetrics struct {
	ingest []string
	answer []string
}

func (f *fakeMetrics) ObserveIngest(outcome string, _ float64) { f.ingest = append(f.ingest, outcome) }
func (f *fakeMetrics) ObserveAnswer(outcome string, _ float64) { f.answer = append(f.answer, outcome) }

var errBoom = errors.New("boom")
