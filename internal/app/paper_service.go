package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

type PaperSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PaperService lists stored documents, optionally through a short-lived cache.
type PaperService struct {
	store DocumentStore
	cache PaperListCache
	log   zerolog.Logger
}

func NewPaperService(store DocumentStore, cache PaperListCache, log zerolog.Logger) *PaperService {
	return &PaperService{store: store, cache: cache, log: log}
}

func (s *PaperService) List(ctx context.Context) ([]PaperSummary, error) {
	// The generation is read before the store so an upload racing this
	// listing stops it from being cached.
	cacheable := false
	var gen int64
	if s.cache != nil {
		papers, hit, g, err := s.cache.GetPapers(ctx)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Msg("read paper list cache failed")
		case hit:
			return papers, nil
		default:
			cacheable, gen = true, g
		}
	}

	docs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	papers := make([]PaperSummary, 0, len(docs))
	for _, doc := range docs {
		papers = append(papers, PaperSummary{ID: doc.ID, Name: doc.DisplayName()})
	}

	if cacheable {
		if err := s.cache.SetPapers(ctx, papers, gen); err != nil {
			s.log.Warn().Err(err).Msg("write paper list cache failed")
		}
	}
	return papers, nil
}
