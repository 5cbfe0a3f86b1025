package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"paperchat/internal/model"
	"paperchat/internal/repository"
)

// HistoryService reads past question/answer exchanges for a document. It is
// only available when a history database is configured.
type HistoryService struct {
	store  DocumentStore
	reader ExchangeReader
}

func NewHistoryService(store DocumentStore, reader ExchangeReader) *HistoryService {
	return &HistoryService{store: store, reader: reader}
}

func (s *HistoryService) Enabled() bool {
	return s != nil && s.reader != nil
}

func (s *HistoryService) History(ctx context.Context, documentID string, limit int) ([]model.Exchange, error) {
	if !s.Enabled() {
		return nil, ErrHistoryDisabled
	}
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	if _, err := s.store.Get(ctx, documentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, documentID)
		}
		return nil, fmt.Errorf("load document failed: %w", err)
	}

	exchanges, err := s.reader.ListByDocumentID(ctx, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list exchanges failed: %w", err)
	}
	return exchanges, nil
}
