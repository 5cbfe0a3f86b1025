package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"paperchat/internal/model"
)

// ExchangeRepository stores answered questions in MySQL.
type ExchangeRepository struct {
	db *gorm.DB
}

func NewExchangeRepository(db *gorm.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

func (r *ExchangeRepository) Create(ctx context.Context, exchange *model.Exchange) error {
	if err := r.db.WithContext(ctx).Create(exchange).Error; err != nil {
		return fmt.Errorf("create exchange failed: %w", err)
	}
	return nil
}

// ListByDocumentID returns the latest exchanges for a document, oldest first.
func (r *ExchangeRepository) ListByDocumentID(ctx context.Context, documentID string, limit int) ([]model.Exchange, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var exchanges []model.Exchange
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&exchanges).Error; err != nil {
		return nil, fmt.Errorf("list exchanges failed: %w", err)
	}

	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}
	return exchanges, nil
}
