package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"paperchat/internal/app"
)

const (
	paperListKey    = "papers:list"
	paperListGenKey = "papers:list:gen"
)

// PaperListCache keeps the rendered paper listing in Redis for a short TTL.
// Every invalidation bumps a generation counter; a listing read under an older
// generation is never written back.
type PaperListCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewPaperListCache(client *redisv9.Client, ttl time.Duration) *PaperListCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PaperListCache{client: client, ttl: ttl}
}

func (c *PaperListCache) GetPapers(ctx context.Context) ([]app.PaperSummary, bool, int64, error) {
	vals, err := c.client.MGet(ctx, paperListKey, paperListGenKey).Result()
	if err != nil {
		return nil, false, 0, fmt.Errorf("redis get paper list failed: %w", err)
	}
	gen, err := parseGeneration(vals[1])
	if err != nil {
		return nil, false, 0, err
	}

	raw, ok := vals[0].(string)
	if !ok {
		return nil, false, gen, nil
	}
	papers, err := decodePapers([]byte(raw))
	if err != nil {
		return nil, false, gen, err
	}
	return papers, true, gen, nil
}

// SetPapers stores the listing only while the generation is still gen.
func (c *PaperListCache) SetPapers(ctx context.Context, papers []app.PaperSummary, gen int64) error {
	payload, err := encodePapers(papers)
	if err != nil {
		return err
	}

	err = c.client.Watch(ctx, func(tx *redisv9.Tx) error {
		current, err := tx.Get(ctx, paperListGenKey).Result()
		if err != nil && !errors.Is(err, redisv9.Nil) {
			return err
		}
		now, err := parseGeneration(current)
		if err != nil {
			return err
		}
		if now != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
			pipe.Set(ctx, paperListKey, payload, c.ttl)
			return nil
		})
		return err
	}, paperListGenKey)
	if errors.Is(err, errStaleGeneration) || errors.Is(err, redisv9.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis set paper list failed: %w", err)
	}
	return nil
}

func (c *PaperListCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Incr(ctx, paperListGenKey)
		pipe.Del(ctx, paperListKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis invalidate paper list failed: %w", err)
	}
	return nil
}

var errStaleGeneration = errors.New("paper list generation changed")

// parseGeneration reads the counter as returned by GET or MGET; a missing key is generation 0.
func parseGeneration(v any) (int64, error) {
	var raw string
	switch t := v.(type) {
	case nil:
		return 0, nil
	case string:
		raw = t
	default:
		return 0, fmt.Errorf("unexpected paper list generation type %T", v)
	}
	if raw == "" {
		return 0, nil
	}
	gen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse paper list generation failed: %w", err)
	}
	return gen, nil
}

func encodePapers(papers []app.PaperSummary) ([]byte, error) {
	if papers == nil {
		papers = []app.PaperSummary{}
	}
	payload, err := json.Marshal(papers)
	if err != nil {
		return nil, fmt.Errorf("marshal paper list cache failed: %w", err)
	}
	return payload, nil
}

func decodePapers(raw []byte) ([]app.PaperSummary, error) {
	var papers []app.PaperSummary
	if err := json.Unmarshal(raw, &papers); err != nil {
		return nil, fmt.Errorf("unmarshal cached paper list failed: %w", err)
	}
	if papers == nil {
		papers = []app.PaperSummary{}
	}
	return papers, nil
}
