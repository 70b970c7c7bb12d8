package services

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/beeseek/beeseek-go/errors"
	"github.com/beeseek/beeseek-go/models"
)

const resultKeyPrefix = "swap:result:"

// ResultStore holds the terminal SwapResult per idempotency key. Writes are
// write-once: the first result recorded for a key wins and every later write
// or read observes it unchanged.
type ResultStore interface {
	GetResult(ctx context.Context, key string) (*models.SwapResult, error)
	PutResult(ctx context.Context, key string, result *models.SwapResult) (*models.SwapResult, error)
}

func NewResultStore(rdb *redis.Client, log *zap.Logger) ResultStore {
	return &resultStore{rdb: rdb, log: log}
}

type resultStore struct {
	rdb *redis.Client
	log *zap.Logger
}

func (s *resultStore) GetResult(ctx context.Context, key string) (*models.SwapResult, error) {
	data, err := s.rdb.Get(ctx, resultKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInfrastructureError(err)
	}

	result := &models.SwapResult{}
	if err := json.Unmarshal(data, result); err != nil {
		return nil, errors.NewInfrastructureError(err)
	}
	return result, nil
}

func (s *resultStore) PutResult(ctx context.Context, key string, result *models.SwapResult) (*models.SwapResult, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, errors.NewInfrastructureError(err)
	}

	// results never expire; a key identifies one logical intent forever
	set, err := s.rdb.SetNX(ctx, resultKeyPrefix+key, data, 0).Result()
	if err != nil {
		return nil, errors.NewInfrastructureError(err)
	}
	if set {
		return result, nil
	}

	// lost the race; the stored result is authoritative
	stored, err := s.GetResult(ctx, key)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.NewInfrastructureError(errors.NewFailedDependencyError("result record vanished"))
	}
	return stored, nil
}
