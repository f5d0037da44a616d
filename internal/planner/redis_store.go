package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/apperr"
	"github.com/Ajinkya-18/social-media-content-automator-sub000/internal/models"
	"github.com/redis/go-redis/v9"
)

// Each failed WATCH means another writer committed, so contention among n
// writers needs at most n attempts.
const redisMaxRetries = 100

// RedisStore keeps each item as JSON in a hash and their order in a list.
// Upserts run inside WATCH/MULTI so concurrent writers retry instead of
// clobbering each other.
type RedisStore struct {
	Client   *redis.Client
	ItemsKey string
	OrderKey string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "planner"
	}
	return &RedisStore{Client: client, ItemsKey: prefix + ":items", OrderKey: prefix + ":order"}
}

// NewRedisClient accepts either a redis:// URL or a bare host:port.
func NewRedisClient(addr string) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opts, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{Addr: addr}), nil
}

func (s *RedisStore) List(ctx context.Context) ([]models.PlannerItem, error) {
	ids, err := s.Client.LRange(ctx, s.OrderKey, 0, -1).Result()
	if err != nil {
		return nil, apperr.NewLocalIO("Failed to read planner", err)
	}
	out := make([]models.PlannerItem, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	vals, err := s.Client.HMGet(ctx, s.ItemsKey, ids...).Result()
	if err != nil {
		return nil, apperr.NewLocalIO("Failed to read planner", err)
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var it models.PlannerItem
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			log.Printf("[Planner][Redis][List] skip corrupt id=%s err=%v", ids[i], err)
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (models.PlannerItem, bool, error) {
	raw, err := s.Client.HGet(ctx, s.ItemsKey, id).Result()
	if errors.Is(err, redis.Nil) {
		return models.PlannerItem{}, false, nil
	}
	if err != nil {
		return models.PlannerItem{}, false, apperr.NewLocalIO("Failed to read planner", err)
	}
	var it models.PlannerItem
	if err := json.Unmarshal([]byte(raw), &it); err != nil {
		return models.PlannerItem{}, false, apperr.NewLocalIO("Failed to read planner", err)
	}
	return it, true, nil
}

func (s *RedisStore) Upsert(ctx context.Context, item models.PlannerItem, fields ...string) (models.PlannerItem, error) {
	item, err := prepare(item)
	if err != nil {
		return item, err
	}
	var stored models.PlannerItem
	txf := func(tx *redis.Tx) error {
		stored = item
		raw, err := tx.HGet(ctx, s.ItemsKey, item.ID).Bytes()
		exists := err == nil
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if exists {
			var old models.PlannerItem
			if json.Unmarshal(raw, &old) == nil {
				stored = merge(old, item, fields)
			}
		}
		b, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, s.ItemsKey, item.ID, b)
			if !exists {
				pipe.RPush(ctx, s.OrderKey, item.ID)
			}
			return nil
		})
		return err
	}

	for i := 0; i < redisMaxRetries; i++ {
		err = s.Client.Watch(ctx, txf, s.ItemsKey)
		if err == nil {
			return stored, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	log.Printf("[Planner][Redis][Upsert] error id=%s err=%v", item.ID, err)
	return item, apperr.NewLocalIO("Failed to save planner item", err)
}

func (s *RedisStore) Delete(ctx context.Context, id string) (bool, error) {
	var removed bool
	txf := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, s.ItemsKey, id).Result()
		if err != nil {
			return err
		}
		removed = exists
		if !exists {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, s.ItemsKey, id)
			pipe.LRem(ctx, s.OrderKey, 1, id)
			return nil
		})
		return err
	}
	var err error
	for i := 0; i < redisMaxRetries; i++ {
		err = s.Client.Watch(ctx, txf, s.ItemsKey)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return false, apperr.NewLocalIO("Failed to delete planner item", err)
	}
	return removed, nil
}
