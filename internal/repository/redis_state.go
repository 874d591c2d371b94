// Package repository holds the concrete adapters behind the domain
// interfaces: the Redis state store and the audit sinks.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bwight-dev/turtle-trader-sub001/internal/domain/models"
	domrepo "github.com/bwight-dev/turtle-trader-sub001/internal/domain/repository"
)

// Redis key layout. Positions and last outcomes are hashes keyed by the
// (market, system) slot; the account is a single JSON value.
const (
	keyPositions = "turtle:positions"
	keyOutcomes  = "turtle:outcomes"
	keyAccount   = "turtle:account"
)

// RedisOption configures RedisStateStore.
type RedisOption func(*redisConfig)

type redisConfig struct {
	addr     string
	password string
	db       int
	poolSize int
}

// WithAddr sets the Redis address.
func WithAddr(addr string) RedisOption {
	return func(c *redisConfig) {
		c.addr = addr
	}
}

// WithPassword sets the Redis password.
func WithPassword(password string) RedisOption {
	return func(c *redisConfig) {
		c.password = password
	}
}

// WithDB selects the Redis database.
func WithDB(db int) RedisOption {
	return func(c *redisConfig) {
		c.db = db
	}
}

// WithPoolSize sets the connection pool size.
func WithPoolSize(n int) RedisOption {
	return func(c *redisConfig) {
		c.poolSize = n
	}
}

// RedisStateStore implements StateStore on Redis. Every state transition is
// written through immediately, so a restart resumes from the last completed
// transition.
type RedisStateStore struct {
	client *redis.Client
}

var _ domrepo.StateStore = (*RedisStateStore)(nil)

// NewRedisStateStore connects and pings Redis.
func NewRedisStateStore(opts ...RedisOption) (*RedisStateStore, error) {
	cfg := &redisConfig{
		addr:     "localhost:6379",
		poolSize: 10,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.addr,
		Password: cfg.password,
		DB:       cfg.db,
		PoolSize: cfg.poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStateStore{client: client}, nil
}

func (s *RedisStateStore) LoadPositions(ctx context.Context) ([]*models.Position, error) {
	entries, err := s.client.HGetAll(ctx, keyPositions).Result()
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	out := make([]*models.Position, 0, len(entries))
	for key, raw := range entries {
		var p models.Position
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("decode position %s: %w", key, err)
		}
		out = append(out, &p)
	}
	return out, nil
}

func (s *RedisStateStore) SavePosition(ctx context.Context, p *models.Position) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode position %s: %w", p.Key(), err)
	}
	if err := s.client.HSet(ctx, keyPositions, p.Key(), raw).Err(); err != nil {
		return fmt.Errorf("save position %s: %w", p.Key(), err)
	}
	return nil
}

func (s *RedisStateStore) DeletePosition(ctx context.Context, market string, system models.System) error {
	key := models.PositionKey(market, system)
	if err := s.client.HDel(ctx, keyPositions, key).Err(); err != nil {
		return fmt.Errorf("delete position %s: %w", key, err)
	}
	return nil
}

func (s *RedisStateStore) LoadAccount(ctx context.Context) (*models.Account, error) {
	raw, err := s.client.Get(ctx, keyAccount).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load account: %w", err)
	}
	var a models.Account
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &a, nil
}

func (s *RedisStateStore) SaveAccount(ctx context.Context, a *models.Account) error {
	raw, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode account: %w", err)
	}
	if err := s.client.Set(ctx, keyAccount, raw, 0).Err(); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

// LoadOutcomes returns the latest outcome per (market, system) slot; that is
// all the S1 filter ever consults.
func (s *RedisStateStore) LoadOutcomes(ctx context.Context) ([]models.TradeOutcome, error) {
	entries, err := s.client.HGetAll(ctx, keyOutcomes).Result()
	if err != nil {
		return nil, fmt.Errorf("load outcomes: %w", err)
	}
	out := make([]models.TradeOutcome, 0, len(entries))
	for key, raw := range entries {
		var o models.TradeOutcome
		if err := json.Unmarshal([]byte(raw), &o); err != nil {
			return nil, fmt.Errorf("decode outcome %s: %w", key, err)
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *RedisStateStore) SaveOutcome(ctx context.Context, o models.TradeOutcome) error {
	key := models.PositionKey(o.Market, o.System)
	raw, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode outcome %s: %w", key, err)
	}
	if err := s.client.HSet(ctx, keyOutcomes, key, raw).Err(); err != nil {
		return fmt.Errorf("save outcome %s: %w", key, err)
	}
	return nil
}

func (s *RedisStateStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStateStore) Close() error {
	return s.client.Close()
}
