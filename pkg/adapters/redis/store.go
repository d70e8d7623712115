package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/schema"
)

// Store implements ports.RunStore using Redis. Each run's records live in a
// LIST (append order is Seq order) and a ZSET indexes runs by start time.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration for recorded runs.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for run records.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "canopy:run:",
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// wireRecord is the stored shape of one step record: bookkeeping fields
// plus the event as a schema envelope.
type wireRecord struct {
	Seq   int             `json:"seq"`
	At    time.Time       `json:"at"`
	Event json.RawMessage `json:"event"`
}

func (s *Store) key(runID string) string {
	return s.prefix + runID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Append adds one record to a run's step log.
func (s *Store) Append(ctx context.Context, rec domain.StepRecord) error {
	envelope, err := schema.Encode(rec.Event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	data, err := json.Marshal(wireRecord{Seq: rec.Seq, At: rec.At, Event: envelope})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, s.key(rec.RunID), data)
	// NX keeps the index score at the run's first record time.
	pipe.ZAddNX(ctx, s.indexKey(), backend.Z{
		Score:  float64(rec.At.UnixNano()),
		Member: rec.RunID,
	})
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(rec.RunID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append to redis: %w", err)
	}
	return nil
}

// List returns a run's records ordered by Seq.
func (s *Store) List(ctx context.Context, runID string) ([]domain.StepRecord, error) {
	raw, err := s.client.LRange(ctx, s.key(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run list: %w", err)
	}
	if len(raw) == 0 {
		return nil, domain.ErrRunNotFound
	}

	records := make([]domain.StepRecord, 0, len(raw))
	for _, item := range raw {
		var wire wireRecord
		if err := json.Unmarshal([]byte(item), &wire); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		ev, err := schema.Decode(wire.Event)
		if err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		records = append(records, domain.StepRecord{
			RunID: runID,
			Seq:   wire.Seq,
			At:    wire.At,
			Event: ev,
		})
	}
	return records, nil
}

// Runs summarizes recorded runs, most recent first. Runs whose record list
// expired are lazily pruned from the index.
func (s *Store) Runs(ctx context.Context) ([]domain.RunInfo, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	infos := make([]domain.RunInfo, 0, len(ids))
	for _, id := range ids {
		count, err := s.client.LLen(ctx, s.key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to count records for %s: %w", id, err)
		}
		if count == 0 {
			// Records expired via TTL; drop the stale index entry.
			s.client.ZRem(ctx, s.indexKey(), id)
			continue
		}
		score, err := s.client.ZScore(ctx, s.indexKey(), id).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read index score for %s: %w", id, err)
		}
		infos = append(infos, domain.RunInfo{
			RunID:     id,
			StartedAt: time.Unix(0, int64(score)).UTC(),
			Events:    int(count),
		})
	}
	return infos, nil
}

// Delete removes a run's records. Deleting an unknown run is not an error.
func (s *Store) Delete(ctx context.Context, runID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(runID))
	pipe.ZRem(ctx, s.indexKey(), runID)
	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
