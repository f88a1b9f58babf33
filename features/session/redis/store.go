// Package redis parks workflow runs that await user input. Each run is stored
// as JSON under a per-run key with a TTL so abandoned runs expire on their
// own.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"goa.design/clue/health"

	"github.com/presswerk/presswerk/runtime/workflow"
)

const (
	defaultKeyPrefix = "presswerk:run:"
	defaultTTL       = 24 * time.Hour
	sessionStoreName = "session-redis"
)

// ErrRunNotFound is returned when no parked state exists for a run ID.
var ErrRunNotFound = errors.New("run not found")

type (
	// Run is the parked unit: the immutable input alongside the state the
	// workflow paused in. Both are needed to resume.
	Run struct {
		Input *workflow.Input `json:"input"`
		State *workflow.State `json:"state"`
	}

	// Store persists workflow states in Redis.
	Store struct {
		rdb    goredis.UniversalClient
		prefix string
		ttl    time.Duration
	}

	// Options configures the Redis store.
	Options struct {
		Client goredis.UniversalClient

		// KeyPrefix namespaces the run keys. Defaults to "presswerk:run:".
		KeyPrefix string

		// TTL bounds how long a parked run stays resumable. Defaults to 24h.
		TTL time.Duration
	}
)

var _ health.Pinger = (*Store)(nil)

// New returns a Redis-backed run store.
func New(opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{rdb: opts.Client, prefix: prefix, ttl: ttl}, nil
}

func (s *Store) Name() string { return sessionStoreName }

func (s *Store) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.rdb.Ping(ctx).Err()
}

// Save parks a run under its run ID, refreshing the TTL.
func (s *Store) Save(ctx context.Context, run *Run) error {
	if run == nil || run.State == nil || run.State.RunID == "" {
		return errors.New("run with state and run id is required")
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	return s.rdb.Set(ctx, s.key(run.State.RunID), data, s.ttl).Err()
}

// Load retrieves a parked run by run ID.
func (s *Store) Load(ctx context.Context, runID string) (*Run, error) {
	if runID == "" {
		return nil, errors.New("run id is required")
	}
	data, err := s.rdb.Get(ctx, s.key(runID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	var run Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run: %w", err)
	}
	return &run, nil
}

// Delete removes a parked state, typically after the run completed.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if runID == "" {
		return errors.New("run id is required")
	}
	return s.rdb.Del(ctx, s.key(runID)).Err()
}

func (s *Store) key(runID string) string { return s.prefix + runID }
