package payout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// lockTTL bounds how long a crashed submit can block its workflow.
const lockTTL = time.Minute

// releaseLock deletes the lock only while it still carries the caller's token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Store persists workflows between requests.
type Store interface {
	Load(ctx context.Context, sessionID string, sellerID int64) (*Workflow, error)
	Save(ctx context.Context, sessionID string, w *Workflow) error
	Lock(ctx context.Context, sessionID string, sellerID int64) (func(), error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// RedisStore keeps one JSON workflow per session and seller.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore whose entries expire after ttl of inactivity.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func workflowKey(sessionID string, sellerID int64) string {
	return fmt.Sprintf("payout:%s:%d", sessionID, sellerID)
}

func lockKey(sessionID string, sellerID int64) string {
	return fmt.Sprintf("payout:%s:%d:lock", sessionID, sellerID)
}

// Load returns the stored workflow or a fresh idle one.
func (s *RedisStore) Load(ctx context.Context, sessionID string, sellerID int64) (*Workflow, error) {
	data, err := s.client.Get(ctx, workflowKey(sessionID, sellerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return NewWorkflow(sellerID), nil
		}
		return nil, fmt.Errorf("payout: load workflow: %w", err)
	}
	var w Workflow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("payout: decode workflow: %w", err)
	}
	if w.Selected == nil {
		w.Selected = []int64{}
	}
	return &w, nil
}

// Save writes the workflow and refreshes its expiry.
func (s *RedisStore) Save(ctx context.Context, sessionID string, w *Workflow) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("payout: encode workflow: %w", err)
	}
	if err := s.client.Set(ctx, workflowKey(sessionID, w.SellerID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("payout: save workflow: %w", err)
	}
	return nil
}

// Lock takes the per-workflow lock held by every write. ErrSubmitting is
// returned when another request holds it. The lock expires after lockTTL, and
// the release never drops a lock taken by someone else after that.
func (s *RedisStore) Lock(ctx context.Context, sessionID string, sellerID int64) (func(), error) {
	key := lockKey(sessionID, sellerID)
	owner := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key, owner, lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("payout: lock: %w", err)
	}
	if !ok {
		return nil, ErrSubmitting
	}
	return func() {
		_ = releaseLock.Run(context.WithoutCancel(ctx), s.client, []string{key}, owner).Err()
	}, nil
}

// DeleteSession drops every workflow of a session, used on logout.
func (s *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	iter := s.client.Scan(ctx, 0, "payout:"+sessionID+":*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("payout: scan session: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("payout: delete session: %w", err)
	}
	return nil
}
