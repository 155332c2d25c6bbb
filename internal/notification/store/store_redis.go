package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"internhub/internal/notification/models"
	id "internhub/pkg/domain"
	"internhub/pkg/platform/sentinel"
)

// defaultRetention bounds how long dedup state lives in Redis. Well beyond
// the one-minute fingerprint window; the durable audit copy lives in
// PostgreSQL when both stores are wired.
const defaultRetention = 7 * 24 * time.Hour

// RedisStore keeps notification log entries in Redis. SETNX provides the
// atomic insert-if-absent; secondary keys index entries by id (for status
// updates) and by subject (for listing).
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRetention overrides how long entries are kept.
func WithRetention(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

// NewRedis constructs a Redis-backed notification log store.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, retention: defaultRetention}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InsertIfAbsent atomically inserts the entry unless its uniqueness triple
// already exists. Returns the stored entry and whether this call created it.
func (s *RedisStore) InsertIfAbsent(ctx context.Context, entry models.Entry) (*models.Entry, bool, error) {
	key := tripleRedisKey(entry.SubjectUserID, entry.Kind, entry.Fingerprint)
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, false, fmt.Errorf("marshal notification entry: %w", err)
	}

	created, err := s.client.SetNX(ctx, key, raw, s.retention).Result()
	if err != nil {
		return nil, false, fmt.Errorf("setnx notification entry: %w", err)
	}
	if !created {
		existing, err := s.getByKey(ctx, key)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	// Secondary indexes; failures here leave the dedup record intact.
	pipe := s.client.Pipeline()
	pipe.Set(ctx, idRedisKey(entry.ID), key, s.retention)
	pipe.SAdd(ctx, subjectRedisKey(entry.SubjectUserID), key)
	pipe.Expire(ctx, subjectRedisKey(entry.SubjectUserID), s.retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, false, fmt.Errorf("index notification entry: %w", err)
	}
	return &entry, true, nil
}

// UpdateStatus records the delivery outcome for an existing entry.
func (s *RedisStore) UpdateStatus(ctx context.Context, entryID uuid.UUID, status models.DeliveryStatus) error {
	key, err := s.client.Get(ctx, idRedisKey(entryID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("resolve notification entry: %w", err)
	}
	entry, err := s.getByKey(ctx, key)
	if err != nil {
		return err
	}
	entry.Status = status
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal notification entry: %w", err)
	}
	if err := s.client.Set(ctx, key, raw, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	return nil
}

// ListBySubject returns all retained entries for a subject user.
func (s *RedisStore) ListBySubject(ctx context.Context, subject id.UserID) ([]models.Entry, error) {
	keys, err := s.client.SMembers(ctx, subjectRedisKey(subject)).Result()
	if err != nil {
		return nil, fmt.Errorf("list notification entries: %w", err)
	}
	var out []models.Entry
	for _, key := range keys {
		entry, err := s.getByKey(ctx, key)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue // expired entry still referenced from the index
			}
			return nil, err
		}
		out = append(out, *entry)
	}
	return out, nil
}

func (s *RedisStore) getByKey(ctx context.Context, key string) (*models.Entry, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get notification entry: %w", err)
	}
	var entry models.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal notification entry: %w", err)
	}
	return &entry, nil
}

func tripleRedisKey(subject id.UserID, kind models.EventKind, fingerprint string) string {
	return fmt.Sprintf("notif:entry:%s:%s:%s", subject.String(), kind, fingerprint)
}

func idRedisKey(entryID uuid.UUID) string {
	return "notif:id:" + entryID.String()
}

func subjectRedisKey(subject id.UserID) string {
	return "notif:subject:" + subject.String()
}
