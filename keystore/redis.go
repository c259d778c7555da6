package keystore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore keeps each record in a hash and maintains an email -> key index.
// Usage counters are per-month hash fields bumped with HIncrBy, so concurrent
// increments are atomic on the server side.
type redisStore struct {
	client *redis.Client
	prefix string
}

func (s *redisStore) recordKey(key string) string {
	return s.prefix + ":key:" + key
}

func (s *redisStore) emailKey(email string) string {
	return s.prefix + ":email:" + normalizeEmail(email)
}

func (s *redisStore) Validate(ctx context.Context, key string) (*Record, error) {
	fields, err := s.client.HGetAll(ctx, s.recordKey(key)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrKeyNotFound
	}
	return recordFromFields(key, fields), nil
}

func (s *redisStore) RecordUsage(ctx context.Context, key string) error {
	recordKey := s.recordKey(key)
	exists, err := s.client.Exists(ctx, recordKey).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrKeyNotFound
	}
	return s.client.HIncrBy(ctx, recordKey, usageField(MonthKey(time.Now())), 1).Err()
}

func (s *redisStore) Create(ctx context.Context, name, email, tier string) (*Record, error) {
	record := &Record{
		Key:       NewKey(),
		Name:      name,
		Email:     normalizeEmail(email),
		Tier:      tier,
		Usage:     make(map[string]int64),
		CreatedAt: time.Now().UTC(),
	}
	// The email index is the uniqueness anchor: claim it first.
	claimed, err := s.client.SetNX(ctx, s.emailKey(email), record.Key, 0).Result()
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrEmailExists
	}
	err = s.client.HSet(ctx, s.recordKey(record.Key),
		"name", record.Name,
		"email", record.Email,
		"tier", record.Tier,
		"created", record.CreatedAt.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (s *redisStore) GetByEmail(ctx context.Context, email string) (*Record, error) {
	key, err := s.client.Get(ctx, s.emailKey(email)).Result()
	if err == redis.Nil {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.Validate(ctx, key)
}

func (s *redisStore) Upgrade(ctx context.Context, email, tier string) error {
	key, err := s.client.Get(ctx, s.emailKey(email)).Result()
	if err == redis.Nil {
		return ErrKeyNotFound
	}
	if err != nil {
		return err
	}
	return s.client.HSet(ctx, s.recordKey(key), "tier", tier).Err()
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

func usageField(month string) string {
	return "usage:" + month
}

func recordFromFields(key string, fields map[string]string) *Record {
	record := &Record{
		Key:   key,
		Name:  fields["name"],
		Email: fields["email"],
		Tier:  fields["tier"],
		Usage: make(map[string]int64),
	}
	if created, err := time.Parse(time.RFC3339Nano, fields["created"]); err == nil {
		record.CreatedAt = created
	}
	for field, value := range fields {
		if !strings.HasPrefix(field, "usage:") {
			continue
		}
		count, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		record.Usage[strings.TrimPrefix(field, "usage:")] = count
	}
	return record
}
