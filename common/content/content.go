package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("content not found")

// Store holds arbitrary JSON documents grouped by section.
type Store interface {
	Get(ctx context.Context, section, key string) (json.RawMessage, error)
	List(ctx context.Context, section string) (map[string]json.RawMessage, error)
	Put(ctx context.Context, section, key string, doc json.RawMessage) error
	Delete(ctx context.Context, section, key string) error
}

// RedisStore keeps one hash per section at "<prefix>:<section>".
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "glitz:content"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Connect dials Redis and pings it once.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) hashKey(section string) string {
	return s.prefix + ":" + section
}

func (s *RedisStore) Get(ctx context.Context, section, key string) (json.RawMessage, error) {
	if err := checkName(section, key); err != nil {
		return nil, err
	}
	val, err := s.client.HGet(ctx, s.hashKey(section), key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("hget %s/%s: %w", section, key, err)
	}
	return json.RawMessage(val), nil
}

func (s *RedisStore) List(ctx context.Context, section string) (map[string]json.RawMessage, error) {
	if err := checkName(section, "list"); err != nil {
		return nil, err
	}
	vals, err := s.client.HGetAll(ctx, s.hashKey(section)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", section, err)
	}
	out := make(map[string]json.RawMessage, len(vals))
	for k, v := range vals {
		out[k] = json.RawMessage(v)
	}
	return out, nil
}

func (s *RedisStore) Put(ctx context.Context, section, key string, doc json.RawMessage) error {
	if err := checkName(section, key); err != nil {
		return err
	}
	if !json.Valid(doc) {
		return fmt.Errorf("document for %s/%s is not valid JSON", section, key)
	}
	if err := s.client.HSet(ctx, s.hashKey(section), key, string(doc)).Err(); err != nil {
		return fmt.Errorf("hset %s/%s: %w", section, key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, section, key string) error {
	if err := checkName(section, key); err != nil {
		return err
	}
	n, err := s.client.HDel(ctx, s.hashKey(section), key).Result()
	if err != nil {
		return fmt.Errorf("hdel %s/%s: %w", section, key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func checkName(section, key string) error {
	if strings.TrimSpace(section) == "" || strings.TrimSpace(key) == "" {
		return fmt.Errorf("section and key are required")
	}
	if strings.ContainsAny(section, ": ") {
		return fmt.Errorf("invalid section %q", section)
	}
	return nil
}

// MemoryStore is an in-process Store, used when Redis is not configured.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string]map[string]json.RawMessage{}}
}

func (m *MemoryStore) Get(_ context.Context, section, key string) (json.RawMessage, error) {
	if err := checkName(section, key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[section][key]
	if !ok {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (m *MemoryStore) List(_ context.Context, section string) (map[string]json.RawMessage, error) {
	if err := checkName(section, "list"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]json.RawMessage, len(m.docs[section]))
	for k, v := range m.docs[section] {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Put(_ context.Context, section, key string, doc json.RawMessage) error {
	if err := checkName(section, key); err != nil {
		return err
	}
	if !json.Valid(doc) {
		return fmt.Errorf("document for %s/%s is not valid JSON", section, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[section] == nil {
		m.docs[section] = map[string]json.RawMessage{}
	}
	m.docs[section][key] = append(json.RawMessage(nil), doc...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, section, key string) error {
	if err := checkName(section, key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[section][key]; !ok {
		return ErrNotFound
	}
	delete(m.docs[section], key)
	return nil
}

// Keys returns the sorted keys of a listing.
func Keys(docs map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
