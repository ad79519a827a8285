// Package presence tracks which users have at least one live chat connection.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store records live connections per user. Add reports whether this was the
// user's first connection, Remove whether it was the last.
type Store interface {
	Add(ctx context.Context, userID, connID string) (first bool, err error)
	Remove(ctx context.Context, userID, connID string) (last bool, err error)
	Online(ctx context.Context, userIDs []string) ([]string, error)
}

// Memory keeps presence in process. It is lost on restart.
type Memory struct {
	mu    sync.Mutex
	conns map[string]map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{conns: make(map[string]map[string]struct{})}
}

func (m *Memory) Add(_ context.Context, userID, connID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.conns[userID]
	if !ok {
		set = make(map[string]struct{})
		m.conns[userID] = set
	}
	set[connID] = struct{}{}
	return len(set) == 1, nil
}

func (m *Memory) Remove(_ context.Context, userID, connID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.conns[userID]
	if !ok {
		return false, nil
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(m.conns, userID)
		return true, nil
	}
	return false, nil
}

func (m *Memory) Online(_ context.Context, userIDs []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []string{}
	for _, id := range userIDs {
		if len(m.conns[id]) > 0 {
			out = append(out, id)
		}
	}
	return out, nil
}

// Redis mirrors presence into one set of connection IDs per user so several
// processes agree on who is online. Keys expire after ttl so a crashed
// process does not leave users online forever; live connections refresh it.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// DefaultRedisTTL bounds how long a connection counts after its last refresh.
const DefaultRedisTTL = 2 * time.Minute

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(userID string) string { return r.prefix + userID }

func (r *Redis) Add(ctx context.Context, userID, connID string) (bool, error) {
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.key(userID), connID)
	card := pipe.SCard(ctx, r.key(userID))
	pipe.Expire(ctx, r.key(userID), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return card.Val() == 1, nil
}

func (r *Redis) Remove(ctx context.Context, userID, connID string) (bool, error) {
	pipe := r.client.TxPipeline()
	removed := pipe.SRem(ctx, r.key(userID), connID)
	card := pipe.SCard(ctx, r.key(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return removed.Val() == 1 && card.Val() == 0, nil
}

// Refresh extends the key of a user with live connections.
func (r *Redis) Refresh(ctx context.Context, userID string) error {
	return r.client.Expire(ctx, r.key(userID), r.ttl).Err()
}

func (r *Redis) Online(ctx context.Context, userIDs []string) ([]string, error) {
	if len(userIDs) == 0 {
		return []string{}, nil
	}
	pipe := r.client.Pipeline()
	cards := make([]*redis.IntCmd, len(userIDs))
	for i, id := range userIDs {
		cards[i] = pipe.SCard(ctx, r.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	out := []string{}
	for i, c := range cards {
		if c.Val() > 0 {
			out = append(out, userIDs[i])
		}
	}
	return out, nil
}
