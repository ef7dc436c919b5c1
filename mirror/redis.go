package mirror

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMirror stores the credential pair in Redis under a key prefix, so
// several portal instances can share one Redis without colliding.
type RedisMirror struct {
	client *redis.Client
	prefix string
}

// NewRedisMirror creates a mirror over client. prefix defaults to "portal".
func NewRedisMirror(client *redis.Client, prefix string) (*RedisMirror, error) {
	if client == nil {
		return nil, errors.New("mirror: redis client required")
	}
	if prefix == "" {
		prefix = "portal"
	}
	return &RedisMirror{client: client, prefix: prefix}, nil
}

func (m *RedisMirror) tokenKey() string { return m.prefix + ":" + TokenKey }
func (m *RedisMirror) roleKey() string  { return m.prefix + ":" + RoleKey }

// Load reads both keys. A missing pair is not an error; it yields an empty
// State and the caller treats the session as anonymous. A half-written pair
// (which Save/Clear never produce) is treated as absent.
func (m *RedisMirror) Load(ctx context.Context) (State, error) {
	values, err := m.client.MGet(ctx, m.tokenKey(), m.roleKey()).Result()
	if err != nil {
		return State{}, fmt.Errorf("mirror load: %w", err)
	}

	token, _ := values[0].(string)
	role, _ := values[1].(string)
	if token == "" || role == "" {
		return State{}, nil
	}
	return State{Token: token, Role: role}, nil
}

// Save writes both keys in one round trip. The pipeline is transactional so
// a concurrent Load never observes one key without the other.
func (m *RedisMirror) Save(ctx context.Context, state State) error {
	if state.Token == "" || state.Role == "" {
		return errors.New("mirror save: token and role must both be set")
	}
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, m.tokenKey(), state.Token, 0)
		pipe.Set(ctx, m.roleKey(), state.Role, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mirror save: %w", err)
	}
	return nil
}

// Clear removes both keys together. Clearing an already-empty mirror is a
// no-op, keeping the expiry cascade idempotent.
func (m *RedisMirror) Clear(ctx context.Context) error {
	if err := m.client.Del(ctx, m.tokenKey(), m.roleKey()).Err(); err != nil {
		return fmt.Errorf("mirror clear: %w", err)
	}
	return nil
}
