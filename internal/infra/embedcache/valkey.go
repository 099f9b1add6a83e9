package embedcache

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Valkey stores embeddings in a Valkey-compatible database.
type Valkey struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkey constructs a cache; ttl <= 0 keeps entries forever.
func NewValkey(client valkey.Client, prefix string, ttl time.Duration) *Valkey {
	if prefix == "" {
		prefix = "iso-insight"
	}
	return &Valkey{client: client, prefix: prefix, ttl: ttl}
}

// Get implements embedder.Cache.
func (s *Valkey) Get(ctx context.Context, key string) ([]float32, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.entryKey(key)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	vec, err := decodeVector(payload)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Put implements embedder.Cache.
func (s *Valkey) Put(ctx context.Context, key string, vector []float32) error {
	builder := s.client.B().Set().Key(s.entryKey(key)).Value(valkey.BinaryString(encodeVector(vector)))
	var cmd valkey.Completed
	if s.ttl > 0 {
		ttl := s.ttl
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *Valkey) entryKey(key string) string {
	return fmt.Sprintf("%s:embedding:%s", s.prefix, key)
}
