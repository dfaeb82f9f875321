package latestcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/rockwatch/internal/domain/evaluation"
)

// ValkeyStore shares the latest bundle per site across replicas.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "rockwatch"
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *ValkeyStore) Put(ctx context.Context, bundle evaluation.Bundle) error {
	payload, err := json.Marshal(bundle)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.key(bundle.Site.ID)).Value(string(payload))
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

func (s *ValkeyStore) Get(ctx context.Context, siteID string) (evaluation.Bundle, bool, error) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(siteID)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return evaluation.Bundle{}, false, nil
		}
		return evaluation.Bundle{}, false, err
	}
	var bundle evaluation.Bundle
	if err := json.Unmarshal([]byte(payload), &bundle); err != nil {
		return evaluation.Bundle{}, false, err
	}
	return bundle, true, nil
}

func (s *ValkeyStore) key(siteID string) string {
	return fmt.Sprintf("%s:latest:%s", s.prefix, siteID)
}

var _ evaluation.LatestStore = (*ValkeyStore)(nil)
