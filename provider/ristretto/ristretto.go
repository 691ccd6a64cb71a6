// Package ristretto adapts dgraph-io/ristretto as a streamcache provider.
// Ristretto applies sets and deletes asynchronously; the provider waits for
// the write buffers after each mutation so a committed blob is immediately
// readable.
package ristretto

import (
	"context"
	"errors"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	pr "github.com/unkn0wn-root/streamcache/provider"
)

type Provider struct {
	c         *rc.Cache
	closeOnce sync.Once
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64 // ~10x expected item count
	MaxCost     int64 // with the Store's default cost func this is bytes
	BufferItems int64 // 64 is ristretto's recommendation
	Metrics     bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		p.c.Wait()
		return nil, false, nil
	}
	return b, true, nil
}

// Set returns ok=false when ristretto's admission policy drops the item.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	if !p.c.SetWithTTL(key, value, cost, ttl) {
		return false, nil
	}
	p.c.Wait()
	if _, ok := p.c.Get(key); !ok {
		// admitted into the buffer but rejected by the policy
		return false, nil
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	p.c.Wait()
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.closeOnce.Do(func() {
		p.c.Wait()
		p.c.Close()
	})
	return nil
}

// Metrics exposes ristretto's counters if enabled in Config (not part of provider.Provider).
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
