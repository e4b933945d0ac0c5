package rules

import (
	"context"
	"strings"
	"sync"
	"time"

	"coop-loans/internal/domain/settings"

	"go.uber.org/zap"
)

type Thresholds = settings.Thresholds

// Snapshot is an immutable view of the thresholds in force.
type Snapshot struct {
	Thresholds
	// Degraded is set when the last load failed and an older set or the
	// process defaults are being served instead.
	Degraded bool      `json:"degraded"`
	Err      error     `json:"-"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Provider caches the business thresholds and refreshes them from
// business_config once the TTL has passed.
type Provider struct {
	repo     settings.Repository
	defaults Thresholds
	ttl      time.Duration
	log      *zap.Logger
	now      func() time.Time

	mu     sync.RWMutex
	snap   Snapshot
	loaded bool
}

func NewProvider(repo settings.Repository, defaults Thresholds, ttl time.Duration, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{
		repo:     repo,
		defaults: defaults,
		ttl:      ttl,
		log:      log.With(zap.String("component", "rules")),
		now:      time.Now,
	}
}

// Current returns the cached snapshot, reloading when stale or degraded.
func (p *Provider) Current(ctx context.Context) Snapshot {
	p.mu.RLock()
	s, fresh := p.snap, p.loaded && !p.snap.Degraded && p.now().Sub(p.snap.LoadedAt) < p.ttl
	p.mu.RUnlock()
	if fresh {
		return s
	}
	s, _ = p.Reload(ctx)
	return s
}

// Reload reads business_config and replaces the snapshot. On failure the
// previous thresholds (or the defaults) are kept and flagged degraded.
func (p *Provider) Reload(ctx context.Context) (Snapshot, error) {
	rows, err := p.repo.List(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now().UTC()
	if err != nil {
		base := p.defaults
		if p.loaded {
			base = p.snap.Thresholds
		}
		p.snap = Snapshot{Thresholds: base, Degraded: true, Err: err, LoadedAt: now}
		p.loaded = true
		p.log.Warn("business config unavailable, serving fallback thresholds", zap.Error(err))
		return p.snap, err
	}

	th := p.defaults
	for _, row := range rows {
		if err := th.Apply(row.Key, row.Value); err != nil {
			p.log.Warn("ignoring business config row", zap.String("key", row.Key), zap.Error(err))
		}
	}
	if err := th.Validate(); err != nil {
		p.log.Warn("business config rejected, keeping defaults", zap.Error(err))
		th = p.defaults
	}
	p.snap = Snapshot{Thresholds: th, LoadedAt: now}
	p.loaded = true
	return p.snap, nil
}

// Set validates and stores a single threshold, then reloads.
func (p *Provider) Set(ctx context.Context, key, value, actor string) (Snapshot, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	value = strings.TrimSpace(value)

	candidate := p.Current(ctx).Thresholds
	if err := candidate.Apply(key, value); err != nil {
		return Snapshot{}, err
	}
	if err := candidate.Validate(); err != nil {
		return Snapshot{}, err
	}
	if err := p.repo.Upsert(ctx, &settings.Setting{Key: key, Value: value, UpdatedBy: actor, UpdatedAt: p.now().UTC()}); err != nil {
		return Snapshot{}, err
	}
	p.log.Info("business config updated", zap.String("key", key), zap.String("value", value), zap.String("actor", actor))
	return p.Reload(ctx)
}
