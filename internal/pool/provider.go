package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/squad-optimizer/internal/repository"
	"github.com/stitts-dev/squad-optimizer/pkg/logger"
	"github.com/stitts-dev/squad-optimizer/pkg/types"
)

// ErrPoolUnavailable is returned when neither the cache nor the source can provide
// candidates.
var ErrPoolUnavailable = errors.New("candidate pool unavailable")

// Cache is the subset of the squad cache the provider needs.
type Cache interface {
	SetCandidatePool(ctx context.Context, source string, pool []types.Candidate, expiration time.Duration) error
	GetCandidatePool(ctx context.Context, source string) ([]types.Candidate, error)
}

// Config tunes caching, refresh and failure handling.
type Config struct {
	CacheTTL         time.Duration
	RefreshSchedule  string
	BreakerThreshold int
	BreakerTimeout   time.Duration
	LoadTimeout      time.Duration
}

// Status describes the current snapshot for health and metrics endpoints.
type Status struct {
	Source       string    `json:"source"`
	Candidates   int       `json:"candidates"`
	LoadedAt     time.Time `json:"loaded_at,omitempty"`
	LoadedFrom   string    `json:"loaded_from,omitempty"`
	BreakerState string    `json:"breaker_state"`
	CronEntries  int       `json:"cron_entries"`
	Refreshes    int64     `json:"refreshes"`
	Failures     int64     `json:"failures"`
}

// Provider serves a read-only candidate pool. Lookups go to the in-memory snapshot,
// then the Redis cache, then the source behind a circuit breaker. Callers always get
// their own copy.
type Provider struct {
	source  repository.CandidateSource
	cache   Cache
	config  Config
	breaker *gobreaker.CircuitBreaker
	cron    *cron.Cron
	logger  *logrus.Entry

	mu         sync.RWMutex
	snapshot   []types.Candidate
	loadedAt   time.Time
	loadedFrom string
	refreshes  int64
	failures   int64

	loadMu sync.Mutex
}

// NewProvider creates a provider. cache may be nil.
func NewProvider(source repository.CandidateSource, cache Cache, config Config, log *logrus.Logger) *Provider {
	if config.BreakerThreshold <= 0 {
		config.BreakerThreshold = 5
	}
	if config.BreakerTimeout <= 0 {
		config.BreakerTimeout = 30 * time.Second
	}
	if config.LoadTimeout <= 0 {
		config.LoadTimeout = 10 * time.Second
	}

	entry := logger.WithComponent(log, "pool_provider").WithField("source", source.Name())

	settings := gobreaker.Settings{
		Name:        "candidate-source",
		MaxRequests: 1,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.BreakerThreshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			entry.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &Provider{
		source:  source,
		cache:   cache,
		config:  config,
		breaker: gobreaker.NewCircuitBreaker(settings),
		cron:    cron.New(cron.WithLogger(cron.VerbosePrintfLogger(entry))),
		logger:  entry,
	}
}

// Candidates returns a copy of the pool, loading it on first use.
func (p *Provider) Candidates(ctx context.Context) ([]types.Candidate, error) {
	if pool, ok := p.fromSnapshot(); ok {
		return pool, nil
	}

	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	if pool, ok := p.fromSnapshot(); ok {
		return pool, nil
	}

	if p.cache != nil {
		pool, err := p.cache.GetCandidatePool(ctx, p.source.Name())
		if err == nil && len(pool) > 0 {
			p.store(pool, "cache")
			return copyPool(pool), nil
		}
		if err != nil {
			p.logger.WithError(err).Debug("Candidate pool not served from cache")
		}
	}

	pool, err := p.load(ctx)
	if err != nil {
		return nil, err
	}
	return copyPool(pool), nil
}

// Refresh reloads the pool from the source, bypassing the snapshot and cache. On
// failure the previous snapshot stays in place.
func (p *Provider) Refresh(ctx context.Context) error {
	p.loadMu.Lock()
	defer p.loadMu.Unlock()

	_, err := p.load(ctx)
	return err
}

// Start schedules periodic refreshes; an empty schedule disables them.
func (p *Provider) Start() error {
	if p.config.RefreshSchedule == "" {
		return nil
	}
	_, err := p.cron.AddFunc(p.config.RefreshSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), p.config.LoadTimeout)
		defer cancel()
		if err := p.Refresh(ctx); err != nil {
			p.logger.WithError(err).Warn("Scheduled pool refresh failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", p.config.RefreshSchedule, err)
	}
	p.cron.Start()
	p.logger.WithField("schedule", p.config.RefreshSchedule).Info("Pool refresh scheduled")
	return nil
}

// Stop halts scheduled refreshes and waits for a running one to finish.
func (p *Provider) Stop() {
	<-p.cron.Stop().Done()
}

// Status reports the snapshot state.
func (p *Provider) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Status{
		Source:       p.source.Name(),
		Candidates:   len(p.snapshot),
		LoadedAt:     p.loadedAt,
		LoadedFrom:   p.loadedFrom,
		BreakerState: p.breaker.State().String(),
		CronEntries:  len(p.cron.Entries()),
		Refreshes:    p.refreshes,
		Failures:     p.failures,
	}
}

func (p *Provider) load(ctx context.Context) ([]types.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.LoadTimeout)
	defer cancel()

	start := time.Now()
	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.source.LoadCandidates(ctx)
	})
	if err != nil {
		p.mu.Lock()
		p.failures++
		p.mu.Unlock()
		p.logger.WithError(err).Error("Failed to load candidate pool")
		return nil, fmt.Errorf("%w: %v", ErrPoolUnavailable, err)
	}

	pool := result.([]types.Candidate)
	p.store(pool, "source")

	if p.cache != nil {
		if err := p.cache.SetCandidatePool(ctx, p.source.Name(), pool, p.config.CacheTTL); err != nil {
			p.logger.WithError(err).Warn("Failed to cache candidate pool")
		}
	}

	p.logger.WithFields(logrus.Fields{
		"candidates": len(pool),
		"duration":   time.Since(start),
	}).Info("Candidate pool loaded")
	return pool, nil
}

func (p *Provider) fromSnapshot() ([]types.Candidate, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.snapshot == nil {
		return nil, false
	}
	return copyPool(p.snapshot), true
}

func (p *Provider) store(pool []types.Candidate, from string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot = copyPool(pool)
	p.loadedAt = time.Now().UTC()
	p.loadedFrom = from
	if from == "source" {
		p.refreshes++
	}
}

func copyPool(pool []types.Candidate) []types.Candidate {
	return append(make([]types.Candidate, 0, len(pool)), pool...)
}
