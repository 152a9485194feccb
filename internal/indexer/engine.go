package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/contributor"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/searchable-options/pkg/tracing"
)

type State int32

const (
	StateEmpty State = iota
	StateBuilding
	StateReady
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	default:
		return "empty"
	}
}

// Stats describes the current generation.
type Stats struct {
	State       string    `json:"state"`
	Generation  uint64    `json:"generation"`
	Words       int       `json:"words"`
	Descriptors int       `json:"descriptors"`
	Interned    int       `json:"interned"`
	Truncated   bool      `json:"truncated"`
	BuiltAt     time.Time `json:"built_at,omitempty"`
}

// Engine owns the option index. The index is built lazily on first use by a
// single goroutine and replaced wholesale after Invalidate.
type Engine struct {
	tok          *tokenizer.Tokenizer
	contributors []contributor.Contributor
	retry        resilience.RetryConfig
	metrics      *metrics.Metrics
	logger       *slog.Logger

	snapshot   atomic.Pointer[index.Storage]
	building   atomic.Bool
	generation atomic.Uint64
	// publishMu orders a build's publish against Invalidate.
	publishMu sync.Mutex
	flight    singleflight.Group
}

// NewEngine creates an engine over the given contributors, which run in
// order on every build. m may be nil.
func NewEngine(cfg config.IndexConfig, tok *tokenizer.Tokenizer, m *metrics.Metrics, contributors ...contributor.Contributor) *Engine {
	attempts := cfg.MaxBuildAttempts
	if attempts < 1 {
		attempts = 1
	}
	e := &Engine{
		tok:          tok,
		contributors: contributors,
		retry: resilience.RetryConfig{
			MaxAttempts:  attempts,
			InitialDelay: cfg.BuildRetryDelay,
			MaxDelay:     time.Second,
			Retryable: func(err error) bool {
				return errors.Is(err, apperrors.ErrIndexInvalidated)
			},
		},
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
	e.retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		e.logger.Info("index invalidated during build, rebuilding",
			"attempt", attempt,
			"next_delay", delay,
		)
	}
	return e
}

func (e *Engine) Tokenizer() *tokenizer.Tokenizer { return e.tok }

// Snapshot returns the published index, or nil when none is ready.
func (e *Engine) Snapshot() *index.Storage { return e.snapshot.Load() }

func (e *Engine) State() State {
	if e.snapshot.Load() != nil {
		return StateReady
	}
	if e.building.Load() {
		return StateBuilding
	}
	return StateEmpty
}

func (e *Engine) Stats() Stats {
	stats := Stats{State: e.State().String(), Generation: e.generation.Load()}
	if st := e.snapshot.Load(); st != nil {
		stats.Words = st.Words()
		stats.Descriptors = st.Descriptors()
		stats.Interned = st.Interned()
		stats.Truncated = st.Truncated()
		stats.BuiltAt = st.BuiltAt()
	}
	return stats
}

// EnsureBuilt returns the ready index, building it first when needed.
// Concurrent callers share one build. A shared build cancelled by another
// caller's context is restarted for callers whose own context is live.
func (e *Engine) EnsureBuilt(ctx context.Context) (*index.Storage, error) {
	for {
		if st := e.snapshot.Load(); st != nil {
			return st, nil
		}
		ch := e.flight.DoChan("build", func() (any, error) {
			return e.buildWithRetry(ctx)
		})
		select {
		case res := <-ch:
			if res.Err != nil {
				if errors.Is(res.Err, apperrors.ErrBuildCancelled) && ctx.Err() == nil {
					e.logger.Debug("shared index build cancelled by another caller, restarting")
					continue
				}
				return nil, res.Err
			}
			return res.Val.(*index.Storage), nil
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for index build: %w: %w", apperrors.ErrBuildCancelled, ctx.Err())
		}
	}
}

// Invalidate drops the current index. A build in progress is aborted and
// the next EnsureBuilt starts over. Readers holding a snapshot keep it.
func (e *Engine) Invalidate(source string) {
	e.publishMu.Lock()
	gen := e.generation.Add(1)
	prev := e.snapshot.Swap(nil)
	e.publishMu.Unlock()

	if e.metrics != nil {
		e.metrics.InvalidationsTotal.WithLabelValues(source).Inc()
		e.metrics.IndexWords.Set(0)
		e.metrics.IndexInterned.Set(0)
	}
	e.logger.Info("index invalidated",
		"source", source,
		"generation", gen,
		"had_snapshot", prev != nil,
		"was_building", e.building.Load(),
	)
}

func (e *Engine) buildWithRetry(ctx context.Context) (*index.Storage, error) {
	if st := e.snapshot.Load(); st != nil {
		return st, nil
	}
	if !e.building.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("index build already running: %w", apperrors.ErrInternal)
	}
	defer e.building.Store(false)

	var st *index.Storage
	err := resilience.Retry(ctx, "index.build", e.retry, func() error {
		var err error
		st, err = e.build(ctx)
		return err
	})
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, apperrors.ErrBuildCancelled) {
			err = fmt.Errorf("%w: %w", apperrors.ErrBuildCancelled, err)
		}
		return nil, err
	}
	return st, nil
}

func (e *Engine) build(ctx context.Context) (*index.Storage, error) {
	gen := e.generation.Load()
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "index.build", fmt.Sprintf("generation-%d", gen))
	span.SetAttr("generation", gen)

	check := func() error {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", apperrors.ErrBuildCancelled, err)
		}
		if e.generation.Load() != gen {
			return apperrors.ErrIndexInvalidated
		}
		return nil
	}
	b := index.NewBuilder(e.tok, check)

	var buildErr error
	for _, c := range e.contributors {
		if buildErr = check(); buildErr != nil {
			break
		}
		_, cspan := tracing.StartChildSpan(ctx, "contribute")
		cspan.SetAttr("contributor", c.Name())
		err := c.Contribute(ctx, b)
		cspan.End(err)
		if err == nil {
			continue
		}
		if errors.Is(err, apperrors.ErrCapacityExceeded) {
			break
		}
		if errors.Is(err, apperrors.ErrIndexInvalidated) || errors.Is(err, apperrors.ErrBuildCancelled) {
			buildErr = err
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			buildErr = fmt.Errorf("%w: %w", apperrors.ErrBuildCancelled, ctxErr)
			break
		}
		e.logger.Error("contributor failed, continuing without the rest of its options",
			"generation", gen,
			"contributor", c.Name(),
			"error", err,
		)
	}

	var st *index.Storage
	if buildErr == nil {
		if full := b.Full(); full != nil {
			e.logger.Warn("index capacity exceeded, publishing truncated index",
				"generation", gen,
				"error", full,
			)
		}
		st = b.Build(gen)
		buildErr = e.publish(gen, st)
	}
	span.End(buildErr)
	span.Log(e.logger)
	e.observeBuild(buildErr, time.Since(start))

	if buildErr != nil {
		e.logger.Info("index build aborted", "generation", gen, "error", buildErr)
		return nil, buildErr
	}
	if e.metrics != nil {
		e.metrics.IndexWords.Set(float64(st.Words()))
		e.metrics.IndexInterned.Set(float64(st.Interned()))
	}
	e.logger.Info("index built",
		"generation", gen,
		"words", st.Words(),
		"descriptors", st.Descriptors(),
		"interned", st.Interned(),
		"truncated", st.Truncated(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return st, nil
}

func (e *Engine) publish(gen uint64, st *index.Storage) error {
	e.publishMu.Lock()
	defer e.publishMu.Unlock()
	if e.generation.Load() != gen {
		return apperrors.ErrIndexInvalidated
	}
	e.snapshot.Store(st)
	return nil
}

func (e *Engine) observeBuild(err error, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrIndexInvalidated):
		status = "invalidated"
	case errors.Is(err, apperrors.ErrBuildCancelled):
		status = "cancelled"
	default:
		status = "error"
	}
	e.metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
	e.metrics.IndexBuildDuration.Observe(elapsed.Seconds())
}
