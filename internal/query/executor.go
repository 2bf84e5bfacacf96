package query

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/workstead/workstead/internal/cache"
	apperrors "github.com/workstead/workstead/pkg/errors"
	"github.com/workstead/workstead/pkg/logger"
	"github.com/workstead/workstead/pkg/metrics"
)

// DefaultTTL bounds how long a cached query result is served without refresh.
const DefaultTTL = 5 * time.Minute

// FetchFunc performs the live lookup when the cache cannot serve a request.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Options controls a single Fetch call.
type Options struct {
	// ForceRefresh bypasses the cache read and always performs a live fetch.
	ForceRefresh bool
	// CriticalData permits serving an expired cache entry when the live
	// fetch fails, degrading gracefully while offline.
	CriticalData bool
	// TTL overrides the executor's default entry lifetime.
	TTL time.Duration
}

// Result describes where a payload came from.
type Result struct {
	Data      []byte
	FromCache bool
	// Stale marks payloads served from an expired entry after a failed fetch.
	Stale bool
	// FetchErr carries the error that forced the stale fallback.
	FetchErr error
}

// Executor decides whether to serve a cached value or perform a live fetch.
type Executor struct {
	store cache.Store
	ttl   time.Duration
	gens  *Generations
	log   *zap.Logger
}

// ExecutorOption customises the Executor.
type ExecutorOption func(*Executor)

// WithTTL overrides the default cache entry lifetime.
func WithTTL(ttl time.Duration) ExecutorOption {
	return func(e *Executor) {
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

// NewExecutor constructs an Executor around the supplied cache store.
func NewExecutor(store cache.Store, opts ...ExecutorOption) (*Executor, error) {
	if store == nil {
		return nil, errors.New("query executor: cache store is required")
	}

	executor := &Executor{
		store: store,
		ttl:   DefaultTTL,
		gens:  NewGenerations(),
		log:   logger.WithModule("query"),
	}
	for _, opt := range opts {
		opt(executor)
	}
	return executor, nil
}

// Fetch serves key from cache when possible, otherwise runs fetch and stores
// the result. Failures are returned as tagged application errors; with
// Options.CriticalData set, a failed fetch falls back to the last cached
// payload (however stale) instead of failing outright.
func (e *Executor) Fetch(ctx context.Context, key string, fetch FetchFunc, opts Options) (Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if fetch == nil {
		return Result{}, errors.New("query executor: fetch function is required")
	}

	prefix := keyPrefix(key)

	if !opts.ForceRefresh {
		value, ok, err := e.store.Get(ctx, key)
		if err != nil {
			e.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			metrics.CacheLookups.WithLabelValues(prefix, "hit").Inc()
			return Result{Data: value, FromCache: true}, nil
		}
	}
	metrics.CacheLookups.WithLabelValues(prefix, "miss").Inc()

	token := e.gens.Next(key)

	data, err := fetch(ctx)
	if err != nil {
		tagged := classifyFetchError(err)

		if opts.CriticalData {
			stale, ok, staleErr := e.store.GetStale(ctx, key)
			if staleErr != nil {
				e.log.Warn("stale cache read failed", zap.String("key", key), zap.Error(staleErr))
			} else if ok {
				metrics.CacheLookups.WithLabelValues(prefix, "stale").Inc()
				e.log.Warn("serving stale cache entry after failed fetch",
					zap.String("key", key),
					zap.Error(err),
				)
				return Result{Data: stale, FromCache: true, Stale: true, FetchErr: tagged}, nil
			}
		}

		return Result{}, tagged
	}

	// A fetch that was overtaken by a newer request for the same key still
	// serves its caller, but must not overwrite the newer cached payload.
	if !e.gens.Latest(key, token) {
		e.log.Debug("skipping cache write for superseded fetch", zap.String("key", key))
		return Result{Data: data}, nil
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = e.ttl
	}
	if err := e.store.Set(ctx, key, data, ttl); err != nil {
		e.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}

	return Result{Data: data}, nil
}

// FetchJSON runs a typed fetch through the executor, marshalling the fetched
// value into the cache and unmarshalling cached payloads back out.
func FetchJSON[T any](ctx context.Context, e *Executor, key string, opts Options, fetch func(ctx context.Context) (T, error)) (T, Result, error) {
	var zero T

	result, err := e.Fetch(ctx, key, func(ctx context.Context) ([]byte, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	}, opts)
	if err != nil {
		return zero, Result{}, err
	}

	var value T
	if err := json.Unmarshal(result.Data, &value); err != nil {
		return zero, Result{}, apperrors.Wrap(err, "decode cached payload")
	}
	return value, result, nil
}

// classifyFetchError maps raw fetch failures onto the API error taxonomy.
// Application errors pass through untouched; transport failures surface as
// unreachable, everything else as an upstream query error.
func classifyFetchError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ErrUnreachable.WithInternal(err)
	}

	return apperrors.ErrUpstreamQuery.WithInternal(err)
}

func keyPrefix(key string) string {
	if idx := strings.IndexByte(key, '_'); idx > 0 {
		return key[:idx]
	}
	return key
}
