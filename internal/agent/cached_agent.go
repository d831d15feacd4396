package agent

import (
	"context"
	"time"

	"github.com/trustbrokerd/trustbroker/internal/logger"
	"github.com/trustbrokerd/trustbroker/internal/metrics"
	"github.com/trustbrokerd/trustbroker/internal/request"
	"github.com/trustbrokerd/trustbroker/internal/store"
	"github.com/trustbrokerd/trustbroker/internal/telemetry"
)

// Clock returns the current wallclock time as nanoseconds since the Unix
// epoch. Exists so tests can control "now".
type Clock func() int64

// SystemClock is the production Clock.
func SystemClock() int64 { return time.Now().UnixNano() }

// CachedAgent answers from the most recent matching stored decision, or
// delegates to inner on a miss and persists the result.
type CachedAgent struct {
	inner Agent
	store *store.Store
	now   Clock
}

// NewCachedAgent wraps inner with a lookup against s. A nil clock
// defaults to SystemClock.
func NewCachedAgent(inner Agent, s *store.Store, now Clock) *CachedAgent {
	if inner == nil {
		panic("agent: CachedAgent requires a non-nil inner agent")
	}
	if s == nil {
		panic("agent: CachedAgent requires a non-nil store")
	}
	if now == nil {
		now = SystemClock
	}
	return &CachedAgent{inner: inner, store: s, now: now}
}

func (c *CachedAgent) Name() string { return "cached" }

// Authenticate implements the chain's cache miss ⇔ no row matches both
// application_id and feature; on hit, the most recent matching row wins
// (the store enumerates descending by `when`, so it's the first result).
func (c *CachedAgent) Authenticate(ctx context.Context, params request.Parameters) (request.Answer, error) {
	ctx, span := telemetry.StartAgentSpan(ctx, c.Name(),
		telemetry.ApplicationID(string(params.ApplicationID)), telemetry.Feature(uint64(params.Feature)))
	defer span.End()

	q := c.store.Query().ForApplicationID(params.ApplicationID).ForFeature(params.Feature)
	if err := q.Execute(); err != nil {
		return request.Denied, err
	}

	if q.HasMore() {
		hit, err := q.Current()
		if err != nil {
			return request.Denied, err
		}
		span.SetAttributes(telemetry.CacheHit(true), telemetry.Answer(bool(hit.Answer)))
		logger.DebugCtx(ctx, "cache hit", logger.ApplicationID(string(params.ApplicationID)), logger.Answer(bool(hit.Answer)))
		metrics.RecordCacheHit()
		return hit.Answer, nil
	}

	span.SetAttributes(telemetry.CacheHit(false))
	metrics.RecordCacheMiss()
	answer, err := c.inner.Authenticate(ctx, params)
	if err != nil {
		return request.Denied, err
	}

	rec := request.Request{
		From:    params.ApplicationID,
		Feature: params.Feature,
		When:    c.now(),
		Answer:  answer,
	}
	if err := c.store.Add(ctx, rec); err != nil {
		logger.ErrorCtx(ctx, "failed to persist decision", logger.Err(err))
		return answer, err
	}

	return answer, nil
}
