package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultCallTimeout bounds each authorize and effect call.
const DefaultCallTimeout = 15 * time.Second

type Config struct {
	// Default cap on targets per request. Zero means DefaultMaxTargets.
	MaxTargets int
	// Zero means DefaultCallTimeout; negative disables the timeout.
	CallTimeout time.Duration
	// Number of targets processed concurrently. Zero or one means strictly sequential, in request order.
	Parallelism int
}

// Dispatcher applies a moderation action to many targets, fail-soft: every target is attempted, and each gets its own outcome in the report.
//
// A Dispatcher holds no per-request state, and is safe for concurrent use across scopes.
type Dispatcher struct {
	Config Config
	Logger *slog.Logger
	// Optional throttle on outbound effect calls (shared across all requests)
	Limiter *rate.Limiter
}

func NewDispatcher(cfg Config, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		Config: cfg,
		Logger: logger.With("component", "dispatch"),
	}
}

func (d *Dispatcher) maxTargets() int {
	if d.Config.MaxTargets > 0 {
		return d.Config.MaxTargets
	}
	return DefaultMaxTargets
}

func (d *Dispatcher) callTimeout() time.Duration {
	if d.Config.CallTimeout == 0 {
		return DefaultCallTimeout
	}
	return d.Config.CallTimeout
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Dispatch runs a request:
//
//  1. targets are de-duplicated, keeping first occurrences in order
//  2. targets beyond the cap are dropped (earliest kept) and listed in Report.Dropped
//  3. each remaining target is authorized; denied targets are reported PermissionDenied and the effect is never called for them
//  4. authorized targets get the effect, and its error is classified into an Outcome
//
// An error is only returned for invalid requests, before any target is attempted.
func Dispatch[T comparable](ctx context.Context, d *Dispatcher, req Request[T], authorize AuthorizeFunc[T], effect EffectFunc[T]) (*Report[T], error) {
	if authorize == nil || effect == nil {
		return nil, fmt.Errorf("%w: missing authorize or effect function", ErrInvalidRequest)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	limit := req.MaxTargets
	if limit == 0 {
		limit = d.maxTargets()
	}
	targets, dropped := normalizeTargets(req.Targets, limit)

	ctx, span := otel.Tracer("dispatch").Start(ctx, "Dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("action", string(req.Action)),
		attribute.Int("targets", len(targets)),
		attribute.Int("dropped", len(dropped)),
	)

	logger := d.logger().With("action", req.Action, "actor", req.ActorID)
	dispatchCount.WithLabelValues(string(req.Action)).Inc()
	if len(dropped) > 0 {
		logger.Warn("dropping targets over per-request maximum", "max", limit, "dropped", len(dropped))
		droppedTargetCount.WithLabelValues(string(req.Action)).Add(float64(len(dropped)))
	}

	// results are written by index, so report order is request order regardless of parallelism
	results := make([]Result[T], len(targets))
	if d.Config.Parallelism > 1 && len(targets) > 1 {
		eg := new(errgroup.Group)
		eg.SetLimit(d.Config.Parallelism)
		for i, target := range targets {
			eg.Go(func() error {
				results[i] = attempt(ctx, d, logger, &req, target, authorize, effect)
				return nil
			})
		}
		_ = eg.Wait()
	} else {
		for i, target := range targets {
			results[i] = attempt(ctx, d, logger, &req, target, authorize, effect)
		}
	}

	for _, res := range results {
		targetOutcomeCount.WithLabelValues(string(req.Action), res.Outcome.String()).Inc()
	}

	return &Report[T]{
		Action:  req.Action,
		Results: results,
		Dropped: dropped,
	}, nil
}

func attempt[T comparable](ctx context.Context, d *Dispatcher, logger *slog.Logger, req *Request[T], target T, authorize AuthorizeFunc[T], effect EffectFunc[T]) Result[T] {
	ctx, span := otel.Tracer("dispatch").Start(ctx, "attempt")
	defer span.End()
	span.SetAttributes(attribute.String("target", fmt.Sprint(target)))

	res := Result[T]{Target: target}
	defer func() {
		span.SetAttributes(attribute.String("outcome", res.Outcome.String()))
		if res.Err != nil {
			span.RecordError(res.Err)
		}
	}()

	err := d.call(ctx, logger, func(ctx context.Context) error {
		return authorize(ctx, req.ActorID, target)
	})
	if err != nil {
		res.Outcome = denialOutcome(err)
		res.Err = err
		logger.Info("action denied", "target", target, "outcome", res.Outcome, "err", err)
		return res
	}

	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			res.Outcome = Unexpected
			res.Err = fmt.Errorf("waiting for rate limiter: %w", err)
			return res
		}
	}

	start := time.Now()
	err = d.call(ctx, logger, func(ctx context.Context) error {
		return effect(ctx, target, req.Reason)
	})
	effectDuration.WithLabelValues(string(req.Action)).Observe(time.Since(start).Seconds())

	res.Outcome = Classify(err)
	res.Err = err
	if err != nil {
		logger.Warn("action failed", "target", target, "outcome", res.Outcome, "err", err)
	}
	return res
}

// Authorization failures are PermissionDenied, except lookup failures which the authorizer reported as an effect error (eg, the target no longer exists).
func denialOutcome(err error) Outcome {
	var ee *EffectError
	if errors.As(err, &ee) && ee.Kind != Success && ee.Kind != PermissionDenied {
		return Classify(err)
	}
	return PermissionDenied
}

// call runs fn with the per-call timeout, converting panics and timeouts into Unexpected errors. A callback which ignores its context is abandoned at the deadline, so it can not block the rest of the batch.
func (d *Dispatcher) call(ctx context.Context, logger *slog.Logger, fn func(context.Context) error) error {
	timeout := d.callTimeout()
	if timeout < 0 {
		return safeCall(ctx, logger, fn)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- safeCall(ctx, logger, fn)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return UnexpectedError(fmt.Errorf("call abandoned after %s: %w", timeout, ctx.Err()))
	}
}

func safeCall(ctx context.Context, logger *slog.Logger, fn func(context.Context) error) (err error) {
	// similar to an HTTP server, we want to recover any panics from platform callbacks
	defer func() {
		if r := recover(); r != nil {
			logger.Error("action callback exception", "err", r)
			err = UnexpectedError(fmt.Errorf("panic: %v", r))
		}
	}()
	return fn(ctx)
}
