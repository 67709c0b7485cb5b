package spam

import (
	"context"
	"log/slog"

	"github.com/nutsandbolts/modcore/automod/countstore"
	"github.com/nutsandbolts/modcore/automod/event"

	"github.com/puzpuzpuz/xsync/v3"
)

// Registry owns one Detector per conversational scope, created on the first message seen from that scope and kept for the lifetime of the registry.
//
// Safe for concurrent use; detectors for different scopes never share counters.
type Registry struct {
	Config Config
	Logger *slog.Logger

	// When set, all detectors count in this store, with keys namespaced by scope. Otherwise each scope gets its own in-memory store.
	SharedStore countstore.CountStore

	detectors *xsync.MapOf[string, *Detector]
}

func NewRegistry(cfg Config, logger *slog.Logger) (*Registry, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		Config:    cfg,
		Logger:    logger.With("component", "spam"),
		detectors: xsync.NewMapOf[string, *Detector](),
	}, nil
}

// NewSharedRegistry creates a registry whose detectors all count in `store` (eg, a RedisCountStore shared by several processes).
func NewSharedRegistry(cfg Config, store countstore.CountStore, logger *slog.Logger) (*Registry, error) {
	r, err := NewRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	r.SharedStore = store
	return r, nil
}

// Detector returns the detector for a scope, creating it if needed.
func (r *Registry) Detector(scope string) *Detector {
	d, loaded := r.detectors.LoadOrCompute(scope, func() *Detector {
		var (
			d   *Detector
			err error
		)
		if r.SharedStore != nil {
			d, err = newDetector(scope+"/", r.Config, r.SharedStore)
		} else {
			d, err = newDetector("", r.Config, countstore.NewMemCountStore())
		}
		if err != nil {
			// config was validated in NewRegistry
			panic(err)
		}
		return d
	})
	if !loaded {
		r.Logger.Debug("new spam detector", "scope", scope)
		detectorCount.Inc()
	}
	return d
}

// Len returns the number of scopes with a detector.
func (r *Registry) Len() int {
	return r.detectors.Size()
}

// Check runs a message through the detector for its scope. Messages with no scope are never spam.
func (r *Registry) Check(ctx context.Context, msg *event.Message) (Verdict, error) {
	scope := msg.Scope()
	if scope == "" {
		return Verdict{}, nil
	}
	v, err := r.Detector(scope).Check(ctx, msg)
	if err != nil {
		checkErrorCount.Inc()
		return v, err
	}
	verdictCount.WithLabelValues(v.String()).Inc()
	if v.Spamming() {
		r.Logger.Info("spam detected", "scope", scope, "channel", msg.ChannelID, "author", msg.AuthorID, "verdict", v.String())
	}
	return v, nil
}

func (r *Registry) IsSpamming(ctx context.Context, msg *event.Message) (bool, error) {
	v, err := r.Check(ctx, msg)
	if err != nil {
		return false, err
	}
	return v.Spamming(), nil
}
