// Package spam answers a single question about each incoming message: is its author flooding the conversation?
//
// Two fixed-window buckets watch every message. One is keyed by channel and exact content (repeated copies of the same text), the other by channel alone (general flood). Escalation is left to the caller.
package spam

import (
	"context"
	"fmt"
	"time"

	"github.com/nutsandbolts/modcore/automod/countstore"
	"github.com/nutsandbolts/modcore/automod/event"
	"github.com/nutsandbolts/modcore/automod/helpers"
	"github.com/nutsandbolts/modcore/automod/ratelimit"
)

const (
	DefaultContentCapacity = 15
	DefaultContentPeriod   = 18 * time.Second
	DefaultChannelCapacity = 30
	DefaultChannelPeriod   = 35 * time.Second
)

// Config sizes the two windows. A zero capacity or period means the default; use ValidateExplicit to reject zeros instead.
type Config struct {
	ContentCapacity int
	ContentPeriod   time.Duration
	ChannelCapacity int
	ChannelPeriod   time.Duration
	// Key the content window on folded text (case, punctuation and diacritics ignored) rather than the exact message
	NormalizeContent bool
}

// DefaultConfig returns the stock window sizes: 15 identical messages per 18 seconds, and 30 messages of any content per 35 seconds, per channel.
func DefaultConfig() Config {
	return Config{
		ContentCapacity: DefaultContentCapacity,
		ContentPeriod:   DefaultContentPeriod,
		ChannelCapacity: DefaultChannelCapacity,
		ChannelPeriod:   DefaultChannelPeriod,
	}
}

func (c Config) Validate() error {
	if c.ContentCapacity < 0 || c.ChannelCapacity < 0 {
		return fmt.Errorf("%w: negative capacity", ratelimit.ErrInvalidBucket)
	}
	if c.ContentPeriod < 0 || c.ChannelPeriod < 0 {
		return fmt.Errorf("%w: negative period", ratelimit.ErrInvalidBucket)
	}
	return nil
}

// ValidateExplicit is Validate, but also rejects zero capacities and periods. For configs where every field was set by the operator.
func (c Config) ValidateExplicit() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ContentCapacity == 0 || c.ChannelCapacity == 0 {
		return fmt.Errorf("%w: capacity must be at least 1", ratelimit.ErrInvalidBucket)
	}
	if c.ContentPeriod == 0 || c.ChannelPeriod == 0 {
		return fmt.Errorf("%w: period must be positive", ratelimit.ErrInvalidBucket)
	}
	return nil
}

// fills in zero fields from the defaults
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ContentCapacity == 0 {
		c.ContentCapacity = d.ContentCapacity
	}
	if c.ContentPeriod == 0 {
		c.ContentPeriod = d.ContentPeriod
	}
	if c.ChannelCapacity == 0 {
		c.ChannelCapacity = d.ChannelCapacity
	}
	if c.ChannelPeriod == 0 {
		c.ChannelPeriod = d.ChannelPeriod
	}
	return c
}

// Verdict is the result of checking a single message.
type Verdict struct {
	// Too many copies of the same content in the channel
	ContentExceeded bool
	// Too many messages of any content in the channel
	ChannelExceeded bool
}

func (v Verdict) Spamming() bool {
	return v.ContentExceeded || v.ChannelExceeded
}

func (v Verdict) String() string {
	switch {
	case v.ContentExceeded && v.ChannelExceeded:
		return "content+channel"
	case v.ContentExceeded:
		return "content"
	case v.ChannelExceeded:
		return "channel"
	default:
		return "ok"
	}
}

type Detector struct {
	ByContent *ratelimit.Bucket
	ByChannel *ratelimit.Bucket
	// see Config.NormalizeContent
	NormalizeContent bool
}

// NewDetector creates a detector whose buckets share a single count store. Bucket names keep the two counters apart.
func NewDetector(cfg Config, store countstore.CountStore) (*Detector, error) {
	return newDetector("", cfg, store)
}

// prefix namespaces bucket keys, for detectors of several scopes sharing one store
func newDetector(prefix string, cfg Config, store countstore.CountStore) (*Detector, error) {
	cfg = cfg.withDefaults()
	if store == nil {
		store = countstore.NewMemCountStore()
	}
	byContent, err := ratelimit.NewBucketWithStore(prefix+"content", cfg.ContentCapacity, cfg.ContentPeriod, store)
	if err != nil {
		return nil, fmt.Errorf("content bucket: %w", err)
	}
	byChannel, err := ratelimit.NewBucketWithStore(prefix+"channel", cfg.ChannelCapacity, cfg.ChannelPeriod, store)
	if err != nil {
		return nil, fmt.Errorf("channel bucket: %w", err)
	}
	return &Detector{
		ByContent:        byContent,
		ByChannel:        byChannel,
		NormalizeContent: cfg.NormalizeContent,
	}, nil
}

// IsSpamming is a convenience wrapper around Check.
func (d *Detector) IsSpamming(ctx context.Context, msg *event.Message) (bool, error) {
	v, err := d.Check(ctx, msg)
	if err != nil {
		return false, err
	}
	return v.Spamming(), nil
}

// Check records the message in both buckets and reports which (if any) are exceeded.
//
// Messages without a channel are not tracked. Both buckets are always updated, even when the first has already tripped.
//
// The content bucket is keyed on the channel and a 64-bit murmur3 hash of the content, so two different messages whose hashes collide share one window.
func (d *Detector) Check(ctx context.Context, msg *event.Message) (Verdict, error) {
	var v Verdict
	if msg.ChannelID == "" {
		return v, nil
	}

	contentKey := msg.ChannelID + "/" + helpers.HashOfString(d.contentOf(msg))
	contentExceeded, contentErr := d.ByContent.Check(ctx, contentKey, msg.CreatedAt)
	channelExceeded, channelErr := d.ByChannel.Check(ctx, msg.ChannelID, msg.CreatedAt)
	if contentErr != nil {
		return v, contentErr
	}
	if channelErr != nil {
		return v, channelErr
	}
	v.ContentExceeded = contentExceeded
	v.ChannelExceeded = channelExceeded
	return v, nil
}

// messages which fold to nothing (eg, only emoji) keep their exact content, so they are not all counted together
func (d *Detector) contentOf(msg *event.Message) string {
	if !d.NormalizeContent {
		return msg.Content
	}
	if folded := helpers.NormalizeText(msg.Content); folded != "" {
		return folded
	}
	return msg.Content
}
