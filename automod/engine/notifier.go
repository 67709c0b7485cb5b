package engine

import (
	"context"

	"github.com/nutsandbolts/modcore/automod/dispatch"
	"github.com/nutsandbolts/modcore/automod/event"
	"github.com/nutsandbolts/modcore/automod/spam"
)

// Interface for a type that can handle sending notifications
type Notifier interface {
	SendSpam(ctx context.Context, msg *event.Message, v spam.Verdict) error
	SendReport(ctx context.Context, scope string, rep *dispatch.Report[string]) error
}
