package dispatch

import (
	"errors"
	"fmt"
)

// Action names a moderation operation. The set is open: platforms may define more.
type Action string

const (
	ActionKick       Action = "kick"
	ActionBan        Action = "ban"
	ActionUnban      Action = "unban"
	ActionSoftban    Action = "softban"
	ActionBlock      Action = "block"
	ActionUnblock    Action = "unblock"
	ActionAddRole    Action = "add-role"
	ActionRemoveRole Action = "remove-role"
	ActionClone      Action = "clone"
)

// Outcome is the per-target result of a dispatched action. Every attempted target gets exactly one.
type Outcome int

const (
	Success Outcome = iota
	// the bot lacks the capability to act on the target
	NoAccess
	// the target no longer exists
	NotFound
	// the request was a no-op, eg unblocking someone who was never blocked
	AlreadyInState
	// the actor failed the authorization check; no effect was attempted
	PermissionDenied
	// anything else, including transport failures, timeouts and panics
	Unexpected
)

var outcomeNames = map[Outcome]string{
	Success:          "success",
	NoAccess:         "no-access",
	NotFound:         "not-found",
	AlreadyInState:   "already-in-state",
	PermissionDenied: "permission-denied",
	Unexpected:       "unexpected",
}

// AllOutcomes lists outcomes in declaration order.
var AllOutcomes = []Outcome{Success, NoAccess, NotFound, AlreadyInState, PermissionDenied, Unexpected}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// EffectError is the only error type effect functions are expected to return. Kind says how the failure is reported; any other error, or an EffectError with a Kind outside {NoAccess, NotFound, AlreadyInState, Unexpected}, is reported as Unexpected.
type EffectError struct {
	Kind Outcome
	Err  error
}

func (e *EffectError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *EffectError) Unwrap() error {
	return e.Err
}

func NoAccessError(err error) error {
	return &EffectError{Kind: NoAccess, Err: err}
}

func NotFoundError(err error) error {
	return &EffectError{Kind: NotFound, Err: err}
}

func AlreadyInStateError(err error) error {
	return &EffectError{Kind: AlreadyInState, Err: err}
}

func UnexpectedError(err error) error {
	return &EffectError{Kind: Unexpected, Err: err}
}

// Classify maps an effect error to an outcome. A nil error is Success.
func Classify(err error) Outcome {
	if err == nil {
		return Success
	}
	var ee *EffectError
	if !errors.As(err, &ee) {
		return Unexpected
	}
	switch ee.Kind {
	case NoAccess, NotFound, AlreadyInState:
		return ee.Kind
	default:
		return Unexpected
	}
}
