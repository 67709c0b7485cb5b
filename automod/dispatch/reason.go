package dispatch

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxReasonLength is the longest reason (in characters) passed on to effects, matching the platform's audit log limit.
const MaxReasonLength = 512

const defaultReason = "No reason provided."

var ErrReasonTooLong = errors.New("reason is too long")

// FormatReason builds the audit-log reason for an action, attributing it to the actor:
//
//	"<actor name> (ID: <actor id>): <reason>"
//
// If the result would not fit in MaxReasonLength, the error says how long the caller's reason may be.
func FormatReason(actorName, actorID, reason string) (string, error) {
	shown := reason
	if shown == "" {
		shown = defaultReason
	}
	full := fmt.Sprintf("%s (ID: %s): %s", actorName, actorID, shown)

	fullLen := utf8.RuneCountInString(full)
	if fullLen > MaxReasonLength {
		reasonLen := utf8.RuneCountInString(reason)
		allowed := max(MaxReasonLength-fullLen+reasonLen, 0)
		return "", fmt.Errorf("%w: %d character reason (%d character max)", ErrReasonTooLong, reasonLen, allowed)
	}
	return full, nil
}
