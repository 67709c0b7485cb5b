package dispatch

import (
	"fmt"
)

type Result[T comparable] struct {
	Target  T
	Outcome Outcome
	// Denial or effect error; nil on Success
	Err error
}

// Report holds one Result per attempted target, in request order. Targets dropped by the target cap were never attempted and only appear in Dropped.
type Report[T comparable] struct {
	Action  Action
	Results []Result[T]
	Dropped []T
}

// Attempted is the number of targets which have a result.
func (r *Report[T]) Attempted() int {
	return len(r.Results)
}

func (r *Report[T]) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Targets returns the targets with the given outcome, in request order.
func (r *Report[T]) Targets(o Outcome) []T {
	var out []T
	for _, res := range r.Results {
		if res.Outcome == o {
			out = append(out, res.Target)
		}
	}
	return out
}

func (r *Report[T]) Succeeded() []T {
	return r.Targets(Success)
}

// Outcome looks up the result for a single target.
func (r *Report[T]) Outcome(target T) (Outcome, bool) {
	for _, res := range r.Results {
		if res.Target == target {
			return res.Outcome, true
		}
	}
	return 0, false
}

// Summary is the aggregate count of successful targets over attempted targets, eg "2/3".
func (r *Report[T]) Summary() string {
	return fmt.Sprintf("%d/%d", r.Count(Success), r.Attempted())
}
