package scheduler

import (
	"fmt"
	"strings"

	"ccsim/pkg/schedule"
)

// Algorithm selects the concurrency-control protocol for a run.
type Algorithm string

const (
	TwoPhaseLocking Algorithm = "twophase"
	Optimistic      Algorithm = "occ"
)

// Algorithms lists every supported protocol.
var Algorithms = []Algorithm{TwoPhaseLocking, Optimistic}

// ParseAlgorithm accepts the route-style names "twophase" and "occ", plus the
// common aliases "2pl" and "optimistic".
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "twophase", "2pl", "two-phase":
		return TwoPhaseLocking, nil
	case "occ", "optimistic":
		return Optimistic, nil
	default:
		return "", fmt.Errorf("unknown algorithm %q (want twophase or occ)", s)
	}
}

func (a Algorithm) String() string {
	return string(a)
}

// Options tune a run. The zero value is not the default; use DefaultOptions.
type Options struct {
	// AbortedPolicy controls how aborted work appears in Result.Output.
	AbortedPolicy schedule.AbortedPolicy `yaml:"aborted_policy"`

	// RestartAborted replays deadlock victims (2PL) and validation failures
	// (OCC) as new incarnations. Protocol violations and user aborts are
	// never restarted.
	RestartAborted bool `yaml:"restart_aborted"`

	// MaxDeadlockRestarts bounds deadlock restarts in a 2PL run. Zero or less
	// means the number of distinct transactions in the input.
	MaxDeadlockRestarts int `yaml:"max_deadlock_restarts"`
}

func DefaultOptions() Options {
	return Options{
		AbortedPolicy:  schedule.OmitAborted,
		RestartAborted: true,
	}
}
