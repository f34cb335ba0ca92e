package schedule

import (
	"fmt"
	"strings"
)

// AbortedPolicy decides how aborted work appears in a rendered schedule.
type AbortedPolicy int

const (
	// OmitAborted drops every operation of an aborted incarnation. Rendered
	// output then re-parses to exactly the committed work.
	OmitAborted AbortedPolicy = iota
	// FlagAborted keeps aborted work in place; each aborted incarnation ends
	// with its A<id> token.
	FlagAborted
)

func (p AbortedPolicy) String() string {
	if p == FlagAborted {
		return "flag"
	}
	return "omit"
}

// ParseAbortedPolicy accepts "omit" or "flag", case-insensitively. Empty means omit.
func ParseAbortedPolicy(s string) (AbortedPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "omit":
		return OmitAborted, nil
	case "flag":
		return FlagAborted, nil
	default:
		return OmitAborted, fmt.Errorf("unknown aborted policy %q (want omit or flag)", s)
	}
}

// MarshalText lets the policy appear in YAML and JSON as its name.
func (p AbortedPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *AbortedPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseAbortedPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
