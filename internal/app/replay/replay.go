// Package replay is the pure keylog replay engine: it walks a timestamped
// keystroke sequence against a target string under a backspace policy and
// produces completion/error counts plus interval statistics. It never
// touches storage and raises no domain errors — only issues, recorded
// in-band.
package replay

import (
	"math"

	"golang.org/x/text/unicode/norm"
)

// Issue codes recorded against a replay. These are surfaced to callers, not
// raised as errors.
const (
	IssueInvalidTimestamp   = "INVALID_TIMESTAMP"
	IssueNegativeTimestamp  = "NEGATIVE_TIMESTAMP"
	IssueTimestampNotSorted = "TIMESTAMP_NOT_SORTED"
	IssueKeyLimitExceeded   = "KEY_LIMIT_EXCEEDED"
)

// MaxKeylogEntries bounds how many keystrokes a single session will replay.
const MaxKeylogEntries = 2000

var backspaceAliases = map[string]bool{
	"Backspace":    true,
	"BACKSPACE":    true,
	"BackspaceKey": true,
	"KeyBackspace": true,
}

// Keystroke is one entry of the submitted keylog. OK is carried through
// unused by the replay engine itself (it is the client's self-report).
type Keystroke struct {
	T  float64 `json:"t" validate:"gte=0"`
	K  string  `json:"k"`
	OK *bool   `json:"ok,omitempty"`
}

// Result is everything the replay produces.
type Result struct {
	Correct                 int
	Mistakes                int
	Completed               bool
	DurationMs              float64
	Issues                  []string
	ForbiddenBackspaceCount int
	Processed               int
}

// Interval is the pairwise-delta statistics of consecutive timestamps.
type Interval struct {
	Mean  float64
	Stdev float64
	Cv    float64
	Count int
}

// Replay walks a keylog against typingTarget, which is
// NFC-normalized and indexed by code point (never by byte) so that
// combining grapheme clusters are never split.
func Replay(typingTarget string, keylog []Keystroke, allowBackspace bool) Result {
	target := []rune(norm.NFC.String(typingTarget))
	targetLen := len(target)

	res := Result{Processed: len(keylog)}
	if res.Processed > MaxKeylogEntries {
		res.Issues = append(res.Issues, IssueKeyLimitExceeded)
	}

	p := 0
	mistakes := 0
	forbidden := 0

	var lastTime float64
	var firstTime float64
	haveFirst := false
	haveLast := false

	for _, ks := range keylog {
		t := ks.T

		if math.IsNaN(t) || math.IsInf(t, 0) {
			res.Issues = append(res.Issues, IssueInvalidTimestamp)
			continue
		}
		if t < 0 {
			res.Issues = append(res.Issues, IssueNegativeTimestamp)
			continue
		}
		if haveLast && t < lastTime {
			res.Issues = append(res.Issues, IssueTimestampNotSorted)
			t = lastTime
		}

		if !haveFirst {
			firstTime = t
			haveFirst = true
		}
		lastTime = t
		haveLast = true

		switch {
		case backspaceAliases[ks.K]:
			if allowBackspace {
				if p > 0 {
					p--
				}
			} else {
				mistakes++
				forbidden++
			}
		case p >= targetLen:
			mistakes++
		case string(runeAt(target, p)) == ks.K:
			p++
		default:
			mistakes++
		}
	}

	res.Correct = p
	res.Mistakes = mistakes
	res.ForbiddenBackspaceCount = forbidden
	res.Completed = p >= targetLen

	if haveFirst && haveLast {
		res.DurationMs = math.Max(0, lastTime-firstTime)
	}

	return res
}

// runeAt is a defensive bounds helper; Replay never calls it out of range
// in practice because of the p >= targetLen guard above.
func runeAt(target []rune, p int) rune {
	if p < 0 || p >= len(target) {
		return 0
	}
	return target[p]
}

// ComputeInterval derives {mean, stdev, cv, count} over the pairwise
// non-negative deltas of consecutive timestamps in keylog order.
func ComputeInterval(keylog []Keystroke) Interval {
	n := len(keylog)
	count := n - 1
	if count < 0 {
		count = 0
	}
	if count == 0 {
		return Interval{}
	}

	deltas := make([]float64, 0, count)
	for i := 1; i < n; i++ {
		d := keylog[i].T - keylog[i-1].T
		if d < 0 {
			d = 0
		}
		deltas = append(deltas, d)
	}

	var sum float64
	for _, d := range deltas {
		sum += d
	}
	mean := sum / float64(len(deltas))

	var variance float64
	for _, d := range deltas {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(deltas))
	stdev := math.Sqrt(variance)

	cv := math.Inf(1)
	if mean != 0 {
		cv = stdev / mean
	}

	return Interval{Mean: mean, Stdev: stdev, Cv: cv, Count: count}
}
