// Package scoring is the pure scoring kernel: given raw replay counters it
// derives cpm/wpm/accuracy/score, and compares a client-reported stat set
// against the authoritative one within tolerance.
package scoring

import (
	"errors"
	"math"
)

// ErrInvalidArgument is the only error this package raises; it never
// defines domain-specific error kinds (those live in the typing store).
var ErrInvalidArgument = errors.New("scoring: invalid argument")

// Stats is the quadruple the kernel produces and the quadruple a client
// reports back for comparison.
type Stats struct {
	Cpm      float64
	Wpm      float64
	Accuracy float64
	Score    int
}

// Tolerances bounds the allowed per-field delta between a reported Stats
// value and the authoritative one.
type Tolerances struct {
	Cpm      float64
	Wpm      float64
	Accuracy float64
	Score    float64
}

// DefaultTolerances are the kernel's own defaults.
var DefaultTolerances = Tolerances{Cpm: 1.0, Wpm: 1.0, Accuracy: 0.02, Score: 1}

// RelaxedTolerances are the ones the session evaluator substitutes for
// network-jitter forgiveness.
var RelaxedTolerances = Tolerances{Cpm: 1.5, Wpm: 1.5, Accuracy: 0.05, Score: 2}

// Calculate derives (cpm, wpm, accuracy, score) from replay counters.
//
// elapsedMs <= 0 is a degenerate case, not an error: cpm/wpm/score collapse
// to zero and accuracy is 1 iff there were no mistakes. Negative correct or
// mistakes counts are programmer errors.
func Calculate(correct, mistakes int, elapsedMs float64) (Stats, error) {
	if correct < 0 || mistakes < 0 {
		return Stats{}, ErrInvalidArgument
	}

	total := correct + mistakes
	accuracy := 1.0
	if total != 0 {
		accuracy = float64(correct) / float64(total)
	}

	if elapsedMs <= 0 {
		if mistakes != 0 {
			accuracy = 0
		} else {
			accuracy = 1
		}
		return Stats{Cpm: 0, Wpm: 0, Accuracy: accuracy, Score: 0}, nil
	}

	elapsedMinutes := elapsedMs / 60000
	cpm := float64(correct) / elapsedMinutes
	wpm := cpm / 5
	score := int(math.Floor(cpm * accuracy * accuracy / 2))

	return Stats{Cpm: cpm, Wpm: wpm, Accuracy: accuracy, Score: score}, nil
}

// Comparison is the per-field delta report produced by Compare.
type Comparison struct {
	OK           bool
	CpmDelta     float64
	WpmDelta     float64
	AccuracyDelta float64
	ScoreDelta   float64
}

// Compare checks a reported Stats value against the authoritative one,
// using the supplied tolerances. A missing or NaN reported field is
// recorded as an infinite delta and forces OK=false.
func Compare(reported, authoritative Stats, reportedPresent bool, tol Tolerances) Comparison {
	if !reportedPresent {
		return Comparison{
			OK:            false,
			CpmDelta:      math.Inf(1),
			WpmDelta:      math.Inf(1),
			AccuracyDelta: math.Inf(1),
			ScoreDelta:    math.Inf(1),
		}
	}

	cmp := Comparison{OK: true}

	cmp.CpmDelta = delta(reported.Cpm, authoritative.Cpm)
	cmp.WpmDelta = delta(reported.Wpm, authoritative.Wpm)
	cmp.AccuracyDelta = delta(reported.Accuracy, authoritative.Accuracy)
	cmp.ScoreDelta = math.Abs(float64(reported.Score - authoritative.Score))

	if cmp.CpmDelta > tol.Cpm || math.IsNaN(cmp.CpmDelta) {
		cmp.OK = false
	}
	if cmp.WpmDelta > tol.Wpm || math.IsNaN(cmp.WpmDelta) {
		cmp.OK = false
	}
	if cmp.AccuracyDelta > tol.Accuracy || math.IsNaN(cmp.AccuracyDelta) {
		cmp.OK = false
	}
	if cmp.ScoreDelta > tol.Score || math.IsNaN(cmp.ScoreDelta) {
		cmp.OK = false
	}

	return cmp
}

func delta(reported, authoritative float64) float64 {
	if math.IsNaN(reported) {
		return math.Inf(1)
	}
	return math.Abs(reported - authoritative)
}
