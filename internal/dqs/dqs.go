// Package dqs computes the Decision Quality Score: a confidence-weighted
// mean of panel scores with fixed penalties for blocking dissent, degraded
// coverage, and unmet governance gates.
package dqs

import (
	"math"

	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/panel"
)

// Scoring constants. A single blocked opinion must keep the composite below
// the approval threshold without zeroing it, so partial improvement still
// moves the score.
const (
	ApprovalThreshold = 7.0

	blockedPenalty   = 3.5
	degradedPenalty  = 0.75
	unmetGatePenalty = 0.5

	// An opinion with zero confidence still contributes at half its
	// panel weight, never at zero.
	confidenceFloor = 0.5
)

// Aggregate reduces the final review set to a single score in [0,10],
// rounded to one decimal. Pure.
func Aggregate(set deliberation.ReviewSet, cfg *panel.Config, degraded []string, unmetGates int) float64 {
	var weightSum, scoreSum float64
	for _, id := range set.Agents() {
		op := set[id]
		spec, ok := cfg.Spec(id)
		if !ok {
			continue
		}
		w := spec.Weight * (confidenceFloor + (1-confidenceFloor)*op.Confidence)
		weightSum += w
		scoreSum += w * float64(op.Score)
	}
	if weightSum == 0 {
		return 0
	}
	score := scoreSum / weightSum

	for _, id := range set.Agents() {
		if set[id].Blocked {
			score -= blockedPenalty
		}
	}
	score -= degradedPenalty * float64(len(degraded))
	score -= unmetGatePenalty * float64(unmetGates)

	score = math.Min(10, math.Max(0, score))
	return math.Round(score*10) / 10
}
