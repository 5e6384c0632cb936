// Package synth implements the chairperson: it reduces the final review set,
// the unmet gates, and the DQS to a single recommendation with conflicts,
// blockers, and required revisions. Pure.
package synth

import (
	"fmt"
	"strings"

	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/opinion"
	"github.com/Strob0t/Boardroom/internal/dqs"
)

// Stance thresholds over a 1-10 score.
const (
	approveScore = 7
	dissentScore = 4
)

// Synthesize produces the chairperson output exactly once per run, after the
// review set is frozen and DQS and gates are final.
func Synthesize(set deliberation.ReviewSet, unmetGates []deliberation.GateOutcome, score float64) *deliberation.Synthesis {
	s := &deliberation.Synthesis{
		Conflicts:         conflicts(set),
		Blockers:          blockers(set),
		RequiredRevisions: requiredRevisions(set),
	}

	switch {
	case anyBlocked(set) || len(unmetGates) > 0:
		s.FinalRecommendation = deliberation.RecommendationBlocked
	case score < dqs.ApprovalThreshold || len(s.Conflicts) > 0:
		s.FinalRecommendation = deliberation.RecommendationChallenged
	default:
		s.FinalRecommendation = deliberation.RecommendationApproved
	}

	s.ExecutiveSummary = summary(set, unmetGates, score, s.FinalRecommendation)
	return s
}

func anyBlocked(set deliberation.ReviewSet) bool {
	for _, op := range set {
		if op.Blocked {
			return true
		}
	}
	return false
}

// conflicts pairs every approving agent with every dissenting agent. A
// dissenting agent's first blocker or required change names the issue.
func conflicts(set deliberation.ReviewSet) []deliberation.Conflict {
	var approving, dissenting []string
	for _, id := range set.Agents() {
		op := set[id]
		switch {
		case op.Blocked || op.Score <= dissentScore:
			dissenting = append(dissenting, id)
		case op.Score >= approveScore:
			approving = append(approving, id)
		}
	}

	var out []deliberation.Conflict
	for _, a := range approving {
		for _, d := range dissenting {
			out = append(out, deliberation.Conflict{
				AgentA: a,
				AgentB: d,
				Issue:  issueFor(set[d]),
			})
		}
	}
	return out
}

func issueFor(op opinion.Opinion) string {
	if len(op.Blockers) > 0 {
		return op.Blockers[0]
	}
	if len(op.RequiredChanges) > 0 {
		return op.RequiredChanges[0]
	}
	return "score dissent"
}

// blockers collects the deduplicated blocker list from blocking opinions
// only. A stray blockers field on a non-blocked opinion carries no weight.
func blockers(set deliberation.ReviewSet) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, id := range set.Agents() {
		op := set[id]
		if !op.Blocked {
			continue
		}
		for _, b := range op.Blockers {
			key := strings.ToLower(strings.TrimSpace(b))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, b)
		}
	}
	return out
}

// requiredRevisions is the deduplicated union of every live opinion's
// required changes, first occurrence wins, case-insensitive.
func requiredRevisions(set deliberation.ReviewSet) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, id := range set.Agents() {
		for _, c := range set[id].RequiredChanges {
			key := strings.ToLower(strings.TrimSpace(c))
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func summary(set deliberation.ReviewSet, unmetGates []deliberation.GateOutcome, score float64, rec deliberation.Recommendation) string {
	blocked := 0
	for _, op := range set {
		if op.Blocked {
			blocked++
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: DQS %.1f across %d reviewers", rec, score, len(set))
	if blocked > 0 {
		fmt.Fprintf(&b, ", %d blocking", blocked)
	}
	if len(unmetGates) > 0 {
		names := make([]string, len(unmetGates))
		for i, g := range unmetGates {
			names[i] = g.Gate
		}
		fmt.Fprintf(&b, "; unmet gates: %s", strings.Join(names, ", "))
	}
	return b.String()
}
