package deliberation

import (
	"reflect"
	"testing"

	"github.com/Strob0t/Boardroom/internal/domain/opinion"
)

func TestReviewSetCloneIsIndependent(t *testing.T) {
	orig := ReviewSet{"a": {Agent: "a", Score: 8}}
	clone := orig.Clone()
	clone["a"] = opinion.Opinion{Agent: "a", Score: 3}
	clone["b"] = opinion.Opinion{Agent: "b", Score: 5}

	if orig["a"].Score != 8 || len(orig) != 1 {
		t.Errorf("clone mutation leaked into original: %+v", orig)
	}
}

func TestReviewSetAgentsSorted(t *testing.T) {
	set := ReviewSet{
		"technical-feasibility": {},
		"financial-integrity":   {},
		"red-team":              {},
	}
	want := []string{"financial-integrity", "red-team", "technical-feasibility"}
	if got := set.Agents(); !reflect.DeepEqual(got, want) {
		t.Errorf("agents = %v, want %v", got, want)
	}
}

func TestRunPreviewTallies(t *testing.T) {
	run := &Run{
		RunID:        "r1",
		DecisionID:   "d1",
		DQS:          6.4,
		GateDecision: RecommendationChallenged,
		Status:       StatusPersisted,
		Reviews: ReviewSet{
			"a": {Agent: "a", Score: 9},
			"b": {Agent: "b", Score: 7},
			"c": {Agent: "c", Score: 4},
			"d": {Agent: "d", Score: 5},
			"e": {Agent: "e", Score: 9, Blocked: true, Blockers: []string{"x"}},
		},
		GateOutcomes: []GateOutcome{{Gate: "Target", Reason: GateReasonMissingProperty}},
	}

	p := run.Preview()
	if p.ApprovingAgents != 2 {
		t.Errorf("approving = %d, want 2", p.ApprovingAgents)
	}
	if p.DissentingAgents != 1 {
		t.Errorf("dissenting = %d, want 1", p.DissentingAgents)
	}
	if p.BlockedAgents != 1 {
		t.Errorf("blocked = %d, want 1", p.BlockedAgents)
	}
	if p.MissingGateCount != 1 {
		t.Errorf("missing gates = %d, want 1", p.MissingGateCount)
	}
	if p.DQS != run.DQS || p.RunID != run.RunID || p.Status != run.Status {
		t.Errorf("preview fields diverge from run: %+v", p)
	}
}
