package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/opinion"
	"github.com/Strob0t/Boardroom/internal/domain/panel"
	"github.com/Strob0t/Boardroom/internal/port/reviewer"
)

func mandatoryPanelSet(score int) deliberation.ReviewSet {
	set := deliberation.ReviewSet{}
	for _, id := range []string{"strategic-viability", "financial-integrity", "technical-feasibility", "governance-compliance"} {
		set[id] = opinion.Opinion{Agent: id, Score: score, Confidence: 0.8}
	}
	return set
}

func rebuttalRequest(agent string, prior deliberation.ReviewSet, round int) reviewer.Request {
	return reviewer.Request{Agent: agent, PriorRound: prior, RoundNumber: round}
}

func TestRunRoundsZeroIsNoOp(t *testing.T) {
	collab := newFakeCollab(func(reviewer.Request, int) (string, error) {
		t.Error("collaborator must not be invoked for zero rounds")
		return "", nil
	})
	r := NewRebuttal(newTestCollector(collab), discardLogger())
	cfg := panel.Default()

	set := mandatoryPanelSet(7)
	final, rounds, err := r.RunRounds(context.Background(), set, 0, &cfg, rebuttalRequest)
	if err != nil {
		t.Fatalf("zero rounds: %v", err)
	}
	if len(rounds) != 0 {
		t.Errorf("rounds = %v, want none", rounds)
	}
	if len(final) != len(set) {
		t.Errorf("set changed: %v", final)
	}
}

func TestRunRoundsSequentialContextChaining(t *testing.T) {
	var mu sync.Mutex
	priorScores := make(map[int]int)

	collab := newFakeCollab(func(req reviewer.Request, _ int) (string, error) {
		mu.Lock()
		if req.Agent == "strategic-viability" {
			priorScores[req.RoundNumber] = req.PriorRound["strategic-viability"].Score
		}
		mu.Unlock()
		// Everyone converges upward by one point per round.
		return opinionJSON(7 + req.RoundNumber), nil
	})
	r := NewRebuttal(newTestCollector(collab), discardLogger())
	cfg := panel.Default()

	final, rounds, err := r.RunRounds(context.Background(), mandatoryPanelSet(7), 2, &cfg, rebuttalRequest)
	if err != nil {
		t.Fatalf("rounds: %v", err)
	}
	if len(rounds) != 2 {
		t.Fatalf("got %d rounds, want 2", len(rounds))
	}

	// Round 2's shared context is round 1's revised set, not the original.
	if priorScores[1] != 7 || priorScores[2] != 8 {
		t.Errorf("prior scores by round = %v, want 1:7 2:8", priorScores)
	}
	if got := final["strategic-viability"].Score; got != 9 {
		t.Errorf("final score = %d, want 9", got)
	}

	if rounds[0].Number != 1 || rounds[1].Number != 2 {
		t.Errorf("round numbers out of order: %d, %d", rounds[0].Number, rounds[1].Number)
	}
	for _, d := range rounds[0].Deltas {
		if d.PreviousScore != 7 || d.RevisedScore != 8 || d.ScoreDelta != 1 {
			t.Errorf("round 1 delta for %s = %+v", d.Agent, d)
		}
	}
}

func TestRunRoundsFreezesDegradedAgent(t *testing.T) {
	collab := newFakeCollab(func(req reviewer.Request, _ int) (string, error) {
		if req.Agent == "financial-integrity" {
			return "", errors.New("model unavailable")
		}
		return opinionJSON(9), nil
	})
	r := NewRebuttal(newTestCollector(collab), discardLogger())
	cfg := panel.Default()

	final, rounds, err := r.RunRounds(context.Background(), mandatoryPanelSet(7), 2, &cfg, rebuttalRequest)
	if err != nil {
		t.Fatalf("rounds: %v", err)
	}

	// The degraded agent keeps its last opinion and the set stays complete.
	if got := final["financial-integrity"].Score; got != 7 {
		t.Errorf("frozen opinion score = %d, want original 7", got)
	}
	if len(final) != 4 {
		t.Errorf("set has %d opinions, want 4", len(final))
	}

	if len(rounds) != 2 {
		t.Fatalf("got %d rounds, want 2", len(rounds))
	}
	if got := len(rounds[0].Deltas); got != 4 {
		t.Errorf("round 1 invoked %d agents, want 4", got)
	}
	if got := len(rounds[1].Deltas); got != 3 {
		t.Errorf("round 2 invoked %d agents, frozen agent must be excluded", got)
	}
	for _, d := range rounds[1].Deltas {
		if d.Agent == "financial-integrity" {
			t.Error("frozen agent appears in round 2 deltas")
		}
	}
}

func TestRunRoundsStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	collab := newFakeCollab(func(reviewer.Request, int) (string, error) {
		return opinionJSON(8), nil
	})
	r := NewRebuttal(newTestCollector(collab), discardLogger())
	cfg := panel.Default()

	set := mandatoryPanelSet(7)
	final, rounds, err := r.RunRounds(ctx, set, 3, &cfg, rebuttalRequest)
	if err == nil {
		t.Fatal("cancelled context must surface an error")
	}
	if len(rounds) != 0 {
		t.Errorf("rounds = %v, want none", rounds)
	}
	if len(final) != len(set) {
		t.Errorf("set changed: %v", final)
	}
}

func TestBuildRoundSummary(t *testing.T) {
	prior := deliberation.ReviewSet{
		"a": {Agent: "a", Score: 6},
		"b": {Agent: "b", Score: 8},
	}
	next := deliberation.ReviewSet{
		"a": {Agent: "a", Score: 8},
		"b": {Agent: "b", Score: 8},
	}
	invoked := []panel.AgentSpec{
		{ID: "a", Role: panel.RoleMandatory, Weight: 0.5},
		{ID: "b", Role: panel.RoleMandatory, Weight: 0.5},
	}

	round := buildRound(3, prior, next, invoked)
	if want := "round 3: position changes: a (+2)"; round.Summary != want {
		t.Errorf("summary = %q, want %q", round.Summary, want)
	}

	round = buildRound(4, next, next, invoked)
	if want := "round 4: no position changes"; round.Summary != want {
		t.Errorf("summary = %q, want %q", round.Summary, want)
	}
}
