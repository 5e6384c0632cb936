package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/Strob0t/Boardroom/internal/domain/panel"
	"github.com/Strob0t/Boardroom/internal/port/reviewer"
)

func newTestCollector(collab reviewer.Collaborator) *Collector {
	g := NewGateway(collab, time.Second, discardLogger())
	return NewCollector(g, 2, 5*time.Second, discardLogger())
}

func plainRequest(agent string) reviewer.Request {
	return reviewer.Request{Agent: agent}
}

func TestCollectFullPanel(t *testing.T) {
	collab := newFakeCollab(func(req reviewer.Request, _ int) (string, error) {
		return opinionJSON(8), nil
	})
	cfg := panel.Default()
	cfg.IncludeRedTeam = true

	set, degraded, err := newTestCollector(collab).Collect(context.Background(), &cfg, plainRequest)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(degraded) != 0 {
		t.Errorf("degraded = %v, want none", degraded)
	}
	if len(set) != 5 {
		t.Fatalf("set has %d opinions, want 5", len(set))
	}
	for id, op := range set {
		if op.Agent != id || op.Score != 8 {
			t.Errorf("opinion for %s = %+v", id, op)
		}
	}
}

func TestCollectToleratesMinorityDegradation(t *testing.T) {
	collab := newFakeCollab(func(req reviewer.Request, _ int) (string, error) {
		if req.Agent == "red-team" || req.Agent == "governance-compliance" {
			return "", errors.New("model unavailable")
		}
		return opinionJSON(7), nil
	})
	cfg := panel.Default()
	cfg.IncludeRedTeam = true

	set, degraded, err := newTestCollector(collab).Collect(context.Background(), &cfg, plainRequest)
	if err != nil {
		t.Fatalf("one mandatory loss of four must not abort: %v", err)
	}
	want := []string{"governance-compliance", "red-team"}
	if !reflect.DeepEqual(degraded, want) {
		t.Errorf("degraded = %v, want %v", degraded, want)
	}
	if len(set) != 3 {
		t.Errorf("set has %d opinions, want 3", len(set))
	}
}

func TestCollectAbortsWhenMandatoryMajorityDegrades(t *testing.T) {
	failing := map[string]bool{
		"strategic-viability":   true,
		"financial-integrity":   true,
		"technical-feasibility": true,
	}
	collab := newFakeCollab(func(req reviewer.Request, _ int) (string, error) {
		if failing[req.Agent] {
			return "", errors.New("model unavailable")
		}
		return opinionJSON(7), nil
	})
	cfg := panel.Default()

	set, degraded, err := newTestCollector(collab).Collect(context.Background(), &cfg, plainRequest)
	if !errors.Is(err, ErrIncompleteDeliberation) {
		t.Fatalf("err = %v, want ErrIncompleteDeliberation", err)
	}
	if len(degraded) != 3 {
		t.Errorf("degraded = %v, want the 3 failing agents", degraded)
	}
	if len(set) != 1 {
		t.Errorf("partial set has %d opinions, want 1", len(set))
	}
}

func TestCollectRedTeamLossDoesNotCountAgainstThreshold(t *testing.T) {
	// Only the red team fails: zero mandatory degradation, run proceeds.
	collab := newFakeCollab(func(req reviewer.Request, _ int) (string, error) {
		if req.Agent == "red-team" {
			return "", errors.New("model unavailable")
		}
		return opinionJSON(7), nil
	})
	cfg := panel.Default()
	cfg.IncludeRedTeam = true

	_, degraded, err := newTestCollector(collab).Collect(context.Background(), &cfg, plainRequest)
	if err != nil {
		t.Fatalf("red-team loss must not abort: %v", err)
	}
	if !reflect.DeepEqual(degraded, []string{"red-team"}) {
		t.Errorf("degraded = %v", degraded)
	}
}
