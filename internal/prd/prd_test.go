package prd

import (
	"reflect"
	"strings"
	"testing"

	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/opinion"
)

const sampleBody = `Executive Summary
Checkout abandonment is rising and we need a structural fix.

1. Strategic Context
Conversion is the top company objective this half.

2. Problem Framing
Quantified impact: abandonment grew from 55% to 68% in two quarters.

3. Options Evaluated
Option A (One-page checkout): rebuild the flow into a single page.
Option B (Express wallet): add wallet-based express payment.

6. Final Decision
Chosen option:
Option A (One-page checkout)
Prioritize mobile web first

7. Kill Criteria
We will stop or pivot if: abandonment does not drop within 60 days.

8. Monitoring Plan
Primary metric: checkout conversion rate
Weekly funnel review with the growth team.`

func sampleDoc() *decision.Document {
	baseline, target := 55.0, 40.0
	return &decision.Document{
		ID:   "dec-1",
		Name: "Checkout revamp",
		Properties: decision.Properties{
			StrategicObjective: "Lift checkout conversion",
			PrimaryKPI:         "checkout conversion rate",
			Baseline:           &baseline,
			Target:             &target,
			TimeHorizon:        "Q2",
			Owner:              "Growth",
		},
		Body: sampleBody,
	}
}

func TestBuildLiftsSectionsAndProperties(t *testing.T) {
	prd := Build(sampleDoc(), deliberation.ReviewSet{}, nil)

	if prd.Title != "PRD for Decision Checkout revamp" {
		t.Errorf("title = %q", prd.Title)
	}
	goals := strings.Join(prd.Sections["Goals"], "\n")
	if !strings.Contains(goals, "Lift checkout conversion") {
		t.Errorf("goals missing objective: %v", prd.Sections["Goals"])
	}
	if !strings.Contains(goals, "Baseline 55 -> Target 40") {
		t.Errorf("goals missing KPI span: %v", prd.Sections["Goals"])
	}
	if len(prd.Milestones) != 3 || !strings.Contains(prd.Milestones[0], "Q2") {
		t.Errorf("milestones = %v", prd.Milestones)
	}
}

func TestBuildFinalDecisionRequirement(t *testing.T) {
	prd := Build(sampleDoc(), deliberation.ReviewSet{}, nil)

	reqs := strings.Join(prd.Sections["Requirements"], "\n")
	if !strings.Contains(reqs, "Implement Option A (One-page checkout) as the selected approach.") {
		t.Errorf("requirements = %v", prd.Sections["Requirements"])
	}
	if !strings.Contains(reqs, "Trade-off guardrail: Prioritize mobile web first.") {
		t.Errorf("requirements missing guardrail: %v", prd.Sections["Requirements"])
	}
}

func TestBuildCombinedOptions(t *testing.T) {
	text := `Chosen option:
Option A (One-page checkout) combined with Option B (Express wallet)`
	reqs := finalDecisionRequirements(text)
	if len(reqs) == 0 {
		t.Fatal("expected a combined requirement")
	}
	want := "Implement a phased rollout combining Option A (One-page checkout) + Option B (Express wallet)."
	if reqs[0] != want {
		t.Errorf("requirement = %q, want %q", reqs[0], want)
	}
}

func TestBuildUsesReviewOutput(t *testing.T) {
	set := deliberation.ReviewSet{
		"red-team": opinion.Opinion{
			Agent:           "red-team",
			Score:           6,
			RequiredChanges: []string{"Add a rollback switch for the new flow"},
			Risks: []opinion.Risk{
				{Type: "execution", Severity: 7, Evidence: "team has never shipped a payments change"},
			},
		},
	}
	synthesis := &deliberation.Synthesis{
		FinalRecommendation: deliberation.RecommendationApproved,
		RequiredRevisions:   []string{"Add a rollback switch for the new flow"},
	}

	prd := Build(sampleDoc(), set, synthesis)

	if !strings.Contains(strings.Join(prd.Sections["Requirements"], "\n"), "Add a rollback switch") {
		t.Errorf("requirements missing review change: %v", prd.Sections["Requirements"])
	}
	if !strings.Contains(strings.Join(prd.Risks, "\n"), "never shipped a payments change") {
		t.Errorf("risks missing review evidence: %v", prd.Risks)
	}
	if !strings.Contains(strings.Join(prd.Sections["Q&A"], "\n"), "Required revision:") {
		t.Errorf("Q&A missing revisions: %v", prd.Sections["Q&A"])
	}
}

func TestBuildFillsDefaults(t *testing.T) {
	doc := &decision.Document{ID: "dec-2", Name: "Bare", Body: ""}
	prd := Build(doc, deliberation.ReviewSet{}, nil)

	for name, fallback := range sectionDefaults {
		lines := prd.Sections[name]
		if len(lines) == 0 {
			t.Errorf("section %q left empty", name)
			continue
		}
		if name == "Q&A" {
			continue
		}
		if lines[0] != fallback {
			t.Errorf("section %q = %v, want default %q", name, lines, fallback)
		}
	}
	if len(prd.Risks) == 0 {
		t.Error("risks must never be empty")
	}
}

func TestExtractSectionBounds(t *testing.T) {
	got := extractSection(sampleBody, "7. Kill Criteria")
	if !strings.Contains(got, "stop or pivot") {
		t.Errorf("section content = %q", got)
	}
	if strings.Contains(got, "Monitoring Plan") || strings.Contains(got, "funnel review") {
		t.Errorf("section bleeds into the next heading: %q", got)
	}
	if extractSection(sampleBody, "4. Financial Model") != "" {
		t.Error("absent heading should yield empty section")
	}
}

func TestCleanLine(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  - **Bold point** about `code`  ", "Bold point about code"},
		{"Decision requirement: ship it", "ship it"},
		{"• chosen option:", ""},
		{"-", ""},
		{"\tspaced\tout\twords", "spaced out words"},
	}
	for _, tc := range cases {
		if got := cleanLine(tc.in); got != tc.want {
			t.Errorf("cleanLine(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}

	long := strings.Repeat("x", 300)
	if got := cleanLine(long); len(got) != maxLineLen {
		t.Errorf("long line trimmed to %d, want %d", len(got), maxLineLen)
	}
}

func TestIsLabelOnlyLine(t *testing.T) {
	labels := []string{
		"Quantified impact",
		"Primary metric:",
		"Mitigation",
		"Chosen option: Option A (One-page checkout)",
		"combine",
	}
	for _, l := range labels {
		if !isLabelOnlyLine(l) {
			t.Errorf("%q should be label-only", l)
		}
	}
	if isLabelOnlyLine("Abandonment grew from 55% to 68% in two quarters.") {
		t.Error("content line misclassified as label")
	}
}

func TestDedupeKeepOrder(t *testing.T) {
	in := []string{"First point", "first point", "Second point", "Third point"}
	want := []string{"First point", "Second point"}
	if got := dedupeKeepOrder(in, 2); !reflect.DeepEqual(got, want) {
		t.Errorf("dedupe = %v, want %v", got, want)
	}
}

func TestDedupeSemantic(t *testing.T) {
	in := []string{
		"Conduct a thorough security review of the payment flow",
		"Perform a comprehensive security review of the payment flow",
		"Instrument funnel analytics for the new checkout",
	}
	got := dedupeSemantic(in, 10, 0.86)
	if len(got) != 2 {
		t.Fatalf("semantic dedupe kept %d lines: %v", len(got), got)
	}
	if got[1] != "Instrument funnel analytics for the new checkout" {
		t.Errorf("unexpected survivor order: %v", got)
	}
}

func TestTokenSimilarity(t *testing.T) {
	a := strings.Fields("security review payment flow")
	if got := tokenSimilarity(a, a); got != 1 {
		t.Errorf("identical tokens = %v, want 1", got)
	}
	b := strings.Fields("instrument funnel analytics")
	if got := tokenSimilarity(a, b); got != 0 {
		t.Errorf("disjoint tokens = %v, want 0", got)
	}
	if got := tokenSimilarity(nil, nil); got != 1 {
		t.Errorf("empty vs empty = %v, want 1", got)
	}
	if got := tokenSimilarity(a, nil); got != 0 {
		t.Errorf("tokens vs empty = %v, want 0", got)
	}
}

func TestFormatNumber(t *testing.T) {
	if got := formatNumber(55); got != "55" {
		t.Errorf("formatNumber(55) = %q", got)
	}
	if got := formatNumber(3.5); got != "3.5" {
		t.Errorf("formatNumber(3.5) = %q", got)
	}
}
