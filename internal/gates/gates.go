// Package gates evaluates a decision document against the fixed governance
// rubric. Evaluation is pure: structured properties first, then a declarative
// phrase-inference table over the free-text body.
package gates

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
)

// RequiredBooleanGates are the checklist gates every decision must satisfy,
// either by an explicit checkbox or by text inference.
var RequiredBooleanGates = []string{
	"Strategic Alignment Brief",
	"Problem Quantified",
	"≥3 Options Evaluated",
	"Success Metrics Defined",
	"Leading Indicators Defined",
	"Kill Criteria Defined",
}

// rule is one row of the inference table. Every phrase group must match at
// least one phrase; MinNumericTokens and MinOptionLabels add the numeric
// heuristics. A literal "<gate>: no" in the body forces the gate false.
type rule struct {
	Gate             string
	PhraseGroups     [][]string
	MinNumericTokens int
	MinOptionLabels  int
}

var inferenceRules = []rule{
	{Gate: "Strategic Alignment Brief", PhraseGroups: [][]string{{"strategic context", "strategic alignment", "objective supported"}}},
	{Gate: "Problem Quantified", PhraseGroups: [][]string{{"problem framing", "quantified impact", "problem statement"}}, MinNumericTokens: 3},
	{Gate: "≥3 Options Evaluated", PhraseGroups: [][]string{{"options evaluated", "chosen option"}}, MinOptionLabels: 3},
	{Gate: "Success Metrics Defined", PhraseGroups: [][]string{{"success metrics", "primary metric", "kpi impact"}}},
	{Gate: "Leading Indicators Defined", PhraseGroups: [][]string{{"leading indicators"}}},
	{Gate: "Kill Criteria Defined", PhraseGroups: [][]string{{"kill criteria", "we will stop or pivot"}}},
	{Gate: "Option Trade-offs Explicit", PhraseGroups: [][]string{{"trade-offs", "trade offs"}}},
	{Gate: "Risk Matrix Completed", PhraseGroups: [][]string{{"risk matrix"}, {"mitigation", "probability", "impact"}}},
	{Gate: "Financial Model Included", PhraseGroups: [][]string{{"financial model", "payback period", "revenue impact", "cost impact"}}},
	{Gate: "Downside Modeled", PhraseGroups: [][]string{{"downside", "risk-adjusted", "sensitivity"}}},
	{Gate: "Compliance Reviewed", PhraseGroups: [][]string{{"compliance review", "compliance reviewed", "legal review", "regulatory review"}}},
	{Gate: "Decision Memo Written", PhraseGroups: [][]string{{"executive summary", "final decision"}}},
	{Gate: "Root Cause Done", PhraseGroups: [][]string{{"root cause"}}},
	{Gate: "Assumptions Logged", PhraseGroups: [][]string{{"assumptions", "confidence level"}}},
}

var (
	optionLabelRe  = regexp.MustCompile(`\boption\s+[a-z0-9]+\b`)
	numericTokenRe = regexp.MustCompile(`\b\d[\d,\.%]*\b`)
)

// InferFromText runs the full inference table over the document body and
// returns gate name -> inferred satisfaction.
func InferFromText(body string) map[string]bool {
	text := strings.ToLower(body)
	numericTokens := make(map[string]struct{})
	for _, m := range numericTokenRe.FindAllString(text, -1) {
		numericTokens[m] = struct{}{}
	}
	optionLabels := make(map[string]struct{})
	for _, m := range optionLabelRe.FindAllString(text, -1) {
		optionLabels[m] = struct{}{}
	}

	out := make(map[string]bool, len(inferenceRules))
	for _, r := range inferenceRules {
		out[r.Gate] = r.satisfied(text, len(numericTokens), len(optionLabels))
	}
	return out
}

func (r rule) satisfied(text string, numericCount, optionCount int) bool {
	if strings.Contains(text, strings.ToLower(r.Gate)+": no") {
		return false
	}
	for _, group := range r.PhraseGroups {
		if !anyPhrase(text, group) {
			return false
		}
	}
	if r.MinNumericTokens > 0 && numericCount < r.MinNumericTokens {
		return false
	}
	if r.MinOptionLabels > 0 && optionCount < r.MinOptionLabels {
		return false
	}
	return true
}

func anyPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

// Evaluate returns the unmet required gates for a document, attributing each
// to a missing structured property or a failed text inference. Pure; calling
// it twice on the same document yields the same outcome set.
func Evaluate(doc *decision.Document) []deliberation.GateOutcome {
	return EvaluateWithInference(doc, InferFromText(doc.Body))
}

// EvaluateWithInference is Evaluate with a precomputed inference map, so the
// orchestrator can reuse one inference pass for both gate evaluation and the
// governance auto-check write-back.
func EvaluateWithInference(doc *decision.Document, inferred map[string]bool) []deliberation.GateOutcome {
	var unmet []deliberation.GateOutcome
	if doc.Properties.Baseline == nil {
		unmet = append(unmet, deliberation.GateOutcome{Gate: "Baseline", Reason: deliberation.GateReasonMissingProperty})
	}
	if doc.Properties.Target == nil {
		unmet = append(unmet, deliberation.GateOutcome{Gate: "Target", Reason: deliberation.GateReasonMissingProperty})
	}
	if strings.TrimSpace(doc.Properties.TimeHorizon) == "" {
		unmet = append(unmet, deliberation.GateOutcome{Gate: "Time Horizon", Reason: deliberation.GateReasonMissingProperty})
	}
	for _, gate := range RequiredBooleanGates {
		if doc.Checked(gate) || inferred[gate] {
			continue
		}
		unmet = append(unmet, deliberation.GateOutcome{Gate: gate, Reason: deliberation.GateReasonNotInferable})
	}
	return unmet
}

// Names flattens outcomes to gate names, preserving order.
func Names(outcomes []deliberation.GateOutcome) []string {
	names := make([]string, len(outcomes))
	for i, o := range outcomes {
		names[i] = o.Gate
	}
	return names
}

// String implements a compact description for logging.
func Describe(o deliberation.GateOutcome) string {
	return fmt.Sprintf("%s (%s)", o.Gate, o.Reason)
}
