// Package prd builds a product requirements document for an approved
// decision. It lifts content from the decision document's numbered sections,
// the panel's required changes and risk evidence, and the synthesis output,
// then cleans, filters, and deduplicates the lines per section.
package prd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
)

// sourceHeadings are the numbered sections of a well-formed decision body.
var sourceHeadings = []string{
	"Executive Summary",
	"1. Strategic Context",
	"2. Problem Framing",
	"3. Options Evaluated",
	"4. Financial Model",
	"5. Risk Matrix",
	"6. Final Decision",
	"7. Kill Criteria",
	"8. Monitoring Plan",
}

// sectionDefaults fill any PRD section no source line survived cleaning for.
var sectionDefaults = map[string]string{
	"Goals":        "Define the north star: outcomes, why now, tie to OKRs.",
	"Background":   "Context: prior decisions, customer insights, incidents, gaps.",
	"Research":     "Market scans, competitive benchmarks, and evidence.",
	"User Stories": `Use: "As a [user], I want [action], so I can [benefit]."`,
	"Requirements": "Functional, non-functional, and constraints. Make them testable.",
	"Telemetry":    "Events, properties, funnels, KPIs, dashboards, and review cadence.",
	"Experiment":   "Hypothesis, KPIs, success/fail criteria, and sampling plan.",
	"Q&A":          "Open questions, blockers, and dependencies.",
	"Notes":        "Assumptions, pending decisions, and implementation notes.",
}

// labelOnlyPhrases are checklist labels that carry no content on their own.
var labelOnlyPhrases = map[string]struct{}{
	"objective supported": {}, "kpi impact": {}, "cost of inaction": {},
	"clear problem statement": {}, "root cause": {}, "affected segment": {},
	"quantified impact": {}, "chosen option": {}, "trade-offs": {},
	"trade offs": {}, "primary metric": {}, "leading indicators": {},
	"review cadence": {}, "criteria": {}, "revenue impact (12m)": {},
	"cost impact": {}, "margin effect": {}, "payback period": {},
	"confidence level": {}, "risk": {}, "impact": {}, "probability": {},
	"mitigation": {}, "we will stop or pivot if": {},
}

var linePrefixesToStrip = []string{
	"decision requirement:",
	"executive requirement:",
	"problem framing:",
	"options evaluated:",
	"financial model:",
	"kill criterion:",
	"decision memo:",
}

var (
	optionNameRe  = regexp.MustCompile(`Option\s+([A-Za-z0-9]+)\s*\(([^)]+)\)`)
	optionTailRe  = regexp.MustCompile(`^option\s+[a-z0-9]+(\s*\(.+\))?$`)
	sentenceSplit = regexp.MustCompile(`(?:[.!?])\s+`)
	nonAlnumRe    = regexp.MustCompile(`[^a-z0-9\s]`)
	fillerWordRe  = regexp.MustCompile(`\b(a|an|the|to|for|of|and|or|with|all|ensure|perform|conduct|develop|comprehensive|thorough|potential|required)\b`)
)

const maxLineLen = 260

// Build assembles the PRD for an approved run.
func Build(doc *decision.Document, set deliberation.ReviewSet, synthesis *deliberation.Synthesis) *deliberation.PRD {
	body := doc.Body
	section := func(h string) string { return extractSection(body, h) }

	props := doc.Properties

	var goals []string
	if props.StrategicObjective != "" {
		goals = append(goals, fmt.Sprintf("Strategic objective: %s.", props.StrategicObjective))
	}
	if props.PrimaryKPI != "" {
		line := fmt.Sprintf("North-star KPI: %s.", props.PrimaryKPI)
		if props.Baseline != nil && props.Target != nil {
			line += fmt.Sprintf(" Baseline %s -> Target %s.", formatNumber(*props.Baseline), formatNumber(*props.Target))
		}
		goals = append(goals, line)
	}
	if props.TimeHorizon != "" {
		goals = append(goals, fmt.Sprintf("Planning horizon: %s.", props.TimeHorizon))
	}
	goals = append(goals, sectionLines(section("1. Strategic Context"), 4)...)
	goals = dedupeKeepOrder(goals, 8)

	var background []string
	background = append(background, sectionLines(section("Executive Summary"), 4)...)
	if props.DecisionType != "" {
		background = append(background, fmt.Sprintf("Decision type: %s.", props.DecisionType))
	}
	if props.Owner != "" {
		background = append(background, fmt.Sprintf("Decision owner: %s.", props.Owner))
	}
	background = dedupeKeepOrder(background, 8)

	var research []string
	research = append(research, sectionLines(section("2. Problem Framing"), 5)...)
	research = append(research, sectionLines(section("3. Options Evaluated"), 5)...)
	research = append(research, sectionLines(section("4. Financial Model"), 4)...)
	research = append(research, sectionLines(section("5. Risk Matrix"), 4)...)
	research = dedupeSemantic(research, 10, 0.88)

	var requirements []string
	requirements = append(requirements, finalDecisionRequirements(section("6. Final Decision"))...)
	requirements = append(requirements, reviewRequiredChanges(set, 5)...)
	requirements = dedupeSemantic(requirements, 8, 0.86)

	var telemetry []string
	if props.PrimaryKPI != "" {
		telemetry = append(telemetry, fmt.Sprintf("Primary metric: %s.", props.PrimaryKPI))
	}
	kpiNorm := normalizeSimilarity(props.PrimaryKPI)
	for _, line := range sectionLines(section("8. Monitoring Plan"), 8) {
		if strings.HasPrefix(strings.ToLower(line), "primary metric") {
			continue
		}
		norm := normalizeSimilarity(line)
		if kpiNorm != "" && (norm == kpiNorm || strings.Contains(norm, kpiNorm) || strings.Contains(kpiNorm, norm)) {
			continue
		}
		telemetry = append(telemetry, line)
	}
	telemetry = dedupeSemantic(telemetry, 8, 0.88)

	var experiment []string
	if props.PrimaryKPI != "" {
		experiment = append(experiment, fmt.Sprintf("Hypothesis: the chosen option will move %s.", props.PrimaryKPI))
	}
	if props.ProbabilityOfSuccess != "" {
		experiment = append(experiment, fmt.Sprintf("Initial probability of success estimate: %s.", props.ProbabilityOfSuccess))
	}
	if props.TimeHorizon != "" {
		experiment = append(experiment, fmt.Sprintf("Experiment horizon: %s.", props.TimeHorizon))
	}
	experiment = append(experiment, sectionLines(section("7. Kill Criteria"), 4)...)
	experiment = dedupeSemantic(experiment, 8, 0.88)

	var qa []string
	if synthesis != nil {
		for _, b := range synthesis.Blockers {
			qa = append(qa, "Open blocker: "+b)
		}
		for _, c := range synthesis.Conflicts {
			qa = append(qa, fmt.Sprintf("Conflict to resolve: %s vs %s on %s", c.AgentA, c.AgentB, c.Issue))
		}
		for _, r := range synthesis.RequiredRevisions {
			qa = append(qa, "Required revision: "+r)
		}
	}
	if len(qa) == 0 {
		qa = append(qa, "No additional unresolved questions were captured at synthesis time.")
	}
	qa = dedupeKeepOrder(qa, 8)

	var notes []string
	if props.Owner != "" {
		notes = append(notes, fmt.Sprintf("Owner: %s.", props.Owner))
	}
	if props.InvestmentRequired != "" {
		notes = append(notes, fmt.Sprintf("Investment required: %s.", props.InvestmentRequired))
	}
	if props.GrossBenefit != "" {
		notes = append(notes, fmt.Sprintf("12-month gross benefit estimate: %s.", props.GrossBenefit))
	}
	if props.RiskAdjustedROI != "" {
		notes = append(notes, fmt.Sprintf("Risk-adjusted ROI estimate: %s.", props.RiskAdjustedROI))
	}
	if synthesis != nil && synthesis.FinalRecommendation != "" {
		notes = append(notes, fmt.Sprintf("Chairperson recommendation snapshot: %s.", synthesis.FinalRecommendation))
	}
	notes = dedupeKeepOrder(notes, 8)

	risks := reviewRiskEvidence(set, 6)
	if len(risks) == 0 {
		for _, line := range sectionLines(section("5. Risk Matrix"), 4) {
			risks = append(risks, "Risk matrix: "+line)
		}
	}
	risks = dedupeKeepOrder(risks, 8)
	if len(risks) == 0 {
		risks = []string{"No explicit risks were captured; complete risk review before execution."}
	}

	milestones := []string{
		"Milestone 1: Finalize implementation scope, instrumentation plan, and rollout guardrails.",
		"Milestone 2: Ship the selected option behind a controlled rollout.",
		"Milestone 3: Evaluate outcomes against kill criteria and decide scale-up or rollback.",
	}
	if props.TimeHorizon != "" {
		milestones[0] = fmt.Sprintf("Milestone 1 (%s plan): finalize scope, instrumentation, and launch criteria.", props.TimeHorizon)
	}

	sections := map[string][]string{
		"Goals":        goals,
		"Background":   background,
		"Research":     research,
		"User Stories": nil,
		"Requirements": requirements,
		"Telemetry":    telemetry,
		"Experiment":   experiment,
		"Q&A":          qa,
		"Notes":        notes,
	}
	for name, fallback := range sectionDefaults {
		if len(sections[name]) == 0 {
			sections[name] = []string{fallback}
		}
	}

	scope := dedupeKeepOrder(append(append([]string{}, requirements...), goals...), 8)
	if len(scope) == 0 {
		scope = []string{sectionDefaults["Requirements"]}
	}
	if len(telemetry) == 0 {
		telemetry = []string{sectionDefaults["Telemetry"]}
	}

	return &deliberation.PRD{
		Title:      "PRD for Decision " + doc.Name,
		Scope:      scope,
		Milestones: milestones,
		Telemetry:  telemetry,
		Risks:      risks,
		Sections:   sections,
	}
}

// extractSection returns the body text between a heading and the next known
// heading.
func extractSection(body, heading string) string {
	lowered := strings.ToLower(body)
	marker := strings.ToLower(heading)
	pos := strings.Index(lowered, marker)
	if pos == -1 {
		return ""
	}
	start := strings.Index(body[pos:], "\n")
	if start == -1 {
		start = pos + len(heading)
	} else {
		start = pos + start + 1
	}
	end := len(body)
	for _, next := range sourceHeadings {
		if strings.EqualFold(next, heading) {
			continue
		}
		if idx := strings.Index(lowered[start:], strings.ToLower(next)); idx != -1 && start+idx < end {
			end = start + idx
		}
	}
	return strings.TrimSpace(body[start:end])
}

func sectionLines(text string, maxLines int) []string {
	if text == "" {
		return nil
	}
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if c := cleanLine(l); c != "" {
			lines = append(lines, c)
		}
	}
	if len(lines) == 1 {
		var split []string
		for _, p := range sentenceSplit.Split(lines[0], -1) {
			if c := cleanLine(p); c != "" {
				split = append(split, c)
			}
		}
		lines = split
	}
	var kept []string
	for _, l := range lines {
		if !isLabelOnlyLine(l) {
			kept = append(kept, l)
		}
	}
	return dedupeKeepOrder(kept, maxLines)
}

func cleanLine(text string) string {
	s := strings.NewReplacer("**", "", "`", "", "\t", " ").Replace(text)
	s = strings.TrimSpace(strings.Join(strings.Fields(s), " "))
	s = strings.Trim(s, " -•")
	lowered := strings.ToLower(s)
	for _, prefix := range linePrefixesToStrip {
		if strings.HasPrefix(lowered, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			break
		}
	}
	if len(s) > maxLineLen {
		s = strings.TrimSpace(s[:maxLineLen])
	}
	switch strings.TrimSuffix(strings.ToLower(s), ":") {
	case "", "+", "|", "-", "chosen option", "trade-offs", "trade offs":
		return ""
	}
	return s
}

func isLabelOnlyLine(line string) bool {
	normalized := strings.TrimSpace(strings.ToLower(cleanLine(line)))
	if normalized == "" {
		return true
	}
	if _, ok := labelOnlyPhrases[normalized]; ok {
		return true
	}
	if normalized == "combine" || normalized == "+" {
		return true
	}
	if strings.Contains(normalized, ":") {
		parts := strings.Split(normalized, ":")
		tail := strings.TrimSpace(parts[len(parts)-1])
		if tail == "" || tail == "combine" || tail == "+" {
			return true
		}
		if _, ok := labelOnlyPhrases[tail]; ok {
			return true
		}
		if optionTailRe.MatchString(tail) {
			return true
		}
	}
	if strings.HasSuffix(normalized, ":") {
		core := strings.TrimSpace(strings.TrimSuffix(normalized, ":"))
		if core == "" {
			return true
		}
		if _, ok := labelOnlyPhrases[core]; ok {
			return true
		}
		if len(strings.Fields(core)) <= 4 {
			return true
		}
	}
	return false
}

func dedupeKeepOrder(lines []string, limit int) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, line := range lines {
		cleaned := cleanLine(line)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cleaned)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func normalizeSimilarity(text string) string {
	s := strings.ToLower(text)
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = fillerWordRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// dedupeSemantic drops lines whose normalized token sets overlap an earlier
// line beyond the threshold.
func dedupeSemantic(lines []string, limit int, threshold float64) []string {
	var out []string
	var kept [][]string
	for _, line := range lines {
		cleaned := cleanLine(line)
		if cleaned == "" {
			continue
		}
		norm := normalizeSimilarity(cleaned)
		if norm == "" {
			norm = strings.ToLower(cleaned)
		}
		tokens := strings.Fields(norm)
		duplicate := false
		for _, prior := range kept {
			if tokenSimilarity(tokens, prior) >= threshold {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		out = append(out, cleaned)
		kept = append(kept, tokens)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// tokenSimilarity is a Sorensen-Dice coefficient over token multisets.
func tokenSimilarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		if len(a) == len(b) {
			return 1
		}
		return 0
	}
	counts := make(map[string]int, len(a))
	for _, t := range a {
		counts[t]++
	}
	common := 0
	for _, t := range b {
		if counts[t] > 0 {
			counts[t]--
			common++
		}
	}
	return 2 * float64(common) / float64(len(a)+len(b))
}

// finalDecisionRequirements derives implementation requirements from the
// "Final Decision" section, keying on Option X (Name) labels.
func finalDecisionRequirements(text string) []string {
	if text == "" {
		return nil
	}
	clean := strings.ReplaceAll(text, "**", "")
	var requirements []string

	matches := optionNameRe.FindAllStringSubmatch(clean, -1)
	if len(matches) > 0 {
		var descriptions []string
		for _, m := range matches {
			descriptions = append(descriptions, fmt.Sprintf("Option %s (%s)", m[1], strings.TrimSpace(m[2])))
		}
		descriptions = dedupeKeepOrder(descriptions, 4)
		if len(descriptions) == 1 {
			requirements = append(requirements, fmt.Sprintf("Implement %s as the selected approach.", descriptions[0]))
		} else {
			n := len(descriptions)
			if n > 3 {
				n = 3
			}
			requirements = append(requirements, fmt.Sprintf("Implement a phased rollout combining %s.", strings.Join(descriptions[:n], " + ")))
		}
	}

	for _, line := range sectionLines(clean, 12) {
		lower := strings.TrimSuffix(strings.ToLower(line), ":")
		switch lower {
		case "chosen option", "trade-offs", "trade offs", "combine", "+":
			continue
		}
		if strings.HasPrefix(strings.ToLower(line), "option ") {
			continue
		}
		if len(matches) > 0 && strings.Contains(lower, "combine option") {
			continue
		}
		if strings.Contains(lower, "trade-off") || strings.Contains(lower, "trade off") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "Prioritize ") || strings.HasPrefix(line, "Focus "):
			requirements = append(requirements, fmt.Sprintf("Trade-off guardrail: %s.", strings.TrimRight(line, ".")))
		case strings.Contains(lower, "phased rollout") && strings.Contains(lower, "option"):
			requirements = append(requirements, strings.TrimRight(line, "."))
		}
	}
	return dedupeSemantic(requirements, 5, 0.8)
}

func reviewRequiredChanges(set deliberation.ReviewSet, limit int) []string {
	var lines []string
	for _, id := range set.Agents() {
		for _, change := range set[id].RequiredChanges {
			if cleaned := cleanLine(change); cleaned != "" {
				lines = append(lines, cleaned)
			}
		}
	}
	return dedupeSemantic(lines, limit, 0.86)
}

func reviewRiskEvidence(set deliberation.ReviewSet, limit int) []string {
	var lines []string
	for _, id := range set.Agents() {
		for _, risk := range set[id].Risks {
			lines = append(lines, fmt.Sprintf("%s: %s", risk.Type, risk.Evidence))
		}
	}
	return dedupeKeepOrder(lines, limit)
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
}
