// Package reviewer implements the reviewer collaborator on top of the
// LiteLLM proxy. Each panelist maps to a role persona; the adapter builds
// the prompt and returns the model's raw text for the gateway to validate.
package reviewer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/Strob0t/Boardroom/internal/adapter/litellm"
	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/port/reviewer"
)

const maxBodyChars = 12000

// personas map agent ids to their review mandate. Unknown agents get a
// generalist mandate so custom panels still work.
var personas = map[string]string{
	"strategic-viability":   "You are the strategic viability reviewer. Judge whether this decision advances the stated strategic objective, whether the option set is genuinely distinct, and whether the upside justifies the opportunity cost.",
	"financial-integrity":   "You are the financial integrity reviewer. Interrogate the financial model: baseline and target plausibility, payback period, downside exposure, and whether the risk-adjusted return holds under conservative assumptions.",
	"technical-feasibility": "You are the technical feasibility reviewer. Assess delivery risk: scope realism against the time horizon, dependency and integration risk, and operational load of the chosen option.",
	"governance-compliance": "You are the governance and compliance reviewer. Verify the decision meets governance requirements: quantified problem, evaluated options, success metrics, leading indicators, kill criteria, and any regulatory exposure.",
	"red-team":              "You are the adversarial red-team reviewer. Attack the decision's weakest assumptions, surface failure modes the panel may be anchoring past, and block only on concrete, evidenced risks.",
}

const defaultPersona = "You are an independent decision reviewer. Judge the decision on its merits with the evidence in the document."

// LLM produces reviewer opinions via chat completions.
type LLM struct {
	client *litellm.Client
	cfg    config.Deliberation
}

// NewLLM creates the LLM-backed collaborator.
func NewLLM(client *litellm.Client, cfg config.Deliberation) *LLM {
	return &LLM{client: client, cfg: cfg}
}

// Review invokes one chat completion for the given panelist and returns the
// raw model output.
func (l *LLM) Review(ctx context.Context, req reviewer.Request) (string, error) {
	return l.client.ChatCompletion(ctx, litellm.ChatRequest{
		Model:     l.cfg.ReviewModel,
		MaxTokens: l.cfg.ReviewMaxTokens,
		Messages: []litellm.Message{
			{Role: "system", Content: systemPrompt(req.Agent)},
			{Role: "user", Content: buildUserPrompt(req)},
		},
	})
}

func systemPrompt(agent string) string {
	persona, ok := personas[agent]
	if !ok {
		persona = defaultPersona
	}
	return persona + `

Respond with a single JSON object and nothing else:
{
  "agent": "<your agent id>",
  "thesis": "<one-paragraph position>",
  "score": <integer 1-10>,
  "confidence": <number 0.0-1.0>,
  "blocked": <boolean>,
  "blockers": ["<only when blocked>"],
  "risks": [{"type": "<category>", "severity": <integer 1-10>, "evidence": "<why>"}],
  "required_changes": ["<concrete change>"],
  "approval_conditions": ["<condition>"],
  "governance_checks_met": {"<gate name>": <boolean>}
}
If you set "blocked": true you must include at least one blocker or risk.`
}

func buildUserPrompt(req reviewer.Request) string {
	var b strings.Builder
	doc := req.Document

	fmt.Fprintf(&b, "Decision: %s\n\n", sanitizePromptInput(doc.Name))
	b.WriteString("Structured properties:\n")
	writeProp(&b, "Strategic Objective", doc.Properties.StrategicObjective)
	writeProp(&b, "Decision Type", doc.Properties.DecisionType)
	writeProp(&b, "Primary KPI", doc.Properties.PrimaryKPI)
	if doc.Properties.Baseline != nil {
		fmt.Fprintf(&b, "- Baseline: %g\n", *doc.Properties.Baseline)
	}
	if doc.Properties.Target != nil {
		fmt.Fprintf(&b, "- Target: %g\n", *doc.Properties.Target)
	}
	writeProp(&b, "Time Horizon", doc.Properties.TimeHorizon)
	writeProp(&b, "Probability of Success", doc.Properties.ProbabilityOfSuccess)
	writeProp(&b, "Investment Required", doc.Properties.InvestmentRequired)
	writeProp(&b, "12-Month Gross Benefit", doc.Properties.GrossBenefit)
	writeProp(&b, "Risk-Adjusted ROI", doc.Properties.RiskAdjustedROI)

	if len(req.MissingSections) > 0 {
		fmt.Fprintf(&b, "\nUnmet governance gates: %s\n", strings.Join(req.MissingSections, ", "))
	}
	if req.IncludeEvidence {
		b.WriteString("\nExternal evidence was requested for this run; weight externally sourced claims accordingly.\n")
	}

	fmt.Fprintf(&b, "\nDocument body:\n%s\n", truncate(sanitizePromptInput(doc.Body), maxBodyChars))

	if req.PriorRound != nil {
		fmt.Fprintf(&b, "\nThis is rebuttal round %d. The panel's prior positions:\n", req.RoundNumber)
		for _, id := range req.PriorRound.Agents() {
			op := req.PriorRound[id]
			if data, err := json.Marshal(op); err == nil {
				fmt.Fprintf(&b, "%s: %s\n", id, string(data))
			}
		}
		b.WriteString("\nRe-evaluate your position with the panel's arguments in view. Revise your score only where another reviewer's evidence warrants it.\n")
	}
	return b.String()
}

func writeProp(b *strings.Builder, name, value string) {
	if value != "" {
		fmt.Fprintf(b, "- %s: %s\n", name, sanitizePromptInput(value))
	}
}

// sanitizePromptInput strips control characters and neutralizes role-marker
// lines that could let document text masquerade as system instructions.
func sanitizePromptInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(strings.ToLower(line))
		for _, prefix := range []string{
			"system:", "assistant:", "user:", "[system]", "[assistant]",
			"<|system|>", "<|assistant|>", "<|im_start|>",
			"### system", "### assistant", "### instruction",
		} {
			if strings.HasPrefix(trimmed, prefix) {
				lines[i] = "[sanitized] " + line
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
