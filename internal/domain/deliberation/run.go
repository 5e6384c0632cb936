// Package deliberation defines the run-level types of the deliberation engine:
// the live review set, interaction rounds, gate outcomes, synthesis, and the
// immutable run record that forms the audit trail.
package deliberation

import (
	"sort"
	"time"

	"github.com/Strob0t/Boardroom/internal/domain/opinion"
)

// ReviewSet maps agent id to that agent's latest opinion. At most one live
// opinion per agent; superseded opinions survive only inside interaction
// round deltas.
type ReviewSet map[string]opinion.Opinion

// Clone returns a shallow copy so a new phase can build its own set without
// mutating the prior round's.
func (rs ReviewSet) Clone() ReviewSet {
	out := make(ReviewSet, len(rs))
	for k, v := range rs {
		out[k] = v
	}
	return out
}

// Agents returns the agent ids in sorted order for deterministic iteration.
func (rs ReviewSet) Agents() []string {
	ids := make([]string, 0, len(rs))
	for id := range rs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AgentDelta records how one agent's position moved across a rebuttal round.
type AgentDelta struct {
	Agent           string `json:"agent"`
	PreviousScore   int    `json:"previous_score"`
	RevisedScore    int    `json:"revised_score"`
	ScoreDelta      int    `json:"score_delta"`
	PreviousBlocked bool   `json:"previous_blocked"`
	RevisedBlocked  bool   `json:"revised_blocked"`
}

// InteractionRound is one completed rebuttal round. Entries are append-only
// and ordered by Number.
type InteractionRound struct {
	Number  int          `json:"number"`
	Summary string       `json:"summary"`
	Deltas  []AgentDelta `json:"deltas"`
}

// Reasons a required gate can be unmet.
const (
	GateReasonMissingProperty = "missing structured property"
	GateReasonNotInferable    = "not inferable from text"
)

// GateOutcome is one unmet required gate and why it is unmet.
type GateOutcome struct {
	Gate   string `json:"gate"`
	Reason string `json:"reason"`
}

// Conflict is a pair of agents holding materially opposing positions.
type Conflict struct {
	AgentA string `json:"agent_a"`
	AgentB string `json:"agent_b"`
	Issue  string `json:"issue"`
}

// Recommendation is the chairperson's final call.
type Recommendation string

const (
	RecommendationApproved   Recommendation = "Approved"
	RecommendationChallenged Recommendation = "Challenged"
	RecommendationBlocked    Recommendation = "Blocked"
)

// Synthesis is the chairperson output, produced exactly once per run after
// DQS and gates are final.
type Synthesis struct {
	ExecutiveSummary    string         `json:"executive_summary"`
	FinalRecommendation Recommendation `json:"final_recommendation"`
	Conflicts           []Conflict     `json:"conflicts"`
	Blockers            []string       `json:"blockers"`
	RequiredRevisions   []string       `json:"required_revisions"`
}

// PRD is the requirements document generated for an approved decision.
type PRD struct {
	Title      string              `json:"title"`
	Scope      []string            `json:"scope"`
	Milestones []string            `json:"milestones"`
	Telemetry  []string            `json:"telemetry"`
	Risks      []string            `json:"risks"`
	Sections   map[string][]string `json:"sections"`
}

// Run is the immutable audit record of one deliberation. Appended to the
// run log once, never updated.
type Run struct {
	RunID           string             `json:"run_id"`
	DecisionID      string             `json:"decision_id"`
	DecisionName    string             `json:"decision_name"`
	DQS             float64            `json:"dqs"`
	GateDecision    Recommendation     `json:"gate_decision"`
	Status          Status             `json:"status"`
	MissingSections []string           `json:"missing_sections"`
	Reviews         ReviewSet          `json:"reviews"`
	Rounds          []InteractionRound `json:"rounds"`
	DegradedAgents  []string           `json:"degraded_agents"`
	GateOutcomes    []GateOutcome      `json:"gate_outcomes"`
	Synthesis       *Synthesis         `json:"synthesis"`
	PRD             *PRD               `json:"prd"`
	CreatedAt       time.Time          `json:"run_created_at"`
}

// RunPreview is the redacted list projection of a run. It deliberately
// excludes full opinions, synthesis, and PRD content.
type RunPreview struct {
	RunID            string         `json:"run_id"`
	DecisionID       string         `json:"decision_id"`
	DQS              float64        `json:"dqs"`
	GateDecision     Recommendation `json:"gate_decision"`
	Status           Status         `json:"status"`
	ApprovingAgents  int            `json:"approving_agents"`
	DissentingAgents int            `json:"dissenting_agents"`
	BlockedAgents    int            `json:"blocked_agents"`
	MissingGateCount int            `json:"missing_gate_count"`
	CreatedAt        time.Time      `json:"run_created_at"`
}

// Preview derives the redacted projection from a full run.
func (r *Run) Preview() RunPreview {
	p := RunPreview{
		RunID:            r.RunID,
		DecisionID:       r.DecisionID,
		DQS:              r.DQS,
		GateDecision:     r.GateDecision,
		Status:           r.Status,
		MissingGateCount: len(r.GateOutcomes),
		CreatedAt:        r.CreatedAt,
	}
	for _, op := range r.Reviews {
		switch {
		case op.Blocked:
			p.BlockedAgents++
		case op.Score >= 7:
			p.ApprovingAgents++
		case op.Score <= 4:
			p.DissentingAgents++
		}
	}
	return p
}
