// Package decision defines the strategy document that is the subject of a deliberation.
package decision

// Properties holds the structured fields of a strategy document.
// Baseline and Target are pointers so "absent" is distinguishable from zero;
// the governance gate evaluator treats nil as a missing structured property.
type Properties struct {
	StrategicObjective   string   `json:"strategic_objective,omitempty"`
	DecisionType         string   `json:"decision_type,omitempty"`
	PrimaryKPI           string   `json:"primary_kpi,omitempty"`
	Baseline             *float64 `json:"baseline,omitempty"`
	Target               *float64 `json:"target,omitempty"`
	TimeHorizon          string   `json:"time_horizon,omitempty"`
	ProbabilityOfSuccess string   `json:"probability_of_success,omitempty"`
	Owner                string   `json:"owner,omitempty"`
	InvestmentRequired   string   `json:"investment_required,omitempty"`
	GrossBenefit         string   `json:"gross_benefit,omitempty"`
	RiskAdjustedROI      string   `json:"risk_adjusted_roi,omitempty"`
}

// Document is a strategy document under review. The engine reads it as
// ground truth; for governance gates, a checked entry in Checklist wins
// over text inference.
type Document struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Properties Properties      `json:"properties"`
	Body       string          `json:"body"`
	Checklist  map[string]bool `json:"checklist"`
}

// Checked reports whether the named governance gate is explicitly checked
// on the document.
func (d *Document) Checked(gate string) bool {
	if d.Checklist == nil {
		return false
	}
	return d.Checklist[gate]
}
