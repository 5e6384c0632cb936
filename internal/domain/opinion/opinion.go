// Package opinion defines a reviewer's structured judgment on a decision document.
package opinion

import (
	"fmt"
	"math"

	"github.com/Strob0t/Boardroom/internal/domain"
)

// Risk is a single risk called out by a reviewer.
type Risk struct {
	Type     string `json:"type"`
	Severity int    `json:"severity"`
	Evidence string `json:"evidence"`
}

// Opinion is one reviewer's judgment for a given round.
// Score is 1-10, Confidence 0.0-1.0. A blocked opinion must carry at
// least one blocker or risk; the gateway rejects it otherwise.
type Opinion struct {
	Agent               string          `json:"agent"`
	Thesis              string          `json:"thesis"`
	Score               int             `json:"score"`
	Confidence          float64         `json:"confidence"`
	Blocked             bool            `json:"blocked"`
	Blockers            []string        `json:"blockers"`
	Risks               []Risk          `json:"risks"`
	RequiredChanges     []string        `json:"required_changes"`
	ApprovalConditions  []string        `json:"approval_conditions"`
	GovernanceChecksMet map[string]bool `json:"governance_checks_met"`
}

// Normalize clamps recoverable out-of-range values in place: score into
// [1,10], confidence into [0,1], risk severities into [1,10].
func (o *Opinion) Normalize() {
	if o.Score < 1 {
		o.Score = 1
	} else if o.Score > 10 {
		o.Score = 10
	}
	o.Confidence = clamp01(o.Confidence)
	for i := range o.Risks {
		if o.Risks[i].Severity < 1 {
			o.Risks[i].Severity = 1
		} else if o.Risks[i].Severity > 10 {
			o.Risks[i].Severity = 10
		}
	}
}

// Validate checks structural invariants after normalization.
func (o *Opinion) Validate() error {
	if o.Agent == "" {
		return fmt.Errorf("%w: opinion missing agent identifier", domain.ErrValidation)
	}
	if o.Score < 1 || o.Score > 10 {
		return fmt.Errorf("%w: score %d out of range [1,10]", domain.ErrValidation, o.Score)
	}
	if o.Confidence < 0 || o.Confidence > 1 {
		return fmt.Errorf("%w: confidence %.2f out of range [0,1]", domain.ErrValidation, o.Confidence)
	}
	if o.Blocked && len(o.Blockers) == 0 && len(o.Risks) == 0 {
		return fmt.Errorf("%w: blocked opinion from %s carries no blockers or risks", domain.ErrValidation, o.Agent)
	}
	return nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
