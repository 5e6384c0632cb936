// Package panel defines the reviewer panel configuration. The panel is an
// explicit, versioned value passed into every run; the engine never reads
// ambient configuration for it.
package panel

import (
	"fmt"

	"github.com/Strob0t/Boardroom/internal/domain"
)

// Role distinguishes mandatory reviewers from optional adversarial ones.
type Role string

const (
	RoleMandatory Role = "mandatory"
	RoleRedTeam   Role = "redteam"
)

// AgentSpec describes one panelist.
type AgentSpec struct {
	ID     string  `json:"id"`
	Role   Role    `json:"role"`
	Weight float64 `json:"weight"`
	Model  string  `json:"model,omitempty"`
}

// Config is a versioned panel composition for a single run.
type Config struct {
	Version        int         `json:"version"`
	Agents         []AgentSpec `json:"agents"`
	IncludeRedTeam bool        `json:"include_red_team"`
}

// Default returns the standard four-reviewer mandatory panel plus the
// optional red-team adversary.
func Default() Config {
	return Config{
		Version: 1,
		Agents: []AgentSpec{
			{ID: "strategic-viability", Role: RoleMandatory, Weight: 0.30},
			{ID: "financial-integrity", Role: RoleMandatory, Weight: 0.25},
			{ID: "technical-feasibility", Role: RoleMandatory, Weight: 0.25},
			{ID: "governance-compliance", Role: RoleMandatory, Weight: 0.20},
			{ID: "red-team", Role: RoleRedTeam, Weight: 0.10},
		},
	}
}

// Validate checks the panel is usable for a run.
func (c *Config) Validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("%w: panel has no agents", domain.ErrValidation)
	}
	seen := make(map[string]struct{}, len(c.Agents))
	mandatory := 0
	for _, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("%w: panel agent missing id", domain.ErrValidation)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: duplicate panel agent %q", domain.ErrValidation, a.ID)
		}
		seen[a.ID] = struct{}{}
		if a.Role != RoleMandatory && a.Role != RoleRedTeam {
			return fmt.Errorf("%w: agent %q has unknown role %q", domain.ErrValidation, a.ID, a.Role)
		}
		if a.Weight <= 0 {
			return fmt.Errorf("%w: agent %q has non-positive weight", domain.ErrValidation, a.ID)
		}
		if a.Role == RoleMandatory {
			mandatory++
		}
	}
	if mandatory == 0 {
		return fmt.Errorf("%w: panel has no mandatory agents", domain.ErrValidation)
	}
	return nil
}

// Active returns the agents participating in a run: all mandatory agents,
// plus red-team agents only when IncludeRedTeam is set.
func (c *Config) Active() []AgentSpec {
	out := make([]AgentSpec, 0, len(c.Agents))
	for _, a := range c.Agents {
		if a.Role == RoleRedTeam && !c.IncludeRedTeam {
			continue
		}
		out = append(out, a)
	}
	return out
}

// MandatoryCount returns how many mandatory agents the panel carries.
func (c *Config) MandatoryCount() int {
	n := 0
	for _, a := range c.Agents {
		if a.Role == RoleMandatory {
			n++
		}
	}
	return n
}

// Spec returns the spec for an agent id, if present.
func (c *Config) Spec(id string) (AgentSpec, bool) {
	for _, a := range c.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentSpec{}, false
}
