package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	obs "github.com/Strob0t/Boardroom/internal/adapter/otel"
	"github.com/Strob0t/Boardroom/internal/domain/opinion"
	"github.com/Strob0t/Boardroom/internal/domain/panel"
	"github.com/Strob0t/Boardroom/internal/port/reviewer"
)

// FailureKind classifies a reviewer invocation failure.
type FailureKind string

const (
	FailureTimeout       FailureKind = "timeout"
	FailureInvalidOutput FailureKind = "invalid_output"
	FailureCollaborator  FailureKind = "collaborator_error"
)

// GatewayError is a typed reviewer failure. It is never converted into a
// fabricated opinion; the collector decides what degradation means.
type GatewayError struct {
	Agent string
	Kind  FailureKind
	Err   error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("reviewer %s: %s: %v", e.Agent, e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Gateway invokes a single reviewer collaborator with a bounded deadline and
// validates its raw output into a well-formed opinion.
type Gateway struct {
	collab  reviewer.Collaborator
	timeout time.Duration
	log     *slog.Logger
}

// NewGateway creates a gateway with a per-call timeout.
func NewGateway(collab reviewer.Collaborator, timeout time.Duration, log *slog.Logger) *Gateway {
	return &Gateway{collab: collab, timeout: timeout, log: log}
}

// Invoke calls the collaborator once, retrying at most once on a timeout or
// transient collaborator failure with the same inputs. Invalid output is
// never retried.
func (g *Gateway) Invoke(ctx context.Context, spec panel.AgentSpec, req reviewer.Request) (opinion.Opinion, error) {
	op, err := g.invokeOnce(ctx, spec, req)
	if err == nil {
		return op, nil
	}

	var gwErr *GatewayError
	if errors.As(err, &gwErr) && gwErr.Kind != FailureInvalidOutput && ctx.Err() == nil {
		g.log.Warn("reviewer call failed, retrying once",
			"agent", spec.ID, "kind", string(gwErr.Kind), "error", gwErr.Err)
		return g.invokeOnce(ctx, spec, req)
	}
	return opinion.Opinion{}, err
}

func (g *Gateway) invokeOnce(ctx context.Context, spec panel.AgentSpec, req reviewer.Request) (opinion.Opinion, error) {
	ctx, span := obs.StartReviewerSpan(ctx, spec.ID, req.RoundNumber)
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.collab.Review(callCtx, req)
	if err != nil {
		kind := FailureCollaborator
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			kind = FailureTimeout
		}
		return opinion.Opinion{}, &GatewayError{Agent: spec.ID, Kind: kind, Err: err}
	}

	op, err := parseOpinion(spec.ID, raw)
	if err != nil {
		return opinion.Opinion{}, &GatewayError{Agent: spec.ID, Kind: FailureInvalidOutput, Err: err}
	}
	return op, nil
}

// rawReview is the collaborator's wire shape before clamping. Score and
// severity arrive as floats so fractional model output is recoverable.
type rawReview struct {
	Agent      string  `json:"agent"`
	Thesis     string  `json:"thesis"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
	Blocked    bool    `json:"blocked"`
	Blockers   []string `json:"blockers"`
	Risks      []struct {
		Type     string  `json:"type"`
		Severity float64 `json:"severity"`
		Evidence string  `json:"evidence"`
	} `json:"risks"`
	RequiredChanges     []string        `json:"required_changes"`
	ApprovalConditions  []string        `json:"approval_conditions"`
	GovernanceChecksMet map[string]bool `json:"governance_checks_met"`
}

// parseOpinion validates a raw collaborator response. One repair attempt is
// made on parse failure: extract the JSON object from surrounding prose or
// markdown fences. Structural failure after that is a hard error.
func parseOpinion(agent, raw string) (opinion.Opinion, error) {
	var rv rawReview
	if err := json.Unmarshal([]byte(raw), &rv); err != nil {
		repaired := extractJSON(raw)
		if err2 := json.Unmarshal([]byte(repaired), &rv); err2 != nil {
			return opinion.Opinion{}, fmt.Errorf("unparseable review output: %w", err2)
		}
	}

	op := opinion.Opinion{
		Agent:               agent,
		Thesis:              rv.Thesis,
		Score:               int(math.Round(rv.Score)),
		Confidence:          rv.Confidence,
		Blocked:             rv.Blocked,
		Blockers:            rv.Blockers,
		RequiredChanges:     rv.RequiredChanges,
		ApprovalConditions:  rv.ApprovalConditions,
		GovernanceChecksMet: rv.GovernanceChecksMet,
	}
	for _, r := range rv.Risks {
		op.Risks = append(op.Risks, opinion.Risk{
			Type:     r.Type,
			Severity: int(math.Round(r.Severity)),
			Evidence: r.Evidence,
		})
	}

	op.Normalize()
	if err := op.Validate(); err != nil {
		return opinion.Opinion{}, err
	}
	return op, nil
}
