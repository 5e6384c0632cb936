// Package service implements the deliberation engine: the reviewer gateway,
// the panel collector, the rebuttal coordinator, and the orchestrator that
// drives a run from PROPOSED to PERSISTED.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	obs "github.com/Strob0t/Boardroom/internal/adapter/otel"
	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/panel"
	"github.com/Strob0t/Boardroom/internal/dqs"
	"github.com/Strob0t/Boardroom/internal/gates"
	"github.com/Strob0t/Boardroom/internal/prd"
	"github.com/Strob0t/Boardroom/internal/port/cache"
	"github.com/Strob0t/Boardroom/internal/port/decisionstore"
	"github.com/Strob0t/Boardroom/internal/port/messagequeue"
	"github.com/Strob0t/Boardroom/internal/port/reviewer"
	"github.com/Strob0t/Boardroom/internal/synth"
)

// SubjectRunCompleted is the event-bus subject for finished runs.
const SubjectRunCompleted = "deliberations.completed"

// Broadcaster pushes live run events to connected clients.
type Broadcaster interface {
	BroadcastEvent(event string, payload any)
}

// RunRequest is the caller's input to one deliberation. The panel is an
// explicit value; an empty agent list selects the default panel.
type RunRequest struct {
	DecisionID      string       `json:"decision_id"`
	Panel           panel.Config `json:"panel"`
	Rounds          int          `json:"rounds"`
	IncludeEvidence bool         `json:"include_external_evidence"`
}

// Deliberation orchestrates the full run: collect, rebut, evaluate gates,
// aggregate, synthesize, persist.
type Deliberation struct {
	store     decisionstore.Store
	collector *Collector
	rebuttal  *Rebuttal
	queue     messagequeue.Queue
	hub       Broadcaster
	cache     cache.Cache
	metrics   *obs.Metrics
	cfg       config.Deliberation
	log       *slog.Logger
}

// NewDeliberation wires the orchestrator. queue, hub, cache, and metrics may
// be nil; the engine then runs without events, broadcast, caching, or
// instruments.
func NewDeliberation(
	store decisionstore.Store,
	collector *Collector,
	rebuttal *Rebuttal,
	queue messagequeue.Queue,
	hub Broadcaster,
	c cache.Cache,
	metrics *obs.Metrics,
	cfg config.Deliberation,
	log *slog.Logger,
) *Deliberation {
	return &Deliberation{
		store:     store,
		collector: collector,
		rebuttal:  rebuttal,
		queue:     queue,
		hub:       hub,
		cache:     c,
		metrics:   metrics,
		cfg:       cfg,
		log:       log,
	}
}

// Run executes one deliberation end to end. Request validation happens
// before any collaborator or store call, so an invalid request leaves no
// partial side effects. A run that trips the mandatory-degradation threshold
// is persisted as BLOCKED_INCOMPLETE and returned without error; every other
// failure is a typed error naming the phase.
func (d *Deliberation) Run(ctx context.Context, req RunRequest) (*deliberation.Run, error) {
	cfg, err := d.validate(&req)
	if err != nil {
		return nil, err
	}

	ctx, span := obs.StartDeliberationSpan(ctx, req.DecisionID, req.Rounds)
	defer span.End()
	if d.metrics != nil {
		d.metrics.RunsStarted.Add(ctx, 1)
	}

	status := deliberation.StatusProposed

	doc, err := d.store.LoadDocument(ctx, req.DecisionID)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", req.DecisionID, err)
	}

	inferred := gates.InferFromText(doc.Body)
	if err := d.autoCheck(ctx, doc, inferred); err != nil {
		d.log.Warn("governance auto-check write-back failed", "decision", doc.ID, "error", err)
	}
	unmet := gates.EvaluateWithInference(doc, inferred)
	missing := gates.Names(unmet)

	if err := d.store.UpsertCanonicalRecord(ctx, doc.ID, decisionstore.CanonicalFields{Status: "Under Evaluation"}); err != nil {
		d.log.Warn("canonical status update failed", "decision", doc.ID, "error", err)
	}

	status = deliberation.StatusReviewing
	d.broadcast("deliberation.status", map[string]any{"decision_id": doc.ID, "status": status})

	set, degraded, collectErr := d.collectPhase(ctx, cfg, doc, missing, req.IncludeEvidence)
	if collectErr != nil {
		if errors.Is(collectErr, ErrIncompleteDeliberation) {
			return d.finishIncomplete(ctx, doc, set, degraded, unmet)
		}
		return nil, fmt.Errorf("collect reviews: %w", collectErr)
	}

	set, rounds, err := d.rebuttalPhase(ctx, cfg, doc, missing, req.IncludeEvidence, set, req.Rounds)
	if err != nil {
		return nil, fmt.Errorf("rebuttal rounds: %w", err)
	}

	score := dqs.Aggregate(set, cfg, degraded, len(unmet))
	synthesis := synth.Synthesize(set, unmet, score)
	status = deliberation.StatusSynthesized

	gateDecision := decideGate(set, unmet, score)
	status = deliberation.StatusDecided

	var requirements *deliberation.PRD
	if gateDecision == deliberation.RecommendationApproved {
		requirements = prd.Build(doc, set, synthesis)
	}

	run := &deliberation.Run{
		RunID:           uuid.NewString(),
		DecisionID:      doc.ID,
		DecisionName:    doc.Name,
		DQS:             score,
		GateDecision:    gateDecision,
		Status:          deliberation.StatusPersisted,
		MissingSections: missing,
		Reviews:         set,
		Rounds:          rounds,
		DegradedAgents:  degraded,
		GateOutcomes:    unmet,
		Synthesis:       synthesis,
		PRD:             requirements,
		CreatedAt:       time.Now().UTC(),
	}

	if !deliberation.CanTransition(status, deliberation.StatusPersisted) {
		return nil, fmt.Errorf("illegal transition %s -> %s", status, deliberation.StatusPersisted)
	}
	if err := d.persist(ctx, run, string(gateDecision), synthesis.ExecutiveSummary); err != nil {
		return nil, err
	}

	if d.metrics != nil {
		d.metrics.RunsCompleted.Add(ctx, 1)
		d.metrics.DecisionQuality.Record(ctx, score)
	}
	d.log.Info("deliberation complete",
		"decision", doc.ID, "run", run.RunID, "dqs", score,
		"gate_decision", string(gateDecision), "degraded", len(degraded))
	return run, nil
}

// validate rejects malformed requests before any side effect.
func (d *Deliberation) validate(req *RunRequest) (*panel.Config, error) {
	if req.DecisionID == "" {
		return nil, fmt.Errorf("%w: decision id is required", domain.ErrValidation)
	}
	if req.Rounds < 0 || req.Rounds > d.cfg.MaxRounds {
		return nil, fmt.Errorf("%w: rounds %d out of range [0,%d]", domain.ErrValidation, req.Rounds, d.cfg.MaxRounds)
	}
	if len(req.Panel.Agents) == 0 {
		def := panel.Default()
		def.IncludeRedTeam = req.Panel.IncludeRedTeam
		req.Panel = def
	}
	if err := req.Panel.Validate(); err != nil {
		return nil, err
	}
	return &req.Panel, nil
}

func (d *Deliberation) collectPhase(ctx context.Context, cfg *panel.Config, doc *decision.Document, missing []string, evidence bool) (deliberation.ReviewSet, []string, error) {
	ctx, span := obs.StartPhaseSpan(ctx, "collect")
	defer span.End()
	start := time.Now()

	set, degraded, err := d.collector.Collect(ctx, cfg, func(agent string) reviewer.Request {
		return reviewer.Request{
			Agent:           agent,
			Document:        doc,
			MissingSections: missing,
			IncludeEvidence: evidence,
		}
	})

	if d.metrics != nil {
		d.metrics.RoundDuration.Record(ctx, time.Since(start).Seconds())
		d.metrics.ReviewerFailures.Add(ctx, int64(len(degraded)))
	}
	return set, degraded, err
}

func (d *Deliberation) rebuttalPhase(ctx context.Context, cfg *panel.Config, doc *decision.Document, missing []string, evidence bool, set deliberation.ReviewSet, roundCount int) (deliberation.ReviewSet, []deliberation.InteractionRound, error) {
	if roundCount == 0 {
		return set, nil, nil
	}
	ctx, span := obs.StartPhaseSpan(ctx, "rebuttal")
	defer span.End()
	start := time.Now()

	final, rounds, err := d.rebuttal.RunRounds(ctx, set, roundCount, cfg, func(agent string, prior deliberation.ReviewSet, round int) reviewer.Request {
		return reviewer.Request{
			Agent:           agent,
			Document:        doc,
			MissingSections: missing,
			PriorRound:      prior,
			RoundNumber:     round,
			IncludeEvidence: evidence,
		}
	})

	if d.metrics != nil {
		d.metrics.RoundDuration.Record(ctx, time.Since(start).Seconds())
	}
	return final, rounds, err
}

// finishIncomplete records a run that degraded past the mandatory-panel
// threshold. The run is persisted unscored and returned without error.
func (d *Deliberation) finishIncomplete(ctx context.Context, doc *decision.Document, set deliberation.ReviewSet, degraded []string, unmet []deliberation.GateOutcome) (*deliberation.Run, error) {
	run := &deliberation.Run{
		RunID:           uuid.NewString(),
		DecisionID:      doc.ID,
		DecisionName:    doc.Name,
		DQS:             0,
		GateDecision:    deliberation.RecommendationBlocked,
		Status:          deliberation.StatusBlockedIncomplete,
		MissingSections: gates.Names(unmet),
		Reviews:         set,
		DegradedAgents:  degraded,
		GateOutcomes:    unmet,
		CreatedAt:       time.Now().UTC(),
	}

	if err := d.persist(ctx, run, "Incomplete", "deliberation aborted: mandatory panel degraded"); err != nil {
		return nil, err
	}
	if d.metrics != nil {
		d.metrics.RunsIncomplete.Add(ctx, 1)
	}
	d.log.Warn("deliberation incomplete",
		"decision", doc.ID, "run", run.RunID, "degraded", degraded)
	return run, nil
}

func (d *Deliberation) persist(ctx context.Context, run *deliberation.Run, canonicalStatus, summary string) error {
	score := run.DQS
	fields := decisionstore.CanonicalFields{
		Status:  canonicalStatus,
		Summary: summary,
	}
	if run.Status != deliberation.StatusBlockedIncomplete {
		fields.DQS = &score
	}
	if err := d.store.UpsertCanonicalRecord(ctx, run.DecisionID, fields); err != nil {
		return fmt.Errorf("upsert canonical record: %w", err)
	}
	if err := d.store.AppendRunLog(ctx, run); err != nil {
		return fmt.Errorf("append run log: %w", err)
	}

	if d.cache != nil {
		d.cache.Delete(previewCacheKey(run.DecisionID))
	}
	d.publishCompleted(ctx, run)
	d.broadcast("deliberation.completed", run.Preview())
	return nil
}

func (d *Deliberation) publishCompleted(ctx context.Context, run *deliberation.Run) {
	if d.queue == nil {
		return
	}
	payload, err := json.Marshal(run.Preview())
	if err != nil {
		return
	}
	if err := d.queue.Publish(ctx, SubjectRunCompleted, payload); err != nil {
		d.log.Warn("run event publish failed", "run", run.RunID, "error", err)
	}
}

func (d *Deliberation) broadcast(event string, payload any) {
	if d.hub != nil {
		d.hub.BroadcastEvent(event, payload)
	}
}

// autoCheck writes inferred-true required gates back onto the document
// checklist so the stored checkboxes reflect what the text already proves.
// The replacement is a full overwrite of the checklist.
func (d *Deliberation) autoCheck(ctx context.Context, doc *decision.Document, inferred map[string]bool) error {
	checks := make(map[string]bool, len(gates.RequiredBooleanGates))
	changed := false
	for _, gate := range gates.RequiredBooleanGates {
		checks[gate] = doc.Checked(gate)
		if !checks[gate] && inferred[gate] {
			checks[gate] = true
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := d.store.ReplaceGovernanceChecks(ctx, doc.ID, checks); err != nil {
		return err
	}
	doc.Checklist = checks
	return nil
}

// decideGate is the binding recommendation: blocked dissent or an unmet
// gate blocks, a sub-threshold DQS challenges, anything else approves.
func decideGate(set deliberation.ReviewSet, unmet []deliberation.GateOutcome, score float64) deliberation.Recommendation {
	for _, op := range set {
		if op.Blocked {
			return deliberation.RecommendationBlocked
		}
	}
	if len(unmet) > 0 {
		return deliberation.RecommendationBlocked
	}
	if score < dqs.ApprovalThreshold {
		return deliberation.RecommendationChallenged
	}
	return deliberation.RecommendationApproved
}

// GetRun returns one persisted run by id.
func (d *Deliberation) GetRun(ctx context.Context, runID string) (*deliberation.Run, error) {
	return d.store.GetRun(ctx, runID)
}

// ListRunPreviews returns redacted previews for a decision, newest first,
// through the preview cache when one is wired.
func (d *Deliberation) ListRunPreviews(ctx context.Context, decisionID string) ([]deliberation.RunPreview, error) {
	key := previewCacheKey(decisionID)
	if d.cache != nil {
		if data, ok := d.cache.Get(key); ok {
			var previews []deliberation.RunPreview
			if err := json.Unmarshal(data, &previews); err == nil {
				return previews, nil
			}
		}
	}

	previews, err := d.store.ListRunPreviews(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	if d.cache != nil {
		if data, err := json.Marshal(previews); err == nil {
			d.cache.Set(key, data)
		}
	}
	return previews, nil
}

func previewCacheKey(decisionID string) string {
	return "previews:" + decisionID
}
