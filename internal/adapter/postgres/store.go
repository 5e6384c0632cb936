package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/port/decisionstore"
)

// Store implements decisionstore.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// LoadDocument reads a decision document with its governance checklist.
func (s *Store) LoadDocument(ctx context.Context, decisionID string) (*decision.Document, error) {
	doc := &decision.Document{ID: decisionID}
	var props []byte
	err := s.pool.QueryRow(ctx,
		`SELECT name, properties, body FROM decisions WHERE id = $1`, decisionID,
	).Scan(&doc.Name, &props, &doc.Body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("decision %s: %w", decisionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load decision %s: %w", decisionID, err)
	}
	if err := json.Unmarshal(props, &doc.Properties); err != nil {
		return nil, fmt.Errorf("decode properties for %s: %w", decisionID, err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT gate, checked FROM governance_checks WHERE decision_id = $1`, decisionID)
	if err != nil {
		return nil, fmt.Errorf("load governance checks: %w", err)
	}
	defer rows.Close()

	doc.Checklist = make(map[string]bool)
	for rows.Next() {
		var gate string
		var checked bool
		if err := rows.Scan(&gate, &checked); err != nil {
			return nil, err
		}
		doc.Checklist[gate] = checked
	}
	return doc, rows.Err()
}

// UpsertCanonicalRecord overwrites the decision's current status, summary,
// and score. Last writer wins; a nil DQS keeps the stored score.
func (s *Store) UpsertCanonicalRecord(ctx context.Context, decisionID string, fields decisionstore.CanonicalFields) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE decisions
		 SET status = $2,
		     summary = CASE WHEN $3 <> '' THEN $3 ELSE summary END,
		     dqs = COALESCE($4, dqs),
		     updated_at = now()
		 WHERE id = $1`,
		decisionID, fields.Status, fields.Summary, fields.DQS,
	)
	if err != nil {
		return fmt.Errorf("upsert canonical record %s: %w", decisionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("decision %s: %w", decisionID, domain.ErrNotFound)
	}
	return nil
}

// AppendRunLog inserts one immutable run row. Runs are never updated or
// deleted here; the snapshot column carries the full run record.
func (s *Store) AppendRunLog(ctx context.Context, run *deliberation.Run) error {
	snapshot, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal run snapshot: %w", err)
	}
	preview := run.Preview()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO deliberation_runs
		 (run_id, decision_id, decision_name, dqs, gate_decision, status,
		  approving_agents, dissenting_agents, blocked_agents, missing_gate_count,
		  snapshot, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		run.RunID, run.DecisionID, run.DecisionName, run.DQS,
		string(run.GateDecision), string(run.Status),
		preview.ApprovingAgents, preview.DissentingAgents, preview.BlockedAgents,
		preview.MissingGateCount, snapshot, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append run log %s: %w", run.RunID, err)
	}
	return nil
}

// ReplaceGovernanceChecks fully replaces the checklist in one transaction.
func (s *Store) ReplaceGovernanceChecks(ctx context.Context, decisionID string, checks map[string]bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace checks: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM governance_checks WHERE decision_id = $1`, decisionID); err != nil {
		return fmt.Errorf("clear governance checks: %w", err)
	}
	for gate, checked := range checks {
		if _, err := tx.Exec(ctx,
			`INSERT INTO governance_checks (decision_id, gate, checked) VALUES ($1,$2,$3)`,
			decisionID, gate, checked); err != nil {
			return fmt.Errorf("insert governance check %q: %w", gate, err)
		}
	}
	return tx.Commit(ctx)
}

// GetRun returns one run by id from its stored snapshot.
func (s *Store) GetRun(ctx context.Context, runID string) (*deliberation.Run, error) {
	var snapshot []byte
	err := s.pool.QueryRow(ctx,
		`SELECT snapshot FROM deliberation_runs WHERE run_id = $1`, runID,
	).Scan(&snapshot)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	var run deliberation.Run
	if err := json.Unmarshal(snapshot, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRunPreviews returns redacted run projections for a decision, newest
// first, straight from the preview columns without touching snapshots.
func (s *Store) ListRunPreviews(ctx context.Context, decisionID string) ([]deliberation.RunPreview, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, decision_id, dqs, gate_decision, status,
		        approving_agents, dissenting_agents, blocked_agents,
		        missing_gate_count, created_at
		 FROM deliberation_runs WHERE decision_id = $1 ORDER BY created_at DESC`,
		decisionID)
	if err != nil {
		return nil, fmt.Errorf("list run previews: %w", err)
	}
	defer rows.Close()

	var previews []deliberation.RunPreview
	for rows.Next() {
		var p deliberation.RunPreview
		var gate, status string
		if err := rows.Scan(
			&p.RunID, &p.DecisionID, &p.DQS, &gate, &status,
			&p.ApprovingAgents, &p.DissentingAgents, &p.BlockedAgents,
			&p.MissingGateCount, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		p.GateDecision = deliberation.Recommendation(gate)
		p.Status = deliberation.Status(status)
		previews = append(previews, p)
	}
	return previews, rows.Err()
}
