// Package decisionstore defines the persistence port for decision documents
// and the deliberation audit trail.
package decisionstore

import (
	"context"

	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
)

// CanonicalFields is the overwrite-in-place projection on the decision
// record. Last writer wins. Nil DQS leaves the stored score untouched.
type CanonicalFields struct {
	Status  string
	DQS     *float64
	Summary string
}

// Store is the decision-store collaborator. AppendRunLog is insert-only:
// one row per run, ordered by creation time, never updated or deleted.
type Store interface {
	LoadDocument(ctx context.Context, decisionID string) (*decision.Document, error)
	UpsertCanonicalRecord(ctx context.Context, decisionID string, fields CanonicalFields) error
	AppendRunLog(ctx context.Context, run *deliberation.Run) error
	// ReplaceGovernanceChecks fully replaces the checklist, not a partial merge.
	ReplaceGovernanceChecks(ctx context.Context, decisionID string, checks map[string]bool) error

	GetRun(ctx context.Context, runID string) (*deliberation.Run, error)
	ListRunPreviews(ctx context.Context, decisionID string) ([]deliberation.RunPreview, error)
}
