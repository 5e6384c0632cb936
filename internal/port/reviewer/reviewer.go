// Package reviewer defines the collaborator port for obtaining one
// reviewer's raw opinion. The collaborator is opaque: it returns model text
// which the gateway validates and repairs.
package reviewer

import (
	"context"

	"github.com/Strob0t/Boardroom/internal/domain/decision"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
)

// Request carries everything a collaborator needs for one invocation.
// PriorRound, when non-nil, is the complete review set from the previous
// rebuttal round.
type Request struct {
	Agent           string
	Document        *decision.Document
	MissingSections []string
	PriorRound      deliberation.ReviewSet
	RoundNumber     int
	IncludeEvidence bool
}

// Collaborator produces one raw structured opinion per call.
type Collaborator interface {
	Review(ctx context.Context, req Request) (string, error)
}
