package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/panel"
	"github.com/Strob0t/Boardroom/internal/port/reviewer"
)

// Rebuttal runs sequential barrier rounds in which every live panelist is
// re-invoked with the prior round's complete review set as shared context.
type Rebuttal struct {
	collector *Collector
	log       *slog.Logger
}

// NewRebuttal creates a rebuttal coordinator on top of the collector's
// barrier-phase machinery.
func NewRebuttal(collector *Collector, log *slog.Logger) *Rebuttal {
	return &Rebuttal{collector: collector, log: log}
}

// RunRounds executes roundCount rounds. Round k+1 never starts before round
// k's barrier clears, because each round's context is the full prior round.
// An agent that degrades mid-rebuttal keeps its last successful opinion
// frozen and is excluded from later rounds. Zero rounds returns the input
// set unchanged.
func (r *Rebuttal) RunRounds(
	ctx context.Context,
	set deliberation.ReviewSet,
	roundCount int,
	cfg *panel.Config,
	makeReq func(agent string, prior deliberation.ReviewSet, round int) reviewer.Request,
) (deliberation.ReviewSet, []deliberation.InteractionRound, error) {
	current := set
	frozen := make(map[string]bool)
	var rounds []deliberation.InteractionRound

	for round := 1; round <= roundCount; round++ {
		if err := ctx.Err(); err != nil {
			return current, rounds, err
		}

		var agents []panel.AgentSpec
		for _, spec := range cfg.Active() {
			if frozen[spec.ID] {
				continue
			}
			if _, live := current[spec.ID]; !live {
				continue
			}
			agents = append(agents, spec)
		}
		if len(agents) == 0 {
			break
		}

		prior := current.Clone()
		results := r.collector.invokePanel(ctx, agents, func(agent string) reviewer.Request {
			return makeReq(agent, prior, round)
		})

		next := prior.Clone()
		for _, res := range results {
			if res.err != nil {
				r.log.Warn("panelist degraded mid-rebuttal, freezing prior opinion",
					"agent", res.agent, "round", round, "error", res.err)
				frozen[res.agent] = true
				continue
			}
			next[res.agent] = res.op
		}

		rounds = append(rounds, buildRound(round, prior, next, agents))
		current = next
	}

	return current, rounds, nil
}

// buildRound computes per-agent deltas for one completed round.
func buildRound(number int, prior, next deliberation.ReviewSet, invoked []panel.AgentSpec) deliberation.InteractionRound {
	ids := make([]string, 0, len(invoked))
	for _, spec := range invoked {
		ids = append(ids, spec.ID)
	}
	sort.Strings(ids)

	deltas := make([]deliberation.AgentDelta, 0, len(ids))
	var moved []string
	for _, id := range ids {
		prev, revised := prior[id], next[id]
		d := deliberation.AgentDelta{
			Agent:           id,
			PreviousScore:   prev.Score,
			RevisedScore:    revised.Score,
			ScoreDelta:      revised.Score - prev.Score,
			PreviousBlocked: prev.Blocked,
			RevisedBlocked:  revised.Blocked,
		}
		deltas = append(deltas, d)
		if d.ScoreDelta != 0 || d.PreviousBlocked != d.RevisedBlocked {
			moved = append(moved, fmt.Sprintf("%s (%+d)", id, d.ScoreDelta))
		}
	}

	summary := fmt.Sprintf("round %d: no position changes", number)
	if len(moved) > 0 {
		summary = fmt.Sprintf("round %d: position changes: %s", number, strings.Join(moved, ", "))
	}
	return deliberation.InteractionRound{Number: number, Summary: summary, Deltas: deltas}
}
