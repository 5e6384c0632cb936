package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/opinion"
	"github.com/Strob0t/Boardroom/internal/domain/panel"
	"github.com/Strob0t/Boardroom/internal/port/reviewer"
)

// ErrIncompleteDeliberation is returned when more than half the mandatory
// panel degrades; such a run is never scored.
var ErrIncompleteDeliberation = errors.New("more than half the mandatory panel degraded")

// Collector fans reviewer calls out across the panel and joins them into a
// review set, applying the degraded-agent policy.
type Collector struct {
	gateway      *Gateway
	maxParallel  int64
	phaseTimeout time.Duration
	log          *slog.Logger
}

// NewCollector creates a collector. maxParallel bounds concurrent reviewer
// calls; phaseTimeout bounds the whole collection phase, so one slow
// collaborator cannot stall the run past it.
func NewCollector(gateway *Gateway, maxParallel int, phaseTimeout time.Duration, log *slog.Logger) *Collector {
	return &Collector{
		gateway:      gateway,
		maxParallel:  int64(maxParallel),
		phaseTimeout: phaseTimeout,
		log:          log,
	}
}

type panelResult struct {
	agent string
	op    opinion.Opinion
	err   error
}

// Collect invokes every active panelist concurrently and returns the initial
// review set plus the agents that degraded. ErrIncompleteDeliberation is
// returned alongside the partial set when the mandatory panel is too thin
// to score.
func (c *Collector) Collect(ctx context.Context, cfg *panel.Config, makeReq func(agent string) reviewer.Request) (deliberation.ReviewSet, []string, error) {
	agents := cfg.Active()
	results := c.invokePanel(ctx, agents, makeReq)

	set := make(deliberation.ReviewSet, len(agents))
	var degraded []string
	for _, r := range results {
		if r.err != nil {
			c.log.Warn("panelist degraded", "agent", r.agent, "error", r.err)
			degraded = append(degraded, r.agent)
			continue
		}
		set[r.agent] = r.op
	}
	sort.Strings(degraded)

	degradedMandatory := 0
	for _, id := range degraded {
		if spec, ok := cfg.Spec(id); ok && spec.Role == panel.RoleMandatory {
			degradedMandatory++
		}
	}
	if degradedMandatory*2 > cfg.MandatoryCount() {
		return set, degraded, ErrIncompleteDeliberation
	}
	return set, degraded, nil
}

// invokePanel runs one barrier phase: every agent is invoked concurrently
// under the phase deadline, and the phase resolves only when all calls have
// returned or timed out.
func (c *Collector) invokePanel(ctx context.Context, agents []panel.AgentSpec, makeReq func(agent string) reviewer.Request) []panelResult {
	phaseCtx, cancel := context.WithTimeout(ctx, c.phaseTimeout)
	defer cancel()

	sem := semaphore.NewWeighted(c.maxParallel)
	results := make([]panelResult, len(agents))

	var wg sync.WaitGroup
	for i, spec := range agents {
		wg.Add(1)
		go func(i int, spec panel.AgentSpec) {
			defer wg.Done()
			if err := sem.Acquire(phaseCtx, 1); err != nil {
				results[i] = panelResult{agent: spec.ID, err: &GatewayError{Agent: spec.ID, Kind: FailureTimeout, Err: err}}
				return
			}
			defer sem.Release(1)

			op, err := c.gateway.Invoke(phaseCtx, spec, makeReq(spec.ID))
			results[i] = panelResult{agent: spec.ID, op: op, err: err}
		}(i, spec)
	}
	wg.Wait()
	return results
}
