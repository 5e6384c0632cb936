package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/panel"
	"github.com/Strob0t/Boardroom/internal/service"
)

const maxBodyBytes = 1 << 20

// Engine is the deliberation surface the HTTP layer depends on.
type Engine interface {
	Run(ctx context.Context, req service.RunRequest) (*deliberation.Run, error)
	GetRun(ctx context.Context, runID string) (*deliberation.Run, error)
	ListRunPreviews(ctx context.Context, decisionID string) ([]deliberation.RunPreview, error)
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	engine Engine
}

// NewHandlers creates the handler set.
func NewHandlers(engine Engine) *Handlers {
	return &Handlers{engine: engine}
}

type runRequestBody struct {
	Panel           *panel.Config `json:"panel,omitempty"`
	Rounds          int           `json:"rounds"`
	IncludeEvidence bool          `json:"include_external_evidence"`
}

// RunDeliberation starts a synchronous deliberation for a decision.
// POST /api/v1/decisions/{id}/deliberations
func (h *Handlers) RunDeliberation(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[runRequestBody](w, r, maxBodyBytes)
	if !ok {
		return
	}

	req := service.RunRequest{
		DecisionID:      urlParam(r, "id"),
		Rounds:          body.Rounds,
		IncludeEvidence: body.IncludeEvidence,
	}
	if body.Panel != nil {
		req.Panel = *body.Panel
	}

	run, err := h.engine.Run(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// ListDeliberations returns redacted run previews for a decision.
// GET /api/v1/decisions/{id}/deliberations
func (h *Handlers) ListDeliberations(w http.ResponseWriter, r *http.Request) {
	previews, err := h.engine.ListRunPreviews(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "decision not found")
		return
	}
	if previews == nil {
		previews = []deliberation.RunPreview{}
	}
	writeJSON(w, http.StatusOK, previews)
}

// GetDeliberation returns one full run record.
// GET /api/v1/deliberations/{id}
func (h *Handlers) GetDeliberation(w http.ResponseWriter, r *http.Request) {
	run, err := h.engine.GetRun(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "deliberation run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Health reports liveness.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
