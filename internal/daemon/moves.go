package daemon

import (
	"encoding/json"
	"net/http"

	"github.com/dyluth/lanes/internal/crm"
	"github.com/dyluth/lanes/pkg/pipeline"
)

// MovePattern is the route served by MoveHandler.
const MovePattern = "POST /pipelines/{pipeline}/entities/{id}/move"

// MoveRequest is the JSON body of a move.
type MoveRequest struct {
	ToStageID string `json:"to_stage_id"`
}

// MoveHandler runs moves through the daemon's lanes, so they share the
// boards' pending state with every other move the daemon serves.
type MoveHandler struct {
	lanes map[pipeline.PipelineType]crm.Lane
}

// NewMoveHandler creates a move handler over lanes.
func NewMoveHandler(lanes map[pipeline.PipelineType]crm.Lane) *MoveHandler {
	return &MoveHandler{lanes: lanes}
}

// ServeHTTP handles MovePattern. It blocks until the commit resolves and
// answers with the final TransitionResult.
func (h *MoveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	lane, ok := h.lanes[pipeline.PipelineType(r.PathValue("pipeline"))]
	if !ok {
		http.Error(w, "Unknown pipeline", http.StatusNotFound)
		return
	}

	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ToStageID == "" {
		http.Error(w, "Body must be {\"to_stage_id\": \"...\"}", http.StatusBadRequest)
		return
	}

	result := lane.Move(r.Context(), r.PathValue("id"), req.ToStageID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(moveStatus(result))
	json.NewEncoder(w).Encode(result)
}

func moveStatus(r pipeline.TransitionResult) int {
	switch r.Outcome {
	case pipeline.OutcomeCommitted, pipeline.OutcomeNoOp:
		return http.StatusOK
	case pipeline.OutcomeConflicted:
		return http.StatusConflict
	case pipeline.OutcomeRejected:
		switch r.Reason {
		case pipeline.ReasonEntityBusy:
			return http.StatusConflict
		case pipeline.ReasonInvalidReference:
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	case pipeline.OutcomeRolledBack:
		if r.Reason == pipeline.ReasonTimeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
