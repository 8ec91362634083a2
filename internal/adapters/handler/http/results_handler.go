package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

// ResultsHandler backs the results view. Every request runs one evaluation
// pass, so an open view keeps driving the poll forward.
type ResultsHandler struct {
	evaluator ports.Evaluator
}

func NewResultsHandler(evaluator ports.Evaluator) *ResultsHandler {
	return &ResultsHandler{
		evaluator: evaluator,
	}
}

func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	report, err := h.evaluator.Tick(r.Context(), pollID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
