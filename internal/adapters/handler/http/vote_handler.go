package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

// InviteeTokenHeader carries the token an invitee received with their invitation.
const InviteeTokenHeader = "X-Invitee-Token"

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type voteRequest struct {
	DisplayName string      `json:"display_name"`
	SlotStarts  []time.Time `json:"slot_starts"`
}

// CastVote replaces the invitee's current selection. An empty selection is
// a valid vote meaning no slot works.
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid poll id", http.StatusBadRequest)
		return
	}

	token := r.Header.Get(InviteeTokenHeader)
	if token == "" {
		http.Error(w, "Unauthorized: missing invitee token", http.StatusUnauthorized)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	input := ports.VoteInput{
		PollID:       pollID,
		InviteeToken: token,
		DisplayName:  req.DisplayName,
		SlotStarts:   req.SlotStarts,
	}
	if err := h.service.Vote(r.Context(), input); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
