package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vncsmyrnk/slotpoll/internal/core/domain"
	"github.com/vncsmyrnk/slotpoll/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
}

func NewPollHandler(service ports.PollService) *PollHandler {
	return &PollHandler{
		service: service,
	}
}

type createPollRequest struct {
	Title     string `json:"title"`
	Organizer struct {
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
	} `json:"organizer"`
	Slots    []slotPayload    `json:"slots"`
	Mode     domain.Mode      `json:"mode"`
	Deadline *time.Time       `json:"deadline"`
	Invitees []inviteePayload `json:"invitees"`
}

type invitation struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type createPollResponse struct {
	Poll        pollResponse `json:"poll"`
	Invitations []invitation `json:"invitations"`
}

// CreatePoll creates a poll owned by the authenticated organizer. The
// response is the only place invitee tokens are handed out.
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	email, ok := organizerFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: missing organizer context", http.StatusUnauthorized)
		return
	}

	var req createPollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	input := ports.CreatePollInput{
		Title: req.Title,
		Organizer: domain.Organizer{
			Name:     req.Organizer.Name,
			Email:    email,
			Timezone: req.Organizer.Timezone,
		},
		Mode:     req.Mode,
		Deadline: req.Deadline,
	}
	for _, s := range req.Slots {
		input.Slots = append(input.Slots, s.toDomain())
	}
	for _, inv := range req.Invitees {
		input.Invitees = append(input.Invitees, domain.Invitee{Email: inv.Email, Name: inv.Name, Timezone: inv.Timezone})
	}

	poll, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := createPollResponse{Poll: toPollResponse(poll)}
	for _, inv := range poll.Invitees {
		resp.Invitations = append(resp.Invitations, invitation{Email: inv.Email, Token: inv.Token})
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing poll id", http.StatusBadRequest)
		return
	}

	poll, err := h.service.GetPoll(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPollResponse(poll))
}

type settingsRequest struct {
	Mode          *domain.Mode `json:"mode"`
	Deadline      *time.Time   `json:"deadline"`
	ClearDeadline bool         `json:"clear_deadline"`
}

func (h *PollHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	email, ok := organizerFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized: missing organizer context", http.StatusUnauthorized)
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	poll, err := h.service.UpdateSettings(r.Context(), chi.URLParam(r, "id"), email, ports.PollSettings{
		Mode:          req.Mode,
		Deadline:      req.Deadline,
		ClearDeadline: req.ClearDeadline,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPollResponse(poll))
}
