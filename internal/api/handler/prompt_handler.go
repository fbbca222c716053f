package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Latte72R/typing-backend/internal/api/middleware"
	"github.com/Latte72R/typing-backend/internal/app/service"
	"github.com/Latte72R/typing-backend/internal/common"

	"github.com/go-chi/chi/v5"
)

type PromptHandler struct {
	promptService *service.PromptService
}

func NewPromptHandler(promptService *service.PromptService) *PromptHandler {
	return &PromptHandler{promptService: promptService}
}

func (h *PromptHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{promptID}", h.get)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Authenticator)
		admin.Use(middleware.AdminOnly)
		admin.Post("/", h.create)
	})
}

func (h *PromptHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	prompt, err := h.promptService.CreatePrompt(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, prompt)
}

func (h *PromptHandler) get(w http.ResponseWriter, r *http.Request) {
	promptID := chi.URLParam(r, "promptID")
	prompt, err := h.promptService.GetPrompt(r.Context(), promptID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, prompt)
}

type setContestPromptsRequest struct {
	PromptIDs []string `json:"prompt_ids"`
}

// RegisterContestRoutes mounts the nested /contests/{contestID}/prompts
// routes that set and list a contest's ordered prompt pool.
func (h *PromptHandler) RegisterContestRoutes(r chi.Router) {
	r.Get("/{contestID}/prompts", h.listForContest)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.Authenticator)
		admin.Use(middleware.AdminOnly)
		admin.Put("/{contestID}/prompts", h.setForContest)
	})
}

func (h *PromptHandler) setForContest(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "contestID")

	var req setContestPromptsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	if err := h.promptService.SetContestPrompts(r.Context(), contestID, req.PromptIDs); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PromptHandler) listForContest(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "contestID")
	prompts, err := h.promptService.ListContestPrompts(r.Context(), contestID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, prompts)
}
