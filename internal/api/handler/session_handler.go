package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Latte72R/typing-backend/internal/api/middleware"
	"github.com/Latte72R/typing-backend/internal/app/service"
	"github.com/Latte72R/typing-backend/internal/common"
	"github.com/Latte72R/typing-backend/internal/common/validation"

	"github.com/go-chi/chi/v5"
)

type SessionHandler struct {
	typingStore *service.TypingStore
}

func NewSessionHandler(typingStore *service.TypingStore) *SessionHandler {
	return &SessionHandler{typingStore: typingStore}
}

func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Post("/", h.start)
	r.Post("/{sessionID}/finish", h.finish)
}

type startSessionRequest struct {
	ContestID string `json:"contest_id"`
}

func (h *SessionHandler) start(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())

	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}

	result, err := h.typingStore.StartSession(r.Context(), req.ContestID, userID, time.Now())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, result)
}

func (h *SessionHandler) finish(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	var payload service.FinishPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	if err := validation.Struct(payload); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "payload failed validation: "+err.Error())
		return
	}

	result, err := h.typingStore.FinishSession(r.Context(), sessionID, userID, payload, time.Now())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}
