package handler

import (
	"net/http"

	"github.com/Latte72R/typing-backend/internal/app/realtime"
	"github.com/Latte72R/typing-backend/internal/common"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WebsocketHandler struct {
	hub      *realtime.Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewWebsocketHandler(hub *realtime.Hub, logger *zap.Logger) *WebsocketHandler {
	return &WebsocketHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *WebsocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{contestID}", h.connect)
}

func (h *WebsocketHandler) connect(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "contestID")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "failed to upgrade connection: "+err.Error())
		return
	}

	h.hub.Register(conn, contestID)
}
