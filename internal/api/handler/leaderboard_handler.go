package handler

import (
	"net/http"
	"strconv"

	"github.com/Latte72R/typing-backend/internal/app/leaderboard"
	"github.com/Latte72R/typing-backend/internal/app/service"
	"github.com/Latte72R/typing-backend/internal/common"

	"github.com/go-chi/chi/v5"
)

type LeaderboardHandler struct {
	typingStore *service.TypingStore
}

func NewLeaderboardHandler(typingStore *service.TypingStore) *LeaderboardHandler {
	return &LeaderboardHandler{typingStore: typingStore}
}

func (h *LeaderboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{contestID}", h.get)
}

// get returns the top-10 leaderboard plus the requesting user's own rank
// (nil if they have no finished session), per ?user_id=.
func (h *LeaderboardHandler) get(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "contestID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ranked, summary, err := h.typingStore.GetLeaderboard(r.Context(), contestID, limit)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	var personal *leaderboard.Ranked
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		personal = leaderboard.ExtractPersonalRank(ranked, userID)
	}

	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"top":           summary.Top,
		"total":         summary.Total,
		"personal_rank": personal,
	})
}
