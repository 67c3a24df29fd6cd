package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-relay/internal/entity"
)

type scoreService interface {
	Totals(ctx context.Context) (*entity.Score, error)
}

func (that *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	score, err := that.scores.Totals(r.Context())
	if err != nil {
		that.logger.Error("failed to read scoreboard", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err = json.NewEncoder(w).Encode(score); err != nil {
		that.logger.Error("failed to encode scoreboard", "error", err)
	}
}
