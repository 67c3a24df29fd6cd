package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

type Server struct {
	logger *slog.Logger
	scores scoreService

	allowedOrigins []string
}

func New(logger *slog.Logger, scores scoreService, allowedOrigins []string) *Server {
	return &Server{
		logger:         logger.With("component", "rest"),
		scores:         scores,
		allowedOrigins: allowedOrigins,
	}
}

// Start - starts the HTTP server.
func (that *Server) Start(ctx context.Context, port string) error {
	router := mux.NewRouter()
	router.HandleFunc("/ping", pingHandler).Methods(http.MethodGet)
	router.HandleFunc("/score", that.scoreHandler).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(that.allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet}),
	)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      cors(router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
