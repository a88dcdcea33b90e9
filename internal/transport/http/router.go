package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"trivia-room-service/internal/app"
	"trivia-room-service/internal/domain"
)

// NewRouter mounts the health check, the websocket endpoint and the room summary.
func NewRouter(service *app.GameService, ws *WSHandler, logger *logrus.Logger) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/ws", ws.ServeWS)
	r.HandleFunc("/rooms/{code}", roomHandler(service)).Methods(http.MethodGet)
	r.Use(LogMiddleware(logger))
	return r
}

func roomHandler(service *app.GameService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := service.Room(mux.Vars(r)["code"])
		w.Header().Set("Content-Type", "application/json")
		if errors.Is(err, domain.ErrRoomNotFound) {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal error"})
			return
		}
		_ = json.NewEncoder(w).Encode(summary)
	}
}

// LogMiddleware logs method, path and duration of each request. Websocket
// sessions are logged when they close.
func LogMiddleware(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Debug("http request")
		})
	}
}
