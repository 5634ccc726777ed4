// Package server assembles the HTTP router of the relay.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/go-url-relay/internal/app/handler"
	"github.com/atinyakov/go-url-relay/internal/app/service"
	"github.com/atinyakov/go-url-relay/internal/metrics"
	"github.com/atinyakov/go-url-relay/internal/middleware"
	"github.com/atinyakov/go-url-relay/internal/models"
)

// Init builds the router: POST / registers a link, GET /{id} relays it
// and GET /ping checks the store. baseURL may be empty.
func Init(baseURL string, logger *zap.Logger, s service.RelayServiceIface, auth service.AuthIface) *chi.Mux {
	postHandler := handler.NewPost(baseURL, s, logger)
	getHandler := handler.NewGet(s, logger)

	r := chi.NewRouter()
	r.Use(middleware.WithRequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(metrics.Middleware)
	r.Use(middleware.WithBearer(auth))

	r.With(middleware.WithGZIPPost).Post("/", postHandler.Register)
	r.Get("/ping", getHandler.PingDB)
	r.Get("/{id}", getHandler.Relay)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})

	return r
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Detail: detail})
}
