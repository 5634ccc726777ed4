package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/go-url-relay/internal/app/service"
	"github.com/atinyakov/go-url-relay/internal/metrics"
	"github.com/atinyakov/go-url-relay/internal/relay"
	"github.com/atinyakov/go-url-relay/internal/storage"
)

// Detail messages of failed retrievals.
const (
	DetailNotFound      = "Not Found hash"
	DetailCannotConnect = "Cannot connect to host"
)

const (
	lookupTimeout = 3 * time.Second
	pingTimeout   = 3 * time.Second
)

type GetHandler struct {
	service service.RelayServiceIface
	logger  *zap.Logger
}

func NewGet(s service.RelayServiceIface, l *zap.Logger) *GetHandler {
	return &GetHandler{
		service: s,
		logger:  l,
	}
}

// Relay handles GET /{id}: it fetches the registered URL and streams the
// upstream status, headers and body back to the caller.
func (h *GetHandler) Relay(res http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")

	lookupCtx, cancel := context.WithTimeout(req.Context(), lookupTimeout)
	r, err := h.service.Lookup(lookupCtx, id)
	cancel()

	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			metrics.ObserveRetrieval(metrics.OutcomeNotFound, 0)
			writeDetail(res, http.StatusNotFound, DetailNotFound)
			return
		}

		h.logger.Error("lookup failed", zap.String("id", id), zap.Error(err))
		writeDetail(res, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	up, err := h.service.Open(req.Context(), r)
	if err != nil {
		if errors.Is(err, relay.ErrConnect) {
			h.logger.Info("upstream unreachable", zap.String("id", id), zap.Error(err))
			metrics.ObserveRetrieval(metrics.OutcomeConnectError, 0)
			writeDetail(res, http.StatusBadRequest, DetailCannotConnect)
			return
		}

		h.logger.Warn("upstream fetch failed", zap.String("id", id), zap.Error(err))
		metrics.ObserveRetrieval(metrics.OutcomeFetchError, 0)
		writeDetail(res, http.StatusInternalServerError, err.Error())
		return
	}

	header := res.Header()
	for k, v := range up.Header {
		header[k] = v
	}
	header.Set("Content-Type", up.ContentType)
	res.WriteHeader(up.StatusCode)

	n, err := up.WriteTo(res)
	if err != nil {
		h.logger.Warn("relay interrupted", zap.String("id", id), zap.Int64("bytes", n), zap.Error(err))
	}

	metrics.ObserveRetrieval(metrics.OutcomeOK, n)
}

// PingDB reports whether the record store is reachable.
func (h *GetHandler) PingDB(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), pingTimeout)
	defer cancel()

	if err := h.service.PingContext(ctx); err != nil {
		h.logger.Error("store ping failed", zap.Error(err))
		writeDetail(res, http.StatusInternalServerError, err.Error())
		return
	}

	res.WriteHeader(http.StatusOK)
}
