package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/go-url-relay/internal/app/service"
	"github.com/atinyakov/go-url-relay/internal/models"
)

type PostHandler struct {
	baseURL string
	service service.RelayServiceIface
	logger  *zap.Logger
}

// NewPost builds the registration handler. An empty baseURL makes short
// links relative to the incoming request URL.
func NewPost(baseURL string, s service.RelayServiceIface, l *zap.Logger) *PostHandler {
	return &PostHandler{
		baseURL: baseURL,
		service: s,
		logger:  l,
	}
}

// Register handles POST / and answers with the short link as a JSON string.
func (h *PostHandler) Register(res http.ResponseWriter, req *http.Request) {
	var request models.RegistrationRequest

	if err := decodeJSONBody(res, req, &request); err != nil {
		var mr *malformedRequest
		if errors.As(err, &mr) {
			writeDetail(res, mr.status, mr.msg)
			return
		}

		h.logger.Error("failed to decode request body", zap.Error(err))
		writeDetail(res, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	r, _, err := h.service.Register(req.Context(), request)
	if err != nil {
		var verr models.ValidationErrors
		if errors.As(err, &verr) {
			h.logger.Info("rejected registration", zap.Error(err))
			writeDetail(res, http.StatusUnprocessableEntity, verr)
			return
		}

		h.logger.Error("unable to register url", zap.Error(err))
		writeDetail(res, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	base := h.baseURL
	if base == "" {
		base = requestBase(req)
	}

	if err := writeJSON(res, http.StatusOK, service.ShortLink(base, r.ID)); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}
