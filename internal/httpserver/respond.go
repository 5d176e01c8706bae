package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/cinebase/cache"
	"github.com/goliatone/cinebase/internal/auth"
	"github.com/goliatone/cinebase/internal/catalog"
	"github.com/goliatone/cinebase/pkg/logging"
	"github.com/goliatone/cinebase/repositorycache"
	"go.uber.org/zap"
)

// HeaderCache reports whether a read was served from the cache.
const HeaderCache = "X-Cache"

type errorBody struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// requestError is a client error detected by the handlers themselves.
type requestError struct {
	status  int
	code    string
	message string
}

func (e *requestError) Error() string {
	return e.message
}

func badRequest(message string) error {
	return &requestError{status: http.StatusBadRequest, code: "bad_request", message: message}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and a JSON error body.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{RequestID: chimw.GetReqID(r.Context())}
	status := http.StatusInternalServerError

	var (
		verr     *catalog.ValidationError
		reqErr   *requestError
		maxBytes *http.MaxBytesError
	)
	switch {
	case errors.As(err, &verr):
		status, body.Error, body.Message = http.StatusUnprocessableEntity, "validation_error", "request validation failed"
		body.Fields = verr.Fields
	case errors.As(err, &reqErr):
		status, body.Error, body.Message = reqErr.status, reqErr.code, reqErr.message
	case errors.As(err, &maxBytes):
		status, body.Error, body.Message = http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large"
	case errors.Is(err, catalog.ErrNotFound):
		status, body.Error, body.Message = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, catalog.ErrConflict):
		status, body.Error, body.Message = http.StatusConflict, "conflict", "resource already exists"
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, body.Error, body.Message = http.StatusUnauthorized, "invalid_credentials", err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		status, body.Error, body.Message = http.StatusGatewayTimeout, "gateway_timeout", "request timed out"
	default:
		body.Error, body.Message = "internal_server_error", "internal server error"
		if !h.production {
			body.Message = err.Error()
		}
	}

	logger := logging.L(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}

	writeJSON(w, status, body)
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxBytes *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytes):
			return err
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		default:
			return badRequest("malformed JSON body: " + err.Error())
		}
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

// readContext returns the request context, marked for a cache bypass when
// the client sent Cache-Control: no-cache.
func readContext(r *http.Request) context.Context {
	ctx := r.Context()
	if strings.Contains(strings.ToLower(r.Header.Get("Cache-Control")), "no-cache") {
		ctx = repositorycache.WithCacheBypass(ctx)
	}
	return ctx
}

func writeCached(w http.ResponseWriter, r *http.Request, origin cache.Origin, key string, v any) {
	w.Header().Set(HeaderCache, origin.String())
	logging.L(r.Context()).Debug("cached read",
		zap.String("cache_result", origin.String()),
		zap.String("cache_key", key),
	)
	writeJSON(w, http.StatusOK, v)
}
