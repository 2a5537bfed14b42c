package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/internal/store"
	"github.com/inkpress/apiserver/types"
)

const maxJSONBody = 1 << 20

type contextKey string

const (
	contextUserKey   contextKey = "user"
	contextClaimsKey contextKey = "claims"
)

// Envelope wraps every JSON response. Code mirrors the HTTP status.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// actorFromContext returns the authenticated user, or the zero User for
// anonymous requests.
func actorFromContext(ctx context.Context) types.User {
	user, _ := ctx.Value(contextUserKey).(types.User)
	return user
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, "success", data)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, message, nil)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, message, nil)
}

func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Code: status, Message: message, Data: data})
}

// writeServiceError maps service and store errors to responses. what names
// the resource in not-found messages and action describes the failed
// operation in 500 responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, what, action string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeEnvelope(w, http.StatusBadRequest, verr.Error(), verr)
	case errors.Is(err, services.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, services.ErrInactive):
		writeError(w, http.StatusForbidden, "account is not active")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, services.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return errors.New("invalid request body")
	}
	return nil
}

// parsePagination reads the zero-based page and its size. Size is clamped by
// the services.
func parsePagination(r *http.Request) (services.PageRequest, error) {
	req := services.PageRequest{Size: services.DefaultPageSize}

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			return services.PageRequest{}, errors.New("invalid page")
		}
		req.Page = page
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("size")); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			return services.PageRequest{}, errors.New("invalid size")
		}
		req.Size = size
	}
	return req, nil
}

func parseID(r *http.Request, param string) (int, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s", strings.TrimSuffix(param, "ID")+" id")
	}
	return id, nil
}

func parseOptionalInt(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

// statusRequest is the body of every status-change endpoint.
type statusRequest struct {
	Status string `json:"status"`
}
