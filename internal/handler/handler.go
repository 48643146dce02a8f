// Package handler contains HTTP handlers for the webhook API.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"farcaster-trader/internal/apperror"
	"farcaster-trader/internal/gate"
	"farcaster-trader/internal/model"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var errNotObject = errors.New("body is not a JSON object")

// Processor runs the gate pipeline for one decoded event.
type Processor interface {
	Process(ctx context.Context, ev model.CastEvent) (gate.Outcome, error)
}

// Handler wraps HTTP handlers with logger and the event pipeline.
type Handler struct {
	log  *zap.Logger
	gate Processor
	name string
}

// New creates a new Handler instance. name is reported by Root.
func New(log *zap.Logger, p Processor, name string) *Handler {
	return &Handler{log: log, gate: p, name: name}
}

// Root is the liveness endpoint.
func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": h.name + " is running",
	})
}

// Webhook receives cast events. Bodies that are not a JSON object are
// rejected before any state is touched.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(zap.String("request_id", middleware.GetReqID(r.Context())))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read body", zap.Error(err))
		apperror.WriteDetail(w, http.StatusBadRequest, apperror.InvalidJSON)
		return
	}
	log.Info("received webhook event", zap.ByteString("body", body))

	var ev model.CastEvent
	if err := decodeObject(body, &ev); err != nil {
		log.Error("failed to parse json", zap.Error(err))
		apperror.WriteDetail(w, http.StatusBadRequest, apperror.InvalidJSON)
		return
	}

	outcome, err := h.gate.Process(r.Context(), ev)
	if err != nil {
		log.Error("error processing webhook", zap.Error(err))
		apperror.WriteDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Info("webhook processed", zap.String("outcome", string(outcome)))
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Event received",
	})
}

// Recover turns a panic in a downstream handler into a 500 for that request.
func (h *Handler) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.log.Error("panic while handling request",
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"))
				apperror.WriteDetail(w, http.StatusInternalServerError, fmt.Sprint(rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// decodeObject rejects anything but a JSON object, including a bare null
// that json.Unmarshal would accept into a struct.
func decodeObject(body []byte, v any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return errNotObject
	}
	return json.Unmarshal(trimmed, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
