// Package api exposes scans over HTTP: a batch JSON endpoint and a
// Server-Sent Events stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lukman83/campaign-scout/internal/pipeline"
)

// Scanner is the part of pipeline.Scanner the handlers use.
type Scanner interface {
	Scan(ctx context.Context, req pipeline.Request, sink pipeline.Sink) (*pipeline.Result, error)
}

// Handler serves the crawl endpoints.
type Handler struct {
	scanner        Scanner
	defaultSession string
	logger         *slog.Logger
	// KeepAlive is the interval of SSE comment pings.
	KeepAlive time.Duration
}

func NewHandler(scanner Scanner, defaultSession string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		scanner:        scanner,
		defaultSession: defaultSession,
		logger:         logger,
		KeepAlive:      20 * time.Second,
	}
}

// Routes mounts POST / (batch) and POST /stream (SSE).
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.crawl)
	r.Post("/stream", h.stream)
	return r
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	var body crawlRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return pipeline.Request{}, false
	}
	req := body.toPipeline(h.defaultSession)
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return pipeline.Request{}, false
	}
	return req, true
}

func (h *Handler) crawl(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	h.logger.Info("crawl request", "mode", req.Range.String(), "days", len(req.Filter.Windows), "keywords", len(req.Filter.ExcludeKeywords))

	res, err := h.scanner.Scan(r.Context(), req, nil)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	sink := pipeline.NewChannelSink(64, ctx.Done())
	go func() {
		defer sink.Close()
		_, _ = h.scanner.Scan(ctx, req, sink)
	}()

	ping := time.NewTicker(h.KeepAlive)
	defer ping.Stop()
	events := sink.Events()
	for {
		select {
		case e, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.Error("encode event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
			flusher.Flush()
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrMissingCredential),
		errors.Is(err, pipeline.ErrNoWindows),
		errors.Is(err, pipeline.ErrInvalidRange):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrEmptyRange):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
