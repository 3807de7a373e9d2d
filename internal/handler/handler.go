// Package handler serves the OpenAI-compatible HTTP surface and drives one
// generation through the browser session per request.
package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"intenserp-api/internal/chat"
	"intenserp-api/internal/config"
	"intenserp-api/internal/contentcache"
	"intenserp-api/internal/debug"
	"intenserp-api/internal/markdown"
	"intenserp-api/internal/middleware"
	"intenserp-api/internal/pipeline"
	"intenserp-api/internal/state"
	"intenserp-api/internal/store"
)

// Guard messages surface to the chat client as assistant text, matching
// what users of the deployed relay already see.
const (
	msgNotOnSite    = "You must be on the DeepSeek website."
	msgNotLoggedIn  = "You must be logged into DeepSeek."
	msgPasteFailed  = "Could not paste prompt."
	msgNoGeneration = "No response generated."
	msgReceiveError = "Error receiving response."
)

type Handler struct {
	cfg        *config.Store
	log        *logrus.Logger
	pipeline   *pipeline.Pipeline
	converter  *markdown.Converter
	state      *state.Manager
	history    store.Store
	cacheStats *contentcache.Stats

	debugEnabled bool
	debugDir     string
	listLimit    int
	startTimeout time.Duration
}

func New(
	cfg *config.Store,
	log *logrus.Logger,
	pl *pipeline.Pipeline,
	converter *markdown.Converter,
	st *state.Manager,
	history store.Store,
	cacheStats *contentcache.Stats,
) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		cfg:          cfg,
		log:          log,
		pipeline:     pl,
		converter:    converter,
		state:        st,
		history:      history,
		cacheStats:   cacheStats,
		debugEnabled: cfg.GetBool("debug.enabled", false),
		debugDir:     cfg.GetString("debug.dump_dir", "debug-logs"),
		listLimit:    cfg.GetInt("history.list_limit", 50),
		startTimeout: time.Duration(cfg.GetInt("driver.start_timeout_seconds", 30)) * time.Second,
	}
}

// ChatCompletions handles POST /chat/completions.
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	log := h.log.WithField("trace_id", middleware.TraceID(r.Context()))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.WithError(err).Warn("failed to read request body")
		writeError(w, http.StatusBadRequest, "invalid_request_error", "could not read request body")
		return
	}

	req, err := h.pipeline.ProcessRequest(body)
	if err != nil {
		var procErr *pipeline.ProcessingError
		switch {
		case errors.As(err, &procErr):
			log.WithError(err).WithField("stage", procErr.Stage).Error("processor chain failed")
			writeError(w, http.StatusServiceUnavailable, "processing_error", procErr.Error())
		default:
			log.WithError(err).Warn("rejected malformed completion request")
			writeError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		}
		return
	}

	if h.state.Driver() == nil {
		writeError(w, http.StatusServiceUnavailable, "driver_unavailable", msgNotOnSite)
		return
	}

	prompt := h.pipeline.FormatForAPI(req)
	id := h.state.BeginGeneration(req.Model)

	dbg := debug.New(h.debugEnabled, h.debugDir, id)
	defer dbg.Close()
	dbg.LogRequest(req)
	dbg.LogPrompt(prompt)

	log.WithFields(logrus.Fields{
		"response_id": id,
		"model":       req.Model,
		"stream":      req.Stream,
		"deepthink":   req.UseDeepthink,
		"search":      req.UseSearch,
	}).Info("generation started")

	gen := &generation{
		handler: h,
		log:     log,
		id:      id,
		req:     req,
		prompt:  prompt,
		dbg:     dbg,
	}
	gen.run(w, r)
}

// Models handles GET /models. Without a browser session there is nothing to
// serve, so the listing reports unavailable.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	if h.state.Driver() == nil {
		writeError(w, http.StatusServiceUnavailable, "driver_unavailable", msgNotOnSite)
		return
	}
	writeJSON(w, http.StatusOK, chat.Models())
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	hits, misses := h.cacheStats.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"driver_active": h.state.Driver() != nil,
		"current_id":    h.state.CurrentResponseID(),
		"cache": map[string]uint64{
			"hits":   hits,
			"misses": misses,
		},
	})
}

// History handles GET /history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusNotFound, "not_found", "history is disabled")
		return
	}

	generations, err := h.history.ListRecent(r.Context(), h.listLimit)
	if err != nil {
		h.log.WithError(err).Error("failed to list generation history")
		writeError(w, http.StatusInternalServerError, "internal_error", "could not read history")
		return
	}
	if generations == nil {
		generations = []*store.Generation{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"object": "list",
		"data":   generations,
	})
}
