package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"intenserp-api/internal/chat"
	"intenserp-api/internal/debug"
	"intenserp-api/internal/metrics"
)

// streamWriter emits chat.completion.chunk envelopes over SSE. Writes are
// mutex guarded; after the first write failure the stream goes silent
// instead of erroring on every subsequent chunk.
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	model   string
	dbg     *debug.Logger

	mu     sync.Mutex
	failed bool
	chunks int
}

func newStreamWriter(w http.ResponseWriter, model string, dbg *debug.Logger) *streamWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	return &streamWriter{w: w, flusher: flusher, model: model, dbg: dbg}
}

// WriteChunk sends one content delta. Returns false once the client is gone.
func (s *streamWriter) WriteChunk(content string) bool {
	if s == nil {
		return false
	}
	if content == "" {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return false
	}

	data, err := json.Marshal(chat.NewResponse(content, s.model).Chunk())
	if err != nil {
		s.failed = true
		return false
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.failed = true
		return false
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}

	s.chunks++
	metrics.StreamChunks.Inc()
	s.dbg.LogChunk(content)
	return true
}

func (s *streamWriter) Chunks() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeCompletion sends the single non-streaming chat.completion envelope.
func writeCompletion(w http.ResponseWriter, content, model string) {
	writeJSON(w, http.StatusOK, chat.NewResponse(content, model).Completion())
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	metrics.ErrorsTotal.WithLabelValues(errType).Inc()
	writeJSON(w, status, errorBody{Error: errorDetail{Message: message, Type: errType}})
}
