package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"intenserp-api/internal/chat"
	"intenserp-api/internal/debug"
	"intenserp-api/internal/driver"
	"intenserp-api/internal/markdown"
	"intenserp-api/internal/metrics"
	"intenserp-api/internal/store"
)

const pollInterval = 200 * time.Millisecond

// phase tracks where one generation is in its lifecycle. INTERRUPTED is
// absorbing: once entered the loop only unwinds.
type phase int

const (
	phaseAwaitingFirst phase = iota
	phaseStreaming
	phaseFinalizing
	phaseDone
	phaseInterrupted
)

// generation drives a single prompt through the browser session and relays
// the rendered reply back as it grows.
type generation struct {
	handler *Handler
	log     *logrus.Entry
	id      int64
	req     *chat.Request
	prompt  string
	dbg     *debug.Logger

	phase     phase
	lastText  string
	startedAt time.Time
}

func (g *generation) run(w http.ResponseWriter, r *http.Request) {
	g.startedAt = time.Now()

	drv := g.handler.state.Driver()
	if drv == nil {
		g.respondGuard(w, msgNotOnSite)
		return
	}
	ctx := context.Background()

	onPage, err := drv.IsOnPage(ctx)
	if err != nil || !onPage {
		g.respondGuard(w, msgNotOnSite)
		return
	}
	loggedIn, err := drv.IsLoggedIn(ctx)
	if err != nil || !loggedIn {
		g.respondGuard(w, msgNotLoggedIn)
		return
	}

	if g.interrupted(r) {
		g.finishInterrupted(w, drv)
		return
	}

	settings := driver.ChatSettings{Deepthink: g.req.UseDeepthink, Search: g.req.UseSearch}
	if err := drv.ConfigureChat(ctx, settings); err != nil {
		g.log.WithError(err).Error("failed to configure chat")
		g.finishError(w, drv)
		return
	}

	if g.interrupted(r) {
		g.finishInterrupted(w, drv)
		return
	}

	if err := drv.SubmitPrompt(ctx, g.prompt, g.req.UseTextFile); err != nil {
		g.log.WithError(err).Error("failed to submit prompt")
		g.respondGuard(w, msgPasteFailed)
		return
	}

	if g.interrupted(r) {
		g.finishInterrupted(w, drv)
		return
	}

	if !g.awaitGenerationStart(ctx, r, drv) {
		if g.phase == phaseInterrupted {
			g.finishInterrupted(w, drv)
			return
		}
		g.respondGuard(w, msgNoGeneration)
		return
	}

	if g.interrupted(r) {
		g.finishInterrupted(w, drv)
		return
	}

	if g.req.Stream {
		g.streamResponse(w, r, drv)
	} else {
		g.collectResponse(w, r, drv)
	}
}

// interrupted reports whether this generation may no longer emit: a newer
// request claimed the session, the session is gone, or (non-streaming) the
// client hung up.
func (g *generation) interrupted(r *http.Request) bool {
	if g.handler.state.Superseded(g.id) {
		return true
	}
	if g.handler.state.Driver() == nil {
		return true
	}
	if !g.req.Stream {
		select {
		case <-r.Context().Done():
			return true
		default:
		}
	}
	return false
}

// awaitGenerationStart polls until the page starts rendering a reply.
func (g *generation) awaitGenerationStart(ctx context.Context, r *http.Request, drv driver.Driver) bool {
	deadline := time.Now().Add(g.handler.startTimeout)
	for time.Now().Before(deadline) {
		if g.interrupted(r) {
			g.phase = phaseInterrupted
			return false
		}
		inProgress, err := drv.GenerationInProgress(ctx)
		if err != nil {
			g.log.WithError(err).Warn("generation start probe failed")
			return false
		}
		if inProgress {
			return true
		}
		time.Sleep(pollInterval)
	}
	return false
}

// nextChunk applies the diff rule to a freshly converted snapshot and
// returns the delta to emit, or "" when there is nothing new. A snapshot
// that no longer extends the previous one is emitted whole and becomes the
// new baseline; the page occasionally re-renders mid-stream and a stricter
// diff would drop content.
func (g *generation) nextChunk(newText string) string {
	if newText == "" || newText == g.lastText {
		return ""
	}

	if len(newText) > len(g.lastText) && strings.HasPrefix(newText, g.lastText) {
		diff := newText[len(g.lastText):]
		g.lastText = newText
		return diff
	}
	g.lastText = newText
	return newText
}

// convertSnapshot pulls and converts the current reply HTML.
func (g *generation) convertSnapshot(ctx context.Context, drv driver.Driver, final bool) (string, error) {
	var html string
	var err error
	if final {
		html, err = drv.FinalSnapshot(ctx)
	} else {
		html, err = drv.CurrentSnapshot(ctx)
	}
	if err != nil {
		return "", err
	}

	text := g.handler.converter.Convert(html)
	metrics.SnapshotsProcessed.Inc()
	if text != "" {
		g.dbg.LogSnapshot(text)
	}
	return text, nil
}

func (g *generation) streamResponse(w http.ResponseWriter, r *http.Request, drv driver.Driver) {
	sw := newStreamWriter(w, g.req.Model, g.dbg)
	ctx := context.Background()
	g.phase = phaseAwaitingFirst

	for {
		if g.interrupted(r) {
			g.phase = phaseInterrupted
			g.finishInterrupted(w, drv)
			return
		}

		inProgress, err := drv.GenerationInProgress(ctx)
		if err != nil {
			g.streamError(sw, drv, err)
			return
		}
		if !inProgress {
			break
		}

		text, err := g.convertSnapshot(ctx, drv, false)
		if err != nil {
			g.streamError(sw, drv, err)
			return
		}
		if chunk := g.nextChunk(text); chunk != "" {
			g.phase = phaseStreaming
			sw.WriteChunk(chunk)
		}

		time.Sleep(pollInterval)
	}

	if g.interrupted(r) {
		g.phase = phaseInterrupted
		g.finishInterrupted(w, drv)
		return
	}

	// Trailing delta from the completed reply, then the closing symbol.
	g.phase = phaseFinalizing
	finalText, err := g.convertSnapshot(ctx, drv, true)
	if err != nil {
		g.streamError(sw, drv, err)
		return
	}
	if chunk := g.nextChunk(finalText); chunk != "" {
		sw.WriteChunk(chunk)
	}
	if closing := markdown.ClosingSymbol(g.lastText); closing != "" {
		sw.WriteChunk(closing)
	}

	g.phase = phaseDone
	g.finish("complete", sw.Chunks(), false)
}

func (g *generation) collectResponse(w http.ResponseWriter, r *http.Request, drv driver.Driver) {
	ctx := context.Background()

	for {
		if g.interrupted(r) {
			g.phase = phaseInterrupted
			g.finishInterrupted(w, drv)
			return
		}
		inProgress, err := drv.GenerationInProgress(ctx)
		if err != nil {
			g.collectError(w, drv, err)
			return
		}
		if !inProgress {
			break
		}
		time.Sleep(pollInterval)
	}

	if g.interrupted(r) {
		g.phase = phaseInterrupted
		g.finishInterrupted(w, drv)
		return
	}

	g.phase = phaseFinalizing
	finalText, err := g.convertSnapshot(ctx, drv, true)
	if err != nil {
		g.collectError(w, drv, err)
		return
	}

	content := finalText
	if content == "" {
		content = msgReceiveError
	} else {
		content += markdown.ClosingSymbol(finalText)
	}
	g.lastText = finalText

	g.phase = phaseDone
	writeCompletion(w, content, g.req.Model)
	g.finish("complete", 0, false)
}

// respondGuard delivers a guard message as assistant text so the chat
// client displays it inline.
func (g *generation) respondGuard(w http.ResponseWriter, message string) {
	g.log.WithField("message", message).Warn("generation refused")
	if g.req.Stream {
		sw := newStreamWriter(w, g.req.Model, g.dbg)
		sw.WriteChunk(message)
	} else {
		writeCompletion(w, message, g.req.Model)
	}
	g.finish("refused", 0, false)
}

// finishInterrupted resets the page session and ends the response with
// whatever content was already built.
func (g *generation) finishInterrupted(w http.ResponseWriter, drv driver.Driver) {
	g.phase = phaseInterrupted
	g.resetSession(drv)

	if !g.req.Stream {
		writeCompletion(w, g.lastText, g.req.Model)
	}
	g.finish("interrupted", 0, true)
}

// finishError ends a generation that failed before the response loop began.
func (g *generation) finishError(w http.ResponseWriter, drv driver.Driver) {
	g.resetSession(drv)
	if g.req.Stream {
		sw := newStreamWriter(w, g.req.Model, g.dbg)
		sw.WriteChunk(msgReceiveError)
	} else {
		writeCompletion(w, msgReceiveError, g.req.Model)
	}
	g.finish("error", 0, false)
}

func (g *generation) streamError(sw *streamWriter, drv driver.Driver, err error) {
	g.log.WithError(err).Error("streaming loop failed")
	g.resetSession(drv)
	sw.WriteChunk(msgReceiveError)
	g.finish("error", sw.Chunks(), true)
}

func (g *generation) collectError(w http.ResponseWriter, drv driver.Driver, err error) {
	g.log.WithError(err).Error("generation wait failed")
	g.resetSession(drv)
	writeCompletion(w, msgReceiveError, g.req.Model)
	g.finish("error", 0, true)
}

func (g *generation) resetSession(drv driver.Driver) {
	if drv == nil {
		return
	}
	if err := drv.ResetSession(context.Background()); err != nil {
		g.log.WithError(err).Warn("session reset failed")
	}
}

// finish records the outcome everywhere it is observed: metrics, the event
// bus, the debug dump, and the history store.
func (g *generation) finish(outcome string, chunks int, interrupted bool) {
	duration := time.Since(g.startedAt)

	metrics.GenerationsTotal.WithLabelValues(outcome).Inc()
	metrics.GenerationDuration.Observe(duration.Seconds())
	g.handler.state.FinishGeneration(g.id, outcome)

	g.dbg.LogResponse(g.lastText)
	g.dbg.LogSummary(outcome, chunks, duration)

	g.log.WithFields(logrus.Fields{
		"response_id": g.id,
		"outcome":     outcome,
		"duration":    duration.String(),
		"chars":       len(g.lastText),
	}).Info("generation finished")

	g.saveHistory(outcome, interrupted, duration)
}

func (g *generation) saveHistory(outcome string, interrupted bool, duration time.Duration) {
	if g.handler.history == nil || outcome == "refused" {
		return
	}

	gen := &store.Generation{
		ResponseID:  g.id,
		Model:       g.req.Model,
		Prompt:      g.prompt,
		Response:    g.lastText,
		Deepthink:   g.req.UseDeepthink,
		Search:      g.req.UseSearch,
		Streamed:    g.req.Stream,
		Interrupted: interrupted,
		DurationMS:  duration.Milliseconds(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.handler.history.SaveGeneration(ctx, gen); err != nil {
		g.log.WithError(err).Warn("failed to record generation history")
	}
}
