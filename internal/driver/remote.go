package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"intenserp-api/internal/config"
	"intenserp-api/internal/metrics"
)

// Remote speaks to the browser automation bridge over a websocket. Calls are
// serialized: the page holds a single conversation, so there is nothing to
// gain from pipelining, and a strict request/response exchange keeps frame
// correlation trivial.
type Remote struct {
	url            string
	connectTimeout time.Duration
	callTimeout    time.Duration
	log            *logrus.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID uint64
}

type callFrame struct {
	ID     uint64      `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

type resultFrame struct {
	ID     uint64          `json:"id"`
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func NewRemote(cfg *config.Store, log *logrus.Logger) *Remote {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Remote{
		url:            cfg.GetString("driver.bridge_url", "ws://127.0.0.1:9707/bridge"),
		connectTimeout: time.Duration(cfg.GetInt("driver.connect_timeout_seconds", 30)) * time.Second,
		callTimeout:    time.Duration(cfg.GetInt("driver.call_timeout_seconds", 60)) * time.Second,
		log:            log,
	}
}

// ensureConn dials the bridge if no connection is live. Callers hold mu.
func (r *Remote) ensureConn(ctx context.Context) error {
	if r.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: r.connectTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	conn, resp, err := dialer.DialContext(ctx, r.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("%w: bridge dial failed: %s", ErrUnavailable, resp.Status)
		}
		return fmt.Errorf("%w: bridge dial failed: %v", ErrUnavailable, err)
	}

	r.log.WithField("url", r.url).Debug("connected to browser bridge")
	r.conn = conn
	return nil
}

func (r *Remote) dropConn() {
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}

func (r *Remote) deadline(ctx context.Context) time.Time {
	deadline := time.Now().Add(r.callTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}

// call performs one request/response exchange. A transport failure closes
// the connection so the next call redials.
func (r *Remote) call(ctx context.Context, method string, params, out interface{}) (err error) {
	if r == nil {
		return ErrUnavailable
	}
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.DriverCallsTotal.WithLabelValues(method, status).Inc()
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.ensureConn(ctx); err != nil {
		return err
	}

	r.nextID++
	req := callFrame{ID: r.nextID, Method: method, Params: params}

	deadline := r.deadline(ctx)
	if err := r.conn.SetWriteDeadline(deadline); err != nil {
		r.dropConn()
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := r.conn.WriteJSON(req); err != nil {
		r.dropConn()
		return fmt.Errorf("%w: bridge write failed: %v", ErrUnavailable, err)
	}

	for {
		if err := r.conn.SetReadDeadline(deadline); err != nil {
			r.dropConn()
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		var res resultFrame
		if err := r.conn.ReadJSON(&res); err != nil {
			r.dropConn()
			return fmt.Errorf("%w: bridge read failed: %v", ErrUnavailable, err)
		}
		if res.ID != req.ID {
			// Stale answer from an abandoned exchange.
			continue
		}

		if !res.OK {
			return fmt.Errorf("driver %s: %s", method, res.Error)
		}
		if out != nil && len(res.Result) > 0 {
			if err := json.Unmarshal(res.Result, out); err != nil {
				return fmt.Errorf("driver %s: decode result: %w", method, err)
			}
		}
		return nil
	}
}

func (r *Remote) callBool(ctx context.Context, method string) (bool, error) {
	var value bool
	if err := r.call(ctx, method, nil, &value); err != nil {
		return false, err
	}
	return value, nil
}

func (r *Remote) IsOnPage(ctx context.Context) (bool, error) {
	return r.callBool(ctx, "isOnPage")
}

func (r *Remote) IsLoggedIn(ctx context.Context) (bool, error) {
	return r.callBool(ctx, "isLoggedIn")
}

func (r *Remote) ConfigureChat(ctx context.Context, settings ChatSettings) error {
	return r.call(ctx, "configureChat", settings, nil)
}

func (r *Remote) SubmitPrompt(ctx context.Context, text string, asFile bool) error {
	params := struct {
		Text   string `json:"text"`
		AsFile bool   `json:"as_file"`
	}{Text: text, AsFile: asFile}
	return r.call(ctx, "submitPrompt", params, nil)
}

func (r *Remote) GenerationInProgress(ctx context.Context) (bool, error) {
	return r.callBool(ctx, "generationInProgress")
}

func (r *Remote) CurrentSnapshot(ctx context.Context) (string, error) {
	var html string
	if err := r.call(ctx, "currentSnapshot", nil, &html); err != nil {
		return "", err
	}
	return html, nil
}

func (r *Remote) FinalSnapshot(ctx context.Context) (string, error) {
	var html string
	if err := r.call(ctx, "finalSnapshot", nil, &html); err != nil {
		return "", err
	}
	return html, nil
}

func (r *Remote) ResetSession(ctx context.Context) error {
	return r.call(ctx, "resetSession", nil, nil)
}

// Close tears the bridge connection down.
func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropConn()
	return nil
}
