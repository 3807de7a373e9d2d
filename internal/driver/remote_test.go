package driver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intenserp-api/internal/config"
)

type bridgeHandler func(method string, params json.RawMessage) (interface{}, string)

func startBridge(t *testing.T, handle bridgeHandler) *Remote {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req struct {
				ID     uint64          `json:"id"`
				Method string          `json:"method"`
				Params json.RawMessage `json:"params"`
			}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}

			result, errMsg := handle(req.Method, req.Params)
			res := map[string]interface{}{"id": req.ID, "ok": errMsg == ""}
			if errMsg != "" {
				res["error"] = errMsg
			} else if result != nil {
				res["result"] = result
			}
			if err := conn.WriteJSON(res); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	v := viper.New()
	v.Set("driver.bridge_url", "ws"+strings.TrimPrefix(srv.URL, "http"))
	remote := NewRemote(config.NewFromViper(v), nil)
	t.Cleanup(func() { _ = remote.Close() })
	return remote
}

func TestRemoteBoolCalls(t *testing.T) {
	remote := startBridge(t, func(method string, _ json.RawMessage) (interface{}, string) {
		switch method {
		case "isOnPage", "generationInProgress":
			return true, ""
		default:
			return false, ""
		}
	})

	onPage, err := remote.IsOnPage(context.Background())
	require.NoError(t, err)
	assert.True(t, onPage)

	loggedIn, err := remote.IsLoggedIn(context.Background())
	require.NoError(t, err)
	assert.False(t, loggedIn)

	inProgress, err := remote.GenerationInProgress(context.Background())
	require.NoError(t, err)
	assert.True(t, inProgress)
}

func TestRemoteSnapshots(t *testing.T) {
	remote := startBridge(t, func(method string, _ json.RawMessage) (interface{}, string) {
		switch method {
		case "currentSnapshot":
			return "<p>partial</p>", ""
		case "finalSnapshot":
			return "<p>done</p>", ""
		}
		return nil, "unexpected method"
	})

	current, err := remote.CurrentSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<p>partial</p>", current)

	final, err := remote.FinalSnapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<p>done</p>", final)
}

func TestRemoteSubmitPromptParams(t *testing.T) {
	var got struct {
		Text   string `json:"text"`
		AsFile bool   `json:"as_file"`
	}
	remote := startBridge(t, func(method string, params json.RawMessage) (interface{}, string) {
		if method != "submitPrompt" {
			return nil, "unexpected method"
		}
		if err := json.Unmarshal(params, &got); err != nil {
			return nil, err.Error()
		}
		return nil, ""
	})

	require.NoError(t, remote.SubmitPrompt(context.Background(), "hello", true))
	assert.Equal(t, "hello", got.Text)
	assert.True(t, got.AsFile)
}

func TestRemoteConfigureChat(t *testing.T) {
	var got ChatSettings
	remote := startBridge(t, func(method string, params json.RawMessage) (interface{}, string) {
		if method != "configureChat" {
			return nil, "unexpected method"
		}
		if err := json.Unmarshal(params, &got); err != nil {
			return nil, err.Error()
		}
		return nil, ""
	})

	require.NoError(t, remote.ConfigureChat(context.Background(), ChatSettings{Deepthink: true}))
	assert.True(t, got.Deepthink)
	assert.False(t, got.Search)
}

func TestRemoteMethodError(t *testing.T) {
	remote := startBridge(t, func(string, json.RawMessage) (interface{}, string) {
		return nil, "page not ready"
	})

	err := remote.ResetSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page not ready")
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestRemoteDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	v := viper.New()
	v.Set("driver.bridge_url", url)
	v.Set("driver.connect_timeout_seconds", 1)
	remote := NewRemote(config.NewFromViper(v), nil)

	_, err := remote.IsOnPage(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}
