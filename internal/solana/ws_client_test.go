package solana

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogStream_PongKeepsQuietConnectionAlive(t *testing.T) {
	var dials atomic.Int32
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		dials.Add(1)
		defer conn.Close()

		// After a silence longer than the client's read timeout, prove the
		// connection is still usable.
		go func() {
			time.Sleep(500 * time.Millisecond)
			conn.WriteJSON(map[string]interface{}{
				"jsonrpc": "2.0",
				"method":  "logsNotification",
				"params": map[string]interface{}{
					"subscription": 1,
					"result": map[string]interface{}{
						"context": map[string]interface{}{"slot": 42},
						"value":   map[string]interface{}{"signature": "sig-1"},
					},
				},
			})
		}()

		// Reading drives the default ping handler, which answers with pongs.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	cfg := LogStreamConfig{
		ReconnectDelay: 50 * time.Millisecond,
		PingInterval:   50 * time.Millisecond,
		ReadTimeout:    200 * time.Millisecond,
		WriteTimeout:   time.Second,
		Buffer:         16,
	}
	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")

	stream, err := NewLogStream(context.Background(), endpoint, LogsFilter{Mention: "prog"}, &cfg, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	defer stream.Close()

	select {
	case n := <-stream.Notifications():
		assert.Equal(t, "sig-1", n.Signature)
		assert.Equal(t, int64(42), n.Slot)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification before timeout")
	}

	// Pongs kept the read deadline fresh; no reconnect happened.
	assert.Equal(t, int32(1), dials.Load())
}
