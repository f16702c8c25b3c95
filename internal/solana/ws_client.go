package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// LogStreamConfig configures stream behavior.
type LogStreamConfig struct {
	// ReconnectDelay is the fixed wait between reconnect attempts.
	ReconnectDelay time.Duration
	// PingInterval is the interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is the inactivity window before the connection is
	// considered dead. Pong replies to our pings extend it, so a quiet
	// subscription stays up as long as the peer answers.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the notification channel capacity.
	Buffer int
}

// DefaultLogStreamConfig returns the default stream configuration.
func DefaultLogStreamConfig() LogStreamConfig {
	return LogStreamConfig{
		ReconnectDelay: 5 * time.Second,
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		Buffer:         10000,
	}
}

// LogStream implements LogSource over gorilla/websocket. One stream holds
// one connection with one logsSubscribe; on any read error it redials after
// a fixed delay and resubscribes.
type LogStream struct {
	endpoint string
	filter   LogsFilter
	config   LogStreamConfig
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	requestID atomic.Uint64

	out  chan LogNotification
	done chan struct{}
	wg   sync.WaitGroup
}

// NewLogStream dials the endpoint, subscribes, and starts the read and ping
// loops.
func NewLogStream(ctx context.Context, endpoint string, filter LogsFilter, config *LogStreamConfig, logger *log.Logger) (*LogStream, error) {
	cfg := DefaultLogStreamConfig()
	if config != nil {
		cfg = *config
	}
	if filter.Commitment == "" {
		filter.Commitment = "finalized"
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &LogStream{
		endpoint: endpoint,
		filter:   filter,
		config:   cfg,
		logger:   logger,
		out:      make(chan LogNotification, cfg.Buffer),
		done:     make(chan struct{}),
	}

	if err := s.dial(ctx); err != nil {
		return nil, err
	}
	if err := s.subscribe(); err != nil {
		s.connMu.Lock()
		s.conn.Close()
		s.connMu.Unlock()
		return nil, err
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()

	return s, nil
}

// Compile-time interface check.
var _ LogSource = (*LogStream)(nil)

// Notifications returns the stream channel.
func (s *LogStream) Notifications() <-chan LogNotification {
	return s.out
}

// Close tears down the connection and closes the notification channel.
func (s *LogStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.out)
	return nil
}

// dial establishes the WebSocket connection.
func (s *LogStream) dial(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	})

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()
	return nil
}

// subscribe sends the logsSubscribe request. Confirmation arrives on the
// read path; a fresh connection carries no other traffic before it.
func (s *LogStream) subscribe() error {
	req := wsRequest{
		JSONRPC: "2.0",
		ID:      s.requestID.Add(1),
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{s.filter.Mention}},
			map[string]string{"commitment": s.filter.Commitment},
		},
	}

	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn == nil {
		return fmt.Errorf("not connected")
	}

	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// readLoop reads messages and dispatches notifications, reconnecting after
// the fixed delay on any read error.
func (s *LogStream) readLoop() {
	defer s.wg.Done()

	for !s.closed.Load() {
		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if !s.reconnect() {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.logger.Printf("[ws] read %s: %v, reconnecting in %s", s.filter.Mention, err, s.config.ReconnectDelay)
			if !s.reconnect() {
				return
			}
			continue
		}

		s.handleMessage(message)
	}
}

// reconnect waits the fixed delay, redials, and resubscribes. Returns false
// when the stream was closed while waiting.
func (s *LogStream) reconnect() bool {
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connMu.Unlock()

	for !s.closed.Load() {
		select {
		case <-s.done:
			return false
		case <-time.After(s.config.ReconnectDelay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := s.dial(ctx)
		cancel()
		if err != nil {
			s.logger.Printf("[ws] redial %s: %v", s.filter.Mention, err)
			continue
		}

		if err := s.subscribe(); err != nil {
			s.logger.Printf("[ws] resubscribe %s: %v", s.filter.Mention, err)
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.Close()
				s.conn = nil
			}
			s.connMu.Unlock()
			continue
		}

		return true
	}
	return false
}

// handleMessage processes one incoming WebSocket message.
func (s *LogStream) handleMessage(message []byte) {
	var notif wsNotification
	if err := json.Unmarshal(message, &notif); err == nil && notif.Method == "logsNotification" {
		s.dispatch(&notif)
		return
	}

	var errResp struct {
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(message, &errResp); err == nil && errResp.Error != nil {
		s.logger.Printf("[ws] error response: code=%d msg=%s", errResp.Error.Code, errResp.Error.Message)
	}
	// Subscription confirmations and other control frames are ignored.
}

// dispatch forwards one notification. The send blocks rather than drop; the
// buffer absorbs bursts.
func (s *LogStream) dispatch(notif *wsNotification) {
	if notif.Params == nil {
		return
	}

	value := notif.Params.Result.Value
	out := LogNotification{
		Signature: value.Signature,
		Logs:      value.Logs,
		Err:       value.Err,
		Program:   value.ProgramID,
	}
	if out.Program == "" {
		out.Program = s.filter.Mention
	}
	if notif.Params.Result.Context != nil {
		out.Slot = notif.Params.Result.Context.Slot
	}

	select {
	case s.out <- out:
	case <-s.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *LogStream) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				// A dead connection surfaces on the read path.
				s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.connMu.Unlock()
		}
	}
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type wsNotification struct {
	JSONRPC string                `json:"jsonrpc"`
	Method  string                `json:"method"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription int64                `json:"subscription"`
	Result       wsNotificationResult `json:"result"`
}

type wsNotificationResult struct {
	Context *wsContext  `json:"context"`
	Value   wsLogsValue `json:"value"`
}

type wsContext struct {
	Slot int64 `json:"slot"`
}

type wsLogsValue struct {
	Signature string      `json:"signature"`
	Logs      []string    `json:"logs"`
	Err       interface{} `json:"err"`
	ProgramID string      `json:"programId"`
}
