package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait   = 10 * time.Second
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = wsPongWait * 9 / 10
	wsReadLimit   = 4 << 10
	wsMinInterval = 50 * time.Millisecond
	wsMaxInterval = 10 * time.Second
	wsDefInterval = time.Second

	msgState = "state"
	msgError = "error"
)

// stateMessage is one frame of the /ws stream.
type stateMessage struct {
	Type  string      `json:"type"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamInterval reads the refresh period from ?interval=2s or
// ?interval_ms=2000. Out-of-range or malformed values fall back to the default.
func streamInterval(c *gin.Context) time.Duration {
	inRange := func(d time.Duration) bool { return d >= wsMinInterval && d <= wsMaxInterval }
	if d, err := time.ParseDuration(c.Query("interval")); err == nil && inRange(d) {
		return d
	}
	if ms, err := strconv.Atoi(c.Query("interval_ms")); err == nil && inRange(time.Duration(ms)*time.Millisecond) {
		return time.Duration(ms) * time.Millisecond
	}
	return wsDefInterval
}

// stateStream pushes the heatpump state to one websocket client: once on
// connect, on every state change and on each refresh tick.
type stateStream struct {
	h        *Handler
	conn     *websocket.Conn
	changes  <-chan struct{}
	interval time.Duration
}

// @Summary      Live heatpump state
// @Description  Websocket stream of {"type":"state","data":HeatpumpState}. Pushed on every change and every interval (default 1s, 50ms..10s).
// @Tags         heatpump
// @Param        interval     query  string  false  "Refresh period as a Go duration"  example(2s)
// @Param        interval_ms  query  int     false  "Refresh period in milliseconds"
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	interval := streamInterval(c)

	var changes <-chan struct{}
	if h.services.Watcher != nil {
		ch, release := h.services.Subscribe()
		defer release()
		changes = ch
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "remote", c.ClientIP(), "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	h.log.Debugw("ws_client_connected", "remote", c.ClientIP(), "interval", interval)
	s := &stateStream{h: h, conn: conn, changes: changes, interval: interval}
	s.run(c.Request.Context())
	h.log.Debugw("ws_client_disconnected", "remote", c.ClientIP())
}

func (s *stateStream) run(ctx context.Context) {
	s.conn.SetReadLimit(wsReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	closed := make(chan struct{})
	go s.drain(closed)

	st, err := s.h.services.Monitoring.GetState(ctx)
	if err != nil {
		s.h.log.Errorw("ws_initial_state_failed", "err", err)
		return
	}
	if err := s.write(stateMessage{Type: msgState, Data: st}); err != nil {
		s.h.log.Infow("ws_write_failed", "err", err)
		return
	}

	refresh := time.NewTicker(s.interval)
	defer refresh.Stop()
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		var err error
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			err = s.conn.WriteMessage(websocket.PingMessage, nil)
		case <-s.changes:
			err = s.push(ctx)
			refresh.Reset(s.interval)
		case <-refresh.C:
			err = s.push(ctx)
		}
		if err != nil {
			s.h.log.Infow("ws_write_failed", "err", err)
			return
		}
	}
}

// push sends the current state, or an error frame when it cannot be loaded.
func (s *stateStream) push(ctx context.Context) error {
	st, err := s.h.services.Monitoring.GetState(ctx)
	if err != nil {
		s.h.log.Errorw("ws_get_state_failed", "err", err)
		return s.write(stateMessage{Type: msgError, Error: errGetState})
	}
	return s.write(stateMessage{Type: msgState, Data: st})
}

func (s *stateStream) write(m stateMessage) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteJSON(m)
}

// drain reads until the client goes away so control frames are processed.
func (s *stateStream) drain(closed chan<- struct{}) {
	defer close(closed)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
