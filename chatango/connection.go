package chatango

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// wsPort is the shard servers' WebSocket port.
	wsPort = "8080"

	// wsOrigin must accompany the handshake or the server refuses it.
	wsOrigin = "http://st.chatango.com"

	// pingInterval is the one-way keep-alive cadence. There is no pong.
	pingInterval = 90 * time.Second

	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// reconnectDelay separates listen-loop reconnect attempts.
	reconnectDelay = 3 * time.Second
)

// ConnState is the connection lifecycle state.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateDialing
	StateConnected
	StateClosing
)

func (s ConnState) String() string {
	switch s {
	case StateDialing:
		return "dialing"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "disconnected"
	}
}

// connection owns one WebSocket to a Chatango endpoint: the dial, the
// receive loop, the ping loop and the close. Reconnecting is the owner's
// job, not the connection's.
type connection struct {
	log     *logrus.Entry
	onFrame func(string)

	state atomic.Int32

	// writeMu serializes frame writes; sends are safe from any goroutine.
	writeMu sync.Mutex
	ws      *websocket.Conn

	pingStop chan struct{}
	recvDone chan struct{}
}

func newConnection(log *logrus.Entry, onFrame func(string)) *connection {
	c := &connection{log: log, onFrame: onFrame}
	c.state.Store(int32(StateDisconnected))
	return c
}

// connState returns the current lifecycle state.
func (c *connection) connState() ConnState {
	return ConnState(c.state.Load())
}

// connected reports whether frames can currently be sent.
func (c *connection) connected() bool {
	return c.connState() == StateConnected
}

// connect dials ws://<host>:8080/ with the Chatango origin and starts the
// receive and ping loops. On failure the connection stays Disconnected and
// the error is returned; no retry happens here.
func (c *connection) connect(ctx context.Context, host string) error {
	c.state.Store(int32(StateDialing))
	dialer := websocket.Dialer{HandshakeTimeout: writeWait}
	header := http.Header{"Origin": []string{wsOrigin}}
	ws, _, err := dialer.DialContext(ctx, "ws://"+host+":"+wsPort+"/", header)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		c.log.WithError(err).Errorf("could not connect to %s", host)
		return err
	}

	c.writeMu.Lock()
	c.ws = ws
	c.writeMu.Unlock()
	c.pingStop = make(chan struct{})
	c.recvDone = make(chan struct{})
	c.state.Store(int32(StateConnected))

	go c.recvLoop(ws)
	go c.pingLoop()
	return nil
}

// send writes one already-framed command. A quiet no-op when the
// connection is not up; sends during a reconnect gap are dropped, not
// queued.
func (c *connection) send(frame string) {
	if !c.connected() {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.ws == nil {
		return
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		c.log.WithError(err).Warn("frame write failed")
	}
}

// recvLoop forwards inbound text frames until the transport errors or
// closes, then tears the connection down.
func (c *connection) recvLoop(ws *websocket.Conn) {
	defer close(c.recvDone)
	for {
		kind, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				c.connected() {
				c.log.WithError(err).Warn("transport error")
			}
			break
		}
		if kind != websocket.TextMessage || len(data) == 0 {
			continue
		}
		if !c.connected() {
			break
		}
		c.onFrame(string(data))
	}
	c.teardown()
}

// pingLoop sends the bare keep-alive frame every 90 seconds until stopped.
func (c *connection) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	stop := c.pingStop
	for {
		select {
		case <-ticker.C:
			c.send(pingFrame)
		case <-stop:
			return
		}
	}
}

// disconnect closes the transport; the receive loop observes the close and
// exits on its own. Safe to call from any goroutine, including frame
// handlers running inside the receive loop.
func (c *connection) disconnect() {
	c.teardown()
}

// teardown moves the connection through Closing to Disconnected, stopping
// the ping loop and closing the socket exactly once.
func (c *connection) teardown() {
	state := ConnState(c.state.Swap(int32(StateClosing)))
	if state == StateClosing || state == StateDisconnected {
		c.state.Store(int32(StateDisconnected))
		return
	}
	if c.pingStop != nil {
		close(c.pingStop)
		c.pingStop = nil
	}
	c.writeMu.Lock()
	if c.ws != nil {
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.ws.Close()
		c.ws = nil
	}
	c.writeMu.Unlock()
	c.state.Store(int32(StateDisconnected))
}

// wait blocks until the current receive loop exits. Returns immediately if
// no connection was made.
func (c *connection) wait() {
	if c.recvDone != nil {
		<-c.recvDone
	}
}
