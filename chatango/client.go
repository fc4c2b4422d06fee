package chatango

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// connectDeadline bounds how long Run waits for the initial rooms before
// reporting stragglers and declaring the client started.
const connectDeadline = 5 * time.Second

// Client supervises a set of room connections and an optional PM gateway
// under one identity. It listens on every connection it owns and re-emits
// their events on its own bus, so one subscription observes the whole
// session.
type Client struct {
	log      *logrus.Entry
	registry *Registry
	events   *EventBus

	username string
	password string
	usePM    bool

	mu        sync.Mutex
	rooms     map[string]*Room
	pm        *PM
	connected map[string]bool
	cancel    context.CancelFunc

	wg sync.WaitGroup
}

// ClientOption configures a Client at construction.
type ClientOption func(*Client)

// WithPM makes Run log into the PM gateway alongside the rooms.
func WithPM() ClientOption {
	return func(c *Client) { c.usePM = true }
}

// WithClientRegistry points the client and every room it creates at a
// user registry other than the process-wide default.
func WithClientRegistry(reg *Registry) ClientOption {
	return func(c *Client) { c.registry = reg }
}

// WithClientLogger replaces the client's logger.
func WithClientLogger(log *logrus.Entry) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient returns a client for the given account. Credentials may be
// empty for anonymous room sessions; PM requires both.
func NewClient(username, password string, opts ...ClientOption) *Client {
	c := &Client{
		log:       logrus.WithField("client", username),
		registry:  DefaultRegistry,
		username:  username,
		password:  password,
		rooms:     make(map[string]*Room),
		connected: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events = NewEventBus(c.log)
	return c
}

// On subscribes fn to a named event from any connection the client owns.
func (c *Client) On(event string, fn HandlerFunc) { c.events.Subscribe(event, fn) }

// AddListener attaches l to every event from any connection the client
// owns.
func (c *Client) AddListener(l Listener) { c.events.AddListener(l) }

// Room returns the joined room with the given name, or nil.
func (c *Client) Room(name string) *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rooms[name]
}

// Rooms returns every currently joined room.
func (c *Client) Rooms() []*Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Room, 0, len(c.rooms))
	for _, r := range c.rooms {
		out = append(out, r)
	}
	return out
}

// PM returns the gateway connection, or nil when PM is not in use.
func (c *Client) PM() *PM {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pm
}

// Run joins the named rooms plus the PM gateway when enabled, then blocks
// until every connection has shut down or ctx is cancelled. Rooms that do
// not connect within five seconds are logged; the started event fires
// either way.
func (c *Client) Run(ctx context.Context, rooms ...string) error {
	if len(rooms) == 0 && !c.usePM {
		return errors.New("no rooms or pm to join")
	}
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	if c.usePM {
		if err := c.JoinPM(ctx); err != nil {
			cancel()
			return err
		}
	}
	for _, name := range rooms {
		if err := c.JoinRoom(ctx, name); err != nil {
			cancel()
			return err
		}
	}

	go c.confirmConnected(ctx, rooms)

	c.wg.Wait()
	cancel()
	return nil
}

// JoinRoom starts listening on a room. The room reconnects on its own
// until LeaveRoom or Stop.
func (c *Client) JoinRoom(ctx context.Context, name string) error {
	room, err := NewRoom(name, WithRegistry(c.registry))
	if err != nil {
		return err
	}
	c.mu.Lock()
	if _, ok := c.rooms[name]; ok {
		c.mu.Unlock()
		return NewAlreadyConnectedError(name)
	}
	c.rooms[name] = room
	c.mu.Unlock()

	room.AddListener(c)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := room.Listen(ctx, c.username, c.password, true); err != nil && !errors.Is(err, context.Canceled) {
			c.log.WithError(err).Errorf("room %s closed", name)
		}
		c.mu.Lock()
		delete(c.rooms, name)
		c.mu.Unlock()
	}()
	return nil
}

// LeaveRoom disconnects the named room and stops its reconnects.
func (c *Client) LeaveRoom(name string) {
	if room := c.Room(name); room != nil {
		room.Disconnect()
	}
}

// JoinPM starts listening on the PM gateway.
func (c *Client) JoinPM(ctx context.Context) error {
	if c.username == "" || c.password == "" {
		return errors.New("pm requires username and password")
	}
	pm := NewPM(WithPMRegistry(c.registry))
	c.mu.Lock()
	if c.pm != nil {
		c.mu.Unlock()
		return NewAlreadyConnectedError("<PM>")
	}
	c.pm = pm
	c.mu.Unlock()

	pm.AddListener(c)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := pm.Listen(ctx, c.username, c.password, true); err != nil && !errors.Is(err, context.Canceled) {
			c.log.WithError(err).Error("pm closed")
		}
		c.mu.Lock()
		c.pm = nil
		c.mu.Unlock()
	}()
	return nil
}

// LeavePM disconnects the PM gateway.
func (c *Client) LeavePM() {
	if pm := c.PM(); pm != nil {
		pm.Disconnect()
	}
}

// Stop disconnects everything the client owns; Run returns once the
// listeners unwind.
func (c *Client) Stop() {
	c.LeavePM()
	for _, room := range c.Rooms() {
		room.Disconnect()
	}
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// OnEvent receives every event from owned connections, tracks initial
// connects and re-emits on the client bus.
func (c *Client) OnEvent(event string, args ...interface{}) {
	if event == EventConnect && len(args) > 0 {
		if room, ok := args[0].(*Room); ok {
			c.mu.Lock()
			c.connected[room.Name()] = true
			c.mu.Unlock()
		}
	}
	c.events.EmitSync(event, args...)
}

// confirmConnected waits for the initial rooms to connect, logging the
// ones that miss the deadline, then fires started.
func (c *Client) confirmConnected(ctx context.Context, rooms []string) {
	deadline := time.After(connectDeadline)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if c.allConnected(rooms) {
				c.log.Infof("connected to all rooms: %v", rooms)
				c.events.Emit(EventStarted, c)
				return
			}
		case <-deadline:
			var missing []string
			c.mu.Lock()
			for _, name := range rooms {
				if !c.connected[name] {
					missing = append(missing, name)
				}
			}
			c.mu.Unlock()
			c.log.Errorf("failed to connect: %v", missing)
			c.events.Emit(EventStarted, c)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) allConnected(rooms []string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range rooms {
		if !c.connected[name] {
			return false
		}
	}
	return true
}
