package chatango

import (
	"context"
	"fmt"
	"html"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// pmHost is the private-message gateway. PM rides the same framing as the
// group shards, just with a token login instead of bauth.
const pmHost = "c1.chatango.com"

// PMMessage is one private message. PM delivery is single-phase, so there
// is no temp id to reconcile.
type PMMessage struct {
	User  *User
	Time  float64
	Body  string
	Raw   string
	Flags MessageFlags
}

func (m *PMMessage) String() string {
	return fmt.Sprintf("<PMMessage %s %q>", m.User.ShowName(), m.Body)
}

// PM is the private-message gateway connection. It shares the framing,
// event and reconnect machinery with Room but speaks the much smaller PM
// verb vocabulary.
type PM struct {
	log      *logrus.Entry
	registry *Registry
	events   *EventBus
	conn     *connection
	commands map[string]func([]string)

	reconnect atomic.Bool
	denied    atomic.Bool

	mu             sync.Mutex
	self           *User
	timeCorrection float64

	// friends maps watch-list users to their online state.
	friends map[*User]bool
}

// PMOption configures a PM at construction.
type PMOption func(*PM)

// WithPMRegistry points the gateway at a user registry other than the
// process-wide default.
func WithPMRegistry(reg *Registry) PMOption {
	return func(p *PM) { p.registry = reg }
}

// WithPMLogger replaces the gateway's logger.
func WithPMLogger(log *logrus.Entry) PMOption {
	return func(p *PM) { p.log = log }
}

// NewPM returns a disconnected PM gateway.
func NewPM(opts ...PMOption) *PM {
	p := &PM{
		log:      logrus.WithField("room", "<PM>"),
		registry: DefaultRegistry,
		friends:  make(map[*User]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.events = NewEventBus(p.log)
	p.conn = newConnection(p.log, p.dispatch)
	p.commands = p.pmCommandTable()
	return p
}

// IsPM reports whether this endpoint is the PM gateway.
func (p *PM) IsPM() bool { return true }

// Name returns the fixed PM endpoint name.
func (p *PM) Name() string { return "<PM>" }

// Connected reports whether the gateway connection is up.
func (p *PM) Connected() bool { return p.conn.connected() }

// On subscribes fn to a named gateway event.
func (p *PM) On(event string, fn HandlerFunc) { p.events.Subscribe(event, fn) }

// AddListener attaches l to every gateway event.
func (p *PM) AddListener(l Listener) { p.events.AddListener(l) }

// SelfUser returns the authenticated identity; nil before login.
func (p *PM) SelfUser() *User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.self
}

// Friends returns the watch-list users, sorted by name.
func (p *PM) Friends() []*User {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*User, 0, len(p.friends))
	for u := range p.friends {
		out = append(out, u)
	}
	sortUsers(out)
	return out
}

// FriendOnline reports whether user is on the watch list and online.
func (p *PM) FriendOnline(user *User) (online, listed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	online, listed = p.friends[user]
	return online, listed
}

// Connect logs into the gateway. The account credentials are exchanged for
// a session token over HTTP first; a rejected login fails here rather than
// on the socket.
func (p *PM) Connect(ctx context.Context, username, password string) error {
	if p.Connected() {
		return NewAlreadyConnectedError("<PM>")
	}
	token, err := GetToken(ctx, username, password)
	if err != nil {
		return fmt.Errorf("pm token: %w", err)
	}
	if token == "" {
		return fmt.Errorf("pm login rejected for %s", strings.ToLower(username))
	}
	p.mu.Lock()
	p.self = p.registry.User(username)
	p.friends = make(map[*User]bool)
	p.mu.Unlock()
	if err := p.conn.connect(ctx, pmHost); err != nil {
		return err
	}
	p.send("tlogin", token, "2", genUID())
	return nil
}

// Listen logs into the gateway and blocks until the connection closes for
// good, reconnecting every three seconds when reconnect is set.
func (p *PM) Listen(ctx context.Context, username, password string, reconnect bool) error {
	p.reconnect.Store(reconnect)
	for {
		err := p.Connect(ctx, username, password)
		if err == nil {
			p.conn.wait()
		}
		if !p.reconnect.Load() || p.denied.Load() {
			return err
		}
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Disconnect closes the gateway connection and clears the reconnect flag.
func (p *PM) Disconnect() {
	p.reconnect.Store(false)
	p.conn.disconnect()
	p.events.Emit(EventDisconnect, p)
}

func (p *PM) send(args ...string) {
	p.conn.send(EncodeFrame(args...))
}

// SendMessage sends body to the named user, wrapped in the sender's style
// tags. PM bodies use the g-tag style grammar.
func (p *PM) SendMessage(username, body string) {
	body = html.EscapeString(body)
	body = strings.ReplaceAll(body, "\n", "\r")
	styles := NewStyles()
	if self := p.SelfUser(); self != nil {
		styles = self.Styles()
	}
	wrapped := fmt.Sprintf(`<n%s/><m v="1"><g xs0="0"><g x%ss%s="%s">%s</g></g></m>`,
		styles.NameColor(), styles.FontSize(), styles.FontColor(), styles.FontFace(), body)
	p.send("msg", strings.ToLower(username), wrapped)
}

// AddFriend puts username on the watch list.
func (p *PM) AddFriend(username string) {
	p.send("wladd", strings.ToLower(username))
}

// RemoveFriend drops username from the watch list.
func (p *PM) RemoveFriend(username string) {
	p.send("wldelete", strings.ToLower(username))
}

func (p *PM) pmCommandTable() map[string]func([]string) {
	return map[string]func([]string){
		"OK":         p.pmHandleOK,
		"DENIED":     p.pmHandleDenied,
		"time":       p.pmHandleTime,
		"msg":        p.pmHandleMsg,
		"wl":         p.pmHandleWatchList,
		"wlonline":   p.pmHandleFriendOnline,
		"wloffline":  p.pmHandleFriendOffline,
		"status":     p.pmHandleStatus,
		"kickingoff": p.pmHandleKickingOff,
		"toofast":    p.pmHandleTooFast,
	}
}

func (p *PM) dispatch(frame string) {
	verb, args := DecodeFrame(frame)
	handler, ok := p.commands[verb]
	if !ok {
		p.log.WithField("verb", verb).Debug("unknown command")
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			p.log.WithFields(logrus.Fields{
				"verb":  verb,
				"panic": rec,
			}).Error("command handler panicked, frame dropped")
		}
	}()
	handler(args)
}

func (p *PM) pmHandleOK([]string) {
	p.events.Emit(EventConnect, p)
}

// pmHandleDenied reacts to a rejected token: stay down and report the
// login failure.
func (p *PM) pmHandleDenied([]string) {
	p.denied.Store(true)
	p.Disconnect()
	p.events.Emit(EventLoginFail, p)
}

func (p *PM) pmHandleTime(args []string) {
	if len(args) == 0 {
		return
	}
	t, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return
	}
	p.mu.Lock()
	p.timeCorrection = math.Trunc(t - float64(time.Now().UnixNano())/1e9)
	p.mu.Unlock()
}

// pmHandleMsg parses one inbound private message: sender in args[0] (or
// the alias slot), server time in args[3], the ':'-joined raw body from
// position 5 on.
func (p *PM) pmHandleMsg(args []string) {
	if len(args) < 6 {
		return
	}
	name := args[0]
	if name == "" {
		name = args[1]
	}
	name = strings.TrimPrefix(name, "*")
	user := p.registry.User(name)
	msgTime, _ := strconv.ParseFloat(args[3], 64)
	flagBits, _ := strconv.ParseUint(args[4], 10, 64)
	raw := strings.Join(args[5:], ":")
	body, nameColor, fontSpec := cleanMessage(raw, true)
	user.Styles().SetNameColor(nameColor)
	size, color, face := parseFont(strings.TrimSpace(fontSpec))
	user.Styles().SetFontSize(size)
	user.Styles().SetFontColor(color)
	user.Styles().SetFontFace(face)

	p.mu.Lock()
	correction := p.timeCorrection
	p.mu.Unlock()
	msg := &PMMessage{
		User:  user,
		Time:  msgTime - correction,
		Body:  normalizeBody(body),
		Raw:   raw,
		Flags: MessageFlags(flagBits),
	}
	p.events.Emit(EventMessage, msg)
}

// pmHandleWatchList rebuilds the friends table from groups of four fields:
// name, last seen, state, idle minutes.
func (p *PM) pmHandleWatchList(args []string) {
	friends := make(map[*User]bool)
	for i := 0; i+3 < len(args); i += 4 {
		user := p.registry.User(args[i])
		friends[user] = args[i+2] == "on"
	}
	p.mu.Lock()
	p.friends = friends
	p.mu.Unlock()
	names := make([]string, 0, len(friends))
	for u := range friends {
		names = append(names, u.Name())
	}
	sort.Strings(names)
	p.events.Emit(EventFriendList, names)
}

func (p *PM) pmHandleFriendOnline(args []string) {
	if len(args) == 0 {
		return
	}
	user := p.registry.User(args[0])
	p.mu.Lock()
	p.friends[user] = true
	p.mu.Unlock()
	p.events.Emit(EventFriendOnline, user)
}

func (p *PM) pmHandleFriendOffline(args []string) {
	if len(args) == 0 {
		return
	}
	user := p.registry.User(args[0])
	p.mu.Lock()
	p.friends[user] = false
	p.mu.Unlock()
	p.events.Emit(EventFriendOffline, user)
}

// pmHandleStatus folds a status report into the friends table: name,
// time, then "on", "off" or "app".
func (p *PM) pmHandleStatus(args []string) {
	if len(args) < 3 {
		return
	}
	user := p.registry.User(args[0])
	online := args[2] != "off"
	p.mu.Lock()
	_, listed := p.friends[user]
	if listed {
		p.friends[user] = online
	}
	p.mu.Unlock()
}

// pmHandleKickingOff means the account logged in elsewhere; stay down.
func (p *PM) pmHandleKickingOff([]string) {
	p.denied.Store(true)
	p.Disconnect()
}

func (p *PM) pmHandleTooFast([]string) {
	p.events.Emit(EventFloodWarning)
}
