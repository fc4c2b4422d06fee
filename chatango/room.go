package chatango

import (
	"context"
	"fmt"
	"html"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// historyCap bounds the message history; eviction is from the front.
	historyCap = 2900

	// participantHistoryCap bounds the recent-departures log.
	participantHistoryCap = 10

	// unbanQueueCap bounds the unban log.
	unbanQueueCap = 500

	// defaultMaxMessageLen is the room message length before splitting.
	defaultMaxMessageLen = 2800

	// backfillLowWater triggers a get_more request after deletes.
	backfillLowWater = 20
)

var roomNameRe = regexp.MustCompile(`^[a-z0-9-]{1,20}$`)

// ValidateRoomName checks a room name against the accepted pattern.
func ValidateRoomName(name string) error {
	if !roomNameRe.MatchString(name) {
		return NewInvalidRoomNameError(name)
	}
	return nil
}

// participantRecord pairs a roster session with its join timestamp.
type participantRecord struct {
	contime string
	user    *User
}

// departure is one entry of the recent-departures log.
type departure struct {
	contime string
	user    *User
}

// announcement is the room's periodic broadcast setting.
type announcement struct {
	enabled bool
	period  int
	body    string
}

// RoomOption configures a Room at construction.
type RoomOption func(*Room)

// WithRegistry points the room at a user registry other than the
// process-wide default. Tests use this for isolation.
func WithRegistry(reg *Registry) RoomOption {
	return func(r *Room) { r.registry = reg }
}

// WithLogger replaces the room's logger.
func WithLogger(log *logrus.Entry) RoomOption {
	return func(r *Room) { r.log = log }
}

// Room is one Chatango group connection with its authoritative in-memory
// state: roster, message history, moderator map and ban tables. All state
// mutation happens on the receive goroutine, in frame arrival order.
type Room struct {
	name     string
	server   string
	uid      string
	log      *logrus.Entry
	registry *Registry
	events   *EventBus
	conn     *connection
	commands map[string]func([]string)

	reconnect atomic.Bool
	denied    atomic.Bool

	username string
	password string

	mu             sync.Mutex
	owner          *User
	self           *User
	puid           string
	loginAs        string
	currentName    string
	currentIP      string
	timeCorrection float64
	flags          RoomFlags
	mods           map[*User]ModeratorFlags
	participants   map[string]participantRecord
	departures     []departure
	history        []*Message
	messagesByID   map[string]*Message
	mqueue         map[string]*Message
	uqueue         map[string]string
	banList        map[*User]BanRecord
	unbanQueue     []BanRecord
	announcement   announcement
	userCount      int
	maxLen         int
	bgMode         int
	noMore         bool
	silent         bool
	badge          int
	messageFlags   MessageFlags
	rateLimit      int
	bannedPart     string
	bannedWhole    string
}

// NewRoom validates name, resolves the shard server and returns a
// disconnected Room.
func NewRoom(name string, opts ...RoomOption) (*Room, error) {
	if err := ValidateRoomName(name); err != nil {
		return nil, err
	}
	r := &Room{
		name:     name,
		server:   GetServer(name),
		uid:      genUID(),
		log:      logrus.WithField("room", name),
		registry: DefaultRegistry,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.events = NewEventBus(r.log)
	r.conn = newConnection(r.log, r.dispatch)
	r.commands = r.commandTable()
	r.resetState()
	return r, nil
}

// resetState reinitializes per-session state. Roster and queues do not
// survive a reconnect; half-paired reconciler entries are dropped rather
// than delivered with a synthetic id.
func (r *Room) resetState() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mods = make(map[*User]ModeratorFlags)
	r.participants = make(map[string]participantRecord)
	r.mqueue = make(map[string]*Message)
	r.uqueue = make(map[string]string)
	r.banList = make(map[*User]BanRecord)
	if r.messagesByID == nil {
		r.messagesByID = make(map[string]*Message)
	}
	r.maxLen = defaultMaxMessageLen
	r.noMore = false
}

func (r *Room) String() string {
	return fmt.Sprintf("<Room %s>", r.name)
}

// Name returns the room's lowercase name.
func (r *Room) Name() string { return r.name }

// Server returns the shard hostname resolved at construction.
func (r *Room) Server() string { return r.server }

// IsPM reports whether this endpoint is the PM gateway.
func (r *Room) IsPM() bool { return false }

// Connected reports whether the room's connection is up.
func (r *Room) Connected() bool { return r.conn.connected() }

// On subscribes fn to a named room event.
func (r *Room) On(event string, fn HandlerFunc) { r.events.Subscribe(event, fn) }

// AddListener attaches l to every room event.
func (r *Room) AddListener(l Listener) { r.events.AddListener(l) }

// Connect dials the room's shard and authenticates. The credentials may be
// empty for an anonymous session.
func (r *Room) Connect(ctx context.Context, username, password string) error {
	if r.Connected() {
		return NewAlreadyConnectedError(r.name)
	}
	r.username, r.password = username, password
	r.resetState()
	if err := r.conn.connect(ctx, r.server); err != nil {
		return err
	}
	r.send("bauth", r.name, r.uid, username, password)
	return nil
}

// Listen joins the room and blocks until the connection closes for good.
// With reconnect set, dropped connections are retried every three seconds
// until the flag is cleared, the room is denied, or ctx is cancelled.
func (r *Room) Listen(ctx context.Context, username, password string, reconnect bool) error {
	r.reconnect.Store(reconnect)
	for {
		err := r.Connect(ctx, username, password)
		if err == nil {
			r.conn.wait()
		}
		if !r.reconnect.Load() || r.denied.Load() {
			return err
		}
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Disconnect closes the connection and clears the reconnect flag so the
// listen loop exits.
func (r *Room) Disconnect() {
	for _, u := range r.AllUserList() {
		u.RemoveSessionID(r, "")
	}
	r.reconnect.Store(false)
	r.conn.disconnect()
	r.events.Emit(EventDisconnect, r)
}

// Bounce drops the connection but leaves the reconnect flag alone, so a
// listening room comes back.
func (r *Room) Bounce() { r.conn.disconnect() }

// send frames and writes one command. A no-op while disconnected.
func (r *Room) send(args ...string) {
	r.conn.send(EncodeFrame(args...))
}

// Login upgrades an anonymous connection to an account session.
func (r *Room) Login(username, password string) {
	r.mu.Lock()
	r.self = r.registry.User(username, WithAnon(password == ""))
	r.mu.Unlock()
	r.send("blogin", username, password)
}

// Logout downgrades the session back to anonymous.
func (r *Room) Logout() { r.send("blogout") }

// SelfUser returns the identity this connection is authenticated as; nil
// before the ok frame.
func (r *Room) SelfUser() *User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.self
}

// Owner returns the room owner; nil until the ok frame.
func (r *Room) Owner() *User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner
}

// Flags returns the room feature bitset.
func (r *Room) Flags() RoomFlags {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flags
}

// TimeCorrection returns the server-to-local clock offset established by
// the ok frame.
func (r *Room) TimeCorrection() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timeCorrection
}

// Mods returns the current moderators.
func (r *Room) Mods() []*User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*User, 0, len(r.mods))
	for u := range r.mods {
		out = append(out, u)
	}
	sortUsers(out)
	return out
}

// ModFlags returns the capability bitset for user and whether user is a
// moderator at all.
func (r *Room) ModFlags(user *User) (ModeratorFlags, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.mods[user]
	return f, ok
}

// GetLevel returns the access level of user: 3 owner, 2 admin, 1 mod,
// 0 everyone else.
func (r *Room) GetLevel(user *User) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user == nil {
		return 0
	}
	if user == r.owner {
		return 3
	}
	if f, ok := r.mods[user]; ok {
		if f.IsAdmin() {
			return 2
		}
		return 1
	}
	return 0
}

// UserList returns the unique non-anonymous roster, sorted by name.
func (r *Room) UserList() []*User {
	return r.userList(false)
}

// AllUserList returns the unique roster including anons, sorted by name.
func (r *Room) AllUserList() []*User {
	return r.userList(true)
}

func (r *Room) userList(anons bool) []*User {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[*User]bool{}
	var out []*User
	for _, rec := range r.participants {
		if !anons && rec.user.IsAnon() {
			continue
		}
		if !seen[rec.user] {
			seen[rec.user] = true
			out = append(out, rec.user)
		}
	}
	sortUsers(out)
	return out
}

// AnonList returns the anonymous users currently on the roster.
func (r *Room) AnonList() []*User {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[*User]bool{}
	var out []*User
	for _, rec := range r.participants {
		if rec.user.IsAnon() && !seen[rec.user] {
			seen[rec.user] = true
			out = append(out, rec.user)
		}
	}
	sortUsers(out)
	return out
}

// UserCount returns the server-reported count, or the roster length when
// the room runs without a counter.
func (r *Room) UserCount() int {
	r.mu.Lock()
	noCounter := r.flags.Has(RoomNoCounter)
	count := r.userCount
	r.mu.Unlock()
	if noCounter {
		return len(r.AllUserList())
	}
	return count
}

// History returns a copy of the message history, oldest first.
func (r *Room) History() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Message, len(r.history))
	copy(out, r.history)
	return out
}

// GetMessage returns the history message with the given final id.
func (r *Room) GetMessage(id string) *Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.messagesByID[id]
}

// GetLastMessage returns the most recent history message, optionally
// restricted to one user name. Nil when there is none.
func (r *Room) GetLastMessage(username string) *Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if username == "" {
		if len(r.history) == 0 {
			return nil
		}
		return r.history[len(r.history)-1]
	}
	username = strings.ToLower(username)
	for i := len(r.history) - 1; i >= 0; i-- {
		if r.history[i].User.Name() == username {
			return r.history[i]
		}
	}
	return nil
}

// BanList returns the currently banned users.
func (r *Room) BanList() []*User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*User, 0, len(r.banList))
	for u := range r.banList {
		out = append(out, u)
	}
	sortUsers(out)
	return out
}

// BanRecordFor returns the ban record for user, if banned.
func (r *Room) BanRecordFor(user *User) (BanRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.banList[user]
	return rec, ok
}

// UnbanList returns the distinct user names in the unban log.
func (r *Room) UnbanList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, rec := range r.unbanQueue {
		name := rec.Target.Name()
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// Departures returns the recent-departures log, oldest first.
func (r *Room) Departures() []*User {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*User, len(r.departures))
	for i, d := range r.departures {
		out[i] = d.user
	}
	return out
}

// Announcement returns the room announcement: enabled flag, period in
// seconds and body.
func (r *Room) Announcement() (bool, int, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.announcement.enabled, r.announcement.period, r.announcement.body
}

// BannedWords returns the part-match and whole-match banned word lists.
func (r *Room) BannedWords() (part, whole string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bannedPart, r.bannedWhole
}

// RateLimit returns the server-reported message rate limit in seconds.
func (r *Room) RateLimit() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rateLimit
}

// SetSilent stops SendMessage from writing anything while set.
func (r *Room) SetSilent(silent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.silent = silent
}

// SetBadge selects the icon badge sent with messages: 0 none, 1 mod,
// 2 staff.
func (r *Room) SetBadge(badge int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badge = badge
}

func (r *Room) badgeFlags() MessageFlags {
	switch r.badge {
	case 1:
		return MessageShowModIcon
	case 2:
		return MessageShowStaffIcon
	default:
		return 0
	}
}

// SendMessage sends body to the room, wrapped in the sender's style tags
// and split into multiple frames when it exceeds the room limit. With
// useHTML false the body is escaped and sent verbatim.
func (r *Room) SendMessage(body string, useHTML bool) {
	r.mu.Lock()
	silent := r.silent
	self := r.self
	flags := r.messageFlags | r.badgeFlags()
	maxLen := r.maxLen
	r.mu.Unlock()
	if silent {
		return
	}
	if !useHTML {
		body = html.EscapeString(body)
		body = strings.ReplaceAll(body, "\n", "\r")
		body = strings.ReplaceAll(body, "~", "&#126;")
	}
	styles := NewStyles()
	if self != nil {
		styles = self.Styles()
	}
	for _, chunk := range messageCut(body, maxLen) {
		wrapped := fmt.Sprintf(`<n%s/><f x%s%s="%s">%s</f>`,
			styles.NameColor(), styles.FontSize(), styles.FontColor(), styles.FontFace(), chunk)
		r.send("bm", genMessageID(), strconv.FormatUint(uint64(flags), 10), wrapped)
	}
}

// SetFont updates the self user's message styling. Empty arguments keep
// their current value.
func (r *Room) SetFont(nameColor, fontColor, fontSize, fontFace string) {
	r.mu.Lock()
	self := r.self
	r.mu.Unlock()
	if self == nil {
		return
	}
	self.Styles().SetNameColor(nameColor)
	self.Styles().SetFontColor(fontColor)
	self.Styles().SetFontSize(fontSize)
	self.Styles().SetFontFace(fontFace)
}

// EnableBg turns the message background on for premium sessions.
func (r *Room) EnableBg() { r.setBgMode(1) }

// DisableBg turns the message background off.
func (r *Room) DisableBg() { r.setBgMode(0) }

func (r *Room) setBgMode(mode int) {
	r.mu.Lock()
	r.bgMode = mode
	self := r.self
	r.mu.Unlock()
	if r.Connected() {
		r.send("getpremium", "l")
		if self != nil {
			if premium, _ := self.IsPremium(); premium {
				r.send("msgbg", strconv.Itoa(mode))
			}
		}
	}
}

// BanMessage bans the author of msg. Requires mod privileges.
func (r *Room) BanMessage(msg *Message) bool {
	if r.GetLevel(r.SelfUser()) == 0 {
		return false
	}
	name := ""
	if !msg.User.IsAnon() {
		name = msg.User.Name()
	}
	r.send("block", msg.Unid, msg.IP, name)
	return true
}

// BanUser bans username based on their last message in the history.
func (r *Room) BanUser(username string) bool {
	msg := r.GetLastMessage(username)
	if msg == nil {
		return false
	}
	if _, banned := r.BanRecordFor(msg.User); banned {
		return false
	}
	return r.BanMessage(msg)
}

// UnbanUser lifts the ban on user, if one is recorded.
func (r *Room) UnbanUser(user *User) bool {
	rec, ok := r.BanRecordFor(user)
	if !ok {
		return false
	}
	name := ""
	if rec.Target != nil && !rec.Target.IsAnon() {
		name = rec.Target.Name()
	}
	r.send("removeblock", rec.Unid, rec.IP, name)
	return true
}

// DeleteMessage deletes one reconciled message. Requires mod privileges.
func (r *Room) DeleteMessage(msg *Message) bool {
	if r.GetLevel(r.SelfUser()) == 0 || msg.ID == "" {
		return false
	}
	r.send("delmsg", msg.ID)
	return true
}

// DeleteUser deletes username's last message.
func (r *Room) DeleteUser(username string) bool {
	msg := r.GetLastMessage(username)
	if msg == nil {
		return false
	}
	return r.DeleteMessage(msg)
}

// ClearUser deletes all of username's messages. Requires mod privileges.
func (r *Room) ClearUser(username string) bool {
	if r.GetLevel(r.SelfUser()) == 0 {
		return false
	}
	msg := r.GetLastMessage(username)
	if msg == nil {
		return false
	}
	name := ""
	if !msg.User.IsAnon() {
		name = msg.User.Name()
	}
	r.send("delallmsg", msg.Unid, msg.IP, name)
	return true
}

// ClearAll deletes every message. Requires the edit-group capability or
// ownership.
func (r *Room) ClearAll() bool {
	r.mu.Lock()
	self := r.self
	flags, isMod := r.mods[self]
	owner := r.owner
	r.mu.Unlock()
	if (isMod && flags.Has(ModEditGroup)) || (self != nil && self == owner) {
		r.send("clearall")
		return true
	}
	return false
}

// SetBannedWords replaces the room's banned-word lists. Requires the
// edit-banned-words capability.
func (r *Room) SetBannedWords(part, whole string) bool {
	self := r.SelfUser()
	flags, ok := r.ModFlags(self)
	if !ok || !flags.Has(ModEditBW) {
		return false
	}
	r.send("setbannedwords", url.QueryEscape(part), url.QueryEscape(whole))
	return true
}

// RequestBanlist asks the server for the current ban list.
func (r *Room) RequestBanlist() {
	r.send("blocklist", "block", r.correctedNow(), "next", "500", "anons", "1")
}

// RequestUnbanlist asks the server for the recent unban log.
func (r *Room) RequestUnbanlist() {
	r.send("blocklist", "unblock", r.correctedNow(), "next", "500", "anons", "1")
}

// correctedNow is the local clock shifted onto the server's.
func (r *Room) correctedNow() string {
	return strconv.FormatInt(time.Now().Unix()+int64(r.TimeCorrection()), 10)
}

// reload requests the room's state after inited: roster, premium,
// announcement, banned words, rate limit and ban bookkeeping.
func (r *Room) reload() {
	r.mu.Lock()
	count := r.userCount
	self := r.self
	r.mu.Unlock()
	if count <= 1000 {
		r.send("g_participants:start")
	} else {
		r.send("gparticipants:start")
	}
	r.send("getpremium", "l")
	r.send("getannouncement")
	r.send("getbannedwords")
	r.send("getratelimit")
	r.RequestBanlist()
	r.RequestUnbanlist()
	if self != nil {
		if premium, _ := self.IsPremium(); premium {
			go r.styleInit(self)
		}
	}
}

// styleInit fetches the self user's style and profile documents, or resets
// anon styling to the defaults.
func (r *Room) styleInit(user *User) {
	if user.IsAnon() {
		r.SetFont("000000", "000000", "11", "1")
		return
	}
	if premium, _ := user.IsPremium(); premium {
		if err := FetchStyles(context.Background(), user); err != nil {
			r.log.WithError(err).Debug("styles fetch failed")
		}
	}
	if err := FetchProfile(context.Background(), user); err != nil {
		r.log.WithError(err).Debug("profile fetch failed")
	}
}

// addHistory appends a reconciled message, evicting from the front at
// capacity. The id index tracks history membership exactly.
func (r *Room) addHistory(msg *Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == historyCap {
		evicted := r.history[0]
		r.history = r.history[1:]
		delete(r.messagesByID, evicted.ID)
	}
	r.history = append(r.history, msg)
	r.messagesByID[msg.ID] = msg
}

// addHistoryFront prepends a backfill message unless the history is full.
func (r *Room) addHistoryFront(msg *Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) >= historyCap {
		return
	}
	r.history = append([]*Message{msg}, r.history...)
	r.messagesByID[msg.ID] = msg
}

// removeHistory drops the message with the given final id, returning it.
func (r *Room) removeHistory(id string) *Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messagesByID[id]
	if !ok {
		return nil
	}
	delete(r.messagesByID, id)
	for i, m := range r.history {
		if m == msg {
			r.history = append(r.history[:i], r.history[i+1:]...)
			break
		}
	}
	return msg
}

// setTimeCorrection fixes the clock offset once per session.
func (r *Room) setTimeCorrection(connTime string) {
	t, err := strconv.ParseFloat(connTime, 64)
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.timeCorrection = math.Trunc(t - float64(time.Now().UnixNano())/1e9)
}

func sortUsers(users []*User) {
	sort.Slice(users, func(i, j int) bool {
		return users[i].Name() < users[j].Name()
	})
}
