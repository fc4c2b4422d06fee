package chatango

import (
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// Event names emitted by rooms, PM and the client. Payload conventions are
// documented on the handlers that emit them.
const (
	EventConnect            = "connect"
	EventDisconnect         = "disconnect"
	EventMessage            = "message"
	EventJoin               = "join"
	EventLeave              = "leave"
	EventAnonJoin           = "anon_join"
	EventAnonLeave          = "anon_leave"
	EventUserLogin          = "user_login"
	EventUserLogout         = "user_logout"
	EventAnonLogin          = "anon_login"
	EventBan                = "ban"
	EventAnonBan            = "anon_ban"
	EventUnban              = "unban"
	EventAnonUnban          = "anon_unban"
	EventBanlistUpdate      = "banlist_update"
	EventUnbanlistUpdate    = "unbanlist_update"
	EventModAdded           = "mod_added"
	EventModRemove          = "mod_remove"
	EventModsChange         = "mods_change"
	EventModUpdateError     = "mod_update_error"
	EventAnnouncement       = "announcement"
	EventAnnouncementUpdate = "announcement_update"
	EventClearAll           = "clearall"
	EventDeleteMessage      = "delete_message"
	EventDeleteUser         = "delete_user"
	EventFloodWarning       = "flood_warning"
	EventShowTempBan        = "show_temp_ban"
	EventTempBan            = "temp_ban"
	EventGroupFlags         = "group_flags"
	EventRoomDenied         = "room_denied"
	EventProxyBanned        = "proxy_banned"
	EventMessageLenExceeded = "room_message_length_exceeded"
	EventBannedWords        = "banned_words"
	EventBgReload           = "bg_reload"
	EventProfileChanges     = "profile_changes"
	EventProfileReload      = "profile_reload"
	EventPremiumChange      = "premium_change"
	EventLogout             = "logout"
	EventStarted            = "started"
	EventLoginFail          = "login_fail"
	EventFriendList         = "friend_list"
	EventFriendOnline       = "friend_online"
	EventFriendOffline      = "friend_offline"
)

// HandlerFunc receives a fired event's payload.
type HandlerFunc func(args ...interface{})

// Listener receives every event from a bus it is attached to. The Client
// listens on each Room it owns this way.
type Listener interface {
	OnEvent(event string, args ...interface{})
}

// EventBus fans named events out to subscribed handlers and attached
// listeners. Handlers run on their own goroutines; a panicking handler is
// logged and isolated, it never affects the connection or other handlers.
type EventBus struct {
	mu        sync.RWMutex
	handlers  map[string][]HandlerFunc
	listeners []Listener
	log       *logrus.Entry
}

// NewEventBus returns a bus logging through log.
func NewEventBus(log *logrus.Entry) *EventBus {
	return &EventBus{
		handlers: make(map[string][]HandlerFunc),
		log:      log,
	}
}

// Subscribe registers fn for the named event.
func (b *EventBus) Subscribe(event string, fn HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], fn)
}

// AddListener attaches l to every event on the bus.
func (b *EventBus) AddListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Emit fires the named event to all subscribers and listeners. Each
// receiver runs on its own goroutine so a slow or failing handler cannot
// stall frame processing.
func (b *EventBus) Emit(event string, args ...interface{}) {
	b.mu.RLock()
	handlers := b.handlers[event]
	listeners := b.listeners
	b.mu.RUnlock()

	b.log.WithField("event", event).Debug("event")
	for _, fn := range handlers {
		fn := fn
		go func() {
			defer b.recoverHandler(event)
			fn(args...)
		}()
	}
	for _, l := range listeners {
		l := l
		go func() {
			defer b.recoverHandler(event)
			l.OnEvent(event, args...)
		}()
	}
}

// EmitSync fires the named event inline, in subscription order. Used by
// tests that need deterministic delivery.
func (b *EventBus) EmitSync(event string, args ...interface{}) {
	b.mu.RLock()
	handlers := b.handlers[event]
	listeners := b.listeners
	b.mu.RUnlock()

	for _, fn := range handlers {
		func() {
			defer b.recoverHandler(event)
			fn(args...)
		}()
	}
	for _, l := range listeners {
		func() {
			defer b.recoverHandler(event)
			l.OnEvent(event, args...)
		}()
	}
}

func (b *EventBus) recoverHandler(event string) {
	if r := recover(); r != nil {
		b.log.WithFields(logrus.Fields{
			"event": event,
			"panic": r,
			"stack": string(debug.Stack()),
		}).Error("event handler panicked")
	}
}
