package chatango

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Registry interns User records by lowercase name. The protocol streams the
// same user through many contexts (roster, message, ban) and identity
// comparisons must hold across all of them, so one name maps to exactly one
// *User for the registry's lifetime. The package keeps a process-wide
// default; tests construct their own.
type Registry struct {
	mu    sync.Mutex
	users map[string]*User
}

// NewRegistry returns an empty user registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]*User)}
}

// DefaultRegistry is the process-wide registry used when a Client or Room
// is not given one explicitly.
var DefaultRegistry = NewRegistry()

// UserOption mutates a user record during lookup. Options never clobber a
// known value with an empty one.
type UserOption func(*User)

// WithIP records the user's IP when non-empty.
func WithIP(ip string) UserOption {
	return func(u *User) {
		if ip != "" {
			u.ip = ip
		}
	}
}

// WithPUID records the user's persistent id when non-empty.
func WithPUID(puid string) UserOption {
	return func(u *User) {
		if puid != "" {
			u.puid = puid
		}
	}
}

// WithAnon marks the record as anonymous or authenticated.
func WithAnon(anon bool) UserOption {
	return func(u *User) { u.isAnon = anon }
}

// User returns the interned record for name, creating it on first sight and
// merging the supplied options into it either way.
func (r *Registry) User(name string, opts ...UserOption) *User {
	key := strings.ToLower(name)
	r.mu.Lock()
	u, ok := r.users[key]
	if !ok {
		u = &User{
			name:     key,
			showName: name,
			styles:   NewStyles(),
			sessions: make(map[*Room]map[string]struct{}),
		}
		r.users[key] = u
	}
	r.mu.Unlock()

	u.mu.Lock()
	for _, opt := range opts {
		opt(u)
	}
	u.mu.Unlock()
	return u
}

// User is one Chatango identity. Records are process-wide and never
// destroyed; equality is pointer equality, which the registry reduces to
// lowercase-name equality.
type User struct {
	mu       sync.Mutex
	name     string
	showName string
	ip       string
	puid     string
	isAnon   bool

	// isPremium is tri-state: nil until a premium check or message flag
	// reveals it.
	isPremium *bool

	// sessions maps each room to the session ids this user currently holds
	// there. Multi-tab users hold several per room.
	sessions map[*Room]map[string]struct{}

	styles *Styles
}

func (u *User) String() string {
	return fmt.Sprintf("<User name:%s puid:%s ip:%s>", u.ShowName(), u.PUID(), u.IP())
}

// Name returns the lowercase identity name.
func (u *User) Name() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.name
}

// ShowName returns the display-cased name.
func (u *User) ShowName() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.showName
}

// SetName updates the display name; the lowercase identity follows it.
func (u *User) SetName(val string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.showName = val
	u.name = strings.ToLower(val)
}

// IsAnon reports whether the record has no authenticated account.
func (u *User) IsAnon() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.isAnon
}

func (u *User) setAnon(anon bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.isAnon = anon
}

// IP returns the last non-empty IP observed for this user.
func (u *User) IP() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ip
}

// PUID returns the persistent user id, if known.
func (u *User) PUID() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.puid
}

// IsPremium returns the premium state and whether it is known yet.
func (u *User) IsPremium() (premium, known bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.isPremium == nil {
		return false, false
	}
	return *u.isPremium, true
}

func (u *User) setPremium(premium bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.isPremium = &premium
}

// Styles returns the user's style record.
func (u *User) Styles() *Styles {
	return u.styles
}

// AddSessionID records a session id for this user in room.
func (u *User) AddSessionID(room *Room, sid string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.sessions[room] == nil {
		u.sessions[room] = make(map[string]struct{})
	}
	u.sessions[room][sid] = struct{}{}
}

// RemoveSessionID drops a session id for this user in room. An empty sid
// clears every session in the room.
func (u *User) RemoveSessionID(room *Room, sid string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	set, ok := u.sessions[room]
	if !ok {
		return
	}
	if sid == "" {
		delete(u.sessions, room)
		return
	}
	delete(set, sid)
	if len(set) == 0 {
		delete(u.sessions, room)
	}
}

// SessionIDs returns the session ids this user holds in room, sorted.
func (u *User) SessionIDs(room *Room) []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, 0, len(u.sessions[room]))
	for sid := range u.sessions[room] {
		out = append(out, sid)
	}
	sort.Strings(out)
	return out
}

// HasSessionID reports whether sid is recorded for this user in room.
func (u *User) HasSessionID(room *Room, sid string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.sessions[room][sid]
	return ok
}

// profileBase is the host serving user style and profile documents.
const profileBase = "http://ust.chatango.com/profileimg"

// userDir returns the sharded path segment for a user's profile documents.
func (u *User) userDir() string {
	name := u.Name()
	dd := (name + name)[:2]
	return fmt.Sprintf("/%s/%s/%s/", dd[:1], dd[1:2], name)
}

// StylesURL returns the msgstyles.json document URL.
func (u *User) StylesURL() string { return profileBase + u.userDir() + "msgstyles.json" }

// BackgroundURL returns the msgbg.xml document URL.
func (u *User) BackgroundURL() string { return profileBase + u.userDir() + "msgbg.xml" }

// ProfileURL returns the mini-profile (mod1.xml) document URL.
func (u *User) ProfileURL() string { return profileBase + u.userDir() + "mod1.xml" }

// FullProfileURL returns the full-profile (mod2.xml) document URL.
func (u *User) FullProfileURL() string { return profileBase + u.userDir() + "mod2.xml" }

// Styles carries a user's rendering preferences plus the opaque profile
// documents fetched over HTTP. Body parsing of the documents is the
// caller's concern.
type Styles struct {
	mu            sync.Mutex
	nameColor     string
	fontColor     string
	fontFace      string
	fontSize      string
	useBackground bool

	// Raw document bytes as fetched; nil until loaded.
	stylesBlob     []byte
	backgroundBlob []byte
	profileBlob    []byte
}

// NewStyles returns the client-default style record.
func NewStyles() *Styles {
	return &Styles{
		nameColor: "000000",
		fontColor: "000000",
		fontFace:  "0",
		fontSize:  "11",
	}
}

// NameColor returns the name color in hex.
func (s *Styles) NameColor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nameColor
}

// SetNameColor sets the name color when non-empty.
func (s *Styles) SetNameColor(c string) {
	if c == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nameColor = c
}

// FontColor returns the font color in hex.
func (s *Styles) FontColor() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fontColor
}

// SetFontColor sets the font color when non-empty.
func (s *Styles) SetFontColor(c string) {
	if c == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fontColor = c
}

// FontFace returns the font face code.
func (s *Styles) FontFace() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fontFace
}

// SetFontFace sets the font face code when non-empty.
func (s *Styles) SetFontFace(f string) {
	if f == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fontFace = f
}

// FontSize returns the font size.
func (s *Styles) FontSize() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fontSize
}

// SetFontSize sets the font size when non-empty.
func (s *Styles) SetFontSize(v string) {
	if v == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fontSize = v
}

// UseBackground reports whether the message background is enabled.
func (s *Styles) UseBackground() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.useBackground
}

// SetUseBackground toggles the message background.
func (s *Styles) SetUseBackground(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.useBackground = on
}

// SetStylesBlob stores the raw msgstyles.json bytes.
func (s *Styles) SetStylesBlob(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stylesBlob = b
}

// StylesBlob returns the raw msgstyles.json bytes, or nil.
func (s *Styles) StylesBlob() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stylesBlob
}

// SetBackgroundBlob stores the raw msgbg.xml bytes.
func (s *Styles) SetBackgroundBlob(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backgroundBlob = b
}

// BackgroundBlob returns the raw msgbg.xml bytes, or nil.
func (s *Styles) BackgroundBlob() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backgroundBlob
}

// SetProfileBlob stores the raw profile document bytes.
func (s *Styles) SetProfileBlob(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileBlob = b
}

// ProfileBlob returns the raw profile document bytes, or nil.
func (s *Styles) ProfileBlob() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileBlob
}
