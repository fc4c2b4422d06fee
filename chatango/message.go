package chatango

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Message is one room message as observed by this client. A message is
// created by the b/i handlers and mutated only by the reconciler, which
// sets the final id.
type Message struct {
	// ID is the final server-assigned id; empty until reconciled.
	ID string
	// TempID is the provisional id delivered with the b frame.
	TempID string

	Room     *Room
	User     *User
	Time     float64
	IP       string
	PUID     string
	Unid     string
	Body     string
	Raw      string
	Flags    MessageFlags
	Mentions []*User
	Channel  Channel
}

func (m *Message) String() string {
	return fmt.Sprintf("<Message %s %s %q>", m.Room.Name(), m.User.ShowName(), m.Body)
}

// Channel addresses the (room, user) pair a message belongs to.
type Channel struct {
	Room *Room
	User *User
}

// BanRecord is one entry of the room's ban bookkeeping.
type BanRecord struct {
	Unid   string
	IP     string
	Target *User
	Time   float64
	Src    *User
}

// parseMessage builds a Message from the positional payload shared by b
// and i frames: server time, name, temp-name, puid, unid, temp-id, ip,
// flags, then the ':'-joined raw body from position 9 on.
func parseMessage(room *Room, args []string) *Message {
	if len(args) < 9 {
		return nil
	}
	serverTime, _ := strconv.ParseFloat(args[0], 64)
	name, tname, puid, unid, tempID, ip := args[1], args[2], args[3], args[4], args[5], args[6]
	flagBits, _ := strconv.ParseUint(args[7], 10, 64)
	raw := strings.Join(args[9:], ":")

	body, nameColor, fontSpec := cleanMessage(raw, false)
	body = normalizeBody(body)

	isAnon := false
	if name == "" {
		isAnon = true
		if tname != "" {
			name = tname
		} else if nameColor != "" && nameColor != "None" {
			// Anons carry their join timestamp in the n tag.
			name = GetAnonName(nameColor, puid)
		} else {
			name = GetAnonName("", puid)
		}
		nameColor = ""
	}

	user := room.registry.User(name, WithAnon(isAnon), WithIP(ip))
	user.Styles().SetNameColor(nameColor)
	size, color, face := parseFont(strings.TrimSpace(fontSpec))
	user.Styles().SetFontSize(size)
	user.Styles().SetFontColor(color)
	user.Styles().SetFontFace(face)

	msg := &Message{
		TempID:  tempID,
		Room:    room,
		User:    user,
		Time:    serverTime - room.TimeCorrection(),
		IP:      ip,
		PUID:    puid,
		Unid:    unid,
		Body:    body,
		Raw:     raw,
		Flags:   MessageFlags(flagBits),
		Channel: Channel{Room: room, User: user},
	}
	msg.Mentions = mentions(body, room)

	if msg.Flags.Has(MessageBgOn) && msg.Flags.Has(MessagePremium) {
		user.Styles().SetUseBackground(true)
	}

	isPremium := msg.Flags.Has(MessagePremium)
	prev, known := user.IsPremium()
	if !known || prev != isPremium {
		// Only a fresh message proves a live transition.
		recent := msg.Time > float64(time.Now().Unix())-5
		user.setPremium(isPremium)
		if known && recent {
			room.events.Emit(EventPremiumChange, user, isPremium)
		}
	}
	return msg
}
