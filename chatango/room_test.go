package chatango

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	r, err := NewRoom("testroom", WithRegistry(NewRegistry()), WithLogger(testLogger()))
	require.NoError(t, err)
	return r
}

func waitEvent[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		panic("unreachable")
	}
}

func assertNoEvent[T any](t *testing.T, ch chan T) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected event: %v", v)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestValidateRoomName(t *testing.T) {
	tests := []struct {
		name    string
		room    string
		wantErr bool
	}{
		{name: "single letter", room: "a"},
		{name: "digits and dashes", room: "room-42"},
		{name: "max length", room: strings.Repeat("a", 20)},
		{name: "empty", room: "", wantErr: true},
		{name: "uppercase", room: "Room", wantErr: true},
		{name: "too long", room: strings.Repeat("a", 21), wantErr: true},
		{name: "underscore", room: "room_x", wantErr: true},
		{name: "dot", room: "room.x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoomName(tt.room)
			if tt.wantErr {
				var invalid *InvalidRoomNameError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tt.room, invalid.RoomName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewRoomResolvesServer(t *testing.T) {
	r := newTestRoom(t)
	assert.Equal(t, GetServer("testroom"), r.Server())
	assert.False(t, r.Connected())
	assert.False(t, r.IsPM())

	_, err := NewRoom("Not Valid!")
	assert.Error(t, err)
}

func TestHandleOKBootstrap(t *testing.T) {
	r := newTestRoom(t)
	connected := make(chan *Room, 1)
	r.On(EventConnect, func(args ...interface{}) { connected <- args[0].(*Room) })

	r.dispatch("ok:ownername:puid123:M:botname:1674000000:1.2.3.4:moda,1;modb,35:9216")

	assert.Same(t, r, waitEvent(t, connected))
	require.NotNil(t, r.Owner())
	assert.Equal(t, "ownername", r.Owner().Name())
	require.NotNil(t, r.SelfUser())
	assert.Equal(t, "botname", r.SelfUser().Name())
	assert.Equal(t, RoomFlags(9216), r.Flags())
	assert.Len(t, r.Mods(), 2)

	reg := r.registry
	flags, ok := r.ModFlags(reg.User("modb"))
	require.True(t, ok)
	assert.True(t, flags.IsAdmin())

	assert.Equal(t, 3, r.GetLevel(r.Owner()))
	assert.Equal(t, 2, r.GetLevel(reg.User("modb")))
	assert.Equal(t, 1, r.GetLevel(reg.User("moda")))
	assert.Equal(t, 0, r.GetLevel(reg.User("lurker")))
	assert.NotZero(t, r.TimeCorrection())
}

func TestHandleOKAnonSession(t *testing.T) {
	r := newTestRoom(t)
	connected := make(chan struct{}, 1)
	r.On(EventConnect, func(...interface{}) { connected <- struct{}{} })

	r.dispatch("ok:ownername:puid123:C:None:1674000000:1.2.3.4::0")

	waitEvent(t, connected)
	self := r.SelfUser()
	require.NotNil(t, self)
	assert.True(t, self.IsAnon())
	assert.True(t, strings.HasPrefix(self.Name(), "anon"))
}

func TestTimeCorrection(t *testing.T) {
	r := newTestRoom(t)
	server := float64(time.Now().Unix()) + 100
	r.setTimeCorrection(strconv.FormatFloat(server, 'f', -1, 64))
	assert.InDelta(t, 100, r.TimeCorrection(), 2)
}

func TestMessageReconciliationPayloadFirst(t *testing.T) {
	r := newTestRoom(t)
	msgs := make(chan *Message, 2)
	r.On(EventMessage, func(args ...interface{}) { msgs <- args[0].(*Message) })

	r.dispatch("b:1674000000:alice::puid1:unid1:tmp1:1.2.3.4:0::hello")
	assert.Empty(t, r.History(), "payload alone must not deliver")
	assertNoEvent(t, msgs)

	r.dispatch("u:tmp1:final1")

	msg := waitEvent(t, msgs)
	assert.Equal(t, "final1", msg.ID)
	assert.Equal(t, "hello", msg.Body)
	assert.Equal(t, "alice", msg.User.Name())
	assert.Equal(t, "1.2.3.4", msg.IP)
	assert.Same(t, msg, r.GetMessage("final1"))
	assert.Len(t, r.History(), 1)
	assertNoEvent(t, msgs)
}

func TestMessageReconciliationIDFirst(t *testing.T) {
	r := newTestRoom(t)
	msgs := make(chan *Message, 2)
	r.On(EventMessage, func(args ...interface{}) { msgs <- args[0].(*Message) })

	r.dispatch("u:tmp1:final1")
	assert.Empty(t, r.History(), "id alone must not deliver")

	r.dispatch("b:1674000000:alice::puid1:unid1:tmp1:1.2.3.4:0::hello")

	msg := waitEvent(t, msgs)
	assert.Equal(t, "final1", msg.ID)
	assert.Equal(t, "hello", msg.Body)
	assertNoEvent(t, msgs)
}

func TestMessageBodyWithColons(t *testing.T) {
	r := newTestRoom(t)
	msgs := make(chan *Message, 1)
	r.On(EventMessage, func(args ...interface{}) { msgs <- args[0].(*Message) })

	r.dispatch("b:1674000000:alice::puid1:unid1:tmp1:1.2.3.4:0::see http://x.y:8080 ok")
	r.dispatch("u:tmp1:final1")

	msg := waitEvent(t, msgs)
	assert.Equal(t, "see http://x.y:8080 ok", msg.Body)
}

func TestHistoryBound(t *testing.T) {
	r := newTestRoom(t)
	for i := 0; i < historyCap+5; i++ {
		r.addHistory(&Message{ID: fmt.Sprintf("m%d", i), Room: r})
	}
	history := r.History()
	require.Len(t, history, historyCap)
	assert.Equal(t, "m5", history[0].ID, "eviction is from the front")
	assert.Nil(t, r.GetMessage("m0"), "evicted ids leave the index")
	assert.NotNil(t, r.GetMessage(fmt.Sprintf("m%d", historyCap+4)))
}

func TestBackfill(t *testing.T) {
	r := newTestRoom(t)
	r.dispatch("i:1674000000:alice::puid1:unid1:old1:1.2.3.4:0::first")
	r.dispatch("i:1674000001:alice::puid1:unid2:old2:1.2.3.4:0::second")

	history := r.History()
	require.Len(t, history, 2)
	assert.Equal(t, "old2", history[0].ID, "backfill prepends")
	assert.Equal(t, "old1", history[1].ID)
	assert.NotNil(t, r.GetMessage("old1"))
}

func TestParticipantRoster(t *testing.T) {
	r := newTestRoom(t)
	r.dispatch("g_participants:111:1674000000:puid1:Alice:None;222:1674000001:puid2:None:None")

	users := r.UserList()
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Name())
	require.Len(t, r.AnonList(), 1)
	assert.True(t, r.AnonList()[0].IsAnon())
	assert.Len(t, r.AllUserList(), 2)

	// Every roster session id is reflected in its user's session set.
	assert.True(t, users[0].HasSessionID(r, "111"))
	assert.True(t, r.AnonList()[0].HasSessionID(r, "222"))
}

func TestParticipantAnonJoinName(t *testing.T) {
	r := newTestRoom(t)
	joins := make(chan *User, 1)
	r.On(EventAnonJoin, func(args ...interface{}) { joins <- args[0].(*User) })

	r.dispatch("participant:1:S1:P1:None:None:9.9.9.9:1700000002.0")
	u := waitEvent(t, joins)
	assert.Equal(t, "anon0003", u.Name())
	assert.True(t, u.IsAnon())
	assert.True(t, u.HasSessionID(r, "S1"))
}

func TestParticipantDeltas(t *testing.T) {
	r := newTestRoom(t)
	joins := make(chan *User, 2)
	leaves := make(chan *User, 2)
	r.On(EventJoin, func(args ...interface{}) { joins <- args[0].(*User) })
	r.On(EventLeave, func(args ...interface{}) { leaves <- args[0].(*User) })

	r.dispatch("participant:1:333:puid3:Bob:None:5.6.7.8:1674000002")
	bob := waitEvent(t, joins)
	assert.Equal(t, "bob", bob.Name())
	assert.Len(t, r.UserList(), 1)
	assert.Equal(t, "5.6.7.8", bob.IP())

	r.dispatch("participant:0:333:puid3:Bob:None:5.6.7.8:1674000003")
	assert.Same(t, bob, waitEvent(t, leaves))
	assert.Empty(t, r.UserList())
	assert.Contains(t, r.Departures(), bob)

	// Rejoin clears the departure record.
	r.dispatch("participant:1:334:puid3:Bob:None:5.6.7.8:1674000004")
	waitEvent(t, joins)
	assert.NotContains(t, r.Departures(), bob)
}

func TestModsDiff(t *testing.T) {
	r := newTestRoom(t)
	added := make(chan *User, 2)
	removed := make(chan *User, 2)
	changed := make(chan *User, 2)
	r.On(EventModAdded, func(args ...interface{}) { added <- args[0].(*User) })
	r.On(EventModRemove, func(args ...interface{}) { removed <- args[0].(*User) })
	r.On(EventModsChange, func(args ...interface{}) { changed <- args[0].(*User) })

	r.dispatch("mods:moda,1:modb,35")
	waitEvent(t, added)
	waitEvent(t, added)

	// modb dropped, modc added, moda unchanged.
	r.dispatch("mods:moda,1:modc,5")
	assert.Equal(t, "modc", waitEvent(t, added).Name())
	assert.Equal(t, "modb", waitEvent(t, removed).Name())
	assertNoEvent(t, changed)

	// Icon visibility toggles are not capability changes.
	iconToggled := strconv.FormatUint(uint64(ModeratorFlags(1)|ModIconVisible), 10)
	r.dispatch("mods:moda," + iconToggled + ":modc,5")
	assertNoEvent(t, changed)

	// A real capability change reports the diff.
	r.dispatch("mods:moda,3:modc,5")
	assert.Equal(t, "moda", waitEvent(t, changed).Name())
}

func TestModsLastRemoved(t *testing.T) {
	r := newTestRoom(t)
	removed := make(chan *User, 1)
	r.On(EventModRemove, func(args ...interface{}) { removed <- args[0].(*User) })

	r.dispatch("mods:moda,1")
	r.dispatch("mods:")
	assert.Equal(t, "moda", waitEvent(t, removed).Name())
	assert.Empty(t, r.Mods())
}

func TestBanHandling(t *testing.T) {
	r := newTestRoom(t)
	bans := make(chan *User, 2)
	r.On(EventBan, func(args ...interface{}) { bans <- args[1].(*User) })

	r.dispatch("blocked:unid2:2.2.2.2:bob:modname:1674000001")
	bob := waitEvent(t, bans)
	assert.Equal(t, "bob", bob.Name())
	rec, ok := r.BanRecordFor(bob)
	require.True(t, ok)
	assert.Equal(t, "unid2", rec.Unid)
	assert.Equal(t, "modname", rec.Src.Name())
	assert.Contains(t, r.BanList(), bob)
}

func TestBanAnonResolvedByUnid(t *testing.T) {
	r := newTestRoom(t)
	anonBans := make(chan *User, 1)
	r.On(EventAnonBan, func(args ...interface{}) { anonBans <- args[1].(*User) })

	// Seed history so the unid scan can find the author.
	r.dispatch("b:1674000000::anon1234:puid1:unid1:tmp1:1.2.3.4:0::hi")
	r.dispatch("u:tmp1:final1")
	require.Eventually(t, func() bool { return r.GetMessage("final1") != nil },
		time.Second, 10*time.Millisecond)

	r.dispatch("blocked:unid1:1.2.3.4::modname:1674000002")
	target := waitEvent(t, anonBans)
	assert.Equal(t, "anon1234", target.Name())
}

func TestBlocklistReplace(t *testing.T) {
	r := newTestRoom(t)
	updates := make(chan struct{}, 1)
	r.On(EventBanlistUpdate, func(...interface{}) { updates <- struct{}{} })

	r.dispatch("blocked:unid2:2.2.2.2:bob:modname:1674000001")
	r.dispatch("blocklist:unid3:3.3.3.3:carol:1674000002:modname")

	waitEvent(t, updates)
	banned := r.BanList()
	require.Len(t, banned, 1)
	assert.Equal(t, "carol", banned[0].Name())
}

func TestUnban(t *testing.T) {
	r := newTestRoom(t)
	unbans := make(chan *User, 1)
	r.On(EventUnban, func(args ...interface{}) { unbans <- args[1].(*User) })

	r.dispatch("blocked:unid3:3.3.3.3:carol:modname:1674000002")
	require.Eventually(t, func() bool { return len(r.BanList()) == 1 },
		time.Second, 10*time.Millisecond)

	r.dispatch("unblocked:unid3:3.3.3.3:carol:modname:1674000003")
	carol := waitEvent(t, unbans)
	assert.Equal(t, "carol", carol.Name())
	assert.Empty(t, r.BanList())
	assert.Contains(t, r.UnbanList(), "carol")
}

func TestDeleteMessageFrame(t *testing.T) {
	r := newTestRoom(t)
	deletes := make(chan *Message, 1)
	r.On(EventDeleteMessage, func(args ...interface{}) { deletes <- args[0].(*Message) })

	r.dispatch("b:1674000000:alice::puid1:unid1:tmp1:1.2.3.4:0::hello")
	r.dispatch("u:tmp1:final1")
	require.Eventually(t, func() bool { return r.GetMessage("final1") != nil },
		time.Second, 10*time.Millisecond)

	r.dispatch("delete:final1")
	msg := waitEvent(t, deletes)
	assert.Equal(t, "final1", msg.ID)
	assert.Empty(t, r.History())
	assert.Nil(t, r.GetMessage("final1"))

	// Deleting an unknown id is quiet.
	r.dispatch("delete:missing")
	assertNoEvent(t, deletes)
}

func TestDeleteAllFrame(t *testing.T) {
	r := newTestRoom(t)
	batches := make(chan []*Message, 1)
	r.On(EventDeleteUser, func(args ...interface{}) { batches <- args[0].([]*Message) })

	r.addHistory(&Message{ID: "f1", Room: r})
	r.addHistory(&Message{ID: "f2", Room: r})
	r.addHistory(&Message{ID: "f3", Room: r})

	r.dispatch("deleteall:f1:f3")
	batch := waitEvent(t, batches)
	assert.Len(t, batch, 2)
	require.Len(t, r.History(), 1)
	assert.Equal(t, "f2", r.History()[0].ID)
}

func TestAnnouncement(t *testing.T) {
	r := newTestRoom(t)
	anncs := make(chan string, 1)
	r.On(EventAnnouncement, func(args ...interface{}) { anncs <- args[0].(string) })

	r.dispatch("getannc:1:testroom:0:60:sale today")
	enabled, period, body := r.Announcement()
	assert.True(t, enabled)
	assert.Equal(t, 60, period)
	assert.Equal(t, "sale today", body)

	r.dispatch("annc:1:testroom:hello:world")
	assert.Equal(t, "hello:world", waitEvent(t, anncs))
	_, _, body = r.Announcement()
	assert.Equal(t, "hello:world", body)
}

func TestUserCount(t *testing.T) {
	r := newTestRoom(t)
	r.dispatch("n:3e8")
	assert.Equal(t, 1000, r.UserCount())

	// Under NO_COUNTER the roster length is authoritative.
	r.dispatch("groupflagsupdate:" + strconv.FormatUint(uint64(RoomNoCounter), 10))
	r.dispatch("participant:1:333:puid3:Bob:None:5.6.7.8:1674000002")
	require.Eventually(t, func() bool { return r.UserCount() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestBannedWords(t *testing.T) {
	r := newTestRoom(t)
	r.dispatch("bw:foo%2Cbar:baz")
	part, whole := r.BannedWords()
	assert.Equal(t, "foo,bar", part)
	assert.Equal(t, "baz", whole)
}

func TestRateLimit(t *testing.T) {
	r := newTestRoom(t)
	r.dispatch("getratelimit:5")
	assert.Equal(t, 5, r.RateLimit())
}

func TestDenied(t *testing.T) {
	r := newTestRoom(t)
	denied := make(chan struct{}, 1)
	r.On(EventRoomDenied, func(...interface{}) { denied <- struct{}{} })

	r.dispatch("denied")
	waitEvent(t, denied)
	assert.True(t, r.denied.Load())
}

func TestLogoutFrame(t *testing.T) {
	r := newTestRoom(t)
	logouts := make(chan *User, 1)
	r.On(EventLogout, func(args ...interface{}) { logouts <- args[0].(*User) })

	r.dispatch("ok:ownername:puid123:M:botname:1674000000:1.2.3.4::0")
	r.dispatch("logoutok")
	self := waitEvent(t, logouts)
	assert.True(t, self.IsAnon())
	assert.Same(t, self, r.SelfUser())
}

func TestDispatchRobustness(t *testing.T) {
	r := newTestRoom(t)
	assert.NotPanics(t, func() {
		r.dispatch("bogusverb:1:2:3")
		r.dispatch("ok:tooshort")
		r.dispatch("b:malformed")
		r.dispatch("n:not-hex")
		r.dispatch("")
	})
}

func TestModerationPreconditions(t *testing.T) {
	r := newTestRoom(t)
	reg := r.registry
	msg := &Message{ID: "f1", Unid: "u1", IP: "1.2.3.4", User: reg.User("alice"), Room: r}

	// No self user yet, so no level.
	assert.False(t, r.BanMessage(msg))
	assert.False(t, r.DeleteMessage(msg))
	assert.False(t, r.ClearAll())
	assert.False(t, r.SetBannedWords("a", "b"))

	// An unreconciled message can never be deleted.
	r.dispatch("ok:botname:puid123:M:botname:1674000000:1.2.3.4::0")
	require.Eventually(t, func() bool { return r.SelfUser() != nil },
		time.Second, 10*time.Millisecond)
	assert.True(t, r.ClearAll(), "owner may clear")
	assert.False(t, r.DeleteMessage(&Message{Room: r, User: reg.User("alice")}))
}
