package chatango

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryInterning(t *testing.T) {
	reg := NewRegistry()

	alice := reg.User("Alice")
	again := reg.User("alice")
	assert.Same(t, alice, again, "case-insensitive lookups must intern to one record")
	assert.Equal(t, "alice", alice.Name())
	assert.Equal(t, "Alice", alice.ShowName(), "first-seen casing is kept")

	bob := reg.User("bob")
	assert.NotSame(t, alice, bob)
}

func TestRegistryOptionMerge(t *testing.T) {
	reg := NewRegistry()

	u := reg.User("carol", WithIP("1.2.3.4"), WithPUID("555"))
	assert.Equal(t, "1.2.3.4", u.IP())
	assert.Equal(t, "555", u.PUID())

	// Empty values never clobber known ones.
	reg.User("carol", WithIP(""), WithPUID(""))
	assert.Equal(t, "1.2.3.4", u.IP())
	assert.Equal(t, "555", u.PUID())

	reg.User("carol", WithIP("5.6.7.8"))
	assert.Equal(t, "5.6.7.8", u.IP())
}

func TestUserAnonFlag(t *testing.T) {
	reg := NewRegistry()
	u := reg.User("anon1234", WithAnon(true))
	assert.True(t, u.IsAnon())
	reg.User("anon1234", WithAnon(false))
	assert.False(t, u.IsAnon())
}

func TestUserPremiumTriState(t *testing.T) {
	reg := NewRegistry()
	u := reg.User("dave")

	_, known := u.IsPremium()
	assert.False(t, known, "premium state starts unknown")

	u.setPremium(true)
	premium, known := u.IsPremium()
	assert.True(t, known)
	assert.True(t, premium)

	u.setPremium(false)
	premium, known = u.IsPremium()
	assert.True(t, known)
	assert.False(t, premium)
}

func TestUserSessions(t *testing.T) {
	reg := NewRegistry()
	room, err := NewRoom("testroom", WithRegistry(reg), WithLogger(testLogger()))
	require.NoError(t, err)
	u := reg.User("erin")

	u.AddSessionID(room, "s1")
	u.AddSessionID(room, "s2")
	assert.Equal(t, []string{"s1", "s2"}, u.SessionIDs(room))
	assert.True(t, u.HasSessionID(room, "s1"))

	u.RemoveSessionID(room, "s1")
	assert.Equal(t, []string{"s2"}, u.SessionIDs(room))

	// Empty sid clears the whole room.
	u.AddSessionID(room, "s3")
	u.RemoveSessionID(room, "")
	assert.Empty(t, u.SessionIDs(room))
	assert.False(t, u.HasSessionID(room, "s2"))
}

func TestUserProfileURLs(t *testing.T) {
	reg := NewRegistry()

	alice := reg.User("alice")
	assert.Equal(t, "http://ust.chatango.com/profileimg/a/l/alice/msgstyles.json", alice.StylesURL())
	assert.Equal(t, "http://ust.chatango.com/profileimg/a/l/alice/msgbg.xml", alice.BackgroundURL())
	assert.Equal(t, "http://ust.chatango.com/profileimg/a/l/alice/mod1.xml", alice.ProfileURL())
	assert.Equal(t, "http://ust.chatango.com/profileimg/a/l/alice/mod2.xml", alice.FullProfileURL())

	// Single-character names double up for the shard segments.
	short := reg.User("a")
	assert.Equal(t, "http://ust.chatango.com/profileimg/a/a/a/msgstyles.json", short.StylesURL())
}

func TestStylesDefaultsAndSetters(t *testing.T) {
	s := NewStyles()
	assert.Equal(t, "000000", s.NameColor())
	assert.Equal(t, "000000", s.FontColor())
	assert.Equal(t, "11", s.FontSize())
	assert.Equal(t, "0", s.FontFace())
	assert.False(t, s.UseBackground())

	s.SetNameColor("cc3300")
	s.SetFontSize("14")
	assert.Equal(t, "cc3300", s.NameColor())
	assert.Equal(t, "14", s.FontSize())

	// Empty values keep the current setting.
	s.SetNameColor("")
	s.SetFontSize("")
	assert.Equal(t, "cc3300", s.NameColor())
	assert.Equal(t, "14", s.FontSize())
}
