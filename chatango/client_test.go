package chatango

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return NewClient("bot", "secret",
		WithClientRegistry(NewRegistry()),
		WithClientLogger(testLogger()))
}

func TestClientRunNeedsTargets(t *testing.T) {
	c := newTestClient()
	err := c.Run(context.Background())
	assert.Error(t, err)
}

func TestClientJoinRoomValidation(t *testing.T) {
	c := newTestClient()
	err := c.JoinRoom(context.Background(), "Not Valid!")
	var invalid *InvalidRoomNameError
	assert.ErrorAs(t, err, &invalid)
	assert.Nil(t, c.Room("Not Valid!"))
}

func TestClientTracksConnects(t *testing.T) {
	c := newTestClient()
	room, err := NewRoom("testroom", WithRegistry(NewRegistry()), WithLogger(testLogger()))
	require.NoError(t, err)

	assert.False(t, c.allConnected([]string{"testroom"}))
	c.OnEvent(EventConnect, room)
	assert.True(t, c.allConnected([]string{"testroom"}))
	assert.False(t, c.allConnected([]string{"testroom", "otherroom"}))
}

func TestClientReemitsEvents(t *testing.T) {
	c := newTestClient()
	got := make(chan interface{}, 1)
	c.On("custom", func(args ...interface{}) { got <- args[0] })

	c.OnEvent("custom", "payload")

	select {
	case v := <-got:
		assert.Equal(t, "payload", v)
	case <-time.After(time.Second):
		t.Fatal("event was not re-emitted")
	}
}

func TestClientJoinPMRequiresCredentials(t *testing.T) {
	c := NewClient("", "", WithClientRegistry(NewRegistry()), WithClientLogger(testLogger()))
	assert.Error(t, c.JoinPM(context.Background()))
}

// A cancelled context makes the listener exit after its first failed dial,
// and the room is unregistered on the way out.
func TestClientRoomLifecycle(t *testing.T) {
	c := newTestClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, c.JoinRoom(ctx, "testroom"))
	require.Eventually(t, func() bool { return c.Room("testroom") == nil },
		5*time.Second, 50*time.Millisecond)
}
