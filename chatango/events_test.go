package chatango

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusEmit(t *testing.T) {
	bus := NewEventBus(testLogger())
	got := make(chan interface{}, 1)
	bus.Subscribe("ping", func(args ...interface{}) {
		got <- args[0]
	})

	bus.Emit("ping", 42)

	select {
	case v := <-got:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}

func TestEventBusEmitSyncOrder(t *testing.T) {
	bus := NewEventBus(testLogger())
	var order []int
	bus.Subscribe("e", func(...interface{}) { order = append(order, 1) })
	bus.Subscribe("e", func(...interface{}) { order = append(order, 2) })
	bus.Subscribe("e", func(...interface{}) { order = append(order, 3) })

	bus.EmitSync("e")
	assert.Equal(t, []int{1, 2, 3}, order)
}

// A panicking handler is isolated; the others still run.
func TestEventBusPanicIsolation(t *testing.T) {
	bus := NewEventBus(testLogger())
	var survived bool
	bus.Subscribe("e", func(...interface{}) { panic("boom") })
	bus.Subscribe("e", func(...interface{}) { survived = true })

	require.NotPanics(t, func() { bus.EmitSync("e") })
	assert.True(t, survived)
}

type recordingListener struct {
	events chan string
}

func (l *recordingListener) OnEvent(event string, args ...interface{}) {
	l.events <- event
}

func TestEventBusListener(t *testing.T) {
	bus := NewEventBus(testLogger())
	l := &recordingListener{events: make(chan string, 4)}
	bus.AddListener(l)

	bus.EmitSync("first")
	bus.EmitSync("second")

	assert.Equal(t, "first", <-l.events)
	assert.Equal(t, "second", <-l.events)
}

func TestEventBusUnknownEventIsNoop(t *testing.T) {
	bus := NewEventBus(testLogger())
	assert.NotPanics(t, func() { bus.Emit("nobody-listens") })
}
