package event

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishIsSynchronousAndOrdered(t *testing.T) {
	bus := NewBus()
	var order []int

	bus.Subscribe(PlayerJoined, func(Event) { order = append(order, 1) })
	bus.Subscribe(PlayerJoined, func(Event) { order = append(order, 2) })
	bus.Subscribe(PlayerJoined, func(Event) { order = append(order, 3) })

	bus.Publish(Event{Type: PlayerJoined})
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestPublishCarriesPayload(t *testing.T) {
	bus := NewBus()
	var got Event
	bus.Subscribe(PiecePlaced, func(ev Event) { got = ev })

	bus.Publish(Event{Type: PiecePlaced, RoomID: 3, UserID: 9, X: 7, Y: 8})
	assert.Equal(t, uint64(3), got.RoomID)
	assert.Equal(t, uint64(9), got.UserID)
	assert.Equal(t, uint32(7), got.X)
	assert.Equal(t, uint32(8), got.Y)
}

func TestCancelledSubscriberNotDelivered(t *testing.T) {
	bus := NewBus()
	calls := 0
	sub := bus.Subscribe(GameEnded, func(Event) { calls++ })

	bus.Publish(Event{Type: GameEnded})
	sub.Cancel()
	bus.Publish(Event{Type: GameEnded})
	bus.Publish(Event{Type: GameEnded})

	assert.Equal(t, 1, calls)
}

func TestPanickingSubscriberDoesNotStopOthers(t *testing.T) {
	bus := NewBus()
	var after bool
	bus.Subscribe(GameStarted, func(Event) { panic("boom") })
	bus.Subscribe(GameStarted, func(Event) { after = true })

	bus.Publish(Event{Type: GameStarted})
	assert.True(t, after)
}

func TestTypesAreIsolated(t *testing.T) {
	bus := NewBus()
	joined, left := 0, 0
	bus.Subscribe(PlayerJoined, func(Event) { joined++ })
	bus.Subscribe(PlayerLeft, func(Event) { left++ })

	bus.Publish(Event{Type: PlayerJoined})
	assert.Equal(t, 1, joined)
	assert.Equal(t, 0, left)
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	total := 0
	bus.Subscribe(RoomListUpdated, func(Event) {
		mu.Lock()
		total++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				bus.Publish(Event{Type: RoomListUpdated})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, total)
}

func TestIndependentBuses(t *testing.T) {
	a, b := NewBus(), NewBus()
	calls := 0
	a.Subscribe(UserLoggedIn, func(Event) { calls++ })

	b.Publish(Event{Type: UserLoggedIn})
	assert.Zero(t, calls)
}
