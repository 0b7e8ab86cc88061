package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishReachesEverySubscriber(t *testing.T) {
	bus := NewBus()
	received := make(chan string, 2)

	bus.Subscribe(BrewCompleted, func(e Event) { received <- "a:" + e.OrderID })
	bus.Subscribe(BrewCompleted, func(e Event) { received <- "b:" + e.OrderID })
	bus.Subscribe(BrewFailed, func(e Event) { received <- "unexpected" })

	bus.Publish(Event{Type: BrewCompleted, OrderID: "o1"})

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case s := <-received:
			got = append(got, s)
		case <-time.After(time.Second):
			t.Fatal("handler not called")
		}
	}
	assert.ElementsMatch(t, []string{"a:o1", "b:o1"}, got)

	select {
	case s := <-received:
		require.Failf(t, "unexpected delivery", "got %s", s)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_SyncHandlersRunInPublishOrder(t *testing.T) {
	bus := NewBus()
	var order []string
	bus.SubscribeSync(StepStarted, func(e Event) { order = append(order, "started:"+string(e.Step)) })
	bus.SubscribeSync(StepCompleted, func(e Event) { order = append(order, "completed:"+string(e.Step)) })

	bus.Publish(Event{Type: StepStarted, Step: "grinding"})
	bus.Publish(Event{Type: StepCompleted, Step: "grinding"})
	bus.Publish(Event{Type: StepStarted, Step: "pumping"})

	assert.Equal(t, []string{"started:grinding", "completed:grinding", "started:pumping"}, order)
}
