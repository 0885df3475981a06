package ecs

import (
	"github.com/phanxgames/gazelle"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// InteractionEventType is the Donburi event type for gazelle interaction
// events. Subscribe to this in your ECS systems to receive pick lifecycle
// and cursor activation events.
var InteractionEventType = events.NewEventType[gazelle.InteractionEvent]()

type donburiStore struct {
	world donburi.World
}

// NewDonburiStore creates an EntityStore backed by a Donburi world.
// Interaction events are published to InteractionEventType and can be
// consumed with events.Subscribe and ProcessEvents.
func NewDonburiStore(world donburi.World) gazelle.EntityStore {
	return &donburiStore{world: world}
}

func (s *donburiStore) EmitEvent(event gazelle.InteractionEvent) {
	InteractionEventType.Publish(s.world, event)
}
