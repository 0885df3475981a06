// Package ecs provides ECS adapters for gazelle's pick event system.
//
// The primary adapter is [NewDonburiStore], which bridges gazelle
// interaction events (enter, inside, exit, touch, cursor activation) into
// a [Donburi] world as typed events. Subscribe to [InteractionEventType]
// in your ECS systems to receive them.
//
// Usage:
//
//	store := ecs.NewDonburiStore(world)
//	scene.SetEntityStore(store)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
