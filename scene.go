package gazelle

import "sort"

// EntityStore is the interface for optional ECS integration.
// When set on a Scene, cursor and pick events are forwarded to the ECS.
type EntityStore interface {
	EmitEvent(event InteractionEvent)
}

// EventType identifies an InteractionEvent kind for the ECS bridge.
type EventType uint8

const (
	EventEnter EventType = iota
	EventInside
	EventExit
	EventTouchStart
	EventTouchEnd
	EventNoPick
	EventCursorActivated
	EventCursorDeactivated
)

// InteractionEvent carries pick/cursor data for the ECS bridge.
type InteractionEvent struct {
	Type     EventType
	NodeID   uint32
	CursorID string
	Distance float64
	HitPoint Vec3
}

// Scene is the top-level object that owns the node tree, the camera rig
// the cursor visuals hang under, and the set of collidable nodes the
// pickers query.
type Scene struct {
	root      *Node
	cameraRig *Node
	store     EntityStore

	collidables []*Node
}

// NewScene creates a scene with a pre-created root and camera rig.
func NewScene() *Scene {
	root := NewNode("root")
	rig := NewNode("camera-rig")
	root.AddChild(rig)
	return &Scene{root: root, cameraRig: rig}
}

// Root returns the scene's root node.
func (s *Scene) Root() *Node {
	return s.root
}

// CameraRig returns the node controllers parent their drag roots under.
func (s *Scene) CameraRig() *Node {
	return s.cameraRig
}

// AddCollidable registers a node for pick queries.
// Panics if node is nil; no-op if node has no collider or is already
// registered.
func (s *Scene) AddCollidable(node *Node) {
	if node == nil {
		panic("gazelle: cannot register nil collidable")
	}
	if node.Collider() == nil {
		return
	}
	for _, c := range s.collidables {
		if c == node {
			return
		}
	}
	s.collidables = append(s.collidables, node)
}

// RemoveCollidable unregisters a node from pick queries.
func (s *Scene) RemoveCollidable(node *Node) {
	for i, c := range s.collidables {
		if c == node {
			s.collidables = append(s.collidables[:i], s.collidables[i+1:]...)
			return
		}
	}
}

// Collidables returns the registered collidable nodes. The returned slice
// MUST NOT be mutated by the caller.
func (s *Scene) Collidables() []*Node {
	return s.collidables
}

// PickRay casts a world-space ray against every registered collidable and
// returns the hits with near <= distance <= far, ordered nearest-first.
func (s *Scene) PickRay(origin, dir Vec3, near, far float64) []Hit {
	var hits []Hit
	for _, node := range s.collidables {
		if node.IsDisposed() {
			continue
		}
		h, ok := node.Collider().RayIntersect(origin, dir, node.WorldMatrix())
		if !ok {
			continue
		}
		if h.Distance < near || h.Distance > far {
			continue
		}
		h.Object = node
		hits = append(hits, h)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits
}

// SetEntityStore sets the optional ECS bridge.
func (s *Scene) SetEntityStore(store EntityStore) {
	s.store = store
}

// emitEvent forwards an event to the ECS bridge if one is attached.
func (s *Scene) emitEvent(ev InteractionEvent) {
	if s.store != nil {
		s.store.EmitEvent(ev)
	}
}
