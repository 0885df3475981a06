package gazelle

import "github.com/tanema/gween/ease"

// SelectableListener observes visual-state changes on one object.
type SelectableListener interface {
	OnStateChanged(sel *Selectable, cursor *Cursor, old, state VisualState)
}

// Selectable gives a scene object visual feedback for the cursor touch
// lifecycle. Each state may have its own variant node swapped in under
// the owner; state changes additionally ease the owner's scale so presses
// read as motion even without variant visuals.
//
// Attach with Node.AttachSelectable; the CursorManager drives the state
// machine from picker events.
type Selectable struct {
	owner *Node
	state VisualState

	variants [4]*Node
	current  *Node

	pressedScale float64
	transition   *TweenGroup

	listeners []SelectableListener
}

// NewSelectable creates a selectable behavior. It has no effect until
// attached to a node.
func NewSelectable() *Selectable {
	return &Selectable{pressedScale: 0.9}
}

// Owner returns the node this behavior is attached to, or nil.
func (s *Selectable) Owner() *Node { return s.owner }

// State returns the current visual state.
func (s *Selectable) State() VisualState { return s.state }

// SetVariant registers the visual shown while the given state is current.
// Passing nil clears the variant. Panics if node is the owner itself.
func (s *Selectable) SetVariant(state VisualState, node *Node) {
	if node != nil && node == s.owner {
		panic("gazelle: selectable variant cannot be the owner node")
	}
	s.variants[state] = node
	if s.state == state {
		s.swapVariant(node)
	}
}

// SetPressedScale sets the scale factor eased in while pressed.
func (s *Selectable) SetPressedScale(f float64) {
	if f > 0 {
		s.pressedScale = f
	}
}

// AddListener registers a state-change listener.
func (s *Selectable) AddListener(l SelectableListener) {
	if l == nil {
		return
	}
	s.listeners = append(s.listeners, l)
}

// RemoveListener unregisters a state-change listener.
func (s *Selectable) RemoveListener(l SelectableListener) {
	for i, cur := range s.listeners {
		if cur == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// Update advances the running feedback transition, if any.
func (s *Selectable) Update(dt float32) {
	if s.transition != nil {
		s.transition.Update(dt)
		if s.transition.Done {
			s.transition = nil
		}
	}
}

// setState drives the state machine. Idempotent per state; listeners see
// every real transition, isolated from each other's failures.
func (s *Selectable) setState(cursor *Cursor, state VisualState) {
	if s.state == state {
		return
	}
	old := s.state
	s.state = state
	s.swapVariant(s.variants[state])

	if s.owner != nil {
		switch {
		case state == StatePressed:
			f := s.pressedScale
			s.transition = TweenScale(s.owner, Vec3{f, f, f}, 0.15, ease.OutQuad)
		case old == StatePressed:
			s.transition = TweenScale(s.owner, Vec3{1, 1, 1}, 0.15, ease.OutQuad)
		}
	}

	listeners := make([]SelectableListener, len(s.listeners))
	copy(listeners, s.listeners)
	for _, l := range listeners {
		l := l
		safeNotify(func() { l.OnStateChanged(s, cursor, old, state) })
	}
}

func (s *Selectable) swapVariant(node *Node) {
	if s.current == node {
		return
	}
	if s.current != nil {
		s.current.RemoveFromParent()
	}
	s.current = node
	if node != nil && s.owner != nil {
		s.owner.AddChild(node)
	}
}
