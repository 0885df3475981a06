package gazelle

import (
	"fmt"
	"sync"
)

// ControllerSelectListener observes single-selection changes. old is nil
// for the first selection; new is nil when the last controller vanishes.
type ControllerSelectListener interface {
	OnControllerSelected(selected, previous *Controller)
}

// SingleControllerSelector keeps exactly one controller enabled at a
// time, chosen from an ordered device-type preference list. A newly
// connected controller takes over only when its type ranks strictly
// higher than the current selection; when the selected controller
// disconnects the best remaining one (typically the gaze pointer) is
// selected instead.
//
// Applications that want one pointer regardless of how many devices are
// plugged in use this instead of the CursorManager's multi-cursor
// allocation.
type SingleControllerSelector struct {
	mu sync.Mutex

	registry *Registry
	ranks    map[DeviceType]int
	selected *Controller

	listeners []ControllerSelectListener
}

// NewSingleControllerSelector creates a selector over the registry with
// an ordered preference list, most preferred first. The list must be
// non-empty and duplicate-free.
func NewSingleControllerSelector(registry *Registry, order []DeviceType) (*SingleControllerSelector, error) {
	if registry == nil {
		return nil, fmt.Errorf("selector: nil registry")
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("selector: empty preference list")
	}
	ranks := make(map[DeviceType]int, len(order))
	for i, t := range order {
		if _, dup := ranks[t]; dup {
			return nil, fmt.Errorf("selector: duplicate device type %s", t)
		}
		ranks[t] = len(order) - i
	}
	s := &SingleControllerSelector{
		registry: registry,
		ranks:    ranks,
	}
	registry.AddListener(s)
	return s, nil
}

// Selected returns the currently selected controller, or nil.
func (s *SingleControllerSelector) Selected() *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// AddListener registers a selection listener.
func (s *SingleControllerSelector) AddListener(l ControllerSelectListener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// RemoveListener unregisters a selection listener.
func (s *SingleControllerSelector) RemoveListener(l ControllerSelectListener) {
	s.mu.Lock()
	for i, cur := range s.listeners {
		if cur == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
}

// ControllerAdded implements ConnectionListener.
func (s *SingleControllerSelector) ControllerAdded(c *Controller) {
	s.mu.Lock()
	rank := s.ranks[c.Device().Type]
	if rank <= 0 {
		s.mu.Unlock()
		return
	}
	if s.selected != nil && s.ranks[s.selected.Device().Type] >= rank {
		// Only a strictly better type takes over.
		c.SetEnable(false)
		s.mu.Unlock()
		return
	}
	s.selectLocked(c)
}

// ControllerRemoved implements ConnectionListener.
func (s *SingleControllerSelector) ControllerRemoved(c *Controller) {
	s.mu.Lock()
	if s.selected != c {
		s.mu.Unlock()
		return
	}
	s.selectLocked(s.bestRemainingLocked(c))
}

// bestRemainingLocked scans live controllers for the highest-ranked
// candidate, excluding the departing one.
func (s *SingleControllerSelector) bestRemainingLocked(gone *Controller) *Controller {
	var best *Controller
	bestRank := 0
	for _, c := range s.registry.Controllers() {
		if c == gone {
			continue
		}
		if rank := s.ranks[c.Device().Type]; rank > bestRank {
			best = c
			bestRank = rank
		}
	}
	return best
}

// selectLocked swaps the selection, enabling only the new controller.
// Releases the lock before notifying.
func (s *SingleControllerSelector) selectLocked(c *Controller) {
	prev := s.selected
	s.selected = c
	listeners := make([]ControllerSelectListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	if prev != nil {
		prev.SetEnable(false)
	}
	if c != nil {
		c.SetEnable(true)
	}
	for _, l := range listeners {
		l := l
		safeNotify(func() { l.OnControllerSelected(c, prev) })
	}
}
