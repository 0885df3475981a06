package gazelle

// PickListener receives the pick lifecycle events produced by a Picker.
// Events for one picker arrive on the controller's update thread, in
// order: touch-end (if held) before exit, enter before the first inside.
type PickListener interface {
	OnEnter(c *Controller, hit Hit)
	OnInside(c *Controller, hit Hit)
	OnExit(c *Controller, obj *Node)
	OnTouchStart(c *Controller, hit Hit)
	OnTouchEnd(c *Controller, hit Hit)
	OnNoPick(c *Controller)
	OnMotionOutside(c *Controller, ev MotionEvent)
}

// pickState tracks one collidable across frames for lifecycle diffing.
type pickState struct {
	touched bool
	seen    bool
}

// Picker casts the controller's ray against the bound scene each update
// and diffs the hit set against the previous frame to produce the
// enter/inside/exit lifecycle. The touch sub-state follows the
// controller's active flag and only ever changes while an object stays
// in the hit set.
type Picker struct {
	controller *Controller
	scene      *Scene

	prev      map[*Node]*pickState
	hits      []Hit
	listeners []PickListener
}

func newPicker(c *Controller) *Picker {
	return &Picker{
		controller: c,
		prev:       make(map[*Node]*pickState),
	}
}

// AddListener registers a lifecycle listener. The listener list belongs
// to the controller's update thread; register from it (hot-plug
// notifications delivered on that thread qualify).
func (p *Picker) AddListener(l PickListener) {
	if l == nil {
		return
	}
	p.listeners = append(p.listeners, l)
}

// RemoveListener unregisters a lifecycle listener.
func (p *Picker) RemoveListener(l PickListener) {
	for i, cur := range p.listeners {
		if cur == l {
			p.listeners = append(p.listeners[:i], p.listeners[i+1:]...)
			return
		}
	}
}

// Hits returns the hits from the most recent process call, ordered
// nearest-first. Valid until the next process call.
func (p *Picker) Hits() []Hit {
	return p.hits
}

// setScene rebinds the picker. Tracked state does not survive a scene
// change; every tracked object exits first.
func (p *Picker) setScene(s *Scene) {
	if p.scene == s {
		return
	}
	p.flushExits()
	p.scene = s
	p.hits = nil
}

// process runs one pick cycle. Touch transitions are gated on active;
// hover alone produces enter/inside/exit without touch events.
func (p *Picker) process(origin, dir Vec3, near, far float64, active bool, motions []MotionEvent) {
	if p.scene == nil {
		return
	}
	p.hits = p.scene.PickRay(origin, dir, near, far)

	listeners := p.snapshot()

	for _, st := range p.prev {
		st.seen = false
	}

	for i := range p.hits {
		hit := &p.hits[i]
		st, known := p.prev[hit.Object]
		if !known {
			st = &pickState{}
			p.prev[hit.Object] = st
		}
		st.seen = true

		touchStarted := active && !st.touched
		touchEnded := !active && st.touched
		st.touched = active
		hit.Touched = st.touched

		if !known {
			for _, l := range listeners {
				l := l
				safeNotify(func() { l.OnEnter(p.controller, *hit) })
			}
		} else {
			for _, l := range listeners {
				l := l
				safeNotify(func() { l.OnInside(p.controller, *hit) })
			}
		}
		if touchStarted {
			for _, l := range listeners {
				l := l
				safeNotify(func() { l.OnTouchStart(p.controller, *hit) })
			}
		}
		if touchEnded {
			for _, l := range listeners {
				l := l
				safeNotify(func() { l.OnTouchEnd(p.controller, *hit) })
			}
		}
	}

	for obj, st := range p.prev {
		if st.seen {
			continue
		}
		if st.touched {
			hit := Hit{Object: obj, Barycentric: barySentinel}
			for _, l := range listeners {
				l := l
				safeNotify(func() { l.OnTouchEnd(p.controller, hit) })
			}
		}
		for _, l := range listeners {
			l := l
			obj := obj
			safeNotify(func() { l.OnExit(p.controller, obj) })
		}
		delete(p.prev, obj)
	}

	if len(p.hits) == 0 {
		for _, l := range listeners {
			l := l
			safeNotify(func() { l.OnNoPick(p.controller) })
		}
		for _, ev := range motions {
			for _, l := range listeners {
				l := l
				ev := ev
				safeNotify(func() { l.OnMotionOutside(p.controller, ev) })
			}
		}
	}
}

// flushExits emits touch-end/exit for everything still tracked.
func (p *Picker) flushExits() {
	listeners := p.snapshot()
	for obj, st := range p.prev {
		if st.touched {
			hit := Hit{Object: obj, Barycentric: barySentinel}
			for _, l := range listeners {
				l := l
				safeNotify(func() { l.OnTouchEnd(p.controller, hit) })
			}
		}
		for _, l := range listeners {
			l := l
			obj := obj
			safeNotify(func() { l.OnExit(p.controller, obj) })
		}
		delete(p.prev, obj)
	}
}

// snapshot copies the listener list so listeners registered or removed
// during dispatch do not disturb the in-flight iteration.
func (p *Picker) snapshot() []PickListener {
	out := make([]PickListener, len(p.listeners))
	copy(out, p.listeners)
	return out
}
