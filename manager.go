package gazelle

import (
	"log"
	"math"
	"sync"
)

// CursorActivationListener observes cursors gaining and losing devices.
type CursorActivationListener interface {
	OnCursorActivated(c *Cursor)
	OnCursorDeactivated(c *Cursor)
}

// CursorEventListener receives pick lifecycle events resolved from
// controllers to their bound cursors. Embed CursorEventAdapter to
// implement only the events of interest.
type CursorEventListener interface {
	OnCursorEnter(cursor *Cursor, hit Hit)
	OnCursorInside(cursor *Cursor, hit Hit)
	OnCursorExit(cursor *Cursor, obj *Node)
	OnCursorTouchStart(cursor *Cursor, hit Hit)
	OnCursorTouchEnd(cursor *Cursor, hit Hit)
	OnCursorDrag(cursor *Cursor, hit Hit)
	OnCursorNoPick(cursor *Cursor)
	OnCursorRescale(cursor *Cursor, depth float64)
}

// CursorEventAdapter is a no-op CursorEventListener for selective
// embedding.
type CursorEventAdapter struct{}

func (CursorEventAdapter) OnCursorEnter(*Cursor, Hit)       {}
func (CursorEventAdapter) OnCursorInside(*Cursor, Hit)      {}
func (CursorEventAdapter) OnCursorExit(*Cursor, *Node)      {}
func (CursorEventAdapter) OnCursorTouchStart(*Cursor, Hit)  {}
func (CursorEventAdapter) OnCursorTouchEnd(*Cursor, Hit)    {}
func (CursorEventAdapter) OnCursorDrag(*Cursor, Hit)        {}
func (CursorEventAdapter) OnCursorNoPick(*Cursor)           {}
func (CursorEventAdapter) OnCursorRescale(*Cursor, float64) {}

// settingsBackup remembers where the settings cursor borrowed its device
// from so DisableSettingsCursor can restore the binding.
type settingsBackup struct {
	from      *Cursor
	device    *Device
	near, far float64
}

// CursorManager is the allocator binding hot-pluggable devices to
// configured logical cursors by per-cursor priority. It listens to a
// Registry for device availability and to every controller's picker for
// the touch lifecycle.
//
// Invariant: a live device is in exactly one of the used or unused sets;
// a cursor is in the active list exactly while a device is bound to it.
type CursorManager struct {
	mu sync.Mutex

	scene    *Scene
	registry *Registry

	unused []*Device
	used   map[*Device]*Cursor

	activeCursors   []*Cursor
	inactiveCursors []*Cursor

	settings *settingsBackup

	cursorDepth  float64
	soundEnabled bool
	debug        bool

	activationListeners []CursorActivationListener
	eventListeners      []CursorEventListener

	requestScan func()
}

// NewCursorManager creates the allocator for a scene, wires it to the
// registry's hot-plug notifications, and seeds it with the given cursors
// (all initially inactive; assignment runs as devices appear).
func NewCursorManager(scene *Scene, registry *Registry, cursors []*Cursor) *CursorManager {
	if scene == nil {
		panic("gazelle: cursor manager needs a scene")
	}
	if registry == nil {
		panic("gazelle: cursor manager needs a registry")
	}
	m := &CursorManager{
		scene:       scene,
		registry:    registry,
		used:        make(map[*Device]*Cursor),
		cursorDepth: 1,
	}
	for _, c := range cursors {
		if c != nil {
			m.inactiveCursors = append(m.inactiveCursors, c)
		}
	}
	registry.AddListener(m)
	return m
}

// SetDebugMode enables assignment logging.
func (m *CursorManager) SetDebugMode(enabled bool) {
	m.mu.Lock()
	m.debug = enabled
	m.mu.Unlock()
}

// SetScanRequester installs the hook invoked when a device removal leaves
// no unused devices, so the platform driver can rescan for new ones.
func (m *CursorManager) SetScanRequester(fn func()) {
	m.mu.Lock()
	m.requestScan = fn
	m.mu.Unlock()
}

// SetGlobalCursorDepth sets the depth applied to newly bound cursors and
// used as the rescale reference.
func (m *CursorManager) SetGlobalCursorDepth(depth float64) {
	m.mu.Lock()
	if depth > 0 {
		m.cursorDepth = depth
	}
	m.mu.Unlock()
}

// GlobalCursorDepth returns the configured global cursor depth.
func (m *CursorManager) GlobalCursorDepth() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursorDepth
}

// SetSoundEnabled stores the global sound setting. Nothing is played
// here; the value is surfaced for persistence and application use.
func (m *CursorManager) SetSoundEnabled(on bool) {
	m.mu.Lock()
	m.soundEnabled = on
	m.mu.Unlock()
}

// SoundEnabled returns the global sound setting.
func (m *CursorManager) SoundEnabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.soundEnabled
}

// --- Listener surface ---

// AddActivationListener registers a cursor activation listener.
func (m *CursorManager) AddActivationListener(l CursorActivationListener) {
	if l == nil {
		return
	}
	m.mu.Lock()
	m.activationListeners = append(m.activationListeners, l)
	m.mu.Unlock()
}

// RemoveActivationListener unregisters a cursor activation listener.
func (m *CursorManager) RemoveActivationListener(l CursorActivationListener) {
	m.mu.Lock()
	for i, cur := range m.activationListeners {
		if cur == l {
			m.activationListeners = append(m.activationListeners[:i], m.activationListeners[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
}

// AddEventListener registers an application pick-event listener.
func (m *CursorManager) AddEventListener(l CursorEventListener) {
	if l == nil {
		return
	}
	m.mu.Lock()
	m.eventListeners = append(m.eventListeners, l)
	m.mu.Unlock()
}

// RemoveEventListener unregisters an application pick-event listener.
func (m *CursorManager) RemoveEventListener(l CursorEventListener) {
	m.mu.Lock()
	for i, cur := range m.eventListeners {
		if cur == l {
			m.eventListeners = append(m.eventListeners[:i], m.eventListeners[i+1:]...)
			break
		}
	}
	m.mu.Unlock()
}

// --- Queries ---

// ActiveCursors returns a snapshot of the cursors currently bound to a
// device.
func (m *CursorManager) ActiveCursors() []*Cursor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Cursor(nil), m.activeCursors...)
}

// InactiveCursors returns a snapshot of the cursors without a device.
func (m *CursorManager) InactiveCursors() []*Cursor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Cursor(nil), m.inactiveCursors...)
}

// UnusedDevices returns a snapshot of the devices not bound to any
// cursor.
func (m *CursorManager) UnusedDevices() []*Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Device(nil), m.unused...)
}

// CursorForDevice returns the cursor a device is bound to, or nil.
func (m *CursorManager) CursorForDevice(d *Device) *Cursor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used[d]
}

// FindCursor returns the cursor with the given id, active or not.
func (m *CursorManager) FindCursor(id string) *Cursor {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.activeCursors {
		if c.ID() == id {
			return c
		}
	}
	for _, c := range m.inactiveCursors {
		if c.ID() == id {
			return c
		}
	}
	return nil
}

// --- Hot-plug (ConnectionListener) ---

// ControllerAdded implements ConnectionListener. The new device joins the
// unused pool and assignment runs.
func (m *CursorManager) ControllerAdded(c *Controller) {
	c.SetScene(m.scene)
	c.Picker().AddListener(m)

	m.mu.Lock()
	m.unused = append(m.unused, c.Device())
	events := m.assignLocked(false)
	if m.debug {
		log.Printf("gazelle: device %s added, %d unused, %d active cursors",
			c.Device().Type, len(m.unused), len(m.activeCursors))
	}
	m.mu.Unlock()
	runEvents(events)
}

// ControllerRemoved implements ConnectionListener. A used device's cursor
// deactivates and assignment re-runs; if that leaves no unused devices a
// controller scan is requested to discover replacements.
func (m *CursorManager) ControllerRemoved(c *Controller) {
	d := c.Device()

	m.mu.Lock()
	var events []func()

	if m.settings != nil && m.settings.device == d {
		// The transfer device is gone; there is nothing to restore the
		// backed-up depth range onto, and a new transfer must be possible.
		m.settings = nil
	}

	if cursor, ok := m.used[d]; ok {
		events = append(events, m.deactivateLocked(cursor)...)
		// The device is gone, not returned to the pool.
		m.dropUnusedLocked(d)
		events = append(events, m.assignLocked(false)...)
	} else {
		m.dropUnusedLocked(d)
	}

	var scan func()
	if len(m.unused) == 0 {
		scan = m.requestScan
	}
	m.mu.Unlock()

	runEvents(events)
	if scan != nil {
		safeNotify(scan)
	}
}

// --- Cursor control ---

// AddCursor registers an additional cursor and runs assignment.
func (m *CursorManager) AddCursor(c *Cursor) {
	if c == nil {
		panic("gazelle: cannot add nil cursor")
	}
	m.mu.Lock()
	m.inactiveCursors = append(m.inactiveCursors, c)
	events := m.assignLocked(false)
	m.mu.Unlock()
	runEvents(events)
}

// EnableCursor re-enables a cursor and runs assignment so it can pick up
// an available device.
func (m *CursorManager) EnableCursor(c *Cursor) {
	m.mu.Lock()
	c.enabled = true
	events := m.assignLocked(false)
	m.mu.Unlock()
	runEvents(events)
}

// DisableCursor disables a cursor; if active, its device returns to the
// unused pool and assignment re-runs for the remaining cursors.
func (m *CursorManager) DisableCursor(c *Cursor) {
	m.mu.Lock()
	c.enabled = false
	var events []func()
	if c.Active() {
		d := c.Device()
		events = m.deactivateLocked(c)
		m.unused = append(m.unused, d)
		events = append(events, m.assignLocked(false)...)
	}
	m.mu.Unlock()
	runEvents(events)
}

// SetSavedDevice records the device identity a cursor should prefer on
// its next binding. The cursor's saved fields are read by the allocator
// under the manager lock, so external writers must come through here
// rather than mutating the cursor directly.
func (m *CursorManager) SetSavedDevice(c *Cursor, vendorID, productID int, t DeviceType) {
	m.mu.Lock()
	c.saved = deviceIdentity{vendorID: vendorID, productID: productID, deviceType: t}
	c.savedSet = true
	m.mu.Unlock()
}

// Rebalance runs the optional swap pass: active cursors trade their
// device for a strictly higher-priority unused one. Equal priority never
// swaps.
func (m *CursorManager) Rebalance() {
	m.mu.Lock()
	events := m.assignLocked(true)
	m.mu.Unlock()
	runEvents(events)
}

// --- Settings cursor transfer ---

// EnableSettingsCursor temporarily transfers the device bound to `from`
// onto the settings cursor. Returns false if a transfer is already in
// progress or `from` has no device.
func (m *CursorManager) EnableSettingsCursor(settings, from *Cursor) bool {
	if settings == nil || from == nil {
		panic("gazelle: settings transfer needs both cursors")
	}
	m.mu.Lock()
	if m.settings != nil || !from.Active() {
		m.mu.Unlock()
		return false
	}
	d := from.Device()
	near, far := d.Controller().DepthRange()
	m.settings = &settingsBackup{from: from, device: d, near: near, far: far}

	events := m.deactivateLocked(from)
	events = append(events, m.bindLocked(settings, d)...)
	m.mu.Unlock()
	runEvents(events)
	return true
}

// DisableSettingsCursor ends the transfer: the settings cursor releases
// the device, the controller's depth range is restored, and assignment
// re-runs so the saved-device preference returns the device to its
// original cursor.
func (m *CursorManager) DisableSettingsCursor(settings *Cursor) bool {
	m.mu.Lock()
	bk := m.settings
	if bk == nil || settings.Device() != bk.device {
		m.mu.Unlock()
		return false
	}
	m.settings = nil

	events := m.deactivateLocked(settings)
	bk.device.Controller().SetDepthRange(bk.near, bk.far)
	m.unused = append(m.unused, bk.device)
	events = append(events, m.assignLocked(false)...)
	m.mu.Unlock()
	runEvents(events)
	return true
}

// --- Core assignment ---

// assignLocked is the two-pass allocator. Pass 1 fills unbound enabled
// cursors first-fit from the unused pool, with the saved-device
// preference bypassing the priority comparison. Pass 2, only when
// requested and devices remain, upgrades active cursors to strictly
// higher-priority devices without touching their activation state.
// Returns the deferred listener notifications.
func (m *CursorManager) assignLocked(rebalance bool) []func() {
	var events []func()

	// Pass 1.
	pending := append([]*Cursor(nil), m.inactiveCursors...)
	for _, cursor := range pending {
		if !cursor.Enabled() || cursor.Active() {
			continue
		}
		var pick *Device
		for _, d := range m.unused {
			if cursor.matchesSaved(d) {
				pick = d
				break
			}
		}
		if pick == nil {
			for _, d := range m.unused {
				if cursor.Priority(d.Type) > 0 {
					pick = d
					break
				}
			}
		}
		if pick != nil {
			events = append(events, m.bindLocked(cursor, pick)...)
		}
	}

	// Pass 2.
	if rebalance && len(m.unused) > 0 {
		for _, cursor := range m.activeCursors {
			if !cursor.Enabled() {
				continue
			}
			current := cursor.Priority(cursor.Device().Type)
			var best *Device
			bestPrio := current
			for _, d := range m.unused {
				if p := cursor.Priority(d.Type); p > bestPrio {
					best = d
					bestPrio = p
				}
			}
			if best == nil {
				continue
			}
			old := cursor.Device()
			delete(m.used, old)
			cursor.unbindDevice()
			m.unused = append(m.unused, old)

			m.dropUnusedLocked(best)
			m.used[best] = cursor
			cursor.bindDevice(best)
			best.Controller().SetCursorDepth(m.cursorDepth * cursor.DepthScale())
			if m.debug {
				log.Printf("gazelle: cursor %q swapped %s -> %s", cursor.ID(), old.Type, best.Type)
			}
		}
	}
	return events
}

// bindLocked moves the device into used, the cursor into the active list,
// attaches the visual, and defers the activated notification.
func (m *CursorManager) bindLocked(cursor *Cursor, d *Device) []func() {
	if m.used[d] == cursor {
		return nil
	}
	m.dropUnusedLocked(d)
	m.used[d] = cursor

	for i, c := range m.inactiveCursors {
		if c == cursor {
			m.inactiveCursors = append(m.inactiveCursors[:i], m.inactiveCursors[i+1:]...)
			break
		}
	}
	m.activeCursors = append(m.activeCursors, cursor)

	cursor.bindDevice(d)
	d.Controller().SetCursorDepth(m.cursorDepth * cursor.DepthScale())

	if m.debug {
		log.Printf("gazelle: cursor %q bound to %s device", cursor.ID(), d.Type)
	}

	listeners := m.snapshotActivationLocked()
	sc := m.scene
	return []func(){func() {
		sc.emitEvent(InteractionEvent{Type: EventCursorActivated, CursorID: cursor.ID()})
		for _, l := range listeners {
			l := l
			safeNotify(func() { l.OnCursorActivated(cursor) })
		}
	}}
}

// deactivateLocked unbinds the cursor, moves it to the inactive list, and
// defers the deactivated notification. The device is NOT returned to the
// unused pool; callers decide its fate.
func (m *CursorManager) deactivateLocked(cursor *Cursor) []func() {
	d := cursor.Device()
	if d == nil {
		return nil
	}
	delete(m.used, d)
	cursor.unbindDevice()

	for i, c := range m.activeCursors {
		if c == cursor {
			m.activeCursors = append(m.activeCursors[:i], m.activeCursors[i+1:]...)
			break
		}
	}
	m.inactiveCursors = append(m.inactiveCursors, cursor)

	if m.debug {
		log.Printf("gazelle: cursor %q deactivated", cursor.ID())
	}

	listeners := m.snapshotActivationLocked()
	sc := m.scene
	return []func(){func() {
		sc.emitEvent(InteractionEvent{Type: EventCursorDeactivated, CursorID: cursor.ID()})
		for _, l := range listeners {
			l := l
			safeNotify(func() { l.OnCursorDeactivated(cursor) })
		}
	}}
}

func (m *CursorManager) dropUnusedLocked(d *Device) {
	for i, u := range m.unused {
		if u == d {
			m.unused = append(m.unused[:i], m.unused[i+1:]...)
			return
		}
	}
}

func (m *CursorManager) snapshotActivationLocked() []CursorActivationListener {
	out := make([]CursorActivationListener, len(m.activationListeners))
	copy(out, m.activationListeners)
	return out
}

func (m *CursorManager) snapshotEventLocked() []CursorEventListener {
	out := make([]CursorEventListener, len(m.eventListeners))
	copy(out, m.eventListeners)
	return out
}

// runEvents fires deferred notifications outside the manager lock.
func runEvents(events []func()) {
	for _, ev := range events {
		ev()
	}
}

// --- Touch listener (PickListener) ---

// cursorFor resolves the cursor bound to a controller's device and a
// listener snapshot in one critical section.
func (m *CursorManager) cursorFor(c *Controller) (*Cursor, []CursorEventListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used[c.Device()], m.snapshotEventLocked()
}

// OnEnter implements PickListener. The cursor sitting farther from the
// origin than the hit object reads as presence without priority
// (wireframe); a nearer cursor intersects.
func (m *CursorManager) OnEnter(c *Controller, hit Hit) {
	cursor, listeners := m.cursorFor(c)
	if cursor == nil {
		return
	}
	m.applyProximityVisual(c, cursor, hit)
	m.scene.emitEvent(InteractionEvent{
		Type: EventEnter, NodeID: hit.Object.ID, CursorID: cursor.ID(),
		Distance: hit.Distance, HitPoint: hit.HitPoint,
	})
	for _, l := range listeners {
		l := l
		safeNotify(func() { l.OnCursorEnter(cursor, hit) })
	}
}

// OnInside implements PickListener. While touched it also carries the
// drag notification and the depth-rescale check, then re-runs the enter
// visual logic so the highlight tracks the cursor every frame.
func (m *CursorManager) OnInside(c *Controller, hit Hit) {
	cursor, listeners := m.cursorFor(c)
	if cursor == nil {
		return
	}
	if hit.Touched {
		if depth, ok := m.rescaleNeeded(c, cursor); ok {
			for _, l := range listeners {
				l := l
				safeNotify(func() { l.OnCursorRescale(cursor, depth) })
			}
		}
		for _, l := range listeners {
			l := l
			safeNotify(func() { l.OnCursorDrag(cursor, hit) })
		}
		m.applyProximityVisual(c, cursor, hit)
	}
	m.scene.emitEvent(InteractionEvent{
		Type: EventInside, NodeID: hit.Object.ID, CursorID: cursor.ID(),
		Distance: hit.Distance, HitPoint: hit.HitPoint,
	})
	for _, l := range listeners {
		l := l
		safeNotify(func() { l.OnCursorInside(cursor, hit) })
	}
}

// OnExit implements PickListener.
func (m *CursorManager) OnExit(c *Controller, obj *Node) {
	cursor, listeners := m.cursorFor(c)
	if cursor == nil {
		return
	}
	if sel := obj.Selectable(); sel != nil {
		sel.setState(cursor, StateDefault)
	}
	m.scene.emitEvent(InteractionEvent{Type: EventExit, NodeID: obj.ID, CursorID: cursor.ID()})
	for _, l := range listeners {
		l := l
		safeNotify(func() { l.OnCursorExit(cursor, obj) })
	}
}

// OnTouchStart implements PickListener.
func (m *CursorManager) OnTouchStart(c *Controller, hit Hit) {
	cursor, listeners := m.cursorFor(c)
	if cursor == nil {
		return
	}
	if sel := hit.Object.Selectable(); sel != nil {
		sel.setState(cursor, StatePressed)
	}
	m.scene.emitEvent(InteractionEvent{
		Type: EventTouchStart, NodeID: hit.Object.ID, CursorID: cursor.ID(),
		Distance: hit.Distance, HitPoint: hit.HitPoint,
	})
	for _, l := range listeners {
		l := l
		safeNotify(func() { l.OnCursorTouchStart(cursor, hit) })
	}
}

// OnTouchEnd implements PickListener.
func (m *CursorManager) OnTouchEnd(c *Controller, hit Hit) {
	cursor, listeners := m.cursorFor(c)
	if cursor == nil {
		return
	}
	if hit.Object != nil {
		m.applyProximityVisual(c, cursor, hit)
		m.scene.emitEvent(InteractionEvent{
			Type: EventTouchEnd, NodeID: hit.Object.ID, CursorID: cursor.ID(),
		})
	}
	for _, l := range listeners {
		l := l
		safeNotify(func() { l.OnCursorTouchEnd(cursor, hit) })
	}
}

// OnNoPick implements PickListener.
func (m *CursorManager) OnNoPick(c *Controller) {
	cursor, listeners := m.cursorFor(c)
	if cursor == nil {
		return
	}
	m.scene.emitEvent(InteractionEvent{Type: EventNoPick, CursorID: cursor.ID()})
	for _, l := range listeners {
		l := l
		safeNotify(func() { l.OnCursorNoPick(cursor) })
	}
}

// OnMotionOutside implements PickListener. Depth drift is still corrected
// while pointing at nothing.
func (m *CursorManager) OnMotionOutside(c *Controller, ev MotionEvent) {
	cursor, listeners := m.cursorFor(c)
	if cursor == nil {
		return
	}
	if depth, ok := m.rescaleNeeded(c, cursor); ok {
		for _, l := range listeners {
			l := l
			safeNotify(func() { l.OnCursorRescale(cursor, depth) })
		}
	}
}

// applyProximityVisual picks wireframe vs intersect from the cursor depth
// against the hit distance.
func (m *CursorManager) applyProximityVisual(c *Controller, cursor *Cursor, hit Hit) {
	sel := hit.Object.Selectable()
	if sel == nil {
		return
	}
	if sel.State() == StatePressed && hit.Touched {
		return
	}
	if c.CursorDepth() > hit.Distance {
		sel.setState(cursor, StateWireframe)
	} else {
		sel.setState(cursor, StateIntersect)
	}
}

// rescaleNeeded reports whether the controller's live depth has drifted
// from the cursor's configured depth, and the depth to restore.
func (m *CursorManager) rescaleNeeded(c *Controller, cursor *Cursor) (float64, bool) {
	m.mu.Lock()
	want := m.cursorDepth * cursor.DepthScale()
	m.mu.Unlock()
	if math.Abs(want-c.CursorDepth()) < 1e-9 {
		return 0, false
	}
	return want, true
}
