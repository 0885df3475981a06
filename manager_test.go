package gazelle

import (
	"testing"
)

func mustCursor(t *testing.T, id string, compat ...DeviceType) *Cursor {
	t.Helper()
	c, err := NewCursor(id, compat)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func managerFixture(t *testing.T, cursors ...*Cursor) (*CursorManager, *Registry) {
	t.Helper()
	r := NewRegistry()
	m := NewCursorManager(NewScene(), r, cursors)
	return m, r
}

// checkExclusive verifies every known device is in exactly one of the
// used or unused sets.
func checkExclusive(t *testing.T, m *CursorManager, r *Registry) {
	t.Helper()
	unused := make(map[*Device]bool)
	for _, d := range m.UnusedDevices() {
		if unused[d] {
			t.Errorf("device %s appears twice in unused", d.Type)
		}
		unused[d] = true
	}
	for _, c := range r.Controllers() {
		d := c.Device()
		bound := m.CursorForDevice(d) != nil
		if bound == unused[d] {
			t.Errorf("device %s: used=%v unused=%v, want exactly one", d.Type, bound, unused[d])
		}
	}
}

// --- Assignment ---

func TestAssignOnDeviceAdded(t *testing.T) {
	right := mustCursor(t, "right", DeviceController)
	m, r := managerFixture(t, right)

	dev := r.AddDevice(1, "ctrl", 1, 2, SourceController)

	if !right.Active() || right.Device() != dev {
		t.Fatal("cursor should bind the compatible device")
	}
	if m.CursorForDevice(dev) != right {
		t.Error("CursorForDevice should resolve the binding")
	}
	if len(m.UnusedDevices()) != 0 {
		t.Error("bound device must leave the unused pool")
	}
	if len(m.ActiveCursors()) != 1 || len(m.InactiveCursors()) != 0 {
		t.Error("cursor should move from inactive to active")
	}
	if dev.Controller().CursorDepth() != m.GlobalCursorDepth()*right.DepthScale() {
		t.Error("binding should apply the global cursor depth")
	}
	checkExclusive(t, m, r)
}

func TestIncompatibleDeviceStaysUnused(t *testing.T) {
	right := mustCursor(t, "right", DeviceController)
	m, r := managerFixture(t, right)

	r.AddDevice(1, "pad", 1, 2, SourceGamepad)

	if right.Active() {
		t.Error("incompatible device must not bind")
	}
	if len(m.UnusedDevices()) != 1 {
		t.Error("incompatible device should wait in the unused pool")
	}
	checkExclusive(t, m, r)
}

func TestFirstFitInsertionOrder(t *testing.T) {
	m, r := managerFixture(t)
	d1 := r.AddDevice(1, "a", 1, 2, SourceController)
	r.AddDevice(2, "b", 3, 4, SourceController)

	c := mustCursor(t, "c", DeviceController)
	m.AddCursor(c)

	if c.Device() != d1 {
		t.Error("first-fit should pick the earliest-added unused device")
	}
	checkExclusive(t, m, r)
}

func TestLeftRightAssignment(t *testing.T) {
	left := mustCursor(t, "left", DeviceGaze)
	right := mustCursor(t, "right", DeviceController, DeviceGaze)
	m, r := managerFixture(t, left, right)

	gaze := r.AddDevice(1, "headset", 0x1111, 0x2222, SourceKeyboard)
	if left.Device() != gaze {
		t.Fatal("gaze device should go to the first cursor in registration order")
	}
	if right.Active() {
		t.Fatal("right cursor should still be waiting")
	}

	ctrl := r.AddDevice(2, "ctrl", 1, 2, SourceController)
	if right.Device() != ctrl {
		t.Error("controller should bind the remaining cursor")
	}
	checkExclusive(t, m, r)
}

func TestSavedDevicePreference(t *testing.T) {
	c := mustCursor(t, "c", DeviceController)
	m, r := managerFixture(t, c)

	d1 := r.AddDevice(1, "a", 1, 2, SourceController)
	r.AddDevice(2, "b", 3, 4, SourceController)
	if c.Device() != d1 {
		t.Fatal("setup: cursor should hold the first device")
	}

	// Releasing puts d1 behind d2 in the pool; the saved-device
	// preference must still win over insertion order.
	m.DisableCursor(c)
	if c.Active() {
		t.Fatal("disabled cursor must release its device")
	}
	m.EnableCursor(c)
	if c.Device() != d1 {
		t.Errorf("re-enabled cursor bound %v, want the remembered device", c.Device())
	}
	checkExclusive(t, m, r)
}

// --- Rebalance ---

func TestRebalanceUpgrades(t *testing.T) {
	c := mustCursor(t, "c", DeviceController, DeviceGaze)
	m, r := managerFixture(t, c)

	var acts, deacts int
	m.AddActivationListener(countingActivation{&acts, &deacts})

	gaze := r.AddDevice(1, "headset", 0x1111, 0x2222, SourceKeyboard)
	if c.Device() != gaze {
		t.Fatal("setup: gaze bound first")
	}
	ctrl := r.AddDevice(2, "ctrl", 1, 2, SourceController)
	if c.Device() != gaze {
		t.Fatal("plain assignment must not steal from an active cursor")
	}

	m.Rebalance()
	if c.Device() != ctrl {
		t.Error("rebalance should upgrade to the higher-priority device")
	}
	if len(m.UnusedDevices()) != 1 || m.UnusedDevices()[0] != gaze {
		t.Error("displaced device should return to the unused pool")
	}
	if acts != 1 || deacts != 0 {
		t.Errorf("swap fired %d activations, %d deactivations; want 1, 0", acts, deacts)
	}
	checkExclusive(t, m, r)
}

func TestRebalanceEqualPriorityNoSwap(t *testing.T) {
	c := mustCursor(t, "c", DeviceController)
	m, r := managerFixture(t, c)

	d1 := r.AddDevice(1, "a", 1, 2, SourceController)
	r.AddDevice(2, "b", 3, 4, SourceController)

	m.Rebalance()
	if c.Device() != d1 {
		t.Error("equal priority must never swap")
	}
	checkExclusive(t, m, r)
}

func TestRebalanceNoOpWithEmptyPool(t *testing.T) {
	c := mustCursor(t, "c", DeviceController, DeviceGaze)
	m, r := managerFixture(t, c)

	gaze := r.AddDevice(1, "headset", 0x1111, 0x2222, SourceKeyboard)
	m.Rebalance()
	if c.Device() != gaze {
		t.Error("rebalance with nothing to offer must not disturb the binding")
	}
	checkExclusive(t, m, r)
}

// --- Removal ---

func TestControllerRemovedReassigns(t *testing.T) {
	c := mustCursor(t, "c", DeviceController)
	m, r := managerFixture(t, c)

	d1 := r.AddDevice(1, "a", 1, 2, SourceController)
	d2 := r.AddDevice(2, "b", 3, 4, SourceController)
	if c.Device() != d1 {
		t.Fatal("setup")
	}

	r.RemoveDevice(1)
	if c.Device() != d2 {
		t.Error("cursor should fall back to the spare device")
	}
	if len(m.UnusedDevices()) != 0 {
		t.Error("removed device must not linger in the pool")
	}
	checkExclusive(t, m, r)
}

func TestRemovalRequestsScanWhenPoolEmpty(t *testing.T) {
	c := mustCursor(t, "c", DeviceController)
	m, r := managerFixture(t, c)

	scans := 0
	m.SetScanRequester(func() { scans++ })

	r.AddDevice(1, "a", 1, 2, SourceController)
	r.RemoveDevice(1)
	if scans != 1 {
		t.Errorf("scans = %d, want 1 after the pool drained", scans)
	}
}

func TestRemovalOfUnusedDeviceNoScanWhilePoolRemains(t *testing.T) {
	m, r := managerFixture(t)
	scans := 0
	m.SetScanRequester(func() { scans++ })

	r.AddDevice(1, "a", 1, 2, SourceController)
	r.AddDevice(2, "b", 3, 4, SourceController)
	r.RemoveDevice(1)
	if scans != 0 {
		t.Error("scan should only fire once the pool is empty")
	}
}

// --- Enable / disable ---

func TestDisableCursorHandsDeviceOver(t *testing.T) {
	a := mustCursor(t, "a", DeviceController)
	b := mustCursor(t, "b", DeviceController)
	m, r := managerFixture(t, a, b)

	dev := r.AddDevice(1, "ctrl", 1, 2, SourceController)
	if a.Device() != dev {
		t.Fatal("setup")
	}

	m.DisableCursor(a)
	if b.Device() != dev {
		t.Error("released device should flow to the next waiting cursor")
	}
	checkExclusive(t, m, r)
}

// --- Activation listeners ---

type countingActivation struct {
	acts, deacts *int
}

func (l countingActivation) OnCursorActivated(*Cursor)   { *l.acts++ }
func (l countingActivation) OnCursorDeactivated(*Cursor) { *l.deacts++ }

func TestActivationNotifications(t *testing.T) {
	c := mustCursor(t, "c", DeviceController)
	m, r := managerFixture(t, c)

	var acts, deacts int
	m.AddActivationListener(countingActivation{&acts, &deacts})

	r.AddDevice(1, "ctrl", 1, 2, SourceController)
	if acts != 1 {
		t.Errorf("activations = %d, want 1", acts)
	}
	r.RemoveDevice(1)
	if deacts != 1 {
		t.Errorf("deactivations = %d, want 1", deacts)
	}
}

func TestFindCursor(t *testing.T) {
	a := mustCursor(t, "a", DeviceController)
	b := mustCursor(t, "b", DeviceGaze)
	m, r := managerFixture(t, a, b)
	r.AddDevice(1, "ctrl", 1, 2, SourceController)

	if m.FindCursor("a") != a || m.FindCursor("b") != b {
		t.Error("FindCursor should cover both active and inactive cursors")
	}
	if m.FindCursor("nope") != nil {
		t.Error("unknown id should return nil")
	}
}

// --- Settings transfer ---

func TestSettingsCursorTransfer(t *testing.T) {
	main := mustCursor(t, "main", DeviceController)
	settings := mustCursor(t, "settings", DeviceController)
	m, r := managerFixture(t, main)

	dev := r.AddDevice(1, "ctrl", 1, 2, SourceController)
	if main.Device() != dev {
		t.Fatal("setup")
	}

	if !m.EnableSettingsCursor(settings, main) {
		t.Fatal("transfer should start")
	}
	if main.Active() || settings.Device() != dev {
		t.Fatal("device should move onto the settings cursor")
	}
	if m.EnableSettingsCursor(settings, main) {
		t.Error("second transfer while one is in progress should fail")
	}

	// The settings UI narrows the depth range; ending the transfer must
	// restore the original.
	dev.Controller().SetDepthRange(0.5, 10)

	if !m.DisableSettingsCursor(settings) {
		t.Fatal("transfer should end")
	}
	if settings.Active() {
		t.Error("settings cursor should release the device")
	}
	if main.Device() != dev {
		t.Error("device should return to the original cursor")
	}
	near, far := dev.Controller().DepthRange()
	if near != 0.1 || far != 100 {
		t.Errorf("depth range = (%v, %v), want restored defaults", near, far)
	}
	checkExclusive(t, m, r)
}

func TestSettingsTransferRecoversAfterDeviceRemoval(t *testing.T) {
	main := mustCursor(t, "main", DeviceController)
	settings := mustCursor(t, "settings", DeviceController)
	m, r := managerFixture(t, main)

	r.AddDevice(1, "ctrl", 1, 2, SourceController)
	if !m.EnableSettingsCursor(settings, main) {
		t.Fatal("setup: transfer should start")
	}

	// The transfer device unplugs mid-transfer; a replacement arrives.
	r.RemoveDevice(1)
	if settings.Active() {
		t.Fatal("settings cursor should lose the removed device")
	}
	dev2 := r.AddDevice(2, "ctrl", 1, 2, SourceController)
	if main.Device() != dev2 {
		t.Fatal("main cursor should rebind the replacement")
	}

	if !m.EnableSettingsCursor(settings, main) {
		t.Fatal("a new transfer must be possible after the old device was removed")
	}
	if settings.Device() != dev2 {
		t.Error("settings cursor should take the replacement device")
	}
	if !m.DisableSettingsCursor(settings) {
		t.Fatal("the new transfer should end normally")
	}
	if main.Device() != dev2 {
		t.Error("device should return to the main cursor")
	}
	checkExclusive(t, m, r)
}

func TestSettingsTransferFromInactiveCursor(t *testing.T) {
	main := mustCursor(t, "main", DeviceController)
	settings := mustCursor(t, "settings", DeviceController)
	m, _ := managerFixture(t, main)

	if m.EnableSettingsCursor(settings, main) {
		t.Error("transfer from a cursor without a device should fail")
	}
	if m.DisableSettingsCursor(settings) {
		t.Error("ending a transfer that never started should fail")
	}
}

// --- Touch listener ---

type recordingCursorEvents struct {
	CursorEventAdapter
	kinds    []string
	rescales []float64
}

func (l *recordingCursorEvents) OnCursorEnter(*Cursor, Hit)      { l.kinds = append(l.kinds, "enter") }
func (l *recordingCursorEvents) OnCursorInside(*Cursor, Hit)     { l.kinds = append(l.kinds, "inside") }
func (l *recordingCursorEvents) OnCursorExit(*Cursor, *Node)     { l.kinds = append(l.kinds, "exit") }
func (l *recordingCursorEvents) OnCursorTouchStart(*Cursor, Hit) { l.kinds = append(l.kinds, "touchstart") }
func (l *recordingCursorEvents) OnCursorTouchEnd(*Cursor, Hit)   { l.kinds = append(l.kinds, "touchend") }
func (l *recordingCursorEvents) OnCursorDrag(*Cursor, Hit)       { l.kinds = append(l.kinds, "drag") }
func (l *recordingCursorEvents) OnCursorNoPick(*Cursor)          { l.kinds = append(l.kinds, "nopick") }
func (l *recordingCursorEvents) OnCursorRescale(c *Cursor, depth float64) {
	l.kinds = append(l.kinds, "rescale")
	l.rescales = append(l.rescales, depth)
}

// touchFixture builds a manager-driven controller aimed at one
// selectable sphere.
func touchFixture(t *testing.T) (*CursorManager, *Controller, *Selectable, *Cursor, *recordingCursorEvents) {
	t.Helper()
	cursor := mustCursor(t, "c", DeviceController)
	r := NewRegistry()
	scene := NewScene()
	target := sphereNode("target", Vec3{0, 0, -4}, 1)
	sel := NewSelectable()
	target.AttachSelectable(sel)
	scene.Root().AddChild(target)
	scene.AddCollidable(target)

	m := NewCursorManager(scene, r, []*Cursor{cursor})
	events := &recordingCursorEvents{}
	m.AddEventListener(events)

	dev := r.AddDevice(1, "ctrl", 1, 2, SourceController)
	if cursor.Device() != dev {
		t.Fatal("setup: cursor unbound")
	}
	return m, dev.Controller(), sel, cursor, events
}

func pick(c *Controller, atTarget, active bool) {
	dir := Vec3{0, 1, 0}
	if atTarget {
		dir = Vec3{0, 0, -1}
	}
	c.Picker().process(Vec3{}, dir, 0.1, 100, active, nil)
}

func TestEnterAppliesIntersect(t *testing.T) {
	_, c, sel, _, events := touchFixture(t)

	// Cursor depth 1 is nearer than the hit at 3: intersect.
	pick(c, true, false)
	if sel.State() != StateIntersect {
		t.Errorf("state = %v, want intersect", sel.State())
	}
	if len(events.kinds) == 0 || events.kinds[0] != "enter" {
		t.Errorf("events = %v, want enter first", events.kinds)
	}
}

func TestEnterAppliesWireframeWhenCursorBeyondHit(t *testing.T) {
	_, c, sel, _, _ := touchFixture(t)

	// Push the cursor past the object: it reads as presence without
	// contact.
	c.SetCursorDepth(50)
	pick(c, true, false)
	if sel.State() != StateWireframe {
		t.Errorf("state = %v, want wireframe", sel.State())
	}
}

func TestTouchStartPressesSelectable(t *testing.T) {
	_, c, sel, _, events := touchFixture(t)

	pick(c, true, true)
	if sel.State() != StatePressed {
		t.Errorf("state = %v, want pressed", sel.State())
	}
	sawStart := false
	for _, k := range events.kinds {
		if k == "touchstart" {
			sawStart = true
		}
	}
	if !sawStart {
		t.Errorf("events = %v, missing touchstart", events.kinds)
	}

	// Release while still inside: back to the proximity visual.
	pick(c, true, false)
	if sel.State() == StatePressed {
		t.Error("release should leave the pressed state")
	}
}

func TestExitRestoresDefault(t *testing.T) {
	_, c, sel, _, _ := touchFixture(t)

	pick(c, true, false)
	pick(c, false, false)
	if sel.State() != StateDefault {
		t.Errorf("state = %v, want default after exit", sel.State())
	}
}

func TestDragWhileTouched(t *testing.T) {
	_, c, _, _, events := touchFixture(t)

	pick(c, true, true) // enter + touchstart
	pick(c, true, true) // inside, touched: drag
	sawDrag := false
	for _, k := range events.kinds {
		if k == "drag" {
			sawDrag = true
		}
	}
	if !sawDrag {
		t.Errorf("events = %v, missing drag", events.kinds)
	}
}

func TestRescaleOnDepthDrift(t *testing.T) {
	m, c, _, cursor, events := touchFixture(t)

	c.SetCursorDepth(5) // drift away from the configured depth
	c.Picker().process(Vec3{}, Vec3{0, 1, 0}, 0.1, 100, false, []MotionEvent{{X: 1}})

	if len(events.rescales) != 1 {
		t.Fatalf("rescales = %v, want one", events.rescales)
	}
	want := m.GlobalCursorDepth() * cursor.DepthScale()
	if events.rescales[0] != want {
		t.Errorf("rescale depth = %v, want %v", events.rescales[0], want)
	}
}

func TestUnmanagedControllerEventsIgnored(t *testing.T) {
	m, _, _, _, events := touchFixture(t)

	// A controller whose device the manager never saw resolves to no
	// cursor and is dropped.
	stray := testController()
	scene, _ := pickScene(Vec3{0, 0, -5}, 1)
	stray.SetScene(scene)
	stray.Picker().AddListener(m)
	before := len(events.kinds)
	pick(stray, true, false)
	if len(events.kinds) != before {
		t.Error("stray controller must not reach cursor event listeners")
	}
}
