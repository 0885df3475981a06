package gazelle

import (
	"testing"
)

type pickEvent struct {
	kind string
	obj  *Node
}

type recordingPickListener struct {
	events []pickEvent
}

func (l *recordingPickListener) OnEnter(c *Controller, hit Hit) {
	l.events = append(l.events, pickEvent{"enter", hit.Object})
}
func (l *recordingPickListener) OnInside(c *Controller, hit Hit) {
	l.events = append(l.events, pickEvent{"inside", hit.Object})
}
func (l *recordingPickListener) OnExit(c *Controller, obj *Node) {
	l.events = append(l.events, pickEvent{"exit", obj})
}
func (l *recordingPickListener) OnTouchStart(c *Controller, hit Hit) {
	l.events = append(l.events, pickEvent{"touchstart", hit.Object})
}
func (l *recordingPickListener) OnTouchEnd(c *Controller, hit Hit) {
	l.events = append(l.events, pickEvent{"touchend", hit.Object})
}
func (l *recordingPickListener) OnNoPick(c *Controller) {
	l.events = append(l.events, pickEvent{kind: "nopick"})
}
func (l *recordingPickListener) OnMotionOutside(c *Controller, ev MotionEvent) {
	l.events = append(l.events, pickEvent{kind: "motionoutside"})
}

func (l *recordingPickListener) kinds() []string {
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.kind
	}
	return out
}

func kindsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// pickerFixture wires a controller, scene and listener around one sphere.
func pickerFixture(t *testing.T) (*Controller, *Picker, *recordingPickListener, *Node) {
	t.Helper()
	c := testController()
	scene, target := pickScene(Vec3{0, 0, -5}, 1)
	c.SetScene(scene)
	l := &recordingPickListener{}
	c.Picker().AddListener(l)
	return c, c.Picker(), l, target
}

// process aims the ray at (or away from) the target.
func aim(p *Picker, atTarget, active bool) {
	dir := Vec3{0, 1, 0} // misses everything
	if atTarget {
		dir = Vec3{0, 0, -1}
	}
	p.process(Vec3{}, dir, 0.1, 100, active, nil)
}

// --- Hover lifecycle ---

func TestPickLifecycleOrdering(t *testing.T) {
	_, p, l, target := pickerFixture(t)

	aim(p, true, false)  // enter
	aim(p, true, false)  // inside
	aim(p, true, false)  // inside
	aim(p, false, false) // exit (plus nopick for the empty frame)

	want := []string{"enter", "inside", "inside", "exit", "nopick"}
	if !kindsEqual(l.kinds(), want) {
		t.Errorf("events = %v, want %v", l.kinds(), want)
	}
	for _, e := range l.events[:4] {
		if e.obj != target {
			t.Errorf("event %s targeted %v", e.kind, e.obj)
		}
	}
}

func TestPickNoDuplicateEnter(t *testing.T) {
	_, p, l, _ := pickerFixture(t)

	aim(p, true, false)
	aim(p, true, false)
	aim(p, false, false)
	aim(p, true, false)

	enters := 0
	for i, k := range l.kinds() {
		if k == "enter" {
			enters++
			// Every enter after the first must follow an exit.
			if enters > 1 {
				sawExit := false
				for _, prev := range l.kinds()[:i] {
					if prev == "exit" {
						sawExit = true
					}
				}
				if !sawExit {
					t.Fatal("re-enter without intervening exit")
				}
			}
		}
	}
	if enters != 2 {
		t.Errorf("enters = %d, want 2", enters)
	}
}

// --- Touch sub-state ---

func TestTouchGatedOnActive(t *testing.T) {
	_, p, l, _ := pickerFixture(t)

	aim(p, true, false) // hover only
	aim(p, true, false)
	aim(p, false, false)

	for _, k := range l.kinds() {
		if k == "touchstart" || k == "touchend" {
			t.Fatalf("hover alone produced %s", k)
		}
	}
}

func TestTouchStartEnd(t *testing.T) {
	_, p, l, _ := pickerFixture(t)

	aim(p, true, false) // enter
	aim(p, true, true)  // inside + touchstart
	aim(p, true, true)  // inside (still touched)
	aim(p, true, false) // inside + touchend

	want := []string{"enter", "inside", "touchstart", "inside", "inside", "touchend"}
	if !kindsEqual(l.kinds(), want) {
		t.Errorf("events = %v, want %v", l.kinds(), want)
	}
}

func TestTouchEndBeforeExit(t *testing.T) {
	_, p, l, _ := pickerFixture(t)

	aim(p, true, true)  // enter + touchstart
	aim(p, false, true) // leaves while held: touchend then exit

	want := []string{"enter", "touchstart", "touchend", "exit", "nopick"}
	if !kindsEqual(l.kinds(), want) {
		t.Errorf("events = %v, want %v", l.kinds(), want)
	}
}

func TestTouchedFlagOnHits(t *testing.T) {
	_, p, _, _ := pickerFixture(t)

	aim(p, true, true)
	if len(p.Hits()) != 1 || !p.Hits()[0].Touched {
		t.Error("active pick should mark the hit touched")
	}
	aim(p, true, false)
	if p.Hits()[0].Touched {
		t.Error("inactive pick should clear the touched flag")
	}
}

// --- No-pick / motion outside ---

func TestMotionOutside(t *testing.T) {
	c, p, l, _ := pickerFixture(t)
	_ = c

	p.process(Vec3{}, Vec3{0, 1, 0}, 0.1, 100, false, []MotionEvent{{X: 1}, {X: 2}})

	want := []string{"nopick", "motionoutside", "motionoutside"}
	if !kindsEqual(l.kinds(), want) {
		t.Errorf("events = %v, want %v", l.kinds(), want)
	}
}

func TestMotionInsideNoOutsideEvent(t *testing.T) {
	_, p, l, _ := pickerFixture(t)

	p.process(Vec3{}, Vec3{0, 0, -1}, 0.1, 100, false, []MotionEvent{{X: 1}})
	for _, k := range l.kinds() {
		if k == "motionoutside" || k == "nopick" {
			t.Errorf("hit frame produced %s", k)
		}
	}
}

// --- Scene change ---

func TestSceneChangeFlushesTrackedState(t *testing.T) {
	c, p, l, _ := pickerFixture(t)

	aim(p, true, true) // enter + touchstart
	c.SetScene(NewScene())

	want := []string{"enter", "touchstart", "touchend", "exit"}
	if !kindsEqual(l.kinds(), want) {
		t.Errorf("events = %v, want %v", l.kinds(), want)
	}
}

// --- Listener management ---

func TestPickerRemoveListener(t *testing.T) {
	_, p, l, _ := pickerFixture(t)
	p.RemoveListener(l)
	aim(p, true, false)
	if len(l.events) != 0 {
		t.Error("removed listener must not receive events")
	}
}

type panickyPickListener struct{}

func (panickyPickListener) OnEnter(*Controller, Hit)                 { panic("boom") }
func (panickyPickListener) OnInside(*Controller, Hit)                {}
func (panickyPickListener) OnExit(*Controller, *Node)                {}
func (panickyPickListener) OnTouchStart(*Controller, Hit)            {}
func (panickyPickListener) OnTouchEnd(*Controller, Hit)              {}
func (panickyPickListener) OnNoPick(*Controller)                     {}
func (panickyPickListener) OnMotionOutside(*Controller, MotionEvent) {}

func TestPickListenerPanicIsolation(t *testing.T) {
	c := testController()
	scene, _ := pickScene(Vec3{0, 0, -5}, 1)
	c.SetScene(scene)

	good := &recordingPickListener{}
	c.Picker().AddListener(panickyPickListener{})
	c.Picker().AddListener(good)

	aim(c.Picker(), true, false)
	if !kindsEqual(good.kinds(), []string{"enter"}) {
		t.Errorf("good listener events = %v, want [enter]", good.kinds())
	}
}
