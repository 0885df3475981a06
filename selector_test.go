package gazelle

import (
	"testing"
)

type recordingSelectListener struct {
	selections [][2]*Controller
}

func (l *recordingSelectListener) OnControllerSelected(selected, previous *Controller) {
	l.selections = append(l.selections, [2]*Controller{selected, previous})
}

func newSelector(t *testing.T, r *Registry, order ...DeviceType) *SingleControllerSelector {
	t.Helper()
	s, err := NewSingleControllerSelector(r, order)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// --- Construction ---

func TestNewSelectorValidation(t *testing.T) {
	if _, err := NewSingleControllerSelector(nil, []DeviceType{DeviceGaze}); err == nil {
		t.Error("nil registry should error")
	}
	r := NewRegistry()
	if _, err := NewSingleControllerSelector(r, nil); err == nil {
		t.Error("empty preference list should error")
	}
	if _, err := NewSingleControllerSelector(r, []DeviceType{DeviceGaze, DeviceGaze}); err == nil {
		t.Error("duplicate types should error")
	}
}

// --- Selection ---

func TestSelectorFirstController(t *testing.T) {
	r := NewRegistry()
	s := newSelector(t, r, DeviceController, DeviceGaze)
	l := &recordingSelectListener{}
	s.AddListener(l)

	gaze := r.AddDevice(1, "headset", 0x1111, 0x2222, SourceKeyboard)
	if s.Selected() != gaze.Controller() {
		t.Fatal("first compatible controller should be selected")
	}
	if !gaze.Controller().Enabled() {
		t.Error("selected controller should be enabled")
	}
	if len(l.selections) != 1 || l.selections[0] != [2]*Controller{gaze.Controller(), nil} {
		t.Errorf("selections = %v", l.selections)
	}
}

func TestSelectorBetterTypeTakesOver(t *testing.T) {
	r := NewRegistry()
	s := newSelector(t, r, DeviceController, DeviceGaze)

	gaze := r.AddDevice(1, "headset", 0x1111, 0x2222, SourceKeyboard)
	ctrl := r.AddDevice(2, "ctrl", 1, 2, SourceController)

	if s.Selected() != ctrl.Controller() {
		t.Fatal("higher-ranked type should take over")
	}
	if gaze.Controller().Enabled() {
		t.Error("displaced controller should be disabled")
	}
	if !ctrl.Controller().Enabled() {
		t.Error("new selection should be enabled")
	}
}

func TestSelectorEqualRankNoTakeover(t *testing.T) {
	r := NewRegistry()
	s := newSelector(t, r, DeviceController, DeviceGaze)
	l := &recordingSelectListener{}
	s.AddListener(l)

	first := r.AddDevice(1, "a", 1, 2, SourceController)
	second := r.AddDevice(2, "b", 3, 4, SourceController)

	if s.Selected() != first.Controller() {
		t.Error("equal rank must not displace the selection")
	}
	if second.Controller().Enabled() {
		t.Error("rejected controller should be disabled")
	}
	if len(l.selections) != 1 {
		t.Errorf("selections = %d, want 1", len(l.selections))
	}
}

func TestSelectorUnrankedTypeIgnored(t *testing.T) {
	r := NewRegistry()
	s := newSelector(t, r, DeviceController)

	r.AddDevice(1, "headset", 0x1111, 0x2222, SourceKeyboard)
	if s.Selected() != nil {
		t.Error("unranked type must not be selected")
	}
}

// --- Removal ---

func TestSelectorFallbackOnRemoval(t *testing.T) {
	r := NewRegistry()
	s := newSelector(t, r, DeviceController, DeviceGaze)
	l := &recordingSelectListener{}
	s.AddListener(l)

	gaze := r.AddDevice(1, "headset", 0x1111, 0x2222, SourceKeyboard)
	r.AddDevice(2, "ctrl", 1, 2, SourceController)

	r.RemoveDevice(2)
	if s.Selected() != gaze.Controller() {
		t.Error("selection should fall back to the best remaining controller")
	}
	if !gaze.Controller().Enabled() {
		t.Error("fallback controller should be re-enabled")
	}
}

func TestSelectorLastControllerRemoved(t *testing.T) {
	r := NewRegistry()
	s := newSelector(t, r, DeviceController)
	l := &recordingSelectListener{}
	s.AddListener(l)

	ctrl := r.AddDevice(1, "ctrl", 1, 2, SourceController)
	r.RemoveDevice(1)

	if s.Selected() != nil {
		t.Error("selection should clear when the last controller vanishes")
	}
	last := l.selections[len(l.selections)-1]
	if last != [2]*Controller{nil, ctrl.Controller()} {
		t.Errorf("final selection = %v, want (nil, prev)", last)
	}
}

func TestSelectorUnselectedRemovalNoChange(t *testing.T) {
	r := NewRegistry()
	s := newSelector(t, r, DeviceController, DeviceGaze)

	r.AddDevice(1, "headset", 0x1111, 0x2222, SourceKeyboard)
	ctrl := r.AddDevice(2, "ctrl", 1, 2, SourceController)

	r.RemoveDevice(1)
	if s.Selected() != ctrl.Controller() {
		t.Error("removing an unselected controller must not change the selection")
	}
}

// --- Replay ---

func TestSelectorSeesExistingControllers(t *testing.T) {
	r := NewRegistry()
	r.AddDevice(1, "headset", 0x1111, 0x2222, SourceKeyboard)
	ctrl := r.AddDevice(2, "ctrl", 1, 2, SourceController)

	s := newSelector(t, r, DeviceController, DeviceGaze)
	if s.Selected() != ctrl.Controller() {
		t.Error("a late selector should settle on the best existing controller")
	}
}
