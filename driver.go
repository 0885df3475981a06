package gazelle

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Raw id layout for the ebiten driver. Gamepads occupy a range so several
// can coexist with the fixed mouse and touch ids.
const (
	rawMouseID      = 1
	rawTouchID      = 2
	rawGamepadBase  = 100
	mouseVendorID   = 0x045e
	mouseProductID  = 0x0040
	gamepadVendorID = 0x054c
)

// EbitenDriver polls ebiten input state once per frame and feeds it into
// a Registry as device hot-plug and key/motion events. It is the desktop
// realization of the raw input collaborator: gamepads hot-plug through
// ebiten's gamepad API, the mouse maps to a MOUSE device, and touches
// alias onto the shared gaze pointer.
//
// Call Poll from the game's Update function, on the same thread that runs
// controller updates.
type EbitenDriver struct {
	registry *Registry

	mouseAdded bool
	touchAdded bool
	gamepads   []ebiten.GamepadID
	touchIDs   []ebiten.TouchID
	scanNeeded bool
}

// NewEbitenDriver creates a driver feeding the registry.
func NewEbitenDriver(registry *Registry) *EbitenDriver {
	if registry == nil {
		panic("gazelle: driver needs a registry")
	}
	return &EbitenDriver{registry: registry}
}

// RequestScan asks the driver to re-enumerate devices on the next Poll.
// Wire it to CursorManager.SetScanRequester.
func (d *EbitenDriver) RequestScan() {
	d.scanNeeded = true
}

// Poll reads the current ebiten input state, updating device presence and
// dispatching events for everything that changed since the last call.
func (d *EbitenDriver) Poll() {
	d.pollMouse()
	d.pollGamepads()
	d.pollTouches()
	d.scanNeeded = false
}

func (d *EbitenDriver) pollMouse() {
	if !d.mouseAdded || d.scanNeeded {
		d.registry.AddDevice(rawMouseID, "mouse", mouseVendorID, mouseProductID, SourceMouse)
		d.mouseAdded = true
	}
	dev := d.registry.Device(rawMouseID)
	if dev == nil {
		return
	}
	ctrl := dev.Controller()

	mx, my := ebiten.CursorPosition()
	d.registry.DispatchMotion(MotionEvent{RawDeviceID: rawMouseID, X: float64(mx), Y: float64(my)})

	for _, btn := range []ebiten.MouseButton{ebiten.MouseButtonLeft, ebiten.MouseButtonRight, ebiten.MouseButtonMiddle} {
		if inpututil.IsMouseButtonJustPressed(btn) {
			d.registry.DispatchKey(KeyEvent{RawDeviceID: rawMouseID, Code: int(btn), Action: KeyDown})
		}
		if inpututil.IsMouseButtonJustReleased(btn) {
			d.registry.DispatchKey(KeyEvent{RawDeviceID: rawMouseID, Code: int(btn), Action: KeyUp})
		}
	}
	ctrl.SetActive(ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft))
}

func (d *EbitenDriver) pollGamepads() {
	for _, id := range inpututil.AppendJustConnectedGamepadIDs(nil) {
		raw := rawGamepadBase + int(id)
		d.registry.AddDevice(raw, ebiten.GamepadName(id), gamepadVendorID, int(id), SourceGamepad)
	}
	if d.scanNeeded {
		// Rescan catches pads that connected while nothing consumed the
		// just-connected signal.
		for _, id := range ebiten.AppendGamepadIDs(d.gamepads[:0]) {
			raw := rawGamepadBase + int(id)
			if d.registry.Device(raw) == nil {
				d.registry.AddDevice(raw, ebiten.GamepadName(id), gamepadVendorID, int(id), SourceGamepad)
			}
		}
	}

	d.gamepads = ebiten.AppendGamepadIDs(d.gamepads[:0])
	for _, id := range d.gamepads {
		raw := rawGamepadBase + int(id)
		if inpututil.IsGamepadJustDisconnected(id) {
			d.registry.RemoveDevice(raw)
			continue
		}
		dev := d.registry.Device(raw)
		if dev == nil {
			continue
		}
		ctrl := dev.Controller()

		maxButton := ebiten.GamepadButton(ebiten.GamepadButtonCount(id))
		for b := ebiten.GamepadButton0; b < maxButton; b++ {
			if inpututil.IsGamepadButtonJustPressed(id, b) {
				d.registry.DispatchKey(KeyEvent{RawDeviceID: raw, Code: int(b), Action: KeyDown})
			}
			if inpututil.IsGamepadButtonJustReleased(id, b) {
				d.registry.DispatchKey(KeyEvent{RawDeviceID: raw, Code: int(b), Action: KeyUp})
			}
		}
		if ebiten.GamepadAxisCount(id) >= 2 {
			d.registry.DispatchMotion(MotionEvent{
				RawDeviceID: raw,
				X:           ebiten.GamepadAxisValue(id, 0),
				Y:           ebiten.GamepadAxisValue(id, 1),
			})
		}
		ctrl.SetActive(ebiten.IsGamepadButtonPressed(id, ebiten.GamepadButton0))
	}
}

func (d *EbitenDriver) pollTouches() {
	d.touchIDs = ebiten.AppendTouchIDs(d.touchIDs[:0])
	if len(d.touchIDs) == 0 {
		if d.touchAdded {
			if dev := d.registry.Device(rawTouchID); dev != nil {
				dev.Controller().SetActive(false)
			}
		}
		return
	}

	// Touches share the gaze pointer: the built-in identity collapses all
	// touch ids onto the single refcounted gaze device.
	if !d.touchAdded {
		d.registry.AddDevice(rawTouchID, "touchscreen", builtinTouchpadVendorID, builtinTouchpadProductID, SourceTouchscreen)
		d.touchAdded = true
	}
	tx, ty := ebiten.TouchPosition(d.touchIDs[0])
	d.registry.DispatchMotion(MotionEvent{RawDeviceID: rawTouchID, X: float64(tx), Y: float64(ty)})
	if dev := d.registry.Device(rawTouchID); dev != nil {
		dev.Controller().SetActive(true)
	}
}
