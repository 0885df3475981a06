package gazelle

import (
	"log"
	"sync"
)

// --- Source flags ---

// SourceFlags describe what a raw platform device reports itself as.
// Several bits may be set at once (a controller with a touchpad, a
// keyboard with pointer buttons).
type SourceFlags uint32

const (
	SourceKeyboard SourceFlags = 1 << iota
	SourceMouse
	SourceTouchpad
	SourceTouchscreen
	SourceGamepad
	SourceJoystick
	SourceController
)

// Built-in headset touchpad identity. Raw devices carrying it (or the
// null identity) alias to the shared gaze pointer.
const (
	builtinTouchpadVendorID  = 1256
	builtinTouchpadProductID = 42240
)

// ClassifyDevice maps a raw device's source flags and vendor/product
// identity to a logical device type. Gamepad or joystick sources win over
// everything else; keyboard/touchpad and mouse sources fall back to gaze
// when the identity is the built-in touchpad or the null identity.
func ClassifyDevice(source SourceFlags, vendorID, productID int) DeviceType {
	switch {
	case source&(SourceGamepad|SourceJoystick) != 0:
		return DeviceGamepad
	case source&SourceController != 0:
		return DeviceController
	case source&(SourceTouchpad|SourceTouchscreen) != 0:
		if isBuiltinIdentity(vendorID, productID) {
			return DeviceGaze
		}
		return DeviceWearTouchpad
	case source&SourceKeyboard != 0:
		// Headsets surface their trigger as a one-key keyboard.
		return DeviceGaze
	case source&SourceMouse != 0:
		if isBuiltinIdentity(vendorID, productID) {
			return DeviceGaze
		}
		return DeviceMouse
	default:
		return DeviceUnknown
	}
}

func isBuiltinIdentity(vendorID, productID int) bool {
	if vendorID == 0 && productID == 0 {
		return true
	}
	return vendorID == builtinTouchpadVendorID && productID == builtinTouchpadProductID
}

// --- Device ---

// Device is the logical identity of a physical input source. Multiple raw
// platform ids may alias one Device; gaze devices additionally collapse
// across identities to a single system-wide Device.
type Device struct {
	VendorID  int
	ProductID int
	Name      string
	Type      DeviceType

	controller *Controller
	refs       int
}

// Controller returns the runtime controller bound to this device.
func (d *Device) Controller() *Controller {
	return d.controller
}

// cacheKey builds the composite dedup key over the device identity.
func cacheKey(vendorID, productID int, t DeviceType) int64 {
	return (int64(vendorID)*31+int64(productID))*31 + int64(t)
}

// --- Registry ---

// ConnectionListener receives controller hot-plug notifications.
type ConnectionListener interface {
	ControllerAdded(c *Controller)
	ControllerRemoved(c *Controller)
}

// Registry tracks logical devices, deduplicates raw platform ids onto
// them, and owns the resulting controllers. All methods are safe for
// concurrent use; hot-plug notifications run synchronously on the
// goroutine calling AddDevice/RemoveDevice. Listeners that wire scene or
// picker state into a new controller (the CursorManager does) therefore
// require device addition and removal to happen on the thread that runs
// controller updates, as the ebiten driver's Poll does.
type Registry struct {
	mu sync.Mutex

	devices  map[int64]*Device
	rawToDev map[int]*Device
	gaze     *Device

	listeners  []ConnectionListener
	nextCtrlID int
	debug      bool
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		devices:  make(map[int64]*Device),
		rawToDev: make(map[int]*Device),
	}
}

// SetDebugMode enables hot-plug logging.
func (r *Registry) SetDebugMode(enabled bool) {
	r.mu.Lock()
	r.debug = enabled
	r.mu.Unlock()
}

// AddListener registers a hot-plug listener. Already-connected controllers
// are replayed to it immediately.
func (r *Registry) AddListener(l ConnectionListener) {
	if l == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	existing := make([]*Controller, 0, len(r.devices))
	for _, d := range r.devices {
		existing = append(existing, d.controller)
	}
	r.mu.Unlock()
	for _, c := range existing {
		notifyAdded([]ConnectionListener{l}, c)
	}
}

// RemoveListener unregisters a hot-plug listener.
func (r *Registry) RemoveListener(l ConnectionListener) {
	r.mu.Lock()
	for i, cur := range r.listeners {
		if cur == l {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
}

// AddDevice maps a raw platform device onto a logical Device, creating the
// Device and its Controller on first sight. Re-adding a known raw id is a
// no-op returning the existing device.
func (r *Registry) AddDevice(rawID int, name string, vendorID, productID int, source SourceFlags) *Device {
	t := ClassifyDevice(source, vendorID, productID)
	return r.addClassified(rawID, name, vendorID, productID, t)
}

// AddExternalDevice registers an application-provided device with an
// explicit type, bypassing source classification.
func (r *Registry) AddExternalDevice(rawID int, name string, vendorID, productID int, t DeviceType) *Device {
	return r.addClassified(rawID, name, vendorID, productID, t)
}

func (r *Registry) addClassified(rawID int, name string, vendorID, productID int, t DeviceType) *Device {
	r.mu.Lock()

	if d, ok := r.rawToDev[rawID]; ok {
		r.mu.Unlock()
		return d
	}

	var dev *Device
	created := false

	if t == DeviceGaze {
		// Single shared gaze device, reference counted across raw ids.
		if r.gaze == nil {
			r.gaze = r.newDeviceLocked(name, vendorID, productID, t)
			created = true
		}
		dev = r.gaze
	} else {
		key := cacheKey(vendorID, productID, t)
		if d, ok := r.devices[key]; ok {
			dev = d
		} else {
			dev = r.newDeviceLocked(name, vendorID, productID, t)
			r.devices[key] = dev
			created = true
		}
	}

	dev.refs++
	r.rawToDev[rawID] = dev

	listeners := snapshotListeners(r.listeners)
	debug := r.debug
	r.mu.Unlock()

	if debug {
		log.Printf("gazelle: device add raw=%d type=%s refs=%d created=%v", rawID, dev.Type, dev.refs, created)
	}
	if created {
		notifyAdded(listeners, dev.controller)
	}
	return dev
}

func (r *Registry) newDeviceLocked(name string, vendorID, productID int, t DeviceType) *Device {
	d := &Device{
		VendorID:  vendorID,
		ProductID: productID,
		Name:      name,
		Type:      t,
	}
	r.nextCtrlID++
	d.controller = newController(r.nextCtrlID, d)
	return d
}

// RemoveDevice unmaps a raw platform device. The logical Device (and its
// Controller) is destroyed only when the last aliasing raw id is removed.
// Returns false if the raw id is unknown; double removal is a no-op.
func (r *Registry) RemoveDevice(rawID int) bool {
	r.mu.Lock()
	dev, ok := r.rawToDev[rawID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.rawToDev, rawID)
	dev.refs--
	destroyed := dev.refs <= 0
	if destroyed {
		if dev == r.gaze {
			r.gaze = nil
		} else {
			delete(r.devices, cacheKey(dev.VendorID, dev.ProductID, dev.Type))
		}
	}
	listeners := snapshotListeners(r.listeners)
	debug := r.debug
	r.mu.Unlock()

	if debug {
		log.Printf("gazelle: device remove raw=%d type=%s refs=%d destroyed=%v", rawID, dev.Type, dev.refs, destroyed)
	}
	if destroyed {
		dev.controller.close()
		notifyRemoved(listeners, dev.controller)
	}
	return true
}

// Device returns the logical device a raw platform id maps to, or nil.
func (r *Registry) Device(rawID int) *Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rawToDev[rawID]
}

// Controllers returns a snapshot of every live controller.
func (r *Registry) Controllers() []*Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Controller, 0, len(r.devices)+1)
	for _, d := range r.devices {
		out = append(out, d.controller)
	}
	if r.gaze != nil {
		out = append(out, r.gaze.controller)
	}
	return out
}

// DispatchKey routes a raw key event to the controller owning the raw id.
// Returns whether the event was consumed.
func (r *Registry) DispatchKey(ev KeyEvent) bool {
	r.mu.Lock()
	dev := r.rawToDev[ev.RawDeviceID]
	r.mu.Unlock()
	if dev == nil {
		return false
	}
	return dev.controller.DispatchKey(ev)
}

// DispatchMotion routes a raw motion event to the controller owning the
// raw id. Returns whether the event was consumed.
func (r *Registry) DispatchMotion(ev MotionEvent) bool {
	r.mu.Lock()
	dev := r.rawToDev[ev.RawDeviceID]
	r.mu.Unlock()
	if dev == nil {
		return false
	}
	return dev.controller.DispatchMotion(ev)
}

// --- Dispatch helpers ---

func snapshotListeners(ls []ConnectionListener) []ConnectionListener {
	out := make([]ConnectionListener, len(ls))
	copy(out, ls)
	return out
}

func notifyAdded(ls []ConnectionListener, c *Controller) {
	for _, l := range ls {
		safeNotify(func() { l.ControllerAdded(c) })
	}
}

func notifyRemoved(ls []ConnectionListener, c *Controller) {
	for _, l := range ls {
		safeNotify(func() { l.ControllerRemoved(c) })
	}
}

// safeNotify isolates listener panics so one failing listener cannot stop
// the rest from being notified.
func safeNotify(fn func()) {
	defer func() {
		if err := recover(); err != nil {
			log.Printf("gazelle: listener panic: %v", err)
		}
	}()
	fn()
}
