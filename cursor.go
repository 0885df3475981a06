package gazelle

import "fmt"

// deviceIdentity is the hardware identity a cursor remembers across
// rebinding. Logical Device values are recreated on hot-plug, so the
// saved device is compared by identity, not by pointer.
type deviceIdentity struct {
	vendorID   int
	productID  int
	deviceType DeviceType
}

// Cursor is a logical, user-visible pointer. It is bound to at most one
// Device at a time by the CursorManager; a cursor is active exactly while
// it has a bound device. All mutation happens under the manager's lock.
type Cursor struct {
	id      string
	shape   CursorShape
	theme   *Theme
	enabled bool

	// priorities maps device types to preference ranks derived from the
	// configured ordered compatibility list. Higher is preferred;
	// absent/non-positive means incompatible.
	compat     []DeviceType
	priorities map[DeviceType]int

	device   *Device
	saved    deviceIdentity
	savedSet bool

	ownerNode  *Node
	depthScale float64
}

// NewCursor creates a cursor from an ordered device-type compatibility
// list, most preferred first. The list must be non-empty and free of
// duplicates and unknown types.
func NewCursor(id string, compat []DeviceType) (*Cursor, error) {
	if id == "" {
		return nil, fmt.Errorf("cursor: empty id")
	}
	if len(compat) == 0 {
		return nil, fmt.Errorf("cursor %q: empty compatibility list", id)
	}
	priorities := make(map[DeviceType]int, len(compat))
	for i, t := range compat {
		if t == DeviceUnknown {
			return nil, fmt.Errorf("cursor %q: unknown device type at position %d", id, i)
		}
		if _, dup := priorities[t]; dup {
			return nil, fmt.Errorf("cursor %q: duplicate device type %s", id, t)
		}
		// First entry ranks highest.
		priorities[t] = len(compat) - i
	}
	return &Cursor{
		id:         id,
		enabled:    true,
		compat:     append([]DeviceType(nil), compat...),
		priorities: priorities,
		ownerNode:  NewNode("cursor-" + id),
		depthScale: 1,
	}, nil
}

// ID returns the cursor's configured id.
func (c *Cursor) ID() string { return c.id }

// Shape returns the cursor's visual family.
func (c *Cursor) Shape() CursorShape { return c.shape }

// SetShape sets the cursor's visual family.
func (c *Cursor) SetShape(s CursorShape) { c.shape = s }

// Theme returns the cursor's visual theme, or nil.
func (c *Cursor) Theme() *Theme { return c.theme }

// SetTheme sets the cursor's visual theme.
func (c *Cursor) SetTheme(t *Theme) { c.theme = t }

// Enabled reports whether the allocator may bind devices to this cursor.
func (c *Cursor) Enabled() bool { return c.enabled }

// Active reports whether the cursor currently has a bound device.
func (c *Cursor) Active() bool { return c.device != nil }

// Device returns the bound device, or nil while inactive.
func (c *Cursor) Device() *Device { return c.device }

// OwnerNode returns the scene node carrying the cursor's visual.
func (c *Cursor) OwnerNode() *Node { return c.ownerNode }

// DepthScale returns the cursor's configured depth scale.
func (c *Cursor) DepthScale() float64 { return c.depthScale }

// SetDepthScale sets the cursor's depth scale.
func (c *Cursor) SetDepthScale(s float64) {
	if s > 0 {
		c.depthScale = s
	}
}

// Compatibility returns the ordered compatibility list, most preferred
// first. The returned slice MUST NOT be mutated by the caller.
func (c *Cursor) Compatibility() []DeviceType { return c.compat }

// Priority returns the preference rank of a device type for this cursor.
// Higher is preferred; zero or below means incompatible.
func (c *Cursor) Priority(t DeviceType) int {
	return c.priorities[t]
}

// SavedDevice returns the remembered device identity and whether one is
// set.
func (c *Cursor) SavedDevice() (vendorID, productID int, t DeviceType, ok bool) {
	return c.saved.vendorID, c.saved.productID, c.saved.deviceType, c.savedSet
}

// ClearSavedDevice forgets the remembered device.
func (c *Cursor) ClearSavedDevice() {
	c.saved = deviceIdentity{}
	c.savedSet = false
}

// matchesSaved reports whether d is the remembered device.
func (c *Cursor) matchesSaved(d *Device) bool {
	return c.savedSet &&
		c.saved.vendorID == d.VendorID &&
		c.saved.productID == d.ProductID &&
		c.saved.deviceType == d.Type
}

// bindDevice attaches the cursor to a device's controller. Idempotent for
// the same device. A bind that consumes the remembered device clears it;
// the preference is one-shot. Manager lock held.
func (c *Cursor) bindDevice(d *Device) {
	if c.device == d {
		return
	}
	if c.device != nil {
		c.unbindDevice()
	}
	if c.matchesSaved(d) {
		c.saved = deviceIdentity{}
		c.savedSet = false
	}
	c.device = d
	d.Controller().SetCursor(c.ownerNode)
}

// unbindDevice detaches the cursor from its controller, remembering the
// device for the saved-device preference path. Manager lock held.
func (c *Cursor) unbindDevice() {
	if c.device == nil {
		return
	}
	d := c.device
	c.saved = deviceIdentity{vendorID: d.VendorID, productID: d.ProductID, deviceType: d.Type}
	c.savedSet = true
	if d.Controller().CursorNode() == c.ownerNode {
		d.Controller().SetCursor(nil)
	}
	c.device = nil
}
