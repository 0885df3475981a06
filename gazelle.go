package gazelle

// DeviceType classifies the physical input source behind a logical Device.
type DeviceType uint8

const (
	DeviceUnknown      DeviceType = iota // unclassifiable platform device
	DeviceGaze                           // head-gaze pointer (shared, reference counted)
	DeviceController                     // hand-held 3-DoF/6-DoF controller
	DeviceMouse                          // desktop mouse
	DeviceGamepad                        // gamepad / joystick
	DeviceWearTouchpad                   // wearable touchpad (watch)
	DeviceExternal                       // externally registered device with custom behavior
)

// String returns the settings-file name of the device type.
func (t DeviceType) String() string {
	switch t {
	case DeviceGaze:
		return "gaze"
	case DeviceController:
		return "controller"
	case DeviceMouse:
		return "mouse"
	case DeviceGamepad:
		return "gamepad"
	case DeviceWearTouchpad:
		return "weartouchpad"
	case DeviceExternal:
		return "external"
	default:
		return "unknown"
	}
}

// ParseDeviceType converts a settings-file name back to a DeviceType.
// Unrecognized names map to DeviceUnknown.
func ParseDeviceType(s string) DeviceType {
	switch s {
	case "gaze":
		return DeviceGaze
	case "controller":
		return DeviceController
	case "mouse":
		return DeviceMouse
	case "gamepad":
		return DeviceGamepad
	case "weartouchpad":
		return DeviceWearTouchpad
	case "external":
		return DeviceExternal
	default:
		return DeviceUnknown
	}
}

// CursorControl selects how a controller positions its visual cursor
// relative to pick results each update.
type CursorControl uint8

const (
	CursorControlNone          CursorControl = iota // controller never moves the cursor
	CursorConstantDepth                             // cursor held at a fixed depth along the pick ray
	CursorProjectOnSurface                          // cursor moved to the nearest hit point
	CursorOrientOnSurface                           // hit point placement plus surface-normal orientation
	CursorDepthFromController                       // constant depth driven by the controller itself
)

// CursorShape distinguishes the two families of cursor visuals.
type CursorShape uint8

const (
	ShapeLaser  CursorShape = iota // ray-style cursor projected on surfaces
	ShapeObject                    // volumetric cursor positioned by the controller
)

// VisualState is the feedback state a Selectable presents for a cursor.
type VisualState uint8

const (
	StateDefault   VisualState = iota // no cursor interaction
	StateWireframe                    // cursor present but behind the object
	StateIntersect                    // cursor intersecting the object
	StatePressed                      // active button held while inside
)

// KeyAction distinguishes press from release in a KeyEvent.
type KeyAction uint8

const (
	KeyDown KeyAction = iota // button pressed
	KeyUp                    // button released
)

// KeyEvent is a typed button press/release delivered by a raw input source.
type KeyEvent struct {
	RawDeviceID int
	Code        int
	Action      KeyAction
}

// MotionEvent is a positional/axis sample delivered by a raw input source.
// X, Y and Z are interpreted by the device driver that produced them; for
// pointing devices they are the controller-space position of the pointer.
type MotionEvent struct {
	RawDeviceID int
	X, Y, Z     float64
}

// barySentinel marks barycentric coordinates that were not computed for a
// hit. Colliders that do not support barycentric picking report it.
var barySentinel = Vec3{X: -1, Y: -1, Z: -1}

// BarySentinel returns the sentinel value used for unavailable barycentric
// coordinates.
func BarySentinel() Vec3 { return barySentinel }
