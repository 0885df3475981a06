package gazelle

import "sync"

// worldUp is the reference up axis for surface-normal cursor orientation.
var worldUp = Vec3{Y: 1}

// ControllerEventListener receives a notification after every controller
// update cycle, with the active (button held) state that cycle observed.
type ControllerEventListener interface {
	OnControllerEvent(c *Controller, active bool)
}

// Controller is the runtime binding of one logical Device to pick and
// cursor state. Raw events may be queued from an input thread while the
// frame thread runs Update; the pending queues have their own lock so
// event delivery never serializes behind cursor transform work.
type Controller struct {
	id     int
	device *Device

	// queueMu guards only the pending event buffers.
	queueMu       sync.Mutex
	keyPending    []KeyEvent
	motionPending []MotionEvent

	// Drained snapshots, touched only by Update.
	keyProcessed    []KeyEvent
	motionProcessed []MotionEvent

	// cursorMu guards everything below. Lock order: cursorMu before
	// queueMu, and queueMu is never held across a scene graph call.
	cursorMu      sync.Mutex
	scene         *Scene
	dragRoot      *Node
	cursorScale   *Node
	cursorNode    *Node
	dragged       *Node
	enabled       bool
	active        bool
	prevActive    bool
	sendToApp     bool
	cursorControl CursorControl
	cursorDepth   float64
	nearDepth     float64
	farDepth      float64

	picker    *Picker
	listeners []ControllerEventListener
}

// newController is called by the Registry when a logical device appears.
func newController(id int, device *Device) *Controller {
	c := &Controller{
		id:            id,
		device:        device,
		enabled:       true,
		cursorControl: CursorProjectOnSurface,
		cursorDepth:   1,
		nearDepth:     0.1,
		farDepth:      100,
	}
	c.dragRoot = NewNode("controller-drag-root")
	c.cursorScale = NewNode("controller-cursor-scale")
	c.dragRoot.AddChild(c.cursorScale)
	c.picker = newPicker(c)
	return c
}

// ID returns the registry-assigned controller id.
func (c *Controller) ID() int { return c.id }

// Device returns the logical device this controller is bound to.
func (c *Controller) Device() *Device { return c.device }

// Picker returns the controller's picker.
func (c *Controller) Picker() *Picker { return c.picker }

// DragRoot returns the node the cursor visual and dragged objects hang
// under. It is reparented under the bound scene's camera rig.
func (c *Controller) DragRoot() *Node { return c.dragRoot }

// --- Event ingestion ---

// DispatchKey queues a key event for the next update cycle. Returns
// whether the event was consumed (false when the application asked for
// raw platform delivery).
func (c *Controller) DispatchKey(ev KeyEvent) bool {
	c.queueMu.Lock()
	c.keyPending = append(c.keyPending, ev)
	c.queueMu.Unlock()
	return !c.SendEventsToApp()
}

// DispatchMotion queues a motion event for the next update cycle. Returns
// whether the event was consumed.
func (c *Controller) DispatchMotion(ev MotionEvent) bool {
	c.queueMu.Lock()
	c.motionPending = append(c.motionPending, ev)
	c.queueMu.Unlock()
	return !c.SendEventsToApp()
}

// SetSendEventsToApp asks for raw events to also reach the application;
// dispatch then reports them unconsumed.
func (c *Controller) SetSendEventsToApp(send bool) {
	c.cursorMu.Lock()
	c.sendToApp = send
	c.cursorMu.Unlock()
}

// SendEventsToApp reports whether raw events are forwarded unconsumed.
func (c *Controller) SendEventsToApp() bool {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	return c.sendToApp
}

// KeyEvents returns the key events drained by the most recent update.
// Valid until the next Update call.
func (c *Controller) KeyEvents() []KeyEvent { return c.keyProcessed }

// MotionEvents returns the motion events drained by the most recent
// update. Valid until the next Update call.
func (c *Controller) MotionEvents() []MotionEvent { return c.motionProcessed }

// --- State ---

// SetActive sets the button-pressed flag consumed by the next update.
// Ignored while the controller is disabled.
func (c *Controller) SetActive(active bool) {
	c.cursorMu.Lock()
	if c.enabled {
		c.active = active
	}
	c.cursorMu.Unlock()
}

// Active reports the button-pressed flag.
func (c *Controller) Active() bool {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	return c.active
}

// SetEnable enables or disables the controller. Disabling clears pending
// events and the active flag. Idempotent.
func (c *Controller) SetEnable(enabled bool) {
	c.cursorMu.Lock()
	if c.enabled == enabled {
		c.cursorMu.Unlock()
		return
	}
	c.enabled = enabled
	if !enabled {
		c.active = false
	}
	c.cursorMu.Unlock()
	if !enabled {
		c.queueMu.Lock()
		c.keyPending = c.keyPending[:0]
		c.motionPending = c.motionPending[:0]
		c.queueMu.Unlock()
	}
}

// Enabled reports whether the controller participates in updates.
func (c *Controller) Enabled() bool {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	return c.enabled
}

// SetPosition moves the controller origin and, if enabled, immediately
// runs an update cycle so the cursor tracks without waiting for a frame.
func (c *Controller) SetPosition(p Vec3) {
	c.cursorMu.Lock()
	c.dragRoot.SetPosition(p)
	enabled := c.enabled
	c.cursorMu.Unlock()
	if enabled {
		c.Update()
	}
}

// Position returns the controller origin in drag-root local space.
func (c *Controller) Position() Vec3 {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	return c.dragRoot.Position
}

// SetOrientation rotates the controller's pick direction.
func (c *Controller) SetOrientation(q Quat) {
	c.cursorMu.Lock()
	c.dragRoot.SetRotation(q)
	c.cursorMu.Unlock()
}

// --- Depth and cursor policy ---

// SetCursorControl selects how pick hits move the visual cursor.
func (c *Controller) SetCursorControl(cc CursorControl) {
	c.cursorMu.Lock()
	c.cursorControl = cc
	c.cursorMu.Unlock()
}

// CursorControl returns the active cursor policy.
func (c *Controller) CursorControl() CursorControl {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	return c.cursorControl
}

// SetCursorDepth sets the constant cursor depth along the pick direction.
// Values are clamped into [near, far].
func (c *Controller) SetCursorDepth(depth float64) {
	c.cursorMu.Lock()
	if depth < c.nearDepth {
		depth = c.nearDepth
	}
	if depth > c.farDepth {
		depth = c.farDepth
	}
	c.cursorDepth = depth
	c.cursorMu.Unlock()
}

// CursorDepth returns the constant cursor depth.
func (c *Controller) CursorDepth() float64 {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	return c.cursorDepth
}

// SetDepthRange sets the near/far pick clip distances.
func (c *Controller) SetDepthRange(near, far float64) {
	c.cursorMu.Lock()
	c.nearDepth, c.farDepth = near, far
	c.cursorMu.Unlock()
}

// DepthRange returns the near/far pick clip distances.
func (c *Controller) DepthRange() (near, far float64) {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	return c.nearDepth, c.farDepth
}

// --- Scene and cursor attachment ---

// SetScene rebinds the controller to a scene, reparenting the drag root
// under the new scene's camera rig. A nil scene detaches entirely.
// The picker rebind runs outside cursorMu: flushing tracked objects
// dispatches listeners, and listeners may call back into the controller.
func (c *Controller) SetScene(s *Scene) {
	c.cursorMu.Lock()
	c.dragRoot.RemoveFromParent()
	c.scene = s
	if s != nil {
		s.CameraRig().AddChild(c.dragRoot)
	}
	c.cursorMu.Unlock()
	c.picker.setScene(s)
}

// Scene returns the bound scene, or nil.
func (c *Controller) Scene() *Scene {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	return c.scene
}

// SetCursor attaches a visual cursor node. At most one cursor is attached
// at a time; any previous visual is detached first. A nil node detaches.
func (c *Controller) SetCursor(node *Node) {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	if c.cursorNode == node {
		return
	}
	if c.cursorNode != nil {
		c.cursorScale.RemoveChild(c.cursorNode)
	}
	c.cursorNode = node
	if node != nil {
		node.RemoveFromParent()
		c.cursorScale.AddChild(node)
		node.SetPosition(Vec3{Z: -c.cursorDepth})
	}
}

// CursorNode returns the attached visual cursor node, or nil.
func (c *Controller) CursorNode() *Node {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	return c.cursorNode
}

// --- Update cycle ---

// AddListener registers a per-update listener.
func (c *Controller) AddListener(l ControllerEventListener) {
	if l == nil {
		return
	}
	c.cursorMu.Lock()
	c.listeners = append(c.listeners, l)
	c.cursorMu.Unlock()
}

// RemoveListener unregisters a per-update listener.
func (c *Controller) RemoveListener(l ControllerEventListener) {
	c.cursorMu.Lock()
	for i, cur := range c.listeners {
		if cur == l {
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			break
		}
	}
	c.cursorMu.Unlock()
}

// Update runs one controller cycle: drain the pending queues, snapshot
// the active state, pick against the bound scene, reposition the cursor
// for the nearest hit, and notify listeners. Must be called from a single
// thread per controller; event writers may be a different thread.
func (c *Controller) Update() {
	c.queueMu.Lock()
	c.keyProcessed = append(c.keyProcessed[:0], c.keyPending...)
	c.motionProcessed = append(c.motionProcessed[:0], c.motionPending...)
	c.keyPending = c.keyPending[:0]
	c.motionPending = c.motionPending[:0]
	c.queueMu.Unlock()

	c.cursorMu.Lock()
	c.prevActive = c.active
	active := c.active
	scene := c.scene
	enabled := c.enabled
	origin := c.dragRoot.WorldPosition()
	dir := c.dragRoot.WorldMatrix().TransformDir(Vec3{Z: -1}).Normalize()
	near, far := c.nearDepth, c.farDepth
	motions := c.motionProcessed
	c.cursorMu.Unlock()

	if enabled && scene != nil {
		c.picker.process(origin, dir, near, far, active, motions)

		c.cursorMu.Lock()
		if hits := c.picker.Hits(); len(hits) > 0 {
			c.updateCursorLocked(hits[0])
		} else {
			c.moveCursorLocked()
		}
		c.cursorMu.Unlock()
	}

	c.cursorMu.Lock()
	listeners := make([]ControllerEventListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.cursorMu.Unlock()
	for _, l := range listeners {
		l := l
		safeNotify(func() { l.OnControllerEvent(c, active) })
	}
}

// Invalidate forces an update cycle without new input, for when the scene
// graph changed underneath the controller.
func (c *Controller) Invalidate() {
	c.Update()
}

// updateCursorLocked applies the cursor-control policy for the nearest
// hit. Caller holds cursorMu.
func (c *Controller) updateCursorLocked(hit Hit) {
	switch c.cursorControl {
	case CursorControlNone:
	case CursorConstantDepth, CursorDepthFromController:
		c.moveCursorLocked()
	case CursorProjectOnSurface:
		c.projectCursorLocked(hit)
	case CursorOrientOnSurface:
		c.projectCursorLocked(hit)
		c.orientCursorLocked(hit)
	}
}

// moveCursorLocked places the cursor at the constant depth along the pick
// direction with unit scale. Caller holds cursorMu.
func (c *Controller) moveCursorLocked() {
	if c.cursorNode == nil {
		return
	}
	c.cursorScale.SetScale(Vec3{1, 1, 1})
	c.cursorScale.SetRotation(QuatIdentity())
	c.cursorNode.SetPosition(Vec3{Z: -c.cursorDepth})
	c.cursorNode.SetRotation(QuatIdentity())
}

// projectCursorLocked pushes the cursor onto the hit surface by scaling
// the depth node. Hits against the controller's own drag-root subtree are
// the cursor picking itself; those fall back to constant depth so the
// cursor cannot chase its own visual.
func (c *Controller) projectCursorLocked(hit Hit) {
	if c.cursorNode == nil {
		return
	}
	if hit.Object != nil && hit.Object.IsDescendantOf(c.dragRoot) {
		c.moveCursorLocked()
		return
	}
	if c.cursorDepth <= 0 {
		return
	}
	ratio := hit.Distance / c.cursorDepth
	c.cursorScale.SetScale(Vec3{ratio, ratio, ratio})
	c.cursorNode.SetPosition(Vec3{Z: -c.cursorDepth})
}

// orientCursorLocked aligns the cursor with the hit surface normal. Hits
// without barycentric data (sentinel coordinates) carry no reliable
// interpolated normal and are skipped.
func (c *Controller) orientCursorLocked(hit Hit) {
	if c.cursorNode == nil || hit.Object == nil {
		return
	}
	if hit.Barycentric == barySentinel {
		return
	}
	normal := hit.Normal.Normalize()
	xAxis := worldUp.Cross(normal)
	if xAxis.Length() < 1e-9 {
		xAxis = Vec3{X: 1}
	}
	xAxis = xAxis.Normalize()
	yAxis := normal.Cross(xAxis)
	frame := QuatFromBasis(xAxis, yAxis, normal)

	parentRot := c.cursorScale.WorldRotation()
	objRot := hit.Object.WorldRotation()
	c.cursorNode.SetRotation(parentRot.Invert().Mul(objRot).Mul(frame))
}

// --- Drag ---

// StartDrag reparents obj under the controller's drag root, preserving
// its world transform, so it follows the controller. Returns false if a
// drag is already active. Panics on a nil object.
func (c *Controller) StartDrag(obj *Node) bool {
	if obj == nil {
		panic("gazelle: cannot drag nil object")
	}
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	if c.dragged != nil {
		return false
	}
	local := c.dragRoot.WorldMatrix().Invert().Mul(obj.WorldMatrix())
	c.dragRoot.AddChild(obj)
	obj.SetModelMatrix(local)
	c.dragged = obj
	return true
}

// StopDrag releases the dragged object back to the scene root, restoring
// its world transform. Returns false if no drag is active.
func (c *Controller) StopDrag() bool {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	if c.dragged == nil {
		return false
	}
	obj := c.dragged
	c.dragged = nil
	world := c.dragRoot.WorldMatrix().Mul(obj.LocalMatrix())
	if c.scene != nil {
		root := c.scene.Root()
		root.AddChild(obj)
		obj.SetModelMatrix(root.WorldMatrix().Invert().Mul(world))
	} else {
		obj.RemoveFromParent()
		obj.SetModelMatrix(world)
	}
	return true
}

// Dragging reports whether a drag is active.
func (c *Controller) Dragging() bool {
	c.cursorMu.Lock()
	defer c.cursorMu.Unlock()
	return c.dragged != nil
}

// close tears the controller down when its device is destroyed.
func (c *Controller) close() {
	c.cursorMu.Lock()
	if c.dragged != nil {
		obj := c.dragged
		c.dragged = nil
		world := c.dragRoot.WorldMatrix().Mul(obj.LocalMatrix())
		if c.scene != nil {
			root := c.scene.Root()
			root.AddChild(obj)
			obj.SetModelMatrix(root.WorldMatrix().Invert().Mul(world))
		} else {
			obj.RemoveFromParent()
			obj.SetModelMatrix(world)
		}
	}
	c.dragRoot.RemoveFromParent()
	c.scene = nil
	c.enabled = false
	c.active = false
	c.listeners = nil
	c.cursorMu.Unlock()

	c.queueMu.Lock()
	c.keyPending = nil
	c.motionPending = nil
	c.queueMu.Unlock()
}
