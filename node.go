package gazelle

// --- ID counter ---

// nodeIDCounter is owned by NewScene/NewNode callers through nextNodeID.
// Plain counter, not atomic: nodes are created and reparented on the frame
// thread only.
var nodeIDCounter uint32

func nextNodeID() uint32 {
	nodeIDCounter++
	return nodeIDCounter
}

// --- Node ---

// Node is the scene graph element the pick pipeline operates on. A single
// flat struct is used for every node kind to avoid interface dispatch on
// the per-frame traversal path.
type Node struct {
	// Identity
	ID   uint32
	Name string

	// Hierarchy
	Parent   *Node
	children []*Node

	// Transform (local)
	Position Vec3
	Rotation Quat
	Scaling  Vec3

	// Computed, updated lazily
	worldMatrix    Mat4
	transformDirty bool

	// Interaction
	collider   Collider
	selectable *Selectable

	// Metadata
	UserData any

	// Internal
	disposed bool
}

// NewNode creates a node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		ID:             nextNodeID(),
		Name:           name,
		Rotation:       QuatIdentity(),
		Scaling:        Vec3{1, 1, 1},
		transformDirty: true,
	}
}

// --- Tree manipulation ---

// AddChild appends child to this node's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this node (cycle).
func (n *Node) AddChild(child *Node) {
	if child == nil {
		panic("gazelle: cannot add nil child")
	}
	if isAncestor(child, n) {
		panic("gazelle: adding child would create a cycle")
	}
	if child.Parent != nil {
		child.Parent.removeChildByPtr(child)
	}
	child.Parent = n
	n.children = append(n.children, child)
	markSubtreeDirty(child)
}

// RemoveChild detaches child from this node.
// Panics if child.Parent != n.
func (n *Node) RemoveChild(child *Node) {
	if child.Parent != n {
		panic("gazelle: child's parent is not this node")
	}
	n.removeChildByPtr(child)
	child.Parent = nil
	markSubtreeDirty(child)
}

// RemoveFromParent detaches this node from its parent.
// No-op if this node has no parent.
func (n *Node) RemoveFromParent() {
	if n.Parent == nil {
		return
	}
	n.Parent.RemoveChild(n)
}

// RemoveChildren detaches all children from this node.
// Children are NOT disposed.
func (n *Node) RemoveChildren() {
	for _, child := range n.children {
		child.Parent = nil
		markSubtreeDirty(child)
	}
	n.children = n.children[:0]
}

// Children returns the child list. The returned slice MUST NOT be mutated
// by the caller.
func (n *Node) Children() []*Node {
	return n.children
}

// NumChildren returns the number of children.
func (n *Node) NumChildren() int {
	return len(n.children)
}

// --- Transform ---

// SetPosition sets the local translation.
func (n *Node) SetPosition(p Vec3) {
	n.Position = p
	markSubtreeDirty(n)
}

// SetRotation sets the local rotation.
func (n *Node) SetRotation(q Quat) {
	n.Rotation = q
	markSubtreeDirty(n)
}

// SetScale sets the local scale.
func (n *Node) SetScale(s Vec3) {
	n.Scaling = s
	markSubtreeDirty(n)
}

// LocalMatrix returns the local TRS matrix.
func (n *Node) LocalMatrix() Mat4 {
	return ComposeTRS(n.Position, n.Rotation, n.Scaling)
}

// SetModelMatrix replaces the local transform with the decomposition of m.
func (n *Node) SetModelMatrix(m Mat4) {
	n.Position, n.Rotation, n.Scaling = m.DecomposeTRS()
	markSubtreeDirty(n)
}

// WorldMatrix returns the node's world matrix, recomputing the chain up to
// the root if any ancestor transform changed since the last call.
func (n *Node) WorldMatrix() Mat4 {
	if n.dirtyToRoot() {
		n.updateWorldMatrix()
	}
	return n.worldMatrix
}

// WorldPosition returns the node's position in world space.
func (n *Node) WorldPosition() Vec3 {
	return n.WorldMatrix().Translation()
}

// WorldRotation returns the node's rotation in world space.
func (n *Node) WorldRotation() Quat {
	_, q, _ := n.WorldMatrix().DecomposeTRS()
	return q
}

// WorldToLocal transforms a world-space point into this node's local space.
func (n *Node) WorldToLocal(p Vec3) Vec3 {
	return n.WorldMatrix().Invert().TransformPoint(p)
}

func (n *Node) dirtyToRoot() bool {
	for p := n; p != nil; p = p.Parent {
		if p.transformDirty {
			return true
		}
	}
	return false
}

func (n *Node) updateWorldMatrix() {
	if n.Parent == nil {
		n.worldMatrix = n.LocalMatrix()
	} else {
		n.Parent.updateWorldMatrix()
		n.worldMatrix = n.Parent.worldMatrix.Mul(n.LocalMatrix())
	}
	n.transformDirty = false
}

// --- Interaction attachments ---

// AttachCollider makes the node pickable.
func (n *Node) AttachCollider(c Collider) {
	n.collider = c
}

// Collider returns the attached collider, or nil.
func (n *Node) Collider() Collider {
	return n.collider
}

// AttachSelectable attaches visual-feedback behavior to the node.
func (n *Node) AttachSelectable(s *Selectable) {
	if s != nil {
		s.owner = n
	}
	n.selectable = s
}

// Selectable returns the attached selectable behavior, or nil.
func (n *Node) Selectable() *Selectable {
	return n.selectable
}

// --- Disposal ---

// Dispose removes this node from its parent, marks it as disposed,
// and recursively disposes all descendants.
func (n *Node) Dispose() {
	if n.disposed {
		return
	}
	n.RemoveFromParent()
	n.dispose()
}

func (n *Node) dispose() {
	n.disposed = true
	n.ID = 0
	for _, child := range n.children {
		child.Parent = nil
		child.dispose()
	}
	n.children = nil
	n.Parent = nil
	n.collider = nil
	n.selectable = nil
	n.UserData = nil
}

// IsDisposed returns true if this node has been disposed.
func (n *Node) IsDisposed() bool {
	return n.disposed
}

// --- Helpers ---

// isAncestor reports whether candidate is an ancestor of node.
func isAncestor(candidate, node *Node) bool {
	for p := node; p != nil; p = p.Parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// IsDescendantOf reports whether n sits under root (inclusive).
func (n *Node) IsDescendantOf(root *Node) bool {
	return isAncestor(root, n)
}

// removeChildByPtr removes child from n.children without clearing
// child.Parent. Uses copy+nil to avoid retaining a dangling pointer in the
// backing array.
func (n *Node) removeChildByPtr(child *Node) {
	for i, c := range n.children {
		if c == child {
			copy(n.children[i:], n.children[i+1:])
			n.children[len(n.children)-1] = nil
			n.children = n.children[:len(n.children)-1]
			return
		}
	}
}

// markSubtreeDirty sets transformDirty on node and all its descendants.
func markSubtreeDirty(node *Node) {
	node.transformDirty = true
	for _, child := range node.children {
		markSubtreeDirty(child)
	}
}
