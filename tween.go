package gazelle

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 4 float64 fields on a Node simultaneously.
// Create one via the convenience constructors (TweenScale, TweenPosition,
// TweenDepth) and call Update(dt) each frame. The group auto-applies
// values and marks the node's subtree dirty. If the target node is
// disposed, the group stops immediately.
//
// There is no global animation manager; users call Update themselves.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	fields [4]*float64
	target *Node
	Done   bool
}

// Update advances all tweens by dt seconds, writes values to the target
// fields, and marks the node dirty. If the target node has been disposed,
// Done is set to true and no writes occur.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}

	if g.target != nil && g.target.IsDisposed() {
		g.Done = true
		return
	}

	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		*g.fields[i] = float64(val)
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone

	if g.target != nil {
		markSubtreeDirty(g.target)
	}
}

// TweenScale creates a TweenGroup that animates the node's scale to the
// given target over the specified duration using the easing function.
func TweenScale(node *Node, to Vec3, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 3, target: node}
	g.tweens[0] = gween.New(float32(node.Scaling.X), float32(to.X), duration, fn)
	g.tweens[1] = gween.New(float32(node.Scaling.Y), float32(to.Y), duration, fn)
	g.tweens[2] = gween.New(float32(node.Scaling.Z), float32(to.Z), duration, fn)
	g.fields[0] = &node.Scaling.X
	g.fields[1] = &node.Scaling.Y
	g.fields[2] = &node.Scaling.Z
	return g
}

// TweenPosition creates a TweenGroup that animates the node's local
// position to the given target.
func TweenPosition(node *Node, to Vec3, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 3, target: node}
	g.tweens[0] = gween.New(float32(node.Position.X), float32(to.X), duration, fn)
	g.tweens[1] = gween.New(float32(node.Position.Y), float32(to.Y), duration, fn)
	g.tweens[2] = gween.New(float32(node.Position.Z), float32(to.Z), duration, fn)
	g.fields[0] = &node.Position.X
	g.fields[1] = &node.Position.Y
	g.fields[2] = &node.Position.Z
	return g
}

// TweenDepth creates a TweenGroup that slides the node along its local Z
// axis, used for cursor depth rescale feedback.
func TweenDepth(node *Node, toDepth float64, duration float32, fn ease.TweenFunc) *TweenGroup {
	g := &TweenGroup{count: 1, target: node}
	g.tweens[0] = gween.New(float32(node.Position.Z), float32(-toDepth), duration, fn)
	g.fields[0] = &node.Position.Z
	return g
}
