package gazelle

import "math"

// --- Hit ---

// Hit is one ray/collider intersection. Hits are reported in world space
// and ordered nearest-first by the scene query.
type Hit struct {
	Object      *Node
	Distance    float64
	HitPoint    Vec3
	Normal      Vec3
	Barycentric Vec3 // BarySentinel() when the collider does not compute it
	Touched     bool // set by the picker while the controller is active
}

// --- Collider ---

// Collider tests a world-space ray against the geometry attached to a node.
// The node's world matrix is supplied by the scene query so colliders can
// stay in local space.
type Collider interface {
	// RayIntersect returns the nearest intersection of the ray with the
	// collider, or ok=false when the ray misses.
	RayIntersect(origin, dir Vec3, world Mat4) (Hit, bool)
}

// --- Sphere ---

// SphereCollider is a sphere in the node's local space.
type SphereCollider struct {
	Center Vec3
	Radius float64
}

// RayIntersect implements Collider.
func (s *SphereCollider) RayIntersect(origin, dir Vec3, world Mat4) (Hit, bool) {
	lo, ld := rayToLocal(origin, dir, world)
	oc := lo.Sub(s.Center)
	a := ld.Dot(ld)
	b := 2 * oc.Dot(ld)
	c := oc.Dot(oc) - s.Radius*s.Radius
	disc := b*b - 4*a*c
	if disc < 0 || a == 0 {
		return Hit{}, false
	}
	sq := math.Sqrt(disc)
	t := (-b - sq) / (2 * a)
	if t < 0 {
		t = (-b + sq) / (2 * a)
	}
	if t < 0 {
		return Hit{}, false
	}
	localHit := lo.Add(ld.Scale(t))
	worldHit := world.TransformPoint(localHit)
	normal := world.TransformDir(localHit.Sub(s.Center)).Normalize()
	return Hit{
		Distance:    worldHit.Sub(origin).Length(),
		HitPoint:    worldHit,
		Normal:      normal,
		Barycentric: barySentinel,
	}, true
}

// --- Box ---

// BoxCollider is an axis-aligned box in the node's local space.
type BoxCollider struct {
	Min, Max Vec3
}

// RayIntersect implements Collider. Slab test against the local AABB.
func (b *BoxCollider) RayIntersect(origin, dir Vec3, world Mat4) (Hit, bool) {
	lo, ld := rayToLocal(origin, dir, world)
	tMin, tMax := math.Inf(-1), math.Inf(1)
	var nMin Vec3

	axes := [3]struct {
		o, d, lo, hi float64
		axis         Vec3
	}{
		{lo.X, ld.X, b.Min.X, b.Max.X, Vec3{1, 0, 0}},
		{lo.Y, ld.Y, b.Min.Y, b.Max.Y, Vec3{0, 1, 0}},
		{lo.Z, ld.Z, b.Min.Z, b.Max.Z, Vec3{0, 0, 1}},
	}
	for _, ax := range axes {
		if ax.d == 0 {
			if ax.o < ax.lo || ax.o > ax.hi {
				return Hit{}, false
			}
			continue
		}
		t1 := (ax.lo - ax.o) / ax.d
		t2 := (ax.hi - ax.o) / ax.d
		n := ax.axis.Scale(-1)
		if t1 > t2 {
			t1, t2 = t2, t1
			n = ax.axis
		}
		if t1 > tMin {
			tMin = t1
			nMin = n
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return Hit{}, false
		}
	}
	t := tMin
	if t < 0 {
		t = tMax
	}
	if t < 0 {
		return Hit{}, false
	}
	localHit := lo.Add(ld.Scale(t))
	worldHit := world.TransformPoint(localHit)
	return Hit{
		Distance:    worldHit.Sub(origin).Length(),
		HitPoint:    worldHit,
		Normal:      world.TransformDir(nMin).Normalize(),
		Barycentric: barySentinel,
	}, true
}

// --- Mesh ---

// MeshCollider tests against an indexed triangle list in local space.
// When PickCoordinates is set the hit carries barycentric coordinates and
// an interpolated vertex normal; otherwise both report the sentinel/face
// values only.
type MeshCollider struct {
	Vertices        []Vec3
	Normals         []Vec3 // per-vertex, optional
	Indices         []uint32
	PickCoordinates bool
}

// RayIntersect implements Collider. Moller-Trumbore over every triangle,
// keeping the nearest front hit.
func (m *MeshCollider) RayIntersect(origin, dir Vec3, world Mat4) (Hit, bool) {
	lo, ld := rayToLocal(origin, dir, world)

	best := math.Inf(1)
	var bestHit Hit
	found := false

	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		v0, v1, v2 := m.Vertices[i0], m.Vertices[i1], m.Vertices[i2]

		e1 := v1.Sub(v0)
		e2 := v2.Sub(v0)
		p := ld.Cross(e2)
		det := e1.Dot(p)
		if det > -1e-12 && det < 1e-12 {
			continue
		}
		inv := 1 / det
		tv := lo.Sub(v0)
		u := tv.Dot(p) * inv
		if u < 0 || u > 1 {
			continue
		}
		q := tv.Cross(e1)
		v := ld.Dot(q) * inv
		if v < 0 || u+v > 1 {
			continue
		}
		t := e2.Dot(q) * inv
		if t < 0 || t >= best {
			continue
		}

		best = t
		localHit := lo.Add(ld.Scale(t))
		worldHit := world.TransformPoint(localHit)
		h := Hit{
			Distance:    worldHit.Sub(origin).Length(),
			HitPoint:    worldHit,
			Barycentric: barySentinel,
		}
		if m.PickCoordinates {
			w := 1 - u - v
			h.Barycentric = Vec3{w, u, v}
			if len(m.Normals) == len(m.Vertices) {
				n0, n1, n2 := m.Normals[i0], m.Normals[i1], m.Normals[i2]
				local := n0.Scale(w).Add(n1.Scale(u)).Add(n2.Scale(v))
				h.Normal = world.TransformDir(local).Normalize()
			} else {
				h.Normal = world.TransformDir(e1.Cross(e2)).Normalize()
			}
		} else {
			h.Normal = world.TransformDir(e1.Cross(e2)).Normalize()
		}
		bestHit = h
		found = true
	}
	return bestHit, found
}

// rayToLocal transforms a world-space ray into the collider's local space.
// The direction is not renormalized so local t values stay comparable with
// world distances after the hit point round-trips through the matrix.
func rayToLocal(origin, dir Vec3, world Mat4) (Vec3, Vec3) {
	inv := world.Invert()
	return inv.TransformPoint(origin), inv.TransformDir(dir)
}
