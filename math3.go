package gazelle

import "math"

// Vec3 is a 3D vector used for positions, directions and scales
// throughout the API.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Cross returns the cross product v x o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// Length returns the Euclidean length of v.
func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length, or the zero vector if v has
// zero length.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Quat is a rotation quaternion. The identity rotation is {W: 1}.
type Quat struct {
	W, X, Y, Z float64
}

// QuatIdentity returns the identity rotation.
func QuatIdentity() Quat { return Quat{W: 1} }

// Mul returns the composed rotation q * o (o applied first).
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
	}
}

// Normalize returns q scaled to unit length, or the identity if q is zero.
func (q Quat) Normalize() Quat {
	l := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if l == 0 {
		return QuatIdentity()
	}
	return Quat{q.W / l, q.X / l, q.Y / l, q.Z / l}
}

// Invert returns the inverse rotation. q must be unit length.
func (q Quat) Invert() Quat { return Quat{q.W, -q.X, -q.Y, -q.Z} }

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	// v' = v + 2*qv x (qv x v + w*v)
	qv := Vec3{q.X, q.Y, q.Z}
	t := qv.Cross(v).Add(v.Scale(q.W))
	return v.Add(qv.Cross(t).Scale(2))
}

// QuatFromBasis builds the rotation whose columns are the given orthonormal
// axes (right, up, forward).
func QuatFromBasis(xAxis, yAxis, zAxis Vec3) Quat {
	// Shepperd's method over the 3x3 rotation matrix formed by the axes.
	m00, m01, m02 := xAxis.X, yAxis.X, zAxis.X
	m10, m11, m12 := xAxis.Y, yAxis.Y, zAxis.Y
	m20, m21, m22 := xAxis.Z, yAxis.Z, zAxis.Z

	trace := m00 + m11 + m22
	var q Quat
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q = Quat{W: s / 4, X: (m21 - m12) / s, Y: (m02 - m20) / s, Z: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = Quat{W: (m21 - m12) / s, X: s / 4, Y: (m01 + m10) / s, Z: (m02 + m20) / s}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = Quat{W: (m02 - m20) / s, X: (m01 + m10) / s, Y: s / 4, Z: (m12 + m21) / s}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = Quat{W: (m10 - m01) / s, X: (m02 + m20) / s, Y: (m12 + m21) / s, Z: s / 4}
	}
	return q.Normalize()
}

// Mat4 is a column-major 4x4 transform matrix.
// Element (row r, column c) is stored at index c*4+r.
type Mat4 [16]float64

// Mat4Identity returns the identity matrix.
func Mat4Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul returns m * o.
func (m Mat4) Mul(o Mat4) Mat4 {
	var r Mat4
	for c := 0; c < 4; c++ {
		for row := 0; row < 4; row++ {
			var sum float64
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * o[c*4+k]
			}
			r[c*4+row] = sum
		}
	}
	return r
}

// TransformPoint applies the matrix to a point (w = 1).
func (m Mat4) TransformPoint(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12],
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13],
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14],
	}
}

// TransformDir applies the matrix to a direction (w = 0, no translation).
func (m Mat4) TransformDir(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z,
	}
}

// Translation returns the translation column of the matrix.
func (m Mat4) Translation() Vec3 { return Vec3{m[12], m[13], m[14]} }

// Invert computes the inverse of an affine transform matrix (rotation,
// scale, translation; bottom row 0,0,0,1). Returns the identity if the
// upper 3x3 block is singular.
func (m Mat4) Invert() Mat4 {
	a, b, c := m[0], m[4], m[8]
	d, e, f := m[1], m[5], m[9]
	g, h, i := m[2], m[6], m[10]

	co00 := e*i - f*h
	co01 := f*g - d*i
	co02 := d*h - e*g
	det := a*co00 + b*co01 + c*co02
	if det > -1e-12 && det < 1e-12 {
		return Mat4Identity()
	}
	inv := 1 / det

	r := Mat4Identity()
	r[0] = co00 * inv
	r[1] = co01 * inv
	r[2] = co02 * inv
	r[4] = (c*h - b*i) * inv
	r[5] = (a*i - c*g) * inv
	r[6] = (b*g - a*h) * inv
	r[8] = (b*f - c*e) * inv
	r[9] = (c*d - a*f) * inv
	r[10] = (a*e - b*d) * inv

	t := r.TransformDir(m.Translation())
	r[12], r[13], r[14] = -t.X, -t.Y, -t.Z
	return r
}

// ComposeTRS builds the matrix translate(t) * rotate(q) * scale(s).
func ComposeTRS(t Vec3, q Quat, s Vec3) Mat4 {
	x2, y2, z2 := q.X+q.X, q.Y+q.Y, q.Z+q.Z
	xx, xy, xz := q.X*x2, q.X*y2, q.X*z2
	yy, yz, zz := q.Y*y2, q.Y*z2, q.Z*z2
	wx, wy, wz := q.W*x2, q.W*y2, q.W*z2

	var m Mat4
	m[0] = (1 - (yy + zz)) * s.X
	m[1] = (xy + wz) * s.X
	m[2] = (xz - wy) * s.X
	m[4] = (xy - wz) * s.Y
	m[5] = (1 - (xx + zz)) * s.Y
	m[6] = (yz + wx) * s.Y
	m[8] = (xz + wy) * s.Z
	m[9] = (yz - wx) * s.Z
	m[10] = (1 - (xx + yy)) * s.Z
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	m[15] = 1
	return m
}

// DecomposeTRS splits an affine matrix into translation, rotation and
// scale. Negative determinants flip the X scale so the rotation stays
// proper.
func (m Mat4) DecomposeTRS() (t Vec3, q Quat, s Vec3) {
	t = m.Translation()

	cx := Vec3{m[0], m[1], m[2]}
	cy := Vec3{m[4], m[5], m[6]}
	cz := Vec3{m[8], m[9], m[10]}
	s = Vec3{cx.Length(), cy.Length(), cz.Length()}

	det := cx.Dot(cy.Cross(cz))
	if det < 0 {
		s.X = -s.X
	}
	if s.X != 0 {
		cx = cx.Scale(1 / s.X)
	}
	if s.Y != 0 {
		cy = cy.Scale(1 / s.Y)
	}
	if s.Z != 0 {
		cz = cz.Scale(1 / s.Z)
	}
	q = QuatFromBasis(cx, cy, cz)
	return t, q, s
}
