package entity

import (
	"math"

	"github.com/zeusync/simkernel/internal/core/element"
)

// Vector3 is a point or offset in a container's frame.
type Vector3 struct {
	X, Y, Z float64
}

func (v Vector3) Add(o Vector3) Vector3 { return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector3) Sub(o Vector3) Vector3 { return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector3) Scale(f float64) Vector3 {
	return Vector3{v.X * f, v.Y * f, v.Z * f}
}
func (v Vector3) Length() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Distance is the euclidean distance between two points.
func (v Vector3) Distance(o Vector3) float64 { return v.Sub(o).Length() }

// List encodes the vector as an element list.
func (v Vector3) List() element.List { return element.FloatList(v.X, v.Y, v.Z) }

// VectorFrom decodes a three element list.
func VectorFrom(v any) (Vector3, bool) {
	fs, ok := element.Floats(v, 3)
	if !ok {
		return Vector3{}, false
	}
	return Vector3{fs[0], fs[1], fs[2]}, true
}

// Quaternion is an orientation. The zero value means no rotation.
type Quaternion struct {
	X, Y, Z, W float64
}

// Identity is the quaternion of no rotation.
func Identity() Quaternion { return Quaternion{W: 1} }

// AxisAngle builds a rotation of angle radians around axis.
func AxisAngle(axis Vector3, angle float64) Quaternion {
	l := axis.Length()
	if l == 0 {
		return Identity()
	}
	s := math.Sin(angle/2) / l
	return Quaternion{axis.X * s, axis.Y * s, axis.Z * s, math.Cos(angle / 2)}
}

// IsIdentity reports whether q applies no rotation.
func (q Quaternion) IsIdentity() bool {
	return q == Quaternion{} || q == Identity()
}

// Mul composes rotations: the result applies o first, then q.
func (q Quaternion) Mul(o Quaternion) Quaternion {
	if q == (Quaternion{}) {
		q = Identity()
	}
	if o == (Quaternion{}) {
		o = Identity()
	}
	return Quaternion{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// Rotate applies the rotation to v.
func (q Quaternion) Rotate(v Vector3) Vector3 {
	if q.IsIdentity() {
		return v
	}
	// v' = v + 2w(u x v) + 2(u x (u x v))
	u := Vector3{q.X, q.Y, q.Z}
	t := cross(u, v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(cross(u, t))
}

func cross(a, b Vector3) Vector3 {
	return Vector3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// List encodes the quaternion as x, y, z, w.
func (q Quaternion) List() element.List { return element.FloatList(q.X, q.Y, q.Z, q.W) }

// QuaternionFrom decodes a four element list.
func QuaternionFrom(v any) (Quaternion, bool) {
	fs, ok := element.Floats(v, 4)
	if !ok {
		return Quaternion{}, false
	}
	return Quaternion{fs[0], fs[1], fs[2], fs[3]}, true
}

// BBox is an axis aligned box in the entity's own frame.
type BBox struct {
	Low, High Vector3
}

// IsValid reports whether the box has been set to a non-degenerate extent.
func (b BBox) IsValid() bool {
	return b.High.X >= b.Low.X && b.High.Y >= b.Low.Y && b.High.Z >= b.Low.Z && b != BBox{}
}

// Radius is the radius of the sphere around the origin enclosing the box.
func (b BBox) Radius() float64 {
	if !b.IsValid() {
		return 0
	}
	return math.Max(b.Low.Length(), b.High.Length())
}

// Scale multiplies both corners by f.
func (b BBox) Scale(f float64) BBox {
	return BBox{Low: b.Low.Scale(f), High: b.High.Scale(f)}
}

// List encodes the box as low x, y, z followed by high x, y, z.
func (b BBox) List() element.List {
	return element.FloatList(b.Low.X, b.Low.Y, b.Low.Z, b.High.X, b.High.Y, b.High.Z)
}

// BBoxFrom decodes a six element list.
func BBoxFrom(v any) (BBox, bool) {
	fs, ok := element.Floats(v, 6)
	if !ok {
		return BBox{}, false
	}
	return BBox{Low: Vector3{fs[0], fs[1], fs[2]}, High: Vector3{fs[3], fs[4], fs[5]}}, true
}

// Location places an entity inside its container.
type Location struct {
	Parent      *Entity
	Pos         Vector3
	Orientation Quaternion
	BBox        BBox
}
