// Package vecmath holds the small fixed-size value types used by content
// objects: vectors, quaternions, points, rectangles and colors.
package vecmath

// Vector2 is a two-component float vector.
type Vector2 struct {
	X, Y float32
}

// Vector3 is a three-component float vector.
type Vector3 struct {
	X, Y, Z float32
}

// Vector4 is a four-component float vector.
type Vector4 struct {
	X, Y, Z, W float32
}

// Quaternion is a rotation in X, Y, Z, W order.
type Quaternion struct {
	X, Y, Z, W float32
}

// IdentityQuaternion is the rotation that does nothing.
var IdentityQuaternion = Quaternion{W: 1}

// Point is an integer 2D coordinate.
type Point struct {
	X, Y int32
}

// Rectangle is an integer rectangle given by its top-left corner and size.
type Rectangle struct {
	X, Y, Width, Height int32
}

// Right returns the x coordinate just past the right edge.
func (r Rectangle) Right() int32 { return r.X + r.Width }

// Bottom returns the y coordinate just past the bottom edge.
func (r Rectangle) Bottom() int32 { return r.Y + r.Height }

// Contains reports whether p lies inside r.
func (r Rectangle) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}
