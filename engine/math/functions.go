package math

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func NewVec3(x, y, z float32) Vec3 {
	return Vec3{X: x, Y: y, Z: z}
}

func NewVec3Zero() Vec3 {
	return Vec3{}
}

func NewVec3Up() Vec3 {
	return Vec3{Y: 1}
}

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

func (v Vec3) MulScalar(scalar float32) Vec3 {
	return Vec3{v.X * scalar, v.Y * scalar, v.Z * scalar}
}

func (v Vec3) LengthSquared() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

func (v Vec3) Length() float32 {
	return ksqrt(v.LengthSquared())
}

// Normalized returns a unit-length copy of v, or the zero vector when v has no length.
func (v Vec3) Normalized() Vec3 {
	l := v.Length()
	if l < FLOAT_EPSILON {
		return Vec3{}
	}
	return v.MulScalar(1.0 / l)
}

func (v Vec3) Dot(other Vec3) float32 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

func (v Vec3) Cross(other Vec3) Vec3 {
	return Vec3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

func (v Vec3) Distance(other Vec3) float32 {
	return v.Sub(other).Length()
}

// Min and Max are component-wise.
func (v Vec3) Min(other Vec3) Vec3 {
	return Vec3{min(v.X, other.X), min(v.Y, other.Y), min(v.Z, other.Z)}
}

func (v Vec3) Max(other Vec3) Vec3 {
	return Vec3{max(v.X, other.X), max(v.Y, other.Y), max(v.Z, other.Z)}
}

// Mat4

func NewMat4Identity() Mat4 {
	var m Mat4
	m.Data[0] = 1
	m.Data[5] = 1
	m.Data[10] = 1
	m.Data[15] = 1
	return m
}

// Mul returns m * other.
func (m Mat4) Mul(other Mat4) Mat4 {
	var out Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m.Data[k*4+row] * other.Data[col*4+k]
			}
			out.Data[col*4+row] = sum
		}
	}
	return out
}

func NewMat4Translation(position Vec3) Mat4 {
	m := NewMat4Identity()
	m.Data[12] = position.X
	m.Data[13] = position.Y
	m.Data[14] = position.Z
	return m
}

func NewMat4Scale(scale Vec3) Mat4 {
	m := NewMat4Identity()
	m.Data[0] = scale.X
	m.Data[5] = scale.Y
	m.Data[10] = scale.Z
	return m
}

func NewMat4EulerY(angleRadians float32) Mat4 {
	m := NewMat4Identity()
	c := kcos(angleRadians)
	s := ksin(angleRadians)
	m.Data[0] = c
	m.Data[2] = -s
	m.Data[8] = s
	m.Data[10] = c
	return m
}

// NewMat4Perspective builds a right-handed projection with a [-1, 1] depth range.
func NewMat4Perspective(fovRadians, aspectRatio, nearClip, farClip float32) Mat4 {
	var m Mat4
	halfTanFov := ktan(fovRadians * 0.5)
	m.Data[0] = 1.0 / (aspectRatio * halfTanFov)
	m.Data[5] = 1.0 / halfTanFov
	m.Data[10] = -((farClip + nearClip) / (farClip - nearClip))
	m.Data[11] = -1.0
	m.Data[14] = -((2.0 * farClip * nearClip) / (farClip - nearClip))
	return m
}

func NewMat4LookAt(position, target, up Vec3) Mat4 {
	zAxis := position.Sub(target).Normalized()
	xAxis := up.Cross(zAxis).Normalized()
	yAxis := zAxis.Cross(xAxis)

	m := NewMat4Identity()
	m.Data[0] = xAxis.X
	m.Data[4] = xAxis.Y
	m.Data[8] = xAxis.Z
	m.Data[1] = yAxis.X
	m.Data[5] = yAxis.Y
	m.Data[9] = yAxis.Z
	m.Data[2] = zAxis.X
	m.Data[6] = zAxis.Y
	m.Data[10] = zAxis.Z
	m.Data[12] = -xAxis.Dot(position)
	m.Data[13] = -yAxis.Dot(position)
	m.Data[14] = -zAxis.Dot(position)
	return m
}
