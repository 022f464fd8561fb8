package combat

import "math"

// Vec3 is a position or direction in centimetres. X is forward at zero yaw,
// Y is right and Z is up; yaw turns from X toward Y in degrees.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }
func (v Vec3) Flatten() Vec3 { return Vec3{v.X, v.Y, 0} }
func (v Vec3) DistanceTo(o Vec3) float64 { return v.Sub(o).Length() }

// Cross returns v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// SafeNormal returns the unit vector, or zero when the length is within
// tolerance of zero.
func (v Vec3) SafeNormal(tolerance float64) Vec3 {
	l := v.Length()
	if l <= tolerance {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// IsNearlyZero reports whether every component is within 1e-4 of zero.
func (v Vec3) IsNearlyZero() bool {
	const eps = 1e-4
	return math.Abs(v.X) <= eps && math.Abs(v.Y) <= eps && math.Abs(v.Z) <= eps
}

// Quantize rounds each component to a whole centimetre, which is the
// precision impact points travel with.
func (v Vec3) Quantize() Vec3 {
	return Vec3{math.Round(v.X), math.Round(v.Y), math.Round(v.Z)}
}

// YawForward is the horizontal unit vector for a yaw in degrees.
func YawForward(yaw float64) Vec3 {
	r := yaw * math.Pi / 180
	return Vec3{X: math.Cos(r), Y: math.Sin(r)}
}

// YawRight is the horizontal unit vector 90 degrees clockwise of YawForward.
func YawRight(yaw float64) Vec3 {
	return YawForward(yaw + 90)
}

// YawOf returns the yaw in degrees of a direction's horizontal part.
func YawOf(v Vec3) float64 {
	return math.Atan2(v.Y, v.X) * 180 / math.Pi
}

// NormalizeAxis wraps an angle in degrees into (-180, 180].
func NormalizeAxis(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func lerp(a, b, alpha float64) float64 {
	return a + (b-a)*alpha
}

func isNearlyZero(v float64) bool {
	return math.Abs(v) <= 1e-8
}
