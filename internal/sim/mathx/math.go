package mathx

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

func Rad(deg float32) float32 { return float32(float64(deg) * degToRad) }
func Deg(rad float32) float32 { return float32(float64(rad) * radToDeg) }

// NormalizeYaw rolls a yaw one turn over into [0,360). Values more than a
// full turn out of range are folded with a modulo.
func NormalizeYaw(yaw float32) float32 {
	switch {
	case yaw >= 360:
		yaw -= 360
	case yaw < 0:
		yaw += 360
	}
	if yaw >= 360 || yaw < 0 {
		yaw = float32(math.Mod(float64(yaw), 360))
		if yaw < 0 {
			yaw += 360
		}
	}
	return yaw
}

// WrapDelta wraps an angular difference into [-180,180].
func WrapDelta(d float32) float32 {
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	return d
}

// Forward is the unit facing vector for a yaw/pitch pair. Yaw 0 faces +Y and
// grows counter-clockwise.
func Forward(yaw, pitch float32) mgl32.Vec3 {
	y := float64(Rad(yaw))
	p := float64(Rad(pitch))
	return mgl32.Vec3{
		float32(-math.Sin(y) * math.Cos(p)),
		float32(math.Cos(y) * math.Cos(p)),
		float32(math.Sin(p)),
	}
}

// YawTo returns the yaw (degrees, -180..180) that faces from `from` to `to` in
// the XY plane, or 0 when the points coincide in XY.
func YawTo(from, to mgl32.Vec3) float32 {
	d := to.Sub(from)
	if d.X() == 0 && d.Y() == 0 {
		return 0
	}
	return float32(math.Atan2(float64(-d.X()), float64(d.Y())) * radToDeg)
}

// Angle is the unsigned angle between two vectors in radians.
func Angle(a, b mgl32.Vec3) float32 {
	la, lb := a.Len(), b.Len()
	if la == 0 || lb == 0 {
		return 0
	}
	c := a.Dot(b) / (la * lb)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return float32(math.Acos(float64(c)))
}

func Abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
