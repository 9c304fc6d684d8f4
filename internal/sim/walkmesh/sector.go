package walkmesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"actorcraft.ai/internal/sim/mathx"
)

type SectorType int32

const (
	NoneType    SectorType = 0
	WalkType    SectorType = 0x1000
	FunnelType  SectorType = 0x1100
	CameraType  SectorType = 0x2000
	SpecialType SectorType = 0x4000
	HotType     SectorType = 0x8000
)

const vertexEpsilon = 1e-4

// Sector is a convex walk-mesh polygon. Vertices are counter-clockwise when
// seen from +Z.
type Sector struct {
	ID       int32
	Name     string
	Type     SectorType
	Visible  bool
	Height   float32
	Vertices []mgl32.Vec3
	Normal   mgl32.Vec3
}

// Exit describes where a ray leaves a sector.
type Exit struct {
	Point         mgl32.Vec3
	AngleWithEdge float32 // radians
	EdgeDir       mgl32.Vec3
	EdgeVertex    int
}

// NewSector builds a sector and derives its normal from the first, second and
// last vertex.
func NewSector(id int32, name string, typ SectorType, verts []mgl32.Vec3) Sector {
	s := Sector{
		ID:       id,
		Name:     name,
		Type:     typ,
		Visible:  true,
		Vertices: append([]mgl32.Vec3(nil), verts...),
	}
	s.Normal = s.computeNormal()
	return s
}

func (s Sector) computeNormal() mgl32.Vec3 {
	n := len(s.Vertices)
	if n < 3 {
		return mgl32.Vec3{0, 0, 1}
	}
	v0 := s.Vertices[0]
	c := s.Vertices[1].Sub(v0).Cross(s.Vertices[n-1].Sub(v0))
	if c.Len() == 0 {
		return mgl32.Vec3{0, 0, 1}
	}
	return c.Normalize()
}

// Clone returns a deep copy; shadow slots keep these so they survive scene
// teardown.
func (s Sector) Clone() Sector {
	c := s
	c.Vertices = append([]mgl32.Vec3(nil), s.Vertices...)
	return c
}

func (s *Sector) vertex(i int) mgl32.Vec3 {
	return s.Vertices[i%len(s.Vertices)]
}

func (s *Sector) Walkable() bool {
	return s.Type&WalkType != 0 && s.Visible
}

func (s *Sector) ContainsPoint(p mgl32.Vec3) bool {
	n := len(s.Vertices)
	if n < 3 {
		return false
	}
	for i := 0; i < n; i++ {
		edge := s.vertex(i + 1).Sub(s.vertex(i))
		delta := p.Sub(s.vertex(i))
		if edge.X()*delta.Y() < edge.Y()*delta.X() {
			return false
		}
	}
	return true
}

// ProjectToPlane drops p vertically onto the sector plane.
func (s *Sector) ProjectToPlane(p mgl32.Vec3) mgl32.Vec3 {
	if s.Normal.Z() == 0 || len(s.Vertices) == 0 {
		return p
	}
	p[2] -= s.Normal.Dot(p.Sub(s.Vertices[0])) / s.Normal.Z()
	return p
}

// ProjectToPuckVector projects a movement direction onto the walking plane.
func (s *Sector) ProjectToPuckVector(v mgl32.Vec3) mgl32.Vec3 {
	if s.Normal.Z() == 0 {
		return v
	}
	v[2] -= s.Normal.Dot(v) / s.Normal.Z()
	return v
}

func (s *Sector) ClosestPoint(p mgl32.Vec3) mgl32.Vec3 {
	n := len(s.Vertices)
	if n == 0 {
		return p
	}
	onPlane := p.Sub(s.Normal.Mul(s.Normal.Dot(p.Sub(s.Vertices[0]))))
	if s.ContainsPoint(onPlane) {
		return onPlane
	}

	for i := 0; i < n; i++ {
		edge := s.vertex(i + 1).Sub(s.vertex(i))
		delta := p.Sub(s.vertex(i))
		ee := edge.Dot(edge)
		if ee == 0 {
			continue
		}
		scalar := delta.Dot(edge) / ee
		// Only outward-facing edges: z of delta x edge must be positive.
		if scalar >= 0 && scalar <= 1 && delta.X()*edge.Y() > delta.Y()*edge.X() {
			return s.vertex(i).Add(edge.Mul(scalar))
		}
	}

	best := 0
	minDist := p.Sub(s.Vertices[0]).Len()
	for i := 1; i < n; i++ {
		if d := p.Sub(s.Vertices[i]).Len(); d < minDist {
			minDist = d
			best = i
		}
	}
	return s.Vertices[best]
}

// IsAdjacentTo reports whether the sectors share an edge (two vertices).
func (s *Sector) IsAdjacentTo(other *Sector) bool {
	if other == nil || other == s {
		return false
	}
	shared := 0
	for _, v := range s.Vertices {
		for _, w := range other.Vertices {
			if v.ApproxEqualThreshold(w, vertexEpsilon) {
				shared++
				break
			}
		}
		if shared >= 2 {
			return true
		}
	}
	return false
}

// ExitInfo traces the ray start+t*dir inside the sector to the boundary.
func (s *Sector) ExitInfo(start, dir mgl32.Vec3) Exit {
	start = s.ProjectToPlane(start)
	dir = s.ProjectToPuckVector(dir)
	n := len(s.Vertices)
	if n < 3 {
		return Exit{Point: start}
	}

	// Find a vertex where z of (v - start) x dir is positive, then walk on
	// until it turns non-positive: that edge is the exit.
	i := 0
	for ; i < n; i++ {
		delta := s.vertex(i).Sub(start)
		if delta.X()*dir.Y() > delta.Y()*dir.X() {
			break
		}
	}
	for i < n {
		i++
		delta := s.vertex(i).Sub(start)
		if delta.X()*dir.Y() <= delta.Y()*dir.X() {
			break
		}
	}
	prev := s.vertex(i - 1)
	cur := s.vertex(i)
	ex := Exit{
		EdgeDir:    cur.Sub(prev),
		EdgeVertex: (i - 1) % n,
	}
	ex.AngleWithEdge = mathx.Angle(dir, ex.EdgeDir)

	edgeNormal := mgl32.Vec3{ex.EdgeDir.Y(), -ex.EdgeDir.X(), 0}
	den := dir.Dot(edgeNormal)
	if den == 0 {
		ex.Point = start
		return ex
	}
	ex.Point = start.Add(dir.Mul(cur.Sub(start).Dot(edgeNormal) / den))
	return ex
}

// Equal compares sectors by value.
func (s *Sector) Equal(o *Sector) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.ID != o.ID || s.Name != o.Name || s.Type != o.Type || s.Visible != o.Visible || s.Height != o.Height {
		return false
	}
	if len(s.Vertices) != len(o.Vertices) || s.Normal != o.Normal {
		return false
	}
	for i := range s.Vertices {
		if s.Vertices[i] != o.Vertices[i] {
			return false
		}
	}
	return true
}
