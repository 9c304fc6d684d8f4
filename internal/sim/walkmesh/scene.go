package walkmesh

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

var ErrVerticalSector = errors.New("walkmesh: sector plane is vertical")

// Mesh is the read-only view of a set's walk-mesh that actors and the planner
// query.
type Mesh interface {
	Name() string
	SectorCount() int
	Sector(i int) *Sector
	FindClosestSector(p mgl32.Vec3) (*Sector, mgl32.Vec3)
	FindPointSector(p mgl32.Vec3, typ SectorType) *Sector
	IndexOf(sec *Sector) int
}

type Scene struct {
	name    string
	sectors []*Sector
}

func NewScene(name string, sectors ...Sector) *Scene {
	s := &Scene{name: name}
	for i := range sectors {
		sec := sectors[i].Clone()
		s.sectors = append(s.sectors, &sec)
	}
	return s
}

func (s *Scene) Name() string     { return s.name }
func (s *Scene) SectorCount() int { return len(s.sectors) }

func (s *Scene) Sector(i int) *Sector {
	if i < 0 || i >= len(s.sectors) {
		return nil
	}
	return s.sectors[i]
}

// FindClosestSector returns the walkable, visible sector nearest to p and the
// nearest point on it. The point is p itself when no sector qualifies.
func (s *Scene) FindClosestSector(p mgl32.Vec3) (*Sector, mgl32.Vec3) {
	var (
		best    *Sector
		bestPt  = p
		minDist float32
	)
	for _, sec := range s.sectors {
		if !sec.Walkable() {
			continue
		}
		pt := sec.ClosestPoint(p)
		d := pt.Sub(p).Len()
		if best == nil || d < minDist {
			best, bestPt, minDist = sec, pt, d
		}
	}
	return best, bestPt
}

func (s *Scene) FindPointSector(p mgl32.Vec3, typ SectorType) *Sector {
	for _, sec := range s.sectors {
		if sec.Type&typ != 0 && sec.Visible && sec.ContainsPoint(p) {
			return sec
		}
	}
	return nil
}

func (s *Scene) FindSectorByName(name string) *Sector {
	for _, sec := range s.sectors {
		if sec.Name == name {
			return sec
		}
	}
	return nil
}

// IndexOf maps a sector (possibly a detached copy) back onto this scene by id
// and name. It returns -1 when the scene has no such sector.
func (s *Scene) IndexOf(sec *Sector) int {
	if sec == nil {
		return -1
	}
	for i, cur := range s.sectors {
		if cur.ID == sec.ID && cur.Name == sec.Name {
			return i
		}
	}
	return -1
}

func (s *Scene) SetSectorVisible(name string, visible bool) bool {
	found := false
	for _, sec := range s.sectors {
		if sec.Name == name {
			sec.Visible = visible
			found = true
		}
	}
	return found
}

type sceneFile struct {
	Name    string        `yaml:"name"`
	Sectors []sectorEntry `yaml:"sectors"`
	Actors  []ActorSpawn  `yaml:"actors"`
}

type sectorEntry struct {
	ID       int32        `yaml:"id"`
	Name     string       `yaml:"name"`
	Type     string       `yaml:"type"`
	Visible  *bool        `yaml:"visible"`
	Height   float32      `yaml:"height"`
	Vertices [][3]float32 `yaml:"vertices"`
}

// ActorSpawn is an optional actor placement carried alongside a scene file.
// Chore fields left out of the file stay unbound.
type ActorSpawn struct {
	Name        string      `yaml:"name"`
	Costume     string      `yaml:"costume"`
	Pos         [3]float32  `yaml:"pos"`
	Yaw         float32     `yaml:"yaw"`
	Constrained bool        `yaml:"constrained"`
	Running     bool        `yaml:"running"`
	RestChore   *int        `yaml:"rest_chore"`
	WalkChore   *int        `yaml:"walk_chore"`
	TurnChores  *[2]int     `yaml:"turn_chores"`
	MumbleChore *int        `yaml:"mumble_chore"`
	TalkChores  []int       `yaml:"talk_chores"`
	WalkTo      *[3]float32 `yaml:"walk_to"`
}

func ParseSectorType(s string) (SectorType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "walk":
		return WalkType, nil
	case "funnel":
		return FunnelType, nil
	case "camera":
		return CameraType, nil
	case "special":
		return SpecialType, nil
	case "hot":
		return HotType, nil
	case "none":
		return NoneType, nil
	}
	return NoneType, fmt.Errorf("unknown sector type %q", s)
}

// LoadScene reads a YAML set file.
func LoadScene(path string) (*Scene, []ActorSpawn, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return ParseScene(raw)
}

func ParseScene(raw []byte) (*Scene, []ActorSpawn, error) {
	var f sceneFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, nil, fmt.Errorf("scene: %w", err)
	}
	if f.Name == "" {
		return nil, nil, fmt.Errorf("scene: missing name")
	}
	sc := &Scene{name: f.Name}
	for _, e := range f.Sectors {
		typ, err := ParseSectorType(e.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("scene %s sector %s: %w", f.Name, e.Name, err)
		}
		if len(e.Vertices) < 3 {
			return nil, nil, fmt.Errorf("scene %s sector %s: need at least 3 vertices", f.Name, e.Name)
		}
		verts := make([]mgl32.Vec3, 0, len(e.Vertices))
		for _, v := range e.Vertices {
			verts = append(verts, mgl32.Vec3{v[0], v[1], v[2]})
		}
		sec := NewSector(e.ID, e.Name, typ, verts)
		sec.Height = e.Height
		if e.Visible != nil {
			sec.Visible = *e.Visible
		}
		if sec.Normal.Z() == 0 {
			return nil, nil, fmt.Errorf("scene %s sector %s: %w", f.Name, e.Name, ErrVerticalSector)
		}
		sc.sectors = append(sc.sectors, &sec)
	}
	return sc, f.Actors, nil
}
