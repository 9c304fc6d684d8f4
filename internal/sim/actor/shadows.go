package actor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"actorcraft.ai/internal/sim/walkmesh"
)

// Shadow is one shadow slot. Planes are value copies of scene sectors so
// they outlive the scene they came from.
type Shadow struct {
	Name       string
	Pos        mgl32.Vec3
	Planes     []walkmesh.Sector
	Mask       []byte
	Active     bool
	DontNegate bool
}

func (s *Shadow) clear() {
	s.Planes = nil
	s.Mask = nil
	s.Active = false
	s.DontNegate = false
}

func (s Shadow) clone() Shadow {
	c := s
	c.Planes = make([]walkmesh.Sector, len(s.Planes))
	for i := range s.Planes {
		c.Planes[i] = s.Planes[i].Clone()
	}
	c.Mask = append([]byte(nil), s.Mask...)
	return c
}

// Shadow returns a copy of slot i.
func (a *Actor) Shadow(i int) (Shadow, bool) {
	if i < 0 || i >= ShadowSlots {
		return Shadow{}, false
	}
	return a.shadows[i].clone(), true
}

// ActiveShadow is the slot selected for editing, or -1.
func (a *Actor) ActiveShadow() int { return int(a.activeShadow) }

// SetActiveShadow selects slot id for editing and switches it on.
func (a *Actor) SetActiveShadow(id int) error {
	if id < 0 || id >= ShadowSlots {
		return fmt.Errorf("%w: shadow slot %d out of range", ErrConfig, id)
	}
	a.activeShadow = int32(id)
	a.shadows[id].Active = true
	return nil
}

func (a *Actor) editShadow() (*Shadow, error) {
	if a.activeShadow < 0 || a.activeShadow >= ShadowSlots {
		return nil, fmt.Errorf("%w: no shadow slot selected", ErrConfig)
	}
	return &a.shadows[a.activeShadow], nil
}

func (a *Actor) SetShadowPlane(name string) error {
	s, err := a.editShadow()
	if err != nil {
		return err
	}
	s.Name = name
	return nil
}

// AddShadowPlane copies the first current-scene sector called name into the
// selected slot. Unknown names are ignored.
func (a *Actor) AddShadowPlane(name string) error {
	s, err := a.editShadow()
	if err != nil {
		return err
	}
	mesh := a.env.scene()
	if mesh == nil {
		return nil
	}
	for i := 0; i < mesh.SectorCount(); i++ {
		sec := mesh.Sector(i)
		if sec == nil || sec.Name != name {
			continue
		}
		s.Planes = append(s.Planes, sec.Clone())
		if a.env.ShadowsChanged != nil {
			a.env.ShadowsChanged()
		}
		return nil
	}
	return nil
}

// SetShadowValid marks the selected slot as not negated when valid is -1.
func (a *Actor) SetShadowValid(valid int) error {
	s, err := a.editShadow()
	if err != nil {
		return err
	}
	s.DontNegate = valid == -1
	return nil
}

func (a *Actor) SetActivateShadow(id int, on bool) error {
	if id < 0 || id >= ShadowSlots {
		return fmt.Errorf("%w: shadow slot %d out of range", ErrConfig, id)
	}
	a.shadows[id].Active = on
	return nil
}

func (a *Actor) SetShadowPoint(p mgl32.Vec3) error {
	s, err := a.editShadow()
	if err != nil {
		return err
	}
	s.Pos = p
	return nil
}

// SetShadowMask stores the rendered mask for slot id.
func (a *Actor) SetShadowMask(id int, mask []byte) error {
	if id < 0 || id >= ShadowSlots {
		return fmt.Errorf("%w: shadow slot %d out of range", ErrConfig, id)
	}
	a.shadows[id].Mask = append([]byte(nil), mask...)
	return nil
}

// ClearShadowPlanes drops planes and masks of every slot. Names, points and
// the selected slot are kept.
func (a *Actor) ClearShadowPlanes() {
	for i := range a.shadows {
		a.shadows[i].clear()
	}
}
