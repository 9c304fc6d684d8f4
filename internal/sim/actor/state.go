package actor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"actorcraft.ai/internal/sim/encoding"
	"actorcraft.ai/internal/sim/walkmesh"
)

// maxSaved bounds element counts read from a save stream.
const maxSaved = 1 << 16

// SaveState writes the full actor state in a fixed positional order.
// The actor id is not part of the record; the owning registry writes it.
func (a *Actor) SaveState(w *encoding.Writer) error {
	w.WriteString(a.name)
	w.WriteString(a.setName)
	w.WriteColor(a.talkColor)

	w.WriteVec3(a.pos)
	w.WriteFloat(a.pitch)
	w.WriteFloat(a.yaw)
	w.WriteFloat(a.roll)
	w.WriteFloat(a.walkRate)
	w.WriteFloat(a.turnRate)
	w.WriteBool(a.constrain)
	w.WriteFloat(a.reflectionAngle)
	w.WriteBool(a.visible)
	w.WriteBool(a.lookingMode)

	w.WriteString(a.talkSoundName)
	if a.lipSync != nil {
		w.WriteUint32(1)
		w.WriteString(a.lipSync.Filename())
	} else {
		w.WriteUint32(0)
	}

	w.WriteInt32(int32(len(a.costumes)))
	for _, c := range a.costumes {
		w.WriteString(c.Filename())
		var chain []string
		for pc := c.Previous(); pc != nil; pc = pc.Previous() {
			chain = append(chain, pc.Filename())
		}
		w.WriteUint32(uint32(len(chain)))
		for _, name := range chain {
			w.WriteString(name)
		}
		if err := c.SaveState(w); err != nil {
			return fmt.Errorf("save costume %s: %w", c.Filename(), err)
		}
	}

	w.WriteBool(a.turning)
	w.WriteFloat(a.destYaw)
	w.WriteBool(a.walking)
	w.WriteVec3(a.destPos)

	writeBinding(w, a.slots[ChannelRest])
	writeBinding(w, a.slots[ChannelWalk])
	w.WriteBool(a.walkedLast)
	w.WriteBool(a.walkedCur)

	turnCost := a.slots[ChannelTurnLeft].cost
	if turnCost == nil {
		turnCost = a.slots[ChannelTurnRight].cost
	}
	writeCostumeRef(w, turnCost)
	w.WriteInt32(int32(a.slots[ChannelTurnLeft].chore))
	w.WriteInt32(int32(a.slots[ChannelTurnRight].chore))
	w.WriteInt32(a.lastTurnDir)
	w.WriteInt32(a.currTurnDir)

	for i := 0; i < TalkChannels; i++ {
		writeBinding(w, a.slots[channelTalk0+Channel(i)])
	}
	w.WriteInt32(a.talkAnim)
	writeBinding(w, a.slots[ChannelMumble])

	var scene walkmesh.Mesh
	for i := range a.shadows {
		s := &a.shadows[i]
		w.WriteString(s.Name)
		w.WriteVec3(s.Pos)
		w.WriteInt32(int32(len(s.Planes)))
		if len(s.Planes) > 0 && scene == nil {
			// Planes may come from another scene than the current one, so
			// resolve them against the actor's own set.
			if scene = a.findScene(); scene == nil {
				return fmt.Errorf("%w: save shadow %d: no scene %q", ErrInconsistentState, i, a.setName)
			}
		}
		for j := range s.Planes {
			idx := scene.IndexOf(&s.Planes[j])
			if idx < 0 {
				return fmt.Errorf("%w: save shadow %d: sector %q not in scene %q", ErrInconsistentState, i, s.Planes[j].Name, a.setName)
			}
			w.WriteInt32(int32(idx))
			w.WriteInt32(s.Planes[j].ID)
		}
		w.WriteMask(s.Mask)
		w.WriteBool(s.Active)
		w.WriteBool(s.DontNegate)
	}
	w.WriteInt32(a.activeShadow)

	w.WriteUint32(a.sayLineText)
	w.WriteVec3(a.lookAt)
	w.WriteFloat(a.lookAtRate)

	w.WriteInt32(a.winX1)
	w.WriteInt32(a.winY1)
	w.WriteInt32(a.winX2)
	w.WriteInt32(a.winY2)

	w.WriteInt32(int32(len(a.path)))
	for _, p := range a.path {
		w.WriteVec3(p)
	}

	w.WriteBool(a.running)
	w.WriteBool(a.lastWasLeft)
	w.WriteInt64(a.lastStep)
	return w.Err()
}

func writeCostumeRef(w *encoding.Writer, c Costume) {
	if c == nil {
		w.WriteUint32(0)
		return
	}
	w.WriteUint32(1)
	w.WriteString(c.Filename())
}

func writeBinding(w *encoding.Writer, b binding) {
	writeCostumeRef(w, b.cost)
	w.WriteInt32(int32(b.chore))
}

func (a *Actor) findScene() walkmesh.Mesh {
	if a.env.Scenes == nil {
		return nil
	}
	return a.env.Scenes.FindScene(a.setName)
}

// RestoreState replaces the actor state with a record written by SaveState.
// Costumes and their previous-costume chains are rebuilt before any chore
// binding is resolved against them. References to costumes, scenes or
// sectors that cannot be resolved abort the restore with
// ErrInconsistentState.
func (a *Actor) RestoreState(r *encoding.Reader) error {
	a.ClearCostumes()
	a.releaseChain()
	a.ClearShadowPlanes()

	a.name = r.ReadString()
	a.setName = r.ReadString()
	a.talkColor = r.ReadColor()

	a.pos = r.ReadVec3()
	a.pitch = r.ReadFloat()
	a.yaw = r.ReadFloat()
	a.roll = r.ReadFloat()
	a.walkRate = r.ReadFloat()
	a.turnRate = r.ReadFloat()
	a.constrain = r.ReadBool()
	a.reflectionAngle = r.ReadFloat()
	a.visible = r.ReadBool()
	a.lookingMode = r.ReadBool()

	a.talkSoundName = r.ReadString()
	a.lipSync = nil
	if r.ReadUint32() != 0 {
		fn := r.ReadString()
		if a.env.LipSyncs != nil {
			if ls, ok := a.env.LipSyncs.LoadLipSync(fn); ok {
				a.lipSync = ls
			}
		}
		if a.lipSync == nil && r.Err() == nil {
			a.env.logger().Warn("lip sync missing on restore", zap.Int32("actor", a.id), zap.String("file", fn))
		}
	}

	if err := a.restoreCostumes(r); err != nil {
		return err
	}

	a.turning = r.ReadBool()
	a.destYaw = r.ReadFloat()
	a.walking = r.ReadBool()
	a.destPos = r.ReadVec3()

	var err error
	if a.slots[ChannelRest], err = a.readBinding(r); err != nil {
		return err
	}
	if a.slots[ChannelWalk], err = a.readBinding(r); err != nil {
		return err
	}
	a.walkedLast = r.ReadBool()
	a.walkedCur = r.ReadBool()

	turnCost, err := a.readCostumeRef(r)
	if err != nil {
		return err
	}
	left, right := int(r.ReadInt32()), int(r.ReadInt32())
	if a.slots[ChannelTurnLeft], err = a.checkBinding(turnCost, left); err != nil {
		return err
	}
	if a.slots[ChannelTurnRight], err = a.checkBinding(turnCost, right); err != nil {
		return err
	}
	a.lastTurnDir = r.ReadInt32()
	a.currTurnDir = r.ReadInt32()

	for i := 0; i < TalkChannels; i++ {
		if a.slots[channelTalk0+Channel(i)], err = a.readBinding(r); err != nil {
			return err
		}
	}
	a.talkAnim = r.ReadInt32()
	if a.talkAnim < -1 || a.talkAnim >= TalkChannels {
		return fmt.Errorf("%w: talk anim %d", ErrInconsistentState, a.talkAnim)
	}
	if a.slots[ChannelMumble], err = a.readBinding(r); err != nil {
		return err
	}

	if err := a.restoreShadows(r); err != nil {
		return err
	}
	a.activeShadow = r.ReadInt32()
	if a.activeShadow < -1 || a.activeShadow >= ShadowSlots {
		return fmt.Errorf("%w: active shadow slot %d", ErrInconsistentState, a.activeShadow)
	}

	a.sayLineText = r.ReadUint32()
	a.lookAt = r.ReadVec3()
	a.lookAtRate = r.ReadFloat()

	a.winX1 = r.ReadInt32()
	a.winY1 = r.ReadInt32()
	a.winX2 = r.ReadInt32()
	a.winY2 = r.ReadInt32()

	n := r.ReadInt32()
	if err := r.Err(); err != nil {
		return err
	}
	if n < 0 || n > maxSaved {
		return fmt.Errorf("%w: path length %d", encoding.ErrCorrupt, n)
	}
	a.path = make([]mgl32.Vec3, 0, n)
	for i := int32(0); i < n; i++ {
		a.path = append(a.path, r.ReadVec3())
	}

	a.running = r.ReadBool()
	a.lastWasLeft = r.ReadBool()
	a.lastStep = r.ReadInt64()
	if err := r.Err(); err != nil {
		return err
	}
	a.dropStaleHandles()
	return nil
}

// textLookup is implemented by text services that can tell whether a line
// is still on screen.
type textLookup interface {
	Has(id uint32) bool
}

// dropStaleHandles forgets a restored voice or text line that the services
// no longer know about.
func (a *Actor) dropStaleHandles() {
	if a.talkSoundName != "" && !a.env.soundPlaying(a.talkSoundName) {
		a.env.logger().Debug("restored voice line not playing",
			zap.Int32("actor", a.id), zap.String("sound", a.talkSoundName))
		a.talkSoundName = ""
		if a.lipSync != nil {
			if a.talkAnim >= 0 {
				a.slots[channelTalk0+Channel(a.talkAnim)].stop()
			}
			a.lipSync = nil
		} else {
			a.slots[ChannelMumble].stop()
		}
		a.talkAnim = -1
	}
	if a.sayLineText == 0 {
		return
	}
	if a.env.Text == nil {
		a.sayLineText = 0
		return
	}
	if tl, ok := a.env.Text.(textLookup); ok && !tl.Has(a.sayLineText) {
		a.sayLineText = 0
	}
}

func (a *Actor) restoreCostumes(r *encoding.Reader) error {
	n := r.ReadInt32()
	if err := r.Err(); err != nil {
		return err
	}
	if n < 0 || n > maxSaved {
		return fmt.Errorf("%w: costume count %d", encoding.ErrCorrupt, n)
	}
	if n > 0 && a.env.Costumes == nil {
		return fmt.Errorf("%w: no costume loader", ErrInconsistentState)
	}
	for i := int32(0); i < n; i++ {
		fname := r.ReadString()
		depth := r.ReadUint32()
		if err := r.Err(); err != nil {
			return err
		}
		if depth > maxSaved {
			return fmt.Errorf("%w: costume chain depth %d", encoding.ErrCorrupt, depth)
		}
		names := make([]string, depth)
		for j := range names {
			names[j] = r.ReadString()
		}
		if err := r.Err(); err != nil {
			return err
		}

		// Chain names are nearest first; rebuild from the far end. Link j
		// normally sits j+1 layers below this costume.
		var prev Costume
		for j := len(names) - 1; j >= 0; j-- {
			if c := a.chainLink(int(i), j, names[j]); c != nil {
				prev = c
				continue
			}
			c, err := a.env.Costumes.LoadCostume(names[j], prev)
			if err != nil {
				return fmt.Errorf("%w: costume chain %s: %v", ErrInconsistentState, names[j], err)
			}
			a.chain = append(a.chain, c)
			prev = c
		}

		c, err := a.env.Costumes.LoadCostume(fname, prev)
		if err != nil {
			return fmt.Errorf("%w: costume %s: %v", ErrInconsistentState, fname, err)
		}
		a.costumes = append(a.costumes, c)
		if err := c.RestoreState(r); err != nil {
			if errors.Is(err, encoding.ErrCorrupt) {
				return err
			}
			return fmt.Errorf("%w: costume %s: %v", ErrInconsistentState, fname, err)
		}
	}
	return nil
}

// chainLink resolves link j of the costume restored at stack index i against
// the layers already restored beneath it, nearest first.
func (a *Actor) chainLink(i, j int, name string) Costume {
	below := a.costumes[:i]
	if k := i - 1 - j; k >= 0 && strings.EqualFold(below[k].Filename(), name) {
		return below[k]
	}
	return findTopDown(below, name)
}

// findTopDown returns the topmost costume named name.
func findTopDown(stack []Costume, name string) Costume {
	for k := len(stack) - 1; k >= 0; k-- {
		if strings.EqualFold(stack[k].Filename(), name) {
			return stack[k]
		}
	}
	return nil
}

func (a *Actor) readCostumeRef(r *encoding.Reader) (Costume, error) {
	if r.ReadUint32() == 0 {
		return nil, r.Err()
	}
	name := r.ReadString()
	if err := r.Err(); err != nil {
		return nil, err
	}
	c := findTopDown(a.costumes, name)
	if c == nil {
		return nil, fmt.Errorf("%w: chore costume %q not on the stack", ErrInconsistentState, name)
	}
	return c, nil
}

func (a *Actor) readBinding(r *encoding.Reader) (binding, error) {
	c, err := a.readCostumeRef(r)
	if err != nil {
		return binding{chore: -1}, err
	}
	return a.checkBinding(c, int(r.ReadInt32()))
}

func (a *Actor) checkBinding(c Costume, chore int) (binding, error) {
	if chore < 0 {
		return binding{cost: c, chore: -1}, nil
	}
	if c == nil || chore >= c.ChoreCount() {
		return binding{chore: -1}, fmt.Errorf("%w: chore %d has no costume for it", ErrInconsistentState, chore)
	}
	return binding{cost: c, chore: chore}, nil
}

func (a *Actor) restoreShadows(r *encoding.Reader) error {
	var scene walkmesh.Mesh
	for i := range a.shadows {
		s := &a.shadows[i]
		s.Name = r.ReadString()
		s.Pos = r.ReadVec3()
		n := r.ReadInt32()
		if err := r.Err(); err != nil {
			return err
		}
		if n < 0 || n > maxSaved {
			return fmt.Errorf("%w: shadow %d plane count %d", encoding.ErrCorrupt, i, n)
		}
		if n > 0 && scene == nil {
			if scene = a.findScene(); scene == nil {
				return fmt.Errorf("%w: shadow %d: no scene %q", ErrInconsistentState, i, a.setName)
			}
		}
		s.Planes = make([]walkmesh.Sector, 0, n)
		for j := int32(0); j < n; j++ {
			idx, id := r.ReadInt32(), r.ReadInt32()
			if err := r.Err(); err != nil {
				return err
			}
			sec := scene.Sector(int(idx))
			if sec == nil {
				return fmt.Errorf("%w: shadow %d: sector index %d out of range in %q", ErrInconsistentState, i, idx, a.setName)
			}
			if sec.ID != id {
				return fmt.Errorf("%w: shadow %d: sector %d has id %d, saved %d", ErrInconsistentState, i, idx, sec.ID, id)
			}
			s.Planes = append(s.Planes, sec.Clone())
		}
		s.Mask = r.ReadMask()
		s.Active = r.ReadBool()
		s.DontNegate = r.ReadBool()
	}
	return r.Err()
}
