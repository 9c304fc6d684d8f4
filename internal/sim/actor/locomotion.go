package actor

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"actorcraft.ai/internal/sim/mathx"
	"actorcraft.ai/internal/sim/pathing"
	"actorcraft.ai/internal/sim/walkmesh"
)

// crossNudge pushes a point past a sector exit so the neighbour contains it.
const crossNudge = 0.0001

// perSecond scales a per-second rate to the current frame.
func (a *Actor) perSecond(rate float32) float32 {
	return rate * float32(a.env.frameMillis()) / 1000
}

func (a *Actor) IsWalking() bool {
	return a.walkedLast || a.walkedCur || a.walking
}

func (a *Actor) IsTurning() bool {
	return a.turning || a.lastTurnDir != 0 || a.currTurnDir != 0
}

// TurnTo starts a turn towards yaw. Pitch and roll apply immediately.
func (a *Actor) TurnTo(pitch, yaw, roll float32) {
	a.pitch = pitch
	a.roll = roll
	if a.yaw != yaw {
		a.turning = true
		a.destYaw = yaw
		return
	}
	a.turning = false
}

// Turn rotates by one frame's worth of turn rate in direction dir (+1 or -1).
func (a *Actor) Turn(dir int) {
	a.SetYaw(a.yaw + a.perSecond(a.turnRate)*float32(dir))
	a.currTurnDir = int32(dir)
	a.turnMarker()
}

// YawTo is the heading in degrees that faces p from the actor.
func (a *Actor) YawTo(p mgl32.Vec3) float32 {
	return mathx.YawTo(a.pos, p)
}

// AngleTo is the unsigned angle in degrees between the actor's heading and
// the direction to other, ignoring height.
func (a *Actor) AngleTo(other *Actor) float32 {
	fwd := mathx.Forward(a.yaw, 0)
	delta := other.pos.Sub(a.pos)
	delta[2] = 0
	return mathx.Deg(mathx.Angle(fwd, delta))
}

// PuckVector is the heading projected onto the walking plane under the actor.
func (a *Actor) PuckVector() mgl32.Vec3 {
	fwd := mathx.Forward(a.yaw, 0)
	mesh := a.env.scene()
	if mesh == nil {
		return fwd
	}
	if sec := mesh.FindPointSector(a.pos, walkmesh.WalkType); sec != nil {
		return sec.ProjectToPuckVector(fwd)
	}
	return fwd
}

// WalkTo starts walking to p. Constrained actors plan over the walk-mesh and
// fall back to a direct line when no route exists. Any previous walk is
// dropped.
func (a *Actor) WalkTo(p mgl32.Vec3) {
	if p == a.pos {
		a.walking = false
		return
	}
	a.walking = true
	a.destPos = p
	a.path = a.path[:0]

	if a.constrain {
		if path, ok := pathing.Plan(a.env.scene(), a.pos, p); ok {
			a.path = path
			return
		}
		a.env.logger().Debug("no route, walking direct",
			zap.Int32("actor", a.id),
			zap.Float32s("from", a.pos[:]),
			zap.Float32s("to", p[:]))
	}
	a.path = append(a.path, p)
}

// WalkForward advances one frame along the heading. Constrained actors slide
// through adjacent sectors and deflect off shallow boundary hits.
func (a *Actor) WalkForward() {
	dist := a.perSecond(a.walkRate)
	fwd := mathx.Forward(a.yaw, a.pitch)

	a.walkMarker()

	if !a.constrain {
		a.pos = a.pos.Add(fwd.Mul(dist))
		a.walkedCur = true
		return
	}

	if dist < 0 {
		dist = -dist
		fwd = fwd.Mul(-1)
	}

	mesh := a.env.scene()
	var cur *walkmesh.Sector
	if mesh != nil {
		cur, a.pos = mesh.FindClosestSector(a.pos)
	}
	if cur == nil {
		a.pos = a.pos.Add(fwd.Mul(dist))
		a.walkedCur = true
		return
	}

	var ei walkmesh.Exit
	for cur != nil {
		prev := cur
		puck := cur.ProjectToPuckVector(fwd)
		if l := puck.Len(); l > 0 {
			puck = puck.Mul(1 / l)
		}
		ei = cur.ExitInfo(a.pos, puck)
		exitDist := ei.Point.Sub(a.pos).Len()
		if dist < exitDist {
			a.pos = a.pos.Add(puck.Mul(dist))
			a.walkedCur = true
			return
		}
		a.pos = ei.Point
		dist -= exitDist
		if exitDist > crossNudge {
			a.walkedCur = true
		}
		cur = mesh.FindPointSector(ei.Point.Add(puck.Mul(crossNudge)), walkmesh.WalkType)
		if cur == prev {
			break
		}
	}

	// Blocked: slide along the edge unless the hit is too steep.
	angle := mathx.Deg(ei.AngleWithEdge)
	dir := float32(1)
	if angle > 90 {
		angle = 180 - angle
		dir = -1
	}
	if angle > a.reflectionAngle {
		return
	}
	angle += 0.1
	turnAmt := a.perSecond(a.turnRate) * 5
	if turnAmt > angle {
		turnAmt = angle
	}
	a.SetYaw(a.yaw + turnAmt*dir)
}

// updateTurn moves yaw towards destYaw by the frame's turn amount. A zero
// turn rate snaps to the target.
func (a *Actor) updateTurn() {
	turnAmt := a.perSecond(a.turnRate) * 5
	dyaw := mathx.WrapDelta(a.destYaw - a.yaw)
	switch {
	case turnAmt == 0 || turnAmt >= mathx.Abs32(dyaw):
		a.SetYaw(a.destYaw)
		a.turning = false
	case dyaw > 0:
		a.SetYaw(a.yaw + turnAmt)
	default:
		a.SetYaw(a.yaw - turnAmt)
	}
	if dyaw > 0 {
		a.currTurnDir = 1
	} else {
		a.currTurnDir = -1
	}
	a.turnMarker()
}

// updateWalk consumes the next waypoint of the pending path.
func (a *Actor) updateWalk() {
	if len(a.path) == 0 {
		return
	}
	dest := a.path[len(a.path)-1]
	y := a.YawTo(dest)
	if y < 0 {
		y += 360
	}
	if a.pos.X() != dest.X() || a.pos.Y() != dest.Y() {
		a.TurnTo(a.pitch, y, a.roll)
	}

	dir := dest.Sub(a.pos)
	dist := dir.Len()
	if dist > 0 {
		dir = dir.Mul(1 / dist)
	}

	walkAmt := a.perSecond(a.walkRate)
	if walkAmt >= dist {
		a.pos = dest
		a.path = a.path[:len(a.path)-1]
		if len(a.path) == 0 {
			a.walking = false
			a.turning = false
		}
	} else {
		a.pos = a.pos.Add(dir.Mul(walkAmt))
	}

	a.walkedCur = true
	a.walkMarker()
}
