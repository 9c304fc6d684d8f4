package actor

import (
	"github.com/go-gl/mathgl/mgl32"

	"actorcraft.ai/internal/sim/encoding"
	"actorcraft.ai/internal/sim/mathx"
	"actorcraft.ai/internal/sim/pathing"
)

const ShadowSlots = 5

// Off-screen sentinels for the cached screen bounds.
const (
	boundsMin int32 = 1000
	boundsMax int32 = -1000
)

// Actor is one in-world character. It is owned by a single goroutine (the
// stage loop) and is not safe for concurrent use.
type Actor struct {
	env *Env

	id        int32
	name      string
	setName   string
	talkColor encoding.Color

	pos              mgl32.Vec3
	pitch, yaw, roll float32
	walkRate         float32
	turnRate         float32
	constrain        bool
	reflectionAngle  float32
	visible          bool
	lookingMode      bool
	lookAt           mgl32.Vec3
	lookAtRate       float32
	running          bool

	turning bool
	destYaw float32
	walking bool
	destPos mgl32.Vec3
	path    pathing.Path

	walkedLast, walkedCur    bool
	lastTurnDir, currTurnDir int32

	costumes []Costume

	// chain holds previous-costume links rebuilt on restore that are not on
	// the stack themselves.
	chain []Costume
	slots [channelCount]binding

	talkSoundName string
	lipSync       LipSync
	talkAnim      int32
	sayLineText   uint32

	shadows      [ShadowSlots]Shadow
	activeShadow int32

	winX1, winY1, winX2, winY2 int32

	lastStep      int64
	lastWasLeft   bool
	stepMillis    int64
	runStepMillis int64
}

// New creates an actor with the given id. Ids are assigned by the owning
// registry.
func New(env *Env, id int32, name string, p Params) *Actor {
	if env == nil {
		env = &Env{}
	}
	a := &Actor{
		env:             env,
		id:              id,
		name:            name,
		talkColor:       encoding.Color{R: 255, G: 255, B: 255},
		walkRate:        p.WalkRate,
		turnRate:        p.TurnRate,
		reflectionAngle: p.ReflectionAngle,
		lookAtRate:      p.LookAtRate,
		visible:         true,
		talkAnim:        -1,
		activeShadow:    -1,
		lastStep:        -1,
		stepMillis:      p.StepMillis,
		runStepMillis:   p.RunStepMillis,
	}
	a.resetBounds()
	for i := range a.slots {
		a.slots[i].chore = -1
	}
	return a
}

func (a *Actor) resetBounds() {
	a.winX1, a.winY1 = boundsMin, boundsMin
	a.winX2, a.winY2 = boundsMax, boundsMax
}

// Release pops every costume and clears every shadow slot.
func (a *Actor) Release() {
	a.ShutUp()
	a.ClearCostumes()
	a.releaseChain()
	a.ClearShadowPlanes()
}

func (a *Actor) ID() int32    { return a.id }
func (a *Actor) Name() string { return a.name }

// Set returns the name of the set the actor is in.
func (a *Actor) Set() string { return a.setName }

// PutInSet moves the actor to a set. Entering a named set makes the actor
// visible.
func (a *Actor) PutInSet(name string) {
	a.setName = name
	if name != "" {
		a.visible = true
	}
}

func (a *Actor) InSet(name string) bool { return a.setName == name }

func (a *Actor) TalkColor() encoding.Color     { return a.talkColor }
func (a *Actor) SetTalkColor(c encoding.Color) { a.talkColor = c }

func (a *Actor) Visible() bool     { return a.visible }
func (a *Actor) SetVisible(v bool) { a.visible = v }

func (a *Actor) Pos() mgl32.Vec3 { return a.pos }

// DestPos is the walk target while walking and the position otherwise.
func (a *Actor) DestPos() mgl32.Vec3 {
	if a.walking {
		return a.destPos
	}
	return a.pos
}

// SetPos teleports the actor and cancels any walk.
func (a *Actor) SetPos(p mgl32.Vec3) {
	a.walking = false
	a.pos = p
}

func (a *Actor) Pitch() float32 { return a.pitch }
func (a *Actor) Yaw() float32   { return a.yaw }
func (a *Actor) Roll() float32  { return a.roll }

// SetYaw stores yaw normalized into [0,360).
func (a *Actor) SetYaw(yaw float32) { a.yaw = mathx.NormalizeYaw(yaw) }

// SetRot sets the orientation immediately and cancels any turn.
func (a *Actor) SetRot(pitch, yaw, roll float32) {
	a.pitch = pitch
	a.SetYaw(yaw)
	a.roll = roll
	a.turning = false
}

func (a *Actor) WalkRate() float32            { return a.walkRate }
func (a *Actor) SetWalkRate(r float32)        { a.walkRate = r }
func (a *Actor) TurnRate() float32            { return a.turnRate }
func (a *Actor) SetTurnRate(r float32)        { a.turnRate = r }
func (a *Actor) Constrained() bool            { return a.constrain }
func (a *Actor) SetConstrained(c bool)        { a.constrain = c }
func (a *Actor) ReflectionAngle() float32     { return a.reflectionAngle }
func (a *Actor) SetReflectionAngle(d float32) { a.reflectionAngle = d }
func (a *Actor) Running() bool                { return a.running }
func (a *Actor) SetRunning(r bool)            { a.running = r }

func (a *Actor) SetLookAtVector(v mgl32.Vec3) { a.lookAt = v }
func (a *Actor) LookAtVector() mgl32.Vec3     { return a.lookAt }
func (a *Actor) SetLookAtRate(r float32)      { a.lookAtRate = r }
func (a *Actor) LookAtRate() float32          { return a.lookAtRate }
func (a *Actor) SetLooking(on bool)           { a.lookingMode = on }
func (a *Actor) Looking() bool                { return a.lookingMode }

// SetFootstepSpacing changes the minimum interval between footstep markers.
func (a *Actor) SetFootstepSpacing(walk, run int64) {
	a.stepMillis = walk
	a.runStepMillis = run
}

// Path returns a copy of the pending waypoints, destination first.
func (a *Actor) Path() pathing.Path {
	return append(pathing.Path(nil), a.path...)
}

// ScreenBounds is the rectangle cached by the last Draw.
func (a *Actor) ScreenBounds() (x1, y1, x2, y2 int32) {
	return a.winX1, a.winY1, a.winX2, a.winY2
}

// Pose is a read-only per-tick view of an actor.
type Pose struct {
	ID      int32      `json:"id"`
	Name    string     `json:"name"`
	Set     string     `json:"set"`
	Pos     [3]float32 `json:"pos"`
	Pitch   float32    `json:"pitch"`
	Yaw     float32    `json:"yaw"`
	Roll    float32    `json:"roll"`
	Walking bool       `json:"walking"`
	Turning bool       `json:"turning"`
	Talking bool       `json:"talking"`
	Costume string     `json:"costume,omitempty"`
}

func (a *Actor) Pose() Pose {
	p := Pose{
		ID:      a.id,
		Name:    a.name,
		Set:     a.setName,
		Pos:     [3]float32{a.pos[0], a.pos[1], a.pos[2]},
		Pitch:   a.pitch,
		Yaw:     a.yaw,
		Roll:    a.roll,
		Walking: a.IsWalking(),
		Turning: a.IsTurning(),
		Talking: a.talkSoundName != "" && a.env.soundPlaying(a.talkSoundName),
	}
	if c := a.CurrentCostume(); c != nil {
		p.Costume = c.Filename()
	}
	return p
}
