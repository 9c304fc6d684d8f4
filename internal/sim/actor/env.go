package actor

import (
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"actorcraft.ai/internal/sim/encoding"
	"actorcraft.ai/internal/sim/walkmesh"
)

// SceneProvider hands out walk-meshes. CurrentScene drives locomotion;
// FindScene resolves an actor's own set during save/restore.
type SceneProvider interface {
	CurrentScene() walkmesh.Mesh
	FindScene(name string) walkmesh.Mesh
}

// Costume is one animation layer on an actor's costume stack. Chore indices
// are local to the costume that defines them.
type Costume interface {
	Filename() string
	Previous() Costume
	ChoreCount() int

	PlayChore(chore int)
	PlayChoreLooping(chore int)
	StopChore(chore int)
	// IsChoring returns a non-negative value while chore is playing. Looping
	// chores are ignored when excludeLooping is set.
	IsChoring(chore int, excludeLooping bool) int

	SetColormap(name string)
	SetHead(joint1, joint2, joint3 int, maxRoll, maxPitch, maxYaw float32)
	SetPosRotate(pos mgl32.Vec3, pitch, yaw, roll float32)
	SetLookAt(target mgl32.Vec3, rate float32)
	Update(frameMillis int64)
	MoveHead()

	SetupTextures()
	Draw()

	SaveState(w *encoding.Writer) error
	RestoreState(r *encoding.Reader) error
	Release()
}

type CostumeLoader interface {
	// LoadCostume returns a fresh costume chained to prev (which may be nil).
	LoadCostume(name string, prev Costume) (Costume, error)
}

// Voice is the audio side of dialogue.
type Voice interface {
	StartVoice(name string)
	StopSound(name string)
	SoundStatus(name string) bool
	// PosIn60HzTicks returns -1 when the sound is not playing.
	PosIn60HzTicks(name string) int
	VoicePlaying() bool
	SetSoundPosition(name string, pos mgl32.Vec3)
}

// LipSync maps a voice position (60 Hz ticks) to a talk channel index
// (0..9), or -1 before the first entry.
type LipSync interface {
	Filename() string
	Anim(pos int) int
}

type LipSyncLoader interface {
	// LoadLipSync returns ok=false when no usable lip-sync data exists.
	LoadLipSync(name string) (LipSync, bool)
}

type Footstep int32

const (
	LeftWalk Footstep = iota
	RightWalk
	LeftRun
	RightRun
	LeftTurn
	RightTurn
)

func (f Footstep) String() string {
	switch f {
	case LeftWalk:
		return "left_walk"
	case RightWalk:
		return "right_walk"
	case LeftRun:
		return "left_run"
	case RightRun:
		return "right_run"
	case LeftTurn:
		return "left_turn"
	case RightTurn:
		return "right_turn"
	}
	return "unknown"
}

// MarkerSink receives footstep markers. Implementations swallow their own
// failures.
type MarkerSink interface {
	Footstep(actorID int32, step Footstep)
}

// TextService displays dialogue lines. Show returns a non-zero handle.
type TextService interface {
	HasFont() bool
	Show(text string, color encoding.Color, x, y int) uint32
	Kill(id uint32)
}

type Cutscene interface {
	Playing() bool
	Fullscreen() bool
}

// Renderer is the draw-call surface used by Draw. Bounds reports the screen
// rectangle touched since the last ResetBounds.
type Renderer interface {
	HardwareAccelerated() bool
	RefreshShadowMask() bool
	SetShadow(s *Shadow)
	DrawShadowPlanes()
	SetShadowMode()
	ClearShadowMode()
	StartActorDraw(pos mgl32.Vec3, yaw, pitch, roll float32)
	FinishActorDraw()
	ResetBounds()
	Bounds() (x1, y1, x2, y2 int32)
}

type Clock interface {
	FrameMillis() int64
	Millis() int64
}

// Env bundles the collaborators an actor talks to. Only Clock is required;
// a nil collaborator degrades to "absent".
type Env struct {
	Scenes   SceneProvider
	Costumes CostumeLoader
	Voice    Voice
	LipSyncs LipSyncLoader
	Markers  MarkerSink
	Text     TextService
	Cutscene Cutscene
	Clock    Clock
	Log      *zap.Logger

	// ShadowsChanged is called when a shadow plane is added.
	ShadowsChanged func()
}

func (e *Env) logger() *zap.Logger {
	if e == nil || e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func (e *Env) scene() walkmesh.Mesh {
	if e == nil || e.Scenes == nil {
		return nil
	}
	return e.Scenes.CurrentScene()
}

func (e *Env) frameMillis() int64 {
	if e == nil || e.Clock == nil {
		return 0
	}
	return e.Clock.FrameMillis()
}

func (e *Env) millis() int64 {
	if e == nil || e.Clock == nil {
		return 0
	}
	return e.Clock.Millis()
}

func (e *Env) soundPlaying(name string) bool {
	return e != nil && e.Voice != nil && name != "" && e.Voice.SoundStatus(name)
}

func (e *Env) cutscenePlaying() bool {
	return e != nil && e.Cutscene != nil && e.Cutscene.Playing()
}

func (e *Env) cutsceneFullscreen() bool {
	return e != nil && e.Cutscene != nil && e.Cutscene.Fullscreen()
}

// Params are the defaults a new actor starts with.
type Params struct {
	WalkRate        float32
	TurnRate        float32
	ReflectionAngle float32
	LookAtRate      float32
	StepMillis      int64
	RunStepMillis   int64
}

func DefaultParams() Params {
	return Params{
		WalkRate:        0.3,
		TurnRate:        100,
		ReflectionAngle: 80,
		LookAtRate:      200,
		StepMillis:      400,
		RunStepMillis:   300,
	}
}
