// Package stage owns the scenes, the actor registry and the frame clock, and
// steps every actor once per tick in id order.
package stage

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"actorcraft.ai/internal/sim/actor"
	"actorcraft.ai/internal/sim/voice"
	"actorcraft.ai/internal/sim/walkmesh"
)

var ErrUnknownScene = errors.New("stage: unknown scene")

const DefaultFrameMillis = 33

type Config struct {
	FrameMillis int64
	Params      actor.Params

	Costumes actor.CostumeLoader
	LipSyncs actor.LipSyncLoader
	// Voice defaults to a voice.Mixer on the stage clock, timed by
	// VoiceCues and VoiceDefaultMs.
	Voice    actor.Voice
	Markers  []actor.MarkerSink
	Log      *zap.Logger

	VoiceCues      map[string]int64
	VoiceDefaultMs int64

	// MaxTicks stops Run after that many ticks; 0 runs until cancelled.
	MaxTicks uint64
	// OnTick runs on the loop goroutine after every Step.
	OnTick   func(tick uint64, poses []actor.Pose)
}

type Stage struct {
	cfg    Config
	log    *zap.Logger
	params actor.Params

	scenes  map[string]*walkmesh.Scene
	current string

	actors map[int32]*actor.Actor
	nextID int32
	tick   uint64

	clock    *Clock
	text     *TextBoard
	mixer    *voice.Mixer
	cutscene *CutsceneState
	env      *actor.Env

	shadowsDirty bool

	cmds     chan func(*Stage)
	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config) *Stage {
	if cfg.FrameMillis <= 0 {
		cfg.FrameMillis = DefaultFrameMillis
	}
	if cfg.Params == (actor.Params{}) {
		cfg.Params = actor.DefaultParams()
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Stage{
		cfg:      cfg,
		log:      log,
		params:   cfg.Params,
		scenes:   map[string]*walkmesh.Scene{},
		actors:   map[int32]*actor.Actor{},
		nextID:   1,
		clock:    &Clock{frame: cfg.FrameMillis},
		text:     NewTextBoard(),
		cutscene: &CutsceneState{},
		cmds:     make(chan func(*Stage), 64),
		stop:     make(chan struct{}),
	}
	v := cfg.Voice
	if v == nil {
		s.mixer = voice.NewMixer(s.clock, cfg.VoiceCues, cfg.VoiceDefaultMs, log.Named("voice"))
		v = s.mixer
	}
	s.env = &actor.Env{
		Scenes:         s,
		Costumes:       cfg.Costumes,
		Voice:          v,
		LipSyncs:       cfg.LipSyncs,
		Markers:        fanout(cfg.Markers),
		Text:           s.text,
		Cutscene:       s.cutscene,
		Clock:          s.clock,
		Log:            log.Named("actor"),
		ShadowsChanged: func() { s.shadowsDirty = true },
	}
	return s
}

func (s *Stage) Env() *actor.Env          { return s.env }
func (s *Stage) Clock() *Clock            { return s.clock }
func (s *Stage) Text() *TextBoard         { return s.text }
func (s *Stage) Cutscene() *CutsceneState { return s.cutscene }
func (s *Stage) Tick() uint64             { return s.tick }
func (s *Stage) Params() actor.Params     { return s.params }

// AddScene registers a set. The first scene added becomes current.
func (s *Stage) AddScene(sc *walkmesh.Scene) {
	s.scenes[sc.Name()] = sc
	if s.current == "" {
		s.current = sc.Name()
	}
}

func (s *Stage) SetCurrentScene(name string) error {
	if _, ok := s.scenes[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownScene, name)
	}
	s.current = name
	return nil
}

func (s *Stage) CurrentSceneName() string { return s.current }

func (s *Stage) CurrentScene() walkmesh.Mesh {
	sc, ok := s.scenes[s.current]
	if !ok {
		return nil
	}
	return sc
}

func (s *Stage) FindScene(name string) walkmesh.Mesh {
	sc, ok := s.scenes[name]
	if !ok {
		return nil
	}
	return sc
}

// ShadowsChanged reports and clears the "shadow planes added" flag.
func (s *Stage) ShadowsChanged() bool {
	d := s.shadowsDirty
	s.shadowsDirty = false
	return d
}

// NewActor registers a fresh actor under the next id and places it in the
// current set.
func (s *Stage) NewActor(name string) *actor.Actor {
	id := s.nextID
	s.nextID++
	a := actor.New(s.env, id, name, s.params)
	a.PutInSet(s.current)
	s.actors[id] = a
	s.log.Debug("actor registered", zap.Int32("id", id), zap.String("name", name))
	return a
}

// Deregister pops every costume, clears every shadow slot and forgets the
// actor.
func (s *Stage) Deregister(id int32) bool {
	a, ok := s.actors[id]
	if !ok {
		return false
	}
	a.Release()
	delete(s.actors, id)
	return true
}

func (s *Stage) Actor(id int32) (*actor.Actor, bool) {
	a, ok := s.actors[id]
	return a, ok
}

// Actors returns the registered actors in id order.
func (s *Stage) Actors() []*actor.Actor {
	ids := make([]int32, 0, len(s.actors))
	for id := range s.actors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*actor.Actor, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.actors[id])
	}
	return out
}

func (s *Stage) FindActor(name string) (*actor.Actor, bool) {
	for _, a := range s.Actors() {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// Step advances every actor by one frame, then the clock.
func (s *Stage) Step() {
	for _, a := range s.Actors() {
		a.Update()
	}
	s.clock.advance()
	s.tick++
	if s.cfg.OnTick != nil {
		s.cfg.OnTick(s.tick, s.Poses())
	}
}

func (s *Stage) Poses() []actor.Pose {
	actors := s.Actors()
	out := make([]actor.Pose, 0, len(actors))
	for _, a := range actors {
		out = append(out, a.Pose())
	}
	return out
}

// ApplyParams updates the defaults for new actors and pushes the rates to
// every registered actor.
func (s *Stage) ApplyParams(p actor.Params) {
	s.params = p
	for _, a := range s.Actors() {
		a.SetWalkRate(p.WalkRate)
		a.SetTurnRate(p.TurnRate)
		a.SetReflectionAngle(p.ReflectionAngle)
		a.SetLookAtRate(p.LookAtRate)
		a.SetFootstepSpacing(p.StepMillis, p.RunStepMillis)
	}
}

func (s *Stage) clearActors() {
	for _, a := range s.actors {
		a.Release()
	}
	s.actors = map[int32]*actor.Actor{}
}
