package actor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"actorcraft.ai/internal/sim/encoding"
	"actorcraft.ai/internal/sim/walkmesh"
)

type fakeCostume struct {
	name     string
	prev     Costume
	chores   int
	playing  map[int]bool // chore -> looping
	calls    []string
	colormap string
	released bool
	updates  int
	state    int32
}

func (c *fakeCostume) Filename() string  { return c.name }
func (c *fakeCostume) Previous() Costume { return c.prev }
func (c *fakeCostume) ChoreCount() int   { return c.chores }

func (c *fakeCostume) PlayChore(n int) {
	c.calls = append(c.calls, fmt.Sprintf("play:%d", n))
	c.playing[n] = false
}

func (c *fakeCostume) PlayChoreLooping(n int) {
	c.calls = append(c.calls, fmt.Sprintf("loop:%d", n))
	c.playing[n] = true
}

func (c *fakeCostume) StopChore(n int) {
	c.calls = append(c.calls, fmt.Sprintf("stop:%d", n))
	delete(c.playing, n)
}

func (c *fakeCostume) IsChoring(n int, excludeLooping bool) int {
	loop, ok := c.playing[n]
	if !ok || (excludeLooping && loop) {
		return -1
	}
	return 0
}

func (c *fakeCostume) SetColormap(name string)                            { c.colormap = name }
func (c *fakeCostume) SetHead(int, int, int, float32, float32, float32)   {}
func (c *fakeCostume) SetPosRotate(mgl32.Vec3, float32, float32, float32) {}
func (c *fakeCostume) SetLookAt(mgl32.Vec3, float32)                      {}
func (c *fakeCostume) Update(int64)                                       { c.updates++ }
func (c *fakeCostume) MoveHead()                                          {}
func (c *fakeCostume) SetupTextures()                                     {}
func (c *fakeCostume) Draw()                                              { c.calls = append(c.calls, "draw") }
func (c *fakeCostume) Release()                                           { c.released = true }

func (c *fakeCostume) SaveState(w *encoding.Writer) error {
	w.WriteInt32(c.state)
	return w.Err()
}

func (c *fakeCostume) RestoreState(r *encoding.Reader) error {
	c.state = r.ReadInt32()
	return r.Err()
}

func (c *fakeCostume) resetCalls() { c.calls = nil }

type fakeLoader struct {
	chores int
	loaded []*fakeCostume
	refuse map[string]bool
}

func (l *fakeLoader) LoadCostume(name string, prev Costume) (Costume, error) {
	if strings.HasPrefix(name, "missing") || l.refuse[name] {
		return nil, errors.New("no such costume")
	}
	c := &fakeCostume{name: name, prev: prev, chores: l.chores, playing: map[int]bool{}}
	l.loaded = append(l.loaded, c)
	return c, nil
}

type fakeScenes struct {
	cur    *walkmesh.Scene
	byName map[string]*walkmesh.Scene
}

func (s *fakeScenes) CurrentScene() walkmesh.Mesh {
	if s.cur == nil {
		return nil
	}
	return s.cur
}

func (s *fakeScenes) FindScene(name string) walkmesh.Mesh {
	if sc, ok := s.byName[name]; ok {
		return sc
	}
	return nil
}

type fakeClock struct {
	frame int64
	now   int64
}

func (c *fakeClock) FrameMillis() int64 { return c.frame }
func (c *fakeClock) Millis() int64      { return c.now }
func (c *fakeClock) tick()              { c.now += c.frame }

type stepEvent struct {
	at   int64
	step Footstep
}

type fakeMarkers struct {
	clock  *fakeClock
	events []stepEvent
}

func (m *fakeMarkers) Footstep(_ int32, step Footstep) {
	m.events = append(m.events, stepEvent{at: m.clock.now, step: step})
}

type fakeVoice struct {
	playing map[string]int
	started []string
	stopped []string
}

func (v *fakeVoice) StartVoice(name string) {
	v.started = append(v.started, name)
	v.playing[name] = 0
}

func (v *fakeVoice) StopSound(name string) {
	v.stopped = append(v.stopped, name)
	delete(v.playing, name)
}

func (v *fakeVoice) SoundStatus(name string) bool {
	_, ok := v.playing[name]
	return ok
}

func (v *fakeVoice) PosIn60HzTicks(name string) int {
	pos, ok := v.playing[name]
	if !ok {
		return -1
	}
	return pos
}

func (v *fakeVoice) VoicePlaying() bool                  { return len(v.playing) > 0 }
func (v *fakeVoice) SetSoundPosition(string, mgl32.Vec3) {}

// fakeLip switches talk channel every 10 ticks: 0, 1, 2, ...
type fakeLip struct{ name string }

func (l fakeLip) Filename() string { return l.name }
func (l fakeLip) Anim(pos int) int { return (pos / 10) % TalkChannels }

type fakeLips struct{ known map[string]bool }

func (l fakeLips) LoadLipSync(name string) (LipSync, bool) {
	if !l.known[name] {
		return nil, false
	}
	return fakeLip{name: name}, true
}

type shownText struct {
	text string
	x, y int
}

type fakeText struct {
	next  uint32
	shown map[uint32]shownText
}

func (t *fakeText) HasFont() bool { return true }

func (t *fakeText) Show(text string, _ encoding.Color, x, y int) uint32 {
	t.next++
	t.shown[t.next] = shownText{text: text, x: x, y: y}
	return t.next
}

func (t *fakeText) Kill(id uint32) { delete(t.shown, id) }

func (t *fakeText) Has(id uint32) bool {
	_, ok := t.shown[id]
	return ok
}

type fakeRenderer struct {
	hw    bool
	calls []string
}

func (r *fakeRenderer) HardwareAccelerated() bool { return r.hw }
func (r *fakeRenderer) RefreshShadowMask() bool   { return true }

func (r *fakeRenderer) SetShadow(s *Shadow) {
	if s == nil {
		r.calls = append(r.calls, "shadow:nil")
		return
	}
	r.calls = append(r.calls, "shadow:"+s.Name)
}

func (r *fakeRenderer) DrawShadowPlanes() { r.calls = append(r.calls, "planes") }
func (r *fakeRenderer) SetShadowMode()    { r.calls = append(r.calls, "mode") }
func (r *fakeRenderer) ClearShadowMode()  { r.calls = append(r.calls, "clear") }
func (r *fakeRenderer) StartActorDraw(mgl32.Vec3, float32, float32, float32) {
	r.calls = append(r.calls, "start")
}
func (r *fakeRenderer) FinishActorDraw()                     { r.calls = append(r.calls, "finish") }
func (r *fakeRenderer) ResetBounds()                         {}
func (r *fakeRenderer) Bounds() (int32, int32, int32, int32) { return 100, 50, 200, 300 }

type harness struct {
	env     *Env
	clock   *fakeClock
	loader  *fakeLoader
	scenes  *fakeScenes
	markers *fakeMarkers
	voice   *fakeVoice
	text    *fakeText
}

func box(id int32, name string, x0, y0, x1, y1 float32) walkmesh.Sector {
	return walkmesh.NewSector(id, name, walkmesh.WalkType, []mgl32.Vec3{
		{x0, y0, 0}, {x1, y0, 0}, {x1, y1, 0}, {x0, y1, 0},
	})
}

func newHarness(sc *walkmesh.Scene) *harness {
	h := &harness{
		clock:  &fakeClock{frame: 100},
		loader: &fakeLoader{chores: 12},
		scenes: &fakeScenes{cur: sc, byName: map[string]*walkmesh.Scene{}},
		voice:  &fakeVoice{playing: map[string]int{}},
		text:   &fakeText{shown: map[uint32]shownText{}},
	}
	if sc != nil {
		h.scenes.byName[sc.Name()] = sc
	}
	h.markers = &fakeMarkers{clock: h.clock}
	h.env = &Env{
		Scenes:   h.scenes,
		Costumes: h.loader,
		Voice:    h.voice,
		LipSyncs: fakeLips{known: map[string]bool{"line1.lip": true}},
		Markers:  h.markers,
		Text:     h.text,
		Clock:    h.clock,
	}
	return h
}

func (h *harness) step(a *Actor) {
	a.Update()
	h.clock.tick()
}
