// Package costume is an in-memory costume implementation driven by a YAML
// catalog. Chores are timers; there is no skeletal animation behind them.
package costume

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"actorcraft.ai/internal/sim/actor"
	"actorcraft.ai/internal/sim/encoding"
)

var ErrUnknown = errors.New("costume: not in catalog")

type ChoreDef struct {
	Name     string `yaml:"name"`
	// LengthMs <= 0 plays until stopped.
	LengthMs int64  `yaml:"length_ms"`
}

type Def struct {
	Name     string     `yaml:"name"`
	Colormap string     `yaml:"colormap"`
	Chores   []ChoreDef `yaml:"chores"`
}

type catalogFile struct {
	Costumes []Def `yaml:"costumes"`
}

// Library resolves costume names (case-insensitively) against a catalog.
type Library struct {
	defs map[string]Def
	log  *zap.Logger
}

func NewLibrary(defs []Def, log *zap.Logger) (*Library, error) {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Library{defs: make(map[string]Def, len(defs)), log: log}
	for _, d := range defs {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("costume catalog: entry without name")
		}
		key := strings.ToLower(d.Name)
		if _, dup := l.defs[key]; dup {
			return nil, fmt.Errorf("costume catalog: duplicate %q", d.Name)
		}
		l.defs[key] = d
	}
	return l, nil
}

func ParseLibrary(raw []byte, log *zap.Logger) (*Library, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("costumes.yaml: %w", err)
	}
	return NewLibrary(f.Costumes, log)
}

func LoadLibrary(path string, log *zap.Logger) (*Library, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLibrary(raw, log)
}

func (l *Library) Names() []string {
	out := make([]string, 0, len(l.defs))
	for _, d := range l.defs {
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}

func (l *Library) Def(name string) (Def, bool) {
	d, ok := l.defs[strings.ToLower(name)]
	return d, ok
}

func (l *Library) LoadCostume(name string, prev actor.Costume) (actor.Costume, error) {
	d, ok := l.Def(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	c := &Costume{
		def:      d,
		name:     name,
		prev:     prev,
		colormap: d.Colormap,
		chores:   make([]choreState, len(d.Chores)),
		log:      l.log,
	}
	return c, nil
}

type choreState struct {
	active  bool
	looping bool
	elapsed int64
}

type head struct {
	joints                    [3]int
	maxRoll, maxPitch, maxYaw float32
}

// Costume tracks chore timers and the pose pushed by its actor.
type Costume struct {
	def      Def
	name     string
	prev     actor.Costume
	colormap string
	chores   []choreState
	log      *zap.Logger

	pos              mgl32.Vec3
	pitch, yaw, roll float32
	lookAt           mgl32.Vec3
	lookRate         float32
	head             head

	draws    int
	released bool
}

func (c *Costume) Filename() string            { return c.name }
func (c *Costume) Previous() actor.Costume     { return c.prev }
func (c *Costume) ChoreCount() int             { return len(c.chores) }
func (c *Costume) Colormap() string            { return c.colormap }
func (c *Costume) SetColormap(name string)     { c.colormap = name }
func (c *Costume) Released() bool              { return c.released }
func (c *Costume) Draws() int                  { return c.draws }
func (c *Costume) Pose() (mgl32.Vec3, float32) { return c.pos, c.yaw }

func (c *Costume) choreOK(n int) bool {
	if n < 0 || n >= len(c.chores) {
		c.log.Warn("chore out of range", zap.String("costume", c.name), zap.Int("chore", n))
		return false
	}
	return true
}

func (c *Costume) PlayChore(n int) {
	if c.choreOK(n) {
		c.chores[n] = choreState{active: true}
	}
}

func (c *Costume) PlayChoreLooping(n int) {
	if c.choreOK(n) {
		c.chores[n] = choreState{active: true, looping: true}
	}
}

func (c *Costume) StopChore(n int) {
	if c.choreOK(n) {
		c.chores[n] = choreState{}
	}
}

func (c *Costume) IsChoring(n int, excludeLooping bool) int {
	if n < 0 || n >= len(c.chores) {
		return -1
	}
	st := c.chores[n]
	if !st.active || (excludeLooping && st.looping) {
		return -1
	}
	return n
}

// PlayingChores lists the names of active chores in table order.
func (c *Costume) PlayingChores() []string {
	var out []string
	for i, st := range c.chores {
		if st.active {
			out = append(out, c.def.Chores[i].Name)
		}
	}
	return out
}

func (c *Costume) SetHead(j1, j2, j3 int, maxRoll, maxPitch, maxYaw float32) {
	c.head = head{joints: [3]int{j1, j2, j3}, maxRoll: maxRoll, maxPitch: maxPitch, maxYaw: maxYaw}
}

func (c *Costume) SetPosRotate(pos mgl32.Vec3, pitch, yaw, roll float32) {
	c.pos, c.pitch, c.yaw, c.roll = pos, pitch, yaw, roll
}

func (c *Costume) SetLookAt(target mgl32.Vec3, rate float32) {
	c.lookAt, c.lookRate = target, rate
}

// Update advances chore timers. Looping chores wrap; others stop at their
// length.
func (c *Costume) Update(frameMillis int64) {
	for i := range c.chores {
		st := &c.chores[i]
		if !st.active {
			continue
		}
		st.elapsed += frameMillis
		length := c.def.Chores[i].LengthMs
		if length <= 0 || st.elapsed < length {
			continue
		}
		if st.looping {
			st.elapsed %= length
			continue
		}
		*st = choreState{}
	}
}

func (c *Costume) MoveHead()      {}
func (c *Costume) SetupTextures() {}
func (c *Costume) Draw()          { c.draws++ }

func (c *Costume) Release() {
	c.released = true
	for i := range c.chores {
		c.chores[i] = choreState{}
	}
}

func (c *Costume) SaveState(w *encoding.Writer) error {
	w.WriteString(c.colormap)
	w.WriteUint32(uint32(len(c.chores)))
	for _, st := range c.chores {
		w.WriteBool(st.active)
		w.WriteBool(st.looping)
		w.WriteInt32(int32(st.elapsed))
	}
	return w.Err()
}

func (c *Costume) RestoreState(r *encoding.Reader) error {
	colormap := r.ReadString()
	n := r.ReadUint32()
	if err := r.Err(); err != nil {
		return err
	}
	if int(n) != len(c.chores) {
		return fmt.Errorf("%w: costume %s saved with %d chores, catalog has %d",
			actor.ErrInconsistentState, c.name, n, len(c.chores))
	}
	chores := make([]choreState, n)
	for i := range chores {
		chores[i].active = r.ReadBool()
		chores[i].looping = r.ReadBool()
		chores[i].elapsed = int64(r.ReadInt32())
	}
	if err := r.Err(); err != nil {
		return err
	}
	c.colormap = colormap
	c.chores = chores
	return nil
}
