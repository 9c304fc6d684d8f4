package stage

import (
	"fmt"
	"sort"

	"actorcraft.ai/internal/sim/actor"
	"actorcraft.ai/internal/sim/encoding"
)

// Clock is the stage frame clock. Millis advances by one frame per Step.
type Clock struct {
	frame int64
	now   int64
}

func (c *Clock) FrameMillis() int64 { return c.frame }
func (c *Clock) Millis() int64      { return c.now }
func (c *Clock) advance()           { c.now += c.frame }

// TextLine is one dialogue line on screen.
type TextLine struct {
	ID    uint32
	Text  string
	Color encoding.Color
	X, Y  int
}

// TextBoard records the dialogue lines currently on screen.
type TextBoard struct {
	NoFont bool

	next  uint32
	lines map[uint32]TextLine
}

func NewTextBoard() *TextBoard {
	return &TextBoard{lines: map[uint32]TextLine{}}
}

func (b *TextBoard) HasFont() bool { return !b.NoFont }

func (b *TextBoard) Show(text string, color encoding.Color, x, y int) uint32 {
	b.next++
	b.lines[b.next] = TextLine{ID: b.next, Text: text, Color: color, X: x, Y: y}
	return b.next
}

func (b *TextBoard) Kill(id uint32) { delete(b.lines, id) }

func (b *TextBoard) Has(id uint32) bool {
	_, ok := b.lines[id]
	return ok
}

func (b *TextBoard) Lines() []TextLine {
	out := make([]TextLine, 0, len(b.lines))
	for _, l := range b.lines {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SaveState writes the id counter and the lines on screen in id order.
func (b *TextBoard) SaveState(w *encoding.Writer) {
	w.WriteUint32(b.next)
	lines := b.Lines()
	w.WriteUint32(uint32(len(lines)))
	for _, l := range lines {
		w.WriteUint32(l.ID)
		w.WriteString(l.Text)
		w.WriteColor(l.Color)
		w.WriteInt32(int32(l.X))
		w.WriteInt32(int32(l.Y))
	}
}

func (b *TextBoard) RestoreState(r *encoding.Reader) error {
	next := r.ReadUint32()
	n := r.ReadUint32()
	if err := r.Err(); err != nil {
		return err
	}
	if n > maxRecords {
		return fmt.Errorf("%w: %d text lines", encoding.ErrCorrupt, n)
	}
	lines := make(map[uint32]TextLine, n)
	for i := uint32(0); i < n; i++ {
		l := TextLine{ID: r.ReadUint32(), Text: r.ReadString(), Color: r.ReadColor()}
		l.X, l.Y = int(r.ReadInt32()), int(r.ReadInt32())
		if err := r.Err(); err != nil {
			return err
		}
		if l.ID == 0 || l.ID > next {
			return fmt.Errorf("%w: text line %d past counter %d", actor.ErrInconsistentState, l.ID, next)
		}
		lines[l.ID] = l
	}
	b.next, b.lines = next, lines
	return nil
}

type CutsceneState struct {
	playing    bool
	fullscreen bool
}

func (c *CutsceneState) Playing() bool    { return c.playing }
func (c *CutsceneState) Fullscreen() bool { return c.playing && c.fullscreen }

func (c *CutsceneState) Start(fullscreen bool) {
	c.playing, c.fullscreen = true, fullscreen
}

func (c *CutsceneState) End() { c.playing, c.fullscreen = false, false }

// markerFanout forwards footsteps to every sink in order.
type markerFanout []actor.MarkerSink

func fanout(sinks []actor.MarkerSink) actor.MarkerSink {
	var live markerFanout
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	if len(live) == 0 {
		return nil
	}
	return live
}

func (f markerFanout) Footstep(actorID int32, step actor.Footstep) {
	for _, s := range f {
		s.Footstep(actorID, step)
	}
}
