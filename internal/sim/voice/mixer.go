// Package voice is a clock-driven stand-in for the audio mixer. Sounds have a
// known length and "play" while the stage clock advances.
package voice

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"actorcraft.ai/internal/sim/actor"
	"actorcraft.ai/internal/sim/encoding"
)

const DefaultLengthMs = 2000

// maxCues bounds the cue count read from a save stream.
const maxCues = 1 << 12

type sound struct {
	startedAt int64
	length    int64
	pos       mgl32.Vec3
}

// Mixer implements actor.Voice.
type Mixer struct {
	clock   actor.Clock
	lengths map[string]int64
	def     int64
	log     *zap.Logger

	sounds map[string]*sound
}

// NewMixer returns a mixer whose cue lengths come from lengths; unknown cues
// last defaultMs.
func NewMixer(clock actor.Clock, lengths map[string]int64, defaultMs int64, log *zap.Logger) *Mixer {
	if defaultMs <= 0 {
		defaultMs = DefaultLengthMs
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Mixer{
		clock:   clock,
		lengths: lengths,
		def:     defaultMs,
		log:     log,
		sounds:  map[string]*sound{},
	}
}

func (m *Mixer) StartVoice(name string) {
	length, ok := m.lengths[name]
	if !ok {
		length = m.def
	}
	m.sounds[name] = &sound{startedAt: m.clock.Millis(), length: length}
	m.log.Debug("voice start", zap.String("cue", name), zap.Int64("length_ms", length))
}

func (m *Mixer) StopSound(name string) { delete(m.sounds, name) }

// live returns the sound if it is still within its length, dropping it
// otherwise.
func (m *Mixer) live(name string) *sound {
	s, ok := m.sounds[name]
	if !ok {
		return nil
	}
	if m.clock.Millis()-s.startedAt >= s.length {
		delete(m.sounds, name)
		return nil
	}
	return s
}

func (m *Mixer) SoundStatus(name string) bool { return m.live(name) != nil }

func (m *Mixer) PosIn60HzTicks(name string) int {
	s := m.live(name)
	if s == nil {
		return -1
	}
	return int((m.clock.Millis() - s.startedAt) * 60 / 1000)
}

func (m *Mixer) VoicePlaying() bool {
	for name := range m.sounds {
		if m.live(name) != nil {
			return true
		}
	}
	return false
}

func (m *Mixer) SetSoundPosition(name string, pos mgl32.Vec3) {
	if s := m.live(name); s != nil {
		s.pos = pos
	}
}

// Playing lists live cues in name order.
func (m *Mixer) Playing() []string {
	var out []string
	for name := range m.sounds {
		if m.live(name) != nil {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// SaveState writes each live cue with its elapsed time and length.
func (m *Mixer) SaveState(w *encoding.Writer) {
	names := m.Playing()
	w.WriteUint32(uint32(len(names)))
	for _, name := range names {
		s := m.sounds[name]
		w.WriteString(name)
		w.WriteInt64(m.clock.Millis() - s.startedAt)
		w.WriteInt64(s.length)
		w.WriteVec3(s.pos)
	}
}

// RestoreState replaces the live cues, rebasing their start on the current
// clock.
func (m *Mixer) RestoreState(r *encoding.Reader) error {
	n := r.ReadUint32()
	if err := r.Err(); err != nil {
		return err
	}
	if n > maxCues {
		return fmt.Errorf("%w: %d voice cues", encoding.ErrCorrupt, n)
	}
	sounds := make(map[string]*sound, n)
	now := m.clock.Millis()
	for i := uint32(0); i < n; i++ {
		name := r.ReadString()
		elapsed := r.ReadInt64()
		length := r.ReadInt64()
		pos := r.ReadVec3()
		if err := r.Err(); err != nil {
			return err
		}
		if elapsed < 0 || length <= 0 {
			return fmt.Errorf("%w: cue %s elapsed %d length %d", encoding.ErrCorrupt, name, elapsed, length)
		}
		sounds[name] = &sound{startedAt: now - elapsed, length: length, pos: pos}
	}
	m.sounds = sounds
	return nil
}
