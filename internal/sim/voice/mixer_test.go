package voice

import (
	"bytes"
	"testing"

	"actorcraft.ai/internal/sim/encoding"
)

type clock struct{ now int64 }

func (c *clock) FrameMillis() int64 { return 50 }
func (c *clock) Millis() int64      { return c.now }

func TestMixer_PlaysForCueLength(t *testing.T) {
	c := &clock{}
	m := NewMixer(c, map[string]int64{"short.wav": 100}, 0, nil)

	m.StartVoice("short.wav")
	m.StartVoice("other.wav")
	if !m.SoundStatus("short.wav") || m.PosIn60HzTicks("short.wav") != 0 {
		t.Fatalf("short.wav should be playing at 0")
	}

	c.now = 50
	if got := m.PosIn60HzTicks("short.wav"); got != 3 {
		t.Fatalf("pos=%d want 3", got)
	}
	c.now = 100
	if m.SoundStatus("short.wav") || m.PosIn60HzTicks("short.wav") != -1 {
		t.Fatalf("short.wav should have ended")
	}
	if !m.VoicePlaying() {
		t.Fatalf("default-length cue should still play")
	}
	if got := m.Playing(); len(got) != 1 || got[0] != "other.wav" {
		t.Fatalf("playing=%v", got)
	}

	c.now = DefaultLengthMs
	if m.VoicePlaying() {
		t.Fatalf("all cues should have ended")
	}
}

func TestMixer_StopSound(t *testing.T) {
	c := &clock{}
	m := NewMixer(c, nil, 1000, nil)
	m.StartVoice("a.wav")
	m.StopSound("a.wav")
	if m.SoundStatus("a.wav") {
		t.Fatalf("stopped sound still playing")
	}
	m.StopSound("never.wav")
}

func TestMixer_SaveRestoreKeepsRemainingLength(t *testing.T) {
	c := &clock{now: 1000}
	m := NewMixer(c, map[string]int64{"line.wav": 500}, 0, nil)
	m.StartVoice("line.wav")
	c.now = 1200

	var buf bytes.Buffer
	w := encoding.NewWriter(&buf)
	m.SaveState(w)
	if err := w.Err(); err != nil {
		t.Fatalf("save: %v", err)
	}

	c2 := &clock{now: 40}
	m2 := NewMixer(c2, nil, 0, nil)
	if err := m2.RestoreState(encoding.NewReader(bytes.NewReader(buf.Bytes()))); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := m2.PosIn60HzTicks("line.wav"); got != 12 {
		t.Fatalf("pos=%d want 12", got)
	}
	c2.now = 339
	if !m2.SoundStatus("line.wav") {
		t.Fatalf("line.wav ended early")
	}
	c2.now = 340
	if m2.SoundStatus("line.wav") {
		t.Fatalf("line.wav should have ended")
	}
}
