// Package lipsync reads LIP! mouth-shape tracks and maps voice positions to
// talk channels.
package lipsync

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"actorcraft.ai/internal/sim/actor"
)

var ErrFormat = errors.New("lipsync: not a LIP! file")

const (
	headerSize  = 8
	entrySize   = 4
	// unknownAnim is used for phonemes missing from the table.
	unknownAnim = 1
)

// phonemeAnim maps IPA code points to talk channel indices.
var phonemeAnim = map[uint16]int{
	0x005F: 0, 0x0251: 1, 0x0061: 1, 0x00E6: 1, 0x028C: 8,
	0x0254: 1, 0x0259: 1, 0x0062: 6, 0x02A7: 2, 0x0064: 2,
	0x00F0: 5, 0x025B: 8, 0x0268: 8, 0x025A: 9, 0x025D: 9,
	0x0065: 1, 0x0066: 4, 0x0067: 8, 0x0261: 8, 0x0068: 8,
	0x026A: 8, 0x0069: 3, 0x02A4: 2, 0x006B: 2, 0x006C: 5,
	0x026B: 5, 0x006D: 6, 0x006E: 8, 0x014B: 8, 0x006F: 7,
	0x0070: 6, 0x0072: 2, 0x027B: 2, 0x0279: 2, 0x0073: 2,
	0x0283: 2, 0x0074: 2, 0x027E: 2, 0x03B8: 5, 0x028A: 9,
	0x0075: 9, 0x0076: 4, 0x0077: 9, 0x006A: 8, 0x007A: 2,
	0x0292: 2, 0x002E: 2,
}

type Entry struct {
	Frame uint16
	Anim  int
}

// Track is a parsed lip-sync file. Frames are in 60 Hz ticks.
type Track struct {
	name    string
	entries []Entry
}

// Parse decodes a LIP! file. Unknown phonemes map to channel 1 and are
// logged.
func Parse(name string, data []byte, log *zap.Logger) (*Track, error) {
	if len(data) < headerSize || string(data[:4]) != "LIP!" {
		return nil, fmt.Errorf("%s: %w", name, ErrFormat)
	}
	if log == nil {
		log = zap.NewNop()
	}
	n := (len(data) - headerSize) / entrySize
	t := &Track{name: name, entries: make([]Entry, 0, n)}
	body := data[headerSize:]
	for i := 0; i < n; i++ {
		rec := body[i*entrySize:]
		frame := binary.LittleEndian.Uint16(rec[0:2])
		ph := binary.LittleEndian.Uint16(rec[2:4])
		anim, ok := phonemeAnim[ph]
		if !ok {
			log.Warn("unknown phoneme", zap.String("file", name), zap.Uint16("phoneme", ph))
			anim = unknownAnim
		}
		t.entries = append(t.entries, Entry{Frame: frame, Anim: anim})
	}
	return t, nil
}

func (t *Track) Filename() string { return t.name }

func (t *Track) Entries() []Entry { return append([]Entry(nil), t.entries...) }

// Anim returns the channel of the entry whose frame range covers pos, or -1
// before the first entry.
func (t *Track) Anim(pos int) int {
	for i, e := range t.entries {
		if pos < int(e.Frame) {
			continue
		}
		if i+1 < len(t.entries) && pos >= int(t.entries[i+1].Frame) {
			continue
		}
		return e.Anim
	}
	return -1
}

// DirLoader serves tracks from a directory. Parsed tracks are cached by
// name; absent and empty files are cached as misses too.
type DirLoader struct {
	root  string
	log   *zap.Logger
	cache map[string]*Track
}

func NewDirLoader(root string, log *zap.Logger) *DirLoader {
	if log == nil {
		log = zap.NewNop()
	}
	return &DirLoader{root: root, log: log, cache: map[string]*Track{}}
}

func (d *DirLoader) LoadLipSync(name string) (actor.LipSync, bool) {
	if t, ok := d.cache[name]; ok {
		if t == nil {
			return nil, false
		}
		return t, true
	}
	t := d.load(name)
	d.cache[name] = t
	if t == nil {
		return nil, false
	}
	return t, true
}

func (d *DirLoader) load(name string) *Track {
	raw, err := os.ReadFile(filepath.Join(d.root, filepath.Clean("/"+name)))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			d.log.Warn("read lip sync", zap.String("file", name), zap.Error(err))
		}
		return nil
	}
	t, err := Parse(name, raw, d.log)
	if err != nil {
		d.log.Warn("parse lip sync", zap.Error(err))
		return nil
	}
	// Some files carry no entries; callers fall back to mumbling.
	if len(t.entries) == 0 {
		return nil
	}
	return t
}
