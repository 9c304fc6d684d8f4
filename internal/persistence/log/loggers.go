package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"actorcraft.ai/internal/sim/actor"
)

// JSONLZstdWriter appends JSON lines to hourly zstd files named
// <prefix>-YYYY-MM-DD-HH.jsonl.zst under baseDir.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if hour != w.curHour || w.w == nil {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	if _, err := w.w.Write(append(b, '\n')); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc = f, enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err error
	if w.w != nil {
		err = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	return err
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// Files lists this writer's log files, oldest first.
func (w *JSONLZstdWriter) Files() ([]string, error) {
	out, err := filepath.Glob(filepath.Join(w.baseDir, w.prefix+"-*.jsonl.zst"))
	sort.Strings(out)
	return out, err
}

// ReadJSONL calls fn for every line of a compressed log file. A file that
// was appended to across several writer sessions holds several zstd frames;
// the decoder reads them back to back.
func ReadJSONL(path string, fn func(line []byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}

type FootstepEntry struct {
	Tick    uint64 `json:"tick"`
	ActorID int32  `json:"actor_id"`
	Step    string `json:"step"`
}

// MarkerLogger records footstep markers to compressed JSONL. Write failures
// are logged and dropped.
type MarkerLogger struct {
	w    *JSONLZstdWriter
	tick func() uint64
	zl   *zap.Logger
}

func NewMarkerLogger(dir string, tick func() uint64, zl *zap.Logger) *MarkerLogger {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &MarkerLogger{
		w:    NewJSONLZstdWriter(filepath.Join(dir, "footsteps"), "footsteps"),
		tick: tick,
		zl:   zl,
	}
}

func (l *MarkerLogger) Footstep(actorID int32, step actor.Footstep) {
	e := FootstepEntry{ActorID: actorID, Step: step.String()}
	if l.tick != nil {
		e.Tick = l.tick()
	}
	if err := l.w.Write(e); err != nil {
		l.zl.Warn("footstep log write", zap.Error(err))
	}
}

func (l *MarkerLogger) Files() ([]string, error) { return l.w.Files() }
func (l *MarkerLogger) Close() error             { return l.w.Close() }

// ReadFootsteps decodes every entry of one footstep log file.
func ReadFootsteps(path string) ([]FootstepEntry, error) {
	var out []FootstepEntry
	err := ReadJSONL(path, func(line []byte) error {
		var e FootstepEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}
