package snapshot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"actorcraft.ai/internal/sim/encoding"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves", "slot.snap.zst")
	h := Header{SlotID: "abc", Set: "mo", Tick: 42, Actors: 2}
	err := Write(path, h, func(w *encoding.Writer) error {
		w.WriteString("payload")
		w.WriteInt32(-7)
		return w.Err()
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	h.Version = Version
	if got != h {
		t.Fatalf("header=%+v want %+v", got, h)
	}

	var s string
	var n int32
	if _, err := Read(path, func(r *encoding.Reader) error {
		s = r.ReadString()
		n = r.ReadInt32()
		return r.Err()
	}); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s != "payload" || n != -7 {
		t.Fatalf("payload=%q %d", s, n)
	}
}

func TestSnapshot_PayloadErrorsPropagate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.snap.zst")
	boom := errors.New("boom")
	if err := Write(path, Header{}, func(*encoding.Writer) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	if err := Write(path, Header{}, func(w *encoding.Writer) error { return nil }); err != nil {
		t.Fatal(err)
	}
	_, err := Read(path, func(r *encoding.Reader) error {
		r.ReadString()
		return r.Err()
	})
	if !errors.Is(err, encoding.ErrCorrupt) {
		t.Fatalf("want ErrCorrupt from an empty payload, got %v", err)
	}
}

func TestSnapshot_RejectsOtherVersions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v9.snap.zst")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc, _ := zstd.NewWriter(f)
	_, _ = enc.Write([]byte(`{"version":9}` + "\n"))
	_ = enc.Close()
	_ = f.Close()

	if _, err := ReadHeader(path); !errors.Is(err, ErrVersion) {
		t.Fatalf("want ErrVersion, got %v", err)
	}
}
