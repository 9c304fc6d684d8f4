// Package snapshot stores stage saves as zstd-compressed files: one JSON
// header line followed by the positional binary stage payload.
package snapshot

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"actorcraft.ai/internal/sim/encoding"
)

const Version = 1

var ErrVersion = errors.New("snapshot: unsupported version")

type Header struct {
	Version int    `json:"version"`
	SlotID  string `json:"slot_id"`
	Set     string `json:"set"`
	Tick    uint64 `json:"tick"`
	Actors  int    `json:"actors"`
	SavedAt string `json:"saved_at,omitempty"`
}

// Write creates path (and its directory) and fills it with the header line
// and whatever save writes.
func Write(path string, h Header, save func(w *encoding.Writer) error) error {
	if h.Version == 0 {
		h.Version = Version
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(h)
	if err != nil {
		_ = enc.Close()
		return err
	}
	if _, err := bw.Write(append(hb, '\n')); err != nil {
		_ = enc.Close()
		return err
	}
	if err := save(encoding.NewWriter(bw)); err != nil {
		_ = enc.Close()
		return fmt.Errorf("snapshot payload: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return f.Sync()
}

func open(path string) (*os.File, *zstd.Decoder, *bufio.Reader, Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, h, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, nil, nil, h, err
	}
	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err == nil {
		err = json.Unmarshal(line, &h)
	}
	if err == nil && h.Version != Version {
		err = fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	if err != nil {
		dec.Close()
		_ = f.Close()
		return nil, nil, nil, h, fmt.Errorf("snapshot header: %w", err)
	}
	return f, dec, br, h, nil
}

// ReadHeader decodes only the header line.
func ReadHeader(path string) (Header, error) {
	f, dec, _, h, err := open(path)
	if err != nil {
		return h, err
	}
	dec.Close()
	_ = f.Close()
	return h, nil
}

// Read decodes the header and hands the payload to restore.
func Read(path string, restore func(r *encoding.Reader) error) (Header, error) {
	f, dec, br, h, err := open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	defer dec.Close()
	if err := restore(encoding.NewReader(br)); err != nil {
		return h, fmt.Errorf("snapshot payload: %w", err)
	}
	return h, nil
}
