package encoding

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// EncodeRuns packs a byte buffer into varint (value, run_len) pairs. Shadow
// masks are mostly long runs of 0x00/0xFF, so this keeps saves small.
func EncodeRuns(b []byte) []byte {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(b) {
		v := b[i]
		run := 1
		for j := i + 1; j < len(b) && b[j] == v && run < 1<<31; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(v))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}
	return buf.Bytes()
}

// DecodeRuns reverses EncodeRuns. want is the expected decoded size; a
// mismatch is reported as an error.
func DecodeRuns(raw []byte, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		if v > 0xFF {
			return nil, fmt.Errorf("run value too large: %d", v)
		}
		if uint64(len(out))+run > uint64(want) {
			return nil, fmt.Errorf("runs exceed declared size %d", want)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, byte(v))
		}
	}
	if len(out) != want {
		return nil, fmt.Errorf("runs decode to %d bytes, want %d", len(out), want)
	}
	return out, nil
}
