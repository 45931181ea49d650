// Package snapshot stores engine snapshots as zstd-compressed files: one
// JSON header line followed by the JSON snapshot body.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/ironforge/outpost/internal/engine"
	"github.com/ironforge/outpost/internal/world"
)

// Version is the current file format.
const Version = 1

// ErrBadHeader is returned when the first line is not a header this
// package can read.
var ErrBadHeader = errors.New("snapshot: bad header")

type Header struct {
	Version    int    `json:"version"`
	Tick       uint64 `json:"tick"`
	Seed       uint64 `json:"seed"`
	Difficulty string `json:"difficulty"`
	Phase      string `json:"phase"`
	Digest     string `json:"digest"`
}

// Digest is the hex blake2b-256 of the world's canonical JSON.
func Digest(w *world.State) (string, error) {
	b, err := w.Encode()
	if err != nil {
		return "", fmt.Errorf("encode world: %w", err)
	}
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// HeaderFor describes snap.
func HeaderFor(snap engine.Snapshot) (Header, error) {
	if snap.World == nil {
		return Header{}, fmt.Errorf("snapshot: no world")
	}
	d, err := Digest(snap.World)
	if err != nil {
		return Header{}, err
	}
	return Header{
		Version:    Version,
		Tick:       snap.World.Tick,
		Seed:       snap.World.Run.Seed,
		Difficulty: snap.World.Run.Difficulty,
		Phase:      string(snap.World.Run.Phase),
		Digest:     d,
	}, nil
}

// Write compresses snap onto w.
func Write(w io.Writer, snap engine.Snapshot) (Header, error) {
	h, err := HeaderFor(snap)
	if err != nil {
		return h, err
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return h, err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, err := json.Marshal(h)
	if err != nil {
		enc.Close()
		return h, fmt.Errorf("json encode header: %w", err)
	}
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return h, err
	}
	if err := bw.WriteByte('\n'); err != nil {
		enc.Close()
		return h, err
	}
	if err := json.NewEncoder(bw).Encode(snap); err != nil {
		enc.Close()
		return h, fmt.Errorf("json encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return h, err
	}
	return h, enc.Close()
}

// Read decompresses a snapshot written by Write.
func Read(r io.Reader) (Header, engine.Snapshot, error) {
	var (
		h    Header
		snap engine.Snapshot
	)
	dec, err := zstd.NewReader(r)
	if err != nil {
		return h, snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return h, snap, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, snap, fmt.Errorf("%w: %v", ErrBadHeader, err)
	}
	if h.Version != Version {
		return h, snap, fmt.Errorf("%w: version %d", ErrBadHeader, h.Version)
	}
	if err := json.NewDecoder(br).Decode(&snap); err != nil {
		return h, snap, fmt.Errorf("json decode: %w", err)
	}
	if snap.World == nil {
		return h, snap, fmt.Errorf("snapshot: no world")
	}
	return h, snap, nil
}

// Marshal is Write into a byte slice.
func Marshal(snap engine.Snapshot) (Header, []byte, error) {
	var buf bytes.Buffer
	h, err := Write(&buf, snap)
	if err != nil {
		return h, nil, err
	}
	return h, buf.Bytes(), nil
}

// Unmarshal is Read from a byte slice.
func Unmarshal(b []byte) (Header, engine.Snapshot, error) {
	return Read(bytes.NewReader(b))
}

// WriteFile writes snap to path, creating parent directories.
func WriteFile(path string, snap engine.Snapshot) (Header, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Header{}, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return Header{}, err
	}
	h, err := Write(f, snap)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return h, err
}

func ReadFile(path string) (Header, engine.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, engine.Snapshot{}, err
	}
	defer f.Close()
	return Read(f)
}

// FileName is the conventional name of the snapshot taken at tick.
func FileName(tick uint64) string {
	return fmt.Sprintf("outpost-%010d.snap.zst", tick)
}
