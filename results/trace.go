package results

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/gridsim/deliverybot/sim/engine"
)

// TracePath returns the trace file path for a run inside dir.
func TracePath(dir, runID string) string {
	return filepath.Join(dir, runID+".jsonl.zst")
}

// TraceWriter streams the step observations of one run to a zstd-compressed
// JSONL file, one observation per line. Every line is flushed through the
// compressor so a crashed run still leaves a readable prefix.
type TraceWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

// NewTraceWriter creates the trace file at path, truncating any previous
// trace and creating the parent directory as needed.
func NewTraceWriter(path string) (*TraceWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &TraceWriter{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 64*1024),
	}, nil
}

// Write appends one observation line.
func (t *TraceWriter) Write(obs engine.StepObservation) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enc == nil {
		return fmt.Errorf("trace writer is closed")
	}
	b, err := json.Marshal(obs)
	if err != nil {
		return err
	}
	if _, err := t.w.Write(b); err != nil {
		return err
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return err
	}
	return t.w.Flush()
}

// Close flushes and closes the compressor and file. Closing twice is fine.
func (t *TraceWriter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.enc == nil {
		return nil
	}
	var first error
	if err := t.w.Flush(); err != nil {
		first = err
	}
	if err := t.enc.Close(); err != nil && first == nil {
		first = err
	}
	if err := t.f.Close(); err != nil && first == nil {
		first = err
	}
	t.enc = nil
	t.w = nil
	t.f = nil
	return first
}

// ReadTrace decodes every observation from a trace file.
func ReadTrace(path string) ([]engine.StepObservation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)

	var out []engine.StepObservation
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var obs engine.StepObservation
		if err := json.Unmarshal(line, &obs); err != nil {
			return nil, fmt.Errorf("trace %s: %w", path, err)
		}
		out = append(out, obs)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
