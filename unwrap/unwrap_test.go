package unwrap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hub10com/rscontainer/wrap"
)

func writeTempFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestWrapThenUnwrapRoundtrip(t *testing.T) {
	dir := t.TempDir()
	payload := bytes.Repeat([]byte("round-trip payload bytes "), 37)
	in := writeTempFile(t, dir, "in.bin", payload)
	wrapped := filepath.Join(dir, "wrapped.bin")
	unwrapped := filepath.Join(dir, "unwrapped.bin")

	// The end sentinel holds eight consecutive 1 bits, which never occur
	// in ASCII text (every byte's top bit is 0), so its first match is the
	// sentinel itself and not a stretch of payload bits.
	start := "1011001101"
	end := "1111111101"

	if err := wrap.File(in, wrapped, start, end, 53, 41, 7); err != nil {
		t.Fatalf("wrap.File: %v", err)
	}
	if err := File(wrapped, unwrapped, start, end); err != nil {
		t.Fatalf("unwrap.File: %v", err)
	}

	got, err := os.ReadFile(unwrapped)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("roundtrip mismatch: got %d bytes, want %d bytes", len(got), len(payload))
	}
}

func TestFileRejectsEmptyPattern(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "in.bin", []byte("x"))
	err := File(in, filepath.Join(dir, "out"), "", "0")
	if Code(err) != CodeInvalidPattern {
		t.Fatalf("Code(err)=%d, want %d", Code(err), CodeInvalidPattern)
	}
}

func TestFileReturnsNoMatchWhenSentinelAbsent(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "in.bin", []byte{0x00, 0x00, 0x00})
	err := File(in, filepath.Join(dir, "out"), "11111111", "00000000")
	if Code(err) != CodeNoMatch {
		t.Fatalf("Code(err)=%d, want %d", Code(err), CodeNoMatch)
	}
}

func TestLastFlagPositionsAreRecorded(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("x")
	in := writeTempFile(t, dir, "in.bin", payload)
	wrapped := filepath.Join(dir, "wrapped.bin")
	unwrapped := filepath.Join(dir, "unwrapped.bin")

	if err := wrap.File(in, wrapped, "111", "000", 5, 5, 3); err != nil {
		t.Fatalf("wrap.File: %v", err)
	}
	if err := File(wrapped, unwrapped, "111", "000"); err != nil {
		t.Fatalf("unwrap.File: %v", err)
	}
	if LastStartFlagPos() == 0 {
		t.Fatal("LastStartFlagPos() not recorded")
	}
	if LastEndFlagPos() <= LastStartFlagPos() {
		t.Fatalf("LastEndFlagPos()=%d should be after LastStartFlagPos()=%d",
			LastEndFlagPos(), LastStartFlagPos())
	}
}
