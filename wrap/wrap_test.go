package wrap

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestFileRejectsMissingInput(t *testing.T) {
	dir := t.TempDir()
	err := File(filepath.Join(dir, "does-not-exist"), filepath.Join(dir, "out"), "101", "010", 0, 0, 1)
	if Code(err) != CodeInputOpen {
		t.Fatalf("Code(err)=%d, want %d", Code(err), CodeInputOpen)
	}
}

func TestFileRejectsNonBinaryPattern(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "in.bin", []byte("payload"))
	err := File(in, filepath.Join(dir, "out"), "102", "010", 0, 0, 1)
	if Code(err) != CodeInvalidPattern {
		t.Fatalf("Code(err)=%d, want %d", Code(err), CodeInvalidPattern)
	}
}

func TestFileWritesOutputByteAlignedWithDummyBits(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("the quick brown fox")
	in := writeTempFile(t, dir, "in.bin", payload)
	out := filepath.Join(dir, "out.bin")

	if err := File(in, out, "1011", "0110", 17, 23, 99); err != nil {
		t.Fatalf("File: %v", err)
	}
	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("Stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("output file is empty")
	}
}

func TestFileRatioRejectsNonPositiveDivisor(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "in.bin", []byte("x"))
	err := FileRatio(in, filepath.Join(dir, "out"), "1", "0", 0, 1)
	if Code(err) != CodeInvalidRatio {
		t.Fatalf("Code(err)=%d, want %d", Code(err), CodeInvalidRatio)
	}
}

func TestFileRatioRejectsEmptyInput(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "in.bin", nil)
	err := FileRatio(in, filepath.Join(dir, "out"), "1", "0", 2.0, 1)
	if Code(err) != CodeInvalidRatio {
		t.Fatalf("Code(err)=%d, want %d", Code(err), CodeInvalidRatio)
	}
}

func TestFileAllowsEmptySentinels(t *testing.T) {
	dir := t.TempDir()
	in := writeTempFile(t, dir, "in.bin", []byte("no sentinels needed"))
	out := filepath.Join(dir, "out.bin")
	if err := File(in, out, "", "", 0, 0, 5); err != nil {
		t.Fatalf("File with empty sentinels: %v", err)
	}
}
