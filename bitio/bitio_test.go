package bitio

import (
	"bytes"
	"testing"
)

func TestWriteBitsThenReadBack(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	bits := []byte{1, 0, 1, 1, 0, 0, 1, 0, 1, 1}
	if err := w.WriteBits(bits); err != nil {
		t.Fatalf("WriteBits: %v", err)
	}
	if err := w.PadToByte(); err != nil {
		t.Fatalf("PadToByte: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	r := NewReader(&buf)
	for i, want := range bits {
		got := r.NextBit()
		if got != int(want) {
			t.Fatalf("bit %d: got %d, want %d", i, got, want)
		}
	}
	// remaining bits of the padded byte must be zero.
	for i := 0; i < 8-len(bits)%8; i++ {
		if got := r.NextBit(); got != 0 {
			t.Fatalf("pad bit %d: got %d, want 0", i, got)
		}
	}
	if got := r.NextBit(); got != -1 {
		t.Fatalf("expected EOF, got %d", got)
	}
}

func TestWriteFullBytesFastPathWhenAligned(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	if err := w.WriteFullBytes(payload); err != nil {
		t.Fatalf("WriteFullBytes: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), payload) {
		t.Fatalf("aligned WriteFullBytes produced %x, want %x", buf.Bytes(), payload)
	}
}

func TestWriteFullBytesUnalignedExpandsBitByBit(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteBit(1); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteFullBytes([]byte{0xFF}); err != nil {
		t.Fatalf("WriteFullBytes: %v", err)
	}
	if err := w.PadToByte(); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	// bit7=1, bits6..0 = top 7 bits of 0xFF (all 1), next byte = low 1
	// bit of 0xFF then 7 zero pad bits.
	want := []byte{0xFF, 0x80}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("got %x, want %x", buf.Bytes(), want)
	}
}

func TestPadToByteNoOpWhenAligned(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteFullBytes([]byte{0x42}); err != nil {
		t.Fatal(err)
	}
	if err := w.PadToByte(); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0x42}) {
		t.Fatalf("PadToByte altered an aligned stream: %x", buf.Bytes())
	}
}

func TestReaderNextBitMSBFirst(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0b10110010}))
	want := []int{1, 0, 1, 1, 0, 0, 1, 0}
	for i, w := range want {
		if got := r.NextBit(); got != w {
			t.Fatalf("bit %d: got %d, want %d", i, got, w)
		}
	}
	if got := r.NextBit(); got != -1 {
		t.Fatalf("expected EOF, got %d", got)
	}
}
