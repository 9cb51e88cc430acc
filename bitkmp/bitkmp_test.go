package bitkmp

import "testing"

func feedAll(m *Matcher, bits []byte) []int {
	var matches []int
	for i, b := range bits {
		if m.Feed(b) {
			matches = append(matches, i)
		}
	}
	return matches
}

func TestFeedFindsSingleMatch(t *testing.T) {
	m := New([]byte{1, 0, 1, 1})
	bits := []byte{0, 0, 1, 0, 1, 1, 0, 0}
	matches := feedAll(m, bits)
	if len(matches) != 1 || matches[0] != 5 {
		t.Fatalf("matches=%v, want end index 5", matches)
	}
}

func TestFeedFindsOverlappingMatches(t *testing.T) {
	// pattern "1 0 1" self-overlaps; stream "1 0 1 0 1" contains it twice,
	// ending at index 2 and index 4.
	m := New([]byte{1, 0, 1})
	bits := []byte{1, 0, 1, 0, 1}
	matches := feedAll(m, bits)
	if len(matches) != 2 || matches[0] != 2 || matches[1] != 4 {
		t.Fatalf("matches=%v, want [2 4]", matches)
	}
}

func TestFeedNoMatch(t *testing.T) {
	m := New([]byte{1, 1, 1})
	bits := []byte{1, 0, 1, 0, 1, 0}
	if matches := feedAll(m, bits); len(matches) != 0 {
		t.Fatalf("matches=%v, want none", matches)
	}
}

func TestLenReturnsPatternLength(t *testing.T) {
	m := New([]byte{0, 1, 0, 1, 1})
	if got := m.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}
}

func TestFeedSinglePatternBit(t *testing.T) {
	m := New([]byte{1})
	if m.Feed(0) {
		t.Fatal("unexpected match on non-matching single bit")
	}
	if !m.Feed(1) {
		t.Fatal("expected match on matching single bit")
	}
}
