// Package bitkmp implements Knuth-Morris-Pratt pattern matching over the
// {0,1} alphabet, used by unwrap to locate sentinel bit patterns in a
// bit stream without backtracking the reader.
package bitkmp

// Matcher scans a bit stream for one fixed pattern. It never allocates
// after construction.
type Matcher struct {
	pattern []byte
	lps     []int
	j       int
}

// New builds a matcher for pattern (each element must be 0 or 1).
func New(pattern []byte) *Matcher {
	m := &Matcher{
		pattern: append([]byte(nil), pattern...),
		lps:     make([]int, len(pattern)),
	}
	length := 0
	for i := 1; i < len(pattern); {
		if pattern[i] == pattern[length] {
			length++
			m.lps[i] = length
			i++
		} else if length != 0 {
			length = m.lps[length-1]
		} else {
			m.lps[i] = 0
			i++
		}
	}
	return m
}

// Len returns the pattern length.
func (m *Matcher) Len() int {
	return len(m.pattern)
}

// Feed advances the matcher by one bit and returns true exactly when a
// full match terminates at b. After a match, the matcher rolls back via
// the failure function so overlapping matches remain detectable.
func (m *Matcher) Feed(b byte) bool {
	for m.j > 0 && b != m.pattern[m.j] {
		m.j = m.lps[m.j-1]
	}
	if b == m.pattern[m.j] {
		m.j++
		if m.j == len(m.pattern) {
			m.j = m.lps[m.j-1]
			return true
		}
	}
	return false
}
