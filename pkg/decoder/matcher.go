package decoder

////////////////////////////////////////////////////////////////////////////////
// TYPES

// matcher is a resumable partial-match automaton for a fixed needle. The
// number of bytes matched so far survives between calls, so a needle may be
// split across any number of chunks.
type matcher struct {
	needle []byte
	fail   []int // length of the longest proper prefix which is also a suffix
	fold   bool  // ASCII case-insensitive
	n      int   // number of needle bytes matched
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newMatcher(needle string, fold bool) *matcher {
	m := &matcher{needle: []byte(needle), fold: fold}
	if fold {
		for i, b := range m.needle {
			m.needle[i] = lower(b)
		}
	}

	// Compute the failure function
	m.fail = make([]int, len(m.needle))
	for i, k := 1, 0; i < len(m.needle); i++ {
		for k > 0 && m.needle[i] != m.needle[k] {
			k = m.fail[k-1]
		}
		if m.needle[i] == m.needle[k] {
			k++
		}
		m.fail[i] = k
	}

	return m
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// step consumes one byte of an unanchored search and returns the number of
// needle bytes matched afterwards
func (m *matcher) step(b byte) int {
	if m.fold {
		b = lower(b)
	}
	if m.n == len(m.needle) {
		m.n = m.fail[m.n-1]
	}
	for m.n > 0 && b != m.needle[m.n] {
		m.n = m.fail[m.n-1]
	}
	if b == m.needle[m.n] {
		m.n++
	}
	return m.n
}

// advance consumes one byte of an anchored match, returning false when the
// byte does not continue the match
func (m *matcher) advance(b byte) bool {
	if m.fold {
		b = lower(b)
	}
	if m.n == len(m.needle) || b != m.needle[m.n] {
		return false
	}
	m.n++
	return true
}

func (m *matcher) matched() bool {
	return m.n == len(m.needle)
}

func (m *matcher) reset() {
	m.n = 0
}

func lower(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
