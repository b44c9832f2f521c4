package candidate

import (
	"fmt"
	"math"
)

// BruteForce enumerates every string over an alphabet from MinLength up to
// MaxLength characters. Shorter strings come first; within one length the
// order is the Cartesian product of the alphabet, leftmost position varying
// slowest.
type BruteForce struct {
	alphabet []rune
	minLen   int
	maxLen   int

	length  int
	indices []int
	current []rune
	done    bool
}

// NewBruteForce validates the parameters and returns a generator positioned
// before the first candidate.
func NewBruteForce(alphabet string, minLen, maxLen int) (*BruteForce, error) {
	runes := []rune(alphabet)
	switch {
	case len(runes) == 0:
		return nil, fmt.Errorf("%w: empty alphabet", ErrInvalidConfiguration)
	case maxLen < 1:
		return nil, fmt.Errorf("%w: max length %d must be at least 1", ErrInvalidConfiguration, maxLen)
	case minLen < 1:
		return nil, fmt.Errorf("%w: min length %d must be at least 1", ErrInvalidConfiguration, minLen)
	case minLen > maxLen:
		return nil, fmt.Errorf("%w: min length %d exceeds max length %d", ErrInvalidConfiguration, minLen, maxLen)
	}
	return &BruteForce{alphabet: runes, minLen: minLen, maxLen: maxLen}, nil
}

func (b *BruteForce) Next() (string, bool) {
	if b.done {
		return "", false
	}
	if b.indices == nil {
		b.reset(b.minLen)
		return string(b.current), true
	}
	if b.advance() {
		return string(b.current), true
	}
	if b.length >= b.maxLen {
		b.done = true
		return "", false
	}
	b.reset(b.length + 1)
	return string(b.current), true
}

// reset starts the product over for strings of length n.
func (b *BruteForce) reset(n int) {
	b.length = n
	b.indices = make([]int, n)
	b.current = make([]rune, n)
	for i := range b.current {
		b.current[i] = b.alphabet[0]
	}
}

// advance steps the rightmost position like an odometer and reports false
// once every position has wrapped around.
func (b *BruteForce) advance() bool {
	for i := len(b.indices) - 1; i >= 0; i-- {
		b.indices[i]++
		if b.indices[i] < len(b.alphabet) {
			b.current[i] = b.alphabet[b.indices[i]]
			return true
		}
		b.indices[i] = 0
		b.current[i] = b.alphabet[0]
	}
	return false
}

func (b *BruteForce) Err() error { return nil }

func (b *BruteForce) Close() error {
	b.done = true
	return nil
}

// Length is the length of the candidates currently being produced, or 0
// before the first call to Next.
func (b *BruteForce) Length() int { return b.length }

// Total is the number of candidates in the whole search space, or -1 if it
// does not fit in an int64.
func (b *BruteForce) Total() int64 {
	n := int64(len(b.alphabet))
	var total int64
	for l := b.minLen; l <= b.maxLen; l++ {
		size := int64(1)
		for range l {
			if size > math.MaxInt64/n {
				return -1
			}
			size *= n
		}
		if total > math.MaxInt64-size {
			return -1
		}
		total += size
	}
	return total
}
