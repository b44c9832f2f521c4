package candidate

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// StdinPath selects standard input as the word list.
const StdinPath = "-"

// maxLineLength bounds a single word-list line.
const maxLineLength = 16 << 20

// Dictionary yields the lines of a word list, top to bottom, each trimmed of
// surrounding whitespace. Blank lines are yielded as empty candidates.
// Lines end with "\n", "\r\n" or a lone "\r".
type Dictionary struct {
	s      *bufio.Scanner
	closer io.Closer
	line   int64
	err    error
	done   bool
}

// OpenDictionary opens the word list at path, or standard input for "-".
func OpenDictionary(path string) (*Dictionary, error) {
	if path == StdinPath {
		return NewDictionary(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	d := NewDictionary(f)
	d.closer = f
	return d, nil
}

// NewDictionary reads candidates from r. The caller keeps ownership of r.
func NewDictionary(r io.Reader) *Dictionary {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	s.Split(scanLines)
	return &Dictionary{s: s}
}

func (d *Dictionary) Next() (string, bool) {
	if d.done {
		return "", false
	}
	if !d.s.Scan() {
		d.done = true
		if err := d.s.Err(); err != nil {
			d.err = fmt.Errorf("%w: line %d: %w", ErrSourceUnavailable, d.line+1, err)
		}
		return "", false
	}
	d.line++
	return strings.TrimSpace(d.s.Text()), true
}

// scanLines is bufio.ScanLines with a lone "\r" also ending a line. A final
// line terminator does not start another candidate.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		switch {
		case i+1 < len(data) && data[i+1] == '\n':
			return i + 2, data[:i], nil
		case i+1 < len(data) || atEOF:
			return i + 1, data[:i], nil
		}
		// "\r" at the end of the buffer: a "\n" may follow.
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (d *Dictionary) Err() error { return d.err }

// Line is the 1-based number of the last line returned by Next.
func (d *Dictionary) Line() int64 { return d.line }

func (d *Dictionary) Close() error {
	d.done = true
	if d.closer == nil {
		return nil
	}
	c := d.closer
	d.closer = nil
	return c.Close()
}

// CountLines returns how many candidates the word list at path holds.
func CountLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer f.Close()

	var (
		count int64
		cr    bool
		last  byte = '\n'
		buf        = make([]byte, 64*1024)
	)
	for {
		n, err := f.Read(buf)
		for _, b := range buf[:n] {
			switch b {
			case '\n':
				if !cr {
					count++
				}
				cr = false
			case '\r':
				count++
				cr = true
			default:
				cr = false
			}
		}
		if n > 0 {
			last = buf[n-1]
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
	}
	if last != '\n' && last != '\r' {
		count++
	}
	return count, nil
}
