package otp

import (
	"strings"
	"sync"
	"unicode"
)

// Charset selects which characters an Entry accepts.
type Charset int

const (
	// Digits accepts 0-9 only. Used for emailed and authenticator codes.
	Digits Charset = iota
	// Alphanumeric accepts ASCII letters and digits. Used for backup codes.
	Alphanumeric
)

func (c Charset) allows(r rune) bool {
	if r > unicode.MaxASCII {
		return false
	}
	switch c {
	case Alphanumeric:
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	default:
		return unicode.IsDigit(r)
	}
}

// Entry is a fixed-length grid of single-character cells. Empty cells hold "".
type Entry struct {
	mu      sync.Mutex
	charset Charset
	cells   []string
}

// NewEntry returns an empty grid of the given length.
func NewEntry(length int, charset Charset) (*Entry, error) {
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	return &Entry{charset: charset, cells: make([]string, length)}, nil
}

// Len is the number of cells.
func (e *Entry) Len() int {
	return len(e.cells)
}

// Input sets cell index from value and returns the index that should receive
// focus next. Only the last allowed character of value is kept, so typing over
// a filled cell replaces it. A value with no allowed character leaves the cell
// unchanged and focus in place.
func (e *Entry) Input(index int, value string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.cells) {
		return index, ErrIndexOutOfRange
	}

	var last rune = -1
	for _, r := range value {
		if e.charset.allows(r) {
			last = r
		}
	}
	if last < 0 {
		if value == "" {
			e.cells[index] = ""
		}
		return index, nil
	}

	e.cells[index] = string(last)
	if index < len(e.cells)-1 {
		return index + 1, nil
	}
	return index, nil
}

// Backspace handles the backspace key on cell index. An empty cell moves focus
// to the previous cell and clears it; a filled cell is cleared in place.
func (e *Entry) Backspace(index int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if index < 0 || index >= len(e.cells) {
		return index, ErrIndexOutOfRange
	}
	if e.cells[index] != "" {
		e.cells[index] = ""
		return index, nil
	}
	if index == 0 {
		return 0, nil
	}
	e.cells[index-1] = ""
	return index - 1, nil
}

// Paste replaces the whole grid with the allowed characters of text,
// truncated to the grid length and padded with "". It reports whether every
// cell is filled afterwards.
func (e *Entry) Paste(text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, r := range text {
		if n == len(e.cells) {
			break
		}
		if e.charset.allows(r) {
			e.cells[n] = string(r)
			n++
		}
	}
	for i := n; i < len(e.cells); i++ {
		e.cells[i] = ""
	}
	return n == len(e.cells)
}

// Cells returns a copy of the grid.
func (e *Entry) Cells() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.cells...)
}

// Value joins the filled cells.
func (e *Entry) Value() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return strings.Join(e.cells, "")
}

// Complete reports whether every cell holds a character.
func (e *Entry) Complete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range e.cells {
		if c == "" {
			return false
		}
	}
	return true
}

// Clear empties every cell.
func (e *Entry) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.cells {
		e.cells[i] = ""
	}
}
