package gerber

import (
	"os"
	"path/filepath"
	"strconv"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// MaxIncludeDepth bounds the %IF file stack (spec.md §3 "file_stack: stack
// of up to N open file handles for IF includes (N >= 10)").
const MaxIncludeDepth = 16

// ErrIncludeDepthExceeded is returned when an %IF would push past
// MaxIncludeDepth open files.
var ErrIncludeDepthExceeded = errors.New("gerber: include depth exceeded")

// ErrUnexpectedEOF is surfaced when the scanner runs out of bytes inside an
// extended command (%...%) or a macro definition block.
var ErrUnexpectedEOF = errors.New("gerber: unexpected end of file")

// sourceFile is one entry on the scanner's file stack: an mmap'd buffer plus
// a read cursor and the current line number for diagnostics. Using mmap
// instead of buffered reads means %IF includes of the very long %AM blocks
// gerber files carry in the wild (lines well past 4000 bytes) never need a
// growable line buffer — the whole file is addressable from byte 0.
type sourceFile struct {
	path   string
	data   mmap.MMap
	f      *os.File
	pos    int
	line   int
}

func openSourceFile(path string) (*sourceFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "mmapping %s", path)
	}
	return &sourceFile{path: path, data: data, f: f, line: 1}, nil
}

func (sf *sourceFile) close() {
	if sf.data != nil {
		sf.data.Unmap()
	}
	if sf.f != nil {
		sf.f.Close()
	}
}

func (sf *sourceFile) eof() bool { return sf.pos >= len(sf.data) }

func (sf *sourceFile) peek() (byte, bool) {
	if sf.eof() {
		return 0, false
	}
	return sf.data[sf.pos], true
}

func (sf *sourceFile) advance() {
	if sf.eof() {
		return
	}
	if sf.data[sf.pos] == '\n' {
		sf.line++
	}
	sf.pos++
}

// Scanner turns one or more mmap'd Gerber files into the token primitives
// the Interpreter needs: single characters, unsigned/signed integers,
// decimals, two-letter extended-command codes, and '*'-or-EOL-terminated
// blocks. It transparently pops back to the including file at EOF, per
// spec.md §4.1.
type Scanner struct {
	stack   []*sourceFile
	baseDir string
}

// NewScanner opens path as the root file and returns a ready-to-use Scanner.
func NewScanner(path string) (*Scanner, error) {
	sf, err := openSourceFile(path)
	if err != nil {
		return nil, err
	}
	return &Scanner{stack: []*sourceFile{sf}, baseDir: filepath.Dir(path)}, nil
}

// Close releases every open file on the stack.
func (s *Scanner) Close() {
	for _, sf := range s.stack {
		sf.close()
	}
	s.stack = nil
}

func (s *Scanner) top() *sourceFile {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// Line reports the current line number in the top-of-stack file, used to
// tag Messages with a location.
func (s *Scanner) Line() int {
	if sf := s.top(); sf != nil {
		return sf.line
	}
	return 0
}

// Path reports the current top-of-stack file's path.
func (s *Scanner) Path() string {
	if sf := s.top(); sf != nil {
		return sf.path
	}
	return ""
}

// popOnEOF pops finished files off the stack until a file with remaining
// bytes is on top or the stack is empty.
func (s *Scanner) popOnEOF() {
	for len(s.stack) > 0 && s.top().eof() {
		sf := s.stack[len(s.stack)-1]
		sf.close()
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// AtEOF reports whether every open file has been fully consumed.
func (s *Scanner) AtEOF() bool {
	s.popOnEOF()
	return len(s.stack) == 0
}

// PeekChar returns the next byte without consuming it.
func (s *Scanner) PeekChar() (byte, bool) {
	s.popOnEOF()
	if sf := s.top(); sf != nil {
		return sf.peek()
	}
	return 0, false
}

// ConsumeChar reads and consumes the next byte.
func (s *Scanner) ConsumeChar() (byte, bool) {
	s.popOnEOF()
	sf := s.top()
	if sf == nil {
		return 0, false
	}
	c, ok := sf.peek()
	if !ok {
		return 0, false
	}
	sf.advance()
	return c, true
}

func isWhitespace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }

// SkipWhitespace consumes whitespace and line endings, which are ignored
// between tokens per spec.md §6.1.
func (s *Scanner) SkipWhitespace() {
	for {
		c, ok := s.PeekChar()
		if !ok || !isWhitespace(c) {
			return
		}
		s.ConsumeChar()
	}
}

// ReadInt reads `[+-]?[0-9]+`. If skipSep, it also consumes one trailing
// ',' or whitespace character.
func (s *Scanner) ReadInt(skipSep bool) (int, error) {
	str, err := s.readNumberLiteral(false)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(str)
	if err != nil {
		return 0, errors.Wrap(err, "bad integer literal")
	}
	if skipSep {
		s.skipOneSeparator()
	}
	return v, nil
}

// ReadDouble reads a decimal number, optionally with a '.'.
func (s *Scanner) ReadDouble(skipSep bool) (float64, error) {
	str, err := s.readNumberLiteral(true)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, errors.Wrap(err, "bad numeric literal")
	}
	if skipSep {
		s.skipOneSeparator()
	}
	return v, nil
}

func (s *Scanner) readNumberLiteral(allowDot bool) (string, error) {
	var buf []byte
	c, ok := s.PeekChar()
	if ok && (c == '+' || c == '-') {
		buf = append(buf, c)
		s.ConsumeChar()
	}
	sawDigit := false
	for {
		c, ok := s.PeekChar()
		if !ok {
			break
		}
		if c >= '0' && c <= '9' {
			buf = append(buf, c)
			sawDigit = true
			s.ConsumeChar()
			continue
		}
		if allowDot && c == '.' {
			buf = append(buf, c)
			s.ConsumeChar()
			continue
		}
		break
	}
	if !sawDigit {
		return "", errors.New("gerber: malformed numeric literal")
	}
	return string(buf), nil
}

func (s *Scanner) skipOneSeparator() {
	c, ok := s.PeekChar()
	if ok && (c == ',' || isWhitespace(c)) {
		s.ConsumeChar()
	}
}

// ReadXCommand reads exactly two ASCII letters (the two-letter extended
// command code, e.g. "FS", "MO") and returns them.
func (s *Scanner) ReadXCommand() (string, error) {
	var buf [2]byte
	for i := 0; i < 2; i++ {
		c, ok := s.ConsumeChar()
		if !ok {
			return "", ErrUnexpectedEOF
		}
		if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')) {
			return "", errors.Errorf("gerber: malformed extended command code byte %q", c)
		}
		buf[i] = c
	}
	return string(buf[:]), nil
}

// ReadBlockUntil returns the bytes up to (not including) the next '*' or
// end of line/file, consuming the terminator if it was '*'.
func (s *Scanner) ReadBlockUntil() (string, bool) {
	var buf []byte
	for {
		c, ok := s.PeekChar()
		if !ok {
			return string(buf), false
		}
		if c == '*' {
			s.ConsumeChar()
			return string(buf), true
		}
		if c == '\n' {
			return string(buf), false
		}
		buf = append(buf, c)
		s.ConsumeChar()
	}
}

// ReadExtendedCommand reads everything between the opening '%' (already
// consumed by the caller) and the matching closing '%', returning the raw
// interior text. Returns ErrUnexpectedEOF if the file runs out first.
func (s *Scanner) ReadExtendedCommand() (string, error) {
	var buf []byte
	for {
		c, ok := s.ConsumeChar()
		if !ok {
			return "", ErrUnexpectedEOF
		}
		if c == '%' {
			return string(buf), nil
		}
		buf = append(buf, c)
	}
}

// PushInclude opens name (resolved relative to the root file's directory
// if not absolute, also for nested includes) and pushes it atop the file
// stack, per the
// %IFfile*% directive.
func (s *Scanner) PushInclude(name string) error {
	if len(s.stack) >= MaxIncludeDepth {
		return ErrIncludeDepthExceeded
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.baseDir, name)
	}
	sf, err := openSourceFile(path)
	if err != nil {
		return errors.Wrapf(err, "include %s not found", name)
	}
	s.stack = append(s.stack, sf)
	return nil
}
