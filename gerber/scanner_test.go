package gerber

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner(t *testing.T, body string) *Scanner {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "t.gbr")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	s, err := NewScanner(path)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestScanner_ReadIntAndBlock(t *testing.T) {
	s := newTestScanner(t, "G01*X1000Y-500D02*")
	c, ok := s.ConsumeChar()
	require.True(t, ok)
	assert.Equal(t, byte('G'), c)
	n, err := s.ReadInt(false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	star, ok := s.ConsumeChar()
	require.True(t, ok)
	assert.Equal(t, byte('*'), star)

	block, sawStar := s.ReadBlockUntil()
	assert.True(t, sawStar)
	assert.Equal(t, "X1000Y-500D02", block)
}

func TestScanner_ReadXCommand(t *testing.T) {
	s := newTestScanner(t, "FSLAX23Y23*")
	code, err := s.ReadXCommand()
	require.NoError(t, err)
	assert.Equal(t, "FS", code)
}

func TestScanner_SkipWhitespaceCrossesLines(t *testing.T) {
	s := newTestScanner(t, "  \n\t G04*")
	s.SkipWhitespace()
	c, ok := s.PeekChar()
	require.True(t, ok)
	assert.Equal(t, byte('G'), c)
}

func TestScanner_IncludeStackPopsAtEOF(t *testing.T) {
	dir := t.TempDir()
	incPath := filepath.Join(dir, "inc.gbr")
	require.NoError(t, os.WriteFile(incPath, []byte("X1*"), 0o644))
	mainPath := filepath.Join(dir, "main.gbr")
	require.NoError(t, os.WriteFile(mainPath, []byte("Y2*"), 0o644))

	s, err := NewScanner(mainPath)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.PushInclude("inc.gbr"))
	c, _ := s.PeekChar()
	assert.Equal(t, byte('X'), c, "top of stack is the included file")

	s.ReadBlockUntil() // consume "X1*"
	assert.False(t, s.AtEOF(), "popping the finished include reveals the main file")
	c, _ = s.PeekChar()
	assert.Equal(t, byte('Y'), c)
}

func TestScanner_IncludeDepthExceeded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.gbr")
	require.NoError(t, os.WriteFile(path, []byte("X1*"), 0o644))
	s, err := NewScanner(path)
	require.NoError(t, err)
	defer s.Close()

	for i := 1; i < MaxIncludeDepth; i++ {
		require.NoError(t, s.PushInclude("a.gbr"))
	}
	assert.ErrorIs(t, s.PushInclude("a.gbr"), ErrIncludeDepthExceeded)
}
