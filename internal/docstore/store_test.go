package docstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPutThenExtract(t *testing.T) {
	s, err := NewStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	ref, err := s.Put("notes.txt", strings.NewReader("quarterly revenue grew 12%"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", ref.Name)
	assert.NotEmpty(t, ref.Location)

	text, err := s.Extract(ref.Location)
	require.NoError(t, err)
	assert.Equal(t, "quarterly revenue grew 12%", text)
}

func TestExtractMissing(t *testing.T) {
	s, err := NewStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = s.Extract("no-such-location")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	s, err := NewStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = s.Extract("../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExtractRejectsBinary(t *testing.T) {
	s, err := NewStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	ref, err := s.Put("blob.bin", strings.NewReader("\xff\xfe\x00binary"))
	require.NoError(t, err)

	_, err = s.Extract(ref.Location)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
