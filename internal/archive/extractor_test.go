package archive

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/al3-renewal-pipeline/internal/domain/shared"
)

func buildZip(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range members {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtract_KeepsOnlyDataFiles(t *testing.T) {
	payload := buildZip(t, map[string]string{
		"renewals_a.al3":   "2TRGRWL",
		"FEED.DAT":         "2TRGNBS",
		"manifest.txt":     "not transaction data",
		"readme.md":        "also not",
		"nested/extra.al3": "2TRGXLC",
	})

	files, err := NewExtractor(0, 1<<20).Extract(payload)
	require.NoError(t, err)
	require.Len(t, files, 3)

	byName := make(map[string]string, len(files))
	for _, f := range files {
		byName[f.Name] = f.Content
	}
	assert.Equal(t, "2TRGRWL", byName["renewals_a.al3"])
	assert.Equal(t, "2TRGNBS", byName["FEED.DAT"], "extension match is case-insensitive")
	assert.Equal(t, "2TRGXLC", byName["extra.al3"], "nested members keep their base name")
	assert.NotContains(t, byName, "manifest.txt")
}

func TestExtract_EmptyArchive(t *testing.T) {
	files, err := NewExtractor(0, 1<<20).Extract(buildZip(t, nil))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestExtract_NoDataFiles(t *testing.T) {
	payload := buildZip(t, map[string]string{"notes.txt": "nothing useful"})
	files, err := NewExtractor(0, 1<<20).Extract(payload)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestExtract_MalformedArchive(t *testing.T) {
	_, err := NewExtractor(0, 1<<20).Extract([]byte("this is not a zip file"))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrMalformedArchive)
}

func TestExtract_ArchiveOverSizeCap(t *testing.T) {
	payload := buildZip(t, map[string]string{
		"feed.al3": strings.Repeat("2TRGRWL padding\n", 100),
	})
	require.Greater(t, len(payload), 128)

	_, err := NewExtractor(128, 1<<20).Extract(payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrArchiveTooLarge)
}

func TestExtract_ArchiveWithinSizeCap(t *testing.T) {
	payload := buildZip(t, map[string]string{"ok.al3": "2TRGRWL"})

	files, err := NewExtractor(int64(len(payload)), 1<<20).Extract(payload)
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestExtract_MemberOverSizeCap(t *testing.T) {
	payload := buildZip(t, map[string]string{
		"big.al3": strings.Repeat("2TRGRWL padding\n", 100),
	})

	_, err := NewExtractor(0, 64).Extract(payload)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrArchiveTooLarge)
}

func TestExtract_MemberWithinSizeCap(t *testing.T) {
	content := strings.Repeat("x", 64)
	payload := buildZip(t, map[string]string{"ok.al3": content})

	files, err := NewExtractor(0, 64).Extract(payload)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, content, files[0].Content)
}
