package persistence

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hybridsearch/vindex"
)

func buildSnapshot(t *testing.T) *vindex.Snapshot {
	t.Helper()
	ix, err := vindex.New(4, vindex.Cosine, "hash-fnv1a-3gram")
	require.NoError(t, err)
	require.NoError(t, ix.Add("doc-0", []float32{1, 0, 0, 0}))
	require.NoError(t, ix.Add("doc-1", []float32{0, 1, 0, 0}))
	require.NoError(t, ix.Add("doc-2", []float32{0, 0, 1, 0}))
	return ix.Snapshot()
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	snap := buildSnapshot(t)

	require.NoError(t, SaveIndex(dir, "myindex", snap))

	loaded, err := LoadIndex(dir, "myindex")
	require.NoError(t, err)

	assert.Equal(t, snap.Dimension, loaded.Dimension)
	assert.Equal(t, snap.EmbedderID, loaded.EmbedderID)
	assert.Equal(t, snap.Distance, loaded.Distance)
	assert.Equal(t, snap.DocIDs, loaded.DocIDs)
	assert.Equal(t, snap.Vectors, loaded.Vectors)
}

func TestSaveCreatesBothFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveIndex(dir, "idx", buildSnapshot(t)))

	_, err := os.Stat(filepath.Join(dir, "idx.npz"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "idx.json"))
	assert.NoError(t, err)
}

func TestLoadMissingFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadIndex(dir, "absent")

	var missing *MissingFileError
	assert.ErrorAs(t, err, &missing)
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveIndex(dir, "idx", buildSnapshot(t)))

	jsonPath := filepath.Join(dir, "idx.json")
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	tampered := []byte(replaceFormatVersion(string(data), 99))
	require.NoError(t, os.WriteFile(jsonPath, tampered, 0o644))

	_, err = LoadIndex(dir, "idx")
	var verErr *VersionMismatchError
	assert.ErrorAs(t, err, &verErr)
}

func TestWithEmbedderIDCheckRejectsMismatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveIndex(dir, "idx", buildSnapshot(t)))

	_, err := LoadIndex(dir, "idx", WithEmbedderIDCheck("some-other-model"))
	var embErr *EmbedderMismatchError
	assert.ErrorAs(t, err, &embErr)
}

func TestWithEmbedderIDCheckAcceptsMatch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveIndex(dir, "idx", buildSnapshot(t)))

	_, err := LoadIndex(dir, "idx", WithEmbedderIDCheck("hash-fnv1a-3gram"))
	assert.NoError(t, err)
}

func TestSaveOverwritesExistingAtomically(t *testing.T) {
	dir := t.TempDir()
	snap1 := buildSnapshot(t)
	require.NoError(t, SaveIndex(dir, "idx", snap1))

	ix2, err := vindex.New(4, vindex.Cosine, "hash-fnv1a-3gram")
	require.NoError(t, err)
	require.NoError(t, ix2.Add("only-doc", []float32{0, 0, 0, 1}))
	require.NoError(t, SaveIndex(dir, "idx", ix2.Snapshot()))

	loaded, err := LoadIndex(dir, "idx")
	require.NoError(t, err)
	assert.Equal(t, []string{"only-doc"}, loaded.DocIDs)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}

// replaceFormatVersion does a minimal textual substitution rather than
// round-tripping through encoding/json, to keep this test independent of
// Metadata's field order.
func replaceFormatVersion(jsonText string, version int) string {
	return strings.Replace(jsonText, `"format_version": 1`, `"format_version": `+strconv.Itoa(version), 1)
}
