package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderstay/wander/client"
)

func seedStayWithMedia(t *testing.T, id int) {
	t.Helper()
	original := "https://cdn.wanderstay.test/photos/1-original.jpg"
	stay := client.Stay{
		ID:    id,
		Title: "Cliffside Villa",
		City:  "Santorini",
		Media: []client.MediaItem{
			{Kind: "photo", Name: "terrace.jpg", URL: "https://cdn.wanderstay.test/photos/1.jpg",
				Size: "500 MB", OriginalURL: &original, OriginalSize: "1.2 GB"},
			{Kind: "video", Name: "tour.mp4", URL: "https://cdn.wanderstay.test/videos/1.mp4",
				Size: "1.0 GB"},
			{Kind: "floorplan", Name: "plan.pdf", URL: "https://cdn.wanderstay.test/plans/1.pdf",
				Size: "2.4 MB"},
		},
	}
	data, err := json.Marshal(stay)
	require.NoError(t, err)
	addTestStay(t, id, stay.Title, stay.City, string(data))
}

func TestSizeCmd_Units(t *testing.T) {
	cleanDBTables(t)
	seedStayWithMedia(t, 991)

	for _, unit := range []string{"auto", "b", "kib", "mib", "gib"} {
		cmd := sizeCmd(newTestServices(""))
		output, err := captureCombinedOutput(cmd, "991", "--kind", "all", "--unit", unit)
		require.NoError(t, err)
		if !strings.Contains(output, "Total media size:") {
			t.Fatalf("unit %s: expected size output, got: %s", unit, output)
		}
	}
}

func TestSizeCmd_FiltersByKind(t *testing.T) {
	cleanDBTables(t)
	seedStayWithMedia(t, 991)

	cmd := sizeCmd(newTestServices(""))
	output, err := captureCombinedOutput(cmd, "991", "--kind", "floorplan", "--unit", "b")
	require.NoError(t, err)
	// 2.4 MB floor plan only
	assert.Contains(t, output, "2516582 B")
}

func TestSizeCmd_IncludesOriginals(t *testing.T) {
	cleanDBTables(t)
	seedStayWithMedia(t, 991)

	base := sizeCmd(newTestServices(""))
	baseOut, err := captureCombinedOutput(base, "991", "--kind", "photo", "--unit", "b")
	require.NoError(t, err)

	withOriginals := sizeCmd(newTestServices(""))
	origOut, err := captureCombinedOutput(withOriginals, "991", "--kind", "photo", "--unit", "b", "--originals")
	require.NoError(t, err)

	assert.NotEqual(t, baseOut, origOut, "originals should add to the total")
}

func TestSizeCmd_NotInCache(t *testing.T) {
	cleanDBTables(t)

	cmd := sizeCmd(newTestServices(""))
	output, err := captureCombinedOutput(cmd, "999")
	require.NoError(t, err)
	assert.Contains(t, output, "not found in the local cache")
}

func TestSizeCmd_RejectsBadKind(t *testing.T) {
	cleanDBTables(t)
	seedStayWithMedia(t, 991)

	cmd := sizeCmd(newTestServices(""))
	output, err := captureCombinedOutput(cmd, "991", "--kind", "banner")
	require.NoError(t, err)
	assert.Contains(t, output, "Invalid media kind")
}

func TestMediaCmd_InvalidID(t *testing.T) {
	cleanDBTables(t)

	cmd := mediaCmd(newTestServices(""))
	output, err := captureCombinedOutput(cmd, "abc", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "Invalid stay ID")
}

func TestMediaCmd_RejectsBadKind(t *testing.T) {
	cleanDBTables(t)

	cmd := mediaCmd(newTestServices(""))
	output, err := captureCombinedOutput(cmd, "1", t.TempDir(), "--kind", "banner")
	require.NoError(t, err)
	assert.Contains(t, output, "Invalid media kind")
}

func TestMediaCmd_RejectsBadThreadCount(t *testing.T) {
	cleanDBTables(t)

	cmd := mediaCmd(newTestServices(""))
	output, err := captureCombinedOutput(cmd, "1", t.TempDir(), "--threads", "99")
	require.NoError(t, err)
	assert.Contains(t, output, "Number of threads must be between 1 and 20.")
}

func TestMediaCmd_NotSignedIn(t *testing.T) {
	cleanDBTables(t)
	seedStayWithMedia(t, 991)

	cmd := mediaCmd(newTestServices(""))
	output, err := captureCombinedOutput(cmd, "991", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "Please run 'wander login' to sign in again.")
}
