package client

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Sunny Loft near the Sagrada Familia", "sunny-loft-near-the-sagrada-familia"},
		{"Harbour: Cabin / Pier 9", "harbour-cabin-pier-9"},
		{"Mr. Darcy's Flat", "mr-darcys-flat"},
		{"  The \"Blue\" Door  ", "the-blue-door"},
		{"Wave\\Crest", "wave-crest"},
		{"A+B=C", "abc"},
		{"Loft (Top Floor!)", "loft-top-floor"},
		{"***", ""},
		{"", ""},
		{"already-sane", "already-sane"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizePath(tt.in))
		})
	}
}

func TestSanitizePath_Invariants(t *testing.T) {
	inputs := []string{
		"Sunny Loft near the Sagrada Familia",
		"a   b\t\tc",
		"//////",
		"--leading and trailing--",
		"Ümlaut Видео 東京",
		"mix: of, everything? (yes!) [really]",
		strings.Repeat("x ", 300),
	}

	for _, in := range inputs {
		got := SanitizePath(in)
		assert.Equal(t, strings.ToLower(got), got, "%q must come out lowercase", in)
		assert.NotContains(t, got, " ")
		assert.NotContains(t, got, "/")
		assert.NotContains(t, got, "\\")
		assert.NotContains(t, got, "--")
		assert.False(t, strings.HasPrefix(got, "-"), "%q -> %q", in, got)
		assert.False(t, strings.HasSuffix(got, "-"), "%q -> %q", in, got)
		assert.Equal(t, got, SanitizePath(got), "sanitizing twice must be a no-op")
	}
}

func FuzzSanitizePath(f *testing.F) {
	f.Add("Sunny Loft near the Sagrada Familia")
	f.Add("Harbour: Cabin / Pier 9")
	f.Add("  --  ")
	f.Add("日本の家")
	f.Fuzz(func(t *testing.T, in string) {
		got := SanitizePath(in)
		if strings.ContainsAny(got, " /\\\"'?*<>|:") {
			t.Errorf("SanitizePath(%q) = %q still contains unsafe characters", in, got)
		}
		if strings.HasPrefix(got, "-") || strings.HasSuffix(got, "-") {
			t.Errorf("SanitizePath(%q) = %q has a dangling hyphen", in, got)
		}
		if again := SanitizePath(got); again != got {
			t.Errorf("SanitizePath is not idempotent: %q -> %q -> %q", in, got, again)
		}
	})
}

func TestMediaFileName(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"living room", "https://media.wanderstay.com/42/living.jpg", "living-room.jpg"},
		{"walkthrough", "https://media.wanderstay.com/42/tour.mp4", "walkthrough.mp4"},
		{"", "https://media.wanderstay.com/42/tour.mp4", "tour.mp4"},
		{"floor plan", "https://media.wanderstay.com/42/plan.pdf", "floor-plan.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mediaFileName(tt.name, tt.url))
	}
}

func TestEnsureDirExists(t *testing.T) {
	base := t.TempDir()

	nested := filepath.Join(base, "a", "b", "c")
	require.NoError(t, ensureDirExists(nested))
	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, ensureDirExists(nested), "an existing directory is fine")

	file := filepath.Join(base, "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Error(t, ensureDirExists(file), "a file in the way is an error")
}

func TestFindFileLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/redirect":
			http.Redirect(w, r, "https://cdn.wanderstay.com/signed/file.jpg", http.StatusFound)
		case "/direct":
			fmt.Fprint(w, "payload")
		case "/no-location":
			w.WriteHeader(http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	loc, err := findFileLocation(context.Background(), noRedirect, srv.URL+"/redirect")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.wanderstay.com/signed/file.jpg", loc)

	loc, err = findFileLocation(context.Background(), noRedirect, srv.URL+"/direct")
	require.NoError(t, err)
	assert.Empty(t, loc)

	_, err = findFileLocation(context.Background(), noRedirect, srv.URL+"/no-location")
	assert.Error(t, err)

	_, err = findFileLocation(context.Background(), noRedirect, srv.URL+"/missing")
	assert.Error(t, err)
}

func TestCollectMediaTasks(t *testing.T) {
	original := "https://media.wanderstay.com/42/tour-raw.mp4"
	manifest := MediaManifest{StayID: 42, Items: []MediaItem{
		{Kind: MediaKindPhoto, Name: "living room", URL: "https://media.wanderstay.com/42/living.jpg", Size: "2.4 MB", SHA256: "abc"},
		{Kind: MediaKindVideo, Name: "walkthrough", URL: "https://media.wanderstay.com/42/tour.mp4", Size: "180 MB", OriginalURL: &original, OriginalSize: "1.5 GB"},
		{Kind: MediaKindPhoto, Name: "broken", URL: ""},
	}}

	all := collectMediaTasks(manifest, MediaDownloadOptions{Kind: "all", IncludeOriginals: true})
	require.Len(t, all, 3, "empty URLs dropped, original expanded")
	assert.Equal(t, "living-room.jpg", all[0].fileName)
	assert.Equal(t, "abc", all[0].checksum)
	assert.Equal(t, MediaKindVideo, all[1].subDir)
	assert.Equal(t, filepath.Join(MediaKindVideo, "originals"), all[2].subDir)
	assert.Equal(t, original, all[2].url)
	assert.Empty(t, all[2].checksum)

	photos := collectMediaTasks(manifest, MediaDownloadOptions{Kind: MediaKindPhoto})
	require.Len(t, photos, 1)
	assert.Equal(t, MediaKindPhoto, photos[0].subDir)
}

// syncWriter collects progress output from concurrent download workers.
type syncWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// mediaServer serves the given path -> content map with HEAD and Range
// support, counting GETs that carry a Range header.
func mediaServer(t *testing.T, files map[string][]byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var rangeGets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet && r.Header.Get("Range") != "" {
			rangeGets.Add(1)
		}
		http.ServeContent(w, r, path.Base(r.URL.Path), time.Time{}, bytes.NewReader(content))
	}))
	t.Cleanup(srv.Close)
	return srv, &rangeGets
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestDownloadStayMedia(t *testing.T) {
	living := []byte("jpeg bytes of the living room")
	tour := []byte("mp4 bytes of the walkthrough video")
	srv, _ := mediaServer(t, map[string][]byte{
		"/media/living.jpg": living,
		"/media/tour.mp4":   tour,
	})

	stay := Stay{ID: 42, Title: "Sunny Loft near the Sagrada Familia"}
	manifest := MediaManifest{StayID: 42, Items: []MediaItem{
		{Kind: MediaKindPhoto, Name: "living room", URL: srv.URL + "/media/living.jpg", Size: "29 B", SHA256: sha256Hex(living)},
		{Kind: MediaKindVideo, Name: "walkthrough", URL: srv.URL + "/media/tour.mp4", Size: "34 B"},
	}}

	c := &WanderClient{BaseURL: srv.URL, HTTP: srv.Client()}
	dest := t.TempDir()
	out := &syncWriter{}

	err := c.DownloadStayMedia(context.Background(), stay, manifest, dest, MediaDownloadOptions{
		Workers:        2,
		JSONProgress:   true,
		ProgressWriter: out,
	})
	require.NoError(t, err)

	stayDir := filepath.Join(dest, "sunny-loft-near-the-sagrada-familia")

	photo, err := os.ReadFile(filepath.Join(stayDir, "photo", "living-room.jpg"))
	require.NoError(t, err)
	assert.Equal(t, living, photo)

	video, err := os.ReadFile(filepath.Join(stayDir, "video", "walkthrough.mp4"))
	require.NoError(t, err)
	assert.Equal(t, tour, video)

	saved, err := os.ReadFile(filepath.Join(stayDir, "manifest.json"))
	require.NoError(t, err)
	assert.Contains(t, string(saved), `"stay_id": 42`)

	output := out.String()
	assert.Contains(t, output, `"type":"file_progress"`)
	assert.Contains(t, output, "Finished downloading: living-room.jpg")
	assert.Contains(t, output, "Finished downloading: walkthrough.mp4")
}

func TestDownloadStayMedia_NothingMatches(t *testing.T) {
	srv, _ := mediaServer(t, nil)
	c := &WanderClient{BaseURL: srv.URL, HTTP: srv.Client()}
	out := &syncWriter{}

	err := c.DownloadStayMedia(context.Background(), Stay{ID: 1, Title: "x"},
		MediaManifest{Items: []MediaItem{{Kind: MediaKindVideo, Name: "tour", URL: srv.URL + "/media/tour.mp4"}}},
		t.TempDir(), MediaDownloadOptions{Kind: MediaKindFloorplan, ProgressWriter: out})

	require.NoError(t, err)
	assert.Contains(t, out.String(), `No media of kind "floorplan"`)
}

func TestDownloadStayMedia_ChecksumMismatchRemovesFile(t *testing.T) {
	srv, _ := mediaServer(t, map[string][]byte{"/media/living.jpg": []byte("corrupted on the wire")})

	stay := Stay{ID: 42, Title: "Loft"}
	manifest := MediaManifest{StayID: 42, Items: []MediaItem{
		{Kind: MediaKindPhoto, Name: "living room", URL: srv.URL + "/media/living.jpg", SHA256: strings.Repeat("0", 64)},
	}}

	c := &WanderClient{BaseURL: srv.URL, HTTP: srv.Client()}
	dest := t.TempDir()

	err := c.DownloadStayMedia(context.Background(), stay, manifest, dest, MediaDownloadOptions{
		JSONProgress:   true,
		ProgressWriter: &syncWriter{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")

	_, statErr := os.Stat(filepath.Join(dest, "loft", "photo", "living-room.jpg"))
	assert.True(t, os.IsNotExist(statErr), "a file that failed verification must not be left behind")
}

func TestDownloadStayMedia_ResumeSkipsCompleteFile(t *testing.T) {
	living := []byte("jpeg bytes of the living room")
	srv, rangeGets := mediaServer(t, map[string][]byte{"/media/living.jpg": living})

	stay := Stay{ID: 42, Title: "Loft"}
	manifest := MediaManifest{StayID: 42, Items: []MediaItem{
		{Kind: MediaKindPhoto, Name: "living room", URL: srv.URL + "/media/living.jpg", SHA256: sha256Hex(living)},
	}}

	dest := t.TempDir()
	target := filepath.Join(dest, "loft", "photo", "living-room.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, living, 0o644))

	c := &WanderClient{BaseURL: srv.URL, HTTP: srv.Client()}
	out := &syncWriter{}

	err := c.DownloadStayMedia(context.Background(), stay, manifest, dest, MediaDownloadOptions{
		Resume:         true,
		JSONProgress:   true,
		ProgressWriter: out,
	})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Skipping already downloaded file: living-room.jpg")
	assert.Equal(t, int32(0), rangeGets.Load())
}

func TestDownloadStayMedia_ResumeContinuesPartialFile(t *testing.T) {
	tour := []byte("0123456789abcdefghij")
	srv, rangeGets := mediaServer(t, map[string][]byte{"/media/tour.mp4": tour})

	stay := Stay{ID: 42, Title: "Loft"}
	manifest := MediaManifest{StayID: 42, Items: []MediaItem{
		{Kind: MediaKindVideo, Name: "walkthrough", URL: srv.URL + "/media/tour.mp4", SHA256: sha256Hex(tour)},
	}}

	dest := t.TempDir()
	target := filepath.Join(dest, "loft", "video", "walkthrough.mp4")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
	require.NoError(t, os.WriteFile(target, tour[:8], 0o644))

	c := &WanderClient{BaseURL: srv.URL, HTTP: srv.Client()}

	err := c.DownloadStayMedia(context.Background(), stay, manifest, dest, MediaDownloadOptions{
		Resume:         true,
		JSONProgress:   true,
		ProgressWriter: &syncWriter{},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, tour, got, "the resumed file must end up complete")
	assert.Equal(t, int32(1), rangeGets.Load(), "the tail should come from a Range request")
}

func TestDownloadStayMedia_RedirectRenamesFile(t *testing.T) {
	img := []byte("beach!")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/media/beach":
			http.Redirect(w, r, "http://"+r.Host+"/cdn/beach%20shot.jpg", http.StatusFound)
		case "/cdn/beach shot.jpg":
			http.ServeContent(w, r, "beach shot.jpg", time.Time{}, bytes.NewReader(img))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	stay := Stay{ID: 42, Title: "Loft"}
	manifest := MediaManifest{StayID: 42, Items: []MediaItem{
		{Kind: MediaKindPhoto, Name: "beach", URL: srv.URL + "/media/beach"},
	}}

	c := &WanderClient{BaseURL: srv.URL, HTTP: srv.Client()}
	dest := t.TempDir()

	err := c.DownloadStayMedia(context.Background(), stay, manifest, dest, MediaDownloadOptions{
		ProgressWriter: &syncWriter{},
	})
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dest, "loft", "photo", "beach shot.jpg"))
	require.NoError(t, err)
	assert.Equal(t, img, got, "the file takes its name from the redirect target")
}

func TestVerifyMediaChecksum(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plan.pdf")
	content := []byte("pdf bytes")
	require.NoError(t, os.WriteFile(file, content, 0o644))

	assert.NoError(t, verifyMediaChecksum(file, ""), "no checksum means nothing to verify")
	assert.NoError(t, verifyMediaChecksum(file, sha256Hex(content)))
	assert.NoError(t, verifyMediaChecksum(file, strings.ToUpper(sha256Hex(content))), "hex case must not matter")
	assert.Error(t, verifyMediaChecksum(file, strings.Repeat("0", 64)))
}

func TestWriteMediaManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "loft")
	manifest := MediaManifest{StayID: 42, Items: []MediaItem{
		{Kind: MediaKindPhoto, Name: "living room", URL: "https://media.wanderstay.com/42/living.jpg", Size: "2.4 MB"},
	}}

	writeMediaManifest(manifest, dir)

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)

	var roundTripped MediaManifest
	require.NoError(t, json.Unmarshal(data, &roundTripped))
	assert.Equal(t, manifest, roundTripped)
}
