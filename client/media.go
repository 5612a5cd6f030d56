package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	netURL "net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/wanderstay/wander/pkg/hasher"
	"github.com/wanderstay/wander/pkg/pool"
)

var (
	pathDropChars  = regexp.MustCompile(`[®™()\[\]{}!@#$%^&*+=<>?|"':,.]`)
	pathSeparators = regexp.MustCompile(`[\s/\\]+`)
	pathHyphenRuns = regexp.MustCompile(`-{2,}`)
)

// SanitizePath turns a listing title into a safe directory name: lowercase,
// punctuation dropped, separators collapsed to single hyphens.
func SanitizePath(name string) string {
	name = strings.ToLower(name)
	name = pathDropChars.ReplaceAllString(name, "")
	name = pathSeparators.ReplaceAllString(name, "-")
	name = pathHyphenRuns.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}

func ensureDirExists(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			log.Error().Msgf("Path %s exists but is not a directory", path)
			return fmt.Errorf("path %s exists but is not a directory", path)
		}
		return nil
	}
	if os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModePerm)
	}
	log.Error().Err(err).Msgf("Error checking directory %s", path)
	return err
}

// ProgressUpdate is one line of the machine-readable progress stream emitted
// when MediaDownloadOptions.JSONProgress is set.
type ProgressUpdate struct {
	Type       string  `json:"type"`
	FileName   string  `json:"file_name"`
	Downloaded int64   `json:"downloaded"`
	Total      int64   `json:"total"`
	Percent    float64 `json:"percent"`
}

// progressReader mirrors download progress as JSON lines so wrapper scripts
// can track long media downloads without scraping a terminal progress bar.
type progressReader struct {
	reader     io.Reader
	writer     io.Writer
	fileName   string
	totalSize  int64
	downloaded int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.downloaded += int64(n)
		update := ProgressUpdate{
			Type:       "file_progress",
			FileName:   pr.fileName,
			Downloaded: pr.downloaded,
			Total:      pr.totalSize,
		}
		if pr.totalSize > 0 {
			update.Percent = float64(pr.downloaded) / float64(pr.totalSize) * 100
		}
		if data, jsonErr := json.Marshal(update); jsonErr == nil {
			fmt.Fprintf(pr.writer, "%s\n", data)
		}
	}
	return n, err
}

// MediaDownloadOptions controls DownloadStayMedia.
type MediaDownloadOptions struct {
	Kind             string // photo, video, floorplan, or all
	IncludeOriginals bool
	Resume           bool
	Flatten          bool
	Workers          int
	JSONProgress     bool
	ProgressWriter   io.Writer
}

// mediaTask is one file download job.
type mediaTask struct {
	url      string
	fileName string
	subDir   string
	size     string
	checksum string
}

// DownloadStayMedia downloads a stay's media pack to downloadPath. Files land
// under a directory named after the listing, one subdirectory per media kind
// unless Flatten is set. Interrupted files are resumed with Range requests
// when Resume is set, and files with a manifest checksum are verified after
// download.
func (c *WanderClient) DownloadStayMedia(
	ctx context.Context,
	stay Stay,
	manifest MediaManifest,
	downloadPath string,
	opts MediaDownloadOptions,
) error {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.ProgressWriter == nil {
		opts.ProgressWriter = io.Discard
	}
	if opts.Kind == "" {
		opts.Kind = "all"
	}

	// Media URLs may redirect to short-lived CDN links; the no-redirect
	// client surfaces the Location so the workers download from it directly.
	base := c.httpClient()
	httpClient := &http.Client{Transport: base.Transport}
	httpClientNoRedirect := &http.Client{
		Transport: base.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	if err := ensureDirExists(downloadPath); err != nil {
		log.Error().Err(err).Msgf("Failed to create download path %s", downloadPath)
		return err
	}

	tasks := collectMediaTasks(manifest, opts)
	if len(tasks) == 0 {
		fmt.Fprintf(opts.ProgressWriter, "No media of kind %q to download.\n", opts.Kind)
		return nil
	}

	stayDir := SanitizePath(stay.Title)
	if stayDir == "" {
		stayDir = fmt.Sprintf("stay-%d", stay.ID)
	}

	worker := func(ctx context.Context, task mediaTask) error {
		err := downloadMediaFile(ctx, httpClient, httpClientNoRedirect, task, downloadPath, stayDir, opts)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Str("file", task.fileName).Msg("Failed to download media file")
			return fmt.Errorf("failed to download %s: %w", task.fileName, err)
		}
		return nil
	}

	if errs := pool.Run(ctx, tasks, opts.Workers, worker); len(errs) > 0 {
		for _, err := range errs {
			log.Warn().Err(err).Msg("Recorded media download error")
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%d of %d media downloads failed: %w", len(errs), len(tasks), errs[0])
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	writeMediaManifest(manifest, filepath.Join(downloadPath, stayDir))
	log.Info().Int("files", len(tasks)).Str("stay", stay.Title).Msg("Media download completed")
	return nil
}

// collectMediaTasks filters the manifest down to the requested kind and
// expands original-quality variants when asked for.
func collectMediaTasks(manifest MediaManifest, opts MediaDownloadOptions) []mediaTask {
	var tasks []mediaTask
	for _, item := range manifest.Items {
		if opts.Kind != "all" && !strings.EqualFold(item.Kind, opts.Kind) {
			continue
		}
		if item.URL == "" {
			log.Warn().Str("name", item.Name).Msg("Skipping media item with empty URL")
			continue
		}
		fileName := mediaFileName(item.Name, item.URL)
		tasks = append(tasks, mediaTask{
			url:      item.URL,
			fileName: fileName,
			subDir:   item.Kind,
			size:     item.Size,
			checksum: item.SHA256,
		})
		if opts.IncludeOriginals && item.OriginalURL != nil && *item.OriginalURL != "" {
			tasks = append(tasks, mediaTask{
				url:      *item.OriginalURL,
				fileName: fileName,
				subDir:   filepath.Join(item.Kind, "originals"),
				size:     item.OriginalSize,
			})
		}
	}
	return tasks
}

func mediaFileName(name, rawURL string) string {
	fileName := SanitizePath(name)
	ext := ""
	if parsed, err := netURL.Parse(rawURL); err == nil {
		ext = filepath.Ext(parsed.Path)
	}
	if fileName == "" {
		if parsed, err := netURL.Parse(rawURL); err == nil {
			fileName = filepath.Base(parsed.Path)
		}
	} else if ext != "" && !strings.HasSuffix(fileName, ext) {
		fileName += ext
	}
	return fileName
}

// findFileLocation checks whether url redirects and returns the target, or
// "" when the file is served directly.
func findFileLocation(ctx context.Context, httpClientNoRedirect *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := httpClientNoRedirect.Do(req)
	if err != nil {
		return "", err
	}
	defer closeResponseBody(resp)

	switch resp.StatusCode {
	case http.StatusFound, http.StatusMovedPermanently, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		location := resp.Header.Get("Location")
		if location == "" {
			return "", fmt.Errorf("redirect location not found in header")
		}
		log.Debug().Str("location", location).Msg("Media URL redirected")
		return location, nil
	case http.StatusOK:
		return "", nil
	default:
		return "", fmt.Errorf("unexpected status %d during redirect check", resp.StatusCode)
	}
}

func downloadMediaFile(
	ctx context.Context,
	httpClient, httpClientNoRedirect *http.Client,
	task mediaTask,
	downloadPath, stayDir string,
	opts MediaDownloadOptions,
) error {
	url := task.url
	fileName := task.fileName

	location, err := findFileLocation(ctx, httpClientNoRedirect, url)
	if err != nil {
		return fmt.Errorf("failed redirect check for %s: %w", url, err)
	}
	if location != "" {
		url = location
		if parsedLoc, parseErr := netURL.Parse(location); parseErr == nil && parsedLoc.Path != "" {
			base := filepath.Base(parsedLoc.Path)
			if base != "." && base != "/" {
				fileName = base
			}
		}
	}

	if decoded, decErr := netURL.QueryUnescape(fileName); decErr == nil {
		fileName = decoded
	}

	subDir := task.subDir
	if opts.Flatten {
		subDir = ""
	}
	targetDir := filepath.Join(downloadPath, stayDir, subDir)
	filePath := filepath.Join(targetDir, fileName)

	if err := ensureDirExists(targetDir); err != nil {
		return err
	}

	var file *os.File
	var startOffset int64
	if opts.Resume {
		fileInfo, statErr := os.Stat(filePath)
		switch {
		case statErr == nil:
			startOffset = fileInfo.Size()
			log.Debug().Str("file", fileName).Int64("offset", startOffset).Msg("Resuming download")
			file, err = os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return err
			}
		case os.IsNotExist(statErr):
			file, err = os.Create(filePath)
			if err != nil {
				return err
			}
		default:
			return statErr
		}
	} else {
		file, err = os.Create(filePath)
		if err != nil {
			return err
		}
	}
	defer func() { _ = file.Close() }()

	headReq, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return err
	}
	headResp, err := httpClient.Do(headReq)
	if err != nil {
		return err
	}
	closeResponseBody(headResp)
	if headResp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to get file info for %s: HTTP %d", fileName, headResp.StatusCode)
	}
	totalSize := headResp.ContentLength
	if totalSize <= 0 {
		log.Warn().Str("file", fileName).Msg("Unknown content length, progress may be inaccurate")
		totalSize = -1
	}

	if opts.Resume && totalSize > 0 && startOffset >= totalSize {
		fmt.Fprintf(opts.ProgressWriter, "Skipping already downloaded file: %s\n", fileName)
		return verifyMediaChecksum(filePath, task.checksum)
	}

	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if opts.Resume && startOffset > 0 {
		getReq.Header.Set("Range", fmt.Sprintf("bytes=%d-", startOffset))
	}
	getResp, err := httpClient.Do(getReq)
	if err != nil {
		return err
	}
	defer closeResponseBody(getResp)

	if getResp.StatusCode != http.StatusOK && getResp.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("failed to download %s: HTTP %d", fileName, getResp.StatusCode)
	}
	// Server ignored the Range header; start the file over.
	if startOffset > 0 && getResp.StatusCode == http.StatusOK {
		if err := file.Truncate(0); err != nil {
			return err
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return err
		}
		startOffset = 0
	}

	reader := wrapWithDownloadRateLimit(getResp.Body)
	if opts.JSONProgress {
		reader = &progressReader{reader: reader, writer: opts.ProgressWriter, fileName: fileName, totalSize: totalSize, downloaded: startOffset}
	} else {
		bar := progressbar.NewOptions64(
			totalSize,
			progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", fileName)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWriter(opts.ProgressWriter),
			progressbar.OptionThrottle(500*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetPredictTime(false),
		)
		if startOffset > 0 {
			_ = bar.Set64(startOffset)
		}
		barReader := progressbar.NewReader(reader, bar)
		reader = &barReader
	}

	buffer := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(file, reader, buffer); err != nil {
		if ctx.Err() != nil {
			// Keep the partial file so a later resume can pick it up.
			return ctx.Err()
		}
		_ = os.Remove(filePath)
		return fmt.Errorf("failed to save file %s: %w", filePath, err)
	}
	if err := file.Close(); err != nil {
		return err
	}

	if err := verifyMediaChecksum(filePath, task.checksum); err != nil {
		_ = os.Remove(filePath)
		return err
	}

	fmt.Fprintf(opts.ProgressWriter, "Finished downloading: %s\n", fileName)
	return nil
}

// verifyMediaChecksum compares a downloaded file against its manifest sha256.
func verifyMediaChecksum(filePath, checksum string) error {
	if checksum == "" {
		return nil
	}
	sum, err := hasher.GenerateHash(filePath, "sha256")
	if err != nil {
		return fmt.Errorf("failed to hash %s: %w", filePath, err)
	}
	if !strings.EqualFold(sum, checksum) {
		return fmt.Errorf("checksum mismatch for %s: got %s, want %s", filepath.Base(filePath), sum, checksum)
	}
	return nil
}

func writeMediaManifest(manifest MediaManifest, dir string) {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode media manifest")
		return
	}
	if err := ensureDirExists(dir); err != nil {
		return
	}
	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Error().Err(err).Msgf("Failed to save media manifest to %s", path)
		return
	}
	log.Debug().Str("path", path).Msg("Saved media manifest")
}
