package operations

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wanderstay/wander/pkg/hasher"
	"github.com/wanderstay/wander/pkg/pool"
)

// HashResult carries the checksum of one media file, or the error that
// prevented computing it.
type HashResult struct {
	File string
	Hash string
	Err  error
}

// DefaultHashExclusions lists filename patterns skipped when checksumming a
// downloaded media pack. Manifests, sidecar metadata, and previously written
// checksum files are not media and would pollute the verification output.
var DefaultHashExclusions = []string{
	".git", ".gitignore", ".DS_Store", "Thumbs.db", "desktop.ini",
	"*.json", "*.xml", "*.csv", "*.log", "*.txt", "*.md", "*.html", "*.htm",
	"*.md5", "*.sha1", "*.sha256", "*.sha512", "*.cksum", "*.sum", "*.sig", "*.asc", "*.gpg",
}

func excluded(name string, exclusions []string) bool {
	for _, pattern := range exclusions {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// FindFilesToHash walks a media directory and returns the files worth
// checksumming, honoring the exclusion patterns.
func FindFilesToHash(dir string, recursive bool, exclusions []string) ([]string, error) {
	var files []string
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !excluded(d.Name(), exclusions) {
			files = append(files, path)
		}
		return nil
	})
	return files, walkErr
}

func hashOne(path, algo string) HashResult {
	file, err := os.Open(path)
	if err != nil {
		return HashResult{File: path, Err: err}
	}
	defer file.Close()

	hash, err := hasher.GenerateHashFromReader(file, algo)
	return HashResult{File: path, Hash: hash, Err: err}
}

// GenerateHashes checksums the given files on a worker pool and streams the
// results as they complete. The channel is closed once every file has been
// processed or the context is cancelled.
func GenerateHashes(ctx context.Context, files []string, algo string, numThreads int) <-chan HashResult {
	results := make(chan HashResult, len(files))

	go func() {
		defer close(results)
		pool.Run(ctx, files, numThreads, func(ctx context.Context, path string) error {
			results <- hashOne(path, algo)
			return nil
		})
	}()

	return results
}

func isChecksumFile(name string) bool {
	for _, algo := range hasher.HashAlgorithms {
		if strings.HasSuffix(name, "."+algo) {
			return true
		}
	}
	return false
}

// CleanHashes removes checksum files written by a previous run so a media
// pack can be re-verified from scratch.
func CleanHashes(dir string, recursive bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if isChecksumFile(d.Name()) {
			if err := os.Remove(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Failed to remove old checksum file")
			}
		}
		return nil
	})
}
