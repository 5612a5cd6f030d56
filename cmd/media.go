package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wanderstay/wander/client"
	"github.com/wanderstay/wander/pkg/operations"
	"github.com/wanderstay/wander/pkg/validation"
)

// mediaCmd creates a new cobra.Command for downloading a stay's media pack.
// It returns a pointer to the created cobra.Command.
func mediaCmd(svc *services) *cobra.Command {
	var mediaKind string
	var originalsFlag bool
	var resumeFlag bool
	var flattenFlag bool
	var jsonProgress bool
	var numThreads int
	var rateLimitKiB int64

	cmd := &cobra.Command{
		Use:   "media [stayID] [downloadDir]",
		Short: "Download a stay's media pack",
		Long:  "Download the photos, videos, and floor plans of a cached stay to the specified directory",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			stayID, ok := parseStayID(cmd, args[0])
			if !ok {
				return
			}
			downloadDir := args[1]
			executeMediaDownload(cmd.Context(), cmd, svc, stayID, downloadDir, mediaKind,
				originalsFlag, resumeFlag, flattenFlag, jsonProgress, numThreads, rateLimitKiB)
		},
	}

	// Add flags for download options
	cmd.Flags().StringVarP(&mediaKind, "kind", "k", "all", "Media kind to download [all, photo, video, floorplan]")
	cmd.Flags().BoolVarP(&originalsFlag, "originals", "o", false, "Download full-resolution originals where available? [true, false]")
	cmd.Flags().BoolVarP(&resumeFlag, "resume", "r", true, "Resume partially downloaded files? [true, false]")
	cmd.Flags().BoolVarP(&flattenFlag, "flatten", "f", false, "Flatten the per-kind directory structure? [true, false]")
	cmd.Flags().BoolVar(&jsonProgress, "json-progress", false, "Emit progress as JSON lines instead of a progress bar")
	cmd.Flags().IntVarP(&numThreads, "threads", "t", 5, "Number of worker threads to use for downloading [1-20]")
	cmd.Flags().Int64Var(&rateLimitKiB, "rate-limit", 0, "Download speed limit in KiB/s (0 means unlimited)")

	return cmd
}

// executeMediaDownload handles the download logic for a stay's media pack.
func executeMediaDownload(ctx context.Context, cmd *cobra.Command, svc *services, stayID int,
	downloadPath, mediaKind string, originalsFlag, resumeFlag, flattenFlag, jsonProgress bool,
	numThreads int, rateLimitKiB int64) {
	log.Info().Msgf("Downloading media to %s...\n", downloadPath)
	log.Info().Msgf("Kind: %s, Originals: %v, Resume: %v\n", mediaKind, originalsFlag, resumeFlag)

	if err := validation.ValidateThreadCount(numThreads); err != nil {
		cmd.PrintErrln("Error: Number of threads must be between 1 and 20.")
		return
	}
	if err := validation.ValidateMediaKind(mediaKind); err != nil {
		cmd.PrintErrf("Error: Invalid media kind %q. Supported kinds: %s.\n", mediaKind, strings.Join(client.MediaKinds, ", "))
		return
	}

	// Renew the session up front so the workers do not all trip a 401 at once.
	if _, err := svc.auth.RefreshTokenCtx(ctx); err != nil {
		log.Error().Msg("Failed to refresh the access token. Please login again.")
		cmd.PrintErrln("Error: Failed to refresh the session. Please run 'wander login' to sign in again.")
		return
	}

	// Check if the download path exists, if not, create it
	if _, err := os.Stat(downloadPath); os.IsNotExist(err) {
		log.Info().Msgf("Creating download path %s\n", downloadPath)
		if err := os.MkdirAll(downloadPath, os.ModePerm); err != nil {
			log.Error().Err(err).Msgf("Failed to create download path %s\n", downloadPath)
			return
		}
	}

	// Fetch the stay from the local cache
	record, err := svc.stays.GetByID(ctx, stayID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get stay by ID.")
		cmd.PrintErrln("Error: Failed to read the saved-stays cache.")
		return
	} else if record == nil {
		log.Error().Msg("Stay not found in the cache.")
		cmd.PrintErrln("Error: Stay not found in the cache. Use `wander stays save` or `wander stays refresh` first.")
		return
	}

	stay, err := client.ParseStayData(record.Data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to parse stay details.")
		cmd.PrintErrln("Error: Failed to parse the cached stay data.")
		return
	}

	manifest, err := svc.api.FetchMediaManifest(ctx, stayID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch the media manifest.")
		cmd.PrintErrln("Error: Failed to fetch the media manifest. Please check the logs for details.")
		return
	}
	if len(manifest.Items) == 0 {
		cmd.Println("The stay has no downloadable media.")
		return
	}

	if rateLimitKiB > 0 {
		client.SetDownloadRateLimit(rateLimitKiB * 1024)
		defer client.SetDownloadRateLimit(0)
	}

	// Replay any requests parked while the network was down.
	go svc.offline.Run(ctx)

	logMediaParameters(cmd, stay, stayID, downloadPath, mediaKind, originalsFlag, resumeFlag, flattenFlag, numThreads)

	opts := client.MediaDownloadOptions{
		Kind:             mediaKind,
		IncludeOriginals: originalsFlag,
		Resume:           resumeFlag,
		Flatten:          flattenFlag,
		Workers:          numThreads,
		JSONProgress:     jsonProgress,
	}
	if jsonProgress {
		opts.ProgressWriter = cmd.OutOrStdout()
	}

	if err := svc.api.DownloadStayMedia(ctx, stay, manifest, downloadPath, opts); err != nil {
		log.Error().Err(err).Msg("Failed to download media files.")
		cmd.PrintErrln("Error: Failed to download the media pack. Please check the logs for details.")
		return
	}
	cmd.Printf("\rMedia files downloaded successfully to: \"%s\"\n", filepath.Join(downloadPath,
		client.SanitizePath(stay.Title)))
}

// logMediaParameters prints the download parameters to the console.
func logMediaParameters(cmd *cobra.Command, stay client.Stay, stayID int, downloadPath, mediaKind string,
	originalsFlag, resumeFlag, flattenFlag bool, numThreads int) {
	cmd.Println("================================= Download Parameters =====================================")
	cmd.Printf("Downloading media for \"%v\" (with stay ID=\"%d\") to \"%v\"\n", stay.Title, stayID, downloadPath)
	cmd.Printf("Kind: \"%v\", Include originals: \"%v\"\n", mediaKind, originalsFlag)
	cmd.Printf("Resume enabled: \"%v\", Flatten directory structure: \"%v\"\n", resumeFlag, flattenFlag)
	cmd.Printf("Number of worker threads for download: \"%d\"\n", numThreads)
	cmd.Println("============================================================================================")
}

// sizeCmd estimates the download size of a cached stay's media pack.
func sizeCmd(svc *services) *cobra.Command {
	var mediaKind string
	var originalsFlag bool
	var sizeUnit string

	cmd := &cobra.Command{
		Use:   "size [stayID]",
		Short: "Show the estimated download size of a stay's media pack",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			stayID, ok := parseStayID(cmd, args[0])
			if !ok {
				return
			}
			estimateMediaSize(cmd, svc, stayID, mediaKind, originalsFlag, sizeUnit)
		},
	}

	cmd.Flags().StringVarP(&mediaKind, "kind", "k", "all", "Media kind to include [all, photo, video, floorplan]")
	cmd.Flags().BoolVarP(&originalsFlag, "originals", "o", false, "Include full-resolution originals where available? [true, false]")
	cmd.Flags().StringVarP(&sizeUnit, "unit", "u", "auto", "Size unit to display [auto, b, kib, mib, gib]")

	return cmd
}

func estimateMediaSize(cmd *cobra.Command, svc *services, stayID int, mediaKind string, originalsFlag bool, sizeUnit string) {
	if err := validation.ValidateMediaKind(mediaKind); err != nil {
		cmd.PrintErrf("Error: Invalid media kind %q. Supported kinds: %s.\n", mediaKind, strings.Join(client.MediaKinds, ", "))
		return
	}

	totalSize, stay, err := operations.EstimateStaySize(cmd.Context(), svc.stays, stayID, operations.EstimationParams{
		MediaKind:        mediaKind,
		IncludeOriginals: originalsFlag,
	})
	if err != nil {
		log.Error().Err(err).Msgf("Failed to estimate media size for stay with ID=%d", stayID)
		cmd.PrintErrln("Error:", err)
		return
	}

	cmd.Printf("Estimating media size for \"%s\"...\n", stay.Title)
	cmd.Printf("Total media size: %s\n", formatSizeWithUnit(totalSize, sizeUnit))
}

// formatSizeWithUnit renders a byte count in the requested unit, falling back
// to the auto-scaled binary format.
func formatSizeWithUnit(size int64, unit string) string {
	switch strings.ToLower(unit) {
	case "b":
		return fmt.Sprintf("%d B", size)
	case "kib":
		return fmt.Sprintf("%.1f KiB", float64(size)/1024)
	case "mib":
		return fmt.Sprintf("%.1f MiB", float64(size)/(1024*1024))
	case "gib":
		return fmt.Sprintf("%.2f GiB", float64(size)/(1024*1024*1024))
	default:
		return formatBytes(size)
	}
}
