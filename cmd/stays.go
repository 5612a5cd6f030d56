package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/wanderstay/wander/client"
	"github.com/wanderstay/wander/db"
	"github.com/wanderstay/wander/pkg/hasher"
	"github.com/wanderstay/wander/pkg/interval"
	"github.com/wanderstay/wander/pkg/validation"
)

// staysCmd represents the base command when called without any subcommands
func staysCmd(svc *services) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stays",
		Short: "Browse listings and manage the saved-stays cache",
	}

	// Add subcommands to the stays command
	cmd.AddCommand(
		staysListCmd(svc),
		staysSearchCmd(svc),
		staysInfoCmd(svc),
		staysRefreshCmd(svc),
		staysExportCmd(svc),
		staysReviewsCmd(svc),
		staysSaveCmd(svc),
		staysUnsaveCmd(svc),
		mediaCmd(svc),
		sizeCmd(svc),
	)

	return cmd
}

// staysListCmd shows the saved stays held in the local cache
func staysListCmd(svc *services) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the saved stays in the local cache",
		Run: func(cmd *cobra.Command, args []string) {
			listStays(cmd, svc)
		},
	}
}

func listStays(cmd *cobra.Command, svc *services) {
	log.Info().Msg("Listing all saved stays in the cache...")

	stays, err := svc.stays.List(cmd.Context())
	if err != nil {
		cmd.PrintErrln("Error: Unable to list saved stays. Please check the logs for details.")
		log.Error().Err(err).Msg("Failed to fetch stays from the local cache.")
		return
	}

	if len(stays) == 0 {
		cmd.Println("No saved stays found in the cache. Use `wander stays refresh` to update the cache.")
		return
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Row ID", "Stay ID", "Title", "City"})

	// Table appearance settings
	table.SetColMinWidth(2, 50)                      // Set minimum width for the Title column
	table.SetAlignment(tablewriter.ALIGN_LEFT)       // Align all columns to the left
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT) // Align headers to the left
	table.SetAutoWrapText(false)                     // Disable text wrapping in all columns
	table.SetRowLine(false)                          // Disable row line breaks

	for i, stay := range stays {
		// Clean the title to remove line breaks or unnecessary spaces
		cleanedTitle := strings.ReplaceAll(stay.Title, "\n", " ")
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", stay.ID),
			cleanedTitle,
			stay.City,
		})
	}

	table.Render()

	log.Info().Msgf("Successfully listed %d saved stays.", len(stays))
}

// staysSearchCmd searches Wanderstay for listings matching a city and travel dates
func staysSearchCmd(svc *services) *cobra.Command {
	var city string
	var checkIn string
	var checkOut string
	var guests int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search Wanderstay for listings in a city",
		Run: func(cmd *cobra.Command, args []string) {
			searchStays(cmd, svc, city, checkIn, checkOut, guests)
		},
	}

	cmd.Flags().StringVarP(&city, "city", "c", "", "City to search in (required)")
	cmd.Flags().StringVar(&checkIn, "check-in", "", "Check-in date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&checkOut, "check-out", "", "Check-out date (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&guests, "guests", "g", 0, "Number of guests")

	if err := cmd.MarkFlagRequired("city"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'city' flag as required")
	}

	return cmd
}

func searchStays(cmd *cobra.Command, svc *services, city, checkIn, checkOut string, guests int) {
	if city == "" {
		cmd.PrintErrln("Error: a city is required. Use `wander stays search -h` for more information.")
		return
	}

	// Dates come as a pair or not at all
	if (checkIn == "") != (checkOut == "") {
		cmd.PrintErrln("Error: --check-in and --check-out must be given together.")
		return
	}
	if checkIn != "" {
		if _, err := interval.Parse(checkIn, checkOut); err != nil {
			cmd.PrintErrln("Error:", err)
			return
		}
	}
	if guests != 0 {
		if err := validation.ValidateGuestCount(guests); err != nil {
			cmd.PrintErrln("Error:", err)
			return
		}
	}

	log.Info().Msgf("Searching for stays in %s", city)

	stays, err := svc.api.SearchStays(cmd.Context(), client.SearchParams{
		City:     city,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   guests,
	})
	if err != nil {
		log.Error().Err(err).Msgf("Failed to search stays in %s", city)
		cmd.PrintErrln("Error: Failed to search stays. Please check the logs for details.")
		return
	}

	if len(stays) == 0 {
		cmd.Printf("No stays found matching the search criteria.\n")
		return
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Row ID", "Stay ID", "Title", "City", "Rate", "Rating"})
	table.SetColMinWidth(2, 40)                      // Set minimum width for the Title column
	table.SetAlignment(tablewriter.ALIGN_LEFT)       // Align all columns to the left
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT) // Align headers to the left
	table.SetAutoWrapText(false)                     // Disable text wrapping in all columns
	table.SetRowLine(false)                          // Disable row line breaks

	for i, stay := range stays {
		table.Append([]string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", stay.ID),
			stay.Title,
			stay.City,
			fmt.Sprintf("%.2f %s", stay.NightlyRate, stay.Currency),
			fmt.Sprintf("%.1f (%d)", stay.Rating, stay.ReviewCount),
		})
	}

	table.Render()
}

// staysInfoCmd shows detailed information about a specific stay, given its ID
func staysInfoCmd(svc *services) *cobra.Command {
	var stayID int
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show information about a specific stay",
		Run: func(cmd *cobra.Command, args []string) {
			showStayInfo(cmd, svc, stayID)
		},
	}

	cmd.Flags().IntVarP(&stayID, "id", "i", 0, "ID of the stay to show its information")

	if err := cmd.MarkFlagRequired("id"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'id' flag as required")
	}

	return cmd
}

func showStayInfo(cmd *cobra.Command, svc *services, stayID int) {
	if err := validation.ValidateStayID(stayID); err != nil {
		cmd.PrintErrln("Error: ID of the stay is required to fetch information.")
		return
	}

	log.Info().Msgf("Fetching info for stay with ID=%d", stayID)

	stay, err := lookupStay(cmd, svc, stayID)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to fetch info for stay with ID=%d", stayID)
		cmd.PrintErrln("Error:", err)
		return
	}
	if stay == nil {
		log.Info().Msgf("No stay found with ID=%d", stayID)
		cmd.Println("No stay found with the specified ID.")
		return
	}

	cmd.Println("Stay Information:")
	cmd.Printf("ID: %d\n", stay.ID)
	cmd.Printf("Title: %s\n", stay.Title)
	cmd.Printf("Location: %s, %s\n", stay.City, stay.Country)
	cmd.Printf("Property type: %s\n", stay.PropertyType)
	cmd.Printf("Nightly rate: %.2f %s\n", stay.NightlyRate, stay.Currency)
	cmd.Printf("Rating: %.1f (%d reviews)\n", stay.Rating, stay.ReviewCount)
	cmd.Printf("Capacity: %d guests, %d bedrooms\n", stay.MaxGuests, stay.Bedrooms)
	host := stay.Host.Name
	if stay.Host.Superhost {
		host += " (superhost)"
	}
	cmd.Printf("Host: %s\n", host)
	if len(stay.Amenities) > 0 {
		cmd.Printf("Amenities: %s\n", strings.Join(stay.Amenities, ", "))
	}
	if stay.Summary != "" {
		cmd.Printf("Summary: %s\n", stay.Summary)
	}
}

// lookupStay resolves a stay from the local cache first and falls back to the
// API for listings that were never saved.
func lookupStay(cmd *cobra.Command, svc *services, stayID int) (*client.Stay, error) {
	record, err := svc.stays.GetByID(cmd.Context(), stayID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		stay, err := client.ParseStayData(record.Data)
		if err != nil {
			return nil, err
		}
		return &stay, nil
	}

	stay, _, err := svc.api.FetchStay(cmd.Context(), stayID)
	if err != nil {
		return nil, err
	}
	if stay.ID == 0 {
		return nil, nil
	}
	return &stay, nil
}

// staysRefreshCmd refreshes the local cache with the latest data for the saved stays
func staysRefreshCmd(svc *services) *cobra.Command {

	// Define the number of workers to use for fetching stay data
	var numThreads int

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Update the cache with the latest data for the account's saved stays",
		Run: func(cmd *cobra.Command, args []string) {
			refreshSavedStays(cmd, svc, numThreads)
		},
	}

	cmd.Flags().IntVarP(&numThreads, "threads", "t", 5, "Number of worker threads to use for fetching stay data")
	return cmd
}

func refreshSavedStays(cmd *cobra.Command, svc *services, numThreads int) {
	log.Info().Msg("Refreshing the saved-stays cache...")

	if err := validation.ValidateThreadCount(numThreads); err != nil {
		cmd.PrintErrln("Error: Number of threads should be between 1 and 20.")
		return
	}

	bar := progressbar.NewOptions(100,
		progressbar.OptionSetDescription("Refreshing saved stays..."),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
	)

	progressCb := func(fraction float64) {
		_ = bar.Set(int(fraction * 100))
	}

	changed, err := svc.api.RefreshSavedStays(cmd.Context(), svc.auth, svc.stays, numThreads, progressCb)
	if err != nil {
		if strings.Contains(err.Error(), "401") {
			cmd.PrintErrln("Error: Failed to fetch the saved stays. Please run 'wander login' to re-authenticate.")
		} else {
			cmd.PrintErrln("Error: Failed to refresh the saved-stays cache. Please check the logs for details.")
		}
		log.Error().Err(err).Msg("Failed to refresh the saved-stays cache.")
		return
	}
	_ = bar.Finish()

	stays, err := svc.stays.List(cmd.Context())
	if err != nil {
		cmd.PrintErrln("Error: Refresh finished but the cache could not be read back.")
		return
	}
	cmd.Printf("Refreshing completed successfully. There are %d saved stays in the cache (%d changed).\n",
		len(stays), changed)
}

// staysReviewsCmd lists the reviews of a stay
func staysReviewsCmd(svc *services) *cobra.Command {
	var stayID int
	var limit int

	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Show guest reviews for a specific stay",
		Run: func(cmd *cobra.Command, args []string) {
			showReviews(cmd, svc, stayID, limit)
		},
	}

	cmd.Flags().IntVarP(&stayID, "id", "i", 0, "ID of the stay to show reviews for")
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Maximum number of reviews to show")

	if err := cmd.MarkFlagRequired("id"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'id' flag as required")
	}

	return cmd
}

func showReviews(cmd *cobra.Command, svc *services, stayID, limit int) {
	if err := validation.ValidateStayID(stayID); err != nil {
		cmd.PrintErrln("Error:", err)
		return
	}

	log.Info().Msgf("Fetching reviews for stay with ID=%d", stayID)

	reviews, err := svc.api.FetchReviews(cmd.Context(), stayID)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to fetch reviews for stay with ID=%d", stayID)
		cmd.PrintErrln("Error: Failed to fetch reviews. Please check the logs for details.")
		return
	}

	if len(reviews) == 0 {
		cmd.Println("No reviews found for the specified stay.")
		return
	}

	if limit > 0 && len(reviews) > limit {
		reviews = reviews[:limit]
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Author", "Rating", "Date", "Comment"})
	table.SetColMinWidth(3, 50)                      // Set minimum width for the Comment column
	table.SetAlignment(tablewriter.ALIGN_LEFT)       // Align all columns to the left
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT) // Align headers to the left
	table.SetAutoWrapText(true)
	table.SetRowLine(false)

	for _, review := range reviews {
		table.Append([]string{
			review.Author,
			fmt.Sprintf("%d/5", review.Rating),
			review.Date,
			review.Comment,
		})
	}

	table.Render()
}

// staysSaveCmd adds a stay to the account's saved list and caches it locally
func staysSaveCmd(svc *services) *cobra.Command {
	return &cobra.Command{
		Use:   "save [stayID]",
		Short: "Add a stay to the account's saved list",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			stayID, ok := parseStayID(cmd, args[0])
			if !ok {
				return
			}
			saveStay(cmd, svc, stayID)
		},
	}
}

func saveStay(cmd *cobra.Command, svc *services, stayID int) {
	ctx := cmd.Context()

	if err := svc.api.SaveStay(ctx, stayID); err != nil {
		log.Error().Err(err).Msgf("Failed to save stay with ID=%d", stayID)
		cmd.PrintErrln("Error: Failed to save the stay. Please check the logs for details.")
		return
	}

	// Cache the listing right away so size estimates and media downloads work
	// without a full refresh.
	stay, raw, err := svc.api.FetchStay(ctx, stayID)
	if err == nil && stay.Title != "" {
		fingerprint, hashErr := hasher.HashBytes([]byte(raw), "sha256")
		if hashErr != nil {
			log.Warn().Err(hashErr).Int("stayID", stayID).Msg("Failed to fingerprint stay payload")
		}
		if err := svc.stays.Put(ctx, db.Stay{
			ID:          stayID,
			Title:       stay.Title,
			City:        stay.City,
			Data:        raw,
			Fingerprint: fingerprint,
		}); err != nil {
			log.Warn().Err(err).Int("stayID", stayID).Msg("Failed to cache saved stay")
		}
	}

	cmd.Printf("Stay %d saved.\n", stayID)
}

// staysUnsaveCmd removes a stay from the account's saved list
func staysUnsaveCmd(svc *services) *cobra.Command {
	return &cobra.Command{
		Use:   "unsave [stayID]",
		Short: "Remove a stay from the account's saved list",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			stayID, ok := parseStayID(cmd, args[0])
			if !ok {
				return
			}
			if err := svc.api.UnsaveStay(cmd.Context(), stayID); err != nil {
				log.Error().Err(err).Msgf("Failed to unsave stay with ID=%d", stayID)
				cmd.PrintErrln("Error: Failed to unsave the stay. Please check the logs for details.")
				return
			}
			cmd.Printf("Stay %d removed from saved stays.\n", stayID)
		},
	}
}

// staysExportCmd exports the saved-stays cache to a file in JSON or CSV format
func staysExportCmd(svc *services) *cobra.Command {
	exportPath := ""
	exportFormat := ""

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the saved-stays cache to a file",
		Run: func(cmd *cobra.Command, args []string) {
			exportStays(cmd, svc, exportPath, exportFormat)
		},
	}

	// Add flags for export path and format
	cmd.Flags().StringVarP(&exportPath, "dir", "d", "", "Directory to export the file (required)")
	cmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Export format: json or csv (required)")

	// Mark flags as required
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.MarkFlagRequired("format")

	return cmd
}

func exportStays(cmd *cobra.Command, svc *services, exportPath, exportFormat string) {
	log.Info().Msg("Exporting the saved-stays cache...")

	if exportPath == "" {
		log.Error().Msg("Export path is required.")
		cmd.PrintErrln("Error: Export path is required.")
		return
	}

	// Ensure the directory exists or create it
	if err := os.MkdirAll(exportPath, os.ModePerm); err != nil {
		log.Error().Err(err).Msg("Failed to create export directory.")
		cmd.PrintErrln("Error: Failed to create export directory.")
		return
	}

	if exportFormat != "json" && exportFormat != "csv" {
		log.Error().Msg("Invalid export format. Supported formats: json, csv")
		cmd.PrintErrln("Error: Invalid export format. Supported formats: json, csv")
		return
	}

	// Generate a timestamped filename
	timestamp := time.Now().Format("20060102_150405")
	fileName := fmt.Sprintf("wander_saved_stays_%s.%s", timestamp, exportFormat)
	filePath := filepath.Join(exportPath, fileName)

	var err error
	if exportFormat == "json" {
		err = exportStaysToJSON(cmd, svc, filePath)
	} else {
		err = exportStaysToCSV(cmd, svc, filePath)
	}

	if err != nil {
		log.Error().Err(err).Msg("Failed to export the saved-stays cache.")
		cmd.PrintErrln("Error: Failed to export the saved-stays cache.")
		return
	}

	cmd.Printf("Saved stays exported to %s\n", filePath)
	log.Info().Msgf("Saved-stays cache exported successfully to %s.", filePath)
}

// exportStaysToCSV exports the saved-stays cache to a CSV file.
func exportStaysToCSV(cmd *cobra.Command, svc *services, path string) error {
	stays, err := svc.stays.List(cmd.Context())
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to create CSV file %s", path)
		return err
	}
	defer file.Close()

	// Write the header
	if _, err := file.WriteString("ID,Title,City\n"); err != nil {
		log.Error().Err(err).Msg("Failed to write CSV header to file")
		return err
	}

	for _, stay := range stays {
		if _, err := file.WriteString(fmt.Sprintf("%d,\"%s\",\"%s\"\n", stay.ID, stay.Title, stay.City)); err != nil {
			log.Error().Err(err).Msgf("Failed to write stay %d to CSV file", stay.ID)
			return err
		}
	}

	log.Info().Msgf("Saved stays exported to CSV file: %s", path)
	return nil
}

// exportStaysToJSON exports the saved-stays cache to a JSON file.
func exportStaysToJSON(cmd *cobra.Command, svc *services, path string) error {
	stays, err := svc.stays.List(cmd.Context())
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to create JSON file %s", path)
		return err
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(stays); err != nil {
		log.Error().Err(err).Msg("Failed to write stays to JSON file")
		return err
	}

	log.Info().Msgf("Saved stays exported to JSON file: %s", path)
	return nil
}
