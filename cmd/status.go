package cmd

import (
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wanderstay/wander/auth"
	"github.com/wanderstay/wander/client"
	"github.com/wanderstay/wander/db"
)

// statusCmd shows the session state and an account overview. The profile,
// trips, and inbox fetches run in parallel over the shared session transport,
// so one expired token costs a single refresh no matter which call hits the
// 401 first.
func statusCmd(svc *services) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state and an account overview",
		Run: func(cmd *cobra.Command, args []string) {
			showStatus(cmd, svc)
		},
	}
}

func showStatus(cmd *cobra.Command, svc *services) {
	ctx := cmd.Context()

	token, err := svc.tokens.Get(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read the stored session")
		cmd.PrintErrln("Error: Failed to read the stored session.")
		return
	}
	if token == nil || token.RefreshToken == "" {
		cmd.Println("Not signed in. Run 'wander login' to sign in.")
		return
	}

	cmd.Println("Session: signed in")
	if expiry, ok := auth.ExpiryFromJWT(token.AccessToken); ok {
		if remaining := time.Until(expiry); remaining > 0 {
			cmd.Printf("Access token expires in %s\n", remaining.Round(time.Second))
		} else {
			cmd.Println("Access token expired (will be renewed on the next request)")
		}
	}

	var profile client.Profile
	var trips []client.Trip
	var threads []client.Thread

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = svc.api.FetchProfile(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		trips, err = svc.api.ListTrips(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		threads, err = svc.api.ListThreads(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("Failed to fetch the account overview")

		// Fall back to the cached profile so status still says who is
		// signed in when the API is unreachable.
		if cached, cacheErr := svc.profiles.Get(ctx); cacheErr == nil && cached != nil {
			cmd.Printf("Signed in as %s (%s) [cached]\n", cached.DisplayName, cached.Email)
		}
		cmd.PrintErrln("Error: Failed to fetch the account overview. Please check the logs for details.")
		return
	}

	if profile.DisplayName != "" {
		cmd.Printf("Signed in as %s (%s)\n", profile.DisplayName, profile.Email)
	} else {
		cmd.Printf("Signed in as %s\n", profile.Email)
	}
	if profile.HomeCity != "" {
		cmd.Printf("Home city: %s\n", profile.HomeCity)
	}

	unread := 0
	for _, thread := range threads {
		unread += thread.Unread
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Trips", "Conversations", "Unread Messages"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)       // Align all columns to the left
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT) // Align headers to the left
	table.SetAutoWrapText(false)                     // Disable text wrapping in all columns
	table.SetRowLine(false)                          // Disable row line breaks
	table.Append([]string{
		fmt.Sprintf("%d", len(trips)),
		fmt.Sprintf("%d", len(threads)),
		fmt.Sprintf("%d", unread),
	})
	table.Render()

	// Keep the cached profile current while we have a fresh copy.
	updateCachedProfile(cmd, svc, profile)
}

func updateCachedProfile(cmd *cobra.Command, svc *services, profile client.Profile) {
	if profile.Email == "" {
		return
	}
	cached := db.Profile{
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		HomeCity:    profile.HomeCity,
	}
	if err := svc.profiles.Upsert(cmd.Context(), &cached); err != nil {
		log.Warn().Err(err).Msg("Failed to update the cached profile")
	}
}
