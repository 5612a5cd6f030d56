package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wanderstay/wander/client"
	"github.com/wanderstay/wander/pkg/clierr"
	"github.com/wanderstay/wander/pkg/interval"
	"github.com/wanderstay/wander/pkg/validation"
)

// tripsCmd represents the base command when called without any subcommands
func tripsCmd(svc *services) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trips",
		Short: "Book stays and manage reservations",
	}

	cmd.AddCommand(
		tripsBookCmd(svc),
		tripsListCmd(svc),
		tripsCancelCmd(svc),
	)

	return cmd
}

// tripsBookCmd books a stay for the given dates and party size
func tripsBookCmd(svc *services) *cobra.Command {
	var checkIn string
	var checkOut string
	var guests int

	cmd := &cobra.Command{
		Use:   "book [stayID]",
		Short: "Book a stay for the given dates",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			stayID, ok := parseStayID(cmd, args[0])
			if !ok {
				return
			}
			bookStay(cmd, svc, stayID, checkIn, checkOut, guests)
		},
	}

	cmd.Flags().StringVar(&checkIn, "check-in", "", "Check-in date (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&checkOut, "check-out", "", "Check-out date (YYYY-MM-DD, required)")
	cmd.Flags().IntVarP(&guests, "guests", "g", 1, "Number of guests")

	if err := cmd.MarkFlagRequired("check-in"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'check-in' flag as required")
	}
	if err := cmd.MarkFlagRequired("check-out"); err != nil {
		log.Error().Err(err).Msg("Failed to mark 'check-out' flag as required")
	}

	return cmd
}

func bookStay(cmd *cobra.Command, svc *services, stayID int, checkIn, checkOut string, guests int) {
	if err := validateBooking(checkIn, checkOut, guests); err != nil {
		log.Debug().Str("type", string(clierr.TypeOf(err))).Msg("Booking rejected before reaching the API")
		cmd.PrintErrln("Error:", err)
		return
	}

	stayRange, _ := interval.Parse(checkIn, checkOut)
	log.Info().Msgf("Booking stay %d for %s (%d nights)", stayID, stayRange, stayRange.Nights())

	trip, err := svc.api.BookStay(cmd.Context(), client.BookingRequest{
		StayID:   stayID,
		CheckIn:  checkIn,
		CheckOut: checkOut,
		Guests:   guests,
	})
	if err != nil {
		log.Error().Err(err).Msgf("Failed to book stay with ID=%d", stayID)
		switch {
		case errors.Is(err, client.ErrStayUnavailable):
			cmd.PrintErrln("Error: The stay is not available for the requested dates.")
		case errors.Is(err, client.ErrQueuedOffline):
			cmd.Println("You appear to be offline. The booking will be sent when the connection returns.")
		default:
			cmd.PrintErrln("Error: Failed to book the stay. Please check the logs for details.")
		}
		return
	}

	cmd.Printf("Booked \"%s\" for %s, %d night(s), %d guest(s).\n",
		trip.StayTitle, stayRange, stayRange.Nights(), trip.Guests)
	cmd.Printf("Trip ID: %d, Status: %s, Total: %.2f %s\n",
		trip.ID, trip.Status, trip.TotalPrice, trip.Currency)
}

// validateBooking checks the booking parameters before they reach the API.
func validateBooking(checkIn, checkOut string, guests int) error {
	if err := validation.ValidateGuestCount(guests); err != nil {
		return clierr.New(clierr.Validation, err.Error(), err)
	}
	stayRange, err := interval.Parse(checkIn, checkOut)
	if err != nil {
		return clierr.New(clierr.Validation, err.Error(), err)
	}
	if err := stayRange.ValidateFuture(time.Now()); err != nil {
		return clierr.New(clierr.Booking, err.Error(), err)
	}
	return nil
}

// tripsListCmd shows the traveler's reservations
func tripsListCmd(svc *services) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show your reservations",
		Run: func(cmd *cobra.Command, args []string) {
			listTrips(cmd, svc)
		},
	}
}

func listTrips(cmd *cobra.Command, svc *services) {
	log.Info().Msg("Listing reservations...")

	trips, err := svc.api.ListTrips(cmd.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch reservations.")
		cmd.PrintErrln("Error: Failed to fetch reservations. Please check the logs for details.")
		return
	}

	if len(trips) == 0 {
		cmd.Println("No reservations found.")
		return
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Trip ID", "Stay", "Check-In", "Check-Out", "Guests", "Status", "Total"})
	table.SetColMinWidth(1, 40)                      // Set minimum width for the Stay column
	table.SetAlignment(tablewriter.ALIGN_LEFT)       // Align all columns to the left
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT) // Align headers to the left
	table.SetAutoWrapText(false)                     // Disable text wrapping in all columns
	table.SetRowLine(false)                          // Disable row line breaks

	for _, trip := range trips {
		table.Append([]string{
			fmt.Sprintf("%d", trip.ID),
			trip.StayTitle,
			trip.CheckIn,
			trip.CheckOut,
			fmt.Sprintf("%d", trip.Guests),
			trip.Status,
			fmt.Sprintf("%.2f %s", trip.TotalPrice, trip.Currency),
		})
	}

	table.Render()
}

// tripsCancelCmd cancels a reservation
func tripsCancelCmd(svc *services) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [tripID]",
		Short: "Cancel a reservation",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			tripID, err := strconv.Atoi(args[0])
			if err != nil || tripID <= 0 {
				cmd.PrintErrln("Error: Invalid trip ID. It must be a positive integer.")
				return
			}
			cancelTrip(cmd, svc, tripID)
		},
	}
}

func cancelTrip(cmd *cobra.Command, svc *services, tripID int) {
	log.Info().Msgf("Cancelling trip with ID=%d", tripID)

	trip, err := svc.api.CancelTrip(cmd.Context(), tripID)
	if err != nil {
		log.Error().Err(err).Msgf("Failed to cancel trip with ID=%d", tripID)
		if errors.Is(err, client.ErrQueuedOffline) {
			cmd.Println("You appear to be offline. The cancellation will be sent when the connection returns.")
			return
		}
		cmd.PrintErrln("Error: Failed to cancel the trip. Please check the logs for details.")
		return
	}

	cmd.Printf("Trip %d cancelled. Status: %s\n", trip.ID, trip.Status)
}
