package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// BookStay reserves a stay. Every attempt carries a fresh Idempotency-Key so
// a replay, whether a token-refresh retry or an offline-queue drain, can
// never double-book.
func (c *WanderClient) BookStay(ctx context.Context, booking BookingRequest) (Trip, error) {
	req, err := newJSONRequest(ctx, "POST", c.apiURL("/v1/trips"), booking)
	if err != nil {
		return Trip{}, err
	}
	req.Header.Set("Idempotency-Key", uuid.NewString())

	var trip Trip
	if err := c.doJSON(req, &trip); err != nil {
		return Trip{}, err
	}
	log.Info().Int("tripID", trip.ID).Int("stayID", booking.StayID).Msg("Stay booked")
	return trip, nil
}

// ListTrips returns the traveler's reservations, newest first.
func (c *WanderClient) ListTrips(ctx context.Context) ([]Trip, error) {
	var response struct {
		Trips []Trip `json:"trips"`
	}
	if err := c.getJSON(ctx, c.apiURL("/v1/trips"), &response); err != nil {
		return nil, err
	}
	return response.Trips, nil
}

// CancelTrip cancels a reservation and returns its updated state.
func (c *WanderClient) CancelTrip(ctx context.Context, tripID int) (Trip, error) {
	var trip Trip
	if err := c.postJSON(ctx, c.apiURL(fmt.Sprintf("/v1/trips/%d/cancel", tripID)), nil, &trip); err != nil {
		return Trip{}, err
	}
	log.Info().Int("tripID", tripID).Str("status", trip.Status).Msg("Trip cancelled")
	return trip, nil
}
