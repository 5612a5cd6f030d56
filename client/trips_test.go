package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookStay(t *testing.T) {
	var mu sync.Mutex
	var keys []string
	c := stayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/trips", r.URL.Path)
		payload, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"stay_id":42,"check_in":"2026-09-01","check_out":"2026-09-05","guests":2}`, string(payload))
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		mu.Unlock()
		fmt.Fprint(w, `{"id":7,"stay_id":42,"stay_title":"Sunny Loft near the Sagrada Familia","check_in":"2026-09-01","check_out":"2026-09-05","guests":2,"status":"confirmed","total_price":514.0,"currency":"EUR"}`)
	})

	booking := BookingRequest{StayID: 42, CheckIn: "2026-09-01", CheckOut: "2026-09-05", Guests: 2}

	trip, err := c.BookStay(context.Background(), booking)
	require.NoError(t, err)
	assert.Equal(t, 7, trip.ID)
	assert.Equal(t, "confirmed", trip.Status)
	assert.Equal(t, 514.0, trip.TotalPrice)

	_, err = c.BookStay(context.Background(), booking)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, keys, 2)
	for _, key := range keys {
		_, err := uuid.Parse(key)
		assert.NoError(t, err, "every booking carries a parseable idempotency key")
	}
	assert.NotEqual(t, keys[0], keys[1], "separate attempts must not share a key")
}

func TestBookStay_StayUnavailable(t *testing.T) {
	c := stayServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprint(w, `{"error":"stay_unavailable","message":"Those dates were just taken."}`)
	})

	_, err := c.BookStay(context.Background(), BookingRequest{StayID: 42, Guests: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStayUnavailable)
}

func TestListTrips(t *testing.T) {
	c := stayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/trips", r.URL.Path)
		fmt.Fprint(w, `{"trips":[
			{"id":7,"stay_id":42,"stay_title":"Sunny Loft near the Sagrada Familia","status":"confirmed"},
			{"id":3,"stay_id":19,"stay_title":"Harbour Cabin","status":"completed"}
		]}`)
	})

	trips, err := c.ListTrips(context.Background())
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "Harbour Cabin", trips[1].StayTitle)
}

func TestCancelTrip(t *testing.T) {
	c := stayServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/trips/7/cancel", r.URL.Path)
		fmt.Fprint(w, `{"id":7,"stay_id":42,"status":"cancelled"}`)
	})

	trip, err := c.CancelTrip(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", trip.Status)
}
