package interval

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for check-in and check-out dates.
const DateLayout = "2006-01-02"

// StayRange is a half-open [CheckIn, CheckOut) date range for a booking.
type StayRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Parse builds a StayRange from YYYY-MM-DD strings and validates the order.
func Parse(checkIn, checkOut string) (StayRange, error) {
	in, err := time.Parse(DateLayout, checkIn)
	if err != nil {
		return StayRange{}, fmt.Errorf("invalid check-in date %q: %w", checkIn, err)
	}
	out, err := time.Parse(DateLayout, checkOut)
	if err != nil {
		return StayRange{}, fmt.Errorf("invalid check-out date %q: %w", checkOut, err)
	}
	r := StayRange{CheckIn: in, CheckOut: out}
	if !out.After(in) {
		return StayRange{}, fmt.Errorf("check-out %s must be after check-in %s", checkOut, checkIn)
	}
	return r, nil
}

// Nights returns the number of nights covered by the range.
func (r StayRange) Nights() int {
	return int(r.CheckOut.Sub(r.CheckIn).Hours() / 24)
}

// Overlaps reports whether two ranges share at least one night.
// Back-to-back bookings (one ends the day the other starts) do not overlap.
func (r StayRange) Overlaps(other StayRange) bool {
	return r.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(r.CheckOut)
}

// Contains reports whether the given day falls within the range.
func (r StayRange) Contains(day time.Time) bool {
	return !day.Before(r.CheckIn) && day.Before(r.CheckOut)
}

// String renders the range as "YYYY-MM-DD..YYYY-MM-DD".
func (r StayRange) String() string {
	return r.CheckIn.Format(DateLayout) + ".." + r.CheckOut.Format(DateLayout)
}

// ValidateFuture returns an error when the range starts before the given day.
// The reference day is passed in so callers can pin it for tests.
func (r StayRange) ValidateFuture(today time.Time) error {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if r.CheckIn.Before(day) {
		return fmt.Errorf("check-in %s is in the past", r.CheckIn.Format(DateLayout))
	}
	return nil
}
