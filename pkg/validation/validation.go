package validation

import (
	"fmt"
)

const (
	MinThreads = 1
	MaxThreads = 20

	MinGuests = 1
	MaxGuests = 16

	MinRating = 1
	MaxRating = 5
)

func ValidateThreadCount(threads int) error {
	if threads < MinThreads || threads > MaxThreads {
		return fmt.Errorf("thread count must be between %d and %d, got %d", MinThreads, MaxThreads, threads)
	}
	return nil
}

func ValidateStayID(id int) error {
	if id <= 0 {
		return fmt.Errorf("stay ID must be a positive integer, got %d", id)
	}
	return nil
}

func ValidateGuestCount(guests int) error {
	if guests < MinGuests || guests > MaxGuests {
		return fmt.Errorf("guest count must be between %d and %d, got %d", MinGuests, MaxGuests, guests)
	}
	return nil
}

func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("rating must be between %d and %d, got %d", MinRating, MaxRating, rating)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", fieldName)
	}
	return nil
}

func ValidateCurrencyCode(code string, validCodes map[string]string) error {
	if _, ok := validCodes[code]; !ok {
		return fmt.Errorf("invalid currency code: %s", code)
	}
	return nil
}

func ValidateMediaKind(kind string) error {
	validKinds := map[string]bool{
		"all":       true,
		"photo":     true,
		"video":     true,
		"floorplan": true,
	}
	if !validKinds[kind] {
		return fmt.Errorf("invalid media kind: %s (must be one of: all, photo, video, floorplan)", kind)
	}
	return nil
}
