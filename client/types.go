package client

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

// Media kinds in a stay's media manifest.
const (
	MediaKindPhoto     = "photo"
	MediaKindVideo     = "video"
	MediaKindFloorplan = "floorplan"
)

// MediaKinds lists the kinds accepted by media commands. "all" selects
// every kind.
var MediaKinds = []string{"all", MediaKindPhoto, MediaKindVideo, MediaKindFloorplan}

// IsValidMediaKind reports whether kind is one of MediaKinds.
func IsValidMediaKind(kind string) bool {
	for _, k := range MediaKinds {
		if strings.EqualFold(kind, k) {
			return true
		}
	}
	return false
}

// Stay is a bookable listing as returned by the API.
type Stay struct {
	ID           int         `json:"id"`
	Title        string      `json:"title"`
	City         string      `json:"city"`
	Country      string      `json:"country"`
	PropertyType string      `json:"property_type"`
	Summary      string      `json:"summary,omitempty"`
	NightlyRate  float64     `json:"nightly_rate"`
	Currency     string      `json:"currency"`
	Rating       float64     `json:"rating"`
	ReviewCount  int         `json:"review_count"`
	MaxGuests    int         `json:"max_guests"`
	Bedrooms     int         `json:"bedrooms"`
	Amenities    []string    `json:"amenities,omitempty"`
	Host         Host        `json:"host"`
	Media        []MediaItem `json:"media,omitempty"`
}

// Host identifies who runs a stay.
type Host struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Superhost bool   `json:"superhost"`
}

// MediaItem is one downloadable asset of a stay. Sizes come over the wire as
// human-readable strings like "1.2 GB"; parseSizeString turns them into bytes.
type MediaItem struct {
	Kind         string  `json:"kind"`
	Name         string  `json:"name"`
	URL          string  `json:"url"`
	Size         string  `json:"size"`
	SHA256       string  `json:"sha256,omitempty"`
	OriginalURL  *string `json:"original_url,omitempty"`
	OriginalSize string  `json:"original_size,omitempty"`
}

// MediaManifest lists every asset of one stay.
type MediaManifest struct {
	StayID int         `json:"stay_id"`
	Items  []MediaItem `json:"items"`
}

// Review is one guest review of a stay.
type Review struct {
	ID      int    `json:"id"`
	Author  string `json:"author"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
	Date    string `json:"date"`
}

// SearchParams narrows a stay search. Zero values are left off the query.
type SearchParams struct {
	City     string
	CheckIn  string
	CheckOut string
	Guests   int
}

// BookingRequest is the payload for booking a stay.
type BookingRequest struct {
	StayID   int    `json:"stay_id"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Guests   int    `json:"guests"`
}

// Trip is a reservation, pending or settled.
type Trip struct {
	ID         int     `json:"id"`
	StayID     int     `json:"stay_id"`
	StayTitle  string  `json:"stay_title"`
	CheckIn    string  `json:"check_in"`
	CheckOut   string  `json:"check_out"`
	Guests     int     `json:"guests"`
	Status     string  `json:"status"`
	TotalPrice float64 `json:"total_price"`
	Currency   string  `json:"currency"`
}

// Thread is one guest-host conversation in the inbox.
type Thread struct {
	ID          int    `json:"id"`
	StayTitle   string `json:"stay_title"`
	HostName    string `json:"host_name"`
	LastMessage string `json:"last_message"`
	UpdatedAt   string `json:"updated_at"`
	Unread      int    `json:"unread"`
}

// Message is one message inside a thread.
type Message struct {
	ID       int    `json:"id"`
	ThreadID int    `json:"thread_id"`
	Sender   string `json:"sender"`
	Body     string `json:"body"`
	SentAt   string `json:"sent_at"`
}

// Profile is the signed-in traveler's account data.
type Profile struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	HomeCity    string `json:"home_city"`
}

// ParseStayData parses a raw stay JSON payload, as cached in the local
// database, back into a Stay.
func ParseStayData(data string) (Stay, error) {
	var stay Stay
	if err := json.Unmarshal([]byte(data), &stay); err != nil {
		log.Error().Err(err).Msg("Failed to parse stay data")
		return Stay{}, err
	}
	return stay, nil
}
