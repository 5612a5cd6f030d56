package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

var sizeRegexp = regexp.MustCompile(`(?i)^\s*([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]+)?\s*$`)

func parseSizeString(sizeStr string) (int64, error) {
	s := strings.TrimSpace(sizeStr)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}
	m := sizeRegexp.FindStringSubmatch(s)
	if len(m) == 0 {
		// Try pure integer bytes
		if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return v, nil
		}
		return 0, fmt.Errorf("unable to parse size '%s'", sizeStr)
	}
	valStr := m[1]
	unit := strings.ToLower(m[2])
	if unit == "" {
		// Bytes without unit
		v, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return 0, err
		}
		return int64(v), nil
	}
	// Normalize common units
	switch unit {
	case "b", "bytes":
		unit = "b"
	case "k", "kb", "kib":
		unit = "kb"
	case "m", "mb", "mib":
		unit = "mb"
	case "g", "gb", "gib":
		unit = "gb"
	case "t", "tb", "tib":
		unit = "tb"
	}
	var mult float64
	switch unit {
	case "b":
		mult = 1
	case "kb":
		mult = 1024
	case "mb":
		mult = 1024 * 1024
	case "gb":
		mult = 1024 * 1024 * 1024
	case "tb":
		mult = 1024 * 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unknown size unit '%s' in '%s'", unit, sizeStr)
	}
	v, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return 0, err
	}
	return int64(v * mult), nil
}

// SearchStays queries listings matching params.
func (c *WanderClient) SearchStays(ctx context.Context, params SearchParams) ([]Stay, error) {
	query := url.Values{}
	if params.City != "" {
		query.Set("city", params.City)
	}
	if params.CheckIn != "" {
		query.Set("check_in", params.CheckIn)
	}
	if params.CheckOut != "" {
		query.Set("check_out", params.CheckOut)
	}
	if params.Guests > 0 {
		query.Set("guests", strconv.Itoa(params.Guests))
	}

	searchURL := c.apiURL("/v1/stays/search")
	if encoded := query.Encode(); encoded != "" {
		searchURL += "?" + encoded
	}

	var response struct {
		Stays []Stay `json:"stays"`
	}
	if err := c.getJSON(ctx, searchURL, &response); err != nil {
		return nil, err
	}
	return response.Stays, nil
}

// FetchStay retrieves one stay. It returns the parsed Stay plus the raw JSON
// so callers can cache the payload verbatim.
func (c *WanderClient) FetchStay(ctx context.Context, stayID int) (Stay, string, error) {
	req, err := createRequest(ctx, http.MethodGet, c.apiURL(fmt.Sprintf("/v1/stays/%d", stayID)), "")
	if err != nil {
		return Stay{}, "", err
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return Stay{}, "", err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := readResponseBody(resp)
	if err != nil {
		return Stay{}, "", err
	}

	var stay Stay
	if err := json.Unmarshal(body, &stay); err != nil {
		log.Error().Err(err).Int("stayID", stayID).Msg("Failed to parse stay data")
		return Stay{}, "", err
	}
	return stay, string(body), nil
}

// FetchReviews lists the reviews of a stay.
func (c *WanderClient) FetchReviews(ctx context.Context, stayID int) ([]Review, error) {
	var response struct {
		Reviews []Review `json:"reviews"`
	}
	if err := c.getJSON(ctx, c.apiURL(fmt.Sprintf("/v1/stays/%d/reviews", stayID)), &response); err != nil {
		return nil, err
	}
	return response.Reviews, nil
}

// FetchProfile retrieves the signed-in traveler's account.
func (c *WanderClient) FetchProfile(ctx context.Context) (Profile, error) {
	var profile Profile
	if err := c.getJSON(ctx, c.apiURL("/v1/me"), &profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// SaveStay adds a stay to the traveler's saved list.
func (c *WanderClient) SaveStay(ctx context.Context, stayID int) error {
	return c.postJSON(ctx, c.apiURL(fmt.Sprintf("/v1/me/saved-stays/%d", stayID)), nil, nil)
}

// UnsaveStay removes a stay from the saved list.
func (c *WanderClient) UnsaveStay(ctx context.Context, stayID int) error {
	req, err := createRequest(ctx, http.MethodDelete, c.apiURL(fmt.Sprintf("/v1/me/saved-stays/%d", stayID)), "")
	if err != nil {
		return err
	}
	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	closeResponseBody(resp)
	return nil
}

// savedResponse is one page of the saved-stays listing.
type savedResponse struct {
	Saved []int  `json:"saved"`
	Next  string `json:"next,omitempty"`
}

// FetchSavedStayIDs retrieves the first page of saved stay IDs.
func (c *WanderClient) FetchSavedStayIDs(ctx context.Context) ([]int, error) {
	var response savedResponse
	if err := c.getJSON(ctx, c.apiURL("/v1/me/saved-stays"), &response); err != nil {
		return nil, err
	}
	return response.Saved, nil
}

func resolveNext(baseURL, next string) string {
	if next == "" {
		return ""
	}
	if u, err := url.Parse(next); err == nil && u.Scheme != "" && u.Host != "" {
		return next
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return next
	}
	n, err := url.Parse(next)
	if err != nil {
		return next
	}
	return base.ResolveReference(n).String()
}

func canonicalizeURL(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	// normalize trailing slash in path
	if parsed.Path == "/" {
		parsed.Path = ""
	} else {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}
	parsed.RawQuery = strings.TrimSuffix(parsed.RawQuery, "&")
	return parsed.String()
}

// FetchAllSavedStayIDs walks the saved-stays pages until the cursor runs out.
// A page pointing back at an already-visited URL ends the walk instead of
// looping.
func (c *WanderClient) FetchAllSavedStayIDs(ctx context.Context) ([]int, error) {
	all := make([]int, 0, 32)
	nextURL := canonicalizeURL(c.apiURL("/v1/me/saved-stays"))
	seen := map[string]bool{}
	for nextURL != "" {
		key := canonicalizeURL(nextURL)
		if seen[key] {
			break
		}
		seen[key] = true

		req, err := createRequest(ctx, http.MethodGet, nextURL, "")
		if err != nil {
			return nil, err
		}
		resp, err := c.sendRequest(req)
		if err != nil {
			return nil, err
		}
		func() {
			defer func() { _ = resp.Body.Close() }()
			body, err := readResponseBody(resp)
			if err != nil {
				nextURL = ""
				return
			}
			var page savedResponse
			if err := json.Unmarshal(body, &page); err != nil {
				nextURL = ""
				return
			}
			all = append(all, page.Saved...)
			resolved := resolveNext(nextURL, page.Next)
			nextURL = canonicalizeURL(resolved)
		}()
	}
	return all, nil
}

// FetchMediaManifest retrieves the downloadable media manifest of a stay.
func (c *WanderClient) FetchMediaManifest(ctx context.Context, stayID int) (MediaManifest, error) {
	var manifest MediaManifest
	if err := c.getJSON(ctx, c.apiURL(fmt.Sprintf("/v1/stays/%d/media", stayID)), &manifest); err != nil {
		return MediaManifest{}, err
	}
	if manifest.StayID == 0 {
		manifest.StayID = stayID
	}
	return manifest, nil
}

// EstimateStorageSize sums the declared sizes of a stay's media, filtered by
// kind ("all" keeps everything). Items whose size string cannot be parsed
// are skipped.
func (s *Stay) EstimateStorageSize(mediaKind string, includeOriginals bool) (int64, error) {
	var totalSizeBytes int64

	for _, item := range s.Media {
		if mediaKind != "all" && !strings.EqualFold(item.Kind, mediaKind) {
			continue
		}
		if size, err := parseSizeString(item.Size); err == nil {
			totalSizeBytes += size
		}
		if includeOriginals && item.OriginalURL != nil {
			if size, err := parseSizeString(item.OriginalSize); err == nil {
				totalSizeBytes += size
			}
		}
	}

	return totalSizeBytes, nil
}
