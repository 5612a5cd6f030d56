package operations

import (
	"context"
	"fmt"

	"github.com/wanderstay/wander/client"
	"github.com/wanderstay/wander/db"
)

// EstimationParams contains all parameters for calculating storage size.
type EstimationParams struct {
	MediaKind        string
	IncludeOriginals bool
}

// EstimateStaySize retrieves a cached stay by ID and calculates the estimated
// download size of its media.
func EstimateStaySize(ctx context.Context, stays db.StayRepository, stayID int, params EstimationParams) (int64, *client.Stay, error) {
	record, err := stays.GetByID(ctx, stayID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to retrieve stay data for ID %d: %w", stayID, err)
	}
	if record == nil {
		return 0, nil, fmt.Errorf("stay with ID %d not found in the local cache", stayID)
	}

	stay, err := client.ParseStayData(record.Data)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to unmarshal stay data for ID %d: %w", stayID, err)
	}

	if !client.IsValidMediaKind(params.MediaKind) {
		return 0, &stay, fmt.Errorf("invalid media kind: %s", params.MediaKind)
	}

	totalSizeBytes, err := stay.EstimateStorageSize(params.MediaKind, params.IncludeOriginals)
	if err != nil {
		return 0, &stay, fmt.Errorf("failed to calculate storage size: %w", err)
	}

	return totalSizeBytes, &stay, nil
}
