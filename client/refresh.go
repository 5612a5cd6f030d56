package client

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/wanderstay/wander/auth"
	"github.com/wanderstay/wander/db"
	"github.com/wanderstay/wander/pkg/hasher"
	"github.com/wanderstay/wander/pkg/pool"
)

// RefreshSavedStays re-downloads every saved stay into the local cache and
// reports how many listings actually changed since the last refresh, judged
// by a checksum of the raw payload. Progress is reported via progressCb with
// a value from 0.0 to 1.0.
func (c *WanderClient) RefreshSavedStays(
	ctx context.Context,
	authService *auth.Service,
	stayRepo db.StayRepository,
	numWorkers int,
	progressCb func(float64),
) (int, error) {
	// Renew up front so the workers do not all trip a 401 at once.
	if _, err := authService.RefreshTokenCtx(ctx); err != nil {
		return 0, fmt.Errorf("failed to refresh token: %w", err)
	}

	stayIDs, err := c.FetchAllSavedStayIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch saved stay IDs: %w", err)
	}
	if len(stayIDs) == 0 {
		log.Info().Msg("No saved stays found for this account.")
		if progressCb != nil {
			progressCb(1.0) // Signal completion
		}
		if err := stayRepo.Clear(ctx); err != nil {
			return 0, fmt.Errorf("failed to clear stay cache: %w", err)
		}
		return 0, nil
	}

	// Snapshot existing fingerprints before the cache is emptied so the
	// changed count survives the rebuild.
	previous := map[int]string{}
	if cached, err := stayRepo.List(ctx); err == nil {
		for _, stay := range cached {
			previous[stay.ID] = stay.Fingerprint
		}
	}

	if err := stayRepo.Clear(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear stay cache: %w", err)
	}

	var processedCount atomic.Int64
	var changedCount atomic.Int64
	totalStays := float64(len(stayIDs))

	workerFunc := func(ctx context.Context, id int) error {
		// Defer the counter increment to guarantee it runs even if a fetch fails.
		defer func() {
			count := processedCount.Add(1)
			if progressCb != nil {
				progressCb(float64(count) / totalStays)
			}
		}()

		stay, raw, fetchErr := c.FetchStay(ctx, id)
		if fetchErr != nil {
			log.Warn().Err(fetchErr).Int("stayID", id).Msg("Failed to fetch stay details")
			return nil // Don't treat as a fatal error for the pool
		}
		if stay.Title == "" {
			return nil
		}

		fingerprint, hashErr := hasher.HashBytes([]byte(raw), "sha256")
		if hashErr != nil {
			log.Warn().Err(hashErr).Int("stayID", id).Msg("Failed to fingerprint stay payload")
		}
		if old, ok := previous[id]; !ok || old != fingerprint {
			changedCount.Add(1)
		}

		if err := stayRepo.Put(ctx, db.Stay{
			ID:          id,
			Title:       stay.Title,
			City:        stay.City,
			Data:        raw,
			Fingerprint: fingerprint,
		}); err != nil {
			log.Error().Err(err).Int("stayID", id).Msg("Failed to save stay to DB")
		}
		return nil
	}

	_ = pool.Run(ctx, stayIDs, numWorkers, workerFunc)

	return int(changedCount.Load()), ctx.Err()
}
