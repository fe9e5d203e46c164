// ABOUTME: Idempotent bootstrap of configured identity providers and networks
// ABOUTME: Existing rows are left untouched so operator edits survive restarts

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Seed inserts the given identity providers and networks unless rows with
// the same ids already exist. It is safe to run on every startup.
func Seed(ctx context.Context, s Store, logger *slog.Logger, idps []Idp, networks []Network) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "seed")

	for _, idp := range idps {
		err := s.AddIdp(ctx, idp)
		if errors.Is(err, ErrConflict) {
			logger.Debug("identity provider already present", "id", idp.ID())
			continue
		}
		if err != nil {
			return fmt.Errorf("seeding identity provider %q: %w", idp.ID(), err)
		}
		logger.Info("seeded identity provider", "id", idp.ID(), "type", idp.Type())
	}

	for _, network := range networks {
		err := s.AddNetwork(ctx, network)
		if errors.Is(err, ErrConflict) {
			logger.Debug("network already present", "id", network.ID)
			continue
		}
		if err != nil {
			return fmt.Errorf("seeding network %q: %w", network.ID, err)
		}
		logger.Info("seeded network", "id", network.ID)
	}

	return nil
}
