package storage

import (
	"context"
	"errors"

	"github.com/sankeerth95/rlpy/internal/model"
)

var ErrNotInitialized = errors.New("store is not initialized")

// Store persists runs and their episodes. Getters report absence with a
// false second result rather than an error.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveEpisodes(ctx context.Context, runID string, episodes []model.EpisodeRecord) error
	GetEpisodes(ctx context.Context, runID string) ([]model.EpisodeRecord, bool, error)
	DeleteRun(ctx context.Context, id string) error
}
