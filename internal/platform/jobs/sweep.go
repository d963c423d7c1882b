package jobs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/rs/zerolog"

	"github.com/vatsl808/appointix/internal/platform/blobstore"
)

// PictureReferences lists the profile picture URLs still stored on doctor
// profiles.
type PictureReferences interface {
	ListPictureURLs(ctx context.Context) ([]string, error)
}

// PictureSweeper deletes stored pictures that no profile points at. Files
// younger than grace are kept so an upload whose profile update is still in
// flight is not removed.
type PictureSweeper struct {
	store  blobstore.Store
	refs   PictureReferences
	grace  time.Duration
	logger zerolog.Logger
	now    func() time.Time
}

func NewPictureSweeper(store blobstore.Store, refs PictureReferences, grace time.Duration, logger zerolog.Logger) *PictureSweeper {
	return &PictureSweeper{store: store, refs: refs, grace: grace, logger: logger, now: time.Now}
}

// Run performs one sweep and returns the number of files removed.
func (p *PictureSweeper) Run(ctx context.Context) (int, error) {
	urls, err := p.refs.ListPictureURLs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list picture references: %w", err)
	}
	referenced := make(map[string]bool, len(urls))
	for _, u := range urls {
		if u != "" {
			referenced[path.Base(u)] = true
		}
	}

	files, err := p.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list stored pictures: %w", err)
	}

	cutoff := p.now().Add(-p.grace)
	removed := 0
	for _, f := range files {
		if referenced[f.Name] || f.ModTime.After(cutoff) {
			continue
		}
		if err := p.store.Delete(ctx, f.Name); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			p.logger.Warn().Err(err).Str("file", f.Name).Msg("failed to remove orphaned picture")
			continue
		}
		removed++
	}
	if removed > 0 {
		p.logger.Info().Int("removed", removed).Msg("orphaned profile pictures removed")
	}
	return removed, nil
}

// Task adapts the sweeper for Scheduler.Add.
func (p *PictureSweeper) Task() Task {
	return func(ctx context.Context) error {
		_, err := p.Run(ctx)
		return err
	}
}
