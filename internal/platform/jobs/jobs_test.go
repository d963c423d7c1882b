package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vatsl808/appointix/internal/platform/blobstore"
)

type staticRefs struct {
	urls []string
	err  error
}

func (s staticRefs) ListPictureURLs(context.Context) ([]string, error) {
	return s.urls, s.err
}

func TestPictureSweeper_RemovesOnlyOrphans(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewInMemoryStore(1024)
	for _, name := range []string{"a_kept.png", "b_orphan.jpg", "c_orphan.jpeg"} {
		_, err := store.Put(ctx, name, strings.NewReader("x"))
		require.NoError(t, err)
	}

	refs := staticRefs{urls: []string{"/uploads/profile_pics/a_kept.png", ""}}
	sweeper := NewPictureSweeper(store, refs, time.Hour, zerolog.Nop())
	sweeper.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	removed, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	left, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "a_kept.png", left[0].Name)
}

func TestPictureSweeper_KeepsRecentUploads(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewInMemoryStore(1024)
	_, err := store.Put(ctx, "fresh.png", strings.NewReader("x"))
	require.NoError(t, err)

	sweeper := NewPictureSweeper(store, staticRefs{}, time.Hour, zerolog.Nop())
	removed, err := sweeper.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestPictureSweeper_ReferenceError(t *testing.T) {
	sweeper := NewPictureSweeper(blobstore.NewInMemoryStore(1024), staticRefs{err: errors.New("db down")}, 0, zerolog.Nop())
	_, err := sweeper.Run(context.Background())
	assert.ErrorContains(t, err, "db down")
}

func TestScheduler_Add(t *testing.T) {
	s := NewScheduler(zerolog.Nop(), time.Minute)
	require.NoError(t, s.Add("@daily", "noop", func(context.Context) error { return nil }))
	assert.Equal(t, 1, s.Len())

	err := s.Add("not a schedule", "bad", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestScheduler_RunsTask(t *testing.T) {
	s := NewScheduler(zerolog.Nop(), time.Second)
	ran := make(chan struct{}, 1)
	require.NoError(t, s.Add("@every 1s", "tick", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))

	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("task did not run")
	}
}
