package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/blobstore"
	"github.com/vatsl808/appointix/internal/platform/cache"
	"github.com/vatsl808/appointix/internal/platform/metrics"
	"github.com/vatsl808/appointix/pkg/pagination"
)

const directoryCachePrefix = "doctors:"

type Service struct {
	repo     Repository
	pictures blobstore.Store
	cache    *cache.Cache
	logger   zerolog.Logger
}

// NewService wires the doctor directory. c may be nil to disable caching.
func NewService(repo Repository, pictures blobstore.Store, c *cache.Cache, logger zerolog.Logger) *Service {
	return &Service{repo: repo, pictures: pictures, cache: c, logger: logger}
}

type directoryPage struct {
	Items []Summary `json:"items"`
	Total int       `json:"total"`
}

// List returns one page of the public directory.
func (s *Service) List(ctx context.Context, pg pagination.Params) ([]Summary, int, error) {
	key := directoryCachePrefix + pg.Key()
	var page directoryPage
	if s.cache.Get(ctx, key, &page) {
		metrics.IncCacheLookup(true)
		return page.Items, page.Total, nil
	}
	metrics.IncCacheLookup(false)

	doctors, total, err := s.repo.List(ctx, pg.Limit, pg.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	page = directoryPage{Items: make([]Summary, 0, len(doctors)), Total: total}
	for _, d := range doctors {
		page.Items = append(page.Items, d.Summary())
	}
	s.cache.Set(ctx, key, page)
	return page.Items, page.Total, nil
}

func (s *Service) Get(ctx context.Context, id ID) (*Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateAvailability replaces the schedule wholesale. It reports false when
// the stored schedule already matches.
func (s *Service) UpdateAvailability(ctx context.Context, id ID, a AvailabilitySchedule) (bool, error) {
	if err := a.Validate(); err != nil {
		return false, err
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if current.Availability.Equal(a) {
		return false, nil
	}
	if err := s.repo.UpdateAvailability(ctx, id, a); err != nil {
		return false, fmt.Errorf("update availability: %w", err)
	}
	s.cache.InvalidatePrefix(ctx, directoryCachePrefix)
	s.logger.Info().Str("doctor_id", id.String()).Msg("availability updated")
	return true, nil
}

// UpdateProfile applies the non-nil fields of u. The returned bool is false
// when nothing changed.
func (s *Service) UpdateProfile(ctx context.Context, id ID, u ProfileUpdate) (Contact, bool, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Contact{}, false, err
	}
	next := Contact{Phone: current.Phone, Bio: current.Bio}
	if u.Phone != nil {
		next.Phone = u.Phone
	}
	if u.Bio != nil {
		next.Bio = u.Bio
	}
	if strPtrEqual(next.Phone, current.Phone) && strPtrEqual(next.Bio, current.Bio) {
		return next, false, nil
	}
	if err := s.repo.UpdateContact(ctx, id, next); err != nil {
		return Contact{}, false, fmt.Errorf("update profile: %w", err)
	}
	return next, true, nil
}

func allowedImageTypes() string {
	exts := make([]string, 0, len(blobstore.AllowedImageExtensions))
	for ext := range blobstore.AllowedImageExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}

// SetProfilePicture stores content as the doctor's new picture and returns
// its URL. The previous file is removed only after the new URL is saved; if
// saving fails the new file is removed instead.
func (s *Service) SetProfilePicture(ctx context.Context, id ID, filename string, content io.Reader) (string, error) {
	if !blobstore.IsAllowedImage(filename) {
		return "", apperr.Validation("File type not allowed. Allowed types: %s", allowedImageTypes())
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	name, err := blobstore.UniqueName(filename)
	if err != nil {
		return "", apperr.Validation("invalid file name %q", filename)
	}
	if _, err := s.pictures.Put(ctx, name, content); err != nil {
		if errors.Is(err, blobstore.ErrFileTooLarge) {
			return "", apperr.Validation("profile picture is too large")
		}
		return "", fmt.Errorf("store profile picture: %w", err)
	}

	url := PictureURL(name)
	if err := s.repo.SetProfilePicture(ctx, id, url); err != nil {
		if derr := s.pictures.Delete(ctx, name); derr != nil {
			s.logger.Error().Err(derr).Str("file", name).Msg("failed to remove orphaned profile picture")
		}
		return "", fmt.Errorf("save profile picture reference: %w", err)
	}

	if current.ProfilePictureURL != nil && *current.ProfilePictureURL != "" {
		old := path.Base(*current.ProfilePictureURL)
		if err := s.pictures.Delete(ctx, old); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Warn().Err(err).Str("file", old).Msg("failed to delete old profile picture")
		}
	}
	s.cache.InvalidatePrefix(ctx, directoryCachePrefix)
	return url, nil
}

// ListPictureURLs feeds the orphaned picture sweep.
func (s *Service) ListPictureURLs(ctx context.Context) ([]string, error) {
	return s.repo.ListPictureURLs(ctx)
}

// CreateForUser creates the profile of a newly registered doctor with the
// default all-closed schedule.
func (s *Service) CreateForUser(ctx context.Context, u *identity.User, details identity.DoctorDetails) (string, error) {
	d := &Doctor{
		UserID:         u.ID,
		Name:           u.Name,
		Specialization: details.Specialization,
		Email:          u.Email,
		Phone:          details.Phone,
		Bio:            details.Bio,
		Availability:   DefaultAvailability(),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return "", fmt.Errorf("create doctor profile: %w", err)
	}
	s.cache.InvalidatePrefix(ctx, directoryCachePrefix)
	return d.ID.String(), nil
}

// IDForUser returns the profile id owned by userID.
func (s *Service) IDForUser(ctx context.Context, userID identity.UserID) (string, error) {
	d, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	return d.ID.String(), nil
}
