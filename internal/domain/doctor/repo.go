package doctor

import (
	"context"

	"github.com/vatsl808/appointix/internal/domain/identity"
)

// Repository persists doctor profiles. Lookups of a missing profile return
// an error wrapping apperr.ErrNotFound.
type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id ID) (*Doctor, error)
	GetByUserID(ctx context.Context, userID identity.UserID) (*Doctor, error)
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	UpdateAvailability(ctx context.Context, id ID, a AvailabilitySchedule) error
	UpdateContact(ctx context.Context, id ID, c Contact) error
	SetProfilePicture(ctx context.Context, id ID, url string) error
	// ListPictureURLs returns every non-empty profile picture URL.
	ListPictureURLs(ctx context.Context) ([]string, error)
}
