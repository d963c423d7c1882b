package doctor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vatsl808/appointix/internal/domain/identity"
	"github.com/vatsl808/appointix/internal/platform/apperr"
	"github.com/vatsl808/appointix/internal/platform/blobstore"
	"github.com/vatsl808/appointix/internal/platform/cache"
	"github.com/vatsl808/appointix/pkg/pagination"
)

// -- Mock Repository --

type mockRepo struct {
	doctors    map[ID]*Doctor
	seq        int
	listCalls  int
	failUpdate bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{doctors: make(map[ID]*Doctor)}
}

func (m *mockRepo) Create(_ context.Context, d *Doctor) error {
	for _, existing := range m.doctors {
		if existing.UserID == d.UserID {
			return apperr.ErrConflict
		}
	}
	m.seq++
	d.ID = ID(fmt.Sprintf("doc-%d", m.seq))
	d.CreatedAt = time.Now()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id ID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperr.NotFound("doctor")
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) GetByUserID(_ context.Context, userID identity.UserID) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, apperr.NotFound("doctor")
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Doctor, int, error) {
	m.listCalls++
	var all []*Doctor
	for i := 1; i <= m.seq; i++ {
		if d, ok := m.doctors[ID(fmt.Sprintf("doc-%d", i))]; ok {
			all = append(all, d)
		}
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockRepo) get(id ID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperr.NotFound("doctor")
	}
	return d, nil
}

func (m *mockRepo) UpdateAvailability(_ context.Context, id ID, a AvailabilitySchedule) error {
	d, err := m.get(id)
	if err != nil {
		return err
	}
	d.Availability = a
	return nil
}

func (m *mockRepo) UpdateContact(_ context.Context, id ID, c Contact) error {
	d, err := m.get(id)
	if err != nil {
		return err
	}
	d.Phone, d.Bio = c.Phone, c.Bio
	return nil
}

func (m *mockRepo) SetProfilePicture(_ context.Context, id ID, url string) error {
	if m.failUpdate {
		return errors.New("write failed")
	}
	d, err := m.get(id)
	if err != nil {
		return err
	}
	d.ProfilePictureURL = &url
	return nil
}

func (m *mockRepo) ListPictureURLs(_ context.Context) ([]string, error) {
	var urls []string
	for _, d := range m.doctors {
		if d.ProfilePictureURL != nil {
			urls = append(urls, *d.ProfilePictureURL)
		}
	}
	return urls, nil
}

type testEnv struct {
	svc      *Service
	repo     *mockRepo
	pictures *blobstore.InMemoryStore
}

func newTestEnv(c *cache.Cache) *testEnv {
	repo := newMockRepo()
	pictures := blobstore.NewInMemoryStore(1 << 20)
	return &testEnv{
		svc:      NewService(repo, pictures, c, zerolog.Nop()),
		repo:     repo,
		pictures: pictures,
	}
}

func newTestService() *Service {
	return newTestEnv(nil).svc
}

func (e *testEnv) addDoctor(t *testing.T, name string) *Doctor {
	t.Helper()
	u := &identity.User{ID: identity.UserID("user-" + name), Name: name, Email: name + "@example.com", UserType: "doctor"}
	id, err := e.svc.CreateForUser(context.Background(), u, identity.DoctorDetails{Specialization: "General"})
	if err != nil {
		t.Fatalf("CreateForUser: %v", err)
	}
	return e.repo.doctors[ID(id)]
}

func TestCreateForUser(t *testing.T) {
	env := newTestEnv(nil)
	d := env.addDoctor(t, "house")
	if d.Name != "house" || d.Email != "house@example.com" || d.Specialization != "General" {
		t.Errorf("unexpected doctor %+v", d)
	}
	if !d.Availability.Equal(DefaultAvailability()) {
		t.Error("new doctors start with the default schedule")
	}

	id, err := env.svc.IDForUser(context.Background(), "user-house")
	if err != nil || ID(id) != d.ID {
		t.Errorf("IDForUser = %q, %v; want %q", id, err, d.ID)
	}
	if _, err := env.svc.IDForUser(context.Background(), "nobody"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestList_Paginates(t *testing.T) {
	env := newTestEnv(nil)
	for i := 0; i < 3; i++ {
		env.addDoctor(t, fmt.Sprintf("d%d", i))
	}
	items, total, err := env.svc.List(context.Background(), pagination.Params{Limit: 2, Offset: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Errorf("expected 2 of 3, got %d of %d", len(items), total)
	}
}

func TestList_UsesCacheAndInvalidates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	env := newTestEnv(cache.New(client, time.Minute, "test", zerolog.Nop()))
	d := env.addDoctor(t, "house")

	pg := pagination.Params{Limit: 10}
	ctx := context.Background()
	if _, _, err := env.svc.List(ctx, pg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, _, _ := env.svc.List(ctx, pg)
	if env.repo.listCalls != 1 {
		t.Errorf("expected second list to be served from cache, repo called %d times", env.repo.listCalls)
	}
	if len(items) != 1 || items[0].ID != d.ID {
		t.Errorf("unexpected cached items %+v", items)
	}

	a := openWeekdays()
	if _, err := env.svc.UpdateAvailability(ctx, d.ID, a); err != nil {
		t.Fatalf("UpdateAvailability: %v", err)
	}
	items, _, _ = env.svc.List(ctx, pg)
	if env.repo.listCalls != 2 {
		t.Errorf("expected cache to be invalidated, repo called %d times", env.repo.listCalls)
	}
	if !items[0].Availability.Equal(a) {
		t.Error("expected fresh availability after invalidation")
	}
}

func TestUpdateAvailability(t *testing.T) {
	env := newTestEnv(nil)
	d := env.addDoctor(t, "house")
	ctx := context.Background()

	changed, err := env.svc.UpdateAvailability(ctx, d.ID, openWeekdays())
	if err != nil || !changed {
		t.Fatalf("expected change, got %v, %v", changed, err)
	}
	changed, err = env.svc.UpdateAvailability(ctx, d.ID, openWeekdays())
	if err != nil || changed {
		t.Fatalf("expected no change, got %v, %v", changed, err)
	}

	bad := openWeekdays()
	delete(bad, "Monday")
	if _, err := env.svc.UpdateAvailability(ctx, d.ID, bad); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := env.svc.UpdateAvailability(ctx, "missing", openWeekdays()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(nil)
	d := env.addDoctor(t, "house")
	ctx := context.Background()

	phone := "555-0100"
	contact, changed, err := env.svc.UpdateProfile(ctx, d.ID, ProfileUpdate{Phone: &phone})
	if err != nil || !changed {
		t.Fatalf("expected change, got %v, %v", changed, err)
	}
	if contact.Phone == nil || *contact.Phone != phone || contact.Bio != nil {
		t.Errorf("unexpected contact %+v", contact)
	}

	_, changed, err = env.svc.UpdateProfile(ctx, d.ID, ProfileUpdate{Phone: &phone})
	if err != nil || changed {
		t.Errorf("expected no change, got %v, %v", changed, err)
	}

	bio := "Board certified."
	contact, _, _ = env.svc.UpdateProfile(ctx, d.ID, ProfileUpdate{Bio: &bio})
	if contact.Phone == nil || *contact.Phone != phone {
		t.Error("bio update must keep the phone")
	}
}

func TestSetProfilePicture_ReplacesOldFile(t *testing.T) {
	env := newTestEnv(nil)
	d := env.addDoctor(t, "house")
	ctx := context.Background()

	first, err := env.svc.SetProfilePicture(ctx, d.ID, "me.png", strings.NewReader("one"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(first, PicturePath) || !strings.HasSuffix(first, "_me.png") {
		t.Errorf("unexpected url %q", first)
	}

	second, err := env.svc.SetProfilePicture(ctx, d.ID, "new face.JPG", strings.NewReader("two"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(second, "_new_face.JPG") {
		t.Errorf("unexpected url %q", second)
	}

	files, _ := env.pictures.List(ctx)
	if len(files) != 1 || PictureURL(files[0].Name) != second {
		t.Errorf("expected only the new picture to remain, got %+v", files)
	}
	if *env.repo.doctors[d.ID].ProfilePictureURL != second {
		t.Error("profile should point at the new picture")
	}
}

func TestSetProfilePicture_RejectsType(t *testing.T) {
	env := newTestEnv(nil)
	d := env.addDoctor(t, "house")
	_, err := env.svc.SetProfilePicture(context.Background(), d.ID, "me.gif", strings.NewReader("x"))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "jpeg, jpg, png") {
		t.Errorf("expected allowed types in message, got %q", err.Error())
	}
}

func TestSetProfilePicture_CleansUpOnFailure(t *testing.T) {
	env := newTestEnv(nil)
	d := env.addDoctor(t, "house")
	env.repo.failUpdate = true

	if _, err := env.svc.SetProfilePicture(context.Background(), d.ID, "me.png", strings.NewReader("x")); err == nil {
		t.Fatal("expected error")
	}
	files, _ := env.pictures.List(context.Background())
	if len(files) != 0 {
		t.Errorf("expected new file to be removed, found %d", len(files))
	}
}

func TestListPictureURLs(t *testing.T) {
	env := newTestEnv(nil)
	d := env.addDoctor(t, "house")
	env.addDoctor(t, "wilson")
	url, _ := env.svc.SetProfilePicture(context.Background(), d.ID, "me.png", strings.NewReader("x"))

	urls, err := env.svc.ListPictureURLs(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != 1 || urls[0] != url {
		t.Errorf("unexpected urls %v", urls)
	}
}
