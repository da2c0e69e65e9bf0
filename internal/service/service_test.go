package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/cart"
	"github.com/lumenstudio/fotofacil/internal/domain"
	"github.com/lumenstudio/fotofacil/internal/repository"
	apperrors "github.com/lumenstudio/fotofacil/pkg/errors"
)

type fakeCatalog struct {
	events map[uuid.UUID]*domain.Event
	photos map[uuid.UUID]*domain.Photo
	err    error
}

func (f *fakeCatalog) ListPublishedEvents(_ context.Context, limit, offset int) ([]*domain.Event, error) {
	out := []*domain.Event{}
	for _, e := range f.events {
		if e.IsPublished {
			out = append(out, e)
		}
	}
	return out, f.err
}

func (f *fakeCatalog) GetEventBySlug(_ context.Context, slug string) (*domain.Event, error) {
	for _, e := range f.events {
		if e.Slug == slug && e.IsPublished {
			return e, nil
		}
	}
	return nil, &apperrors.ErrNotFound{Resource: "event", ID: slug}
}

func (f *fakeCatalog) GetEventByID(_ context.Context, id uuid.UUID) (*domain.Event, error) {
	if e, ok := f.events[id]; ok {
		return e, nil
	}
	return nil, &apperrors.ErrNotFound{Resource: "event", ID: id.String()}
}

func (f *fakeCatalog) ListPhotosByEvent(_ context.Context, eventID uuid.UUID) ([]*domain.Photo, error) {
	out := []*domain.Photo{}
	for _, p := range f.photos {
		if p.EventID == eventID && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) GetPhoto(_ context.Context, id uuid.UUID) (*domain.Photo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.photos[id]; ok {
		return p, nil
	}
	return nil, &apperrors.ErrNotFound{Resource: "photo", ID: id.String()}
}

type fakeCoupons struct {
	created []*domain.Coupon
	byID    map[uuid.UUID]*domain.Coupon
}

func (f *fakeCoupons) GetActiveByCode(context.Context, string) (*domain.Coupon, error) {
	return nil, errors.New("not used")
}

func (f *fakeCoupons) GetByID(_ context.Context, id uuid.UUID) (*domain.Coupon, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, &apperrors.ErrNotFound{Resource: "coupon", ID: id.String()}
}

func (f *fakeCoupons) List(context.Context, int, int) ([]*domain.Coupon, error) {
	return f.created, nil
}

func (f *fakeCoupons) Create(_ context.Context, c *domain.Coupon) error {
	f.created = append(f.created, c)
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCoupons) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	c, ok := f.byID[id]
	if !ok {
		return &apperrors.ErrNotFound{Resource: "coupon", ID: id.String()}
	}
	c.IsActive = active
	return nil
}

type catalogFixture struct {
	catalog   *fakeCatalog
	event     *domain.Event
	photo     *domain.Photo
	hidden    *domain.Photo
	draftShot *domain.Photo
}

func newCatalogFixture() *catalogFixture {
	event := &domain.Event{ID: uuid.New(), Slug: "maratona-rio", Title: "Maratona do Rio", IsPublished: true}
	draft := &domain.Event{ID: uuid.New(), Slug: "rascunho", Title: "Rascunho"}
	photo := &domain.Photo{ID: uuid.New(), EventID: event.ID, Title: "Largada", ThumbURL: "https://cdn/t.jpg", PriceCents: 1990, IsActive: true}
	hidden := &domain.Photo{ID: uuid.New(), EventID: event.ID, Title: "Oculta", PriceCents: 500}
	draftShot := &domain.Photo{ID: uuid.New(), EventID: draft.ID, Title: "Teste", PriceCents: 100, IsActive: true}
	return &catalogFixture{
		catalog: &fakeCatalog{
			events: map[uuid.UUID]*domain.Event{event.ID: event, draft.ID: draft},
			photos: map[uuid.UUID]*domain.Photo{photo.ID: photo, hidden.ID: hidden, draftShot.ID: draftShot},
		},
		event:     event,
		photo:     photo,
		hidden:    hidden,
		draftShot: draftShot,
	}
}

func TestResolveCartItem_SnapshotsCatalogPrice(t *testing.T) {
	fx := newCatalogFixture()
	svc := NewCatalogService(&repository.Repositories{Catalog: fx.catalog}, zap.NewNop())

	item, err := svc.ResolveCartItem(context.Background(), fx.photo.ID.String())

	require.NoError(t, err)
	assert.Equal(t, cart.Item{
		PhotoID:    fx.photo.ID.String(),
		EventID:    fx.event.ID.String(),
		EventTitle: "Maratona do Rio",
		Title:      "Largada",
		ThumbURL:   "https://cdn/t.jpg",
		PriceCents: 1990,
	}, item)
}

func TestResolveCartItem_UnknownPhotos(t *testing.T) {
	fx := newCatalogFixture()
	svc := NewCatalogService(&repository.Repositories{Catalog: fx.catalog}, zap.NewNop())

	for name, id := range map[string]string{
		"not a uuid":        "abc",
		"missing":           uuid.NewString(),
		"inactive photo":    fx.hidden.ID.String(),
		"unpublished event": fx.draftShot.ID.String(),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ResolveCartItem(context.Background(), id)
			assert.ErrorIs(t, err, cart.ErrUnknownPhoto)
		})
	}
}

func TestResolveCartItem_StorageFailure(t *testing.T) {
	fx := newCatalogFixture()
	fx.catalog.err = errors.New("connection refused")
	svc := NewCatalogService(&repository.Repositories{Catalog: fx.catalog}, zap.NewNop())

	_, err := svc.ResolveCartItem(context.Background(), fx.photo.ID.String())

	require.Error(t, err)
	assert.NotErrorIs(t, err, cart.ErrUnknownPhoto)
}

func TestEventPhotos(t *testing.T) {
	fx := newCatalogFixture()
	svc := NewCatalogService(&repository.Repositories{Catalog: fx.catalog}, zap.NewNop())

	event, photos, err := svc.EventPhotos(context.Background(), "maratona-rio")
	require.NoError(t, err)
	assert.Equal(t, fx.event.ID, event.ID)
	require.Len(t, photos, 1)
	assert.Equal(t, fx.photo.ID, photos[0].ID)

	_, _, err = svc.EventPhotos(context.Background(), "rascunho")
	var notFound *apperrors.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestCreateCoupon(t *testing.T) {
	repo := &fakeCoupons{byID: map[uuid.UUID]*domain.Coupon{}}
	svc := NewCouponService(&repository.Repositories{Coupon: repo}, zap.NewNop())
	minOrder := int64(5000)

	c, err := svc.CreateCoupon(context.Background(), &CreateCouponRequest{
		Code:          " verao20 ",
		DiscountType:  "percentage",
		DiscountValue: "20",
		MinOrderCents: &minOrder,
	})

	require.NoError(t, err)
	assert.Equal(t, "VERAO20", c.Code)
	assert.True(t, c.DiscountValue.Equal(decimal.NewFromInt(20)))
	assert.True(t, c.IsActive)
	assert.Equal(t, &minOrder, c.MinOrderCents)
	assert.Len(t, repo.created, 1)
}

func TestCreateCoupon_Invalid(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	tests := []struct {
		name  string
		req   CreateCouponRequest
		field string
	}{
		{"blank code", CreateCouponRequest{Code: "  ", DiscountType: "fixed", DiscountValue: "100"}, "code"},
		{"unknown type", CreateCouponRequest{Code: "X10", DiscountType: "bogo", DiscountValue: "1"}, "discount_type"},
		{"not a number", CreateCouponRequest{Code: "X10", DiscountType: "fixed", DiscountValue: "ten"}, "discount_value"},
		{"zero value", CreateCouponRequest{Code: "X10", DiscountType: "fixed", DiscountValue: "0"}, "discount_value"},
		{"over one hundred percent", CreateCouponRequest{Code: "X10", DiscountType: "percentage", DiscountValue: "150"}, "discount_value"},
		{"fractional cents", CreateCouponRequest{Code: "X10", DiscountType: "fixed", DiscountValue: "10.5"}, "discount_value"},
		{"ends before start", CreateCouponRequest{Code: "X10", DiscountType: "fixed", DiscountValue: "100", ValidUntil: &past}, "valid_until"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeCoupons{byID: map[uuid.UUID]*domain.Coupon{}}
			svc := NewCouponService(&repository.Repositories{Coupon: repo}, zap.NewNop())

			_, err := svc.CreateCoupon(context.Background(), &tt.req)

			var verr *apperrors.ErrValidation
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, repo.created)
		})
	}
}

func TestSetActive(t *testing.T) {
	repo := &fakeCoupons{byID: map[uuid.UUID]*domain.Coupon{}}
	svc := NewCouponService(&repository.Repositories{Coupon: repo}, zap.NewNop())
	c, err := svc.CreateCoupon(context.Background(), &CreateCouponRequest{Code: "OFF", DiscountType: "fixed", DiscountValue: "500"})
	require.NoError(t, err)

	updated, err := svc.SetActive(context.Background(), c.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	_, err = svc.SetActive(context.Background(), uuid.New(), true)
	var notFound *apperrors.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestNewCartResponse(t *testing.T) {
	ctx := context.Background()
	store := cart.Load(ctx, cart.NewMemoryKV(), "k", zap.NewNop())

	empty := NewCartResponse(store)
	assert.NotNil(t, empty.Groups)
	assert.Zero(t, empty.TotalCents)

	store.AddItem(ctx, cart.Item{PhotoID: "p1", EventID: "e1", PriceCents: 1000})
	store.AddItem(ctx, cart.Item{PhotoID: "p2", EventID: "e1", PriceCents: 1500})
	resp := NewCartResponse(store)
	assert.Equal(t, 2, resp.ItemCount)
	assert.Equal(t, int64(2500), resp.TotalCents)
	assert.Len(t, resp.Groups, 1)
}
