package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/cart"
	"github.com/lumenstudio/fotofacil/internal/domain"
	"github.com/lumenstudio/fotofacil/internal/repository"
	apperrors "github.com/lumenstudio/fotofacil/pkg/errors"
)

type catalogService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repos *repository.Repositories, logger *zap.Logger) *catalogService {
	return &catalogService{
		repos:  repos,
		logger: logger,
	}
}

// ListEvents returns published events, newest first
func (s *catalogService) ListEvents(ctx context.Context, limit, offset int) ([]*domain.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Catalog.ListPublishedEvents(ctx, limit, offset)
}

// EventPhotos returns a published event and its photos for sale
func (s *catalogService) EventPhotos(ctx context.Context, slug string) (*domain.Event, []*domain.Photo, error) {
	event, err := s.repos.Catalog.GetEventBySlug(ctx, slug)
	if err != nil {
		return nil, nil, err
	}

	photos, err := s.repos.Catalog.ListPhotosByEvent(ctx, event.ID)
	if err != nil {
		return nil, nil, err
	}
	return event, photos, nil
}

// ResolveCartItem turns a catalog photo into a cart item. The price is
// snapshotted here, when the photo is added.
func (s *catalogService) ResolveCartItem(ctx context.Context, photoID string) (cart.Item, error) {
	id, err := uuid.Parse(photoID)
	if err != nil {
		return cart.Item{}, cart.ErrUnknownPhoto
	}

	photo, err := s.repos.Catalog.GetPhoto(ctx, id)
	if err != nil {
		return cart.Item{}, s.unknownOr(err, photoID)
	}
	if !photo.IsActive {
		return cart.Item{}, cart.ErrUnknownPhoto
	}

	event, err := s.repos.Catalog.GetEventByID(ctx, photo.EventID)
	if err != nil {
		return cart.Item{}, s.unknownOr(err, photoID)
	}
	if !event.IsPublished {
		return cart.Item{}, cart.ErrUnknownPhoto
	}

	return cart.Item{
		PhotoID:    photo.ID.String(),
		EventID:    event.ID.String(),
		EventTitle: event.Title,
		Title:      photo.Title,
		ThumbURL:   photo.ThumbURL,
		PriceCents: photo.PriceCents,
	}, nil
}

func (s *catalogService) unknownOr(err error, photoID string) error {
	var notFound *apperrors.ErrNotFound
	if errors.As(err, &notFound) {
		return cart.ErrUnknownPhoto
	}
	s.logger.Error("Failed to resolve photo", zap.String("photo_id", photoID), zap.Error(err))
	return err
}
