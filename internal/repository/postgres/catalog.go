package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/domain"
	"github.com/lumenstudio/fotofacil/pkg/errors"
)

type catalogRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *sql.DB, logger *zap.Logger) *catalogRepository {
	return &catalogRepository{
		db:     db,
		logger: logger,
	}
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var e domain.Event
	var eventDate sql.NullTime
	var coverURL sql.NullString

	err := row.Scan(
		&e.ID,
		&e.Slug,
		&e.Title,
		&eventDate,
		&coverURL,
		&e.IsPublished,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if eventDate.Valid {
		e.EventDate = &eventDate.Time
	}
	if coverURL.Valid {
		e.CoverURL = &coverURL.String
	}
	return &e, nil
}

func (r *catalogRepository) ListPublishedEvents(ctx context.Context, limit, offset int) ([]*domain.Event, error) {
	query := `
		SELECT id, slug, title, event_date, cover_url, is_published, created_at
		FROM events
		WHERE is_published = true
		ORDER BY event_date DESC NULLS LAST, created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list events", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			r.logger.Error("Failed to scan event", zap.Error(err))
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (r *catalogRepository) GetEventBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	query := `
		SELECT id, slug, title, event_date, cover_url, is_published, created_at
		FROM events
		WHERE slug = $1 AND is_published = true
	`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "event", ID: slug}
	}
	if err != nil {
		r.logger.Error("Failed to get event by slug", zap.Error(err))
		return nil, err
	}

	return event, nil
}

func (r *catalogRepository) GetEventByID(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	query := `
		SELECT id, slug, title, event_date, cover_url, is_published, created_at
		FROM events
		WHERE id = $1
	`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "event", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get event by ID", zap.Error(err))
		return nil, err
	}

	return event, nil
}

func (r *catalogRepository) ListPhotosByEvent(ctx context.Context, eventID uuid.UUID) ([]*domain.Photo, error) {
	query := `
		SELECT id, event_id, title, thumb_url, price_cents, is_active, created_at
		FROM event_photos
		WHERE event_id = $1 AND is_active = true
		ORDER BY display_order, created_at
	`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		r.logger.Error("Failed to list photos", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	photos := make([]*domain.Photo, 0)
	for rows.Next() {
		var p domain.Photo
		if err := rows.Scan(&p.ID, &p.EventID, &p.Title, &p.ThumbURL, &p.PriceCents, &p.IsActive, &p.CreatedAt); err != nil {
			r.logger.Error("Failed to scan photo", zap.Error(err))
			return nil, err
		}
		photos = append(photos, &p)
	}

	return photos, rows.Err()
}

func (r *catalogRepository) GetPhoto(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	query := `
		SELECT id, event_id, title, thumb_url, price_cents, is_active, created_at
		FROM event_photos
		WHERE id = $1
	`

	var p domain.Photo
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID,
		&p.EventID,
		&p.Title,
		&p.ThumbURL,
		&p.PriceCents,
		&p.IsActive,
		&p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "photo", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get photo", zap.Error(err))
		return nil, err
	}

	return &p, nil
}
