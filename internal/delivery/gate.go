package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumenstudio/fotofacil/internal/backend"
)

// ErrLinkInvalid is terminal: the token cannot be re-derived, so a failed
// validation is never retried.
var ErrLinkInvalid = errors.New("delivery link expired or invalid")

// Validator exchanges an order id and token for the purchased items
type Validator interface {
	ValidateDelivery(ctx context.Context, orderID, token string) (*backend.DeliveryPackage, error)
}

// Fetcher downloads the content behind a URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Saver stores a downloaded file and returns where it was written
type Saver interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// Delivery is an opened delivery link
type Delivery struct {
	Order backend.DeliveryOrder  `json:"order"`
	Items []backend.DeliveryItem `json:"items"`
}

// Item returns the purchased item with the given photo id.
func (d *Delivery) Item(photoID string) (backend.DeliveryItem, bool) {
	for _, it := range d.Items {
		if it.PhotoID == photoID {
			return it, true
		}
	}
	return backend.DeliveryItem{}, false
}

// Report summarizes a bulk download. Failed holds photo ids.
type Report struct {
	Saved  []string `json:"saved"`
	Failed []string `json:"failed"`
}

type Gate struct {
	validator Validator
	fetcher   Fetcher
	saver     Saver
	notifier  Notifier
	delay     time.Duration
	logger    *zap.Logger
}

// NewGate creates a delivery gate. delay is the pause between files of a
// bulk download.
func NewGate(validator Validator, fetcher Fetcher, saver Saver, notifier Notifier, delay time.Duration, logger *zap.Logger) *Gate {
	return &Gate{
		validator: validator,
		fetcher:   fetcher,
		saver:     saver,
		notifier:  notifier,
		delay:     delay,
		logger:    logger,
	}
}

// Open validates the link. Any failure is reported as ErrLinkInvalid.
func (g *Gate) Open(ctx context.Context, orderID, token string) (*Delivery, error) {
	if strings.TrimSpace(orderID) == "" || strings.TrimSpace(token) == "" {
		return nil, ErrLinkInvalid
	}

	pkg, err := g.validator.ValidateDelivery(ctx, orderID, token)
	if err != nil {
		g.logger.Warn("Delivery link rejected", zap.String("order_id", orderID), zap.Error(err))
		return nil, ErrLinkInvalid
	}

	return &Delivery{Order: pkg.Order, Items: pkg.Items}, nil
}

// Download fetches and saves one item, notifying the outcome.
func (g *Gate) Download(ctx context.Context, item backend.DeliveryItem) (string, error) {
	location, err := g.download(ctx, item)
	if err != nil {
		return "", err
	}
	g.notifier.Notify(Notification{
		Level:   LevelInfo,
		PhotoID: item.PhotoID,
		Message: fmt.Sprintf("%s salva", displayName(item)),
	})
	return location, nil
}

// DownloadAll saves every item in order, pausing between files. A failed
// item is notified and skipped; one completion notification ends the run.
func (g *Gate) DownloadAll(ctx context.Context, d *Delivery) Report {
	report := Report{Saved: []string{}, Failed: []string{}}

	for i, item := range d.Items {
		if i > 0 && !g.pause(ctx) {
			break
		}
		if _, err := g.download(ctx, item); err != nil {
			report.Failed = append(report.Failed, item.PhotoID)
			continue
		}
		report.Saved = append(report.Saved, item.PhotoID)
	}

	level := LevelInfo
	if len(report.Saved) < len(d.Items) {
		level = LevelWarn
	}
	g.notifier.Notify(Notification{
		Level:   level,
		Message: fmt.Sprintf("Download concluído: %d de %d fotos", len(report.Saved), len(d.Items)),
	})

	g.logger.Info("Bulk download finished",
		zap.String("order_id", d.Order.ID),
		zap.Int("saved", len(report.Saved)),
		zap.Int("failed", len(report.Failed)),
	)
	return report
}

func (g *Gate) pause(ctx context.Context) bool {
	if g.delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(g.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (g *Gate) download(ctx context.Context, item backend.DeliveryItem) (string, error) {
	location, err := g.fetchAndSave(ctx, item)
	if err != nil {
		g.logger.Warn("Failed to download photo", zap.String("photo_id", item.PhotoID), zap.Error(err))
		g.notifier.Notify(Notification{
			Level:   LevelError,
			PhotoID: item.PhotoID,
			Message: fmt.Sprintf("Falha ao baixar %s", displayName(item)),
		})
		return "", err
	}
	return location, nil
}

func (g *Gate) fetchAndSave(ctx context.Context, item backend.DeliveryItem) (string, error) {
	if item.DownloadURL == "" {
		return "", fmt.Errorf("photo %s has no download url", item.PhotoID)
	}

	body, err := g.fetcher.Fetch(ctx, item.DownloadURL)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", item.PhotoID, err)
	}
	defer body.Close()

	location, err := g.saver.Save(ctx, FileName(item), body)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", item.PhotoID, err)
	}
	return location, nil
}

// FileName names the saved file after the photo id, keeping the extension
// of the download URL.
func FileName(item backend.DeliveryItem) string {
	ext := path.Ext(strings.SplitN(item.DownloadURL, "?", 2)[0])
	if ext == "" || len(ext) > 5 {
		ext = ".jpg"
	}
	return "foto-" + item.PhotoID + strings.ToLower(ext)
}

func displayName(item backend.DeliveryItem) string {
	if item.Title != "" {
		return item.Title
	}
	return "Foto " + item.PhotoID
}
