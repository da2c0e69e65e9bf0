package delivery

import (
	"sync"

	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Notification is a transient message for the customer. PhotoID is empty
// for messages about the whole delivery.
type Notification struct {
	Level   Level  `json:"level"`
	PhotoID string `json:"photoId,omitempty"`
	Message string `json:"message"`
}

// Notifier receives notifications
type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to the logger
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(note Notification) {
	fields := []zap.Field{zap.String("message", note.Message)}
	if note.PhotoID != "" {
		fields = append(fields, zap.String("photo_id", note.PhotoID))
	}
	switch note.Level {
	case LevelError:
		n.logger.Error("Delivery notification", fields...)
	case LevelWarn:
		n.logger.Warn("Delivery notification", fields...)
	default:
		n.logger.Info("Delivery notification", fields...)
	}
}

// Collector keeps notifications in memory
type Collector struct {
	mu    sync.Mutex
	notes []Notification
}

func (c *Collector) Notify(note Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = append(c.notes, note)
}

// Notifications returns a copy of everything received so far
func (c *Collector) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.notes))
	copy(out, c.notes)
	return out
}
