package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// KeyPrefix namespaces persisted carts; the session id completes the key.
const KeyPrefix = "fotofacil:cart:"

const schemaVersion = 1

// ErrUnknownPhoto is returned when a photo does not exist or is not for sale.
var ErrUnknownPhoto = errors.New("photo not available")

// Item is one selected photo. PriceCents is the price snapshot taken when
// the photo was added.
type Item struct {
	PhotoID    string `json:"photoId"`
	EventID    string `json:"eventId"`
	EventTitle string `json:"eventTitle"`
	Title      string `json:"title"`
	ThumbURL   string `json:"thumbUrl"`
	PriceCents int64  `json:"priceCents"`
}

// Group is the display grouping of cart items by event.
type Group struct {
	EventID       string `json:"eventId"`
	EventTitle    string `json:"eventTitle"`
	Items         []Item `json:"items"`
	SubtotalCents int64  `json:"subtotalCents"`
}

type envelope struct {
	Version int    `json:"version"`
	Items   []Item `json:"items"`
}

// Store holds the cart of one browser session. Every mutation persists the
// whole item list; the in-memory copy stays authoritative if a write fails.
type Store struct {
	mu       sync.RWMutex
	key      string
	kv       KV
	items    []Item
	lastUsed time.Time
	logger   *zap.Logger
}

// Load hydrates a store from kv. A missing or unreadable value yields an
// empty cart.
func Load(ctx context.Context, kv KV, key string, logger *zap.Logger) *Store {
	s := &Store{
		key:      key,
		kv:       kv,
		lastUsed: time.Now(),
		logger:   logger,
	}

	raw, err := kv.Get(ctx, key)
	switch {
	case errors.Is(err, ErrKeyNotFound):
		return s
	case err != nil:
		logger.Warn("Failed to read persisted cart", zap.String("key", key), zap.Error(err))
		return s
	}

	items, err := decode(raw)
	if err != nil {
		logger.Warn("Discarding unreadable persisted cart", zap.String("key", key), zap.Error(err))
		return s
	}
	s.items = items
	return s
}

// AddItem inserts item unless a photo with the same id is already in the
// cart. It reports whether the cart changed.
func (s *Store) AddItem(ctx context.Context, item Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	if s.indexOf(item.PhotoID) >= 0 {
		return false
	}
	s.items = append(s.items, item)
	s.persist(ctx)
	return true
}

// RemoveItem deletes the photo if present.
func (s *Store) RemoveItem(ctx context.Context, photoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	i := s.indexOf(photoID)
	if i < 0 {
		return
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.persist(ctx)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = time.Now()

	s.items = nil
	s.persist(ctx)
}

// Contains reports whether the photo is in the cart.
func (s *Store) Contains(photoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(photoID) >= 0
}

// Items returns a copy of the items in insertion order.
func (s *Store) Items() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) TotalCents() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, it := range s.items {
		total += it.PriceCents
	}
	return total
}

// Groups returns the items grouped by event, events in first-seen order.
func (s *Store) Groups() []Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return GroupItems(s.items)
}

// GroupItems groups items by event, events in first-seen order.
func GroupItems(items []Item) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, it := range items {
		i, ok := index[it.EventID]
		if !ok {
			i = len(groups)
			index[it.EventID] = i
			groups = append(groups, Group{EventID: it.EventID, EventTitle: it.EventTitle})
		}
		groups[i].Items = append(groups[i].Items, it)
		groups[i].SubtotalCents += it.PriceCents
	}
	return groups
}

func (s *Store) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

func (s *Store) indexOf(photoID string) int {
	for i, it := range s.items {
		if it.PhotoID == photoID {
			return i
		}
	}
	return -1
}

// persist must be called with s.mu held.
func (s *Store) persist(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []Item{}
	}
	raw, err := json.Marshal(envelope{Version: schemaVersion, Items: items})
	if err != nil {
		s.logger.Warn("Failed to encode cart", zap.String("key", s.key), zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		s.logger.Warn("Failed to persist cart", zap.String("key", s.key), zap.Error(err))
	}
}

// decode accepts the versioned envelope and the legacy bare array. Items
// without a photo id, with a negative price, or repeating a photo id are
// dropped.
func decode(raw []byte) ([]Item, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty value")
	}

	var items []Item
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode legacy cart: %w", err)
		}
	} else {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("decode cart: %w", err)
		}
		if env.Version != schemaVersion {
			return nil, fmt.Errorf("unsupported cart version %d", env.Version)
		}
		items = env.Items
	}

	seen := make(map[string]bool, len(items))
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.PhotoID == "" || it.PriceCents < 0 || seen[it.PhotoID] {
			continue
		}
		seen[it.PhotoID] = true
		out = append(out, it)
	}
	return out, nil
}
