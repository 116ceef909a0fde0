// Package history keeps past consultations, most recent first.
package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"strategist/pkg/advice"
)

// DefaultKey is the well-known key the list is persisted under.
const DefaultKey = "art_of_war_history"

type Store struct {
	kv    KV
	key   string
	limit int
	log   *slog.Logger

	mu sync.Mutex
}

type Option func(*Store)

func WithKey(key string) Option { return func(s *Store) { s.key = key } }

// WithLimit keeps at most n items, dropping the oldest. Zero means no cap.
func WithLimit(n int) Option { return func(s *Store) { s.limit = n } }

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.log = l } }

func New(kv KV, opts ...Option) *Store {
	s := &Store{kv: kv, key: DefaultKey, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// LoadAll returns the persisted list. Corrupt data is discarded and
// reported as an empty history; only a failing backend is an error.
func (s *Store) LoadAll() ([]advice.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() ([]advice.HistoryItem, error) {
	raw, ok, err := s.kv.Get(s.key)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if !ok || raw == "" {
		return []advice.HistoryItem{}, nil
	}
	var items []advice.HistoryItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn("history unreadable, starting empty", "key", s.key, "err", err)
		return []advice.HistoryItem{}, nil
	}
	if items == nil {
		items = []advice.HistoryItem{}
	}
	return items, nil
}

func (s *Store) save(items []advice.HistoryItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.kv.Set(s.key, string(data)); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Append records a successful consultation at the head of the list and
// returns the stored item.
func (s *Store) Append(query string, a advice.StrategyAdvice, now time.Time) (advice.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return advice.HistoryItem{}, err
	}

	ts := now.UnixMilli()
	id := ts
	if len(items) > 0 {
		// ids must stay unique even for two appends within one millisecond
		if head, err := strconv.ParseInt(items[0].ID, 10, 64); err == nil && head >= id {
			id = head + 1
		}
	}
	item := advice.HistoryItem{
		ID:        strconv.FormatInt(id, 10),
		Query:     query,
		Advice:    a.Normalized(),
		Timestamp: ts,
	}

	items = append([]advice.HistoryItem{item}, items...)
	if s.limit > 0 && len(items) > s.limit {
		items = items[:s.limit]
	}
	if err := s.save(items); err != nil {
		return advice.HistoryItem{}, err
	}
	return item, nil
}

// Get finds an item by id.
func (s *Store) Get(id string) (advice.HistoryItem, bool, error) {
	items, err := s.LoadAll()
	if err != nil {
		return advice.HistoryItem{}, false, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, true, nil
		}
	}
	return advice.HistoryItem{}, false, nil
}

// Clear empties the persisted list.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save([]advice.HistoryItem{})
}
