package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/joestump/joe-gate/internal/kv"
	"github.com/joestump/joe-gate/internal/metrics"
)

// LinksKey is the kv key holding the serialised link list.
const LinksKey = "admin-links"

// LinkRecord is one redirect candidate. The JSON names match the
// persisted format: a newest-first array of these objects.
type LinkRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
}

// LinkStore is the kv-backed implementation of LinkStoreIface. The whole
// collection is rewritten with a single Set on every mutation.
type LinkStore struct {
	kv  kv.Store
	key string
	now func() time.Time

	// mu serialises read-modify-write cycles within this process.
	mu sync.Mutex
}

// NewLinkStore creates a LinkStore persisting under prefix+LinksKey.
func NewLinkStore(s kv.Store, prefix string) *LinkStore {
	return &LinkStore{kv: s, key: prefix + LinksKey, now: time.Now}
}

// List returns all records, newest first. A missing or unreadable
// collection yields an empty list.
func (s *LinkStore) List(ctx context.Context) []LinkRecord {
	records, err := s.load(ctx)
	if err != nil {
		log.Warn().Err(err).Str("key", s.key).Msg("treating link list as empty")
		return []LinkRecord{}
	}
	return records
}

// MostRecent returns the head of List, the active link.
func (s *LinkStore) MostRecent(ctx context.Context) (*LinkRecord, bool) {
	records := s.List(ctx)
	if len(records) == 0 {
		return nil, false
	}
	head := records[0]
	return &head, true
}

// Add validates and prepends a new record.
func (s *LinkStore) Add(ctx context.Context, title, rawURL string) (*LinkRecord, error) {
	title, rawURL, err := ValidateLink(title, rawURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := LinkRecord{
		ID:        uuid.New().String(),
		Title:     title,
		URL:       rawURL,
		CreatedAt: s.now().UTC(),
	}
	current, err := s.loadForWrite(ctx)
	if err != nil {
		return nil, err
	}
	records := append([]LinkRecord{rec}, current...)
	if err := s.save(ctx, records); err != nil {
		return nil, err
	}
	log.Info().Str("id", rec.ID).Str("url", rec.URL).Msg("link added")
	return &rec, nil
}

// Update replaces title and url of the record with the given id. Position,
// id and createdAt are kept.
func (s *LinkStore) Update(ctx context.Context, id, title, rawURL string) (*LinkRecord, error) {
	title, rawURL, err := ValidateLink(title, rawURL)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadForWrite(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID != id {
			continue
		}
		records[i].Title = title
		records[i].URL = rawURL
		if err := s.save(ctx, records); err != nil {
			return nil, err
		}
		updated := records[i]
		log.Info().Str("id", id).Msg("link updated")
		return &updated, nil
	}
	return nil, ErrNotFound
}

// Delete removes the record with the given id. Unknown ids are not an error.
func (s *LinkStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadForWrite(ctx)
	if err != nil {
		return err
	}
	kept := records[:0]
	for _, r := range records {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	if err := s.save(ctx, kept); err != nil {
		return err
	}
	log.Info().Str("id", id).Msg("link deleted")
	return nil
}

// Clear removes every record.
func (s *LinkStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, []LinkRecord{})
}

func (s *LinkStore) load(ctx context.Context) ([]LinkRecord, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return []LinkRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load link list: %w", err)
	}
	var records []LinkRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, &StorageReadError{Key: s.key, Err: err}
	}
	if records == nil {
		records = []LinkRecord{}
	}
	return records, nil
}

// loadForWrite is load for the mutation paths. An undecodable collection is
// replaced like an empty one; backend failures abort the mutation.
func (s *LinkStore) loadForWrite(ctx context.Context) ([]LinkRecord, error) {
	records, err := s.load(ctx)
	var readErr *StorageReadError
	if errors.As(err, &readErr) {
		log.Warn().Err(err).Str("key", s.key).Msg("overwriting undecodable link list")
		return []LinkRecord{}, nil
	}
	return records, err
}

func (s *LinkStore) save(ctx context.Context, records []LinkRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("save link list: %w", err)
	}
	metrics.LinksTotal.Set(float64(len(records)))
	return nil
}
