package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const selectionKeyPrefix = "selection:"

// Store persists per-patient selection sessions in Redis. Sessions expire so
// abandoned flows do not accumulate.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a Redis-backed selection store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if client == nil {
		panic("selection: redis client required")
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Store{client: client, ttl: ttl}
}

// Get loads a patient's selection, returning a fresh one when none exists.
func (s *Store) Get(ctx context.Context, patientID string) (*Selection, error) {
	data, err := s.client.Get(ctx, selectionKeyPrefix+patientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Selection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("selection: load %s: %w", patientID, err)
	}
	var sel Selection
	if err := json.Unmarshal(data, &sel); err != nil {
		return nil, fmt.Errorf("selection: decode %s: %w", patientID, err)
	}
	return &sel, nil
}

// Save persists a patient's selection.
func (s *Store) Save(ctx context.Context, patientID string, sel *Selection) error {
	data, err := json.Marshal(sel)
	if err != nil {
		return fmt.Errorf("selection: encode %s: %w", patientID, err)
	}
	if err := s.client.Set(ctx, selectionKeyPrefix+patientID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("selection: save %s: %w", patientID, err)
	}
	return nil
}

// Delete removes a patient's selection session.
func (s *Store) Delete(ctx context.Context, patientID string) error {
	if err := s.client.Del(ctx, selectionKeyPrefix+patientID).Err(); err != nil {
		return fmt.Errorf("selection: delete %s: %w", patientID, err)
	}
	return nil
}
