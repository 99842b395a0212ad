package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingKeyPrefix = "booking:pending:"
	lockKeyPrefix    = "booking:inflight:"
)

// Store keeps per-patient pending bookings and the submission lock in Redis.
// The lock TTL bounds how long a crashed flow can block resubmission.
type Store struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewStore creates a Redis-backed booking store.
func NewStore(client *redis.Client, ttl, lockTTL time.Duration) *Store {
	if client == nil {
		panic("booking: redis client required")
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &Store{client: client, ttl: ttl, lockTTL: lockTTL}
}

// SavePending stores the temporary-appointment data while payment is in flight.
func (s *Store) SavePending(ctx context.Context, patientID string, pending *Pending) error {
	data, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("booking: encode pending %s: %w", patientID, err)
	}
	if err := s.client.Set(ctx, pendingKeyPrefix+patientID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("booking: save pending %s: %w", patientID, err)
	}
	return nil
}

// GetPending loads the in-flight booking, or nil when none exists.
func (s *Store) GetPending(ctx context.Context, patientID string) (*Pending, error) {
	data, err := s.client.Get(ctx, pendingKeyPrefix+patientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("booking: load pending %s: %w", patientID, err)
	}
	var pending Pending
	if err := json.Unmarshal(data, &pending); err != nil {
		return nil, fmt.Errorf("booking: decode pending %s: %w", patientID, err)
	}
	return &pending, nil
}

// ClearPending removes the in-flight booking record.
func (s *Store) ClearPending(ctx context.Context, patientID string) error {
	if err := s.client.Del(ctx, pendingKeyPrefix+patientID).Err(); err != nil {
		return fmt.Errorf("booking: clear pending %s: %w", patientID, err)
	}
	return nil
}

// AcquireLock takes the per-patient submission lock. False means a submission
// is already in flight (the double-submit guard).
func (s *Store) AcquireLock(ctx context.Context, patientID string) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKeyPrefix+patientID, "1", s.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("booking: acquire lock %s: %w", patientID, err)
	}
	return ok, nil
}

// ReleaseLock frees the per-patient submission lock.
func (s *Store) ReleaseLock(ctx context.Context, patientID string) error {
	if err := s.client.Del(ctx, lockKeyPrefix+patientID).Err(); err != nil {
		return fmt.Errorf("booking: release lock %s: %w", patientID, err)
	}
	return nil
}
