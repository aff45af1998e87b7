package persist

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/storefront/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStorage keeps state in the client_states table.
type SQLStorage struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

type SQLOption func(*SQLStorage)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) SQLOption {
	return func(s *SQLStorage) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSQLStorage(db *gorm.DB, ttl time.Duration, opts ...SQLOption) *SQLStorage {
	s := &SQLStorage{db: db, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *SQLStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var row models.ClientState
	err := s.db.WithContext(ctx).
		Where("state_key = ?", key).
		Where("expires_at IS NULL OR expires_at > ?", s.now().UTC()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return row.Value, nil
}

func (s *SQLStorage) Save(ctx context.Context, key string, value []byte) error {
	row := models.ClientState{Key: key, Value: value}
	if s.ttl > 0 {
		exp := s.now().UTC().Add(s.ttl)
		row.ExpiresAt = &exp
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "state_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&row).Error
}

func (s *SQLStorage) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("state_key = ?", key).Delete(&models.ClientState{}).Error
}

// PurgeExpired removes rows whose TTL elapsed and returns how many were dropped.
func (s *SQLStorage) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&models.ClientState{})
	return res.RowsAffected, res.Error
}
