package repository

import (
	"context"
	"errors"
	"fmt"

	"TriRecover/internal/domain/models"
	"TriRecover/internal/domain/repository"
	"TriRecover/pkg/cache"
)

const settingsKey = "settings"

// CacheSettingsStore persists AppSettings under a single cache key without expiry.
type CacheSettingsStore struct {
	cache cache.Service
}

func NewCacheSettingsStore(c cache.Service) *CacheSettingsStore {
	return &CacheSettingsStore{cache: c}
}

var _ repository.SettingsStore = (*CacheSettingsStore)(nil)

// Get returns the saved settings, or the defaults when nothing was saved yet.
func (s *CacheSettingsStore) Get(ctx context.Context) (models.AppSettings, error) {
	var out models.AppSettings
	if err := s.cache.Get(ctx, settingsKey, &out); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return models.DefaultSettings(), nil
		}
		return models.AppSettings{}, fmt.Errorf("load settings: %w", err)
	}
	if err := out.Validate(); err != nil {
		// stale or hand-edited value; fall back rather than break every assessment
		return models.DefaultSettings(), nil
	}
	return out, nil
}

func (s *CacheSettingsStore) Save(ctx context.Context, settings models.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, settingsKey, settings, 0); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
