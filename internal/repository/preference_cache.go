package repository

import (
	"payflow-backend/internal/models"
	"payflow-backend/pkg/cache"
	"payflow-backend/pkg/logger"
)

type cachedPreferenceRepository struct {
	inner PreferenceRepository
	cache *cache.Cache
}

// NewCachedPreferenceRepository wraps a hint store with a read-through cache.
// Cache misses and cache errors fall through to the inner store.
func NewCachedPreferenceRepository(inner PreferenceRepository, c *cache.Cache) PreferenceRepository {
	return &cachedPreferenceRepository{inner: inner, cache: c}
}

func (r *cachedPreferenceRepository) SavedSelection(customerKey string) (models.SavedSelection, error) {
	var hint models.SavedSelection
	if err := r.cache.GetCachedSavedSelection(customerKey, &hint); err == nil {
		return hint, nil
	}

	hint, err := r.inner.SavedSelection(customerKey)
	if err != nil {
		return models.SavedSelection{}, err
	}

	if err := r.cache.CacheSavedSelection(customerKey, hint); err != nil {
		logger.Warn("Failed to cache saved selection", map[string]interface{}{"customer": customerKey})
	}
	return hint, nil
}

func (r *cachedPreferenceRepository) SetSavedSelection(customerKey string, selection models.SavedSelection) error {
	if err := r.inner.SetSavedSelection(customerKey, selection); err != nil {
		return err
	}

	if err := r.cache.CacheSavedSelection(customerKey, selection); err != nil {
		logger.Warn("Failed to cache saved selection", map[string]interface{}{"customer": customerKey})
	}
	return nil
}

func (r *cachedPreferenceRepository) ClearSavedSelection(customerKey string) error {
	if err := r.inner.ClearSavedSelection(customerKey); err != nil {
		return err
	}

	if err := r.cache.InvalidateSavedSelection(customerKey); err != nil {
		logger.Warn("Failed to invalidate cached saved selection", map[string]interface{}{"customer": customerKey})
	}
	return nil
}
