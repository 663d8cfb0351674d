package repository

import (
	"sync"

	"payflow-backend/internal/models"
)

type memoryPreferenceRepository struct {
	mu    sync.RWMutex
	hints map[string]models.SavedSelection
}

// NewMemoryPreferenceRepository returns an in-process hint store. Used when no
// database is configured and by tests.
func NewMemoryPreferenceRepository() PreferenceRepository {
	return &memoryPreferenceRepository{hints: make(map[string]models.SavedSelection)}
}

func (r *memoryPreferenceRepository) SavedSelection(customerKey string) (models.SavedSelection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if hint, ok := r.hints[customerKey]; ok {
		return hint, nil
	}
	return models.SavedSelection{Kind: models.SavedSelectionNone}, nil
}

func (r *memoryPreferenceRepository) SetSavedSelection(customerKey string, selection models.SavedSelection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hints[customerKey] = selection
	return nil
}

func (r *memoryPreferenceRepository) ClearSavedSelection(customerKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.hints, customerKey)
	return nil
}
