package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"payflow-backend/internal/models"
)

// PreferenceRepository stores each customer's saved selection hint. An absent
// hint reads back as the none hint, not as an error.
type PreferenceRepository interface {
	SavedSelection(customerKey string) (models.SavedSelection, error)
	SetSavedSelection(customerKey string, selection models.SavedSelection) error
	ClearSavedSelection(customerKey string) error
}

// HintPruner removes hints that have not been touched since the cutoff.
// Implemented by the database-backed repository only.
type HintPruner interface {
	PruneHintsBefore(cutoff time.Time) (int64, error)
}

type preferenceRepository struct {
	db *gorm.DB
}

func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) SavedSelection(customerKey string) (models.SavedSelection, error) {
	var record models.SavedSelectionRecord
	err := r.db.First(&record, "customer_key = ?", customerKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.SavedSelection{Kind: models.SavedSelectionNone}, nil
	}
	if err != nil {
		return models.SavedSelection{}, err
	}
	return record.Selection(), nil
}

func (r *preferenceRepository) SetSavedSelection(customerKey string, selection models.SavedSelection) error {
	record := models.RecordFor(customerKey, selection)
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "customer_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"kind":       record.Kind,
			"method_id":  record.MethodID,
			"updated_at": time.Now(),
		}),
	}).Create(&record).Error
}

func (r *preferenceRepository) ClearSavedSelection(customerKey string) error {
	return r.db.Unscoped().Delete(&models.SavedSelectionRecord{}, "customer_key = ?", customerKey).Error
}

func (r *preferenceRepository) PruneHintsBefore(cutoff time.Time) (int64, error) {
	result := r.db.Unscoped().Delete(&models.SavedSelectionRecord{}, "updated_at < ?", cutoff)
	return result.RowsAffected, result.Error
}
