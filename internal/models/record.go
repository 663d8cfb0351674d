package models

import "time"

// SavedSelectionRecord is the database row behind a customer's selection hint.
type SavedSelectionRecord struct {
	CustomerKey string    `gorm:"primaryKey;size:191" json:"customer_key"`
	Kind        string    `gorm:"type:varchar(16);not null" json:"kind"`
	MethodID    string    `gorm:"size:191" json:"method_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (SavedSelectionRecord) TableName() string {
	return "saved_selections"
}

func (r SavedSelectionRecord) Selection() SavedSelection {
	return SavedSelection{Kind: SavedSelectionKind(r.Kind), MethodID: r.MethodID}
}

func RecordFor(customerKey string, selection SavedSelection) SavedSelectionRecord {
	return SavedSelectionRecord{
		CustomerKey: customerKey,
		Kind:        string(selection.Kind),
		MethodID:    selection.MethodID,
	}
}
