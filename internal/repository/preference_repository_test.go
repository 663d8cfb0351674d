package repository

import (
	"testing"

	"payflow-backend/internal/models"
	"payflow-backend/pkg/cache"
)

func TestMemoryPreferenceRepository(t *testing.T) {
	repo := NewMemoryPreferenceRepository()

	hint, err := repo.SavedSelection("cus_1")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if hint.Kind != models.SavedSelectionNone {
		t.Fatalf("expected none hint for unknown customer, got %+v", hint)
	}

	want := models.SavedSelection{Kind: models.SavedSelectionMethod, MethodID: "pm_1"}
	if err := repo.SetSavedSelection("cus_1", want); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	hint, err = repo.SavedSelection("cus_1")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if hint != want {
		t.Fatalf("expected %+v, got %+v", want, hint)
	}

	if err := repo.ClearSavedSelection("cus_1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	hint, err = repo.SavedSelection("cus_1")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if hint.Kind != models.SavedSelectionNone {
		t.Fatalf("expected none hint after clear, got %+v", hint)
	}
}

func TestCachedPreferenceRepositoryFallsThroughWithoutCache(t *testing.T) {
	disabled, err := cache.NewCache("", false)
	if err != nil {
		t.Fatalf("failed to build disabled cache: %v", err)
	}

	inner := NewMemoryPreferenceRepository()
	repo := NewCachedPreferenceRepository(inner, disabled)

	want := models.SavedSelection{Kind: models.SavedSelectionWallet}
	if err := repo.SetSavedSelection("cus_9", want); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	hint, err := repo.SavedSelection("cus_9")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if hint != want {
		t.Fatalf("expected %+v, got %+v", want, hint)
	}

	if err := repo.ClearSavedSelection("cus_9"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	hint, err = repo.SavedSelection("cus_9")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if hint.Kind != models.SavedSelectionNone {
		t.Fatalf("expected none hint after clear, got %+v", hint)
	}
}
