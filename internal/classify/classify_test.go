package classify

import (
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"kharcha/internal/core"
	"kharcha/internal/log"
)

func testLogger() *log.Logger {
	return log.New(slog.LevelError)
}

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "classifier.model"))
}

func trainingSet() []core.TrainingExample {
	return []core.TrainingExample{
		{Description: "veg thali", Category: core.Food},
		{Description: "paneer roll", Category: core.Food},
		{Description: "masala thali combo", Category: core.Food},
		{Description: "airport drop", Category: core.Travel},
		{Description: "highway trip", Category: core.Travel},
		{Description: "airport shuttle ride", Category: core.Travel},
	}
}

func TestRuleCategory(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        core.Category
		wantOK      bool
	}{
		{"food keyword", "pizza with friends", core.Food, true},
		{"travel keyword", "uber to office", core.Travel, true},
		{"bills keyword", "electricity recharge", core.Bills, true},
		{"shopping keyword", "new shoe from amazon", core.Shopping, true},
		{"keyword with punctuation and digits", "Pizza!! x2", core.Food, true},
		{"substring is not a whole word", "pizzeria evening", "", false},
		{"no keywords", "misc stuff", "", false},
		{"empty description", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RuleCategory(tt.description)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("RuleCategory(%q) = (%q, %v), want (%q, %v)",
					tt.description, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStoreTrainRequiresHistory(t *testing.T) {
	store := testStore(t)

	err := store.Train([]core.TrainingExample{
		{Description: "veg thali", Category: core.Food},
		{Description: "paneer roll", Category: core.Food},
	})
	if !errors.Is(err, ErrNotEnoughHistory) {
		t.Errorf("Train() with 2 examples = %v, want ErrNotEnoughHistory", err)
	}

	// Enough rows but a single label is still not trainable.
	single := make([]core.TrainingExample, 6)
	for i := range single {
		single[i] = core.TrainingExample{Description: "veg thali", Category: core.Food}
	}
	if err := store.Train(single); !errors.Is(err, ErrNotEnoughHistory) {
		t.Errorf("Train() with one label = %v, want ErrNotEnoughHistory", err)
	}
}

func TestStorePredict(t *testing.T) {
	store := testStore(t)

	if _, ok := store.Predict("paneer thali"); ok {
		t.Error("Predict() before training returned ok")
	}

	if err := store.Train(trainingSet()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	got, ok := store.Predict("paneer thali dinner special")
	if !ok {
		t.Fatal("Predict() after training returned !ok")
	}
	if got != core.Food {
		t.Errorf("Predict() = %q, want %q", got, core.Food)
	}
}

func TestStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "classifier.model")

	first := NewStore(path)
	if err := first.Train(trainingSet()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	second := NewStore(path)
	got, ok := second.Predict("airport drop ride")
	if !ok {
		t.Fatal("Predict() on fresh store did not load persisted model")
	}
	if got != core.Travel {
		t.Errorf("Predict() = %q, want %q", got, core.Travel)
	}
}

func TestStorePredictMapsUnknownLabelToOthers(t *testing.T) {
	store := testStore(t)

	examples := []core.TrainingExample{
		{Description: "drone propeller", Category: "Gadgets"},
		{Description: "drone battery pack", Category: "Gadgets"},
		{Description: "propeller blades spare", Category: "Gadgets"},
		{Description: "veg thali", Category: core.Food},
		{Description: "paneer roll", Category: core.Food},
		{Description: "masala thali", Category: core.Food},
	}
	if err := store.Train(examples); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	got, ok := store.Predict("drone propeller spare")
	if !ok {
		t.Fatal("Predict() returned !ok")
	}
	if got != core.Others {
		t.Errorf("Predict() = %q, want %q for label outside the closed set", got, core.Others)
	}
}

func TestDetector(t *testing.T) {
	detector := NewDetector(testStore(t), testLogger())

	t.Run("rule tier wins regardless of model state", func(t *testing.T) {
		if got := detector.Detect("pizza with friends"); got != core.Food {
			t.Errorf("Detect() = %q, want %q", got, core.Food)
		}
	})

	t.Run("no rule and no model defaults to Others", func(t *testing.T) {
		if got := detector.Detect("xyz123"); got != core.Others {
			t.Errorf("Detect() = %q, want %q", got, core.Others)
		}
	})

	t.Run("fallback after training", func(t *testing.T) {
		if err := detector.Train(trainingSet()); err != nil {
			t.Fatalf("Train() error = %v", err)
		}
		if got := detector.Detect("paneer thali"); got != core.Food {
			t.Errorf("Detect() = %q, want %q", got, core.Food)
		}
	})

	t.Run("never empty", func(t *testing.T) {
		if got := detector.Detect(""); got == "" {
			t.Error("Detect(\"\") returned empty category")
		}
	})
}
