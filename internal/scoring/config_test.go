package scoring

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultParams(t *testing.T) {
	params := DefaultParams()

	if params.Z != 1.28155 {
		t.Errorf("Z = %v, want 1.28155", params.Z)
	}
	if params.VisibilityThreshold != -0.2 {
		t.Errorf("VisibilityThreshold = %v, want -0.2", params.VisibilityThreshold)
	}
	if params.PageSize != 10 {
		t.Errorf("PageSize = %d, want 10", params.PageSize)
	}
}

func TestParams_Visible(t *testing.T) {
	params := DefaultParams()

	tests := []struct {
		score float64
		want  bool
	}{
		{0.72, true},
		{0, true},     // zero-vote items stay visible
		{-0.2, true},  // threshold is inclusive
		{-0.21, false},
		{-1, false},
	}

	for _, tt := range tests {
		if got := params.Visible(tt.score); got != tt.want {
			t.Errorf("Visible(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestLoadCalibration_EmptyPath(t *testing.T) {
	params, err := LoadCalibration("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *params != *DefaultParams() {
		t.Errorf("empty path should return defaults, got %+v", params)
	}
}

func TestLoadCalibration_MissingFile(t *testing.T) {
	params, err := LoadCalibration("/nonexistent/calibration.json")
	if err == nil {
		t.Error("expected error for missing file")
	}
	// Graceful degradation: defaults are still usable.
	if params == nil || *params != *DefaultParams() {
		t.Errorf("missing file should return defaults, got %+v", params)
	}
}

func TestLoadCalibration_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	content := `{"version": "1", "params": {"page_size": 25}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write calibration file: %v", err)
	}

	params, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if params.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", params.PageSize)
	}
	// Untouched values keep their defaults.
	if params.Z != DefaultZ {
		t.Errorf("Z = %v, want default %v", params.Z, DefaultZ)
	}
	if params.VisibilityThreshold != DefaultVisibilityThreshold {
		t.Errorf("VisibilityThreshold = %v, want default %v",
			params.VisibilityThreshold, DefaultVisibilityThreshold)
	}
}

func TestLoadCalibration_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("failed to write calibration file: %v", err)
	}

	params, err := LoadCalibration(path)
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
	if params == nil || *params != *DefaultParams() {
		t.Errorf("invalid JSON should return defaults, got %+v", params)
	}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestMergeCalibration(t *testing.T) {
	t.Run("nil base starts from defaults", func(t *testing.T) {
		merged := MergeCalibration(nil, &CalibrationParams{Z: floatPtr(2)})
		if merged.Z != 2 {
			t.Errorf("Z = %v, want 2", merged.Z)
		}
		if merged.VisibilityThreshold != DefaultVisibilityThreshold || merged.PageSize != DefaultPageSize {
			t.Errorf("untouched fields should keep defaults, got %+v", merged)
		}
	})

	t.Run("nil override copies base", func(t *testing.T) {
		base := &Params{Z: 2, VisibilityThreshold: -0.5, PageSize: 5}
		merged := MergeCalibration(base, nil)
		if *merged != *base {
			t.Errorf("got %+v, want %+v", merged, base)
		}
		if merged == base {
			t.Error("merge should return a copy, not the base pointer")
		}
	})

	t.Run("full override", func(t *testing.T) {
		override := &CalibrationParams{
			Z:                   floatPtr(1.96),
			VisibilityThreshold: floatPtr(-0.5),
			PageSize:            intPtr(20),
		}
		merged := MergeCalibration(DefaultParams(), override)
		want := Params{Z: 1.96, VisibilityThreshold: -0.5, PageSize: 20}
		if *merged != want {
			t.Errorf("got %+v, want %+v", merged, want)
		}
	})

	t.Run("explicit zero overrides", func(t *testing.T) {
		merged := MergeCalibration(DefaultParams(), &CalibrationParams{
			VisibilityThreshold: floatPtr(0),
		})
		if merged.VisibilityThreshold != 0 {
			t.Errorf("VisibilityThreshold = %v, want 0", merged.VisibilityThreshold)
		}
		if merged.Z != DefaultZ || merged.PageSize != DefaultPageSize {
			t.Errorf("untouched fields should keep defaults, got %+v", merged)
		}
	})
}

// A calibration file may set the threshold to exactly 0; an absent key
// still falls back to the default.
func TestLoadCalibration_ZeroThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	content := `{"version": "1", "params": {"visibility_threshold": 0}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write calibration file: %v", err)
	}

	params, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.VisibilityThreshold != 0 {
		t.Errorf("VisibilityThreshold = %v, want 0", params.VisibilityThreshold)
	}
	if params.Z != DefaultZ || params.PageSize != DefaultPageSize {
		t.Errorf("untouched fields should keep defaults, got %+v", params)
	}
	if !params.Visible(0) || params.Visible(-0.01) {
		t.Error("zero threshold should hide strictly negative scores only")
	}
}
