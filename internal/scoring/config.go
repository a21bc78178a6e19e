package scoring

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// DefaultPageSize is the number of visible examples per listing page.
const DefaultPageSize = 10

// Params holds the tunable ranking parameters.
type Params struct {
	Z                   float64 `json:"z"`                    // confidence z value (default: 1.28155)
	VisibilityThreshold float64 `json:"visibility_threshold"` // minimum visible score (default: -0.2)
	PageSize            int     `json:"page_size"`            // examples per page (default: 10)
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string            `json:"version"` // config version for future compatibility
	Params  CalibrationParams `json:"params"`  // parameter overrides
}

// CalibrationParams mirrors Params with pointer fields so an absent key
// is distinguishable from an explicit zero.
type CalibrationParams struct {
	Z                   *float64 `json:"z"`
	VisibilityThreshold *float64 `json:"visibility_threshold"`
	PageSize            *int     `json:"page_size"`
}

// DefaultParams returns the production ranking parameters.
func DefaultParams() *Params {
	return &Params{
		Z:                   DefaultZ,
		VisibilityThreshold: DefaultVisibilityThreshold,
		PageSize:            DefaultPageSize,
	}
}

// Score computes the Wilson lower-bound score using the calibrated z value.
func (p *Params) Score(upvotes, downvotes int) float64 {
	return ScoreWithZ(upvotes, downvotes, p.Z)
}

// Visible reports whether an example with the given stored score appears
// in default listings.
func (p *Params) Visible(score float64) bool {
	return score >= p.VisibilityThreshold
}

// LoadCalibration loads ranking parameters from a JSON calibration file.
// If the file cannot be read or parsed, default parameters are returned
// along with the error so callers can degrade gracefully. Partial
// configurations are merged with defaults.
func LoadCalibration(filePath string) (*Params, error) {
	if filePath == "" {
		return DefaultParams(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read scoring calibration, using defaults",
			"path", filePath,
			"error", err)
		return DefaultParams(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse scoring calibration, using defaults",
			"path", filePath,
			"error", err)
		return DefaultParams(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	merged := MergeCalibration(DefaultParams(), &config.Params)
	logCalibrationOverrides(DefaultParams(), merged)

	return merged, nil
}

// MergeCalibration merges override parameters with base parameters.
// Only keys present in the override are applied, which allows partial
// calibration files and lets any parameter be set to exactly 0.
func MergeCalibration(base *Params, override *CalibrationParams) *Params {
	if base == nil {
		base = DefaultParams()
	}
	result := *base
	if override == nil {
		return &result
	}

	if override.Z != nil {
		result.Z = *override.Z
	}
	if override.VisibilityThreshold != nil {
		result.VisibilityThreshold = *override.VisibilityThreshold
	}
	if override.PageSize != nil {
		result.PageSize = *override.PageSize
	}
	return &result
}

// logCalibrationOverrides logs which parameters were overridden from defaults.
func logCalibrationOverrides(defaults *Params, loaded *Params) {
	var overrides []string

	if loaded.Z != defaults.Z {
		overrides = append(overrides, fmt.Sprintf("z: %.5f -> %.5f", defaults.Z, loaded.Z))
	}
	if loaded.VisibilityThreshold != defaults.VisibilityThreshold {
		overrides = append(overrides, fmt.Sprintf("visibility_threshold: %.2f -> %.2f",
			defaults.VisibilityThreshold, loaded.VisibilityThreshold))
	}
	if loaded.PageSize != defaults.PageSize {
		overrides = append(overrides, fmt.Sprintf("page_size: %d -> %d",
			defaults.PageSize, loaded.PageSize))
	}

	if len(overrides) > 0 {
		slog.Info("loaded scoring calibration with overrides", "overrides", overrides)
	} else {
		slog.Info("loaded scoring calibration (using all defaults)")
	}
}
